// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package diskcache

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"os"
)

// Transferable cache file identity. The version bumps whenever the
// record layout changes; an old file is rejected, not migrated.
const (
	Magic   = uint32(0x4D585343) // "MXSC"
	Version = uint32(1)
)

// Record kinds.
const (
	kindRaw   = uint8(0)
	kindUsage = uint8(1)
)

// maxRecordSize bounds a single decompressed record. Anything larger is
// corruption, not a shader.
const maxRecordSize = 8 << 20

var (
	// ErrBadMagic reports a file that is not a transferable cache.
	ErrBadMagic = errors.New("diskcache: bad magic")

	// ErrVersion reports a transferable cache from another layout
	// version.
	ErrVersion = errors.New("diskcache: unsupported version")

	// ErrRecordTooLarge reports a record over the size bound.
	ErrRecordTooLarge = errors.New("diskcache: record too large")

	// ErrClosed reports use after Close.
	ErrClosed = errors.New("diskcache: closed")
)

// Raw is one guest shader, keyed by the content hash of its code.
type Raw struct {
	Hash uint64
	Code []byte
}

// Usage is one pipeline configuration observed at draw time: the
// content hashes of the bound shaders (zero for unbound stages) plus an
// opaque fixed-state blob.
type Usage struct {
	Shaders []uint64
	State   []byte
}

// HashCode returns the content hash identifying a shader's code.
func HashCode(code []byte) uint64 {
	h := fnv.New64a()
	h.Write(code)
	return h.Sum64()
}

// Cache is the transferable shader cache behind one file. Not safe for
// concurrent use.
type Cache struct {
	path   string
	file   *os.File
	seen   map[uint64]struct{}
	closed bool
}

// Open creates a cache over the given file path. The file is opened
// lazily on the first save; Load works whether or not it exists.
func Open(path string) *Cache {
	return &Cache{
		path: path,
		seen: make(map[uint64]struct{}),
	}
}

// Load reads every record the file holds. A truncated tail — the usual
// result of a crash mid-append — is not an error: the successfully read
// prefix is returned. A file with a foreign magic or version is.
func (c *Cache) Load() ([]Raw, []Usage, error) {
	if c.closed {
		return nil, nil, ErrClosed
	}
	f, err := os.Open(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var header struct{ Magic, Version uint32 }
	if err := binary.Read(f, binary.LittleEndian, &header); err != nil {
		// Too short for a header: treat as empty.
		return nil, nil, nil
	}
	if header.Magic != Magic {
		return nil, nil, fmt.Errorf("%w: %#x", ErrBadMagic, header.Magic)
	}
	if header.Version != Version {
		return nil, nil, fmt.Errorf("%w: %d", ErrVersion, header.Version)
	}

	var raws []Raw
	var usages []Usage
	for {
		kind, hash, payload, err := readRecord(f)
		if err != nil {
			// Truncation or tail corruption ends the readable prefix.
			break
		}
		switch kind {
		case kindRaw:
			raws = append(raws, Raw{Hash: hash, Code: payload})
			c.seen[hash] = struct{}{}
		case kindUsage:
			u, err := decodeUsage(payload)
			if err != nil {
				return raws, usages, nil
			}
			usages = append(usages, u)
			c.seen[hash] = struct{}{}
		default:
			return raws, usages, nil
		}
	}
	return raws, usages, nil
}

// SaveRaw appends the shader code once per content hash and returns the
// hash. Re-saving an already recorded shader is a no-op.
func (c *Cache) SaveRaw(code []byte) (uint64, error) {
	hash := HashCode(code)
	if _, ok := c.seen[hash]; ok {
		return hash, nil
	}
	if err := c.append(kindRaw, hash, code); err != nil {
		return 0, err
	}
	c.seen[hash] = struct{}{}
	return hash, nil
}

// SaveUsage appends a pipeline configuration once.
func (c *Cache) SaveUsage(u Usage) error {
	payload := encodeUsage(u)
	hash := HashCode(payload)
	if _, ok := c.seen[hash]; ok {
		return nil
	}
	if err := c.append(kindUsage, hash, payload); err != nil {
		return err
	}
	c.seen[hash] = struct{}{}
	return nil
}

// InvalidateTransferable deletes the file, typically after a version
// mismatch or a decompile failure on a cached shader.
func (c *Cache) InvalidateTransferable() error {
	if err := c.closeFile(); err != nil {
		return err
	}
	c.seen = make(map[uint64]struct{})
	err := os.Remove(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Close releases the append handle. The cache cannot be used after.
func (c *Cache) Close() error {
	err := c.closeFile()
	c.closed = true
	return err
}

func (c *Cache) closeFile() error {
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return err
}

// append opens the file on first use, writing the header into a fresh
// file, then appends one record.
func (c *Cache) append(kind uint8, hash uint64, payload []byte) error {
	if c.closed {
		return ErrClosed
	}
	if len(payload) > maxRecordSize {
		return fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, len(payload))
	}
	if c.file == nil {
		f, err := os.OpenFile(c.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return err
		}
		if info.Size() == 0 {
			header := struct{ Magic, Version uint32 }{Magic, Version}
			if err := binary.Write(f, binary.LittleEndian, header); err != nil {
				f.Close()
				return err
			}
		}
		c.file = f
	}
	return writeRecord(c.file, kind, hash, payload)
}

// Record envelope: kind, content hash, decompressed length, compressed
// length, zlib stream. Envelope integers are little-endian.
func writeRecord(w io.Writer, kind uint8, hash uint64, payload []byte) error {
	var comp bytes.Buffer
	zw := zlib.NewWriter(&comp)
	if _, err := zw.Write(payload); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteByte(kind)
	var env [16]byte
	binary.LittleEndian.PutUint64(env[0:], hash)
	binary.LittleEndian.PutUint32(env[8:], uint32(len(payload)))
	binary.LittleEndian.PutUint32(env[12:], uint32(comp.Len()))
	buf.Write(env[:])
	buf.Write(comp.Bytes())

	// One Write per record keeps a crash from splitting the envelope
	// across syscalls more often than necessary; Load tolerates the
	// remaining window.
	_, err := w.Write(buf.Bytes())
	return err
}

func readRecord(r io.Reader) (kind uint8, hash uint64, payload []byte, err error) {
	var head [17]byte
	if _, err = io.ReadFull(r, head[:]); err != nil {
		return 0, 0, nil, err
	}
	kind = head[0]
	hash = binary.LittleEndian.Uint64(head[1:])
	rawLen := binary.LittleEndian.Uint32(head[9:])
	compLen := binary.LittleEndian.Uint32(head[13:])
	if rawLen > maxRecordSize || compLen > maxRecordSize {
		return 0, 0, nil, ErrRecordTooLarge
	}
	comp := make([]byte, compLen)
	if _, err = io.ReadFull(r, comp); err != nil {
		return 0, 0, nil, err
	}
	zr, err := zlib.NewReader(bytes.NewReader(comp))
	if err != nil {
		return 0, 0, nil, err
	}
	defer zr.Close()
	payload = make([]byte, rawLen)
	if _, err = io.ReadFull(zr, payload); err != nil {
		return 0, 0, nil, err
	}
	return kind, hash, payload, nil
}

// Usage payload: shader count, shader hashes, fixed-state blob.
func encodeUsage(u Usage) []byte {
	buf := make([]byte, 4+8*len(u.Shaders)+len(u.State))
	binary.LittleEndian.PutUint32(buf, uint32(len(u.Shaders)))
	for i, h := range u.Shaders {
		binary.LittleEndian.PutUint64(buf[4+8*i:], h)
	}
	copy(buf[4+8*len(u.Shaders):], u.State)
	return buf
}

func decodeUsage(payload []byte) (Usage, error) {
	if len(payload) < 4 {
		return Usage{}, io.ErrUnexpectedEOF
	}
	count := binary.LittleEndian.Uint32(payload)
	if uint64(len(payload)) < 4+8*uint64(count) {
		return Usage{}, io.ErrUnexpectedEOF
	}
	u := Usage{Shaders: make([]uint64, count)}
	for i := range u.Shaders {
		u.Shaders[i] = binary.LittleEndian.Uint64(payload[4+8*i:])
	}
	if rest := payload[4+8*count:]; len(rest) > 0 {
		u.State = append([]byte(nil), rest...)
	}
	return u, nil
}
