// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"testing"

	"github.com/gogpu/maxwell/host"
)

type stubBackend struct {
	name string
}

func (b *stubBackend) Name() string { return b.name }

func (b *stubBackend) Open() (host.Device, error) { return nil, ErrNoAdapter }

func register(t *testing.T, name string) {
	t.Helper()
	Register(name, func() Backend { return &stubBackend{name: name} })
	t.Cleanup(func() { Unregister(name) })
}

func TestRegisterGet(t *testing.T) {
	register(t, "stub")

	if !IsRegistered("stub") {
		t.Fatal("stub not registered")
	}
	b := Get("stub")
	if b == nil || b.Name() != "stub" {
		t.Fatalf("Get(stub) = %v", b)
	}
	if Get("absent") != nil {
		t.Error("Get(absent) returned a backend")
	}

	Unregister("stub")
	if IsRegistered("stub") {
		t.Error("stub still registered after Unregister")
	}
}

func TestAvailable(t *testing.T) {
	register(t, "stub-a")
	register(t, "stub-b")

	names := make(map[string]bool)
	for _, n := range Available() {
		names[n] = true
	}
	if !names["stub-a"] || !names["stub-b"] {
		t.Errorf("Available() = %v, want stub-a and stub-b present", Available())
	}
}

func TestDefaultPriority(t *testing.T) {
	// The real device backend outranks the in-memory one; anything
	// outside the priority list is a last resort.
	register(t, "stub")
	register(t, BackendNull)

	if b := Default(); b == nil || b.Name() != BackendNull {
		t.Fatalf("Default() = %v, want %s", b, BackendNull)
	}

	register(t, BackendWgpu)
	if b := Default(); b == nil || b.Name() != BackendWgpu {
		t.Fatalf("Default() = %v, want %s", b, BackendWgpu)
	}

	Unregister(BackendWgpu)
	Unregister(BackendNull)
	if b := Default(); b == nil || b.Name() != "stub" {
		t.Fatalf("Default() = %v, want stub fallback", b)
	}
}
