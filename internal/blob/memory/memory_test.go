package memory

import (
	"context"
	"errors"
	"testing"

	"nomina/internal/blob"
)

func TestStoreVersioning(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	if _, _, err := s.Get(ctx, "entries.csv"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	v1, err := s.Put(ctx, "entries.csv", []byte("a"), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Put(ctx, "entries.csv", []byte("b"), ""); !errors.Is(err, blob.ErrVersionConflict) {
		t.Fatalf("expected conflict on second create, got %v", err)
	}

	v2, err := s.Put(ctx, "entries.csv", []byte("b"), v1)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if v2 == v1 {
		t.Fatalf("version should change on write")
	}
	if _, err := s.Put(ctx, "entries.csv", []byte("c"), v1); !errors.Is(err, blob.ErrVersionConflict) {
		t.Fatalf("expected conflict with stale version, got %v", err)
	}

	data, v, err := s.Get(ctx, "entries.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(data) != "b" || v != v2 {
		t.Fatalf("got %q@%s want b@%s", data, v, v2)
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	in := []byte("abc")
	if _, err := s.Put(ctx, "x", in, ""); err != nil {
		t.Fatal(err)
	}
	in[0] = 'z'
	out, _, _ := s.Get(ctx, "x")
	out[1] = 'z'
	again, _, _ := s.Get(ctx, "x")
	if string(again) != "abc" {
		t.Fatalf("store shares buffers with callers: %q", again)
	}
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewStore().Put(ctx, "x", nil, ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
