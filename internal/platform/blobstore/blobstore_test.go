package blobstore

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
)

func TestMemStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	hash, size, err := store.Put(ctx, strings.NewReader("hello lab report"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if size != int64(len("hello lab report")) {
		t.Errorf("size = %d", size)
	}
	if len(hash) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(hash))
	}

	rc, err := store.Open(ctx, hash)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "hello lab report" {
		t.Errorf("content = %q", data)
	}
}

func TestMemStoreSameContentSameHash(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	h1, _, _ := store.Put(ctx, strings.NewReader("same bytes"))
	h2, _, _ := store.Put(ctx, strings.NewReader("same bytes"))
	if h1 != h2 {
		t.Errorf("hashes differ: %s vs %s", h1, h2)
	}
}

func TestMemStoreDeleteAndMissing(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	hash, _, _ := store.Put(ctx, strings.NewReader("ephemeral"))
	if err := store.Delete(ctx, hash); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Open(ctx, hash); err != ErrBlobNotFound {
		t.Errorf("Open after delete: err = %v, want ErrBlobNotFound", err)
	}
	if err := store.Delete(ctx, hash); err != ErrBlobNotFound {
		t.Errorf("second Delete: err = %v, want ErrBlobNotFound", err)
	}
}

func TestPutRejectsOversizedContent(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	big := io.LimitReader(neverEnding('x'), MaxBlobSize+1)
	if _, _, err := store.Put(ctx, big); err != ErrBlobTooLarge {
		t.Errorf("err = %v, want ErrBlobTooLarge", err)
	}
}

type neverEnding byte

func (b neverEnding) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(b)
	}
	return len(p), nil
}

func TestFSStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}

	hash, _, err := store.Put(ctx, bytes.NewReader([]byte{0x25, 0x50, 0x44, 0x46}))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Second write of identical content must be accepted.
	h2, _, err := store.Put(ctx, bytes.NewReader([]byte{0x25, 0x50, 0x44, 0x46}))
	if err != nil || h2 != hash {
		t.Fatalf("idempotent Put: hash %s err %v", h2, err)
	}

	rc, err := store.Open(ctx, hash)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if !bytes.Equal(data, []byte{0x25, 0x50, 0x44, 0x46}) {
		t.Errorf("content mismatch: %x", data)
	}

	if err := store.Delete(ctx, hash); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Open(ctx, hash); err != ErrBlobNotFound {
		t.Errorf("Open after delete: %v", err)
	}
}
