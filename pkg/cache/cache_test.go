package cache

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := openStore(t)

	key := Key([]byte("x = 1"))
	data := []byte{0xde, 0xad, 0xbe, 0xef}
	if err := s.Put(key, data, "build-1", 1); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	e, err := s.Get(key, 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(e.Data) != string(data) {
		t.Errorf("data = %x, want %x", e.Data, data)
	}
	if e.BuildID != "build-1" {
		t.Errorf("build id = %q, want build-1", e.BuildID)
	}
	if e.Version != 1 {
		t.Errorf("version = %d, want 1", e.Version)
	}
	if e.CreatedAt.IsZero() {
		t.Error("created-at not set")
	}
}

func TestGetMiss(t *testing.T) {
	s := openStore(t)

	_, err := s.Get(Key([]byte("never stored")), 1)
	if !errors.Is(err, ErrMiss) {
		t.Fatalf("err = %v, want ErrMiss", err)
	}
}

func TestGetVersionMismatch(t *testing.T) {
	s := openStore(t)

	key := Key([]byte("x = 1"))
	if err := s.Put(key, []byte{1}, "b", 1); err != nil {
		t.Fatal(err)
	}

	// A different format version must not be served.
	if _, err := s.Get(key, 2); !errors.Is(err, ErrMiss) {
		t.Fatalf("err = %v, want ErrMiss", err)
	}
}

func TestPutReplaces(t *testing.T) {
	s := openStore(t)

	key := Key([]byte("x = 1"))
	if err := s.Put(key, []byte{1}, "old", 1); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(key, []byte{2}, "new", 1); err != nil {
		t.Fatal(err)
	}

	e, err := s.Get(key, 1)
	if err != nil {
		t.Fatal(err)
	}
	if e.BuildID != "new" || len(e.Data) != 1 || e.Data[0] != 2 {
		t.Errorf("entry = %+v, want replaced data", e)
	}
}

func TestDelete(t *testing.T) {
	s := openStore(t)

	key := Key([]byte("x = 1"))
	if err := s.Put(key, []byte{1}, "b", 1); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(key, 1); !errors.Is(err, ErrMiss) {
		t.Fatalf("err = %v, want ErrMiss after delete", err)
	}
}

func TestPruneKeepsFresh(t *testing.T) {
	s := openStore(t)

	key := Key([]byte("fresh"))
	if err := s.Put(key, []byte{1}, "b", 1); err != nil {
		t.Fatal(err)
	}

	n, err := s.Prune(time.Hour)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if n != 0 {
		t.Errorf("pruned %d fresh entries, want 0", n)
	}
	if _, err := s.Get(key, 1); err != nil {
		t.Errorf("fresh entry gone after prune: %v", err)
	}
}

func TestKeyIsStable(t *testing.T) {
	a := Key([]byte("x = 1"))
	b := Key([]byte("x = 1"))
	c := Key([]byte("x = 2"))
	if a != b {
		t.Error("same source produced different keys")
	}
	if a == c {
		t.Error("different sources produced the same key")
	}
	if len(a) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(a))
	}
}
