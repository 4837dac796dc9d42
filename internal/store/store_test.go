package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func exerciseStore(t *testing.T, s Store, advance func(time.Duration)) {
	t.Helper()
	ctx := context.Background()

	if _, found, err := s.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("missing key: found=%v err=%v", found, err)
	}

	if err := s.Set(ctx, "a", []byte("one"), time.Minute); err != nil {
		t.Fatal(err)
	}
	v, found, err := s.Get(ctx, "a")
	if err != nil || !found || string(v) != "one" {
		t.Fatalf("get a: %q %v %v", v, found, err)
	}

	if err := s.Set(ctx, "a", []byte("two"), time.Minute); err != nil {
		t.Fatal(err)
	}
	v, _, _ = s.Get(ctx, "a")
	if string(v) != "two" {
		t.Errorf("overwrite: got %q", v)
	}

	advance(2 * time.Minute)
	if _, found, _ := s.Get(ctx, "a"); found {
		t.Error("expired entry should not be returned")
	}

	if err := s.Set(ctx, "b", []byte("x"), 0); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := s.Get(ctx, "b"); found {
		t.Error("deleted entry still present")
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }
	exerciseStore(t, s, func(d time.Duration) { now = now.Add(d) })
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "cache", "kv.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }
	exerciseStore(t, s, func(d time.Duration) { now = now.Add(d) })
}

func TestSQLiteStore_Sweep(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	s.Set(ctx, "short", []byte("1"), time.Second)
	s.Set(ctx, "long", []byte("2"), time.Hour)
	s.Set(ctx, "forever", []byte("3"), 0)

	now = now.Add(time.Minute)
	n, err := s.Sweep(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("swept %d rows, want 1", n)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := Open("etcd", "", ""); err == nil {
		t.Error("expected error")
	}
}
