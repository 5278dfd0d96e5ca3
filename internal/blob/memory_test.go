package blob_test

import (
	"context"
	"strings"
	"testing"

	"netback/internal/blob"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("roundtrip", func(t *testing.T) {
		t.Parallel()
		s := blob.NewMemoryStore()

		if err := s.Write(ctx, "router1", "a.rsc", strings.NewReader("abc"), 3); err != nil {
			t.Fatalf("write: %v", err)
		}

		var sb strings.Builder
		if err := s.Read(ctx, "router1", "a.rsc", &sb); err != nil {
			t.Fatalf("read: %v", err)
		}
		if sb.String() != "abc" {
			t.Errorf("unexpected content: %q", sb.String())
		}
	})

	t.Run("size mismatch is rejected", func(t *testing.T) {
		t.Parallel()
		s := blob.NewMemoryStore()
		if err := s.Write(ctx, "router1", "a.rsc", strings.NewReader("abc"), 99); err == nil {
			t.Fatal("expected size mismatch error")
		}
	})

	t.Run("listings are sorted", func(t *testing.T) {
		t.Parallel()
		s := blob.NewMemoryStore()
		for _, name := range []string{"c.rsc", "a.rsc", "b.rsc"} {
			if err := s.Write(ctx, "router1", name, strings.NewReader("x"), 1); err != nil {
				t.Fatalf("write %s: %v", name, err)
			}
		}

		names, err := s.List(ctx, "router1")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if names[0] != "a.rsc" || names[2] != "c.rsc" {
			t.Errorf("unexpected order: %v", names)
		}
	})

	t.Run("delete missing file errors", func(t *testing.T) {
		t.Parallel()
		s := blob.NewMemoryStore()
		if err := s.Delete(ctx, "router1", "a.rsc"); err == nil {
			t.Fatal("expected error")
		}
	})
}
