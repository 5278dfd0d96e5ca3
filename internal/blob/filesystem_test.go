package blob_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"netback/internal/blob"
)

func TestFileSystemStore(t *testing.T) {
	ctx := context.Background()

	newStore := func(t *testing.T) *blob.FileSystemStore {
		t.Helper()
		s, err := blob.NewFileSystemStore(t.TempDir())
		if err != nil {
			t.Fatalf("creating store: %v", err)
		}
		return s
	}

	write := func(t *testing.T, s *blob.FileSystemStore, device, filename, content string) {
		t.Helper()
		if err := s.Write(ctx, device, filename, strings.NewReader(content), int64(len(content))); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	t.Run("write and read roundtrip", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		write(t, s, "router1", "router1_20250310_080000.rsc", "/ip firewall\n")

		var sb strings.Builder
		if err := s.Read(ctx, "router1", "router1_20250310_080000.rsc", &sb); err != nil {
			t.Fatalf("read: %v", err)
		}
		if sb.String() != "/ip firewall\n" {
			t.Errorf("unexpected content: %q", sb.String())
		}
	})

	t.Run("size mismatch fails without leaving a file", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		s, err := blob.NewFileSystemStore(root)
		if err != nil {
			t.Fatalf("creating store: %v", err)
		}

		err = s.Write(ctx, "router1", "bad.rsc", strings.NewReader("short"), 100)
		if err == nil {
			t.Fatal("expected size mismatch error")
		}
		if _, err := os.Stat(filepath.Join(root, "router1", "bad.rsc")); !os.IsNotExist(err) {
			t.Error("partial file left behind")
		}
	})

	t.Run("list ignores temp files and unknown devices", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		write(t, s, "router1", "a.rsc", "x")
		write(t, s, "router1", "b.rsc", "y")

		names, err := s.List(ctx, "router1")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(names) != 2 {
			t.Errorf("expected 2 files, got %v", names)
		}

		empty, err := s.List(ctx, "nothere")
		if err != nil {
			t.Fatalf("list unknown device: %v", err)
		}
		if len(empty) != 0 {
			t.Errorf("expected empty list, got %v", empty)
		}
	})

	t.Run("list devices", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		write(t, s, "router1", "a.rsc", "x")
		write(t, s, "router2", "b.rsc", "y")

		devices, err := s.ListDevices(ctx)
		if err != nil {
			t.Fatalf("list devices: %v", err)
		}
		if len(devices) != 2 {
			t.Errorf("expected 2 devices, got %v", devices)
		}
	})

	t.Run("delete removes the file", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		write(t, s, "router1", "a.rsc", "x")

		if err := s.Delete(ctx, "router1", "a.rsc"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		names, _ := s.List(ctx, "router1")
		if len(names) != 0 {
			t.Errorf("expected empty list after delete, got %v", names)
		}
		if err := s.Delete(ctx, "router1", "a.rsc"); err == nil {
			t.Error("expected error deleting missing file")
		}
	})

	t.Run("validate setup", func(t *testing.T) {
		t.Parallel()
		s := newStore(t)
		if err := s.ValidateSetup(ctx); err != nil {
			t.Errorf("validate: %v", err)
		}
	})
}
