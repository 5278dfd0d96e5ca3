package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"netback/internal/netback"
)

// FileSystemStore is a filesystem-based implementation of the BlobStore
// interface. Snapshots are stored one file per capture:
//
//	<root>/
//	  <device>/
//	    <device>_<timestamp>.rsc
type FileSystemStore struct {
	root string
}

// NewFileSystemStore creates a filesystem blob store rooted at the given path.
func NewFileSystemStore(root string) (*FileSystemStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot root: %w", err)
	}
	return &FileSystemStore{root: root}, nil
}

// Write stores a snapshot atomically via temp file + rename.
func (s *FileSystemStore) Write(_ context.Context, device, filename string, r io.Reader, size int64) error {
	dir := filepath.Join(s.root, device)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create device directory: %w", err)
	}

	// Temp file in the same directory so the rename stays atomic.
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}

	if err := os.Rename(tmpPath, filepath.Join(dir, filename)); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Read retrieves a snapshot and writes it to w.
func (s *FileSystemStore) Read(_ context.Context, device, filename string, w io.Writer) error {
	f, err := os.Open(filepath.Join(s.root, device, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("snapshot not found: %s/%s", device, filename)
		}
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	return nil
}

// List returns the snapshot filenames stored for a device. A device that has
// never been captured yields an empty list, not an error.
func (s *FileSystemStore) List(_ context.Context, device string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, device))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".tmp-") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// ListDevices returns the names of all devices with stored snapshots.
func (s *FileSystemStore) ListDevices(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	devices := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			devices = append(devices, e.Name())
		}
	}
	return devices, nil
}

// Delete removes a snapshot file.
func (s *FileSystemStore) Delete(_ context.Context, device, filename string) error {
	if err := os.Remove(filepath.Join(s.root, device, filename)); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// ValidateSetup verifies that the snapshot root is an accessible directory.
func (s *FileSystemStore) ValidateSetup(_ context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("snapshot root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("snapshot root is not a directory: %s", s.root)
	}
	return nil
}

// Compile-time check that FileSystemStore implements the BlobStore interface
var _ netback.BlobStore = (*FileSystemStore)(nil)
