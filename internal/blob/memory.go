package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"netback/internal/netback"
)

// MemoryStore is an in-memory implementation of the BlobStore interface,
// useful for testing. It is safe for concurrent use.
type MemoryStore struct {
	snapshots map[string]map[string][]byte // device -> filename -> content
	mu        sync.RWMutex
}

// NewMemoryStore creates a new in-memory blob store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]map[string][]byte)}
}

// Write stores a snapshot blob in memory.
func (m *MemoryStore) Write(_ context.Context, device, filename string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	files, ok := m.snapshots[device]
	if !ok {
		files = make(map[string][]byte)
		m.snapshots[device] = files
	}
	files[filename] = data
	return nil
}

// Read retrieves a snapshot blob.
func (m *MemoryStore) Read(_ context.Context, device, filename string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.snapshots[device][filename]
	if !ok {
		return fmt.Errorf("snapshot not found: %s/%s", device, filename)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return nil
}

// List returns the snapshot filenames stored for a device.
func (m *MemoryStore) List(_ context.Context, device string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := m.snapshots[device]
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ListDevices returns the names of all devices with stored snapshots.
func (m *MemoryStore) ListDevices(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	devices := make([]string, 0, len(m.snapshots))
	for device := range m.snapshots {
		devices = append(devices, device)
	}
	sort.Strings(devices)
	return devices, nil
}

// Delete removes a snapshot blob.
func (m *MemoryStore) Delete(_ context.Context, device, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.snapshots[device][filename]; !ok {
		return fmt.Errorf("snapshot not found: %s/%s", device, filename)
	}
	delete(m.snapshots[device], filename)
	return nil
}

// ValidateSetup always succeeds for the in-memory store.
func (m *MemoryStore) ValidateSetup(_ context.Context) error {
	return nil
}

// Compile-time check that MemoryStore implements the BlobStore interface
var _ netback.BlobStore = (*MemoryStore)(nil)
