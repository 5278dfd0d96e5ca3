package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"

	"netback/internal/netback"
)

// FlakyBlobStore wraps a BlobStore and injects failures into selected
// operations. Safe for concurrent use.
type FlakyBlobStore struct {
	netback.BlobStore

	mu          sync.Mutex
	failList    bool
	failReads   map[string]bool // filename -> fail
	failDeletes map[string]bool
}

// NewFlakyBlobStore wraps the given store.
func NewFlakyBlobStore(inner netback.BlobStore) *FlakyBlobStore {
	return &FlakyBlobStore{
		BlobStore:   inner,
		failReads:   make(map[string]bool),
		failDeletes: make(map[string]bool),
	}
}

// FailList makes List and ListDevices fail.
func (f *FlakyBlobStore) FailList(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failList = fail
}

// FailRead makes reads of the given filename fail.
func (f *FlakyBlobStore) FailRead(filename string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failReads[filename] = true
}

// FailDelete makes deletes of the given filename fail.
func (f *FlakyBlobStore) FailDelete(filename string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failDeletes[filename] = true
}

func (f *FlakyBlobStore) List(ctx context.Context, device string) ([]string, error) {
	f.mu.Lock()
	fail := f.failList
	f.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("injected list failure")
	}
	return f.BlobStore.List(ctx, device)
}

func (f *FlakyBlobStore) ListDevices(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	fail := f.failList
	f.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("injected list failure")
	}
	return f.BlobStore.ListDevices(ctx)
}

func (f *FlakyBlobStore) Read(ctx context.Context, device, filename string, w io.Writer) error {
	f.mu.Lock()
	fail := f.failReads[filename]
	f.mu.Unlock()
	if fail {
		return fmt.Errorf("injected read failure: %s", filename)
	}
	return f.BlobStore.Read(ctx, device, filename, w)
}

func (f *FlakyBlobStore) Delete(ctx context.Context, device, filename string) error {
	f.mu.Lock()
	fail := f.failDeletes[filename]
	f.mu.Unlock()
	if fail {
		return fmt.Errorf("injected delete failure: %s", filename)
	}
	return f.BlobStore.Delete(ctx, device, filename)
}
