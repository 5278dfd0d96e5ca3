package testutil

import (
	"fmt"
	"sync"
	"testing"

	"netback/internal/netback"
	"netback/internal/store"
	"netback/internal/store/migrations"
)

// NewTestStore creates a new in-memory SQLite store with schema applied.
// The store is automatically closed when the test completes.
func NewTestStore(t *testing.T) netback.Store {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	if err := migrations.MigrateUp(s.DB()); err != nil {
		s.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// FlakyStore wraps a Store and injects failures into selected operations.
// Safe for concurrent use.
type FlakyStore struct {
	netback.Store

	mu          sync.Mutex
	failChanges bool
	failAlerts  bool
}

// NewFlakyStore wraps the given store.
func NewFlakyStore(inner netback.Store) *FlakyStore {
	return &FlakyStore{Store: inner}
}

// FailConfigChanges makes InsertConfigChanges fail.
func (f *FlakyStore) FailConfigChanges(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failChanges = fail
}

// FailAlerts makes InsertSecurityAlert fail.
func (f *FlakyStore) FailAlerts(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAlerts = fail
}

func (f *FlakyStore) InsertConfigChanges(recordID string, changes []netback.ConfigChange) error {
	f.mu.Lock()
	fail := f.failChanges
	f.mu.Unlock()
	if fail {
		return fmt.Errorf("injected change insert failure")
	}
	return f.Store.InsertConfigChanges(recordID, changes)
}

func (f *FlakyStore) InsertSecurityAlert(a *netback.SecurityAlert) error {
	f.mu.Lock()
	fail := f.failAlerts
	f.mu.Unlock()
	if fail {
		return fmt.Errorf("injected alert insert failure")
	}
	return f.Store.InsertSecurityAlert(a)
}
