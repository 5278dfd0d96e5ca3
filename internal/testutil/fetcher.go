package testutil

import (
	"context"
	"fmt"
	"sync"

	"netback/internal/netback"
)

// StubFetcher returns canned configuration exports keyed by hostname.
// Safe for concurrent use.
type StubFetcher struct {
	mu      sync.Mutex
	configs map[string]string
	errs    map[string]error
}

// NewStubFetcher creates an empty StubFetcher.
func NewStubFetcher() *StubFetcher {
	return &StubFetcher{
		configs: make(map[string]string),
		errs:    make(map[string]error),
	}
}

// SetConfig sets the export returned for a hostname.
func (f *StubFetcher) SetConfig(hostname, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configs[hostname] = content
	delete(f.errs, hostname)
}

// SetError makes fetches for a hostname fail with err.
func (f *StubFetcher) SetError(hostname string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[hostname] = err
}

func (f *StubFetcher) Fetch(_ context.Context, target netback.FetchTarget) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.errs[target.Hostname]; ok {
		return "", err
	}
	content, ok := f.configs[target.Hostname]
	if !ok {
		return "", fmt.Errorf("no config for host %s", target.Hostname)
	}
	return content, nil
}

var _ netback.Fetcher = (*StubFetcher)(nil)
