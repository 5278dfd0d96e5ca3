package netback

import "context"

// FetchTarget is the connection information for one device.
type FetchTarget struct {
	Hostname string
	Port     int
	Username string
	Password string
}

// Fetcher retrieves the raw configuration export from a device.
// Implementations carry their own transport timeout; a fetch failure is
// reported as a *FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, target FetchTarget) (string, error)
}
