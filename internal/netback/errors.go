package netback

import "fmt"

// FetchError reports a transport or authentication failure while retrieving
// a configuration from a device. Captures that hit one are recorded as
// Failed; there is no retry inside this layer.
type FetchError struct {
	Device string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching configuration from %s: %v", e.Device, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StoreWriteError reports a failure writing a snapshot to blob storage.
// The capture is recorded as Failed; atomic writes guarantee no partial
// snapshot is left behind.
type StoreWriteError struct {
	Device string
	Err    error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("writing snapshot for %s: %v", e.Device, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// RetentionCleanupError reports a best-effort retention failure. It is
// logged and never fails the capture.
type RetentionCleanupError struct {
	Device string
	Err    error
}

func (e *RetentionCleanupError) Error() string {
	return fmt.Sprintf("pruning snapshots for %s: %v", e.Device, e.Err)
}

func (e *RetentionCleanupError) Unwrap() error { return e.Err }
