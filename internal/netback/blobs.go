package netback

import (
	"context"
	"io"
)

// BlobStore provides an interface for raw snapshot storage backends.
// Snapshots are addressed by (device name, filename) and stored as opaque
// text blobs. All operations use io.Reader/io.Writer for streaming so large
// configurations never need to be buffered twice.
type BlobStore interface {
	// Write stores a snapshot blob. size is the number of bytes that will
	// be read from r. Writing is atomic: a failed write leaves nothing
	// behind under the final name.
	Write(ctx context.Context, device, filename string, r io.Reader, size int64) error

	// Read retrieves a snapshot blob and writes it to w.
	Read(ctx context.Context, device, filename string, w io.Writer) error

	// List returns the snapshot filenames stored for a device, in no
	// particular order. A device with no snapshots yields an empty slice.
	List(ctx context.Context, device string) ([]string, error)

	// ListDevices returns the names of all devices with stored snapshots.
	ListDevices(ctx context.Context) ([]string, error)

	// Delete removes a snapshot blob.
	Delete(ctx context.Context, device, filename string) error

	// ValidateSetup verifies that the backend is accessible and properly
	// configured.
	ValidateSetup(ctx context.Context) error
}
