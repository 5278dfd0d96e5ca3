package netback

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// filenameTimeLayout is the timestamp portion of persisted snapshot
// filenames: {device_name}_{YYYYMMDD}_{HHMMSS}.rsc. The format is
// load-bearing: listings and search derive capture times by re-parsing it.
const filenameTimeLayout = "20060102_150405"

const snapshotSuffix = ".rsc"

// versionPattern extracts the device-reported software version from the
// export header. Absence is not an error; the version becomes "unknown".
var versionPattern = regexp.MustCompile(`# software id = (.+)`)

// SnapshotStore keeps an append-only, per-device ordered sequence of raw
// configuration snapshots in a BlobStore and enforces bounded retention.
// Captures for the same device are serialized so previous-snapshot lookups
// never race with a concurrent write; different devices proceed in
// parallel.
type SnapshotStore struct {
	blobs     BlobStore
	retention int
	logger    Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSnapshotStore creates a snapshot store over the given blob backend.
// retention is the maximum number of snapshots kept per device.
func NewSnapshotStore(blobs BlobStore, retention int, logger Logger) *SnapshotStore {
	return &SnapshotStore{
		blobs:     blobs,
		retention: retention,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

// deviceLock returns the mutex serializing captures for one device.
func (s *SnapshotStore) deviceLock(device string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[device]
	if !ok {
		l = &sync.Mutex{}
		s.locks[device] = l
	}
	return l
}

// Put writes a new immutable snapshot for a device, computing checksum,
// size and device version. Capture times have second resolution; if the
// derived filename already exists the capture time is advanced one second
// at a time until free, keeping snapshots strictly ordered.
func (s *SnapshotStore) Put(ctx context.Context, device, content string, capturedAt time.Time) (*Snapshot, error) {
	l := s.deviceLock(device)
	l.Lock()
	defer l.Unlock()
	return s.put(ctx, device, content, capturedAt)
}

// Capture writes a new snapshot and resolves the previous snapshot's
// content in one critical section. Holding the device lock across both
// steps keeps a concurrent capture for the same device from writing its
// snapshot in between, which would make this capture resolve "previous"
// to the wrong snapshot. The bool result is false on a device's first
// capture and when the previous snapshot cannot be read back; read
// failures are logged, never propagated.
func (s *SnapshotStore) Capture(ctx context.Context, device, content string, capturedAt time.Time) (*Snapshot, string, bool, error) {
	l := s.deviceLock(device)
	l.Lock()
	defer l.Unlock()

	snap, err := s.put(ctx, device, content, capturedAt)
	if err != nil {
		return nil, "", false, err
	}

	previous, err := s.GetPrevious(ctx, device)
	if err != nil {
		s.logger.Warn("looking up previous snapshot failed", "device", device, "error", err)
		return snap, "", false, nil
	}
	if previous == nil {
		return snap, "", false, nil
	}

	previousContent, err := s.ReadContent(ctx, previous)
	if err != nil {
		s.logger.Warn("reading previous snapshot failed", "device", device, "file", previous.Filename, "error", err)
		return snap, "", false, nil
	}
	return snap, previousContent, true, nil
}

func (s *SnapshotStore) put(ctx context.Context, device, content string, capturedAt time.Time) (*Snapshot, error) {
	existing, err := s.blobs.List(ctx, device)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots for %s: %w", device, err)
	}
	taken := make(map[string]bool, len(existing))
	for _, name := range existing {
		taken[name] = true
	}

	at := capturedAt.UTC().Truncate(time.Second)
	filename := snapshotFilename(device, at)
	for taken[filename] {
		at = at.Add(time.Second)
		filename = snapshotFilename(device, at)
	}

	sum := md5.Sum([]byte(content))
	snap := &Snapshot{
		DeviceName:    device,
		Filename:      filename,
		CapturedAt:    at,
		Checksum:      hex.EncodeToString(sum[:]),
		SizeBytes:     int64(len(content)),
		DeviceVersion: extractVersion(content),
	}

	if err := s.blobs.Write(ctx, device, filename, strings.NewReader(content), snap.SizeBytes); err != nil {
		return nil, fmt.Errorf("writing snapshot %s: %w", filename, err)
	}
	return snap, nil
}

// List returns the snapshots stored for a device, newest first. Only
// identity fields (device, filename, capture time) are populated.
func (s *SnapshotStore) List(ctx context.Context, device string) ([]*Snapshot, error) {
	names, err := s.blobs.List(ctx, device)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots for %s: %w", device, err)
	}

	snaps := make([]*Snapshot, 0, len(names))
	for _, name := range names {
		at, err := parseSnapshotTime(name)
		if err != nil {
			// Foreign files in the snapshot directory are skipped, not fatal.
			s.logger.Warn("skipping unrecognized snapshot file", "device", device, "file", name)
			continue
		}
		snaps = append(snaps, &Snapshot{DeviceName: device, Filename: name, CapturedAt: at})
	}

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CapturedAt.After(snaps[j].CapturedAt)
	})
	return snaps, nil
}

// GetPrevious returns the second-newest snapshot for a device, or nil if
// fewer than two exist. A device's first capture has nothing to diff
// against; that is not an error.
func (s *SnapshotStore) GetPrevious(ctx context.Context, device string) (*Snapshot, error) {
	snaps, err := s.List(ctx, device)
	if err != nil {
		return nil, err
	}
	if len(snaps) < 2 {
		return nil, nil
	}
	return snaps[1], nil
}

// ReadContent returns the raw configuration text of a snapshot.
func (s *SnapshotStore) ReadContent(ctx context.Context, snap *Snapshot) (string, error) {
	var sb strings.Builder
	if err := s.blobs.Read(ctx, snap.DeviceName, snap.Filename, &sb); err != nil {
		return "", fmt.Errorf("reading snapshot %s: %w", snap.Filename, err)
	}
	return sb.String(), nil
}

// Prune deletes the oldest snapshots of a device beyond the retention
// count. Retention is best-effort cleanup: individual deletion failures
// are logged and skipped, never propagated as a capture failure.
func (s *SnapshotStore) Prune(ctx context.Context, device string) error {
	snaps, err := s.List(ctx, device)
	if err != nil {
		return &RetentionCleanupError{Device: device, Err: err}
	}

	for _, snap := range snaps[min(s.retention, len(snaps)):] {
		if err := s.blobs.Delete(ctx, device, snap.Filename); err != nil {
			s.logger.Warn("failed to remove old snapshot", "device", device, "file", snap.Filename, "error", err)
			continue
		}
		s.logger.Info("removed old snapshot", "device", device, "file", snap.Filename)
	}
	return nil
}

// snapshotFilename builds the persisted name for a capture.
func snapshotFilename(device string, at time.Time) string {
	return fmt.Sprintf("%s_%s%s", device, at.Format(filenameTimeLayout), snapshotSuffix)
}

// parseSnapshotTime recovers the capture time from a snapshot filename.
// Device names may themselves contain underscores, so the timestamp is the
// last two underscore-separated fields.
func parseSnapshotTime(filename string) (time.Time, error) {
	name := strings.TrimSuffix(filename, snapshotSuffix)
	if name == filename {
		return time.Time{}, fmt.Errorf("not a snapshot file: %s", filename)
	}
	parts := strings.Split(name, "_")
	if len(parts) < 3 {
		return time.Time{}, fmt.Errorf("malformed snapshot filename: %s", filename)
	}
	stamp := parts[len(parts)-2] + "_" + parts[len(parts)-1]
	at, err := time.ParseInLocation(filenameTimeLayout, stamp, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed snapshot timestamp in %s: %w", filename, err)
	}
	return at, nil
}

// extractVersion scans an export for the device-reported software id line.
func extractVersion(content string) string {
	m := versionPattern.FindStringSubmatch(content)
	if m == nil {
		return "unknown"
	}
	return strings.TrimSpace(m[1])
}
