package netback

import "time"

// Status is the outcome of a backup attempt.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusRunning   Status = "running"
	StatusScheduled Status = "scheduled"
)

// ChangeKind classifies a single configuration edit.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
	ChangeModified ChangeKind = "modified"
	// ChangeSecurityCritical overrides Added/Removed when the edit touches
	// a security-sensitive section or matches a credential pattern. Whether
	// the line was added or removed is still visible via OldText/NewText.
	ChangeSecurityCritical ChangeKind = "critical"
)

// ConfigChange is one classified line-level edit between two snapshots.
//
// LineNumber is approximate: it is the new-file start line of the hunk the
// edit belongs to, incremented per inserted line and left unchanged for
// removals. Downstream consumers depend on this numbering, imprecise as it
// is, so it is preserved rather than corrected.
type ConfigChange struct {
	LineNumber int
	Kind       ChangeKind
	OldText    string // set for removed lines and the old half of a modified pair
	NewText    string // set for added lines and the new half of a modified pair
	Section    string // e.g. "ip firewall"; "unknown" if no marker seen yet
	Sensitive  bool
}

// Snapshot is one immutable capture of a device's configuration text.
// Checksum, SizeBytes and DeviceVersion are populated when the snapshot is
// written; listings reconstruct only identity (device, filename, time).
type Snapshot struct {
	DeviceName    string
	Filename      string
	CapturedAt    time.Time
	Checksum      string // MD5 over the UTF-8 content
	SizeBytes     int64
	DeviceVersion string // "unknown" if no version marker found
}

// BackupRecord is the externally visible unit of one capture attempt.
// Failed attempts carry zero-valued metadata, never partial data.
type BackupRecord struct {
	ID              string
	DeviceID        string
	DeviceName      string
	Timestamp       time.Time
	FileSize        int64
	Checksum        string
	ConfigVersion   string
	ChangesDetected int
	SecurityChanges int
	Duration        time.Duration
	Status          Status
}

// Device is a registered network device. The password is sealed with the
// configured encryption identity and never stored in plaintext.
type Device struct {
	ID             string
	Name           string
	Hostname       string
	Port           int
	Username       string
	SealedPassword []byte
	CreatedAt      time.Time
}

// SecurityAlert is raised when a capture detects security-sensitive changes.
type SecurityAlert struct {
	ID          string
	DeviceID    string
	DeviceName  string
	Severity    string // "medium" or "high"
	Message     string
	ChangeCount int
	CreatedAt   time.Time
}

// Statistics aggregates backup outcomes over a time window.
type Statistics struct {
	TotalBackups      int
	SuccessfulBackups int
	FailedBackups     int
	SecurityChanges   int
	AverageSize       int64
	LastBackupTime    time.Time // zero when no backups exist in the window
}
