package netback

import (
	"context"
	"fmt"
	"time"
)

// alertHighThreshold is the number of security-sensitive changes above which
// an alert is raised as "high" instead of "medium".
const alertHighThreshold = 5

// Service is the orchestration layer that coordinates across all components
// to perform the high-level backup operations needed by the CLI.
type Service struct {
	store     Store
	snapshots *SnapshotStore
	fetcher   Fetcher
	sealer    Sealer
	analyzer  *Analyzer
	logger    Logger
	clock     Clock
	idgen     IDGenerator
}

// NewService creates a new Service with the provided dependencies.
func NewService(store Store, snapshots *SnapshotStore, fetcher Fetcher, sealer Sealer, analyzer *Analyzer, logger Logger, clock Clock, idgen IDGenerator) *Service {
	return &Service{
		store:     store,
		snapshots: snapshots,
		fetcher:   fetcher,
		sealer:    sealer,
		analyzer:  analyzer,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
	}
}

// AddDevice registers a device for backup. The password is sealed before it
// touches the store; the plaintext is never persisted.
func (s *Service) AddDevice(name, hostname string, port int, username, password string) (*Device, error) {
	existing, err := s.store.FindDeviceByName(name)
	if err != nil {
		return nil, fmt.Errorf("checking for existing device: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("device already registered: %s", name)
	}

	sealed, err := s.sealer.Seal(password)
	if err != nil {
		return nil, fmt.Errorf("sealing device password: %w", err)
	}

	device := &Device{
		ID:             s.idgen.New(),
		Name:           name,
		Hostname:       hostname,
		Port:           port,
		Username:       username,
		SealedPassword: sealed,
		CreatedAt:      s.clock.Now(),
	}
	if err := s.store.CreateDevice(device); err != nil {
		return nil, fmt.Errorf("creating device: %w", err)
	}

	s.logger.Info("device registered", "device", name, "hostname", hostname)
	return device, nil
}

// RemoveDevice deletes a device from the registry. Its backup records and
// snapshots are kept.
func (s *Service) RemoveDevice(name string) error {
	device, err := s.store.FindDeviceByName(name)
	if err != nil {
		return fmt.Errorf("finding device: %w", err)
	}
	if device == nil {
		return fmt.Errorf("unknown device: %s", name)
	}
	if err := s.store.DeleteDevice(device.ID); err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	s.logger.Info("device removed", "device", name)
	return nil
}

// ListDevices returns all registered devices.
func (s *Service) ListDevices() ([]*Device, error) {
	return s.store.ListDevices()
}

// Backup captures the named device's configuration, stores it as a new
// snapshot, diffs it against the previous one, classifies the changes, and
// records the outcome.
//
// Fetch and snapshot-write failures do not return an error: they are
// recorded as a failed BackupRecord with zero-valued metadata, and that
// record is returned. Once a success record is persisted, failures
// recording its changes or alerts are logged and the record is still
// returned. An error is returned only when the device is unknown or the
// record itself cannot be persisted.
func (s *Service) Backup(ctx context.Context, deviceName string) (*BackupRecord, error) {
	device, err := s.store.FindDeviceByName(deviceName)
	if err != nil {
		return nil, fmt.Errorf("finding device: %w", err)
	}
	if device == nil {
		return nil, fmt.Errorf("unknown device: %s", deviceName)
	}

	started := s.clock.Now()

	password, err := s.sealer.Open(device.SealedPassword)
	if err != nil {
		s.logger.Error("unsealing device password failed", "device", deviceName, "error", err)
		return s.recordFailure(device, started)
	}

	content, err := s.fetcher.Fetch(ctx, FetchTarget{
		Hostname: device.Hostname,
		Port:     device.Port,
		Username: device.Username,
		Password: password,
	})
	if err != nil {
		s.logger.Error("fetching configuration failed", "device", deviceName, "error", &FetchError{Device: deviceName, Err: err})
		return s.recordFailure(device, started)
	}

	// Writing the snapshot and resolving the previous one happen under a
	// single per-device lock so a concurrent capture cannot interleave.
	snap, previousContent, hasPrevious, err := s.snapshots.Capture(ctx, device.Name, content, s.clock.Now())
	if err != nil {
		s.logger.Error("storing snapshot failed", "device", deviceName, "error", &StoreWriteError{Device: deviceName, Err: err})
		return s.recordFailure(device, started)
	}

	var changes []ConfigChange
	if hasPrevious {
		changes = s.analyzer.Analyze(previousContent, content)
	}
	total, security := Summarize(changes)

	record := &BackupRecord{
		ID:              s.idgen.New(),
		DeviceID:        device.ID,
		DeviceName:      device.Name,
		Timestamp:       snap.CapturedAt,
		FileSize:        snap.SizeBytes,
		Checksum:        snap.Checksum,
		ConfigVersion:   snap.DeviceVersion,
		ChangesDetected: total,
		SecurityChanges: security,
		Duration:        s.clock.Now().Sub(started),
		Status:          StatusSuccess,
	}
	if err := s.store.InsertBackupRecord(record); err != nil {
		return nil, fmt.Errorf("recording backup: %w", err)
	}
	// The outcome record is already persisted; change and alert inserts are
	// follow-on detail and their failure does not fail the capture.
	if total > 0 {
		if err := s.store.InsertConfigChanges(record.ID, changes); err != nil {
			s.logger.Error("recording configuration changes failed", "device", deviceName, "error", err)
		}
	}
	if security > 0 {
		if err := s.raiseAlert(device, security); err != nil {
			s.logger.Error("recording security alert failed", "device", deviceName, "error", err)
		}
	}

	// Retention cleanup is best-effort; a failure here never fails the capture.
	if err := s.snapshots.Prune(ctx, device.Name); err != nil {
		s.logger.Warn("retention cleanup failed", "device", deviceName, "error", err)
	}

	s.logger.Info("backup complete",
		"device", deviceName,
		"file", snap.Filename,
		"changes", total,
		"security_changes", security,
	)
	return record, nil
}

// BackupAll captures every registered device in turn. One device's failure
// never stops the sweep; the records for all attempts are returned.
func (s *Service) BackupAll(ctx context.Context) ([]*BackupRecord, error) {
	devices, err := s.store.ListDevices()
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}

	records := make([]*BackupRecord, 0, len(devices))
	for _, device := range devices {
		record, err := s.Backup(ctx, device.Name)
		if err != nil {
			s.logger.Error("backup failed", "device", device.Name, "error", err)
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// recordFailure persists a failed BackupRecord with zero-valued metadata.
func (s *Service) recordFailure(device *Device, started time.Time) (*BackupRecord, error) {
	record := &BackupRecord{
		ID:         s.idgen.New(),
		DeviceID:   device.ID,
		DeviceName: device.Name,
		Timestamp:  started,
		Duration:   s.clock.Now().Sub(started),
		Status:     StatusFailed,
	}
	if err := s.store.InsertBackupRecord(record); err != nil {
		return nil, fmt.Errorf("recording failed backup: %w", err)
	}
	return record, nil
}

// raiseAlert records a security alert for a capture that detected sensitive
// changes.
func (s *Service) raiseAlert(device *Device, security int) error {
	severity := "medium"
	if security > alertHighThreshold {
		severity = "high"
	}
	alert := &SecurityAlert{
		ID:          s.idgen.New(),
		DeviceID:    device.ID,
		DeviceName:  device.Name,
		Severity:    severity,
		Message:     fmt.Sprintf("%d security-sensitive configuration changes detected on %s", security, device.Name),
		ChangeCount: security,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.store.InsertSecurityAlert(alert); err != nil {
		return fmt.Errorf("recording security alert: %w", err)
	}
	s.logger.Warn("security-sensitive changes detected", "device", device.Name, "count", security, "severity", severity)
	return nil
}

// History returns backup records newest first. deviceName may be empty to
// list across all devices.
func (s *Service) History(deviceName string, limit int) ([]*BackupRecord, error) {
	deviceID := ""
	if deviceName != "" {
		device, err := s.store.FindDeviceByName(deviceName)
		if err != nil {
			return nil, fmt.Errorf("finding device: %w", err)
		}
		if device == nil {
			return nil, fmt.Errorf("unknown device: %s", deviceName)
		}
		deviceID = device.ID
	}
	return s.store.ListBackupRecords(deviceID, limit)
}

// Changes returns the classified changes recorded for a backup.
func (s *Service) Changes(recordID string) ([]ConfigChange, error) {
	record, err := s.store.FindBackupRecord(recordID)
	if err != nil {
		return nil, fmt.Errorf("finding backup record: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("unknown backup record: %s", recordID)
	}
	return s.store.ListConfigChanges(recordID)
}

// Alerts returns recorded security alerts, newest first.
func (s *Service) Alerts(limit int) ([]*SecurityAlert, error) {
	return s.store.ListSecurityAlerts(limit)
}

// Stats aggregates backup outcomes since the given time. A failed query is
// logged and reported as zero values rather than an error.
func (s *Service) Stats(since time.Time) (*Statistics, error) {
	stats, err := s.store.Statistics(since)
	if err != nil {
		s.logger.Warn("computing statistics failed", "error", err)
		return &Statistics{}, nil
	}
	return stats, nil
}

// Search scans retained snapshots for a query string.
func (s *Service) Search(ctx context.Context, query, deviceFilter string, tr TimeRange) ([]SearchResult, error) {
	return s.snapshots.Search(ctx, query, deviceFilter, tr)
}
