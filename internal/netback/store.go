package netback

import "time"

// Store provides an interface for structured metadata persistence:
// registered devices, backup records, classified changes and alerts.
// Implementations map "not found" to (nil, nil) rather than an error.
type Store interface {
	// Device operations

	// CreateDevice registers a new device. Names are unique.
	CreateDevice(d *Device) error

	// FindDeviceByName returns the device with an exact name match.
	FindDeviceByName(name string) (*Device, error)

	// ListDevices returns all registered devices ordered by name.
	ListDevices() ([]*Device, error)

	// DeleteDevice removes a device from the registry. Its backup records
	// are kept for history.
	DeleteDevice(id string) error

	// Backup record operations

	// InsertBackupRecord persists the outcome of one capture attempt.
	InsertBackupRecord(r *BackupRecord) error

	// FindBackupRecord returns a record by ID.
	FindBackupRecord(id string) (*BackupRecord, error)

	// ListBackupRecords returns records newest first. deviceID may be empty
	// to list across all devices.
	ListBackupRecords(deviceID string, limit int) ([]*BackupRecord, error)

	// Change and alert operations

	// InsertConfigChanges persists the classified changes for a record.
	InsertConfigChanges(recordID string, changes []ConfigChange) error

	// ListConfigChanges returns the changes for a record in diff order.
	ListConfigChanges(recordID string) ([]ConfigChange, error)

	// InsertSecurityAlert persists an alert.
	InsertSecurityAlert(a *SecurityAlert) error

	// ListSecurityAlerts returns alerts newest first.
	ListSecurityAlerts(limit int) ([]*SecurityAlert, error)

	// Statistics aggregates backup outcomes since the given time.
	Statistics(since time.Time) (*Statistics, error)

	// Close closes the store.
	Close() error
}
