package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"netback/internal/netback"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the netback.Store interface using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ netback.Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite-backed store.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// NewSQLiteStoreFromDB wraps an existing database connection. The caller
// is responsible for ensuring the connection is properly configured.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenConnection opens and configures a SQLite connection with appropriate
// PRAGMAs. Exported for tools and tests that need a properly configured
// connection. path can be a file path or ":memory:".
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection; restrict the pool to one
	// so all statements see the same schema.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Foreign key enforcement is off by default in SQLite.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Device operations

func (s *SQLiteStore) CreateDevice(d *netback.Device) error {
	_, err := s.db.Exec(`
		INSERT INTO devices (id, name, hostname, port, username, sealed_password, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.Hostname, d.Port, d.Username, d.SealedPassword, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindDeviceByName(name string) (*netback.Device, error) {
	row := s.db.QueryRow(`
		SELECT id, name, hostname, port, username, sealed_password, created_at
		FROM devices WHERE name = ?`, name)

	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding device by name: %w", err)
	}
	return d, nil
}

func (s *SQLiteStore) ListDevices() ([]*netback.Device, error) {
	rows, err := s.db.Query(`
		SELECT id, name, hostname, port, username, sealed_password, created_at
		FROM devices ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	defer rows.Close()

	var devices []*netback.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

func (s *SQLiteStore) DeleteDevice(id string) error {
	if _, err := s.db.Exec(`DELETE FROM devices WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return nil
}

// Backup record operations

func (s *SQLiteStore) InsertBackupRecord(r *netback.BackupRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO backup_records
			(id, device_id, device_name, timestamp, file_size, checksum,
			 config_version, changes_detected, security_changes, duration_ms, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.DeviceID, r.DeviceName, r.Timestamp, r.FileSize, r.Checksum,
		r.ConfigVersion, r.ChangesDetected, r.SecurityChanges,
		r.Duration.Milliseconds(), string(r.Status))
	if err != nil {
		return fmt.Errorf("inserting backup record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindBackupRecord(id string) (*netback.BackupRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, device_id, device_name, timestamp, file_size, checksum,
		       config_version, changes_detected, security_changes, duration_ms, status
		FROM backup_records WHERE id = ?`, id)

	r, err := scanBackupRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding backup record: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) ListBackupRecords(deviceID string, limit int) ([]*netback.BackupRecord, error) {
	query := `
		SELECT id, device_id, device_name, timestamp, file_size, checksum,
		       config_version, changes_detected, security_changes, duration_ms, status
		FROM backup_records`
	args := []any{}
	if deviceID != "" {
		query += ` WHERE device_id = ?`
		args = append(args, deviceID)
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing backup records: %w", err)
	}
	defer rows.Close()

	var records []*netback.BackupRecord
	for rows.Next() {
		r, err := scanBackupRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning backup record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Change and alert operations

func (s *SQLiteStore) InsertConfigChanges(recordID string, changes []netback.ConfigChange) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO config_changes
			(record_id, position, line_number, kind, old_text, new_text, section, sensitive)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing change insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range changes {
		_, err := stmt.Exec(recordID, i, c.LineNumber, string(c.Kind),
			c.OldText, c.NewText, c.Section, c.Sensitive)
		if err != nil {
			return fmt.Errorf("inserting change %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing changes: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListConfigChanges(recordID string) ([]netback.ConfigChange, error) {
	rows, err := s.db.Query(`
		SELECT line_number, kind, old_text, new_text, section, sensitive
		FROM config_changes WHERE record_id = ? ORDER BY position`, recordID)
	if err != nil {
		return nil, fmt.Errorf("listing config changes: %w", err)
	}
	defer rows.Close()

	var changes []netback.ConfigChange
	for rows.Next() {
		var c netback.ConfigChange
		var kind string
		if err := rows.Scan(&c.LineNumber, &kind, &c.OldText, &c.NewText, &c.Section, &c.Sensitive); err != nil {
			return nil, fmt.Errorf("scanning config change: %w", err)
		}
		c.Kind = netback.ChangeKind(kind)
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

func (s *SQLiteStore) InsertSecurityAlert(a *netback.SecurityAlert) error {
	_, err := s.db.Exec(`
		INSERT INTO security_alerts
			(id, device_id, device_name, severity, message, change_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.DeviceID, a.DeviceName, a.Severity, a.Message, a.ChangeCount, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting security alert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListSecurityAlerts(limit int) ([]*netback.SecurityAlert, error) {
	rows, err := s.db.Query(`
		SELECT id, device_id, device_name, severity, message, change_count, created_at
		FROM security_alerts ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing security alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*netback.SecurityAlert
	for rows.Next() {
		a := &netback.SecurityAlert{}
		if err := rows.Scan(&a.ID, &a.DeviceID, &a.DeviceName, &a.Severity,
			&a.Message, &a.ChangeCount, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning security alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *SQLiteStore) Statistics(since time.Time) (*netback.Statistics, error) {
	row := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(security_changes), 0),
		       COALESCE(SUM(file_size), 0)
		FROM backup_records WHERE timestamp >= ?`, since)

	stats := &netback.Statistics{}
	var totalSize int64
	if err := row.Scan(&stats.TotalBackups, &stats.SuccessfulBackups,
		&stats.FailedBackups, &stats.SecurityChanges, &totalSize); err != nil {
		return nil, fmt.Errorf("aggregating statistics: %w", err)
	}
	if stats.TotalBackups > 0 {
		stats.AverageSize = totalSize / int64(stats.TotalBackups)
	}

	// Selected as a bare column so the driver converts it back to time.Time.
	var last time.Time
	err := s.db.QueryRow(`
		SELECT timestamp FROM backup_records
		WHERE timestamp >= ? ORDER BY timestamp DESC LIMIT 1`, since).Scan(&last)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// No backups in the window; LastBackupTime stays zero.
	case err != nil:
		return nil, fmt.Errorf("finding last backup time: %w", err)
	default:
		stats.LastBackupTime = last
	}
	return stats, nil
}

// DB exposes the underlying connection for migration checks.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(row scanner) (*netback.Device, error) {
	d := &netback.Device{}
	err := row.Scan(&d.ID, &d.Name, &d.Hostname, &d.Port, &d.Username, &d.SealedPassword, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func scanBackupRecord(row scanner) (*netback.BackupRecord, error) {
	r := &netback.BackupRecord{}
	var durationMS int64
	var status string
	err := row.Scan(&r.ID, &r.DeviceID, &r.DeviceName, &r.Timestamp, &r.FileSize,
		&r.Checksum, &r.ConfigVersion, &r.ChangesDetected, &r.SecurityChanges,
		&durationMS, &status)
	if err != nil {
		return nil, err
	}
	r.Duration = time.Duration(durationMS) * time.Millisecond
	r.Status = netback.Status(status)
	return r, nil
}
