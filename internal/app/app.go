package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"netback/internal/blob"
	"netback/internal/config"
	"netback/internal/encryption"
	"netback/internal/fetch"
	"netback/internal/netback"
	"netback/internal/store"
)

// App is the application layer between the CLI and the Service.
// It constructs all dependencies from config and manages their lifecycle
// on Close.
type App struct {
	cfg       *config.Config
	store     netback.Store
	blobs     netback.BlobStore
	snapshots *netback.SnapshotStore
	sealer    *encryption.AgeSealer
	service   *netback.Service
	logFile   *os.File
}

// NewApp creates a fully wired App from the given config.
// The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	st, err := store.NewStoreFromConfig(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	blobs, err := blob.NewBlobStoreFromConfig(ctx, cfg.Blobs)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating blob store: %w", err)
	}

	// The classification rule set is static; a pattern that fails to
	// compile is a startup error, never a per-backup one.
	classifier, err := netback.NewDefaultClassifier()
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("compiling classification rules: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, runID)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	log := &slogAdapter{l: logger}

	sealer := encryption.NewAgeSealer(cfg.Encryption)
	snapshots := netback.NewSnapshotStore(blobs, cfg.Retention.MaxVersionsPerDevice, log)
	fetcher := fetch.NewSSHFetcher(cfg.Fetch.Command, time.Duration(cfg.Fetch.TimeoutSeconds)*time.Second)

	svc := netback.NewService(st, snapshots, fetcher, sealer,
		netback.NewAnalyzer(classifier), log, netback.RealClock{}, netback.UUIDGenerator{})

	return &App{
		cfg:       cfg,
		store:     st,
		blobs:     blobs,
		snapshots: snapshots,
		sealer:    sealer,
		service:   svc,
		logFile:   logFile,
	}, nil
}

// SetupKeys generates the age key pair used to seal device credentials.
func (a *App) SetupKeys() error {
	return a.sealer.Setup()
}

// AddDevice registers a device, generating encryption keys on first use.
func (a *App) AddDevice(name, hostname string, port int, username, password string) (*netback.Device, error) {
	if !a.sealer.IsConfigured() {
		if err := a.sealer.Setup(); err != nil {
			return nil, fmt.Errorf("setting up encryption keys: %w", err)
		}
	}
	return a.service.AddDevice(name, hostname, port, username, password)
}

// RemoveDevice deletes a device from the registry.
func (a *App) RemoveDevice(name string) error {
	return a.service.RemoveDevice(name)
}

// ListDevices returns all registered devices.
func (a *App) ListDevices() ([]*netback.Device, error) {
	return a.service.ListDevices()
}

// Backup captures one device.
func (a *App) Backup(ctx context.Context, deviceName string) (*netback.BackupRecord, error) {
	return a.service.Backup(ctx, deviceName)
}

// BackupAll captures every registered device.
func (a *App) BackupAll(ctx context.Context) ([]*netback.BackupRecord, error) {
	return a.service.BackupAll(ctx)
}

// History returns backup records newest first.
func (a *App) History(deviceName string, limit int) ([]*netback.BackupRecord, error) {
	return a.service.History(deviceName, limit)
}

// Changes returns the classified changes recorded for a backup.
func (a *App) Changes(recordID string) ([]netback.ConfigChange, error) {
	return a.service.Changes(recordID)
}

// Search scans retained snapshots for a query string.
func (a *App) Search(ctx context.Context, query, deviceFilter string, tr netback.TimeRange) ([]netback.SearchResult, error) {
	return a.service.Search(ctx, query, deviceFilter, tr)
}

// Alerts returns recorded security alerts, newest first.
func (a *App) Alerts(limit int) ([]*netback.SecurityAlert, error) {
	return a.service.Alerts(limit)
}

// Stats aggregates backup outcomes since the given time.
func (a *App) Stats(since time.Time) (*netback.Statistics, error) {
	return a.service.Stats(since)
}

// Close releases all resources.
func (a *App) Close() error {
	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
