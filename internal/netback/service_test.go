package netback_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"netback/internal/blob"
	"netback/internal/netback"
	"netback/internal/testutil"
)

type serviceFixture struct {
	svc     *netback.Service
	store   *testutil.FlakyStore
	blobs   *blob.MemoryStore
	fetcher *testutil.StubFetcher
	clock   *testutil.StubClock
}

func newServiceFixture(t *testing.T, retention int) *serviceFixture {
	t.Helper()

	st := testutil.NewFlakyStore(testutil.NewTestStore(t))
	blobs := blob.NewMemoryStore()
	clock := testutil.FixedClock()
	fetcher := testutil.NewStubFetcher()

	classifier, err := netback.NewDefaultClassifier()
	if err != nil {
		t.Fatalf("building classifier: %v", err)
	}

	snapshots := netback.NewSnapshotStore(blobs, retention, netback.NewNopLogger())
	svc := netback.NewService(st, snapshots, fetcher, netback.NopSealer{},
		netback.NewAnalyzer(classifier), netback.NewNopLogger(), clock, testutil.NewStubIDGenerator())

	return &serviceFixture{svc: svc, store: st, blobs: blobs, fetcher: fetcher, clock: clock}
}

func (f *serviceFixture) addDevice(t *testing.T, name, hostname string) {
	t.Helper()
	if _, err := f.svc.AddDevice(name, hostname, 22, "admin", "pw"); err != nil {
		t.Fatalf("adding device %s: %v", name, err)
	}
}

func TestService_AddDevice(t *testing.T) {
	t.Parallel()

	t.Run("registers and seals the password", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t, 10)

		device, err := f.svc.AddDevice("router1", "10.0.0.1", 22, "admin", "hunter2")
		if err != nil {
			t.Fatalf("add device: %v", err)
		}
		if device.ID == "" {
			t.Error("expected generated ID")
		}

		found, err := f.store.FindDeviceByName("router1")
		if err != nil {
			t.Fatalf("find device: %v", err)
		}
		if found == nil {
			t.Fatal("device not persisted")
		}
		if string(found.SealedPassword) != "hunter2" {
			t.Errorf("unexpected sealed password: %q", found.SealedPassword)
		}
	})

	t.Run("duplicate names are rejected", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t, 10)
		f.addDevice(t, "router1", "10.0.0.1")

		if _, err := f.svc.AddDevice("router1", "10.0.0.2", 22, "admin", "pw"); err == nil {
			t.Fatal("expected error for duplicate name")
		}
	})
}

func TestService_Backup(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown device is an error", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t, 10)
		if _, err := f.svc.Backup(ctx, "nothere"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("first capture succeeds with no changes", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t, 10)
		f.addDevice(t, "router1", "10.0.0.1")
		f.fetcher.SetConfig("10.0.0.1", "# software id = AB12\n/ip firewall\nadd chain=input\n")

		record, err := f.svc.Backup(ctx, "router1")
		if err != nil {
			t.Fatalf("backup: %v", err)
		}
		if record.Status != netback.StatusSuccess {
			t.Errorf("expected success, got %s", record.Status)
		}
		if record.ChangesDetected != 0 || record.SecurityChanges != 0 {
			t.Errorf("first capture should have no changes: %+v", record)
		}
		if record.ConfigVersion != "AB12" {
			t.Errorf("unexpected version: %s", record.ConfigVersion)
		}
		if record.Checksum == "" || record.FileSize == 0 {
			t.Errorf("expected populated metadata: %+v", record)
		}

		names, _ := f.blobs.List(ctx, "router1")
		if len(names) != 1 {
			t.Errorf("expected 1 stored snapshot, got %d", len(names))
		}
	})

	t.Run("security changes raise a medium alert", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t, 10)
		f.addDevice(t, "router1", "10.0.0.1")

		f.fetcher.SetConfig("10.0.0.1", "/ip firewall\nadd chain=input action=accept\n")
		if _, err := f.svc.Backup(ctx, "router1"); err != nil {
			t.Fatalf("first backup: %v", err)
		}

		f.fetcher.SetConfig("10.0.0.1", "/ip firewall\nadd chain=input action=drop\n")
		record, err := f.svc.Backup(ctx, "router1")
		if err != nil {
			t.Fatalf("second backup: %v", err)
		}

		if record.ChangesDetected != 2 || record.SecurityChanges != 2 {
			t.Fatalf("expected 2 security changes, got %+v", record)
		}

		changes, err := f.svc.Changes(record.ID)
		if err != nil {
			t.Fatalf("changes: %v", err)
		}
		if len(changes) != 2 {
			t.Fatalf("expected 2 persisted changes, got %d", len(changes))
		}
		if changes[0].Kind != netback.ChangeSecurityCritical {
			t.Errorf("expected critical kind, got %s", changes[0].Kind)
		}

		alerts, err := f.svc.Alerts(10)
		if err != nil {
			t.Fatalf("alerts: %v", err)
		}
		if len(alerts) != 1 {
			t.Fatalf("expected 1 alert, got %d", len(alerts))
		}
		if alerts[0].Severity != "medium" || alerts[0].ChangeCount != 2 {
			t.Errorf("unexpected alert: %+v", alerts[0])
		}
	})

	t.Run("many security changes raise a high alert", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t, 10)
		f.addDevice(t, "router1", "10.0.0.1")

		f.fetcher.SetConfig("10.0.0.1", "/user\n")
		if _, err := f.svc.Backup(ctx, "router1"); err != nil {
			t.Fatalf("first backup: %v", err)
		}

		updated := "/user\n"
		for i := 0; i < 6; i++ {
			updated += fmt.Sprintf("add name=user%d password=x\n", i)
		}
		f.fetcher.SetConfig("10.0.0.1", updated)
		record, err := f.svc.Backup(ctx, "router1")
		if err != nil {
			t.Fatalf("second backup: %v", err)
		}
		if record.SecurityChanges != 6 {
			t.Fatalf("expected 6 security changes, got %d", record.SecurityChanges)
		}

		alerts, _ := f.svc.Alerts(10)
		if len(alerts) != 1 || alerts[0].Severity != "high" {
			t.Errorf("expected high severity alert, got %+v", alerts)
		}
	})

	t.Run("fetch failure records a failed attempt", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t, 10)
		f.addDevice(t, "router1", "10.0.0.1")
		f.fetcher.SetError("10.0.0.1", fmt.Errorf("connection refused"))

		record, err := f.svc.Backup(ctx, "router1")
		if err != nil {
			t.Fatalf("fetch failures should not propagate: %v", err)
		}
		if record.Status != netback.StatusFailed {
			t.Errorf("expected failed status, got %s", record.Status)
		}
		if record.FileSize != 0 || record.Checksum != "" || record.ChangesDetected != 0 {
			t.Errorf("failed record should carry zero metadata: %+v", record)
		}

		names, _ := f.blobs.List(ctx, "router1")
		if len(names) != 0 {
			t.Errorf("no snapshot should be stored on fetch failure, got %d", len(names))
		}

		history, err := f.svc.History("router1", 10)
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		if len(history) != 1 || history[0].Status != netback.StatusFailed {
			t.Errorf("failed attempt not recorded: %+v", history)
		}
	})

	t.Run("change and alert insert failures keep the persisted record", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t, 10)
		f.addDevice(t, "router1", "10.0.0.1")

		f.fetcher.SetConfig("10.0.0.1", "/ip firewall\nadd chain=input action=accept\n")
		if _, err := f.svc.Backup(ctx, "router1"); err != nil {
			t.Fatalf("first backup: %v", err)
		}

		f.store.FailConfigChanges(true)
		f.store.FailAlerts(true)
		f.fetcher.SetConfig("10.0.0.1", "/ip firewall\nadd chain=input action=drop\n")

		record, err := f.svc.Backup(ctx, "router1")
		if err != nil {
			t.Fatalf("follow-on insert failures should not propagate: %v", err)
		}
		if record.Status != netback.StatusSuccess {
			t.Errorf("expected success, got %s", record.Status)
		}
		if record.ChangesDetected != 2 || record.SecurityChanges != 2 {
			t.Errorf("record should still count the changes: %+v", record)
		}

		history, err := f.svc.History("router1", 10)
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		if len(history) != 2 || history[0].Status != netback.StatusSuccess {
			t.Errorf("success record not persisted: %+v", history)
		}
	})

	t.Run("retention is enforced after capture", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t, 2)
		f.addDevice(t, "router1", "10.0.0.1")

		for i := 0; i < 4; i++ {
			f.fetcher.SetConfig("10.0.0.1", fmt.Sprintf("/system\nset note=v%d\n", i))
			if _, err := f.svc.Backup(ctx, "router1"); err != nil {
				t.Fatalf("backup %d: %v", i, err)
			}
			f.clock.Advance(time.Minute)
		}

		names, _ := f.blobs.List(ctx, "router1")
		if len(names) != 2 {
			t.Errorf("expected 2 retained snapshots, got %d", len(names))
		}
	})
}

func TestService_BackupAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newServiceFixture(t, 10)

	f.addDevice(t, "router1", "10.0.0.1")
	f.addDevice(t, "router2", "10.0.0.2")
	f.fetcher.SetConfig("10.0.0.1", "/system\n")
	f.fetcher.SetError("10.0.0.2", fmt.Errorf("timeout"))

	records, err := f.svc.BackupAll(ctx)
	if err != nil {
		t.Fatalf("backup all: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	byDevice := map[string]netback.Status{}
	for _, r := range records {
		byDevice[r.DeviceName] = r.Status
	}
	if byDevice["router1"] != netback.StatusSuccess {
		t.Errorf("router1: expected success, got %s", byDevice["router1"])
	}
	if byDevice["router2"] != netback.StatusFailed {
		t.Errorf("router2: expected failed, got %s", byDevice["router2"])
	}
}

func TestService_Stats(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newServiceFixture(t, 10)

	f.addDevice(t, "router1", "10.0.0.1")
	f.fetcher.SetConfig("10.0.0.1", "/system\n")
	if _, err := f.svc.Backup(ctx, "router1"); err != nil {
		t.Fatalf("backup: %v", err)
	}
	f.fetcher.SetError("10.0.0.1", fmt.Errorf("down"))
	if _, err := f.svc.Backup(ctx, "router1"); err != nil {
		t.Fatalf("backup: %v", err)
	}

	stats, err := f.svc.Stats(f.clock.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalBackups != 2 || stats.SuccessfulBackups != 1 || stats.FailedBackups != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.LastBackupTime.IsZero() {
		t.Error("expected last backup time")
	}
}
