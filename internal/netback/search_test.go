package netback_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"netback/internal/blob"
	"netback/internal/netback"
	"netback/internal/testutil"
)

func TestSnapshotStore_Search(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	t.Run("matches are case-insensitive with trimmed content", func(t *testing.T) {
		t.Parallel()
		s, _ := newSnapshotStore(10)

		content := "/ip firewall\n  add chain=input action=DROP\n/interface\n"
		if _, err := s.Put(ctx, "router1", content, base); err != nil {
			t.Fatalf("put: %v", err)
		}

		results, err := s.Search(ctx, "drop", "", netback.TimeRange{})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(results))
		}
		r := results[0]
		if r.DeviceName != "router1" {
			t.Errorf("unexpected device: %s", r.DeviceName)
		}
		if len(r.Matches) != 1 {
			t.Fatalf("expected 1 match, got %d", len(r.Matches))
		}
		m := r.Matches[0]
		if m.LineNumber != 2 {
			t.Errorf("expected line 2, got %d", m.LineNumber)
		}
		if m.Content != "add chain=input action=DROP" {
			t.Errorf("expected trimmed content, got %q", m.Content)
		}
	})

	t.Run("context is clipped at document boundaries", func(t *testing.T) {
		t.Parallel()
		s, _ := newSnapshotStore(10)

		if _, err := s.Put(ctx, "router1", "target\nline2\nline3\nline4\n", base); err != nil {
			t.Fatalf("put: %v", err)
		}

		results, err := s.Search(ctx, "target", "", netback.TimeRange{})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		ctxLines := results[0].Matches[0].Context
		if len(ctxLines) != 3 {
			t.Fatalf("expected 3 context lines at document start, got %d", len(ctxLines))
		}
		if ctxLines[0] != "target" || ctxLines[2] != "line3" {
			t.Errorf("unexpected context: %v", ctxLines)
		}
	})

	t.Run("matches per snapshot are capped", func(t *testing.T) {
		t.Parallel()
		s, _ := newSnapshotStore(10)

		var sb strings.Builder
		for i := 0; i < 25; i++ {
			fmt.Fprintf(&sb, "needle line %d\n", i)
		}
		if _, err := s.Put(ctx, "router1", sb.String(), base); err != nil {
			t.Fatalf("put: %v", err)
		}

		results, err := s.Search(ctx, "needle", "", netback.TimeRange{})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if got := len(results[0].Matches); got != 10 {
			t.Errorf("expected 10 matches, got %d", got)
		}
	})

	t.Run("device filter is a case-insensitive substring", func(t *testing.T) {
		t.Parallel()
		s, _ := newSnapshotStore(10)

		if _, err := s.Put(ctx, "core-router", "needle\n", base); err != nil {
			t.Fatalf("put: %v", err)
		}
		if _, err := s.Put(ctx, "edge-switch", "needle\n", base); err != nil {
			t.Fatalf("put: %v", err)
		}

		results, err := s.Search(ctx, "needle", "ROUTER", netback.TimeRange{})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(results) != 1 || results[0].DeviceName != "core-router" {
			t.Errorf("unexpected results: %+v", results)
		}
	})

	t.Run("time range bounds the scan", func(t *testing.T) {
		t.Parallel()
		s, _ := newSnapshotStore(10)

		if _, err := s.Put(ctx, "router1", "needle old\n", base); err != nil {
			t.Fatalf("put: %v", err)
		}
		if _, err := s.Put(ctx, "router1", "needle new\n", base.Add(time.Hour)); err != nil {
			t.Fatalf("put: %v", err)
		}

		results, err := s.Search(ctx, "needle", "", netback.TimeRange{From: base.Add(30 * time.Minute)})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(results))
		}
		if !results[0].CapturedAt.Equal(base.Add(time.Hour)) {
			t.Errorf("unexpected capture time: %s", results[0].CapturedAt)
		}
	})

	t.Run("unreadable snapshots are skipped", func(t *testing.T) {
		t.Parallel()
		flaky := testutil.NewFlakyBlobStore(blob.NewMemoryStore())
		s := netback.NewSnapshotStore(flaky, 10, netback.NewNopLogger())

		bad, err := s.Put(ctx, "router1", "needle\n", base)
		if err != nil {
			t.Fatalf("put: %v", err)
		}
		if _, err := s.Put(ctx, "router1", "needle\n", base.Add(time.Minute)); err != nil {
			t.Fatalf("put: %v", err)
		}

		flaky.FailRead(bad.Filename)
		results, err := s.Search(ctx, "needle", "", netback.TimeRange{})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(results) != 1 {
			t.Errorf("expected the readable snapshot only, got %d results", len(results))
		}
	})

	t.Run("no matches yields empty results", func(t *testing.T) {
		t.Parallel()
		s, _ := newSnapshotStore(10)

		if _, err := s.Put(ctx, "router1", "nothing here\n", base); err != nil {
			t.Fatalf("put: %v", err)
		}
		results, err := s.Search(ctx, "absent", "", netback.TimeRange{})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(results) != 0 {
			t.Errorf("expected no results, got %d", len(results))
		}
	})
}
