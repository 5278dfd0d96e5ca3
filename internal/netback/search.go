package netback

import (
	"context"
	"strings"
	"time"
)

// maxMatchesPerSnapshot bounds response size for snapshots with many hits.
const maxMatchesPerSnapshot = 10

// searchContextRadius is the number of surrounding lines returned with
// each match, clipped at document boundaries.
const searchContextRadius = 2

// SearchMatch is one matching line with its surrounding context.
type SearchMatch struct {
	LineNumber int // 1-based
	Content    string
	Context    []string
}

// SearchResult groups the matches found in one snapshot.
type SearchResult struct {
	DeviceName string
	Filename   string
	CapturedAt time.Time
	Matches    []SearchMatch
}

// TimeRange bounds a search by capture time. Zero values leave the
// corresponding side unbounded.
type TimeRange struct {
	From time.Time
	To   time.Time
}

func (r TimeRange) contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// Search performs a case-insensitive substring search over every line of
// every retained snapshot, newest first. deviceFilter, when non-empty,
// restricts the scan to devices whose name contains it
// (case-insensitive). A snapshot that cannot be read, for example one
// deleted by retention between listing and reading, is skipped rather
// than aborting the whole search. This is a deliberate linear scan:
// retention bounds the corpus per device.
func (s *SnapshotStore) Search(ctx context.Context, query, deviceFilter string, tr TimeRange) ([]SearchResult, error) {
	devices, err := s.blobs.ListDevices(ctx)
	if err != nil {
		return nil, err
	}

	loweredQuery := strings.ToLower(query)
	loweredFilter := strings.ToLower(deviceFilter)

	var results []SearchResult
	for _, device := range devices {
		if deviceFilter != "" && !strings.Contains(strings.ToLower(device), loweredFilter) {
			continue
		}

		snaps, err := s.List(ctx, device)
		if err != nil {
			s.logger.Warn("skipping device in search", "device", device, "error", err)
			continue
		}

		for _, snap := range snaps {
			if !tr.contains(snap.CapturedAt) {
				continue
			}

			content, err := s.ReadContent(ctx, snap)
			if err != nil {
				s.logger.Warn("skipping snapshot in search", "device", device, "file", snap.Filename, "error", err)
				continue
			}

			matches := searchLines(content, loweredQuery)
			if len(matches) == 0 {
				continue
			}
			results = append(results, SearchResult{
				DeviceName: device,
				Filename:   snap.Filename,
				CapturedAt: snap.CapturedAt,
				Matches:    matches,
			})
		}
	}
	return results, nil
}

// searchLines finds up to maxMatchesPerSnapshot matching lines.
// loweredQuery must already be lowercase.
func searchLines(content, loweredQuery string) []SearchMatch {
	lines := splitLines(content)

	var matches []SearchMatch
	for i, line := range lines {
		if !strings.Contains(strings.ToLower(line), loweredQuery) {
			continue
		}
		matches = append(matches, SearchMatch{
			LineNumber: i + 1,
			Content:    strings.TrimSpace(line),
			Context:    lineContext(lines, i),
		})
		if len(matches) == maxMatchesPerSnapshot {
			break
		}
	}
	return matches
}

// lineContext returns the lines within searchContextRadius of index i,
// clipped at document boundaries.
func lineContext(lines []string, i int) []string {
	start := i - searchContextRadius
	if start < 0 {
		start = 0
	}
	end := i + searchContextRadius + 1
	if end > len(lines) {
		end = len(lines)
	}
	out := make([]string, end-start)
	copy(out, lines[start:end])
	return out
}
