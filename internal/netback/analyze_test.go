package netback_test

import (
	"strings"
	"testing"

	"netback/internal/netback"
)

func newAnalyzer(t *testing.T) *netback.Analyzer {
	t.Helper()
	return netback.NewAnalyzer(defaultClassifier(t))
}

func TestAnalyzer_Analyze(t *testing.T) {
	t.Run("identical documents yield no changes", func(t *testing.T) {
		t.Parallel()
		a := newAnalyzer(t)
		doc := "/ip firewall\nadd chain=input action=accept\n"
		if changes := a.Analyze(doc, doc); len(changes) != 0 {
			t.Errorf("expected no changes, got %d", len(changes))
		}
	})

	t.Run("changes inherit the section from the preceding marker", func(t *testing.T) {
		t.Parallel()
		a := newAnalyzer(t)
		previous := "/ip firewall\nadd chain=input action=accept\n"
		current := "/ip firewall\nadd chain=input action=drop\n"

		changes := a.Analyze(previous, current)
		if len(changes) != 2 {
			t.Fatalf("expected 2 changes, got %d", len(changes))
		}
		for _, c := range changes {
			if c.Section != "ip firewall" {
				t.Errorf("expected section %q, got %q", "ip firewall", c.Section)
			}
			if !c.Sensitive {
				t.Error("expected firewall change to be sensitive")
			}
			if c.Kind != netback.ChangeSecurityCritical {
				t.Errorf("expected critical kind, got %s", c.Kind)
			}
			if c.LineNumber != 1 {
				t.Errorf("expected line number 1, got %d", c.LineNumber)
			}
		}
		if changes[0].OldText != "add chain=input action=accept" {
			t.Errorf("unexpected old text: %q", changes[0].OldText)
		}
		if changes[1].NewText != "add chain=input action=drop" {
			t.Errorf("unexpected new text: %q", changes[1].NewText)
		}
	})

	t.Run("plain changes keep added and removed kinds", func(t *testing.T) {
		t.Parallel()
		a := newAnalyzer(t)
		previous := "/interface\nset ether1 mtu=1500\n"
		current := "/interface\nset ether1 mtu=1400\n"

		changes := a.Analyze(previous, current)
		if len(changes) != 2 {
			t.Fatalf("expected 2 changes, got %d", len(changes))
		}
		if changes[0].Kind != netback.ChangeRemoved || changes[1].Kind != netback.ChangeAdded {
			t.Errorf("unexpected kinds: %s, %s", changes[0].Kind, changes[1].Kind)
		}
		for _, c := range changes {
			if c.Sensitive {
				t.Error("expected mtu change to be non-sensitive")
			}
			if c.Section != "interface" {
				t.Errorf("expected section %q, got %q", "interface", c.Section)
			}
		}
	})

	t.Run("section is unknown before any marker", func(t *testing.T) {
		t.Parallel()
		a := newAnalyzer(t)
		changes := a.Analyze("name=old\n", "name=new\n")
		if len(changes) != 2 {
			t.Fatalf("expected 2 changes, got %d", len(changes))
		}
		for _, c := range changes {
			if c.Section != "unknown" {
				t.Errorf("expected unknown section, got %q", c.Section)
			}
		}
	})

	t.Run("line numbers advance only on added lines", func(t *testing.T) {
		t.Parallel()
		a := newAnalyzer(t)
		previous := "/interface\n"
		current := "/interface\nset ether1 mtu=1400\nset ether2 mtu=1400\n"

		changes := a.Analyze(previous, current)
		if len(changes) != 2 {
			t.Fatalf("expected 2 changes, got %d", len(changes))
		}
		if changes[0].LineNumber != 1 || changes[1].LineNumber != 2 {
			t.Errorf("expected line numbers 1 and 2, got %d and %d",
				changes[0].LineNumber, changes[1].LineNumber)
		}
	})

	t.Run("first capture against empty document lists every line as added", func(t *testing.T) {
		t.Parallel()
		a := newAnalyzer(t)
		current := "/user\nadd name=admin password=x\n"

		changes := a.Analyze("", current)
		if len(changes) != 2 {
			t.Fatalf("expected 2 changes, got %d", len(changes))
		}
		for _, c := range changes {
			if c.OldText != "" {
				t.Errorf("added change has old text: %q", c.OldText)
			}
		}
	})

	t.Run("edits six lines apart share a hunk, seven apart split", func(t *testing.T) {
		t.Parallel()
		a := newAnalyzer(t)

		build := func(gap int, first, last string) string {
			lines := []string{first}
			for i := 0; i < gap; i++ {
				lines = append(lines, "padding")
			}
			lines = append(lines, last)
			return strings.Join(lines, "\n")
		}

		// A gap of exactly twice the context stays in one hunk, so both
		// edits number from the shared hunk start.
		changes := a.Analyze(build(6, "first=old", "last=old"), build(6, "first=new", "last=new"))
		if len(changes) != 4 {
			t.Fatalf("expected 4 changes, got %d", len(changes))
		}
		if changes[2].LineNumber != 2 {
			t.Errorf("merged hunk: expected second edit at line 2, got %d", changes[2].LineNumber)
		}

		// One more unchanged line splits the hunks; the second hunk starts
		// three context lines before its edit.
		changes = a.Analyze(build(7, "first=old", "last=old"), build(7, "first=new", "last=new"))
		if len(changes) != 4 {
			t.Fatalf("expected 4 changes, got %d", len(changes))
		}
		if changes[2].LineNumber != 6 {
			t.Errorf("split hunks: expected second edit at line 6, got %d", changes[2].LineNumber)
		}
	})

	t.Run("distant edits stay in separate hunks with their own numbering", func(t *testing.T) {
		t.Parallel()
		a := newAnalyzer(t)

		var oldLines, newLines []string
		oldLines = append(oldLines, "first=old")
		newLines = append(newLines, "first=new")
		for i := 0; i < 20; i++ {
			oldLines = append(oldLines, "padding")
			newLines = append(newLines, "padding")
		}
		oldLines = append(oldLines, "last=old")
		newLines = append(newLines, "last=new")

		changes := a.Analyze(strings.Join(oldLines, "\n"), strings.Join(newLines, "\n"))
		if len(changes) != 4 {
			t.Fatalf("expected 4 changes, got %d", len(changes))
		}
		if changes[0].LineNumber != 1 {
			t.Errorf("first hunk should start at line 1, got %d", changes[0].LineNumber)
		}
		// The second hunk starts three context lines before the final edit.
		if changes[2].LineNumber != 19 {
			t.Errorf("second hunk should start at line 19, got %d", changes[2].LineNumber)
		}
	})
}

func TestSummarize(t *testing.T) {
	t.Parallel()
	changes := []netback.ConfigChange{
		{Kind: netback.ChangeAdded},
		{Kind: netback.ChangeSecurityCritical, Sensitive: true},
		{Kind: netback.ChangeRemoved},
	}
	total, security := netback.Summarize(changes)
	if total != 3 || security != 1 {
		t.Errorf("expected (3, 1), got (%d, %d)", total, security)
	}
}
