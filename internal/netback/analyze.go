package netback

import "strings"

// hunkContext is the number of unchanged lines kept around each changed run
// when grouping the edit script into hunks, mirroring unified diff output.
const hunkContext = 3

// Analyzer turns the raw edit script between two snapshots into classified
// ConfigChange records: it attributes each edit to the nearest preceding
// section marker seen in the diff stream and classifies its sensitivity.
type Analyzer struct {
	classifier *Classifier
}

// NewAnalyzer creates an Analyzer using the given classifier.
func NewAnalyzer(c *Classifier) *Analyzer {
	return &Analyzer{classifier: c}
}

// Analyze diffs two configuration documents and returns one ConfigChange
// per added or removed line, in diff order. Equal lines never produce a
// change. Identical documents yield no changes.
//
// Line numbers follow the historical contract: each hunk starts from the
// hunk's first line number in the new document, the counter advances only
// on inserted lines, and removed lines reuse the current value. Section
// markers are only observed inside hunks (changed lines plus their
// context), so a change's section reflects the diff stream, not
// necessarily the final document.
func (a *Analyzer) Analyze(previous, current string) []ConfigChange {
	ops := DiffLines(splitLines(previous), splitLines(current))

	var changes []ConfigChange
	section := "unknown"

	for _, h := range groupHunks(ops) {
		lineNumber := h.newStart
		for _, op := range ops[h.start:h.end] {
			if strings.HasPrefix(op.Text, "/") {
				section = strings.TrimSpace(strings.TrimPrefix(op.Text, "/"))
			}

			switch op.Kind {
			case OpDelete:
				content := strings.TrimSpace(op.Text)
				sensitive := a.classifier.IsSensitive(content, section)
				changes = append(changes, ConfigChange{
					LineNumber: lineNumber,
					Kind:       changeKind(ChangeRemoved, sensitive),
					OldText:    content,
					Section:    section,
					Sensitive:  sensitive,
				})
			case OpInsert:
				content := strings.TrimSpace(op.Text)
				sensitive := a.classifier.IsSensitive(content, section)
				changes = append(changes, ConfigChange{
					LineNumber: lineNumber,
					Kind:       changeKind(ChangeAdded, sensitive),
					NewText:    content,
					Section:    section,
					Sensitive:  sensitive,
				})
				lineNumber++
			}
		}
	}

	return changes
}

// Summarize counts total and security-sensitive changes.
func Summarize(changes []ConfigChange) (total, security int) {
	total = len(changes)
	for _, c := range changes {
		if c.Sensitive {
			security++
		}
	}
	return total, security
}

func changeKind(kind ChangeKind, sensitive bool) ChangeKind {
	if sensitive {
		return ChangeSecurityCritical
	}
	return kind
}

// hunk is a half-open op index range [start, end) plus the 1-based line
// number in the new document where the range begins.
type hunk struct {
	start, end int
	newStart   int
}

// groupHunks slices the edit script into hunks: each changed run plus up to
// hunkContext equal lines on either side, with runs merged when separated
// by at most 2*hunkContext equal lines. Equal ops outside hunks are
// skipped entirely, exactly like unified diff output.
func groupHunks(ops []Op) []hunk {
	// newLine[i] is the 1-based position in the new document of op i
	// (for deletes: the position the deletion happens at).
	newLine := make([]int, len(ops))
	pos := 1
	for i, op := range ops {
		newLine[i] = pos
		if op.Kind != OpDelete {
			pos++
		}
	}

	var hunks []hunk
	i := 0
	for i < len(ops) {
		if ops[i].Kind == OpEqual {
			i++
			continue
		}

		start := i - hunkContext
		if start < 0 {
			start = 0
		}
		if len(hunks) > 0 && start < hunks[len(hunks)-1].end {
			start = hunks[len(hunks)-1].end
		}

		// Extend past subsequent changed runs while the equal gap stays
		// within shared context.
		end := i + 1
		for j := i + 1; j < len(ops); j++ {
			if ops[j].Kind != OpEqual {
				end = j + 1
			} else if j-end >= 2*hunkContext {
				break
			}
		}
		i = end
		end += hunkContext
		if end > len(ops) {
			end = len(ops)
		}

		if len(hunks) > 0 && start <= hunks[len(hunks)-1].end {
			hunks[len(hunks)-1].end = end
		} else {
			hunks = append(hunks, hunk{start: start, end: end, newStart: newLine[start]})
		}
	}
	return hunks
}
