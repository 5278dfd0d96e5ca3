package netback

// OpKind tags one operation in a line-level edit script.
type OpKind int

const (
	OpEqual OpKind = iota
	OpDelete
	OpInsert
)

// Op is one operation in the edit script produced by DiffLines.
// Text is the old line for Delete, the new line for Insert, and the shared
// line for Equal.
type Op struct {
	Kind OpKind
	Text string
}

// DiffLines computes a line-level edit script transforming previous into
// current using Myers' O(ND) algorithm. Lines are compared by exact text
// equality, including whitespace. The output is deterministic and, within
// each changed run, deletions precede insertions so that a single-line edit
// surfaces as an adjacent Delete+Insert pair.
func DiffLines(previous, current []string) []Op {
	// Trim the common prefix and suffix first; typical configuration diffs
	// touch a handful of lines in a large document and this keeps the edit
	// graph search small.
	prefix := 0
	for prefix < len(previous) && prefix < len(current) && previous[prefix] == current[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(previous)-prefix && suffix < len(current)-prefix &&
		previous[len(previous)-1-suffix] == current[len(current)-1-suffix] {
		suffix++
	}

	middle := myersDiff(previous[prefix:len(previous)-suffix], current[prefix:len(current)-suffix])

	ops := make([]Op, 0, prefix+len(middle)+suffix)
	for _, line := range previous[:prefix] {
		ops = append(ops, Op{OpEqual, line})
	}
	ops = append(ops, middle...)
	for _, line := range previous[len(previous)-suffix:] {
		ops = append(ops, Op{OpEqual, line})
	}
	return canonicalize(ops)
}

// myersDiff runs the greedy shortest-edit-script search over the trimmed
// inputs and backtracks the recorded furthest-reaching frontiers into an
// edit script.
func myersDiff(a, b []string) []Op {
	n, m := len(a), len(b)
	switch {
	case n == 0 && m == 0:
		return nil
	case n == 0:
		ops := make([]Op, 0, m)
		for _, line := range b {
			ops = append(ops, Op{OpInsert, line})
		}
		return ops
	case m == 0:
		ops := make([]Op, 0, n)
		for _, line := range a {
			ops = append(ops, Op{OpDelete, line})
		}
		return ops
	}

	max := n + m
	offset := max
	// v[offset+k] holds the furthest x reached on diagonal k.
	v := make([]int, 2*max+1)
	// trace keeps a copy of v per edit distance d for backtracking.
	trace := make([][]int, 0, max+1)

	depth := -1
search:
	for d := 0; d <= max; d++ {
		snapshot := make([]int, len(v))
		copy(snapshot, v)
		trace = append(trace, snapshot)

		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}
			y := x - k
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			v[offset+k] = x
			if x >= n && y >= m {
				depth = d
				break search
			}
		}
	}

	// Backtrack from (n, m) to (0, 0), emitting operations in reverse.
	rev := make([]Op, 0, depth+n)
	x, y := n, m
	for d := depth; d > 0; d-- {
		prev := trace[d]
		k := x - y

		var prevK int
		if k == -d || (k != d && prev[offset+k-1] < prev[offset+k+1]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := prev[offset+prevK]
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			rev = append(rev, Op{OpEqual, a[x-1]})
			x--
			y--
		}
		if x == prevX {
			rev = append(rev, Op{OpInsert, b[y-1]})
			y--
		} else {
			rev = append(rev, Op{OpDelete, a[x-1]})
			x--
		}
	}
	// Remaining snake on the d=0 diagonal.
	for x > 0 && y > 0 {
		rev = append(rev, Op{OpEqual, a[x-1]})
		x--
		y--
	}

	ops := make([]Op, len(rev))
	for i := range rev {
		ops[len(rev)-1-i] = rev[i]
	}
	return ops
}

// canonicalize reorders each maximal run of non-Equal operations so that all
// deletions come before all insertions. This matches unified-diff hunk
// presentation (a replaced block prints its removed lines, then its added
// lines) and makes single-line edits appear as adjacent Delete+Insert pairs.
// Only presentation changes; the edit script stays minimal.
func canonicalize(ops []Op) []Op {
	out := make([]Op, 0, len(ops))
	var deletes, inserts []Op

	flush := func() {
		out = append(out, deletes...)
		out = append(out, inserts...)
		deletes = deletes[:0]
		inserts = inserts[:0]
	}

	for _, op := range ops {
		switch op.Kind {
		case OpEqual:
			flush()
			out = append(out, op)
		case OpDelete:
			deletes = append(deletes, op)
		case OpInsert:
			inserts = append(inserts, op)
		}
	}
	flush()
	return out
}

// splitLines splits configuration text into lines without a trailing empty
// element for a final newline, matching how the diff treats documents.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := make([]string, 0, 64)
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, text[start:i])
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}
