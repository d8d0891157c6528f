// Package segment splits legal documents into offset-stable clauses.
//
// Offsets are byte offsets into the exact text passed in. Line endings are not
// normalized: "\r\n", "\r" and "\n" are each treated as one line terminator when
// looking for structural markers, but the text itself is never rewritten.
package segment

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/clausewatch/internal/model"
)

const (
	// MaxHeadingChars is the longest line (in bytes) still treated as a heading
	MaxHeadingChars = 80

	// MaxMergeLineBreaks is the proximity threshold for the merge pass: two adjacent
	// spans are merged only if the whitespace between them holds at most this many
	// line terminators. A blank line always separates clauses.
	MaxMergeLineBreaks = 1
)

// ErrInvalidMaxClauseChars is returned for a non-positive clause budget
var ErrInvalidMaxClauseChars = fmt.Errorf("%w: max clause chars must be positive", model.ErrInvalidConfig)

var (
	headingRe  = regexp.MustCompile(`^[ \t]{0,6}[A-Z][A-Z0-9 \-]{6,}[ \t]*$`)
	numberedRe = regexp.MustCompile(`^[ \t]*\d+(?:\.\d+)*[.)]?[ \t]+`)
)

// Segmenter splits documents into clauses no longer than MaxClauseChars bytes
type Segmenter struct {
	maxClauseChars int
}

// New creates a Segmenter with the given clause budget
func New(maxClauseChars int) (*Segmenter, error) {
	if maxClauseChars <= 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidMaxClauseChars, maxClauseChars)
	}
	return &Segmenter{maxClauseChars: maxClauseChars}, nil
}

// MaxClauseChars returns the clause budget
func (s *Segmenter) MaxClauseChars() int {
	return s.maxClauseChars
}

// Segment is shorthand for New(maxClauseChars) followed by Segmenter.Segment
func Segment(text string, maxClauseChars int) ([]model.Clause, error) {
	s, err := New(maxClauseChars)
	if err != nil {
		return nil, err
	}
	return s.Segment(text), nil
}

// Segment partitions text into clauses in document order.
//
// Cut points are the document boundaries plus the start of every heading line and
// every numbered-section line. Raw spans between cut points are trimmed, merged
// greedily while they fit the budget and sit close together, and finally split at
// sentence or line boundaries (or hard-cut) so no clause exceeds the budget.
func (s *Segmenter) Segment(text string) []model.Clause {
	clauses := []model.Clause{}
	if text == "" {
		return clauses
	}

	raw := rawSpans(text, cutPoints(text))
	merged := mergeSpans(text, raw, s.maxClauseChars)

	for _, sp := range merged {
		for _, piece := range splitSpan(text, sp, s.maxClauseChars) {
			clauses = append(clauses, model.Clause{
				ID:   clauseID(len(clauses)+1, piece),
				Span: piece,
				Text: text[piece.Start:piece.End],
			})
		}
	}

	return clauses
}

// clauseID derives a stable id from sequence position and offsets
func clauseID(seq int, sp model.Span) string {
	return fmt.Sprintf("c%04d:%d-%d", seq, sp.Start, sp.End)
}

// lineRange is one line of the document, excluding its terminator
type lineRange struct {
	start, end int
}

// splitLines finds line ranges, treating "\r\n", "\r" and "\n" as terminators
func splitLines(text string) []lineRange {
	var out []lineRange
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			out = append(out, lineRange{start, i})
			start = i + 1
		case '\r':
			out = append(out, lineRange{start, i})
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	if start < len(text) {
		out = append(out, lineRange{start, len(text)})
	}
	return out
}

// IsHeading reports whether a single line (without terminator) looks like a heading
func IsHeading(line string) bool {
	return len(line) <= MaxHeadingChars && headingRe.MatchString(line)
}

// IsNumberedSection reports whether a single line starts with a section number like "2.1)"
func IsNumberedSection(line string) bool {
	return numberedRe.MatchString(line)
}

// cutPoints returns sorted, de-duplicated candidate cut offsets
func cutPoints(text string) []int {
	set := map[int]struct{}{0: {}, len(text): {}}
	for _, ln := range splitLines(text) {
		line := text[ln.start:ln.end]
		if IsHeading(line) {
			set[ln.start] = struct{}{}
		}
		if IsNumberedSection(line) {
			set[ln.start] = struct{}{}
		}
	}

	points := make([]int, 0, len(set))
	for p := range set {
		points = append(points, p)
	}
	sort.Ints(points)
	return points
}

// rawSpans turns consecutive cut points into trimmed, non-empty spans
func rawSpans(text string, points []int) []model.Span {
	var spans []model.Span
	for i := 1; i < len(points); i++ {
		start, end := trimRange(text, points[i-1], points[i])
		if start < end {
			spans = append(spans, model.Span{Start: start, End: end})
		}
	}
	return spans
}

// trimRange moves start and end inward past whitespace. An all-whitespace range
// collapses to start == end.
func trimRange(text string, start, end int) (int, int) {
	chunk := text[start:end]
	left := strings.TrimLeftFunc(chunk, unicode.IsSpace)
	if left == "" {
		return start, start
	}
	right := strings.TrimRightFunc(chunk, unicode.IsSpace)
	return start + len(chunk) - len(left), start + len(right)
}

// lineBreaks counts line terminators, counting "\r\n" once
func lineBreaks(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			n++
		case '\r':
			n++
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		}
	}
	return n
}

// mergeSpans greedily folds each span into the open clause when the merged span
// fits maxChars and the gap has at most MaxMergeLineBreaks line terminators.
func mergeSpans(text string, spans []model.Span, maxChars int) []model.Span {
	var out []model.Span
	for _, sp := range spans {
		if n := len(out); n > 0 {
			open := &out[n-1]
			if sp.End-open.Start <= maxChars && lineBreaks(text[open.End:sp.Start]) <= MaxMergeLineBreaks {
				open.End = sp.End
				continue
			}
		}
		out = append(out, sp)
	}
	return out
}

// splitSpan cuts an oversized span into pieces of at most maxChars bytes.
// Each cut takes the largest prefix ending at a sentence or line boundary; with
// no boundary in reach it hard-cuts at maxChars.
func splitSpan(text string, sp model.Span, maxChars int) []model.Span {
	if sp.Len() <= maxChars {
		return []model.Span{sp}
	}

	var pieces []model.Span
	pos := sp.Start
	for {
		pos = skipSpace(text, pos, sp.End)
		if pos >= sp.End {
			break
		}
		if sp.End-pos <= maxChars {
			pieces = append(pieces, model.Span{Start: pos, End: sp.End})
			break
		}

		cut := boundaryCut(text, pos, sp.End, maxChars)
		start, end := trimRange(text, pos, cut)
		if start < end {
			pieces = append(pieces, model.Span{Start: start, End: end})
		}
		pos = cut
	}
	return pieces
}

// boundaryCut picks the cut offset for the window [pos, pos+maxChars).
// The caller guarantees pos+maxChars < end and text[pos] is not whitespace, so the
// returned offset is always greater than pos.
func boundaryCut(text string, pos, end, maxChars int) int {
	limit := pos + maxChars
	best := -1
	for i := pos; i < limit; i++ {
		switch text[i] {
		case '\n', '\r':
			best = i + 1
		case '.', '!', '?':
			if i+1 < end {
				r, _ := utf8.DecodeRuneInString(text[i+1 : end])
				if unicode.IsSpace(r) {
					best = i + 1
				}
			}
		}
	}
	if best > pos {
		return best
	}

	// Hard cut. Prefer not to split a multi-byte rune unless the rune alone is
	// larger than the budget.
	for c := limit; c > pos; c-- {
		if utf8.RuneStart(text[c]) {
			return c
		}
	}
	return limit
}

func skipSpace(text string, pos, end int) int {
	for pos < end {
		r, size := utf8.DecodeRuneInString(text[pos:end])
		if !unicode.IsSpace(r) {
			break
		}
		pos += size
	}
	return pos
}
