// Package match implements fuzzy subsequence matching of queries
// against catalog labels, producing bounded integer scores and the
// matched character spans needed for highlighting.
package match

import "github.com/lumenlauncher/lumen/internal/normalize"

// Text is a normalized string prepared for matching: the rune slice and
// the word-start positions are computed once so the per-query hot path
// never re-derives them.
type Text struct {
	Raw        string
	Runes      []rune
	WordStarts []int
}

// NewText prepares an already-normalized string for matching.
func NewText(normalized string) Text {
	return Text{
		Raw:        normalized,
		Runes:      []rune(normalized),
		WordStarts: normalize.WordStarts(normalized),
	}
}

// Len returns the rune length of the text.
func (t Text) Len() int { return len(t.Runes) }

// isWordStart reports whether the rune at position i begins a word.
func (t Text) isWordStart(i int) bool {
	for _, s := range t.WordStarts {
		if s == i {
			return true
		}
		if s > i {
			return false
		}
	}
	return false
}

// Span is a contiguous run of matched rune positions in a label.
type Span struct {
	Start int
	Len   int
}

// Result is a successful match of a query against a single label.
// Spans are non-overlapping, ordered by increasing start position, and
// together cover every matched query rune exactly once.
type Result struct {
	Score int
	Spans []Span
}

// Scored is a match attributed to a catalog item, ready for ranking.
// Label is the display form of the matched label; LabelLen is the rune
// length of its normalized form, used as the first ranking tie-break.
type Scored struct {
	ItemID   string
	Label    string
	LabelLen int
	Score    int
	Spans    []Span
}

// Matcher decides whether a normalized query matches a normalized
// label. Implementations must be pure and safe for concurrent use; the
// boolean return distinguishes "no match" from a zero-score match.
type Matcher interface {
	Match(query, label Text) (Result, bool)
}

// spansFromPositions merges sorted matched rune positions into
// contiguous spans.
func spansFromPositions(positions []int) []Span {
	if len(positions) == 0 {
		return nil
	}
	spans := make([]Span, 0, len(positions))
	start := positions[0]
	length := 1
	for _, p := range positions[1:] {
		if p == start+length {
			length++
			continue
		}
		spans = append(spans, Span{Start: start, Len: length})
		start = p
		length = 1
	}
	return append(spans, Span{Start: start, Len: length})
}
