package match

import "github.com/sahilm/fuzzy"

// Fuzzy adapts github.com/sahilm/fuzzy as an alternative Matcher. It
// shares the subsequence contract (query runes in order) but uses the
// library's own bonus/penalty model. Scores are shifted into the same
// bounded range as the default matcher so mixed catalogs still rank on
// one scale.
type Fuzzy struct{}

var _ Matcher = Fuzzy{}

// fuzzyScoreShift recenters sahilm/fuzzy scores (which may be negative
// for sparse matches) into [scoreMin, scoreMax].
const fuzzyScoreShift = 300

// Match implements Matcher.
func (Fuzzy) Match(query, label Text) (Result, bool) {
	if query.Len() == 0 {
		return Result{}, true
	}
	if label.Len() == 0 {
		return Result{}, false
	}

	matches := fuzzy.Find(query.Raw, []string{label.Raw})
	if len(matches) == 0 {
		return Result{}, false
	}

	m := matches[0]
	score := m.Score + fuzzyScoreShift
	if score > scoreMax {
		score = scoreMax
	}
	if score < scoreMin {
		score = scoreMin
	}

	return Result{Score: score, Spans: spansFromPositions(runePositions(label.Raw, m.MatchedIndexes))}, true
}

// runePositions converts the library's matched byte offsets (ascending)
// into rune indices so spans line up with the label's runes.
func runePositions(s string, byteOffsets []int) []int {
	positions := make([]int, 0, len(byteOffsets))
	next := 0
	ri := 0
	for bi := range s {
		if next >= len(byteOffsets) {
			break
		}
		if bi == byteOffsets[next] {
			positions = append(positions, ri)
			next++
		}
		ri++
	}
	return positions
}
