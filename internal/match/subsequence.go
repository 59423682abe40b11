package match

// Scoring constants. Chosen so the strategies order as: contiguous
// substring (strongest at label start, then word boundary), then
// acronym, then sparse subsequence, with tight alignments beating loose
// ones. Scores are clamped to [scoreMin, scoreMax] so ordering is total
// and stable; only an empty query scores zero.
const (
	scoreBase = 100
	scoreMin  = 1
	scoreMax  = 1000

	bonusSubstring    = 200 // whole query is a contiguous run
	bonusLabelStart   = 100 // contiguous run begins the label
	bonusWordStart    = 60  // contiguous run begins a word
	bonusAcronym      = 150 // every query rune sits on a word start
	bonusBoundaryRune = 10  // per matched rune on a word start
	bonusAdjacent     = 8   // per matched rune adjacent to the previous

	penaltyGap       = 3 // per unmatched rune inside the matched window
	maxGapPenalty    = 120
	maxLeadPenalty   = 10 // matched runes deep in the label rank lower
	maxLengthPenalty = 20 // long labels rank below specific short ones

	// How far past the nearest occurrence the greedy aligner will jump
	// to reach an occurrence on a word start.
	boundaryLookahead = 16
)

// Subsequence is the default matcher: query runes must appear in the
// label in order, not necessarily contiguously. It tries several
// alignments (contiguous substring, acronym, greedy subsequence with
// and without word-boundary preference) and keeps the best-scoring one.
type Subsequence struct{}

var _ Matcher = Subsequence{}

// Match implements Matcher.
func (Subsequence) Match(query, label Text) (Result, bool) {
	if query.Len() == 0 {
		// Empty query matches everything at the floor score, no spans.
		return Result{}, true
	}
	if label.Len() == 0 {
		return Result{}, false
	}

	plain := alignGreedy(query, label, false)
	if plain == nil {
		return Result{}, false
	}

	best := scorePositions(label, plain, 0)
	bestPos := plain

	if pos := alignSubstring(query, label); pos != nil {
		bonus := bonusSubstring
		switch {
		case pos[0] == 0:
			bonus += bonusLabelStart
		case label.isWordStart(pos[0]):
			bonus += bonusWordStart
		}
		if s := scorePositions(label, pos, bonus); s > best {
			best, bestPos = s, pos
		}
	}
	if pos := alignAcronym(query, label); pos != nil {
		if s := scorePositions(label, pos, bonusAcronym); s > best {
			best, bestPos = s, pos
		}
	}
	if pos := alignGreedy(query, label, true); pos != nil {
		if s := scorePositions(label, pos, 0); s > best {
			best, bestPos = s, pos
		}
	}

	return Result{Score: best, Spans: spansFromPositions(bestPos)}, true
}

// scorePositions scores one alignment of the query over the label.
// positions are strictly increasing rune indices, one per query rune.
func scorePositions(label Text, positions []int, kindBonus int) int {
	score := scoreBase + kindBonus
	for i, p := range positions {
		if label.isWordStart(p) {
			score += bonusBoundaryRune
		}
		if i > 0 && p == positions[i-1]+1 {
			score += bonusAdjacent
		}
	}

	gap := positions[len(positions)-1] - positions[0] + 1 - len(positions)
	score -= minInt(gap*penaltyGap, maxGapPenalty)
	score -= minInt(positions[0], maxLeadPenalty)
	score -= minInt(label.Len()/4, maxLengthPenalty)

	if score > scoreMax {
		return scoreMax
	}
	if score < scoreMin {
		return scoreMin
	}
	return score
}

// alignSubstring finds the best contiguous occurrence of the query in
// the label: an occurrence at the label start wins, then the first
// occurrence on a word start, then the first occurrence overall.
func alignSubstring(query, label Text) []int {
	n, m := label.Len(), query.Len()
	first := -1
	for start := 0; start+m <= n; start++ {
		if !runesEqualAt(label.Runes, query.Runes, start) {
			continue
		}
		if start == 0 || label.isWordStart(start) {
			return positionRange(start, m)
		}
		if first < 0 {
			first = start
		}
	}
	if first < 0 {
		return nil
	}
	return positionRange(first, m)
}

// alignAcronym aligns each query rune with the first letter of
// successive words, allowing words to be skipped. Returns nil when no
// such alignment exists.
func alignAcronym(query, label Text) []int {
	if len(label.WordStarts) < query.Len() {
		return nil
	}
	positions := make([]int, 0, query.Len())
	wi := 0
	for _, qr := range query.Runes {
		found := false
		for ; wi < len(label.WordStarts); wi++ {
			if label.Runes[label.WordStarts[wi]] == qr {
				positions = append(positions, label.WordStarts[wi])
				wi++
				found = true
				break
			}
		}
		if !found {
			return nil
		}
	}
	return positions
}

// alignGreedy matches query runes left to right against the label. With
// preferBoundary set, it will jump up to boundaryLookahead runes past
// the nearest occurrence to land on a word start, which produces
// better-looking highlights for queries like "doc" against
// "my documents". Returns nil when the query is not a subsequence of
// the label (which for preferBoundary can happen even when a plain
// alignment exists; callers fall back to the plain result).
func alignGreedy(query, label Text, preferBoundary bool) []int {
	positions := make([]int, 0, query.Len())
	next := 0
	for _, qr := range query.Runes {
		at := indexRuneFrom(label.Runes, qr, next)
		if at < 0 {
			return nil
		}
		if preferBoundary && !label.isWordStart(at) {
			for _, ws := range label.WordStarts {
				if ws <= at {
					continue
				}
				if ws-at > boundaryLookahead {
					break
				}
				if label.Runes[ws] == qr {
					at = ws
					break
				}
			}
		}
		positions = append(positions, at)
		next = at + 1
	}
	return positions
}

func indexRuneFrom(runes []rune, r rune, from int) int {
	for i := from; i < len(runes); i++ {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

func runesEqualAt(haystack, needle []rune, at int) bool {
	for i, r := range needle {
		if haystack[at+i] != r {
			return false
		}
	}
	return true
}

func positionRange(start, n int) []int {
	positions := make([]int, n)
	for i := range positions {
		positions[i] = start + i
	}
	return positions
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
