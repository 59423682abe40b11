// Package normalize canonicalizes label and query text into the
// comparison form used by the matcher: case-folded, accent-stripped,
// separator-collapsed.
package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer converts raw strings into their normalized comparison form.
// Normalization is total and idempotent: any input (including empty or
// malformed UTF-8) yields a valid result, and normalizing twice yields
// the same string as normalizing once.
type Normalizer struct {
	caseFold bool
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithCaseSensitive disables case folding. Diacritic stripping and
// separator collapsing still apply.
func WithCaseSensitive() Option {
	return func(n *Normalizer) {
		n.caseFold = false
	}
}

// New creates a Normalizer. Case folding is enabled by default.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{caseFold: true}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize converts raw text into its comparison form:
//  1. Unicode case folding (unless case-sensitive mode is set)
//  2. diacritic stripping to base letters (NFD, drop combining marks, NFC)
//  3. runs of whitespace/punctuation collapse to a single space
//  4. leading/trailing separators are trimmed
//
// Invalid UTF-8 bytes are dropped. Never fails.
func (n *Normalizer) Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	s := sanitizeUTF8(raw)
	if n.caseFold {
		s = cases.Fold().String(s)
	}
	s = stripDiacritics(s)
	return collapseSeparators(s)
}

// WordStarts returns the rune indices at which words begin in a
// normalized string. In normalized form the only separator is a single
// space, so word starts are index 0 and every index following a space.
func WordStarts(normalized string) []int {
	var starts []int
	idx := 0
	prevSpace := true
	for _, r := range normalized {
		if r == ' ' {
			prevSpace = true
		} else {
			if prevSpace {
				starts = append(starts, idx)
			}
			prevSpace = false
		}
		idx++
	}
	return starts
}

// stripDiacritics decomposes to NFD, removes combining marks, and
// recomposes to NFC (e.g. "Élodie" -> "Elodie").
func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		// Transform failure is not expected for valid UTF-8; fall back
		// to the untransformed string rather than erroring.
		return s
	}
	return out
}

// collapseSeparators replaces runs of whitespace and punctuation with a
// single space and trims separators from both ends.
func collapseSeparators(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			if b.Len() > 0 {
				pendingSep = true
			}
			continue
		}
		if pendingSep {
			b.WriteByte(' ')
			pendingSep = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// sanitizeUTF8 drops invalid bytes so downstream transforms always see
// well-formed UTF-8. Valid input is returned unchanged without copying.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			i++
			continue
		}
		b.WriteString(s[i : i+size])
		i += size
	}
	return b.String()
}
