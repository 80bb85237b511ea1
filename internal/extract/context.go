package extract

import (
	"strings"
	"unicode/utf8"
)

// floorBoundary returns the largest rune boundary <= i.
func floorBoundary(s string, i int) int {
	if i >= len(s) {
		return len(s)
	}
	if i < 0 {
		return 0
	}
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// ceilBoundary returns the smallest rune boundary >= i.
func ceilBoundary(s string, i int) int {
	if i >= len(s) {
		return len(s)
	}
	if i < 0 {
		return 0
	}
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}

// WindowBounds computes the byte range of a context window around the match
// [start,end), padded by width bytes on each side and snapped outward to rune
// boundaries so a multi-byte character is never split.
func WindowBounds(s string, start, end, width int) (int, int) {
	lo := floorBoundary(s, start-width)
	hi := ceilBoundary(s, min(end+width, len(s)))
	return lo, hi
}

// ContextWindow returns the text surrounding the match [start,end) padded by
// width bytes on each side, rune-boundary safe. Every extractor that records
// context around a match goes through this helper.
func ContextWindow(s string, start, end, width int) string {
	lo, hi := WindowBounds(s, start, end, width)
	return s[lo:hi]
}

// FoldIndex reports the byte range [start,end) in s of the first
// case-insensitive occurrence of sub, or (-1, -1). Lowercasing can change
// byte lengths (U+0130 folds from two bytes to one), so offsets found in
// the folded string are mapped back through rune counts, which per-rune
// folding preserves.
func FoldIndex(s, sub string) (int, int) {
	lower := strings.ToLower(s)
	lowerSub := strings.ToLower(sub)
	pos := strings.Index(lower, lowerSub)
	if pos < 0 {
		return -1, -1
	}
	if len(lower) == len(s) {
		return pos, pos + len(lowerSub)
	}
	startRune := utf8.RuneCountInString(lower[:pos])
	matchRunes := utf8.RuneCountInString(lowerSub)
	return runeOffset(s, startRune), runeOffset(s, startRune+matchRunes)
}

// runeOffset returns the byte offset of the n-th rune in s, or len(s) when
// s has fewer runes.
func runeOffset(s string, n int) int {
	i := 0
	for pos := range s {
		if i == n {
			return pos
		}
		i++
	}
	return len(s)
}

// TruncateRunes returns s shortened to at most n runes.
func TruncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
