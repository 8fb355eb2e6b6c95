package rtxn

import "strings"

// MatchOptions mirrors the matcher knobs named in §4.3:
// find_usrs_with_name_containing(pattern, anchorStart, anchorEnd,
// subsequence, ignoreCase) and find_filenames_containing's identical
// options.
type MatchOptions struct {
	AnchorStart bool
	AnchorEnd   bool
	Subsequence bool
	IgnoreCase  bool
}

// Matches reports whether pattern matches s under opts. With neither
// anchor set and Subsequence false, this is a substring test; with
// both anchors set it is exact equality; Subsequence switches to an
// ordered-character-subsequence test (each byte of pattern must occur
// in s in order, not necessarily contiguous), matching fuzzy symbol
// pickers in IDE-style name search.
func Matches(pattern, s string, opts MatchOptions) bool {
	if opts.IgnoreCase {
		pattern = strings.ToLower(pattern)
		s = strings.ToLower(s)
	}

	if opts.Subsequence {
		return matchesSubsequence(pattern, s, opts.AnchorStart, opts.AnchorEnd)
	}

	switch {
	case opts.AnchorStart && opts.AnchorEnd:
		return s == pattern
	case opts.AnchorStart:
		return strings.HasPrefix(s, pattern)
	case opts.AnchorEnd:
		return strings.HasSuffix(s, pattern)
	default:
		return strings.Contains(s, pattern)
	}
}

// matchesSubsequence ports matchesPatternSubsequence from
// original_source/lib/Support/PatternMatching.cpp byte-for-byte: an
// empty s or pattern never matches; anchorStart requires s and
// pattern to start with the same byte; the scan then walks s once,
// advancing through pattern on every byte that matches the next
// pattern byte; anchorEnd requires that walk to have consumed all of
// s exactly when pattern was exhausted, not merely a subsequence
// occurring somewhere before the end.
func matchesSubsequence(pattern, s string, anchorStart, anchorEnd bool) bool {
	if len(s) == 0 || len(pattern) == 0 {
		return false
	}
	if len(s) < len(pattern) {
		return false
	}
	if anchorStart && s[0] != pattern[0] {
		return false
	}

	si, pi := 0, 0
	for si < len(s) && pi < len(pattern) {
		if s[si] == pattern[pi] {
			pi++
		}
		si++
	}

	if pi != len(pattern) {
		return false
	}
	if anchorEnd && si != len(s) {
		return false
	}
	return true
}
