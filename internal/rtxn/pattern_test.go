package rtxn

import "testing"

func TestMatchesSubstringModes(t *testing.T) {
	cases := []struct {
		name    string
		pattern string
		s       string
		opts    MatchOptions
		want    bool
	}{
		{"contains", "oo", "foobar", MatchOptions{}, true},
		{"contains miss", "xyz", "foobar", MatchOptions{}, false},
		{"anchor start", "foo", "foobar", MatchOptions{AnchorStart: true}, true},
		{"anchor start miss", "bar", "foobar", MatchOptions{AnchorStart: true}, false},
		{"anchor end", "bar", "foobar", MatchOptions{AnchorEnd: true}, true},
		{"anchor both equal", "foobar", "foobar", MatchOptions{AnchorStart: true, AnchorEnd: true}, true},
		{"anchor both unequal", "foo", "foobar", MatchOptions{AnchorStart: true, AnchorEnd: true}, false},
		{"ignore case", "FOO", "foobar", MatchOptions{AnchorStart: true, IgnoreCase: true}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Matches(c.pattern, c.s, c.opts); got != c.want {
				t.Errorf("Matches(%q, %q, %+v) = %v, want %v", c.pattern, c.s, c.opts, got, c.want)
			}
		})
	}
}

// TestMatchesSubsequenceAnchors exercises the anchor+subsequence
// combinations grounded in original_source's matchesPatternSubsequence:
// AnchorStart pins the first byte, AnchorEnd requires the subsequence
// walk to consume the input exactly, and an empty input or pattern
// never matches.
func TestMatchesSubsequenceAnchors(t *testing.T) {
	cases := []struct {
		name    string
		pattern string
		s       string
		opts    MatchOptions
		want    bool
	}{
		{"plain subsequence", "fbr", "foobar", MatchOptions{Subsequence: true}, true},
		{"out of order", "rbf", "foobar", MatchOptions{Subsequence: true}, false},
		{"empty pattern", "", "foobar", MatchOptions{Subsequence: true}, false},
		{"empty input", "f", "", MatchOptions{Subsequence: true}, false},
		{"pattern longer than input", "foobarbaz", "foo", MatchOptions{Subsequence: true}, false},

		// AnchorStart: s[0] must equal pattern[0].
		{"anchor start matches", "fbr", "foobar", MatchOptions{Subsequence: true, AnchorStart: true}, true},
		{"anchor start fails", "obr", "foobar", MatchOptions{Subsequence: true, AnchorStart: true}, false},

		// AnchorEnd: the subsequence walk must consume s exactly, i.e.
		// the last matched pattern byte must be s's last byte.
		{"anchor end matches", "far", "foobar", MatchOptions{Subsequence: true, AnchorEnd: true}, true},
		{"anchor end fails, trailing unconsumed input", "fba", "foobar", MatchOptions{Subsequence: true, AnchorEnd: true}, false},

		// Both anchors together: the whole of s must be spanned by the
		// subsequence from its first byte to its last.
		{"both anchors match", "foobar", "foobar", MatchOptions{Subsequence: true, AnchorStart: true, AnchorEnd: true}, true},
		{"both anchors, interior gap ok", "for", "foobar", MatchOptions{Subsequence: true, AnchorStart: true, AnchorEnd: true}, true},
		{"both anchors fail on start", "or", "foobar", MatchOptions{Subsequence: true, AnchorStart: true, AnchorEnd: true}, false},
		{"both anchors fail on end", "foo", "foobar", MatchOptions{Subsequence: true, AnchorStart: true, AnchorEnd: true}, false},

		{"ignore case subsequence", "FBR", "foobar", MatchOptions{Subsequence: true, IgnoreCase: true}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Matches(c.pattern, c.s, c.opts); got != c.want {
				t.Errorf("Matches(%q, %q, %+v) = %v, want %v", c.pattern, c.s, c.opts, got, c.want)
			}
		})
	}
}
