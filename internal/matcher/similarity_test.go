package matcher

import "testing"

// TestTokenSortRatio tests word-order-insensitive similarity scoring.
func TestTokenSortRatio(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		min  int
		max  int
	}{
		{"identical", "Yesterday", "Yesterday", 100, 100},
		{"case insensitive", "YESTERDAY", "yesterday", 100, 100},
		{"word order ignored", "Smith Patti", "Patti Smith", 100, 100},
		{"extra whitespace", "Patti   Smith", "Patti Smith", 100, 100},
		{"close variant", "Yesterday - Remastered", "Yesterday Remastered", 85, 99},
		{"unrelated", "Warszawa", "Gloria", 0, 40},
		{"both empty", "", "", 100, 100},
		{"one empty", "Yesterday", "", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TokenSortRatio(tt.a, tt.b)
			if got < tt.min || got > tt.max {
				t.Errorf("TokenSortRatio(%q, %q) = %d, want in [%d, %d]", tt.a, tt.b, got, tt.min, tt.max)
			}
			if sym := TokenSortRatio(tt.b, tt.a); sym != got {
				t.Errorf("not symmetric: %d vs %d", got, sym)
			}
		})
	}
}

// TestNormalizer tests canonicalization and cache keying.
func TestNormalizer(t *testing.T) {
	n := NewNormalizer()

	if got := n.Normalize("  The Beatles  "); got != "the beatles" {
		t.Errorf("Normalize = %q", got)
	}
	// Second call hits the memo.
	if got := n.Normalize("  The Beatles  "); got != "the beatles" {
		t.Errorf("memoized Normalize = %q", got)
	}

	k1 := n.Key("The Beatles", "Yesterday")
	k2 := n.Key("the beatles ", " YESTERDAY")
	if k1 != k2 {
		t.Errorf("keys differ for equivalent pairs: %q vs %q", k1, k2)
	}

	k3 := n.Key("The Beatles", "Help!")
	if k1 == k3 {
		t.Error("distinct titles must not share a key")
	}

	// The separator keeps (ab, c) and (a, bc) apart.
	if n.Key("ab", "c") == n.Key("a", "bc") {
		t.Error("key must separate artist and title")
	}
}
