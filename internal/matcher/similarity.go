package matcher

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Normalizer canonicalizes artist and title strings for comparison and
// cache keying, memoizing results because the same catalog strings are
// normalized over and over during a run.
//
// Not safe for concurrent use; the reconciliation loop is single-threaded.
type Normalizer struct {
	cache map[string]string
}

// NewNormalizer creates an empty normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{cache: make(map[string]string)}
}

// Normalize returns s lowercased with surrounding whitespace removed.
func (n *Normalizer) Normalize(s string) string {
	if v, ok := n.cache[s]; ok {
		return v
	}
	v := strings.ToLower(strings.TrimSpace(s))
	n.cache[s] = v
	return v
}

// Key returns the cache key for an (artist, title) pair. Pairs differing
// only in case or surrounding whitespace share a key.
func (n *Normalizer) Key(artist, title string) string {
	return n.Normalize(artist) + "\x00" + n.Normalize(title)
}

// TokenSortRatio scores the similarity of two strings from 0 to 100,
// ignoring word order: each input is lowercased, split into tokens, sorted
// and rejoined before Levenshtein comparison. "Yesterday (Remastered)" and
// "yesterday remastered" score high despite the formatting differences.
func TokenSortRatio(a, b string) int {
	sa := tokenSort(a)
	sb := tokenSort(b)

	if sa == sb {
		return 100
	}
	if sa == "" || sb == "" {
		return 0
	}

	dist := fuzzy.LevenshteinDistance(sa, sb)
	longest := len([]rune(sa))
	if l := len([]rune(sb)); l > longest {
		longest = l
	}
	return (longest - dist) * 100 / longest
}

// tokenSort lowercases s and rebuilds it from its sorted tokens.
func tokenSort(s string) string {
	tokens := strings.Fields(strings.ToLower(s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
