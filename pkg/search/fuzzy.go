package search

import (
	"strings"
	"unicode/utf8"
)

// FuzzyConfig bounds the cost of a fuzzy match
type FuzzyConfig struct {
	// MinMatchCharLength is the shortest pattern worth matching
	MinMatchCharLength int `json:"min_match_char_length"`
	// MaxPatternLength truncates longer patterns
	MaxPatternLength int `json:"max_pattern_length"`
}

// DefaultFuzzyConfig returns the standard fuzzy matching bounds
func DefaultFuzzyConfig() FuzzyConfig {
	return FuzzyConfig{
		MinMatchCharLength: 1,
		MaxPatternLength:   32,
	}
}

const (
	substringBonus  = 0.3
	wordPrefixBonus = 0.2
)

// FuzzyScore scores how well pattern matches text with the default
// bounds. See FuzzyConfig.Score.
func FuzzyScore(pattern, text string) float64 {
	return DefaultFuzzyConfig().Score(pattern, text)
}

// Score returns a similarity in [0,1], monotonically non-decreasing
// with textual similarity. The base score is a greedy left-to-right
// character alignment: hits / max(len(pattern), len(text)). Exact
// substring containment adds 0.3; otherwise a word of text starting
// with the pattern adds 0.2. Both bonuses are case-insensitive and the
// total is capped at 1.
//
// This is deliberately not an edit distance: prefix and substring hits
// beat edit-distance closeness, which is the right trade for short
// queries over a small in-memory corpus.
func (c FuzzyConfig) Score(pattern, text string) float64 {
	if pattern == "" && text == "" {
		return 1
	}
	if pattern == "" || text == "" {
		return 0
	}
	if utf8.RuneCountInString(pattern) < c.MinMatchCharLength {
		return 0
	}

	p := []rune(strings.ToLower(pattern))
	if c.MaxPatternLength > 0 && len(p) > c.MaxPatternLength {
		p = p[:c.MaxPatternLength]
	}
	t := []rune(strings.ToLower(text))

	// Greedy single-pass alignment
	hits := 0
	pi := 0
	for ti := 0; ti < len(t) && pi < len(p); ti++ {
		if t[ti] == p[pi] {
			hits++
			pi++
		}
	}

	longer := len(p)
	if len(t) > longer {
		longer = len(t)
	}
	score := float64(hits) / float64(longer)

	lowerPattern := string(p)
	lowerText := string(t)
	if strings.Contains(lowerText, lowerPattern) {
		score += substringBonus
	} else if anyWordHasPrefix(lowerText, lowerPattern) {
		score += wordPrefixBonus
	}

	if score > 1 {
		score = 1
	}
	return score
}

func anyWordHasPrefix(text, prefix string) bool {
	for _, word := range strings.Fields(text) {
		if strings.HasPrefix(word, prefix) {
			return true
		}
	}
	return false
}
