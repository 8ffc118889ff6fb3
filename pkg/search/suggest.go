package search

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/foliolabs/folio/pkg/content"
)

// Suggestion tuning: only bother for queries long enough that a typo is
// plausible, and only offer close corrections.
const (
	suggestMinQueryLen   = 4
	suggestMinSimilarity = 0.6
	suggestMax           = 3
)

// suggestions proposes likely-intended terms for a query that returned
// few results, by edit-distance similarity against the vocabulary of
// titles and tags
func suggestions(items []content.Item, query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if len(query) < suggestMinQueryLen {
		return nil
	}

	type candidate struct {
		term  string
		score float32
	}

	seen := make(map[string]struct{})
	var ranked []candidate

	for _, term := range vocabulary(items) {
		if term == query {
			// The query already matches a real term; a correction
			// would only confuse.
			return nil
		}
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}

		sim, err := edlib.StringsSimilarity(query, term, edlib.DamerauLevenshtein)
		if err != nil || sim < suggestMinSimilarity {
			continue
		}
		ranked = append(ranked, candidate{term: term, score: sim})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if len(ranked) > suggestMax {
		ranked = ranked[:suggestMax]
	}
	out := make([]string, len(ranked))
	for i, c := range ranked {
		out[i] = c.term
	}
	return out
}

// vocabulary collects lowercased title words and tags worth suggesting
func vocabulary(items []content.Item) []string {
	var terms []string
	for i := range items {
		for _, word := range strings.Fields(strings.ToLower(items[i].Title)) {
			if len(word) >= suggestMinQueryLen {
				terms = append(terms, strings.Trim(word, ".,!?:;\"'()"))
			}
		}
		for _, tag := range items[i].Tags {
			terms = append(terms, strings.ToLower(tag))
		}
	}
	return terms
}
