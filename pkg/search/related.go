package search

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/foliolabs/folio/pkg/content"
)

// RelatedWeights are the sub-score weights of the relatedness blend.
// They need not sum to 1, but the effective maximum score is their sum.
type RelatedWeights struct {
	Tags     float64 `json:"tags"`
	Category float64 `json:"category"`
	Title    float64 `json:"title"`
	Date     float64 `json:"date"`
}

// RelatedConfig configures related-content ranking
type RelatedConfig struct {
	Weights    RelatedWeights `json:"weights"`
	MinScore   float64        `json:"min_score"`
	MaxResults int            `json:"max_results"`
}

// DefaultRelatedConfig returns the standard relatedness configuration
func DefaultRelatedConfig() RelatedConfig {
	return RelatedConfig{
		Weights:    RelatedWeights{Tags: 0.4, Category: 0.3, Title: 0.2, Date: 0.1},
		MinScore:   0.1,
		MaxResults: 3,
	}
}

// Reason thresholds: a sub-score must clear its threshold before it is
// offered as an explanation.
const (
	reasonTagsMin  = 0.3
	reasonTitleMin = 0.2
	reasonDateMin  = 0.5
)

// dateDecayDays: items published within ~6 months score near 1,
// falling off exponentially.
const dateDecayDays = 180.0

// RelatedItem is a related-content candidate with its similarity and
// the human-readable reasons it matched
type RelatedItem struct {
	Item    content.Item `json:"item"`
	Score   float64      `json:"score"`
	Reasons []string     `json:"reasons,omitempty"`
}

// Relatedness scores how related two items are, in [0, sum(weights)],
// as a weighted blend of tag overlap, category equality, title-token
// overlap and date proximity. The reasons slice explains which factors
// cleared their thresholds.
func Relatedness(a, b *content.Item, w RelatedWeights) (float64, []string) {
	tagScore := tagSimilarity(a.Tags, b.Tags)
	catScore := categorySimilarity(a.Category, b.Category)
	titleScore := titleTokenSimilarity(a.Title, b.Title)
	dateScore := dateProximity(a.EffectiveDate(), b.EffectiveDate())

	score := tagScore*w.Tags + catScore*w.Category + titleScore*w.Title + dateScore*w.Date

	var reasons []string
	if catScore > 0 {
		reasons = append(reasons, fmt.Sprintf("Same category: %s", b.Category))
	}
	if tagScore > reasonTagsMin {
		reasons = append(reasons, fmt.Sprintf("Shared tags: %s", strings.Join(sharedTags(a.Tags, b.Tags), ", ")))
	}
	if titleScore > reasonTitleMin {
		reasons = append(reasons, "Similar topics")
	}
	if dateScore > reasonDateMin {
		reasons = append(reasons, "Published around the same time")
	}

	return score, reasons
}

// Related ranks the collection (minus current itself) by relatedness,
// keeping candidates at or above MinScore and truncating to MaxResults
func Related(items []content.Item, current *content.Item, cfg RelatedConfig) []RelatedItem {
	if cfg.MaxResults <= 0 {
		cfg = DefaultRelatedConfig()
	}

	candidates := make([]RelatedItem, 0, len(items))
	for i := range items {
		it := &items[i]
		if it.Type == current.Type && it.ID == current.ID {
			continue
		}

		score, reasons := Relatedness(current, it, cfg.Weights)
		if score < cfg.MinScore {
			continue
		}
		candidates = append(candidates, RelatedItem{Item: *it, Score: score, Reasons: reasons})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > cfg.MaxResults {
		candidates = candidates[:cfg.MaxResults]
	}
	return candidates
}

// tagSimilarity is the Jaccard index over the two tag sets,
// case-insensitive; 0 when either set is empty
func tagSimilarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	return jaccard(toSet(a), toSet(b))
}

func categorySimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if strings.EqualFold(a, b) {
		return 1
	}
	return 0
}

// titleTokenSimilarity is the Jaccard index over title words longer
// than 3 characters, lowercased with punctuation stripped
func titleTokenSimilarity(a, b string) float64 {
	ta := titleTokens(a)
	tb := titleTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	return jaccard(ta, tb)
}

// dateProximity decays exponentially with the gap in days; 0 when
// either item is undated
func dateProximity(a, b time.Time) float64 {
	if a.IsZero() || b.IsZero() {
		return 0
	}
	days := math.Abs(a.Sub(b).Hours()) / 24
	return math.Exp(-days / dateDecayDays)
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = struct{}{}
	}
	return set
}

// titleTokens splits a title into comparable tokens: lowercased words
// longer than 3 characters with punctuation stripped. Short stop-words
// fall out with the length cut.
func titleTokens(title string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(title)) {
		word = strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, word)
		if len(word) > 3 {
			tokens[word] = struct{}{}
		}
	}
	return tokens
}

// sharedTags returns the case-insensitive tag intersection, preserving
// the first item's casing and order
func sharedTags(a, b []string) []string {
	bSet := toSet(b)
	var shared []string
	for _, tag := range a {
		if _, ok := bSet[strings.ToLower(tag)]; ok {
			shared = append(shared, tag)
		}
	}
	return shared
}
