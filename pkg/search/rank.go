package search

import (
	"html"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/foliolabs/folio/pkg/content"
)

// scored pairs an item with its relevance score during ranking
type scored struct {
	item  *content.Item
	score float64
}

// scoreItem computes the relevance of an item for a non-empty query.
// The title dominates; body, tags and category contribute weaker
// signals so a title miss can still surface an item.
func (e *Engine) scoreItem(it *content.Item, query string) float64 {
	lowerQuery := strings.ToLower(query)

	score := e.cfg.Fuzzy.Score(query, it.Title)

	if body := it.Body(); body != "" {
		if strings.Contains(strings.ToLower(body), lowerQuery) {
			score = maxf(score, 0.5)
		}
	}
	if excerpt := it.Excerpt(); excerpt != "" {
		if strings.Contains(strings.ToLower(excerpt), lowerQuery) {
			score = maxf(score, 0.5)
		}
	}
	for _, tag := range it.Tags {
		lowerTag := strings.ToLower(tag)
		if lowerTag == lowerQuery {
			score = maxf(score, 0.6)
		} else if strings.HasPrefix(lowerTag, lowerQuery) {
			score = maxf(score, 0.4)
		}
	}
	if it.Category != "" && strings.Contains(strings.ToLower(it.Category), lowerQuery) {
		score = maxf(score, 0.3)
	}

	return score
}

// rank orders matches in place: with a query, title-substring hits sort
// first; within each group the effective date descends, undated items
// last. The sort is stable so filter-stage order breaks remaining ties.
func rank(matches []scored, query string) {
	lowerQuery := strings.ToLower(query)

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]

		if query != "" {
			aTitle := strings.Contains(strings.ToLower(a.item.Title), lowerQuery)
			bTitle := strings.Contains(strings.ToLower(b.item.Title), lowerQuery)
			if aTitle != bTitle {
				return aTitle
			}
		}

		return a.item.EffectiveDate().After(b.item.EffectiveDate())
	})
}

// Highlight HTML-escapes text and wraps every case-insensitive
// occurrence of query in a <mark> tag, preserving the original case of
// the matched text. Matching runs on the escaped text so neither the
// query nor the content can smuggle markup past the wrapper. An empty
// query returns the escaped text unchanged.
//
// Callers must always pass the original unmarked field; feeding a
// highlighted string back through would mark the markup.
func Highlight(text, query string) string {
	escaped := html.EscapeString(text)
	if query == "" || text == "" {
		return escaped
	}

	needle := html.EscapeString(query)

	var b strings.Builder
	pos := 0
	for pos < len(escaped) {
		start, end := foldIndex(escaped[pos:], needle)
		if start < 0 {
			break
		}
		b.WriteString(escaped[pos : pos+start])
		b.WriteString("<mark>")
		b.WriteString(escaped[pos+start : pos+end])
		b.WriteString("</mark>")
		pos += end
	}
	b.WriteString(escaped[pos:])
	return b.String()
}

// foldIndex locates the first case-insensitive occurrence of needle in
// s and returns its byte bounds within s. Offsets always index s
// itself, never a lowered copy, so case pairs whose UTF-8 encodings
// differ in length cannot skew the slice.
func foldIndex(s, needle string) (int, int) {
	for start := 0; start < len(s); {
		if n, ok := foldPrefix(s[start:], needle); ok {
			return start, start + n
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		start += size
	}
	return -1, -1
}

// foldPrefix reports whether s starts with needle under simple case
// folding, and the byte length of the matched prefix of s.
func foldPrefix(s, needle string) (int, bool) {
	n := 0
	for _, want := range needle {
		r, size := utf8.DecodeRuneInString(s[n:])
		if size == 0 || unicode.ToLower(r) != unicode.ToLower(want) {
			return 0, false
		}
		n += size
	}
	return n, true
}

// buildHighlights annotates the displayable fields of an item. With an
// empty query the fields pass through (escaped) untouched, so the map
// is omitted entirely.
func buildHighlights(it *content.Item, query string) map[string]string {
	if query == "" {
		return nil
	}

	h := make(map[string]string, 4)
	h["title"] = Highlight(it.Title, query)
	if it.Category != "" {
		h["category"] = Highlight(it.Category, query)
	}
	if body := it.Body(); body != "" {
		h["content"] = Highlight(body, query)
	}
	if excerpt := it.Excerpt(); excerpt != "" && excerpt != it.Body() {
		h["excerpt"] = Highlight(excerpt, query)
	}
	return h
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
