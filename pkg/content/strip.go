package content

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML reduces an HTML fragment to its text content. Markdown
// bodies are rendered elsewhere; search and excerpts only ever see
// plain text produced here.
func StripHTML(fragment string) string {
	if !strings.ContainsRune(fragment, '<') {
		return fragment
	}

	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return collapseWhitespace(b.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if isInvisible(string(name)) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if isInvisible(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(tokenizer.Text())
				b.WriteByte(' ')
			}
		}
	}
}

// MakeExcerpt returns up to maxLen characters of plain text, cut at a
// word boundary with a trailing ellipsis when truncated
func MakeExcerpt(fragment string, maxLen int) string {
	text := StripHTML(fragment)
	if len(text) <= maxLen {
		return text
	}

	cut := text[:maxLen]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ,;:") + "…"
}

func isInvisible(tag string) bool {
	switch tag {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
