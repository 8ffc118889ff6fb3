package search

import (
	"context"
	"time"

	"github.com/foliolabs/folio/pkg/content"
)

// Searcher is the search contract shared by the in-memory engine and
// the Bleve-backed index
type Searcher interface {
	Search(ctx context.Context, req Request) (*Results, error)
}

// Request is a single search pass: free text plus structured filters
// plus a page window
type Request struct {
	Query   string  `json:"query,omitempty"`
	Filters Filters `json:"filters"`
	Limit   int     `json:"limit,omitempty"`
	Offset  int     `json:"offset,omitempty"`
	Sort    string  `json:"sort,omitempty"` // "relevance" (default) or "date"
}

// Filters is the structured filter state driving a search pass.
//
// Types distinguishes nil from empty: nil means "no restriction"
// (filter absent), while an empty non-nil slice means the user
// deselected every type and matches nothing.
type Filters struct {
	Types      []content.ItemType      `json:"types,omitempty"`
	Categories []string                `json:"categories,omitempty"`
	Tags       []string                `json:"tags,omitempty"`
	Statuses   []content.ProjectStatus `json:"statuses,omitempty"`
	DateFrom   string                  `json:"dateFrom,omitempty"` // ISO-8601, inclusive
	DateTo     string                  `json:"dateTo,omitempty"`   // ISO-8601, inclusive
}

// IsZero reports whether no filter group is active
func (f Filters) IsZero() bool {
	return f.Types == nil && len(f.Categories) == 0 && len(f.Tags) == 0 &&
		len(f.Statuses) == 0 && f.DateFrom == "" && f.DateTo == ""
}

// Result is one matched item with its relevance score and highlighted
// display fields. Highlights map field names to HTML-escaped text with
// query occurrences wrapped in <mark> tags.
type Result struct {
	Item       content.Item      `json:"item"`
	Score      float64           `json:"score"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Pagination reports whether more results exist past the current page
type Pagination struct {
	HasMore bool `json:"hasMore"`
}

// Results is the wire shape shared by the HTTP endpoint and the remote
// client
type Results struct {
	Query        string     `json:"query"`
	Results      []Result   `json:"results"`
	TotalResults int        `json:"totalResults"`
	Offset       int        `json:"offset"`
	Limit        int        `json:"limit"`
	Pagination   Pagination `json:"pagination"`
	Suggestions  []string   `json:"suggestions,omitempty"`
	TimeTakenMS  int64      `json:"timeTakenMs"`
}

// Config configures the in-memory engine
type Config struct {
	Fuzzy    FuzzyConfig   `json:"fuzzy"`
	Related  RelatedConfig `json:"related"`
	MinScore float64       `json:"min_score"` // inclusion floor for scored matches

	DefaultLimit int `json:"default_limit"`
	MaxLimit     int `json:"max_limit"`

	CacheSize int           `json:"cache_size"`
	CacheTTL  time.Duration `json:"cache_ttl"`

	// IncludeDrafts lets unpublished posts into results; off for the
	// public site
	IncludeDrafts bool `json:"include_drafts"`

	// SuggestThreshold enables "did you mean" suggestions when a query
	// returns fewer results than this
	SuggestThreshold int `json:"suggest_threshold"`
}

// DefaultConfig returns the engine defaults
func DefaultConfig() Config {
	return Config{
		Fuzzy:            DefaultFuzzyConfig(),
		Related:          DefaultRelatedConfig(),
		MinScore:         0.2,
		DefaultLimit:     50,
		MaxLimit:         200,
		CacheSize:        256,
		CacheTTL:         5 * time.Minute,
		SuggestThreshold: 3,
	}
}

// Error is a search-related error with a machine-readable code
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e Error) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// Common search errors
var (
	ErrInvalidQuery  = Error{Code: "invalid_query", Message: "invalid search query"}
	ErrInvalidFilter = Error{Code: "invalid_filter", Message: "invalid filter"}
	ErrItemNotFound  = Error{Code: "item_not_found", Message: "item not found"}
	ErrRemote        = Error{Code: "remote", Message: "search request failed"}
)

// MaxQueryLen bounds accepted query strings.
const MaxQueryLen = 200

// Validate rejects requests no backend could serve meaningfully.
// Unknown filter values arriving as URL parameters are already dropped
// at decode time; this guards the programmatic path.
func (r Request) Validate() error {
	if len(r.Query) > MaxQueryLen {
		return Error{Code: ErrInvalidQuery.Code, Message: ErrInvalidQuery.Message, Details: "query exceeds maximum length"}
	}
	for _, t := range r.Filters.Types {
		if t != content.TypePost && t != content.TypeProject {
			return Error{Code: ErrInvalidFilter.Code, Message: ErrInvalidFilter.Message, Details: "unknown type " + string(t)}
		}
	}
	for _, st := range r.Filters.Statuses {
		if !content.ValidStatus(st) {
			return Error{Code: ErrInvalidFilter.Code, Message: ErrInvalidFilter.Message, Details: "unknown status " + string(st)}
		}
	}
	return nil
}
