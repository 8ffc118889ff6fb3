package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/foliolabs/folio/pkg/content"
	"github.com/foliolabs/folio/pkg/logging"
)

type staticSource struct {
	items []content.Item
}

func (s *staticSource) Snapshot() []content.Item { return s.items }

func testEngine(items []content.Item) *Engine {
	logger := logging.New(&logging.Config{Level: logging.ErrorLevel})
	return NewEngine(&staticSource{items: items}, DefaultConfig(), logger)
}

func TestSearchFreeText(t *testing.T) {
	items := []content.Item{
		post("next-guide", "Next.js Guide", "2024-01-01", "react", "nextjs"),
		post("investing", "Value Investing 101", "2024-06-01", "finance"),
	}
	e := testEngine(items)

	res, err := e.Search(context.Background(), Request{Query: "next"})
	if err != nil {
		t.Fatal(err)
	}

	if res.TotalResults != 1 || len(res.Results) != 1 {
		t.Fatalf("got %d results, want exactly 1", res.TotalResults)
	}
	hit := res.Results[0]
	if hit.Item.ID != "next-guide" {
		t.Fatalf("wrong item: %s", hit.Item.ID)
	}
	if got := hit.Highlights["title"]; got != "<mark>Next</mark>.js Guide" {
		t.Fatalf("highlight = %q", got)
	}
	if res.Query != "next" {
		t.Errorf("echoed query = %q", res.Query)
	}
}

func TestSearchEmptyQueryReturnsAllByDate(t *testing.T) {
	items := []content.Item{
		post("old", "Older", "2022-01-01"),
		post("new", "Newer", "2024-01-01"),
	}
	e := testEngine(items)

	res, err := e.Search(context.Background(), Request{})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalResults != 2 {
		t.Fatalf("got %d results, want 2", res.TotalResults)
	}
	if res.Results[0].Item.ID != "new" {
		t.Fatalf("newest first expected, got %s", res.Results[0].Item.ID)
	}
	if res.Results[0].Highlights != nil {
		t.Error("empty query produced highlights")
	}
}

func TestSearchFiltersCombineWithQuery(t *testing.T) {
	items := []content.Item{
		postIn("Tech", post("a", "Go Tooling", "2024-01-01", "go")),
		postIn("Life", post("b", "Go Hiking", "2024-02-01")),
		project("p", "Go Renderer", 2024, content.StatusCompleted),
	}
	e := testEngine(items)

	res, err := e.Search(context.Background(), Request{
		Query:   "go",
		Filters: Filters{Types: []content.ItemType{content.TypePost}, Categories: []string{"tech"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalResults != 1 || res.Results[0].Item.ID != "a" {
		t.Fatalf("got %v", res.Results)
	}
}

func TestSearchExcludesDrafts(t *testing.T) {
	hidden := false
	draft := post("draft", "Draft Notes", "2024-01-01")
	draft.Post.Published = &hidden
	items := []content.Item{
		draft,
		post("live", "Live Notes", "2024-01-02"),
	}

	e := testEngine(items)
	res, err := e.Search(context.Background(), Request{Query: "notes"})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalResults != 1 || res.Results[0].Item.ID != "live" {
		t.Fatalf("draft leaked: %v", res.Results)
	}

	cfg := DefaultConfig()
	cfg.IncludeDrafts = true
	admin := NewEngine(&staticSource{items: items}, cfg, logging.New(&logging.Config{Level: logging.ErrorLevel}))
	res, err = admin.Search(context.Background(), Request{Query: "notes"})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalResults != 2 {
		t.Fatalf("admin engine hid drafts: %d results", res.TotalResults)
	}
}

func TestSearchPagination(t *testing.T) {
	var items []content.Item
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		items = append(items, post(id, "Entry "+id, fmt.Sprintf("2024-01-%02d", i+1)))
	}
	e := testEngine(items)

	first, err := e.Search(context.Background(), Request{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Results) != 2 || first.TotalResults != 5 {
		t.Fatalf("page 1: %d of %d", len(first.Results), first.TotalResults)
	}
	if !first.Pagination.HasMore {
		t.Fatal("page 1 should have more")
	}

	last, err := e.Search(context.Background(), Request{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatal(err)
	}
	if len(last.Results) != 1 {
		t.Fatalf("final page has %d results", len(last.Results))
	}
	if last.Pagination.HasMore {
		t.Fatal("final page claims more")
	}

	past, err := e.Search(context.Background(), Request{Limit: 2, Offset: 50})
	if err != nil {
		t.Fatal(err)
	}
	if len(past.Results) != 0 || past.Pagination.HasMore {
		t.Fatalf("offset past end: %v", past)
	}
}

func TestSearchLimitClamped(t *testing.T) {
	e := testEngine([]content.Item{post("a", "One", "2024-01-01")})

	res, err := e.Search(context.Background(), Request{Limit: 100000})
	if err != nil {
		t.Fatal(err)
	}
	if res.Limit != e.cfg.MaxLimit {
		t.Fatalf("limit %d not clamped to %d", res.Limit, e.cfg.MaxLimit)
	}

	res, err = e.Search(context.Background(), Request{Limit: -5})
	if err != nil {
		t.Fatal(err)
	}
	if res.Limit != e.cfg.DefaultLimit {
		t.Fatalf("negative limit became %d", res.Limit)
	}
}

func TestSearchCaching(t *testing.T) {
	e := testEngine([]content.Item{post("a", "Cached Entry", "2024-01-01")})
	req := Request{Query: "cached"}

	if _, err := e.Search(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Search(context.Background(), req); err != nil {
		t.Fatal(err)
	}

	stats := e.Stats()
	if hits := stats["cache_hits"].(int64); hits != 1 {
		t.Fatalf("cache hits = %d, want 1", hits)
	}

	e.InvalidateCache()
	if _, err := e.Search(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if hits := e.Stats()["cache_hits"].(int64); hits != 1 {
		t.Fatal("invalidated cache still served a hit")
	}
}

func TestSearchSuggestions(t *testing.T) {
	items := []content.Item{
		post("a", "Kubernetes Operators", "2024-01-01", "kubernetes"),
		post("b", "Kubernetes Networking", "2024-02-01", "kubernetes"),
	}
	e := testEngine(items)

	res, err := e.Search(context.Background(), Request{Query: "kubernets"})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalResults >= e.cfg.SuggestThreshold {
		t.Skipf("typo unexpectedly matched %d items", res.TotalResults)
	}
	found := false
	for _, s := range res.Suggestions {
		if s == "kubernetes" {
			found = true
		}
	}
	if !found {
		t.Fatalf("no suggestion for near-miss, got %v", res.Suggestions)
	}
}

func TestRelatedEndpoint(t *testing.T) {
	items := []content.Item{
		postIn("Tech", post("cur", "Building an AI Tool", "2024-01-01", "ai", "nextjs")),
		postIn("Tech", post("rel", "AI Tool Development", "2024-01-11", "ai", "nextjs")),
	}
	e := testEngine(items)

	got, err := e.Related(context.Background(), content.TypePost, "cur")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Item.ID != "rel" {
		t.Fatalf("got %v", got)
	}
	if got[0].Score <= 0.5 {
		t.Fatalf("relatedness %v, want > 0.5", got[0].Score)
	}

	_, err = e.Related(context.Background(), content.TypePost, "missing")
	var serr Error
	if !errors.As(err, &serr) || serr.Code != ErrItemNotFound.Code {
		t.Fatalf("want %s error, got %v", ErrItemNotFound.Code, err)
	}
}

func TestSearchRejectsInvalidRequests(t *testing.T) {
	e := testEngine([]content.Item{post("a", "A", "2024-01-01")})

	_, err := e.Search(context.Background(), Request{Query: strings.Repeat("x", MaxQueryLen+1)})
	var serr Error
	if !errors.As(err, &serr) || serr.Code != ErrInvalidQuery.Code {
		t.Fatalf("overlong query: want %s, got %v", ErrInvalidQuery.Code, err)
	}

	_, err = e.Search(context.Background(), Request{
		Filters: Filters{Statuses: []content.ProjectStatus{"abandoned"}},
	})
	if !errors.As(err, &serr) || serr.Code != ErrInvalidFilter.Code {
		t.Fatalf("unknown status: want %s, got %v", ErrInvalidFilter.Code, err)
	}

	_, err = e.Search(context.Background(), Request{
		Filters: Filters{Types: []content.ItemType{"page"}},
	})
	if !errors.As(err, &serr) || serr.Code != ErrInvalidFilter.Code {
		t.Fatalf("unknown type: want %s, got %v", ErrInvalidFilter.Code, err)
	}
}
