package index

import (
	"context"
	"testing"

	"github.com/foliolabs/folio/pkg/content"
	"github.com/foliolabs/folio/pkg/search"
)

func corpusItems() []content.Item {
	return []content.Item{
		{
			ID:       "go-generics",
			Type:     content.TypePost,
			Title:    "Understanding Go Generics",
			Tags:     []string{"go", "generics"},
			Category: "Tech",
			Post:     &content.PostFields{Slug: "go-generics", Content: "Type parameters arrived in Go 1.18.", Date: "2024-02-10"},
		},
		{
			ID:       "garden-notes",
			Type:     content.TypePost,
			Title:    "Garden Notes",
			Tags:     []string{"gardening"},
			Category: "Life",
			Post:     &content.PostFields{Slug: "garden-notes", Content: "Tomatoes and basil.", Date: "2024-03-01"},
		},
		{
			ID:      "tracer",
			Type:    content.TypeProject,
			Title:   "Path Tracer in Go",
			Tags:    []string{"go", "graphics"},
			Project: &content.ProjectFields{Description: "A toy renderer.", Status: content.StatusCompleted, Year: 2023},
		},
	}
}

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(Config{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ix.Close() })

	if err := ix.Rebuild(corpusItems()); err != nil {
		t.Fatal(err)
	}
	return ix
}

func TestIndexFullTextSearch(t *testing.T) {
	ix := openTestIndex(t)

	res, err := ix.Search(context.Background(), search.Request{Query: "generics"})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalResults != 1 || res.Results[0].Item.ID != "go-generics" {
		t.Fatalf("got %+v", res.Results)
	}
	if got := res.Results[0].Highlights["title"]; got != "Understanding Go <mark>Generics</mark>" {
		t.Fatalf("highlight = %q", got)
	}
}

func TestIndexMatchAllSortsByDate(t *testing.T) {
	ix := openTestIndex(t)

	res, err := ix.Search(context.Background(), search.Request{})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalResults != 3 {
		t.Fatalf("total = %d", res.TotalResults)
	}
	if res.Results[0].Item.ID != "garden-notes" {
		t.Fatalf("newest first expected, got %s", res.Results[0].Item.ID)
	}
}

func TestIndexFilters(t *testing.T) {
	ix := openTestIndex(t)

	t.Run("Types", func(t *testing.T) {
		res, err := ix.Search(context.Background(), search.Request{
			Filters: search.Filters{Types: []content.ItemType{content.TypeProject}},
		})
		if err != nil {
			t.Fatal(err)
		}
		if res.TotalResults != 1 || res.Results[0].Item.ID != "tracer" {
			t.Fatalf("got %+v", res.Results)
		}
	})

	t.Run("EmptyTypesMatchesNothing", func(t *testing.T) {
		res, err := ix.Search(context.Background(), search.Request{
			Filters: search.Filters{Types: []content.ItemType{}},
		})
		if err != nil {
			t.Fatal(err)
		}
		if res.TotalResults != 0 {
			t.Fatalf("empty type set returned %d", res.TotalResults)
		}
	})

	t.Run("Tags", func(t *testing.T) {
		res, err := ix.Search(context.Background(), search.Request{
			Filters: search.Filters{Tags: []string{"Go"}},
		})
		if err != nil {
			t.Fatal(err)
		}
		if res.TotalResults != 2 {
			t.Fatalf("tag filter matched %d", res.TotalResults)
		}
	})

	t.Run("DateRange", func(t *testing.T) {
		res, err := ix.Search(context.Background(), search.Request{
			Filters: search.Filters{DateFrom: "2024-01-01", DateTo: "2024-02-28"},
		})
		if err != nil {
			t.Fatal(err)
		}
		if res.TotalResults != 1 || res.Results[0].Item.ID != "go-generics" {
			t.Fatalf("got %+v", res.Results)
		}
	})
}

func TestIndexRebuildDropsRemovedItems(t *testing.T) {
	ix := openTestIndex(t)

	if err := ix.Rebuild(corpusItems()[:1]); err != nil {
		t.Fatal(err)
	}

	n, err := ix.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("doc count = %d after shrinking rebuild", n)
	}

	res, err := ix.Search(context.Background(), search.Request{Query: "tracer"})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalResults != 0 {
		t.Fatal("removed item still searchable")
	}
}

func TestIndexPagination(t *testing.T) {
	ix := openTestIndex(t)

	res, err := ix.Search(context.Background(), search.Request{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Results) != 2 || !res.Pagination.HasMore {
		t.Fatalf("page 1: %d results, hasMore=%v", len(res.Results), res.Pagination.HasMore)
	}

	res, err = ix.Search(context.Background(), search.Request{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Results) != 1 || res.Pagination.HasMore {
		t.Fatalf("page 2: %d results, hasMore=%v", len(res.Results), res.Pagination.HasMore)
	}
}
