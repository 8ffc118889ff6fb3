package search

import (
	"math"
	"testing"
	"time"

	"github.com/foliolabs/folio/pkg/content"
)

func TestTagSimilaritySymmetric(t *testing.T) {
	a := []string{"go", "search", "web"}
	b := []string{"Web", "rust"}

	ab := tagSimilarity(a, b)
	ba := tagSimilarity(b, a)
	if ab != ba {
		t.Fatalf("symmetry broken: %v vs %v", ab, ba)
	}
	if want := 1.0 / 4.0; math.Abs(ab-want) > 1e-9 {
		t.Fatalf("got %v, want %v", ab, want)
	}
}

func TestTagSimilarityEmptySets(t *testing.T) {
	if got := tagSimilarity(nil, []string{"go"}); got != 0 {
		t.Errorf("empty left set scored %v", got)
	}
	if got := tagSimilarity([]string{"go"}, nil); got != 0 {
		t.Errorf("empty right set scored %v", got)
	}
}

func TestCategorySimilarity(t *testing.T) {
	if got := categorySimilarity("Tech", "tech"); got != 1 {
		t.Errorf("case-insensitive equality scored %v", got)
	}
	if got := categorySimilarity("Tech", ""); got != 0 {
		t.Errorf("missing category scored %v", got)
	}
}

func TestTitleTokenSimilarityStripsShortWords(t *testing.T) {
	// "an" and "AI" fall under the 4-character cut on both sides.
	got := titleTokenSimilarity("Building an AI Tool", "AI Tool Development")
	want := 1.0 / 3.0 // {tool} over {building, tool, development}
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDateProximity(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	if got := dateProximity(base, base); got != 1 {
		t.Errorf("same-day proximity = %v", got)
	}
	if got := dateProximity(base, time.Time{}); got != 0 {
		t.Errorf("undated proximity = %v", got)
	}

	near := dateProximity(base, base.AddDate(0, 0, 10))
	far := dateProximity(base, base.AddDate(2, 0, 0))
	if near <= far {
		t.Errorf("decay not monotonic: near=%v far=%v", near, far)
	}
}

func TestRelatednessBlend(t *testing.T) {
	a := postIn("Tech", post("a", "Building an AI Tool", "2024-01-01", "ai", "nextjs"))
	b := postIn("Tech", post("b", "AI Tool Development", "2024-01-11", "ai", "nextjs"))

	score, reasons := Relatedness(&a, &b, DefaultRelatedConfig().Weights)

	if score <= 0.5 {
		t.Fatalf("closely related posts scored %v, want > 0.5", score)
	}

	haveReason := func(want string) bool {
		for _, r := range reasons {
			if r == want {
				return true
			}
		}
		return false
	}
	if !haveReason("Same category: Tech") {
		t.Errorf("missing category reason in %v", reasons)
	}
	if !haveReason("Shared tags: ai, nextjs") {
		t.Errorf("missing tag reason in %v", reasons)
	}
	if !haveReason("Published around the same time") {
		t.Errorf("missing date reason in %v", reasons)
	}
}

func TestRelatedExcludesSelf(t *testing.T) {
	items := []content.Item{
		postIn("Tech", post("self", "Go Internals", "2024-01-01", "go")),
		postIn("Tech", post("other", "Go Scheduling", "2024-02-01", "go")),
	}

	got := Related(items, &items[0], DefaultRelatedConfig())
	for _, r := range got {
		if r.Item.ID == "self" {
			t.Fatal("item related to itself")
		}
	}
	if len(got) != 1 || got[0].Item.ID != "other" {
		t.Fatalf("got %v", got)
	}
}

func TestRelatedAppliesFloorAndCap(t *testing.T) {
	current := postIn("Tech", post("cur", "Concurrency Patterns", "2024-01-01", "go", "concurrency"))

	items := []content.Item{current}
	for _, id := range []string{"a", "b", "c", "d"} {
		items = append(items, postIn("Tech", post(id, "Concurrency Patterns Again", "2024-01-05", "go", "concurrency")))
	}
	// Disjoint on every axis, stays under the floor.
	items = append(items, post("noise", "Tax Notes", "", "finance"))

	got := Related(items, &current, DefaultRelatedConfig())

	if len(got) != 3 {
		t.Fatalf("got %d results, want MaxResults cap of 3", len(got))
	}
	for _, r := range got {
		if r.Item.ID == "noise" {
			t.Error("below-floor item surfaced")
		}
	}
}

func TestRelatedSortedByScoreDescending(t *testing.T) {
	current := postIn("Tech", post("cur", "Search Engines", "2024-01-01", "search", "go"))
	items := []content.Item{
		current,
		post("weak", "Search Notes", "2020-01-01"),
		postIn("Tech", post("strong", "Search Engines in Go", "2024-01-03", "search", "go")),
	}

	got := Related(items, &current, DefaultRelatedConfig())
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Fatalf("not sorted: %v then %v", got[i-1].Score, got[i].Score)
		}
	}
	if len(got) == 0 || got[0].Item.ID != "strong" {
		t.Fatalf("strongest candidate not first: %v", got)
	}
}
