// Package index provides an optional bleve-backed full-text index over
// the content collection. It implements the same Searcher contract as
// the in-memory engine, so the server can swap between them with a
// config flag; the index wins on large corpora and stemmed matching,
// the engine on zero setup.
package index

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/foliolabs/folio/pkg/content"
	"github.com/foliolabs/folio/pkg/logging"
	"github.com/foliolabs/folio/pkg/search"
)

// Config configures the full-text index.
type Config struct {
	// Path is the on-disk index location. Empty means an in-memory
	// index, rebuilt on every start.
	Path string `json:"path"`

	// MaxResults caps a single query window.
	MaxResults int `json:"max_results"`
}

// DefaultConfig returns an in-memory index configuration.
func DefaultConfig() Config {
	return Config{MaxResults: 200}
}

// document is the indexed projection of a content item.
type document struct {
	Kind     string    `json:"kind"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	Tags     []string  `json:"tags"`
	Category string    `json:"category"`
	Status   string    `json:"status"`
	Date     time.Time `json:"date"`
}

// Index is a bleve-backed Searcher. Rebuild replaces its contents from
// a content snapshot; Search serves the standard request shape.
type Index struct {
	cfg    Config
	logger *logging.Logger

	mu    sync.RWMutex
	idx   bleve.Index
	byKey map[string]content.Item
}

// Open opens or creates the index at the configured path, or an
// in-memory index when no path is set.
func Open(cfg Config, logger *logging.Logger) (*Index, error) {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultConfig().MaxResults
	}
	if logger == nil {
		logger = logging.New(nil)
	}

	var (
		idx bleve.Index
		err error
	)
	if cfg.Path == "" {
		idx, err = bleve.NewMemOnly(buildMapping())
	} else {
		idx, err = bleve.Open(cfg.Path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(cfg.Path, buildMapping())
		}
	}
	if err != nil {
		return nil, fmt.Errorf("opening search index: %w", err)
	}

	return &Index{
		cfg:    cfg,
		logger: logger.WithComponent("index"),
		idx:    idx,
		byKey:  make(map[string]content.Item),
	}, nil
}

func buildMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Store = true
	title.Analyzer = standard.Name
	doc.AddFieldMappingsAt("title", title)

	body := bleve.NewTextFieldMapping()
	body.Store = false
	body.Analyzer = standard.Name
	doc.AddFieldMappingsAt("body", body)

	keyword := func() *mapping.FieldMapping {
		f := bleve.NewTextFieldMapping()
		f.Store = true
		f.Analyzer = "keyword"
		return f
	}
	doc.AddFieldMappingsAt("kind", keyword())
	doc.AddFieldMappingsAt("tags", keyword())
	doc.AddFieldMappingsAt("category", keyword())
	doc.AddFieldMappingsAt("status", keyword())

	date := bleve.NewDateTimeFieldMapping()
	date.Store = true
	doc.AddFieldMappingsAt("date", date)

	im.AddDocumentMapping("item", doc)
	im.DefaultType = "item"
	return im
}

// Rebuild replaces the index contents with the given snapshot. Items
// that vanished from the snapshot are deleted.
func (ix *Index) Rebuild(items []content.Item) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	next := make(map[string]content.Item, len(items))
	batch := ix.idx.NewBatch()

	for _, it := range items {
		key := itemKey(&it)
		next[key] = it
		if err := batch.Index(key, toDocument(&it)); err != nil {
			return fmt.Errorf("indexing %s: %w", key, err)
		}
	}
	for key := range ix.byKey {
		if _, ok := next[key]; !ok {
			batch.Delete(key)
		}
	}

	if err := ix.idx.Batch(batch); err != nil {
		return fmt.Errorf("applying index batch: %w", err)
	}

	ix.byKey = next
	ix.logger.Infof("index rebuilt with %d items", len(items))
	return nil
}

// Search implements the Searcher contract over the full-text index.
func (ix *Index) Search(ctx context.Context, req search.Request) (*search.Results, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	req.Query = strings.TrimSpace(req.Query)
	if req.Limit <= 0 {
		req.Limit = 50
	}
	if req.Limit > ix.cfg.MaxResults {
		req.Limit = ix.cfg.MaxResults
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	sr := bleve.NewSearchRequestOptions(ix.buildQuery(req), req.Limit, req.Offset, false)
	if req.Sort == "date" || req.Query == "" {
		sr.SortBy([]string{"-date", "-_score"})
	} else {
		sr.SortBy([]string{"-_score", "-date"})
	}

	ix.mu.RLock()
	res, err := ix.idx.SearchInContext(ctx, sr)
	if err != nil {
		ix.mu.RUnlock()
		return nil, fmt.Errorf("index search: %w", err)
	}

	results := make([]search.Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		it, ok := ix.byKey[hit.ID]
		if !ok {
			continue
		}
		results = append(results, search.Result{
			Item:       it,
			Score:      hit.Score,
			Highlights: highlightItem(&it, req.Query),
		})
	}
	ix.mu.RUnlock()

	total := int(res.Total)
	return &search.Results{
		Query:        req.Query,
		Results:      results,
		TotalResults: total,
		Offset:       req.Offset,
		Limit:        req.Limit,
		Pagination:   search.Pagination{HasMore: req.Offset+len(results) < total},
		TimeTakenMS:  time.Since(start).Milliseconds(),
	}, nil
}

// buildQuery composes the free-text query and the filter predicates
// into one conjunction, mirroring the filter semantics of the
// in-memory engine.
func (ix *Index) buildQuery(req search.Request) query.Query {
	var base query.Query
	if req.Query == "" {
		base = bleve.NewMatchAllQuery()
	} else {
		match := bleve.NewMatchQuery(strings.ToLower(req.Query))
		match.SetField("title")
		match.SetBoost(2)

		body := bleve.NewMatchQuery(strings.ToLower(req.Query))
		body.SetField("body")

		prefix := bleve.NewPrefixQuery(strings.ToLower(req.Query))
		prefix.SetField("title")

		base = bleve.NewDisjunctionQuery(match, body, prefix)
	}

	parts := []query.Query{base}
	f := req.Filters

	if f.Types != nil {
		if len(f.Types) == 0 {
			// Explicitly deselecting every type matches nothing.
			return bleve.NewMatchNoneQuery()
		}
		parts = append(parts, termDisjunction("kind", typeStrings(f.Types)))
	}
	if len(f.Categories) > 0 {
		parts = append(parts, termDisjunction("category", lowerAll(f.Categories)))
	}
	if len(f.Tags) > 0 {
		parts = append(parts, termDisjunction("tags", lowerAll(f.Tags)))
	}
	if len(f.Statuses) > 0 {
		parts = append(parts, termDisjunction("status", statusStrings(f.Statuses)))
	}

	if from, to, ok := dateWindow(f.DateFrom, f.DateTo); ok {
		dr := bleve.NewDateRangeQuery(from, to)
		dr.SetField("date")
		parts = append(parts, dr)
	}

	if len(parts) == 1 {
		return base
	}
	return bleve.NewConjunctionQuery(parts...)
}

// Close releases the underlying index.
func (ix *Index) Close() error {
	return ix.idx.Close()
}

// DocCount reports the number of indexed items.
func (ix *Index) DocCount() (uint64, error) {
	return ix.idx.DocCount()
}

func itemKey(it *content.Item) string {
	return string(it.Type) + "/" + it.ID
}

func toDocument(it *content.Item) document {
	doc := document{
		Kind:     string(it.Type),
		Title:    it.Title,
		Body:     content.StripHTML(it.Body()),
		Tags:     lowerAll(it.Tags),
		Category: strings.ToLower(it.Category),
		Date:     it.EffectiveDate(),
	}
	if it.Project != nil {
		doc.Status = string(it.Project.Status)
	}
	return doc
}

func highlightItem(it *content.Item, q string) map[string]string {
	if q == "" {
		return nil
	}
	h := map[string]string{"title": search.Highlight(it.Title, q)}
	if it.Category != "" {
		h["category"] = search.Highlight(it.Category, q)
	}
	if excerpt := it.Excerpt(); excerpt != "" {
		h["excerpt"] = search.Highlight(excerpt, q)
	}
	return h
}

func termDisjunction(field string, values []string) query.Query {
	qs := make([]query.Query, len(values))
	for i, v := range values {
		tq := bleve.NewTermQuery(v)
		tq.SetField(field)
		qs[i] = tq
	}
	if len(qs) == 1 {
		return qs[0]
	}
	return bleve.NewDisjunctionQuery(qs...)
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}

func typeStrings(types []content.ItemType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func statusStrings(statuses []content.ProjectStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// dateWindow parses the inclusive filter bounds. A malformed bound is
// dropped, matching the engine's treatment of bad filter input.
func dateWindow(from, to string) (time.Time, time.Time, bool) {
	var start, end time.Time
	if from != "" {
		if t, err := content.ParseDate(from); err == nil {
			start = t
		}
	}
	if to != "" {
		if t, err := content.ParseDate(to); err == nil {
			end = t.Add(24*time.Hour - time.Nanosecond)
		}
	}
	if start.IsZero() && end.IsZero() {
		return start, end, false
	}
	if end.IsZero() {
		end = time.Now().AddDate(100, 0, 0)
	}
	return start, end, true
}
