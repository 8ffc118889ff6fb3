package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/foliolabs/folio/pkg/content"
	"github.com/foliolabs/folio/pkg/logging"
)

// ItemSource supplies the read-only item collection a search pass runs
// over. The content store satisfies this.
type ItemSource interface {
	Snapshot() []content.Item
}

// Engine is the in-memory search and ranking engine. It filters,
// scores, ranks and highlights over an immutable snapshot; it never
// mutates the source collection.
type Engine struct {
	cfg    Config
	source ItemSource
	logger *logging.Logger
	cache  *resultCache

	metrics struct {
		mu        sync.Mutex
		searches  int64
		cacheHits int64
		avgMS     float64
	}
}

// NewEngine creates an engine over the given item source
func NewEngine(source ItemSource, cfg Config, logger *logging.Logger) *Engine {
	if cfg.DefaultLimit <= 0 {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.New(nil)
	}
	return &Engine{
		cfg:    cfg,
		source: source,
		logger: logger.WithComponent("search"),
		cache:  newResultCache(cfg.CacheSize, cfg.CacheTTL),
	}
}

// Search runs one pass of the pipeline: filter predicates, then (with a
// query) fuzzy/substring matching, then rank, highlight and paginate.
// Pure with respect to the snapshot: identical inputs yield identical
// output.
func (e *Engine) Search(ctx context.Context, req Request) (*Results, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	req.Query = strings.TrimSpace(req.Query)
	req.Limit = e.clampLimit(req.Limit)
	if req.Offset < 0 {
		req.Offset = 0
	}

	key := cacheKey(req)
	if cached, ok := e.cache.get(key); ok {
		e.recordCacheHit()
		return cached, nil
	}

	start := time.Now()

	items := e.visible(e.source.Snapshot())
	filtered := ApplyFilters(items, req.Filters)

	var matches []scored
	if req.Query == "" {
		matches = make([]scored, len(filtered))
		for i := range filtered {
			matches[i] = scored{item: &filtered[i]}
		}
	} else {
		matches = make([]scored, 0, len(filtered))
		for i := range filtered {
			score := e.scoreItem(&filtered[i], req.Query)
			if score >= e.cfg.MinScore {
				matches = append(matches, scored{item: &filtered[i], score: score})
			}
		}
	}

	if req.Sort == "date" {
		rank(matches, "")
	} else {
		rank(matches, req.Query)
	}

	total := len(matches)
	page := paginate(matches, req.Offset, req.Limit)

	results := make([]Result, len(page))
	for i, m := range page {
		results[i] = Result{
			Item:       *m.item,
			Score:      m.score,
			Highlights: buildHighlights(m.item, req.Query),
		}
	}

	resp := &Results{
		Query:        req.Query,
		Results:      results,
		TotalResults: total,
		Offset:       req.Offset,
		Limit:        req.Limit,
		Pagination:   Pagination{HasMore: req.Offset+len(results) < total},
		TimeTakenMS:  time.Since(start).Milliseconds(),
	}

	if req.Query != "" && total < e.cfg.SuggestThreshold {
		resp.Suggestions = suggestions(items, req.Query)
	}

	e.recordSearch(time.Since(start))
	e.cache.put(key, resp)
	return resp, nil
}

// Related returns the most related items for the item with the given
// id, excluding the item itself
func (e *Engine) Related(ctx context.Context, itemType content.ItemType, id string) ([]RelatedItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := e.visible(e.source.Snapshot())

	var current *content.Item
	for i := range items {
		if items[i].Type == itemType && items[i].ID == id {
			current = &items[i]
			break
		}
	}
	if current == nil {
		return nil, Error{Code: ErrItemNotFound.Code, Message: ErrItemNotFound.Message, Details: id}
	}

	return Related(items, current, e.cfg.Related), nil
}

// InvalidateCache drops all cached responses; call after a content
// reload
func (e *Engine) InvalidateCache() {
	e.cache.clear()
	e.logger.Debug("result cache cleared")
}

// Stats reports engine counters for the stats endpoint
func (e *Engine) Stats() map[string]interface{} {
	e.metrics.mu.Lock()
	defer e.metrics.mu.Unlock()
	return map[string]interface{}{
		"searches":      e.metrics.searches,
		"cache_hits":    e.metrics.cacheHits,
		"cache_entries": e.cache.size(),
		"avg_search_ms": e.metrics.avgMS,
		"indexed_items": len(e.source.Snapshot()),
	}
}

// visible drops unpublished posts unless drafts are enabled
func (e *Engine) visible(items []content.Item) []content.Item {
	if e.cfg.IncludeDrafts {
		return items
	}
	out := make([]content.Item, 0, len(items))
	for i := range items {
		if items[i].Type == content.TypePost && items[i].Post != nil && !items[i].Post.IsPublished() {
			continue
		}
		out = append(out, items[i])
	}
	return out
}

func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 {
		return e.cfg.DefaultLimit
	}
	if limit > e.cfg.MaxLimit {
		return e.cfg.MaxLimit
	}
	return limit
}

func paginate(matches []scored, offset, limit int) []scored {
	if offset >= len(matches) {
		return nil
	}
	end := offset + limit
	if end > len(matches) {
		end = len(matches)
	}
	return matches[offset:end]
}

func (e *Engine) recordSearch(duration time.Duration) {
	e.metrics.mu.Lock()
	defer e.metrics.mu.Unlock()

	e.metrics.searches++
	ms := float64(duration.Milliseconds())
	if e.metrics.avgMS == 0 {
		e.metrics.avgMS = ms
	} else {
		e.metrics.avgMS = (e.metrics.avgMS*float64(e.metrics.searches-1) + ms) / float64(e.metrics.searches)
	}
}

func (e *Engine) recordCacheHit() {
	e.metrics.mu.Lock()
	defer e.metrics.mu.Unlock()
	e.metrics.cacheHits++
}
