package query

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/foliolabs/folio/pkg/content"
	"github.com/foliolabs/folio/pkg/logging"
	"github.com/foliolabs/folio/pkg/search"
)

// Snapshot is the observable state of a session at one point in time.
type Snapshot struct {
	Query   string
	Filters search.Filters
	Results []search.Result
	Total   int
	HasMore bool
	Loading bool
	Err     string
}

// SessionConfig configures a search session.
type SessionConfig struct {
	// DebounceDelay is the quiet period before a query edit commits.
	DebounceDelay time.Duration

	// PageSize is the window size for incremental loading.
	PageSize int

	// OnUpdate is called with a fresh snapshot after every applied
	// state change. Optional.
	OnUpdate func(Snapshot)

	// OnStateChange mirrors committed filter state as URL parameters,
	// called after every filter or query commit. Optional.
	OnStateChange func(url.Values)
}

// Session drives the interactive search flow: it debounces query
// edits, keeps the committed filter state, mirrors it to the URL,
// pages through results and talks to a Searcher. Every filter mutation
// rewinds to the first page and replaces the accumulated results;
// LoadMore appends the next page instead.
//
// Responses carry a sequence number taken at dispatch. A response is
// applied only if no newer request has been issued since, so a slow
// early response can never clobber the results of a later one.
type Session struct {
	cfg       SessionConfig
	searcher  search.Searcher
	logger    *logging.Logger
	debouncer *Debouncer

	mu      sync.Mutex
	req     search.Request
	pager   *Pager
	results []search.Result
	total   int
	errMsg  string
	issued  uint64

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession creates a session seeded from the given URL parameters
// (pass nil for defaults) and runs the initial search pass.
func NewSession(searcher search.Searcher, cfg SessionConfig, logger *logging.Logger, initial url.Values) *Session {
	if logger == nil {
		logger = logging.New(nil)
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}

	req := search.Request{}
	if initial != nil {
		req = DecodeState(initial)
	}
	req.Offset = 0

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:      cfg,
		searcher: searcher,
		logger:   logger.WithComponent("query"),
		req:      req,
		pager:    NewPager(cfg.PageSize),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.debouncer = NewDebouncer(cfg.DebounceDelay, s.commitQuery)

	s.mu.Lock()
	s.dispatchLocked(false)
	s.mu.Unlock()
	return s
}

// SetQueryInput records one keystroke of the query. The value commits
// after the debounce delay; intermediate values are dropped.
func (s *Session) SetQueryInput(q string) {
	s.debouncer.Update(q)
}

// SubmitQuery commits the pending query immediately.
func (s *Session) SubmitQuery() {
	s.debouncer.Flush()
}

func (s *Session) commitQuery(q string) {
	q = strings.TrimSpace(q)

	s.mu.Lock()
	if q == s.req.Query {
		s.mu.Unlock()
		return
	}
	s.req.Query = q
	s.resetLocked()
	s.mu.Unlock()

	s.mirror()
}

// SetTypes restricts results to the given variants. Nil means no
// restriction; an explicit empty set matches nothing.
func (s *Session) SetTypes(types []content.ItemType) {
	s.mutateFilters(func(f *search.Filters) { f.Types = types })
}

// SetCategories restricts results to the given categories.
func (s *Session) SetCategories(categories []string) {
	s.mutateFilters(func(f *search.Filters) { f.Categories = categories })
}

// SetTags restricts results to items carrying any of the given tags.
func (s *Session) SetTags(tags []string) {
	s.mutateFilters(func(f *search.Filters) { f.Tags = tags })
}

// SetStatuses restricts project results to the given statuses.
func (s *Session) SetStatuses(statuses []content.ProjectStatus) {
	s.mutateFilters(func(f *search.Filters) { f.Statuses = statuses })
}

// SetDateRange restricts results to the inclusive date window. Empty
// strings deactivate a bound.
func (s *Session) SetDateRange(from, to string) {
	s.mutateFilters(func(f *search.Filters) {
		f.DateFrom = from
		f.DateTo = to
	})
}

// SetSort switches between relevance and date ordering.
func (s *Session) SetSort(sort string) {
	s.mu.Lock()
	if sort == s.req.Sort {
		s.mu.Unlock()
		return
	}
	s.req.Sort = sort
	s.resetLocked()
	s.mu.Unlock()

	s.mirror()
}

func (s *Session) mutateFilters(apply func(*search.Filters)) {
	s.mu.Lock()
	apply(&s.req.Filters)
	s.resetLocked()
	s.mu.Unlock()

	s.mirror()
}

// LoadMore fetches the next page and appends it to the accumulated
// results. It is a silent no-op while a fetch is in flight or when
// every result has been loaded.
func (s *Session) LoadMore() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pager.TryAdvance() {
		return
	}

	s.issued++
	req := s.req
	req.Offset = s.pager.Offset()
	req.Limit = s.pager.Limit()
	go s.run(s.issued, req, true)
}

// Refresh re-runs the current filters from the first page. Call after
// the underlying content changes.
func (s *Session) Refresh() {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
}

// Snapshot returns a copy of the current observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close cancels any in-flight fetch and the pending debounce timer.
func (s *Session) Close() {
	s.debouncer.Cancel()
	s.cancel()
}

// resetLocked rewinds pagination and dispatches a replacing fetch.
// Callers hold the lock.
func (s *Session) resetLocked() {
	s.pager.Reset()
	s.dispatchLocked(false)
}

// dispatchLocked issues a fetch of the current window. Callers hold
// the lock.
func (s *Session) dispatchLocked(appendResults bool) {
	s.issued++
	s.pager.Begin()

	req := s.req
	req.Offset = s.pager.Offset()
	req.Limit = s.pager.Limit()
	go s.run(s.issued, req, appendResults)
}

func (s *Session) run(seq uint64, req search.Request, appendResults bool) {
	res, err := s.searcher.Search(s.ctx, req)

	s.mu.Lock()
	if seq != s.issued {
		// A newer request superseded this one; its response owns the
		// state now.
		s.mu.Unlock()
		return
	}

	if err != nil {
		s.logger.Warnf("search failed: %v", err)
		s.errMsg = "Search is temporarily unavailable. Please try again."
		s.results = nil
		s.total = 0
		s.pager.Fail()
		s.pager.Reset()
	} else {
		s.errMsg = ""
		if appendResults {
			s.results = append(s.results, res.Results...)
		} else {
			s.results = res.Results
		}
		s.total = res.TotalResults
		s.pager.Complete(len(res.Results), res.TotalResults)
	}

	snap := s.snapshotLocked()
	s.mu.Unlock()

	if s.cfg.OnUpdate != nil {
		s.cfg.OnUpdate(snap)
	}
}

func (s *Session) snapshotLocked() Snapshot {
	results := make([]search.Result, len(s.results))
	copy(results, s.results)
	return Snapshot{
		Query:   s.req.Query,
		Filters: s.req.Filters,
		Results: results,
		Total:   s.total,
		HasMore: s.pager.HasMore(),
		Loading: s.pager.Loading(),
		Err:     s.errMsg,
	}
}

// mirror publishes the committed filter state, without the transient
// page window, to the URL callback.
func (s *Session) mirror() {
	if s.cfg.OnStateChange == nil {
		return
	}

	s.mu.Lock()
	req := s.req
	s.mu.Unlock()

	req.Offset = 0
	req.Limit = 0
	s.cfg.OnStateChange(EncodeState(req))
}
