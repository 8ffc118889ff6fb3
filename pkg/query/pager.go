package query

// Pager tracks the offset/limit window and the "has more" state for
// incremental loading. It is bookkeeping only, with no locking of its
// own; the session serializes access.
type Pager struct {
	limit    int
	offset   int
	fetched  int
	total    int
	inFlight bool
}

// NewPager creates a pager with the given page size.
func NewPager(limit int) *Pager {
	if limit <= 0 {
		limit = 50
	}
	return &Pager{limit: limit}
}

// Offset returns the offset of the window currently requested.
func (p *Pager) Offset() int { return p.offset }

// Limit returns the page size.
func (p *Pager) Limit() int { return p.limit }

// HasMore reports whether the source holds results past what has been
// fetched so far.
func (p *Pager) HasMore() bool { return p.fetched < p.total }

// Loading reports whether a fetch is currently in flight.
func (p *Pager) Loading() bool { return p.inFlight }

// Reset rewinds to the first page. Any fetch still in flight keeps its
// in-flight mark; the superseded response is discarded elsewhere.
func (p *Pager) Reset() {
	p.offset = 0
	p.fetched = 0
	p.total = 0
}

// Begin marks a fetch of the current window as in flight.
func (p *Pager) Begin() { p.inFlight = true }

// TryAdvance moves the window to the next page and marks it in flight.
// It is a no-op returning false while a fetch is pending or when no
// further results exist.
func (p *Pager) TryAdvance() bool {
	if p.inFlight || !p.HasMore() {
		return false
	}
	p.offset += p.limit
	p.inFlight = true
	return true
}

// Complete records a fetched page: how many results it added and the
// total the source reported.
func (p *Pager) Complete(added, total int) {
	p.inFlight = false
	p.fetched += added
	p.total = total
}

// Fail clears the in-flight mark after a failed fetch without touching
// the window. Callers decide whether to rewind or move on.
func (p *Pager) Fail() {
	p.inFlight = false
}
