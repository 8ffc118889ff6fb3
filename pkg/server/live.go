package server

import (
	"net/http"
	"time"

	"github.com/foliolabs/folio/pkg/query"
	"github.com/foliolabs/folio/pkg/search"
)

// liveRequest is one inbound websocket frame: a keystroke's worth of
// query text, or a load-more signal.
type liveRequest struct {
	Query    string `json:"query"`
	LoadMore bool   `json:"loadMore,omitempty"`
}

// liveResponse is one outbound results frame.
type liveResponse struct {
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
	Total   int             `json:"totalResults"`
	HasMore bool            `json:"hasMore"`
	Err     string          `json:"error,omitempty"`
}

const liveDebounce = 250 * time.Millisecond

// handleLiveSearch streams search results over a websocket. Each query
// frame feeds the session's debouncer, so a typing burst costs one
// search; every applied result set goes back as one frame.
func (s *Server) handleLiveSearch(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates := make(chan query.Snapshot, 8)
	done := make(chan struct{})

	sess := query.NewSession(s.opts.Searcher, query.SessionConfig{
		DebounceDelay: liveDebounce,
		PageSize:      20,
		OnUpdate: func(snap query.Snapshot) {
			// Drop frames the writer cannot keep up with; the next
			// update supersedes them anyway.
			select {
			case updates <- snap:
			default:
			}
		},
	}, s.opts.Logger, nil)
	defer sess.Close()

	go func() {
		defer close(done)
		for {
			var req liveRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if req.LoadMore {
				sess.LoadMore()
				continue
			}
			sess.SetQueryInput(req.Query)
		}
	}()

	for {
		select {
		case snap := <-updates:
			resp := liveResponse{
				Query:   snap.Query,
				Results: snap.Results,
				Total:   snap.Total,
				HasMore: snap.HasMore,
				Err:     snap.Err,
			}
			if resp.Results == nil {
				resp.Results = []search.Result{}
			}
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
