package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/foliolabs/folio/pkg/comments"
	"github.com/foliolabs/folio/pkg/content"
	"github.com/foliolabs/folio/pkg/query"
	"github.com/foliolabs/folio/pkg/search"
)

type errorPayload struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warnf("writing response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorPayload{Error: msg})
}

// handleSearch serves one search pass. The query parameters are the
// same names the client-side state mirror writes, so a shared URL is
// directly replayable against the API.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req := query.DecodeState(r.URL.Query())

	results, err := s.opts.Searcher.Search(r.Context(), req)
	if err != nil {
		var serr search.Error
		if errors.As(err, &serr) &&
			(serr.Code == search.ErrInvalidQuery.Code || serr.Code == search.ErrInvalidFilter.Code) {
			s.writeError(w, http.StatusBadRequest, serr.Message)
			return
		}
		s.logger.Errorf("search failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

// handleRelated serves related-content suggestions for one item.
func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	itemType := content.ItemType(r.URL.Query().Get("type"))
	if itemType == "" {
		itemType = content.TypePost
	}

	related, err := s.opts.Engine.Related(r.Context(), itemType, id)
	if err != nil {
		var serr search.Error
		if errors.As(err, &serr) && serr.Code == search.ErrItemNotFound.Code {
			s.writeError(w, http.StatusNotFound, "item not found")
			return
		}
		s.logger.Errorf("related lookup failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "related lookup failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"related": related})
}

// handleItems is the filter-only listing: same filters as search, no
// free-text scoring.
func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	req := query.DecodeState(r.URL.Query())
	req.Query = ""
	req.Sort = "date"

	results, err := s.opts.Engine.Search(r.Context(), req)
	if err != nil {
		s.logger.Errorf("item listing failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	if s.opts.Comments == nil {
		s.writeError(w, http.StatusServiceUnavailable, "comments are disabled")
		return
	}

	slug := mux.Vars(r)["slug"]
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	list, err := s.opts.Comments.ListApproved(r.Context(), slug, limit, offset)
	if err != nil {
		s.logger.Errorf("listing comments: %v", err)
		s.writeError(w, http.StatusInternalServerError, "listing comments failed")
		return
	}
	if list == nil {
		list = []comments.Comment{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"comments": list})
}

type commentSubmission struct {
	Author string `json:"author"`
	Email  string `json:"email"`
	Body   string `json:"body"`
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	if s.opts.Comments == nil {
		s.writeError(w, http.StatusServiceUnavailable, "comments are disabled")
		return
	}

	var sub commentSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed comment body")
		return
	}

	created, err := s.opts.Comments.Create(r.Context(), &comments.Comment{
		Slug:   mux.Vars(r)["slug"],
		Author: sub.Author,
		Email:  sub.Email,
		Body:   sub.Body,
	})
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The submitter sees their comment's fate but not its internals.
	s.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":     created.ID,
		"status": created.Status,
	})
}

func (s *Server) handleAdminComments(w http.ResponseWriter, r *http.Request) {
	if s.opts.Comments == nil {
		s.writeError(w, http.StatusServiceUnavailable, "comments are disabled")
		return
	}

	status := comments.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = comments.StatusPending
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	list, err := s.opts.Comments.ListByStatus(r.Context(), status, limit, offset)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if list == nil {
		list = []comments.Comment{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"comments": list})
}

func (s *Server) handleSetCommentStatus(w http.ResponseWriter, r *http.Request) {
	if s.opts.Comments == nil {
		s.writeError(w, http.StatusServiceUnavailable, "comments are disabled")
		return
	}

	var body struct {
		Status comments.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed status body")
		return
	}

	id := mux.Vars(r)["id"]
	if err := s.opts.Comments.SetStatus(r.Context(), id, body.Status); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(body.Status)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"search": s.opts.Engine.Stats(),
	}
	if s.opts.Store != nil {
		stats["content_items"] = s.opts.Store.Len()
	}
	if s.opts.Limiter != nil {
		stats["rate_limit"] = s.opts.Limiter.Stats()
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.opts.Comments != nil {
		if err := s.opts.Comments.Ping(r.Context()); err != nil {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"reason": "database unreachable",
			})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
