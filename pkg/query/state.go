package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/foliolabs/folio/pkg/content"
	"github.com/foliolabs/folio/pkg/search"
)

// URL parameter names shared by the state mirror, the remote client and
// the HTTP handler.
const (
	paramQuery    = "q"
	paramType     = "type"
	paramCategory = "category"
	paramTags     = "tags"
	paramStatus   = "status"
	paramDateFrom = "dateFrom"
	paramDateTo   = "dateTo"
	paramSort     = "sort"
	paramLimit    = "limit"
	paramOffset   = "offset"
)

// EncodeState serializes a request into URL query parameters. Only
// non-default fields appear: empty strings and slices are omitted,
// multi-value groups are comma-joined, and a type set covering every
// variant encodes as no restriction at all. The zero request encodes to
// an empty value set.
func EncodeState(req search.Request) url.Values {
	v := url.Values{}

	if req.Query != "" {
		v.Set(paramQuery, req.Query)
	}

	if f := req.Filters; !f.IsZero() {
		if types := encodeTypes(f.Types); types != "" {
			v.Set(paramType, types)
		}
		if len(f.Categories) > 0 {
			v.Set(paramCategory, strings.Join(f.Categories, ","))
		}
		if len(f.Tags) > 0 {
			v.Set(paramTags, strings.Join(f.Tags, ","))
		}
		if len(f.Statuses) > 0 {
			v.Set(paramStatus, joinStatuses(f.Statuses))
		}
		if f.DateFrom != "" {
			v.Set(paramDateFrom, f.DateFrom)
		}
		if f.DateTo != "" {
			v.Set(paramDateTo, f.DateTo)
		}
	}

	if req.Sort != "" && req.Sort != "relevance" {
		v.Set(paramSort, req.Sort)
	}
	if req.Limit > 0 {
		v.Set(paramLimit, strconv.Itoa(req.Limit))
	}
	if req.Offset > 0 {
		v.Set(paramOffset, strconv.Itoa(req.Offset))
	}

	return v
}

// DecodeState reconstructs a request from URL query parameters, the
// inverse of EncodeState. Missing parameters yield the default: an
// absent type parameter means both variants, absent groups mean no
// restriction. Unknown type and status values are dropped rather than
// rejected, so a stale bookmark degrades instead of erroring.
func DecodeState(v url.Values) search.Request {
	req := search.Request{
		Query: v.Get(paramQuery),
		Sort:  v.Get(paramSort),
	}

	req.Filters.Types = decodeTypes(v.Get(paramType))
	req.Filters.Categories = splitList(v.Get(paramCategory))
	req.Filters.Tags = splitList(v.Get(paramTags))
	req.Filters.Statuses = decodeStatuses(v.Get(paramStatus))
	req.Filters.DateFrom = v.Get(paramDateFrom)
	req.Filters.DateTo = v.Get(paramDateTo)

	if n, err := strconv.Atoi(v.Get(paramLimit)); err == nil && n > 0 {
		req.Limit = n
	}
	if n, err := strconv.Atoi(v.Get(paramOffset)); err == nil && n > 0 {
		req.Offset = n
	}

	return req
}

// encodeTypes collapses the full variant set to "" so the default state
// stays out of the URL.
func encodeTypes(types []content.ItemType) string {
	if types == nil {
		return ""
	}
	hasPost, hasProject := false, false
	parts := make([]string, 0, len(types))
	for _, t := range types {
		switch t {
		case content.TypePost:
			hasPost = true
		case content.TypeProject:
			hasProject = true
		default:
			continue
		}
		parts = append(parts, string(t))
	}
	if hasPost && hasProject {
		return ""
	}
	return strings.Join(parts, ",")
}

func decodeTypes(raw string) []content.ItemType {
	if raw == "" {
		return nil
	}
	var types []content.ItemType
	for _, part := range splitList(raw) {
		switch t := content.ItemType(part); t {
		case content.TypePost, content.TypeProject:
			types = append(types, t)
		}
	}
	return types
}

func joinStatuses(statuses []content.ProjectStatus) string {
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

func decodeStatuses(raw string) []content.ProjectStatus {
	if raw == "" {
		return nil
	}
	var statuses []content.ProjectStatus
	for _, part := range splitList(raw) {
		if s := content.ProjectStatus(part); content.ValidStatus(s) {
			statuses = append(statuses, s)
		}
	}
	return statuses
}

// splitList splits a comma-joined parameter, trimming whitespace and
// dropping empty segments.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
