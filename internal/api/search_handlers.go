package api

import (
	"net/http"
	"strconv"

	"github.com/amityvox/amityvox/internal/auth"
	"github.com/amityvox/amityvox/internal/search"
)

// handleSearchMessages handles GET /api/v1/search/messages?channelId=&q=&limit=&offset=.
// Results are scoped to the requesting user's primary language so a match
// only surfaces content already translated (or originally written) in a
// language the viewer can read.
func (s *Server) handleSearchMessages(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	query := r.URL.Query().Get("q")
	if query == "" {
		WriteError(w, http.StatusBadRequest, "missing_query", "q query parameter is required")
		return
	}
	channelID := r.URL.Query().Get("channelId")

	var viewerLanguage string
	if err := s.DB.Pool.QueryRow(r.Context(),
		`SELECT primary_language FROM users WHERE id = $1`, userID,
	).Scan(&viewerLanguage); err != nil {
		s.Logger.Error("loading viewer language for search failed", "error", err.Error())
		WriteError(w, http.StatusInternalServerError, "internal_error", "Search failed")
		return
	}

	limit, offset := parsePagination(r)

	result, err := s.Search.Search(r.Context(), search.SearchRequest{
		Query:     query,
		ChannelID: channelID,
		Language:  viewerLanguage,
		Limit:     int(limit),
		Offset:    int(offset),
	})
	if err != nil {
		s.Logger.Error("search query failed", "error", err.Error())
		WriteError(w, http.StatusInternalServerError, "search_failed", "Search failed")
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// parsePagination extracts limit/offset query parameters. limit defaults to
// 20 and resets to 20 if out of the (0, 100] range or unparseable; offset
// defaults to 0 and resets to 0 if negative or unparseable.
func parsePagination(r *http.Request) (limit, offset int64) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
