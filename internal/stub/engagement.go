package stub

import (
	"net/http"
	"strconv"

	"github.com/SolomonGao/UniPick-sub000/pkg/models"
)

func (s *Server) recordView(w http.ResponseWriter, r *http.Request) {
	a, _ := accountFromContext(r.Context())

	id, ok := itemID(w, r)
	if !ok {
		return
	}
	count, err := s.cat.noteView(a.ID, id)
	if err != nil {
		writeItemNotFound(w, id)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]int{"view_count": count})
}

func (s *Server) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	a, _ := accountFromContext(r.Context())

	id, ok := itemID(w, r)
	if !ok {
		return
	}
	favorited, err := s.cat.toggleFavorite(a.ID, id)
	if err != nil {
		writeItemNotFound(w, id)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]bool{"is_favorited": favorited})
}

func (s *Server) itemStats(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	// Anonymous callers still get counts; is_favorited is theirs
	// only when signed in.
	userID := ""
	if a, ok := accountFromContext(r.Context()); ok {
		userID = a.ID
	}

	stats, err := s.cat.listingStats(id, userID)
	if err != nil {
		writeItemNotFound(w, id)
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}

func (s *Server) listFavorites(w http.ResponseWriter, r *http.Request) {
	a, _ := accountFromContext(r.Context())
	skip, limit, ok := parsePageParams(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, summariesOf(pageOf(s.cat.favoriteListings(a.ID), skip, limit)))
}

func (s *Server) listViewHistory(w http.ResponseWriter, r *http.Request) {
	a, _ := accountFromContext(r.Context())
	skip, limit, ok := parsePageParams(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, summariesOf(pageOf(s.cat.historyListings(a.ID), skip, limit)))
}

// parsePageParams validates skip and limit with the same bounds the
// items list enforces. Defaults: skip 0, limit 50.
func parsePageParams(w http.ResponseWriter, r *http.Request) (skip, limit int, ok bool) {
	skip, limit = 0, 50
	if v := r.URL.Query().Get("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeValidationError(w, queryViolation("skip", "Input should be a valid integer", "int_parsing"))
			return 0, 0, false
		}
		if n < 0 {
			writeValidationError(w, queryViolation("skip", "Input should be greater than or equal to 0", "greater_than_equal"))
			return 0, 0, false
		}
		skip = n
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeValidationError(w, queryViolation("limit", "Input should be a valid integer", "int_parsing"))
			return 0, 0, false
		}
		if n < 1 {
			writeValidationError(w, queryViolation("limit", "Input should be greater than or equal to 1", "greater_than_equal"))
			return 0, 0, false
		}
		if n > 100 {
			writeValidationError(w, queryViolation("limit", "Input should be less than or equal to 100", "less_than_equal"))
			return 0, 0, false
		}
		limit = n
	}
	return skip, limit, true
}

func pageOf(ls []listing, skip, limit int) []listing {
	if skip >= len(ls) {
		return nil
	}
	ls = ls[skip:]
	if limit < len(ls) {
		ls = ls[:limit]
	}
	return ls
}

func summariesOf(ls []listing) []models.ItemSummary {
	out := make([]models.ItemSummary, 0, len(ls))
	for _, l := range ls {
		out = append(out, summaryOf(l))
	}
	return out
}
