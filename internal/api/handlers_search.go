package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/dgallion1/dartgest/internal/search"
)

const (
	defaultSearchSize = 10
	maxSearchSize     = 100
)

// handleSearch runs a full-text query over every searchable index, or over
// the one named by ?index=.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.searcher == nil {
		jsonError(w, "search unavailable", http.StatusServiceUnavailable)
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		jsonError(w, "q is required", http.StatusBadRequest)
		return
	}

	indices := s.indices
	if name := r.URL.Query().Get("index"); name != "" {
		if !slices.Contains(s.indices, name) {
			jsonError(w, "unknown index: "+name, http.StatusBadRequest)
			return
		}
		indices = []string{name}
	}

	size := defaultSearchSize
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "size must be a positive integer", http.StatusBadRequest)
			return
		}
		size = min(n, maxSearchSize)
	}

	res, err := s.searcher.Search(r.Context(), indices, q, size)
	if err != nil {
		s.log.Error("search failed", "query", q, "error", err)
		status := http.StatusBadGateway
		if search.IsTransient(err) {
			status = http.StatusServiceUnavailable
		}
		jsonError(w, "search failed: "+err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}
