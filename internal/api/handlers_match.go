package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// handleMatch exposes the chapter ranking stage on its own, for tuning the
// similarity floors against a live corpus. Optional kind=keywords ranks the
// keyword labels instead.
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		jsonError(w, "q query parameter is required", http.StatusBadRequest)
		return
	}

	topK := s.cfg.RAG.ChapterTopK
	if v := r.URL.Query().Get("top_k"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			topK = n
		}
	}

	var scores any
	var err error
	if r.URL.Query().Get("kind") == "keywords" {
		scores, err = s.matcher.RankKeywords(r.Context(), query, topK)
	} else {
		scores, err = s.matcher.RankChapters(r.Context(), query, topK)
	}
	if err != nil {
		s.log.Error("match failed", "error", err)
		jsonError(w, "match failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"query":   query,
		"matches": scores,
	})
}
