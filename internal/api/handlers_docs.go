package api

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
)

// handleListDocuments summarizes the indexed corpus per source: chunk count
// and the distinct chapters seen.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	metas, err := s.store.AllMetadata(r.Context())
	if err != nil {
		jsonError(w, "failed to scan store: "+err.Error(), http.StatusInternalServerError)
		return
	}

	type docSummary struct {
		Source   string   `json:"source"`
		Chunks   int      `json:"chunks"`
		Chapters []string `json:"chapters"`
	}
	bySource := make(map[string]*docSummary)
	chapterSeen := make(map[string]map[string]struct{})
	for _, m := range metas {
		d := bySource[m.Source]
		if d == nil {
			d = &docSummary{Source: m.Source}
			bySource[m.Source] = d
			chapterSeen[m.Source] = make(map[string]struct{})
		}
		d.Chunks++
		if m.Chapter != "" {
			if _, ok := chapterSeen[m.Source][m.Chapter]; !ok {
				chapterSeen[m.Source][m.Chapter] = struct{}{}
				d.Chapters = append(d.Chapters, m.Chapter)
			}
		}
	}

	docs := make([]*docSummary, 0, len(bySource))
	for _, d := range bySource {
		sort.Strings(d.Chapters)
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Source < docs[j].Source })

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"documents": docs})
}

// handleDeleteDocument removes every chunk belonging to a source.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	if source == "" {
		jsonError(w, "source is required", http.StatusBadRequest)
		return
	}

	if err := s.store.DeleteSource(r.Context(), source); err != nil {
		jsonError(w, "delete failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"deleted_source": source})
}
