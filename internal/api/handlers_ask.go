package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

type askRequest struct {
	Query          string `json:"query"`
	PreviousAnswer string `json:"previous_answer,omitempty"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

// handleAsk runs the full answer pipeline for one question. Dead ends in
// the pipeline come back as 200 with a crafted message; only external-call
// failures surface as 502.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return
	}

	answer, err := s.engine.Answer(r.Context(), req.Query, req.PreviousAnswer)
	if err != nil {
		s.log.Error("answer failed", "error", err)
		jsonError(w, "answer failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(askResponse{Answer: answer})
}
