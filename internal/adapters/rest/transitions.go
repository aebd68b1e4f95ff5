package rest

import (
	"net/http"

	"github.com/ewilliams-labs/setforge/internal/core/services"
)

// ScoreTransition handles POST /transitions/score
func (h *Handler) ScoreTransition(w http.ResponseWriter, r *http.Request) {
	var req services.ScoreTransitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.ScoreTransition(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// TransitionCandidates handles POST /transitions/candidates
func (h *Handler) TransitionCandidates(w http.ResponseWriter, r *http.Request) {
	var req services.CandidateQuery
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.QueryTransitionCandidates(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
