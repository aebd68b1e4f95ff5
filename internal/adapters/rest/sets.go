package rest

import (
	"net/http"

	"github.com/ewilliams-labs/setforge/internal/core/services"
)

// BuildSet handles POST /sets
func (h *Handler) BuildSet(w http.ResponseWriter, r *http.Request) {
	var req services.BuildSetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.BuildSet(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
