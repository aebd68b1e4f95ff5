// Package rest exposes the sequencer over JSON HTTP.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/ewilliams-labs/setforge/internal/core/domain"
	"github.com/ewilliams-labs/setforge/internal/core/services"
	"github.com/ewilliams-labs/setforge/internal/logging"
	"github.com/ewilliams-labs/setforge/internal/worker"
	"github.com/sirupsen/logrus"
)

// Importer accepts library import jobs without blocking.
type Importer interface {
	Submit(job worker.Job) bool
}

// Handler manages the HTTP interface for our application.
type Handler struct {
	svc      *services.Sequencer
	importer Importer
	router   *http.ServeMux
	log      *logrus.Entry
}

// NewHandler initializes the HTTP adapter and sets up routes. importer may
// be nil, in which case imports answer 501.
func NewHandler(svc *services.Sequencer, importer Importer) *Handler {
	h := &Handler{
		svc:      svc,
		importer: importer,
		router:   http.NewServeMux(),
		log:      logging.Component("http"),
	}
	h.routes()
	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.withRequestID(h.router).ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.router.HandleFunc("GET /health", h.HealthCheck)

	h.router.HandleFunc("POST /transitions/score", h.ScoreTransition)
	h.router.HandleFunc("POST /transitions/candidates", h.TransitionCandidates)
	h.router.HandleFunc("POST /sets", h.BuildSet)

	h.router.HandleFunc("POST /library/import", h.ImportLibrary)
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Component("http").WithError(err).Warn("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeErrorWithCode(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// writeServiceError maps service errors onto status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *domain.ValidationError
	var notFound domain.NotFoundError
	switch {
	case errors.As(err, &validation):
		writeErrorWithCode(w, http.StatusBadRequest, validation.Message, "INVALID_ARGUMENT")
	case errors.Is(err, domain.ErrInvalidArgument):
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), "INVALID_ARGUMENT")
	case errors.As(err, &notFound):
		writeErrorWithCode(w, http.StatusNotFound, notFound.Error(), "NOT_FOUND")
	case errors.Is(err, domain.ErrNotFound):
		writeErrorWithCode(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	default:
		requestLogger(r).WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func isJSONContentType(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// decodeJSON enforces the content type and decodes the body into v. It
// writes the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return false
	}
	return true
}
