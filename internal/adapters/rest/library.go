package rest

import (
	"net/http"
	"strings"

	"github.com/ewilliams-labs/setforge/internal/worker"
)

type importRequest struct {
	Paths        []string `json:"paths"`
	PlaylistID   string   `json:"playlist_id,omitempty"`
	PlaylistName string   `json:"playlist_name,omitempty"`
}

type importResponse struct {
	Queued  int      `json:"queued"`
	Dropped []string `json:"dropped,omitempty"`
}

// ImportLibrary handles POST /library/import. Files are read in the
// background; the response only says which paths were queued.
func (h *Handler) ImportLibrary(w http.ResponseWriter, r *http.Request) {
	if h.importer == nil {
		writeError(w, http.StatusNotImplemented, "library import not configured")
		return
	}

	var req importRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Paths) == 0 {
		writeError(w, http.StatusBadRequest, "paths must include at least one file")
		return
	}

	resp := importResponse{}
	for _, path := range req.Paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		job := worker.Job{Path: path, PlaylistID: req.PlaylistID, PlaylistName: req.PlaylistName}
		if h.importer.Submit(job) {
			resp.Queued++
		} else {
			resp.Dropped = append(resp.Dropped, path)
		}
	}
	writeJSON(w, http.StatusAccepted, resp)
}
