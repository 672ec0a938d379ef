package rentals

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// Server exposes the on-demand sync surface: a single-property sync, a
// full batch trigger, and a property read-back. Authentication sits in
// front of this service and is not handled here.
type Server struct {
	repo   Repository
	syncer *Syncer
}

// NewServer builds the HTTP surface over the given repository and syncer.
func NewServer(repo Repository, syncer *Syncer) *Server {
	return &Server{repo: repo, syncer: syncer}
}

// Register mounts the API routes on the router.
func (s *Server) Register(r *mux.Router) {
	r.HandleFunc("/api/rentals/sync", s.handleSyncAll).Methods(http.MethodPost)
	r.HandleFunc("/api/rentals/{id}/sync", s.handleSyncOne).Methods(http.MethodPost)
	r.HandleFunc("/api/rentals/{id}", s.handleDescribe).Methods(http.MethodGet)
}

func (s *Server) handleSyncAll(w http.ResponseWriter, r *http.Request) {
	summary, err := s.syncer.SyncAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Unable to run sync pass")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSyncOne(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	prop, err := s.syncer.SyncOne(r.Context(), id)
	switch {
	case errors.Is(err, ErrPropertyNotFound):
		writeError(w, http.StatusNotFound, "Property not found")
	case errors.Is(err, ErrNoFeedURL):
		writeError(w, http.StatusBadRequest, "Missing iCal URL")
	case err != nil:
		slog.ErrorContext(r.Context(), "On-demand sync failed", "property_id", id, "error", err)
		writeError(w, http.StatusBadGateway, shortErrorMessage(err))
	default:
		writeJSON(w, http.StatusOK, map[string]any{"property": prop})
	}
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	prop, err := s.repo.DescribeProperty(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to describe property", "property_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Unable to load property")
		return
	}
	if prop == nil {
		writeError(w, http.StatusNotFound, "Property not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"property": prop})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
