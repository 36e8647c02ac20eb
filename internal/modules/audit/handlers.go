package audit

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers contains HTTP handlers for the audit API
type Handlers struct {
	repo *Repository
	log  zerolog.Logger
}

// NewHandlers creates a new audit handlers instance
func NewHandlers(repo *Repository, log zerolog.Logger) *Handlers {
	return &Handlers{
		repo: repo,
		log:  log.With().Str("handler", "audit").Logger(),
	}
}

// HandleListRecent returns the latest audit entries
// GET /api/audit?limit=100
func (h *Handlers) HandleListRecent(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)

	logs, err := h.repo.ListRecent(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list audit logs")
		http.Error(w, "Failed to list audit logs", http.StatusInternalServerError)
		return
	}

	if logs == nil {
		logs = []Log{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// HandleListByEntity returns entries for one entity
// GET /api/audit/{entityType}/{entityID}?limit=100
func (h *Handlers) HandleListByEntity(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	entityID, err := strconv.ParseInt(chi.URLParam(r, "entityID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid entity id", http.StatusBadRequest)
		return
	}

	logs, err := h.repo.ListByEntity(entityType, entityID, parseLimit(r))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list audit logs")
		http.Error(w, "Failed to list audit logs", http.StatusInternalServerError)
		return
	}

	if logs == nil {
		logs = []Log{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func parseLimit(r *http.Request) int {
	limit := 100
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil {
			limit = parsed
		}
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
