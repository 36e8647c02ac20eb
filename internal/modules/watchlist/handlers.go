package watchlist

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers contains HTTP handlers for the watchlist API
type Handlers struct {
	repo *Repository
	log  zerolog.Logger
}

// NewHandlers creates a new watchlist handlers instance
func NewHandlers(repo *Repository, log zerolog.Logger) *Handlers {
	return &Handlers{
		repo: repo,
		log:  log.With().Str("handler", "watchlist").Logger(),
	}
}

// HandleList returns all watched stocks
// GET /api/watchlist
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.repo.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list watchlist")
		http.Error(w, "Failed to list watchlist", http.StatusInternalServerError)
		return
	}

	if entries == nil {
		entries = []Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleAdd puts a stock on the watchlist
// POST /api/watchlist
func (h *Handlers) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var entry Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(entry.StockSymbol) == "" || strings.TrimSpace(entry.StockName) == "" {
		http.Error(w, "stock_symbol and stock_name are required", http.StatusBadRequest)
		return
	}

	if err := h.repo.Add(&entry); err != nil {
		if errors.Is(err, ErrAlreadyWatched) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		h.log.Error().Err(err).Str("symbol", entry.StockSymbol).Msg("Failed to add watchlist entry")
		http.Error(w, "Failed to add watchlist entry", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// HandleUpdateNotes replaces the notes on an entry
// PUT /api/watchlist/{id}
func (h *Handlers) HandleUpdateNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var body struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	updated, err := h.repo.UpdateNotes(id, body.Notes)
	if err != nil {
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to update watchlist notes")
		http.Error(w, "Failed to update watchlist notes", http.StatusInternalServerError)
		return
	}
	if !updated {
		http.Error(w, "Watchlist entry not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleRemove takes a stock off the watchlist
// DELETE /api/watchlist/{id}
func (h *Handlers) HandleRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	removed, err := h.repo.Remove(id)
	if err != nil {
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to remove watchlist entry")
		http.Error(w, "Failed to remove watchlist entry", http.StatusInternalServerError)
		return
	}
	if !removed {
		http.Error(w, "Watchlist entry not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
