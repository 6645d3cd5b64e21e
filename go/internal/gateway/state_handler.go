package gateway

import (
	"net/http"
	"strconv"

	"github.com/mcdev12/slotsync/go/internal/journal"
	"github.com/mcdev12/slotsync/go/internal/models"
	"github.com/mcdev12/slotsync/go/internal/queuesync"
	"github.com/rs/zerolog/log"
)

// ScreenProvider is the running screen the gateway serves.
type ScreenProvider interface {
	View() queuesync.View
	Allowed(action models.Action) error
	Dispatcher() *queuesync.Dispatcher
}

// StateHandler serves read-only screen state
type StateHandler struct {
	screen  ScreenProvider
	journal journal.Journal
}

func NewStateHandler(screen ScreenProvider, j journal.Journal) *StateHandler {
	return &StateHandler{
		screen:  screen,
		journal: j,
	}
}

// HandleGetScreenState handles GET /api/screen/state
func (h *StateHandler) HandleGetScreenState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.screen.View())
}

// HandleGetJournal handles GET /api/journal?limit=N
func (h *StateHandler) HandleGetJournal(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeJSON(w, http.StatusOK, []journal.Entry{})
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := h.journal.Recent(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to read action journal")
		http.Error(w, "Failed to read journal", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/screen/state", h.HandleGetScreenState)
	mux.HandleFunc("GET /api/journal", h.HandleGetJournal)
}
