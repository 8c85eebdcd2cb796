package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/smartlock-gate/internal/constants"
	"github.com/kozaktomas/smartlock-gate/internal/eventlog"
	"github.com/kozaktomas/smartlock-gate/internal/journal"
)

// JournalReader queries the persistent access journal.
type JournalReader interface {
	Recent(ctx context.Context, f journal.Filter, limit int) ([]eventlog.Event, error)
	Summarize(ctx context.Context, since time.Time) (*journal.Summary, error)
}

// JournalHandler serves the persistent access history.
type JournalHandler struct {
	journal JournalReader
	logger  *slog.Logger
}

// NewJournalHandler creates a new journal handler.
func NewJournalHandler(j JournalReader, logger *slog.Logger) *JournalHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &JournalHandler{journal: j, logger: logger}
}

// List handles GET /journal?limit=&identity=&terminal=&granted=&since=.
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := constants.DefaultJournalLimit
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > constants.MaxJournalLimit {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	f := journal.Filter{
		Identity:   q.Get("identity"),
		TerminalID: q.Get("terminal"),
	}
	if s := q.Get("granted"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid granted")
			return
		}
		f.Success = &b
	}
	if s := q.Get("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid since, expected RFC 3339")
			return
		}
		f.Since = since
	}

	events, err := h.journal.Recent(r.Context(), f, limit)
	if err != nil {
		h.logger.Error("journal query failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to query journal")
		return
	}
	if events == nil {
		events = []eventlog.Event{}
	}
	respondJSON(w, http.StatusOK, events)
}

// Summary handles GET /journal/summary?days=N.
func (h *JournalHandler) Summary(w http.ResponseWriter, r *http.Request) {
	days := 1
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid days")
			return
		}
		days = n
	}

	sum, err := h.journal.Summarize(r.Context(), time.Now().AddDate(0, 0, -days))
	if err != nil {
		h.logger.Error("journal summary failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to summarize journal")
		return
	}
	respondJSON(w, http.StatusOK, sum)
}
