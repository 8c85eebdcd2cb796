package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/smartlock-gate/internal/constants"
	"github.com/kozaktomas/smartlock-gate/internal/eventlog"
	"github.com/kozaktomas/smartlock-gate/internal/gate"
	"github.com/kozaktomas/smartlock-gate/internal/imagesrc"
)

// Terminal is the part of *gate.Terminal the HTTP layer drives.
type Terminal interface {
	ID() string
	StartScan(src imagesrc.Source) (gate.Snapshot, error)
	CaptureFace(src imagesrc.Source) (gate.Snapshot, error)
	Cancel() (gate.Snapshot, error)
	Snapshot() gate.Snapshot
	AwaitSettled(ctx context.Context, id string) (gate.Snapshot, error)
	Subscribe() (<-chan gate.Snapshot, func())
	Events() []eventlog.Event
}

// GateHandler exposes the operator actions of one terminal.
type GateHandler struct {
	terminal     Terminal
	logger       *slog.Logger
	awaitTimeout time.Duration
	keepAlive    time.Duration
}

// NewGateHandler creates a new gate handler.
func NewGateHandler(terminal Terminal, logger *slog.Logger) *GateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GateHandler{
		terminal:     terminal,
		logger:       logger,
		awaitTimeout: constants.StatusAwaitTimeout,
		keepAlive:    constants.SSEKeepAlive,
	}
}

// statusForError maps terminal errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, gate.ErrBusy),
		errors.Is(err, gate.ErrNotAwaitingFace),
		errors.Is(err, gate.ErrNoActiveSession):
		return http.StatusConflict
	case errors.Is(err, gate.ErrUnknownSession):
		return http.StatusNotFound
	case errors.Is(err, gate.ErrTerminalClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// trigger reads the optional frame and runs one terminal action.
func (h *GateHandler) trigger(w http.ResponseWriter, r *http.Request, action string, run func(imagesrc.Source) (gate.Snapshot, error)) {
	src, err := readImageSource(r)
	if errors.Is(err, errImageTooLarge) {
		respondError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	if err != nil {
		h.logger.Warn("invalid trigger body", "action", action, "error", sanitizeForLog(err.Error()))
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	snap, err := run(src)
	if err != nil {
		h.logger.Info("trigger refused", "terminal", h.terminal.ID(), "action", action, "state", snap.State.String(), "error", err)
		respondJSON(w, statusForError(err), map[string]any{
			"error":  err.Error(),
			"status": snap,
		})
		return
	}
	respondJSON(w, http.StatusAccepted, snap)
}

// Scan starts a new session from an uploaded frame or the camera.
func (h *GateHandler) Scan(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, "scan", h.terminal.StartScan)
}

// Face submits the face frame of the session awaiting it.
func (h *GateHandler) Face(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, "face", h.terminal.CaptureFace)
}

// Cancel abandons the current session.
func (h *GateHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	snap, err := h.terminal.Cancel()
	if err != nil {
		respondJSON(w, statusForError(err), map[string]any{
			"error":  err.Error(),
			"status": snap,
		})
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// Status returns the current snapshot. With ?await=<session_id> it blocks
// until that session settles or the await timeout passes.
func (h *GateHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("await")
	if id == "" {
		respondJSON(w, http.StatusOK, h.terminal.Snapshot())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.awaitTimeout)
	defer cancel()

	snap, err := h.terminal.AwaitSettled(ctx, id)
	switch {
	case errors.Is(err, gate.ErrUnknownSession):
		respondError(w, http.StatusNotFound, "session not found")
	case err != nil && r.Context().Err() != nil:
		// Client went away.
		return
	default:
		respondJSON(w, http.StatusOK, snap)
	}
}

// Events returns recent access events, newest first.
func (h *GateHandler) Events(w http.ResponseWriter, r *http.Request) {
	events := h.terminal.Events()

	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if limit < len(events) {
			events = events[:limit]
		}
	}
	if events == nil {
		events = []eventlog.Event{}
	}
	respondJSON(w, http.StatusOK, events)
}

// Stream pushes a "status" event on every state transition until the client
// disconnects or the terminal shuts down.
func (h *GateHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := setupSSEConnection(w)
	if !ok {
		return
	}

	updates, unsubscribe := h.terminal.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, "status", snap)
		case <-ticker.C:
			_, _ = io.WriteString(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}
