// Package eventlog keeps the terminal's access events, newest first, and
// fans them out to asynchronous sinks (journal database, event bus).
package eventlog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/smartlock-gate/internal/constants"
)

// Event is one access attempt record. Events are immutable once appended.
type Event struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	TerminalID string    `json:"terminal_id"`
	SessionID  string    `json:"session_id"`
	Identity   string    `json:"identity,omitempty"`
	State      string    `json:"state"`
	Kind       string    `json:"kind,omitempty"`
	Message    string    `json:"message"`
	Success    bool      `json:"success"`
	Similarity *float64  `json:"similarity,omitempty"`
}

// Sink receives a copy of every appended event.
type Sink interface {
	Record(ctx context.Context, e Event) error
}

// Log is a bounded, newest-first list of events.
type Log struct {
	mu       sync.RWMutex
	entries  []Event
	capacity int

	sinks  []Sink
	queue  chan Event
	logger *slog.Logger
	wg     sync.WaitGroup
	closed bool
}

// New creates a log holding at most capacity events. Sinks are fed from a
// background goroutine; call Close to flush them.
func New(capacity int, logger *slog.Logger, sinks ...Sink) *Log {
	if capacity <= 0 {
		capacity = constants.DefaultEventLogSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	l := &Log{
		capacity: capacity,
		sinks:    sinks,
		logger:   logger,
	}
	if len(sinks) > 0 {
		l.queue = make(chan Event, constants.SinkQueueSize)
		l.wg.Add(1)
		go l.dispatch()
	}
	return l
}

// Append prepends e and returns it with ID and Timestamp filled in.
func (l *Log) Append(e Event) Event {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make([]Event, 0, min(len(l.entries)+1, l.capacity))
	entries = append(entries, e)
	entries = append(entries, l.entries[:min(len(l.entries), l.capacity-1)]...)
	l.entries = entries

	if l.queue != nil && !l.closed {
		select {
		case l.queue <- e:
		default:
			l.logger.Warn("event sink queue full, dropping event", "event_id", e.ID, "session_id", e.SessionID)
		}
	}
	return e
}

// Entries returns a copy of the events, newest first.
func (l *Log) Entries() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Event, len(l.entries))
	copy(out, l.entries)
	return out
}

// Session returns the events of one session, newest first.
func (l *Log) Session(sessionID string) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Event
	for _, e := range l.entries {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of stored events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Close stops accepting sink work and waits for queued events to be delivered.
func (l *Log) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	if l.queue != nil {
		close(l.queue)
	}
	l.mu.Unlock()
	l.wg.Wait()
}

func (l *Log) dispatch() {
	defer l.wg.Done()
	for e := range l.queue {
		for _, sink := range l.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), constants.SinkTimeout)
			if err := sink.Record(ctx, e); err != nil {
				l.logger.Warn("event sink failed", "event_id", e.ID, "error", err)
			}
			cancel()
		}
	}
}
