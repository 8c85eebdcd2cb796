// Package gate implements the two-factor verification flow of an access
// terminal: a QR token identifies the person, a face capture confirms them.
//
// A Terminal owns exactly one session at a time. Trigger methods (StartScan,
// CaptureFace, Cancel) return immediately; capture, decoding and backend
// calls run on goroutines bound to the session's context. Results are
// applied only if the session that requested them is still current and in
// the step that issued them, so a late response of a cancelled or replaced
// session is dropped.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/smartlock-gate/internal/constants"
	"github.com/kozaktomas/smartlock-gate/internal/eventlog"
	"github.com/kozaktomas/smartlock-gate/internal/i18n"
	"github.com/kozaktomas/smartlock-gate/internal/imagesrc"
	"github.com/kozaktomas/smartlock-gate/internal/metrics"
)

// Options configures a Terminal. Decoder, Tokens and Faces are required.
type Options struct {
	TerminalID string
	Decoder    QRDecoder
	Tokens     TokenVerifier
	Faces      FaceVerifier
	// Camera is used when a trigger does not carry its own image.
	Camera  imagesrc.Source
	Log     *eventlog.Log
	Printer *i18n.Printer
	Metrics metrics.Recorder
	Logger  *slog.Logger
	// FaceWindow bounds how long a verified identity waits for a face
	// capture. Zero disables the limit.
	FaceWindow time.Duration
}

// Snapshot is a read-only view of the current session.
type Snapshot struct {
	TerminalID string    `json:"terminal_id"`
	SessionID  string    `json:"session_id,omitempty"`
	State      State     `json:"state"`
	Identity   string    `json:"identity,omitempty"`
	Status     string    `json:"status"`
	ErrorKind  Kind      `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	Similarity *float64  `json:"similarity,omitempty"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	UpdatedAt  time.Time `json:"updated_at,omitzero"`
	Err        error     `json:"-"`
}

type session struct {
	id         string
	state      State
	identity   string
	kind       Kind
	err        *SessionError
	similarity *float64
	status     string
	startedAt  time.Time
	updatedAt  time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	faceTimer *time.Timer
}

func (s *session) stopFaceTimer() {
	if s.faceTimer != nil {
		s.faceTimer.Stop()
		s.faceTimer = nil
	}
}

// Terminal is the gate session state machine of one physical terminal.
type Terminal struct {
	id         string
	decoder    QRDecoder
	tokens     TokenVerifier
	faces      FaceVerifier
	camera     imagesrc.Source
	log        *eventlog.Log
	printer    *i18n.Printer
	metrics    metrics.Recorder
	logger     *slog.Logger
	faceWindow time.Duration

	mu      sync.Mutex
	session *session
	changed chan struct{}
	subs    map[chan Snapshot]struct{}
	closed  bool
	wg      sync.WaitGroup
}

// NewTerminal creates an idle terminal.
func NewTerminal(opts Options) (*Terminal, error) {
	switch {
	case opts.Decoder == nil:
		return nil, fmt.Errorf("%w: QR decoder", ErrMissingComponent)
	case opts.Tokens == nil:
		return nil, fmt.Errorf("%w: token verifier", ErrMissingComponent)
	case opts.Faces == nil:
		return nil, fmt.Errorf("%w: face verifier", ErrMissingComponent)
	}

	t := &Terminal{
		id:         opts.TerminalID,
		decoder:    opts.Decoder,
		tokens:     opts.Tokens,
		faces:      opts.Faces,
		camera:     opts.Camera,
		log:        opts.Log,
		printer:    opts.Printer,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		faceWindow: opts.FaceWindow,
		changed:    make(chan struct{}),
		subs:       make(map[chan Snapshot]struct{}),
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	if t.log == nil {
		t.log = eventlog.New(constants.DefaultEventLogSize, t.logger)
	}
	if t.printer == nil {
		t.printer = i18n.New("pl", false)
	}
	if t.metrics == nil {
		t.metrics = metrics.Nop{}
	}
	return t, nil
}

// ID returns the terminal identifier.
func (t *Terminal) ID() string {
	return t.id
}

// Events returns the access events recorded by this terminal, newest first.
func (t *Terminal) Events() []eventlog.Event {
	return t.log.Entries()
}

// StartScan begins a new session: capture a frame from src (or the camera
// when src is nil), decode the QR token and verify it. It fails with ErrBusy
// while the current session has not reached a terminal state.
func (t *Terminal) StartScan(src imagesrc.Source) (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return t.snapshotLocked(), ErrTerminalClosed
	}
	if s := t.session; s != nil && !s.state.Terminal() {
		t.metrics.RecordBusy()
		return t.snapshotLocked(), ErrBusy
	}
	if src == nil {
		src = t.camera
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	s := &session{
		id:        uuid.NewString(),
		state:     StateIdle,
		startedAt: now,
		updatedAt: now,
		ctx:       ctx,
		cancel:    cancel,
	}
	t.session = s
	t.logger.Info("scan started", "terminal", t.id, "session_id", s.id)
	t.transitionLocked(s, StateScanningQR)

	t.wg.Add(1)
	go t.runScan(s, src)

	return t.snapshotLocked(), nil
}

// CaptureFace captures a face frame for the verified identity and sends it
// for verification. Only valid in StateAwaitingFace.
func (t *Terminal) CaptureFace(src imagesrc.Source) (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return t.snapshotLocked(), ErrTerminalClosed
	}
	s := t.session
	switch {
	case s == nil || s.state.Terminal():
		return t.snapshotLocked(), ErrNotAwaitingFace
	case s.state.InFlight():
		t.metrics.RecordBusy()
		return t.snapshotLocked(), ErrBusy
	case s.state != StateAwaitingFace || s.identity == "":
		return t.snapshotLocked(), ErrNotAwaitingFace
	}
	if src == nil {
		src = t.camera
	}

	s.stopFaceTimer()
	t.transitionLocked(s, StateFacePending)

	t.wg.Add(1)
	go t.runFace(s, s.identity, src)

	return t.snapshotLocked(), nil
}

// Cancel abandons the current session and cancels its in-flight call.
func (t *Terminal) Cancel() (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.session
	if s == nil || s.state.Terminal() {
		return t.snapshotLocked(), ErrNoActiveSession
	}
	t.logger.Info("session cancelled", "terminal", t.id, "session_id", s.id, "state", s.state.String())
	s.kind = KindCancelled
	t.transitionLocked(s, StateCancelled)
	return t.snapshotLocked(), nil
}

// Snapshot returns the state of the current session.
func (t *Terminal) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// AwaitSettled blocks until session id is no longer running a step, i.e. it
// is awaiting a face capture or has reached a terminal state.
func (t *Terminal) AwaitSettled(ctx context.Context, id string) (Snapshot, error) {
	for {
		t.mu.Lock()
		s := t.session
		if s == nil || s.id != id {
			snap := t.snapshotLocked()
			t.mu.Unlock()
			return snap, ErrUnknownSession
		}
		if !s.state.InFlight() {
			snap := t.snapshotLocked()
			t.mu.Unlock()
			return snap, nil
		}
		changed := t.changed
		t.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return t.Snapshot(), ctx.Err()
		}
	}
}

// Subscribe returns a channel receiving a snapshot after every transition,
// starting with the current one. Slow subscribers miss intermediate
// snapshots. The returned function unsubscribes and closes the channel.
func (t *Terminal) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, constants.EventChannelBuffer)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		close(ch)
		return ch, func() {}
	}
	t.subs[ch] = struct{}{}
	ch <- t.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if _, ok := t.subs[ch]; ok {
				delete(t.subs, ch)
				close(ch)
			}
		})
	}
}

// Close cancels the active session, closes subscriber channels and waits
// for running steps to return.
func (t *Terminal) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	if s := t.session; s != nil && !s.state.Terminal() {
		s.kind = KindCancelled
		t.transitionLocked(s, StateCancelled)
	}
	t.closed = true
	for ch := range t.subs {
		delete(t.subs, ch)
		close(ch)
	}
	t.mu.Unlock()

	t.wg.Wait()
}

func (t *Terminal) runScan(s *session, src imagesrc.Source) {
	defer t.wg.Done()

	if src == nil {
		t.failStep(s, StateScanningQR, ErrNoSource)
		return
	}
	bitmap, err := src.Capture(s.ctx)
	if err != nil {
		t.failStep(s, StateScanningQR, fmt.Errorf("capturing QR frame: %w", err))
		return
	}
	token, err := t.decoder.Decode(bitmap)
	if err != nil {
		t.failStep(s, StateScanningQR, err)
		return
	}

	t.mu.Lock()
	if !t.isCurrentLocked(s, StateScanningQR) {
		t.discardLocked(s, "decoded token")
		t.mu.Unlock()
		return
	}
	t.transitionLocked(s, StateTokenPending)
	t.mu.Unlock()

	outcome, err := t.tokens.VerifyToken(s.ctx, token)

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.isCurrentLocked(s, StateTokenPending) {
		t.discardLocked(s, "token verification")
		return
	}

	identity := strings.TrimSpace(outcome.Identity)
	switch {
	case err != nil:
		t.failLocked(s, err)
	case !outcome.Granted:
		t.failLocked(s, fmt.Errorf("%w: %s", ErrTokenRejected, outcome.Detail))
	case identity == "":
		t.failLocked(s, ErrNoIdentity)
	default:
		s.identity = identity
		t.logger.Info("token accepted", "terminal", t.id, "session_id", s.id, "identity", identity)
		t.transitionLocked(s, StateAwaitingFace)
		if t.faceWindow > 0 {
			s.faceTimer = time.AfterFunc(t.faceWindow, func() { t.expireFaceWindow(s) })
		}
	}
}

func (t *Terminal) runFace(s *session, identity string, src imagesrc.Source) {
	defer t.wg.Done()

	if src == nil {
		t.failStep(s, StateFacePending, ErrNoSource)
		return
	}
	bitmap, err := src.Capture(s.ctx)
	if err != nil {
		t.failStep(s, StateFacePending, fmt.Errorf("capturing face frame: %w", err))
		return
	}

	outcome, err := t.faces.VerifyFace(s.ctx, identity, bitmap)

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.isCurrentLocked(s, StateFacePending) {
		t.discardLocked(s, "face verification")
		return
	}
	if err != nil {
		t.failLocked(s, err)
		return
	}

	s.similarity = outcome.Similarity
	if outcome.Granted {
		t.logger.Info("access granted", "terminal", t.id, "session_id", s.id, "identity", identity, "similarity", similarityText(s.similarity))
		t.transitionLocked(s, StateGranted)
		return
	}
	t.logger.Info("access denied", "terminal", t.id, "session_id", s.id, "identity", identity, "similarity", similarityText(s.similarity))
	t.transitionLocked(s, StateDenied)
}

func (t *Terminal) expireFaceWindow(s *session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.isCurrentLocked(s, StateAwaitingFace) {
		return
	}
	t.failLocked(s, ErrFaceWindowExpired)
}

func (t *Terminal) failStep(s *session, step State, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.isCurrentLocked(s, step) {
		t.discardLocked(s, step.String()+" failure")
		return
	}
	t.failLocked(s, err)
}

func (t *Terminal) failLocked(s *session, err error) {
	kind := Classify(err)
	s.kind = kind
	s.err = &SessionError{SessionID: s.id, State: s.state, Kind: kind, Err: err}
	t.metrics.RecordError(string(kind))
	t.logger.Warn("session failed", "terminal", t.id, "session_id", s.id, "state", s.state.String(), "kind", string(kind), "error", err)
	t.transitionLocked(s, StateErrored)
}

func (t *Terminal) isCurrentLocked(s *session, state State) bool {
	return t.session == s && s.state == state
}

func (t *Terminal) discardLocked(s *session, what string) {
	t.logger.Debug("discarding stale result", "terminal", t.id, "session_id", s.id, "result", what, "state", s.state.String())
}

// transitionLocked moves s to state and, for settling transitions, appends
// exactly one access event.
func (t *Terminal) transitionLocked(s *session, to State) {
	from := s.state
	s.state = to
	s.updatedAt = time.Now()
	s.status = t.statusText(s)
	t.metrics.RecordTransition(to.String())

	if to == StateAwaitingFace || to.Terminal() {
		t.log.Append(eventlog.Event{
			Timestamp:  s.updatedAt,
			TerminalID: t.id,
			SessionID:  s.id,
			Identity:   s.identity,
			State:      to.String(),
			Kind:       string(s.kind),
			Message:    s.status,
			Success:    to == StateAwaitingFace || to == StateGranted,
			Similarity: s.similarity,
		})
	}
	if to.Terminal() {
		s.stopFaceTimer()
		s.cancel()
		t.metrics.RecordOutcome(to.String(), s.updatedAt.Sub(s.startedAt))
	}

	t.logger.Debug("session transition", "terminal", t.id, "session_id", s.id, "from", from.String(), "to", to.String())
	t.notifyLocked()
}

func (t *Terminal) notifyLocked() {
	close(t.changed)
	t.changed = make(chan struct{})

	snap := t.snapshotLocked()
	for ch := range t.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

func (t *Terminal) statusText(s *session) string {
	p := t.printer
	switch s.state {
	case StateScanningQR:
		return p.T(i18n.StatusScanningQR)
	case StateTokenPending:
		return p.T(i18n.StatusTokenPending)
	case StateAwaitingFace:
		return p.T(i18n.StatusAwaitingFace, s.identity)
	case StateFacePending:
		return p.T(i18n.StatusFacePending)
	case StateGranted:
		if s.similarity != nil {
			return p.T(i18n.StatusGrantedSimilarity, similarityText(s.similarity))
		}
		return p.T(i18n.StatusGranted)
	case StateDenied:
		if s.similarity != nil {
			return p.T(i18n.StatusDeniedSimilarity, similarityText(s.similarity))
		}
		return p.T(i18n.StatusDenied)
	case StateErrored:
		return p.T(i18n.ErrorKey(string(s.kind)))
	case StateCancelled:
		return p.T(i18n.StatusCancelled)
	default:
		return p.T(i18n.StatusIdle)
	}
}

// similarityText formats a score independently of the display language.
func similarityText(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func (t *Terminal) snapshotLocked() Snapshot {
	s := t.session
	if s == nil {
		return Snapshot{
			TerminalID: t.id,
			State:      StateIdle,
			Status:     t.printer.T(i18n.StatusIdle),
		}
	}
	snap := Snapshot{
		TerminalID: t.id,
		SessionID:  s.id,
		State:      s.state,
		Identity:   s.identity,
		Status:     s.status,
		ErrorKind:  s.kind,
		Similarity: s.similarity,
		StartedAt:  s.startedAt,
		UpdatedAt:  s.updatedAt,
	}
	if s.err != nil {
		snap.Error = s.err.Err.Error()
		snap.Err = s.err
	}
	return snap
}
