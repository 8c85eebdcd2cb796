package gate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/smartlock-gate/internal/backend"
	"github.com/kozaktomas/smartlock-gate/internal/eventlog"
	"github.com/kozaktomas/smartlock-gate/internal/i18n"
	"github.com/kozaktomas/smartlock-gate/internal/imagesrc"
	"github.com/kozaktomas/smartlock-gate/internal/qr"
)

type fakeDecoder struct {
	token string
	err   error
	calls atomic.Int32
}

func (d *fakeDecoder) Decode(_ *imagesrc.Bitmap) (string, error) {
	d.calls.Add(1)
	return d.token, d.err
}

type tokenFunc func(ctx context.Context, token string) (TokenOutcome, error)

type fakeTokens struct {
	fn     tokenFunc
	mu     sync.Mutex
	tokens []string
}

func (f *fakeTokens) VerifyToken(ctx context.Context, token string) (TokenOutcome, error) {
	f.mu.Lock()
	f.tokens = append(f.tokens, token)
	f.mu.Unlock()
	return f.fn(ctx, token)
}

func (f *fakeTokens) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens...)
}

type faceFunc func(ctx context.Context, identity string) (FaceOutcome, error)

type fakeFaces struct {
	fn         faceFunc
	mu         sync.Mutex
	identities []string
}

func (f *fakeFaces) VerifyFace(ctx context.Context, identity string, _ *imagesrc.Bitmap) (FaceOutcome, error) {
	f.mu.Lock()
	f.identities = append(f.identities, identity)
	f.mu.Unlock()
	return f.fn(ctx, identity)
}

func (f *fakeFaces) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.identities...)
}

func acceptToken(identity string) tokenFunc {
	return func(context.Context, string) (TokenOutcome, error) {
		return TokenOutcome{Granted: true, Identity: identity}, nil
	}
}

func faceResult(granted bool, similarity float64) faceFunc {
	return func(context.Context, string) (FaceOutcome, error) {
		return FaceOutcome{Granted: granted, Similarity: &similarity}, nil
	}
}

func frame() imagesrc.Source {
	return imagesrc.SourceFunc(func(context.Context) (*imagesrc.Bitmap, error) {
		return imagesrc.NewBitmap([]byte("frame"), "test")
	})
}

type harness struct {
	term    *Terminal
	decoder *fakeDecoder
	tokens  *fakeTokens
	faces   *fakeFaces
}

func newHarness(t *testing.T, tokens tokenFunc, faces faceFunc, opts ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		decoder: &fakeDecoder{token: "abc123"},
		tokens:  &fakeTokens{fn: tokens},
		faces:   &fakeFaces{fn: faces},
	}
	o := Options{
		TerminalID: "gate-test",
		Decoder:    h.decoder,
		Tokens:     h.tokens,
		Faces:      h.faces,
		Camera:     frame(),
		Printer:    i18n.New("en", false),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, fn := range opts {
		fn(&o)
	}
	term, err := NewTerminal(o)
	require.NoError(t, err)
	t.Cleanup(term.Close)
	h.term = term
	return h
}

func (h *harness) settle(t *testing.T, snap Snapshot) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	settled, err := h.term.AwaitSettled(ctx, snap.SessionID)
	require.NoError(t, err)
	return settled
}

func (h *harness) scan(t *testing.T) Snapshot {
	t.Helper()
	snap, err := h.term.StartScan(nil)
	require.NoError(t, err)
	assert.Equal(t, StateScanningQR, snap.State)
	return h.settle(t, snap)
}

func (h *harness) face(t *testing.T) Snapshot {
	t.Helper()
	snap, err := h.term.CaptureFace(nil)
	require.NoError(t, err)
	assert.Equal(t, StateFacePending, snap.State)
	return h.settle(t, snap)
}

func TestNewTerminal_MissingComponents(t *testing.T) {
	_, err := NewTerminal(Options{Tokens: &fakeTokens{}, Faces: &fakeFaces{}})
	assert.ErrorIs(t, err, ErrMissingComponent)

	_, err = NewTerminal(Options{Decoder: &fakeDecoder{}, Faces: &fakeFaces{}})
	assert.ErrorIs(t, err, ErrMissingComponent)

	_, err = NewTerminal(Options{Decoder: &fakeDecoder{}, Tokens: &fakeTokens{}})
	assert.ErrorIs(t, err, ErrMissingComponent)
}

func TestSnapshot_IdleBeforeFirstScan(t *testing.T) {
	h := newHarness(t, acceptToken("alice@co.com"), faceResult(true, 0.9))

	snap := h.term.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.SessionID)
	assert.Equal(t, "Waiting for scan...", snap.Status)
	assert.Empty(t, h.term.Events())
}

func TestDefaultPrinterIsPolish(t *testing.T) {
	term, err := NewTerminal(Options{Decoder: &fakeDecoder{}, Tokens: &fakeTokens{}, Faces: &fakeFaces{}})
	require.NoError(t, err)
	defer term.Close()
	assert.Equal(t, "Oczekiwanie na skan...", term.Snapshot().Status)
}

// Scenario A: a decoded token accepted by the backend establishes the identity.
func TestScan_TokenAccepted(t *testing.T) {
	h := newHarness(t, acceptToken("alice@co.com"), faceResult(true, 0.9))

	snap := h.scan(t)

	assert.Equal(t, StateAwaitingFace, snap.State)
	assert.Equal(t, "alice@co.com", snap.Identity)
	assert.Equal(t, "User verified: alice@co.com", snap.Status)
	assert.Equal(t, []string{"abc123"}, h.tokens.calls())
	assert.Empty(t, h.faces.calls(), "face verification must wait for a face capture")

	events := h.term.Events()
	require.Len(t, events, 1)
	assert.True(t, events[0].Success)
	assert.Equal(t, "awaiting_face", events[0].State)
	assert.Equal(t, snap.SessionID, events[0].SessionID)
	assert.Equal(t, "gate-test", events[0].TerminalID)
}

// Scenario B: no QR code in the frame.
func TestScan_NoQRCode(t *testing.T) {
	h := newHarness(t, acceptToken("alice@co.com"), faceResult(true, 0.9))
	h.decoder.err = fmt.Errorf("decoding: %w", qr.ErrNotFound)

	snap := h.scan(t)

	assert.Equal(t, StateErrored, snap.State)
	assert.Equal(t, KindQRNotFound, snap.ErrorKind)
	assert.Empty(t, snap.Identity)
	assert.Empty(t, h.tokens.calls())

	var serr *SessionError
	require.ErrorAs(t, snap.Err, &serr)
	assert.Equal(t, StateScanningQR, serr.State)
	assert.ErrorIs(t, snap.Err, qr.ErrNotFound)

	events := h.term.Events()
	require.Len(t, events, 1)
	assert.False(t, events[0].Success)
	assert.Equal(t, "No QR code found", events[0].Message)
}

func TestScan_DecodeError(t *testing.T) {
	h := newHarness(t, acceptToken("alice@co.com"), faceResult(true, 0.9))
	h.decoder.err = fmt.Errorf("%w: %w", qr.ErrDecode, imagesrc.ErrUnsupportedImage)

	snap := h.scan(t)

	assert.Equal(t, StateErrored, snap.State)
	assert.Equal(t, KindDecode, snap.ErrorKind)
}

func TestScan_CaptureFailure(t *testing.T) {
	h := newHarness(t, acceptToken("alice@co.com"), faceResult(true, 0.9))

	broken := imagesrc.SourceFunc(func(context.Context) (*imagesrc.Bitmap, error) {
		return nil, fmt.Errorf("camera offline: %w", imagesrc.ErrNoImage)
	})
	snap, err := h.term.StartScan(broken)
	require.NoError(t, err)
	snap = h.settle(t, snap)

	assert.Equal(t, StateErrored, snap.State)
	assert.Equal(t, KindCapture, snap.ErrorKind)
	assert.Zero(t, h.decoder.calls.Load())
	require.Len(t, h.term.Events(), 1)
}

func TestScan_NoSourceConfigured(t *testing.T) {
	h := newHarness(t, acceptToken("alice@co.com"), faceResult(true, 0.9), func(o *Options) {
		o.Camera = nil
	})

	snap := h.scan(t)

	assert.Equal(t, StateErrored, snap.State)
	assert.Equal(t, KindCapture, snap.ErrorKind)
	assert.ErrorIs(t, snap.Err, ErrNoSource)
}

func TestScan_TokenRejected(t *testing.T) {
	tests := []struct {
		name string
		fn   tokenFunc
	}{
		{"backend rejection", func(context.Context, string) (TokenOutcome, error) {
			return TokenOutcome{}, fmt.Errorf("auth/qr/verify: %w", backend.ErrRejected)
		}},
		{"not granted", func(context.Context, string) (TokenOutcome, error) {
			return TokenOutcome{Granted: false, Detail: "expired"}, nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.fn, faceResult(true, 0.9))

			snap := h.scan(t)

			assert.Equal(t, StateErrored, snap.State)
			assert.Equal(t, KindRejected, snap.ErrorKind)
			assert.Empty(t, snap.Identity)
			require.Len(t, h.term.Events(), 1)
			assert.Equal(t, "Invalid QR code", h.term.Events()[0].Message)
		})
	}
}

func TestScan_GrantedWithoutIdentity(t *testing.T) {
	h := newHarness(t, acceptToken("   "), faceResult(true, 0.9))

	snap := h.scan(t)

	assert.Equal(t, StateErrored, snap.State)
	assert.Equal(t, KindUnknown, snap.ErrorKind)
	assert.Empty(t, snap.Identity)

	_, err := h.term.CaptureFace(nil)
	assert.ErrorIs(t, err, ErrNotAwaitingFace)
	assert.Empty(t, h.faces.calls())
}

// Scenario E: the token call fails in transport; one failure event, no identity.
func TestScan_NetworkFailure(t *testing.T) {
	causes := map[string]error{
		"network":  fmt.Errorf("%w: connection refused", backend.ErrNetwork),
		"deadline": fmt.Errorf("post: %w", context.DeadlineExceeded),
	}
	for name, cause := range causes {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, func(context.Context, string) (TokenOutcome, error) {
				return TokenOutcome{}, cause
			}, faceResult(true, 0.9))

			snap := h.scan(t)

			assert.Equal(t, StateErrored, snap.State)
			assert.Equal(t, KindNetwork, snap.ErrorKind)
			assert.Empty(t, snap.Identity)

			events := h.term.Events()
			require.Len(t, events, 1)
			assert.False(t, events[0].Success)
		})
	}
}

// Scenario C: face accepted; the event carries the similarity score.
func TestFace_Granted(t *testing.T) {
	h := newHarness(t, acceptToken("alice@co.com"), faceResult(true, 0.91))

	h.scan(t)
	snap := h.face(t)

	assert.Equal(t, StateGranted, snap.State)
	require.NotNil(t, snap.Similarity)
	assert.InDelta(t, 0.91, *snap.Similarity, 1e-9)
	assert.Equal(t, []string{"alice@co.com"}, h.faces.calls())

	events := h.term.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "granted", events[0].State, "newest event first")
	assert.True(t, events[0].Success)
	assert.Contains(t, events[0].Message, "0.91")
	assert.Equal(t, "awaiting_face", events[1].State)
	assert.False(t, events[0].Timestamp.Before(events[1].Timestamp))
}

func TestFace_GrantedPolishKeepsDecimalPoint(t *testing.T) {
	h := newHarness(t, acceptToken("alice@co.com"), faceResult(true, 0.91), func(o *Options) {
		o.Printer = i18n.New("pl", false)
	})

	h.scan(t)
	snap := h.face(t)

	assert.Equal(t, "Twarz zweryfikowana! Podobieństwo: 0.91", snap.Status)
}

// Scenario D: face rejected by the backend.
func TestFace_Denied(t *testing.T) {
	h := newHarness(t, acceptToken("alice@co.com"), faceResult(false, 0.42))

	h.scan(t)
	snap := h.face(t)

	assert.Equal(t, StateDenied, snap.State)
	assert.Empty(t, snap.ErrorKind)
	assert.Nil(t, snap.Err)

	events := h.term.Events()
	require.Len(t, events, 2)
	assert.False(t, events[0].Success)
	assert.Contains(t, events[0].Message, "0.42")
}

func TestFace_NetworkFailure(t *testing.T) {
	h := newHarness(t, acceptToken("alice@co.com"), func(context.Context, string) (FaceOutcome, error) {
		return FaceOutcome{}, fmt.Errorf("auth/face/verify: %w: bad gateway", backend.ErrNetwork)
	})

	h.scan(t)
	snap := h.face(t)

	assert.Equal(t, StateErrored, snap.State)
	assert.Equal(t, KindNetwork, snap.ErrorKind)
	assert.Equal(t, "alice@co.com", snap.Identity)
	require.Len(t, h.term.Events(), 2)
}

func TestFace_CaptureFailure(t *testing.T) {
	h := newHarness(t, acceptToken("alice@co.com"), faceResult(true, 0.9))
	h.scan(t)

	broken := imagesrc.SourceFunc(func(context.Context) (*imagesrc.Bitmap, error) {
		return nil, imagesrc.ErrNoImage
	})
	snap, err := h.term.CaptureFace(broken)
	require.NoError(t, err)
	snap = h.settle(t, snap)

	assert.Equal(t, StateErrored, snap.State)
	assert.Equal(t, KindCapture, snap.ErrorKind)
	assert.Empty(t, h.faces.calls())
}

func TestCaptureFace_RequiresIdentity(t *testing.T) {
	h := newHarness(t, acceptToken("alice@co.com"), faceResult(true, 0.9))

	_, err := h.term.CaptureFace(nil)
	assert.ErrorIs(t, err, ErrNotAwaitingFace)

	h.decoder.err = qr.ErrNotFound
	h.scan(t)
	_, err = h.term.CaptureFace(nil)
	assert.ErrorIs(t, err, ErrNotAwaitingFace)

	assert.Empty(t, h.faces.calls())
}

func TestTriggers_BusyWhileStepRuns(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	h := newHarness(t, func(context.Context, string) (TokenOutcome, error) {
		close(entered)
		<-release
		return TokenOutcome{Granted: true, Identity: "alice@co.com"}, nil
	}, faceResult(true, 0.9))

	first, err := h.term.StartScan(nil)
	require.NoError(t, err)
	<-entered

	snap, err := h.term.StartScan(nil)
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, first.SessionID, snap.SessionID)
	assert.Equal(t, StateTokenPending, snap.State)

	_, err = h.term.CaptureFace(nil)
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	settled := h.settle(t, first)
	assert.Equal(t, StateAwaitingFace, settled.State)

	_, err = h.term.StartScan(nil)
	assert.ErrorIs(t, err, ErrBusy, "a scan cannot replace a session awaiting its face capture")
}

func TestCancel_DuringTokenVerification(t *testing.T) {
	entered := make(chan struct{})
	returned := make(chan error, 1)
	h := newHarness(t, func(ctx context.Context, _ string) (TokenOutcome, error) {
		close(entered)
		<-ctx.Done()
		returned <- ctx.Err()
		return TokenOutcome{}, ctx.Err()
	}, faceResult(true, 0.9))

	first, err := h.term.StartScan(nil)
	require.NoError(t, err)
	<-entered

	snap, err := h.term.Cancel()
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, snap.State)
	assert.Equal(t, KindCancelled, snap.ErrorKind)
	assert.Equal(t, first.SessionID, snap.SessionID)

	select {
	case err := <-returned:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight call was not cancelled")
	}
	h.term.wg.Wait()

	assert.Equal(t, StateCancelled, h.term.Snapshot().State)
	assert.Empty(t, h.term.Snapshot().Identity)
	events := h.term.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "cancelled", events[0].State)
	assert.False(t, events[0].Success)

	_, err = h.term.Cancel()
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestCancel_AwaitingFace(t *testing.T) {
	h := newHarness(t, acceptToken("alice@co.com"), faceResult(true, 0.9))
	h.scan(t)

	snap, err := h.term.Cancel()
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, snap.State)
	assert.Equal(t, "alice@co.com", snap.Identity)

	_, err = h.term.CaptureFace(nil)
	assert.ErrorIs(t, err, ErrNotAwaitingFace)
	assert.Empty(t, h.faces.calls())
	assert.Len(t, h.term.Events(), 2)
}

func TestStaleResultIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	var calls atomic.Int32
	h := newHarness(t, func(context.Context, string) (TokenOutcome, error) {
		if calls.Add(1) == 1 {
			entered <- struct{}{}
			<-release // ignores cancellation, answers late
			return TokenOutcome{Granted: true, Identity: "mallory@co.com"}, nil
		}
		return TokenOutcome{Granted: true, Identity: "alice@co.com"}, nil
	}, faceResult(true, 0.9))

	first, err := h.term.StartScan(nil)
	require.NoError(t, err)
	<-entered
	_, err = h.term.Cancel()
	require.NoError(t, err)

	second := h.scan(t)
	require.NotEqual(t, first.SessionID, second.SessionID)
	assert.Equal(t, "alice@co.com", second.Identity)

	close(release)
	h.term.wg.Wait()

	snap := h.term.Snapshot()
	assert.Equal(t, second.SessionID, snap.SessionID)
	assert.Equal(t, StateAwaitingFace, snap.State)
	assert.Equal(t, "alice@co.com", snap.Identity)
	for _, e := range h.term.Events() {
		assert.NotEqual(t, "mallory@co.com", e.Identity)
	}
	assert.Len(t, h.term.Events(), 2, "one cancel event and one token event")
}

func TestFaceWindowExpires(t *testing.T) {
	h := newHarness(t, acceptToken("alice@co.com"), faceResult(true, 0.9), func(o *Options) {
		o.FaceWindow = 30 * time.Millisecond
	})

	h.scan(t)

	require.Eventually(t, func() bool {
		return h.term.Snapshot().State == StateErrored
	}, 2*time.Second, 5*time.Millisecond)

	snap := h.term.Snapshot()
	assert.Equal(t, KindTimeout, snap.ErrorKind)
	assert.ErrorIs(t, snap.Err, ErrFaceWindowExpired)

	events := h.term.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "timeout", events[0].Kind)

	_, err := h.term.CaptureFace(nil)
	assert.ErrorIs(t, err, ErrNotAwaitingFace)
}

func TestFaceCaptureStopsWindow(t *testing.T) {
	h := newHarness(t, acceptToken("alice@co.com"), faceResult(true, 0.9), func(o *Options) {
		o.FaceWindow = 200 * time.Millisecond
	})

	h.scan(t)
	snap := h.face(t)
	require.Equal(t, StateGranted, snap.State)

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, StateGranted, h.term.Snapshot().State)
	assert.Len(t, h.term.Events(), 2)
}

func TestNewScanAfterTerminalState(t *testing.T) {
	h := newHarness(t, acceptToken("alice@co.com"), faceResult(false, 0.3))

	h.scan(t)
	first := h.face(t)
	require.Equal(t, StateDenied, first.State)

	second := h.scan(t)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Equal(t, StateAwaitingFace, second.State)

	events := h.term.Events()
	require.Len(t, events, 3)
	assert.Equal(t, second.SessionID, events[0].SessionID)
	for i := 1; i < len(events); i++ {
		assert.False(t, events[i].Timestamp.After(events[i-1].Timestamp), "events must be newest first")
	}
}

func TestSubscribe_ReceivesTransitions(t *testing.T) {
	h := newHarness(t, acceptToken("alice@co.com"), faceResult(true, 0.9))

	ch, unsubscribe := h.term.Subscribe()
	defer unsubscribe()

	initial := <-ch
	assert.Equal(t, StateIdle, initial.State)

	h.scan(t)
	h.face(t)

	var states []State
	timeout := time.After(2 * time.Second)
	for len(states) == 0 || states[len(states)-1] != StateGranted {
		select {
		case snap := <-ch:
			states = append(states, snap.State)
		case <-timeout:
			t.Fatalf("timed out, received %v", states)
		}
	}
	assert.Equal(t, []State{StateScanningQR, StateTokenPending, StateAwaitingFace, StateFacePending, StateGranted}, states)

	unsubscribe()
	_, ok := <-ch
	assert.False(t, ok, "channel closed after unsubscribe")
}

func TestAwaitSettled_UnknownSession(t *testing.T) {
	h := newHarness(t, acceptToken("alice@co.com"), faceResult(true, 0.9))
	_, err := h.term.AwaitSettled(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestClose_CancelsActiveSession(t *testing.T) {
	entered := make(chan struct{})
	h := newHarness(t, func(ctx context.Context, _ string) (TokenOutcome, error) {
		close(entered)
		<-ctx.Done()
		return TokenOutcome{}, ctx.Err()
	}, faceResult(true, 0.9))

	ch, _ := h.term.Subscribe()
	_, err := h.term.StartScan(nil)
	require.NoError(t, err)
	<-entered

	h.term.Close()

	assert.Equal(t, StateCancelled, h.term.Snapshot().State)
	_, err = h.term.StartScan(nil)
	assert.ErrorIs(t, err, ErrTerminalClosed)

	for range ch {
	}
}

func TestEventSinkReceivesSettledEvents(t *testing.T) {
	sink := &collectSink{}
	log := eventlog.New(10, slog.New(slog.NewTextHandler(io.Discard, nil)), sink)
	h := newHarness(t, acceptToken("alice@co.com"), faceResult(true, 0.91), func(o *Options) {
		o.Log = log
	})

	h.scan(t)
	h.face(t)
	log.Close()

	got := sink.states()
	assert.Equal(t, []string{"awaiting_face", "granted"}, got)
}

type collectSink struct {
	mu     sync.Mutex
	events []eventlog.Event
}

func (s *collectSink) Record(_ context.Context, e eventlog.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *collectSink) states() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.State
	}
	return out
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, ""},
		{fmt.Errorf("camera: %w", imagesrc.ErrNoImage), KindCapture},
		{fmt.Errorf("camera: %w: %w", imagesrc.ErrNoImage, context.DeadlineExceeded), KindCapture},
		{qr.ErrNotFound, KindQRNotFound},
		{qr.ErrDecode, KindDecode},
		{imagesrc.ErrUnsupportedImage, KindDecode},
		{&backend.StatusError{Code: 401}, KindUnknown},
		{fmt.Errorf("%w", backend.ErrRejected), KindRejected},
		{ErrTokenRejected, KindRejected},
		{backend.ErrNetwork, KindNetwork},
		{context.DeadlineExceeded, KindNetwork},
		{ErrFaceWindowExpired, KindTimeout},
		{context.Canceled, KindCancelled},
		{backend.ErrMalformedResponse, KindUnknown},
		{errors.New("boom"), KindUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.err), "Classify(%v)", tt.err)
	}
}

func TestState(t *testing.T) {
	terminal := []State{StateGranted, StateDenied, StateErrored, StateCancelled}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), s.String())
		assert.False(t, s.InFlight(), s.String())
	}
	for _, s := range []State{StateScanningQR, StateTokenPending, StateFacePending} {
		assert.True(t, s.InFlight(), s.String())
		assert.False(t, s.Terminal(), s.String())
	}
	assert.False(t, StateAwaitingFace.Terminal())
	assert.False(t, StateAwaitingFace.InFlight())

	text, err := StateAwaitingFace.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "awaiting_face", string(text))

	var s State
	require.NoError(t, s.UnmarshalText([]byte("face_pending")))
	assert.Equal(t, StateFacePending, s)
	assert.Error(t, s.UnmarshalText([]byte("open")))
	assert.True(t, strings.HasPrefix(State(99).String(), "state("))
}
