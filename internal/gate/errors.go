package gate

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/smartlock-gate/internal/backend"
	"github.com/kozaktomas/smartlock-gate/internal/imagesrc"
	"github.com/kozaktomas/smartlock-gate/internal/qr"
)

// Kind classifies why a session ended in StateErrored or StateCancelled.
type Kind string

const (
	KindCapture    Kind = "capture"
	KindQRNotFound Kind = "qr_not_found"
	KindDecode     Kind = "decode"
	KindNetwork    Kind = "network"
	KindRejected   Kind = "rejected"
	KindTimeout    Kind = "timeout"
	KindCancelled  Kind = "cancelled"
	KindUnknown    Kind = "unknown"
)

// Operator errors, returned by trigger methods without touching the session.
var (
	ErrBusy             = errors.New("gate: a session is in progress")
	ErrNotAwaitingFace  = errors.New("gate: session is not awaiting a face capture")
	ErrNoActiveSession  = errors.New("gate: no active session")
	ErrUnknownSession   = errors.New("gate: session superseded or unknown")
	ErrTerminalClosed   = errors.New("gate: terminal closed")
	ErrMissingComponent = errors.New("gate: missing component")
)

// Session failure causes produced by the gate itself.
var (
	ErrTokenRejected     = errors.New("token rejected")
	ErrNoIdentity        = errors.New("token accepted without identity")
	ErrFaceWindowExpired = errors.New("face capture window expired")
	ErrNoSource          = fmt.Errorf("no image source configured: %w", imagesrc.ErrNoImage)
)

// Classify maps a step error onto the error taxonomy. Component sentinels
// are checked before context errors so that, for example, a camera timeout
// stays a capture failure.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFaceWindowExpired):
		return KindTimeout
	case errors.Is(err, imagesrc.ErrNoImage):
		return KindCapture
	case errors.Is(err, qr.ErrNotFound):
		return KindQRNotFound
	case errors.Is(err, qr.ErrDecode), errors.Is(err, imagesrc.ErrUnsupportedImage):
		return KindDecode
	case errors.Is(err, backend.ErrRejected), errors.Is(err, ErrTokenRejected):
		return KindRejected
	case errors.Is(err, backend.ErrNetwork), errors.Is(err, context.DeadlineExceeded):
		return KindNetwork
	case errors.Is(err, context.Canceled):
		return KindCancelled
	default:
		return KindUnknown
	}
}

// SessionError describes the failure that ended a session.
type SessionError struct {
	SessionID string
	State     State // state the failing step ran in
	Kind      Kind
	Err       error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s: %s failed (%s): %v", e.SessionID, e.State, e.Kind, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}
