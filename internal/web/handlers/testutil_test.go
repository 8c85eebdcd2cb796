package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/smartlock-gate/internal/gate"
	"github.com/kozaktomas/smartlock-gate/internal/i18n"
	"github.com/kozaktomas/smartlock-gate/internal/imagesrc"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubDecoder struct{ token string }

func (d stubDecoder) Decode(*imagesrc.Bitmap) (string, error) { return d.token, nil }

type stubTokens struct {
	release chan struct{}
}

func (s stubTokens) VerifyToken(ctx context.Context, _ string) (gate.TokenOutcome, error) {
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return gate.TokenOutcome{}, ctx.Err()
		}
	}
	return gate.TokenOutcome{Granted: true, Identity: "alice@example.com"}, nil
}

type stubFaces struct{}

func (stubFaces) VerifyFace(context.Context, string, *imagesrc.Bitmap) (gate.FaceOutcome, error) {
	similarity := 0.91
	return gate.FaceOutcome{Granted: true, Similarity: &similarity}, nil
}

// newTestTerminal creates a terminal whose backend always grants. When
// release is non-nil token verification blocks until it is closed.
func newTestTerminal(t *testing.T, release chan struct{}) *gate.Terminal {
	t.Helper()
	term, err := gate.NewTerminal(gate.Options{
		TerminalID: "gate-test",
		Decoder:    stubDecoder{token: "abc123"},
		Tokens:     stubTokens{release: release},
		Faces:      stubFaces{},
		Printer:    i18n.New("en", false),
		Logger:     discardLogger(),
		FaceWindow: time.Minute,
	})
	if err != nil {
		t.Fatalf("failed to create terminal: %v", err)
	}
	t.Cleanup(term.Close)
	return term
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%v'", expectedMessage, result["error"])
	}
}
