package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/kozaktomas/smartlock-gate/internal/backend"
	"github.com/kozaktomas/smartlock-gate/internal/config"
	"github.com/kozaktomas/smartlock-gate/internal/eventbus"
	"github.com/kozaktomas/smartlock-gate/internal/eventlog"
	"github.com/kozaktomas/smartlock-gate/internal/gate"
	"github.com/kozaktomas/smartlock-gate/internal/i18n"
	"github.com/kozaktomas/smartlock-gate/internal/imagesrc"
	"github.com/kozaktomas/smartlock-gate/internal/journal"
	"github.com/kozaktomas/smartlock-gate/internal/logger"
	"github.com/kozaktomas/smartlock-gate/internal/metrics"
	"github.com/kozaktomas/smartlock-gate/internal/qr"
)

func loadConfig() (*config.Config, *slog.Logger) {
	cfg := config.Load()
	return cfg, logger.SetupDefault(os.Stderr, cfg.Log.Format, cfg.Log.Level)
}

// newBackendClient creates a backend client honoring --capture and the
// configured request timeout.
func newBackendClient(cfg *config.Config) (*backend.Client, error) {
	opts := []backend.Option{
		backend.WithHTTPClient(&http.Client{Timeout: cfg.Backend.Timeout}),
		backend.WithCaptureDir(captureDir),
	}
	if token := cfg.Backend.GetAccessToken(); token != "" {
		opts = append(opts, backend.WithAccessToken(token))
	}
	client, err := backend.NewClient(cfg.Backend.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating backend client: %w", err)
	}
	return client, nil
}

// sinks holds the optional event fan-out targets and closes them.
type sinks struct {
	journal   *journal.Store
	publisher *eventbus.NATSPublisher
	list      []eventlog.Sink
}

// openSinks connects the journal and the event bus when they are configured.
func openSinks(ctx context.Context, cfg *config.Config, log *slog.Logger) (*sinks, error) {
	s := &sinks{}

	if cfg.Journal.URL != "" {
		store, err := journal.Open(&cfg.Journal, log)
		if err != nil {
			return nil, fmt.Errorf("opening journal: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrating journal: %w", err)
		}
		log.Info("access journal enabled", "dialect", store.Dialect().Name)
		s.journal = store
		s.list = append(s.list, store)
	}

	if cfg.NATS.URL != "" {
		pub, err := eventbus.NewNATSPublisher(cfg.NATS.URL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connecting to NATS: %w", err)
		}
		log.Info("event bus enabled", "subject", eventbus.AccessSubject(cfg.NATS.SubjectPrefix, cfg.Gate.TerminalID))
		s.publisher = pub
		s.list = append(s.list, eventbus.NewSink(pub, cfg.NATS.SubjectPrefix))
	}

	return s, nil
}

func (s *sinks) Close() {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			slog.Warn("closing NATS publisher", "error", err)
		}
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			slog.Warn("closing journal", "error", err)
		}
	}
}

// buildTerminal wires the gate terminal with the backend verifier, the QR
// decoder and the camera.
func buildTerminal(cfg *config.Config, client *backend.Client, log *slog.Logger, rec metrics.Recorder, events *eventlog.Log) (*gate.Terminal, error) {
	verifier := gate.NewBackendVerifier(client, cfg.Gate.MaxFaceSize, rec)

	var camera imagesrc.Source
	if cfg.Camera.SnapshotURL != "" {
		camera = imagesrc.NewCameraSource(cfg.Camera.SnapshotURL, cfg.Camera.Timeout)
	}

	return gate.NewTerminal(gate.Options{
		TerminalID: cfg.Gate.TerminalID,
		Decoder:    qr.NewDecoder(true),
		Tokens:     verifier,
		Faces:      verifier,
		Camera:     camera,
		Log:        events,
		Printer:    i18n.New(cfg.Gate.Locale, cfg.Gate.ASCIIStatus),
		Metrics:    rec,
		Logger:     log,
		FaceWindow: cfg.Gate.FaceWindow,
	})
}
