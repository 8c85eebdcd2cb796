package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/smartlock-gate/internal/eventlog"
	"github.com/kozaktomas/smartlock-gate/internal/gate"
	"github.com/kozaktomas/smartlock-gate/internal/imagesrc"
	"github.com/kozaktomas/smartlock-gate/internal/metrics"
)

var errAccessNotGranted = errors.New("access not granted")

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one verification session from the shell",
	Long: `Run a complete gate session without the HTTP API.
The QR frame comes from --qr-file or the configured camera; after the token is
accepted the face frame comes from --face-file or the camera. Exits non-zero
unless access was granted.`,
	Example: `  gate scan --qr-file pass.png --face-file face.jpg
  gate scan --json`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().String("qr-file", "", "Image containing the QR pass (default: camera)")
	scanCmd.Flags().String("face-file", "", "Face image (default: camera)")
	scanCmd.Flags().Duration("timeout", 0, "Overall session timeout (default: backend timeout plus face window)")
	scanCmd.Flags().Bool("json", false, "Print the session events as JSON")
}

func fileOrCamera(path string) imagesrc.Source {
	if path == "" {
		return nil
	}
	return imagesrc.FileSource{Path: path}
}

func printSnapshot(snap gate.Snapshot) {
	if snap.Identity != "" {
		fmt.Printf("[%s] %s (%s)\n", snap.State, snap.Status, snap.Identity)
	} else {
		fmt.Printf("[%s] %s\n", snap.State, snap.Status)
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, log := loadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	asJSON := mustGetBool(cmd, "json")

	timeout := mustGetDuration(cmd, "timeout")
	if timeout <= 0 {
		timeout = 2*cfg.Backend.Timeout + cfg.Camera.Timeout + cfg.Gate.FaceWindow
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := newBackendClient(cfg)
	if err != nil {
		return err
	}

	sinks, err := openSinks(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer sinks.Close()

	events := eventlog.New(cfg.Gate.EventLogSize, log, sinks.list...)
	defer events.Close()

	terminal, err := buildTerminal(cfg, client, log, metrics.Nop{}, events)
	if err != nil {
		return fmt.Errorf("creating terminal: %w", err)
	}
	defer terminal.Close()

	snap, err := terminal.StartScan(fileOrCamera(mustGetString(cmd, "qr-file")))
	if err != nil {
		return fmt.Errorf("starting scan: %w", err)
	}
	sessionID := snap.SessionID

	if snap, err = terminal.AwaitSettled(ctx, sessionID); err != nil {
		return fmt.Errorf("waiting for token verification: %w", err)
	}
	if !asJSON {
		printSnapshot(snap)
	}

	if snap.State == gate.StateAwaitingFace {
		if _, err := terminal.CaptureFace(fileOrCamera(mustGetString(cmd, "face-file"))); err != nil {
			return fmt.Errorf("capturing face: %w", err)
		}
		if snap, err = terminal.AwaitSettled(ctx, sessionID); err != nil {
			return fmt.Errorf("waiting for face verification: %w", err)
		}
		if !asJSON {
			printSnapshot(snap)
		}
	}

	session := events.Session(sessionID)
	slices.Reverse(session)
	if asJSON {
		if err := outputJSON(session); err != nil {
			return err
		}
	} else {
		fmt.Println("\nEvents:")
		for _, e := range session {
			mark := "✗"
			if e.Success {
				mark = "✓"
			}
			fmt.Printf("  %s %s %s\n", e.Timestamp.Format("15:04:05"), mark, e.Message)
		}
	}

	if snap.State != gate.StateGranted {
		return errAccessNotGranted
	}
	return nil
}
