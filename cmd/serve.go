package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/smartlock-gate/internal/eventlog"
	"github.com/kozaktomas/smartlock-gate/internal/metrics"
	"github.com/kozaktomas/smartlock-gate/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gate terminal API",
	Long: `Start the gate terminal HTTP API.
Operators (or the kiosk UI) trigger scans and face captures over HTTP and
follow the session on /api/v1/gate/stream. Access events are kept in memory
and, when configured, written to the SQL journal and published to NATS.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (default WEB_PORT or 8080)")
	serveCmd.Flags().String("host", "", "Host to bind to (default WEB_HOST or 0.0.0.0)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log := loadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := newBackendClient(cfg)
	if err != nil {
		return err
	}

	sinks, err := openSinks(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer sinks.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(reg)

	events := eventlog.New(cfg.Gate.EventLogSize, log, sinks.list...)
	defer events.Close()

	terminal, err := buildTerminal(cfg, client, log, rec, events)
	if err != nil {
		return fmt.Errorf("creating terminal: %w", err)
	}
	defer terminal.Close()

	deps := web.Dependencies{Terminal: terminal, Gatherer: reg, Logger: log}
	if sinks.journal != nil {
		deps.Journal = sinks.journal
	}
	server := web.NewServer(&cfg.Web, deps)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("error during shutdown", "error", err)
		}
	}()

	fmt.Printf("Gate %s listening on http://%s:%d\n", cfg.Gate.TerminalID, cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
