package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/smartlock-gate/internal/eventbus"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow access events published by gate terminals",
	Long: `Subscribe to the NATS event bus (NATS_URL) and print access events as
terminals publish them. Without --terminal, events of every terminal sharing
the subject prefix are shown.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("terminal", "", "Only events of this terminal")
	watchCmd.Flags().Bool("json", false, "Print raw JSON events")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, _ := loadConfig()
	if cfg.NATS.URL == "" {
		return errors.New("NATS_URL environment variable is required")
	}

	subject := eventbus.WildcardSubject(cfg.NATS.SubjectPrefix)
	if terminal := mustGetString(cmd, "terminal"); terminal != "" {
		subject = eventbus.AccessSubject(cfg.NATS.SubjectPrefix, terminal)
	}

	sub, err := eventbus.NewNATSSubscriber(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	events, cancelSub, err := sub.Subscribe(subject)
	if err != nil {
		return err
	}
	defer cancelSub()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jsonOutput := mustGetBool(cmd, "json")
	fmt.Fprintf(os.Stderr, "Watching %s (Ctrl+C to stop)\n", subject)

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			if jsonOutput {
				if err := outputJSON(e); err != nil {
					return err
				}
				continue
			}
			fmt.Printf("%s  %-12s %-14s %-24s %s\n",
				e.Timestamp.Local().Format("15:04:05"), e.TerminalID, e.State, e.Identity, e.Message)
		}
	}
}
