package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/smartlock-gate/internal/constants"
	"github.com/kozaktomas/smartlock-gate/internal/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the local access journal",
	Long:  `Query the SQL access journal written by "gate serve" (JOURNAL_DATABASE_URL).`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent access events",
	Example: `  gate journal list --identity alice@example.com
  gate journal list --granted=false --since 2026-03-01`,
	RunE: runJournalList,
}

var journalStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize access events",
	RunE:  runJournalStats,
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalStatsCmd)

	journalListCmd.Flags().Int("limit", constants.DefaultJournalLimit, "Maximum number of events")
	journalListCmd.Flags().String("identity", "", "Only events of this identity")
	journalListCmd.Flags().String("terminal", "", "Only events of this terminal")
	journalListCmd.Flags().Bool("granted", false, "Only successful (true) or failed (false) events")
	journalListCmd.Flags().String("since", "", "Start date (YYYY-MM-DD or RFC 3339)")
	journalListCmd.Flags().Bool("json", false, "Output as JSON")

	journalStatsCmd.Flags().Int("days", 7, "Number of days to aggregate")
	journalStatsCmd.Flags().Bool("json", false, "Output as JSON")
}

func openJournal(ctx context.Context) (*journal.Store, error) {
	cfg, log := loadConfig()
	if cfg.Journal.URL == "" {
		return nil, errors.New("JOURNAL_DATABASE_URL environment variable is required")
	}
	store, err := journal.Open(&cfg.Journal, log)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func runJournalList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := openJournal(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	since, err := parseDate(mustGetString(cmd, "since"))
	if err != nil {
		return err
	}

	events, err := store.Recent(ctx, journal.Filter{
		Identity:   mustGetString(cmd, "identity"),
		TerminalID: mustGetString(cmd, "terminal"),
		Success:    optionalBool(cmd, "granted"),
		Since:      since,
	}, mustGetInt(cmd, "limit"))
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(events)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTERMINAL\tIDENTITY\tSTATE\tMESSAGE")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.TerminalID, e.Identity, e.State, e.Message)
	}
	w.Flush()
	return nil
}

func runJournalStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := openJournal(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	days := mustGetInt(cmd, "days")
	sum, err := store.Summarize(ctx, time.Now().AddDate(0, 0, -days))
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(sum)
	}

	fmt.Printf("Last %d days\n", days)
	fmt.Printf("  Events:            %d\n", sum.Total)
	fmt.Printf("  Sessions:          %d\n", sum.Sessions)
	fmt.Printf("  Granted:           %d\n", sum.Granted)
	fmt.Printf("  Denied:            %d\n", sum.Denied)
	fmt.Printf("  Errored:           %d\n", sum.Errored)
	fmt.Printf("  Unique identities: %d\n", sum.Unique)
	return nil
}
