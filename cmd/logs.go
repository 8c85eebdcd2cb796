package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/smartlock-gate/internal/backend"
	"github.com/kozaktomas/smartlock-gate/internal/constants"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Browse the backend access audit log",
	Long: `Fetch the access-control backend's audit log (GET /logs/), page by page.
Requires BACKEND_ACCESS_TOKEN (or BACKEND_ACCESS_TOKEN_FILE) with admin rights.`,
	Example: `  gate logs --since 2026-03-01 --granted=false
  gate logs --user-id 42 --json`,
	RunE: runLogs,
}

var logsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show audit log statistics",
	RunE:  runLogsStats,
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.AddCommand(logsStatsCmd)

	logsCmd.Flags().Int("user-id", 0, "Only entries of this user")
	logsCmd.Flags().Bool("granted", false, "Only granted (true) or refused (false) attempts")
	logsCmd.Flags().String("since", "", "Start date (YYYY-MM-DD or RFC 3339)")
	logsCmd.Flags().String("until", "", "End date (YYYY-MM-DD or RFC 3339)")
	logsCmd.Flags().Int("per-page", constants.DefaultLogsPageSize, "Entries per request")
	logsCmd.Flags().Bool("json", false, "Output as JSON")

	logsStatsCmd.Flags().Int("days", 7, "Number of days to aggregate")
	logsStatsCmd.Flags().Bool("json", false, "Output as JSON")
}

func newAdminClient() (*backend.Client, error) {
	cfg, _ := loadConfig()
	if cfg.Backend.URL == "" {
		return nil, errors.New("BACKEND_URL environment variable is required")
	}
	if cfg.Backend.GetAccessToken() == "" {
		return nil, errors.New("BACKEND_ACCESS_TOKEN is required to read the audit log")
	}
	return newBackendClient(cfg)
}

func newLogsProgressBar(jsonOutput bool) *progressbar.ProgressBar {
	if jsonOutput {
		return nil
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Fetching audit log"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("entries"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)
}

func runLogs(cmd *cobra.Command, args []string) error {
	client, err := newAdminClient()
	if err != nil {
		return err
	}
	jsonOutput := mustGetBool(cmd, "json")

	since, err := parseDate(mustGetString(cmd, "since"))
	if err != nil {
		return err
	}
	until, err := parseDate(mustGetString(cmd, "until"))
	if err != nil {
		return err
	}

	q := backend.LogQuery{
		PerPage:       mustGetInt(cmd, "per-page"),
		UserID:        mustGetInt(cmd, "user-id"),
		AccessGranted: optionalBool(cmd, "granted"),
		Since:         since,
		Until:         until,
	}

	bar := newLogsProgressBar(jsonOutput)
	logs, err := client.GetAllLogs(context.Background(), q, func(fetched, total int) {
		if bar == nil {
			return
		}
		if bar.GetMax() != total {
			bar.ChangeMax(total)
		}
		_ = bar.Set(fetched)
	})
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(logs)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tUSER\tRESULT\tERROR")
	for _, l := range logs {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", l.ID, l.Time, l.UserID, grantedMark(l.AccessGranted), l.ErrorLog)
	}
	w.Flush()
	fmt.Printf("\n%d entries\n", len(logs))
	return nil
}

func runLogsStats(cmd *cobra.Command, args []string) error {
	client, err := newAdminClient()
	if err != nil {
		return err
	}

	stats, err := client.GetLogStats(context.Background(), mustGetInt(cmd, "days"))
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(stats)
	}

	fmt.Printf("Total attempts:     %d\n", stats.TotalAttempts)
	fmt.Printf("Successful:         %d\n", stats.SuccessfulAttempts)
	fmt.Printf("Failed:             %d\n", stats.FailedAttempts)
	fmt.Printf("Success rate:       %.1f%%\n", stats.SuccessRate)
	fmt.Printf("Unique users:       %d\n", stats.UniqueUsers)
	fmt.Printf("Biometric attempts: %d\n", stats.BiometricAttempts)
	if len(stats.RecentActivity) > 0 {
		fmt.Println("\nRecent activity:")
		for _, l := range stats.RecentActivity {
			fmt.Printf("  %s  user %d  %s\n", l.Time, l.UserID, grantedMark(l.AccessGranted))
		}
	}
	return nil
}
