package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"drowse.dev/go/drowse/internal/client"
	"drowse.dev/go/drowse/internal/daemon"
)

var (
	logsLevel string
	logsSince string
	logsLimit int
	logsJSON  bool
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringVar(&logsLevel, "level", "", "minimum level (debug, info, warn, error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "show logs since (e.g. 5m, 1h, 2026-01-15)")
	logsCmd.Flags().IntVar(&logsLimit, "limit", 200, "maximum entries to show")
	logsCmd.Flags().BoolVar(&logsJSON, "json", false, "output as JSON")
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent daemon logs",
	Long: `Show recent log entries from the running daemon's in-memory buffer.

Examples:
  drowse logs
  drowse logs --level warn
  drowse logs --since 10m --json`,
	RunE: runLogs,
}

func runLogs(cmd *cobra.Command, args []string) error {
	c, err := client.Connect()
	if err != nil {
		return client.ErrDaemonNotRunning
	}
	defer c.Close()

	query := daemon.LogQuery{
		Level: logsLevel,
		Limit: logsLimit,
	}
	if logsSince != "" {
		t, err := parseLogsTime(logsSince)
		if err != nil {
			return err
		}
		query.Since = &t
	}

	entries, err := c.Logs(query)
	if err != nil {
		return fmt.Errorf("get logs: %w", err)
	}

	if logsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	for _, e := range entries {
		line := fmt.Sprintf("%s %-5s %s",
			e.Timestamp.Format("15:04:05"), e.Level, e.Message)
		if len(e.Fields) > 0 {
			parts := make([]string, 0, len(e.Fields))
			for k, v := range e.Fields {
				parts = append(parts, fmt.Sprintf("%s=%v", k, v))
			}
			line += "  " + strings.Join(parts, " ")
		}
		fmt.Println(line)
	}

	return nil
}

func parseLogsTime(s string) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return time.Now().Add(-d), nil
	}

	for _, f := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid time format: %s", s)
}
