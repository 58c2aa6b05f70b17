package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"drowse.dev/go/drowse/internal/client"
)

var metricsJSON bool

func init() {
	rootCmd.AddCommand(metricsCmd)
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "output as JSON")
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show daemon metrics",
	RunE:  runMetrics,
}

func runMetrics(cmd *cobra.Command, args []string) error {
	c, err := client.Connect()
	if err != nil {
		return client.ErrDaemonNotRunning
	}
	defer c.Close()

	snap, err := c.Metrics()
	if err != nil {
		return fmt.Errorf("get metrics: %w", err)
	}

	if metricsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	fmt.Printf("Uptime: %s\n", snap.Uptime)
	fmt.Println()

	fmt.Println("Watcher")
	fmt.Printf("  edges_detected  %d\n", snap.Counters.EdgesDetected)
	fmt.Printf("  probe_failures  %d\n", snap.Counters.ProbeFailures)
	fmt.Printf("  signals_sent    %d\n", snap.Counters.SignalsSent)
	fmt.Printf("  send_failures   %d\n", snap.Counters.SendFailures)
	fmt.Println()

	fmt.Println("Listener")
	fmt.Printf("  conns_accepted  %d\n", snap.Counters.ConnectionsAccepted)
	fmt.Printf("  conns_limited   %d\n", snap.Counters.ConnectionsLimited)
	fmt.Printf("  chunks_received %d\n", snap.Counters.ChunksReceived)
	fmt.Printf("  chunks_matched  %d\n", snap.Counters.ChunksMatched)
	fmt.Printf("  chunks_ignored  %d\n", snap.Counters.ChunksIgnored)
	fmt.Printf("  undecodable     %d\n", snap.Counters.ChunksUndecodable)
	fmt.Printf("  triggers_fired  %d\n", snap.Counters.TriggersFired)
	fmt.Printf("  trigger_failed  %d\n", snap.Counters.TriggerFailures)
	fmt.Printf("  rebinds         %d\n", snap.Counters.ListenerRebinds)
	fmt.Println()

	fmt.Println("Traffic")
	fmt.Printf("  bytes_received  %d\n", snap.Counters.BytesReceived)
	fmt.Printf("  bytes_sent      %d\n", snap.Counters.BytesSent)
	fmt.Println()

	fmt.Println("System")
	fmt.Printf("  goroutines      %d\n", snap.System.NumGoroutine)
	fmt.Printf("  mem_alloc_mb    %.1f\n", snap.System.MemAllocMB)
	fmt.Printf("  go_version      %s\n", snap.System.GoVersion)

	if len(snap.RecentErrors) > 0 {
		fmt.Println()
		fmt.Printf("Recent errors (%d)\n", len(snap.RecentErrors))
		for _, e := range snap.RecentErrors {
			remote := ""
			if e.Remote != "" {
				remote = " remote=" + e.Remote
			}
			fmt.Printf("  %s [%s] %s%s\n", e.Time.Format("15:04:05"), e.Type, e.Message, remote)
		}
	}

	return nil
}
