package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"drowse.dev/go/drowse/internal/client"
)

var statusJSON bool

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := client.Connect()
	if err != nil {
		if statusJSON {
			return json.NewEncoder(os.Stdout).Encode(map[string]bool{"running": false})
		}
		fmt.Println("Daemon is not running.")
		return nil
	}
	defer c.Close()

	status, err := c.Status()
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	fmt.Println("Daemon Status")
	fmt.Println()
	fmt.Printf("  Running:      yes\n")
	fmt.Printf("  PID:          %d\n", status.PID)
	fmt.Printf("  Uptime:       %s\n", status.Uptime)
	fmt.Printf("  Role:         %s\n", status.Role)
	fmt.Printf("  Display:      %s\n", status.DisplayState)
	if status.ListenAddr != "" {
		fmt.Printf("  Listening:    %s\n", status.ListenAddr)
	}
	if status.Peer != "" {
		fmt.Printf("  Peer:         %s\n", status.Peer)
	} else {
		fmt.Printf("  Peer:         none (waiting for discovery)\n")
	}
	fmt.Println()
	fmt.Printf("  Edges:        %d detected\n", status.EdgesDetected)
	fmt.Printf("  Signals:      %d sent\n", status.SignalsSent)
	fmt.Printf("  Triggers:     %d fired\n", status.TriggersFired)
	fmt.Printf("  Connections:  %d accepted, %d open\n", status.ConnectionsAccepted, status.OpenConns)
	if status.ListenerRebinds > 0 {
		fmt.Printf("  Rebinds:      %d\n", status.ListenerRebinds)
	}

	return nil
}
