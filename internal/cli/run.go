package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"drowse.dev/go/drowse/internal/client"
	"drowse.dev/go/drowse/internal/config"
	"drowse.dev/go/drowse/internal/daemon"
)

var (
	runBind     string
	runPort     int
	runPeer     string
	runPayload  string
	runInterval int
	runNoListen bool
	runNoWatch  bool
	runNoMDNS   bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runBind, "bind", "", "listener bind address")
	runCmd.Flags().IntVar(&runPort, "port", 0, "listener TCP port")
	runCmd.Flags().StringVar(&runPeer, "peer", "", "peer address (host:port); overrides mDNS discovery")
	runCmd.Flags().StringVar(&runPayload, "payload", "", "signal payload to send and expect")
	runCmd.Flags().IntVar(&runInterval, "interval", 0, "display poll interval in seconds")
	runCmd.Flags().BoolVar(&runNoListen, "no-listen", false, "watch only, do not accept signals")
	runCmd.Flags().BoolVar(&runNoWatch, "no-watch", false, "listen only, do not watch the display")
	runCmd.Flags().BoolVar(&runNoMDNS, "no-mdns", false, "disable mDNS discovery and advertising")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daemon in the foreground",
	Long: `Run the daemon in the foreground.

This is typically used by service managers (systemd, launchd).
For manual use, prefer 'drowse start'.`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, paths, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)

	if _, err := os.Stat(paths.ConfigFile); os.IsNotExist(err) && cfgFile == "" {
		fmt.Fprintln(os.Stderr, "No config file found; running with defaults.")
		fmt.Fprintln(os.Stderr, "Run 'drowse config init' to write one.")
	}

	if client.IsRunning() {
		return fmt.Errorf("daemon is already running")
	}

	d, err := daemon.New(daemon.Options{Config: cfg, Paths: paths})
	if err != nil {
		return err
	}

	return d.Run(context.Background())
}

// applyRunFlags overlays explicitly set flags onto the loaded config.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("bind") {
		cfg.Listen.Bind = runBind
	}
	if cmd.Flags().Changed("port") {
		cfg.Listen.Port = runPort
	}
	if cmd.Flags().Changed("peer") {
		cfg.Watch.Peer = runPeer
	}
	if cmd.Flags().Changed("payload") {
		cfg.Signal.Payload = runPayload
	}
	if cmd.Flags().Changed("interval") {
		cfg.Watch.IntervalSecs = runInterval
	}
	if runNoListen {
		cfg.Listen.Enabled = false
	}
	if runNoWatch {
		cfg.Watch.Enabled = false
	}
	if runNoMDNS {
		cfg.Discovery.MDNS = false
	}
}
