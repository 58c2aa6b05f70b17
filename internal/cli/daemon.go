package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"drowse.dev/go/drowse/internal/client"
	"drowse.dev/go/drowse/internal/config"
	"drowse.dev/go/drowse/internal/daemon"
)

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon in the background",
	Long: `Start the daemon in the background.

The daemon keeps running after this command exits.
Use 'drowse status' to check on it.`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	paths, err := config.GetPaths()
	if err != nil {
		return fmt.Errorf("get paths: %w", err)
	}

	if client.IsRunning() {
		fmt.Println("Daemon is already running.")
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("get executable: %w", err)
	}

	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	logPath := filepath.Join(paths.LogDir, "daemon.log")
	logFile, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	daemonCmd := exec.Command(exe, "run")
	daemonCmd.Stdout = logFile
	daemonCmd.Stderr = logFile

	if err := daemonCmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- daemonCmd.Wait()
	}()

	timeout := time.After(10 * time.Second)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("daemon failed to start (see %s): %w", logPath, err)
			}
			return fmt.Errorf("daemon exited unexpectedly (see %s)", logPath)

		case <-ticker.C:
			if client.IsRunning() {
				fmt.Printf("Daemon started (PID %d).\n", daemonCmd.Process.Pid)
				fmt.Printf("Logs: %s\n", logPath)
				return nil
			}

		case <-timeout:
			return fmt.Errorf("timeout waiting for daemon to start (see %s)", logPath)
		}
	}
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	RunE:  runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	paths, err := config.GetPaths()
	if err != nil {
		return fmt.Errorf("get paths: %w", err)
	}

	pid, err := daemon.ReadPIDFile(paths.PIDFile)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("Daemon is not running (no PID file).")
			return nil
		}
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process: %w", err)
	}

	fmt.Printf("Sending SIGTERM to daemon (PID %d)...\n", pid)
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("send signal: %w", err)
	}

	for i := 0; i < 30; i++ {
		if !client.IsRunning() {
			fmt.Println("Daemon stopped.")
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	fmt.Println("Daemon did not stop gracefully. Consider 'kill -9'.")
	return nil
}
