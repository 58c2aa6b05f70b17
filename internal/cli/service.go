package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"drowse.dev/go/drowse/internal/service"
)

func init() {
	rootCmd.AddCommand(serviceCmd)
	serviceCmd.AddCommand(serviceInstallCmd)
	serviceCmd.AddCommand(serviceUninstallCmd)
	serviceCmd.AddCommand(serviceStatusCmd)
}

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the login service",
	Long: `Install or remove drowse as a user login service.

On Linux this creates a systemd user unit, on macOS a launchd agent,
and on Windows a scheduled task. The service runs 'drowse run' when
you log in.`,
}

var serviceInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install drowse as a login service",
	RunE: func(cmd *cobra.Command, args []string) error {
		installer := service.NewInstaller()
		if err := installer.Install(); err != nil {
			return err
		}

		fmt.Println("Service installed.")
		if err := installer.Enable(); err != nil {
			fmt.Printf("Could not enable service: %v\n", err)
			return nil
		}
		fmt.Println("Service enabled; it will start at next login.")
		fmt.Println("To start it now: drowse start")
		return nil
	},
}

var serviceUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the login service",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := service.NewInstaller().Uninstall(); err != nil {
			return err
		}
		fmt.Println("Service uninstalled.")
		return nil
	},
}

var serviceStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the login service status",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := service.NewInstaller().Status()
		if err != nil {
			return err
		}

		if !status.Installed {
			fmt.Println("Service is not installed.")
			return nil
		}

		fmt.Println("Service is installed.")
		if status.Running {
			fmt.Printf("Running (PID %d, up %s).\n", status.PID, status.Uptime.Round(time.Second))
		} else {
			fmt.Println("Not running.")
		}
		return nil
	},
}
