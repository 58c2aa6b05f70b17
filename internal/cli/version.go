package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var (
	// Set via ldflags
	commit    = "unknown"
	buildDate = "unknown"

	versionFull bool
)

// SetBuildInfo sets build information from ldflags
func SetBuildInfo(c, d string) {
	commit = c
	buildDate = d
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionFull, "full", false, "print detailed version information")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

func runVersion(cmd *cobra.Command, args []string) {
	fmt.Printf("drowse version %s\n", version)

	if versionFull {
		fmt.Println()
		fmt.Printf("  Commit:     %s\n", getCommit())
		fmt.Printf("  Built:      %s\n", getBuildDate())
		fmt.Printf("  Go version: %s\n", runtime.Version())
		fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	}
}

func getCommit() string {
	if commit != "unknown" {
		return commit
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				if len(setting.Value) > 8 {
					return setting.Value[:8]
				}
				return setting.Value
			}
		}
	}
	return "unknown"
}

func getBuildDate() string {
	if buildDate != "unknown" {
		return buildDate
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.time" {
				return setting.Value
			}
		}
	}
	return "unknown"
}
