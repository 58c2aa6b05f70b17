package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"drowse.dev/go/drowse/internal/config"
)

var (
	version = "dev"
	cfgFile string
)

func SetVersion(v string) {
	version = v
}

// RootCmd is the root command
var RootCmd = &cobra.Command{
	Use:   "drowse",
	Short: "Sleep one display when another turns on",
	Long: `drowse - sleep one display when another turns on

Two machines run drowse and point at each other. When the display on
one turns on, the other puts its display to sleep. Useful for desks
with two computers sharing one pair of eyes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var rootCmd = RootCmd

func Execute() error {
	return RootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.config/drowse/config.toml)")
}

// loadConfig loads the effective configuration and paths, honoring the
// --config flag.
func loadConfig() (*config.Config, *config.Paths, error) {
	paths, err := config.GetPaths()
	if err != nil {
		return nil, nil, fmt.Errorf("get paths: %w", err)
	}

	file := cfgFile
	if file == "" {
		file = paths.ConfigFile
	}

	cfg, err := config.LoadFrom(file)
	if err != nil {
		return nil, nil, err
	}
	return cfg, paths, nil
}
