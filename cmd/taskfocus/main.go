package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskfocus/taskfocus/internal/config"
)

var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"
)

const appName = "taskfocus"

func main() {
	rootCmd := &cobra.Command{
		Use:           appName,
		Short:         "taskfocus - Focus window manager for task sessions",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(stopCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(clearCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(openCmd())
	rootCmd.AddCommand(homeCmd())
	rootCmd.AddCommand(closeCmd())
	rootCmd.AddCommand(sessionsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies a --port override
func loadConfig(port int) (*config.Config, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	if port > 0 {
		if err := cfg.SetWebPort(port); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}
}
