// Package main provides the entry point for the pulseboard CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pulseboard/pulseboard/cmd/pulseboard/commands"
	"github.com/pulseboard/pulseboard/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pulseboard",
		Short: "Pulseboard - multi-platform activity ingestion engine",
		Long: `Pulseboard ingests activity from linked third-party accounts,
stores versioned snapshots, and assembles per-user chronological timelines.

Commands:
  ingest          Run one ingestion invocation
  serve           Run the scheduled ingestion service
  timeline        Show a user's latest timeline
  status          Show account and rate-limit status
  delete-account  Remove an account and its stored snapshots`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "config file path (default: .pulseboard.yaml in CWD or $HOME)")

	rootCmd.AddCommand(commands.NewIngestCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewTimelineCommand())
	rootCmd.AddCommand(commands.NewStatusCommand())
	rootCmd.AddCommand(commands.NewDeleteAccountCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "pulseboard %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
