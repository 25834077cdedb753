package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewIngestCommand creates the one-shot ingestion command.
func NewIngestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingestion invocation",
		Long:  "Fetch activity for every active account, store snapshots, and rebuild affected timelines.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.engine.Run(cmd.Context())
			if err != nil {
				return err
			}

			encoded, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("encode result: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))

			return nil
		},
	}
}
