package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pulseboard/pulseboard/internal/storage"
)

// ErrDeletionNotConfirmed aborts an account deletion missing the --yes flag.
var ErrDeletionNotConfirmed = errors.New("deletion not confirmed; re-run with --yes")

// NewDeleteAccountCommand creates the account deletion command. It removes
// the account, its memberships, its rate state, and every stored snapshot
// in the account's namespaces.
func NewDeleteAccountCommand() *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "delete-account <account-id>",
		Short: "Remove an account and its stored snapshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return ErrDeletionNotConfirmed
			}

			app, err := newApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.engine.DeleteAccount(cmd.Context(), args[0])
			if errors.Is(err, storage.ErrAccountNotFound) {
				return fmt.Errorf("account %q not found", args[0])
			}

			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm the deletion")

	return cmd
}

// writeJSON pretty-prints v to w.
func writeJSON(w io.Writer, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	_, err = fmt.Fprintln(w, string(encoded))
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	return nil
}
