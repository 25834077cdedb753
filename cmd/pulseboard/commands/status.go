package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pulseboard/pulseboard/internal/ratelimit"
	"github.com/pulseboard/pulseboard/internal/storage"
)

// NewStatusCommand creates the account status command.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show account and rate-limit status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			accounts, err := app.engine.Accounts.ListActiveWithMembers(cmd.Context())
			if err != nil {
				return err
			}

			states := make(map[string]ratelimit.State, len(accounts))

			for _, account := range accounts {
				state, stateErr := app.engine.Rates.Get(cmd.Context(), account.ID)
				if stateErr != nil {
					return fmt.Errorf("load rate state for %s: %w", account.ID, stateErr)
				}

				states[account.ID] = state
			}

			renderStatus(cmd.OutOrStdout(), accounts, states, time.Now())

			return nil
		},
	}
}

// renderStatus prints one row per active account.
func renderStatus(w io.Writer, accounts []storage.AccountWithMembers, states map[string]ratelimit.State, now time.Time) {
	if len(accounts) == 0 {
		fmt.Fprintln(w, "no active accounts")

		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Account", "Platform", "Users", "Last Fetch", "Failures", "Remaining", "Circuit"})

	for _, account := range accounts {
		state := states[account.ID]

		tw.AppendRow(table.Row{
			account.ID,
			string(account.Platform),
			strings.Join(account.MemberIDs, ","),
			timeOrDash(account.LastFetchedAt),
			state.ConsecutiveFailures,
			intOrDash(state.Remaining),
			circuitLabel(state, now),
		})
	}

	tw.Render()
}

func circuitLabel(state ratelimit.State, now time.Time) string {
	if state.CircuitOpenUntil != nil && state.CircuitOpenUntil.After(now) {
		return color.RedString("open until %s", state.CircuitOpenUntil.UTC().Format(time.RFC3339))
	}

	return color.GreenString("closed")
}

// timeOrDash renders an optional timestamp relatively.
func timeOrDash(ts *time.Time) string {
	if ts == nil {
		return "-"
	}

	return humanize.Time(*ts)
}

func intOrDash(v *int) string {
	if v == nil {
		return "-"
	}

	return strconv.Itoa(*v)
}
