package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pulseboard/pulseboard/internal/corpus"
	"github.com/pulseboard/pulseboard/internal/timeline"
)

// NewTimelineCommand creates the timeline inspection command.
func NewTimelineCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "timeline <user-id>",
		Short: "Show a user's latest timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			artifact, meta, err := app.engine.LatestTimeline(cmd.Context(), args[0])
			if errors.Is(err, corpus.ErrNotFound) {
				return fmt.Errorf("no timeline for user %q", args[0])
			}

			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), artifact)
			}

			renderTimeline(cmd.OutOrStdout(), artifact, meta)

			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the raw timeline artifact as JSON")

	return cmd
}

// renderTimeline prints one table per calendar date, newest first.
func renderTimeline(w io.Writer, artifact timeline.Artifact, meta corpus.Meta) {
	fmt.Fprintf(w, "Timeline for %s (generated %s, version %s)\n",
		color.CyanString(artifact.UserID),
		humanize.Time(artifact.GeneratedAt),
		meta.Version)

	if len(artifact.Groups) == 0 {
		fmt.Fprintln(w, "no activity")

		return
	}

	for _, group := range artifact.Groups {
		fmt.Fprintf(w, "\n%s\n", color.New(color.Bold).Sprint(group.Date))

		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.SetStyle(table.StyleLight)
		tw.AppendHeader(table.Row{"Time", "Platform", "Type", "Activity"})

		for _, entry := range group.Items {
			tw.AppendRow(entryRow(entry))
		}

		tw.Render()
	}
}

func entryRow(entry timeline.Entry) table.Row {
	ts := entry.SortTimestamp().UTC().Format("15:04")

	if entry.Group != nil {
		summary := fmt.Sprintf("%d commits to %s (%s)",
			len(entry.Group.Commits), entry.Group.Repo, entry.Group.Branch)

		return table.Row{ts, "github", "commits", summary}
	}

	item := entry.Item

	return table.Row{ts, string(item.Platform), string(item.Type), oneLine(item.Title)}
}

func oneLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")

	return line
}
