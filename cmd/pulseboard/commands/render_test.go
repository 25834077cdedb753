package commands

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/pulseboard/pulseboard/internal/corpus"
	"github.com/pulseboard/pulseboard/internal/platform"
	"github.com/pulseboard/pulseboard/internal/ratelimit"
	"github.com/pulseboard/pulseboard/internal/storage"
	"github.com/pulseboard/pulseboard/internal/timeline"
)

func init() {
	color.NoColor = true
}

func TestRenderTimeline(t *testing.T) {
	t.Parallel()

	artifact := timeline.Artifact{
		UserID:      "U1",
		GeneratedAt: time.Date(2024, 1, 16, 6, 0, 0, 0, time.UTC),
		Groups: []timeline.DateGroup{
			{
				Date: "2024-01-15",
				Items: []timeline.Entry{
					timeline.ItemEntry(timeline.Item{
						ID:        "bsky:post:abc",
						Platform:  platform.Bluesky,
						Type:      timeline.TypePost,
						Timestamp: time.Date(2024, 1, 15, 15, 0, 0, 0, time.UTC),
						Title:     "shipped a thing\nsecond line",
					}),
					timeline.GroupEntry(timeline.CommitGroup{
						Type:   timeline.EntryTypeCommitGroup,
						Repo:   "u1/project",
						Branch: "main",
						Date:   "2024-01-15",
						Commits: []timeline.Item{
							{Timestamp: time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)},
							{Timestamp: time.Date(2024, 1, 15, 13, 0, 0, 0, time.UTC)},
						},
					}),
				},
			},
		},
	}

	var buf bytes.Buffer

	renderTimeline(&buf, artifact, corpus.Meta{Version: "v-123"})

	out := buf.String()

	assert.Contains(t, out, "Timeline for U1")
	assert.Contains(t, out, "v-123")
	assert.Contains(t, out, "2024-01-15")
	assert.Contains(t, out, "shipped a thing")
	assert.NotContains(t, out, "second line")
	assert.Contains(t, out, "2 commits to u1/project (main)")
}

func TestRenderTimeline_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	renderTimeline(&buf, timeline.Artifact{UserID: "U1"}, corpus.Meta{})

	assert.Contains(t, buf.String(), "no activity")
}

func TestRenderStatus(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 16, 6, 0, 0, 0, time.UTC)
	fetched := now.Add(-time.Hour)
	remaining := 42
	openUntil := now.Add(3 * time.Minute)

	accounts := []storage.AccountWithMembers{
		{
			Account: storage.Account{
				ID:            "A1",
				Platform:      platform.GitHub,
				LastFetchedAt: &fetched,
			},
			MemberIDs: []string{"U1", "U2"},
		},
		{
			Account: storage.Account{
				ID:       "A2",
				Platform: platform.Reddit,
			},
			MemberIDs: []string{"U1"},
		},
	}

	states := map[string]ratelimit.State{
		"A1": {AccountID: "A1", Remaining: &remaining},
		"A2": {AccountID: "A2", ConsecutiveFailures: 3, CircuitOpenUntil: &openUntil},
	}

	var buf bytes.Buffer

	renderStatus(&buf, accounts, states, now)

	out := buf.String()

	assert.Contains(t, out, "A1")
	assert.Contains(t, out, "U1,U2")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "closed")
	assert.Contains(t, out, "open until")
}

func TestRenderStatus_NoAccounts(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	renderStatus(&buf, nil, nil, time.Now())

	assert.Contains(t, buf.String(), "no active accounts")
}
