package normalize

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/pulseboard/pulseboard/internal/platform"
	"github.com/pulseboard/pulseboard/internal/provider"
	"github.com/pulseboard/pulseboard/internal/timeline"
)

// shortSHALen is how many SHA characters participate in a commit item id.
const shortSHALen = 7

// GitHub normalizes a composite github snapshot: one commit item per commit,
// one pull_request item per PR. When a repository reports the same PR number
// more than once, the occurrence with the latest timestamp wins.
func GitHub(raw []byte) ([]timeline.Item, error) {
	var payload provider.GitHubPayload

	err := json.Unmarshal(raw, &payload)
	if err != nil {
		return nil, provider.ParseError(err)
	}

	repos := make([]string, 0, len(payload.Repos))
	for name := range payload.Repos {
		repos = append(repos, name)
	}

	sort.Strings(repos)

	var items []timeline.Item

	for _, repo := range repos {
		data := payload.Repos[repo]

		for _, commit := range data.Commits.Commits {
			item, ok := commitItem(repo, commit)
			if ok {
				items = append(items, item)
			}
		}

		items = append(items, pullRequestItems(repo, data.PRs.PullRequests)...)
	}

	return items, nil
}

func commitItem(repo string, commit provider.GitHubCommit) (timeline.Item, bool) {
	if commit.SHA == "" || commit.AuthoredAt.IsZero() {
		return timeline.Item{}, false
	}

	return timeline.Item{
		ID:        fmt.Sprintf("git:commit:%s:%s", repo, shortSHA(commit.SHA)),
		Platform:  platform.GitHub,
		Type:      timeline.TypeCommit,
		Timestamp: commit.AuthoredAt,
		Title:     titleFrom(commit.Message, shortTitleMax),
		URL:       commit.URL,
		Payload: timeline.CommitPayload{
			Repo:         repo,
			SHA:          commit.SHA,
			Message:      commit.Message,
			Branch:       commit.Branch,
			Additions:    commit.Additions,
			Deletions:    commit.Deletions,
			FilesChanged: commit.FilesChanged,
		},
	}, true
}

// pullRequestItems emits one item per PR number, keeping the occurrence with
// the latest effective timestamp (merged_at when merged, created_at
// otherwise).
func pullRequestItems(repo string, prs []provider.GitHubPullRequest) []timeline.Item {
	latest := make(map[int]timeline.Item, len(prs))

	var order []int

	for _, pr := range prs {
		if pr.Number <= 0 || pr.CreatedAt.IsZero() {
			continue
		}

		item := timeline.Item{
			ID:        fmt.Sprintf("git:pr:%s:%d", repo, pr.Number),
			Platform:  platform.GitHub,
			Type:      timeline.TypePullRequest,
			Timestamp: prTimestamp(pr),
			Title:     truncate(pr.Title, shortTitleMax),
			URL:       pr.URL,
			Payload: timeline.PullRequestPayload{
				Repo:           repo,
				Number:         pr.Number,
				Title:          pr.Title,
				State:          pr.State,
				Action:         pr.Action,
				HeadRef:        pr.HeadRef,
				BaseRef:        pr.BaseRef,
				CommitSHAs:     pr.CommitSHAs,
				MergeCommitSHA: pr.MergeCommitSHA,
			},
		}

		prior, seen := latest[pr.Number]
		if !seen {
			order = append(order, pr.Number)
			latest[pr.Number] = item

			continue
		}

		if item.Timestamp.After(prior.Timestamp) {
			latest[pr.Number] = item
		}
	}

	items := make([]timeline.Item, 0, len(order))
	for _, number := range order {
		items = append(items, latest[number])
	}

	return items
}

// prTimestamp prefers merged_at over created_at.
func prTimestamp(pr provider.GitHubPullRequest) time.Time {
	if pr.MergedAt != nil && !pr.MergedAt.IsZero() {
		return *pr.MergedAt
	}

	return pr.CreatedAt
}

func shortSHA(sha string) string {
	if len(sha) > shortSHALen {
		return sha[:shortSHALen]
	}

	return sha
}
