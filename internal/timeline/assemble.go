package timeline

import (
	"sort"
)

// groupKey identifies one orphan-commit bucket.
type groupKey struct {
	repo   string
	branch string
	date   string
}

// Assemble turns a user's normalized items into date groups, newest first:
// commits claimed by a pull request are folded into that PR entry, the
// remaining commits are bundled into per-(repo, branch, date) commit groups,
// and everything is partitioned by calendar date. Assemble is pure.
func Assemble(items []Item) []DateGroup {
	sorted := make([]Item, len(items))
	copy(sorted, items)

	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Timestamp.After(sorted[j].Timestamp)
		}

		return sorted[i].ID < sorted[j].ID
	})

	var (
		commits []Item
		prs     []Item
		others  []Item
	)

	for _, item := range sorted {
		switch item.Type {
		case TypeCommit:
			commits = append(commits, item)
		case TypePullRequest:
			prs = append(prs, item)
		default:
			others = append(others, item)
		}
	}

	prs, orphans := absorbCommits(prs, commits)
	groups := groupOrphans(orphans)

	entries := make([]Entry, 0, len(groups)+len(prs)+len(others))

	for _, group := range groups {
		entries = append(entries, GroupEntry(group))
	}

	for _, pr := range prs {
		entries = append(entries, ItemEntry(pr))
	}

	for _, item := range others {
		entries = append(entries, ItemEntry(item))
	}

	return partitionByDate(entries)
}

// absorbCommits removes commit items claimed by a PR's commit_shas or merge
// commit and attaches them to the claiming PR, in commit_shas order with the
// merge commit last. The first PR (newest) claiming a SHA owns it.
func absorbCommits(prs, commits []Item) (enriched, orphans []Item) {
	bySHA := make(map[string]Item, len(commits))

	for _, item := range commits {
		payload, ok := item.Payload.(CommitPayload)
		if !ok {
			continue
		}

		if _, seen := bySHA[payload.SHA]; !seen {
			bySHA[payload.SHA] = item
		}
	}

	claimed := make(map[string]bool)
	enriched = make([]Item, 0, len(prs))

	for _, prItem := range prs {
		payload, ok := prItem.Payload.(PullRequestPayload)
		if !ok {
			enriched = append(enriched, prItem)

			continue
		}

		shas := payload.CommitSHAs
		if payload.MergeCommitSHA != "" {
			shas = append(append([]string{}, shas...), payload.MergeCommitSHA)
		}

		for _, sha := range shas {
			claimed[sha] = true

			commitItem, found := bySHA[sha]
			if !found {
				continue
			}

			commitPayload, isCommit := commitItem.Payload.(CommitPayload)
			if !isCommit {
				continue
			}

			if containsSHA(payload.Commits, sha) {
				continue
			}

			payload.Commits = append(payload.Commits, PRCommit{
				SHA:     sha,
				Message: commitPayload.Message,
				URL:     commitItem.URL,
			})
		}

		prItem.Payload = payload
		enriched = append(enriched, prItem)
	}

	for _, item := range commits {
		payload, ok := item.Payload.(CommitPayload)
		if !ok || !claimed[payload.SHA] {
			orphans = append(orphans, item)
		}
	}

	return enriched, orphans
}

func containsSHA(commits []PRCommit, sha string) bool {
	for _, c := range commits {
		if c.SHA == sha {
			return true
		}
	}

	return false
}

// groupOrphans buckets unclaimed commits by (repo, branch, calendar date).
// Input order is newest-first and is preserved inside each group.
func groupOrphans(orphans []Item) []CommitGroup {
	buckets := make(map[groupKey]*CommitGroup)

	var order []groupKey

	for _, item := range orphans {
		payload, ok := item.Payload.(CommitPayload)
		if !ok {
			continue
		}

		key := groupKey{
			repo:   payload.Repo,
			branch: payload.Branch,
			date:   DateKey(item.Timestamp),
		}

		group, exists := buckets[key]
		if !exists {
			group = &CommitGroup{
				Type:   EntryTypeCommitGroup,
				Repo:   key.repo,
				Branch: key.branch,
				Date:   key.date,
			}
			buckets[key] = group
			order = append(order, key)
		}

		group.Commits = append(group.Commits, item)
		group.TotalAdditions += payload.Additions
		group.TotalDeletions += payload.Deletions
		group.TotalFilesChanged += payload.FilesChanged
	}

	groups := make([]CommitGroup, 0, len(order))
	for _, key := range order {
		groups = append(groups, *buckets[key])
	}

	return groups
}

// partitionByDate buckets entries into date groups sorted strictly
// descending by date, entries newest-first within each group.
func partitionByDate(entries []Entry) []DateGroup {
	buckets := make(map[string][]Entry)

	for _, entry := range entries {
		date := entryDate(entry)
		buckets[date] = append(buckets[date], entry)
	}

	dates := make([]string, 0, len(buckets))
	for date := range buckets {
		dates = append(dates, date)
	}

	// YYYY-MM-DD orders lexically.
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	groups := make([]DateGroup, 0, len(dates))

	for _, date := range dates {
		bucket := buckets[date]

		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].SortTimestamp().After(bucket[j].SortTimestamp())
		})

		groups = append(groups, DateGroup{Date: date, Items: bucket})
	}

	return groups
}

// entryDate is the grouping key: the group's own date for commit groups,
// the timestamp's calendar date otherwise.
func entryDate(entry Entry) string {
	if entry.Group != nil {
		return entry.Group.Date
	}

	return DateKey(entry.Item.Timestamp)
}
