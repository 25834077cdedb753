// Package merge folds freshly fetched provider collections into previously
// stored state by stable key. The incoming side wins on conflict; the new
// count reports keys present in incoming but absent from existing.
package merge

import (
	"sort"
	"strconv"

	"github.com/pulseboard/pulseboard/internal/provider"
)

// Keyed merges incoming into existing by key. Existing entries keep their
// order; genuinely new entries are appended in incoming order. When both
// sides hold a key, combine decides the surviving value (nil combine keeps
// the incoming value).
func Keyed[T any](existing, incoming []T, key func(T) string, combine func(old, new T) T) ([]T, int) {
	index := make(map[string]int, len(existing))
	merged := make([]T, len(existing))
	copy(merged, existing)

	for i, item := range existing {
		index[key(item)] = i
	}

	newCount := 0

	for _, item := range incoming {
		k := key(item)

		at, seen := index[k]
		if !seen {
			index[k] = len(merged)
			merged = append(merged, item)
			newCount++

			continue
		}

		if combine != nil {
			merged[at] = combine(merged[at], item)
		} else {
			merged[at] = item
		}
	}

	return merged, newCount
}

// Commits merges commit sets on sha. Incoming wins on conflict, branch sets
// union, and the merged total is recomputed.
func Commits(existing, incoming provider.GitHubCommitSet) (provider.GitHubCommitSet, int) {
	merged, newCount := Keyed(existing.Commits, incoming.Commits,
		func(c provider.GitHubCommit) string { return c.SHA },
		func(old, incoming provider.GitHubCommit) provider.GitHubCommit {
			incoming.Branches = unionBranches(old, incoming)

			return incoming
		})

	return provider.GitHubCommitSet{
		Commits:      merged,
		TotalCommits: len(merged),
	}, newCount
}

// unionBranches unions the branch sets of two observations of one commit,
// sorted for stable serialization.
func unionBranches(old, incoming provider.GitHubCommit) []string {
	seen := make(map[string]struct{})

	for _, c := range []provider.GitHubCommit{old, incoming} {
		if c.Branch != "" {
			seen[c.Branch] = struct{}{}
		}

		for _, branch := range c.Branches {
			if branch != "" {
				seen[branch] = struct{}{}
			}
		}
	}

	branches := make([]string, 0, len(seen))
	for branch := range seen {
		branches = append(branches, branch)
	}

	sort.Strings(branches)

	return branches
}

// PullRequests merges pull-request sets on number; incoming wins.
func PullRequests(existing, incoming provider.GitHubPRSet) (provider.GitHubPRSet, int) {
	merged, newCount := Keyed(existing.PullRequests, incoming.PullRequests,
		func(pr provider.GitHubPullRequest) string { return strconv.Itoa(pr.Number) }, nil)

	return provider.GitHubPRSet{PullRequests: merged}, newCount
}

// RedditPosts merges post lists on id; incoming wins.
func RedditPosts(existing, incoming []provider.RedditPost) ([]provider.RedditPost, int) {
	return Keyed(existing, incoming,
		func(p provider.RedditPost) string { return p.ID }, nil)
}

// RedditComments merges comment lists on id; incoming wins.
func RedditComments(existing, incoming []provider.RedditComment) ([]provider.RedditComment, int) {
	return Keyed(existing, incoming,
		func(c provider.RedditComment) string { return c.ID }, nil)
}

// Tweets merges tweet lists on id; incoming wins.
func Tweets(existing, incoming []provider.Tweet) ([]provider.Tweet, int) {
	return Keyed(existing, incoming,
		func(t provider.Tweet) string { return t.ID }, nil)
}
