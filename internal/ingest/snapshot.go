package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pulseboard/pulseboard/internal/corpus"
	"github.com/pulseboard/pulseboard/internal/merge"
	"github.com/pulseboard/pulseboard/internal/platform"
	"github.com/pulseboard/pulseboard/internal/provider"
)

// writeSnapshot persists a successful fetch. Multi-store platforms merge the
// incoming payload with the previous raw composite and additionally write
// their per-collection sub-stores; single-raw platforms write the payload
// as-is. The returned result identifies the raw composite snapshot.
func (e *Engine) writeSnapshot(ctx context.Context, accountID string, result provider.Result) (corpus.PutResult, error) {
	p := result.Payload.Platform()
	tags := snapshotTags(p, accountID)

	switch payload := result.Payload.(type) {
	case provider.GitHubPayload:
		return e.writeGitHub(ctx, accountID, payload, tags)
	case provider.RedditPayload:
		return e.writeReddit(ctx, accountID, payload, tags)
	case provider.TwitterPayload:
		return e.writeTwitter(ctx, accountID, payload, tags)
	default:
		store := corpus.NewStore[provider.Payload](e.Corpus, platform.RawStore(p, accountID).String())

		put, err := store.Put(ctx, result.Payload, corpus.PutOptions{Tags: tags})
		if err != nil {
			return corpus.PutResult{}, err
		}

		e.Metrics.RecordSnapshot(ctx, string(p))

		return put, nil
	}
}

func snapshotTags(p platform.Platform, accountID string) []string {
	return []string{"platform:" + string(p), "account:" + accountID}
}

// writeGitHub merges per repository: commits by SHA with branch union, PRs by
// number with incoming-wins. Repositories absent from the incoming fetch are
// carried forward so the composite never loses history.
func (e *Engine) writeGitHub(
	ctx context.Context, accountID string, incoming provider.GitHubPayload, tags []string,
) (corpus.PutResult, error) {
	rawStore := corpus.NewStore[provider.GitHubPayload](
		e.Corpus, platform.RawStore(platform.GitHub, accountID).String())

	prior, err := latestOrZero(ctx, rawStore)
	if err != nil {
		return corpus.PutResult{}, err
	}

	merged := provider.GitHubPayload{
		Meta:  incoming.Meta,
		Repos: make(map[string]provider.GitHubRepoData, len(prior.Repos)+len(incoming.Repos)),
	}

	for name, data := range prior.Repos {
		merged.Repos[name] = data
	}

	newItems := 0

	for name, data := range incoming.Repos {
		priorData := merged.Repos[name]

		commits, newCommits := merge.Commits(priorData.Commits, data.Commits)
		prs, newPRs := merge.PullRequests(priorData.PRs, data.PRs)
		merged.Repos[name] = provider.GitHubRepoData{Commits: commits, PRs: prs}
		newItems += newCommits + newPRs

		owner, repo, ok := strings.Cut(name, "/")
		if !ok {
			return corpus.PutResult{}, fmt.Errorf("malformed repository name %q", name)
		}

		commitsStore := corpus.NewStore[provider.GitHubCommitSet](
			e.Corpus, platform.GitHubCommitsStore(accountID, owner, repo).String())

		_, err = commitsStore.Put(ctx, commits, corpus.PutOptions{Tags: tags})
		if err != nil {
			return corpus.PutResult{}, err
		}

		prsStore := corpus.NewStore[provider.GitHubPRSet](
			e.Corpus, platform.GitHubPRsStore(accountID, owner, repo).String())

		_, err = prsStore.Put(ctx, prs, corpus.PutOptions{Tags: tags})
		if err != nil {
			return corpus.PutResult{}, err
		}
	}

	metaStore := corpus.NewStore[provider.GitHubMeta](
		e.Corpus, platform.GitHubMetaStore(accountID).String())

	_, err = metaStore.Put(ctx, incoming.Meta, corpus.PutOptions{Tags: tags})
	if err != nil {
		return corpus.PutResult{}, err
	}

	e.Metrics.RecordMerge(ctx, string(platform.GitHub), newItems)
	e.Metrics.RecordSnapshot(ctx, string(platform.GitHub))

	return rawStore.Put(ctx, merged, corpus.PutOptions{Tags: tags})
}

// writeReddit merges posts and comments by id with incoming-wins.
func (e *Engine) writeReddit(
	ctx context.Context, accountID string, incoming provider.RedditPayload, tags []string,
) (corpus.PutResult, error) {
	rawStore := corpus.NewStore[provider.RedditPayload](
		e.Corpus, platform.RawStore(platform.Reddit, accountID).String())

	prior, err := latestOrZero(ctx, rawStore)
	if err != nil {
		return corpus.PutResult{}, err
	}

	posts, newPosts := merge.RedditPosts(prior.Posts, incoming.Posts)
	comments, newComments := merge.RedditComments(prior.Comments, incoming.Comments)

	merged := provider.RedditPayload{
		Meta:     incoming.Meta,
		Posts:    posts,
		Comments: comments,
	}

	for _, write := range []struct {
		id      string
		payload any
	}{
		{platform.RedditMetaStore(accountID).String(), incoming.Meta},
		{platform.RedditPostsStore(accountID).String(), posts},
		{platform.RedditCommentsStore(accountID).String(), comments},
	} {
		store := corpus.NewStore[any](e.Corpus, write.id)

		_, err = store.Put(ctx, write.payload, corpus.PutOptions{Tags: tags})
		if err != nil {
			return corpus.PutResult{}, err
		}
	}

	e.Metrics.RecordMerge(ctx, string(platform.Reddit), newPosts+newComments)
	e.Metrics.RecordSnapshot(ctx, string(platform.Reddit))

	return rawStore.Put(ctx, merged, corpus.PutOptions{Tags: tags})
}

// writeTwitter merges tweets by id with incoming-wins.
func (e *Engine) writeTwitter(
	ctx context.Context, accountID string, incoming provider.TwitterPayload, tags []string,
) (corpus.PutResult, error) {
	rawStore := corpus.NewStore[provider.TwitterPayload](
		e.Corpus, platform.RawStore(platform.Twitter, accountID).String())

	prior, err := latestOrZero(ctx, rawStore)
	if err != nil {
		return corpus.PutResult{}, err
	}

	tweets, newTweets := merge.Tweets(prior.Tweets, incoming.Tweets)
	merged := provider.TwitterPayload{Meta: incoming.Meta, Tweets: tweets}

	metaStore := corpus.NewStore[provider.TwitterMeta](
		e.Corpus, platform.TwitterMetaStore(accountID).String())

	_, err = metaStore.Put(ctx, incoming.Meta, corpus.PutOptions{Tags: tags})
	if err != nil {
		return corpus.PutResult{}, err
	}

	tweetsStore := corpus.NewStore[[]provider.Tweet](
		e.Corpus, platform.TwitterTweetsStore(accountID).String())

	_, err = tweetsStore.Put(ctx, tweets, corpus.PutOptions{Tags: tags})
	if err != nil {
		return corpus.PutResult{}, err
	}

	e.Metrics.RecordMerge(ctx, string(platform.Twitter), newTweets)
	e.Metrics.RecordSnapshot(ctx, string(platform.Twitter))

	return rawStore.Put(ctx, merged, corpus.PutOptions{Tags: tags})
}

// latestOrZero reads a store's latest payload, treating an empty store as the
// zero payload.
func latestOrZero[T any](ctx context.Context, store corpus.Store[T]) (T, error) {
	_, payload, err := store.GetLatest(ctx)
	if err != nil && !errors.Is(err, corpus.ErrNotFound) {
		var zero T

		return zero, fmt.Errorf("read prior snapshot of %q: %w", store.ID(), err)
	}

	return payload, nil
}
