package platform

import (
	"errors"
	"fmt"
	"strings"
)

// StoreKind discriminates the recognized store-id shapes.
type StoreKind string

// Recognized store kinds.
const (
	StoreRaw            StoreKind = "raw"
	StoreTimeline       StoreKind = "timeline"
	StoreGitHubMeta     StoreKind = "github_meta"
	StoreGitHubCommits  StoreKind = "github_commits"
	StoreGitHubPRs      StoreKind = "github_prs"
	StoreRedditMeta     StoreKind = "reddit_meta"
	StoreRedditPosts    StoreKind = "reddit_posts"
	StoreRedditComments StoreKind = "reddit_comments"
	StoreTwitterMeta    StoreKind = "twitter_meta"
	StoreTwitterTweets  StoreKind = "twitter_tweets"
)

// Store-id path segments.
const (
	segRaw      = "raw"
	segTimeline = "timeline"
	segMeta     = "meta"
	segCommits  = "commits"
	segPRs      = "prs"
	segPosts    = "posts"
	segComments = "comments"
	segTweets   = "tweets"

	separator = "/"
)

// Store-id parse errors.
var (
	ErrEmptyStoreID     = errors.New("empty store id")
	ErrUnknownStoreID   = errors.New("unrecognized store id")
	ErrEmptyComponent   = errors.New("store id has empty component")
	ErrInvalidComponent = errors.New("store id component contains separator")
)

// StoreID is the parsed form of a store identifier. Kind selects which of the
// remaining fields are meaningful. Callers never split store-id strings
// themselves; Parse is the single recognizer.
type StoreID struct {
	Kind     StoreKind
	Platform Platform
	// AccountID is set for raw and platform-specific kinds.
	AccountID string
	// UserID is set for timeline stores.
	UserID string
	// Owner and Repo are set for github commits/prs stores.
	Owner string
	Repo  string
}

// RawStore returns the store id for a platform's raw account snapshot stream.
func RawStore(p Platform, accountID string) StoreID {
	return StoreID{Kind: StoreRaw, Platform: p, AccountID: accountID}
}

// TimelineStore returns the store id for a user's timeline artifacts.
func TimelineStore(userID string) StoreID {
	return StoreID{Kind: StoreTimeline, UserID: userID}
}

// GitHubMetaStore returns the github meta store id for an account.
func GitHubMetaStore(accountID string) StoreID {
	return StoreID{Kind: StoreGitHubMeta, Platform: GitHub, AccountID: accountID}
}

// GitHubCommitsStore returns the merged-commits store id for one repository.
func GitHubCommitsStore(accountID, owner, repo string) StoreID {
	return StoreID{Kind: StoreGitHubCommits, Platform: GitHub, AccountID: accountID, Owner: owner, Repo: repo}
}

// GitHubPRsStore returns the merged-pull-requests store id for one repository.
func GitHubPRsStore(accountID, owner, repo string) StoreID {
	return StoreID{Kind: StoreGitHubPRs, Platform: GitHub, AccountID: accountID, Owner: owner, Repo: repo}
}

// RedditMetaStore returns the reddit meta store id for an account.
func RedditMetaStore(accountID string) StoreID {
	return StoreID{Kind: StoreRedditMeta, Platform: Reddit, AccountID: accountID}
}

// RedditPostsStore returns the merged-posts store id for an account.
func RedditPostsStore(accountID string) StoreID {
	return StoreID{Kind: StoreRedditPosts, Platform: Reddit, AccountID: accountID}
}

// RedditCommentsStore returns the merged-comments store id for an account.
func RedditCommentsStore(accountID string) StoreID {
	return StoreID{Kind: StoreRedditComments, Platform: Reddit, AccountID: accountID}
}

// TwitterMetaStore returns the twitter meta store id for an account.
func TwitterMetaStore(accountID string) StoreID {
	return StoreID{Kind: StoreTwitterMeta, Platform: Twitter, AccountID: accountID}
}

// TwitterTweetsStore returns the merged-tweets store id for an account.
func TwitterTweetsStore(accountID string) StoreID {
	return StoreID{Kind: StoreTwitterTweets, Platform: Twitter, AccountID: accountID}
}

// String renders the canonical `/`-delimited form.
func (s StoreID) String() string {
	switch s.Kind {
	case StoreRaw:
		return join(segRaw, string(s.Platform), s.AccountID)
	case StoreTimeline:
		return join(segTimeline, s.UserID)
	case StoreGitHubMeta:
		return join(string(GitHub), s.AccountID, segMeta)
	case StoreGitHubCommits:
		return join(string(GitHub), s.AccountID, segCommits, s.Owner, s.Repo)
	case StoreGitHubPRs:
		return join(string(GitHub), s.AccountID, segPRs, s.Owner, s.Repo)
	case StoreRedditMeta:
		return join(string(Reddit), s.AccountID, segMeta)
	case StoreRedditPosts:
		return join(string(Reddit), s.AccountID, segPosts)
	case StoreRedditComments:
		return join(string(Reddit), s.AccountID, segComments)
	case StoreTwitterMeta:
		return join(string(Twitter), s.AccountID, segMeta)
	case StoreTwitterTweets:
		return join(string(Twitter), s.AccountID, segTweets)
	default:
		return ""
	}
}

// Parse recognizes a store-id string and returns its parsed form.
func Parse(id string) (StoreID, error) {
	if id == "" {
		return StoreID{}, ErrEmptyStoreID
	}

	parts := strings.Split(id, separator)
	for _, part := range parts {
		if part == "" {
			return StoreID{}, fmt.Errorf("%w: %q", ErrEmptyComponent, id)
		}
	}

	switch parts[0] {
	case segRaw:
		return parseRaw(id, parts)
	case segTimeline:
		return parseTimeline(id, parts)
	case string(GitHub):
		return parseGitHub(id, parts)
	case string(Reddit):
		return parseReddit(id, parts)
	case string(Twitter):
		return parseTwitter(id, parts)
	default:
		return StoreID{}, fmt.Errorf("%w: %q", ErrUnknownStoreID, id)
	}
}

func parseRaw(id string, parts []string) (StoreID, error) {
	if len(parts) != 3 {
		return StoreID{}, fmt.Errorf("%w: %q", ErrUnknownStoreID, id)
	}

	p := Platform(parts[1])
	if !p.Valid() {
		return StoreID{}, fmt.Errorf("%w: %q", ErrUnknownStoreID, id)
	}

	return RawStore(p, parts[2]), nil
}

func parseTimeline(id string, parts []string) (StoreID, error) {
	if len(parts) != 2 {
		return StoreID{}, fmt.Errorf("%w: %q", ErrUnknownStoreID, id)
	}

	return TimelineStore(parts[1]), nil
}

func parseGitHub(id string, parts []string) (StoreID, error) {
	switch {
	case len(parts) == 3 && parts[2] == segMeta:
		return GitHubMetaStore(parts[1]), nil
	case len(parts) == 5 && parts[2] == segCommits:
		return GitHubCommitsStore(parts[1], parts[3], parts[4]), nil
	case len(parts) == 5 && parts[2] == segPRs:
		return GitHubPRsStore(parts[1], parts[3], parts[4]), nil
	default:
		return StoreID{}, fmt.Errorf("%w: %q", ErrUnknownStoreID, id)
	}
}

func parseReddit(id string, parts []string) (StoreID, error) {
	if len(parts) != 3 {
		return StoreID{}, fmt.Errorf("%w: %q", ErrUnknownStoreID, id)
	}

	switch parts[2] {
	case segMeta:
		return RedditMetaStore(parts[1]), nil
	case segPosts:
		return RedditPostsStore(parts[1]), nil
	case segComments:
		return RedditCommentsStore(parts[1]), nil
	default:
		return StoreID{}, fmt.Errorf("%w: %q", ErrUnknownStoreID, id)
	}
}

func parseTwitter(id string, parts []string) (StoreID, error) {
	if len(parts) != 3 {
		return StoreID{}, fmt.Errorf("%w: %q", ErrUnknownStoreID, id)
	}

	switch parts[2] {
	case segMeta:
		return TwitterMetaStore(parts[1]), nil
	case segTweets:
		return TwitterTweetsStore(parts[1]), nil
	default:
		return StoreID{}, fmt.Errorf("%w: %q", ErrUnknownStoreID, id)
	}
}

// AccountNamespaces returns the store-id prefixes owned by the given account.
// Deleting an account removes every store matching one of these prefixes.
func AccountNamespaces(p Platform, accountID string) []string {
	namespaces := []string{RawStore(p, accountID).String()}

	if p.MultiStore() {
		namespaces = append(namespaces, join(string(p), accountID)+separator)
	}

	return namespaces
}

// ValidateComponent rejects id components that would break the `/`-delimited
// grammar. Components are ASCII and must not contain the separator.
func ValidateComponent(component string) error {
	if component == "" {
		return ErrEmptyComponent
	}

	if strings.Contains(component, separator) {
		return fmt.Errorf("%w: %q", ErrInvalidComponent, component)
	}

	return nil
}

func join(parts ...string) string {
	return strings.Join(parts, separator)
}
