package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/pulseboard/pulseboard/internal/platform"
)

// Reddit adapter constants.
const (
	redditDefaultBaseURL = "https://oauth.reddit.com"
	redditPageSize       = 100
	redditDefaultMaxRows = 1000

	// redditUserAgent identifies the engine; reddit rejects anonymous
	// clients.
	redditUserAgent = "pulseboard-ingest/1.0"
)

// RedditMeta describes the account and the subreddits it was active in.
type RedditMeta struct {
	Username         string    `json:"username"`
	SubredditsActive []string  `json:"subreddits_active"`
	FetchedAt        time.Time `json:"fetched_at"`
}

// RedditPost is one submission authored by the account.
type RedditPost struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Subreddit   string    `json:"subreddit"`
	Permalink   string    `json:"permalink"`
	URL         string    `json:"url,omitempty"`
	SelfText    string    `json:"selftext,omitempty"`
	Score       int       `json:"score"`
	NumComments int       `json:"num_comments"`
	CreatedAt   time.Time `json:"created_at"`
}

// RedditComment is one comment authored by the account.
type RedditComment struct {
	ID            string    `json:"id"`
	Body          string    `json:"body"`
	Subreddit     string    `json:"subreddit"`
	LinkTitle     string    `json:"link_title"`
	LinkPermalink string    `json:"link_permalink"`
	Score         int       `json:"score"`
	IsSubmitter   bool      `json:"is_submitter"`
	CreatedAt     time.Time `json:"created_at"`
}

// RedditPayload is the raw output of one reddit fetch.
type RedditPayload struct {
	Meta     RedditMeta      `json:"meta"`
	Posts    []RedditPost    `json:"posts"`
	Comments []RedditComment `json:"comments"`
}

// Platform implements Payload.
func (RedditPayload) Platform() platform.Platform { return platform.Reddit }

// RedditProvider fetches the account's submissions and comments through the
// paginated listing API.
type RedditProvider struct {
	BaseURL string
	Client  *http.Client
	// MaxPosts and MaxComments cap how many rows pagination accumulates.
	MaxPosts    int
	MaxComments int
	UserAgent   string
	Now         func() time.Time
}

// NewRedditProvider returns a RedditProvider with production defaults.
func NewRedditProvider() *RedditProvider {
	return &RedditProvider{
		BaseURL:     redditDefaultBaseURL,
		MaxPosts:    redditDefaultMaxRows,
		MaxComments: redditDefaultMaxRows,
		UserAgent:   redditUserAgent,
		Now:         time.Now,
	}
}

// Platform implements Provider.
func (r *RedditProvider) Platform() platform.Platform { return platform.Reddit }

// redditListing is the generic paginated envelope.
type redditListing[T any] struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Data T `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// redditRawPost mirrors the wire shape of a submission.
type redditRawPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Subreddit   string  `json:"subreddit"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`
	SelfText    string  `json:"selftext"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
}

// redditRawComment mirrors the wire shape of a comment.
type redditRawComment struct {
	ID            string  `json:"id"`
	Body          string  `json:"body"`
	Subreddit     string  `json:"subreddit"`
	LinkTitle     string  `json:"link_title"`
	LinkPermalink string  `json:"link_permalink"`
	Score         int     `json:"score"`
	IsSubmitter   bool    `json:"is_submitter"`
	CreatedUTC    float64 `json:"created_utc"`
}

// Fetch resolves the username, then paginates submissions and comments up to
// the configured caps. subreddits_active is the union of subreddits observed.
func (r *RedditProvider) Fetch(ctx context.Context, token string) (Result, error) {
	client := httpClient(r.Client)

	var me struct {
		Name string `json:"name"`
	}

	resp, err := r.get(ctx, client, token, "/api/v1/me", &me)
	if err != nil {
		return Result{}, classifyCommon(resp, err, r.now)
	}

	headers := resp.Header
	subreddits := make(map[string]struct{})

	posts, headers, err := r.fetchPosts(ctx, client, token, me.Name, headers, subreddits)
	if err != nil {
		return Result{}, err
	}

	comments, headers, err := r.fetchComments(ctx, client, token, me.Name, headers, subreddits)
	if err != nil {
		return Result{}, err
	}

	active := make([]string, 0, len(subreddits))
	for name := range subreddits {
		active = append(active, name)
	}

	sort.Strings(active)

	payload := RedditPayload{
		Meta: RedditMeta{
			Username:         me.Name,
			SubredditsActive: active,
			FetchedAt:        r.now(),
		},
		Posts:    posts,
		Comments: comments,
	}

	return Result{Payload: payload, Headers: headers}, nil
}

func (r *RedditProvider) fetchPosts(
	ctx context.Context, client *http.Client, token, username string,
	headers http.Header, subreddits map[string]struct{},
) ([]RedditPost, http.Header, error) {
	maxRows := r.MaxPosts
	if maxRows <= 0 {
		maxRows = redditDefaultMaxRows
	}

	var (
		posts []RedditPost
		after string
	)

	for len(posts) < maxRows {
		path := fmt.Sprintf("/user/%s/submitted?limit=%d&raw_json=1", url.PathEscape(username), redditPageSize)
		if after != "" {
			path += "&after=" + url.QueryEscape(after)
		}

		var listing redditListing[redditRawPost]

		resp, err := r.get(ctx, client, token, path, &listing)
		if err != nil {
			return nil, nil, classifyCommon(resp, err, r.now)
		}

		headers = resp.Header

		for _, child := range listing.Data.Children {
			if len(posts) >= maxRows {
				break
			}

			raw := child.Data
			subreddits[raw.Subreddit] = struct{}{}
			posts = append(posts, RedditPost{
				ID:          raw.ID,
				Title:       raw.Title,
				Subreddit:   raw.Subreddit,
				Permalink:   raw.Permalink,
				URL:         raw.URL,
				SelfText:    raw.SelfText,
				Score:       raw.Score,
				NumComments: raw.NumComments,
				CreatedAt:   unixFloat(raw.CreatedUTC),
			})
		}

		after = listing.Data.After
		if after == "" || len(listing.Data.Children) == 0 {
			break
		}
	}

	return posts, headers, nil
}

func (r *RedditProvider) fetchComments(
	ctx context.Context, client *http.Client, token, username string,
	headers http.Header, subreddits map[string]struct{},
) ([]RedditComment, http.Header, error) {
	maxRows := r.MaxComments
	if maxRows <= 0 {
		maxRows = redditDefaultMaxRows
	}

	var (
		comments []RedditComment
		after    string
	)

	for len(comments) < maxRows {
		path := fmt.Sprintf("/user/%s/comments?limit=%d&raw_json=1", url.PathEscape(username), redditPageSize)
		if after != "" {
			path += "&after=" + url.QueryEscape(after)
		}

		var listing redditListing[redditRawComment]

		resp, err := r.get(ctx, client, token, path, &listing)
		if err != nil {
			return nil, nil, classifyCommon(resp, err, r.now)
		}

		headers = resp.Header

		for _, child := range listing.Data.Children {
			if len(comments) >= maxRows {
				break
			}

			raw := child.Data
			subreddits[raw.Subreddit] = struct{}{}
			comments = append(comments, RedditComment{
				ID:            raw.ID,
				Body:          raw.Body,
				Subreddit:     raw.Subreddit,
				LinkTitle:     raw.LinkTitle,
				LinkPermalink: raw.LinkPermalink,
				Score:         raw.Score,
				IsSubmitter:   raw.IsSubmitter,
				CreatedAt:     unixFloat(raw.CreatedUTC),
			})
		}

		after = listing.Data.After
		if after == "" || len(listing.Data.Children) == 0 {
			break
		}
	}

	return comments, headers, nil
}

func (r *RedditProvider) get(
	ctx context.Context, client *http.Client, token, path string, out any,
) (*http.Response, error) {
	base := r.BaseURL
	if base == "" {
		base = redditDefaultBaseURL
	}

	userAgent := r.UserAgent
	if userAgent == "" {
		userAgent = redditUserAgent
	}

	return getJSON(ctx, client, base+path, "Bearer "+token, map[string]string{
		"User-Agent": userAgent,
	}, out)
}

func (r *RedditProvider) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}

	return time.Now()
}

// unixFloat converts reddit's created_utc float seconds to UTC time.
func unixFloat(seconds float64) time.Time {
	return time.Unix(int64(seconds), 0).UTC()
}
