package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testNow pins adapter clocks.
var testNow = time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)

func githubTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		w.Header().Set("X-RateLimit-Remaining", "4999")
		w.Header().Set("X-RateLimit-Limit", "5000")
		writeJSON(w, map[string]any{"login": "octocat", "public_repos": 8})
	})

	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, []map[string]any{{
			"name":           "hello-world",
			"full_name":      "octocat/hello-world",
			"default_branch": "main",
			"private":        false,
			"pushed_at":      "2024-01-15T13:00:00Z",
			"updated_at":     "2024-01-15T13:00:00Z",
			"owner":          map[string]any{"login": "octocat"},
		}})
	})

	mux.HandleFunc("/repos/octocat/hello-world/commits", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, []map[string]any{{
			"sha":      "aaa111",
			"html_url": "https://example.test/commit/aaa111",
			"commit": map[string]any{
				"message": "Initial commit",
				"author":  map[string]any{"date": "2024-01-15T14:00:00Z"},
			},
		}})
	})

	mux.HandleFunc("/repos/octocat/hello-world/pulls", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, []map[string]any{{
			"number":           1,
			"title":            "Add feature",
			"state":            "closed",
			"html_url":         "https://example.test/pull/1",
			"merge_commit_sha": "mmm999",
			"created_at":       "2024-01-14T10:00:00Z",
			"merged_at":        "2024-01-15T09:00:00Z",
			"head":             map[string]any{"ref": "feature"},
			"base":             map[string]any{"ref": "main"},
		}})
	})

	mux.HandleFunc("/repos/octocat/hello-world/pulls/1/commits", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, []map[string]any{
			{"sha": "bbb222"},
			{"sha": "ccc333"},
		})
	})

	return httptest.NewServer(mux)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestGitHubProvider_Fetch(t *testing.T) {
	t.Parallel()

	server := githubTestServer(t)
	defer server.Close()

	g := NewGitHubProvider()
	g.BaseURL = server.URL
	g.Now = func() time.Time { return testNow }

	res, err := g.Fetch(context.Background(), "tok-1")

	require.NoError(t, err)

	payload, ok := res.Payload.(GitHubPayload)

	require.True(t, ok)
	assert.Equal(t, "octocat", payload.Meta.Username)
	assert.Equal(t, 1, payload.Meta.ReposFetched)
	assert.Equal(t, testNow, payload.Meta.FetchedAt)
	require.Len(t, payload.Meta.Repositories, 1)
	assert.Equal(t, "main", payload.Meta.Repositories[0].DefaultBranch)

	repo, ok := payload.Repos["octocat/hello-world"]

	require.True(t, ok)
	require.Len(t, repo.Commits.Commits, 1)
	assert.Equal(t, "aaa111", repo.Commits.Commits[0].SHA)
	assert.Equal(t, "main", repo.Commits.Commits[0].Branch)
	assert.Equal(t, 1, repo.Commits.TotalCommits)

	require.Len(t, repo.PRs.PullRequests, 1)
	pr := repo.PRs.PullRequests[0]
	assert.Equal(t, 1, pr.Number)
	// A merged_at timestamp promotes the state to merged.
	assert.Equal(t, "merged", pr.State)
	assert.Equal(t, "mmm999", pr.MergeCommitSHA)
	// The list-pulls endpoint omits per-PR commits; the follow-up call fills
	// them so a pull request can claim its branch commits.
	assert.Equal(t, []string{"bbb222", "ccc333"}, pr.CommitSHAs)
}

func TestGitHubProvider_ClassifyRateLimited(t *testing.T) {
	t.Parallel()

	resetAt := testNow.Add(5 * time.Minute)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetAt.Unix()))
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	g := NewGitHubProvider()
	g.BaseURL = server.URL
	g.Now = func() time.Time { return testNow }

	_, err := g.Fetch(context.Background(), "tok")

	perr, ok := AsError(err)

	require.True(t, ok)
	assert.Equal(t, KindRateLimited, perr.Kind)
	assert.Equal(t, 300, perr.RetryAfter)
}

func TestGitHubProvider_ClassifyAuthExpired(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "4000")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
	}))
	defer server.Close()

	g := NewGitHubProvider()
	g.BaseURL = server.URL

	_, err := g.Fetch(context.Background(), "tok")

	perr, ok := AsError(err)

	require.True(t, ok)
	assert.Equal(t, KindAuthExpired, perr.Kind)
	assert.Contains(t, perr.Message, "Bad credentials")
}

func TestGitHubProvider_Classify429(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "42")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	g := NewGitHubProvider()
	g.BaseURL = server.URL

	_, err := g.Fetch(context.Background(), "tok")

	perr, ok := AsError(err)

	require.True(t, ok)
	assert.Equal(t, KindRateLimited, perr.Kind)
	assert.Equal(t, 42, perr.RetryAfter)
}

func TestGitHubProvider_ClassifyAPIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	g := NewGitHubProvider()
	g.BaseURL = server.URL

	_, err := g.Fetch(context.Background(), "tok")

	perr, ok := AsError(err)

	require.True(t, ok)
	assert.Equal(t, KindAPIError, perr.Kind)
	assert.Equal(t, http.StatusBadGateway, perr.Status)
	assert.Contains(t, perr.Message, "upstream down")
}

func TestGitHubProvider_NetworkError(t *testing.T) {
	t.Parallel()

	g := NewGitHubProvider()
	g.BaseURL = "http://127.0.0.1:1" // nothing listens here

	_, err := g.Fetch(context.Background(), "tok")

	perr, ok := AsError(err)

	require.True(t, ok)
	assert.Equal(t, KindNetworkError, perr.Kind)
}

func TestGitHubProvider_ParseError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	g := NewGitHubProvider()
	g.BaseURL = server.URL

	_, err := g.Fetch(context.Background(), "tok")

	perr, ok := AsError(err)

	require.True(t, ok)
	assert.Equal(t, KindParseError, perr.Kind)
}

func TestYouTubeProvider_QuotaRetag(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"quotaExceeded"}}`))
	}))
	defer server.Close()

	y := NewYouTubeProvider()
	y.BaseURL = server.URL

	_, err := y.Fetch(context.Background(), "tok")

	perr, ok := AsError(err)

	require.True(t, ok)
	assert.Equal(t, KindRateLimited, perr.Kind)
	assert.Equal(t, youtubeQuotaRetryAfter, perr.RetryAfter)
}

func TestRedditProvider_PaginatesAndCaps(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/me", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		writeJSON(w, map[string]any{"name": "snoo"})
	})

	page := 0
	mux.HandleFunc("/user/snoo/submitted", func(w http.ResponseWriter, r *http.Request) {
		page++

		children := []map[string]any{}
		for i := 0; i < 2; i++ {
			children = append(children, map[string]any{"data": map[string]any{
				"id":          fmt.Sprintf("p%d-%d", page, i),
				"title":       "a post",
				"subreddit":   fmt.Sprintf("sub%d", page),
				"permalink":   "/r/x/1",
				"score":       10,
				"created_utc": 1705327200,
			}})
		}

		after := ""
		if page == 1 && r.URL.Query().Get("after") == "" {
			after = "cursor-2"
		}

		writeJSON(w, map[string]any{"data": map[string]any{"after": after, "children": children}})
	})

	mux.HandleFunc("/user/snoo/comments", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"data": map[string]any{"after": "", "children": []map[string]any{
			{"data": map[string]any{
				"id":           "c1",
				"body":         "a comment",
				"subreddit":    "golang",
				"link_title":   "parent post",
				"is_submitter": true,
				"created_utc":  1705327300,
			}},
		}}})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	r := NewRedditProvider()
	r.BaseURL = server.URL
	r.MaxPosts = 3 // cap mid-page
	r.Now = func() time.Time { return testNow }

	res, err := r.Fetch(context.Background(), "tok")

	require.NoError(t, err)

	payload, ok := res.Payload.(RedditPayload)

	require.True(t, ok)
	assert.Equal(t, "snoo", payload.Meta.Username)
	assert.Len(t, payload.Posts, 3)
	require.Len(t, payload.Comments, 1)
	assert.True(t, payload.Comments[0].IsSubmitter)

	// Union of subreddits across posts and comments, sorted.
	assert.Equal(t, []string{"golang", "sub1", "sub2"}, payload.Meta.SubredditsActive)
}

func TestTwitterProvider_VerifiedTypeMapping(t *testing.T) {
	t.Parallel()

	assert.Equal(t, TwitterVerifiedBlue, MapVerifiedType("blue"))
	assert.Equal(t, TwitterVerifiedBusiness, MapVerifiedType("business"))
	assert.Equal(t, TwitterVerifiedGovernment, MapVerifiedType("government"))
	assert.Equal(t, TwitterVerifiedNone, MapVerifiedType(""))
	assert.Equal(t, TwitterVerifiedNone, MapVerifiedType("gold"))
}

func TestTwitterProvider_Fetch(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()

	mux.HandleFunc("/users/me", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"data": map[string]any{
			"id": "42", "username": "jack", "name": "Jack", "verified_type": "blue",
		}})
	})

	mux.HandleFunc("/users/42/tweets", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("tweet.fields"), "public_metrics")
		writeJSON(w, map[string]any{"data": []map[string]any{{
			"id":         "t1",
			"text":       "just setting up",
			"created_at": "2024-01-15T14:00:00Z",
			"public_metrics": map[string]any{
				"retweet_count": 2, "reply_count": 1, "like_count": 9, "quote_count": 0,
			},
		}}})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	tw := NewTwitterProvider()
	tw.BaseURL = server.URL
	tw.Now = func() time.Time { return testNow }

	res, err := tw.Fetch(context.Background(), "tok")

	require.NoError(t, err)

	payload, ok := res.Payload.(TwitterPayload)

	require.True(t, ok)
	assert.Equal(t, TwitterVerifiedBlue, payload.Meta.VerifiedType)
	require.Len(t, payload.Tweets, 1)
	assert.Equal(t, "just setting up", payload.Tweets[0].Text)
	assert.Equal(t, 9, payload.Tweets[0].LikeCount)
}

func TestErrorStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "rate limited (retry after 60s)", RateLimited(60).Error())
	assert.Contains(t, APIError(500, "boom").Error(), "500")
	assert.Contains(t, AuthExpired("expired").Error(), "expired")
	assert.True(t, strings.HasPrefix(UnknownPlatform("x").Error(), "unknown_platform"))
}
