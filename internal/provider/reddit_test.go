package provider_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseboard/pulseboard/internal/provider"
)

func redditPostJSON(id, subreddit string) string {
	return fmt.Sprintf(`{"data": {"id": %q, "title": "post %s", "subreddit": %q, "permalink": "/r/%s/comments/%s/", "score": 1, "num_comments": 0, "created_utc": 1705329000}}`,
		id, id, subreddit, subreddit, id)
}

func TestRedditProvider_FetchPaginates(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/me", func(rw http.ResponseWriter, hr *http.Request) {
		assert.Equal(t, "test-agent/1.0", hr.Header.Get("User-Agent"))
		fmt.Fprint(rw, `{"name":"alice"}`)
	})

	mux.HandleFunc("/user/alice/submitted", func(rw http.ResponseWriter, hr *http.Request) {
		if hr.URL.Query().Get("after") == "" {
			fmt.Fprintf(rw, `{"data": {"after": "t3_p2", "children": [%s]}}`, redditPostJSON("p1", "golang"))

			return
		}

		assert.Equal(t, "t3_p2", hr.URL.Query().Get("after"))
		fmt.Fprintf(rw, `{"data": {"after": "", "children": [%s]}}`, redditPostJSON("p2", "selfhosted"))
	})

	mux.HandleFunc("/user/alice/comments", func(rw http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(rw, `{"data": {"after": "", "children": [
			{"data": {"id": "c1", "body": "nice", "subreddit": "golang", "link_title": "a post", "score": 7, "is_submitter": true, "created_utc": 1705330000}}
		]}}`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	prov := provider.NewRedditProvider()
	prov.BaseURL = server.URL
	prov.UserAgent = "test-agent/1.0"
	prov.Now = func() time.Time { return time.Date(2024, 1, 16, 6, 0, 0, 0, time.UTC) }

	result, err := prov.Fetch(context.Background(), "tok-1")
	require.NoError(t, err)

	payload, ok := result.Payload.(provider.RedditPayload)
	require.True(t, ok)

	assert.Equal(t, "alice", payload.Meta.Username)
	// Subreddit union across posts and comments, sorted.
	assert.Equal(t, []string{"golang", "selfhosted"}, payload.Meta.SubredditsActive)

	require.Len(t, payload.Posts, 2)
	assert.Equal(t, "p1", payload.Posts[0].ID)
	assert.Equal(t, "p2", payload.Posts[1].ID)
	assert.Equal(t, time.Unix(1705329000, 0).UTC(), payload.Posts[0].CreatedAt)

	require.Len(t, payload.Comments, 1)
	assert.Equal(t, "c1", payload.Comments[0].ID)
	assert.True(t, payload.Comments[0].IsSubmitter)
}

func TestRedditProvider_MaxPostsCapStopsPagination(t *testing.T) {
	t.Parallel()

	pages := 0
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/me", func(rw http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(rw, `{"name":"alice"}`)
	})

	mux.HandleFunc("/user/alice/submitted", func(rw http.ResponseWriter, _ *http.Request) {
		pages++
		// Every page advertises more data.
		fmt.Fprintf(rw, `{"data": {"after": "t3_more", "children": [%s, %s]}}`,
			redditPostJSON(fmt.Sprintf("p%d-a", pages), "golang"),
			redditPostJSON(fmt.Sprintf("p%d-b", pages), "golang"))
	})

	mux.HandleFunc("/user/alice/comments", func(rw http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(rw, `{"data": {"after": "", "children": []}}`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	prov := provider.NewRedditProvider()
	prov.BaseURL = server.URL
	prov.MaxPosts = 3

	result, err := prov.Fetch(context.Background(), "tok-1")
	require.NoError(t, err)

	payload, ok := result.Payload.(provider.RedditPayload)
	require.True(t, ok)

	assert.Len(t, payload.Posts, 3)
	assert.Equal(t, 2, pages)
}

func TestRedditProvider_APIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		http.Error(rw, `{"message":"Internal Server Error"}`, http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	prov := provider.NewRedditProvider()
	prov.BaseURL = server.URL

	_, err := prov.Fetch(context.Background(), "tok-1")
	require.Error(t, err)

	perr, ok := provider.AsError(err)
	require.True(t, ok)
	assert.Equal(t, provider.KindAPIError, perr.Kind)
	assert.Equal(t, http.StatusInternalServerError, perr.Status)
}
