package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Roundtrip(t *testing.T) {
	t.Parallel()

	ids := []StoreID{
		RawStore(GitHub, "acc-1"),
		RawStore(Bluesky, "acc-2"),
		RawStore(Dayplan, "acc-9"),
		TimelineStore("user-1"),
		GitHubMetaStore("acc-1"),
		GitHubCommitsStore("acc-1", "octocat", "hello-world"),
		GitHubPRsStore("acc-1", "octocat", "hello-world"),
		RedditMetaStore("acc-3"),
		RedditPostsStore("acc-3"),
		RedditCommentsStore("acc-3"),
		TwitterMetaStore("acc-4"),
		TwitterTweetsStore("acc-4"),
	}

	for _, id := range ids {
		parsed, err := Parse(id.String())

		require.NoError(t, err, id.String())
		assert.Equal(t, id, parsed)
	}
}

func TestParse_Strings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want StoreID
	}{
		{"raw/github/a1", RawStore(GitHub, "a1")},
		{"timeline/u1", TimelineStore("u1")},
		{"github/a1/meta", GitHubMetaStore("a1")},
		{"github/a1/commits/me/proj", GitHubCommitsStore("a1", "me", "proj")},
		{"github/a1/prs/me/proj", GitHubPRsStore("a1", "me", "proj")},
		{"reddit/a2/posts", RedditPostsStore("a2")},
		{"twitter/a3/tweets", TwitterTweetsStore("a3")},
	}

	for _, tc := range tests {
		got, err := Parse(tc.in)

		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParse_Rejects(t *testing.T) {
	t.Parallel()

	bad := []string{
		"",
		"raw",
		"raw/github",
		"raw/myspace/a1",
		"raw/github/a1/extra",
		"timeline",
		"timeline/u1/extra",
		"github/a1",
		"github/a1/branches",
		"github/a1/commits/onlyowner",
		"reddit/a1/tweets",
		"twitter/a1/posts",
		"raw//a1",
		"unknown/a/b",
	}

	for _, in := range bad {
		_, err := Parse(in)

		assert.Error(t, err, "input %q", in)
	}
}

func TestAccountNamespaces(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"raw/bluesky/a1"}, AccountNamespaces(Bluesky, "a1"))
	assert.Equal(t, []string{"raw/github/a1", "github/a1/"}, AccountNamespaces(GitHub, "a1"))
	assert.Equal(t, []string{"raw/reddit/a2", "reddit/a2/"}, AccountNamespaces(Reddit, "a2"))
}

func TestValidateComponent(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateComponent("acc-1"))
	assert.Error(t, ValidateComponent(""))
	assert.Error(t, ValidateComponent("a/b"))
}

func TestPlatformValid(t *testing.T) {
	t.Parallel()

	for _, p := range All {
		assert.True(t, p.Valid(), p)
	}

	assert.False(t, Platform("myspace").Valid())
}
