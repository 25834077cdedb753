package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseboard/pulseboard/internal/platform"
)

func TestMemory_ReturnsPayloadAndCounts(t *testing.T) {
	t.Parallel()

	payload := DayplanPayload{
		Tasks:     []DayplanTask{{ID: "t1", Title: "write tests", Status: "open", UpdatedAt: time.Now()}},
		FetchedAt: time.Now(),
	}

	m := NewMemory(platform.Dayplan, payload)

	assert.Equal(t, platform.Dayplan, m.Platform())
	assert.Zero(t, m.CallCount())

	res, err := m.Fetch(context.Background(), "token")

	require.NoError(t, err)
	assert.Equal(t, payload, res.Payload)
	assert.Equal(t, 1, m.CallCount())

	_, err = m.Fetch(context.Background(), "token")

	require.NoError(t, err)
	assert.Equal(t, 2, m.CallCount())
}

func TestMemory_SimulateRateLimit(t *testing.T) {
	t.Parallel()

	m := NewMemory(platform.GitHub, GitHubPayload{})
	m.SimulateRateLimit(true)
	m.SetRetryAfter(300)

	_, err := m.Fetch(context.Background(), "token")

	require.Error(t, err)

	perr, ok := AsError(err)

	require.True(t, ok)
	assert.Equal(t, KindRateLimited, perr.Kind)
	assert.Equal(t, 300, perr.RetryAfter)
	assert.Equal(t, 1, m.CallCount())

	// Toggling off restores success.
	m.SimulateRateLimit(false)

	_, err = m.Fetch(context.Background(), "token")

	require.NoError(t, err)
}

func TestMemory_SimulateAuthExpired(t *testing.T) {
	t.Parallel()

	m := NewMemory(platform.Bluesky, BlueskyPayload{})
	m.SimulateAuthExpired(true)

	_, err := m.Fetch(context.Background(), "token")

	require.Error(t, err)

	perr, ok := AsError(err)

	require.True(t, ok)
	assert.Equal(t, KindAuthExpired, perr.Kind)
}

func TestMemory_RateLimitTakesPriorityOverAuth(t *testing.T) {
	t.Parallel()

	m := NewMemory(platform.Reddit, RedditPayload{})
	m.SimulateRateLimit(true)
	m.SimulateAuthExpired(true)

	_, err := m.Fetch(context.Background(), "token")

	perr, ok := AsError(err)

	require.True(t, ok)
	assert.Equal(t, KindRateLimited, perr.Kind)
}

func TestMemory_CancelledContext(t *testing.T) {
	t.Parallel()

	m := NewMemory(platform.Twitter, TwitterPayload{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Fetch(ctx, "token")

	require.ErrorIs(t, err, context.Canceled)
	// A cancelled fetch does not count as a call outcome.
	assert.Zero(t, m.CallCount())
}

func TestRegistry_Dispatch(t *testing.T) {
	t.Parallel()

	github := NewMemory(platform.GitHub, GitHubPayload{})
	reddit := NewMemory(platform.Reddit, RedditPayload{})

	registry := NewRegistry(github, reddit)

	_, err := registry.Fetch(context.Background(), platform.GitHub, "token")

	require.NoError(t, err)
	assert.Equal(t, 1, github.CallCount())
	assert.Zero(t, reddit.CallCount())
}

func TestRegistry_UnknownPlatform(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	_, err := registry.Fetch(context.Background(), platform.Platform("myspace"), "token")

	require.Error(t, err)

	perr, ok := AsError(err)

	require.True(t, ok)
	assert.Equal(t, KindUnknownPlatform, perr.Kind)
	assert.Equal(t, "myspace", perr.Message)
}
