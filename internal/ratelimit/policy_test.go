package ratelimit

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedNow pins the policy clock for deterministic assertions.
var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testPolicy() Policy {
	p := NewPolicy()
	p.Now = func() time.Time { return fixedNow }

	return p
}

func intp(n int) *int { return &n }

func timep(t time.Time) *time.Time { return &t }

func TestShouldFetch_UnknownStatePermits(t *testing.T) {
	t.Parallel()

	p := testPolicy()

	assert.True(t, p.ShouldFetch(State{AccountID: "a1"}))
}

func TestShouldFetch_ExhaustedRateSuppresses(t *testing.T) {
	t.Parallel()

	p := testPolicy()

	s := State{Remaining: intp(0), ResetAt: timep(fixedNow.Add(time.Minute))}
	assert.False(t, p.ShouldFetch(s))

	// Expired window permits again.
	s.ResetAt = timep(fixedNow.Add(-time.Second))
	assert.True(t, p.ShouldFetch(s))

	// Remaining budget permits even before reset.
	s = State{Remaining: intp(10), ResetAt: timep(fixedNow.Add(time.Minute))}
	assert.True(t, p.ShouldFetch(s))
}

func TestShouldFetch_OpenCircuitSuppresses(t *testing.T) {
	t.Parallel()

	p := testPolicy()

	s := State{CircuitOpenUntil: timep(fixedNow.Add(time.Minute))}
	assert.False(t, p.ShouldFetch(s))

	s.CircuitOpenUntil = timep(fixedNow.Add(-time.Second))
	assert.True(t, p.ShouldFetch(s))
}

// Exhausted rate suppresses regardless of circuit state, and vice versa.
func TestShouldFetch_Precedence(t *testing.T) {
	t.Parallel()

	p := testPolicy()

	rateOnly := State{
		Remaining:        intp(0),
		ResetAt:          timep(fixedNow.Add(time.Minute)),
		CircuitOpenUntil: timep(fixedNow.Add(-time.Hour)),
	}
	assert.False(t, p.ShouldFetch(rateOnly))

	circuitOnly := State{
		Remaining:        intp(100),
		ResetAt:          timep(fixedNow.Add(time.Minute)),
		CircuitOpenUntil: timep(fixedNow.Add(time.Minute)),
	}
	assert.False(t, p.ShouldFetch(circuitOnly))

	both := State{
		Remaining:        intp(0),
		ResetAt:          timep(fixedNow.Add(time.Minute)),
		CircuitOpenUntil: timep(fixedNow.Add(time.Minute)),
	}
	assert.False(t, p.ShouldFetch(both))
}

func TestUpdateOnSuccess_ExtractsHeadersAndClearsFailures(t *testing.T) {
	t.Parallel()

	p := testPolicy()

	headers := http.Header{}
	headers.Set(HeaderRemaining, "4999")
	headers.Set(HeaderLimit, "5000")
	headers.Set(HeaderReset, "1717243200") // 2024-06-01T13:20:00Z.

	prior := State{
		AccountID:           "a1",
		ConsecutiveFailures: 2,
		LastFailureAt:       timep(fixedNow.Add(-time.Hour)),
		CircuitOpenUntil:    timep(fixedNow.Add(time.Hour)),
	}

	got := p.UpdateOnSuccess(prior, headers)

	require.NotNil(t, got.Remaining)
	assert.Equal(t, 4999, *got.Remaining)
	require.NotNil(t, got.LimitTotal)
	assert.Equal(t, 5000, *got.LimitTotal)
	require.NotNil(t, got.ResetAt)
	assert.Equal(t, time.Unix(1717243200, 0).UTC(), *got.ResetAt)

	assert.Zero(t, got.ConsecutiveFailures)
	assert.Nil(t, got.LastFailureAt)
	assert.Nil(t, got.CircuitOpenUntil)
}

func TestUpdateOnSuccess_MissingHeadersPreserveCounters(t *testing.T) {
	t.Parallel()

	p := testPolicy()

	prior := State{
		Remaining:           intp(7),
		LimitTotal:          intp(100),
		ResetAt:             timep(fixedNow.Add(time.Minute)),
		ConsecutiveFailures: 1,
	}

	got := p.UpdateOnSuccess(prior, http.Header{})

	require.NotNil(t, got.Remaining)
	assert.Equal(t, 7, *got.Remaining)
	require.NotNil(t, got.LimitTotal)
	assert.Equal(t, 100, *got.LimitTotal)
	assert.Zero(t, got.ConsecutiveFailures)
}

func TestUpdateOnFailure_OpensCircuitAtThreshold(t *testing.T) {
	t.Parallel()

	p := testPolicy()

	s := State{AccountID: "a1"}

	s = p.UpdateOnFailure(s, nil)
	assert.Equal(t, 1, s.ConsecutiveFailures)
	assert.Nil(t, s.CircuitOpenUntil)
	require.NotNil(t, s.LastFailureAt)
	assert.Equal(t, fixedNow, *s.LastFailureAt)

	s = p.UpdateOnFailure(s, nil)
	assert.Equal(t, 2, s.ConsecutiveFailures)
	assert.Nil(t, s.CircuitOpenUntil)

	s = p.UpdateOnFailure(s, nil)
	assert.Equal(t, 3, s.ConsecutiveFailures)
	require.NotNil(t, s.CircuitOpenUntil)
	assert.Equal(t, fixedNow.Add(DefaultCooldown), *s.CircuitOpenUntil)

	assert.False(t, p.ShouldFetch(s))
}

func TestUpdateOnFailure_RetryAfterExhaustsRate(t *testing.T) {
	t.Parallel()

	p := testPolicy()

	prior := State{Remaining: intp(42), LimitTotal: intp(5000)}

	got := p.UpdateOnFailure(prior, intp(120))

	require.NotNil(t, got.Remaining)
	assert.Zero(t, *got.Remaining)
	require.NotNil(t, got.ResetAt)
	assert.Equal(t, fixedNow.Add(120*time.Second), *got.ResetAt)
	// Observed total is preserved.
	require.NotNil(t, got.LimitTotal)
	assert.Equal(t, 5000, *got.LimitTotal)

	assert.False(t, p.ShouldFetch(got))
}

func TestUpdateOnFailure_NoRetryAfterPreservesCounters(t *testing.T) {
	t.Parallel()

	p := testPolicy()

	prior := State{Remaining: intp(42), ResetAt: timep(fixedNow.Add(time.Hour))}

	got := p.UpdateOnFailure(prior, nil)

	require.NotNil(t, got.Remaining)
	assert.Equal(t, 42, *got.Remaining)
	assert.Equal(t, fixedNow.Add(time.Hour), *got.ResetAt)
}
