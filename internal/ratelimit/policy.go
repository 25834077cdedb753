// Package ratelimit implements the per-account fetch gate: rate-limit
// accounting from provider response headers combined with a failure-driven
// circuit breaker. State round-trips through the rate_limits table, so the
// policy operates on plain values rather than in-process breaker objects.
package ratelimit

import (
	"net/http"
	"strconv"
	"time"
)

// Conventional rate-limit header names.
const (
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderReset     = "X-RateLimit-Reset"
)

// Policy defaults.
const (
	DefaultFailureThreshold = 3
	DefaultCooldown         = 5 * time.Minute
)

// State is the persisted rate accounting for one account. Nil pointer fields
// mean the value has never been observed.
type State struct {
	AccountID           string     `db:"account_id"`
	Remaining           *int       `db:"remaining"`
	LimitTotal          *int       `db:"limit_total"`
	ResetAt             *time.Time `db:"reset_at"`
	ConsecutiveFailures int        `db:"consecutive_failures"`
	LastFailureAt       *time.Time `db:"last_failure_at"`
	CircuitOpenUntil    *time.Time `db:"circuit_open_until"`
}

// Policy decides fetchability and folds fetch outcomes into State.
// The zero value is not usable; construct with NewPolicy.
type Policy struct {
	// Threshold is the consecutive-failure count at which the circuit opens.
	Threshold int
	// Cooldown is how long an opened circuit suppresses fetching.
	Cooldown time.Duration
	// Now is the clock, injectable for tests.
	Now func() time.Time
}

// NewPolicy returns a Policy with default threshold and cooldown.
func NewPolicy() Policy {
	return Policy{
		Threshold: DefaultFailureThreshold,
		Cooldown:  DefaultCooldown,
		Now:       time.Now,
	}
}

// ShouldFetch reports whether the account may be contacted now.
// An open circuit and an exhausted, unexpired rate window each suppress
// fetching independently; unknown fields permit.
func (p Policy) ShouldFetch(s State) bool {
	now := p.Now()

	if s.CircuitOpenUntil != nil && now.Before(*s.CircuitOpenUntil) {
		return false
	}

	if s.Remaining != nil && *s.Remaining == 0 && s.ResetAt != nil && now.Before(*s.ResetAt) {
		return false
	}

	return true
}

// UpdateOnSuccess folds rate-limit headers from a successful fetch into the
// state and clears all failure tracking.
func (p Policy) UpdateOnSuccess(s State, headers http.Header) State {
	if headers != nil {
		if remaining, ok := headerInt(headers, HeaderRemaining); ok {
			s.Remaining = &remaining
		}

		if limit, ok := headerInt(headers, HeaderLimit); ok {
			s.LimitTotal = &limit
		}

		if resetUnix, ok := headerInt64(headers, HeaderReset); ok {
			resetAt := time.Unix(resetUnix, 0).UTC()
			s.ResetAt = &resetAt
		}
	}

	s.ConsecutiveFailures = 0
	s.LastFailureAt = nil
	s.CircuitOpenUntil = nil

	return s
}

// UpdateOnFailure records a failed fetch. Crossing the threshold opens the
// circuit for the cooldown window. When retryAfter is non-nil the rate window
// is marked exhausted until now+retryAfter; previously observed counters are
// preserved otherwise.
func (p Policy) UpdateOnFailure(s State, retryAfter *int) State {
	now := p.Now()

	s.ConsecutiveFailures++
	s.LastFailureAt = &now

	if s.ConsecutiveFailures >= p.Threshold {
		openUntil := now.Add(p.Cooldown)
		s.CircuitOpenUntil = &openUntil
	}

	if retryAfter != nil {
		zero := 0
		resetAt := now.Add(time.Duration(*retryAfter) * time.Second)
		s.Remaining = &zero
		s.ResetAt = &resetAt
	}

	return s
}

func headerInt(h http.Header, name string) (int, bool) {
	value := h.Get(name)
	if value == "" {
		return 0, false
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}

	return n, true
}

func headerInt64(h http.Header, name string) (int64, bool) {
	value := h.Get(name)
	if value == "" {
		return 0, false
	}

	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}

	return n, true
}
