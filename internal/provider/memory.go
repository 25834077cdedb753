package provider

import (
	"context"
	"net/http"
	"sync"

	"github.com/pulseboard/pulseboard/internal/platform"
)

// memoryRetryAfter is the advisory delay a simulated rate limit reports.
const memoryRetryAfter = 60

// Memory is the deterministic in-memory provider double. It satisfies the
// same Provider capability as the HTTP adapters and is observationally
// indistinguishable at that interface: a configured payload on success, the
// tagged error set on simulated failure.
type Memory struct {
	platformName platform.Platform

	mu                  sync.Mutex
	payload             Payload
	headers             http.Header
	err                 error
	callCount           int
	simulateRateLimit   bool
	simulateAuthExpired bool
	retryAfter          int
}

// NewMemory creates a memory provider for the given platform and payload.
func NewMemory(p platform.Platform, payload Payload) *Memory {
	return &Memory{
		platformName: p,
		payload:      payload,
		retryAfter:   memoryRetryAfter,
	}
}

// Platform implements Provider.
func (m *Memory) Platform() platform.Platform { return m.platformName }

// Fetch returns the configured payload, or the simulated error when a
// failure flag is set. Every call increments the call counter.
func (m *Memory) Fetch(ctx context.Context, _ string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++

	switch {
	case m.simulateRateLimit:
		return Result{}, RateLimited(m.retryAfter)
	case m.simulateAuthExpired:
		return Result{}, AuthExpired("token expired")
	case m.err != nil:
		return Result{}, m.err
	default:
		return Result{Payload: m.payload, Headers: m.headers}, nil
	}
}

// CallCount reports how many times Fetch has been invoked.
func (m *Memory) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.callCount
}

// SetPayload replaces the payload returned on success.
func (m *Memory) SetPayload(payload Payload) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.payload = payload
}

// SetHeaders sets the response headers returned on success.
func (m *Memory) SetHeaders(headers http.Header) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.headers = headers
}

// SetError makes every fetch fail with the given error until cleared.
func (m *Memory) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.err = err
}

// SimulateRateLimit toggles rate_limited short-circuiting.
func (m *Memory) SimulateRateLimit(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.simulateRateLimit = on
}

// SimulateAuthExpired toggles auth_expired short-circuiting.
func (m *Memory) SimulateAuthExpired(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.simulateAuthExpired = on
}

// SetRetryAfter overrides the advisory delay reported by a simulated rate
// limit.
func (m *Memory) SetRetryAfter(seconds int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.retryAfter = seconds
}
