package provider

import (
	"net/http"
	"strconv"
	"time"
)

// retryAfterSeconds reads a Retry-After header, falling back to the
// X-RateLimit-Reset delay when absent.
func retryAfterSeconds(h http.Header, now time.Time) int {
	value := h.Get("Retry-After")
	if value != "" {
		seconds, err := strconv.Atoi(value)
		if err == nil && seconds >= 0 {
			return seconds
		}
	}

	return resetDelaySeconds(h, now)
}

// resetDelaySeconds converts an X-RateLimit-Reset unix timestamp into a
// non-negative delay from now. Zero when the header is absent or malformed.
func resetDelaySeconds(h http.Header, now time.Time) int {
	value := h.Get("X-RateLimit-Reset")
	if value == "" {
		return 0
	}

	resetUnix, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}

	delay := resetUnix - now.Unix()
	if delay < 0 {
		return 0
	}

	return int(delay)
}
