package observability

import (
	"context"
	"net/http"
)

const (
	healthStatusOK          = `{"status":"ok"}`
	healthStatusUnavailable = `{"status":"unavailable"}`
)

// ReadyCheck reports whether a subsystem is ready. A nil return means
// the check passed.
type ReadyCheck func(ctx context.Context) error

// HealthHandler serves liveness checks at /healthz. It always returns
// HTTP 200.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		writeHealth(rw, http.StatusOK, healthStatusOK)
	})
}

// ReadyHandler serves readiness checks at /readyz. It runs every check;
// any failure yields HTTP 503. No checks, or all passing, yields 200.
func ReadyHandler(checks ...ReadyCheck) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		for _, check := range checks {
			err := check(hr.Context())
			if err != nil {
				writeHealth(rw, http.StatusServiceUnavailable, healthStatusUnavailable)

				return
			}
		}

		writeHealth(rw, http.StatusOK, healthStatusOK)
	})
}

func writeHealth(rw http.ResponseWriter, code int, body string) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)
	_, _ = rw.Write([]byte(body))
}
