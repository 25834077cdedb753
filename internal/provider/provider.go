// Package provider contains the per-platform fetch adapters. An adapter
// turns an opaque access token into a typed raw payload or a tagged error;
// it never touches rate-limit state, which the scheduler owns.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pulseboard/pulseboard/internal/platform"
)

// DefaultTimeout is the per-adapter HTTP client timeout.
const DefaultTimeout = 30 * time.Second

// maxErrorBodyBytes bounds how much of an error response body is retained
// for diagnostics.
const maxErrorBodyBytes = 4 << 10

// Payload is the marker for typed raw provider output.
type Payload interface {
	Platform() platform.Platform
}

// Result is a successful fetch: the typed payload plus the response headers
// the rate policy inspects.
type Result struct {
	Payload Payload
	Headers http.Header
}

// Provider is the capability every platform adapter satisfies.
type Provider interface {
	Platform() platform.Platform
	Fetch(ctx context.Context, token string) (Result, error)
}

// Registry dispatches fetches by platform name.
type Registry struct {
	providers map[platform.Platform]Provider
}

// NewRegistry builds a dispatch table from the given providers.
// A later provider for the same platform replaces an earlier one.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[platform.Platform]Provider, len(providers))}

	for _, p := range providers {
		r.providers[p.Platform()] = p
	}

	return r
}

// Register adds or replaces the provider for its platform.
func (r *Registry) Register(p Provider) {
	r.providers[p.Platform()] = p
}

// Lookup returns the provider for a platform.
func (r *Registry) Lookup(p platform.Platform) (Provider, bool) {
	prov, ok := r.providers[p]

	return prov, ok
}

// Fetch dispatches to the provider registered for the platform, returning an
// unknown_platform error when none is registered.
func (r *Registry) Fetch(ctx context.Context, p platform.Platform, token string) (Result, error) {
	prov, ok := r.providers[p]
	if !ok {
		return Result{}, UnknownPlatform(string(p))
	}

	return prov.Fetch(ctx, token)
}

// httpClient returns the given client or a default one with DefaultTimeout.
func httpClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}

	return &http.Client{Timeout: DefaultTimeout}
}

// getJSON issues an authorized GET and decodes a 2xx JSON body into out.
// Non-2xx responses are returned to the caller for platform-specific
// classification; transport failures become network_error and decode
// failures parse_error.
func getJSON(ctx context.Context, client *http.Client, url, authorization string, headers map[string]string, out any) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NetworkError(err)
	}

	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// Surface cancellation undisguised so the scheduler can treat
			// it as neither success nor failure.
			return nil, ctx.Err()
		}

		return nil, NetworkError(err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return resp, errStatus
	}

	defer func() { _ = resp.Body.Close() }()

	decodeErr := json.NewDecoder(resp.Body).Decode(out)
	if decodeErr != nil {
		return resp, ParseError(fmt.Errorf("decode %s: %w", url, decodeErr))
	}

	return resp, nil
}

// errStatus signals a non-2xx response whose body is still open; callers
// classify and must drain it via readErrorBody.
var errStatus = &statusError{}

type statusError struct{}

func (*statusError) Error() string { return "unexpected status" }

// readErrorBody drains and closes an error response body, returning at most
// maxErrorBodyBytes of it.
func readErrorBody(resp *http.Response) string {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		return ""
	}

	return string(body)
}
