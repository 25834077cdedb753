package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pulseboard/pulseboard/internal/ratelimit"
)

// ErrAccountNotFound is returned when an operation targets a missing account.
var ErrAccountNotFound = errors.New("account not found")

// AccountStore reads accounts and their memberships. The engine never creates
// accounts; it only stamps fetch times and services deletions.
type AccountStore interface {
	// Get returns one account by id, or ErrAccountNotFound.
	Get(ctx context.Context, accountID string) (Account, error)

	// ListActiveWithMembers returns every active account joined to the user
	// ids sharing it.
	ListActiveWithMembers(ctx context.Context) ([]AccountWithMembers, error)

	// UpdateLastFetched stamps the account's last successful fetch.
	UpdateLastFetched(ctx context.Context, accountID string, at time.Time) error

	// Delete removes the account row, its memberships, and its rate state,
	// returning the ids of the users that shared it.
	Delete(ctx context.Context, accountID string) ([]string, error)
}

// RateStore persists per-account rate state.
type RateStore interface {
	// Get returns the account's rate state; a never-observed account yields
	// the zero state.
	Get(ctx context.Context, accountID string) (ratelimit.State, error)

	// Upsert writes the state, inserting or updating on account_id.
	Upsert(ctx context.Context, state ratelimit.State) error
}
