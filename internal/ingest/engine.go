// Package ingest orchestrates one ingestion invocation: it enumerates active
// accounts, fans out per-account fetches under the rate-policy gate, merges
// and stores snapshots, and rebuilds the timeline of every user whose
// accounts produced at least one fresh snapshot.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/pulseboard/pulseboard/internal/corpus"
	"github.com/pulseboard/pulseboard/internal/observability"
	"github.com/pulseboard/pulseboard/internal/provider"
	"github.com/pulseboard/pulseboard/internal/ratelimit"
	"github.com/pulseboard/pulseboard/internal/secrets"
	"github.com/pulseboard/pulseboard/internal/storage"
)

// Engine defaults.
const (
	DefaultWorkers      = 8
	DefaultFetchTimeout = 30 * time.Second
)

// ErrMissingCodec aborts an invocation that has no token codec: without it no
// account credential can be decrypted, which is fatal rather than per-account.
var ErrMissingCodec = errors.New("token codec not configured")

// CronResult summarizes one invocation.
type CronResult struct {
	ProcessedAccounts  int      `json:"processed_accounts"`
	UpdatedUsers       []string `json:"updated_users"`
	FailedAccounts     []string `json:"failed_accounts"`
	TimelinesGenerated int      `json:"timelines_generated"`
}

// Engine wires the invocation's collaborators. All fields except Accounts,
// Rates, Corpus, Providers, and Secrets are optional.
type Engine struct {
	Accounts  storage.AccountStore
	Rates     storage.RateStore
	Corpus    *corpus.Corpus
	Providers *provider.Registry
	Secrets   *secrets.Codec
	Policy    ratelimit.Policy

	Logger  *slog.Logger
	Metrics *observability.IngestMetrics
	Tracer  trace.Tracer

	// Workers bounds the per-account fan-out.
	Workers int
	// FetchTimeout is the per-adapter deadline.
	FetchTimeout time.Duration
	// Now is the clock, injectable for tests.
	Now func() time.Time
}

// accountStatus is the settled state of one account within one invocation.
type accountStatus int

const (
	statusGated accountStatus = iota
	statusSuccess
	statusFailed
	statusCancelled
)

// outcome pairs an account with its settled status.
type outcome struct {
	account storage.AccountWithMembers
	status  accountStatus
}

// Run executes one ingestion invocation. Individual account failures never
// abort the run; only a fatal precondition (missing codec, unreachable
// account enumeration) returns an error.
func (e *Engine) Run(ctx context.Context) (CronResult, error) {
	if e.Secrets == nil {
		return CronResult{}, ErrMissingCodec
	}

	if e.Tracer != nil {
		var span trace.Span

		ctx, span = e.Tracer.Start(ctx, "ingest.run")
		defer span.End()
	}

	accounts, err := e.Accounts.ListActiveWithMembers(ctx)
	if err != nil {
		return CronResult{}, fmt.Errorf("enumerate accounts: %w", err)
	}

	work := dedupeByAccount(accounts)
	outcomes := make([]outcome, len(work))

	var group errgroup.Group

	group.SetLimit(e.workers())

	// Work is keyed by account id, so each account settles exactly once no
	// matter how many users share it.
	for i, account := range work {
		group.Go(func() error {
			outcomes[i] = e.processAccount(ctx, account)

			return nil
		})
	}

	_ = group.Wait()

	result, successUsers := settle(outcomes)

	userAccounts := make(map[string][]storage.AccountWithMembers)

	for _, account := range work {
		for _, userID := range account.MemberIDs {
			userAccounts[userID] = append(userAccounts[userID], account)
		}
	}

	// Rebuild begins only after every account of the invocation has settled.
	for _, userID := range sortedKeys(successUsers) {
		rebuildErr := e.rebuildUser(ctx, userID, userAccounts[userID])
		if rebuildErr != nil {
			e.logger().Error("rebuild timeline", "user", userID, "error", rebuildErr)

			continue
		}

		result.UpdatedUsers = append(result.UpdatedUsers, userID)
		result.TimelinesGenerated++
	}

	e.Metrics.RecordInvocation(ctx, result.TimelinesGenerated)
	e.logger().Info("invocation complete",
		"processed", result.ProcessedAccounts,
		"failed", len(result.FailedAccounts),
		"timelines", result.TimelinesGenerated)

	return result, nil
}

// processAccount runs one account through gate, fetch, merge, and store.
func (e *Engine) processAccount(ctx context.Context, account storage.AccountWithMembers) outcome {
	if e.Tracer != nil {
		var span trace.Span

		ctx, span = e.Tracer.Start(ctx, "ingest.account",
			trace.WithAttributes(attribute.String("platform", string(account.Platform))))
		defer span.End()
	}

	logger := e.logger().With("account", account.ID, "platform", string(account.Platform))

	state, err := e.Rates.Get(ctx, account.ID)
	if err != nil {
		logger.Error("load rate state", "error", err)

		return outcome{account: account, status: statusFailed}
	}

	if !e.Policy.ShouldFetch(state) {
		logger.Info("fetch gated by rate policy")
		e.Metrics.RecordGated(ctx, string(account.Platform))

		return outcome{account: account, status: statusGated}
	}

	token, err := e.Secrets.Decrypt(account.EncryptedAccessToken)
	if err != nil {
		logger.Error("decrypt access token", "error", err)
		e.recordFailure(ctx, state, nil)

		return outcome{account: account, status: statusFailed}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, e.fetchTimeout())
	defer cancel()

	start := time.Now()
	inflightDone := e.Metrics.TrackInflight(ctx, string(account.Platform))
	result, err := e.Providers.Fetch(fetchCtx, account.Platform, token)

	inflightDone()

	duration := time.Since(start)

	if err != nil {
		// Invocation-level cancellation is neither success nor failure and
		// leaves the rate state untouched.
		if ctx.Err() != nil {
			logger.Warn("fetch cancelled")
			e.Metrics.RecordFetch(ctx, string(account.Platform), observability.OutcomeCancelled, duration)

			return outcome{account: account, status: statusCancelled}
		}

		var retryAfter *int
		if perr, ok := provider.AsError(err); ok && perr.Kind == provider.KindRateLimited {
			retryAfter = &perr.RetryAfter
		}

		logger.Warn("fetch failed", "error", err)
		e.Metrics.RecordFetch(ctx, string(account.Platform), observability.OutcomeFailure, duration)
		e.recordFailure(ctx, state, retryAfter)

		return outcome{account: account, status: statusFailed}
	}

	e.Metrics.RecordFetch(ctx, string(account.Platform), observability.OutcomeSuccess, duration)

	_, err = e.writeSnapshot(ctx, account.ID, result)
	if err != nil {
		logger.Error("store snapshot", "error", err)

		return outcome{account: account, status: statusFailed}
	}

	now := e.now()
	state = e.Policy.UpdateOnSuccess(state, result.Headers)

	err = e.Rates.Upsert(ctx, state)
	if err != nil {
		logger.Error("record fetch success", "error", err)
	}

	err = e.Accounts.UpdateLastFetched(ctx, account.ID, now)
	if err != nil {
		logger.Error("stamp last_fetched_at", "error", err)
	}

	return outcome{account: account, status: statusSuccess}
}

// recordFailure folds a failed fetch into the rate state.
func (e *Engine) recordFailure(ctx context.Context, state ratelimit.State, retryAfter *int) {
	state = e.Policy.UpdateOnFailure(state, retryAfter)

	err := e.Rates.Upsert(ctx, state)
	if err != nil {
		e.logger().Error("record fetch failure", "account", state.AccountID, "error", err)
	}
}

// settle aggregates account outcomes into the invocation counters and the
// set of users eligible for rebuild.
func settle(outcomes []outcome) (CronResult, map[string]bool) {
	var result CronResult

	successUsers := make(map[string]bool)

	for _, o := range outcomes {
		switch o.status {
		case statusCancelled:
			continue
		case statusFailed:
			result.FailedAccounts = append(result.FailedAccounts, o.account.ID)
		case statusSuccess:
			for _, userID := range o.account.MemberIDs {
				successUsers[userID] = true
			}
		case statusGated:
		}

		result.ProcessedAccounts++
	}

	sort.Strings(result.FailedAccounts)

	return result, successUsers
}

// dedupeByAccount keeps the first occurrence of each account id.
func dedupeByAccount(accounts []storage.AccountWithMembers) []storage.AccountWithMembers {
	seen := make(map[string]bool, len(accounts))
	work := make([]storage.AccountWithMembers, 0, len(accounts))

	for _, account := range accounts {
		if seen[account.ID] {
			continue
		}

		seen[account.ID] = true
		work = append(work, account)
	}

	return work
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func (e *Engine) workers() int {
	if e.Workers > 0 {
		return e.Workers
	}

	return DefaultWorkers
}

func (e *Engine) fetchTimeout() time.Duration {
	if e.FetchTimeout > 0 {
		return e.FetchTimeout
	}

	return DefaultFetchTimeout
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}

	return time.Now()
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}

	return slog.Default()
}
