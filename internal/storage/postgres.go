package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pulseboard/pulseboard/internal/ratelimit"
)

// SQLAccounts is the Postgres-backed AccountStore.
type SQLAccounts struct {
	DB *sqlx.DB
}

// NewSQLAccounts wraps a database handle.
func NewSQLAccounts(db *sqlx.DB) *SQLAccounts {
	return &SQLAccounts{DB: db}
}

// Get implements AccountStore.
func (s *SQLAccounts) Get(ctx context.Context, accountID string) (Account, error) {
	const query = `
		SELECT id, platform, platform_user_id, platform_username,
		       encrypted_access_token, encrypted_refresh_token,
		       token_expires_at, is_active, last_fetched_at,
		       created_at, updated_at
		FROM accounts
		WHERE id = $1`

	var account Account

	err := s.DB.GetContext(ctx, &account, query, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, fmt.Errorf("account %s: %w", accountID, ErrAccountNotFound)
	}

	if err != nil {
		return Account{}, fmt.Errorf("get account %s: %w", accountID, err)
	}

	return account, nil
}

// accountMemberRow is the join row of ListActiveWithMembers.
type accountMemberRow struct {
	Account
	UserID string `db:"user_id"`
}

// ListActiveWithMembers implements AccountStore.
func (s *SQLAccounts) ListActiveWithMembers(ctx context.Context) ([]AccountWithMembers, error) {
	const query = `
		SELECT a.id, a.platform, a.platform_user_id, a.platform_username,
		       a.encrypted_access_token, a.encrypted_refresh_token,
		       a.token_expires_at, a.is_active, a.last_fetched_at,
		       a.created_at, a.updated_at,
		       m.user_id
		FROM accounts a
		JOIN account_members m ON m.account_id = a.id
		WHERE a.is_active = TRUE
		ORDER BY a.id, m.user_id`

	var rows []accountMemberRow

	err := s.DB.SelectContext(ctx, &rows, query)
	if err != nil {
		return nil, fmt.Errorf("list active accounts: %w", err)
	}

	var accounts []AccountWithMembers

	for _, row := range rows {
		if len(accounts) == 0 || accounts[len(accounts)-1].ID != row.ID {
			accounts = append(accounts, AccountWithMembers{Account: row.Account})
		}

		last := &accounts[len(accounts)-1]
		last.MemberIDs = append(last.MemberIDs, row.UserID)
	}

	return accounts, nil
}

// UpdateLastFetched implements AccountStore.
func (s *SQLAccounts) UpdateLastFetched(ctx context.Context, accountID string, at time.Time) error {
	const query = `
		UPDATE accounts
		SET last_fetched_at = $2, updated_at = $2
		WHERE id = $1`

	result, err := s.DB.ExecContext(ctx, query, accountID, at)
	if err != nil {
		return fmt.Errorf("update last_fetched_at for %s: %w", accountID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("account %s: %w", accountID, ErrAccountNotFound)
	}

	return nil
}

// Delete implements AccountStore: one transaction removes memberships, rate
// state, and the account row, returning the member user ids.
func (s *SQLAccounts) Delete(ctx context.Context, accountID string) ([]string, error) {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete of %s: %w", accountID, err)
	}

	defer tx.Rollback() //nolint:errcheck // no-op after commit.

	var userIDs []string

	err = tx.SelectContext(ctx, &userIDs,
		`SELECT user_id FROM account_members WHERE account_id = $1 ORDER BY user_id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list members of %s: %w", accountID, err)
	}

	for _, stmt := range []string{
		`DELETE FROM account_members WHERE account_id = $1`,
		`DELETE FROM rate_limits WHERE account_id = $1`,
	} {
		_, err = tx.ExecContext(ctx, stmt, accountID)
		if err != nil {
			return nil, fmt.Errorf("delete account %s: %w", accountID, err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		return nil, fmt.Errorf("delete account %s: %w", accountID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return nil, fmt.Errorf("account %s: %w", accountID, ErrAccountNotFound)
	}

	err = tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("commit delete of %s: %w", accountID, err)
	}

	return userIDs, nil
}

var _ AccountStore = (*SQLAccounts)(nil)

// SQLRates is the Postgres-backed RateStore.
type SQLRates struct {
	DB *sqlx.DB
}

// NewSQLRates wraps a database handle.
func NewSQLRates(db *sqlx.DB) *SQLRates {
	return &SQLRates{DB: db}
}

// Get implements RateStore.
func (s *SQLRates) Get(ctx context.Context, accountID string) (ratelimit.State, error) {
	const query = `
		SELECT account_id, remaining, limit_total, reset_at,
		       consecutive_failures, last_failure_at, circuit_open_until
		FROM rate_limits
		WHERE account_id = $1`

	var state ratelimit.State

	err := s.DB.GetContext(ctx, &state, query, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return ratelimit.State{AccountID: accountID}, nil
	}

	if err != nil {
		return ratelimit.State{}, fmt.Errorf("get rate state for %s: %w", accountID, err)
	}

	return state, nil
}

// Upsert implements RateStore.
func (s *SQLRates) Upsert(ctx context.Context, state ratelimit.State) error {
	const query = `
		INSERT INTO rate_limits
		    (account_id, remaining, limit_total, reset_at,
		     consecutive_failures, last_failure_at, circuit_open_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (account_id) DO UPDATE SET
		    remaining = EXCLUDED.remaining,
		    limit_total = EXCLUDED.limit_total,
		    reset_at = EXCLUDED.reset_at,
		    consecutive_failures = EXCLUDED.consecutive_failures,
		    last_failure_at = EXCLUDED.last_failure_at,
		    circuit_open_until = EXCLUDED.circuit_open_until`

	_, err := s.DB.ExecContext(ctx, query,
		state.AccountID, state.Remaining, state.LimitTotal, state.ResetAt,
		state.ConsecutiveFailures, state.LastFailureAt, state.CircuitOpenUntil)
	if err != nil {
		return fmt.Errorf("upsert rate state for %s: %w", state.AccountID, err)
	}

	return nil
}

var _ RateStore = (*SQLRates)(nil)

// Connect opens and pings a Postgres handle.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()

		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}
