package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseboard/pulseboard/internal/corpus"
	"github.com/pulseboard/pulseboard/internal/ratelimit"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestSQLRates_GetMissingYieldsZeroState(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT account_id, remaining").
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"account_id"}))

	state, err := NewSQLRates(db).Get(context.Background(), "a1")

	require.NoError(t, err)
	assert.Equal(t, "a1", state.AccountID)
	assert.Nil(t, state.Remaining)
	assert.Zero(t, state.ConsecutiveFailures)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRates_Upsert(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)

	remaining := 42
	resetAt := time.Date(2024, 1, 15, 15, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO rate_limits").
		WithArgs("a1", &remaining, nil, &resetAt, 0, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewSQLRates(db).Upsert(context.Background(), ratelimit.State{
		AccountID: "a1",
		Remaining: &remaining,
		ResetAt:   &resetAt,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLAccounts_UpdateLastFetchedMissingAccount(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	mock.ExpectExec("UPDATE accounts").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewSQLAccounts(db).UpdateLastFetched(context.Background(), "ghost", time.Now())

	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLAccounts_ListActiveWithMembersGroupsRows(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)

	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	columns := []string{
		"id", "platform", "platform_user_id", "platform_username",
		"encrypted_access_token", "encrypted_refresh_token",
		"token_expires_at", "is_active", "last_fetched_at",
		"created_at", "updated_at", "user_id",
	}

	mock.ExpectQuery("FROM accounts a").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("a1", "github", nil, nil, "enc", nil, nil, true, nil, now, now, "u1").
			AddRow("a1", "github", nil, nil, "enc", nil, nil, true, nil, now, now, "u2").
			AddRow("a2", "bluesky", nil, nil, "enc", nil, nil, true, nil, now, now, "u1"))

	accounts, err := NewSQLAccounts(db).ListActiveWithMembers(context.Background())

	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "a1", accounts[0].ID)
	assert.Equal(t, []string{"u1", "u2"}, accounts[0].MemberIDs)
	assert.Equal(t, []string{"u1"}, accounts[1].MemberIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLAccounts_DeleteTransaction(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT user_id FROM account_members").
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u1").AddRow("u2"))
	mock.ExpectExec("DELETE FROM account_members").
		WithArgs("a1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM rate_limits").
		WithArgs("a1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM accounts").
		WithArgs("a1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	userIDs, err := NewSQLAccounts(db).Delete(context.Background(), "a1")

	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, userIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLManifests_InsertWithParents(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)

	created := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO corpus_snapshots").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO corpus_parents").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := NewSQLManifests(db).Insert(context.Background(), corpus.Meta{
		StoreID:     "timeline/u1",
		Version:     "v1",
		ContentHash: "hash",
		CreatedAt:   created,
		Tags:        []string{"user:u1"},
		Parents: []corpus.Parent{
			{StoreID: "raw/github/a1", Version: "v0", Role: corpus.ParentRoleSource},
		},
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLManifests_LatestMissing(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	mock.ExpectQuery("FROM corpus_snapshots").
		WithArgs("timeline/ghost").
		WillReturnRows(sqlmock.NewRows([]string{"store_id"}))

	_, err := NewSQLManifests(db).Latest(context.Background(), "timeline/ghost")

	assert.ErrorIs(t, err, corpus.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLManifests_StoreIDsPrefixModes(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)

	// Trailing slash scans the subtree.
	mock.ExpectQuery("left\\(store_id").
		WithArgs("github/a1/").
		WillReturnRows(sqlmock.NewRows([]string{"store_id"}).
			AddRow("github/a1/commits/u1/p").
			AddRow("github/a1/meta"))

	// A bare prefix matches only the exact store id.
	mock.ExpectQuery("store_id = \\$1").
		WithArgs("raw/github/a1").
		WillReturnRows(sqlmock.NewRows([]string{"store_id"}).AddRow("raw/github/a1"))

	manifests := NewSQLManifests(db)

	subtree, err := manifests.StoreIDs(context.Background(), "github/a1/")
	require.NoError(t, err)
	assert.Len(t, subtree, 2)

	exact, err := manifests.StoreIDs(context.Background(), "raw/github/a1")
	require.NoError(t, err)
	assert.Equal(t, []string{"raw/github/a1"}, exact)

	assert.NoError(t, mock.ExpectationsWereMet())
}
