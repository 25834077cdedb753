package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/pulseboard/pulseboard/internal/corpus"
)

// SQLManifests is the Postgres-backed corpus manifest store. Snapshot rows
// and their parent edges are inserted in one transaction, so a snapshot
// becomes visible only once fully recorded.
type SQLManifests struct {
	DB *sqlx.DB
}

// NewSQLManifests wraps a database handle.
func NewSQLManifests(db *sqlx.DB) *SQLManifests {
	return &SQLManifests{DB: db}
}

// manifestRow maps the corpus_snapshots table.
type manifestRow struct {
	StoreID     string         `db:"store_id"`
	Version     string         `db:"version"`
	ContentHash string         `db:"content_hash"`
	CreatedAt   time.Time      `db:"created_at"`
	Tags        pq.StringArray `db:"tags"`
}

func (r manifestRow) meta() corpus.Meta {
	return corpus.Meta{
		StoreID:     r.StoreID,
		Version:     r.Version,
		ContentHash: r.ContentHash,
		CreatedAt:   r.CreatedAt,
		Tags:        r.Tags,
	}
}

// parentRow maps the corpus_parents table.
type parentRow struct {
	ParentStoreID string `db:"parent_store_id"`
	ParentVersion string `db:"parent_version"`
	Role          string `db:"role"`
}

// Insert implements corpus.ManifestStore.
func (s *SQLManifests) Insert(ctx context.Context, meta corpus.Meta) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin manifest insert: %w", err)
	}

	defer tx.Rollback() //nolint:errcheck // no-op after commit.

	_, err = tx.ExecContext(ctx, `
		INSERT INTO corpus_snapshots (store_id, version, content_hash, created_at, tags)
		VALUES ($1, $2, $3, $4, $5)`,
		meta.StoreID, meta.Version, meta.ContentHash, meta.CreatedAt, pq.StringArray(meta.Tags))
	if err != nil {
		return fmt.Errorf("insert manifest %s@%s: %w", meta.StoreID, meta.Version, err)
	}

	for _, parent := range meta.Parents {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO corpus_parents (store_id, version, parent_store_id, parent_version, role)
			VALUES ($1, $2, $3, $4, $5)`,
			meta.StoreID, meta.Version, parent.StoreID, parent.Version, parent.Role)
		if err != nil {
			return fmt.Errorf("insert parent edge %s@%s: %w", meta.StoreID, meta.Version, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit manifest %s@%s: %w", meta.StoreID, meta.Version, err)
	}

	return nil
}

// Get implements corpus.ManifestStore.
func (s *SQLManifests) Get(ctx context.Context, storeID, version string) (corpus.Meta, error) {
	var row manifestRow

	err := s.DB.GetContext(ctx, &row, `
		SELECT store_id, version, content_hash, created_at, tags
		FROM corpus_snapshots
		WHERE store_id = $1 AND version = $2`, storeID, version)
	if errors.Is(err, sql.ErrNoRows) {
		return corpus.Meta{}, corpus.ErrNotFound
	}

	if err != nil {
		return corpus.Meta{}, fmt.Errorf("get manifest %s@%s: %w", storeID, version, err)
	}

	return s.withParents(ctx, row.meta())
}

// Latest implements corpus.ManifestStore.
func (s *SQLManifests) Latest(ctx context.Context, storeID string) (corpus.Meta, error) {
	var row manifestRow

	err := s.DB.GetContext(ctx, &row, `
		SELECT store_id, version, content_hash, created_at, tags
		FROM corpus_snapshots
		WHERE store_id = $1
		ORDER BY created_at DESC, version DESC
		LIMIT 1`, storeID)
	if errors.Is(err, sql.ErrNoRows) {
		return corpus.Meta{}, corpus.ErrNotFound
	}

	if err != nil {
		return corpus.Meta{}, fmt.Errorf("get latest manifest of %s: %w", storeID, err)
	}

	return s.withParents(ctx, row.meta())
}

// List implements corpus.ManifestStore.
func (s *SQLManifests) List(ctx context.Context, storeID string) ([]corpus.Meta, error) {
	var rows []manifestRow

	err := s.DB.SelectContext(ctx, &rows, `
		SELECT store_id, version, content_hash, created_at, tags
		FROM corpus_snapshots
		WHERE store_id = $1
		ORDER BY created_at DESC, version DESC`, storeID)
	if err != nil {
		return nil, fmt.Errorf("list manifests of %s: %w", storeID, err)
	}

	metas := make([]corpus.Meta, 0, len(rows))

	for _, row := range rows {
		meta, parentsErr := s.withParents(ctx, row.meta())
		if parentsErr != nil {
			return nil, parentsErr
		}

		metas = append(metas, meta)
	}

	return metas, nil
}

// DeleteStore implements corpus.ManifestStore.
func (s *SQLManifests) DeleteStore(ctx context.Context, storeID string) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin store delete: %w", err)
	}

	defer tx.Rollback() //nolint:errcheck // no-op after commit.

	for _, stmt := range []string{
		`DELETE FROM corpus_parents WHERE store_id = $1`,
		`DELETE FROM corpus_snapshots WHERE store_id = $1`,
	} {
		_, err = tx.ExecContext(ctx, stmt, storeID)
		if err != nil {
			return fmt.Errorf("delete store %s: %w", storeID, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit store delete %s: %w", storeID, err)
	}

	return nil
}

// StoreIDs implements corpus.ManifestStore. A prefix ending in "/" matches
// any store underneath it; otherwise the prefix must match a whole store id.
func (s *SQLManifests) StoreIDs(ctx context.Context, prefix string) ([]string, error) {
	query := `
		SELECT DISTINCT store_id FROM corpus_snapshots
		WHERE store_id = $1
		ORDER BY store_id`

	if strings.HasSuffix(prefix, "/") {
		query = `
		SELECT DISTINCT store_id FROM corpus_snapshots
		WHERE left(store_id, char_length($1)) = $1
		ORDER BY store_id`
	}

	var storeIDs []string

	err := s.DB.SelectContext(ctx, &storeIDs, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("list stores %q: %w", prefix, err)
	}

	return storeIDs, nil
}

// withParents attaches the snapshot's parent edges.
func (s *SQLManifests) withParents(ctx context.Context, meta corpus.Meta) (corpus.Meta, error) {
	var rows []parentRow

	err := s.DB.SelectContext(ctx, &rows, `
		SELECT parent_store_id, parent_version, role
		FROM corpus_parents
		WHERE store_id = $1 AND version = $2
		ORDER BY parent_store_id, parent_version`, meta.StoreID, meta.Version)
	if err != nil {
		return corpus.Meta{}, fmt.Errorf("list parents of %s@%s: %w", meta.StoreID, meta.Version, err)
	}

	for _, row := range rows {
		meta.Parents = append(meta.Parents, corpus.Parent{
			StoreID: row.ParentStoreID,
			Version: row.ParentVersion,
			Role:    row.Role,
		})
	}

	return meta, nil
}

var _ corpus.ManifestStore = (*SQLManifests)(nil)
