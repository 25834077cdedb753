// Package corpus implements the append-only, content-addressed snapshot
// store. Every put yields a fresh monotone version id; payload bytes are
// hashed over their canonical JSON serialization, and snapshots may reference
// parent snapshots to record provenance.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ParentRoleSource marks a parent edge from a derived snapshot to the raw
// snapshot it was computed from.
const ParentRoleSource = "source"

// Store-level errors.
var (
	// ErrNotFound is returned when a store has no snapshot matching the
	// request.
	ErrNotFound = errors.New("snapshot not found")

	// ErrCorrupt is returned when a manifest row and its blob disagree.
	ErrCorrupt = errors.New("snapshot manifest inconsistent with blob")
)

// Parent is a directed provenance reference to another snapshot.
type Parent struct {
	StoreID string `json:"store_id"`
	Version string `json:"version"`
	Role    string `json:"role,omitempty"`
}

// Meta is the manifest record of one snapshot.
type Meta struct {
	StoreID     string    `json:"store_id"`
	Version     string    `json:"version"`
	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
	Tags        []string  `json:"tags,omitempty"`
	Parents     []Parent  `json:"parents,omitempty"`
}

// ManifestStore persists snapshot manifests and parent edges.
// Implementations must make Insert atomic with respect to Latest and List:
// a snapshot becomes visible only once fully recorded.
type ManifestStore interface {
	// Insert records a new snapshot manifest with its parent edges.
	Insert(ctx context.Context, meta Meta) error

	// Get returns one snapshot's manifest, or ErrNotFound.
	Get(ctx context.Context, storeID, version string) (Meta, error)

	// Latest returns the most recently inserted snapshot of a store, or
	// ErrNotFound when the store is empty.
	Latest(ctx context.Context, storeID string) (Meta, error)

	// List returns all snapshots of a store in descending created_at order.
	List(ctx context.Context, storeID string) ([]Meta, error)

	// DeleteStore removes every manifest row and parent edge of a store.
	DeleteStore(ctx context.Context, storeID string) error

	// StoreIDs returns the distinct store ids matching the given prefix.
	StoreIDs(ctx context.Context, prefix string) ([]string, error)
}

// BlobStore is the key/value backend snapshot payloads are written to.
type BlobStore interface {
	// Get returns the blob bytes, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes the blob durably before returning.
	Put(ctx context.Context, key string, data []byte) error

	// Delete removes one blob; deleting a missing blob is not an error.
	Delete(ctx context.Context, key string) error

	// List returns all keys with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Corpus couples a manifest store with a blob backend.
type Corpus struct {
	Manifests ManifestStore
	Blobs     BlobStore

	// Now is the snapshot timestamp clock, injectable for tests.
	Now func() time.Time
}

// New creates a Corpus over the given manifest and blob backends.
func New(manifests ManifestStore, blobs BlobStore) *Corpus {
	return &Corpus{
		Manifests: manifests,
		Blobs:     blobs,
		Now:       time.Now,
	}
}

// DeleteNamespace removes every store whose id matches the prefix: manifest
// rows, parent edges, and blobs. It returns the deleted store ids.
//
// A prefix ending in "/" matches any store underneath it; otherwise the
// prefix must equal a whole store id.
func (c *Corpus) DeleteNamespace(ctx context.Context, prefix string) ([]string, error) {
	storeIDs, err := c.Manifests.StoreIDs(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list stores %q: %w", prefix, err)
	}

	for _, storeID := range storeIDs {
		keys, listErr := c.Blobs.List(ctx, storeID+"/")
		if listErr != nil {
			return nil, fmt.Errorf("list blobs %q: %w", storeID, listErr)
		}

		for _, key := range keys {
			deleteErr := c.Blobs.Delete(ctx, key)
			if deleteErr != nil {
				return nil, fmt.Errorf("delete blob %q: %w", key, deleteErr)
			}
		}

		deleteErr := c.Manifests.DeleteStore(ctx, storeID)
		if deleteErr != nil {
			return nil, fmt.Errorf("delete store %q: %w", storeID, deleteErr)
		}
	}

	return storeIDs, nil
}

func (c *Corpus) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}

	return time.Now()
}
