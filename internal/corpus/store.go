package corpus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Store is a typed handle on one logical snapshot stream. The codec is
// canonical JSON; the content hash is SHA-256 over the serialized payload.
type Store[T any] struct {
	corpus *Corpus
	id     string
}

// NewStore creates a typed store handle for the given store id.
func NewStore[T any](c *Corpus, storeID string) Store[T] {
	return Store[T]{corpus: c, id: storeID}
}

// ID returns the store id this handle operates on.
func (s Store[T]) ID() string { return s.id }

// PutOptions carries optional tags and parent edges for a put.
type PutOptions struct {
	Tags    []string
	Parents []Parent
}

// PutResult reports the version and content hash a put produced.
type PutResult struct {
	Version     string
	ContentHash string
}

// Put serializes the payload, writes the blob, then records the manifest
// row with its parent edges. Byte-identical payloads produce equal content
// hashes under distinct versions; duplicate detection is the caller's
// business via ContentHash.
func (s Store[T]) Put(ctx context.Context, payload T, opts PutOptions) (PutResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return PutResult{}, fmt.Errorf("marshal payload for %q: %w", s.id, err)
	}

	digest := sha256.Sum256(data)
	contentHash := hex.EncodeToString(digest[:])

	version, err := NewVersion()
	if err != nil {
		return PutResult{}, fmt.Errorf("allocate version for %q: %w", s.id, err)
	}

	// Blob first: the manifest row appears only after the payload is durable.
	blobErr := s.corpus.Blobs.Put(ctx, blobKey(s.id, version), data)
	if blobErr != nil {
		return PutResult{}, fmt.Errorf("write blob %q/%s: %w", s.id, version, blobErr)
	}

	meta := Meta{
		StoreID:     s.id,
		Version:     version,
		ContentHash: contentHash,
		CreatedAt:   s.corpus.now().UTC(),
		Tags:        opts.Tags,
		Parents:     opts.Parents,
	}

	insertErr := s.corpus.Manifests.Insert(ctx, meta)
	if insertErr != nil {
		return PutResult{}, fmt.Errorf("insert manifest %q/%s: %w", s.id, version, insertErr)
	}

	return PutResult{Version: version, ContentHash: contentHash}, nil
}

// Get returns one snapshot's manifest and decoded payload.
func (s Store[T]) Get(ctx context.Context, version string) (Meta, T, error) {
	var payload T

	meta, err := s.corpus.Manifests.Get(ctx, s.id, version)
	if err != nil {
		return Meta{}, payload, err
	}

	payload, err = s.readBlob(ctx, meta)
	if err != nil {
		return Meta{}, payload, err
	}

	return meta, payload, nil
}

// GetLatest returns the most recent snapshot's manifest and decoded payload.
func (s Store[T]) GetLatest(ctx context.Context) (Meta, T, error) {
	var payload T

	meta, err := s.corpus.Manifests.Latest(ctx, s.id)
	if err != nil {
		return Meta{}, payload, err
	}

	payload, err = s.readBlob(ctx, meta)
	if err != nil {
		return Meta{}, payload, err
	}

	return meta, payload, nil
}

// List returns the store's manifests in descending created_at order.
func (s Store[T]) List(ctx context.Context) ([]Meta, error) {
	return s.corpus.Manifests.List(ctx, s.id)
}

func (s Store[T]) readBlob(ctx context.Context, meta Meta) (T, error) {
	var payload T

	data, err := s.corpus.Blobs.Get(ctx, blobKey(s.id, meta.Version))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return payload, fmt.Errorf("%w: blob missing for %q/%s", ErrCorrupt, s.id, meta.Version)
		}

		return payload, fmt.Errorf("read blob %q/%s: %w", s.id, meta.Version, err)
	}

	decodeErr := json.Unmarshal(data, &payload)
	if decodeErr != nil {
		return payload, fmt.Errorf("decode blob %q/%s: %w", s.id, meta.Version, decodeErr)
	}

	return payload, nil
}

// NewVersion allocates a fresh UUIDv7 version id. UUIDv7 embeds a millisecond
// timestamp, giving versions a monotone lexical order per store.
func NewVersion() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("uuidv7: %w", err)
	}

	return id.String(), nil
}

// blobKey is the blob backend key for one snapshot payload.
func blobKey(storeID, version string) string {
	return storeID + "/" + version
}

// MatchesPrefix reports whether a store id falls under a namespace prefix.
// A prefix ending in "/" matches any store beneath it; otherwise it must
// equal the store id exactly.
func MatchesPrefix(storeID, prefix string) bool {
	if strings.HasSuffix(prefix, "/") {
		return strings.HasPrefix(storeID, prefix)
	}

	return storeID == prefix
}
