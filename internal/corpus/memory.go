package corpus

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryManifests is the in-memory ManifestStore used by tests and
// single-process setups. Inserts are linearized under one mutex, so Latest
// always reflects the most recent successful Insert.
type MemoryManifests struct {
	mu     sync.RWMutex
	stores map[string][]Meta
}

// NewMemoryManifests creates an empty in-memory manifest store.
func NewMemoryManifests() *MemoryManifests {
	return &MemoryManifests{stores: make(map[string][]Meta)}
}

// Insert implements ManifestStore.
func (m *MemoryManifests) Insert(_ context.Context, meta Meta) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stores[meta.StoreID] = append(m.stores[meta.StoreID], meta)

	return nil
}

// Get implements ManifestStore.
func (m *MemoryManifests) Get(_ context.Context, storeID, version string) (Meta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, meta := range m.stores[storeID] {
		if meta.Version == version {
			return meta, nil
		}
	}

	return Meta{}, ErrNotFound
}

// Latest implements ManifestStore.
func (m *MemoryManifests) Latest(_ context.Context, storeID string) (Meta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshots := m.stores[storeID]
	if len(snapshots) == 0 {
		return Meta{}, ErrNotFound
	}

	return snapshots[len(snapshots)-1], nil
}

// List implements ManifestStore.
func (m *MemoryManifests) List(_ context.Context, storeID string) ([]Meta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshots := m.stores[storeID]

	// Inserts are append-only in creation order, so the reverse is the
	// descending created_at order with insertion breaking ties.
	out := make([]Meta, len(snapshots))
	for i, meta := range snapshots {
		out[len(snapshots)-1-i] = meta
	}

	return out, nil
}

// DeleteStore implements ManifestStore.
func (m *MemoryManifests) DeleteStore(_ context.Context, storeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.stores, storeID)

	return nil
}

// StoreIDs implements ManifestStore.
func (m *MemoryManifests) StoreIDs(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string

	for storeID := range m.stores {
		if MatchesPrefix(storeID, prefix) {
			ids = append(ids, storeID)
		}
	}

	sort.Strings(ids)

	return ids, nil
}

// MemoryBlobs is the in-memory BlobStore.
type MemoryBlobs struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryBlobs creates an empty in-memory blob store.
func NewMemoryBlobs() *MemoryBlobs {
	return &MemoryBlobs{blobs: make(map[string][]byte)}
}

// Get implements BlobStore.
func (b *MemoryBlobs) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}

	out := make([]byte, len(data))
	copy(out, data)

	return out, nil
}

// Put implements BlobStore.
func (b *MemoryBlobs) Put(_ context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	b.blobs[key] = stored

	return nil
}

// Delete implements BlobStore.
func (b *MemoryBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.blobs, key)

	return nil
}

// List implements BlobStore.
func (b *MemoryBlobs) List(_ context.Context, prefix string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var keys []string

	for key := range b.blobs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)

	return keys, nil
}
