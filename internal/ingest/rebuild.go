package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/pulseboard/pulseboard/internal/corpus"
	"github.com/pulseboard/pulseboard/internal/normalize"
	"github.com/pulseboard/pulseboard/internal/platform"
	"github.com/pulseboard/pulseboard/internal/storage"
	"github.com/pulseboard/pulseboard/internal/timeline"
)

// rebuildUser assembles a fresh timeline artifact from the latest raw
// snapshot of each of the user's accounts, whether freshly written this
// invocation or previously present. Per-snapshot normalization failures
// contribute zero items but never abort the rebuild.
func (e *Engine) rebuildUser(ctx context.Context, userID string, accounts []storage.AccountWithMembers) error {
	logger := e.logger().With("user", userID)

	var (
		items   []timeline.Item
		parents []corpus.Parent
	)

	for _, account := range accounts {
		rawID := platform.RawStore(account.Platform, account.ID).String()
		store := corpus.NewStore[json.RawMessage](e.Corpus, rawID)

		meta, raw, err := store.GetLatest(ctx)
		if errors.Is(err, corpus.ErrNotFound) {
			continue
		}

		if err != nil {
			logger.Warn("read raw snapshot", "store", rawID, "error", err)

			continue
		}

		parents = append(parents, corpus.Parent{
			StoreID: rawID,
			Version: meta.Version,
			Role:    corpus.ParentRoleSource,
		})

		normalized, err := normalize.ForPlatform(account.Platform, raw)
		if err != nil {
			logger.Warn("normalize snapshot", "store", rawID, "error", err)

			continue
		}

		items = append(items, normalized...)
	}

	artifact := timeline.Artifact{
		UserID:      userID,
		GeneratedAt: e.now().UTC(),
		Groups:      timeline.Assemble(items),
	}

	store := corpus.NewStore[timeline.Artifact](e.Corpus, platform.TimelineStore(userID).String())

	_, err := store.Put(ctx, artifact, corpus.PutOptions{
		Tags:    []string{"user:" + userID},
		Parents: parents,
	})
	if err != nil {
		return fmt.Errorf("write timeline for %s: %w", userID, err)
	}

	return nil
}

// DeleteResult summarizes an account deletion.
type DeleteResult struct {
	DeletedStores []string `json:"deleted_stores"`
	AffectedUsers []string `json:"affected_users"`
}

// DeleteAccount removes the account row, its memberships, its rate state,
// and every snapshot under the account's store namespaces.
func (e *Engine) DeleteAccount(ctx context.Context, accountID string) (DeleteResult, error) {
	account, err := e.Accounts.Get(ctx, accountID)
	if err != nil {
		return DeleteResult{}, err
	}

	users, err := e.Accounts.Delete(ctx, accountID)
	if err != nil {
		return DeleteResult{}, err
	}

	var deleted []string

	for _, namespace := range platform.AccountNamespaces(account.Platform, accountID) {
		stores, deleteErr := e.Corpus.DeleteNamespace(ctx, namespace)
		if deleteErr != nil {
			return DeleteResult{}, fmt.Errorf("delete namespace %q: %w", namespace, deleteErr)
		}

		deleted = append(deleted, stores...)
	}

	sort.Strings(deleted)
	sort.Strings(users)

	return DeleteResult{DeletedStores: deleted, AffectedUsers: users}, nil
}

// LatestTimeline returns a user's most recent timeline artifact.
func (e *Engine) LatestTimeline(ctx context.Context, userID string) (timeline.Artifact, corpus.Meta, error) {
	store := corpus.NewStore[timeline.Artifact](e.Corpus, platform.TimelineStore(userID).String())

	meta, artifact, err := store.GetLatest(ctx)
	if err != nil {
		return timeline.Artifact{}, corpus.Meta{}, err
	}

	return artifact, meta, nil
}

// LatestRaw returns an account's most recent raw composite snapshot.
func (e *Engine) LatestRaw(ctx context.Context, p platform.Platform, accountID string) (json.RawMessage, corpus.Meta, error) {
	store := corpus.NewStore[json.RawMessage](e.Corpus, platform.RawStore(p, accountID).String())

	meta, raw, err := store.GetLatest(ctx)
	if err != nil {
		return nil, corpus.Meta{}, err
	}

	return raw, meta, nil
}
