package storage

import (
	"context"
	"sync"
	"time"

	"github.com/pulseboard/pulseboard/internal/ratelimit"
)

// MemoryAccounts is the in-memory AccountStore test double.
type MemoryAccounts struct {
	mu       sync.Mutex
	accounts map[string]Account
	members  map[string][]Membership
}

// NewMemoryAccounts returns an empty account store.
func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{
		accounts: make(map[string]Account),
		members:  make(map[string][]Membership),
	}
}

// Add seeds an account.
func (m *MemoryAccounts) Add(account Account) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.accounts[account.ID] = account
}

// AddMember seeds a membership.
func (m *MemoryAccounts) AddMember(userID, accountID string, role Role) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.members[accountID] = append(m.members[accountID], Membership{
		UserID:    userID,
		AccountID: accountID,
		Role:      role,
	})
}

// Get implements AccountStore.
func (m *MemoryAccounts) Get(_ context.Context, accountID string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[accountID]
	if !ok {
		return Account{}, ErrAccountNotFound
	}

	return account, nil
}

// ListActiveWithMembers implements AccountStore.
func (m *MemoryAccounts) ListActiveWithMembers(_ context.Context) ([]AccountWithMembers, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []AccountWithMembers

	for id, account := range m.accounts {
		if !account.IsActive {
			continue
		}

		joined := AccountWithMembers{Account: account}
		for _, membership := range m.members[id] {
			joined.MemberIDs = append(joined.MemberIDs, membership.UserID)
		}

		if len(joined.MemberIDs) > 0 {
			result = append(result, joined)
		}
	}

	return result, nil
}

// UpdateLastFetched implements AccountStore.
func (m *MemoryAccounts) UpdateLastFetched(_ context.Context, accountID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}

	account.LastFetchedAt = &at
	account.UpdatedAt = at
	m.accounts[accountID] = account

	return nil
}

// Delete implements AccountStore.
func (m *MemoryAccounts) Delete(_ context.Context, accountID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}

	var userIDs []string
	for _, membership := range m.members[accountID] {
		userIDs = append(userIDs, membership.UserID)
	}

	delete(m.accounts, accountID)
	delete(m.members, accountID)

	return userIDs, nil
}

var _ AccountStore = (*MemoryAccounts)(nil)

// MemoryRates is the in-memory RateStore test double.
type MemoryRates struct {
	mu     sync.Mutex
	states map[string]ratelimit.State
}

// NewMemoryRates returns an empty rate store.
func NewMemoryRates() *MemoryRates {
	return &MemoryRates{states: make(map[string]ratelimit.State)}
}

// Get implements RateStore.
func (m *MemoryRates) Get(_ context.Context, accountID string) (ratelimit.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[accountID]
	if !ok {
		return ratelimit.State{AccountID: accountID}, nil
	}

	return state, nil
}

// Upsert implements RateStore.
func (m *MemoryRates) Upsert(_ context.Context, state ratelimit.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[state.AccountID] = state

	return nil
}

var _ RateStore = (*MemoryRates)(nil)
