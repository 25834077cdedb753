// Package storage defines the relational models the engine reads and writes:
// accounts with their user memberships, per-account rate state, and the
// snapshot manifest tables backing the corpus.
package storage

import (
	"time"

	"github.com/pulseboard/pulseboard/internal/platform"
)

// Role of a user within an account membership.
type Role string

// Membership roles. Only owners may mutate an account; every member's
// timeline incorporates the account's data.
const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// Account is one upstream credential record. Accounts are created by an
// external OAuth flow; the engine reads them and touches only
// last_fetched_at.
type Account struct {
	ID                    string            `db:"id"`
	Platform              platform.Platform `db:"platform"`
	PlatformUserID        *string           `db:"platform_user_id"`
	PlatformUsername      *string           `db:"platform_username"`
	EncryptedAccessToken  string            `db:"encrypted_access_token"`
	EncryptedRefreshToken *string           `db:"encrypted_refresh_token"`
	TokenExpiresAt        *time.Time        `db:"token_expires_at"`
	IsActive              bool              `db:"is_active"`
	LastFetchedAt         *time.Time        `db:"last_fetched_at"`
	CreatedAt             time.Time         `db:"created_at"`
	UpdatedAt             time.Time         `db:"updated_at"`
}

// Membership links a user to an account. (user_id, account_id) is unique.
type Membership struct {
	UserID    string `db:"user_id"`
	AccountID string `db:"account_id"`
	Role      Role   `db:"role"`
}

// AccountWithMembers is an active account joined to the ids of every user
// sharing it.
type AccountWithMembers struct {
	Account
	MemberIDs []string
}
