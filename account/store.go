package account

import (
	"context"
)

// Store is the persistence contract for accounts.
type Store interface {
	// Get returns the account for a user, or a not-found error.
	Get(ctx context.Context, userID string) (*Account, error)

	// Put upserts an account keyed by user ID.
	Put(ctx context.Context, a *Account) error

	// List returns all accounts. Used by the leaderboard scan.
	List(ctx context.Context) ([]*Account, error)
}
