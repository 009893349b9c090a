// Package account holds per-user point balances, one account per user.
//
// Accounts are created lazily on first access with all-zero balances and are
// never deleted. Balance mutations happen only inside the engine's atomic
// store transactions; the invariant that every color balance stays >= 0 is
// enforced there, not here.
package account

import (
	"github.com/srujanreddynadipi/rewards/id"
	"github.com/srujanreddynadipi/rewards/types"
)

// Account is a user's points account across all colors.
type Account struct {
	types.Entity
	ID       id.AccountID   `json:"id"`
	UserID   string         `json:"user_id"`
	Balances types.Balances `json:"balances"`

	// Audit aggregates. Monotonically increasing; not authoritative for
	// balance — the ledger is.
	TotalEarned int64 `json:"total_earned"`
	TotalSpent  int64 `json:"total_spent"`
}

// New creates a zeroed account for a user.
func New(userID string) *Account {
	return &Account{
		Entity: types.NewEntity(),
		ID:     id.NewAccountID(),
		UserID: userID,
	}
}

// Credit adds amount to the given color and bumps the earned aggregate.
func (a *Account) Credit(color types.Color, amount int64) {
	a.Balances = a.Balances.Add(color, amount)
	a.TotalEarned += amount
	a.Touch()
}

// Debit subtracts amount from the given color and bumps the spent aggregate.
// Callers must check CanDebit first; Debit itself does not re-verify.
func (a *Account) Debit(color types.Color, amount int64) {
	a.Balances = a.Balances.Add(color, -amount)
	a.TotalSpent += amount
	a.Touch()
}

// CanDebit reports whether the account holds at least amount of color.
func (a *Account) CanDebit(color types.Color, amount int64) bool {
	return a.Balances.Get(color) >= amount
}
