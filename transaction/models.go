// Package transaction defines the append-only point transaction ledger.
//
// Ledger entries are immutable: there is no update or delete operation, by
// design. The signed sum of all entries touching a user, per color, equals
// that user's balance for the color — except for system-actor entries,
// which mint or burn without a symmetric counterpart.
package transaction

import (
	"time"

	"github.com/srujanreddynadipi/rewards/id"
	"github.com/srujanreddynadipi/rewards/types"
)

// Reserved system actor IDs. These are not real user accounts: transfers
// from SystemMint create points out of nothing, and redemption entries are
// paid to SystemCatalog.
const (
	SystemMint    = "system:mint"
	SystemCatalog = "system:catalog"
)

// IsSystemActor reports whether userID is one of the reserved system actors.
func IsSystemActor(userID string) bool {
	return userID == SystemMint || userID == SystemCatalog
}

// Status of a ledger entry. Only committed entries are ever persisted, so
// the only status is completed; failed operations leave no entry at all.
type Status string

const StatusCompleted Status = "completed"

// Transaction is a single immutable ledger entry.
type Transaction struct {
	types.Entity
	ID         id.TransactionID `json:"id"`
	FromUserID string           `json:"from_user_id"`
	ToUserID   string           `json:"to_user_id"`
	Color      types.Color      `json:"color"`
	Amount     int64            `json:"amount"`
	Reason     string           `json:"reason"`
	Category   types.Category   `json:"category"`
	Status     Status           `json:"status"`
	Timestamp  time.Time        `json:"timestamp"`
}

// New builds a completed ledger entry at the given time.
func New(from, to string, color types.Color, amount int64, reason string, category types.Category, at time.Time) *Transaction {
	return &Transaction{
		Entity:     types.NewEntity(),
		ID:         id.NewTransactionID(),
		FromUserID: from,
		ToUserID:   to,
		Color:      color,
		Amount:     amount,
		Reason:     reason,
		Category:   category,
		Status:     StatusCompleted,
		Timestamp:  at,
	}
}

// Touches reports whether the entry affects the given user on either side.
func (t *Transaction) Touches(userID string) bool {
	return t.FromUserID == userID || t.ToUserID == userID
}

// SignedAmount returns the entry's effect on the given user's balance:
// positive when the user is credited, negative when debited, zero when
// the entry does not touch the user.
func (t *Transaction) SignedAmount(userID string) int64 {
	switch userID {
	case t.ToUserID:
		return t.Amount
	case t.FromUserID:
		return -t.Amount
	default:
		return 0
	}
}
