package transaction

import (
	"context"

	"github.com/srujanreddynadipi/rewards/types"
)

// Store is the persistence contract for the ledger. Append-only: no update
// or delete method exists.
type Store interface {
	// Append persists a ledger entry. Fails only on store-level I/O errors.
	Append(ctx context.Context, t *Transaction) error

	// ListByUser returns entries touching a user, newest first, with an
	// opaque continuation token for the next page ("" when exhausted).
	ListByUser(ctx context.Context, userID string, opts ListOpts) ([]*Transaction, string, error)
}

// ListOpts filters and pages a history query.
type ListOpts struct {
	Color     types.Color    // optional: only entries of this color
	Category  types.Category // optional: only entries of this category
	Limit     int            // page size; 0 means backend default
	PageToken string         // continuation token from a previous call
}
