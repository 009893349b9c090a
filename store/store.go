// Package store defines the unified storage interface for the rewards ledger.
package store

import (
	"context"
	"time"

	"github.com/srujanreddynadipi/rewards/account"
	"github.com/srujanreddynadipi/rewards/coupon"
	"github.com/srujanreddynadipi/rewards/id"
	"github.com/srujanreddynadipi/rewards/ratelimit"
	"github.com/srujanreddynadipi/rewards/transaction"
)

// Store is the unified storage interface for all rewards entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
//
// Every mutating engine operation runs inside Atomic; the plain methods are
// for reads and for use within an Atomic callback.
type Store interface {
	// Account methods
	GetAccount(ctx context.Context, userID string) (*account.Account, error)
	PutAccount(ctx context.Context, a *account.Account) error
	ListAccounts(ctx context.Context) ([]*account.Account, error)

	// Ledger methods. Append-only: no update or delete exists.
	AppendTransaction(ctx context.Context, t *transaction.Transaction) error
	ListTransactionsByUser(ctx context.Context, userID string, opts transaction.ListOpts) ([]*transaction.Transaction, string, error)

	// Rate-limit window methods. GetRateWindow returns (nil, nil) when no
	// window exists for the pair; absence of a counter is not an error.
	GetRateWindow(ctx context.Context, actorID, action string) (*ratelimit.Window, error)
	PutRateWindow(ctx context.Context, w *ratelimit.Window) error

	// Coupon catalog methods
	CreateCoupon(ctx context.Context, c *coupon.Coupon) error
	GetCoupon(ctx context.Context, couponID id.CouponID) (*coupon.Coupon, error)
	ListCoupons(ctx context.Context, opts coupon.ListOpts) ([]*coupon.Coupon, error)
	UpdateCoupon(ctx context.Context, c *coupon.Coupon) error

	// Redemption methods. CreateRedemption enforces a unique index on the
	// coupon code and reports collisions as a duplicate-code error.
	CreateRedemption(ctx context.Context, r *coupon.Redemption) error
	GetRedemption(ctx context.Context, redemptionID id.RedemptionID) (*coupon.Redemption, error)
	ListRedemptionsByUser(ctx context.Context, userID string) ([]*coupon.Redemption, error)
	UpdateRedemption(ctx context.Context, r *coupon.Redemption) error
	ListLapsedRedemptions(ctx context.Context, now time.Time) ([]*coupon.Redemption, error)

	// Atomic runs fn as a single transaction with snapshot-or-better
	// isolation: every read and write inside fn commits together or not at
	// all. A write-write conflict with a concurrent transaction surfaces as
	// a conflict error, which the engine retries from its precondition
	// checks. fn may be invoked more than once and must be side-effect free
	// outside the passed store.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
