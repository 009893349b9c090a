package coupon

import (
	"context"
	"time"

	"github.com/srujanreddynadipi/rewards/id"
)

// Store is the persistence contract for the coupon catalog.
type Store interface {
	Create(ctx context.Context, c *Coupon) error
	Get(ctx context.Context, couponID id.CouponID) (*Coupon, error)
	List(ctx context.Context, opts ListOpts) ([]*Coupon, error)
	Update(ctx context.Context, c *Coupon) error
}

// ListOpts filters a catalog listing.
type ListOpts struct {
	ActiveOnly bool
	Category   string
	Limit      int
	Offset     int
}

// RedemptionStore is the persistence contract for redemption receipts.
type RedemptionStore interface {
	// CreateRedemption persists a receipt. Backends enforce a unique index
	// on Code and report collisions with a duplicate-code error.
	CreateRedemption(ctx context.Context, r *Redemption) error

	GetRedemption(ctx context.Context, redemptionID id.RedemptionID) (*Redemption, error)
	ListRedemptionsByUser(ctx context.Context, userID string) ([]*Redemption, error)

	// UpdateRedemption persists a status transition.
	UpdateRedemption(ctx context.Context, r *Redemption) error

	// ListLapsedRedemptions returns active receipts whose expiry is before now.
	ListLapsedRedemptions(ctx context.Context, now time.Time) ([]*Redemption, error)
}
