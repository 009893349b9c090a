// Package coupon defines the redeemable catalog and redemption receipts.
package coupon

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/srujanreddynadipi/rewards/id"
	"github.com/srujanreddynadipi/rewards/types"
)

// Coupon is a catalog entry holders can exchange points for.
type Coupon struct {
	types.Entity
	ID             id.CouponID `json:"id"`
	Brand          string      `json:"brand"`
	Title          string      `json:"title"`
	PointsRequired int64       `json:"points_required"`
	ValidityDays   int         `json:"validity_days"`
	Category       string      `json:"category"`
	Active         bool        `json:"active"`

	// TimesRedeemed counts successful redemptions. Monotonic; incremented
	// only inside the redemption transaction.
	TimesRedeemed int `json:"times_redeemed"`
}

// Status of a redemption receipt.
type Status string

const (
	StatusActive  Status = "active"
	StatusUsed    Status = "used"
	StatusExpired Status = "expired"
)

// Redemption is a receipt minted when a holder exchanges points for a coupon.
// Immutable after creation except for the status transition.
type Redemption struct {
	types.Entity
	ID          id.RedemptionID `json:"id"`
	UserID      string          `json:"user_id"`
	CouponID    id.CouponID     `json:"coupon_id"`
	Code        string          `json:"code"`
	ColorSpent  types.Color     `json:"color_spent"`
	PointsSpent int64           `json:"points_spent"`
	RedeemedAt  time.Time       `json:"redeemed_at"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Status      Status          `json:"status"`
}

// NewRedemption mints an active receipt for a coupon at the given time.
// The code is generated fresh; the store's unique index on it is the final
// arbiter of uniqueness.
func NewRedemption(userID string, c *Coupon, color types.Color, now time.Time) *Redemption {
	return &Redemption{
		Entity:      types.NewEntity(),
		ID:          id.NewRedemptionID(),
		UserID:      userID,
		CouponID:    c.ID,
		Code:        GenerateCode(c.Brand, now),
		ColorSpent:  color,
		PointsSpent: c.PointsRequired,
		RedeemedAt:  now,
		ExpiresAt:   now.AddDate(0, 0, c.ValidityDays),
		Status:      StatusActive,
	}
}

// MarkUsed transitions active -> used. Returns false if the receipt is not
// active; used and expired are terminal.
func (r *Redemption) MarkUsed() bool {
	if r.Status != StatusActive {
		return false
	}
	r.Status = StatusUsed
	r.Touch()
	return true
}

// Expire transitions active -> expired when now is past ExpiresAt.
// Idempotent: returns false without effect when already used or expired,
// or when the receipt has not yet lapsed.
func (r *Redemption) Expire(now time.Time) bool {
	if r.Status != StatusActive || !now.After(r.ExpiresAt) {
		return false
	}
	r.Status = StatusExpired
	r.Touch()
	return true
}

// GenerateCode builds a coupon code from a brand prefix, a timestamp and a
// random suffix, e.g. "STAR-260301-7F3A9C2B". Uniqueness is probabilistic by
// construction; collisions are caught by the store's unique constraint and
// the whole redemption retries with a fresh code.
func GenerateCode(brand string, now time.Time) string {
	prefix := codePrefix(brand)
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return prefix + "-" + now.UTC().Format("060102") + "-" + suffix
}

// codePrefix reduces a brand name to at most four code-safe upper letters.
func codePrefix(brand string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(brand) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == 4 {
				break
			}
		}
	}
	if b.Len() == 0 {
		return "CPNX"
	}
	return b.String()
}
