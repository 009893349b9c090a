package rewards

import (
	"errors"
	"fmt"
	"time"

	"github.com/srujanreddynadipi/rewards/types"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrInvalidInput = errors.New("rewards: invalid input")

	// Permission errors
	ErrPermissionDenied = errors.New("rewards: permission denied")

	// Account errors
	ErrAccountNotFound = errors.New("rewards: account not found")

	// Coupon errors
	ErrCouponNotFound     = errors.New("rewards: coupon not found")
	ErrCouponInactive     = errors.New("rewards: coupon is inactive")
	ErrRedemptionNotFound = errors.New("rewards: redemption not found")
	ErrNotCouponOwner     = errors.New("rewards: redemption belongs to another user")
	ErrCouponNotActive    = errors.New("rewards: redemption is not in active state")

	// Concurrency errors
	ErrConcurrentModification = errors.New("rewards: concurrent modification, retries exhausted")

	// Store errors. Backends translate their native conflict and
	// uniqueness failures to these; the engine retries on both and never
	// surfaces them to callers directly.
	ErrTxConflict        = errors.New("rewards: transaction conflict")
	ErrDuplicateCode     = errors.New("rewards: duplicate coupon code")
	ErrStoreClosed       = errors.New("rewards: store is closed")
	ErrTransactionFailed = errors.New("rewards: transaction failed")
	ErrMigrationFailed   = errors.New("rewards: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("rewards: validation failed for %s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrInvalidInput) match any validation error.
func (e ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// RateLimitedError reports an exceeded award quota, carrying the window's
// reset time so callers can render a precise message.
type RateLimitedError struct {
	Action  string
	Limit   int64
	Used    int64
	ResetAt time.Time
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("rewards: rate limited on %s: used %d of %d, resets at %s",
		e.Action, e.Used, e.Limit, e.ResetAt.UTC().Format(time.RFC3339))
}

// InsufficientFundsError reports a balance too low for a debit, carrying the
// required and available amounts.
type InsufficientFundsError struct {
	UserID    string
	Color     types.Color
	Required  int64
	Available int64
}

func (e InsufficientFundsError) Error() string {
	return fmt.Sprintf("rewards: insufficient %s points for %s: required %d, available %d",
		e.Color, e.UserID, e.Required, e.Available)
}

// IsRateLimited reports whether err is a rate-limit denial.
func IsRateLimited(err error) bool {
	var rle RateLimitedError
	return errors.As(err, &rle)
}

// IsInsufficientFunds reports whether err is a balance failure.
func IsInsufficientFunds(err error) bool {
	var ife InsufficientFundsError
	return errors.As(err, &ife)
}
