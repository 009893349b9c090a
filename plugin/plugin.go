// Package plugin provides an extensible plugin system for the rewards engine.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Transfer hooks
// ──────────────────────────────────────────────────

// OnPointsAwarded is called after a transfer commits.
type OnPointsAwarded interface {
	Plugin
	OnPointsAwarded(ctx context.Context, tx interface{}) error
}

// OnRateLimited is called when an award is denied by a quota window.
type OnRateLimited interface {
	Plugin
	OnRateLimited(ctx context.Context, actorID, action string, used, limit int64) error
}

// OnInsufficientFunds is called when a debit fails a balance check.
type OnInsufficientFunds interface {
	Plugin
	OnInsufficientFunds(ctx context.Context, userID, color string, required, available int64) error
}

// ──────────────────────────────────────────────────
// Redemption hooks
// ──────────────────────────────────────────────────

// OnCouponRedeemed is called after a redemption commits.
type OnCouponRedeemed interface {
	Plugin
	OnCouponRedeemed(ctx context.Context, redemption interface{}) error
}

// OnCouponUsed is called when a holder marks a redeemed coupon used.
type OnCouponUsed interface {
	Plugin
	OnCouponUsed(ctx context.Context, redemption interface{}) error
}

// OnCouponsExpired is called after an expiry sweep that transitioned at
// least one receipt.
type OnCouponsExpired interface {
	Plugin
	OnCouponsExpired(ctx context.Context, count int) error
}

// RedemptionValidator provides custom validation ahead of a redemption.
// A non-nil error vetoes the redemption before any state changes.
type RedemptionValidator interface {
	Plugin
	ValidateRedemption(ctx context.Context, coupon interface{}, userID string) error
}

// ──────────────────────────────────────────────────
// Notification hooks
// ──────────────────────────────────────────────────

// OnNotificationDropped is called when the outbox buffer is full and an
// event is discarded.
type OnNotificationDropped interface {
	Plugin
	OnNotificationDropped(ctx context.Context, event interface{}) error
}
