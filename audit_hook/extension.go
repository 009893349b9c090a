// Package audithook bridges rewards lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit system. Callers inject a RecorderFunc adapter that
// bridges to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/srujanreddynadipi/rewards/coupon"
	"github.com/srujanreddynadipi/rewards/plugin"
	"github.com/srujanreddynadipi/rewards/transaction"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnPointsAwarded       = (*Extension)(nil)
	_ plugin.OnRateLimited         = (*Extension)(nil)
	_ plugin.OnInsufficientFunds   = (*Extension)(nil)
	_ plugin.OnCouponRedeemed      = (*Extension)(nil)
	_ plugin.OnCouponUsed          = (*Extension)(nil)
	_ plugin.OnCouponsExpired      = (*Extension)(nil)
	_ plugin.OnNotificationDropped = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement. It is
// defined locally so callers can inject their concrete audit system at
// wiring time without an import here.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges rewards lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Transfer lifecycle hooks
// ──────────────────────────────────────────────────

// OnPointsAwarded implements plugin.OnPointsAwarded.
func (e *Extension) OnPointsAwarded(ctx context.Context, tx interface{}) error {
	t, ok := tx.(*transaction.Transaction)
	if !ok {
		return nil
	}
	return e.record(ctx, ActionPointsAwarded, SeverityInfo, OutcomeSuccess,
		ResourceTransfer, t.ID.String(), CategoryEconomy, nil,
		"from", t.FromUserID,
		"to", t.ToUserID,
		"color", string(t.Color),
		"amount", t.Amount,
		"category", string(t.Category),
	)
}

// OnRateLimited implements plugin.OnRateLimited.
func (e *Extension) OnRateLimited(ctx context.Context, actorID, action string, used, limit int64) error {
	return e.record(ctx, ActionRateLimited, SeverityWarning, OutcomeFailure,
		ResourceTransfer, "", CategoryEconomy, nil,
		"actor_id", actorID,
		"action", action,
		"used", used,
		"limit", limit,
	)
}

// OnInsufficientFunds implements plugin.OnInsufficientFunds.
func (e *Extension) OnInsufficientFunds(ctx context.Context, userID, color string, required, available int64) error {
	return e.record(ctx, ActionInsufficientFunds, SeverityWarning, OutcomeFailure,
		ResourceTransfer, "", CategoryEconomy, nil,
		"user_id", userID,
		"color", color,
		"required", required,
		"available", available,
	)
}

// ──────────────────────────────────────────────────
// Redemption lifecycle hooks
// ──────────────────────────────────────────────────

// OnCouponRedeemed implements plugin.OnCouponRedeemed.
func (e *Extension) OnCouponRedeemed(ctx context.Context, receipt interface{}) error {
	r, ok := receipt.(*coupon.Redemption)
	if !ok {
		return nil
	}
	return e.record(ctx, ActionCouponRedeemed, SeverityInfo, OutcomeSuccess,
		ResourceRedemption, r.ID.String(), CategoryRedemption, nil,
		"user_id", r.UserID,
		"coupon_id", r.CouponID.String(),
		"code", r.Code,
		"points_spent", r.PointsSpent,
	)
}

// OnCouponUsed implements plugin.OnCouponUsed.
func (e *Extension) OnCouponUsed(ctx context.Context, receipt interface{}) error {
	r, ok := receipt.(*coupon.Redemption)
	if !ok {
		return nil
	}
	return e.record(ctx, ActionCouponUsed, SeverityInfo, OutcomeSuccess,
		ResourceRedemption, r.ID.String(), CategoryRedemption, nil,
		"user_id", r.UserID,
		"code", r.Code,
	)
}

// OnCouponsExpired implements plugin.OnCouponsExpired.
func (e *Extension) OnCouponsExpired(ctx context.Context, count int) error {
	return e.record(ctx, ActionCouponsExpired, SeverityInfo, OutcomeSuccess,
		ResourceRedemption, "", CategoryRedemption, nil,
		"count", count,
	)
}

// ──────────────────────────────────────────────────
// Outbox hooks
// ──────────────────────────────────────────────────

// OnNotificationDropped implements plugin.OnNotificationDropped.
func (e *Extension) OnNotificationDropped(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionNotificationDropped, SeverityWarning, OutcomePartial,
		ResourceNotification, "", CategoryOperations, nil,
		"event", "notification_dropped",
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
