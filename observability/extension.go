// Package observability provides a metrics extension for the rewards engine
// that records lifecycle event counts via a pluggable MetricFactory.
package observability

import (
	"context"

	"github.com/srujanreddynadipi/rewards/coupon"
	"github.com/srujanreddynadipi/rewards/plugin"
	"github.com/srujanreddynadipi/rewards/transaction"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnInit                = (*MetricsExtension)(nil)
	_ plugin.OnPointsAwarded       = (*MetricsExtension)(nil)
	_ plugin.OnRateLimited         = (*MetricsExtension)(nil)
	_ plugin.OnInsufficientFunds   = (*MetricsExtension)(nil)
	_ plugin.OnCouponRedeemed      = (*MetricsExtension)(nil)
	_ plugin.OnCouponUsed          = (*MetricsExtension)(nil)
	_ plugin.OnCouponsExpired      = (*MetricsExtension)(nil)
	_ plugin.OnNotificationDropped = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as an engine plugin to automatically track reward metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Transfer metrics
	PointsAwarded     Counter
	PointsAmount      Histogram
	RateLimited       Counter
	InsufficientFunds Counter

	// Redemption metrics
	CouponsRedeemed Counter
	PointsSpent     Histogram
	CouponsUsed     Counter
	CouponsExpired  Counter

	// Outbox metrics
	NotificationsDropped Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Transfer metrics
		PointsAwarded:     factory.Counter("rewards.points.awarded"),
		PointsAmount:      factory.Histogram("rewards.points.amount"),
		RateLimited:       factory.Counter("rewards.transfer.rate_limited"),
		InsufficientFunds: factory.Counter("rewards.transfer.insufficient_funds"),

		// Redemption metrics
		CouponsRedeemed: factory.Counter("rewards.coupon.redeemed"),
		PointsSpent:     factory.Histogram("rewards.coupon.points_spent"),
		CouponsUsed:     factory.Counter("rewards.coupon.used"),
		CouponsExpired:  factory.Counter("rewards.coupon.expired"),

		// Outbox metrics
		NotificationsDropped: factory.Counter("rewards.notifications.dropped"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Transfer lifecycle hooks
// ──────────────────────────────────────────────────

// OnPointsAwarded implements plugin.OnPointsAwarded.
func (m *MetricsExtension) OnPointsAwarded(_ context.Context, tx interface{}) error {
	m.PointsAwarded.Inc()
	if t, ok := tx.(*transaction.Transaction); ok {
		m.PointsAmount.Observe(float64(t.Amount))
	}
	return nil
}

// OnRateLimited implements plugin.OnRateLimited.
func (m *MetricsExtension) OnRateLimited(_ context.Context, _, _ string, _, _ int64) error {
	m.RateLimited.Inc()
	return nil
}

// OnInsufficientFunds implements plugin.OnInsufficientFunds.
func (m *MetricsExtension) OnInsufficientFunds(_ context.Context, _, _ string, _, _ int64) error {
	m.InsufficientFunds.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Redemption lifecycle hooks
// ──────────────────────────────────────────────────

// OnCouponRedeemed implements plugin.OnCouponRedeemed.
func (m *MetricsExtension) OnCouponRedeemed(_ context.Context, receipt interface{}) error {
	m.CouponsRedeemed.Inc()
	if r, ok := receipt.(*coupon.Redemption); ok {
		m.PointsSpent.Observe(float64(r.PointsSpent))
	}
	return nil
}

// OnCouponUsed implements plugin.OnCouponUsed.
func (m *MetricsExtension) OnCouponUsed(_ context.Context, _ interface{}) error {
	m.CouponsUsed.Inc()
	return nil
}

// OnCouponsExpired implements plugin.OnCouponsExpired.
func (m *MetricsExtension) OnCouponsExpired(_ context.Context, count int) error {
	m.CouponsExpired.Add(float64(count))
	return nil
}

// ──────────────────────────────────────────────────
// Outbox hooks
// ──────────────────────────────────────────────────

// OnNotificationDropped implements plugin.OnNotificationDropped.
func (m *MetricsExtension) OnNotificationDropped(_ context.Context, _ interface{}) error {
	m.NotificationsDropped.Inc()
	return nil
}
