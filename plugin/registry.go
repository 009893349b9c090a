package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                []OnInit
	onShutdown            []OnShutdown
	onPointsAwarded       []OnPointsAwarded
	onRateLimited         []OnRateLimited
	onInsufficientFunds   []OnInsufficientFunds
	onCouponRedeemed      []OnCouponRedeemed
	onCouponUsed          []OnCouponUsed
	onCouponsExpired      []OnCouponsExpired
	onNotificationDropped []OnNotificationDropped
	redemptionValidators  []RedemptionValidator
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnPointsAwarded); ok {
		r.onPointsAwarded = append(r.onPointsAwarded, v)
	}
	if v, ok := p.(OnRateLimited); ok {
		r.onRateLimited = append(r.onRateLimited, v)
	}
	if v, ok := p.(OnInsufficientFunds); ok {
		r.onInsufficientFunds = append(r.onInsufficientFunds, v)
	}
	if v, ok := p.(OnCouponRedeemed); ok {
		r.onCouponRedeemed = append(r.onCouponRedeemed, v)
	}
	if v, ok := p.(OnCouponUsed); ok {
		r.onCouponUsed = append(r.onCouponUsed, v)
	}
	if v, ok := p.(OnCouponsExpired); ok {
		r.onCouponsExpired = append(r.onCouponsExpired, v)
	}
	if v, ok := p.(OnNotificationDropped); ok {
		r.onNotificationDropped = append(r.onNotificationDropped, v)
	}
	if v, ok := p.(RedemptionValidator); ok {
		r.redemptionValidators = append(r.redemptionValidators, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnPointsAwarded)(nil)).Elem(), "OnPointsAwarded")
	checkInterface(reflect.TypeOf((*OnRateLimited)(nil)).Elem(), "OnRateLimited")
	checkInterface(reflect.TypeOf((*OnInsufficientFunds)(nil)).Elem(), "OnInsufficientFunds")
	checkInterface(reflect.TypeOf((*OnCouponRedeemed)(nil)).Elem(), "OnCouponRedeemed")
	checkInterface(reflect.TypeOf((*OnCouponUsed)(nil)).Elem(), "OnCouponUsed")
	checkInterface(reflect.TypeOf((*OnCouponsExpired)(nil)).Elem(), "OnCouponsExpired")
	checkInterface(reflect.TypeOf((*RedemptionValidator)(nil)).Elem(), "RedemptionValidator")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPointsAwarded emits a points awarded event.
func (r *Registry) EmitPointsAwarded(ctx context.Context, tx interface{}) {
	r.mu.RLock()
	plugins := r.onPointsAwarded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPointsAwarded(ctx, tx)
		}); err != nil {
			r.logger.Warn("plugin OnPointsAwarded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRateLimited emits a rate limited event.
func (r *Registry) EmitRateLimited(ctx context.Context, actorID, action string, used, limit int64) {
	r.mu.RLock()
	plugins := r.onRateLimited
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRateLimited(ctx, actorID, action, used, limit)
		}); err != nil {
			r.logger.Warn("plugin OnRateLimited failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInsufficientFunds emits an insufficient funds event.
func (r *Registry) EmitInsufficientFunds(ctx context.Context, userID, color string, required, available int64) {
	r.mu.RLock()
	plugins := r.onInsufficientFunds
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInsufficientFunds(ctx, userID, color, required, available)
		}); err != nil {
			r.logger.Warn("plugin OnInsufficientFunds failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCouponRedeemed emits a coupon redeemed event.
func (r *Registry) EmitCouponRedeemed(ctx context.Context, redemption interface{}) {
	r.mu.RLock()
	plugins := r.onCouponRedeemed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCouponRedeemed(ctx, redemption)
		}); err != nil {
			r.logger.Warn("plugin OnCouponRedeemed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCouponUsed emits a coupon used event.
func (r *Registry) EmitCouponUsed(ctx context.Context, redemption interface{}) {
	r.mu.RLock()
	plugins := r.onCouponUsed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCouponUsed(ctx, redemption)
		}); err != nil {
			r.logger.Warn("plugin OnCouponUsed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCouponsExpired emits a coupons expired event.
func (r *Registry) EmitCouponsExpired(ctx context.Context, count int) {
	r.mu.RLock()
	plugins := r.onCouponsExpired
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCouponsExpired(ctx, count)
		}); err != nil {
			r.logger.Warn("plugin OnCouponsExpired failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitNotificationDropped emits a notification dropped event.
func (r *Registry) EmitNotificationDropped(ctx context.Context, event interface{}) {
	r.mu.RLock()
	plugins := r.onNotificationDropped
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnNotificationDropped(ctx, event)
		}); err != nil {
			r.logger.Warn("plugin OnNotificationDropped failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// GetRedemptionValidators returns all registered redemption validators.
func (r *Registry) GetRedemptionValidators() []RedemptionValidator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]RedemptionValidator, len(r.redemptionValidators))
	copy(result, r.redemptionValidators)
	return result
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
