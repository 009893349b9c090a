package rewards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/srujanreddynadipi/rewards/account"
	"github.com/srujanreddynadipi/rewards/coupon"
	"github.com/srujanreddynadipi/rewards/id"
	"github.com/srujanreddynadipi/rewards/plugin"
	"github.com/srujanreddynadipi/rewards/ratelimit"
	"github.com/srujanreddynadipi/rewards/store"
	"github.com/srujanreddynadipi/rewards/transaction"
	"github.com/srujanreddynadipi/rewards/types"
)

// CapabilityAwardPoints is the capability an actor must hold to award
// points on behalf of another account. Self-transfers are exempt from the
// capability check but not from quotas.
const CapabilityAwardPoints = "points:award"

// Capabilities is the identity/permission oracle consumed by the engine.
// The surrounding application implements it; the engine never resolves
// roles itself.
type Capabilities interface {
	HasCapability(ctx context.Context, actorID, capability string) (bool, error)
}

// Notifier is the outbound notification sink. Delivery is best-effort and
// fire-and-forget: a publish failure never rolls back a committed ledger
// operation.
type Notifier interface {
	Publish(ctx context.Context, event Event) error
}

// Event is an outbound notification raised after a commit.
type Event struct {
	Kind     string         `json:"kind"`
	UserID   string         `json:"user_id"`
	ActorID  string         `json:"actor_id,omitempty"`
	Color    types.Color    `json:"color,omitempty"`
	Amount   int64          `json:"amount,omitempty"`
	Reason   string         `json:"reason,omitempty"`
	Category types.Category `json:"category,omitempty"`
	Code     string         `json:"code,omitempty"`
	At       time.Time      `json:"at"`
}

// Event kinds.
const (
	EventPointsReceived = "points.received"
	EventPointsSent     = "points.sent"
	EventCouponRedeemed = "coupon.redeemed"
	EventCouponUsed     = "coupon.used"
	EventCouponExpired  = "coupon.expired"
)

// Limits configures transfer validation and quota windows.
type Limits struct {
	// SingleTransactionCap bounds the amount of one award.
	SingleTransactionCap int64

	// DailyAwardCap bounds the total points one actor can award per window.
	DailyAwardCap int64

	// CategoryDailyCaps holds stricter per-category caps. Categories absent
	// from the map are bounded only by DailyAwardCap.
	CategoryDailyCaps map[types.Category]int64

	// Reason length bounds.
	ReasonMinLen int
	ReasonMaxLen int

	// Window is the quota window duration.
	Window time.Duration
}

// DefaultLimits returns the default transfer limits.
func DefaultLimits() Limits {
	return Limits{
		SingleTransactionCap: 100,
		DailyAwardCap:        500,
		CategoryDailyCaps: map[types.Category]int64{
			types.CategoryPeer: 50,
		},
		ReasonMinLen: 3,
		ReasonMaxLen: 200,
		Window:       24 * time.Hour,
	}
}

// Engine is the points ledger and redemption engine.
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	caps     Capabilities
	notifier Notifier

	// Background outbox
	outbox   chan Event
	stopChan chan struct{}
	wg       sync.WaitGroup

	// Configuration
	limits             Limits
	maxRetries         int
	leaderboardTTL     time.Duration
	now                func() time.Time

	// Leaderboard read-through cache
	lbMu    sync.Mutex
	lbCache map[LeaderboardScope]lbEntry
}

type lbEntry struct {
	standings []Standing
	expiresAt time.Time
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:          s,
		plugins:        plugin.NewRegistry(),
		logger:         slog.Default(),
		outbox:         make(chan Event, 1024),
		stopChan:       make(chan struct{}),
		limits:         DefaultLimits(),
		maxRetries:     5,
		leaderboardTTL: 30 * time.Second,
		now:            time.Now,
		lbCache:        make(map[LeaderboardScope]lbEntry),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithCapabilities sets the identity/permission oracle. Without one, only
// self-transfers pass the permission check.
func WithCapabilities(caps Capabilities) Option {
	return func(e *Engine) {
		e.caps = caps
	}
}

// WithNotifier sets the outbound notification sink.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithLimits overrides the default transfer limits.
func WithLimits(l Limits) Option {
	return func(e *Engine) {
		e.limits = l
	}
}

// WithMaxRetries bounds transparent retries of conflicting transactions.
func WithMaxRetries(n int) Option {
	return func(e *Engine) {
		e.maxRetries = n
	}
}

// WithLeaderboardCacheTTL sets the leaderboard cache TTL.
func WithLeaderboardCacheTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.leaderboardTTL = ttl
	}
}

// WithNotifyBuffer sets the outbox buffer capacity.
func WithNotifyBuffer(n int) Option {
	return func(e *Engine) {
		e.outbox = make(chan Event, n)
	}
}

// WithClock overrides the engine's time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Start migrates the store, initializes plugins, and begins the outbox worker.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	e.wg.Add(1)
	go e.outboxWorker(ctx)

	e.logger.Info("rewards engine started",
		"single_transaction_cap", e.limits.SingleTransactionCap,
		"daily_award_cap", e.limits.DailyAwardCap,
		"window", e.limits.Window,
		"leaderboard_ttl", e.leaderboardTTL,
	)

	return nil
}

// Stop shuts down the Engine, draining buffered notifications.
func (e *Engine) Stop() error {
	close(e.stopChan)
	e.wg.Wait()

	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// ──────────────────────────────────────────────────
// Transfers
// ──────────────────────────────────────────────────

// Award transfers amount points of color from one account to another on
// behalf of actorID. The whole operation — quota consumption, debit, credit,
// ledger append — commits atomically or not at all. Store-level conflicts
// are retried transparently up to the configured bound.
func (e *Engine) Award(ctx context.Context, actorID, fromUserID, toUserID string, color types.Color, amount int64, reason string, category types.Category) (id.TransactionID, error) {
	if err := e.validateAward(fromUserID, toUserID, color, amount, reason, category); err != nil {
		return id.Nil, err
	}

	if err := e.checkAwardPermission(ctx, actorID, fromUserID); err != nil {
		return id.Nil, err
	}

	var rec *transaction.Transaction
	err := e.atomically(ctx, func(ctx context.Context, tx store.Store) error {
		now := e.now()

		if err := e.consumeQuota(ctx, tx, actorID, ratelimit.ActionAward, amount, e.limits.DailyAwardCap, now); err != nil {
			return err
		}
		if cap, ok := e.limits.CategoryDailyCaps[category]; ok {
			if err := e.consumeQuota(ctx, tx, actorID, ratelimit.CategoryAction(category), amount, cap, now); err != nil {
				return err
			}
		}

		// The mint actor creates points out of nothing; everyone else
		// must cover the transfer.
		if fromUserID != transaction.SystemMint {
			from, err := getOrCreateAccount(ctx, tx, fromUserID)
			if err != nil {
				return err
			}
			if !from.CanDebit(color, amount) {
				return InsufficientFundsError{
					UserID:    fromUserID,
					Color:     color,
					Required:  amount,
					Available: from.Balances.Get(color),
				}
			}
			from.Debit(color, amount)
			if err := tx.PutAccount(ctx, from); err != nil {
				return err
			}
		}

		to, err := getOrCreateAccount(ctx, tx, toUserID)
		if err != nil {
			return err
		}
		to.Credit(color, amount)
		if err := tx.PutAccount(ctx, to); err != nil {
			return err
		}

		rec = transaction.New(fromUserID, toUserID, color, amount, reason, category, now)
		return tx.AppendTransaction(ctx, rec)
	})
	if err != nil {
		e.emitAwardFailure(ctx, actorID, err)
		return id.Nil, err
	}

	e.invalidateLeaderboard()
	e.plugins.EmitPointsAwarded(ctx, rec)

	e.publish(ctx, Event{
		Kind: EventPointsReceived, UserID: toUserID, ActorID: actorID,
		Color: color, Amount: amount, Reason: reason, Category: category, At: rec.Timestamp,
	})
	if fromUserID != transaction.SystemMint {
		e.publish(ctx, Event{
			Kind: EventPointsSent, UserID: fromUserID, ActorID: actorID,
			Color: color, Amount: amount, Reason: reason, Category: category, At: rec.Timestamp,
		})
	}

	e.logger.Debug("points awarded",
		"transaction_id", rec.ID,
		"from", fromUserID,
		"to", toUserID,
		"color", color,
		"amount", amount,
		"category", category,
	)

	return rec.ID, nil
}

func (e *Engine) validateAward(fromUserID, toUserID string, color types.Color, amount int64, reason string, category types.Category) error {
	switch {
	case fromUserID == "":
		return ValidationError{Field: "from_user_id", Message: "must not be empty"}
	case toUserID == "":
		return ValidationError{Field: "to_user_id", Message: "must not be empty"}
	case transaction.IsSystemActor(toUserID):
		return ValidationError{Field: "to_user_id", Message: "cannot award to a system actor"}
	case fromUserID == toUserID:
		return ValidationError{Field: "to_user_id", Message: "cannot award to the sending account"}
	case amount < 1 || amount > e.limits.SingleTransactionCap:
		return ValidationError{
			Field:   "amount",
			Message: fmt.Sprintf("must be between 1 and %d", e.limits.SingleTransactionCap),
		}
	case len(reason) < e.limits.ReasonMinLen || len(reason) > e.limits.ReasonMaxLen:
		return ValidationError{
			Field:   "reason",
			Message: fmt.Sprintf("length must be between %d and %d", e.limits.ReasonMinLen, e.limits.ReasonMaxLen),
		}
	case !color.Valid():
		return ValidationError{Field: "color", Message: fmt.Sprintf("unknown color %q", color)}
	case !category.Valid():
		return ValidationError{Field: "category", Message: fmt.Sprintf("unknown category %q", category)}
	}
	return nil
}

func (e *Engine) checkAwardPermission(ctx context.Context, actorID, fromUserID string) error {
	if actorID == "" {
		return ValidationError{Field: "actor_id", Message: "must not be empty"}
	}
	if actorID == fromUserID {
		// Self-transfer: exempt from the capability check, still quota-bound.
		return nil
	}
	if e.caps == nil {
		return ErrPermissionDenied
	}
	ok, err := e.caps.HasCapability(ctx, actorID, CapabilityAwardPoints)
	if err != nil {
		return fmt.Errorf("rewards: capability check: %w", err)
	}
	if !ok {
		return ErrPermissionDenied
	}
	return nil
}

// consumeQuota evaluates and consumes one quota axis inside the current
// transaction, so the counter write commits with the transfer it gates.
func (e *Engine) consumeQuota(ctx context.Context, tx store.Store, actorID, action string, cost, limit int64, now time.Time) error {
	w, err := tx.GetRateWindow(ctx, actorID, action)
	if err != nil {
		return err
	}
	if w == nil {
		w = ratelimit.NewWindow(actorID, action, now)
	}

	d := w.CheckAndConsume(now, cost, limit, e.limits.Window)
	if !d.Allowed {
		return RateLimitedError{Action: action, Limit: d.Limit, Used: d.Used, ResetAt: d.ResetAt}
	}

	return tx.PutRateWindow(ctx, w)
}

func (e *Engine) emitAwardFailure(ctx context.Context, actorID string, err error) {
	var rle RateLimitedError
	if errors.As(err, &rle) {
		e.plugins.EmitRateLimited(ctx, actorID, rle.Action, rle.Used, rle.Limit)
		return
	}
	var ife InsufficientFundsError
	if errors.As(err, &ife) {
		e.plugins.EmitInsufficientFunds(ctx, ife.UserID, string(ife.Color), ife.Required, ife.Available)
	}
}

// ──────────────────────────────────────────────────
// Redemption
// ──────────────────────────────────────────────────

// Redeem exchanges points for a coupon, minting a single-use receipt with a
// generated code. Debit, catalog counter increment, receipt creation and
// ledger append commit atomically. A generated code colliding with the
// store's unique constraint retries the whole operation with a fresh code.
func (e *Engine) Redeem(ctx context.Context, userID string, couponID id.CouponID, color types.Color) (*coupon.Redemption, error) {
	if userID == "" {
		return nil, ValidationError{Field: "user_id", Message: "must not be empty"}
	}
	if couponID.IsNil() {
		return nil, ValidationError{Field: "coupon_id", Message: "must not be empty"}
	}
	if !color.Valid() {
		return nil, ValidationError{Field: "color", Message: fmt.Sprintf("unknown color %q", color)}
	}

	var receipt *coupon.Redemption
	err := e.atomically(ctx, func(ctx context.Context, tx store.Store) error {
		now := e.now()

		c, err := tx.GetCoupon(ctx, couponID)
		if err != nil {
			return err
		}
		if !c.Active {
			return ErrCouponInactive
		}

		for _, v := range e.plugins.GetRedemptionValidators() {
			if err := v.ValidateRedemption(ctx, c, userID); err != nil {
				return err
			}
		}

		acct, err := getOrCreateAccount(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !acct.CanDebit(color, c.PointsRequired) {
			return InsufficientFundsError{
				UserID:    userID,
				Color:     color,
				Required:  c.PointsRequired,
				Available: acct.Balances.Get(color),
			}
		}
		acct.Debit(color, c.PointsRequired)
		if err := tx.PutAccount(ctx, acct); err != nil {
			return err
		}

		c.TimesRedeemed++
		c.Touch()
		if err := tx.UpdateCoupon(ctx, c); err != nil {
			return err
		}

		r := coupon.NewRedemption(userID, c, color, now)
		if err := tx.CreateRedemption(ctx, r); err != nil {
			return err
		}

		rec := transaction.New(userID, transaction.SystemCatalog, color, c.PointsRequired,
			"coupon redemption: "+c.Title, types.CategoryRedemption, now)
		if err := tx.AppendTransaction(ctx, rec); err != nil {
			return err
		}

		receipt = r
		return nil
	})
	if err != nil {
		var ife InsufficientFundsError
		if errors.As(err, &ife) {
			e.plugins.EmitInsufficientFunds(ctx, ife.UserID, string(ife.Color), ife.Required, ife.Available)
		}
		return nil, err
	}

	e.invalidateLeaderboard()
	e.plugins.EmitCouponRedeemed(ctx, receipt)
	e.publish(ctx, Event{
		Kind: EventCouponRedeemed, UserID: userID,
		Color: color, Amount: receipt.PointsSpent, Code: receipt.Code, At: receipt.RedeemedAt,
	})

	e.logger.Debug("coupon redeemed",
		"redemption_id", receipt.ID,
		"coupon_id", couponID,
		"user", userID,
		"points", receipt.PointsSpent,
	)

	return receipt, nil
}

// MarkCouponUsed transitions an active receipt to used. Only the receipt's
// owner may do so, and only once.
func (e *Engine) MarkCouponUsed(ctx context.Context, redemptionID id.RedemptionID, requestingUserID string) error {
	var receipt *coupon.Redemption
	err := e.atomically(ctx, func(ctx context.Context, tx store.Store) error {
		r, err := tx.GetRedemption(ctx, redemptionID)
		if err != nil {
			return err
		}
		if r.UserID != requestingUserID {
			return ErrNotCouponOwner
		}
		if !r.MarkUsed() {
			return ErrCouponNotActive
		}
		receipt = r
		return tx.UpdateRedemption(ctx, r)
	})
	if err != nil {
		return err
	}

	e.plugins.EmitCouponUsed(ctx, receipt)
	e.publish(ctx, Event{
		Kind: EventCouponUsed, UserID: receipt.UserID, Code: receipt.Code, At: e.now(),
	})
	return nil
}

// SweepExpiredCoupons transitions every lapsed active receipt to expired and
// returns the number transitioned. Idempotent: a second sweep with the same
// now is a no-op.
func (e *Engine) SweepExpiredCoupons(ctx context.Context, now time.Time) (int, error) {
	var expired []*coupon.Redemption
	err := e.atomically(ctx, func(ctx context.Context, tx store.Store) error {
		expired = expired[:0]
		lapsed, err := tx.ListLapsedRedemptions(ctx, now)
		if err != nil {
			return err
		}
		for _, r := range lapsed {
			if !r.Expire(now) {
				continue
			}
			if err := tx.UpdateRedemption(ctx, r); err != nil {
				return err
			}
			expired = append(expired, r)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if len(expired) > 0 {
		e.plugins.EmitCouponsExpired(ctx, len(expired))
		for _, r := range expired {
			e.publish(ctx, Event{Kind: EventCouponExpired, UserID: r.UserID, Code: r.Code, At: now})
		}
		e.logger.Info("expired redeemed coupons", "count", len(expired))
	}

	return len(expired), nil
}

// ──────────────────────────────────────────────────
// Catalog administration
// ──────────────────────────────────────────────────

// CreateCoupon adds a catalog entry.
func (e *Engine) CreateCoupon(ctx context.Context, c *coupon.Coupon) error {
	if c.PointsRequired < 1 {
		return ValidationError{Field: "points_required", Message: "must be positive"}
	}
	if c.ValidityDays < 1 {
		return ValidationError{Field: "validity_days", Message: "must be positive"}
	}
	if c.ID.IsNil() {
		c.ID = id.NewCouponID()
	}
	c.Entity = types.NewEntity()

	return e.store.CreateCoupon(ctx, c)
}

// GetCoupon retrieves a catalog entry by ID.
func (e *Engine) GetCoupon(ctx context.Context, couponID id.CouponID) (*coupon.Coupon, error) {
	return e.store.GetCoupon(ctx, couponID)
}

// ListActiveCoupons lists active catalog entries, optionally filtered by
// catalog category.
func (e *Engine) ListActiveCoupons(ctx context.Context, category string) ([]*coupon.Coupon, error) {
	return e.store.ListCoupons(ctx, coupon.ListOpts{ActiveOnly: true, Category: category})
}

// DeactivateCoupon removes a catalog entry from redemption without deleting
// it; existing receipts are unaffected.
func (e *Engine) DeactivateCoupon(ctx context.Context, couponID id.CouponID) error {
	return e.atomically(ctx, func(ctx context.Context, tx store.Store) error {
		c, err := tx.GetCoupon(ctx, couponID)
		if err != nil {
			return err
		}
		if !c.Active {
			return nil
		}
		c.Active = false
		c.Touch()
		return tx.UpdateCoupon(ctx, c)
	})
}

// GetRedemptions returns a user's redemption receipts.
func (e *Engine) GetRedemptions(ctx context.Context, userID string) ([]*coupon.Redemption, error) {
	return e.store.ListRedemptionsByUser(ctx, userID)
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// GetBalance returns a user's balances. Unknown users read as all-zero;
// their account is created lazily on first mutation.
func (e *Engine) GetBalance(ctx context.Context, userID string) (types.Balances, error) {
	a, err := e.store.GetAccount(ctx, userID)
	if errors.Is(err, ErrAccountNotFound) {
		return types.ZeroBalances(), nil
	}
	if err != nil {
		return types.Balances{}, err
	}
	return a.Balances, nil
}

// GetHistory returns a page of a user's ledger entries, newest first, with a
// continuation token for the next page.
func (e *Engine) GetHistory(ctx context.Context, userID string, pageSize int, token string) ([]*transaction.Transaction, string, error) {
	return e.store.ListTransactionsByUser(ctx, userID, transaction.ListOpts{
		Limit:     pageSize,
		PageToken: token,
	})
}

// ──────────────────────────────────────────────────
// Leaderboard
// ──────────────────────────────────────────────────

// LeaderboardScope selects which balance a ranking is computed over:
// a single color, or the aggregate across all colors.
type LeaderboardScope string

// ScopeAggregate ranks by total balance across all colors.
const ScopeAggregate LeaderboardScope = "aggregate"

// ColorScope returns the scope ranking by a single color.
func ColorScope(c types.Color) LeaderboardScope { return LeaderboardScope(c) }

// Standing is one leaderboard row.
type Standing struct {
	UserID string `json:"user_id"`
	Points int64  `json:"points"`
}

// GetLeaderboard returns the top n accounts for a scope, descending by
// points with ties broken by user ID ascending. Results are served from a
// short-TTL read-through cache; cached rankings are never authoritative
// balances.
func (e *Engine) GetLeaderboard(ctx context.Context, scope LeaderboardScope, n int) ([]Standing, error) {
	if n < 1 {
		return nil, ValidationError{Field: "n", Message: "must be positive"}
	}
	color, aggregate, err := parseScope(scope)
	if err != nil {
		return nil, err
	}

	e.lbMu.Lock()
	entry, ok := e.lbCache[scope]
	e.lbMu.Unlock()
	if ok && e.now().Before(entry.expiresAt) {
		return topN(entry.standings, n), nil
	}

	accounts, err := e.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	standings := make([]Standing, 0, len(accounts))
	for _, a := range accounts {
		points := a.Balances.Total()
		if !aggregate {
			points = a.Balances.Get(color)
		}
		standings = append(standings, Standing{UserID: a.UserID, Points: points})
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Points != standings[j].Points {
			return standings[i].Points > standings[j].Points
		}
		return standings[i].UserID < standings[j].UserID
	})

	e.lbMu.Lock()
	e.lbCache[scope] = lbEntry{standings: standings, expiresAt: e.now().Add(e.leaderboardTTL)}
	e.lbMu.Unlock()

	return topN(standings, n), nil
}

func parseScope(scope LeaderboardScope) (types.Color, bool, error) {
	if scope == ScopeAggregate {
		return "", true, nil
	}
	color := types.Color(scope)
	if !color.Valid() {
		return "", false, ValidationError{Field: "scope", Message: fmt.Sprintf("unknown scope %q", scope)}
	}
	return color, false, nil
}

func topN(standings []Standing, n int) []Standing {
	if n > len(standings) {
		n = len(standings)
	}
	out := make([]Standing, n)
	copy(out, standings[:n])
	return out
}

func (e *Engine) invalidateLeaderboard() {
	e.lbMu.Lock()
	e.lbCache = make(map[LeaderboardScope]lbEntry)
	e.lbMu.Unlock()
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// atomically runs fn in a store transaction, transparently retrying
// conflicts and duplicate coupon codes from the precondition checks, since
// a concurrent writer may have changed any value fn read.
func (e *Engine) atomically(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		err := e.store.Atomic(ctx, fn)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrTxConflict) || errors.Is(err, ErrDuplicateCode) {
			e.logger.Debug("retrying conflicting transaction",
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}
		return err
	}
	return ErrConcurrentModification
}

func getOrCreateAccount(ctx context.Context, tx store.Store, userID string) (*account.Account, error) {
	a, err := tx.GetAccount(ctx, userID)
	if errors.Is(err, ErrAccountNotFound) {
		return account.New(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// publish enqueues an outbound event without blocking. A full buffer drops
// the event: notifications are best-effort and never gate ledger commits.
func (e *Engine) publish(ctx context.Context, ev Event) {
	select {
	case e.outbox <- ev:
	default:
		e.logger.Warn("notification buffer full, dropping event",
			"kind", ev.Kind,
			"user", ev.UserID,
		)
		e.plugins.EmitNotificationDropped(ctx, ev)
	}
}

// outboxWorker delivers queued events to the notifier. Failures are logged
// and swallowed; a committed ledger operation is never reported failed
// because its notification could not be delivered.
func (e *Engine) outboxWorker(ctx context.Context) {
	defer e.wg.Done()

	for {
		select {
		case <-e.stopChan:
			// Drain what is already buffered, then exit.
			for {
				select {
				case ev := <-e.outbox:
					e.deliver(ctx, ev)
				default:
					return
				}
			}

		case ev := <-e.outbox:
			e.deliver(ctx, ev)
		}
	}
}

func (e *Engine) deliver(ctx context.Context, ev Event) {
	if e.notifier == nil {
		return
	}

	start := time.Now()
	if err := e.notifier.Publish(ctx, ev); err != nil {
		e.logger.Error("failed to publish notification",
			"kind", ev.Kind,
			"user", ev.UserID,
			"error", err,
		)
		return
	}

	e.logger.Debug("published notification",
		"kind", ev.Kind,
		"user", ev.UserID,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}
