// Package memory provides an in-process store backend. It is the reference
// implementation of the store contract and the backend used in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/srujanreddynadipi/rewards"
	"github.com/srujanreddynadipi/rewards/account"
	"github.com/srujanreddynadipi/rewards/coupon"
	"github.com/srujanreddynadipi/rewards/id"
	"github.com/srujanreddynadipi/rewards/ratelimit"
	"github.com/srujanreddynadipi/rewards/store"
	"github.com/srujanreddynadipi/rewards/transaction"
)

const defaultPageSize = 50

// state holds every table. Values are never mutated in place: reads hand out
// clones and writes store clones, so a shallow map copy is a safe snapshot.
type state struct {
	accounts    map[string]*account.Account        // by user ID
	ledger      []*transaction.Transaction         // append order
	windows     map[string]*ratelimit.Window       // by actor+action
	coupons     map[string]*coupon.Coupon          // by coupon ID
	redemptions map[string]*coupon.Redemption      // by redemption ID
	codes       map[string]struct{}                // unique code index
}

func newState() *state {
	return &state{
		accounts:    make(map[string]*account.Account),
		ledger:      make([]*transaction.Transaction, 0),
		windows:     make(map[string]*ratelimit.Window),
		coupons:     make(map[string]*coupon.Coupon),
		redemptions: make(map[string]*coupon.Redemption),
		codes:       make(map[string]struct{}),
	}
}

func (st *state) snapshot() *state {
	cp := &state{
		accounts:    make(map[string]*account.Account, len(st.accounts)),
		ledger:      make([]*transaction.Transaction, len(st.ledger)),
		windows:     make(map[string]*ratelimit.Window, len(st.windows)),
		coupons:     make(map[string]*coupon.Coupon, len(st.coupons)),
		redemptions: make(map[string]*coupon.Redemption, len(st.redemptions)),
		codes:       make(map[string]struct{}, len(st.codes)),
	}
	for k, v := range st.accounts {
		cp.accounts[k] = v
	}
	copy(cp.ledger, st.ledger)
	for k, v := range st.windows {
		cp.windows[k] = v
	}
	for k, v := range st.coupons {
		cp.coupons[k] = v
	}
	for k, v := range st.redemptions {
		cp.redemptions[k] = v
	}
	for k := range st.codes {
		cp.codes[k] = struct{}{}
	}
	return cp
}

// Store is the in-process backend.
type Store struct {
	mu sync.RWMutex
	st *state
}

func New() *Store {
	return &Store{st: newState()}
}

// Account methods

func (s *Store) GetAccount(_ context.Context, userID string) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.getAccount(userID)
}

func (s *Store) PutAccount(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.putAccount(a)
}

func (s *Store) ListAccounts(_ context.Context) ([]*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.listAccounts()
}

// Transaction methods

func (s *Store) AppendTransaction(_ context.Context, t *transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.appendTransaction(t)
}

func (s *Store) ListTransactionsByUser(_ context.Context, userID string, opts transaction.ListOpts) ([]*transaction.Transaction, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.listTransactionsByUser(userID, opts)
}

// Rate-limit window methods

func (s *Store) GetRateWindow(_ context.Context, actorID, action string) (*ratelimit.Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.getRateWindow(actorID, action)
}

func (s *Store) PutRateWindow(_ context.Context, w *ratelimit.Window) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.putRateWindow(w)
}

// Coupon catalog methods

func (s *Store) CreateCoupon(_ context.Context, c *coupon.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.createCoupon(c)
}

func (s *Store) GetCoupon(_ context.Context, couponID id.CouponID) (*coupon.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.getCoupon(couponID)
}

func (s *Store) ListCoupons(_ context.Context, opts coupon.ListOpts) ([]*coupon.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.listCoupons(opts)
}

func (s *Store) UpdateCoupon(_ context.Context, c *coupon.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.updateCoupon(c)
}

// Redemption methods

func (s *Store) CreateRedemption(_ context.Context, r *coupon.Redemption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.createRedemption(r)
}

func (s *Store) GetRedemption(_ context.Context, redemptionID id.RedemptionID) (*coupon.Redemption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.getRedemption(redemptionID)
}

func (s *Store) ListRedemptionsByUser(_ context.Context, userID string) ([]*coupon.Redemption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.listRedemptionsByUser(userID)
}

func (s *Store) UpdateRedemption(_ context.Context, r *coupon.Redemption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.updateRedemption(r)
}

func (s *Store) ListLapsedRedemptions(_ context.Context, now time.Time) ([]*coupon.Redemption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.listLapsedRedemptions(now)
}

// Atomic runs fn against a snapshot of the full state under the write lock
// and swaps the snapshot in only when fn succeeds. Holding the lock for the
// duration serializes transactions, so fn never observes a conflict and
// runs at most once per call.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.st.snapshot()
	if err := fn(ctx, &txView{st: snap}); err != nil {
		return err
	}
	s.st = snap
	return nil
}

// Store management

func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}

// txView exposes a snapshot as a store.Store for use inside Atomic. The
// outer write lock is already held, so no locking happens here.
type txView struct {
	st *state
}

func (t *txView) GetAccount(_ context.Context, userID string) (*account.Account, error) {
	return t.st.getAccount(userID)
}

func (t *txView) PutAccount(_ context.Context, a *account.Account) error {
	return t.st.putAccount(a)
}

func (t *txView) ListAccounts(_ context.Context) ([]*account.Account, error) {
	return t.st.listAccounts()
}

func (t *txView) AppendTransaction(_ context.Context, tr *transaction.Transaction) error {
	return t.st.appendTransaction(tr)
}

func (t *txView) ListTransactionsByUser(_ context.Context, userID string, opts transaction.ListOpts) ([]*transaction.Transaction, string, error) {
	return t.st.listTransactionsByUser(userID, opts)
}

func (t *txView) GetRateWindow(_ context.Context, actorID, action string) (*ratelimit.Window, error) {
	return t.st.getRateWindow(actorID, action)
}

func (t *txView) PutRateWindow(_ context.Context, w *ratelimit.Window) error {
	return t.st.putRateWindow(w)
}

func (t *txView) CreateCoupon(_ context.Context, c *coupon.Coupon) error {
	return t.st.createCoupon(c)
}

func (t *txView) GetCoupon(_ context.Context, couponID id.CouponID) (*coupon.Coupon, error) {
	return t.st.getCoupon(couponID)
}

func (t *txView) ListCoupons(_ context.Context, opts coupon.ListOpts) ([]*coupon.Coupon, error) {
	return t.st.listCoupons(opts)
}

func (t *txView) UpdateCoupon(_ context.Context, c *coupon.Coupon) error {
	return t.st.updateCoupon(c)
}

func (t *txView) CreateRedemption(_ context.Context, r *coupon.Redemption) error {
	return t.st.createRedemption(r)
}

func (t *txView) GetRedemption(_ context.Context, redemptionID id.RedemptionID) (*coupon.Redemption, error) {
	return t.st.getRedemption(redemptionID)
}

func (t *txView) ListRedemptionsByUser(_ context.Context, userID string) ([]*coupon.Redemption, error) {
	return t.st.listRedemptionsByUser(userID)
}

func (t *txView) UpdateRedemption(_ context.Context, r *coupon.Redemption) error {
	return t.st.updateRedemption(r)
}

func (t *txView) ListLapsedRedemptions(_ context.Context, now time.Time) ([]*coupon.Redemption, error) {
	return t.st.listLapsedRedemptions(now)
}

// Atomic on a txView nests: the enclosing transaction already provides
// atomicity, so fn runs directly against the same snapshot.
func (t *txView) Atomic(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	return fn(ctx, t)
}

func (t *txView) Migrate(_ context.Context) error { return nil }
func (t *txView) Ping(_ context.Context) error    { return nil }
func (t *txView) Close() error                    { return nil }

// Data operations. Callers hold the appropriate lock.

func (st *state) getAccount(userID string) (*account.Account, error) {
	if a, ok := st.accounts[userID]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, rewards.ErrAccountNotFound
}

func (st *state) putAccount(a *account.Account) error {
	cp := *a
	st.accounts[a.UserID] = &cp
	return nil
}

func (st *state) listAccounts() ([]*account.Account, error) {
	result := make([]*account.Account, 0, len(st.accounts))
	for _, a := range st.accounts {
		cp := *a
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

func (st *state) appendTransaction(t *transaction.Transaction) error {
	cp := *t
	st.ledger = append(st.ledger, &cp)
	return nil
}

func (st *state) listTransactionsByUser(userID string, opts transaction.ListOpts) ([]*transaction.Transaction, string, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	// Walk the ledger newest first, skipping entries at or before the
	// continuation token.
	skipping := opts.PageToken != ""
	result := make([]*transaction.Transaction, 0, limit)
	next := ""

	for i := len(st.ledger) - 1; i >= 0; i-- {
		t := st.ledger[i]
		if skipping {
			if t.ID.String() == opts.PageToken {
				skipping = false
			}
			continue
		}
		if t.FromUserID != userID && t.ToUserID != userID {
			continue
		}
		if opts.Color != "" && t.Color != opts.Color {
			continue
		}
		if opts.Category != "" && t.Category != opts.Category {
			continue
		}
		if len(result) == limit {
			next = result[limit-1].ID.String()
			break
		}
		cp := *t
		result = append(result, &cp)
	}

	return result, next, nil
}

func windowKey(actorID, action string) string {
	return actorID + "\x00" + action
}

func (st *state) getRateWindow(actorID, action string) (*ratelimit.Window, error) {
	if w, ok := st.windows[windowKey(actorID, action)]; ok {
		cp := *w
		return &cp, nil
	}
	return nil, nil
}

func (st *state) putRateWindow(w *ratelimit.Window) error {
	cp := *w
	st.windows[windowKey(w.ActorID, w.Action)] = &cp
	return nil
}

func (st *state) createCoupon(c *coupon.Coupon) error {
	cp := *c
	st.coupons[c.ID.String()] = &cp
	return nil
}

func (st *state) getCoupon(couponID id.CouponID) (*coupon.Coupon, error) {
	if c, ok := st.coupons[couponID.String()]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, rewards.ErrCouponNotFound
}

func (st *state) listCoupons(opts coupon.ListOpts) ([]*coupon.Coupon, error) {
	result := make([]*coupon.Coupon, 0)
	for _, c := range st.coupons {
		if opts.ActiveOnly && !c.Active {
			continue
		}
		if opts.Category != "" && c.Category != opts.Category {
			continue
		}
		cp := *c
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Title < result[j].Title })

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}
	return result[start:end], nil
}

func (st *state) updateCoupon(c *coupon.Coupon) error {
	if _, ok := st.coupons[c.ID.String()]; !ok {
		return rewards.ErrCouponNotFound
	}
	cp := *c
	st.coupons[c.ID.String()] = &cp
	return nil
}

func (st *state) createRedemption(r *coupon.Redemption) error {
	if _, taken := st.codes[r.Code]; taken {
		return rewards.ErrDuplicateCode
	}
	cp := *r
	st.redemptions[r.ID.String()] = &cp
	st.codes[r.Code] = struct{}{}
	return nil
}

func (st *state) getRedemption(redemptionID id.RedemptionID) (*coupon.Redemption, error) {
	if r, ok := st.redemptions[redemptionID.String()]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, rewards.ErrRedemptionNotFound
}

func (st *state) listRedemptionsByUser(userID string) ([]*coupon.Redemption, error) {
	result := make([]*coupon.Redemption, 0)
	for _, r := range st.redemptions {
		if r.UserID == userID {
			cp := *r
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RedeemedAt.After(result[j].RedeemedAt) })
	return result, nil
}

func (st *state) updateRedemption(r *coupon.Redemption) error {
	if _, ok := st.redemptions[r.ID.String()]; !ok {
		return rewards.ErrRedemptionNotFound
	}
	cp := *r
	st.redemptions[r.ID.String()] = &cp
	return nil
}

func (st *state) listLapsedRedemptions(now time.Time) ([]*coupon.Redemption, error) {
	result := make([]*coupon.Redemption, 0)
	for _, r := range st.redemptions {
		if r.Status == coupon.StatusActive && now.After(r.ExpiresAt) {
			cp := *r
			result = append(result, &cp)
		}
	}
	return result, nil
}

// Compile-time interface check
var _ store.Store = (*Store)(nil)
var _ store.Store = (*txView)(nil)
