package rewards_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/srujanreddynadipi/rewards"
	"github.com/srujanreddynadipi/rewards/coupon"
	"github.com/srujanreddynadipi/rewards/id"
	"github.com/srujanreddynadipi/rewards/store/memory"
	"github.com/srujanreddynadipi/rewards/types"
)

// fakeClock is a mutable time source for driving quota windows and expiry.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// capsFunc adapts a function to the Capabilities interface.
type capsFunc func(actorID, capability string) bool

func (f capsFunc) HasCapability(_ context.Context, actorID, capability string) (bool, error) {
	return f(actorID, capability), nil
}

var allowAll = capsFunc(func(_, _ string) bool { return true })

func newTestEngine(t *testing.T, opts ...rewards.Option) (*rewards.Engine, *fakeClock) {
	t.Helper()

	clock := newFakeClock()
	base := []rewards.Option{
		rewards.WithCapabilities(allowAll),
		rewards.WithClock(clock.Now),
	}
	e := rewards.New(memory.New(), append(base, opts...)...)

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		if err := e.Stop(); err != nil {
			t.Errorf("Stop: %v", err)
		}
	})
	return e, clock
}

func mustAward(t *testing.T, e *rewards.Engine, actor, from, to string, color types.Color, amount int64, reason string, category types.Category) {
	t.Helper()
	if _, err := e.Award(context.Background(), actor, from, to, color, amount, reason, category); err != nil {
		t.Fatalf("Award(%s -> %s, %d %s): %v", from, to, amount, color, err)
	}
}

func newTestCoupon(points int64, validityDays int) *coupon.Coupon {
	return &coupon.Coupon{
		Brand:          "Starbright Cafe",
		Title:          "Free Hot Chocolate",
		PointsRequired: points,
		ValidityDays:   validityDays,
		Category:       "food",
		Active:         true,
	}
}

// ──────────────────────────────────────────────────
// Award
// ──────────────────────────────────────────────────

func TestAward(t *testing.T) {
	ctx := context.Background()

	t.Run("mint transfer credits recipient", func(t *testing.T) {
		e, _ := newTestEngine(t)

		txID, err := e.Award(ctx, "teacher-1", rewards.SystemMint, "student-1",
			rewards.ColorBlue, 10, "perfect attendance", rewards.CategoryAttendance)
		if err != nil {
			t.Fatal(err)
		}
		if txID.IsNil() {
			t.Fatal("expected a transaction id")
		}

		b, err := e.GetBalance(ctx, "student-1")
		if err != nil {
			t.Fatal(err)
		}
		if b.Blue != 10 || b.Total() != 10 {
			t.Fatalf("balance = %v, want blue:10", b)
		}

		page, token, err := e.GetHistory(ctx, "student-1", 10, "")
		if err != nil {
			t.Fatal(err)
		}
		if len(page) != 1 || page[0].Amount != 10 {
			t.Fatalf("history = %v, want one entry of 10", page)
		}
		if token != "" {
			t.Fatalf("token = %q, want exhausted", token)
		}
	})

	t.Run("peer transfer conserves total", func(t *testing.T) {
		e, _ := newTestEngine(t)

		mustAward(t, e, "teacher-1", rewards.SystemMint, "alice", rewards.ColorGreen, 40, "quiz winner", rewards.CategoryAcademic)
		mustAward(t, e, "alice", "alice", "bob", rewards.ColorGreen, 15, "thanks for the notes", rewards.CategoryPeer)

		alice, _ := e.GetBalance(ctx, "alice")
		bob, _ := e.GetBalance(ctx, "bob")
		if alice.Green != 25 {
			t.Errorf("alice green = %d, want 25", alice.Green)
		}
		if bob.Green != 15 {
			t.Errorf("bob green = %d, want 15", bob.Green)
		}
		if total := alice.Total() + bob.Total(); total != 40 {
			t.Errorf("system total = %d, want 40", total)
		}
	})

	t.Run("insufficient funds rejects without partial effects", func(t *testing.T) {
		e, _ := newTestEngine(t)

		mustAward(t, e, "teacher-1", rewards.SystemMint, "alice", rewards.ColorRed, 5, "helping hand", rewards.CategoryBehavior)

		_, err := e.Award(ctx, "alice", "alice", "bob", rewards.ColorRed, 6, "too generous", rewards.CategoryPeer)
		if !rewards.IsInsufficientFunds(err) {
			t.Fatalf("err = %v, want insufficient funds", err)
		}

		alice, _ := e.GetBalance(ctx, "alice")
		bob, _ := e.GetBalance(ctx, "bob")
		if alice.Red != 5 || bob.Red != 0 {
			t.Errorf("balances alice:%d bob:%d, want 5 and 0", alice.Red, bob.Red)
		}
	})

	t.Run("wrong color balance does not cover transfer", func(t *testing.T) {
		e, _ := newTestEngine(t)

		mustAward(t, e, "teacher-1", rewards.SystemMint, "alice", rewards.ColorRed, 50, "science fair", rewards.CategoryEvent)

		_, err := e.Award(ctx, "alice", "alice", "bob", rewards.ColorBlue, 1, "wrong pocket", rewards.CategoryPeer)
		if !rewards.IsInsufficientFunds(err) {
			t.Fatalf("err = %v, want insufficient funds", err)
		}
	})

	t.Run("permission denied without capability", func(t *testing.T) {
		deny := capsFunc(func(_, _ string) bool { return false })
		e, _ := newTestEngine(t, rewards.WithCapabilities(deny))

		_, err := e.Award(ctx, "intruder", rewards.SystemMint, "student-1",
			rewards.ColorBlue, 10, "should not work", rewards.CategoryAttendance)
		if !errors.Is(err, rewards.ErrPermissionDenied) {
			t.Fatalf("err = %v, want ErrPermissionDenied", err)
		}
	})

	t.Run("self transfer bypasses capability check", func(t *testing.T) {
		deny := capsFunc(func(_, _ string) bool { return false })
		e, _ := newTestEngine(t, rewards.WithCapabilities(deny))

		// With a deny-all checker the transfer still reaches the balance
		// check, which is the proof the capability gate was skipped.
		_, err := e.Award(ctx, "alice", "alice", "bob", rewards.ColorGreen, 5, "my points, my rules", rewards.CategoryPeer)
		if !rewards.IsInsufficientFunds(err) {
			t.Fatalf("err = %v, want insufficient funds, not a permission error", err)
		}
	})

	t.Run("validation failures", func(t *testing.T) {
		e, _ := newTestEngine(t)
		mustAward(t, e, "teacher-1", rewards.SystemMint, "alice", rewards.ColorBlue, 100, "setup balance", rewards.CategoryAcademic)

		tests := []struct {
			name     string
			from, to string
			color    types.Color
			amount   int64
			reason   string
			category types.Category
		}{
			{"zero amount", "alice", "bob", rewards.ColorBlue, 0, "valid reason", rewards.CategoryPeer},
			{"negative amount", "alice", "bob", rewards.ColorBlue, -5, "valid reason", rewards.CategoryPeer},
			{"amount over cap", "alice", "bob", rewards.ColorBlue, 101, "valid reason", rewards.CategoryPeer},
			{"reason too short", "alice", "bob", rewards.ColorBlue, 1, "no", rewards.CategoryPeer},
			{"unknown color", "alice", "bob", types.Color("purple"), 1, "valid reason", rewards.CategoryPeer},
			{"unknown category", "alice", "bob", rewards.ColorBlue, 1, "valid reason", types.Category("bribery")},
			{"redemption category reserved", "alice", "bob", rewards.ColorBlue, 1, "valid reason", types.CategoryRedemption},
			{"empty recipient", "alice", "", rewards.ColorBlue, 1, "valid reason", rewards.CategoryPeer},
			{"recipient is system actor", "alice", rewards.SystemMint, rewards.ColorBlue, 1, "valid reason", rewards.CategoryPeer},
			{"self award", "alice", "alice", rewards.ColorBlue, 1, "valid reason", rewards.CategoryPeer},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := e.Award(ctx, tt.from, tt.from, tt.to, tt.color, tt.amount, tt.reason, tt.category)
				if !errors.Is(err, rewards.ErrInvalidInput) {
					t.Errorf("err = %v, want ErrInvalidInput", err)
				}
			})
		}
	})
}

func TestAwardQuotas(t *testing.T) {
	ctx := context.Background()

	t.Run("daily cap blocks then window reset unblocks", func(t *testing.T) {
		limits := rewards.DefaultLimits()
		limits.DailyAwardCap = 100
		e, clock := newTestEngine(t, rewards.WithLimits(limits))

		mustAward(t, e, "teacher-1", rewards.SystemMint, "alice", rewards.ColorBlue, 60, "morning batch", rewards.CategoryAcademic)

		_, err := e.Award(ctx, "teacher-1", rewards.SystemMint, "alice",
			rewards.ColorBlue, 50, "afternoon batch", rewards.CategoryAcademic)
		if !rewards.IsRateLimited(err) {
			t.Fatalf("err = %v, want rate limited", err)
		}
		var rle rewards.RateLimitedError
		if errors.As(err, &rle) {
			if rle.ResetAt.IsZero() {
				t.Error("ResetAt should be populated")
			}
			if rle.Used != 60 || rle.Limit != 100 {
				t.Errorf("used/limit = %d/%d, want 60/100", rle.Used, rle.Limit)
			}
		}

		// The denied attempt must not consume quota.
		mustAward(t, e, "teacher-1", rewards.SystemMint, "alice", rewards.ColorBlue, 40, "fits remaining quota", rewards.CategoryAcademic)

		clock.Advance(24*time.Hour + time.Minute)
		mustAward(t, e, "teacher-1", rewards.SystemMint, "alice", rewards.ColorBlue, 50, "new day batch", rewards.CategoryAcademic)
	})

	t.Run("per category cap is stricter than global", func(t *testing.T) {
		e, _ := newTestEngine(t)

		mustAward(t, e, "teacher-1", rewards.SystemMint, "alice", rewards.ColorGreen, 100, "seed for peer gifts", rewards.CategoryAcademic)
		mustAward(t, e, "alice", "alice", "bob", rewards.ColorGreen, 50, "splitting the prize", rewards.CategoryPeer)

		_, err := e.Award(ctx, "alice", "alice", "carol", rewards.ColorGreen, 1, "one more gift", rewards.CategoryPeer)
		if !rewards.IsRateLimited(err) {
			t.Fatalf("err = %v, want rate limited on peer category", err)
		}
	})

	t.Run("exactly the cap fits in one window", func(t *testing.T) {
		e, _ := newTestEngine(t)
		mustAward(t, e, "teacher-1", rewards.SystemMint, "alice", rewards.ColorRed, 100, "full single award", rewards.CategoryEvent)
		mustAward(t, e, "teacher-1", rewards.SystemMint, "alice", rewards.ColorRed, 100, "second full award", rewards.CategoryEvent)
		mustAward(t, e, "teacher-1", rewards.SystemMint, "alice", rewards.ColorRed, 100, "third full award", rewards.CategoryEvent)
		mustAward(t, e, "teacher-1", rewards.SystemMint, "alice", rewards.ColorRed, 100, "fourth full award", rewards.CategoryEvent)
		mustAward(t, e, "teacher-1", rewards.SystemMint, "alice", rewards.ColorRed, 100, "fifth full award", rewards.CategoryEvent)

		_, err := e.Award(ctx, "teacher-1", rewards.SystemMint, "alice",
			rewards.ColorRed, 1, "over the day cap", rewards.CategoryEvent)
		if !rewards.IsRateLimited(err) {
			t.Fatalf("err = %v, want rate limited at 500", err)
		}
	})
}

func TestConcurrentAwards(t *testing.T) {
	ctx := context.Background()

	t.Run("quota admits exactly the budgeted amount", func(t *testing.T) {
		limits := rewards.DefaultLimits()
		limits.DailyAwardCap = 100
		e, _ := newTestEngine(t, rewards.WithLimits(limits))

		const attempts = 15 // 15 x 10 points against a 100 budget

		var wg sync.WaitGroup
		results := make(chan error, attempts)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := e.Award(ctx, "teacher-1", rewards.SystemMint, "alice",
					rewards.ColorBlue, 10, "concurrent batch", rewards.CategoryAcademic)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var ok, limited int
		for err := range results {
			switch {
			case err == nil:
				ok++
			case rewards.IsRateLimited(err):
				limited++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if ok != 10 || limited != 5 {
			t.Fatalf("ok=%d limited=%d, want 10 and 5", ok, limited)
		}

		b, _ := e.GetBalance(ctx, "alice")
		if b.Blue != 100 {
			t.Fatalf("balance = %d, want exactly 100", b.Blue)
		}
	})

	t.Run("ledger matches balances after concurrent transfers", func(t *testing.T) {
		e, _ := newTestEngine(t)

		users := []string{"u1", "u2", "u3", "u4", "u5"}
		var wg sync.WaitGroup
		for _, u := range users {
			wg.Add(1)
			go func(user string) {
				defer wg.Done()
				mustAward(t, e, "teacher-1", rewards.SystemMint, user, rewards.ColorGreen, 20, "concurrent seeding", rewards.CategoryAcademic)
			}(u)
		}
		wg.Wait()

		var total int64
		for _, u := range users {
			b, err := e.GetBalance(ctx, u)
			if err != nil {
				t.Fatal(err)
			}
			total += b.Total()
		}
		if total != 100 {
			t.Fatalf("system total = %d, want 100", total)
		}
	})
}

// ──────────────────────────────────────────────────
// Redemption
// ──────────────────────────────────────────────────

func TestRedeem(t *testing.T) {
	ctx := context.Background()

	t.Run("full redemption lifecycle", func(t *testing.T) {
		e, _ := newTestEngine(t)

		c := newTestCoupon(50, 30)
		if err := e.CreateCoupon(ctx, c); err != nil {
			t.Fatal(err)
		}
		mustAward(t, e, "teacher-1", rewards.SystemMint, "alice", rewards.ColorBlue, 80, "semester reward", rewards.CategoryAcademic)

		receipt, err := e.Redeem(ctx, "alice", c.ID, rewards.ColorBlue)
		if err != nil {
			t.Fatal(err)
		}
		if receipt.Status != coupon.StatusActive {
			t.Errorf("status = %s, want active", receipt.Status)
		}
		if receipt.PointsSpent != 50 {
			t.Errorf("points spent = %d, want 50", receipt.PointsSpent)
		}
		if receipt.Code == "" {
			t.Error("expected a generated code")
		}

		b, _ := e.GetBalance(ctx, "alice")
		if b.Blue != 30 {
			t.Errorf("remaining balance = %d, want 30", b.Blue)
		}

		got, err := e.GetCoupon(ctx, c.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.TimesRedeemed != 1 {
			t.Errorf("times redeemed = %d, want 1", got.TimesRedeemed)
		}

		// The debit shows up in history as a transfer to the catalog actor.
		page, _, err := e.GetHistory(ctx, "alice", 10, "")
		if err != nil {
			t.Fatal(err)
		}
		if len(page) != 2 {
			t.Fatalf("history entries = %d, want 2", len(page))
		}
		if page[0].ToUserID != rewards.SystemCatalog || page[0].Category != types.CategoryRedemption {
			t.Errorf("newest entry = %s/%s, want catalog redemption", page[0].ToUserID, page[0].Category)
		}

		receipts, err := e.GetRedemptions(ctx, "alice")
		if err != nil {
			t.Fatal(err)
		}
		if len(receipts) != 1 || receipts[0].Code != receipt.Code {
			t.Fatalf("receipts = %v, want the minted receipt", receipts)
		}
	})

	t.Run("insufficient balance", func(t *testing.T) {
		e, _ := newTestEngine(t)

		c := newTestCoupon(50, 30)
		if err := e.CreateCoupon(ctx, c); err != nil {
			t.Fatal(err)
		}
		mustAward(t, e, "teacher-1", rewards.SystemMint, "alice", rewards.ColorBlue, 49, "almost enough", rewards.CategoryAcademic)

		_, err := e.Redeem(ctx, "alice", c.ID, rewards.ColorBlue)
		if !rewards.IsInsufficientFunds(err) {
			t.Fatalf("err = %v, want insufficient funds", err)
		}

		b, _ := e.GetBalance(ctx, "alice")
		if b.Blue != 49 {
			t.Errorf("balance = %d, want untouched 49", b.Blue)
		}
		got, _ := e.GetCoupon(ctx, c.ID)
		if got.TimesRedeemed != 0 {
			t.Errorf("times redeemed = %d, want 0", got.TimesRedeemed)
		}
	})

	t.Run("inactive coupon", func(t *testing.T) {
		e, _ := newTestEngine(t)

		c := newTestCoupon(10, 30)
		if err := e.CreateCoupon(ctx, c); err != nil {
			t.Fatal(err)
		}
		if err := e.DeactivateCoupon(ctx, c.ID); err != nil {
			t.Fatal(err)
		}
		mustAward(t, e, "teacher-1", rewards.SystemMint, "alice", rewards.ColorBlue, 100, "plenty of points", rewards.CategoryAcademic)

		_, err := e.Redeem(ctx, "alice", c.ID, rewards.ColorBlue)
		if !errors.Is(err, rewards.ErrCouponInactive) {
			t.Fatalf("err = %v, want ErrCouponInactive", err)
		}
	})

	t.Run("unknown coupon", func(t *testing.T) {
		e, _ := newTestEngine(t)
		mustAward(t, e, "teacher-1", rewards.SystemMint, "alice", rewards.ColorBlue, 100, "plenty of points", rewards.CategoryAcademic)

		_, err := e.Redeem(ctx, "alice", id.NewCouponID(), rewards.ColorBlue)
		if !errors.Is(err, rewards.ErrCouponNotFound) {
			t.Fatalf("err = %v, want ErrCouponNotFound", err)
		}
	})

	t.Run("concurrent redemptions spend the balance once", func(t *testing.T) {
		e, _ := newTestEngine(t)

		c := newTestCoupon(50, 30)
		if err := e.CreateCoupon(ctx, c); err != nil {
			t.Fatal(err)
		}
		mustAward(t, e, "teacher-1", rewards.SystemMint, "alice", rewards.ColorBlue, 50, "exactly one coupon worth", rewards.CategoryAcademic)

		var wg sync.WaitGroup
		results := make(chan error, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := e.Redeem(ctx, "alice", c.ID, rewards.ColorBlue)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var ok, insufficient int
		for err := range results {
			switch {
			case err == nil:
				ok++
			case rewards.IsInsufficientFunds(err):
				insufficient++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if ok != 1 || insufficient != 1 {
			t.Fatalf("ok=%d insufficient=%d, want exactly one of each", ok, insufficient)
		}

		b, _ := e.GetBalance(ctx, "alice")
		if b.Blue != 0 {
			t.Fatalf("balance = %d, want 0", b.Blue)
		}
	})
}

func TestMarkCouponUsed(t *testing.T) {
	ctx := context.Background()

	e, _ := newTestEngine(t)
	c := newTestCoupon(10, 30)
	if err := e.CreateCoupon(ctx, c); err != nil {
		t.Fatal(err)
	}
	mustAward(t, e, "teacher-1", rewards.SystemMint, "alice", rewards.ColorBlue, 20, "coupon budget", rewards.CategoryAcademic)

	receipt, err := e.Redeem(ctx, "alice", c.ID, rewards.ColorBlue)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("non-owner is rejected", func(t *testing.T) {
		err := e.MarkCouponUsed(ctx, receipt.ID, "mallory")
		if !errors.Is(err, rewards.ErrNotCouponOwner) {
			t.Fatalf("err = %v, want ErrNotCouponOwner", err)
		}
	})

	t.Run("owner uses once", func(t *testing.T) {
		if err := e.MarkCouponUsed(ctx, receipt.ID, "alice"); err != nil {
			t.Fatal(err)
		}
		receipts, _ := e.GetRedemptions(ctx, "alice")
		if receipts[0].Status != coupon.StatusUsed {
			t.Errorf("status = %s, want used", receipts[0].Status)
		}
	})

	t.Run("second use is rejected", func(t *testing.T) {
		err := e.MarkCouponUsed(ctx, receipt.ID, "alice")
		if !errors.Is(err, rewards.ErrCouponNotActive) {
			t.Fatalf("err = %v, want ErrCouponNotActive", err)
		}
	})
}

func TestSweepExpiredCoupons(t *testing.T) {
	ctx := context.Background()
	e, clock := newTestEngine(t)

	short := newTestCoupon(10, 7)
	long := newTestCoupon(10, 60)
	if err := e.CreateCoupon(ctx, short); err != nil {
		t.Fatal(err)
	}
	if err := e.CreateCoupon(ctx, long); err != nil {
		t.Fatal(err)
	}
	mustAward(t, e, "teacher-1", rewards.SystemMint, "alice", rewards.ColorBlue, 40, "coupon budget", rewards.CategoryAcademic)

	shortReceipt, err := e.Redeem(ctx, "alice", short.ID, rewards.ColorBlue)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Redeem(ctx, "alice", long.ID, rewards.ColorBlue); err != nil {
		t.Fatal(err)
	}
	usedReceipt, err := e.Redeem(ctx, "alice", short.ID, rewards.ColorBlue)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.MarkCouponUsed(ctx, usedReceipt.ID, "alice"); err != nil {
		t.Fatal(err)
	}

	clock.Advance(8 * 24 * time.Hour)

	count, err := e.SweepExpiredCoupons(ctx, clock.Now())
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expired = %d, want 1 (used and unexpired receipts untouched)", count)
	}

	// Idempotent: nothing left to expire at the same instant.
	count, err = e.SweepExpiredCoupons(ctx, clock.Now())
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("second sweep expired = %d, want 0", count)
	}

	receipts, _ := e.GetRedemptions(ctx, "alice")
	statuses := make(map[string]coupon.Status)
	for _, r := range receipts {
		statuses[r.Code] = r.Status
	}
	if statuses[shortReceipt.Code] != coupon.StatusExpired {
		t.Errorf("short receipt status = %s, want expired", statuses[shortReceipt.Code])
	}
	if statuses[usedReceipt.Code] != coupon.StatusUsed {
		t.Errorf("used receipt status = %s, want used", statuses[usedReceipt.Code])
	}
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

func TestGetBalance(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	b, err := e.GetBalance(ctx, "nobody-yet")
	if err != nil {
		t.Fatal(err)
	}
	if !b.IsZero() {
		t.Fatalf("balance = %v, want all-zero", b)
	}

	// Reading must not create the account.
	standings, err := e.GetLeaderboard(ctx, rewards.ScopeAggregate, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(standings) != 0 {
		t.Fatalf("standings = %v, want empty", standings)
	}
}

func TestGetHistory(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	for i := 0; i < 5; i++ {
		mustAward(t, e, "teacher-1", rewards.SystemMint, "alice", rewards.ColorBlue, 10, "history entry", rewards.CategoryAcademic)
	}

	page1, token, err := e.GetHistory(ctx, "alice", 3, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(page1) != 3 {
		t.Fatalf("page1 len = %d, want 3", len(page1))
	}
	if token == "" {
		t.Fatal("expected a continuation token")
	}

	page2, token2, err := e.GetHistory(ctx, "alice", 3, token)
	if err != nil {
		t.Fatal(err)
	}
	if len(page2) != 2 {
		t.Fatalf("page2 len = %d, want 2", len(page2))
	}
	if token2 != "" {
		t.Fatalf("token2 = %q, want exhausted", token2)
	}

	// No overlap between pages.
	seen := make(map[string]bool)
	for _, tx := range append(page1, page2...) {
		if seen[tx.ID.String()] {
			t.Fatalf("duplicate entry %s across pages", tx.ID)
		}
		seen[tx.ID.String()] = true
	}

	t.Run("newest entry first", func(t *testing.T) {
		mustAward(t, e, "teacher-1", rewards.SystemMint, "alice", rewards.ColorRed, 5, "latest entry", rewards.CategoryBehavior)

		page, _, err := e.GetHistory(ctx, "alice", 10, "")
		if err != nil {
			t.Fatal(err)
		}
		if len(page) != 6 {
			t.Fatalf("history len = %d, want 6", len(page))
		}
		if page[0].Category != rewards.CategoryBehavior {
			t.Errorf("newest category = %s, want behavior", page[0].Category)
		}
	})
}

func TestGetLeaderboard(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, rewards.WithLeaderboardCacheTTL(time.Minute))

	mustAward(t, e, "teacher-1", rewards.SystemMint, "alice", rewards.ColorBlue, 30, "ranking seed", rewards.CategoryAcademic)
	mustAward(t, e, "teacher-1", rewards.SystemMint, "bob", rewards.ColorRed, 50, "ranking seed", rewards.CategoryAcademic)
	mustAward(t, e, "teacher-1", rewards.SystemMint, "carol", rewards.ColorBlue, 30, "ranking seed", rewards.CategoryAcademic)

	t.Run("aggregate scope with tie break", func(t *testing.T) {
		standings, err := e.GetLeaderboard(ctx, rewards.ScopeAggregate, 10)
		if err != nil {
			t.Fatal(err)
		}
		want := []rewards.Standing{
			{UserID: "bob", Points: 50},
			{UserID: "alice", Points: 30},
			{UserID: "carol", Points: 30},
		}
		if len(standings) != len(want) {
			t.Fatalf("standings len = %d, want %d", len(standings), len(want))
		}
		for i := range want {
			if standings[i] != want[i] {
				t.Errorf("standings[%d] = %v, want %v", i, standings[i], want[i])
			}
		}
	})

	t.Run("color scope", func(t *testing.T) {
		standings, err := e.GetLeaderboard(ctx, rewards.ColorScope(rewards.ColorBlue), 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(standings) != 2 {
			t.Fatalf("standings len = %d, want 2", len(standings))
		}
		if standings[0].UserID != "alice" || standings[1].UserID != "carol" {
			t.Errorf("blue top = %v, want alice then carol", standings)
		}
	})

	t.Run("cache invalidated by awards", func(t *testing.T) {
		if _, err := e.GetLeaderboard(ctx, rewards.ScopeAggregate, 10); err != nil {
			t.Fatal(err)
		}
		mustAward(t, e, "teacher-1", rewards.SystemMint, "carol", rewards.ColorBlue, 40, "late surge", rewards.CategoryEvent)

		standings, err := e.GetLeaderboard(ctx, rewards.ScopeAggregate, 1)
		if err != nil {
			t.Fatal(err)
		}
		if standings[0].UserID != "carol" || standings[0].Points != 70 {
			t.Errorf("leader = %v, want carol with 70", standings[0])
		}
	})

	t.Run("unknown scope", func(t *testing.T) {
		_, err := e.GetLeaderboard(ctx, rewards.LeaderboardScope("magenta"), 5)
		if !errors.Is(err, rewards.ErrInvalidInput) {
			t.Fatalf("err = %v, want ErrInvalidInput", err)
		}
	})
}

// ──────────────────────────────────────────────────
// Notifications
// ──────────────────────────────────────────────────

type chanNotifier struct {
	events chan rewards.Event
}

func (n *chanNotifier) Publish(_ context.Context, ev rewards.Event) error {
	n.events <- ev
	return nil
}

func TestNotifications(t *testing.T) {
	notifier := &chanNotifier{events: make(chan rewards.Event, 16)}
	e, _ := newTestEngine(t, rewards.WithNotifier(notifier))

	mustAward(t, e, "teacher-1", rewards.SystemMint, "alice", rewards.ColorBlue, 10, "notification check", rewards.CategoryAttendance)

	select {
	case ev := <-notifier.events:
		if ev.Kind != rewards.EventPointsReceived {
			t.Errorf("kind = %s, want %s", ev.Kind, rewards.EventPointsReceived)
		}
		if ev.UserID != "alice" || ev.Amount != 10 {
			t.Errorf("event = %+v, want alice/10", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}

	// A mint award notifies only the recipient.
	select {
	case ev := <-notifier.events:
		t.Fatalf("unexpected second event %+v for mint award", ev)
	case <-time.After(50 * time.Millisecond):
	}
}
