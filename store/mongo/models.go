package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/srujanreddynadipi/rewards/account"
	"github.com/srujanreddynadipi/rewards/coupon"
	"github.com/srujanreddynadipi/rewards/id"
	"github.com/srujanreddynadipi/rewards/ratelimit"
	"github.com/srujanreddynadipi/rewards/transaction"
	"github.com/srujanreddynadipi/rewards/types"
)

// ==================== Account models ====================

// accountModel is keyed by user ID so that the engine's upsert-by-user
// access pattern maps onto a single document.
type accountModel struct {
	grove.BaseModel `grove:"table:rewards_accounts"`

	UserID      string    `grove:"user_id,pk"   bson:"_id"`
	AccountID   string    `grove:"account_id"   bson:"account_id"`
	Red         int64     `grove:"red"          bson:"red"`
	Green       int64     `grove:"green"        bson:"green"`
	Blue        int64     `grove:"blue"         bson:"blue"`
	TotalEarned int64     `grove:"total_earned" bson:"total_earned"`
	TotalSpent  int64     `grove:"total_spent"  bson:"total_spent"`
	CreatedAt   time.Time `grove:"created_at"   bson:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"   bson:"updated_at"`
}

func toAccountModel(a *account.Account) *accountModel {
	return &accountModel{
		UserID:      a.UserID,
		AccountID:   a.ID.String(),
		Red:         a.Balances.Red,
		Green:       a.Balances.Green,
		Blue:        a.Balances.Blue,
		TotalEarned: a.TotalEarned,
		TotalSpent:  a.TotalSpent,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func fromAccountModel(m *accountModel) (*account.Account, error) {
	accountID, err := id.ParseAccountID(m.AccountID)
	if err != nil {
		return nil, fmt.Errorf("rewards/mongo: account %s: %w", m.UserID, err)
	}
	return &account.Account{
		Entity:      types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:          accountID,
		UserID:      m.UserID,
		Balances:    types.Balances{Red: m.Red, Green: m.Green, Blue: m.Blue},
		TotalEarned: m.TotalEarned,
		TotalSpent:  m.TotalSpent,
	}, nil
}

// ==================== Transaction models ====================

type transactionModel struct {
	grove.BaseModel `grove:"table:rewards_ledger"`

	ID         string    `grove:"id,pk"        bson:"_id"`
	FromUserID string    `grove:"from_user_id" bson:"from_user_id"`
	ToUserID   string    `grove:"to_user_id"   bson:"to_user_id"`
	Color      string    `grove:"color"        bson:"color"`
	Amount     int64     `grove:"amount"       bson:"amount"`
	Reason     string    `grove:"reason"       bson:"reason"`
	Category   string    `grove:"category"     bson:"category"`
	Status     string    `grove:"status"       bson:"status"`
	Timestamp  time.Time `grove:"timestamp"    bson:"timestamp"`
	CreatedAt  time.Time `grove:"created_at"   bson:"created_at"`
	UpdatedAt  time.Time `grove:"updated_at"   bson:"updated_at"`
}

func toTransactionModel(t *transaction.Transaction) *transactionModel {
	return &transactionModel{
		ID:         t.ID.String(),
		FromUserID: t.FromUserID,
		ToUserID:   t.ToUserID,
		Color:      string(t.Color),
		Amount:     t.Amount,
		Reason:     t.Reason,
		Category:   string(t.Category),
		Status:     string(t.Status),
		Timestamp:  t.Timestamp,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

func fromTransactionModel(m *transactionModel) (*transaction.Transaction, error) {
	txID, err := id.ParseTransactionID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("rewards/mongo: transaction %s: %w", m.ID, err)
	}
	return &transaction.Transaction{
		Entity:     types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:         txID,
		FromUserID: m.FromUserID,
		ToUserID:   m.ToUserID,
		Color:      types.Color(m.Color),
		Amount:     m.Amount,
		Reason:     m.Reason,
		Category:   types.Category(m.Category),
		Status:     transaction.Status(m.Status),
		Timestamp:  m.Timestamp,
	}, nil
}

// ==================== Rate window models ====================

// rateWindowModel is keyed by the (actor, action) pair.
type rateWindowModel struct {
	grove.BaseModel `grove:"table:rewards_rate_windows"`

	Key         string    `grove:"key,pk"       bson:"_id"`
	WindowID    string    `grove:"window_id"    bson:"window_id"`
	ActorID     string    `grove:"actor_id"     bson:"actor_id"`
	Action      string    `grove:"action"       bson:"action"`
	WindowStart time.Time `grove:"window_start" bson:"window_start"`
	Count       int64     `grove:"count"        bson:"count"`
	CreatedAt   time.Time `grove:"created_at"   bson:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"   bson:"updated_at"`
}

func windowKey(actorID, action string) string {
	return actorID + ":" + action
}

func toRateWindowModel(w *ratelimit.Window) *rateWindowModel {
	return &rateWindowModel{
		Key:         windowKey(w.ActorID, w.Action),
		WindowID:    w.ID.String(),
		ActorID:     w.ActorID,
		Action:      w.Action,
		WindowStart: w.WindowStart,
		Count:       w.Count,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}

func fromRateWindowModel(m *rateWindowModel) (*ratelimit.Window, error) {
	windowID, err := id.ParseRateWindowID(m.WindowID)
	if err != nil {
		return nil, fmt.Errorf("rewards/mongo: rate window %s: %w", m.Key, err)
	}
	return &ratelimit.Window{
		Entity:      types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:          windowID,
		ActorID:     m.ActorID,
		Action:      m.Action,
		WindowStart: m.WindowStart,
		Count:       m.Count,
	}, nil
}

// ==================== Coupon models ====================

type couponModel struct {
	grove.BaseModel `grove:"table:rewards_coupons"`

	ID             string    `grove:"id,pk"           bson:"_id"`
	Brand          string    `grove:"brand"           bson:"brand"`
	Title          string    `grove:"title"           bson:"title"`
	PointsRequired int64     `grove:"points_required" bson:"points_required"`
	ValidityDays   int       `grove:"validity_days"   bson:"validity_days"`
	Category       string    `grove:"category"        bson:"category"`
	Active         bool      `grove:"active"          bson:"active"`
	TimesRedeemed  int       `grove:"times_redeemed"  bson:"times_redeemed"`
	CreatedAt      time.Time `grove:"created_at"      bson:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"      bson:"updated_at"`
}

func toCouponModel(c *coupon.Coupon) *couponModel {
	return &couponModel{
		ID:             c.ID.String(),
		Brand:          c.Brand,
		Title:          c.Title,
		PointsRequired: c.PointsRequired,
		ValidityDays:   c.ValidityDays,
		Category:       c.Category,
		Active:         c.Active,
		TimesRedeemed:  c.TimesRedeemed,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func fromCouponModel(m *couponModel) (*coupon.Coupon, error) {
	couponID, err := id.ParseCouponID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("rewards/mongo: coupon %s: %w", m.ID, err)
	}
	return &coupon.Coupon{
		Entity:         types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:             couponID,
		Brand:          m.Brand,
		Title:          m.Title,
		PointsRequired: m.PointsRequired,
		ValidityDays:   m.ValidityDays,
		Category:       m.Category,
		Active:         m.Active,
		TimesRedeemed:  m.TimesRedeemed,
	}, nil
}

// ==================== Redemption models ====================

type redemptionModel struct {
	grove.BaseModel `grove:"table:rewards_redemptions"`

	ID          string    `grove:"id,pk"        bson:"_id"`
	UserID      string    `grove:"user_id"      bson:"user_id"`
	CouponID    string    `grove:"coupon_id"    bson:"coupon_id"`
	Code        string    `grove:"code"         bson:"code"`
	ColorSpent  string    `grove:"color_spent"  bson:"color_spent"`
	PointsSpent int64     `grove:"points_spent" bson:"points_spent"`
	RedeemedAt  time.Time `grove:"redeemed_at"  bson:"redeemed_at"`
	ExpiresAt   time.Time `grove:"expires_at"   bson:"expires_at"`
	Status      string    `grove:"status"       bson:"status"`
	CreatedAt   time.Time `grove:"created_at"   bson:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"   bson:"updated_at"`
}

func toRedemptionModel(r *coupon.Redemption) *redemptionModel {
	return &redemptionModel{
		ID:          r.ID.String(),
		UserID:      r.UserID,
		CouponID:    r.CouponID.String(),
		Code:        r.Code,
		ColorSpent:  string(r.ColorSpent),
		PointsSpent: r.PointsSpent,
		RedeemedAt:  r.RedeemedAt,
		ExpiresAt:   r.ExpiresAt,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func fromRedemptionModel(m *redemptionModel) (*coupon.Redemption, error) {
	redemptionID, err := id.ParseRedemptionID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("rewards/mongo: redemption %s: %w", m.ID, err)
	}
	couponID, err := id.ParseCouponID(m.CouponID)
	if err != nil {
		return nil, fmt.Errorf("rewards/mongo: redemption %s: %w", m.ID, err)
	}
	return &coupon.Redemption{
		Entity:      types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:          redemptionID,
		UserID:      m.UserID,
		CouponID:    couponID,
		Code:        m.Code,
		ColorSpent:  types.Color(m.ColorSpent),
		PointsSpent: m.PointsSpent,
		RedeemedAt:  m.RedeemedAt,
		ExpiresAt:   m.ExpiresAt,
		Status:      coupon.Status(m.Status),
	}, nil
}
