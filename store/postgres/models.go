package postgres

import (
	"fmt"
	"time"

	"github.com/srujanreddynadipi/rewards/account"
	"github.com/srujanreddynadipi/rewards/coupon"
	"github.com/srujanreddynadipi/rewards/id"
	"github.com/srujanreddynadipi/rewards/ratelimit"
	"github.com/srujanreddynadipi/rewards/transaction"
	"github.com/srujanreddynadipi/rewards/types"
)

// ==================== Account models ====================

type accountModel struct {
	UserID      string    `gorm:"primaryKey;column:user_id"`
	AccountID   string    `gorm:"column:account_id;not null"`
	Red         int64     `gorm:"column:red;not null;default:0"`
	Green       int64     `gorm:"column:green;not null;default:0"`
	Blue        int64     `gorm:"column:blue;not null;default:0"`
	TotalEarned int64     `gorm:"column:total_earned;not null;default:0"`
	TotalSpent  int64     `gorm:"column:total_spent;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (accountModel) TableName() string { return "rewards_accounts" }

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
		return nil, fmt.Errorf("rewards/postgres: account %s: %w", m.UserID, err)
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
	ID         string    `gorm:"primaryKey;column:id"`
	FromUserID string    `gorm:"column:from_user_id;not null;index:idx_ledger_from,priority:1"`
	ToUserID   string    `gorm:"column:to_user_id;not null;index:idx_ledger_to,priority:1"`
	Color      string    `gorm:"column:color;not null"`
	Amount     int64     `gorm:"column:amount;not null"`
	Reason     string    `gorm:"column:reason;not null"`
	Category   string    `gorm:"column:category;not null"`
	Status     string    `gorm:"column:status;not null"`
	Timestamp  time.Time `gorm:"column:timestamp;not null;index"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (transactionModel) TableName() string { return "rewards_ledger" }

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
		return nil, fmt.Errorf("rewards/postgres: transaction %s: %w", m.ID, err)
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

type rateWindowModel struct {
	ActorID     string    `gorm:"primaryKey;column:actor_id"`
	Action      string    `gorm:"primaryKey;column:action"`
	WindowID    string    `gorm:"column:window_id;not null"`
	WindowStart time.Time `gorm:"column:window_start;not null"`
	Count       int64     `gorm:"column:count;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (rateWindowModel) TableName() string { return "rewards_rate_windows" }

func toRateWindowModel(w *ratelimit.Window) *rateWindowModel {
	return &rateWindowModel{
		ActorID:     w.ActorID,
		Action:      w.Action,
		WindowID:    w.ID.String(),
		WindowStart: w.WindowStart,
		Count:       w.Count,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}

func fromRateWindowModel(m *rateWindowModel) (*ratelimit.Window, error) {
	windowID, err := id.ParseRateWindowID(m.WindowID)
	if err != nil {
		return nil, fmt.Errorf("rewards/postgres: rate window %s/%s: %w", m.ActorID, m.Action, err)
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
	ID             string    `gorm:"primaryKey;column:id"`
	Brand          string    `gorm:"column:brand;not null"`
	Title          string    `gorm:"column:title;not null"`
	PointsRequired int64     `gorm:"column:points_required;not null"`
	ValidityDays   int       `gorm:"column:validity_days;not null"`
	Category       string    `gorm:"column:category;index"`
	Active         bool      `gorm:"column:active;not null;index"`
	TimesRedeemed  int       `gorm:"column:times_redeemed;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (couponModel) TableName() string { return "rewards_coupons" }

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
		return nil, fmt.Errorf("rewards/postgres: coupon %s: %w", m.ID, err)
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
	ID          string    `gorm:"primaryKey;column:id"`
	UserID      string    `gorm:"column:user_id;not null;index:idx_redemptions_user"`
	CouponID    string    `gorm:"column:coupon_id;not null"`
	Code        string    `gorm:"column:code;not null;uniqueIndex:idx_redemptions_code"`
	ColorSpent  string    `gorm:"column:color_spent;not null"`
	PointsSpent int64     `gorm:"column:points_spent;not null"`
	RedeemedAt  time.Time `gorm:"column:redeemed_at;not null"`
	ExpiresAt   time.Time `gorm:"column:expires_at;not null;index:idx_redemptions_expiry"`
	Status      string    `gorm:"column:status;not null;index:idx_redemptions_expiry"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (redemptionModel) TableName() string { return "rewards_redemptions" }

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
		return nil, fmt.Errorf("rewards/postgres: redemption %s: %w", m.ID, err)
	}
	couponID, err := id.ParseCouponID(m.CouponID)
	if err != nil {
		return nil, fmt.Errorf("rewards/postgres: redemption %s: %w", m.ID, err)
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
