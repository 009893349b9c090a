// Package postgres provides a PostgreSQL store backend via GORM. Atomic
// runs callbacks in serializable transactions; serialization failures map
// to the store's retryable conflict error.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/srujanreddynadipi/rewards"
	"github.com/srujanreddynadipi/rewards/account"
	"github.com/srujanreddynadipi/rewards/coupon"
	"github.com/srujanreddynadipi/rewards/id"
	"github.com/srujanreddynadipi/rewards/ratelimit"
	rewardsstore "github.com/srujanreddynadipi/rewards/store"
	"github.com/srujanreddynadipi/rewards/transaction"
)

const defaultPageSize = 50

// PostgreSQL error codes.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// compile-time interface check
var _ rewardsstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via GORM.
type Store struct {
	db *gorm.DB
}

// New connects to PostgreSQL and returns a store.
func New(dsn string) (*Store, error) {
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("rewards/postgres: connect: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing GORM handle.
func NewWithDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying GORM handle for direct access.
func (s *Store) DB() *gorm.DB { return s.db }

// Migrate creates the rewards schema.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&accountModel{},
		&transactionModel{},
		&rateWindowModel{},
		&couponModel{},
		&redemptionModel{},
	)
	if err != nil {
		return fmt.Errorf("rewards/postgres: %w: %v", rewards.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Atomic runs fn in a serializable transaction. fn receives a store bound
// to the transaction handle, so every call it makes joins the transaction.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx rewardsstore.Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &Store{db: tx})
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return mapError(err)
	}
	return nil
}

// ==================== Account Store ====================

func (s *Store) GetAccount(ctx context.Context, userID string) (*account.Account, error) {
	var m accountModel
	err := s.db.WithContext(ctx).First(&m, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, rewards.ErrAccountNotFound
		}
		return nil, fmt.Errorf("rewards/postgres: get account: %w", mapError(err))
	}
	return fromAccountModel(&m)
}

func (s *Store) PutAccount(ctx context.Context, a *account.Account) error {
	m := toAccountModel(a)
	err := s.db.WithContext(ctx).Save(m).Error
	if err != nil {
		return fmt.Errorf("rewards/postgres: put account: %w", mapError(err))
	}
	return nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]*account.Account, error) {
	var models []accountModel
	err := s.db.WithContext(ctx).Order("user_id").Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("rewards/postgres: list accounts: %w", mapError(err))
	}

	result := make([]*account.Account, len(models))
	for i := range models {
		a, err := fromAccountModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = a
	}
	return result, nil
}

// ==================== Transaction Store ====================

func (s *Store) AppendTransaction(ctx context.Context, t *transaction.Transaction) error {
	m := toTransactionModel(t)
	err := s.db.WithContext(ctx).Create(m).Error
	if err != nil {
		return fmt.Errorf("rewards/postgres: append transaction: %w", mapError(err))
	}
	return nil
}

// ListTransactionsByUser pages the ledger newest first. Entry IDs are
// k-sortable, so descending id order is creation order and the last id of a
// page doubles as the continuation token.
func (s *Store) ListTransactionsByUser(ctx context.Context, userID string, opts transaction.ListOpts) ([]*transaction.Transaction, string, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	q := s.db.WithContext(ctx).
		Where("from_user_id = ? OR to_user_id = ?", userID, userID)
	if opts.Color != "" {
		q = q.Where("color = ?", string(opts.Color))
	}
	if opts.Category != "" {
		q = q.Where("category = ?", string(opts.Category))
	}
	if opts.PageToken != "" {
		q = q.Where("id < ?", opts.PageToken)
	}

	var models []transactionModel
	err := q.Order("id DESC").Limit(limit + 1).Find(&models).Error
	if err != nil {
		return nil, "", fmt.Errorf("rewards/postgres: list transactions: %w", mapError(err))
	}

	next := ""
	if len(models) > limit {
		models = models[:limit]
		next = models[limit-1].ID
	}

	result := make([]*transaction.Transaction, len(models))
	for i := range models {
		t, err := fromTransactionModel(&models[i])
		if err != nil {
			return nil, "", err
		}
		result[i] = t
	}
	return result, next, nil
}

// ==================== Rate Window Store ====================

func (s *Store) GetRateWindow(ctx context.Context, actorID, action string) (*ratelimit.Window, error) {
	var m rateWindowModel
	err := s.db.WithContext(ctx).
		First(&m, "actor_id = ? AND action = ?", actorID, action).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("rewards/postgres: get rate window: %w", mapError(err))
	}
	return fromRateWindowModel(&m)
}

func (s *Store) PutRateWindow(ctx context.Context, w *ratelimit.Window) error {
	m := toRateWindowModel(w)
	err := s.db.WithContext(ctx).Save(m).Error
	if err != nil {
		return fmt.Errorf("rewards/postgres: put rate window: %w", mapError(err))
	}
	return nil
}

// ==================== Coupon Store ====================

func (s *Store) CreateCoupon(ctx context.Context, c *coupon.Coupon) error {
	m := toCouponModel(c)
	err := s.db.WithContext(ctx).Create(m).Error
	if err != nil {
		return fmt.Errorf("rewards/postgres: create coupon: %w", mapError(err))
	}
	return nil
}

func (s *Store) GetCoupon(ctx context.Context, couponID id.CouponID) (*coupon.Coupon, error) {
	var m couponModel
	err := s.db.WithContext(ctx).First(&m, "id = ?", couponID.String()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, rewards.ErrCouponNotFound
		}
		return nil, fmt.Errorf("rewards/postgres: get coupon: %w", mapError(err))
	}
	return fromCouponModel(&m)
}

func (s *Store) ListCoupons(ctx context.Context, opts coupon.ListOpts) ([]*coupon.Coupon, error) {
	q := s.db.WithContext(ctx).Model(&couponModel{})
	if opts.ActiveOnly {
		q = q.Where("active = ?", true)
	}
	if opts.Category != "" {
		q = q.Where("category = ?", opts.Category)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	var models []couponModel
	err := q.Order("title").Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("rewards/postgres: list coupons: %w", mapError(err))
	}

	result := make([]*coupon.Coupon, len(models))
	for i := range models {
		c, err := fromCouponModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

func (s *Store) UpdateCoupon(ctx context.Context, c *coupon.Coupon) error {
	m := toCouponModel(c)
	res := s.db.WithContext(ctx).Model(&couponModel{}).
		Where("id = ?", m.ID).
		Select("*").Omit("id").
		Updates(m)
	if res.Error != nil {
		return fmt.Errorf("rewards/postgres: update coupon: %w", mapError(res.Error))
	}
	if res.RowsAffected == 0 {
		return rewards.ErrCouponNotFound
	}
	return nil
}

// ==================== Redemption Store ====================

func (s *Store) CreateRedemption(ctx context.Context, r *coupon.Redemption) error {
	m := toRedemptionModel(r)
	err := s.db.WithContext(ctx).Create(m).Error
	if err != nil {
		if isUniqueViolation(err) {
			return rewards.ErrDuplicateCode
		}
		return fmt.Errorf("rewards/postgres: create redemption: %w", mapError(err))
	}
	return nil
}

func (s *Store) GetRedemption(ctx context.Context, redemptionID id.RedemptionID) (*coupon.Redemption, error) {
	var m redemptionModel
	err := s.db.WithContext(ctx).First(&m, "id = ?", redemptionID.String()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, rewards.ErrRedemptionNotFound
		}
		return nil, fmt.Errorf("rewards/postgres: get redemption: %w", mapError(err))
	}
	return fromRedemptionModel(&m)
}

func (s *Store) ListRedemptionsByUser(ctx context.Context, userID string) ([]*coupon.Redemption, error) {
	var models []redemptionModel
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("redeemed_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("rewards/postgres: list redemptions: %w", mapError(err))
	}

	result := make([]*coupon.Redemption, len(models))
	for i := range models {
		r, err := fromRedemptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

func (s *Store) UpdateRedemption(ctx context.Context, r *coupon.Redemption) error {
	m := toRedemptionModel(r)
	res := s.db.WithContext(ctx).Model(&redemptionModel{}).
		Where("id = ?", m.ID).
		Select("*").Omit("id").
		Updates(m)
	if res.Error != nil {
		return fmt.Errorf("rewards/postgres: update redemption: %w", mapError(res.Error))
	}
	if res.RowsAffected == 0 {
		return rewards.ErrRedemptionNotFound
	}
	return nil
}

func (s *Store) ListLapsedRedemptions(ctx context.Context, now time.Time) ([]*coupon.Redemption, error) {
	var models []redemptionModel
	err := s.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", string(coupon.StatusActive), now).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("rewards/postgres: list lapsed redemptions: %w", mapError(err))
	}

	result := make([]*coupon.Redemption, len(models))
	for i := range models {
		r, err := fromRedemptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

// ==================== Helpers ====================

// mapError translates driver-level failures into store sentinels so callers
// can retry serialization conflicts without parsing SQLSTATE themselves.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected:
			return rewards.ErrTxConflict
		case pgUniqueViolation:
			return rewards.ErrDuplicateCode
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
