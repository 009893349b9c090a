// Package mongo provides a MongoDB store backend via Grove ORM. Atomicity
// relies on multi-document transactions, so the deployment must be a replica
// set or sharded cluster.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/srujanreddynadipi/rewards"
	"github.com/srujanreddynadipi/rewards/account"
	"github.com/srujanreddynadipi/rewards/coupon"
	"github.com/srujanreddynadipi/rewards/id"
	"github.com/srujanreddynadipi/rewards/ratelimit"
	rewardsstore "github.com/srujanreddynadipi/rewards/store"
	"github.com/srujanreddynadipi/rewards/transaction"
)

// Collection name constants.
const (
	colAccounts    = "rewards_accounts"
	colLedger      = "rewards_ledger"
	colRateWindows = "rewards_rate_windows"
	colCoupons     = "rewards_coupons"
	colRedemptions = "rewards_redemptions"
)

const defaultPageSize = 50

// compile-time interface check
var _ rewardsstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all rewards collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("rewards/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Atomic runs fn inside a MongoDB multi-document transaction. The driver
// binds the session to the callback context, so every store call fn makes
// with that context joins the transaction. Write conflicts surface as a
// retryable conflict error.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx rewardsstore.Store) error) error {
	client := s.mdb.Collection(colAccounts).Database().Client()

	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("rewards/mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, fn(ctx, s)
	})
	if err != nil {
		if isTransient(err) {
			return rewards.ErrTxConflict
		}
		return err
	}
	return nil
}

// ==================== Account Store ====================

func (s *Store) GetAccount(ctx context.Context, userID string) (*account.Account, error) {
	var m accountModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": userID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, rewards.ErrAccountNotFound
		}
		return nil, fmt.Errorf("rewards/mongo: get account: %w", err)
	}
	return fromAccountModel(&m)
}

func (s *Store) PutAccount(ctx context.Context, a *account.Account) error {
	m := toAccountModel(a)

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.UserID}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":          m.UserID,
			"account_id":   m.AccountID,
			"red":          m.Red,
			"green":        m.Green,
			"blue":         m.Blue,
			"total_earned": m.TotalEarned,
			"total_spent":  m.TotalSpent,
			"created_at":   m.CreatedAt,
			"updated_at":   m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rewards/mongo: put account: %w", err)
	}
	return nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]*account.Account, error) {
	var models []accountModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("rewards/mongo: list accounts: %w", err)
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("rewards/mongo: append transaction: %w", err)
	}
	return nil
}

// ListTransactionsByUser pages the ledger newest first. Entry IDs are
// k-sortable, so descending _id order is creation order and the last ID of
// a page doubles as the continuation token.
func (s *Store) ListTransactionsByUser(ctx context.Context, userID string, opts transaction.ListOpts) ([]*transaction.Transaction, string, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	filter := bson.M{
		"$or": bson.A{
			bson.M{"from_user_id": userID},
			bson.M{"to_user_id": userID},
		},
	}
	if opts.Color != "" {
		filter["color"] = string(opts.Color)
	}
	if opts.Category != "" {
		filter["category"] = string(opts.Category)
	}
	if opts.PageToken != "" {
		filter["_id"] = bson.M{"$lt": opts.PageToken}
	}

	var models []transactionModel
	err := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: -1}}).
		Limit(int64(limit + 1)).
		Scan(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("rewards/mongo: list transactions: %w", err)
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
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": windowKey(actorID, action)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("rewards/mongo: get rate window: %w", err)
	}
	return fromRateWindowModel(&m)
}

func (s *Store) PutRateWindow(ctx context.Context, w *ratelimit.Window) error {
	m := toRateWindowModel(w)

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Key}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":          m.Key,
			"window_id":    m.WindowID,
			"actor_id":     m.ActorID,
			"action":       m.Action,
			"window_start": m.WindowStart,
			"count":        m.Count,
			"created_at":   m.CreatedAt,
			"updated_at":   m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rewards/mongo: put rate window: %w", err)
	}
	return nil
}

// ==================== Coupon Store ====================

func (s *Store) CreateCoupon(ctx context.Context, c *coupon.Coupon) error {
	m := toCouponModel(c)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("rewards/mongo: create coupon: %w", err)
	}
	return nil
}

func (s *Store) GetCoupon(ctx context.Context, couponID id.CouponID) (*coupon.Coupon, error) {
	var m couponModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": couponID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, rewards.ErrCouponNotFound
		}
		return nil, fmt.Errorf("rewards/mongo: get coupon: %w", err)
	}
	return fromCouponModel(&m)
}

func (s *Store) ListCoupons(ctx context.Context, opts coupon.ListOpts) ([]*coupon.Coupon, error) {
	var models []couponModel

	filter := bson.M{}
	if opts.ActiveOnly {
		filter["active"] = true
	}
	if opts.Category != "" {
		filter["category"] = opts.Category
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "title", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("rewards/mongo: list coupons: %w", err)
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

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rewards/mongo: update coupon: %w", err)
	}
	if res.MatchedCount() == 0 {
		return rewards.ErrCouponNotFound
	}
	return nil
}

// ==================== Redemption Store ====================

func (s *Store) CreateRedemption(ctx context.Context, r *coupon.Redemption) error {
	m := toRedemptionModel(r)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return rewards.ErrDuplicateCode
		}
		return fmt.Errorf("rewards/mongo: create redemption: %w", err)
	}
	return nil
}

func (s *Store) GetRedemption(ctx context.Context, redemptionID id.RedemptionID) (*coupon.Redemption, error) {
	var m redemptionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": redemptionID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, rewards.ErrRedemptionNotFound
		}
		return nil, fmt.Errorf("rewards/mongo: get redemption: %w", err)
	}
	return fromRedemptionModel(&m)
}

func (s *Store) ListRedemptionsByUser(ctx context.Context, userID string) ([]*coupon.Redemption, error) {
	var models []redemptionModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"user_id": userID}).
		Sort(bson.D{{Key: "redeemed_at", Value: -1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("rewards/mongo: list redemptions: %w", err)
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

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("rewards/mongo: update redemption: %w", err)
	}
	if res.MatchedCount() == 0 {
		return rewards.ErrRedemptionNotFound
	}
	return nil
}

func (s *Store) ListLapsedRedemptions(ctx context.Context, now time.Time) ([]*coupon.Redemption, error) {
	var models []redemptionModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{
			"status":     string(coupon.StatusActive),
			"expires_at": bson.M{"$lt": now},
		}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("rewards/mongo: list lapsed redemptions: %w", err)
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

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// isTransient reports whether err is a transaction error the caller may
// safely retry from scratch.
func isTransient(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.HasErrorLabel("TransientTransactionError") ||
			cmdErr.HasErrorLabel("UnknownTransactionCommitResult")
	}
	return false
}

// migrationIndexes returns the index definitions for all rewards collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colAccounts: {
			{Keys: bson.D{{Key: "account_id", Value: 1}}},
		},
		colLedger: {
			{Keys: bson.D{{Key: "from_user_id", Value: 1}, {Key: "_id", Value: -1}}},
			{Keys: bson.D{{Key: "to_user_id", Value: 1}, {Key: "_id", Value: -1}}},
			{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		},
		colRateWindows: {
			{Keys: bson.D{{Key: "actor_id", Value: 1}, {Key: "action", Value: 1}}},
		},
		colCoupons: {
			{Keys: bson.D{{Key: "active", Value: 1}, {Key: "category", Value: 1}}},
		},
		colRedemptions: {
			{
				Keys:    bson.D{{Key: "code", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "redeemed_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}}},
		},
	}
}
