// Package sqlite provides an embedded single-file store backend using
// database/sql over modernc.org/sqlite, with goose-managed migrations.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/srujanreddynadipi/rewards"
	"github.com/srujanreddynadipi/rewards/account"
	"github.com/srujanreddynadipi/rewards/coupon"
	"github.com/srujanreddynadipi/rewards/id"
	"github.com/srujanreddynadipi/rewards/ratelimit"
	rewardsstore "github.com/srujanreddynadipi/rewards/store"
	"github.com/srujanreddynadipi/rewards/transaction"
	"github.com/srujanreddynadipi/rewards/types"
)

//go:embed migrations/*.sql
var migrations embed.FS

const defaultPageSize = 50

// compile-time interface check
var _ rewardsstore.Store = (*Store)(nil)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements store.Store on an embedded SQLite database.
type Store struct {
	db *sql.DB
	q  querier
}

// Open opens (or creates) a SQLite database at the given path.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("rewards/sqlite: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("rewards/sqlite: ping: %w", err)
	}
	// SQLite serializes writers; pooling connections only trades
	// throughput for busy errors.
	db.SetMaxOpenConns(1)

	return &Store{db: db, q: db}, nil
}

// DB returns the underlying database handle for direct access.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(_ context.Context) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("rewards/sqlite: set dialect: %w", err)
	}
	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("rewards/sqlite: %w: %v", rewards.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database availability.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Atomic runs fn inside a database transaction. SQLite serializes writers,
// so a busy error from a competing writer maps to the retryable conflict
// sentinel.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx rewardsstore.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err)
	}

	if err := fn(ctx, &Store{db: s.db, q: sqlTx}); err != nil {
		_ = sqlTx.Rollback() //nolint:errcheck // rollback error is secondary to fn's
		return mapError(err)
	}
	if err := sqlTx.Commit(); err != nil {
		return mapError(err)
	}
	return nil
}

// ==================== Account Store ====================

const accountCols = "user_id, account_id, red, green, blue, total_earned, total_spent, created_at, updated_at"

func (s *Store) GetAccount(ctx context.Context, userID string) (*account.Account, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+accountCols+" FROM rewards_accounts WHERE user_id = ?", userID)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, rewards.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("rewards/sqlite: get account: %w", err)
	}
	return a, nil
}

func (s *Store) PutAccount(ctx context.Context, a *account.Account) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO rewards_accounts (`+accountCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			red = excluded.red,
			green = excluded.green,
			blue = excluded.blue,
			total_earned = excluded.total_earned,
			total_spent = excluded.total_spent,
			updated_at = excluded.updated_at`,
		a.UserID, a.ID.String(), a.Balances.Red, a.Balances.Green, a.Balances.Blue,
		a.TotalEarned, a.TotalSpent, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("rewards/sqlite: put account: %w", mapError(err))
	}
	return nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]*account.Account, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+accountCols+" FROM rewards_accounts ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("rewards/sqlite: list accounts: %w", err)
	}
	defer rows.Close()

	var result []*account.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("rewards/sqlite: list accounts: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*account.Account, error) {
	var (
		a         account.Account
		accountID string
	)
	err := row.Scan(&a.UserID, &accountID, &a.Balances.Red, &a.Balances.Green,
		&a.Balances.Blue, &a.TotalEarned, &a.TotalSpent, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.ID, err = id.ParseAccountID(accountID)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ==================== Transaction Store ====================

const ledgerCols = "id, from_user_id, to_user_id, color, amount, reason, category, status, timestamp, created_at, updated_at"

func (s *Store) AppendTransaction(ctx context.Context, t *transaction.Transaction) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO rewards_ledger (`+ledgerCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID.String(), t.FromUserID, t.ToUserID, string(t.Color), t.Amount,
		t.Reason, string(t.Category), string(t.Status), t.Timestamp,
		t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("rewards/sqlite: append transaction: %w", mapError(err))
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

	query := "SELECT " + ledgerCols + " FROM rewards_ledger WHERE (from_user_id = ? OR to_user_id = ?)"
	args := []any{userID, userID}
	if opts.Color != "" {
		query += " AND color = ?"
		args = append(args, string(opts.Color))
	}
	if opts.Category != "" {
		query += " AND category = ?"
		args = append(args, string(opts.Category))
	}
	if opts.PageToken != "" {
		query += " AND id < ?"
		args = append(args, opts.PageToken)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit+1)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("rewards/sqlite: list transactions: %w", err)
	}
	defer rows.Close()

	var result []*transaction.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, "", fmt.Errorf("rewards/sqlite: list transactions: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	next := ""
	if len(result) > limit {
		result = result[:limit]
		next = result[limit-1].ID.String()
	}
	return result, next, nil
}

func scanTransaction(row scanner) (*transaction.Transaction, error) {
	var (
		t                       transaction.Transaction
		txID, color, cat, state string
	)
	err := row.Scan(&txID, &t.FromUserID, &t.ToUserID, &color, &t.Amount,
		&t.Reason, &cat, &state, &t.Timestamp, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.ID, err = id.ParseTransactionID(txID)
	if err != nil {
		return nil, err
	}
	t.Color = types.Color(color)
	t.Category = types.Category(cat)
	t.Status = transaction.Status(state)
	return &t, nil
}

// ==================== Rate Window Store ====================

func (s *Store) GetRateWindow(ctx context.Context, actorID, action string) (*ratelimit.Window, error) {
	var (
		w        ratelimit.Window
		windowID string
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT window_id, actor_id, action, window_start, count, created_at, updated_at
		FROM rewards_rate_windows WHERE actor_id = ? AND action = ?`,
		actorID, action).
		Scan(&windowID, &w.ActorID, &w.Action, &w.WindowStart, &w.Count,
			&w.CreatedAt, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("rewards/sqlite: get rate window: %w", err)
	}
	w.ID, err = id.ParseRateWindowID(windowID)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *Store) PutRateWindow(ctx context.Context, w *ratelimit.Window) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO rewards_rate_windows (actor_id, action, window_id, window_start, count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (actor_id, action) DO UPDATE SET
			window_start = excluded.window_start,
			count = excluded.count,
			updated_at = excluded.updated_at`,
		w.ActorID, w.Action, w.ID.String(), w.WindowStart, w.Count,
		w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("rewards/sqlite: put rate window: %w", mapError(err))
	}
	return nil
}

// ==================== Coupon Store ====================

const couponCols = "id, brand, title, points_required, validity_days, category, active, times_redeemed, created_at, updated_at"

func (s *Store) CreateCoupon(ctx context.Context, c *coupon.Coupon) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO rewards_coupons (`+couponCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.Brand, c.Title, c.PointsRequired, c.ValidityDays,
		c.Category, c.Active, c.TimesRedeemed, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("rewards/sqlite: create coupon: %w", mapError(err))
	}
	return nil
}

func (s *Store) GetCoupon(ctx context.Context, couponID id.CouponID) (*coupon.Coupon, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+couponCols+" FROM rewards_coupons WHERE id = ?", couponID.String())
	c, err := scanCoupon(row)
	if err == sql.ErrNoRows {
		return nil, rewards.ErrCouponNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("rewards/sqlite: get coupon: %w", err)
	}
	return c, nil
}

func (s *Store) ListCoupons(ctx context.Context, opts coupon.ListOpts) ([]*coupon.Coupon, error) {
	query := "SELECT " + couponCols + " FROM rewards_coupons WHERE 1=1"
	var args []any
	if opts.ActiveOnly {
		query += " AND active = 1"
	}
	if opts.Category != "" {
		query += " AND category = ?"
		args = append(args, opts.Category)
	}
	query += " ORDER BY title"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("rewards/sqlite: list coupons: %w", err)
	}
	defer rows.Close()

	var result []*coupon.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("rewards/sqlite: list coupons: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *Store) UpdateCoupon(ctx context.Context, c *coupon.Coupon) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE rewards_coupons SET
			brand = ?, title = ?, points_required = ?, validity_days = ?,
			category = ?, active = ?, times_redeemed = ?, updated_at = ?
		WHERE id = ?`,
		c.Brand, c.Title, c.PointsRequired, c.ValidityDays,
		c.Category, c.Active, c.TimesRedeemed, c.UpdatedAt, c.ID.String())
	if err != nil {
		return fmt.Errorf("rewards/sqlite: update coupon: %w", mapError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return rewards.ErrCouponNotFound
	}
	return nil
}

func scanCoupon(row scanner) (*coupon.Coupon, error) {
	var (
		c        coupon.Coupon
		couponID string
	)
	err := row.Scan(&couponID, &c.Brand, &c.Title, &c.PointsRequired,
		&c.ValidityDays, &c.Category, &c.Active, &c.TimesRedeemed,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.ID, err = id.ParseCouponID(couponID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ==================== Redemption Store ====================

const redemptionCols = "id, user_id, coupon_id, code, color_spent, points_spent, redeemed_at, expires_at, status, created_at, updated_at"

func (s *Store) CreateRedemption(ctx context.Context, r *coupon.Redemption) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO rewards_redemptions (`+redemptionCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.UserID, r.CouponID.String(), r.Code, string(r.ColorSpent),
		r.PointsSpent, r.RedeemedAt, r.ExpiresAt, string(r.Status),
		r.CreatedAt, r.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return rewards.ErrDuplicateCode
		}
		return fmt.Errorf("rewards/sqlite: create redemption: %w", mapError(err))
	}
	return nil
}

func (s *Store) GetRedemption(ctx context.Context, redemptionID id.RedemptionID) (*coupon.Redemption, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+redemptionCols+" FROM rewards_redemptions WHERE id = ?",
		redemptionID.String())
	r, err := scanRedemption(row)
	if err == sql.ErrNoRows {
		return nil, rewards.ErrRedemptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("rewards/sqlite: get redemption: %w", err)
	}
	return r, nil
}

func (s *Store) ListRedemptionsByUser(ctx context.Context, userID string) ([]*coupon.Redemption, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+redemptionCols+" FROM rewards_redemptions WHERE user_id = ? ORDER BY redeemed_at DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("rewards/sqlite: list redemptions: %w", err)
	}
	defer rows.Close()

	return collectRedemptions(rows)
}

func (s *Store) UpdateRedemption(ctx context.Context, r *coupon.Redemption) error {
	res, err := s.q.ExecContext(ctx,
		"UPDATE rewards_redemptions SET status = ?, updated_at = ? WHERE id = ?",
		string(r.Status), r.UpdatedAt, r.ID.String())
	if err != nil {
		return fmt.Errorf("rewards/sqlite: update redemption: %w", mapError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return rewards.ErrRedemptionNotFound
	}
	return nil
}

func (s *Store) ListLapsedRedemptions(ctx context.Context, now time.Time) ([]*coupon.Redemption, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+redemptionCols+" FROM rewards_redemptions WHERE status = ? AND expires_at < ?",
		string(coupon.StatusActive), now)
	if err != nil {
		return nil, fmt.Errorf("rewards/sqlite: list lapsed redemptions: %w", err)
	}
	defer rows.Close()

	return collectRedemptions(rows)
}

func collectRedemptions(rows *sql.Rows) ([]*coupon.Redemption, error) {
	var result []*coupon.Redemption
	for rows.Next() {
		r, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("rewards/sqlite: scan redemption: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func scanRedemption(row scanner) (*coupon.Redemption, error) {
	var (
		r                                     coupon.Redemption
		redemptionID, couponID, color, status string
	)
	err := row.Scan(&redemptionID, &r.UserID, &couponID, &r.Code, &color,
		&r.PointsSpent, &r.RedeemedAt, &r.ExpiresAt, &status,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.ID, err = id.ParseRedemptionID(redemptionID)
	if err != nil {
		return nil, err
	}
	r.CouponID, err = id.ParseCouponID(couponID)
	if err != nil {
		return nil, err
	}
	r.ColorSpent = types.Color(color)
	r.Status = coupon.Status(status)
	return &r, nil
}

// ==================== Helpers ====================

// mapError translates driver failures into store sentinels. modernc/sqlite
// does not export stable error values, so this matches message text.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "SQLITE_BUSY"):
		return rewards.ErrTxConflict
	case isUniqueViolation(err):
		return rewards.ErrDuplicateCode
	}
	return err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
