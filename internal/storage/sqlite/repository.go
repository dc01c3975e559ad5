// Package sqlite is the file-backed storage backend, using modernc's CGO-free
// driver with schema managed by embedded golang-migrate migrations.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type Repository struct {
	db *sql.DB
}

func New(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) CreateUser(ctx context.Context, u core.User, passwordHash string) (core.User, error) {
	u.ID = uuid.NewString()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, full_name, email, password_hash, profile_pic, balance_cents) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.FullName, u.Email, passwordHash, u.ProfilePic, u.BalanceCents)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.User{}, storage.ErrDuplicateEmail
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *Repository) UserByEmail(ctx context.Context, email string) (core.User, string, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, full_name, email, password_hash, profile_pic, balance_cents FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
	var u core.User
	var hash string
	if err := row.Scan(&u.ID, &u.FullName, &u.Email, &hash, &u.ProfilePic, &u.BalanceCents); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, "", storage.ErrNotFound
		}
		return core.User{}, "", fmt.Errorf("select user by email: %w", err)
	}
	return u, hash, nil
}

func (r *Repository) UserByID(ctx context.Context, id string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, full_name, email, profile_pic, balance_cents FROM users WHERE id = ?`, id)
	var u core.User
	if err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.ProfilePic, &u.BalanceCents); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, storage.ErrNotFound
		}
		return core.User{}, fmt.Errorf("select user by id: %w", err)
	}
	return u, nil
}

func (r *Repository) UpdateUser(ctx context.Context, id string, patch storage.UserPatch) (core.User, error) {
	u, err := r.UserByID(ctx, id)
	if err != nil {
		return core.User{}, err
	}
	if patch.FullName != nil {
		u.FullName = *patch.FullName
	}
	if patch.ProfilePic != nil {
		u.ProfilePic = *patch.ProfilePic
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE users SET full_name = ?, profile_pic = ? WHERE id = ?`,
		u.FullName, u.ProfilePic, id)
	if err != nil {
		return core.User{}, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func (r *Repository) AdjustBalance(ctx context.Context, id string, deltaCents int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET balance_cents = balance_cents + ? WHERE id = ?`, deltaCents, id)
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, amount_cents, type, category, description, date) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Amount.Cents, string(t.Type), t.Category, t.Description, t.Date.UTC())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return t, nil
}

func (r *Repository) ListTransactions(ctx context.Context, userID string, page int, filter storage.TransactionFilter) ([]core.Transaction, int, error) {
	where, args := filterClause(userID, filter)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}
	totalPages := storage.TotalPages(total)

	if page < 1 {
		page = 1
	}
	listArgs := append(append([]any{}, args...), storage.PageSize, (page-1)*storage.PageSize)
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount_cents, type, category, description, date FROM transactions `+where+
			` ORDER BY date DESC, created_at DESC LIMIT ? OFFSET ?`, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out, err := scanTransactions(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, totalPages, nil
}

func (r *Repository) RecentTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount_cents, type, category, description, date FROM transactions
		 WHERE user_id = ? ORDER BY date DESC, created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (r *Repository) UpdateTransaction(ctx context.Context, userID, id string, patch storage.TransactionPatch) (core.Transaction, error) {
	t, err := r.transactionByID(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	t = storage.ApplyPatch(t, patch)
	_, err = r.db.ExecContext(ctx,
		`UPDATE transactions SET amount_cents = ?, type = ?, category = ?, description = ?, date = ? WHERE id = ? AND user_id = ?`,
		t.Amount.Cents, string(t.Type), t.Category, t.Description, t.Date.UTC(), id, userID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return t, nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	t, err := r.transactionByID(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return core.Transaction{}, fmt.Errorf("delete transaction: %w", err)
	}
	return t, nil
}

func (r *Repository) UserSummary(ctx context.Context, userID string) (storage.Summary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT type, COALESCE(SUM(amount_cents), 0) FROM transactions WHERE user_id = ? GROUP BY type`, userID)
	if err != nil {
		return storage.Summary{}, fmt.Errorf("user summary: %w", err)
	}
	defer rows.Close()

	var sum storage.Summary
	for rows.Next() {
		var typ string
		var cents int64
		if err := rows.Scan(&typ, &cents); err != nil {
			return storage.Summary{}, fmt.Errorf("scan summary row: %w", err)
		}
		switch core.TransactionType(typ) {
		case core.Income:
			sum.TotalIncomeCents = cents
		case core.Expense:
			sum.TotalExpenseCents = cents
		}
	}
	return sum, rows.Err()
}

func (r *Repository) transactionByID(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, amount_cents, type, category, description, date FROM transactions WHERE id = ? AND user_id = ?`,
		id, userID)
	var t core.Transaction
	var typ string
	var date time.Time
	if err := row.Scan(&t.ID, &t.UserID, &t.Amount.Cents, &typ, &t.Category, &t.Description, &date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, storage.ErrNotFound
		}
		return core.Transaction{}, fmt.Errorf("select transaction: %w", err)
	}
	t.Type = core.TransactionType(typ)
	t.Date = date
	return t, nil
}

func filterClause(userID string, filter storage.TransactionFilter) (string, []any) {
	switch filter {
	case storage.FilterIncome:
		return `WHERE user_id = ? AND type = ?`, []any{userID, string(core.Income)}
	case storage.FilterExpense:
		return `WHERE user_id = ? AND type = ?`, []any{userID, string(core.Expense)}
	}
	return `WHERE user_id = ?`, []any{userID}
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	out := []core.Transaction{}
	for rows.Next() {
		var t core.Transaction
		var typ string
		var date time.Time
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount.Cents, &typ, &t.Category, &t.Description, &date); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Type = core.TransactionType(typ)
		t.Date = date
		out = append(out, t)
	}
	return out, rows.Err()
}

var _ storage.Repository = (*Repository)(nil)
