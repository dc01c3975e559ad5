// Package storage defines the persistence contracts for the API server
// and the shared types its backends (memory, sqlite, mongo) implement.
package storage

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/core"
)

// PageSize is the fixed server-side page length for transaction listings.
const PageSize = 10

// TransactionFilter narrows a listing by transaction type.
type TransactionFilter string

const (
	FilterAll     TransactionFilter = "all"
	FilterIncome  TransactionFilter = "income"
	FilterExpense TransactionFilter = "expense"
)

// Valid reports whether the filter is one of the accepted values; the
// empty filter means "all".
func (f TransactionFilter) Valid() bool {
	switch f {
	case FilterAll, FilterIncome, FilterExpense, "":
		return true
	}
	return false
}

// Matches reports whether a transaction type passes the filter.
func (f TransactionFilter) Matches(t core.TransactionType) bool {
	switch f {
	case FilterIncome:
		return t == core.Income
	case FilterExpense:
		return t == core.Expense
	}
	return true
}

// Summary is the full-history aggregate for one user, independent of
// pagination.
type Summary struct {
	TotalIncomeCents  int64
	TotalExpenseCents int64
}

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// UserPatch carries the profile fields a user may change. Nil fields are
// left untouched.
type UserPatch struct {
	FullName   *string
	ProfilePic *string
}

// TransactionPatch carries partial transaction updates. Nil fields keep
// their stored values.
type TransactionPatch struct {
	AmountCents *int64
	Type        *core.TransactionType
	Category    *string
	Description *string
	Date        *time.Time
}

type UserRepository interface {
	// CreateUser stores a new user with its password hash and returns the
	// canonical record. Fails with ErrDuplicateEmail on a taken address.
	CreateUser(ctx context.Context, u core.User, passwordHash string) (core.User, error)
	// UserByEmail returns the user and stored password hash.
	UserByEmail(ctx context.Context, email string) (core.User, string, error)
	UserByID(ctx context.Context, id string) (core.User, error)
	UpdateUser(ctx context.Context, id string, patch UserPatch) (core.User, error)
	// AdjustBalance applies a signed delta to the user's running balance.
	AdjustBalance(ctx context.Context, id string, deltaCents int64) error
}

type TransactionRepository interface {
	// CreateTransaction persists a validated transaction, assigning its ID,
	// and returns the canonical record.
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	// ListTransactions returns one page (newest first) and the total page
	// count for the filter.
	ListTransactions(ctx context.Context, userID string, page int, filter TransactionFilter) ([]core.Transaction, int, error)
	// RecentTransactions returns up to limit newest transactions.
	RecentTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error)
	// UpdateTransaction applies a patch to a transaction owned by userID.
	// ErrNotFound covers both unknown and foreign ids.
	UpdateTransaction(ctx context.Context, userID, id string, patch TransactionPatch) (core.Transaction, error)
	// DeleteTransaction removes a transaction owned by userID and returns
	// the deleted record.
	DeleteTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
	// UserSummary folds the user's entire history into income/expense
	// totals.
	UserSummary(ctx context.Context, userID string) (Summary, error)
}

// Repository is the full persistence surface a backend provides.
type Repository interface {
	UserRepository
	TransactionRepository
	Close() error
}

// TotalPages converts a record count into a page count, never below 1.
func TotalPages(total int) int {
	pages := (total + PageSize - 1) / PageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// ApplyPatch resolves a patch against a stored transaction, mirroring the
// field-by-field fallback of the update endpoint.
func ApplyPatch(t core.Transaction, p TransactionPatch) core.Transaction {
	if p.AmountCents != nil {
		t.Amount = core.Money{Cents: *p.AmountCents}
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	return t
}
