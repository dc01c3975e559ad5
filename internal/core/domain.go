package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "Income"
	Expense TransactionType = "Expense"
)

// DefaultDescription is used when a transaction is recorded without one.
const DefaultDescription = "No description"

type (
	TransactionType string

	Money struct {
		Cents int64
	}

	// Transaction is the canonical record persisted by the server and
	// cached by the client store. Amount is always positive; the sign is
	// carried by Type.
	Transaction struct {
		ID          string
		UserID      string
		Amount      Money
		Type        TransactionType
		Category    string
		Description string
		Date        time.Time
	}

	// User is the authenticated identity. BalanceCents is a running signed
	// balance maintained server-side on every created transaction.
	User struct {
		ID           string
		FullName     string
		Email        string
		ProfilePic   string
		BalanceCents int64
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrEmptyCategory = errors.New("empty category")
	ErrMissingUser   = errors.New("missing user id")
	ErrZeroDate      = errors.New("date cannot be zero")
	ErrInvalidEmail  = errors.New("invalid email")
	ErrWeakPassword  = errors.New("password too short")
)

// NormalizeType title-cases a free-form type string into one of the two
// canonical values, so "income", "INCOME" and "Income" are equivalent.
func NormalizeType(s string) (TransactionType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalidType
	}
	normalized := strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
	switch TransactionType(normalized) {
	case Income, Expense:
		return TransactionType(normalized), nil
	}
	return "", ErrInvalidType
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrMissingUser
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Date.IsZero() {
		return ErrZeroDate
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

// Normalize fills defaults on a transaction about to be persisted.
func (t Transaction) Normalize() Transaction {
	if strings.TrimSpace(t.Description) == "" {
		t.Description = DefaultDescription
	}
	return t
}

// Signed returns the amount with the sign implied by the type, for
// balance arithmetic.
func (t Transaction) Signed() int64 {
	if t.Type == Expense {
		return -t.Amount.Cents
	}
	return t.Amount.Cents
}

// ValidateCredentials checks signup input. Login reuses the email check only.
func ValidateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	if len(password) < 6 {
		return ErrWeakPassword
	}
	return nil
}
