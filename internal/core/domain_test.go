package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validTransaction() Transaction {
	return Transaction{
		UserID:   "u1",
		Amount:   Money{Cents: 1250},
		Type:     Expense,
		Category: "Food",
		Date:     time.Now(),
	}
}

func TestNormalizeType(t *testing.T) {
	cases := []struct {
		in   string
		want TransactionType
		ok   bool
	}{
		{"income", Income, true},
		{"INCOME", Income, true},
		{"Income", Income, true},
		{"expense", Expense, true},
		{" expense ", Expense, true},
		{"transfer", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := NormalizeType(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("NormalizeType(%q) = %q, %v", tc.in, got, err)
			}
		} else if err == nil {
			t.Fatalf("NormalizeType(%q) expected error", tc.in)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	if err := validTransaction().Validate(); err != nil {
		t.Fatalf("valid transaction rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"no user", func(tr *Transaction) { tr.UserID = "" }, ErrMissingUser},
		{"zero amount", func(tr *Transaction) { tr.Amount.Cents = 0 }, ErrInvalidAmount},
		{"negative amount", func(tr *Transaction) { tr.Amount.Cents = -100 }, ErrInvalidAmount},
		{"bad type", func(tr *Transaction) { tr.Type = "Transfer" }, ErrInvalidType},
		{"no category", func(tr *Transaction) { tr.Category = "  " }, ErrEmptyCategory},
		{"zero date", func(tr *Transaction) { tr.Date = time.Time{} }, ErrZeroDate},
	}
	for _, tc := range cases {
		tr := validTransaction()
		tc.mutate(&tr)
		if err := tr.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}

	tr := validTransaction()
	tr.Description = strings.Repeat("x", 201)
	if err := tr.Validate(); err == nil {
		t.Fatalf("oversized description accepted")
	}
}

func TestTransactionNormalize(t *testing.T) {
	tr := validTransaction()
	tr.Description = "  "
	if got := tr.Normalize(); got.Description != DefaultDescription {
		t.Fatalf("Normalize description = %q", got.Description)
	}

	tr.Description = "groceries"
	if got := tr.Normalize(); got.Description != "groceries" {
		t.Fatalf("Normalize overwrote description: %q", got.Description)
	}
}

func TestTransactionSigned(t *testing.T) {
	tr := validTransaction()
	if tr.Signed() != -1250 {
		t.Fatalf("expense Signed() = %d", tr.Signed())
	}
	tr.Type = Income
	if tr.Signed() != 1250 {
		t.Fatalf("income Signed() = %d", tr.Signed())
	}
}

func TestValidateCredentials(t *testing.T) {
	cases := []struct {
		email, password string
		want            error
	}{
		{"a@b.com", "secret1", nil},
		{"", "secret1", ErrInvalidEmail},
		{"not-an-email", "secret1", ErrInvalidEmail},
		{"a@b.com", "short", ErrWeakPassword},
	}
	for _, tc := range cases {
		if err := ValidateCredentials(tc.email, tc.password); !errors.Is(err, tc.want) {
			t.Fatalf("ValidateCredentials(%q, %q) = %v, want %v", tc.email, tc.password, err, tc.want)
		}
	}
}
