package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func seedUser(t *testing.T, s *Store) core.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), core.User{FullName: "Test User", Email: "test@example.com"}, "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := New()
	seedUser(t, s)

	_, err := s.CreateUser(context.Background(), core.User{Email: "TEST@example.com"}, "hash")
	if !errors.Is(err, storage.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestUserLookup(t *testing.T) {
	s := New()
	u := seedUser(t, s)

	got, hash, err := s.UserByEmail(context.Background(), " Test@Example.com ")
	if err != nil || got.ID != u.ID || hash != "hash" {
		t.Fatalf("UserByEmail: %+v, %q, %v", got, hash, err)
	}

	if _, err := s.UserByID(context.Background(), "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing user: %v", err)
	}
}

func TestAdjustBalance(t *testing.T) {
	s := New()
	u := seedUser(t, s)

	if err := s.AdjustBalance(context.Background(), u.ID, 500); err != nil {
		t.Fatalf("AdjustBalance: %v", err)
	}
	if err := s.AdjustBalance(context.Background(), u.ID, -150); err != nil {
		t.Fatalf("AdjustBalance: %v", err)
	}
	got, _ := s.UserByID(context.Background(), u.ID)
	if got.BalanceCents != 350 {
		t.Fatalf("balance = %d, want 350", got.BalanceCents)
	}
}

func TestListTransactionsPagination(t *testing.T) {
	s := New()
	u := seedUser(t, s)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < storage.PageSize+3; i++ {
		s.Seed(core.Transaction{
			UserID:   u.ID,
			Amount:   core.Money{Cents: int64(100 + i)},
			Type:     core.Expense,
			Category: "Food",
			Date:     base.AddDate(0, 0, i),
		})
	}

	page1, totalPages, err := s.ListTransactions(context.Background(), u.ID, 1, storage.FilterAll)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if totalPages != 2 {
		t.Fatalf("totalPages = %d, want 2", totalPages)
	}
	if len(page1) != storage.PageSize {
		t.Fatalf("page 1 size = %d", len(page1))
	}
	// Newest first.
	if !page1[0].Date.After(page1[1].Date) {
		t.Fatalf("page not sorted newest first: %v then %v", page1[0].Date, page1[1].Date)
	}

	page2, _, _ := s.ListTransactions(context.Background(), u.ID, 2, storage.FilterAll)
	if len(page2) != 3 {
		t.Fatalf("page 2 size = %d, want 3", len(page2))
	}

	beyond, totalPages, _ := s.ListTransactions(context.Background(), u.ID, 99, storage.FilterAll)
	if len(beyond) != 0 || totalPages != 2 {
		t.Fatalf("out-of-range page: %d records, %d pages", len(beyond), totalPages)
	}
}

func TestListTransactionsEmptyUser(t *testing.T) {
	s := New()
	list, totalPages, err := s.ListTransactions(context.Background(), "ghost", 1, storage.FilterAll)
	if err != nil || len(list) != 0 {
		t.Fatalf("empty listing: %v, %v", list, err)
	}
	if totalPages != 1 {
		t.Fatalf("totalPages = %d, want 1 for empty history", totalPages)
	}
}

func TestListTransactionsFilter(t *testing.T) {
	s := New()
	u := seedUser(t, s)
	s.Seed(core.Transaction{UserID: u.ID, Amount: core.Money{Cents: 100}, Type: core.Income, Category: "Salary"})
	s.Seed(core.Transaction{UserID: u.ID, Amount: core.Money{Cents: 200}, Type: core.Expense, Category: "Food"})

	income, _, _ := s.ListTransactions(context.Background(), u.ID, 1, storage.FilterIncome)
	if len(income) != 1 || income[0].Type != core.Income {
		t.Fatalf("income filter: %+v", income)
	}
	expense, _, _ := s.ListTransactions(context.Background(), u.ID, 1, storage.FilterExpense)
	if len(expense) != 1 || expense[0].Type != core.Expense {
		t.Fatalf("expense filter: %+v", expense)
	}
}

func TestEqualDatesKeepInsertionOrder(t *testing.T) {
	s := New()
	u := seedUser(t, s)
	when := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	s.Seed(core.Transaction{ID: "first", UserID: u.ID, Amount: core.Money{Cents: 1}, Type: core.Expense, Category: "A", Date: when})
	s.Seed(core.Transaction{ID: "second", UserID: u.ID, Amount: core.Money{Cents: 2}, Type: core.Expense, Category: "B", Date: when})

	list, _, _ := s.ListTransactions(context.Background(), u.ID, 1, storage.FilterAll)
	if list[0].ID != "second" || list[1].ID != "first" {
		t.Fatalf("tie-break order: %s then %s", list[0].ID, list[1].ID)
	}
}

func TestUpdateTransactionOwnership(t *testing.T) {
	s := New()
	u := seedUser(t, s)
	seeded := s.Seed(core.Transaction{UserID: u.ID, Amount: core.Money{Cents: 100}, Type: core.Expense, Category: "Food"})

	newAmount := int64(250)
	updated, err := s.UpdateTransaction(context.Background(), u.ID, seeded.ID, storage.TransactionPatch{AmountCents: &newAmount})
	if err != nil || updated.Amount.Cents != 250 {
		t.Fatalf("UpdateTransaction: %+v, %v", updated, err)
	}

	if _, err := s.UpdateTransaction(context.Background(), "intruder", seeded.ID, storage.TransactionPatch{}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("foreign update: %v", err)
	}
}

func TestDeleteTransaction(t *testing.T) {
	s := New()
	u := seedUser(t, s)
	seeded := s.Seed(core.Transaction{UserID: u.ID, Amount: core.Money{Cents: 100}, Type: core.Expense, Category: "Food"})

	deleted, err := s.DeleteTransaction(context.Background(), u.ID, seeded.ID)
	if err != nil || deleted.ID != seeded.ID {
		t.Fatalf("DeleteTransaction: %+v, %v", deleted, err)
	}
	if _, err := s.DeleteTransaction(context.Background(), u.ID, seeded.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("double delete: %v", err)
	}
}

func TestUserSummary(t *testing.T) {
	s := New()
	u := seedUser(t, s)
	other := core.Transaction{UserID: "someone-else", Amount: core.Money{Cents: 99999}, Type: core.Income, Category: "Noise"}
	s.Seed(other)
	s.Seed(core.Transaction{UserID: u.ID, Amount: core.Money{Cents: 1000}, Type: core.Income, Category: "Salary"})
	s.Seed(core.Transaction{UserID: u.ID, Amount: core.Money{Cents: 300}, Type: core.Expense, Category: "Food"})

	sum, err := s.UserSummary(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("UserSummary: %v", err)
	}
	if sum.TotalIncomeCents != 1000 || sum.TotalExpenseCents != 300 {
		t.Fatalf("summary = %+v", sum)
	}
}
