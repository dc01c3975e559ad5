// Package memory is the in-process storage backend: the default for
// local development and the double the HTTP handler tests run against.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type userRecord struct {
	user core.User
	hash string
}

// Store keeps users and transactions in maps guarded by a single mutex.
type Store struct {
	mu           sync.Mutex
	users        map[string]*userRecord
	byEmail      map[string]string
	transactions map[string]core.Transaction
	seq          int64
	order        map[string]int64
}

func New() *Store {
	return &Store{
		users:        make(map[string]*userRecord),
		byEmail:      make(map[string]string),
		transactions: make(map[string]core.Transaction),
		order:        make(map[string]int64),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) CreateUser(_ context.Context, u core.User, passwordHash string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(u.Email))
	if _, taken := s.byEmail[email]; taken {
		return core.User{}, storage.ErrDuplicateEmail
	}
	u.ID = uuid.NewString()
	u.Email = email
	s.users[u.ID] = &userRecord{user: u, hash: passwordHash}
	s.byEmail[email] = u.ID
	return u, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (core.User, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return core.User{}, "", storage.ErrNotFound
	}
	rec := s.users[id]
	return rec.user, rec.hash, nil
}

func (s *Store) UserByID(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return core.User{}, storage.ErrNotFound
	}
	return rec.user, nil
}

func (s *Store) UpdateUser(_ context.Context, id string, patch storage.UserPatch) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return core.User{}, storage.ErrNotFound
	}
	if patch.FullName != nil {
		rec.user.FullName = *patch.FullName
	}
	if patch.ProfilePic != nil {
		rec.user.ProfilePic = *patch.ProfilePic
	}
	return rec.user, nil
}

func (s *Store) AdjustBalance(_ context.Context, id string, deltaCents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	rec.user.BalanceCents += deltaCents
	return nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = uuid.NewString()
	s.seq++
	s.order[t.ID] = s.seq
	s.transactions[t.ID] = t
	return t, nil
}

func (s *Store) ListTransactions(_ context.Context, userID string, page int, filter storage.TransactionFilter) ([]core.Transaction, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.userTransactions(userID, filter)
	totalPages := storage.TotalPages(len(all))
	if page < 1 {
		page = 1
	}
	start := (page - 1) * storage.PageSize
	if start >= len(all) {
		return []core.Transaction{}, totalPages, nil
	}
	end := start + storage.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], totalPages, nil
}

func (s *Store) RecentTransactions(_ context.Context, userID string, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.userTransactions(userID, storage.FilterAll)
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *Store) UpdateTransaction(_ context.Context, userID, id string, patch storage.TransactionPatch) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, storage.ErrNotFound
	}
	t = storage.ApplyPatch(t, patch)
	s.transactions[id] = t
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, storage.ErrNotFound
	}
	delete(s.transactions, id)
	delete(s.order, id)
	return t, nil
}

func (s *Store) UserSummary(_ context.Context, userID string) (storage.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum storage.Summary
	for _, t := range s.transactions {
		if t.UserID != userID {
			continue
		}
		switch t.Type {
		case core.Income:
			sum.TotalIncomeCents += t.Amount.Cents
		case core.Expense:
			sum.TotalExpenseCents += t.Amount.Cents
		}
	}
	return sum, nil
}

// userTransactions returns a filtered copy sorted newest first, creation
// order breaking date ties so freshly added records surface first.
func (s *Store) userTransactions(userID string, filter storage.TransactionFilter) []core.Transaction {
	var out []core.Transaction
	for _, t := range s.transactions {
		if t.UserID == userID && filter.Matches(t.Type) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return s.order[out[i].ID] > s.order[out[j].ID]
	})
	return out
}

var _ storage.Repository = (*Store)(nil)

// Seed inserts a transaction with a fixed id and date, for tests.
func (s *Store) Seed(t core.Transaction) core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Date.IsZero() {
		t.Date = time.Now()
	}
	s.seq++
	s.order[t.ID] = s.seq
	s.transactions[t.ID] = t
	return t
}
