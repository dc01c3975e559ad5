// Package store is the client-side transaction state container. It holds
// one page of history plus full-history totals, mutates through the API,
// and notifies subscribers after every change.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"fintrack/internal/api"
	"fintrack/internal/apiclient"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/notify"
)

// Filter narrows a transaction listing by type.
type Filter string

const (
	FilterAll     Filter = "all"
	FilterIncome  Filter = "income"
	FilterExpense Filter = "expense"
)

// Valid reports whether the filter is one of the known values.
func (f Filter) Valid() bool {
	switch f {
	case FilterAll, FilterIncome, FilterExpense:
		return true
	}
	return false
}

// Matches reports whether a transaction passes the filter.
func (f Filter) Matches(t core.Transaction) bool {
	switch f {
	case FilterIncome:
		return t.Type == core.Income
	case FilterExpense:
		return t.Type == core.Expense
	}
	return true
}

// Summary holds full-history totals in cents. NetBalance is always
// TotalIncome minus TotalExpenses.
type Summary struct {
	TotalIncomeCents   int64
	TotalExpensesCents int64
	NetBalanceCents    int64
}

// TransactionAPI is the slice of the API client the store needs.
type TransactionAPI interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	ListTransactions(ctx context.Context, page int, filter string) ([]core.Transaction, int, error)
	RecentTransactions(ctx context.Context, limit int) ([]core.Transaction, error)
	Summary(ctx context.Context) (apiclient.Summary, error)
	UpdateTransaction(ctx context.Context, id string, patch api.UpdateTransactionRequest) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
}

// Identity is the slice of the session provider the store needs: the
// current user, and the hook that tears the session down when the server
// rejects our token.
type Identity interface {
	User() (core.User, bool)
	HandleAuthFailure() bool
}

// ErrNotAuthenticated is returned by mutations attempted without a session.
var ErrNotAuthenticated = errors.New("not authenticated")

const (
	recentCacheSize = 8
	recentCacheTTL  = 30 * time.Second
)

// Store caches one page of transactions plus the full-history summary.
// Loads that are superseded by a newer Load are dropped so a slow
// response never overwrites fresher state.
type Store struct {
	api      TransactionAPI
	identity Identity
	notifier notify.Notifier
	logger   *log.Logger
	recent   *cache.LRU[[]core.Transaction]

	mu           sync.Mutex
	transactions []core.Transaction
	summary      Summary
	page         int
	totalPages   int
	filter       Filter
	loadErr      error
	generation   uint64
	subs         []func()
}

// New builds an empty store.
func New(api TransactionAPI, identity Identity, notifier notify.Notifier, logger *log.Logger) *Store {
	return &Store{
		api:      api,
		identity: identity,
		notifier: notifier,
		logger:   logger.WithComponent(log.ComponentStore),
		recent:   cache.NewLRU[[]core.Transaction](recentCacheSize, recentCacheTTL),
		page:     1,
		filter:   FilterAll,
	}
}

// Subscribe registers a callback invoked after every state change.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Transactions returns the cached page, newest first.
func (s *Store) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// Summary returns the cached full-history totals.
func (s *Store) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Page reports the cached page number and total page count.
func (s *Store) Page() (page, totalPages int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page, s.totalPages
}

// Err returns the error of the most recent failed load, cleared by the
// next successful one.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// Load fetches one page of history together with the full-history
// summary. If another Load starts before this one finishes, the slower
// response is dropped.
func (s *Store) Load(ctx context.Context, page int, filter Filter) error {
	if page < 1 {
		page = 1
	}
	if !filter.Valid() {
		filter = FilterAll
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	transactions, totalPages, err := s.api.ListTransactions(ctx, page, string(filter))
	if err != nil {
		return s.failLoad(gen, err)
	}
	summary, err := s.api.Summary(ctx)
	if err != nil {
		return s.failLoad(gen, err)
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("dropping superseded load", log.FieldPage, page)
		return nil
	}
	s.transactions = transactions
	s.summary = Summary{
		TotalIncomeCents:   summary.TotalIncomeCents,
		TotalExpensesCents: summary.TotalExpensesCents,
		NetBalanceCents:    summary.NetBalanceCents,
	}
	s.page = page
	s.totalPages = totalPages
	s.filter = filter
	s.loadErr = nil
	s.mu.Unlock()
	s.notifySubs()
	return nil
}

func (s *Store) failLoad(gen uint64, err error) error {
	s.handleAuthError(err)
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil
	}
	s.loadErr = err
	s.mu.Unlock()
	s.notifySubs()
	s.notifier.Error("Could not load transactions")
	s.logger.Warn("load failed", log.FieldOperation, log.OpList, log.FieldError, err)
	return err
}

// LoadRecent fetches the newest transactions up to limit, serving
// repeated calls from a short-lived cache. It does not touch the cached
// page or summary.
func (s *Store) LoadRecent(ctx context.Context, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = 10
	}
	key := "recent:" + strconv.Itoa(limit)
	if cached, ok := s.recent.Get(key); ok {
		return cached, nil
	}

	transactions, err := s.api.RecentTransactions(ctx, limit)
	if err != nil {
		s.handleAuthError(err)
		s.notifier.Error("Could not load recent transactions")
		s.logger.Warn("recent load failed", log.FieldError, err)
		return nil, err
	}
	s.recent.Set(key, transactions)
	return transactions, nil
}

// Add records a new transaction. It requires a session, prepends the
// stored record to the cached page, and folds it into the summary
// incrementally.
func (s *Store) Add(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	user, ok := s.identity.User()
	if !ok {
		s.notifier.Error("Please log in to add transactions")
		return core.Transaction{}, ErrNotAuthenticated
	}
	t.UserID = user.ID
	if normalized, err := core.NormalizeType(string(t.Type)); err == nil {
		t.Type = normalized
	}
	t = t.Normalize()
	if err := t.Validate(); err != nil {
		s.notifier.Error(err.Error())
		return core.Transaction{}, fmt.Errorf("%w: %s", apiclient.ErrValidation, err)
	}

	created, err := s.api.CreateTransaction(ctx, t)
	if err != nil {
		s.handleAuthError(err)
		s.notifier.Error("Could not save transaction")
		s.logger.Warn("create failed", log.FieldOperation, log.OpCreate, log.FieldError, err)
		return core.Transaction{}, err
	}

	s.mu.Lock()
	s.transactions = append([]core.Transaction{created}, s.transactions...)
	switch created.Type {
	case core.Income:
		s.summary.TotalIncomeCents += created.Amount.Cents
	case core.Expense:
		s.summary.TotalExpensesCents += created.Amount.Cents
	}
	s.summary.NetBalanceCents = s.summary.TotalIncomeCents - s.summary.TotalExpensesCents
	s.mu.Unlock()
	s.recent.Purge()
	s.notifySubs()

	s.notifier.Success("Transaction added")
	s.logger.Info("transaction added",
		log.FieldTransactionID, created.ID,
		log.FieldAmountCents, created.Amount.Cents,
		log.FieldTxType, string(created.Type))
	return created, nil
}

// Update patches a transaction. The cached copy is replaced and the
// summary is re-fetched from the server, since a type or amount change
// cannot be folded in incrementally without the old record's history.
func (s *Store) Update(ctx context.Context, id string, patch api.UpdateTransactionRequest) (core.Transaction, error) {
	updated, err := s.api.UpdateTransaction(ctx, id, patch)
	if err != nil {
		s.handleAuthError(err)
		s.notifier.Error(mutationErrorMessage(err, "Could not update transaction"))
		s.logger.Warn("update failed", log.FieldOperation, log.OpUpdate, log.FieldTransactionID, id, log.FieldError, err)
		return core.Transaction{}, err
	}

	s.mu.Lock()
	for i := range s.transactions {
		if s.transactions[i].ID == updated.ID {
			s.transactions[i] = updated
			break
		}
	}
	s.mu.Unlock()
	s.recent.Purge()
	s.refreshSummary(ctx)
	s.notifySubs()

	s.notifier.Success("Transaction updated")
	return updated, nil
}

// Delete removes a transaction, drops it from the cached page, and
// re-fetches the summary.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteTransaction(ctx, id); err != nil {
		s.handleAuthError(err)
		s.notifier.Error(mutationErrorMessage(err, "Could not delete transaction"))
		s.logger.Warn("delete failed", log.FieldOperation, log.OpDelete, log.FieldTransactionID, id, log.FieldError, err)
		return err
	}

	s.mu.Lock()
	kept := s.transactions[:0]
	for _, t := range s.transactions {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	s.transactions = kept
	s.mu.Unlock()
	s.recent.Purge()
	s.refreshSummary(ctx)
	s.notifySubs()

	s.notifier.Success("Transaction deleted")
	return nil
}

// FilteredView returns the cached page narrowed by type, preserving order.
func (s *Store) FilteredView(filter Filter) []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		if filter.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// refreshSummary replaces the cached totals with the server's view.
// A failure keeps the previous totals and logs; the next Load corrects it.
func (s *Store) refreshSummary(ctx context.Context) {
	summary, err := s.api.Summary(ctx)
	if err != nil {
		s.logger.Warn("summary refresh failed", log.FieldError, err)
		return
	}
	s.mu.Lock()
	s.summary = Summary{
		TotalIncomeCents:   summary.TotalIncomeCents,
		TotalExpensesCents: summary.TotalExpensesCents,
		NetBalanceCents:    summary.NetBalanceCents,
	}
	s.mu.Unlock()
}

func (s *Store) handleAuthError(err error) {
	if errors.Is(err, apiclient.ErrAuth) {
		if s.identity.HandleAuthFailure() {
			s.notifier.Info("Session expired, please log in again")
		}
	}
}

func (s *Store) notifySubs() {
	s.mu.Lock()
	subs := make([]func(), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

func mutationErrorMessage(err error, fallback string) string {
	if errors.Is(err, apiclient.ErrNotFound) {
		return "Transaction not found"
	}
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
