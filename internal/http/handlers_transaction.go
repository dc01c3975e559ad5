package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/api"
	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/storage"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req api.CreateTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	uid := userID(r)
	if req.UserID != "" && req.UserID != uid {
		writeError(w, http.StatusForbidden, "Cannot create transactions for another user")
		return
	}

	txType, err := core.NormalizeType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid transaction type")
		return
	}

	t := core.Transaction{
		UserID:      uid,
		Amount:      core.MoneyFromDollars(req.Amount),
		Type:        txType,
		Category:    strings.TrimSpace(req.Category),
		Description: strings.TrimSpace(req.Description),
		Date:        req.Date,
	}.Normalize()
	if err := t.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.repo.CreateTransaction(r.Context(), t)
	if err != nil {
		writeStorageError(w, r, err, "create_transaction")
		return
	}

	// Keep the user's running balance in step with the new record.
	if err := s.repo.AdjustBalance(r.Context(), uid, created.Signed()); err != nil {
		slog.ErrorContext(r.Context(), "Balance adjustment failed", "error", err, "user_id", uid)
	}

	s.publish(r, events.ActionCreated, created)

	slog.InfoContext(r.Context(), "Transaction created",
		"transaction_id", created.ID,
		"user_id", uid,
		"transaction_type", string(created.Type),
		"amount_cents", created.Amount.Cents)
	writeJSON(w, http.StatusCreated, api.TransactionResponse{
		Success:     true,
		Transaction: payloadPtr(created),
	})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	page := 1
	if v := strings.TrimSpace(r.URL.Query().Get("page")); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}
	filter := storage.TransactionFilter(r.URL.Query().Get("filter"))
	if !filter.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid filter")
		return
	}

	transactions, totalPages, err := s.repo.ListTransactions(r.Context(), userID(r), page, filter)
	if err != nil {
		writeStorageError(w, r, err, "list_transactions")
		return
	}

	writeJSON(w, http.StatusOK, api.ListTransactionsResponse{
		Success:      true,
		Transactions: payloads(transactions),
		TotalPages:   totalPages,
	})
}

func (s *Server) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}

	transactions, err := s.repo.RecentTransactions(r.Context(), userID(r), limit)
	if err != nil {
		writeStorageError(w, r, err, "recent_transactions")
		return
	}

	writeJSON(w, http.StatusOK, api.RecentTransactionsResponse{
		Success:      true,
		Transactions: payloads(transactions),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.repo.UserSummary(r.Context(), userID(r))
	if err != nil {
		writeStorageError(w, r, err, "summary")
		return
	}

	writeJSON(w, http.StatusOK, api.SummaryResponse{
		Success:       true,
		TotalIncome:   float64(sum.TotalIncomeCents) / 100.0,
		TotalExpenses: float64(sum.TotalExpenseCents) / 100.0,
		NetBalance:    float64(sum.TotalIncomeCents-sum.TotalExpenseCents) / 100.0,
	})
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req api.UpdateTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	patch := storage.TransactionPatch{
		Category:    req.Category,
		Description: req.Description,
		Date:        req.Date,
	}
	if req.Amount != nil {
		cents := core.MoneyFromDollars(*req.Amount).Cents
		if cents <= 0 {
			writeError(w, http.StatusBadRequest, "Amount must be a positive number")
			return
		}
		patch.AmountCents = &cents
	}
	if req.Type != nil {
		txType, err := core.NormalizeType(*req.Type)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid transaction type")
			return
		}
		patch.Type = &txType
	}

	updated, err := s.repo.UpdateTransaction(r.Context(), userID(r), id, patch)
	if err != nil {
		writeStorageError(w, r, err, "update_transaction")
		return
	}

	s.publish(r, events.ActionUpdated, updated)

	writeJSON(w, http.StatusOK, api.TransactionResponse{
		Success:     true,
		Transaction: payloadPtr(updated),
	})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.repo.DeleteTransaction(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeStorageError(w, r, err, "delete_transaction")
		return
	}

	s.publish(r, events.ActionDeleted, deleted)

	slog.InfoContext(r.Context(), "Transaction deleted",
		"transaction_id", deleted.ID, "user_id", deleted.UserID)
	writeJSON(w, http.StatusOK, api.StatusResponse{
		Success: true,
		Message: "Transaction deleted successfully",
	})
}

// publish emits a mutation event when a broker is configured. Failures
// are logged, never surfaced: the durable write already succeeded.
func (s *Server) publish(r *http.Request, action string, t core.Transaction) {
	if s.publisher == nil {
		return
	}
	event := events.NewTransactionEvent(action, t.ID, t.UserID, t.Amount.Cents, string(t.Type), t.Category)
	if err := s.publisher.Publish(r.Context(), event); err != nil {
		slog.ErrorContext(r.Context(), "Event publish failed",
			"error", err, "action", action, "transaction_id", t.ID)
	}
}

func payloadPtr(t core.Transaction) *api.TransactionPayload {
	p := api.FromTransaction(t)
	return &p
}

func payloads(transactions []core.Transaction) []api.TransactionPayload {
	out := make([]api.TransactionPayload, len(transactions))
	for i, t := range transactions {
		out[i] = api.FromTransaction(t)
	}
	return out
}
