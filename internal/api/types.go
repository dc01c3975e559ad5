// Package api defines the JSON wire types of the REST contract, shared
// by the server handlers and the client. Amounts travel as decimal
// dollars and are converted to cents at both edges.
package api

import (
	"math"
	"time"

	"fintrack/internal/core"
)

// UserPayload mirrors the userData/user objects of the auth endpoints.
type UserPayload struct {
	ID         string  `json:"id"`
	FullName   string  `json:"fullName"`
	Email      string  `json:"email"`
	ProfilePic string  `json:"profilePic,omitempty"`
	Balance    float64 `json:"balance"`
}

// TransactionPayload is the canonical transaction record on the wire.
type TransactionPayload struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Amount      float64   `json:"amount"`
	Type        string    `json:"type"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

// CredentialsRequest is the signup/login body; FullName is signup-only.
type CredentialsRequest struct {
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse answers signup and login.
type AuthResponse struct {
	Success  bool         `json:"success"`
	Token    string       `json:"token,omitempty"`
	UserData *UserPayload `json:"userData,omitempty"`
	Message  string       `json:"message,omitempty"`
}

// CheckResponse answers the session check.
type CheckResponse struct {
	Success bool         `json:"success"`
	User    *UserPayload `json:"user,omitempty"`
	Message string       `json:"message,omitempty"`
}

// ProfileUpdateRequest carries partial profile changes.
type ProfileUpdateRequest struct {
	FullName   *string `json:"fullName,omitempty"`
	ProfilePic *string `json:"profilePic,omitempty"`
}

// ProfileResponse answers a profile update.
type ProfileResponse struct {
	Success  bool         `json:"success"`
	UserData *UserPayload `json:"userData,omitempty"`
	Message  string       `json:"message,omitempty"`
}

// CreateTransactionRequest is the addTransaction body. Date is client
// supplied, not server time.
type CreateTransactionRequest struct {
	UserID      string    `json:"userId,omitempty"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type"`
	Date        time.Time `json:"date"`
	Category    string    `json:"category"`
}

// UpdateTransactionRequest carries partial transaction changes.
type UpdateTransactionRequest struct {
	Amount      *float64   `json:"amount,omitempty"`
	Description *string    `json:"description,omitempty"`
	Type        *string    `json:"type,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	Category    *string    `json:"category,omitempty"`
}

// TransactionResponse wraps a single canonical record.
type TransactionResponse struct {
	Success     bool                `json:"success"`
	Transaction *TransactionPayload `json:"transaction,omitempty"`
	Message     string              `json:"message,omitempty"`
}

// ListTransactionsResponse answers the paginated listing.
type ListTransactionsResponse struct {
	Success      bool                 `json:"success"`
	Transactions []TransactionPayload `json:"transactions"`
	TotalPages   int                  `json:"totalPages"`
	Message      string               `json:"message,omitempty"`
}

// RecentTransactionsResponse answers the recent-N listing.
type RecentTransactionsResponse struct {
	Success      bool                 `json:"success"`
	Transactions []TransactionPayload `json:"transactions"`
	Message      string               `json:"message,omitempty"`
}

// SummaryResponse is the full-history aggregate for the authenticated
// user, independent of pagination.
type SummaryResponse struct {
	Success       bool    `json:"success"`
	TotalIncome   float64 `json:"totalIncome"`
	TotalExpenses float64 `json:"totalExpenses"`
	NetBalance    float64 `json:"netBalance"`
	Message       string  `json:"message,omitempty"`
}

// StatusResponse is the bare success/message envelope (deletes, errors).
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// FromTransaction converts a domain record to its wire form.
func FromTransaction(t core.Transaction) TransactionPayload {
	return TransactionPayload{
		ID:          t.ID,
		UserID:      t.UserID,
		Amount:      t.Amount.Dollars(),
		Type:        string(t.Type),
		Category:    t.Category,
		Description: t.Description,
		Date:        t.Date,
	}
}

// ToTransaction converts a wire record back to the domain form.
func (p TransactionPayload) ToTransaction() core.Transaction {
	return core.Transaction{
		ID:          p.ID,
		UserID:      p.UserID,
		Amount:      core.MoneyFromDollars(p.Amount),
		Type:        core.TransactionType(p.Type),
		Category:    p.Category,
		Description: p.Description,
		Date:        p.Date,
	}
}

// FromUser converts a domain user to its wire form.
func FromUser(u core.User) *UserPayload {
	return &UserPayload{
		ID:         u.ID,
		FullName:   u.FullName,
		Email:      u.Email,
		ProfilePic: u.ProfilePic,
		Balance:    float64(u.BalanceCents) / 100.0,
	}
}

// ToUser converts a wire user back to the domain form.
func (p UserPayload) ToUser() core.User {
	return core.User{
		ID:           p.ID,
		FullName:     p.FullName,
		Email:        p.Email,
		ProfilePic:   p.ProfilePic,
		BalanceCents: int64(math.Round(p.Balance * 100)),
	}
}
