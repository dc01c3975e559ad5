// Package apiclient is a typed HTTP client for the fintrack REST API.
// It translates wire payloads to domain types and non-2xx statuses to
// the package error taxonomy.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"fintrack/internal/api"
	"fintrack/internal/core"
)

const defaultTimeout = 10 * time.Second

// Summary holds full-history totals in cents as reported by the server.
type Summary struct {
	TotalIncomeCents   int64
	TotalExpensesCents int64
	NetBalanceCents    int64
}

// Client talks to a fintrack server. The zero value is not usable; use New.
// SetToken installs the bearer token used on authenticated calls.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL

	mu    sync.RWMutex
	token string
}

// New builds a client for the given base URL, e.g. "http://localhost:8080".
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must include scheme and host", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    u,
	}, nil
}

// SetToken installs the bearer token for subsequent authenticated calls.
// An empty token reverts the client to anonymous.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token reports the currently installed bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// AuthResult is the outcome of a successful signup or login.
type AuthResult struct {
	User    core.User
	Token   string
	Message string
}

// Signup registers a new account and returns the created identity together
// with its session token.
func (c *Client) Signup(ctx context.Context, fullName, email, password string) (AuthResult, error) {
	req := api.CredentialsRequest{FullName: fullName, Email: email, Password: password}
	var resp api.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", nil, req, &resp); err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: userFromPayload(resp.UserData), Token: resp.Token, Message: resp.Message}, nil
}

// Login exchanges credentials for an identity and a session token.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	req := api.CredentialsRequest{Email: email, Password: password}
	var resp api.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, req, &resp); err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: userFromPayload(resp.UserData), Token: resp.Token, Message: resp.Message}, nil
}

// CheckSession validates the installed token and returns the current identity.
func (c *Client) CheckSession(ctx context.Context) (core.User, error) {
	var resp api.CheckResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/check", nil, nil, &resp); err != nil {
		return core.User{}, err
	}
	return userFromPayload(resp.User), nil
}

// UpdateProfile patches the authenticated user's profile fields and returns
// the updated identity.
func (c *Client) UpdateProfile(ctx context.Context, patch api.ProfileUpdateRequest) (core.User, error) {
	var resp api.ProfileResponse
	if err := c.do(ctx, http.MethodPut, "/api/auth/update-profile", nil, patch, &resp); err != nil {
		return core.User{}, err
	}
	return userFromPayload(resp.UserData), nil
}

// CreateTransaction records a transaction and returns the stored record.
func (c *Client) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	req := api.CreateTransactionRequest{
		UserID:      t.UserID,
		Amount:      t.Amount.Dollars(),
		Description: t.Description,
		Type:        string(t.Type),
		Date:        t.Date,
		Category:    t.Category,
	}
	var resp api.TransactionResponse
	if err := c.do(ctx, http.MethodPost, "/api/transactions/addTransaction", nil, req, &resp); err != nil {
		return core.Transaction{}, err
	}
	return transactionFromPayload(resp.Transaction), nil
}

// ListTransactions fetches one page of the user's history, newest first,
// and reports the total page count.
func (c *Client) ListTransactions(ctx context.Context, page int, filter string) ([]core.Transaction, int, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	if filter != "" {
		q.Set("filter", filter)
	}
	var resp api.ListTransactionsResponse
	if err := c.do(ctx, http.MethodGet, "/api/transactions/getTransactions", q, nil, &resp); err != nil {
		return nil, 0, err
	}
	out := make([]core.Transaction, 0, len(resp.Transactions))
	for _, p := range resp.Transactions {
		out = append(out, p.ToTransaction())
	}
	return out, resp.TotalPages, nil
}

// RecentTransactions fetches the most recent transactions, up to limit.
func (c *Client) RecentTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp api.RecentTransactionsResponse
	if err := c.do(ctx, http.MethodGet, "/api/transactions/recent", q, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(resp.Transactions))
	for _, p := range resp.Transactions {
		out = append(out, p.ToTransaction())
	}
	return out, nil
}

// Summary fetches full-history totals for the authenticated user.
func (c *Client) Summary(ctx context.Context) (Summary, error) {
	var resp api.SummaryResponse
	if err := c.do(ctx, http.MethodGet, "/api/transactions/summary", nil, nil, &resp); err != nil {
		return Summary{}, err
	}
	return Summary{
		TotalIncomeCents:   core.MoneyFromDollars(resp.TotalIncome).Cents,
		TotalExpensesCents: core.MoneyFromDollars(resp.TotalExpenses).Cents,
		NetBalanceCents:    core.MoneyFromDollars(resp.NetBalance).Cents,
	}, nil
}

// UpdateTransaction patches a transaction's fields and returns the updated
// record.
func (c *Client) UpdateTransaction(ctx context.Context, id string, patch api.UpdateTransactionRequest) (core.Transaction, error) {
	var resp api.TransactionResponse
	if err := c.do(ctx, http.MethodPut, "/api/transactions/updateTransaction/"+url.PathEscape(id), nil, patch, &resp); err != nil {
		return core.Transaction{}, err
	}
	return transactionFromPayload(resp.Transaction), nil
}

func userFromPayload(p *api.UserPayload) core.User {
	if p == nil {
		return core.User{}
	}
	return p.ToUser()
}

func transactionFromPayload(p *api.TransactionPayload) core.Transaction {
	if p == nil {
		return core.Transaction{}
	}
	return p.ToTransaction()
}

// DeleteTransaction removes a transaction owned by the authenticated user.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/transactions/deleteTransaction/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u, err := c.baseURL.Parse(path)
	if err != nil {
		return fmt.Errorf("building request URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var status api.StatusResponse
		if json.Unmarshal(raw, &status) == nil {
			apiErr.Message = status.Message
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: decoding response: %v", ErrTransport, err)
		}
	}
	return nil
}
