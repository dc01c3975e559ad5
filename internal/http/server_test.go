package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fintrack/internal/api"
	"fintrack/internal/auth"
	"fintrack/internal/storage/memory"
)

func newTestServer() (*Server, *memory.Store) {
	repo := memory.New()
	tokens := auth.NewTokenIssuer("test-secret-test-secret", time.Hour)
	return NewServer(":0", repo, tokens, nil), repo
}

func doJSON(srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func signupUser(t *testing.T, srv *Server, email string) (token, userID string) {
	t.Helper()
	rr := doJSON(srv, http.MethodPost, "/api/auth/signup", "", api.CredentialsRequest{
		FullName: "Test User",
		Email:    email,
		Password: "secret1",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup status = %d: %s", rr.Code, rr.Body.String())
	}
	var resp api.AuthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("signup decode: %v", err)
	}
	if !resp.Success || resp.Token == "" || resp.UserData == nil {
		t.Fatalf("signup response = %+v", resp)
	}
	return resp.Token, resp.UserData.ID
}

func addTransaction(t *testing.T, srv *Server, token string, amount float64, txType, category string) api.TransactionPayload {
	t.Helper()
	rr := doJSON(srv, http.MethodPost, "/api/transactions/addTransaction", token, api.CreateTransactionRequest{
		Amount:   amount,
		Type:     txType,
		Category: category,
		Date:     time.Now(),
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("addTransaction status = %d: %s", rr.Code, rr.Body.String())
	}
	var resp api.TransactionResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.Transaction == nil {
		t.Fatalf("addTransaction response = %+v", resp)
	}
	return *resp.Transaction
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer()
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doJSON(srv, http.MethodGet, path, "", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rr.Code)
		}
	}
}

func TestSignupLoginCheckRoundTrip(t *testing.T) {
	srv, _ := newTestServer()
	signupUser(t, srv, "round@trip.com")

	rr := doJSON(srv, http.MethodPost, "/api/auth/login", "", api.CredentialsRequest{
		Email:    "round@trip.com",
		Password: "secret1",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rr.Code, rr.Body.String())
	}
	var login api.AuthResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &login)
	if login.Message != "Login successful" || login.Token == "" {
		t.Fatalf("login response = %+v", login)
	}

	rr = doJSON(srv, http.MethodGet, "/api/auth/check", login.Token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("check status = %d", rr.Code)
	}
	var check api.CheckResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &check)
	if check.User == nil || check.User.Email != "round@trip.com" {
		t.Fatalf("check response = %+v", check)
	}
}

func TestSignupRejectsBadCredentials(t *testing.T) {
	srv, _ := newTestServer()

	cases := []api.CredentialsRequest{
		{Email: "no-at-sign", Password: "secret1"},
		{Email: "a@b.com", Password: "short"},
	}
	for _, req := range cases {
		rr := doJSON(srv, http.MethodPost, "/api/auth/signup", "", req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%+v status = %d, want 400", req, rr.Code)
		}
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	srv, _ := newTestServer()
	signupUser(t, srv, "dup@example.com")

	rr := doJSON(srv, http.MethodPost, "/api/auth/signup", "", api.CredentialsRequest{
		FullName: "Other",
		Email:    "dup@example.com",
		Password: "secret1",
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate signup status = %d", rr.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	srv, _ := newTestServer()
	signupUser(t, srv, "user@example.com")

	rr := doJSON(srv, http.MethodPost, "/api/auth/login", "", api.CredentialsRequest{
		Email:    "user@example.com",
		Password: "wrong-password",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	var resp api.StatusResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	// The same message covers unknown email and wrong password.
	if resp.Message != "Invalid email or password" {
		t.Fatalf("message = %q", resp.Message)
	}
}

func TestAuthHeaderSchemes(t *testing.T) {
	srv, _ := newTestServer()
	token, _ := signupUser(t, srv, "headers@example.com")

	// Canonical Bearer scheme.
	rr := doJSON(srv, http.MethodGet, "/api/auth/check", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("bearer status = %d", rr.Code)
	}

	// Legacy bare token header.
	req := httptest.NewRequest(http.MethodGet, "/api/auth/check", nil)
	req.Header.Set("token", token)
	legacy := httptest.NewRecorder()
	srv.Handler.ServeHTTP(legacy, req)
	if legacy.Code != http.StatusOK {
		t.Fatalf("legacy header status = %d", legacy.Code)
	}

	// No credential at all.
	rr = doJSON(srv, http.MethodGet, "/api/auth/check", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d", rr.Code)
	}

	// Garbage token.
	rr = doJSON(srv, http.MethodGet, "/api/auth/check", "not-a-jwt", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d", rr.Code)
	}
}

func TestCreateTransactionUpdatesBalance(t *testing.T) {
	srv, _ := newTestServer()
	token, _ := signupUser(t, srv, "balance@example.com")

	addTransaction(t, srv, token, 100.00, "income", "Salary")
	addTransaction(t, srv, token, 30.50, "expense", "Food")

	rr := doJSON(srv, http.MethodGet, "/api/auth/check", token, nil)
	var check api.CheckResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &check)
	if check.User.Balance != 69.50 {
		t.Fatalf("balance = %v, want 69.50", check.User.Balance)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	srv, _ := newTestServer()
	token, _ := signupUser(t, srv, "validate@example.com")

	cases := []api.CreateTransactionRequest{
		{Amount: 0, Type: "expense", Category: "Food", Date: time.Now()},
		{Amount: -5, Type: "expense", Category: "Food", Date: time.Now()},
		{Amount: 10, Type: "transfer", Category: "Food", Date: time.Now()},
		{Amount: 10, Type: "expense", Category: "", Date: time.Now()},
		{Amount: 10, Type: "expense", Category: "Food"}, // zero date
	}
	for i, req := range cases {
		rr := doJSON(srv, http.MethodPost, "/api/transactions/addTransaction", token, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("case %d status = %d, want 400", i, rr.Code)
		}
	}
}

func TestCreateTransactionNormalizesType(t *testing.T) {
	srv, _ := newTestServer()
	token, _ := signupUser(t, srv, "normalize@example.com")

	created := addTransaction(t, srv, token, 10, "EXPENSE", "Food")
	if created.Type != "Expense" {
		t.Fatalf("type = %q, want Expense", created.Type)
	}
	if created.Description != "No description" {
		t.Fatalf("description = %q", created.Description)
	}
}

func TestCreateTransactionForeignUser(t *testing.T) {
	srv, _ := newTestServer()
	token, _ := signupUser(t, srv, "owner@example.com")

	rr := doJSON(srv, http.MethodPost, "/api/transactions/addTransaction", token, api.CreateTransactionRequest{
		UserID:   "someone-else",
		Amount:   10,
		Type:     "expense",
		Category: "Food",
		Date:     time.Now(),
	})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}
}

func TestListTransactions(t *testing.T) {
	srv, _ := newTestServer()
	token, _ := signupUser(t, srv, "list@example.com")
	addTransaction(t, srv, token, 100, "income", "Salary")
	addTransaction(t, srv, token, 20, "expense", "Food")

	rr := doJSON(srv, http.MethodGet, "/api/transactions/getTransactions?page=1&filter=expense", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	var resp api.ListTransactionsResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if len(resp.Transactions) != 1 || resp.Transactions[0].Type != "Expense" {
		t.Fatalf("filtered list = %+v", resp.Transactions)
	}
	if resp.TotalPages != 1 {
		t.Fatalf("totalPages = %d", resp.TotalPages)
	}

	rr = doJSON(srv, http.MethodGet, "/api/transactions/getTransactions?filter=bogus", token, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid filter status = %d", rr.Code)
	}
}

func TestSummaryCoversFullHistory(t *testing.T) {
	srv, _ := newTestServer()
	token, _ := signupUser(t, srv, "summary@example.com")

	// More records than one page holds.
	for i := 0; i < 12; i++ {
		addTransaction(t, srv, token, 10, "expense", fmt.Sprintf("Cat%d", i))
	}
	addTransaction(t, srv, token, 500, "income", "Salary")

	rr := doJSON(srv, http.MethodGet, "/api/transactions/summary", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("summary status = %d", rr.Code)
	}
	var resp api.SummaryResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.TotalIncome != 500 || resp.TotalExpenses != 120 {
		t.Fatalf("summary = %+v", resp)
	}
	if resp.NetBalance != 380 {
		t.Fatalf("net = %v", resp.NetBalance)
	}
}

func TestUpdateTransaction(t *testing.T) {
	srv, _ := newTestServer()
	token, _ := signupUser(t, srv, "update@example.com")
	created := addTransaction(t, srv, token, 10, "expense", "Food")

	amount := 25.50
	category := "Groceries"
	rr := doJSON(srv, http.MethodPut, "/api/transactions/updateTransaction/"+created.ID, token, api.UpdateTransactionRequest{
		Amount:   &amount,
		Category: &category,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rr.Code, rr.Body.String())
	}
	var resp api.TransactionResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.Transaction.Amount != 25.50 || resp.Transaction.Category != "Groceries" {
		t.Fatalf("updated = %+v", resp.Transaction)
	}
	// Untouched fields survive.
	if resp.Transaction.Type != "Expense" {
		t.Fatalf("type changed: %+v", resp.Transaction)
	}

	bad := -5.0
	rr = doJSON(srv, http.MethodPut, "/api/transactions/updateTransaction/"+created.ID, token, api.UpdateTransactionRequest{
		Amount: &bad,
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("negative amount status = %d", rr.Code)
	}
}

func TestUpdateDeleteOwnership(t *testing.T) {
	srv, _ := newTestServer()
	ownerToken, _ := signupUser(t, srv, "victim@example.com")
	intruderToken, _ := signupUser(t, srv, "intruder@example.com")
	created := addTransaction(t, srv, ownerToken, 10, "expense", "Food")

	category := "Hijacked"
	rr := doJSON(srv, http.MethodPut, "/api/transactions/updateTransaction/"+created.ID, intruderToken, api.UpdateTransactionRequest{
		Category: &category,
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("foreign update status = %d, want 404", rr.Code)
	}

	rr = doJSON(srv, http.MethodDelete, "/api/transactions/deleteTransaction/"+created.ID, intruderToken, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("foreign delete status = %d, want 404", rr.Code)
	}
}

func TestDeleteTransaction(t *testing.T) {
	srv, _ := newTestServer()
	token, _ := signupUser(t, srv, "delete@example.com")
	created := addTransaction(t, srv, token, 10, "expense", "Food")

	rr := doJSON(srv, http.MethodDelete, "/api/transactions/deleteTransaction/"+created.ID, token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rr.Code)
	}
	var resp api.StatusResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if !resp.Success || resp.Message != "Transaction deleted successfully" {
		t.Fatalf("delete response = %+v", resp)
	}

	rr = doJSON(srv, http.MethodDelete, "/api/transactions/deleteTransaction/"+created.ID, token, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("double delete status = %d", rr.Code)
	}
}

func TestUpdateProfile(t *testing.T) {
	srv, _ := newTestServer()
	token, _ := signupUser(t, srv, "profile@example.com")

	name := "Renamed User"
	rr := doJSON(srv, http.MethodPut, "/api/auth/update-profile", token, api.ProfileUpdateRequest{
		FullName: &name,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("update profile status = %d", rr.Code)
	}
	var resp api.ProfileResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.UserData.FullName != "Renamed User" || resp.UserData.Email != "profile@example.com" {
		t.Fatalf("profile = %+v", resp.UserData)
	}
}

func TestRateLimitKeyedOnConnectionAddress(t *testing.T) {
	srv, _ := newTestServer()

	// Every request comes from the same connection address but claims a
	// different forwarded address. The forwarded header must not open a
	// fresh bucket.
	for i := 0; i < 60; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/transactions/addTransaction", nil)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("request %d status = %d, want 401", i, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/transactions/addTransaction", nil)
	req.Header.Set("X-Forwarded-For", "10.0.1.1")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("request 61 status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After = %q", rr.Header().Get("Retry-After"))
	}
}

func TestRemoteHost(t *testing.T) {
	cases := []struct {
		addr string
		want string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"192.0.2.1", "192.0.2.1"},
	}
	for _, c := range cases {
		if got := remoteHost(c.addr); got != c.want {
			t.Fatalf("remoteHost(%q) = %q, want %q", c.addr, got, c.want)
		}
	}
}
