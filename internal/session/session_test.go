package session

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"fintrack/internal/api"
	"fintrack/internal/apiclient"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/notify"
)

type fakeAuthAPI struct {
	token     string
	checkErr  error
	loginErr  error
	user      core.User
	setTokens []string
}

func (f *fakeAuthAPI) Signup(_ context.Context, fullName, email, _ string) (apiclient.AuthResult, error) {
	if f.loginErr != nil {
		return apiclient.AuthResult{}, f.loginErr
	}
	return apiclient.AuthResult{
		User:    core.User{ID: "u1", FullName: fullName, Email: email},
		Token:   "signup-token",
		Message: "Account created successfully",
	}, nil
}

func (f *fakeAuthAPI) Login(_ context.Context, email, _ string) (apiclient.AuthResult, error) {
	if f.loginErr != nil {
		return apiclient.AuthResult{}, f.loginErr
	}
	return apiclient.AuthResult{
		User:    core.User{ID: "u1", Email: email},
		Token:   "login-token",
		Message: "Login successful",
	}, nil
}

func (f *fakeAuthAPI) CheckSession(context.Context) (core.User, error) {
	if f.checkErr != nil {
		return core.User{}, f.checkErr
	}
	return f.user, nil
}

func (f *fakeAuthAPI) UpdateProfile(_ context.Context, patch api.ProfileUpdateRequest) (core.User, error) {
	u := f.user
	if patch.FullName != nil {
		u.FullName = *patch.FullName
	}
	return u, nil
}

func (f *fakeAuthAPI) SetToken(token string) {
	f.token = token
	f.setTokens = append(f.setTokens, token)
}

type countingCreds struct {
	token  string
	saves  int
	clears int
}

func (c *countingCreds) Load() (string, error) { return c.token, nil }
func (c *countingCreds) Save(token string) error {
	c.token = token
	c.saves++
	return nil
}
func (c *countingCreds) Clear() error {
	c.token = ""
	c.clears++
	return nil
}

func testLogger() *applog.Logger {
	return applog.New(applog.Config{Level: slog.LevelError, Component: applog.ComponentSession})
}

func newTestProvider(api AuthAPI, creds CredentialStorage) *Provider {
	return NewProvider(api, creds, notify.Discard{}, testLogger())
}

func TestLoginHappyPath(t *testing.T) {
	fakeAPI := &fakeAuthAPI{}
	creds := &countingCreds{}
	p := newTestProvider(fakeAPI, creds)

	states := []State{}
	p.Subscribe(func() { states = append(states, p.State()) })

	err := p.Login(context.Background(), ModeLogin, Credentials{Email: "a@b.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if p.State() != Authenticated {
		t.Fatalf("state = %v", p.State())
	}
	user, ok := p.User()
	if !ok || user.ID != "u1" {
		t.Fatalf("user = %+v, %v", user, ok)
	}
	if creds.saves != 1 || creds.token != "login-token" {
		t.Fatalf("token not persisted: %+v", creds)
	}
	if fakeAPI.token != "login-token" {
		t.Fatalf("client token = %q", fakeAPI.token)
	}
	// Authenticating first, Authenticated after.
	if len(states) < 2 || states[0] != Authenticating || states[len(states)-1] != Authenticated {
		t.Fatalf("observed states = %v", states)
	}
}

func TestSignupMode(t *testing.T) {
	p := newTestProvider(&fakeAuthAPI{}, &countingCreds{})
	err := p.Login(context.Background(), ModeSignup, Credentials{FullName: "New User", Email: "n@b.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if user, _ := p.User(); user.FullName != "New User" {
		t.Fatalf("user = %+v", user)
	}
}

func TestLoginFailureRestoresState(t *testing.T) {
	fakeAPI := &fakeAuthAPI{loginErr: &apiclient.APIError{Status: 401, Message: "Invalid email or password"}}
	creds := &countingCreds{}
	p := newTestProvider(fakeAPI, creds)

	err := p.Login(context.Background(), ModeLogin, Credentials{Email: "a@b.com", Password: "wrong"})
	if err == nil {
		t.Fatalf("expected login failure")
	}
	if p.State() != Anonymous {
		t.Fatalf("state = %v, want Anonymous", p.State())
	}
	if creds.saves != 0 {
		t.Fatalf("failed login persisted a token")
	}
}

func TestCheckSessionNoStoredToken(t *testing.T) {
	fakeAPI := &fakeAuthAPI{}
	p := newTestProvider(fakeAPI, &countingCreds{})

	if err := p.CheckSession(context.Background()); err != nil {
		t.Fatalf("CheckSession: %v", err)
	}
	if p.State() != Anonymous {
		t.Fatalf("state = %v", p.State())
	}
	if len(fakeAPI.setTokens) != 0 {
		t.Fatalf("no stored token but SetToken called: %v", fakeAPI.setTokens)
	}
}

func TestCheckSessionRestores(t *testing.T) {
	fakeAPI := &fakeAuthAPI{user: core.User{ID: "u1", Email: "a@b.com"}}
	creds := &countingCreds{token: "stored-token"}
	p := newTestProvider(fakeAPI, creds)

	if err := p.CheckSession(context.Background()); err != nil {
		t.Fatalf("CheckSession: %v", err)
	}
	if p.State() != Authenticated {
		t.Fatalf("state = %v", p.State())
	}
	if fakeAPI.token != "stored-token" {
		t.Fatalf("client token = %q", fakeAPI.token)
	}
}

func TestCheckSessionRejectedClearsOnce(t *testing.T) {
	fakeAPI := &fakeAuthAPI{checkErr: &apiclient.APIError{Status: 401}}
	creds := &countingCreds{token: "expired-token"}
	p := newTestProvider(fakeAPI, creds)

	if err := p.CheckSession(context.Background()); err != nil {
		t.Fatalf("rejected session should not error: %v", err)
	}
	if p.State() != Anonymous {
		t.Fatalf("state = %v", p.State())
	}
	if creds.clears != 1 {
		t.Fatalf("clears = %d, want 1", creds.clears)
	}

	// Repeated auth failures must not clear again.
	if p.HandleAuthFailure() {
		t.Fatalf("second auth failure reported a clear")
	}
	if creds.clears != 1 {
		t.Fatalf("clears = %d after repeat, want 1", creds.clears)
	}
}

func TestCheckSessionTransientErrorKeepsToken(t *testing.T) {
	fakeAPI := &fakeAuthAPI{checkErr: apiclient.ErrTransport}
	creds := &countingCreds{token: "stored-token"}
	p := newTestProvider(fakeAPI, creds)

	if err := p.CheckSession(context.Background()); !errors.Is(err, apiclient.ErrTransport) {
		t.Fatalf("err = %v", err)
	}
	if creds.clears != 0 || creds.token != "stored-token" {
		t.Fatalf("transient failure cleared the stored token: %+v", creds)
	}
}

func TestUpdateProfileMergesIdentity(t *testing.T) {
	fakeAPI := &fakeAuthAPI{user: core.User{ID: "u1", FullName: "Old Name"}}
	creds := &countingCreds{token: "stored-token"}
	p := newTestProvider(fakeAPI, creds)
	if err := p.CheckSession(context.Background()); err != nil {
		t.Fatalf("CheckSession: %v", err)
	}

	name := "New Name"
	if err := p.UpdateProfile(context.Background(), api.ProfileUpdateRequest{FullName: &name}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if user, _ := p.User(); user.FullName != "New Name" {
		t.Fatalf("user = %+v", user)
	}
}

func TestUpdateProfileRequiresSession(t *testing.T) {
	p := newTestProvider(&fakeAuthAPI{}, &countingCreds{})
	name := "x"
	if err := p.UpdateProfile(context.Background(), api.ProfileUpdateRequest{FullName: &name}); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v", err)
	}
}

func TestLogoutIsLocal(t *testing.T) {
	fakeAPI := &fakeAuthAPI{}
	creds := &countingCreds{}
	p := newTestProvider(fakeAPI, creds)
	if err := p.Login(context.Background(), ModeLogin, Credentials{Email: "a@b.com", Password: "secret1"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	p.Logout()
	if p.State() != Anonymous {
		t.Fatalf("state = %v", p.State())
	}
	if _, ok := p.User(); ok {
		t.Fatalf("identity survived logout")
	}
	if creds.clears != 1 || creds.token != "" {
		t.Fatalf("credential not cleared: %+v", creds)
	}
	if fakeAPI.token != "" {
		t.Fatalf("client token not cleared: %q", fakeAPI.token)
	}
}

func TestFileCredentialStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials")
	s := NewFileCredentialStore(path)

	if token, err := s.Load(); err != nil || token != "" {
		t.Fatalf("empty load = %q, %v", token, err)
	}
	if err := s.Save("my-token"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if token, err := s.Load(); err != nil || token != "my-token" {
		t.Fatalf("load = %q, %v", token, err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if token, _ := s.Load(); token != "" {
		t.Fatalf("token survived clear: %q", token)
	}
	// Clearing twice is fine.
	if err := s.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}
