// Package session owns client-side identity: the auth state machine,
// durable credential storage, and session restoration on startup.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fintrack/internal/api"
	"fintrack/internal/apiclient"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/notify"
)

// State is the provider's auth state.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	}
	return "unknown"
}

// Mode selects which auth endpoint Login calls.
type Mode string

const (
	ModeLogin  Mode = "login"
	ModeSignup Mode = "signup"
)

// Credentials carries the login/signup form fields. FullName is
// signup-only.
type Credentials struct {
	FullName string
	Email    string
	Password string
}

// AuthAPI is the slice of the API client the provider needs.
type AuthAPI interface {
	Signup(ctx context.Context, fullName, email, password string) (apiclient.AuthResult, error)
	Login(ctx context.Context, email, password string) (apiclient.AuthResult, error)
	CheckSession(ctx context.Context) (core.User, error)
	UpdateProfile(ctx context.Context, patch api.ProfileUpdateRequest) (core.User, error)
	SetToken(token string)
}

// ErrNotAuthenticated is returned by operations that require a session.
var ErrNotAuthenticated = errors.New("not authenticated")

// Provider is the session/identity provider. It moves between Anonymous,
// Authenticating and Authenticated, persists the token through a
// CredentialStorage, and notifies subscribers on every state change.
type Provider struct {
	api      AuthAPI
	creds    CredentialStorage
	notifier notify.Notifier
	logger   *log.Logger

	mu    sync.Mutex
	state State
	user  *core.User
	token string
	subs  []func()
}

// NewProvider builds a provider in the Anonymous state.
func NewProvider(api AuthAPI, creds CredentialStorage, notifier notify.Notifier, logger *log.Logger) *Provider {
	return &Provider{
		api:      api,
		creds:    creds,
		notifier: notifier,
		logger:   logger.WithComponent(log.ComponentSession),
	}
}

// State reports the current auth state.
func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// User returns the current identity when authenticated.
func (p *Provider) User() (core.User, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.user == nil {
		return core.User{}, false
	}
	return *p.user, true
}

// Subscribe registers a callback invoked after every state change.
func (p *Provider) Subscribe(fn func()) {
	p.mu.Lock()
	p.subs = append(p.subs, fn)
	p.mu.Unlock()
}

// Login authenticates with the given mode. During the call the provider
// is Authenticating; on success the token is persisted and the provider
// becomes Authenticated, on failure it returns to its previous state.
func (p *Provider) Login(ctx context.Context, mode Mode, creds Credentials) error {
	p.mu.Lock()
	prev := p.state
	p.state = Authenticating
	p.mu.Unlock()
	p.notifySubs()

	var result apiclient.AuthResult
	var err error
	switch mode {
	case ModeSignup:
		result, err = p.api.Signup(ctx, creds.FullName, creds.Email, creds.Password)
	case ModeLogin:
		result, err = p.api.Login(ctx, creds.Email, creds.Password)
	default:
		err = fmt.Errorf("unknown auth mode %q", mode)
	}
	if err != nil {
		p.mu.Lock()
		p.state = prev
		p.mu.Unlock()
		p.notifySubs()
		p.notifier.Error(authErrorMessage(err))
		p.logger.Warn("authentication failed", log.FieldOperation, string(mode), log.FieldError, err)
		return err
	}

	p.api.SetToken(result.Token)
	if err := p.creds.Save(result.Token); err != nil {
		// Session still works for this run; it just won't survive a restart.
		p.logger.Warn("persisting session token failed", log.FieldError, err)
	}

	p.mu.Lock()
	p.state = Authenticated
	u := result.User
	p.user = &u
	p.token = result.Token
	p.mu.Unlock()
	p.notifySubs()

	msg := result.Message
	if msg == "" {
		msg = "Login successful"
	}
	p.notifier.Success(msg)
	p.logger.Info("authenticated", log.FieldOperation, string(mode), log.FieldUserID, result.User.ID)
	return nil
}

// CheckSession restores a persisted session. A missing token leaves the
// provider Anonymous. A rejected token clears the stored credential; a
// transient failure keeps it for the next attempt.
func (p *Provider) CheckSession(ctx context.Context) error {
	token, err := p.creds.Load()
	if err != nil {
		return fmt.Errorf("loading stored session: %w", err)
	}
	if token == "" {
		return nil
	}

	p.api.SetToken(token)
	p.mu.Lock()
	p.token = token
	p.mu.Unlock()

	user, err := p.api.CheckSession(ctx)
	if errors.Is(err, apiclient.ErrAuth) || errors.Is(err, apiclient.ErrNotFound) {
		p.HandleAuthFailure()
		p.logger.Info("stored session rejected", log.FieldOperation, log.OpCheck)
		return nil
	}
	if err != nil {
		// Keep the token; the server may just be unreachable.
		p.logger.Warn("session check failed", log.FieldOperation, log.OpCheck, log.FieldError, err)
		return err
	}

	p.mu.Lock()
	p.state = Authenticated
	p.user = &user
	p.mu.Unlock()
	p.notifySubs()
	p.logger.Info("session restored", log.FieldUserID, user.ID)
	return nil
}

// UpdateProfile patches the identity's profile fields and merges the
// server's view back into the session.
func (p *Provider) UpdateProfile(ctx context.Context, patch api.ProfileUpdateRequest) error {
	if _, ok := p.User(); !ok {
		return ErrNotAuthenticated
	}
	user, err := p.api.UpdateProfile(ctx, patch)
	if err != nil {
		if errors.Is(err, apiclient.ErrAuth) {
			p.HandleAuthFailure()
		}
		p.notifier.Error(authErrorMessage(err))
		return err
	}
	p.mu.Lock()
	p.user = &user
	p.mu.Unlock()
	p.notifySubs()
	p.notifier.Success("Profile updated")
	return nil
}

// Logout drops the session locally. There is no server-side revocation;
// the token simply expires.
func (p *Provider) Logout() {
	if p.HandleAuthFailure() {
		p.notifier.Info("Logged out")
		p.logger.Info("logged out", log.FieldOperation, log.OpLogout)
	}
}

// HandleAuthFailure clears the identity and the persisted credential.
// It is idempotent: repeated rejections clear the session once; later
// calls report false and do nothing.
func (p *Provider) HandleAuthFailure() bool {
	p.mu.Lock()
	if p.state == Anonymous && p.user == nil && p.token == "" {
		p.mu.Unlock()
		return false
	}
	p.state = Anonymous
	p.user = nil
	p.token = ""
	p.mu.Unlock()

	p.api.SetToken("")
	if err := p.creds.Clear(); err != nil {
		p.logger.Warn("clearing stored session failed", log.FieldError, err)
	}
	p.notifySubs()
	return true
}

func (p *Provider) notifySubs() {
	p.mu.Lock()
	subs := make([]func(), len(p.subs))
	copy(subs, p.subs)
	p.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// authErrorMessage prefers the server's message when one is available.
func authErrorMessage(err error) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Something went wrong. Please try again."
}
