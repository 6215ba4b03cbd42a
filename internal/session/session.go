// Package session owns the admin access token and enforces the
// redirect-to-login rule on absence, expiry and logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/funkctl/internal/models"
)

// ErrLoginRequired is returned once the operator has been sent to login.
var ErrLoginRequired = errors.New("login required")

// Redirect reasons passed to the RedirectFunc.
const (
	ReasonNoSession = "no session"
	ReasonExpired   = "session expired"
	ReasonLogout    = "logged out"
)

// TokenStore persists the single session token.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// API is the subset of the backend the guard talks to.
type API interface {
	Verify(ctx context.Context) (*models.VerifyResult, error)
	Logout(ctx context.Context) error
	Login(ctx context.Context, username, password string) (*models.LoginResult, error)
}

// RedirectFunc sends the operator to the login surface.
type RedirectFunc func(reason string)

// Session is the process wide session context. Every component reads the
// token through it; only the Guard mutates it.
type Session struct {
	mu    sync.RWMutex
	token string
}

// Open loads the persisted token, if any.
func Open(store TokenStore) (*Session, error) {
	token, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load session token: %w", err)
	}
	return &Session{token: token}, nil
}

// Token implements client.TokenSource.
func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

func (s *Session) set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Guard verifies the session at startup and tears it down on logout or
// expiry.
type Guard struct {
	session  *Session
	store    TokenStore
	api      API
	redirect RedirectFunc

	mu       sync.Mutex
	verified bool
}

// NewGuard creates a guard. redirect may be nil.
func NewGuard(session *Session, store TokenStore, api API, redirect RedirectFunc) *Guard {
	if redirect == nil {
		redirect = func(string) {}
	}
	return &Guard{
		session:  session,
		store:    store,
		api:      api,
		redirect: redirect,
	}
}

// Session returns the session context the guard manages.
func (g *Guard) Session() *Session {
	return g.session
}

// Verify checks the stored token against the backend. Without a token it
// redirects immediately and makes no network call. Any failure, transport
// errors included, clears the token and redirects.
func (g *Guard) Verify(ctx context.Context) bool {
	if _, ok := g.session.Token(); !ok {
		log.Debug().Msg("no session token, redirecting to login")
		g.redirect(ReasonNoSession)
		return false
	}

	result, err := g.api.Verify(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("session verification failed")
		g.clear()
		g.redirect(ReasonExpired)
		return false
	}

	g.mu.Lock()
	g.verified = true
	g.mu.Unlock()

	log.Debug().Str("username", result.Username).Msg("session verified")

	return true
}

// Verified reports whether Verify has succeeded.
func (g *Guard) Verified() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.verified
}

// Logout notifies the backend on a best-effort basis, then always clears
// the token and redirects.
func (g *Guard) Logout(ctx context.Context) {
	if _, ok := g.session.Token(); ok {
		if err := g.api.Logout(ctx); err != nil {
			log.Warn().Err(err).Msg("logout notification failed")
		}
	}

	g.clear()
	g.redirect(ReasonLogout)
}

// Expire handles a 401 seen by any component: the token is dropped and the
// operator is redirected. It is a no-op when no token is held.
func (g *Guard) Expire() {
	_, had := g.session.Token()
	g.clear()
	if had {
		log.Info().Msg("session expired")
		g.redirect(ReasonExpired)
		return
	}
	g.redirect(ReasonNoSession)
}

// Login obtains a new token and persists it.
func (g *Guard) Login(ctx context.Context, username, password string) error {
	result, err := g.api.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if result.Token == "" {
		return errors.New("login response did not contain a token")
	}

	if err := g.store.Save(result.Token); err != nil {
		return fmt.Errorf("failed to save session token: %w", err)
	}
	g.session.set(result.Token)

	g.mu.Lock()
	g.verified = true
	g.mu.Unlock()

	log.Info().Str("username", username).Int64("expiresIn", result.ExpiresIn).Msg("logged in")

	return nil
}

func (g *Guard) clear() {
	g.session.set("")

	g.mu.Lock()
	g.verified = false
	g.mu.Unlock()

	if err := g.store.Clear(); err != nil {
		log.Error().Err(err).Msg("failed to clear stored session token")
	}
}
