// Package session owns the authenticated identity of a running client.
//
// A Store is constructed once per process and passed to whatever needs to
// know who is logged in. It persists the credential token through a
// storage.TokenStore and doubles as the api.TokenSource of the client it
// drives, so every request observes the latest token.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"flowfinance/internal/api"
	"flowfinance/internal/core"
	"flowfinance/internal/log"
	"flowfinance/internal/storage"
)

// DeleteConfirmation must be typed verbatim to delete the account.
const DeleteConfirmation = "DELETE MY ACCOUNT"

var (
	ErrNotAuthenticated      = errors.New("not authenticated")
	ErrRegisteredNotLoggedIn = errors.New("registered but not logged in")
	ErrConfirmationMismatch  = errors.New("confirmation text does not match")
)

// Authenticator is the subset of the API client the session drives.
type Authenticator interface {
	Login(ctx context.Context, creds core.Credentials) (string, error)
	Register(ctx context.Context, reg core.Registration) (core.User, error)
	CurrentUser(ctx context.Context) (core.User, error)
	UpdateCurrentUser(ctx context.Context, patch core.UserPatch) (core.User, error)
	DeleteCurrentUser(ctx context.Context) error
}

// Store is the session state. Its methods are safe for concurrent use;
// the token and user are swapped together under one lock.
type Store struct {
	auth   Authenticator
	tokens storage.TokenStore
	logger *log.Logger
	now    func() time.Time

	mu    sync.RWMutex
	token string
	user  *core.User
	ready bool
}

type Option func(*Store)

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l.WithComponent(log.ComponentSession) }
}

// WithClock overrides the clock used to check token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an uninitialized store. Call Initialize before reading the
// authentication state.
func New(auth Authenticator, tokens storage.TokenStore, opts ...Option) *Store {
	s := &Store{
		auth:   auth,
		tokens: tokens,
		logger: log.New(log.DefaultConfig()).WithComponent(log.ComponentSession),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ api.TokenSource = (*Store)(nil)

// Token returns the current credential token, or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Ready reports whether Initialize has completed.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// IsAuthenticated reports whether a user is resolved.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// User returns a copy of the current user.
func (s *Store) User() (core.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return core.User{}, false
	}
	return *s.user, true
}

// Initialize restores a persisted token and resolves it to a user. Any
// failure to resolve discards the token and leaves the session
// unauthenticated; only a failing token store is reported.
func (s *Store) Initialize(ctx context.Context) error {
	defer s.markReady()

	token, ok, err := s.tokens.Load(ctx)
	if err != nil {
		return fmt.Errorf("load persisted token: %w", err)
	}
	s.logger.DebugContext(ctx, "Restoring session", log.FieldHasToken, ok)
	if !ok {
		return nil
	}

	if s.expired(token) {
		s.logger.InfoContext(ctx, "Persisted token expired, discarding")
		s.Logout()
		return nil
	}

	if err := s.resolve(ctx, token); err != nil {
		s.logger.InfoContext(ctx, "Persisted token rejected, discarding",
			log.FieldError, err.Error(), log.FieldErrorType, api.Kind(err))
	}
	return nil
}

// Login exchanges credentials for a token, persists it and resolves the
// user. On failure nothing is kept.
func (s *Store) Login(ctx context.Context, creds core.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	token, err := s.auth.Login(ctx, creds)
	if err != nil {
		s.logger.WarnContext(ctx, "Login failed",
			log.FieldOperation, log.OpLogin, log.FieldUsername, creds.Username, log.FieldErrorType, api.Kind(err))
		return fmt.Errorf("login: %w", err)
	}
	if err := s.resolve(ctx, token); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	s.logger.InfoContext(ctx, "Logged in", log.FieldOperation, log.OpLogin, log.FieldUsername, creds.Username)
	return nil
}

// Register creates the user and logs in with the same credentials. When the
// account is created but the login fails, the error wraps
// ErrRegisteredNotLoggedIn and the session stays unauthenticated.
func (s *Store) Register(ctx context.Context, reg core.Registration) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	if _, err := s.auth.Register(ctx, reg); err != nil {
		s.logger.WarnContext(ctx, "Registration failed",
			log.FieldOperation, log.OpRegister, log.FieldUsername, reg.Username, log.FieldErrorType, api.Kind(err))
		return fmt.Errorf("register: %w", err)
	}
	if err := s.Login(ctx, core.Credentials{Username: reg.Username, Password: reg.Password}); err != nil {
		return fmt.Errorf("%w: %w", ErrRegisteredNotLoggedIn, err)
	}
	return nil
}

// Logout discards the token and the user. It never fails; a token store
// error is logged.
func (s *Store) Logout() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if err := s.tokens.Clear(context.Background()); err != nil {
		s.logger.Error("Failed to clear persisted token", log.FieldError, err.Error())
	}
	s.logger.Debug("Session cleared", log.FieldOperation, log.OpLogout)
}

// UpdateProfile applies patch to the current user. A successful update ends
// the session so the user logs in again with the new identity.
func (s *Store) UpdateProfile(ctx context.Context, patch core.UserPatch) (core.User, error) {
	if !s.IsAuthenticated() {
		return core.User{}, ErrNotAuthenticated
	}
	user, err := s.auth.UpdateCurrentUser(ctx, patch)
	if err != nil {
		return core.User{}, s.Guard(fmt.Errorf("update profile: %w", err))
	}
	s.logger.InfoContext(ctx, "Profile updated, logging out", log.FieldUsername, user.Username)
	s.Logout()
	return user, nil
}

// DeleteAccount permanently deletes the current user once confirmation
// equals DeleteConfirmation, then ends the session.
func (s *Store) DeleteAccount(ctx context.Context, confirmation string) error {
	if confirmation != DeleteConfirmation {
		return ErrConfirmationMismatch
	}
	if !s.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if err := s.auth.DeleteCurrentUser(ctx); err != nil {
		return s.Guard(fmt.Errorf("delete account: %w", err))
	}
	s.logger.InfoContext(ctx, "Account deleted")
	s.Logout()
	return nil
}

// Guard logs out when err is an authentication error. It returns err
// unchanged so calls can be wrapped inline.
func (s *Store) Guard(err error) error {
	if api.IsAuth(err) && s.IsAuthenticated() {
		s.logger.Warn("Credential rejected, ending session", log.FieldError, err.Error())
		s.Logout()
	}
	return err
}

// resolve installs token, asks the API who it belongs to and commits the
// user. On failure the token is discarded.
func (s *Store) resolve(ctx context.Context, token string) error {
	s.mu.Lock()
	s.token = token
	s.user = nil
	s.mu.Unlock()

	user, err := s.auth.CurrentUser(ctx)
	if err != nil {
		s.Logout()
		return err
	}
	if err := s.tokens.Save(ctx, token); err != nil {
		s.Logout()
		return fmt.Errorf("persist token: %w", err)
	}

	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()
	return nil
}

// expired peeks at the exp claim of a JWT without verifying it. Tokens that
// are not JWTs are left to the server.
func (s *Store) expired(token string) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(s.now())
}

func (s *Store) markReady() {
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
}
