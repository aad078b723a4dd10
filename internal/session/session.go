// Package session holds the explicit client session: the per-process chat
// correlation id and the admin access token, with login and logout as its
// only lifecycle transitions.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is passed to every component that needs identity. It replaces
// any process-global token or id.
type Session struct {
	id     string
	store  *Store
	logger *zap.Logger

	mu    sync.RWMutex
	token string
}

// New creates a session with a fresh random id and whatever token the
// store already holds.
func New(store *Store, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		id:     uuid.NewString(),
		store:  store,
		logger: logger,
	}

	tok, err := store.Load()
	switch {
	case err == nil:
		s.token = tok
	case errors.Is(err, ErrNoToken):
	default:
		return nil, err
	}
	return s, nil
}

// ID is the opaque chat correlation id. It lives as long as the process.
func (s *Session) ID() string {
	return s.id
}

// Token returns the current access token, or "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// LoggedIn reports whether an access token is held.
func (s *Session) LoggedIn() bool {
	return s.Token() != ""
}

// Login stores token and makes it current.
func (s *Session) Login(token string) error {
	if token == "" {
		return ErrNoToken
	}
	if err := s.store.Save(token); err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	s.logger.Info("logged in")
	return nil
}

// Logout forgets the token in memory and on disk.
func (s *Session) Logout() error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	s.logger.Info("logged out")
	return s.store.Clear()
}

func (s *Session) setToken(tok string) {
	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()
}

// Claims is the subset of the token payload shown to the operator.
type Claims struct {
	Subject   string
	ExpiresAt time.Time // zero when the token carries no exp
}

// Expired reports whether the token's exp lies before now.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Claims decodes the token without verifying its signature. The server is
// the only party that can verify it; this is for display.
func (s *Session) Claims() (Claims, error) {
	tok := s.Token()
	if tok == "" {
		return Claims{}, ErrNoToken
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(tok, jwt.MapClaims{})
	if err != nil {
		return Claims{}, fmt.Errorf("decode access token: %w", err)
	}

	var c Claims
	c.Subject, _ = parsed.Claims.GetSubject()
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}
