package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sifnet/storefront/internal/domain/shared"
	"go.uber.org/zap"
)

// Default storage keys
const (
	DefaultUserKey  = "sifnet_user"
	DefaultTokenKey = "sifnet_token"
)

// ErrNotAuthenticated is returned when an operation needs a logged-in user
var ErrNotAuthenticated = errors.New("not authenticated")

// Session holds the signed-in user and API token and mirrors them to a
// KeyValueStore so a restart keeps the user logged in. Safe for concurrent use.
type Session struct {
	kv       shared.KeyValueStore
	userKey  string
	tokenKey string
	secret   []byte
	now      func() time.Time
	logger   *zap.Logger

	mu    sync.RWMutex
	user  *User
	token string
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithKeys overrides the storage keys for the user and the token
func WithKeys(userKey, tokenKey string) SessionOption {
	return func(s *Session) {
		if userKey != "" {
			s.userKey = userKey
		}
		if tokenKey != "" {
			s.tokenKey = tokenKey
		}
	}
}

// WithJWTSecret enables signature verification of API tokens
func WithJWTSecret(secret string) SessionOption {
	return func(s *Session) {
		if secret != "" {
			s.secret = []byte(secret)
		}
	}
}

// WithLogger sets the logger for the session
func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides time.Now for token expiry checks
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSession creates a logged-out session backed by kv. Call Restore to load
// a persisted session.
func NewSession(kv shared.KeyValueStore, opts ...SessionOption) *Session {
	s := &Session{
		kv:       kv,
		userKey:  DefaultUserKey,
		tokenKey: DefaultTokenKey,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("session")
	return s
}

// Restore loads the persisted user and token. A session is restored only
// when both are present; an unreadable user record clears both keys.
// It reports whether the session is authenticated afterwards.
func (s *Session) Restore(ctx context.Context) bool {
	rawUser, userFound, err := s.kv.Get(ctx, s.userKey)
	if err != nil {
		s.logger.Warn("failed to read persisted user", zap.Error(err))
		return false
	}
	token, tokenFound, err := s.kv.Get(ctx, s.tokenKey)
	if err != nil {
		s.logger.Warn("failed to read persisted token", zap.Error(err))
		return false
	}
	if !userFound || !tokenFound || rawUser == "" || token == "" {
		return false
	}

	var user User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		s.logger.Warn("persisted user is corrupted, clearing session", zap.Error(err))
		s.clearStorage(ctx)
		return false
	}

	s.mu.Lock()
	s.user = &user
	s.token = token
	s.mu.Unlock()

	authenticated := s.IsAuthenticated()
	s.logger.Info("session restored",
		zap.String("email", user.Email),
		zap.Bool("authenticated", authenticated),
	)
	return authenticated
}

// Login stores the user and token. The session is established in memory
// even when persisting fails; the storage error is returned for reporting.
// An empty token leaves any previously stored token in place.
func (s *Session) Login(ctx context.Context, user User, token string) error {
	token = strings.TrimSpace(token)

	s.mu.Lock()
	s.user = &user
	if token != "" {
		s.token = token
	}
	s.mu.Unlock()

	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.kv.Set(ctx, s.userKey, string(payload)); err != nil {
		s.logger.Warn("failed to persist user", zap.Error(err))
		return fmt.Errorf("persist session: %w", err)
	}
	if token != "" {
		if err := s.kv.Set(ctx, s.tokenKey, token); err != nil {
			s.logger.Warn("failed to persist token", zap.Error(err))
			return fmt.Errorf("persist session: %w", err)
		}
	}

	s.logger.Info("user logged in", zap.String("email", user.Email))
	return nil
}

// Logout forgets the user and token in memory and in storage
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.mu.Unlock()

	if err := s.clearStorage(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.logger.Info("user logged out")
	return nil
}

func (s *Session) clearStorage(ctx context.Context) error {
	errUser := s.kv.Delete(ctx, s.userKey)
	errToken := s.kv.Delete(ctx, s.tokenKey)
	if err := errors.Join(errUser, errToken); err != nil {
		s.logger.Warn("failed to clear persisted session", zap.Error(err))
		return err
	}
	return nil
}

// User returns the signed-in user
func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// Token returns the API token when it is still usable, or "" otherwise.
// It satisfies the remote API client's token source.
func (s *Session) Token(_ context.Context) string {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" {
		return ""
	}
	if _, err := InspectToken(token, s.secret, s.now()); err != nil {
		return ""
	}
	return token
}

// TokenInfo inspects the current token
func (s *Session) TokenInfo() (TokenInfo, error) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	return InspectToken(token, s.secret, s.now())
}

// IsAuthenticated reports whether a user is signed in with a usable token
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	hasUser := s.user != nil
	token := s.token
	s.mu.RUnlock()

	if !hasUser || token == "" {
		return false
	}
	_, err := InspectToken(token, s.secret, s.now())
	return err == nil
}
