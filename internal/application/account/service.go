// Package account signs storefront users in and out against the backend.
package account

import (
	"context"
	"errors"
	"strings"

	"github.com/sifnet/storefront/internal/domain/shared"
	"github.com/sifnet/storefront/internal/infrastructure/auth"
	"github.com/sifnet/storefront/internal/infrastructure/remoteapi"
	"go.uber.org/zap"
)

// Account errors
var (
	ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	ErrMissingCredentials = shared.NewDomainError("INVALID_INPUT", "Email and password are required")
	ErrMissingToken       = shared.NewDomainError("INVALID_STATE", "Backend did not return a session token")
)

// Backend is the part of the remote API used for accounts
type Backend interface {
	Login(ctx context.Context, email, password string) (remoteapi.LoginResult, error)
	Register(ctx context.Context, in auth.RegistrationInput) (string, error)
}

// Session stores the signed-in user
type Session interface {
	Login(ctx context.Context, user auth.User, token string) error
	Logout(ctx context.Context) error
	User() (auth.User, bool)
	IsAuthenticated() bool
}

// LoginInput contains login credentials
type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Service handles login, registration and logout
type Service struct {
	backend Backend
	session Session
	logger  *zap.Logger
}

// NewService creates a new account Service
func NewService(backend Backend, session Session, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: backend, session: session, logger: logger.Named("account")}
}

// Login authenticates against the backend and starts a session
func (s *Service) Login(ctx context.Context, in LoginInput) (auth.User, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return auth.User{}, ErrMissingCredentials
	}

	s.logger.Info("login attempt", zap.String("email", email))
	res, err := s.backend.Login(ctx, email, in.Password)
	if err != nil {
		if errors.Is(err, remoteapi.ErrRejected) {
			s.logger.Info("login rejected", zap.String("email", email), zap.Error(err))
			return auth.User{}, shared.NewDomainError(ErrInvalidCredentials.Code, rejectionMessage(err, ErrInvalidCredentials.Message))
		}
		s.logger.Warn("login failed", zap.String("email", email), zap.Error(err))
		return auth.User{}, err
	}
	if strings.TrimSpace(res.Token) == "" {
		return auth.User{}, ErrMissingToken
	}

	// the session stays established in memory when persisting fails
	if err := s.session.Login(ctx, res.User, res.Token); err != nil {
		s.logger.Warn("session not persisted", zap.String("email", email), zap.Error(err))
	}
	return res.User, nil
}

// Register validates the request locally and creates the account
func (s *Service) Register(ctx context.Context, in auth.RegistrationInput) (string, error) {
	if err := auth.ValidateRegistration(in); err != nil {
		return "", shared.NewDomainError("VALIDATION_FAILED", err.Error())
	}

	msg, err := s.backend.Register(ctx, in)
	if err != nil {
		if errors.Is(err, remoteapi.ErrRejected) {
			return "", shared.NewDomainError("REGISTRATION_REJECTED", rejectionMessage(err, "Registration failed"))
		}
		s.logger.Warn("registration failed", zap.String("email", in.Email), zap.Error(err))
		return "", err
	}

	s.logger.Info("user registered", zap.String("email", strings.TrimSpace(in.Email)))
	return msg, nil
}

// Logout ends the session
func (s *Service) Logout(ctx context.Context) error {
	return s.session.Logout(ctx)
}

// Current returns the signed-in user, if the session is still valid
func (s *Service) Current() (auth.User, bool) {
	if !s.session.IsAuthenticated() {
		return auth.User{}, false
	}
	return s.session.User()
}

// rejectionMessage extracts the backend's explanation from a rejection
func rejectionMessage(err error, fallback string) string {
	msg := err.Error()
	marker := remoteapi.ErrRejected.Error() + ": "
	if i := strings.Index(msg, marker); i >= 0 {
		if m := strings.TrimSpace(msg[i+len(marker):]); m != "" {
			return m
		}
	}
	return fallback
}
