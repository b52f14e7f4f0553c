package remoteapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sifnet/storefront/internal/infrastructure/auth"
)

// ErrRejected is returned when the backend answers an account request with
// success=false. The wrapped message is the backend's explanation.
var ErrRejected = errors.New("request rejected")

// LoginResult is a successful login
type LoginResult struct {
	User    auth.User
	Token   string
	Message string
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool      `json:"success"`
	User    auth.User `json:"usuario"`
	Token   string    `json:"token"`
	Message string    `json:"message"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"nombre"`
	Phone    string `json:"telefono"`
	Password string `json:"password"`
}

type registerResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Login exchanges credentials for a user and an API token
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	body, err := json.Marshal(loginRequest{Email: strings.TrimSpace(email), Password: password})
	if err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}

	var out loginResponse
	err = c.do(ctx, request{
		op:           "login",
		method:       http.MethodPost,
		path:         "/auth/login",
		body:         bytes.NewReader(body),
		contentType:  "application/json",
		decodeErrors: true,
	}, &out)
	if err != nil {
		return LoginResult{}, err
	}
	if !out.Success {
		return LoginResult{}, rejected("login", out.Message, "invalid credentials")
	}
	return LoginResult{User: out.User, Token: out.Token, Message: out.Message}, nil
}

// Register creates an account. The caller validates the input first.
func (c *Client) Register(ctx context.Context, in auth.RegistrationInput) (string, error) {
	body, err := json.Marshal(registerRequest{
		Email:    strings.TrimSpace(in.Email),
		Name:     strings.TrimSpace(in.Name),
		Phone:    strings.TrimSpace(in.Phone),
		Password: in.Password,
	})
	if err != nil {
		return "", fmt.Errorf("register: %w", err)
	}

	var out registerResponse
	err = c.do(ctx, request{
		op:           "register",
		method:       http.MethodPost,
		path:         "/auth/registeruser",
		body:         bytes.NewReader(body),
		contentType:  "application/json",
		decodeErrors: true,
	}, &out)
	if err != nil {
		return "", err
	}
	if !out.Success {
		return "", rejected("register", out.Message, "registration failed")
	}
	return out.Message, nil
}

func rejected(op, message, fallback string) error {
	if strings.TrimSpace(message) == "" {
		message = fallback
	}
	return fmt.Errorf("%s: %w: %s", op, ErrRejected, message)
}
