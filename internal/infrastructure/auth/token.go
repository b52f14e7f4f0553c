package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// TokenInfo is what the client can learn about an API token
type TokenInfo struct {
	Subject   string
	ExpiresAt time.Time // zero when the token carries no expiry
	Verified  bool      // signature checked against the configured secret
	Opaque    bool      // not a JWT; nothing beyond presence can be checked
}

// InspectToken examines an API token at time now.
//
// Without a secret the token is decoded but not verified, and only its exp
// claim is enforced; tokens that are not JWTs are accepted as opaque. With a
// secret the token must be an HS256 JWT signed with it.
func InspectToken(token string, secret []byte, now time.Time) (TokenInfo, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return TokenInfo{}, ErrInvalidToken
	}
	if len(secret) > 0 {
		return verifyToken(token, secret, now)
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{Opaque: true}, nil
	}

	info := TokenInfo{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
		if !now.Before(info.ExpiresAt) {
			return info, ErrExpiredToken
		}
	}
	return info, nil
}

func verifyToken(token string, secret []byte, now time.Time) (TokenInfo, error) {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenInfo{}, ErrExpiredToken
		}
		return TokenInfo{}, ErrInvalidToken
	}
	if !parsed.Valid {
		return TokenInfo{}, ErrInvalidToken
	}

	info := TokenInfo{Subject: claims.Subject, Verified: true}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}
