// Package auth verifies the access tokens issued by the hosted auth service
// and carries the caller's identity through the request context.
//
// Tokens are never minted here: sign-up, login and refresh go through the
// hosted API (see internal/gotrue). This package only checks signatures.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Leeway tolerates clock drift between us and the hosted auth service.
const Leeway = 30 * time.Second

var (
	// ErrNotConfigured is returned when no signing secret was provided.
	ErrNotConfigured = errors.New("auth: jwt secret not configured")
	// ErrInvalidToken covers every rejected token: bad signature, wrong alg,
	// expired, missing exp, malformed subject.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// UserMetadata is the free-form metadata the storefront stores on the auth user.
type UserMetadata struct {
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Claims are the fields of a hosted-auth access token we rely on.
// Role is the database role ("authenticated"), not the storefront role;
// admin rights come from the profile row.
type Claims struct {
	jwt.RegisteredClaims
	Email        string       `json:"email"`
	Role         string       `json:"role"`
	UserMetadata UserMetadata `json:"user_metadata"`
}

// Verifier checks HS256 tokens against the project's JWT secret.
type Verifier struct {
	secret []byte
}

// NewVerifier returns a Verifier for secret. An empty secret yields a
// Verifier that rejects every token with ErrNotConfigured.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Configured reports whether tokens can be verified at all.
func (v *Verifier) Configured() bool {
	return v != nil && len(v.secret) > 0
}

// Verify parses tokenStr and returns its claims.
func (v *Verifier) Verify(tokenStr string) (*Claims, error) {
	if !v.Configured() {
		return nil, ErrNotConfigured
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(Leeway),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, fmt.Errorf("%w: subject is not a uuid", ErrInvalidToken)
	}
	return claims, nil
}
