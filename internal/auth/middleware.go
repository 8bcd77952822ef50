// middleware.go — Bearer token middleware and identity context helpers.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	claimsKey contextKey = "auth_claims"
	tokenKey  contextKey = "auth_token"
)

// AdminRole is the profiles.role value that grants access to /admin.
const AdminRole = "admin"

// RoleLookup returns the storefront role stored on a user's profile.
// A missing profile is reported as an empty role, not an error.
type RoleLookup interface {
	ProfileRole(ctx context.Context, userID string) (string, error)
}

// RequireAuth rejects requests without a valid Bearer token.
func RequireAuth(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := extractBearerToken(r)
			if tokenStr == "" {
				WriteError(w, http.StatusUnauthorized, "missing_token", "Authorization header required")
				return
			}
			claims, err := v.Verify(tokenStr)
			if errors.Is(err, ErrNotConfigured) {
				WriteError(w, http.StatusServiceUnavailable, "auth_not_configured", "token verification is not configured")
				return
			}
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "invalid_token", "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims, tokenStr)))
		})
	}
}

// OptionalAuth attaches the caller's identity when a valid token is present
// and otherwise lets the request through anonymously.
func OptionalAuth(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenStr := extractBearerToken(r); tokenStr != "" {
				if claims, err := v.Verify(tokenStr); err == nil {
					r = r.WithContext(WithClaims(r.Context(), claims, tokenStr))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin must run after RequireAuth. The role is read from the
// profile row on every request so demotions apply immediately.
func RequireAdmin(lookup RoleLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				WriteError(w, http.StatusUnauthorized, "missing_token", "Authorization header required")
				return
			}
			role, err := lookup.ProfileRole(r.Context(), claims.Subject)
			if err != nil {
				logrus.WithError(err).WithField("user_id", claims.Subject).Error("admin role lookup failed")
				WriteError(w, http.StatusInternalServerError, "server_error", "could not check permissions")
				return
			}
			if role != AdminRole {
				WriteError(w, http.StatusForbidden, "forbidden", "admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithClaims stores the verified claims and the raw token on ctx.
func WithClaims(ctx context.Context, claims *Claims, token string) context.Context {
	ctx = context.WithValue(ctx, claimsKey, claims)
	return context.WithValue(ctx, tokenKey, token)
}

// ClaimsFromContext returns nil for anonymous requests.
func ClaimsFromContext(ctx context.Context) *Claims {
	if c, ok := ctx.Value(claimsKey).(*Claims); ok {
		return c
	}
	return nil
}

// UserIDFromContext returns "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.Subject
	}
	return ""
}

// AccessTokenFromContext returns the raw Bearer token, needed when calling
// the hosted auth API on the user's behalf.
func AccessTokenFromContext(ctx context.Context) string {
	s, _ := ctx.Value(tokenKey).(string)
	return s
}

// extractBearerToken pulls the token from "Authorization: Bearer <token>".
func extractBearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
