// testhelpers_test.go — server construction and token helpers for handler tests.
package storefront

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yourflock/nekostream/internal/auth"
	"github.com/yourflock/nekostream/internal/cache"
	"github.com/yourflock/nekostream/internal/config"
	"github.com/yourflock/nekostream/internal/gotrue"
	"github.com/yourflock/nekostream/internal/logger"
	"github.com/yourflock/nekostream/internal/ratelimit"
	"github.com/yourflock/nekostream/internal/store"
)

const (
	testSecret  = "storefront-test-secret-at-least-32-characters"
	testUserID  = "8b7c6d5e-4f3a-4b2c-9d1e-0f1a2b3c4d5e"
	testAdminID = "1a2b3c4d-5e6f-4a7b-8c9d-0e1f2a3b4c5d"
)

// testEnv bundles a server with the fakes behind it.
type testEnv struct {
	repo     *fakeRepo
	auth     *fakeAuth
	resolver *fakeResolver
	limits   *memLimitStore
	handler  http.Handler
}

type envOption func(*Deps)

// withoutBackend leaves the hosted auth unconfigured.
func withoutBackend() envOption {
	return func(d *Deps) {
		d.Auth = nil
		d.Config.BackendURL = ""
		d.Config.BackendAnonKey = ""
	}
}

// withoutResolver removes the episode source resolver.
func withoutResolver() envOption {
	return func(d *Deps) { d.Resolver = nil }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	env := &testEnv{
		repo: newFakeRepo(),
		auth: &fakeAuth{session: &gotrue.Session{
			AccessToken:  "access-token",
			TokenType:    "bearer",
			ExpiresIn:    3600,
			RefreshToken: "refresh-token",
			User:         gotrue.User{ID: testUserID, Email: "otaku@example.com"},
		}},
		resolver: &fakeResolver{},
		limits:   newMemLimitStore(),
	}

	mem := cache.New(nil, "")
	t.Cleanup(func() { mem.Close() })

	d := Deps{
		Config: &config.Config{
			BackendURL:       "https://project.example.co",
			BackendAnonKey:   "anon-key",
			BackendJWTSecret: testSecret,
			CacheTTL:         time.Minute,
		},
		Repo:     env.repo,
		Auth:     env.auth,
		Resolver: env.resolver,
		Cache:    mem,
		Limiter:  ratelimit.New(env.limits),
		Verifier: auth.NewVerifier(testSecret),
		Logger:   logger.NewWithOutput(io.Discard, "nekostream-test", "json", "error"),
	}
	for _, o := range opts {
		o(&d)
	}
	env.handler = NewServer(d).Routes()
	return env
}

// userToken signs an access token for userID the way the hosted auth does.
func userToken(t *testing.T, userID string) string {
	t.Helper()
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email:        "otaku@example.com",
		Role:         "authenticated",
		UserMetadata: auth.UserMetadata{Username: "otaku"},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

// adminToken seeds an admin profile and returns its token.
func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	e.repo.setProfile(store.Profile{ID: testAdminID, Username: "admin", Role: auth.AdminRole})
	return userToken(t, testAdminID)
}
