// handlers_auth.go — sign-up, login, refresh and logout through the hosted auth.
package storefront

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/yourflock/nekostream/internal/auth"
	"github.com/yourflock/nekostream/internal/gotrue"
	"github.com/yourflock/nekostream/internal/logger"
	"github.com/yourflock/nekostream/internal/metrics"
	"github.com/yourflock/nekostream/internal/ratelimit"
	"github.com/yourflock/nekostream/internal/store"
	"github.com/yourflock/nekostream/internal/validate"
)

const (
	minPasswordLength = 6
	maxUsernameLength = 30
)

// DefaultAvatarURL is the generated avatar given to new accounts.
func DefaultAvatarURL(username string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(username) + "&background=6d28d9&color=fff"
}

type sessionResponse struct {
	*gotrue.Session
	ConfirmationRequired bool `json:"confirmation_required"`
}

func tooManyRequests(w http.ResponseWriter, retryAfter int, msg string) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	writeError(w, http.StatusTooManyRequests, "rate_limited", msg)
}

// writeAuthError passes the hosted API's client errors through and hides
// everything else behind a 502.
func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *gotrue.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		writeError(w, apiErr.Status, apiErr.Code, apiErr.Message)
		return
	}
	logger.FromContext(r.Context()).WithError(err).Error("auth api call failed")
	writeError(w, http.StatusBadGateway, "auth_unavailable", "authentication service unavailable")
}

// ensureProfile creates the public profile row for a freshly authenticated
// user. Failures are logged: the account itself already exists.
func (s *Server) ensureProfile(r *http.Request, u gotrue.User) {
	if u.ID == "" {
		return
	}
	username := u.UserMetadata.Username
	if username == "" {
		username, _, _ = strings.Cut(u.Email, "@")
	}
	avatar := u.UserMetadata.AvatarURL
	if avatar == "" {
		avatar = DefaultAvatarURL(username)
	}
	_, err := s.repo.EnsureProfile(r.Context(), store.Profile{ID: u.ID, Username: username, AvatarURL: avatar})
	if err != nil {
		logger.FromContext(r.Context()).WithError(err).WithField("user_id", u.ID).Warn("profile row not ensured")
	}
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// POST /auth/signup
func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if ok, retry := s.limiter.CheckSignUp(r.Context(), ratelimit.ClientIP(r)); !ok {
		metrics.AuthEvents.WithLabelValues("signup", "rate_limited").Inc()
		tooManyRequests(w, retry, "too many sign-ups from this address, try again later")
		return
	}

	var req signUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)

	var m validate.MultiError
	m.Add(validate.IsEmail("email", req.Email))
	m.Add(validate.MinLength("password", req.Password, minPasswordLength))
	m.Add(validate.NonEmptyString("username", req.Username))
	m.Add(validate.MaxLength("username", req.Username, maxUsernameLength))
	if m.HasErrors() {
		writeValidation(w, &m)
		return
	}

	meta := gotrue.UserMetadata{Username: req.Username, AvatarURL: DefaultAvatarURL(req.Username)}
	sess, err := s.auth.SignUp(r.Context(), req.Email, req.Password, meta)
	if err != nil {
		metrics.AuthEvents.WithLabelValues("signup", "failure").Inc()
		s.writeAuthError(w, r, err)
		return
	}
	metrics.AuthEvents.WithLabelValues("signup", "success").Inc()

	s.ensureProfile(r, sess.User)
	writeJSON(w, http.StatusCreated, sessionResponse{Session: sess, ConfirmationRequired: sess.AccessToken == ""})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ip := ratelimit.ClientIP(r)
	if ok, retry := s.limiter.CheckLogin(ctx, ip); !ok {
		metrics.AuthEvents.WithLabelValues("login", "rate_limited").Inc()
		tooManyRequests(w, retry, "too many login attempts, try again later")
		return
	}

	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_fields", "email and password are required")
		return
	}

	if locked, secs := s.limiter.CheckEmailLockout(ctx, req.Email); locked {
		metrics.AuthEvents.WithLabelValues("login", "locked").Inc()
		tooManyRequests(w, secs, "account temporarily locked after repeated failures")
		return
	}

	sess, err := s.auth.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		var apiErr *gotrue.APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnauthorized) {
			metrics.AuthEvents.WithLabelValues("login", "failure").Inc()
			if locked, secs := s.limiter.RecordLoginFailure(ctx, req.Email); locked {
				logger.FromContext(ctx).WithField("lockout_secs", secs).Warn("login lockout triggered")
			}
			writeError(w, http.StatusUnauthorized, "invalid_credentials", apiErr.Message)
			return
		}
		metrics.AuthEvents.WithLabelValues("login", "error").Inc()
		s.writeAuthError(w, r, err)
		return
	}

	metrics.AuthEvents.WithLabelValues("login", "success").Inc()
	s.limiter.ResetLoginIP(ctx, ip)
	s.limiter.ResetLoginEmail(ctx, req.Email)
	s.ensureProfile(r, sess.User)
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// POST /auth/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if ok, retry := s.limiter.CheckRefresh(r.Context(), ratelimit.ClientIP(r)); !ok {
		tooManyRequests(w, retry, "too many refreshes, try again later")
		return
	}
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, http.StatusBadRequest, "missing_fields", "refresh_token is required")
		return
	}

	sess, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		metrics.AuthEvents.WithLabelValues("refresh", "failure").Inc()
		s.writeAuthError(w, r, err)
		return
	}
	metrics.AuthEvents.WithLabelValues("refresh", "success").Inc()
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess})
}

// POST /auth/logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.SignOut(r.Context(), auth.AccessTokenFromContext(r.Context())); err != nil {
		var apiErr *gotrue.APIError
		// An already revoked session is as good as a successful logout.
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
			metrics.AuthEvents.WithLabelValues("logout", "failure").Inc()
			s.writeAuthError(w, r, err)
			return
		}
	}
	metrics.AuthEvents.WithLabelValues("logout", "success").Inc()
	w.WriteHeader(http.StatusNoContent)
}
