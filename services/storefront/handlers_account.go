// handlers_account.go — the signed-in user's profile and favorites.
package storefront

import (
	"errors"
	"net/http"
	"strings"

	"github.com/yourflock/nekostream/internal/auth"
	"github.com/yourflock/nekostream/internal/gotrue"
	"github.com/yourflock/nekostream/internal/metrics"
	"github.com/yourflock/nekostream/internal/store"
	"github.com/yourflock/nekostream/internal/validate"
	"github.com/yourflock/nekostream/pkg/telemetry"
)

type meUser struct {
	ID           string            `json:"id"`
	Email        string            `json:"email"`
	UserMetadata auth.UserMetadata `json:"user_metadata"`
}

type meResponse struct {
	User    meUser         `json:"user"`
	Profile *store.Profile `json:"profile"`
	IsAdmin bool           `json:"is_admin"`
}

// GET /me
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	telemetry.SetUserContext(r.Context(), claims.Subject)

	p, err := s.repo.Profile(r.Context(), claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		s.ensureProfile(r, gotrue.User{ID: claims.Subject, Email: claims.Email, UserMetadata: claims.UserMetadata})
		p, err = s.repo.Profile(r.Context(), claims.Subject)
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.serverError(w, r, err, "could not load profile")
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		User:    meUser{ID: claims.Subject, Email: claims.Email, UserMetadata: claims.UserMetadata},
		Profile: p,
		IsAdmin: p != nil && p.Role == auth.AdminRole,
	})
}

type updateProfileRequest struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// PUT /me/profile updates the auth user's metadata first, then the public
// profile row, so both stay in step.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.AvatarURL = strings.TrimSpace(req.AvatarURL)

	var m validate.MultiError
	m.Add(validate.NonEmptyString("username", req.Username))
	m.Add(validate.MaxLength("username", req.Username, maxUsernameLength))
	m.Add(validate.OptionalHTTPURL("avatar_url", req.AvatarURL))
	if m.HasErrors() {
		writeValidation(w, &m)
		return
	}
	if req.AvatarURL == "" {
		req.AvatarURL = DefaultAvatarURL(req.Username)
	}

	ctx := r.Context()
	uid := auth.UserIDFromContext(ctx)
	meta := gotrue.UserMetadata{Username: req.Username, AvatarURL: req.AvatarURL}
	if _, err := s.auth.UpdateUser(ctx, auth.AccessTokenFromContext(ctx), meta); err != nil {
		s.writeAuthError(w, r, err)
		return
	}

	p, err := s.repo.UpdateProfile(ctx, uid, req.Username, req.AvatarURL)
	if errors.Is(err, store.ErrNotFound) {
		p, err = s.repo.EnsureProfile(ctx, store.Profile{ID: uid, Username: req.Username, AvatarURL: req.AvatarURL})
	}
	if err != nil {
		s.storeError(w, r, err, "profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"profile": p})
}

// GET /me/favorites
func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	list, err := s.repo.FavoriteAnimes(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		s.serverError(w, r, err, "could not load favorites")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"favorites": list})
}

// GET /me/favorites/ids
func (s *Server) handleFavoriteIDs(w http.ResponseWriter, r *http.Request) {
	ids, err := s.repo.FavoriteIDs(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		s.serverError(w, r, err, "could not load favorites")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"anime_ids": ids})
}

// PUT /animes/{id}/favorite
func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	fav, err := s.repo.AddFavorite(r.Context(), auth.UserIDFromContext(r.Context()), id)
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrDependency) {
		writeError(w, http.StatusNotFound, "not_found", "anime not found")
		return
	}
	if err != nil {
		s.serverError(w, r, err, "could not add favorite")
		return
	}
	metrics.FavoriteEvents.WithLabelValues("add").Inc()
	writeJSON(w, http.StatusOK, map[string]interface{}{"anime_id": id, "is_favorite": true, "favorite": fav})
}

// DELETE /animes/{id}/favorite
func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.repo.RemoveFavorite(r.Context(), auth.UserIDFromContext(r.Context()), id); err != nil {
		s.serverError(w, r, err, "could not remove favorite")
		return
	}
	metrics.FavoriteEvents.WithLabelValues("remove").Inc()
	writeJSON(w, http.StatusOK, map[string]interface{}{"anime_id": id, "is_favorite": false})
}
