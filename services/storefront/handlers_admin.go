// handlers_admin.go — admin panel: anime and episode CRUD, embed preview.
package storefront

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yourflock/nekostream/internal/embed"
	"github.com/yourflock/nekostream/internal/logger"
	"github.com/yourflock/nekostream/internal/slug"
	"github.com/yourflock/nekostream/internal/store"
	"github.com/yourflock/nekostream/internal/validate"
)

type animeRequest struct {
	Title       string  `json:"title"`
	Slug        string  `json:"slug"`
	Description string  `json:"description"`
	CoverImage  string  `json:"cover_image"`
	BannerImage string  `json:"banner_image"`
	CategoryID  flexInt `json:"category_id"`
	Status      string  `json:"status"`
}

// input trims the request, derives a missing slug and validates it.
func (req animeRequest) input() (store.AnimeInput, *validate.MultiError) {
	in := store.AnimeInput{
		Title:       strings.TrimSpace(req.Title),
		Slug:        strings.TrimSpace(req.Slug),
		Description: strings.TrimSpace(req.Description),
		CoverImage:  strings.TrimSpace(req.CoverImage),
		BannerImage: strings.TrimSpace(req.BannerImage),
		CategoryID:  int(req.CategoryID),
		Status:      strings.TrimSpace(req.Status),
	}
	if in.Slug == "" {
		in.Slug = slug.Make(in.Title)
	}

	m := &validate.MultiError{}
	m.Add(validate.NonEmptyString("title", in.Title))
	m.Add(validate.NonEmptyString("description", in.Description))
	m.Add(validate.IsHTTPURL("cover_image", in.CoverImage))
	m.Add(validate.OptionalHTTPURL("banner_image", in.BannerImage))
	m.Add(validate.PositiveInt("category_id", in.CategoryID, "select a valid category"))
	m.Add(validate.OneOf("status", in.Status, store.Statuses))
	if in.Title != "" {
		m.Add(validate.IsSlug("slug", in.Slug))
	}
	return in, m
}

// GET /admin/animes
func (s *Server) handleAdminListAnimes(w http.ResponseWriter, r *http.Request) {
	list, err := s.repo.ListAnimes(r.Context())
	if err != nil {
		s.serverError(w, r, err, "could not load animes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"animes": list})
}

// POST /admin/animes
func (s *Server) handleAdminCreateAnime(w http.ResponseWriter, r *http.Request) {
	var req animeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, m := req.input()
	if m.HasErrors() {
		writeValidation(w, m)
		return
	}

	a, err := s.repo.CreateAnime(r.Context(), in)
	if errors.Is(err, store.ErrDependency) {
		writeError(w, http.StatusBadRequest, "invalid_category", "select a valid category")
		return
	}
	if err != nil {
		s.storeError(w, r, err, "anime")
		return
	}
	s.invalidateHome(r)
	logger.FromContext(r.Context()).WithFields(logrus.Fields{"anime_id": a.ID, "slug": a.Slug}).Info("anime created")
	writeJSON(w, http.StatusCreated, map[string]interface{}{"anime": a})
}

// PUT /admin/animes/{id}
func (s *Server) handleAdminUpdateAnime(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req animeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, m := req.input()
	if m.HasErrors() {
		writeValidation(w, m)
		return
	}

	a, err := s.repo.UpdateAnime(r.Context(), id, in)
	if errors.Is(err, store.ErrDependency) {
		writeError(w, http.StatusBadRequest, "invalid_category", "select a valid category")
		return
	}
	if err != nil {
		s.storeError(w, r, err, "anime")
		return
	}
	s.invalidateHome(r)
	writeJSON(w, http.StatusOK, map[string]interface{}{"anime": a})
}

// DELETE /admin/animes/{id}
func (s *Server) handleAdminDeleteAnime(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.repo.DeleteAnime(r.Context(), id); err != nil {
		s.storeError(w, r, err, "anime")
		return
	}
	s.invalidateHome(r)
	logger.FromContext(r.Context()).WithField("anime_id", id).Info("anime deleted")
	w.WriteHeader(http.StatusNoContent)
}

// adminEpisode is an episode as the admin panel sees it: the placeholder is
// blanked and flagged instead.
type adminEpisode struct {
	store.Episode
	AutoSource bool `json:"auto_source"`
}

func toAdminEpisode(ep store.Episode) adminEpisode {
	auto := isAutoSource(ep.VideoURL)
	ep.VideoURL = publicVideoURL(ep.VideoURL)
	ep.Anime = nil
	return adminEpisode{Episode: ep, AutoSource: auto}
}

// GET /admin/animes/{id}/episodes
func (s *Server) handleAdminListEpisodes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	eps, err := s.repo.Episodes(r.Context(), id, true)
	if err != nil {
		s.serverError(w, r, err, "could not load episodes")
		return
	}
	out := make([]adminEpisode, 0, len(eps))
	for _, ep := range eps {
		out = append(out, toAdminEpisode(ep))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"episodes": out})
}

const (
	// maxVideoURLLength leaves room for a pasted <iframe> snippet.
	maxVideoURLLength = 4096
	// Episode titles are optional; the player shows the number instead.
	maxEpisodeTitleLength = 200
)

type episodeRequest struct {
	AnimeID       string  `json:"anime_id"`
	EpisodeNumber flexInt `json:"episode_number"`
	Title         string  `json:"title"`
	VideoURL      string  `json:"video_url"`
	ThumbnailURL  string  `json:"thumbnail_url"`
}

// input validates the request. A blank video_url becomes the placeholder;
// anything else is stored as pasted and normalized at play time.
func (req episodeRequest) input(requireAnime bool) (store.EpisodeInput, *validate.MultiError) {
	in := store.EpisodeInput{
		AnimeID:       strings.ToLower(strings.TrimSpace(req.AnimeID)),
		EpisodeNumber: int(req.EpisodeNumber),
		Title:         strings.TrimSpace(req.Title),
		VideoURL:      strings.TrimSpace(req.VideoURL),
		ThumbnailURL:  strings.TrimSpace(req.ThumbnailURL),
	}
	if isAutoSource(in.VideoURL) {
		in.VideoURL = AutoSourcePlaceholder
	}

	m := &validate.MultiError{}
	if requireAnime {
		m.Add(validate.IsUUID("anime_id", in.AnimeID))
	}
	m.Add(validate.PositiveInt("episode_number", in.EpisodeNumber, "must be 1 or greater"))
	m.Add(validate.MaxLength("title", in.Title, maxEpisodeTitleLength))
	m.Add(validate.OptionalHTTPURL("thumbnail_url", in.ThumbnailURL))
	m.Add(validate.MaxLength("video_url", in.VideoURL, maxVideoURLLength))
	return in, m
}

// POST /admin/episodes
func (s *Server) handleAdminCreateEpisode(w http.ResponseWriter, r *http.Request) {
	var req episodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, m := req.input(true)
	if m.HasErrors() {
		writeValidation(w, m)
		return
	}

	ep, err := s.repo.CreateEpisode(r.Context(), in)
	if errors.Is(err, store.ErrDependency) {
		writeError(w, http.StatusBadRequest, "unknown_anime", "anime_id does not match an anime")
		return
	}
	if err != nil {
		s.storeError(w, r, err, "episode")
		return
	}
	s.invalidateHome(r)
	logger.FromContext(r.Context()).WithFields(logrus.Fields{
		"episode_id": ep.ID,
		"anime_id":   ep.AnimeID,
		"number":     ep.EpisodeNumber,
	}).Info("episode created")
	writeJSON(w, http.StatusCreated, map[string]interface{}{"episode": toAdminEpisode(*ep)})
}

// PUT /admin/episodes/{id}
func (s *Server) handleAdminUpdateEpisode(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req episodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, m := req.input(false)
	if m.HasErrors() {
		writeValidation(w, m)
		return
	}

	ep, err := s.repo.UpdateEpisode(r.Context(), id, in)
	if err != nil {
		s.storeError(w, r, err, "episode")
		return
	}
	s.invalidateHome(r)
	writeJSON(w, http.StatusOK, map[string]interface{}{"episode": toAdminEpisode(*ep)})
}

// DELETE /admin/episodes/{id}
func (s *Server) handleAdminDeleteEpisode(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.repo.DeleteEpisode(r.Context(), id); err != nil {
		s.storeError(w, r, err, "episode")
		return
	}
	s.invalidateHome(r)
	w.WriteHeader(http.StatusNoContent)
}

type embedPreviewRequest struct {
	VideoURL string `json:"video_url"`
}

type embedPreviewResponse struct {
	Player     playerView `json:"player"`
	AutoSource bool       `json:"auto_source"`
}

// POST /admin/embed/preview shows what the player would render for a link
// without saving anything. The placeholder previews as kind "none".
func (s *Server) handleEmbedPreview(w http.ResponseWriter, r *http.Request) {
	var req embedPreviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if isAutoSource(req.VideoURL) {
		writeJSON(w, http.StatusOK, embedPreviewResponse{Player: playerView{Kind: embed.KindNone}, AutoSource: true})
		return
	}
	p := embed.Resolve(req.VideoURL)
	writeJSON(w, http.StatusOK, embedPreviewResponse{
		Player: playerView{Kind: p.Kind, Src: p.Src, Provider: p.Provider},
	})
}
