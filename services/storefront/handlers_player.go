// handlers_player.go — episode playback: picks the video source and tells the
// SPA which element to render it in.
package storefront

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yourflock/nekostream/internal/embed"
	"github.com/yourflock/nekostream/internal/logger"
	"github.com/yourflock/nekostream/internal/metrics"
	"github.com/yourflock/nekostream/internal/store"
)

// AutoSourcePlaceholder is stored as an episode's video_url to mean "ask the
// source resolver at play time".
const AutoSourcePlaceholder = "https://auto-sugoi-api"

// resolverSeason is fixed: the catalog has no notion of seasons.
const resolverSeason = 1

// Playback sources, also used as metric labels.
const (
	sourceManual   = "manual"
	sourceResolver = "resolver"
	sourceNone     = "none"
)

// isAutoSource reports whether a stored video_url defers to the resolver.
func isAutoSource(videoURL string) bool {
	v := strings.TrimSpace(videoURL)
	return v == "" || v == AutoSourcePlaceholder
}

// publicVideoURL hides the placeholder from API consumers.
func publicVideoURL(videoURL string) string {
	if isAutoSource(videoURL) {
		return ""
	}
	return videoURL
}

type playerView struct {
	Kind     embed.Kind     `json:"kind"`
	Src      string         `json:"src"`
	Provider embed.Provider `json:"provider,omitempty"`
	Poster   string         `json:"poster,omitempty"`
}

type playResponse struct {
	Episode   *store.Episode `json:"episode"`
	Anime     *store.Anime   `json:"anime"`
	Player    playerView     `json:"player"`
	Available bool           `json:"available"`
	Source    string         `json:"source"`
	Prev      *string        `json:"prev"`
	Next      *string        `json:"next"`
}

// GET /episodes/{id}/play
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	log := logger.FromContext(ctx)

	ep, err := s.repo.Episode(ctx, id)
	if err != nil {
		s.storeError(w, r, err, "episode")
		return
	}
	anime := ep.Anime
	ep.Anime = nil

	src, source := s.playbackSource(r, ep, anime)
	metrics.PlaybackResolutions.WithLabelValues(source).Inc()

	p := embed.Resolve(src)
	resp := playResponse{
		Episode:   ep,
		Anime:     anime,
		Player:    playerView{Kind: p.Kind, Src: p.Src, Provider: p.Provider, Poster: poster(ep, anime)},
		Available: p.Kind != embed.KindNone,
		Source:    source,
	}
	if !resp.Available {
		resp.Source = sourceNone
	}
	ep.VideoURL = p.Src

	nb, err := s.repo.Neighbors(ctx, ep.AnimeID, ep.EpisodeNumber)
	if err != nil {
		log.WithError(err).Warn("play: neighbors unavailable")
	}
	resp.Prev, resp.Next = nb.Prev, nb.Next

	if err := s.repo.IncrementViews(ctx, ep.AnimeID); err != nil {
		log.WithError(err).WithField("anime_id", ep.AnimeID).Warn("play: view count not incremented")
	}

	writeJSON(w, http.StatusOK, resp)
}

// playbackSource returns the raw link to play and where it came from.
// A manual link always wins; the resolver is only asked for placeholder
// episodes and its failures never fail the request.
func (s *Server) playbackSource(r *http.Request, ep *store.Episode, anime *store.Anime) (string, string) {
	if !isAutoSource(ep.VideoURL) {
		return strings.TrimSpace(ep.VideoURL), sourceManual
	}
	if s.resolver == nil || anime == nil || anime.Slug == "" {
		return "", sourceNone
	}

	link, err := s.resolver.Resolve(r.Context(), anime.Slug, resolverSeason, ep.EpisodeNumber)
	if err != nil {
		logger.FromContext(r.Context()).WithError(err).WithFields(logrus.Fields{
			"slug":    anime.Slug,
			"episode": ep.EpisodeNumber,
		}).Warn("play: source resolver failed")
		return "", sourceNone
	}
	return link, sourceResolver
}

// poster prefers the episode thumbnail, then the anime banner, then the cover.
func poster(ep *store.Episode, anime *store.Anime) string {
	if ep.ThumbnailURL != "" {
		return ep.ThumbnailURL
	}
	if anime == nil {
		return ""
	}
	if anime.BannerImage != "" {
		return anime.BannerImage
	}
	return anime.CoverImage
}
