// handlers_catalog.go — public catalog: home page, categories, anime details.
package storefront

import (
	"errors"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/yourflock/nekostream/internal/auth"
	"github.com/yourflock/nekostream/internal/cache"
	"github.com/yourflock/nekostream/internal/logger"
	"github.com/yourflock/nekostream/internal/richtext"
	"github.com/yourflock/nekostream/internal/store"
)

const (
	homeCacheKey = "home:anon"
	homeListSize = 10
)

// homePayload is the anonymous part of /home, cached as a whole.
type homePayload struct {
	Featured       *store.Anime    `json:"featured"`
	RecentEpisodes []store.Episode `json:"recent_episodes"`
	Popular        []store.Anime   `json:"popular"`
}

type homeResponse struct {
	homePayload
	FavoriteAnimeIDs []string `json:"favorite_anime_ids"`
}

// GET /home
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var home homePayload
	if !cache.GetJSON(ctx, s.cache, homeCacheKey, &home) {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			a, err := s.repo.Featured(gctx)
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			home.Featured = a
			return err
		})
		g.Go(func() error {
			eps, err := s.repo.RecentEpisodes(gctx, homeListSize)
			for i := range eps {
				eps[i].VideoURL = publicVideoURL(eps[i].VideoURL)
			}
			home.RecentEpisodes = eps
			return err
		})
		g.Go(func() error {
			pop, err := s.repo.Popular(gctx, homeListSize)
			home.Popular = pop
			return err
		})
		if err := g.Wait(); err != nil {
			s.serverError(w, r, err, "could not load home page")
			return
		}
		cache.SetJSON(ctx, s.cache, homeCacheKey, home, s.cfg.CacheTTL)
	}

	resp := homeResponse{homePayload: home, FavoriteAnimeIDs: []string{}}
	if uid := auth.UserIDFromContext(ctx); uid != "" {
		ids, err := s.repo.FavoriteIDs(ctx, uid)
		if err != nil {
			logger.FromContext(ctx).WithError(err).Warn("home: favorite ids unavailable")
		} else {
			resp.FavoriteAnimeIDs = ids
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// invalidateHome drops the cached home payload after catalog writes.
func (s *Server) invalidateHome(r *http.Request) {
	if err := s.cache.Delete(r.Context(), homeCacheKey); err != nil {
		logger.FromContext(r.Context()).WithError(err).Warn("home cache invalidation failed")
	}
}

// GET /categories, GET /admin/categories
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.repo.Categories(r.Context())
	if err != nil {
		s.serverError(w, r, err, "could not load categories")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": cats})
}

type animeDetailsResponse struct {
	Anime           *store.Anime    `json:"anime"`
	DescriptionHTML string          `json:"description_html"`
	Episodes        []store.Episode `json:"episodes"`
	IsFavorite      bool            `json:"is_favorite"`
}

// GET /animes/{id}
func (s *Server) handleAnimeDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	a, err := s.repo.Anime(ctx, id)
	if err != nil {
		s.storeError(w, r, err, "anime")
		return
	}
	eps, err := s.repo.Episodes(ctx, id, false)
	if err != nil {
		s.serverError(w, r, err, "could not load episodes")
		return
	}
	for i := range eps {
		eps[i].VideoURL = publicVideoURL(eps[i].VideoURL)
	}

	resp := animeDetailsResponse{
		Anime:           a,
		DescriptionHTML: richtext.Render(a.Description),
		Episodes:        eps,
	}
	if uid := auth.UserIDFromContext(ctx); uid != "" {
		fav, err := s.repo.IsFavorite(ctx, uid, id)
		if err != nil {
			logger.FromContext(ctx).WithError(err).Warn("anime details: favorite flag unavailable")
		}
		resp.IsFavorite = fav
	}
	writeJSON(w, http.StatusOK, resp)
}
