// server.go — storefront API: server struct, dependency interfaces, routes.
// Serves the anime storefront SPA: catalog browsing, playback decisions,
// accounts and favorites through the hosted auth, and the admin panel.
package storefront

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/yourflock/nekostream/internal/auth"
	"github.com/yourflock/nekostream/internal/cache"
	"github.com/yourflock/nekostream/internal/config"
	"github.com/yourflock/nekostream/internal/gotrue"
	"github.com/yourflock/nekostream/internal/logger"
	"github.com/yourflock/nekostream/internal/metrics"
	"github.com/yourflock/nekostream/internal/ratelimit"
	"github.com/yourflock/nekostream/internal/store"
	"github.com/yourflock/nekostream/pkg/telemetry"
)

const serviceName = "nekostream"

// Repository is the storage the handlers need. *store.Store implements it.
type Repository interface {
	Ping(ctx context.Context) error

	Featured(ctx context.Context) (*store.Anime, error)
	Popular(ctx context.Context, limit int) ([]store.Anime, error)
	RecentEpisodes(ctx context.Context, limit int) ([]store.Episode, error)
	Anime(ctx context.Context, id string) (*store.Anime, error)
	Episodes(ctx context.Context, animeID string, desc bool) ([]store.Episode, error)
	Episode(ctx context.Context, id string) (*store.Episode, error)
	Neighbors(ctx context.Context, animeID string, number int) (store.Neighbors, error)
	IncrementViews(ctx context.Context, animeID string) error
	Categories(ctx context.Context) ([]store.Category, error)
	ListAnimes(ctx context.Context) ([]store.Anime, error)

	CreateAnime(ctx context.Context, in store.AnimeInput) (*store.Anime, error)
	UpdateAnime(ctx context.Context, id string, in store.AnimeInput) (*store.Anime, error)
	DeleteAnime(ctx context.Context, id string) error
	CreateEpisode(ctx context.Context, in store.EpisodeInput) (*store.Episode, error)
	UpdateEpisode(ctx context.Context, id string, in store.EpisodeInput) (*store.Episode, error)
	DeleteEpisode(ctx context.Context, id string) error

	FavoriteAnimes(ctx context.Context, userID string) ([]store.Anime, error)
	FavoriteIDs(ctx context.Context, userID string) ([]string, error)
	IsFavorite(ctx context.Context, userID, animeID string) (bool, error)
	AddFavorite(ctx context.Context, userID, animeID string) (*store.Favorite, error)
	RemoveFavorite(ctx context.Context, userID, animeID string) error

	Profile(ctx context.Context, id string) (*store.Profile, error)
	ProfileRole(ctx context.Context, id string) (string, error)
	EnsureProfile(ctx context.Context, p store.Profile) (*store.Profile, error)
	UpdateProfile(ctx context.Context, id, username, avatarURL string) (*store.Profile, error)
}

// AuthProvider is the hosted auth API. *gotrue.Client implements it.
type AuthProvider interface {
	SignUp(ctx context.Context, email, password string, meta gotrue.UserMetadata) (*gotrue.Session, error)
	SignIn(ctx context.Context, email, password string) (*gotrue.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*gotrue.Session, error)
	UpdateUser(ctx context.Context, accessToken string, meta gotrue.UserMetadata) (*gotrue.User, error)
	SignOut(ctx context.Context, accessToken string) error
}

// SourceResolver finds a link for episodes stored with the placeholder.
// *sugoi.Client implements it.
type SourceResolver interface {
	Resolve(ctx context.Context, slug string, season, episode int) (string, error)
}

// Deps are the collaborators of a Server. Auth and Resolver may be nil:
// account routes then answer 503 and automatic sources are unavailable.
type Deps struct {
	Config   *config.Config
	Repo     Repository
	Auth     AuthProvider
	Resolver SourceResolver
	Cache    cache.Backend
	Limiter  *ratelimit.Limiter
	Verifier *auth.Verifier
	Logger   *logrus.Entry
}

// Server holds all shared dependencies for the storefront API.
type Server struct {
	cfg      *config.Config
	repo     Repository
	auth     AuthProvider
	resolver SourceResolver
	cache    cache.Backend
	limiter  *ratelimit.Limiter
	verifier *auth.Verifier
	log      *logrus.Entry
}

// NewServer fills in no-op defaults for the optional dependencies.
func NewServer(d Deps) *Server {
	s := &Server{
		cfg:      d.Config,
		repo:     d.Repo,
		auth:     d.Auth,
		resolver: d.Resolver,
		cache:    d.Cache,
		limiter:  d.Limiter,
		verifier: d.Verifier,
		log:      d.Logger,
	}
	if s.cfg == nil {
		s.cfg = &config.Config{CacheTTL: time.Minute}
	}
	if s.cache == nil {
		s.cache = cache.New(nil, "")
	}
	if s.limiter == nil {
		s.limiter = ratelimit.New(nil)
	}
	if s.verifier == nil {
		s.verifier = auth.NewVerifier("")
	}
	if s.log == nil {
		s.log = logrus.NewEntry(logrus.StandardLogger())
	}
	return s
}

// Routes builds the chi router with every storefront endpoint registered.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.Middleware(s.log))
	r.Use(telemetry.PanicRecoveryMiddleware(serviceName))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	// Public catalog. A valid token only adds per-user flags.
	r.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(s.verifier))
		r.Get("/home", s.handleHome)
		r.Get("/categories", s.handleCategories)
		r.Get("/animes/{id}", s.handleAnimeDetails)
		r.Get("/episodes/{id}/play", s.handlePlay)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Use(s.requireBackend)
		r.Post("/signup", s.handleSignUp)
		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)
		r.With(auth.RequireAuth(s.verifier)).Post("/logout", s.handleLogout)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireBackend)
		r.Use(auth.RequireAuth(s.verifier))
		r.Get("/me", s.handleMe)
		r.Put("/me/profile", s.handleUpdateProfile)
		r.Get("/me/favorites", s.handleListFavorites)
		r.Get("/me/favorites/ids", s.handleFavoriteIDs)
		r.Put("/animes/{id}/favorite", s.handleAddFavorite)
		r.Delete("/animes/{id}/favorite", s.handleRemoveFavorite)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.requireBackend)
		r.Use(auth.RequireAuth(s.verifier))
		r.Use(auth.RequireAdmin(s.repo))

		r.Get("/categories", s.handleCategories)

		r.Get("/animes", s.handleAdminListAnimes)
		r.Post("/animes", s.handleAdminCreateAnime)
		r.Put("/animes/{id}", s.handleAdminUpdateAnime)
		r.Delete("/animes/{id}", s.handleAdminDeleteAnime)
		r.Get("/animes/{id}/episodes", s.handleAdminListEpisodes)

		r.Post("/episodes", s.handleAdminCreateEpisode)
		r.Put("/episodes/{id}", s.handleAdminUpdateEpisode)
		r.Delete("/episodes/{id}", s.handleAdminDeleteEpisode)

		r.Post("/embed/preview", s.handleEmbedPreview)
	})

	return metrics.Middleware(serviceName, r)
}

// handleHealth reports liveness, database reachability and whether the
// hosted auth is configured (with a redacted view of its settings).
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code, db := "ok", http.StatusOK, "ok"
	if s.repo == nil || s.repo.Ping(ctx) != nil {
		status, code, db = "degraded", http.StatusServiceUnavailable, "unreachable"
	}
	writeJSON(w, code, map[string]interface{}{
		"status":             status,
		"service":            serviceName,
		"database":           db,
		"backend_configured": s.backendConfigured(),
		"debug":              s.cfg.DebugInfo(),
	})
}

func (s *Server) backendConfigured() bool {
	return s.auth != nil && s.cfg.BackendConfigured()
}

// requireBackend answers 503 when the hosted auth is not set up, so the
// SPA can show its configuration screen instead of failing requests.
func (s *Server) requireBackend(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.backendConfigured() {
			writeError(w, http.StatusServiceUnavailable, "backend_not_configured",
				"BACKEND_URL and BACKEND_ANON_KEY must be set (an http(s) URL and the public key)")
			return
		}
		next.ServeHTTP(w, r)
	})
}
