// Package store reads and writes the storefront tables on the hosted
// Postgres database: animes, episodes, categories, favorites, profiles.
//
// The schema is owned by the hosting platform; this package only issues
// queries against it. Positional $n placeholders throughout.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a lookup or targeted write matches no row.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict wraps unique violations (pq code 23505).
	ErrConflict = errors.New("store: conflict")
	// ErrDependency wraps foreign key violations (pq code 23503): deleting a
	// row something still points at, or pointing at a row that is gone.
	ErrDependency = errors.New("store: dependency")
)

// Anime statuses accepted by the catalog.
const (
	StatusReleasing = "Lançamento"
	StatusFinished  = "Finalizado"
	StatusUpcoming  = "Em Breve"
)

// Statuses lists the valid anime statuses in display order.
var Statuses = []string{StatusReleasing, StatusFinished, StatusUpcoming}

// Profile is the public profile row keyed by the auth user id.
type Profile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	Role      string `json:"role"`
}

type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Anime struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CoverImage  string    `json:"cover_image"`
	BannerImage string    `json:"banner_image"`
	CategoryID  int       `json:"category_id"`
	Status      string    `json:"status"`
	ViewsCount  int64     `json:"views_count"`
	CreatedAt   time.Time `json:"created_at"`
	Category    *Category `json:"category,omitempty"`
}

type Episode struct {
	ID            string    `json:"id"`
	AnimeID       string    `json:"anime_id"`
	EpisodeNumber int       `json:"episode_number"`
	Title         string    `json:"title"`
	VideoURL      string    `json:"video_url"`
	ThumbnailURL  string    `json:"thumbnail_url"`
	CreatedAt     time.Time `json:"created_at"`
	Anime         *Anime    `json:"anime,omitempty"`
}

// Favorite links a user to an anime they marked.
type Favorite struct {
	ID      string `json:"id"`
	UserID  string `json:"user_id"`
	AnimeID string `json:"anime_id"`
}

// Neighbors holds the ids of episodes n-1 and n+1 of the same anime.
type Neighbors struct {
	Prev *string `json:"prev"`
	Next *string `json:"next"`
}

// Store wraps a *sql.DB opened with the lib/pq driver.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Ping checks the connection for /health.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// mapErr turns driver errors into the package sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pqErr.Constraint)
		case "23503":
			return fmt.Errorf("%w: %s", ErrDependency, pqErr.Constraint)
		}
	}
	return err
}
