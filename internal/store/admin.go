// admin.go — catalog writes used by the admin panel.
package store

import (
	"context"
	"fmt"
)

// AnimeInput is the writable part of an anime.
type AnimeInput struct {
	Title       string
	Slug        string
	Description string
	CoverImage  string
	BannerImage string
	CategoryID  int
	Status      string
}

// EpisodeInput is the writable part of an episode. AnimeID is ignored on
// update: an episode never moves to another anime.
type EpisodeInput struct {
	AnimeID       string
	EpisodeNumber int
	Title         string
	VideoURL      string
	ThumbnailURL  string
}

func (s *Store) CreateAnime(ctx context.Context, in AnimeInput) (*Anime, error) {
	row := s.db.QueryRowContext(ctx, `
		WITH a AS (
			INSERT INTO animes (title, slug, description, cover_image, banner_image, category_id, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING *
		)
		SELECT `+animeSelectCols+` FROM a LEFT JOIN categories c ON c.id = a.category_id`,
		in.Title, in.Slug, in.Description, in.CoverImage, in.BannerImage, in.CategoryID, in.Status)
	a, err := scanAnime(row)
	if err != nil {
		return nil, fmt.Errorf("create anime: %w", mapErr(err))
	}
	return a, nil
}

func (s *Store) UpdateAnime(ctx context.Context, id string, in AnimeInput) (*Anime, error) {
	row := s.db.QueryRowContext(ctx, `
		WITH a AS (
			UPDATE animes SET title = $2, slug = $3, description = $4, cover_image = $5,
				banner_image = $6, category_id = $7, status = $8
			WHERE id = $1
			RETURNING *
		)
		SELECT `+animeSelectCols+` FROM a LEFT JOIN categories c ON c.id = a.category_id`,
		id, in.Title, in.Slug, in.Description, in.CoverImage, in.BannerImage, in.CategoryID, in.Status)
	a, err := scanAnime(row)
	if err != nil {
		return nil, fmt.Errorf("update anime %s: %w", id, mapErr(err))
	}
	return a, nil
}

// DeleteAnime removes an anime. Episodes and favorites go with it when the
// hosted schema cascades; otherwise ErrDependency is returned.
func (s *Store) DeleteAnime(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "animes", id)
}

func (s *Store) CreateEpisode(ctx context.Context, in EpisodeInput) (*Episode, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO episodes (anime_id, episode_number, title, video_url, thumbnail_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, anime_id, episode_number, COALESCE(title, ''), COALESCE(video_url, ''),
			COALESCE(thumbnail_url, ''), created_at`,
		in.AnimeID, in.EpisodeNumber, in.Title, in.VideoURL, in.ThumbnailURL)
	e, err := scanEpisode(row)
	if err != nil {
		return nil, fmt.Errorf("create episode: %w", mapErr(err))
	}
	return e, nil
}

func (s *Store) UpdateEpisode(ctx context.Context, id string, in EpisodeInput) (*Episode, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE episodes SET episode_number = $2, title = $3, video_url = $4, thumbnail_url = $5
		WHERE id = $1
		RETURNING id, anime_id, episode_number, COALESCE(title, ''), COALESCE(video_url, ''),
			COALESCE(thumbnail_url, ''), created_at`,
		id, in.EpisodeNumber, in.Title, in.VideoURL, in.ThumbnailURL)
	e, err := scanEpisode(row)
	if err != nil {
		return nil, fmt.Errorf("update episode %s: %w", id, mapErr(err))
	}
	return e, nil
}

func (s *Store) DeleteEpisode(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "episodes", id)
}

// deleteByID reports ErrNotFound when nothing was deleted. table is always
// a constant from this package.
func (s *Store) deleteByID(ctx context.Context, table, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, mapErr(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
