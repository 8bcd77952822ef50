// catalog.go — public catalog reads.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

const animeSelectCols = `
	a.id, a.title, a.slug, COALESCE(a.description, ''), COALESCE(a.cover_image, ''),
	COALESCE(a.banner_image, ''), COALESCE(a.category_id, 0), a.status,
	COALESCE(a.views_count, 0), a.created_at,
	c.id, c.name, c.slug`

const animeFrom = ` FROM animes a LEFT JOIN categories c ON c.id = a.category_id`

const episodeSelectCols = `
	e.id, e.anime_id, e.episode_number, COALESCE(e.title, ''), COALESCE(e.video_url, ''),
	COALESCE(e.thumbnail_url, ''), e.created_at`

type scanner interface {
	Scan(...interface{}) error
}

// scanAnime reads animeSelectCols. Category is nil when the anime has none.
func scanAnime(row scanner, extra ...interface{}) (*Anime, error) {
	var a Anime
	var catID sql.NullInt64
	var catName, catSlug sql.NullString
	dest := []interface{}{
		&a.ID, &a.Title, &a.Slug, &a.Description, &a.CoverImage,
		&a.BannerImage, &a.CategoryID, &a.Status,
		&a.ViewsCount, &a.CreatedAt,
		&catID, &catName, &catSlug,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if catID.Valid {
		a.Category = &Category{ID: int(catID.Int64), Name: catName.String, Slug: catSlug.String}
	}
	return &a, nil
}

func scanEpisode(row scanner, extra ...interface{}) (*Episode, error) {
	var e Episode
	dest := []interface{}{
		&e.ID, &e.AnimeID, &e.EpisodeNumber, &e.Title, &e.VideoURL,
		&e.ThumbnailURL, &e.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) queryAnimes(ctx context.Context, query string, args ...interface{}) ([]Anime, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Anime{}
	for rows.Next() {
		a, err := scanAnime(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Featured returns the most viewed anime, ErrNotFound on an empty catalog.
func (s *Store) Featured(ctx context.Context) (*Anime, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+animeSelectCols+animeFrom+` ORDER BY a.views_count DESC NULLS LAST, a.created_at DESC LIMIT 1`)
	a, err := scanAnime(row)
	return a, mapErr(err)
}

// Popular returns up to limit animes by views, most viewed first.
func (s *Store) Popular(ctx context.Context, limit int) ([]Anime, error) {
	out, err := s.queryAnimes(ctx,
		`SELECT `+animeSelectCols+animeFrom+` ORDER BY a.views_count DESC NULLS LAST, a.created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("popular animes: %w", err)
	}
	return out, nil
}

// ListAnimes returns the whole catalog, newest first.
func (s *Store) ListAnimes(ctx context.Context) ([]Anime, error) {
	out, err := s.queryAnimes(ctx, `SELECT `+animeSelectCols+animeFrom+` ORDER BY a.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list animes: %w", err)
	}
	return out, nil
}

// RecentEpisodes returns the newest episodes with a summary of their anime
// (id, title, cover image, slug).
func (s *Store) RecentEpisodes(ctx context.Context, limit int) ([]Episode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+episodeSelectCols+`, a.id, a.title, COALESCE(a.cover_image, ''), a.slug
		FROM episodes e JOIN animes a ON a.id = e.anime_id
		ORDER BY e.created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent episodes: %w", err)
	}
	defer rows.Close()

	out := []Episode{}
	for rows.Next() {
		var a Anime
		e, err := scanEpisode(rows, &a.ID, &a.Title, &a.CoverImage, &a.Slug)
		if err != nil {
			return nil, fmt.Errorf("recent episodes: %w", err)
		}
		e.Anime = &a
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Anime returns one anime with its category.
func (s *Store) Anime(ctx context.Context, id string) (*Anime, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+animeSelectCols+animeFrom+` WHERE a.id = $1`, id)
	a, err := scanAnime(row)
	return a, mapErr(err)
}

// Episodes lists an anime's episodes by number, ascending unless desc.
func (s *Store) Episodes(ctx context.Context, animeID string, desc bool) ([]Episode, error) {
	order := "ASC"
	if desc {
		order = "DESC"
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+episodeSelectCols+` FROM episodes e WHERE e.anime_id = $1 ORDER BY e.episode_number `+order, animeID)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	out := []Episode{}
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, fmt.Errorf("list episodes: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Episode returns one episode joined with its full anime.
func (s *Store) Episode(ctx context.Context, id string) (*Episode, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+animeSelectCols+`, `+episodeSelectCols+`
		FROM episodes e
		JOIN animes a ON a.id = e.anime_id
		LEFT JOIN categories c ON c.id = a.category_id
		WHERE e.id = $1`, id)

	var e Episode
	a, err := scanAnime(row,
		&e.ID, &e.AnimeID, &e.EpisodeNumber, &e.Title, &e.VideoURL,
		&e.ThumbnailURL, &e.CreatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	e.Anime = a
	return &e, nil
}

// Neighbors finds the episodes numbered n-1 and n+1 of the same anime.
// Gaps in the numbering leave the corresponding side nil.
func (s *Store) Neighbors(ctx context.Context, animeID string, number int) (Neighbors, error) {
	var nb Neighbors
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, episode_number FROM episodes WHERE anime_id = $1 AND episode_number = ANY($2)`,
		animeID, pq.Array([]int64{int64(number - 1), int64(number + 1)}))
	if err != nil {
		return nb, fmt.Errorf("episode neighbors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nb, fmt.Errorf("episode neighbors: %w", err)
		}
		switch n {
		case number - 1:
			nb.Prev = &id
		case number + 1:
			nb.Next = &id
		}
	}
	return nb, rows.Err()
}

// IncrementViews bumps an anime's view counter by one.
func (s *Store) IncrementViews(ctx context.Context, animeID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE animes SET views_count = COALESCE(views_count, 0) + 1 WHERE id = $1`, animeID)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Categories returns every category by name.
func (s *Store) Categories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, slug FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertCategory inserts a category or renames the one sharing its slug.
func (s *Store) UpsertCategory(ctx context.Context, name, slug string) (*Category, error) {
	var c Category
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (name, slug) VALUES ($1, $2)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, slug`, name, slug).Scan(&c.ID, &c.Name, &c.Slug)
	if err != nil {
		return nil, fmt.Errorf("upsert category %q: %w", slug, mapErr(err))
	}
	return &c, nil
}
