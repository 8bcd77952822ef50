// favorites.go — a user's favorite animes.
package store

import (
	"context"
	"fmt"
)

// FavoriteAnimes returns the animes the user marked, with categories.
func (s *Store) FavoriteAnimes(ctx context.Context, userID string) ([]Anime, error) {
	out, err := s.queryAnimes(ctx, `
		SELECT `+animeSelectCols+animeFrom+`
		JOIN favorites f ON f.anime_id = a.id
		WHERE f.user_id = $1
		ORDER BY a.title`, userID)
	if err != nil {
		return nil, fmt.Errorf("favorite animes: %w", err)
	}
	return out, nil
}

// FavoriteIDs returns just the anime ids, for highlighting cards.
func (s *Store) FavoriteIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT anime_id FROM favorites WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("favorite ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("favorite ids: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) IsFavorite(ctx context.Context, userID, animeID string) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM favorites WHERE user_id = $1 AND anime_id = $2)`,
		userID, animeID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("is favorite: %w", err)
	}
	return ok, nil
}

// AddFavorite is idempotent and returns the favorite row, new or existing.
// The insert only selects from animes, so an unknown anime yields
// ErrNotFound even when the hosted table has no foreign key. No unique
// constraint is required either.
func (s *Store) AddFavorite(ctx context.Context, userID, animeID string) (*Favorite, error) {
	var f Favorite
	err := s.db.QueryRowContext(ctx, `
		WITH ins AS (
			INSERT INTO favorites (user_id, anime_id)
			SELECT $1::uuid, a.id FROM animes a
			WHERE a.id = $2::uuid
			  AND NOT EXISTS (SELECT 1 FROM favorites WHERE user_id = $1::uuid AND anime_id = $2::uuid)
			RETURNING id, user_id, anime_id
		)
		SELECT id, user_id, anime_id FROM ins
		UNION ALL
		SELECT id, user_id, anime_id FROM favorites WHERE user_id = $1::uuid AND anime_id = $2::uuid
		LIMIT 1`,
		userID, animeID).Scan(&f.ID, &f.UserID, &f.AnimeID)
	if err != nil {
		return nil, fmt.Errorf("add favorite: %w", mapErr(err))
	}
	return &f, nil
}

// RemoveFavorite is idempotent too: removing a missing favorite is not an error.
func (s *Store) RemoveFavorite(ctx context.Context, userID, animeID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND anime_id = $2`, userID, animeID)
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}
