// fixtures.go — seed rows for integration tests.
package testutil

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"
)

// SeedCategory inserts a category and returns its id.
func SeedCategory(t *testing.T, db *sql.DB, name, slug string) int {
	t.Helper()
	var id int
	if err := db.QueryRow(`INSERT INTO categories (name, slug) VALUES ($1, $2) RETURNING id`, name, slug).Scan(&id); err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return id
}

// SeedAnime inserts an anime with the given view count and returns its id.
func SeedAnime(t *testing.T, db *sql.DB, title, slug string, categoryID int, views int64) string {
	t.Helper()
	var id string
	err := db.QueryRow(`
		INSERT INTO animes (title, slug, description, cover_image, category_id, status, views_count)
		VALUES ($1, $2, 'desc', 'https://img.example/cover.jpg', $3, 'Lançamento', $4)
		RETURNING id`, title, slug, categoryID, views).Scan(&id)
	if err != nil {
		t.Fatalf("seed anime: %v", err)
	}
	return id
}

// SeedEpisode inserts an episode and returns its id.
func SeedEpisode(t *testing.T, db *sql.DB, animeID string, number int, videoURL string) string {
	t.Helper()
	var id string
	err := db.QueryRow(`
		INSERT INTO episodes (anime_id, episode_number, title, video_url)
		VALUES ($1, $2, 'Episódio', $3)
		RETURNING id`, animeID, number, videoURL).Scan(&id)
	if err != nil {
		t.Fatalf("seed episode: %v", err)
	}
	return id
}

// SeedProfile inserts a profile with a fresh id and returns it.
func SeedProfile(t *testing.T, db *sql.DB, username, role string) string {
	t.Helper()
	id := uuid.NewString()
	if _, err := db.Exec(`INSERT INTO profiles (id, username, role) VALUES ($1, $2, $3)`, id, username, role); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	return id
}
