// main.go — seeds the default anime categories. Safe to re-run: rows are
// upserted by slug.
//
//	DATABASE_URL=postgres://... go run ./cmd/seed
package main

import (
	"context"
	"database/sql"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/yourflock/nekostream/internal/logger"
	"github.com/yourflock/nekostream/internal/slug"
	"github.com/yourflock/nekostream/internal/store"
)

var defaultCategories = []string{
	"Ação", "Aventura", "Comédia", "Drama", "Fantasia", "Romance", "Isekai", "Shounen",
}

func main() {
	log := logger.New("nekostream-seed", "text", os.Getenv("LOG_LEVEL"))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.WithError(err).Fatal("database open")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st := store.New(db)
	for _, name := range defaultCategories {
		c, err := st.UpsertCategory(ctx, name, slug.Make(name))
		if err != nil {
			log.WithError(err).WithField("category", name).Fatal("upsert category")
		}
		log.WithFields(logrus.Fields{"id": c.ID, "name": c.Name, "slug": c.Slug}).Info("category ready")
	}
}
