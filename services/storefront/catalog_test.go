package storefront

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/yourflock/nekostream/internal/store"
	"github.com/yourflock/nekostream/internal/testutil"
)

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rr := testutil.GetJSON(t, env.handler, "/health")
	testutil.AssertStatus(t, rr, http.StatusOK)

	var body struct {
		Status            string `json:"status"`
		Database          string `json:"database"`
		BackendConfigured bool   `json:"backend_configured"`
		Debug             struct {
			URLStart string `json:"url_start"`
			HasHTTPS bool   `json:"has_https"`
		} `json:"debug"`
	}
	testutil.DecodeJSON(t, rr, &body)
	if body.Status != "ok" || body.Database != "ok" || !body.BackendConfigured {
		t.Errorf("unexpected health: %+v", body)
	}
	if body.Debug.URLStart != "https://..." || !body.Debug.HasHTTPS {
		t.Errorf("debug info = %+v", body.Debug)
	}
}

func TestHealth_Degraded(t *testing.T) {
	env := newTestEnv(t, withoutBackend())
	env.repo.pingErr = errors.New("connection refused")

	rr := testutil.GetJSON(t, env.handler, "/health")
	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)

	var body map[string]interface{}
	testutil.DecodeJSON(t, rr, &body)
	if body["status"] != "degraded" || body["backend_configured"] != false {
		t.Errorf("unexpected health: %v", body)
	}
}

func TestHome_CachesAnonymousPayload(t *testing.T) {
	env := newTestEnv(t)
	hot := env.repo.addAnime("Frieren", "frieren", 900)
	env.repo.addAnime("Dandadan", "dandadan", 10)
	env.repo.addEpisode(hot.ID, 1, AutoSourcePlaceholder)

	for i := 0; i < 3; i++ {
		rr := testutil.GetJSON(t, env.handler, "/home")
		testutil.AssertStatus(t, rr, http.StatusOK)

		var body struct {
			Featured       *store.Anime    `json:"featured"`
			RecentEpisodes []store.Episode `json:"recent_episodes"`
			Popular        []store.Anime   `json:"popular"`
			FavoriteIDs    []string        `json:"favorite_anime_ids"`
		}
		testutil.DecodeJSON(t, rr, &body)
		if body.Featured == nil || body.Featured.ID != hot.ID {
			t.Fatalf("featured = %+v, want %s", body.Featured, hot.ID)
		}
		if len(body.Popular) != 2 || body.Popular[0].ID != hot.ID {
			t.Errorf("popular = %+v", body.Popular)
		}
		if len(body.RecentEpisodes) != 1 || body.RecentEpisodes[0].VideoURL != "" {
			t.Errorf("recent episodes should hide the placeholder: %+v", body.RecentEpisodes)
		}
		if body.FavoriteIDs == nil || len(body.FavoriteIDs) != 0 {
			t.Errorf("anonymous favorite ids = %v, want []", body.FavoriteIDs)
		}
	}
	if env.repo.featuredCalls != 1 {
		t.Errorf("featured queried %d times, want 1 (cached)", env.repo.featuredCalls)
	}
}

func TestHome_EmptyCatalog(t *testing.T) {
	env := newTestEnv(t)
	rr := testutil.GetJSON(t, env.handler, "/home")
	testutil.AssertStatus(t, rr, http.StatusOK)

	var body map[string]interface{}
	testutil.DecodeJSON(t, rr, &body)
	if body["featured"] != nil {
		t.Errorf("featured = %v, want null", body["featured"])
	}
}

func TestHome_StoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.repo.failWith = errors.New("boom")
	rr := testutil.GetJSON(t, env.handler, "/home")
	testutil.AssertStatus(t, rr, http.StatusInternalServerError)
	if code := testutil.ErrorCode(t, rr); code != "server_error" {
		t.Errorf("error = %q", code)
	}
}

func TestHome_FavoriteIDsForSignedInUser(t *testing.T) {
	env := newTestEnv(t)
	a := env.repo.addAnime("Frieren", "frieren", 1)
	if _, err := env.repo.AddFavorite(context.Background(), testUserID, a.ID); err != nil {
		t.Fatal(err)
	}

	rr := testutil.DoJSON(t, env.handler, http.MethodGet, "/home", userToken(t, testUserID), nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
	var body struct {
		FavoriteIDs []string `json:"favorite_anime_ids"`
	}
	testutil.DecodeJSON(t, rr, &body)
	if len(body.FavoriteIDs) != 1 || body.FavoriteIDs[0] != a.ID {
		t.Errorf("favorite ids = %v", body.FavoriteIDs)
	}

	// An invalid token on a public route is treated as anonymous.
	rr = testutil.DoJSON(t, env.handler, http.MethodGet, "/home", "not-a-token", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestCategories(t *testing.T) {
	env := newTestEnv(t)
	rr := testutil.GetJSON(t, env.handler, "/categories")
	testutil.AssertStatus(t, rr, http.StatusOK)

	var body struct {
		Categories []store.Category `json:"categories"`
	}
	testutil.DecodeJSON(t, rr, &body)
	if len(body.Categories) != 2 || body.Categories[0].Slug != "acao" {
		t.Errorf("categories = %+v", body.Categories)
	}
}

func TestAnimeDetails(t *testing.T) {
	env := newTestEnv(t)
	a := env.repo.addAnime("Frieren", "frieren", 1)
	env.repo.addEpisode(a.ID, 2, "https://youtu.be/abc")
	env.repo.addEpisode(a.ID, 1, AutoSourcePlaceholder)

	rr := testutil.GetJSON(t, env.handler, "/animes/"+a.ID)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var body struct {
		Anime           store.Anime     `json:"anime"`
		DescriptionHTML string          `json:"description_html"`
		Episodes        []store.Episode `json:"episodes"`
		IsFavorite      bool            `json:"is_favorite"`
	}
	testutil.DecodeJSON(t, rr, &body)
	if body.Anime.Category == nil || body.Anime.Category.Name != "Ação" {
		t.Errorf("anime category = %+v", body.Anime.Category)
	}
	if !strings.Contains(body.DescriptionHTML, "<strong>Frieren</strong>") {
		t.Errorf("description_html = %q", body.DescriptionHTML)
	}
	if len(body.Episodes) != 2 || body.Episodes[0].EpisodeNumber != 1 || body.Episodes[1].EpisodeNumber != 2 {
		t.Fatalf("episodes not in ascending order: %+v", body.Episodes)
	}
	if body.Episodes[0].VideoURL != "" || body.Episodes[1].VideoURL != "https://youtu.be/abc" {
		t.Errorf("video urls = %q, %q", body.Episodes[0].VideoURL, body.Episodes[1].VideoURL)
	}
	if body.IsFavorite {
		t.Error("anonymous caller should not see is_favorite")
	}
}

func TestAnimeDetails_Errors(t *testing.T) {
	env := newTestEnv(t)

	rr := testutil.GetJSON(t, env.handler, "/animes/not-a-uuid")
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	if code := testutil.ErrorCode(t, rr); code != "invalid_id" {
		t.Errorf("error = %q", code)
	}

	rr = testutil.GetJSON(t, env.handler, "/animes/"+testUserID)
	testutil.AssertStatus(t, rr, http.StatusNotFound)
	if code := testutil.ErrorCode(t, rr); code != "not_found" {
		t.Errorf("error = %q", code)
	}
}
