// fakes_test.go — in-memory collaborators for the storefront handler tests.
package storefront

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/yourflock/nekostream/internal/gotrue"
	"github.com/yourflock/nekostream/internal/store"
)

// fakeRepo implements Repository over maps. Set failWith to make every
// catalog read fail.
type fakeRepo struct {
	mu sync.Mutex

	categories []store.Category
	animes     map[string]*store.Anime
	episodes   map[string]*store.Episode
	favorites  map[string]map[string]bool
	profiles   map[string]*store.Profile

	pingErr       error
	failWith      error
	deleteErr     error
	featuredCalls int
	seq           int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		categories: []store.Category{{ID: 1, Name: "Ação", Slug: "acao"}, {ID: 2, Name: "Isekai", Slug: "isekai"}},
		animes:     map[string]*store.Anime{},
		episodes:   map[string]*store.Episode{},
		favorites:  map[string]map[string]bool{},
		profiles:   map[string]*store.Profile{},
	}
}

func (f *fakeRepo) nextID() string {
	f.seq++
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", f.seq)
}

func (f *fakeRepo) category(id int) *store.Category {
	for i := range f.categories {
		if f.categories[i].ID == id {
			c := f.categories[i]
			return &c
		}
	}
	return nil
}

func (f *fakeRepo) addAnime(title, slug string, views int64) *store.Anime {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := &store.Anime{
		ID:          f.nextID(),
		Title:       title,
		Slug:        slug,
		Description: "**" + title + "** description",
		CoverImage:  "https://img.example.com/" + slug + ".jpg",
		CategoryID:  1,
		Status:      store.StatusReleasing,
		ViewsCount:  views,
		CreatedAt:   time.Now().Add(time.Duration(f.seq) * time.Second),
	}
	f.animes[a.ID] = a
	return a
}

func (f *fakeRepo) addEpisode(animeID string, number int, videoURL string) *store.Episode {
	f.mu.Lock()
	defer f.mu.Unlock()
	ep := &store.Episode{
		ID:            f.nextID(),
		AnimeID:       animeID,
		EpisodeNumber: number,
		Title:         fmt.Sprintf("Episode %d", number),
		VideoURL:      videoURL,
		CreatedAt:     time.Now().Add(time.Duration(f.seq) * time.Second),
	}
	f.episodes[ep.ID] = ep
	return ep
}

func (f *fakeRepo) withCategory(a store.Anime) store.Anime {
	a.Category = f.category(a.CategoryID)
	return a
}

func (f *fakeRepo) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeRepo) Featured(ctx context.Context) (*store.Anime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.featuredCalls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	var best *store.Anime
	for _, a := range f.animes {
		if best == nil || a.ViewsCount > best.ViewsCount {
			best = a
		}
	}
	if best == nil {
		return nil, store.ErrNotFound
	}
	out := f.withCategory(*best)
	return &out, nil
}

func (f *fakeRepo) sortedAnimes(less func(a, b *store.Anime) bool) []store.Anime {
	list := make([]*store.Anime, 0, len(f.animes))
	for _, a := range f.animes {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool { return less(list[i], list[j]) })
	out := make([]store.Anime, 0, len(list))
	for _, a := range list {
		out = append(out, f.withCategory(*a))
	}
	return out
}

func (f *fakeRepo) Popular(ctx context.Context, limit int) ([]store.Anime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := f.sortedAnimes(func(a, b *store.Anime) bool { return a.ViewsCount > b.ViewsCount })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) ListAnimes(ctx context.Context) ([]store.Anime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedAnimes(func(a, b *store.Anime) bool { return a.CreatedAt.After(b.CreatedAt) }), nil
}

func (f *fakeRepo) RecentEpisodes(ctx context.Context, limit int) ([]store.Episode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := make([]store.Episode, 0, len(f.episodes))
	for _, ep := range f.episodes {
		e := *ep
		if a, ok := f.animes[e.AnimeID]; ok {
			e.Anime = &store.Anime{ID: a.ID, Title: a.Title, CoverImage: a.CoverImage, Slug: a.Slug}
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) Anime(ctx context.Context, id string) (*store.Anime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.animes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := f.withCategory(*a)
	return &out, nil
}

func (f *fakeRepo) Episodes(ctx context.Context, animeID string, desc bool) ([]store.Episode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []store.Episode{}
	for _, ep := range f.episodes {
		if ep.AnimeID == animeID {
			out = append(out, *ep)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].EpisodeNumber > out[j].EpisodeNumber
		}
		return out[i].EpisodeNumber < out[j].EpisodeNumber
	})
	return out, nil
}

func (f *fakeRepo) Episode(ctx context.Context, id string) (*store.Episode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ep, ok := f.episodes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *ep
	if a, ok := f.animes[out.AnimeID]; ok {
		full := f.withCategory(*a)
		out.Anime = &full
	}
	return &out, nil
}

func (f *fakeRepo) Neighbors(ctx context.Context, animeID string, number int) (store.Neighbors, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var nb store.Neighbors
	for _, ep := range f.episodes {
		if ep.AnimeID != animeID {
			continue
		}
		id := ep.ID
		switch ep.EpisodeNumber {
		case number - 1:
			nb.Prev = &id
		case number + 1:
			nb.Next = &id
		}
	}
	return nb, nil
}

func (f *fakeRepo) IncrementViews(ctx context.Context, animeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.animes[animeID]
	if !ok {
		return store.ErrNotFound
	}
	a.ViewsCount++
	return nil
}

func (f *fakeRepo) views(animeID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.animes[animeID].ViewsCount
}

func (f *fakeRepo) Categories(ctx context.Context) ([]store.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.Category(nil), f.categories...), nil
}

func (f *fakeRepo) slugTaken(slug, except string) bool {
	for id, a := range f.animes {
		if a.Slug == slug && id != except {
			return true
		}
	}
	return false
}

func (f *fakeRepo) CreateAnime(ctx context.Context, in store.AnimeInput) (*store.Anime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.category(in.CategoryID) == nil {
		return nil, store.ErrDependency
	}
	if f.slugTaken(in.Slug, "") {
		return nil, store.ErrConflict
	}
	a := &store.Anime{
		ID: f.nextID(), Title: in.Title, Slug: in.Slug, Description: in.Description,
		CoverImage: in.CoverImage, BannerImage: in.BannerImage, CategoryID: in.CategoryID,
		Status: in.Status, CreatedAt: time.Now(),
	}
	f.animes[a.ID] = a
	out := f.withCategory(*a)
	return &out, nil
}

func (f *fakeRepo) UpdateAnime(ctx context.Context, id string, in store.AnimeInput) (*store.Anime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.animes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if f.category(in.CategoryID) == nil {
		return nil, store.ErrDependency
	}
	if f.slugTaken(in.Slug, id) {
		return nil, store.ErrConflict
	}
	a.Title, a.Slug, a.Description = in.Title, in.Slug, in.Description
	a.CoverImage, a.BannerImage = in.CoverImage, in.BannerImage
	a.CategoryID, a.Status = in.CategoryID, in.Status
	out := f.withCategory(*a)
	return &out, nil
}

func (f *fakeRepo) DeleteAnime(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.animes[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.animes, id)
	for eid, ep := range f.episodes {
		if ep.AnimeID == id {
			delete(f.episodes, eid)
		}
	}
	return nil
}

func (f *fakeRepo) CreateEpisode(ctx context.Context, in store.EpisodeInput) (*store.Episode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.animes[in.AnimeID]; !ok {
		return nil, store.ErrDependency
	}
	ep := &store.Episode{
		ID: f.nextID(), AnimeID: in.AnimeID, EpisodeNumber: in.EpisodeNumber, Title: in.Title,
		VideoURL: in.VideoURL, ThumbnailURL: in.ThumbnailURL, CreatedAt: time.Now(),
	}
	f.episodes[ep.ID] = ep
	out := *ep
	return &out, nil
}

func (f *fakeRepo) UpdateEpisode(ctx context.Context, id string, in store.EpisodeInput) (*store.Episode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ep, ok := f.episodes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	ep.EpisodeNumber, ep.Title = in.EpisodeNumber, in.Title
	ep.VideoURL, ep.ThumbnailURL = in.VideoURL, in.ThumbnailURL
	out := *ep
	return &out, nil
}

func (f *fakeRepo) DeleteEpisode(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.episodes[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.episodes, id)
	return nil
}

func (f *fakeRepo) FavoriteAnimes(ctx context.Context, userID string) ([]store.Anime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []store.Anime{}
	for id := range f.favorites[userID] {
		if a, ok := f.animes[id]; ok {
			out = append(out, f.withCategory(*a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (f *fakeRepo) FavoriteIDs(ctx context.Context, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []string{}
	for id := range f.favorites[userID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeRepo) IsFavorite(ctx context.Context, userID, animeID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.favorites[userID][animeID], nil
}

func (f *fakeRepo) AddFavorite(ctx context.Context, userID, animeID string) (*store.Favorite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.animes[animeID]; !ok {
		return nil, store.ErrNotFound
	}
	if f.favorites[userID] == nil {
		f.favorites[userID] = map[string]bool{}
	}
	f.favorites[userID][animeID] = true
	return &store.Favorite{ID: userID + ":" + animeID, UserID: userID, AnimeID: animeID}, nil
}

func (f *fakeRepo) RemoveFavorite(ctx context.Context, userID, animeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.favorites[userID], animeID)
	return nil
}

func (f *fakeRepo) Profile(ctx context.Context, id string) (*store.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (f *fakeRepo) ProfileRole(ctx context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[id]; ok {
		return p.Role, nil
	}
	return "", nil
}

func (f *fakeRepo) EnsureProfile(ctx context.Context, p store.Profile) (*store.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[p.ID]; !ok {
		if p.Role == "" {
			p.Role = "user"
		}
		f.profiles[p.ID] = &p
	}
	out := *f.profiles[p.ID]
	return &out, nil
}

func (f *fakeRepo) UpdateProfile(ctx context.Context, id, username, avatarURL string) (*store.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p.Username, p.AvatarURL = username, avatarURL
	out := *p
	return &out, nil
}

func (f *fakeRepo) setProfile(p store.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[p.ID] = &p
}

// fakeAuth implements AuthProvider. Each call returns session (or user)
// unless err is set.
type fakeAuth struct {
	mu sync.Mutex

	session   *gotrue.Session
	err       error
	signOut   error
	lastMeta  gotrue.UserMetadata
	lastToken string
	signIns   int
}

func (a *fakeAuth) SignUp(ctx context.Context, email, password string, meta gotrue.UserMetadata) (*gotrue.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastMeta = meta
	if a.err != nil {
		return nil, a.err
	}
	s := *a.session
	s.User.Email = email
	s.User.UserMetadata = meta
	return &s, nil
}

func (a *fakeAuth) SignIn(ctx context.Context, email, password string) (*gotrue.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.signIns++
	if a.err != nil {
		return nil, a.err
	}
	s := *a.session
	return &s, nil
}

func (a *fakeAuth) Refresh(ctx context.Context, refreshToken string) (*gotrue.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	s := *a.session
	s.RefreshToken = refreshToken + "-next"
	return &s, nil
}

func (a *fakeAuth) UpdateUser(ctx context.Context, accessToken string, meta gotrue.UserMetadata) (*gotrue.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastToken = accessToken
	a.lastMeta = meta
	if a.err != nil {
		return nil, a.err
	}
	return &gotrue.User{ID: a.session.User.ID, UserMetadata: meta}, nil
}

func (a *fakeAuth) SignOut(ctx context.Context, accessToken string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastToken = accessToken
	return a.signOut
}

// fakeResolver implements SourceResolver.
type fakeResolver struct {
	mu    sync.Mutex
	link  string
	err   error
	calls []string
}

func (r *fakeResolver) Resolve(ctx context.Context, slug string, season, episode int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf("%s/%d/%d", slug, season, episode))
	return r.link, r.err
}

// memLimitStore implements ratelimit.Store without expiry.
type memLimitStore struct {
	mu   sync.Mutex
	n    map[string]int64
	ttls map[string]time.Duration
}

func newMemLimitStore() *memLimitStore {
	return &memLimitStore{n: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (m *memLimitStore) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n[key]++
	return m.n[key], nil
}

func (m *memLimitStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ttls[key] = ttl
	return nil
}

func (m *memLimitStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttls[key], nil
}

func (m *memLimitStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.n, k)
		delete(m.ttls, k)
	}
	return nil
}

func (m *memLimitStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ttls[key] = expiration
	return nil
}
