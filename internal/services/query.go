package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"dotify/internal/cache"
	"dotify/internal/models"
	"dotify/internal/repositories"
)

const (
	// DefaultChartLimit is the size of top and new-release lists
	DefaultChartLimit = 10

	cacheKeyPrefix = "catalog:"
)

// ListParams filters and pages a collection listing. Zero values mean no
// constraint.
type ListParams struct {
	Page   int
	Limit  int
	Genre  string
	Owner  primitive.ObjectID
	Search string
}

// normalize rejects a page below one and clamps the limit into range
func (p ListParams) normalize() (ListParams, error) {
	if p.Page < 1 {
		return p, badRequest("Page must be at least 1")
	}
	switch {
	case p.Limit <= 0:
		p.Limit = models.DefaultPageLimit
	case p.Limit > models.MaxPageLimit:
		p.Limit = models.MaxPageLimit
	}
	if int64(p.Page-1) > math.MaxInt64/int64(p.Limit) {
		return p, badRequest("Page is out of range")
	}
	p.Genre = strings.TrimSpace(p.Genre)
	p.Search = strings.TrimSpace(p.Search)
	return p, nil
}

func (p ListParams) query() repositories.Query {
	return repositories.Query{
		Genre:  p.Genre,
		Owner:  p.Owner,
		Search: p.Search,
		Skip:   int64(p.Page-1) * int64(p.Limit),
		Limit:  int64(p.Limit),
	}
}

func (p ListParams) cacheKey() string {
	return fmt.Sprintf("p=%d:l=%d:g=%s:o=%s:q=%s", p.Page, p.Limit,
		url.QueryEscape(p.Genre), ownerKey(p.Owner), url.QueryEscape(p.Search))
}

func ownerKey(id primitive.ObjectID) string {
	if id.IsZero() {
		return ""
	}
	return id.Hex()
}

func chartLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultChartLimit
	case limit > models.MaxPageLimit:
		return models.MaxPageLimit
	}
	return limit
}

// QueryService serves paginated and ranked catalog reads. Public listings
// are cached per collection; any write to a collection bumps its
// generation so stale pages are never read again.
type QueryService struct {
	store *repositories.Store
	cache cache.Cache
	ttl   time.Duration
	seq   atomic.Uint64
}

// NewQueryService creates a query service. A nil cache disables caching.
func NewQueryService(store *repositories.Store, c cache.Cache, ttl time.Duration) *QueryService {
	return &QueryService{store: store, cache: c, ttl: ttl}
}

// Invalidate retires every cached page of the named collections
func (s *QueryService) Invalidate(ctx context.Context, collections ...string) {
	if s.cache == nil {
		return
	}
	for _, collection := range collections {
		if _, err := s.bumpGeneration(ctx, collection); err != nil {
			slog.Warn("Failed to invalidate catalog cache", "collection", collection, "error", err)
		}
	}
}

func generationKey(collection string) string {
	return cacheKeyPrefix + "gen:" + collection
}

func (s *QueryService) bumpGeneration(ctx context.Context, collection string) (string, error) {
	gen := strconv.FormatInt(time.Now().UnixNano(), 36) + "." + strconv.FormatUint(s.seq.Add(1), 36)
	return gen, s.cache.Set(ctx, generationKey(collection), []byte(gen), 0)
}

// generation returns the collection's current generation, starting a new
// one if the key was evicted
func (s *QueryService) generation(ctx context.Context, collection string) (string, error) {
	data, err := s.cache.Get(ctx, generationKey(collection))
	if err != nil {
		return "", err
	}
	if data != nil {
		return string(data), nil
	}
	return s.bumpGeneration(ctx, collection)
}

// cached serves key from the cache, or runs load and stores its result.
// Cache failures fall through to load.
func cached[T any](ctx context.Context, s *QueryService, collection, key string, load func() (T, error)) (T, error) {
	if s.cache == nil {
		return load()
	}

	gen, err := s.generation(ctx, collection)
	if err != nil {
		slog.Warn("Catalog cache unavailable", "collection", collection, "error", err)
		return load()
	}
	fullKey := cacheKeyPrefix + collection + ":" + gen + ":" + key

	var hit T
	if ok, err := cache.GetJSON(ctx, s.cache, fullKey, &hit); err != nil {
		slog.Warn("Catalog cache read failed", "key", fullKey, "error", err)
	} else if ok {
		slog.Debug("Catalog cache hit", "key", fullKey)
		return hit, nil
	}

	value, err := load()
	if err != nil {
		return value, err
	}
	if err := cache.SetJSON(ctx, s.cache, fullKey, value, s.ttl); err != nil {
		slog.Warn("Catalog cache write failed", "key", fullKey, "error", err)
	}
	return value, nil
}

// listPage normalizes params, runs the query and wraps the result as a page
func listPage[T any](ctx context.Context, s *QueryService, collection, entity string, params ListParams, find func(context.Context, repositories.Query) ([]*T, int64, error), adjust func(*repositories.Query)) (models.Page[*T], error) {
	p, err := params.normalize()
	if err != nil {
		return models.Page[*T]{}, err
	}
	return cached(ctx, s, collection, "list:"+p.cacheKey(), func() (models.Page[*T], error) {
		q := p.query()
		if adjust != nil {
			adjust(&q)
		}
		items, total, err := find(ctx, q)
		if err != nil {
			return models.Page[*T]{}, storeError(err, entity)
		}
		return models.NewPage(items, p.Page, p.Limit, total), nil
	})
}

// chart returns the first limit documents under sort
func chart[T any](ctx context.Context, s *QueryService, collection, entity, name string, limit int, find func(context.Context, repositories.Query) ([]*T, int64, error), q repositories.Query) ([]*T, error) {
	limit = chartLimit(limit)
	q.Limit = int64(limit)
	key := fmt.Sprintf("%s:o=%s:l=%d", name, ownerKey(q.Owner), limit)
	return cached(ctx, s, collection, key, func() ([]*T, error) {
		items, _, err := find(ctx, q)
		if err != nil {
			return nil, storeError(err, entity)
		}
		if items == nil {
			items = make([]*T, 0)
		}
		return items, nil
	})
}

// ListArtists pages artists. Owner is ignored.
func (s *QueryService) ListArtists(ctx context.Context, params ListParams) (models.Page[*models.Artist], error) {
	params.Owner = primitive.NilObjectID
	return listPage(ctx, s, models.ArtistsCollection, "Artist", params, s.store.Artists.Find, nil)
}

// ListAlbums pages albums, optionally for one artist
func (s *QueryService) ListAlbums(ctx context.Context, params ListParams) (models.Page[*models.Album], error) {
	return listPage(ctx, s, models.AlbumsCollection, "Album", params, s.store.Albums.Find, nil)
}

// ListSongs pages songs, optionally for one artist
func (s *QueryService) ListSongs(ctx context.Context, params ListParams) (models.Page[*models.Song], error) {
	return listPage(ctx, s, models.SongsCollection, "Song", params, s.store.Songs.Find, nil)
}

// ListPlaylists pages public playlists, optionally by one creator
func (s *QueryService) ListPlaylists(ctx context.Context, params ListParams) (models.Page[*models.Playlist], error) {
	return listPage(ctx, s, models.PlaylistsCollection, "Playlist", params, s.store.Playlists.Find, func(q *repositories.Query) {
		q.PublicOnly = true
	})
}

// UserPlaylists pages the playlists a user created or collaborates on,
// public or not. Never cached.
func (s *QueryService) UserPlaylists(ctx context.Context, userID primitive.ObjectID, params ListParams) (models.Page[*models.Playlist], error) {
	p, err := params.normalize()
	if err != nil {
		return models.Page[*models.Playlist]{}, err
	}
	q := p.query()
	q.Owner = primitive.NilObjectID
	q.Member = userID
	items, total, err := s.store.Playlists.Find(ctx, q)
	if err != nil {
		return models.Page[*models.Playlist]{}, storeError(err, "Playlist")
	}
	return models.NewPage(items, p.Page, p.Limit, total), nil
}

// ListUsers pages user accounts for administrators. Never cached.
func (s *QueryService) ListUsers(ctx context.Context, params ListParams) (models.Page[*models.User], error) {
	p, err := params.normalize()
	if err != nil {
		return models.Page[*models.User]{}, err
	}
	q := p.query()
	q.Owner = primitive.NilObjectID
	q.Genre = ""
	items, total, err := s.store.Users.Find(ctx, q)
	if err != nil {
		return models.Page[*models.User]{}, storeError(err, "User")
	}
	return models.NewPage(items, p.Page, p.Limit, total), nil
}

// TopSongs returns the most played songs
func (s *QueryService) TopSongs(ctx context.Context, limit int) ([]*models.Song, error) {
	return chart(ctx, s, models.SongsCollection, "Song", "top", limit, s.store.Songs.Find, repositories.Query{
		Sort: []repositories.SortKey{{Field: "plays", Descending: true}},
	})
}

// NewSongReleases returns the most recently released songs
func (s *QueryService) NewSongReleases(ctx context.Context, limit int) ([]*models.Song, error) {
	return chart(ctx, s, models.SongsCollection, "Song", "new", limit, s.store.Songs.Find, repositories.Query{
		Sort: []repositories.SortKey{{Field: "release_date", Descending: true}},
	})
}

// NewAlbumReleases returns the most recently released albums
func (s *QueryService) NewAlbumReleases(ctx context.Context, limit int) ([]*models.Album, error) {
	return chart(ctx, s, models.AlbumsCollection, "Album", "new", limit, s.store.Albums.Find, repositories.Query{
		Sort: []repositories.SortKey{{Field: "release_date", Descending: true}},
	})
}

// TopArtists returns the most followed artists
func (s *QueryService) TopArtists(ctx context.Context, limit int) ([]*models.Artist, error) {
	return chart(ctx, s, models.ArtistsCollection, "Artist", "top", limit, s.store.Artists.Find, repositories.Query{
		Sort: []repositories.SortKey{{Field: "followers", Descending: true}},
	})
}

// ArtistTopSongs returns an artist's most played songs
func (s *QueryService) ArtistTopSongs(ctx context.Context, artistID primitive.ObjectID, limit int) ([]*models.Song, error) {
	artist, err := s.store.Artists.FindByID(ctx, artistID)
	if _, err := requireFound(artist, err, "Artist"); err != nil {
		return nil, err
	}
	return chart(ctx, s, models.SongsCollection, "Song", "artist-top", limit, s.store.Songs.Find, repositories.Query{
		Owner: artistID,
		Sort:  []repositories.SortKey{{Field: "plays", Descending: true}},
	})
}

// FeaturedPlaylists returns the most followed public playlists
func (s *QueryService) FeaturedPlaylists(ctx context.Context, limit int) ([]*models.Playlist, error) {
	return chart(ctx, s, models.PlaylistsCollection, "Playlist", "featured", limit, s.store.Playlists.Find, repositories.Query{
		PublicOnly: true,
		Sort:       []repositories.SortKey{{Field: "followers", Descending: true}},
	})
}
