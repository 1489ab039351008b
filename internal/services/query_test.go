package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dotify/internal/testutil"
)

func TestQueryService_ListArtists_Pagination(t *testing.T) {
	env := newTestEnv(t)
	created := make(map[primitive.ObjectID]bool)
	for i := 0; i < 25; i++ {
		created[env.Artist(fmt.Sprintf("Artist %02d", i)).ID] = true
	}

	seen := make(map[primitive.ObjectID]bool)
	for page := 1; page <= 3; page++ {
		result, err := env.query.ListArtists(env.ctx, ListParams{Page: page, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, page, result.Page)
		assert.Equal(t, 3, result.Pages)
		assert.Equal(t, int64(25), result.Total)
		for _, artist := range result.Items {
			assert.False(t, seen[artist.ID], "artist %s repeated across pages", artist.Name)
			seen[artist.ID] = true
		}
	}
	assert.Equal(t, created, seen, "pages concatenate to the full result set")

	beyond, err := env.query.ListArtists(env.ctx, ListParams{Page: 4, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, 3, beyond.Pages)
}

func TestQueryService_List_EmptyAndInvalid(t *testing.T) {
	env := newTestEnv(t)

	empty, err := env.query.ListSongs(env.ctx, ListParams{Page: 1})
	require.NoError(t, err)
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)
	assert.Equal(t, 0, empty.Pages)
	assert.Equal(t, int64(0), empty.Total)

	_, err = env.query.ListSongs(env.ctx, ListParams{Page: 0})
	assertKind(t, err, KindBadRequest)
}

func TestQueryService_List_PageOutOfRange(t *testing.T) {
	env := newTestEnv(t)
	env.Artist("Arlo")

	_, err := env.query.ListArtists(env.ctx, ListParams{Page: math.MaxInt64/100 + 2, Limit: 100})
	assertKind(t, err, KindBadRequest)

	// The largest page whose offset still fits is simply empty
	last, err := env.query.ListArtists(env.ctx, ListParams{Page: math.MaxInt64/100 + 1, Limit: 100})
	require.NoError(t, err)
	assert.Empty(t, last.Items)
	assert.Equal(t, int64(1), last.Total)
}

func TestListParams_Normalize(t *testing.T) {
	tests := []struct {
		name  string
		in    ListParams
		limit int
	}{
		{name: "default limit", in: ListParams{Page: 1}, limit: 10},
		{name: "negative limit", in: ListParams{Page: 1, Limit: -5}, limit: 10},
		{name: "clamped limit", in: ListParams{Page: 1, Limit: 1000}, limit: 100},
		{name: "kept limit", in: ListParams{Page: 2, Limit: 25}, limit: 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.normalize()
			require.NoError(t, err)
			assert.Equal(t, tt.limit, got.Limit)
		})
	}
}

func TestQueryService_ListSongs_Filters(t *testing.T) {
	env := newTestEnv(t)
	arlo := env.Artist("Arlo")
	bea := env.Artist("Bea")
	env.Song(testutil.NewSongBuilder(arlo.ID).WithTitle("River Song").WithGenres("folk").Build())
	env.Song(testutil.NewSongBuilder(arlo.ID).WithTitle("Mountain").WithGenres("rock").Build())
	env.Song(testutil.NewSongBuilder(bea.ID).WithTitle("Down the river").WithGenres("folk").Build())

	byOwner, err := env.query.ListSongs(env.ctx, ListParams{Page: 1, Owner: arlo.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), byOwner.Total)

	byGenre, err := env.query.ListSongs(env.ctx, ListParams{Page: 1, Genre: "folk"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), byGenre.Total)

	bySearch, err := env.query.ListSongs(env.ctx, ListParams{Page: 1, Search: "RIVER"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), bySearch.Total)

	combined, err := env.query.ListSongs(env.ctx, ListParams{Page: 1, Owner: bea.ID, Search: "river"})
	require.NoError(t, err)
	require.Len(t, combined.Items, 1)
	assert.Equal(t, "Down the river", combined.Items[0].Title)
}

func TestQueryService_ListPlaylists(t *testing.T) {
	env := newTestEnv(t)
	owner := env.User("Owner", "owner@example.com")
	helper := env.User("Helper", "helper@example.com")
	public := env.Playlist("Open Mix", owner.ID, true)
	private := env.Playlist("Secret Mix", owner.ID, false)
	shared := env.Playlist("Shared Mix", helper.ID, false)

	_, err := env.playlists.AddCollaborator(env.ctx, shared.ID, helper.ID, owner.ID)
	require.NoError(t, err)

	listed, err := env.query.ListPlaylists(env.ctx, ListParams{Page: 1})
	require.NoError(t, err)
	require.Len(t, listed.Items, 1)
	assert.Equal(t, public.ID, listed.Items[0].ID)

	mine, err := env.query.UserPlaylists(env.ctx, owner.ID, ListParams{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), mine.Total)
	got := make([]primitive.ObjectID, 0, len(mine.Items))
	for _, p := range mine.Items {
		got = append(got, p.ID)
	}
	assert.ElementsMatch(t, ids(public.ID, private.ID, shared.ID), got)
}

func TestQueryService_Charts(t *testing.T) {
	env := newTestEnv(t)
	arlo := env.Artist("Arlo")
	bea := env.Artist("Bea")
	now := time.Now()
	quiet := env.Song(testutil.NewSongBuilder(arlo.ID).WithTitle("Quiet").WithPlays(1).WithReleaseDate(now.AddDate(-2, 0, 0)).Build())
	hit := env.Song(testutil.NewSongBuilder(arlo.ID).WithTitle("Hit").WithPlays(100).WithReleaseDate(now.AddDate(-1, 0, 0)).Build())
	fresh := env.Song(testutil.NewSongBuilder(bea.ID).WithTitle("Fresh").WithPlays(10).WithReleaseDate(now).Build())

	top, err := env.query.TopSongs(env.ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, hit.ID, top[0].ID)
	assert.Equal(t, fresh.ID, top[1].ID)

	newest, err := env.query.NewSongReleases(env.ctx, 0)
	require.NoError(t, err)
	require.Len(t, newest, 3)
	assert.Equal(t, fresh.ID, newest[0].ID)
	assert.Equal(t, quiet.ID, newest[2].ID)

	arloTop, err := env.query.ArtistTopSongs(env.ctx, arlo.ID, 10)
	require.NoError(t, err)
	require.Len(t, arloTop, 2)
	assert.Equal(t, hit.ID, arloTop[0].ID)

	_, err = env.query.ArtistTopSongs(env.ctx, primitive.NewObjectID(), 10)
	assertKind(t, err, KindNotFound)

	user := env.User("Fan", "fan@example.com")
	_, err = env.library.ToggleFollowArtist(env.ctx, user.ID, bea.ID)
	require.NoError(t, err)
	artists, err := env.query.TopArtists(env.ctx, 1)
	require.NoError(t, err)
	require.Len(t, artists, 1)
	assert.Equal(t, bea.ID, artists[0].ID)
}

func TestQueryService_FeaturedPlaylists(t *testing.T) {
	env := newTestEnv(t)
	owner := env.User("Owner", "owner@example.com")
	fan := env.User("Fan", "fan@example.com")
	quiet := env.Playlist("Quiet Mix", owner.ID, true)
	popular := env.Playlist("Popular Mix", owner.ID, true)
	env.Playlist("Secret Mix", owner.ID, false)

	_, err := env.library.ToggleFollowPlaylist(env.ctx, fan.ID, popular.ID)
	require.NoError(t, err)

	featured, err := env.query.FeaturedPlaylists(env.ctx, 10)
	require.NoError(t, err)
	require.Len(t, featured, 2)
	assert.Equal(t, popular.ID, featured[0].ID)
	assert.Equal(t, quiet.ID, featured[1].ID)
}

func TestQueryService_CacheInvalidatedByWrites(t *testing.T) {
	env := newTestEnv(t)
	env.Artist("Arlo")

	first, err := env.query.ListArtists(env.ctx, ListParams{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Total)

	// Bypasses the services, so the cached page is still served
	env.Artist("Bea")
	stale, err := env.query.ListArtists(env.ctx, ListParams{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stale.Total)

	_, err = env.catalog.CreateArtist(env.ctx, ArtistInput{Name: "Cleo"})
	require.NoError(t, err)
	fresh, err := env.query.ListArtists(env.ctx, ListParams{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), fresh.Total)
}

func TestQueryService_CacheKeysKeepFiltersApart(t *testing.T) {
	env := newTestEnv(t)
	env.Artist("Arlo", "X:o=:q=Y")

	first, err := env.query.ListArtists(env.ctx, ListParams{Page: 1, Genre: "X:o=:q=Y"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Total)

	second, err := env.query.ListArtists(env.ctx, ListParams{Page: 1, Genre: "X", Search: "Y:o=:q="})
	require.NoError(t, err)
	assert.Equal(t, int64(0), second.Total)
	assert.Empty(t, second.Items)
}

func TestQueryService_CacheFailureFallsThrough(t *testing.T) {
	seeder := testutil.NewSeeder(t)
	seeder.Artist("Arlo")

	failing := &testutil.MockCache{}
	failing.On("Get", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
	failing.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	ctx := context.Background()
	query := NewQueryService(seeder.Store, failing, time.Minute)
	result, err := query.ListArtists(ctx, ListParams{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)

	query.Invalidate(ctx, "artists")
	failing.AssertCalled(t, "Set", mock.Anything, "catalog:gen:artists", mock.Anything, time.Duration(0))
}

func TestQueryService_NoCache(t *testing.T) {
	seeder := testutil.NewSeeder(t)
	seeder.Artist("Arlo")

	ctx := context.Background()
	query := NewQueryService(seeder.Store, nil, time.Minute)
	query.Invalidate(ctx)
	result, err := query.ListArtists(ctx, ListParams{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)
}
