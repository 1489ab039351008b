package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dotify/internal/models"
	"dotify/internal/repositories"
	"dotify/internal/testutil"
)

func TestCatalogService_Reconcile_CleanStore(t *testing.T) {
	env := newTestEnv(t)
	arlo := env.Artist("Arlo")
	album := env.Album("First", arlo.ID)
	env.Song(testutil.NewSongBuilder(arlo.ID).WithAlbum(album.ID).Build())

	report, err := env.catalog.Reconcile(env.ctx)
	require.NoError(t, err)
	assert.False(t, report.Changed())
}

func TestCatalogService_Reconcile_RepairsReferences(t *testing.T) {
	env := newTestEnv(t)
	arlo := env.Artist("Arlo")
	album := env.Album("First", arlo.ID)
	listed := env.Song(testutil.NewSongBuilder(arlo.ID).WithTitle("Listed").WithAlbum(album.ID).Build())

	// A song written without its back-references
	unlisted := testutil.NewSongBuilder(arlo.ID).WithTitle("Unlisted").WithAlbum(album.ID).Build()
	require.NoError(t, env.Store.Songs.Create(env.ctx, unlisted))

	// A song whose artist is gone, liked by a user and on a playlist
	ghostArtist := primitive.NewObjectID()
	orphan := testutil.NewSongBuilder(ghostArtist).WithTitle("Orphan").Build()
	require.NoError(t, env.Store.Songs.Create(env.ctx, orphan))
	fan := env.User("Fan", "fan@example.com")
	_, err := env.Store.Users.AddMember(env.ctx, fan.ID, repositories.FieldLikedSongs, orphan.ID)
	require.NoError(t, err)
	playlist := env.Playlist("Mix", fan.ID, true)
	_, err = env.Store.Playlists.AddMember(env.ctx, playlist.ID, repositories.FieldSongs, orphan.ID)
	require.NoError(t, err)

	// An album whose artist is gone
	orphanAlbum := models.NewAlbum("Lost Album", ghostArtist)
	require.NoError(t, env.Store.Albums.Create(env.ctx, orphanAlbum))

	// A song pointing at an album that no longer exists
	stray := testutil.NewSongBuilder(arlo.ID).WithTitle("Stray").WithAlbum(primitive.NewObjectID()).Build()
	require.NoError(t, env.Store.Songs.Create(env.ctx, stray))
	_, err = env.Store.Artists.AddMember(env.ctx, arlo.ID, repositories.FieldSongs, stray.ID)
	require.NoError(t, err)

	// Dangling follow of a deleted artist
	_, err = env.Store.Users.AddMember(env.ctx, fan.ID, repositories.FieldFollowedArtists, ghostArtist)
	require.NoError(t, err)

	report, err := env.catalog.Reconcile(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.OrphanSongsDeleted)
	assert.Equal(t, 1, report.OrphanAlbumsDeleted)
	assert.Equal(t, 1, report.AlbumRefsCleared)
	assert.Equal(t, 1, report.ArtistsRepaired)
	assert.Equal(t, 1, report.AlbumsRepaired)
	assert.Equal(t, 1, report.DanglingRefsPulled)

	artist, err := env.catalog.GetArtist(env.ctx, arlo.ID)
	require.NoError(t, err)
	assert.Equal(t, ids(listed.ID, stray.ID, unlisted.ID), artist.Songs)

	gotAlbum, err := env.catalog.GetAlbum(env.ctx, album.ID)
	require.NoError(t, err)
	assert.Equal(t, ids(listed.ID, unlisted.ID), gotAlbum.Songs)

	straySong, err := env.Store.Songs.FindByID(env.ctx, stray.ID)
	require.NoError(t, err)
	assert.Nil(t, straySong.Album)

	user, err := env.accounts.Profile(env.ctx, fan.ID)
	require.NoError(t, err)
	assert.Empty(t, user.LikedSongs)
	assert.Empty(t, user.FollowedArtists)

	mix, err := env.Store.Playlists.FindByID(env.ctx, playlist.ID)
	require.NoError(t, err)
	assert.Empty(t, mix.Songs)

	again, err := env.catalog.Reconcile(env.ctx)
	require.NoError(t, err)
	assert.False(t, again.Changed(), "a second pass finds nothing to repair")
}

func TestCatalogService_Reconcile_RecountsCounters(t *testing.T) {
	env := newTestEnv(t)
	fan := env.User("Fan", "fan@example.com")
	arlo := env.Artist("Arlo")
	album := env.Album("First", arlo.ID)
	song := env.Song(testutil.NewSongBuilder(arlo.ID).Build())
	playlist := env.Playlist("Mix", fan.ID, true)

	// Set writes whose counter update never happened, and counters with
	// nobody behind them
	_, err := env.Store.Users.AddMember(env.ctx, fan.ID, repositories.FieldLikedSongs, song.ID)
	require.NoError(t, err)
	_, err = env.Store.Users.AddMember(env.ctx, fan.ID, repositories.FieldFollowedArtists, arlo.ID)
	require.NoError(t, err)
	require.NoError(t, env.Store.Albums.AdjustCounter(env.ctx, album.ID, repositories.FieldLikes, 3))
	require.NoError(t, env.Store.Playlists.AdjustCounter(env.ctx, playlist.ID, repositories.FieldFollowers, 2))

	report, err := env.catalog.Reconcile(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, report.CountersRepaired)
	assert.Zero(t, report.ArtistsRepaired)

	gotSong, err := env.Store.Songs.FindByID(env.ctx, song.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gotSong.Likes)
	gotArtist, err := env.Store.Artists.FindByID(env.ctx, arlo.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gotArtist.Followers)
	gotAlbum, err := env.Store.Albums.FindByID(env.ctx, album.ID)
	require.NoError(t, err)
	assert.Zero(t, gotAlbum.Likes)
	gotPlaylist, err := env.Store.Playlists.FindByID(env.ctx, playlist.ID)
	require.NoError(t, err)
	assert.Zero(t, gotPlaylist.Followers)

	again, err := env.catalog.Reconcile(env.ctx)
	require.NoError(t, err)
	assert.False(t, again.Changed())
}

func TestMergeOrder(t *testing.T) {
	a, b, c, d := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	got := mergeOrder(ids(c, d, a), ids(a, b, c))
	assert.Equal(t, ids(c, a, b), got)
	assert.Empty(t, mergeOrder(ids(a), nil))
}
