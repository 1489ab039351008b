package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dotify/internal/repositories"
	"dotify/internal/testutil"
)

func TestLibraryService_ToggleLikeSong_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	arlo := env.Artist("Arlo")
	song := env.Song(testutil.NewSongBuilder(arlo.ID).Build())
	user := env.User("Fan", "fan@example.com")

	liked, err := env.library.ToggleLikeSong(env.ctx, user.ID, song.ID)
	require.NoError(t, err)
	assert.True(t, liked.Added)
	assert.Equal(t, ids(song.ID), liked.IDs)
	assert.Equal(t, int64(1), liked.Count)

	unliked, err := env.library.ToggleLikeSong(env.ctx, user.ID, song.ID)
	require.NoError(t, err)
	assert.False(t, unliked.Added)
	assert.Empty(t, unliked.IDs)
	assert.Equal(t, int64(0), unliked.Count)

	stored, err := env.Store.Songs.FindByID(env.ctx, song.ID)
	require.NoError(t, err)
	assert.Equal(t, song.Likes, stored.Likes, "a double toggle restores the counter")
}

func TestLibraryService_ToggleFollowArtist_Sequence(t *testing.T) {
	env := newTestEnv(t)
	arlo := env.Artist("Arlo")
	user := env.User("Fan", "fan@example.com")

	want := []struct {
		added     bool
		followers int64
	}{
		{true, 1},
		{false, 0},
		{true, 1},
	}
	for i, step := range want {
		result, err := env.library.ToggleFollowArtist(env.ctx, user.ID, arlo.ID)
		require.NoError(t, err, "toggle %d", i)
		assert.Equal(t, step.added, result.Added, "toggle %d", i)
		assert.Equal(t, step.followers, result.Count, "toggle %d", i)

		artist, err := env.catalog.GetArtist(env.ctx, arlo.ID)
		require.NoError(t, err)
		assert.Equal(t, step.followers, artist.Followers)
	}
}

func TestLibraryService_ToggleLikeAlbum(t *testing.T) {
	env := newTestEnv(t)
	arlo := env.Artist("Arlo")
	album := env.Album("First", arlo.ID)
	user := env.User("Fan", "fan@example.com")

	result, err := env.library.ToggleLikeAlbum(env.ctx, user.ID, album.ID)
	require.NoError(t, err)
	assert.True(t, result.Added)
	assert.Equal(t, int64(1), result.Count)

	fan, err := env.accounts.Profile(env.ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, ids(album.ID), fan.LikedAlbums)
}

func TestLibraryService_Toggle_CounterClampsAtZero(t *testing.T) {
	env := newTestEnv(t)
	arlo := env.Artist("Arlo")
	song := env.Song(testutil.NewSongBuilder(arlo.ID).Build())
	user := env.User("Fan", "fan@example.com")

	// One-sided reference left behind by an earlier failure
	_, err := env.Store.Users.AddMember(env.ctx, user.ID, repositories.FieldLikedSongs, song.ID)
	require.NoError(t, err)

	result, err := env.library.ToggleLikeSong(env.ctx, user.ID, song.ID)
	require.NoError(t, err)
	assert.False(t, result.Added)
	assert.Equal(t, int64(0), result.Count)
}

func TestLibraryService_Toggle_MissingTarget(t *testing.T) {
	env := newTestEnv(t)
	user := env.User("Fan", "fan@example.com")
	missing := primitive.NewObjectID()

	_, err := env.library.ToggleLikeSong(env.ctx, user.ID, missing)
	assertKind(t, err, KindNotFound)
	_, err = env.library.ToggleLikeAlbum(env.ctx, user.ID, missing)
	assertKind(t, err, KindNotFound)
	_, err = env.library.ToggleFollowArtist(env.ctx, user.ID, missing)
	assertKind(t, err, KindNotFound)
	_, err = env.library.ToggleFollowPlaylist(env.ctx, user.ID, missing)
	assertKind(t, err, KindNotFound)

	fan, err := env.accounts.Profile(env.ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, fan.LikedSongs)
	assert.Empty(t, fan.FollowedArtists)
}

func TestLibraryService_Toggle_MissingUser(t *testing.T) {
	env := newTestEnv(t)
	arlo := env.Artist("Arlo")

	_, err := env.library.ToggleFollowArtist(env.ctx, primitive.NewObjectID(), arlo.ID)
	assertKind(t, err, KindNotFound)

	artist, err := env.catalog.GetArtist(env.ctx, arlo.ID)
	require.NoError(t, err)
	assert.Zero(t, artist.Followers)
}

func TestLibraryService_ToggleFollowPlaylist_Private(t *testing.T) {
	env := newTestEnv(t)
	owner := env.User("Owner", "owner@example.com")
	stranger := env.User("Stranger", "stranger@example.com")
	playlist := env.Playlist("Secret Mix", owner.ID, false)

	_, err := env.library.ToggleFollowPlaylist(env.ctx, stranger.ID, playlist.ID)
	assertKind(t, err, KindNotFound)

	result, err := env.library.ToggleFollowPlaylist(env.ctx, owner.ID, playlist.ID)
	require.NoError(t, err)
	assert.True(t, result.Added)
	assert.Equal(t, int64(1), result.Count)
}

func TestLibraryService_ToggleFollowPlaylist_UnfollowAfterMadePrivate(t *testing.T) {
	env := newTestEnv(t)
	owner := env.User("Owner", "owner@example.com")
	fan := env.User("Fan", "fan@example.com")
	playlist := env.Playlist("Open Mix", owner.ID, true)

	_, err := env.library.ToggleFollowPlaylist(env.ctx, fan.ID, playlist.ID)
	require.NoError(t, err)

	private := false
	_, err = env.playlists.Update(env.ctx, playlist.ID, owner.ID, PlaylistUpdate{IsPublic: &private})
	require.NoError(t, err)

	result, err := env.library.ToggleFollowPlaylist(env.ctx, fan.ID, playlist.ID)
	require.NoError(t, err)
	assert.False(t, result.Added)
	assert.Equal(t, int64(0), result.Count)
}

func TestLibraryService_Toggle_ConcurrentUsers(t *testing.T) {
	env := newTestEnv(t)
	arlo := env.Artist("Arlo")

	const users = 20
	userIDs := make([]primitive.ObjectID, users)
	for i := range userIDs {
		userIDs[i] = env.User("Fan", primitive.NewObjectID().Hex()+"@example.com").ID
	}

	var wg sync.WaitGroup
	for _, id := range userIDs {
		wg.Add(1)
		go func(id primitive.ObjectID) {
			defer wg.Done()
			_, err := env.library.ToggleFollowArtist(env.ctx, id, arlo.ID)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	artist, err := env.catalog.GetArtist(env.ctx, arlo.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(users), artist.Followers)
}
