package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dotify/internal/models"
	"dotify/internal/repositories"
)

// Common test data
const (
	TestPassword = "secret123"
	TestAudioURL = "https://media.example.com/songs/track.mp3"
)

// SongBuilder provides a fluent interface for creating test songs
type SongBuilder struct {
	song *models.Song
}

// NewSongBuilder creates a new song builder owned by artist
func NewSongBuilder(artist primitive.ObjectID) *SongBuilder {
	return &SongBuilder{
		song: models.NewSong("Test Song", artist, TestAudioURL),
	}
}

// WithTitle sets the song title
func (b *SongBuilder) WithTitle(title string) *SongBuilder {
	b.song.Title = title
	return b
}

// WithAlbum places the song on an album
func (b *SongBuilder) WithAlbum(album primitive.ObjectID) *SongBuilder {
	b.song.Album = &album
	return b
}

// WithGenres sets the genre tags
func (b *SongBuilder) WithGenres(genres ...string) *SongBuilder {
	b.song.Genres = genres
	return b
}

// WithPlays sets the play counter
func (b *SongBuilder) WithPlays(plays int64) *SongBuilder {
	b.song.Plays = plays
	return b
}

// WithReleaseDate sets the release date
func (b *SongBuilder) WithReleaseDate(date time.Time) *SongBuilder {
	b.song.ReleaseDate = date
	return b
}

// WithFeaturedArtists sets the featured artists
func (b *SongBuilder) WithFeaturedArtists(ids ...primitive.ObjectID) *SongBuilder {
	b.song.FeaturedArtists = ids
	return b
}

// Build returns the constructed song
func (b *SongBuilder) Build() *models.Song {
	return b.song
}

// Seeder writes fixtures straight into a store, keeping back-references in
// step the way the services do
type Seeder struct {
	t     *testing.T
	ctx   context.Context
	Store *repositories.Store
}

// NewSeeder returns a seeder over a fresh in-memory store
func NewSeeder(t *testing.T) *Seeder {
	return &Seeder{t: t, ctx: context.Background(), Store: repositories.NewMemoryStore()}
}

// Artist inserts an artist with the given name and genres
func (s *Seeder) Artist(name string, genres ...string) *models.Artist {
	artist := models.NewArtist(name, "Bio of "+name, genres)
	require.NoError(s.t, s.Store.Artists.Create(s.ctx, artist))
	return artist
}

// Album inserts an album and lists it on its artist
func (s *Seeder) Album(title string, artist primitive.ObjectID) *models.Album {
	album := models.NewAlbum(title, artist)
	require.NoError(s.t, s.Store.Albums.Create(s.ctx, album))
	_, err := s.Store.Artists.AddMember(s.ctx, artist, repositories.FieldAlbums, album.ID)
	require.NoError(s.t, err)
	return album
}

// Song inserts a built song and lists it on its artist and album
func (s *Seeder) Song(song *models.Song) *models.Song {
	require.NoError(s.t, s.Store.Songs.Create(s.ctx, song))
	_, err := s.Store.Artists.AddMember(s.ctx, song.Artist, repositories.FieldSongs, song.ID)
	require.NoError(s.t, err)
	if song.HasAlbum() {
		_, err := s.Store.Albums.AddMember(s.ctx, *song.Album, repositories.FieldSongs, song.ID)
		require.NoError(s.t, err)
	}
	return song
}

// User inserts a user. The password hash is left empty.
func (s *Seeder) User(name, email string) *models.User {
	user := models.NewUser(name, email, "")
	require.NoError(s.t, s.Store.Users.Create(s.ctx, user))
	return user
}

// Playlist inserts an empty playlist
func (s *Seeder) Playlist(name string, creator primitive.ObjectID, public bool) *models.Playlist {
	playlist := models.NewPlaylist(name, "A playlist for testing", creator)
	playlist.IsPublic = public
	require.NoError(s.t, s.Store.Playlists.Create(s.ctx, playlist))
	return playlist
}
