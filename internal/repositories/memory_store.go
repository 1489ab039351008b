package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"dotify/internal/models"
)

// memoryTransactor runs fn directly. Each memory primitive is atomic on its
// own, and nothing is rolled back when fn fails part way.
type memoryTransactor struct{}

func (memoryTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// NewMemoryStore builds an empty in-process store, used for local development
// and tests
func NewMemoryStore() *Store {
	return &Store{
		Users:     &memoryUserRepository{newMemoryCollection(models.UsersCollection, userSchema)},
		Artists:   &memoryArtistRepository{newMemoryCollection(models.ArtistsCollection, artistSchema)},
		Albums:    &memoryAlbumRepository{newMemoryCollection(models.AlbumsCollection, albumSchema)},
		Songs:     &memorySongRepository{newMemoryCollection(models.SongsCollection, songSchema)},
		Playlists: &memoryPlaylistRepository{newMemoryCollection(models.PlaylistsCollection, playlistSchema)},
		Tx:        memoryTransactor{},
	}
}

// Users

var userSchema = memorySchema[models.User]{
	id:    func(u *models.User) primitive.ObjectID { return u.ID },
	setID: func(u *models.User, id primitive.ObjectID) { u.ID = id },
	touch: func(u *models.User, t time.Time) { u.UpdatedAt = t },
	ids: func(u *models.User, f Field) *[]primitive.ObjectID {
		switch f {
		case FieldLikedSongs:
			return &u.LikedSongs
		case FieldLikedAlbums:
			return &u.LikedAlbums
		case FieldFollowedArtists:
			return &u.FollowedArtists
		case FieldFollowedPlaylists:
			return &u.FollowedPlaylists
		}
		return nil
	},
	counter: func(*models.User, Field) *int64 { return nil },
	matches: func(u *models.User, q Query) bool {
		return containsFold(q.Search, u.Name, u.Email)
	},
	sortValue: func(u *models.User, field string) interface{} {
		switch field {
		case "name":
			return u.Name
		case "email":
			return u.Email
		}
		return u.CreatedAt
	},
	defaultSort: userDefaultSort,
	conflicts:   func(a, b *models.User) bool { return a.Email == b.Email },
}

type memoryUserRepository struct {
	*memoryCollection[models.User]
}

func (r *memoryUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.insert(ctx, user)
}

func (r *memoryUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.get(ctx, id)
}

func (r *memoryUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, func(u *models.User) bool { return u.Email == email })
}

func (r *memoryUserRepository) Find(ctx context.Context, q Query) ([]*models.User, int64, error) {
	return r.find(ctx, q)
}

func (r *memoryUserRepository) Update(ctx context.Context, user *models.User) error {
	_, err := r.mutate(ctx, user.ID, func(stored *models.User) (bool, error) {
		stored.Name = user.Name
		stored.Email = user.Email
		stored.PasswordHash = user.PasswordHash
		stored.ProfilePicture = user.ProfilePicture
		return true, nil
	})
	return err
}

func (r *memoryUserRepository) SetAdmin(ctx context.Context, id primitive.ObjectID, admin bool) error {
	_, err := r.mutate(ctx, id, func(stored *models.User) (bool, error) {
		stored.IsAdmin = admin
		return true, nil
	})
	return err
}

// Artists

var artistSchema = memorySchema[models.Artist]{
	id:    func(a *models.Artist) primitive.ObjectID { return a.ID },
	setID: func(a *models.Artist, id primitive.ObjectID) { a.ID = id },
	touch: func(a *models.Artist, t time.Time) { a.UpdatedAt = t },
	ids: func(a *models.Artist, f Field) *[]primitive.ObjectID {
		switch f {
		case FieldSongs:
			return &a.Songs
		case FieldAlbums:
			return &a.Albums
		}
		return nil
	},
	counter: func(a *models.Artist, f Field) *int64 {
		if f == FieldFollowers {
			return &a.Followers
		}
		return nil
	},
	matches: func(a *models.Artist, q Query) bool {
		if q.Genre != "" && !containsString(a.Genres, q.Genre) {
			return false
		}
		return containsFold(q.Search, a.Name, a.Bio)
	},
	sortValue: func(a *models.Artist, field string) interface{} {
		switch field {
		case "followers":
			return a.Followers
		case "name":
			return a.Name
		}
		return a.CreatedAt
	},
	defaultSort: artistDefaultSort,
	conflicts:   func(a, b *models.Artist) bool { return a.Name == b.Name },
}

type memoryArtistRepository struct {
	*memoryCollection[models.Artist]
}

func (r *memoryArtistRepository) Create(ctx context.Context, artist *models.Artist) error {
	return r.insert(ctx, artist)
}

func (r *memoryArtistRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Artist, error) {
	return r.get(ctx, id)
}

func (r *memoryArtistRepository) FindByName(ctx context.Context, name string) (*models.Artist, error) {
	return r.first(ctx, func(a *models.Artist) bool { return a.Name == name })
}

func (r *memoryArtistRepository) Find(ctx context.Context, q Query) ([]*models.Artist, int64, error) {
	return r.find(ctx, q)
}

func (r *memoryArtistRepository) Update(ctx context.Context, artist *models.Artist) error {
	_, err := r.mutate(ctx, artist.ID, func(stored *models.Artist) (bool, error) {
		stored.Name = artist.Name
		stored.Bio = artist.Bio
		stored.Image = artist.Image
		stored.Genres = append([]string(nil), artist.Genres...)
		stored.IsVerified = artist.IsVerified
		return true, nil
	})
	return err
}

func (r *memoryArtistRepository) ReplaceRelations(ctx context.Context, id primitive.ObjectID, songs, albums []primitive.ObjectID) error {
	_, err := r.mutate(ctx, id, func(stored *models.Artist) (bool, error) {
		stored.Songs = append(make([]primitive.ObjectID, 0, len(songs)), songs...)
		stored.Albums = append(make([]primitive.ObjectID, 0, len(albums)), albums...)
		return true, nil
	})
	return err
}

func (r *memoryArtistRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.remove(ctx, id)
}

// Albums

var albumSchema = memorySchema[models.Album]{
	id:    func(a *models.Album) primitive.ObjectID { return a.ID },
	setID: func(a *models.Album, id primitive.ObjectID) { a.ID = id },
	touch: func(a *models.Album, t time.Time) { a.UpdatedAt = t },
	ids: func(a *models.Album, f Field) *[]primitive.ObjectID {
		if f == FieldSongs {
			return &a.Songs
		}
		return nil
	},
	counter: func(a *models.Album, f Field) *int64 {
		if f == FieldLikes {
			return &a.Likes
		}
		return nil
	},
	matches: func(a *models.Album, q Query) bool {
		if q.Genre != "" && a.Genre != q.Genre {
			return false
		}
		if !q.Owner.IsZero() && a.Artist != q.Owner {
			return false
		}
		return containsFold(q.Search, a.Title, a.Genre, a.Description)
	},
	sortValue: func(a *models.Album, field string) interface{} {
		switch field {
		case "release_date":
			return a.ReleaseDate
		case "likes":
			return a.Likes
		case "title":
			return a.Title
		}
		return a.CreatedAt
	},
	defaultSort: albumDefaultSort,
	conflicts:   func(a, b *models.Album) bool { return a.Title == b.Title },
}

type memoryAlbumRepository struct {
	*memoryCollection[models.Album]
}

func (r *memoryAlbumRepository) Create(ctx context.Context, album *models.Album) error {
	return r.insert(ctx, album)
}

func (r *memoryAlbumRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Album, error) {
	return r.get(ctx, id)
}

func (r *memoryAlbumRepository) FindByTitle(ctx context.Context, title string) (*models.Album, error) {
	return r.first(ctx, func(a *models.Album) bool { return a.Title == title })
}

func (r *memoryAlbumRepository) Find(ctx context.Context, q Query) ([]*models.Album, int64, error) {
	return r.find(ctx, q)
}

func (r *memoryAlbumRepository) Update(ctx context.Context, album *models.Album) error {
	_, err := r.mutate(ctx, album.ID, func(stored *models.Album) (bool, error) {
		stored.Title = album.Title
		stored.ReleaseDate = album.ReleaseDate
		stored.CoverImage = album.CoverImage
		stored.Genre = album.Genre
		stored.Description = album.Description
		stored.IsExplicit = album.IsExplicit
		return true, nil
	})
	return err
}

func (r *memoryAlbumRepository) ReplaceSongs(ctx context.Context, id primitive.ObjectID, songs []primitive.ObjectID) error {
	_, err := r.mutate(ctx, id, func(stored *models.Album) (bool, error) {
		stored.Songs = append(make([]primitive.ObjectID, 0, len(songs)), songs...)
		return true, nil
	})
	return err
}

func (r *memoryAlbumRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.remove(ctx, id)
}

// Songs

var songSchema = memorySchema[models.Song]{
	id:    func(s *models.Song) primitive.ObjectID { return s.ID },
	setID: func(s *models.Song, id primitive.ObjectID) { s.ID = id },
	touch: func(s *models.Song, t time.Time) { s.UpdatedAt = t },
	ids: func(s *models.Song, f Field) *[]primitive.ObjectID {
		if f == FieldFeaturedArtists {
			return &s.FeaturedArtists
		}
		return nil
	},
	counter: func(s *models.Song, f Field) *int64 {
		switch f {
		case FieldPlays:
			return &s.Plays
		case FieldLikes:
			return &s.Likes
		}
		return nil
	},
	matches: func(s *models.Song, q Query) bool {
		if q.Genre != "" && !containsString(s.Genres, q.Genre) {
			return false
		}
		if !q.Owner.IsZero() && s.Artist != q.Owner {
			return false
		}
		if !q.Album.IsZero() && !s.InAlbum(q.Album) {
			return false
		}
		return containsFold(q.Search, append([]string{s.Title, s.Lyrics}, s.Genres...)...)
	},
	sortValue: func(s *models.Song, field string) interface{} {
		switch field {
		case "plays":
			return s.Plays
		case "likes":
			return s.Likes
		case "release_date":
			return s.ReleaseDate
		case "title":
			return s.Title
		}
		return s.CreatedAt
	},
	defaultSort: songDefaultSort,
}

type memorySongRepository struct {
	*memoryCollection[models.Song]
}

func (r *memorySongRepository) Create(ctx context.Context, song *models.Song) error {
	return r.insert(ctx, song)
}

func (r *memorySongRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Song, error) {
	return r.get(ctx, id)
}

func (r *memorySongRepository) FindMany(ctx context.Context, ids []primitive.ObjectID) ([]*models.Song, error) {
	songs := make([]*models.Song, 0, len(ids))
	for _, id := range ids {
		song, err := r.get(ctx, id)
		if err != nil {
			return nil, err
		}
		if song != nil {
			songs = append(songs, song)
		}
	}
	return songs, nil
}

func (r *memorySongRepository) Find(ctx context.Context, q Query) ([]*models.Song, int64, error) {
	return r.find(ctx, q)
}

func (r *memorySongRepository) Update(ctx context.Context, song *models.Song) error {
	_, err := r.mutate(ctx, song.ID, func(stored *models.Song) (bool, error) {
		plays, likes := stored.Plays, stored.Likes
		*stored = *clone(song)
		stored.ID = song.ID
		stored.Plays, stored.Likes = plays, likes
		if !stored.HasAlbum() {
			stored.Album = nil
		}
		return true, nil
	})
	return err
}

func (r *memorySongRepository) AssignAlbum(ctx context.Context, ids []primitive.ObjectID, album *primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var target *primitive.ObjectID
	if album != nil && !album.IsZero() {
		id := *album
		target = &id
	}
	return r.mutateAll(ctx, func(s *models.Song) bool {
		if !models.ContainsID(ids, s.ID) {
			return false
		}
		if target == nil {
			if !s.HasAlbum() {
				return false
			}
			s.Album = nil
			return true
		}
		if s.InAlbum(*target) {
			return false
		}
		id := *target
		s.Album = &id
		return true
	})
}

func (r *memorySongRepository) UnsetAlbum(ctx context.Context, album primitive.ObjectID) (int64, error) {
	return r.mutateAll(ctx, func(s *models.Song) bool {
		if !s.InAlbum(album) {
			return false
		}
		s.Album = nil
		return true
	})
}

func (r *memorySongRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.remove(ctx, id)
}

// Playlists

var playlistSchema = memorySchema[models.Playlist]{
	id:    func(p *models.Playlist) primitive.ObjectID { return p.ID },
	setID: func(p *models.Playlist, id primitive.ObjectID) { p.ID = id },
	touch: func(p *models.Playlist, t time.Time) { p.UpdatedAt = t },
	ids: func(p *models.Playlist, f Field) *[]primitive.ObjectID {
		switch f {
		case FieldSongs:
			return &p.Songs
		case FieldCollaborators:
			return &p.Collaborators
		}
		return nil
	},
	counter: func(p *models.Playlist, f Field) *int64 {
		if f == FieldFollowers {
			return &p.Followers
		}
		return nil
	},
	matches: func(p *models.Playlist, q Query) bool {
		if !q.Owner.IsZero() && p.Creator != q.Owner {
			return false
		}
		if !q.Member.IsZero() && !p.CanEdit(q.Member) {
			return false
		}
		if q.PublicOnly && !p.IsPublic {
			return false
		}
		return containsFold(q.Search, p.Name, p.Description)
	},
	sortValue: func(p *models.Playlist, field string) interface{} {
		switch field {
		case "followers":
			return p.Followers
		case "name":
			return p.Name
		}
		return p.CreatedAt
	},
	defaultSort: playlistDefaultSort,
	conflicts: func(a, b *models.Playlist) bool {
		return a.Creator == b.Creator && a.Name == b.Name
	},
}

type memoryPlaylistRepository struct {
	*memoryCollection[models.Playlist]
}

func (r *memoryPlaylistRepository) Create(ctx context.Context, playlist *models.Playlist) error {
	return r.insert(ctx, playlist)
}

func (r *memoryPlaylistRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Playlist, error) {
	return r.get(ctx, id)
}

func (r *memoryPlaylistRepository) FindByCreatorAndName(ctx context.Context, creator primitive.ObjectID, name string) (*models.Playlist, error) {
	return r.first(ctx, func(p *models.Playlist) bool { return p.Creator == creator && p.Name == name })
}

func (r *memoryPlaylistRepository) Find(ctx context.Context, q Query) ([]*models.Playlist, int64, error) {
	return r.find(ctx, q)
}

func (r *memoryPlaylistRepository) Update(ctx context.Context, playlist *models.Playlist) error {
	_, err := r.mutate(ctx, playlist.ID, func(stored *models.Playlist) (bool, error) {
		stored.Name = playlist.Name
		stored.Description = playlist.Description
		stored.CoverImage = playlist.CoverImage
		stored.IsPublic = playlist.IsPublic
		return true, nil
	})
	return err
}

func (r *memoryPlaylistRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.remove(ctx, id)
}
