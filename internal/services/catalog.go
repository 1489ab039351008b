package services

import (
	"context"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"dotify/internal/media"
	"dotify/internal/models"
	"dotify/internal/repositories"
)

// CatalogService maintains artists, albums and songs together with the
// back-references between them. Every mutation updates the entity and all
// of its back-references, or leaves them as they were.
type CatalogService struct {
	base
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store *repositories.Store, uploader media.Uploader, invalidator Invalidator) *CatalogService {
	return &CatalogService{base: newBase(store, uploader, invalidator)}
}

func (s *CatalogService) requireArtist(ctx context.Context, id primitive.ObjectID) (*models.Artist, error) {
	artist, err := s.store.Artists.FindByID(ctx, id)
	return requireFound(artist, err, "Artist")
}

func (s *CatalogService) requireAlbum(ctx context.Context, id primitive.ObjectID) (*models.Album, error) {
	album, err := s.store.Albums.FindByID(ctx, id)
	return requireFound(album, err, "Album")
}

func (s *CatalogService) requireSong(ctx context.Context, id primitive.ObjectID) (*models.Song, error) {
	song, err := s.store.Songs.FindByID(ctx, id)
	return requireFound(song, err, "Song")
}

// requireArtists checks every id names an existing artist
func (s *CatalogService) requireArtists(ctx context.Context, ids []primitive.ObjectID) error {
	for _, id := range ids {
		if _, err := s.requireArtist(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Artists

// GetArtist returns an artist by id
func (s *CatalogService) GetArtist(ctx context.Context, id primitive.ObjectID) (*models.Artist, error) {
	return s.requireArtist(ctx, id)
}

// CreateArtist creates an artist with no albums, songs or followers
func (s *CatalogService) CreateArtist(ctx context.Context, in ArtistInput) (*models.Artist, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, badRequest("Artist name is required")
	}

	existing, err := s.store.Artists.FindByName(ctx, name)
	if err != nil {
		return nil, storeError(err, "Artist")
	}
	if existing != nil {
		return nil, conflict("Artist already exists")
	}

	artist := models.NewArtist(name, strings.TrimSpace(in.Bio), cleanTags(in.Genres))
	artist.IsVerified = in.IsVerified

	if url, err := s.upload(ctx, in.ImagePath, media.FolderArtists); err != nil {
		return nil, err
	} else if url != "" {
		artist.Image = url
	}

	if err := s.store.Artists.Create(ctx, artist); err != nil {
		return nil, storeError(err, "Artist")
	}

	s.invalidate(ctx, models.ArtistsCollection)
	slog.Info("Artist created", "artist_id", artist.ID.Hex(), "name", artist.Name)
	return artist, nil
}

// UpdateArtist changes descriptive fields. Songs, albums and followers are
// never touched here.
func (s *CatalogService) UpdateArtist(ctx context.Context, id primitive.ObjectID, in ArtistUpdate) (*models.Artist, error) {
	artist, err := s.requireArtist(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, badRequest("Artist name cannot be empty")
		}
		if name != artist.Name {
			other, err := s.store.Artists.FindByName(ctx, name)
			if err != nil {
				return nil, storeError(err, "Artist")
			}
			if other != nil && other.ID != id {
				return nil, conflict("Artist already exists")
			}
		}
		artist.Name = name
	}
	if in.Bio != nil {
		artist.Bio = strings.TrimSpace(*in.Bio)
	}
	if in.Genres != nil {
		artist.Genres = cleanTags(*in.Genres)
	}
	if in.IsVerified != nil {
		artist.IsVerified = *in.IsVerified
	}

	if url, err := s.upload(ctx, in.ImagePath, media.FolderArtists); err != nil {
		return nil, err
	} else if url != "" {
		artist.Image = url
	}

	if err := s.store.Artists.Update(ctx, artist); err != nil {
		return nil, storeError(err, "Artist")
	}

	s.invalidate(ctx, models.ArtistsCollection)
	return artist, nil
}

// DeleteArtist deletes the artist, every song and album it owns, and every
// reference to any of them
func (s *CatalogService) DeleteArtist(ctx context.Context, id primitive.ObjectID) error {
	artist, err := s.requireArtist(ctx, id)
	if err != nil {
		return err
	}

	var songCount, albumCount int
	err = s.transact(ctx, func(ctx context.Context, _ *undoLog) error {
		// Once the artist is gone, Reconcile finishes any interrupted cascade
		if err := s.store.Artists.Delete(ctx, id); err != nil {
			return storeError(err, "Artist")
		}

		songs, _, err := s.store.Songs.Find(ctx, repositories.Query{Owner: id})
		if err != nil {
			return storeError(err, "Song")
		}
		for _, song := range songs {
			if err := s.removeSong(ctx, song, false); err != nil {
				return err
			}
			songCount++
		}

		albums, _, err := s.store.Albums.Find(ctx, repositories.Query{Owner: id})
		if err != nil {
			return storeError(err, "Album")
		}
		for _, album := range albums {
			if err := s.removeAlbum(ctx, album, false); err != nil {
				return err
			}
			albumCount++
		}

		if _, err := s.store.Users.RemoveMemberFromAll(ctx, repositories.FieldFollowedArtists, id); err != nil {
			return storeError(err, "User")
		}
		if _, err := s.store.Songs.RemoveMemberFromAll(ctx, repositories.FieldFeaturedArtists, id); err != nil {
			return storeError(err, "Song")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, allCollections...)
	slog.Info("Artist deleted",
		"artist_id", id.Hex(),
		"name", artist.Name,
		"songs", songCount,
		"albums", albumCount)
	return nil
}

// Albums

// GetAlbum returns an album by id
func (s *CatalogService) GetAlbum(ctx context.Context, id primitive.ObjectID) (*models.Album, error) {
	return s.requireAlbum(ctx, id)
}

// CreateAlbum creates an empty album and lists it on its artist
func (s *CatalogService) CreateAlbum(ctx context.Context, in AlbumInput) (*models.Album, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, badRequest("Album title is required")
	}
	if in.Artist.IsZero() {
		return nil, badRequest("Artist is required")
	}

	artist, err := s.requireArtist(ctx, in.Artist)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.Albums.FindByTitle(ctx, title)
	if err != nil {
		return nil, storeError(err, "Album")
	}
	if existing != nil {
		return nil, conflict("Album already exists")
	}

	album := models.NewAlbum(title, artist.ID)
	if in.ReleaseDate != nil {
		album.ReleaseDate = *in.ReleaseDate
	}
	album.Genre = strings.TrimSpace(in.Genre)
	album.Description = strings.TrimSpace(in.Description)
	album.IsExplicit = in.IsExplicit

	if url, err := s.upload(ctx, in.CoverPath, media.FolderAlbums); err != nil {
		return nil, err
	} else if url != "" {
		album.CoverImage = url
	}

	err = s.transact(ctx, func(ctx context.Context, undo *undoLog) error {
		if err := s.store.Albums.Create(ctx, album); err != nil {
			return storeError(err, "Album")
		}
		undo.push("delete album", func(ctx context.Context) error {
			return s.store.Albums.Delete(ctx, album.ID)
		})

		if _, err := s.store.Artists.AddMember(ctx, artist.ID, repositories.FieldAlbums, album.ID); err != nil {
			return storeError(err, "Artist")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, models.AlbumsCollection, models.ArtistsCollection)
	slog.Info("Album created", "album_id", album.ID.Hex(), "artist_id", artist.ID.Hex())
	return album, nil
}

// UpdateAlbum changes descriptive fields. The owner and song list are
// managed by AddSongsToAlbum and RemoveSongFromAlbum.
func (s *CatalogService) UpdateAlbum(ctx context.Context, id primitive.ObjectID, in AlbumUpdate) (*models.Album, error) {
	album, err := s.requireAlbum(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, badRequest("Album title cannot be empty")
		}
		if title != album.Title {
			other, err := s.store.Albums.FindByTitle(ctx, title)
			if err != nil {
				return nil, storeError(err, "Album")
			}
			if other != nil && other.ID != id {
				return nil, conflict("Album already exists")
			}
		}
		album.Title = title
	}
	if in.ReleaseDate != nil {
		album.ReleaseDate = *in.ReleaseDate
	}
	if in.Genre != nil {
		album.Genre = strings.TrimSpace(*in.Genre)
	}
	if in.Description != nil {
		album.Description = strings.TrimSpace(*in.Description)
	}
	if in.IsExplicit != nil {
		album.IsExplicit = *in.IsExplicit
	}

	if url, err := s.upload(ctx, in.CoverPath, media.FolderAlbums); err != nil {
		return nil, err
	} else if url != "" {
		album.CoverImage = url
	}

	if err := s.store.Albums.Update(ctx, album); err != nil {
		return nil, storeError(err, "Album")
	}

	s.invalidate(ctx, models.AlbumsCollection)
	return album, nil
}

// DeleteAlbum deletes the album. Its songs stay in the catalog without an
// album.
func (s *CatalogService) DeleteAlbum(ctx context.Context, id primitive.ObjectID) error {
	album, err := s.requireAlbum(ctx, id)
	if err != nil {
		return err
	}

	err = s.transact(ctx, func(ctx context.Context, _ *undoLog) error {
		return s.removeAlbum(ctx, album, true)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, models.AlbumsCollection, models.SongsCollection, models.ArtistsCollection)
	slog.Info("Album deleted", "album_id", id.Hex())
	return nil
}

// removeAlbum deletes album, then unlinks it from its songs and likers.
// detachArtist is false when the owning artist is being deleted as well.
// The document goes first so an interrupted run leaves only references to
// a missing album, which Reconcile clears.
func (s *CatalogService) removeAlbum(ctx context.Context, album *models.Album, detachArtist bool) error {
	if err := s.store.Albums.Delete(ctx, album.ID); err != nil {
		return storeError(err, "Album")
	}
	if _, err := s.store.Songs.UnsetAlbum(ctx, album.ID); err != nil {
		return storeError(err, "Song")
	}
	if _, err := s.store.Users.RemoveMemberFromAll(ctx, repositories.FieldLikedAlbums, album.ID); err != nil {
		return storeError(err, "User")
	}
	if detachArtist {
		if _, err := s.store.Artists.RemoveMember(ctx, album.Artist, repositories.FieldAlbums, album.ID); ignoreMissing(err) != nil {
			return storeError(err, "Artist")
		}
	}
	return nil
}

// AddSongsToAlbum places songs on an album. Every song must belong to the
// album's artist and none may already be on it; otherwise nothing changes.
// Songs on another album are moved.
func (s *CatalogService) AddSongsToAlbum(ctx context.Context, albumID primitive.ObjectID, songIDs []primitive.ObjectID) (*models.Album, error) {
	album, err := s.requireAlbum(ctx, albumID)
	if err != nil {
		return nil, err
	}
	if len(songIDs) == 0 {
		return nil, badRequest("At least one song is required")
	}
	if hasDuplicateIDs(songIDs) {
		return nil, badRequest("Duplicate songs in request")
	}

	songs, err := s.store.Songs.FindMany(ctx, songIDs)
	if err != nil {
		return nil, storeError(err, "Song")
	}
	if len(songs) != len(songIDs) {
		return nil, notFound("Song not found")
	}
	for _, song := range songs {
		if song.Artist != album.Artist {
			return nil, badRequest("Song %s belongs to a different artist", song.ID.Hex())
		}
		if song.InAlbum(albumID) || models.ContainsID(album.Songs, song.ID) {
			return nil, badRequest("Song %s is already in this album", song.ID.Hex())
		}
	}

	err = s.transact(ctx, func(ctx context.Context, undo *undoLog) error {
		added, err := s.store.Albums.AddMembers(ctx, albumID, repositories.FieldSongs, songIDs)
		if err != nil {
			return storeError(err, "Album")
		}
		if !added {
			return badRequest("Song is already in this album")
		}
		undo.push("pull songs from album", func(ctx context.Context) error {
			for _, id := range songIDs {
				if _, err := s.store.Albums.RemoveMember(ctx, albumID, repositories.FieldSongs, id); err != nil {
					return err
				}
			}
			return nil
		})

		for _, song := range songs {
			if !song.HasAlbum() {
				continue
			}
			if err := s.moveMember(ctx, undo, s.store.Albums, "Album", song.Album, nil, song.ID); err != nil {
				return err
			}
		}

		_, err = s.store.Songs.AssignAlbum(ctx, songIDs, &albumID)
		return storeError(err, "Song")
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, models.AlbumsCollection, models.SongsCollection)
	return s.requireAlbum(ctx, albumID)
}

// RemoveSongFromAlbum takes a song off an album without deleting it
func (s *CatalogService) RemoveSongFromAlbum(ctx context.Context, albumID, songID primitive.ObjectID) (*models.Album, error) {
	if _, err := s.requireAlbum(ctx, albumID); err != nil {
		return nil, err
	}
	song, err := s.requireSong(ctx, songID)
	if err != nil {
		return nil, err
	}

	err = s.transact(ctx, func(ctx context.Context, undo *undoLog) error {
		listed, err := s.store.Albums.RemoveMember(ctx, albumID, repositories.FieldSongs, songID)
		if err != nil {
			return storeError(err, "Album")
		}
		if !listed && !song.InAlbum(albumID) {
			return badRequest("Song is not in this album")
		}
		if listed {
			undo.push("relist song", func(ctx context.Context) error {
				_, err := s.store.Albums.AddMember(ctx, albumID, repositories.FieldSongs, songID)
				return err
			})
		}
		if song.InAlbum(albumID) {
			if _, err := s.store.Songs.AssignAlbum(ctx, []primitive.ObjectID{songID}, nil); err != nil {
				return storeError(err, "Song")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, models.AlbumsCollection, models.SongsCollection)
	return s.requireAlbum(ctx, albumID)
}

// Songs

// GetSong returns a song and counts the fetch as a play
func (s *CatalogService) GetSong(ctx context.Context, id primitive.ObjectID) (*models.Song, error) {
	song, err := s.requireSong(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Songs.AdjustCounter(ctx, id, repositories.FieldPlays, 1); err != nil {
		return nil, storeError(err, "Song")
	}
	song.Plays++
	return song, nil
}

// CreateSong creates a song and lists it on its artist and, when given, its
// album
func (s *CatalogService) CreateSong(ctx context.Context, in SongInput) (*models.Song, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, badRequest("Song title is required")
	}
	if in.Artist.IsZero() {
		return nil, badRequest("Artist is required")
	}
	if in.AudioPath == "" && strings.TrimSpace(in.AudioURL) == "" {
		return nil, badRequest("Audio file is required")
	}
	if in.Duration < 0 {
		return nil, badRequest("Duration cannot be negative")
	}

	artist, err := s.requireArtist(ctx, in.Artist)
	if err != nil {
		return nil, err
	}

	var album *models.Album
	if in.Album != nil && !in.Album.IsZero() {
		if album, err = s.requireAlbum(ctx, *in.Album); err != nil {
			return nil, err
		}
		if album.Artist != artist.ID {
			return nil, badRequest("Album belongs to a different artist")
		}
	}
	if err := s.requireArtists(ctx, in.FeaturedArtists); err != nil {
		return nil, err
	}

	song := models.NewSong(title, artist.ID, strings.TrimSpace(in.AudioURL))
	if album != nil {
		albumID := album.ID
		song.Album = &albumID
	}
	song.Duration = in.Duration
	if in.ReleaseDate != nil {
		song.ReleaseDate = *in.ReleaseDate
	}
	song.Genres = cleanTags(in.Genres)
	song.Lyrics = in.Lyrics
	song.IsExplicit = in.IsExplicit
	if in.FeaturedArtists != nil {
		song.FeaturedArtists = in.FeaturedArtists
	}

	if url, err := s.upload(ctx, in.AudioPath, media.FolderSongs); err != nil {
		return nil, err
	} else if url != "" {
		song.AudioURL = url
	}
	if url, err := s.upload(ctx, in.CoverPath, media.FolderSongs); err != nil {
		return nil, err
	} else if url != "" {
		song.CoverImage = url
	}

	err = s.transact(ctx, func(ctx context.Context, undo *undoLog) error {
		if err := s.store.Songs.Create(ctx, song); err != nil {
			return storeError(err, "Song")
		}
		undo.push("delete song", func(ctx context.Context) error {
			return s.store.Songs.Delete(ctx, song.ID)
		})

		if _, err := s.store.Artists.AddMember(ctx, artist.ID, repositories.FieldSongs, song.ID); err != nil {
			return storeError(err, "Artist")
		}
		undo.push("pull song from artist", func(ctx context.Context) error {
			_, err := s.store.Artists.RemoveMember(ctx, artist.ID, repositories.FieldSongs, song.ID)
			return err
		})

		if album != nil {
			if _, err := s.store.Albums.AddMember(ctx, album.ID, repositories.FieldSongs, song.ID); err != nil {
				return storeError(err, "Album")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, models.SongsCollection, models.ArtistsCollection, models.AlbumsCollection)
	slog.Info("Song created", "song_id", song.ID.Hex(), "artist_id", artist.ID.Hex())
	return song, nil
}

// UpdateSong changes a song. Moving it to another artist or album moves the
// back-references with it. Counters are never touched here.
func (s *CatalogService) UpdateSong(ctx context.Context, id primitive.ObjectID, in SongUpdate) (*models.Song, error) {
	song, err := s.requireSong(ctx, id)
	if err != nil {
		return nil, err
	}
	// Fields below are reassigned, never mutated in place
	original := *song
	oldArtist := song.Artist
	var oldAlbum *primitive.ObjectID
	if song.HasAlbum() {
		albumID := *song.Album
		oldAlbum = &albumID
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, badRequest("Song title cannot be empty")
		}
		song.Title = title
	}
	if in.Duration != nil {
		if *in.Duration < 0 {
			return nil, badRequest("Duration cannot be negative")
		}
		song.Duration = *in.Duration
	}
	if in.ReleaseDate != nil {
		song.ReleaseDate = *in.ReleaseDate
	}
	if in.Genres != nil {
		song.Genres = cleanTags(*in.Genres)
	}
	if in.Lyrics != nil {
		song.Lyrics = *in.Lyrics
	}
	if in.IsExplicit != nil {
		song.IsExplicit = *in.IsExplicit
	}
	if in.FeaturedArtists != nil {
		if err := s.requireArtists(ctx, *in.FeaturedArtists); err != nil {
			return nil, err
		}
		song.FeaturedArtists = append([]primitive.ObjectID{}, *in.FeaturedArtists...)
	}

	if in.Artist != nil && *in.Artist != song.Artist {
		if _, err := s.requireArtist(ctx, *in.Artist); err != nil {
			return nil, err
		}
		song.Artist = *in.Artist
	}
	if in.Album != nil {
		if in.Album.IsZero() {
			song.Album = nil
		} else {
			albumID := *in.Album
			song.Album = &albumID
		}
	}

	artistChanged := song.Artist != oldArtist
	albumChanged := !sameAlbum(oldAlbum, song.Album)
	if song.HasAlbum() && (artistChanged || albumChanged) {
		album, err := s.requireAlbum(ctx, *song.Album)
		if err != nil {
			return nil, err
		}
		if album.Artist != song.Artist {
			return nil, badRequest("Album belongs to a different artist")
		}
	}

	if url, err := s.upload(ctx, in.AudioPath, media.FolderSongs); err != nil {
		return nil, err
	} else if url != "" {
		song.AudioURL = url
	}
	if url, err := s.upload(ctx, in.CoverPath, media.FolderSongs); err != nil {
		return nil, err
	} else if url != "" {
		song.CoverImage = url
	}

	err = s.transact(ctx, func(ctx context.Context, undo *undoLog) error {
		if err := s.store.Songs.Update(ctx, song); err != nil {
			return storeError(err, "Song")
		}
		undo.push("restore song", func(ctx context.Context) error {
			return s.store.Songs.Update(ctx, &original)
		})

		if artistChanged {
			if err := s.moveMember(ctx, undo, s.store.Artists, "Artist", &oldArtist, &song.Artist, id); err != nil {
				return err
			}
		}
		if albumChanged {
			if err := s.moveMember(ctx, undo, s.store.Albums, "Album", oldAlbum, song.Album, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if artistChanged || albumChanged {
		s.invalidate(ctx, models.SongsCollection, models.ArtistsCollection, models.AlbumsCollection)
	} else {
		s.invalidate(ctx, models.SongsCollection)
	}
	return song, nil
}

// moveMember moves songID from the from container's song list to the to
// container's. Either end may be nil. Each write registers its inverse.
func (s *CatalogService) moveMember(ctx context.Context, undo *undoLog, containers repositories.Relations, entity string, from, to *primitive.ObjectID, songID primitive.ObjectID) error {
	if from != nil {
		fromID := *from
		removed, err := containers.RemoveMember(ctx, fromID, repositories.FieldSongs, songID)
		if ignoreMissing(err) != nil {
			return storeError(err, entity)
		}
		if removed {
			undo.push("relist song", func(ctx context.Context) error {
				_, err := containers.AddMember(ctx, fromID, repositories.FieldSongs, songID)
				return err
			})
		}
	}
	if to != nil {
		toID := *to
		added, err := containers.AddMember(ctx, toID, repositories.FieldSongs, songID)
		if err != nil {
			return storeError(err, entity)
		}
		if added {
			undo.push("unlist song", func(ctx context.Context) error {
				_, err := containers.RemoveMember(ctx, toID, repositories.FieldSongs, songID)
				return err
			})
		}
	}
	return nil
}

func sameAlbum(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// DeleteSong deletes a song and every reference to it
func (s *CatalogService) DeleteSong(ctx context.Context, id primitive.ObjectID) error {
	song, err := s.requireSong(ctx, id)
	if err != nil {
		return err
	}

	err = s.transact(ctx, func(ctx context.Context, _ *undoLog) error {
		return s.removeSong(ctx, song, true)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, allCollections...)
	slog.Info("Song deleted", "song_id", id.Hex())
	return nil
}

// removeSong deletes song, then pulls it from its artist, album, playlists
// and likers. detachArtist is false when the artist is being deleted too.
// As with removeAlbum, a partial run leaves only dangling ids.
func (s *CatalogService) removeSong(ctx context.Context, song *models.Song, detachArtist bool) error {
	if err := s.store.Songs.Delete(ctx, song.ID); err != nil {
		return storeError(err, "Song")
	}
	if _, err := s.store.Playlists.RemoveMemberFromAll(ctx, repositories.FieldSongs, song.ID); err != nil {
		return storeError(err, "Playlist")
	}
	if _, err := s.store.Users.RemoveMemberFromAll(ctx, repositories.FieldLikedSongs, song.ID); err != nil {
		return storeError(err, "User")
	}
	if song.HasAlbum() {
		if _, err := s.store.Albums.RemoveMember(ctx, *song.Album, repositories.FieldSongs, song.ID); ignoreMissing(err) != nil {
			return storeError(err, "Album")
		}
	}
	if detachArtist {
		if _, err := s.store.Artists.RemoveMember(ctx, song.Artist, repositories.FieldSongs, song.ID); ignoreMissing(err) != nil {
			return storeError(err, "Artist")
		}
	}
	return nil
}
