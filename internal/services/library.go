package services

import (
	"context"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"dotify/internal/models"
	"dotify/internal/repositories"
)

// ToggleResult is the outcome of a like or follow toggle
type ToggleResult struct {
	// Added is true when the target joined the user's set, false when it left
	Added bool                 `json:"added"`
	IDs   []primitive.ObjectID `json:"ids"`
	Count int64                `json:"count"`
}

// LibraryService toggles a user's likes and follows. Each toggle moves the
// user's set and the target's counter together.
type LibraryService struct {
	base
}

// NewLibraryService creates a new library service
func NewLibraryService(store *repositories.Store, invalidator Invalidator) *LibraryService {
	return &LibraryService{base: newBase(store, nil, invalidator)}
}

// relation describes one user set and the counter mirroring it
type relation struct {
	entity     string
	collection string
	userField  repositories.Field
	target     repositories.Relations
	counter    repositories.Field
	// lookup loads the target's current counter, or reports it missing
	lookup func(ctx context.Context, id primitive.ObjectID) (int64, bool, error)
}

// ToggleLikeSong likes the song, or unlikes it if already liked
func (s *LibraryService) ToggleLikeSong(ctx context.Context, userID, songID primitive.ObjectID) (*ToggleResult, error) {
	return s.toggle(ctx, userID, songID, relation{
		entity:     "Song",
		collection: models.SongsCollection,
		userField:  repositories.FieldLikedSongs,
		target:     s.store.Songs,
		counter:    repositories.FieldLikes,
		lookup: func(ctx context.Context, id primitive.ObjectID) (int64, bool, error) {
			song, err := s.store.Songs.FindByID(ctx, id)
			if err != nil || song == nil {
				return 0, false, err
			}
			return song.Likes, true, nil
		},
	})
}

// ToggleLikeAlbum likes the album, or unlikes it if already liked
func (s *LibraryService) ToggleLikeAlbum(ctx context.Context, userID, albumID primitive.ObjectID) (*ToggleResult, error) {
	return s.toggle(ctx, userID, albumID, relation{
		entity:     "Album",
		collection: models.AlbumsCollection,
		userField:  repositories.FieldLikedAlbums,
		target:     s.store.Albums,
		counter:    repositories.FieldLikes,
		lookup: func(ctx context.Context, id primitive.ObjectID) (int64, bool, error) {
			album, err := s.store.Albums.FindByID(ctx, id)
			if err != nil || album == nil {
				return 0, false, err
			}
			return album.Likes, true, nil
		},
	})
}

// ToggleFollowArtist follows the artist, or unfollows if already following
func (s *LibraryService) ToggleFollowArtist(ctx context.Context, userID, artistID primitive.ObjectID) (*ToggleResult, error) {
	return s.toggle(ctx, userID, artistID, relation{
		entity:     "Artist",
		collection: models.ArtistsCollection,
		userField:  repositories.FieldFollowedArtists,
		target:     s.store.Artists,
		counter:    repositories.FieldFollowers,
		lookup: func(ctx context.Context, id primitive.ObjectID) (int64, bool, error) {
			artist, err := s.store.Artists.FindByID(ctx, id)
			if err != nil || artist == nil {
				return 0, false, err
			}
			return artist.Followers, true, nil
		},
	})
}

// ToggleFollowPlaylist follows the playlist, or unfollows if already
// following. Private playlists can only be followed by their members.
func (s *LibraryService) ToggleFollowPlaylist(ctx context.Context, userID, playlistID primitive.ObjectID) (*ToggleResult, error) {
	return s.toggle(ctx, userID, playlistID, relation{
		entity:     "Playlist",
		collection: models.PlaylistsCollection,
		userField:  repositories.FieldFollowedPlaylists,
		target:     s.store.Playlists,
		counter:    repositories.FieldFollowers,
		lookup: func(ctx context.Context, id primitive.ObjectID) (int64, bool, error) {
			playlist, err := s.store.Playlists.FindByID(ctx, id)
			if err != nil || playlist == nil {
				return 0, false, err
			}
			if !playlist.CanView(userID) {
				// Former followers of a playlist made private may still leave it
				user, err := s.store.Users.FindByID(ctx, userID)
				if err != nil || user == nil || !models.ContainsID(user.FollowedPlaylists, id) {
					return 0, false, err
				}
			}
			return playlist.Followers, true, nil
		},
	})
}

// toggle adds targetID to the user's set and bumps the target's counter, or
// removes it and decrements. The set write is conditional, so the counter
// only moves when membership really changed.
func (s *LibraryService) toggle(ctx context.Context, userID, targetID primitive.ObjectID, rel relation) (*ToggleResult, error) {
	if _, found, err := rel.lookup(ctx, targetID); err != nil {
		return nil, storeError(err, rel.entity)
	} else if !found {
		return nil, notFound("%s not found", rel.entity)
	}

	var added bool
	err := s.transact(ctx, func(ctx context.Context, undo *undoLog) error {
		var err error
		added, err = s.store.Users.AddMember(ctx, userID, rel.userField, targetID)
		if err != nil {
			return storeError(err, "User")
		}

		delta := int64(1)
		if added {
			undo.push("pull from user set", func(ctx context.Context) error {
				_, err := s.store.Users.RemoveMember(ctx, userID, rel.userField, targetID)
				return err
			})
		} else {
			removed, err := s.store.Users.RemoveMember(ctx, userID, rel.userField, targetID)
			if err != nil {
				return storeError(err, "User")
			}
			if !removed {
				// Another request re-added it between our two writes
				return nil
			}
			undo.push("restore user set", func(ctx context.Context) error {
				_, err := s.store.Users.AddMember(ctx, userID, rel.userField, targetID)
				return err
			})
			delta = -1
		}

		return storeError(rel.target.AdjustCounter(ctx, targetID, rel.counter, delta), rel.entity)
	})
	if err != nil {
		return nil, err
	}

	user, err := s.store.Users.FindByID(ctx, userID)
	if user, err = requireFound(user, err, "User"); err != nil {
		return nil, err
	}
	count, _, err := rel.lookup(ctx, targetID)
	if err != nil {
		return nil, storeError(err, rel.entity)
	}

	s.invalidate(ctx, rel.collection)
	slog.Debug("Toggled relation",
		"user_id", userID.Hex(),
		"target_id", targetID.Hex(),
		"field", string(rel.userField),
		"added", added)

	return &ToggleResult{
		Added: added,
		IDs:   userSet(user, rel.userField),
		Count: count,
	}, nil
}

func userSet(user *models.User, field repositories.Field) []primitive.ObjectID {
	switch field {
	case repositories.FieldLikedSongs:
		return user.LikedSongs
	case repositories.FieldLikedAlbums:
		return user.LikedAlbums
	case repositories.FieldFollowedArtists:
		return user.FollowedArtists
	case repositories.FieldFollowedPlaylists:
		return user.FollowedPlaylists
	}
	return nil
}
