package services

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"dotify/internal/media"
	"dotify/internal/models"
	"dotify/internal/repositories"
)

const (
	playlistNameMin        = 3
	playlistNameMax        = 50
	playlistDescriptionMin = 10
	playlistDescriptionMax = 200
)

// PlaylistService manages playlists and their song and collaborator sets.
// The creator and collaborators may change songs; only the creator may
// change anything else.
type PlaylistService struct {
	base
}

// NewPlaylistService creates a new playlist service
func NewPlaylistService(store *repositories.Store, uploader media.Uploader, invalidator Invalidator) *PlaylistService {
	return &PlaylistService{base: newBase(store, uploader, invalidator)}
}

func validatePlaylistName(name string) error {
	if n := utf8.RuneCountInString(name); n < playlistNameMin || n > playlistNameMax {
		return badRequest("Name must be between %d and %d characters", playlistNameMin, playlistNameMax)
	}
	return nil
}

func validatePlaylistDescription(description string) error {
	if n := utf8.RuneCountInString(description); n < playlistDescriptionMin || n > playlistDescriptionMax {
		return badRequest("Description must be between %d and %d characters", playlistDescriptionMin, playlistDescriptionMax)
	}
	return nil
}

func (s *PlaylistService) load(ctx context.Context, id primitive.ObjectID) (*models.Playlist, error) {
	playlist, err := s.store.Playlists.FindByID(ctx, id)
	return requireFound(playlist, err, "Playlist")
}

// loadForEdit loads a playlist the requester may add or remove songs on
func (s *PlaylistService) loadForEdit(ctx context.Context, id, requester primitive.ObjectID) (*models.Playlist, error) {
	playlist, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !playlist.CanEdit(requester) {
		return nil, forbidden("Not authorized to modify this playlist")
	}
	return playlist, nil
}

// loadForOwner loads a playlist only its creator may change
func (s *PlaylistService) loadForOwner(ctx context.Context, id, requester primitive.ObjectID) (*models.Playlist, error) {
	playlist, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !playlist.IsCreator(requester) {
		return nil, forbidden("Only the playlist creator can do this")
	}
	return playlist, nil
}

// Get returns a playlist the viewer may see. Private playlists look missing
// to everyone but their members. A zero viewer is anonymous.
func (s *PlaylistService) Get(ctx context.Context, id, viewer primitive.ObjectID) (*models.Playlist, error) {
	playlist, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !playlist.CanView(viewer) {
		return nil, notFound("Playlist not found")
	}
	return playlist, nil
}

// Create creates an empty playlist owned by creator
func (s *PlaylistService) Create(ctx context.Context, creator primitive.ObjectID, in PlaylistInput) (*models.Playlist, error) {
	name := strings.TrimSpace(in.Name)
	description := strings.TrimSpace(in.Description)
	if name == "" || description == "" {
		return nil, badRequest("Name and description are required")
	}
	if err := validatePlaylistName(name); err != nil {
		return nil, err
	}
	if err := validatePlaylistDescription(description); err != nil {
		return nil, err
	}

	existing, err := s.store.Playlists.FindByCreatorAndName(ctx, creator, name)
	if err != nil {
		return nil, storeError(err, "Playlist")
	}
	if existing != nil {
		return nil, conflict("A playlist with this name already exists")
	}

	playlist := models.NewPlaylist(name, description, creator)
	playlist.IsPublic = in.IsPublic

	if url, err := s.upload(ctx, in.CoverPath, media.FolderPlaylists); err != nil {
		return nil, err
	} else if url != "" {
		playlist.CoverImage = url
	}

	if err := s.store.Playlists.Create(ctx, playlist); err != nil {
		return nil, storeError(err, "Playlist")
	}

	s.invalidate(ctx, models.PlaylistsCollection)
	slog.Info("Playlist created", "playlist_id", playlist.ID.Hex(), "creator", creator.Hex())
	return playlist, nil
}

// Update changes a playlist's descriptive fields
func (s *PlaylistService) Update(ctx context.Context, id, requester primitive.ObjectID, in PlaylistUpdate) (*models.Playlist, error) {
	playlist, err := s.loadForOwner(ctx, id, requester)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validatePlaylistName(name); err != nil {
			return nil, err
		}
		if name != playlist.Name {
			other, err := s.store.Playlists.FindByCreatorAndName(ctx, playlist.Creator, name)
			if err != nil {
				return nil, storeError(err, "Playlist")
			}
			if other != nil && other.ID != id {
				return nil, conflict("A playlist with this name already exists")
			}
		}
		playlist.Name = name
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		if err := validatePlaylistDescription(description); err != nil {
			return nil, err
		}
		playlist.Description = description
	}
	if in.IsPublic != nil {
		playlist.IsPublic = *in.IsPublic
	}

	if url, err := s.upload(ctx, in.CoverPath, media.FolderPlaylists); err != nil {
		return nil, err
	} else if url != "" {
		playlist.CoverImage = url
	}

	if err := s.store.Playlists.Update(ctx, playlist); err != nil {
		return nil, storeError(err, "Playlist")
	}

	s.invalidate(ctx, models.PlaylistsCollection)
	return playlist, nil
}

// Delete removes a playlist and drops it from every follower
func (s *PlaylistService) Delete(ctx context.Context, id, requester primitive.ObjectID) error {
	if _, err := s.loadForOwner(ctx, id, requester); err != nil {
		return err
	}

	err := s.transact(ctx, func(ctx context.Context, _ *undoLog) error {
		if err := s.store.Playlists.Delete(ctx, id); err != nil {
			return storeError(err, "Playlist")
		}
		_, err := s.store.Users.RemoveMemberFromAll(ctx, repositories.FieldFollowedPlaylists, id)
		return storeError(err, "User")
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, models.PlaylistsCollection)
	slog.Info("Playlist deleted", "playlist_id", id.Hex())
	return nil
}

// AddSongs appends songs to a playlist. The whole batch is rejected if any
// song is missing, repeated, or already on the playlist.
func (s *PlaylistService) AddSongs(ctx context.Context, id, requester primitive.ObjectID, songIDs []primitive.ObjectID) (*models.Playlist, error) {
	playlist, err := s.loadForEdit(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	if len(songIDs) == 0 {
		return nil, badRequest("At least one song is required")
	}
	if hasDuplicateIDs(songIDs) {
		return nil, badRequest("Duplicate songs in request")
	}

	for _, songID := range songIDs {
		song, err := s.store.Songs.FindByID(ctx, songID)
		if err != nil {
			return nil, storeError(err, "Song")
		}
		if song == nil {
			return nil, notFound("Song %s not found", songID.Hex())
		}
		if models.ContainsID(playlist.Songs, songID) {
			return nil, badRequest("Song %s is already in the playlist", songID.Hex())
		}
	}

	added, err := s.store.Playlists.AddMembers(ctx, id, repositories.FieldSongs, songIDs)
	if err != nil {
		return nil, storeError(err, "Playlist")
	}
	if !added {
		return nil, badRequest("Song is already in the playlist")
	}

	s.invalidate(ctx, models.PlaylistsCollection)
	return s.load(ctx, id)
}

// RemoveSong takes one song off a playlist
func (s *PlaylistService) RemoveSong(ctx context.Context, id, requester, songID primitive.ObjectID) (*models.Playlist, error) {
	if _, err := s.loadForEdit(ctx, id, requester); err != nil {
		return nil, err
	}

	removed, err := s.store.Playlists.RemoveMember(ctx, id, repositories.FieldSongs, songID)
	if err != nil {
		return nil, storeError(err, "Playlist")
	}
	if !removed {
		return nil, badRequest("Song is not in the playlist")
	}

	s.invalidate(ctx, models.PlaylistsCollection)
	return s.load(ctx, id)
}

// AddCollaborator lets another user edit the playlist's songs
func (s *PlaylistService) AddCollaborator(ctx context.Context, id, requester, collaborator primitive.ObjectID) (*models.Playlist, error) {
	playlist, err := s.loadForOwner(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	if collaborator.IsZero() {
		return nil, badRequest("Collaborator is required")
	}
	if playlist.IsCreator(collaborator) {
		return nil, badRequest("The creator cannot be a collaborator")
	}

	user, err := s.store.Users.FindByID(ctx, collaborator)
	if _, err := requireFound(user, err, "User"); err != nil {
		return nil, err
	}

	added, err := s.store.Playlists.AddMember(ctx, id, repositories.FieldCollaborators, collaborator)
	if err != nil {
		return nil, storeError(err, "Playlist")
	}
	if !added {
		return nil, badRequest("User is already a collaborator")
	}

	s.invalidate(ctx, models.PlaylistsCollection)
	return s.load(ctx, id)
}

// RemoveCollaborator revokes a collaborator's edit rights
func (s *PlaylistService) RemoveCollaborator(ctx context.Context, id, requester, collaborator primitive.ObjectID) (*models.Playlist, error) {
	if _, err := s.loadForOwner(ctx, id, requester); err != nil {
		return nil, err
	}

	removed, err := s.store.Playlists.RemoveMember(ctx, id, repositories.FieldCollaborators, collaborator)
	if err != nil {
		return nil, storeError(err, "Playlist")
	}
	if !removed {
		return nil, badRequest("User is not a collaborator")
	}

	s.invalidate(ctx, models.PlaylistsCollection)
	return s.load(ctx, id)
}
