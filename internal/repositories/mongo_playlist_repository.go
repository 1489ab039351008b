package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dotify/internal/models"
)

// mongoPlaylistRepository implements PlaylistRepository using MongoDB
type mongoPlaylistRepository struct {
	mongoCollection
}

// NewMongoPlaylistRepository creates a new MongoDB-backed playlist repository
func NewMongoPlaylistRepository(db *models.Database) PlaylistRepository {
	return &mongoPlaylistRepository{newMongoCollection(db.DB, models.PlaylistsCollection)}
}

var playlistDefaultSort = []SortKey{{Field: "followers", Descending: true}}

func (r *mongoPlaylistRepository) Create(ctx context.Context, playlist *models.Playlist) error {
	id, err := r.insert(ctx, playlist)
	if err != nil {
		return err
	}
	playlist.ID = id
	return nil
}

func (r *mongoPlaylistRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Playlist, error) {
	var playlist models.Playlist
	found, err := r.findOne(ctx, bson.M{"_id": id}, &playlist)
	if err != nil || !found {
		return nil, err
	}
	return &playlist, nil
}

func (r *mongoPlaylistRepository) FindByCreatorAndName(ctx context.Context, creator primitive.ObjectID, name string) (*models.Playlist, error) {
	var playlist models.Playlist
	found, err := r.findOne(ctx, bson.M{"creator": creator, "name": name}, &playlist)
	if err != nil || !found {
		return nil, err
	}
	return &playlist, nil
}

func (r *mongoPlaylistRepository) Find(ctx context.Context, q Query) ([]*models.Playlist, int64, error) {
	var owner, member, public, search bson.M
	if !q.Owner.IsZero() {
		owner = bson.M{"creator": q.Owner}
	}
	if !q.Member.IsZero() {
		member = bson.M{"$or": []bson.M{
			{"creator": q.Member},
			{"collaborators": q.Member},
		}}
	}
	if q.PublicOnly {
		public = bson.M{"is_public": true}
	}
	if q.Search != "" {
		search = regexFilter(q.Search, "name", "description")
	}
	return findPage[models.Playlist](ctx, r.mongoCollection, andFilter(owner, member, public, search), q, playlistDefaultSort)
}

func (r *mongoPlaylistRepository) Update(ctx context.Context, playlist *models.Playlist) error {
	return r.set(ctx, playlist.ID, bson.M{
		"name":        playlist.Name,
		"description": playlist.Description,
		"cover_image": playlist.CoverImage,
		"is_public":   playlist.IsPublic,
	})
}

func (r *mongoPlaylistRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.delete(ctx, id)
}
