package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dotify/internal/models"
)

// mongoArtistRepository implements ArtistRepository using MongoDB
type mongoArtistRepository struct {
	mongoCollection
}

// NewMongoArtistRepository creates a new MongoDB-backed artist repository
func NewMongoArtistRepository(db *models.Database) ArtistRepository {
	return &mongoArtistRepository{newMongoCollection(db.DB, models.ArtistsCollection)}
}

var artistDefaultSort = []SortKey{{Field: "followers"}}

func (r *mongoArtistRepository) Create(ctx context.Context, artist *models.Artist) error {
	id, err := r.insert(ctx, artist)
	if err != nil {
		return err
	}
	artist.ID = id
	return nil
}

func (r *mongoArtistRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Artist, error) {
	var artist models.Artist
	found, err := r.findOne(ctx, bson.M{"_id": id}, &artist)
	if err != nil || !found {
		return nil, err
	}
	return &artist, nil
}

func (r *mongoArtistRepository) FindByName(ctx context.Context, name string) (*models.Artist, error) {
	var artist models.Artist
	found, err := r.findOne(ctx, bson.M{"name": name}, &artist)
	if err != nil || !found {
		return nil, err
	}
	return &artist, nil
}

func (r *mongoArtistRepository) Find(ctx context.Context, q Query) ([]*models.Artist, int64, error) {
	var genre, search bson.M
	if q.Genre != "" {
		genre = bson.M{"genres": q.Genre}
	}
	if q.Search != "" {
		search = regexFilter(q.Search, "name", "bio")
	}
	return findPage[models.Artist](ctx, r.mongoCollection, andFilter(genre, search), q, artistDefaultSort)
}

func (r *mongoArtistRepository) Update(ctx context.Context, artist *models.Artist) error {
	return r.set(ctx, artist.ID, bson.M{
		"name":        artist.Name,
		"bio":         artist.Bio,
		"image":       artist.Image,
		"genres":      artist.Genres,
		"is_verified": artist.IsVerified,
	})
}

func (r *mongoArtistRepository) ReplaceRelations(ctx context.Context, id primitive.ObjectID, songs, albums []primitive.ObjectID) error {
	return r.set(ctx, id, bson.M{
		"songs":  songs,
		"albums": albums,
	})
}

func (r *mongoArtistRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.delete(ctx, id)
}
