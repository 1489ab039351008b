package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dotify/internal/models"
)

// mongoAlbumRepository implements AlbumRepository using MongoDB
type mongoAlbumRepository struct {
	mongoCollection
}

// NewMongoAlbumRepository creates a new MongoDB-backed album repository
func NewMongoAlbumRepository(db *models.Database) AlbumRepository {
	return &mongoAlbumRepository{newMongoCollection(db.DB, models.AlbumsCollection)}
}

var albumDefaultSort = []SortKey{{Field: "release_date", Descending: true}}

func (r *mongoAlbumRepository) Create(ctx context.Context, album *models.Album) error {
	id, err := r.insert(ctx, album)
	if err != nil {
		return err
	}
	album.ID = id
	return nil
}

func (r *mongoAlbumRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Album, error) {
	var album models.Album
	found, err := r.findOne(ctx, bson.M{"_id": id}, &album)
	if err != nil || !found {
		return nil, err
	}
	return &album, nil
}

func (r *mongoAlbumRepository) FindByTitle(ctx context.Context, title string) (*models.Album, error) {
	var album models.Album
	found, err := r.findOne(ctx, bson.M{"title": title}, &album)
	if err != nil || !found {
		return nil, err
	}
	return &album, nil
}

func (r *mongoAlbumRepository) Find(ctx context.Context, q Query) ([]*models.Album, int64, error) {
	var genre, owner, search bson.M
	if q.Genre != "" {
		genre = bson.M{"genre": q.Genre}
	}
	if !q.Owner.IsZero() {
		owner = bson.M{"artist": q.Owner}
	}
	if q.Search != "" {
		search = regexFilter(q.Search, "title", "genre", "description")
	}
	return findPage[models.Album](ctx, r.mongoCollection, andFilter(genre, owner, search), q, albumDefaultSort)
}

func (r *mongoAlbumRepository) Update(ctx context.Context, album *models.Album) error {
	return r.set(ctx, album.ID, bson.M{
		"title":        album.Title,
		"release_date": album.ReleaseDate,
		"cover_image":  album.CoverImage,
		"genre":        album.Genre,
		"description":  album.Description,
		"is_explicit":  album.IsExplicit,
	})
}

func (r *mongoAlbumRepository) ReplaceSongs(ctx context.Context, id primitive.ObjectID, songs []primitive.ObjectID) error {
	return r.set(ctx, id, bson.M{"songs": songs})
}

func (r *mongoAlbumRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.delete(ctx, id)
}
