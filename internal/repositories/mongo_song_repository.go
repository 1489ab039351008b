package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dotify/internal/models"
)

// mongoSongRepository implements SongRepository using MongoDB
type mongoSongRepository struct {
	mongoCollection
}

// NewMongoSongRepository creates a new MongoDB-backed song repository
func NewMongoSongRepository(db *models.Database) SongRepository {
	return &mongoSongRepository{newMongoCollection(db.DB, models.SongsCollection)}
}

var songDefaultSort = []SortKey{{Field: "created_at", Descending: true}}

func (r *mongoSongRepository) Create(ctx context.Context, song *models.Song) error {
	id, err := r.insert(ctx, song)
	if err != nil {
		return err
	}
	song.ID = id
	return nil
}

func (r *mongoSongRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Song, error) {
	var song models.Song
	found, err := r.findOne(ctx, bson.M{"_id": id}, &song)
	if err != nil || !found {
		return nil, err
	}
	return &song, nil
}

// FindMany returns the songs that exist among ids, in no particular order
func (r *mongoSongRepository) FindMany(ctx context.Context, ids []primitive.ObjectID) ([]*models.Song, error) {
	if len(ids) == 0 {
		return []*models.Song{}, nil
	}
	songs, _, err := findPage[models.Song](ctx, r.mongoCollection, bson.M{"_id": bson.M{"$in": ids}}, Query{}, songDefaultSort)
	return songs, err
}

func (r *mongoSongRepository) Find(ctx context.Context, q Query) ([]*models.Song, int64, error) {
	var genre, owner, album, search bson.M
	if q.Genre != "" {
		genre = bson.M{"genre": q.Genre}
	}
	if !q.Owner.IsZero() {
		owner = bson.M{"artist": q.Owner}
	}
	if !q.Album.IsZero() {
		album = bson.M{"album": q.Album}
	}
	if q.Search != "" {
		search = regexFilter(q.Search, "title", "genre", "lyrics")
	}
	return findPage[models.Song](ctx, r.mongoCollection, andFilter(genre, owner, album, search), q, songDefaultSort)
}

func (r *mongoSongRepository) Update(ctx context.Context, song *models.Song) error {
	fields := bson.M{
		"title":            song.Title,
		"artist":           song.Artist,
		"duration":         song.Duration,
		"audio_url":        song.AudioURL,
		"cover_image":      song.CoverImage,
		"release_date":     song.ReleaseDate,
		"genre":            song.Genres,
		"lyrics":           song.Lyrics,
		"is_explicit":      song.IsExplicit,
		"featured_artists": song.FeaturedArtists,
		"updated_at":       time.Now(),
	}
	update := bson.M{"$set": fields}
	if song.HasAlbum() {
		fields["album"] = *song.Album
	} else {
		update["$unset"] = bson.M{"album": ""}
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": song.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update song: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoSongRepository) AssignAlbum(ctx context.Context, ids []primitive.ObjectID, album *primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	update := bson.M{"$unset": bson.M{"album": ""}, "$set": bson.M{"updated_at": time.Now()}}
	if album != nil && !album.IsZero() {
		update = bson.M{"$set": bson.M{"album": *album, "updated_at": time.Now()}}
	}

	result, err := r.collection.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, update)
	if err != nil {
		return 0, fmt.Errorf("failed to assign album: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *mongoSongRepository) UnsetAlbum(ctx context.Context, album primitive.ObjectID) (int64, error) {
	result, err := r.collection.UpdateMany(ctx,
		bson.M{"album": album},
		bson.M{"$unset": bson.M{"album": ""}, "$set": bson.M{"updated_at": time.Now()}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to unlink songs from album: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *mongoSongRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.delete(ctx, id)
}
