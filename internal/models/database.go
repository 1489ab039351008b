package models

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	UsersCollection     = "users"
	ArtistsCollection   = "artists"
	AlbumsCollection    = "albums"
	SongsCollection     = "songs"
	PlaylistsCollection = "playlists"
)

// Database represents the database connection
type Database struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// NewDatabase creates a new database connection
func NewDatabase(ctx context.Context, mongoURL, dbName string) (*Database, error) {
	clientOptions := options.Client().
		ApplyURI(mongoURL).
		SetMaxPoolSize(20).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Second).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping the database to verify connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, err
	}

	return &Database{
		Client: client,
		DB:     client.Database(dbName),
	}, nil
}

// Close closes the database connection
func (d *Database) Close(ctx context.Context) error {
	return d.Client.Disconnect(ctx)
}

// Health pings the primary
func (d *Database) Health(ctx context.Context) error {
	return d.Client.Ping(ctx, nil)
}

// collectionIndexes lists the indexes every collection needs. Unique indexes
// back the Conflict checks on create.
func collectionIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		UsersCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("email_1"),
			},
		},
		ArtistsCollection: {
			{
				Keys:    bson.D{{Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("name_1"),
			},
			{
				Keys: bson.D{{Key: "followers", Value: -1}},
			},
		},
		AlbumsCollection: {
			{
				Keys:    bson.D{{Key: "title", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("title_1"),
			},
			{
				Keys: bson.D{{Key: "artist", Value: 1}},
			},
			{
				Keys: bson.D{{Key: "release_date", Value: -1}},
			},
		},
		SongsCollection: {
			{
				Keys: bson.D{{Key: "artist", Value: 1}},
			},
			{
				Keys:    bson.D{{Key: "album", Value: 1}},
				Options: options.Index().SetSparse(true),
			},
			{
				Keys: bson.D{{Key: "plays", Value: -1}},
			},
			{
				Keys: bson.D{{Key: "created_at", Value: -1}},
			},
		},
		PlaylistsCollection: {
			{
				Keys:    bson.D{{Key: "creator", Value: 1}, {Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("creator_1_name_1"),
			},
			{
				Keys: bson.D{{Key: "collaborators", Value: 1}},
			},
		},
	}
}

// CreateIndexes creates necessary indexes for every collection
func (d *Database) CreateIndexes(ctx context.Context) error {
	for name, indexes := range collectionIndexes() {
		collection := d.DB.Collection(name)

		if err := d.handleIndexConflicts(ctx, collection, indexes); err != nil {
			return fmt.Errorf("failed to resolve index conflicts on %s: %w", name, err)
		}

		if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// handleIndexConflicts drops an existing non-unique index that shares a name
// with one of the unique indexes we are about to create
func (d *Database) handleIndexConflicts(ctx context.Context, collection *mongo.Collection, wanted []mongo.IndexModel) error {
	uniqueNames := make(map[string]bool)
	for _, model := range wanted {
		if model.Options == nil || model.Options.Name == nil {
			continue
		}
		if model.Options.Unique != nil && *model.Options.Unique {
			uniqueNames[*model.Options.Name] = true
		}
	}
	if len(uniqueNames) == 0 {
		return nil
	}

	cursor, err := collection.Indexes().List(ctx)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var existingIndexes []bson.M
	if err = cursor.All(ctx, &existingIndexes); err != nil {
		return err
	}

	for _, index := range existingIndexes {
		indexName, ok := index["name"].(string)
		if !ok || !uniqueNames[indexName] {
			continue
		}
		if unique, exists := index["unique"]; exists && unique == true {
			continue
		}
		if _, err := collection.Indexes().DropOne(ctx, indexName); err != nil {
			return err
		}
	}

	return nil
}
