package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"dotify/internal/models"
)

// mongoTransactor wraps multi-document mutations in a MongoDB transaction.
// Transactions need a replica set, so they are opt-in.
type mongoTransactor struct {
	client  *mongo.Client
	enabled bool
}

func (t *mongoTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.enabled || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

// NewMongoStore wires every repository against db
func NewMongoStore(db *models.Database, transactions bool) *Store {
	return &Store{
		Users:     NewMongoUserRepository(db),
		Artists:   NewMongoArtistRepository(db),
		Albums:    NewMongoAlbumRepository(db),
		Songs:     NewMongoSongRepository(db),
		Playlists: NewMongoPlaylistRepository(db),
		Tx:        &mongoTransactor{client: db.Client, enabled: transactions},
	}
}
