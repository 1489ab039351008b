package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dotify/internal/auth"
	"dotify/internal/cache"
	"dotify/internal/testutil"
)

// testEnv wires every service over one in-memory store and cache
type testEnv struct {
	*testutil.Seeder
	ctx       context.Context
	uploader  *testutil.MockUploader
	catalog   *CatalogService
	library   *LibraryService
	playlists *PlaylistService
	accounts  *AccountService
	query     *QueryService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	seeder := testutil.NewSeeder(t)
	uploader := &testutil.MockUploader{}
	query := NewQueryService(seeder.Store, cache.NewMemoryCache(1000), time.Minute)
	tokens := auth.NewTokenManager("test-secret-with-enough-length", time.Hour)

	return &testEnv{
		Seeder:    seeder,
		ctx:       context.Background(),
		uploader:  uploader,
		catalog:   NewCatalogService(seeder.Store, uploader, query),
		library:   NewLibraryService(seeder.Store, query),
		playlists: NewPlaylistService(seeder.Store, uploader, query),
		accounts:  NewAccountService(seeder.Store, uploader, tokens),
		query:     query,
	}
}

func assertKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, KindOf(err), "unexpected error: %v", err)
}

func ids(items ...primitive.ObjectID) []primitive.ObjectID {
	return items
}
