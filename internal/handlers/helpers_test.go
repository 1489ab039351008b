package handlers

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dotify/internal/auth"
	"dotify/internal/cache"
	"dotify/internal/models"
	"dotify/internal/services"
	"dotify/internal/testutil"
)

// apiEnv serves the full router over an in-memory store
type apiEnv struct {
	*testutil.Seeder
	t         *testing.T
	ctx       context.Context
	api       *testutil.HTTPTestHelper
	uploader  *testutil.MockUploader
	tokens    *auth.TokenManager
	uploadDir string
}

func newAPIEnv(t *testing.T, checks map[string]HealthChecker) *apiEnv {
	t.Helper()
	seeder := testutil.NewSeeder(t)
	uploader := &testutil.MockUploader{}
	tokens := auth.NewTokenManager("test-secret-with-enough-length", time.Hour)
	pages := cache.NewMemoryCache(1000)
	query := services.NewQueryService(seeder.Store, pages, time.Minute)
	uploadDir := t.TempDir()

	if checks == nil {
		checks = map[string]HealthChecker{"cache": pages}
	}

	router := NewRouter(Dependencies{
		Accounts:       services.NewAccountService(seeder.Store, uploader, tokens),
		Catalog:        services.NewCatalogService(seeder.Store, uploader, query),
		Library:        services.NewLibraryService(seeder.Store, query),
		Playlists:      services.NewPlaylistService(seeder.Store, uploader, query),
		Query:          query,
		HealthChecks:   checks,
		UploadDir:      uploadDir,
		MaxUploadBytes: 1 << 20,
	})

	api := testutil.NewHTTPTestHelper(t)
	api.SetRouter(router)

	return &apiEnv{
		Seeder:    seeder,
		t:         t,
		ctx:       context.Background(),
		api:       api,
		uploader:  uploader,
		tokens:    tokens,
		uploadDir: uploadDir,
	}
}

// as returns a helper authenticated as user
func (e *apiEnv) as(user *models.User) *testutil.HTTPTestHelper {
	token, err := e.tokens.Issue(user.ID)
	require.NoError(e.t, err)
	return e.api.As(token)
}

// admin seeds an administrator and returns a helper authenticated as them
func (e *apiEnv) admin() *testutil.HTTPTestHelper {
	user := e.User("Admin", "admin@example.com")
	require.NoError(e.t, e.Store.Users.SetAdmin(e.ctx, user.ID, true))
	return e.as(user)
}

// assertNoTempFiles checks that every multipart temp file was removed
func (e *apiEnv) assertNoTempFiles() {
	entries, err := os.ReadDir(e.uploadDir)
	require.NoError(e.t, err)
	require.Empty(e.t, entries, "upload temp files left behind")
}

type artistPage struct {
	Artists []models.Artist `json:"artists"`
	Page    int             `json:"page"`
	Pages   int             `json:"pages"`
	Total   int64           `json:"total"`
}

type songPage struct {
	Songs []models.Song `json:"songs"`
	Page  int           `json:"page"`
	Pages int           `json:"pages"`
	Total int64         `json:"total"`
}

type playlistPage struct {
	Playlists []models.Playlist `json:"playlists"`
	Page      int               `json:"page"`
	Pages     int               `json:"pages"`
	Total     int64             `json:"total"`
}
