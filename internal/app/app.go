package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"dotify/internal/auth"
	"dotify/internal/cache"
	"dotify/internal/config"
	"dotify/internal/handlers"
	"dotify/internal/media"
	"dotify/internal/models"
	"dotify/internal/repositories"
	"dotify/internal/services"
)

// App holds the wired services shared by the server and the admin CLI
type App struct {
	Config *config.Config

	DB       *models.Database // nil for the memory store
	Store    *repositories.Store
	Cache    cache.Cache
	Uploader media.Uploader

	Accounts  *services.AccountService
	Catalog   *services.CatalogService
	Library   *services.LibraryService
	Playlists *services.PlaylistService
	Query     *services.QueryService

	// mediaDir is served under /media when uploads stay on local disk
	mediaDir string
}

// New connects the store and cache named by cfg and builds every service
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	switch cfg.StoreDriver {
	case config.StoreMongo:
		db, err := models.NewDatabase(ctx, cfg.MongodbURL, cfg.MongodbDatabase)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := db.CreateIndexes(ctx); err != nil {
			_ = db.Close(ctx)
			return nil, fmt.Errorf("create indexes: %w", err)
		}
		a.DB = db
		a.Store = repositories.NewMongoStore(db, cfg.MongodbTransactions)
	default:
		slog.Warn("Using the in-memory store; data is lost on restart")
		a.Store = repositories.NewMemoryStore()
	}

	pages, err := cache.New(cfg.ValkeyURL, cfg.CacheL1Items)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("initialize cache: %w", err)
	}
	a.Cache = pages

	switch cfg.MediaConfig.Provider {
	case config.MediaCloudinary:
		a.Uploader = media.NewCloudinaryUploader(cfg.CloudName, cfg.APIKey, cfg.APISecret, cfg.FolderPrefix)
	default:
		a.mediaDir = filepath.Join(cfg.UploadDir, "media")
		a.Uploader = media.NewLocalUploader(a.mediaDir, cfg.BaseURL+"/media")
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	a.Query = services.NewQueryService(a.Store, a.Cache, cfg.CatalogCacheTTL)
	a.Accounts = services.NewAccountService(a.Store, a.Uploader, tokens)
	a.Catalog = services.NewCatalogService(a.Store, a.Uploader, a.Query)
	a.Library = services.NewLibraryService(a.Store, a.Query)
	a.Playlists = services.NewPlaylistService(a.Store, a.Uploader, a.Query)

	return a, nil
}

// Dependencies describes the HTTP API wiring over the app's services
func (a *App) Dependencies() *handlers.Dependencies {
	checks := map[string]handlers.HealthChecker{"cache": a.Cache}
	deps := &handlers.Dependencies{
		Accounts:       a.Accounts,
		Catalog:        a.Catalog,
		Library:        a.Library,
		Playlists:      a.Playlists,
		Query:          a.Query,
		HealthChecks:   checks,
		UploadDir:      filepath.Join(a.Config.UploadDir, "tmp"),
		MediaDir:       a.mediaDir,
		MaxUploadBytes: a.Config.MaxUploadMB << 20,
	}
	if a.DB != nil {
		deps.DB = a.DB.DB
		checks["database"] = a.DB
	}
	return deps
}

// Close releases the cache and database connections
func (a *App) Close(ctx context.Context) {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			slog.Warn("Failed to close cache", "error", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(ctx); err != nil {
			slog.Warn("Failed to close database", "error", err)
		}
	}
}
