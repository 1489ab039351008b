package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"dotify/internal/handlers/render"
	"dotify/internal/services"
)

// Dependencies is everything the router needs to serve the API
type Dependencies struct {
	Accounts  *services.AccountService
	Catalog   *services.CatalogService
	Library   *services.LibraryService
	Playlists *services.PlaylistService
	Query     *services.QueryService

	// DB enables the database statistics endpoint
	DB           *mongo.Database
	HealthChecks map[string]HealthChecker

	// UploadDir receives multipart temp files
	UploadDir string
	// MediaDir, when set, is served under /media for the local uploader
	MediaDir       string
	MaxUploadBytes int64
}

// NewRouter builds the gin engine with every API route registered
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger())
	if deps.MaxUploadBytes > 0 {
		router.MaxMultipartMemory = deps.MaxUploadBytes
		router.Use(LimitBody(deps.MaxUploadBytes))
	}
	router.NoRoute(func(c *gin.Context) {
		render.ErrorMessage(c, http.StatusNotFound, "Not found")
	})

	users := NewUserHandler(deps.Accounts, deps.Library, deps.Query, deps.UploadDir)
	artists := NewArtistHandler(deps.Catalog, deps.Query, deps.UploadDir)
	albums := NewAlbumHandler(deps.Catalog, deps.Query, deps.UploadDir)
	songs := NewSongHandler(deps.Catalog, deps.Query, deps.UploadDir)
	playlists := NewPlaylistHandler(deps.Playlists, deps.Query, deps.UploadDir)
	admin := NewAdminHandler(deps.Catalog, deps.DB, deps.HealthChecks)

	protect := Protect(deps.Accounts)
	adminOnly := []gin.HandlerFunc{protect, RequireAdmin()}

	router.GET("/healthz", admin.Health)
	if deps.MediaDir != "" {
		router.Static("/media", deps.MediaDir)
	}

	api := router.Group("/api")

	userRoutes := api.Group("/users")
	{
		userRoutes.POST("/register", users.Register)
		userRoutes.POST("/login", users.Login)
		userRoutes.GET("", append(adminOnly, users.List)...)

		authed := userRoutes.Group("", protect)
		authed.GET("/profile", users.Profile)
		authed.PUT("/profile", users.UpdateProfile)
		authed.PUT("/like-song/:id", users.LikeSong)
		authed.PUT("/like-album/:id", users.LikeAlbum)
		authed.PUT("/follow-artist/:id", users.FollowArtist)
		authed.PUT("/follow-playlist/:id", users.FollowPlaylist)
	}

	artistRoutes := api.Group("/artists")
	{
		artistRoutes.GET("", artists.List)
		artistRoutes.GET("/top", artists.Top)
		artistRoutes.GET("/:id", artists.Get)
		artistRoutes.GET("/:id/top-songs", artists.TopSongs)

		managed := artistRoutes.Group("", adminOnly...)
		managed.POST("", artists.Create)
		managed.PUT("/:id", artists.Update)
		managed.DELETE("/:id", artists.Delete)
	}

	albumRoutes := api.Group("/albums")
	{
		albumRoutes.GET("", albums.List)
		albumRoutes.GET("/new-releases", albums.NewReleases)
		albumRoutes.GET("/:id", albums.Get)

		managed := albumRoutes.Group("", adminOnly...)
		managed.POST("", albums.Create)
		managed.PUT("/:id", albums.Update)
		managed.DELETE("/:id", albums.Delete)
		managed.PUT("/:id/add-songs", albums.AddSongs)
		managed.DELETE("/:id/remove-songs/:songId", albums.RemoveSong)
	}

	songRoutes := api.Group("/songs")
	{
		songRoutes.GET("", songs.List)
		songRoutes.GET("/top", songs.Top)
		songRoutes.GET("/new-releases", songs.NewReleases)
		songRoutes.GET("/:id", songs.Get)

		managed := songRoutes.Group("", adminOnly...)
		managed.POST("", songs.Create)
		managed.PUT("/:id", songs.Update)
		managed.DELETE("/:id", songs.Delete)
	}

	playlistRoutes := api.Group("/playlists")
	{
		playlistRoutes.GET("", playlists.List)
		playlistRoutes.GET("/featured", playlists.Featured)
		playlistRoutes.GET("/:id", OptionalAuth(deps.Accounts), playlists.Get)

		authed := playlistRoutes.Group("", protect)
		authed.GET("/user/me", playlists.Mine)
		authed.POST("", playlists.Create)
		authed.PUT("/:id", playlists.Update)
		authed.DELETE("/:id", playlists.Delete)
		authed.PUT("/:id/add-songs", playlists.AddSongs)
		authed.PUT("/:id/remove-song/:songId", playlists.RemoveSong)
		authed.PUT("/:id/add-collaborator", playlists.AddCollaborator)
		authed.PUT("/:id/remove-collaborator", playlists.RemoveCollaborator)
	}

	adminRoutes := api.Group("/admin", adminOnly...)
	{
		adminRoutes.GET("/db-stats", admin.GetDatabaseStats)
		adminRoutes.POST("/reconcile", admin.Reconcile)
	}

	return router
}
