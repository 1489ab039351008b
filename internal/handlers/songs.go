package handlers

import (
	"github.com/gin-gonic/gin"

	"dotify/internal/handlers/render"
	"dotify/internal/models"
	"dotify/internal/services"
)

// SongRequest is the body of create and update song requests. Files arrive
// as the multipart fields "audio" and "cover".
type SongRequest struct {
	Title           *string   `json:"title" form:"title"`
	Artist          *string   `json:"artist" form:"artist"`
	Album           *string   `json:"album" form:"album"`
	Duration        *int      `json:"duration" form:"duration"`
	ReleaseDate     *string   `json:"release_date" form:"release_date"`
	Genres          *[]string `json:"genre" form:"genre"`
	Lyrics          *string   `json:"lyrics" form:"lyrics"`
	IsExplicit      *bool     `json:"is_explicit" form:"is_explicit"`
	FeaturedArtists *[]string `json:"featured_artists" form:"featured_artists"`
	AudioURL        *string   `json:"audio_url" form:"audio_url"`
}

// SongHandler handles song requests
type SongHandler struct {
	catalog   *services.CatalogService
	query     *services.QueryService
	uploadDir string
}

// NewSongHandler creates a new song handler
func NewSongHandler(catalog *services.CatalogService, query *services.QueryService, uploadDir string) *SongHandler {
	return &SongHandler{
		catalog:   catalog,
		query:     query,
		uploadDir: uploadDir,
	}
}

// List handles GET /api/songs
func (h *SongHandler) List(c *gin.Context) {
	params, ok := listParams(c, "artist")
	if !ok {
		return
	}
	page, err := h.query.ListSongs(c.Request.Context(), params)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.List(c, models.SongsCollection, page)
}

// Top handles GET /api/songs/top
func (h *SongHandler) Top(c *gin.Context) {
	limit, ok := queryInt(c, "limit", services.DefaultChartLimit)
	if !ok {
		return
	}
	songs, err := h.query.TopSongs(c.Request.Context(), limit)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.OK(c, songs)
}

// NewReleases handles GET /api/songs/new-releases
func (h *SongHandler) NewReleases(c *gin.Context) {
	limit, ok := queryInt(c, "limit", services.DefaultChartLimit)
	if !ok {
		return
	}
	songs, err := h.query.NewSongReleases(c.Request.Context(), limit)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.OK(c, songs)
}

// Get handles GET /api/songs/:id. Each fetch counts as a play.
func (h *SongHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	song, err := h.catalog.GetSong(c.Request.Context(), id)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.OK(c, song)
}

// Create handles POST /api/songs
func (h *SongHandler) Create(c *gin.Context) {
	var req SongRequest
	if !bindBody(c, &req) {
		return
	}
	files := newUploads(h.uploadDir)
	defer files.cleanup()
	paths, ok := files.saveAll(c, "audio", "cover")
	if !ok {
		return
	}

	in := services.SongInput{
		Title:     deref(req.Title),
		Lyrics:    deref(req.Lyrics),
		AudioURL:  deref(req.AudioURL),
		AudioPath: paths["audio"],
		CoverPath: paths["cover"],
	}
	var err error
	if req.Artist != nil {
		if in.Artist, err = parseID("artist", *req.Artist); err != nil {
			badRequest(c, err)
			return
		}
	}
	if in.Album, err = optionalID("album", req.Album); err != nil {
		badRequest(c, err)
		return
	}
	if in.ReleaseDate, err = parseDate("release_date", req.ReleaseDate); err != nil {
		badRequest(c, err)
		return
	}
	if req.FeaturedArtists != nil {
		if in.FeaturedArtists, err = parseIDs("featured artist", *req.FeaturedArtists); err != nil {
			badRequest(c, err)
			return
		}
	}
	if req.Genres != nil {
		in.Genres = splitList(*req.Genres)
	}
	if req.Duration != nil {
		in.Duration = *req.Duration
	}
	if req.IsExplicit != nil {
		in.IsExplicit = *req.IsExplicit
	}

	song, err := h.catalog.CreateSong(c.Request.Context(), in)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.Created(c, song)
}

// Update handles PUT /api/songs/:id
func (h *SongHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req SongRequest
	if !bindBody(c, &req) {
		return
	}
	files := newUploads(h.uploadDir)
	defer files.cleanup()
	paths, ok := files.saveAll(c, "audio", "cover")
	if !ok {
		return
	}

	in := services.SongUpdate{
		Title:      req.Title,
		Duration:   req.Duration,
		Genres:     optionalList(req.Genres),
		Lyrics:     req.Lyrics,
		IsExplicit: req.IsExplicit,
		AudioPath:  paths["audio"],
		CoverPath:  paths["cover"],
	}
	var err error
	if req.Artist != nil {
		artist, err := parseID("artist", *req.Artist)
		if err != nil {
			badRequest(c, err)
			return
		}
		in.Artist = &artist
	}
	if in.Album, err = optionalID("album", req.Album); err != nil {
		badRequest(c, err)
		return
	}
	if in.ReleaseDate, err = parseDate("release_date", req.ReleaseDate); err != nil {
		badRequest(c, err)
		return
	}
	if req.FeaturedArtists != nil {
		featured, err := parseIDs("featured artist", *req.FeaturedArtists)
		if err != nil {
			badRequest(c, err)
			return
		}
		in.FeaturedArtists = &featured
	}

	song, err := h.catalog.UpdateSong(c.Request.Context(), id, in)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.OK(c, song)
}

// Delete handles DELETE /api/songs/:id
func (h *SongHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteSong(c.Request.Context(), id); err != nil {
		render.Error(c, err)
		return
	}
	render.Message(c, "Song removed")
}
