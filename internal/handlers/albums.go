package handlers

import (
	"github.com/gin-gonic/gin"

	"dotify/internal/handlers/render"
	"dotify/internal/models"
	"dotify/internal/services"
)

// AlbumRequest is the body of create and update album requests. The cover
// arrives as the multipart file "coverImage".
type AlbumRequest struct {
	Title       *string `json:"title" form:"title"`
	Artist      *string `json:"artist" form:"artist"`
	ReleaseDate *string `json:"release_date" form:"release_date"`
	Genre       *string `json:"genre" form:"genre"`
	Description *string `json:"description" form:"description"`
	IsExplicit  *bool   `json:"is_explicit" form:"is_explicit"`
}

// SongIDsRequest carries a batch of song ids
type SongIDsRequest struct {
	Songs []string `json:"songs" form:"songs"`
}

// AlbumHandler handles album requests
type AlbumHandler struct {
	catalog   *services.CatalogService
	query     *services.QueryService
	uploadDir string
}

// NewAlbumHandler creates a new album handler
func NewAlbumHandler(catalog *services.CatalogService, query *services.QueryService, uploadDir string) *AlbumHandler {
	return &AlbumHandler{
		catalog:   catalog,
		query:     query,
		uploadDir: uploadDir,
	}
}

// List handles GET /api/albums
func (h *AlbumHandler) List(c *gin.Context) {
	params, ok := listParams(c, "artist")
	if !ok {
		return
	}
	page, err := h.query.ListAlbums(c.Request.Context(), params)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.List(c, models.AlbumsCollection, page)
}

// NewReleases handles GET /api/albums/new-releases
func (h *AlbumHandler) NewReleases(c *gin.Context) {
	limit, ok := queryInt(c, "limit", services.DefaultChartLimit)
	if !ok {
		return
	}
	albums, err := h.query.NewAlbumReleases(c.Request.Context(), limit)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.OK(c, albums)
}

// Get handles GET /api/albums/:id
func (h *AlbumHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	album, err := h.catalog.GetAlbum(c.Request.Context(), id)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.OK(c, album)
}

// Create handles POST /api/albums
func (h *AlbumHandler) Create(c *gin.Context) {
	var req AlbumRequest
	if !bindBody(c, &req) {
		return
	}
	files := newUploads(h.uploadDir)
	defer files.cleanup()
	cover, err := files.save(c, "coverImage")
	if err != nil {
		badRequest(c, err)
		return
	}

	in := services.AlbumInput{
		Title:       deref(req.Title),
		Genre:       deref(req.Genre),
		Description: deref(req.Description),
		CoverPath:   cover,
	}
	if req.Artist != nil {
		if in.Artist, err = parseID("artist", *req.Artist); err != nil {
			badRequest(c, err)
			return
		}
	}
	if in.ReleaseDate, err = parseDate("release_date", req.ReleaseDate); err != nil {
		badRequest(c, err)
		return
	}
	if req.IsExplicit != nil {
		in.IsExplicit = *req.IsExplicit
	}

	album, err := h.catalog.CreateAlbum(c.Request.Context(), in)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.Created(c, album)
}

// Update handles PUT /api/albums/:id
func (h *AlbumHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req AlbumRequest
	if !bindBody(c, &req) {
		return
	}
	files := newUploads(h.uploadDir)
	defer files.cleanup()
	cover, err := files.save(c, "coverImage")
	if err != nil {
		badRequest(c, err)
		return
	}

	in := services.AlbumUpdate{
		Title:       req.Title,
		Genre:       req.Genre,
		Description: req.Description,
		IsExplicit:  req.IsExplicit,
		CoverPath:   cover,
	}
	if in.ReleaseDate, err = parseDate("release_date", req.ReleaseDate); err != nil {
		badRequest(c, err)
		return
	}

	album, err := h.catalog.UpdateAlbum(c.Request.Context(), id, in)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.OK(c, album)
}

// Delete handles DELETE /api/albums/:id
func (h *AlbumHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteAlbum(c.Request.Context(), id); err != nil {
		render.Error(c, err)
		return
	}
	render.Message(c, "Album removed")
}

// AddSongs handles PUT /api/albums/:id/add-songs
func (h *AlbumHandler) AddSongs(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req SongIDsRequest
	if !bindBody(c, &req) {
		return
	}
	songIDs, err := parseIDs("song", req.Songs)
	if err != nil {
		badRequest(c, err)
		return
	}

	album, err := h.catalog.AddSongsToAlbum(c.Request.Context(), id, songIDs)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.OK(c, album)
}

// RemoveSong handles DELETE /api/albums/:id/remove-songs/:songId
func (h *AlbumHandler) RemoveSong(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	songID, ok := pathID(c, "songId")
	if !ok {
		return
	}

	album, err := h.catalog.RemoveSongFromAlbum(c.Request.Context(), id, songID)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.OK(c, album)
}
