package handlers

import (
	"github.com/gin-gonic/gin"

	"dotify/internal/handlers/render"
	"dotify/internal/models"
	"dotify/internal/services"
)

// ArtistRequest is the body of create and update artist requests. The image
// arrives as the multipart file "image".
type ArtistRequest struct {
	Name       *string   `json:"name" form:"name"`
	Bio        *string   `json:"bio" form:"bio"`
	Genres     *[]string `json:"genres" form:"genres"`
	IsVerified *bool     `json:"is_verified" form:"is_verified"`
}

// ArtistHandler handles artist requests
type ArtistHandler struct {
	catalog   *services.CatalogService
	query     *services.QueryService
	uploadDir string
}

// NewArtistHandler creates a new artist handler
func NewArtistHandler(catalog *services.CatalogService, query *services.QueryService, uploadDir string) *ArtistHandler {
	return &ArtistHandler{
		catalog:   catalog,
		query:     query,
		uploadDir: uploadDir,
	}
}

// List handles GET /api/artists
func (h *ArtistHandler) List(c *gin.Context) {
	params, ok := listParams(c, "")
	if !ok {
		return
	}
	page, err := h.query.ListArtists(c.Request.Context(), params)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.List(c, models.ArtistsCollection, page)
}

// Top handles GET /api/artists/top
func (h *ArtistHandler) Top(c *gin.Context) {
	limit, ok := queryInt(c, "limit", services.DefaultChartLimit)
	if !ok {
		return
	}
	artists, err := h.query.TopArtists(c.Request.Context(), limit)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.OK(c, artists)
}

// Get handles GET /api/artists/:id
func (h *ArtistHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	artist, err := h.catalog.GetArtist(c.Request.Context(), id)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.OK(c, artist)
}

// TopSongs handles GET /api/artists/:id/top-songs
func (h *ArtistHandler) TopSongs(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", services.DefaultChartLimit)
	if !ok {
		return
	}
	songs, err := h.query.ArtistTopSongs(c.Request.Context(), id, limit)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.OK(c, songs)
}

// Create handles POST /api/artists
func (h *ArtistHandler) Create(c *gin.Context) {
	var req ArtistRequest
	if !bindBody(c, &req) {
		return
	}
	files := newUploads(h.uploadDir)
	defer files.cleanup()
	image, err := files.save(c, "image")
	if err != nil {
		badRequest(c, err)
		return
	}

	in := services.ArtistInput{
		Name:      deref(req.Name),
		Bio:       deref(req.Bio),
		ImagePath: image,
	}
	if req.Genres != nil {
		in.Genres = splitList(*req.Genres)
	}
	if req.IsVerified != nil {
		in.IsVerified = *req.IsVerified
	}

	artist, err := h.catalog.CreateArtist(c.Request.Context(), in)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.Created(c, artist)
}

// Update handles PUT /api/artists/:id
func (h *ArtistHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ArtistRequest
	if !bindBody(c, &req) {
		return
	}
	files := newUploads(h.uploadDir)
	defer files.cleanup()
	image, err := files.save(c, "image")
	if err != nil {
		badRequest(c, err)
		return
	}

	artist, err := h.catalog.UpdateArtist(c.Request.Context(), id, services.ArtistUpdate{
		Name:       req.Name,
		Bio:        req.Bio,
		Genres:     optionalList(req.Genres),
		IsVerified: req.IsVerified,
		ImagePath:  image,
	})
	if err != nil {
		render.Error(c, err)
		return
	}
	render.OK(c, artist)
}

// Delete handles DELETE /api/artists/:id
func (h *ArtistHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteArtist(c.Request.Context(), id); err != nil {
		render.Error(c, err)
		return
	}
	render.Message(c, "Artist removed")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
