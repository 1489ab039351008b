package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dotify/internal/handlers/render"
	"dotify/internal/models"
	"dotify/internal/services"
)

// PlaylistRequest is the body of create and update playlist requests. The
// cover arrives as the multipart file "coverImage".
type PlaylistRequest struct {
	Name        *string `json:"name" form:"name"`
	Description *string `json:"description" form:"description"`
	IsPublic    *bool   `json:"is_public" form:"is_public"`
}

// CollaboratorRequest names the user to add or remove
type CollaboratorRequest struct {
	Collaborator string `json:"collaborator" form:"collaborator"`
}

// PlaylistHandler handles playlist requests
type PlaylistHandler struct {
	playlists *services.PlaylistService
	query     *services.QueryService
	uploadDir string
}

// NewPlaylistHandler creates a new playlist handler
func NewPlaylistHandler(playlists *services.PlaylistService, query *services.QueryService, uploadDir string) *PlaylistHandler {
	return &PlaylistHandler{
		playlists: playlists,
		query:     query,
		uploadDir: uploadDir,
	}
}

// List handles GET /api/playlists. Only public playlists are listed.
func (h *PlaylistHandler) List(c *gin.Context) {
	params, ok := listParams(c, "creator")
	if !ok {
		return
	}
	page, err := h.query.ListPlaylists(c.Request.Context(), params)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.List(c, models.PlaylistsCollection, page)
}

// Featured handles GET /api/playlists/featured
func (h *PlaylistHandler) Featured(c *gin.Context) {
	limit, ok := queryInt(c, "limit", services.DefaultChartLimit)
	if !ok {
		return
	}
	playlists, err := h.query.FeaturedPlaylists(c.Request.Context(), limit)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.OK(c, playlists)
}

// Mine handles GET /api/playlists/user/me
func (h *PlaylistHandler) Mine(c *gin.Context) {
	params, ok := listParams(c, "")
	if !ok {
		return
	}
	page, err := h.query.UserPlaylists(c.Request.Context(), viewerID(c), params)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.List(c, models.PlaylistsCollection, page)
}

// Get handles GET /api/playlists/:id
func (h *PlaylistHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	playlist, err := h.playlists.Get(c.Request.Context(), id, viewerID(c))
	if err != nil {
		render.Error(c, err)
		return
	}
	render.OK(c, playlist)
}

// Create handles POST /api/playlists
func (h *PlaylistHandler) Create(c *gin.Context) {
	var req PlaylistRequest
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

	in := services.PlaylistInput{
		Name:        deref(req.Name),
		Description: deref(req.Description),
		CoverPath:   cover,
	}
	if req.IsPublic != nil {
		in.IsPublic = *req.IsPublic
	}

	playlist, err := h.playlists.Create(c.Request.Context(), viewerID(c), in)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.Created(c, playlist)
}

// Update handles PUT /api/playlists/:id
func (h *PlaylistHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req PlaylistRequest
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

	playlist, err := h.playlists.Update(c.Request.Context(), id, viewerID(c), services.PlaylistUpdate{
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		CoverPath:   cover,
	})
	if err != nil {
		render.Error(c, err)
		return
	}
	render.OK(c, playlist)
}

// Delete handles DELETE /api/playlists/:id
func (h *PlaylistHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.playlists.Delete(c.Request.Context(), id, viewerID(c)); err != nil {
		render.Error(c, err)
		return
	}
	render.Message(c, "Playlist removed")
}

// AddSongs handles PUT /api/playlists/:id/add-songs
func (h *PlaylistHandler) AddSongs(c *gin.Context) {
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

	playlist, err := h.playlists.AddSongs(c.Request.Context(), id, viewerID(c), songIDs)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.OK(c, playlist)
}

// RemoveSong handles PUT /api/playlists/:id/remove-song/:songId
func (h *PlaylistHandler) RemoveSong(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	songID, ok := pathID(c, "songId")
	if !ok {
		return
	}

	playlist, err := h.playlists.RemoveSong(c.Request.Context(), id, viewerID(c), songID)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.OK(c, playlist)
}

// AddCollaborator handles PUT /api/playlists/:id/add-collaborator
func (h *PlaylistHandler) AddCollaborator(c *gin.Context) {
	h.changeCollaborator(c, h.playlists.AddCollaborator)
}

// RemoveCollaborator handles PUT /api/playlists/:id/remove-collaborator
func (h *PlaylistHandler) RemoveCollaborator(c *gin.Context) {
	h.changeCollaborator(c, h.playlists.RemoveCollaborator)
}

func (h *PlaylistHandler) changeCollaborator(c *gin.Context, change func(ctx context.Context, id, requester, collaborator primitive.ObjectID) (*models.Playlist, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req CollaboratorRequest
	if !bindBody(c, &req) {
		return
	}
	if req.Collaborator == "" {
		render.ErrorMessage(c, http.StatusBadRequest, "Collaborator is required")
		return
	}
	collaborator, err := parseID("collaborator", req.Collaborator)
	if err != nil {
		badRequest(c, err)
		return
	}

	playlist, err := change(c.Request.Context(), id, viewerID(c), collaborator)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.OK(c, playlist)
}
