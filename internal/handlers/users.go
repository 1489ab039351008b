package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dotify/internal/handlers/render"
	"dotify/internal/models"
	"dotify/internal/services"
)

// RegisterRequest is the body of POST /api/users/register
type RegisterRequest struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// LoginRequest is the body of POST /api/users/login
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// ProfileRequest is the body of PUT /api/users/profile. The picture arrives
// as the multipart file "profilePicture".
type ProfileRequest struct {
	Name     *string `json:"name" form:"name"`
	Email    *string `json:"email" form:"email"`
	Password *string `json:"password" form:"password"`
}

// UserHandler handles account and library requests
type UserHandler struct {
	accounts  *services.AccountService
	library   *services.LibraryService
	query     *services.QueryService
	uploadDir string
}

// NewUserHandler creates a new user handler
func NewUserHandler(accounts *services.AccountService, library *services.LibraryService, query *services.QueryService, uploadDir string) *UserHandler {
	return &UserHandler{
		accounts:  accounts,
		library:   library,
		query:     query,
		uploadDir: uploadDir,
	}
}

// Register handles POST /api/users/register
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindBody(c, &req) {
		return
	}
	session, err := h.accounts.Register(c.Request.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		render.Error(c, err)
		return
	}
	render.Created(c, session)
}

// Login handles POST /api/users/login
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindBody(c, &req) {
		return
	}
	session, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.OK(c, session)
}

// Profile handles GET /api/users/profile
func (h *UserHandler) Profile(c *gin.Context) {
	user, err := h.accounts.Profile(c.Request.Context(), viewerID(c))
	if err != nil {
		render.Error(c, err)
		return
	}
	render.OK(c, user)
}

// UpdateProfile handles PUT /api/users/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req ProfileRequest
	if !bindBody(c, &req) {
		return
	}
	files := newUploads(h.uploadDir)
	defer files.cleanup()
	picture, err := files.save(c, "profilePicture")
	if err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.accounts.UpdateProfile(c.Request.Context(), viewerID(c), services.ProfileUpdate{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		PicturePath: picture,
	})
	if err != nil {
		render.Error(c, err)
		return
	}
	render.OK(c, user)
}

// List handles GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	params, ok := listParams(c, "")
	if !ok {
		return
	}
	page, err := h.query.ListUsers(c.Request.Context(), params)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.List(c, models.UsersCollection, page)
}

// LikeSong handles PUT /api/users/like-song/:id
func (h *UserHandler) LikeSong(c *gin.Context) {
	h.toggle(c, h.library.ToggleLikeSong)
}

// LikeAlbum handles PUT /api/users/like-album/:id
func (h *UserHandler) LikeAlbum(c *gin.Context) {
	h.toggle(c, h.library.ToggleLikeAlbum)
}

// FollowArtist handles PUT /api/users/follow-artist/:id
func (h *UserHandler) FollowArtist(c *gin.Context) {
	h.toggle(c, h.library.ToggleFollowArtist)
}

// FollowPlaylist handles PUT /api/users/follow-playlist/:id
func (h *UserHandler) FollowPlaylist(c *gin.Context) {
	h.toggle(c, h.library.ToggleFollowPlaylist)
}

func (h *UserHandler) toggle(c *gin.Context, fn func(ctx context.Context, userID, targetID primitive.ObjectID) (*services.ToggleResult, error)) {
	target, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := fn(c.Request.Context(), viewerID(c), target)
	if err != nil {
		render.Error(c, err)
		return
	}
	render.OK(c, result)
}
