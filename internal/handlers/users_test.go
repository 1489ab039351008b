package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dotify/internal/media"
	"dotify/internal/models"
	"dotify/internal/services"
	"dotify/internal/testutil"
)

func TestUserHandler_RegisterAndLogin(t *testing.T) {
	env := newAPIEnv(t, nil)

	var session services.Session
	env.api.AssertJSONResponse(env.api.PostJSON("/api/users/register", map[string]string{
		"name":     "Fan",
		"email":    "  Fan@Example.com ",
		"password": testutil.TestPassword,
	}), http.StatusCreated, &session)
	require.NotNil(t, session.User)
	assert.Equal(t, "fan@example.com", session.User.Email)
	assert.False(t, session.User.IsAdmin)
	assert.NotEmpty(t, session.Token)
	assert.NotContains(t, env.api.PostJSON("/api/users/login", map[string]string{
		"email": "fan@example.com", "password": testutil.TestPassword,
	}).Body.String(), "$2a$", "hashes never leave the server")

	// The issued token works straight away
	var profile models.User
	env.api.AssertJSONResponse(env.api.As(session.Token).GetJSON("/api/users/profile"), http.StatusOK, &profile)
	assert.Equal(t, session.User.ID, profile.ID)

	var login services.Session
	env.api.AssertJSONResponse(env.api.PostJSON("/api/users/login", map[string]string{
		"email": "FAN@example.com", "password": testutil.TestPassword,
	}), http.StatusOK, &login)
	assert.Equal(t, session.User.ID, login.User.ID)

	env.api.AssertErrorResponse(env.api.PostJSON("/api/users/login", map[string]string{
		"email": "fan@example.com", "password": "wrong-password",
	}), http.StatusUnauthorized, "Invalid email or password")
	env.api.AssertErrorResponse(env.api.PostJSON("/api/users/login", map[string]string{
		"email": "nobody@example.com", "password": testutil.TestPassword,
	}), http.StatusUnauthorized, "Invalid email or password")
}

func TestUserHandler_Register_Invalid(t *testing.T) {
	env := newAPIEnv(t, nil)
	env.User("Taken", "taken@example.com")

	tests := []struct {
		name    string
		body    map[string]string
		status  int
		message string
	}{
		{"missing name", map[string]string{"email": "a@example.com", "password": testutil.TestPassword}, http.StatusBadRequest, "Name is required"},
		{"bad email", map[string]string{"name": "A", "email": "not-an-email", "password": testutil.TestPassword}, http.StatusBadRequest, "Email is invalid"},
		{"short password", map[string]string{"name": "A", "email": "a@example.com", "password": "123"}, http.StatusBadRequest, "at least 6 characters"},
		{"taken email", map[string]string{"name": "A", "email": "taken@example.com", "password": testutil.TestPassword}, http.StatusConflict, "User already exists"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.api.AssertErrorResponse(env.api.PostJSON("/api/users/register", tt.body), tt.status, tt.message)
		})
	}
}

func TestUserHandler_UpdateProfile(t *testing.T) {
	env := newAPIEnv(t, nil)
	user := env.User("Fan", "fan@example.com")
	env.User("Other", "other@example.com")
	api := env.as(user)

	var updated models.User
	env.api.AssertJSONResponse(api.PutJSON("/api/users/profile", map[string]string{
		"name":     "Renamed",
		"password": "brand-new-secret",
	}), http.StatusOK, &updated)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "fan@example.com", updated.Email)

	var session services.Session
	env.api.AssertJSONResponse(env.api.PostJSON("/api/users/login", map[string]string{
		"email": "fan@example.com", "password": "brand-new-secret",
	}), http.StatusOK, &session)

	api.AssertErrorResponse(api.PutJSON("/api/users/profile", map[string]string{"email": "other@example.com"}), http.StatusConflict, "already in use")
	api.AssertErrorResponse(api.PutJSON("/api/users/profile", map[string]string{"name": "  "}), http.StatusBadRequest, "Name cannot be empty")

	env.uploader.On("Upload", mock.Anything, mock.AnythingOfType("string"), media.FolderUsers).
		Return("https://media.example.com/users/fan.png", nil).Once()
	recorder := api.SendMultipart(http.MethodPut, "/api/users/profile", nil,
		testutil.FileUpload{Field: "profilePicture", Filename: "fan.png", Content: []byte("png")},
	)
	env.api.AssertJSONResponse(recorder, http.StatusOK, &updated)
	assert.Equal(t, "https://media.example.com/users/fan.png", updated.ProfilePicture)
	assert.Equal(t, "Renamed", updated.Name)
	env.uploader.AssertExpectations(t)
	env.assertNoTempFiles()
}

func TestUserHandler_Toggles(t *testing.T) {
	env := newAPIEnv(t, nil)
	user := env.User("Fan", "fan@example.com")
	arlo := env.Artist("Arlo")
	album := env.Album("First", arlo.ID)
	song := env.Song(testutil.NewSongBuilder(arlo.ID).Build())
	api := env.as(user)

	type toggleResponse struct {
		Added bool                 `json:"added"`
		IDs   []primitive.ObjectID `json:"ids"`
		Count int64                `json:"count"`
	}

	tests := []struct {
		name   string
		path   string
		target primitive.ObjectID
	}{
		{"like song", "like-song", song.ID},
		{"like album", "like-album", album.ID},
		{"follow artist", "follow-artist", arlo.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := fmt.Sprintf("/api/users/%s/%s", tt.path, tt.target.Hex())

			var on toggleResponse
			env.api.AssertJSONResponse(api.PutJSON(url, nil), http.StatusOK, &on)
			assert.True(t, on.Added)
			assert.Equal(t, []primitive.ObjectID{tt.target}, on.IDs)
			assert.Equal(t, int64(1), on.Count)

			var off toggleResponse
			env.api.AssertJSONResponse(api.PutJSON(url, nil), http.StatusOK, &off)
			assert.False(t, off.Added)
			assert.Empty(t, off.IDs)
			assert.Equal(t, int64(0), off.Count)

			api.AssertErrorResponse(api.PutJSON(fmt.Sprintf("/api/users/%s/%s", tt.path, primitive.NewObjectID().Hex()), nil),
				http.StatusNotFound, "not found")
		})
	}

	env.api.AssertErrorResponse(env.api.PutJSON("/api/users/like-song/"+song.ID.Hex(), nil), http.StatusUnauthorized, "no token")
}

func TestUserHandler_List(t *testing.T) {
	env := newAPIEnv(t, nil)
	admin := env.admin()
	for i := 0; i < 3; i++ {
		env.User(fmt.Sprintf("User %d", i), fmt.Sprintf("user%d@example.com", i))
	}

	var page struct {
		Users []models.User `json:"users"`
		Total int64         `json:"total"`
	}
	env.api.AssertJSONResponse(admin.GetJSON("/api/users?limit=2"), http.StatusOK, &page)
	assert.Len(t, page.Users, 2)
	assert.Equal(t, int64(4), page.Total, "the admin is listed too")
}
