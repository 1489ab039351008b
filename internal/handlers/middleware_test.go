package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dotify/internal/models"
	"dotify/internal/repositories"
)

func TestRequestID(t *testing.T) {
	env := newAPIEnv(t, nil)

	first := env.api.GetJSON("/healthz")
	second := env.api.GetJSON("/healthz")
	assert.NotEmpty(t, first.Header().Get(RequestIDHeader))
	assert.NotEqual(t, first.Header().Get(RequestIDHeader), second.Header().Get(RequestIDHeader),
		"each request gets its own id")
}

func TestRequestID_ReusesIncoming(t *testing.T) {
	router := NewRouter(Dependencies{})
	recorder := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, "/api/nowhere", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "req-123")
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "req-123", recorder.Header().Get(RequestIDHeader))
}

func TestProtect(t *testing.T) {
	env := newAPIEnv(t, nil)

	env.api.AssertErrorResponse(env.api.GetJSON("/api/users/profile"), http.StatusUnauthorized, "no token")
	env.api.AssertErrorResponse(env.api.As("not-a-token").GetJSON("/api/users/profile"), http.StatusUnauthorized, "token failed")

	ghost := models.NewUser("Ghost", "ghost@example.com", "")
	ghost.ID = primitive.NewObjectID()
	env.api.AssertErrorResponse(env.as(ghost).GetJSON("/api/users/profile"), http.StatusUnauthorized, "user not found")

	user := env.User("Fan", "fan@example.com")
	var profile models.User
	env.api.AssertJSONResponse(env.as(user).GetJSON("/api/users/profile"), http.StatusOK, &profile)
	assert.Equal(t, user.ID, profile.ID)
}

func TestRequireAdmin(t *testing.T) {
	env := newAPIEnv(t, nil)
	user := env.User("Fan", "fan@example.com")

	env.api.AssertErrorResponse(env.as(user).PostJSON("/api/artists", map[string]string{"name": "Arlo"}), http.StatusForbidden, "admin")
	env.api.AssertErrorResponse(env.api.PostJSON("/api/artists", map[string]string{"name": "Arlo"}), http.StatusUnauthorized, "no token")
	env.api.AssertErrorResponse(env.as(user).GetJSON("/api/users"), http.StatusForbidden, "admin")

	artists, _, err := env.Store.Artists.Find(env.ctx, repositories.Query{})
	require.NoError(t, err)
	assert.Empty(t, artists, "rejected requests never reach the services")
}

func TestOptionalAuth_PrivatePlaylist(t *testing.T) {
	env := newAPIEnv(t, nil)
	owner := env.User("Owner", "owner@example.com")
	playlist := env.Playlist("Secret Mix", owner.ID, false)
	url := "/api/playlists/" + playlist.ID.Hex()

	env.api.AssertErrorResponse(env.api.GetJSON(url), http.StatusNotFound, "not found")
	env.api.AssertErrorResponse(env.api.As("garbage").GetJSON(url), http.StatusNotFound, "not found")

	var got models.Playlist
	env.api.AssertJSONResponse(env.as(owner).GetJSON(url), http.StatusOK, &got)
	assert.Equal(t, playlist.ID, got.ID)
}
