package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dotify/internal/cache"
	"dotify/internal/services"
	"dotify/internal/testutil"
)

func TestAdminHandler_Health(t *testing.T) {
	env := newAPIEnv(t, nil)

	var body HealthResponse
	env.api.AssertJSONResponse(env.api.GetJSON("/healthz"), http.StatusOK, &body)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, map[string]string{"cache": "ok"}, body.Checks)
}

func TestAdminHandler_Health_Degraded(t *testing.T) {
	valkey := &testutil.MockCache{}
	valkey.On("Health", mock.Anything).Return(errors.New("dial tcp: connection refused"))
	env := newAPIEnv(t, map[string]HealthChecker{
		"cache": valkey,
		"store": cache.NewMemoryCache(10),
	})

	var body HealthResponse
	env.api.AssertJSONResponse(env.api.GetJSON("/healthz"), http.StatusServiceUnavailable, &body)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "unavailable", body.Checks["cache"])
	assert.Equal(t, "ok", body.Checks["store"])
	valkey.AssertExpectations(t)
}

func TestAdminHandler_Reconcile(t *testing.T) {
	env := newAPIEnv(t, nil)
	admin := env.admin()
	arlo := env.Artist("Arlo")
	kept := env.Song(testutil.NewSongBuilder(arlo.ID).Build())

	// A song whose artist no longer exists
	orphan := testutil.NewSongBuilder(primitive.NewObjectID()).WithTitle("Orphan").Build()
	require.NoError(t, env.Store.Songs.Create(env.ctx, orphan))

	var report services.ReconcileReport
	env.api.AssertJSONResponse(admin.PostJSON("/api/admin/reconcile", nil), http.StatusOK, &report)
	assert.Equal(t, 1, report.OrphanSongsDeleted)

	stored, err := env.Store.Songs.FindByID(env.ctx, orphan.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
	stored, err = env.Store.Songs.FindByID(env.ctx, kept.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored)

	env.api.AssertJSONResponse(admin.PostJSON("/api/admin/reconcile", nil), http.StatusOK, &report)
	assert.False(t, report.Changed(), "a second pass finds nothing to repair")
}

func TestAdminHandler_DatabaseStats_MemoryStore(t *testing.T) {
	env := newAPIEnv(t, nil)
	admin := env.admin()

	admin.AssertErrorResponse(admin.GetJSON("/api/admin/db-stats"), http.StatusNotFound, "require the mongo store")
	env.api.AssertErrorResponse(env.api.GetJSON("/api/admin/db-stats"), http.StatusUnauthorized, "no token")
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		in   interface{}
		want float64
	}{
		{int32(7), 7},
		{int64(1 << 20), 1 << 20},
		{2.5, 2.5},
		{"n/a", 0},
		{nil, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, toFloat(tt.in))
	}
}
