package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dotify/internal/auth"
	"dotify/internal/media"
	"dotify/internal/models"
	"dotify/internal/testutil"
)

func TestAccountService_Register(t *testing.T) {
	env := newTestEnv(t)

	session, err := env.accounts.Register(env.ctx, RegisterInput{
		Name:     "Fan",
		Email:    " Fan@Example.com ",
		Password: testutil.TestPassword,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "fan@example.com", session.User.Email)
	assert.False(t, session.User.IsAdmin)
	assert.Equal(t, models.DefaultProfilePicture, session.User.ProfilePicture)
	assert.NotEqual(t, testutil.TestPassword, session.User.PasswordHash)
	assert.True(t, auth.CheckPassword(session.User.PasswordHash, testutil.TestPassword))

	_, err = env.accounts.Register(env.ctx, RegisterInput{Name: "Again", Email: "FAN@example.com", Password: testutil.TestPassword})
	assertKind(t, err, KindConflict)
}

func TestAccountService_Register_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{name: "missing name", in: RegisterInput{Email: "a@example.com", Password: testutil.TestPassword}},
		{name: "missing email", in: RegisterInput{Name: "A", Password: testutil.TestPassword}},
		{name: "invalid email", in: RegisterInput{Name: "A", Email: "not-an-email", Password: testutil.TestPassword}},
		{name: "short password", in: RegisterInput{Name: "A", Email: "a@example.com", Password: "12345"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.accounts.Register(env.ctx, tt.in)
			assertKind(t, err, KindBadRequest)
		})
	}
}

func TestAccountService_LoginAndAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	registered, err := env.accounts.Register(env.ctx, RegisterInput{Name: "Fan", Email: "fan@example.com", Password: testutil.TestPassword})
	require.NoError(t, err)

	session, err := env.accounts.Login(env.ctx, "FAN@example.com", testutil.TestPassword)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, session.User.ID)

	user, err := env.accounts.Authenticate(env.ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, user.ID)

	_, err = env.accounts.Login(env.ctx, "fan@example.com", "wrong-password")
	assertKind(t, err, KindUnauthorized)
	_, err = env.accounts.Login(env.ctx, "nobody@example.com", testutil.TestPassword)
	assertKind(t, err, KindUnauthorized)

	_, err = env.accounts.Authenticate(env.ctx, "")
	assertKind(t, err, KindUnauthorized)
	_, err = env.accounts.Authenticate(env.ctx, "not.a.token")
	assertKind(t, err, KindUnauthorized)
}

func TestAccountService_Authenticate_DeletedUser(t *testing.T) {
	env := newTestEnv(t)
	tokens := auth.NewTokenManager("test-secret-with-enough-length", time.Hour)
	token, err := tokens.Issue(primitive.NewObjectID())
	require.NoError(t, err)

	_, err = env.accounts.Authenticate(env.ctx, token)
	assertKind(t, err, KindUnauthorized)
}

func TestAccountService_UpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	fan := env.User("Fan", "fan@example.com")
	env.User("Other", "other@example.com")

	name := "Renamed"
	password := "new-password"
	testutil.ExpectUpload(env.uploader, media.FolderUsers, "https://cdn.example.com/me.png", nil)
	user, err := env.accounts.UpdateProfile(env.ctx, fan.ID, ProfileUpdate{
		Name:        &name,
		Password:    &password,
		PicturePath: "/tmp/me.png",
	})
	require.NoError(t, err)
	assert.Equal(t, name, user.Name)
	assert.Equal(t, "https://cdn.example.com/me.png", user.ProfilePicture)
	env.uploader.AssertExpectations(t)

	_, err = env.accounts.Login(env.ctx, "fan@example.com", password)
	assert.NoError(t, err)

	taken := "other@example.com"
	_, err = env.accounts.UpdateProfile(env.ctx, fan.ID, ProfileUpdate{Email: &taken})
	assertKind(t, err, KindConflict)

	short := "123"
	_, err = env.accounts.UpdateProfile(env.ctx, fan.ID, ProfileUpdate{Password: &short})
	assertKind(t, err, KindBadRequest)
}

func TestAccountService_UpdateProfile_KeepsLibrary(t *testing.T) {
	env := newTestEnv(t)
	arlo := env.Artist("Arlo")
	fan := env.User("Fan", "fan@example.com")
	_, err := env.library.ToggleFollowArtist(env.ctx, fan.ID, arlo.ID)
	require.NoError(t, err)

	name := "Renamed"
	user, err := env.accounts.UpdateProfile(env.ctx, fan.ID, ProfileUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, ids(arlo.ID), user.FollowedArtists)
}

func TestAccountService_SetAdmin(t *testing.T) {
	env := newTestEnv(t)
	fan := env.User("Fan", "fan@example.com")

	user, err := env.accounts.SetAdmin(env.ctx, "FAN@example.com", true)
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)

	stored, err := env.accounts.Profile(env.ctx, fan.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsAdmin)

	_, err = env.accounts.SetAdmin(env.ctx, "nobody@example.com", true)
	assertKind(t, err, KindNotFound)
}
