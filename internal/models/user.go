package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultProfilePicture = "https://cdn.pixabay.com/photo/2017/07/18/23/23/user-2517433_1280.png"

// User is a listener account. PasswordHash is never serialized to JSON.
type User struct {
	ID                primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name              string               `bson:"name" json:"name"`
	Email             string               `bson:"email" json:"email"`
	PasswordHash      string               `bson:"password" json:"-"`
	ProfilePicture    string               `bson:"profile_picture" json:"profile_picture"`
	LikedSongs        []primitive.ObjectID `bson:"liked_songs" json:"liked_songs"`
	LikedAlbums       []primitive.ObjectID `bson:"liked_albums" json:"liked_albums"`
	FollowedArtists   []primitive.ObjectID `bson:"followed_artists" json:"followed_artists"`
	FollowedPlaylists []primitive.ObjectID `bson:"followed_playlists" json:"followed_playlists"`
	IsAdmin           bool                 `bson:"is_admin" json:"is_admin"`
	CreatedAt         time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time            `bson:"updated_at" json:"updated_at"`
}

// NewUser creates a non-admin user with empty library sets
func NewUser(name, email, passwordHash string) *User {
	now := time.Now()
	return &User{
		Name:              name,
		Email:             email,
		PasswordHash:      passwordHash,
		ProfilePicture:    DefaultProfilePicture,
		LikedSongs:        make([]primitive.ObjectID, 0),
		LikedAlbums:       make([]primitive.ObjectID, 0),
		FollowedArtists:   make([]primitive.ObjectID, 0),
		FollowedPlaylists: make([]primitive.ObjectID, 0),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
