package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultArtistImage = "https://cdn.pixabay.com/photo/2015/04/29/09/33/drums-745077_1280.jpg"

// Artist owns albums and songs. Albums and Songs mirror the owner reference
// stored on each album and song.
type Artist struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name       string               `bson:"name" json:"name"`
	Bio        string               `bson:"bio" json:"bio"`
	Image      string               `bson:"image" json:"image"`
	Genres     []string             `bson:"genres" json:"genres"`
	Followers  int64                `bson:"followers" json:"followers"`
	Albums     []primitive.ObjectID `bson:"albums" json:"albums"`
	Songs      []primitive.ObjectID `bson:"songs" json:"songs"`
	IsVerified bool                 `bson:"is_verified" json:"is_verified"`
	CreatedAt  time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time            `bson:"updated_at" json:"updated_at"`
}

// NewArtist creates an artist with no albums, songs or followers
func NewArtist(name, bio string, genres []string) *Artist {
	now := time.Now()
	if genres == nil {
		genres = make([]string, 0)
	}
	return &Artist{
		Name:      name,
		Bio:       bio,
		Image:     DefaultArtistImage,
		Genres:    genres,
		Albums:    make([]primitive.ObjectID, 0),
		Songs:     make([]primitive.ObjectID, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
