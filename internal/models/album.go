package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultAlbumCover = "https://cdn.pixabay.com/photo/2013/07/13/10/32/audio-157431_1280.png"

// Album groups an artist's songs in release order
type Album struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title       string               `bson:"title" json:"title"`
	Artist      primitive.ObjectID   `bson:"artist" json:"artist"`
	ReleaseDate time.Time            `bson:"release_date" json:"release_date"`
	CoverImage  string               `bson:"cover_image" json:"cover_image"`
	Genre       string               `bson:"genre" json:"genre"`
	Description string               `bson:"description" json:"description"`
	IsExplicit  bool                 `bson:"is_explicit" json:"is_explicit"`
	Likes       int64                `bson:"likes" json:"likes"`
	Songs       []primitive.ObjectID `bson:"songs" json:"songs"`
	CreatedAt   time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at" json:"updated_at"`
}

// NewAlbum creates an empty album owned by artist
func NewAlbum(title string, artist primitive.ObjectID) *Album {
	now := time.Now()
	return &Album{
		Title:       title,
		Artist:      artist,
		ReleaseDate: now,
		CoverImage:  DefaultAlbumCover,
		Songs:       make([]primitive.ObjectID, 0),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
