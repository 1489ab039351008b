package services

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Create inputs carry required fields by value. Update inputs use pointers:
// nil leaves a field untouched. File fields hold local temp paths and are
// empty when nothing was uploaded.

type ArtistInput struct {
	Name       string
	Bio        string
	Genres     []string
	IsVerified bool
	ImagePath  string
}

type ArtistUpdate struct {
	Name       *string
	Bio        *string
	Genres     *[]string
	IsVerified *bool
	ImagePath  string
}

type AlbumInput struct {
	Title       string
	Artist      primitive.ObjectID
	ReleaseDate *time.Time
	Genre       string
	Description string
	IsExplicit  bool
	CoverPath   string
}

type AlbumUpdate struct {
	Title       *string
	ReleaseDate *time.Time
	Genre       *string
	Description *string
	IsExplicit  *bool
	CoverPath   string
}

type SongInput struct {
	Title           string
	Artist          primitive.ObjectID
	Album           *primitive.ObjectID
	Duration        int
	ReleaseDate     *time.Time
	Genres          []string
	Lyrics          string
	IsExplicit      bool
	FeaturedArtists []primitive.ObjectID
	// AudioURL is used when the audio is already hosted; otherwise
	// AudioPath must name an uploaded file
	AudioURL  string
	AudioPath string
	CoverPath string
}

type SongUpdate struct {
	Title  *string
	Artist *primitive.ObjectID
	// Album set to the zero id takes the song off its album
	Album           *primitive.ObjectID
	Duration        *int
	ReleaseDate     *time.Time
	Genres          *[]string
	Lyrics          *string
	IsExplicit      *bool
	FeaturedArtists *[]primitive.ObjectID
	AudioPath       string
	CoverPath       string
}

type PlaylistInput struct {
	Name        string
	Description string
	IsPublic    bool
	CoverPath   string
}

type PlaylistUpdate struct {
	Name        *string
	Description *string
	IsPublic    *bool
	CoverPath   string
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type ProfileUpdate struct {
	Name        *string
	Email       *string
	Password    *string
	PicturePath string
}
