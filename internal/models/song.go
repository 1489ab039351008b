package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultSongCover = "https://cdn.pixabay.com/photo/2015/04/29/09/33/drums-745077_1280.jpg"

// Song represents a track owned by one artist and optionally placed on an album
type Song struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	Title  string              `bson:"title" json:"title"`
	Artist primitive.ObjectID  `bson:"artist" json:"artist"`
	Album  *primitive.ObjectID `bson:"album,omitempty" json:"album,omitempty"`

	Duration    int       `bson:"duration" json:"duration"` // seconds
	AudioURL    string    `bson:"audio_url" json:"audio_url"`
	CoverImage  string    `bson:"cover_image" json:"cover_image"`
	ReleaseDate time.Time `bson:"release_date" json:"release_date"`
	Genres      []string  `bson:"genre" json:"genre"`
	Lyrics      string    `bson:"lyrics,omitempty" json:"lyrics,omitempty"`
	IsExplicit  bool      `bson:"is_explicit" json:"is_explicit"`

	// Counters are only ever changed through atomic store increments
	Plays int64 `bson:"plays" json:"plays"`
	Likes int64 `bson:"likes" json:"likes"`

	FeaturedArtists []primitive.ObjectID `bson:"featured_artists" json:"featured_artists"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// NewSong creates a new Song with default values
func NewSong(title string, artist primitive.ObjectID, audioURL string) *Song {
	now := time.Now()
	return &Song{
		Title:           title,
		Artist:          artist,
		AudioURL:        audioURL,
		CoverImage:      DefaultSongCover,
		ReleaseDate:     now,
		Genres:          make([]string, 0),
		FeaturedArtists: make([]primitive.ObjectID, 0),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// HasAlbum reports whether the song is placed on an album
func (s *Song) HasAlbum() bool {
	return s.Album != nil && !s.Album.IsZero()
}

// InAlbum reports whether the song is placed on the given album
func (s *Song) InAlbum(albumID primitive.ObjectID) bool {
	return s.HasAlbum() && *s.Album == albumID
}
