package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Playlist is an ordered, duplicate-free list of songs curated by its
// creator and collaborators
type Playlist struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name          string               `bson:"name" json:"name"`
	Description   string               `bson:"description" json:"description"`
	Creator       primitive.ObjectID   `bson:"creator" json:"creator"`
	CoverImage    string               `bson:"cover_image" json:"cover_image"`
	IsPublic      bool                 `bson:"is_public" json:"is_public"`
	Followers     int64                `bson:"followers" json:"followers"`
	Songs         []primitive.ObjectID `bson:"songs" json:"songs"`
	Collaborators []primitive.ObjectID `bson:"collaborators" json:"collaborators"`
	CreatedAt     time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time            `bson:"updated_at" json:"updated_at"`
}

// NewPlaylist creates an empty playlist owned by creator
func NewPlaylist(name, description string, creator primitive.ObjectID) *Playlist {
	now := time.Now()
	return &Playlist{
		Name:          name,
		Description:   description,
		Creator:       creator,
		Songs:         make([]primitive.ObjectID, 0),
		Collaborators: make([]primitive.ObjectID, 0),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsCreator reports whether userID owns the playlist
func (p *Playlist) IsCreator(userID primitive.ObjectID) bool {
	return p.Creator == userID
}

// CanEdit reports whether userID may change the playlist's songs
func (p *Playlist) CanEdit(userID primitive.ObjectID) bool {
	return p.IsCreator(userID) || ContainsID(p.Collaborators, userID)
}

// CanView reports whether userID may read the playlist. A zero userID is an
// anonymous caller.
func (p *Playlist) CanView(userID primitive.ObjectID) bool {
	if p.IsPublic {
		return true
	}
	return !userID.IsZero() && p.CanEdit(userID)
}
