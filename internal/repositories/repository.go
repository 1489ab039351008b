package repositories

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"dotify/internal/models"
)

var (
	// ErrNotFound is returned by mutations that target a missing document.
	// Lookups return nil, nil instead.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when a unique index rejects a write
	ErrDuplicate = errors.New("duplicate key")
)

// Field names a membership set or counter stored on a document
type Field string

const (
	FieldSongs             Field = "songs"
	FieldAlbums            Field = "albums"
	FieldCollaborators     Field = "collaborators"
	FieldFeaturedArtists   Field = "featured_artists"
	FieldLikedSongs        Field = "liked_songs"
	FieldLikedAlbums       Field = "liked_albums"
	FieldFollowedArtists   Field = "followed_artists"
	FieldFollowedPlaylists Field = "followed_playlists"

	FieldFollowers Field = "followers"
	FieldLikes     Field = "likes"
	FieldPlays     Field = "plays"
)

// SortKey orders query results by a document field
type SortKey struct {
	Field      string
	Descending bool
}

// Query filters a collection. Zero values mean "no constraint". Results are
// always tie-broken by ascending id so paging is stable.
type Query struct {
	Genre string
	// Owner is the artist for albums and songs, the creator for playlists
	Owner primitive.ObjectID
	// Album restricts songs to one album
	Album primitive.ObjectID
	// Member restricts playlists to those created by or shared with a user
	Member     primitive.ObjectID
	Search     string
	PublicOnly bool

	Sort  []SortKey
	Skip  int64
	Limit int64 // 0 returns every match
}

// Relations are the atomic membership and counter primitives every
// collection supports. Each call is a single conditional write, so a
// membership change and the boolean it reports can never disagree.
type Relations interface {
	// AddMember appends member to field unless already present. Reports
	// whether the set changed.
	AddMember(ctx context.Context, id primitive.ObjectID, field Field, member primitive.ObjectID) (bool, error)
	// AddMembers appends all members, or none if any is already present
	AddMembers(ctx context.Context, id primitive.ObjectID, field Field, members []primitive.ObjectID) (bool, error)
	// RemoveMember pulls member from field. Reports whether it was present.
	RemoveMember(ctx context.Context, id primitive.ObjectID, field Field, member primitive.ObjectID) (bool, error)
	// RemoveMemberFromAll pulls member from field on every document
	RemoveMemberFromAll(ctx context.Context, field Field, member primitive.ObjectID) (int64, error)
	// AdjustCounter adds delta to a counter, clamping the result at zero
	AdjustCounter(ctx context.Context, id primitive.ObjectID, field Field, delta int64) error
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Relations
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Find(ctx context.Context, q Query) ([]*models.User, int64, error)
	// Update writes profile fields only; library sets are untouched
	Update(ctx context.Context, user *models.User) error
	SetAdmin(ctx context.Context, id primitive.ObjectID, admin bool) error
}

// ArtistRepository defines the interface for artist data operations
type ArtistRepository interface {
	Relations
	Create(ctx context.Context, artist *models.Artist) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Artist, error)
	FindByName(ctx context.Context, name string) (*models.Artist, error)
	Find(ctx context.Context, q Query) ([]*models.Artist, int64, error)
	// Update writes descriptive fields only; songs, albums and followers are untouched
	Update(ctx context.Context, artist *models.Artist) error
	// ReplaceRelations overwrites the songs and albums lists
	ReplaceRelations(ctx context.Context, id primitive.ObjectID, songs, albums []primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// AlbumRepository defines the interface for album data operations
type AlbumRepository interface {
	Relations
	Create(ctx context.Context, album *models.Album) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Album, error)
	FindByTitle(ctx context.Context, title string) (*models.Album, error)
	Find(ctx context.Context, q Query) ([]*models.Album, int64, error)
	// Update writes descriptive fields only; songs and likes are untouched
	Update(ctx context.Context, album *models.Album) error
	// ReplaceSongs overwrites the songs list
	ReplaceSongs(ctx context.Context, id primitive.ObjectID, songs []primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// SongRepository defines the interface for song data operations
type SongRepository interface {
	Relations
	Create(ctx context.Context, song *models.Song) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Song, error)
	FindMany(ctx context.Context, ids []primitive.ObjectID) ([]*models.Song, error)
	Find(ctx context.Context, q Query) ([]*models.Song, int64, error)
	// Update writes every field except the plays and likes counters
	Update(ctx context.Context, song *models.Song) error
	// AssignAlbum points every listed song at album, or clears the
	// reference when album is nil
	AssignAlbum(ctx context.Context, ids []primitive.ObjectID, album *primitive.ObjectID) (int64, error)
	// UnsetAlbum clears the album reference on every song that points at album
	UnsetAlbum(ctx context.Context, album primitive.ObjectID) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// PlaylistRepository defines the interface for playlist data operations
type PlaylistRepository interface {
	Relations
	Create(ctx context.Context, playlist *models.Playlist) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Playlist, error)
	FindByCreatorAndName(ctx context.Context, creator primitive.ObjectID, name string) (*models.Playlist, error)
	Find(ctx context.Context, q Query) ([]*models.Playlist, int64, error)
	// Update writes descriptive fields only; songs, collaborators and followers are untouched
	Update(ctx context.Context, playlist *models.Playlist) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Transactor runs fn so that every repository call made with the context it
// receives commits or aborts together, when the backing store supports it
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store bundles the repositories that make up the entity store
type Store struct {
	Users     UserRepository
	Artists   ArtistRepository
	Albums    AlbumRepository
	Songs     SongRepository
	Playlists PlaylistRepository
	Tx        Transactor
}
