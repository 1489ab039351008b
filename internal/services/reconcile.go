package services

import (
	"context"
	"errors"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"dotify/internal/models"
	"dotify/internal/repositories"
)

// ReconcileReport counts the repairs made by Reconcile
type ReconcileReport struct {
	OrphanSongsDeleted  int `json:"orphan_songs_deleted"`
	OrphanAlbumsDeleted int `json:"orphan_albums_deleted"`
	AlbumRefsCleared    int `json:"album_refs_cleared"`
	ArtistsRepaired     int `json:"artists_repaired"`
	AlbumsRepaired      int `json:"albums_repaired"`
	DanglingRefsPulled  int `json:"dangling_refs_pulled"`
	CountersRepaired    int `json:"counters_repaired"`
}

// Changed reports whether any repair was made
func (r ReconcileReport) Changed() bool {
	return r != ReconcileReport{}
}

type idSet map[primitive.ObjectID]bool

func idsOf[T any](docs []*T, id func(*T) primitive.ObjectID) idSet {
	set := make(idSet, len(docs))
	for _, doc := range docs {
		set[id(doc)] = true
	}
	return set
}

// Reconcile rebuilds back-references from the forward references that own
// them. Songs and albums whose artist is gone are deleted, song references
// to missing albums are cleared, ids of missing documents are pulled from
// every membership set, and like and follower counters are recounted from
// the user sets they mirror.
func (s *CatalogService) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{}

	artists, _, err := s.store.Artists.Find(ctx, repositories.Query{})
	if err != nil {
		return nil, storeError(err, "Artist")
	}
	artistIDs := idsOf(artists, func(a *models.Artist) primitive.ObjectID { return a.ID })

	albums, _, err := s.store.Albums.Find(ctx, repositories.Query{})
	if err != nil {
		return nil, storeError(err, "Album")
	}
	for _, album := range albums {
		if artistIDs[album.Artist] {
			continue
		}
		if err := s.removeAlbum(ctx, album, false); err != nil {
			return nil, err
		}
		report.OrphanAlbumsDeleted++
	}

	songs, _, err := s.store.Songs.Find(ctx, repositories.Query{})
	if err != nil {
		return nil, storeError(err, "Song")
	}
	for _, song := range songs {
		if artistIDs[song.Artist] {
			continue
		}
		if err := s.removeSong(ctx, song, false); err != nil {
			return nil, err
		}
		report.OrphanSongsDeleted++
	}

	// Reload after deletions so the rebuild sees the surviving documents
	if albums, _, err = s.store.Albums.Find(ctx, repositories.Query{}); err != nil {
		return nil, storeError(err, "Album")
	}
	if songs, _, err = s.store.Songs.Find(ctx, repositories.Query{}); err != nil {
		return nil, storeError(err, "Song")
	}
	albumIDs := idsOf(albums, func(a *models.Album) primitive.ObjectID { return a.ID })
	songIDs := idsOf(songs, func(song *models.Song) primitive.ObjectID { return song.ID })

	var strayAlbumRefs []primitive.ObjectID
	songsByArtist := make(map[primitive.ObjectID][]primitive.ObjectID)
	songsByAlbum := make(map[primitive.ObjectID][]primitive.ObjectID)
	for _, song := range songs {
		songsByArtist[song.Artist] = append(songsByArtist[song.Artist], song.ID)
		if !song.HasAlbum() {
			continue
		}
		if !albumIDs[*song.Album] {
			strayAlbumRefs = append(strayAlbumRefs, song.ID)
			continue
		}
		songsByAlbum[*song.Album] = append(songsByAlbum[*song.Album], song.ID)
	}
	if len(strayAlbumRefs) > 0 {
		n, err := s.store.Songs.AssignAlbum(ctx, strayAlbumRefs, nil)
		if err != nil {
			return nil, storeError(err, "Song")
		}
		report.AlbumRefsCleared = int(n)
	}

	albumsByArtist := make(map[primitive.ObjectID][]primitive.ObjectID)
	for _, album := range albums {
		albumsByArtist[album.Artist] = append(albumsByArtist[album.Artist], album.ID)
	}

	for _, artist := range artists {
		wantSongs := mergeOrder(artist.Songs, songsByArtist[artist.ID])
		wantAlbums := mergeOrder(artist.Albums, albumsByArtist[artist.ID])
		if sameIDs(artist.Songs, wantSongs) && sameIDs(artist.Albums, wantAlbums) {
			continue
		}
		if err := s.store.Artists.ReplaceRelations(ctx, artist.ID, wantSongs, wantAlbums); err != nil {
			return nil, storeError(err, "Artist")
		}
		report.ArtistsRepaired++
	}

	for _, album := range albums {
		want := mergeOrder(album.Songs, songsByAlbum[album.ID])
		if sameIDs(album.Songs, want) {
			continue
		}
		if err := s.store.Albums.ReplaceSongs(ctx, album.ID, want); err != nil {
			return nil, storeError(err, "Album")
		}
		report.AlbumsRepaired++
	}

	pulled, err := s.pullDangling(ctx, songIDs, albumIDs, artistIDs)
	if err != nil {
		return nil, err
	}
	report.DanglingRefsPulled = pulled

	recounted, err := s.recountCounters(ctx, artists, albums, songs)
	if err != nil {
		return nil, err
	}
	report.CountersRepaired = recounted

	if report.Changed() {
		s.invalidate(ctx, allCollections...)
	}
	slog.Info("Reconcile finished",
		"orphan_songs", report.OrphanSongsDeleted,
		"orphan_albums", report.OrphanAlbumsDeleted,
		"album_refs", report.AlbumRefsCleared,
		"artists", report.ArtistsRepaired,
		"albums", report.AlbumsRepaired,
		"dangling", report.DanglingRefsPulled,
		"counters", report.CountersRepaired)
	return report, nil
}

// pullDangling removes ids of missing documents from playlists, users and
// songs' featured artists
func (s *CatalogService) pullDangling(ctx context.Context, songs, albums, artists idSet) (int, error) {
	playlists, _, err := s.store.Playlists.Find(ctx, repositories.Query{})
	if err != nil {
		return 0, storeError(err, "Playlist")
	}
	playlistIDs := idsOf(playlists, func(p *models.Playlist) primitive.ObjectID { return p.ID })

	users, _, err := s.store.Users.Find(ctx, repositories.Query{})
	if err != nil {
		return 0, storeError(err, "User")
	}
	allSongs, _, err := s.store.Songs.Find(ctx, repositories.Query{})
	if err != nil {
		return 0, storeError(err, "Song")
	}

	type dangling struct {
		field repositories.Field
		id    primitive.ObjectID
	}
	targets := map[repositories.Field]repositories.Relations{
		repositories.FieldSongs:             s.store.Playlists,
		repositories.FieldLikedSongs:        s.store.Users,
		repositories.FieldLikedAlbums:       s.store.Users,
		repositories.FieldFollowedArtists:   s.store.Users,
		repositories.FieldFollowedPlaylists: s.store.Users,
		repositories.FieldFeaturedArtists:   s.store.Songs,
	}
	seen := make(map[dangling]bool)
	var todo []dangling
	collect := func(field repositories.Field, ids []primitive.ObjectID, live idSet) {
		for _, id := range ids {
			d := dangling{field: field, id: id}
			if live[id] || seen[d] {
				continue
			}
			seen[d] = true
			todo = append(todo, d)
		}
	}

	for _, playlist := range playlists {
		collect(repositories.FieldSongs, playlist.Songs, songs)
	}
	for _, user := range users {
		collect(repositories.FieldLikedSongs, user.LikedSongs, songs)
		collect(repositories.FieldLikedAlbums, user.LikedAlbums, albums)
		collect(repositories.FieldFollowedArtists, user.FollowedArtists, artists)
		collect(repositories.FieldFollowedPlaylists, user.FollowedPlaylists, playlistIDs)
	}
	for _, song := range allSongs {
		collect(repositories.FieldFeaturedArtists, song.FeaturedArtists, artists)
	}

	pulled := 0
	for _, d := range todo {
		n, err := targets[d.field].RemoveMemberFromAll(ctx, d.field, d.id)
		if err != nil {
			return pulled, storeError(err, "Reference")
		}
		pulled += int(n)
	}
	return pulled, nil
}

// recountCounters sets every like and follower counter to the number of
// users whose set holds the document
func (s *CatalogService) recountCounters(ctx context.Context, artists []*models.Artist, albums []*models.Album, songs []*models.Song) (int, error) {
	users, _, err := s.store.Users.Find(ctx, repositories.Query{})
	if err != nil {
		return 0, storeError(err, "User")
	}
	playlists, _, err := s.store.Playlists.Find(ctx, repositories.Query{})
	if err != nil {
		return 0, storeError(err, "Playlist")
	}

	type counts map[primitive.ObjectID]int64
	likedSongs, likedAlbums := counts{}, counts{}
	followedArtists, followedPlaylists := counts{}, counts{}
	for _, user := range users {
		for _, id := range user.LikedSongs {
			likedSongs[id]++
		}
		for _, id := range user.LikedAlbums {
			likedAlbums[id]++
		}
		for _, id := range user.FollowedArtists {
			followedArtists[id]++
		}
		for _, id := range user.FollowedPlaylists {
			followedPlaylists[id]++
		}
	}

	type drift struct {
		target     repositories.Relations
		entity     string
		field      repositories.Field
		id         primitive.ObjectID
		have, want int64
	}
	var fixes []drift
	for _, song := range songs {
		if song.Likes != likedSongs[song.ID] {
			fixes = append(fixes, drift{s.store.Songs, "Song", repositories.FieldLikes, song.ID, song.Likes, likedSongs[song.ID]})
		}
	}
	for _, album := range albums {
		if album.Likes != likedAlbums[album.ID] {
			fixes = append(fixes, drift{s.store.Albums, "Album", repositories.FieldLikes, album.ID, album.Likes, likedAlbums[album.ID]})
		}
	}
	for _, artist := range artists {
		if artist.Followers != followedArtists[artist.ID] {
			fixes = append(fixes, drift{s.store.Artists, "Artist", repositories.FieldFollowers, artist.ID, artist.Followers, followedArtists[artist.ID]})
		}
	}
	for _, playlist := range playlists {
		if playlist.Followers != followedPlaylists[playlist.ID] {
			fixes = append(fixes, drift{s.store.Playlists, "Playlist", repositories.FieldFollowers, playlist.ID, playlist.Followers, followedPlaylists[playlist.ID]})
		}
	}

	repaired := 0
	for _, fix := range fixes {
		err := fix.target.AdjustCounter(ctx, fix.id, fix.field, fix.want-fix.have)
		if errors.Is(err, repositories.ErrNotFound) {
			continue
		}
		if err != nil {
			return repaired, storeError(err, fix.entity)
		}
		repaired++
	}
	return repaired, nil
}

// mergeOrder keeps the ids of current that are in owned, in their current
// order, then appends owned ids that were missing
func mergeOrder(current, owned []primitive.ObjectID) []primitive.ObjectID {
	want := make(idSet, len(owned))
	for _, id := range owned {
		want[id] = true
	}
	out := make([]primitive.ObjectID, 0, len(owned))
	placed := make(idSet, len(owned))
	for _, id := range current {
		if want[id] && !placed[id] {
			out = append(out, id)
			placed[id] = true
		}
	}
	for _, id := range owned {
		if !placed[id] {
			out = append(out, id)
			placed[id] = true
		}
	}
	return out
}

func sameIDs(a, b []primitive.ObjectID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
