package media

import (
	"context"
	"log/slog"
	"os"
)

// Folder names under the configured prefix
const (
	FolderArtists   = "artists"
	FolderAlbums    = "albums"
	FolderSongs     = "songs"
	FolderPlaylists = "playlists"
	FolderUsers     = "users"
)

// Uploader stores a local file with a remote media host and returns its
// public URL. The local file is removed whether or not the upload succeeds.
type Uploader interface {
	Upload(ctx context.Context, localPath, folder string) (string, error)
}

// UploadError represents a failed upload
type UploadError struct {
	Provider string
	Message  string
	Err      error
}

func (e *UploadError) Error() string {
	msg := e.Provider + " upload failed"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += " - " + e.Err.Error()
	}
	return msg
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// removeTemp deletes the uploaded temp file, logging rather than failing
func removeTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove upload temp file", "path", path, "error", err)
	}
}
