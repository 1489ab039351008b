package media

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestCloudinary(serverURL string) *CloudinaryUploader {
	u := NewCloudinaryUploader("demo", "key", "secret", "dotify")
	u.baseURL = serverURL
	u.client.SetRetryCount(0)
	u.now = func() time.Time { return time.Unix(1700000000, 0) }
	return u
}

func TestCloudinaryUploader_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/auto/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "key", r.FormValue("api_key"))
		assert.Equal(t, "dotify/artists", r.FormValue("folder"))
		assert.Equal(t, "1700000000", r.FormValue("timestamp"))

		sum := sha1.Sum([]byte("folder=dotify/artists&timestamp=1700000000secret"))
		assert.Equal(t, hex.EncodeToString(sum[:]), r.FormValue("signature"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "portrait.jpg", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"secure_url": "https://res.cloudinary.com/demo/image/upload/portrait.jpg",
			"public_id":  "dotify/artists/portrait",
		})
	}))
	defer server.Close()

	path := writeTemp(t, "portrait.jpg", "jpeg bytes")
	url, err := newTestCloudinary(server.URL).Upload(context.Background(), path, FolderArtists)

	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/portrait.jpg", url)
	assert.NoFileExists(t, path)
}

func TestCloudinaryUploader_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid Signature"}}`))
	}))
	defer server.Close()

	path := writeTemp(t, "track.mp3", "audio")
	_, err := newTestCloudinary(server.URL).Upload(context.Background(), path, FolderSongs)

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, "cloudinary", uploadErr.Provider)
	assert.Contains(t, uploadErr.Error(), "Invalid Signature")
	assert.NoFileExists(t, path, "temp file is removed on failure too")
}

func TestCloudinaryUploader_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	path := writeTemp(t, "track.mp3", "audio")
	_, err := newTestCloudinary(server.URL).Upload(context.Background(), path, FolderSongs)

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.NoFileExists(t, path)
}

func TestLocalUploader(t *testing.T) {
	root := t.TempDir()
	uploader := NewLocalUploader(root, "http://localhost:8080/media/")

	path := writeTemp(t, "Cover.PNG", "png bytes")
	url, err := uploader.Upload(context.Background(), path, FolderAlbums)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "http://localhost:8080/media/albums/"))
	assert.True(t, strings.HasSuffix(url, ".png"))
	assert.NoFileExists(t, path)

	stored := filepath.Join(root, "albums", filepath.Base(url))
	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(data))
}

func TestLocalUploader_MissingSource(t *testing.T) {
	uploader := NewLocalUploader(t.TempDir(), "http://localhost/media")

	_, err := uploader.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"), FolderSongs)

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, "local", uploadErr.Provider)
}
