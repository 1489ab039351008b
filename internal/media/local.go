package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalUploader keeps uploads on local disk and serves them from baseURL.
// Used for development and whenever no media host is configured.
type LocalUploader struct {
	root    string
	baseURL string
}

// NewLocalUploader stores files under root. baseURL is the public prefix
// root is served at, e.g. http://localhost:8080/media.
func NewLocalUploader(root, baseURL string) *LocalUploader {
	return &LocalUploader{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (u *LocalUploader) Upload(ctx context.Context, localPath, folder string) (string, error) {
	defer removeTemp(localPath)

	if err := ctx.Err(); err != nil {
		return "", &UploadError{Provider: "local", Err: err}
	}

	dir := filepath.Join(u.root, filepath.FromSlash(folder))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &UploadError{Provider: "local", Message: "create folder", Err: err}
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(localPath))
	if err := copyFile(localPath, filepath.Join(dir, name)); err != nil {
		return "", &UploadError{Provider: "local", Message: "store file", Err: err}
	}

	return fmt.Sprintf("%s/%s/%s", u.baseURL, strings.Trim(folder, "/"), name), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
