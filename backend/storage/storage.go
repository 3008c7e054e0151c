// Package storage forwards staged lesson media to an external file store.
package storage

import (
	"context"
	"mime"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

var ErrDisabled = errors.New("file storage is not configured")

// FileStore uploads a local file and returns the URL learners open it from.
type FileStore interface {
	Upload(ctx context.Context, localPath, name string) (string, error)
}

// Disabled rejects every upload.
type Disabled struct{}

func (Disabled) Upload(context.Context, string, string) (string, error) {
	return "", ErrDisabled
}

func contentTypeOf(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// TempPath reserves an empty file under dir for staging an upload. The caller removes it.
func TempPath(dir, ext string) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create upload dir")
	}
	f, err := os.CreateTemp(dir, "upload-*"+ext)
	if err != nil {
		return "", errors.Wrap(err, "create staging file")
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", errors.Wrap(err, "close staging file")
	}
	return path, nil
}
