package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// ErrBlobNotFound is returned when a key has no stored bytes.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore is the byte storage behind media records. Keys are slash
// separated relative paths; ranges are inclusive on both ends.
type BlobStore interface {
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) (int64, error)
	ReadRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error)
	Size(ctx context.Context, key string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// ObjectKey builds the storage key for a new blob: yyyy/mm/<id><ext>.
func ObjectKey(now time.Time, id, ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	now = now.UTC()
	return path.Join(fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", int(now.Month())), id+ext)
}

func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("empty storage key")
	}
	cleaned := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return cleaned, nil
}

func validateRange(start, end int64) error {
	if start < 0 || end < start {
		return fmt.Errorf("invalid byte range %d-%d", start, end)
	}
	return nil
}

type readCloser struct {
	io.Reader
	io.Closer
}
