package object

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrNotFound is returned by Open when no object exists at the key.
var ErrNotFound = errors.New("object not found")

// ObjectStore saves and retrieves archived report files by key.
type ObjectStore interface {
	Put(ctx context.Context, key string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// CleanKey normalizes a slash-separated key and rejects keys that escape the root.
func CleanKey(key string) (string, error) {
	trimmed := strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if trimmed == "" {
		return "", fmt.Errorf("storage key is empty")
	}
	clean := path.Clean("/" + trimmed)
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == "." {
		return "", fmt.Errorf("invalid storage key")
	}
	for _, part := range strings.Split(trimmed, "/") {
		if part == ".." {
			return "", fmt.Errorf("invalid storage key")
		}
	}
	return clean, nil
}
