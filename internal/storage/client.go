package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("file exceeds the upload size limit")
	ErrNotManaged      = errors.New("url does not point into this store")
)

// BlobInfo contains metadata about a stored file
type BlobInfo struct {
	Name       string // Store-relative name, e.g. "thumbnails/<uuid>.png"
	URL        string
	Size       int64
	ModifiedAt time.Time
}

// Store defines the interface for blob storage operations
type Store interface {
	// Put stores the content and returns the public URL it is served under
	Put(ctx context.Context, name, contentType string, content io.Reader) (string, error)

	// Delete removes the blob behind a URL previously returned by Put
	Delete(ctx context.Context, url string) error

	// List returns every stored blob
	List(ctx context.Context) ([]BlobInfo, error)
}

// allowedTypes maps accepted image content types to file extensions
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ExtensionFor returns the file extension for an accepted image type.
func ExtensionFor(contentType string) (string, error) {
	ext, ok := allowedTypes[contentType]
	if !ok {
		return "", ErrUnsupportedType
	}
	return ext, nil
}

// FilterBlobs filters a blob list by a predicate function
func FilterBlobs(blobs []BlobInfo, predicate func(BlobInfo) bool) []BlobInfo {
	var filtered []BlobInfo
	for _, b := range blobs {
		if predicate(b) {
			filtered = append(filtered, b)
		}
	}
	return filtered
}
