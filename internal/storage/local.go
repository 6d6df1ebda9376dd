package storage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/mrlokans/library/internal/config"
)

const (
	thumbnailsPrefix = "thumbnails"
	tempFilePattern  = ".upload-*"
	sniffLen         = 512
)

// LocalStore implements Store on the local filesystem. Files become visible
// only once fully written: uploads go to a temp file that is renamed into place.
type LocalStore struct {
	dir       string
	publicURL string
	maxBytes  int64
}

// NewLocalStore creates the storage directory if needed.
func NewLocalStore(cfg config.Storage) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Join(cfg.Dir, thumbnailsPrefix), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStore{
		dir:       cfg.Dir,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		maxBytes:  cfg.MaxUploadBytes,
	}, nil
}

// Dir returns the root directory files are written under.
func (s *LocalStore) Dir() string {
	return s.dir
}

// PublicURL returns the URL prefix files are served under.
func (s *LocalStore) PublicURL() string {
	return s.publicURL
}

// Put sniffs the content type from the first bytes; the declared type only
// has to agree that this is an image.
func (s *LocalStore) Put(ctx context.Context, name, contentType string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return "", ErrUnsupportedType
	}

	br := bufio.NewReaderSize(content, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	ext, err := ExtensionFor(http.DetectContentType(head))
	if err != nil {
		return "", err
	}

	targetDir := filepath.Join(s.dir, thumbnailsPrefix)
	tmp, err := os.CreateTemp(targetDir, tempFilePattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	reader := io.Reader(br)
	if s.maxBytes > 0 {
		reader = io.LimitReader(br, s.maxBytes+1)
	}
	written, err := io.Copy(tmp, reader)
	if err == nil && s.maxBytes > 0 && written > s.maxBytes {
		err = ErrTooLarge
	}
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", err
	}

	blobName := uuid.New().String() + ext
	if err := os.Rename(tmpPath, filepath.Join(targetDir, blobName)); err != nil {
		return "", fmt.Errorf("failed to store file: %w", err)
	}

	log.Printf("Stored upload %q as %s/%s (%d bytes)", name, thumbnailsPrefix, blobName, written)
	return s.urlFor(path.Join(thumbnailsPrefix, blobName)), nil
}

// Delete removes a stored file. Deleting a file that is already gone succeeds.
func (s *LocalStore) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := s.nameFor(url)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(name))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

// List returns stored files, skipping uploads still in progress.
func (s *LocalStore) List(ctx context.Context) ([]BlobInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.dir, thumbnailsPrefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list storage: %w", err)
	}

	blobs := make([]BlobInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		name := path.Join(thumbnailsPrefix, entry.Name())
		blobs = append(blobs, BlobInfo{
			Name:       name,
			URL:        s.urlFor(name),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}
	return blobs, nil
}

func (s *LocalStore) urlFor(name string) string {
	return s.publicURL + "/" + name
}

// nameFor maps a public URL back to a store-relative name, refusing anything
// outside the thumbnails directory.
func (s *LocalStore) nameFor(url string) (string, error) {
	prefix := s.publicURL + "/" + thumbnailsPrefix + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", ErrNotManaged
	}
	base := strings.TrimPrefix(url, prefix)
	if base == "" || base != path.Base(base) || strings.HasPrefix(base, ".") {
		return "", ErrNotManaged
	}
	return path.Join(thumbnailsPrefix, base), nil
}

var _ Store = (*LocalStore)(nil)
