package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/library/internal/storage"
)

// ThumbnailReferences lists the thumbnail URLs titles still point at.
type ThumbnailReferences interface {
	ThumbnailURLs() ([]string, error)
}

// CleanupThumbnailsTask removes stored thumbnails no title references.
// Blobs younger than MinAgeMinutes are kept, since an upload is stored
// before its title row is written.
type CleanupThumbnailsTask struct {
	MinAgeMinutes int `json:"min_age_minutes"`
}

// Config returns the queue configuration for thumbnail cleanup tasks.
func (t CleanupThumbnailsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        QueueCleanupThumbnail,
		MaxAttempts: 2,
		Backoff:     10 * time.Minute,
		Timeout:     5 * time.Minute,
		Retention:   taskRetention(),
	}
}

// RemoveOrphanedThumbnails deletes every blob not referenced by a title and
// older than minAge. It returns the number of deleted blobs.
func RemoveOrphanedThumbnails(ctx context.Context, store storage.Store, refs ThumbnailReferences, minAge time.Duration) (int, error) {
	urls, err := refs.ThumbnailURLs()
	if err != nil {
		return 0, fmt.Errorf("list referenced thumbnails: %w", err)
	}
	referenced := make(map[string]bool, len(urls))
	for _, u := range urls {
		referenced[u] = true
	}

	blobs, err := store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list stored thumbnails: %w", err)
	}

	cutoff := time.Now().Add(-minAge)
	orphans := storage.FilterBlobs(blobs, func(b storage.BlobInfo) bool {
		return !referenced[b.URL] && b.ModifiedAt.Before(cutoff)
	})

	deleted := 0
	for _, blob := range orphans {
		if err := store.Delete(ctx, blob.URL); err != nil {
			log.Printf("[TASK] ERROR: failed to delete orphaned thumbnail %s: %v", blob.Name, err)
			continue
		}
		deleted++
	}
	return deleted, nil
}

// NewCleanupThumbnailsQueue creates a backlite queue for thumbnail cleanup tasks.
func NewCleanupThumbnailsQueue(store storage.Store, refs ThumbnailReferences) backlite.Queue {
	return backlite.NewQueue(func(ctx context.Context, task CleanupThumbnailsTask) error {
		minAge := time.Duration(task.MinAgeMinutes) * time.Minute
		if minAge <= 0 {
			minAge = time.Hour
		}

		deleted, err := RemoveOrphanedThumbnails(ctx, store, refs, minAge)
		if err != nil {
			return err
		}
		log.Printf("[TASK] Removed %d orphaned thumbnails", deleted)
		return nil
	})
}
