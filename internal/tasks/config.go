package tasks

import (
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/library/internal/config"
)

// Queue names, also accepted by the admin "run task" endpoint.
const (
	QueueIntegrityCheck   = "integrity_check"
	QueueCleanupAudit     = "cleanup_audit_events"
	QueueCleanupThumbnail = "cleanup_thumbnails"
)

// withDefaults fills unset queue settings.
// Workers: 2, ReleaseAfter: 15m, CleanupInterval: 1h.
func withDefaults(cfg config.Tasks) config.Tasks {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.ReleaseAfter <= 0 {
		cfg.ReleaseAfter = 15 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	return cfg
}

// taskRetention keeps finished tasks for a day; payloads only when they failed.
func taskRetention() *backlite.Retention {
	return &backlite.Retention{
		Duration:   24 * time.Hour,
		OnlyFailed: false,
		Data:       &backlite.RetainData{OnlyFailed: true},
	}
}
