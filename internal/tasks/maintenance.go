package tasks

import (
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/library/internal/storage"
)

// Maintenance bundles what the maintenance queues work on.
type Maintenance struct {
	Integrity          IntegrityCheck
	Audit              AuditEventCleaner
	AuditRetentionDays int
	Thumbnails         storage.Store
	References         ThumbnailReferences
}

// RegisterMaintenance registers the integrity, audit cleanup and thumbnail
// cleanup queues, each runnable by name.
func (c *Client) RegisterMaintenance(m Maintenance) {
	c.RegisterNamed(QueueIntegrityCheck,
		NewIntegrityCheckQueue(m.Integrity),
		func() backlite.Task { return IntegrityCheckTask{} })

	c.RegisterNamed(QueueCleanupAudit,
		NewCleanupAuditEventsQueue(m.Audit, m.AuditRetentionDays),
		func() backlite.Task { return CleanupAuditEventsTask{RetentionDays: m.AuditRetentionDays} })

	if m.Thumbnails != nil && m.References != nil {
		c.RegisterNamed(QueueCleanupThumbnail,
			NewCleanupThumbnailsQueue(m.Thumbnails, m.References),
			func() backlite.Task { return CleanupThumbnailsTask{MinAgeMinutes: 60} })
	}
}
