package http

import (
	"context"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/library/internal/catalog"
	auditdb "github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/queries"
)

// This file consolidates the service interfaces used by HTTP controllers.
// Each controller depends only on the operations it calls.

// Lender borrows and returns titles on behalf of a principal.
type Lender interface {
	Borrow(ctx context.Context, p entities.Principal, titleID uint) (*entities.Loan, error)
	Return(ctx context.Context, p entities.Principal, titleID uint) (*entities.Loan, error)
}

// HistoryReader lists a principal's loans.
type HistoryReader interface {
	History(ctx context.Context, p entities.Principal, q queries.HistoryQuery) (*queries.Result[entities.Loan], error)
}

// TitleReader serves catalog listings and counts.
type TitleReader interface {
	ListTitles(ctx context.Context, q queries.TitleQuery) (*queries.Result[entities.Title], error)
	Dashboard(ctx context.Context) (*queries.Dashboard, error)
}

// TitleManager edits the catalog.
type TitleManager interface {
	Get(ctx context.Context, id uint) (*entities.Title, error)
	Add(ctx context.Context, p entities.Principal, input catalog.TitleInput) (*entities.Title, error)
	Update(ctx context.Context, p entities.Principal, id uint, update catalog.TitleUpdate) (*entities.Title, error)
	Delete(ctx context.Context, p entities.Principal, id uint) error
}

// AuditLister lists recorded audit events.
type AuditLister interface {
	ListEvents(filter auditdb.EventFilter, limit, offset int) ([]entities.AuditEvent, int64, error)
}

// TaskRunner enqueues maintenance tasks by name and reports their status.
type TaskRunner interface {
	Names() []string
	EnqueueByName(ctx context.Context, name string) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}
