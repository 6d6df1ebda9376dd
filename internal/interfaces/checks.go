package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/catalog"
	"github.com/mrlokans/library/internal/database"
	auditdb "github.com/mrlokans/library/internal/database/audit"
	catalogdb "github.com/mrlokans/library/internal/database/catalog"
	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/http"
	"github.com/mrlokans/library/internal/lending"
	"github.com/mrlokans/library/internal/queries"
	"github.com/mrlokans/library/internal/scheduler"
	"github.com/mrlokans/library/internal/storage"
	"github.com/mrlokans/library/internal/tasks"
)

// =============================================================================
// Lending
// =============================================================================

var _ lending.UnitOfWork = (*database.Database)(nil)
var _ lending.EventRecorder = (*audit.Service)(nil)

// =============================================================================
// HTTP Stores
// =============================================================================

var _ http.Lender = (*lending.Coordinator)(nil)
var _ http.HistoryReader = (*queries.Service)(nil)
var _ http.TitleReader = (*queries.Service)(nil)
var _ http.TitleManager = (*catalog.Service)(nil)
var _ http.AuditLister = (*audit.Service)(nil)
var _ http.AuditLister = (*auditdb.Repository)(nil)
var _ http.TaskRunner = (*tasks.Client)(nil)
var _ http.Pinger = (*database.Database)(nil)

// =============================================================================
// Audit Recorders
// =============================================================================

var _ catalog.EventRecorder = (*audit.Service)(nil)
var _ auth.EventRecorder = (*audit.Service)(nil)

// =============================================================================
// Storage
// =============================================================================

var _ storage.Store = (*storage.LocalStore)(nil)

// =============================================================================
// Maintenance
// =============================================================================

var _ scheduler.Enqueuer = (*tasks.Client)(nil)
var _ tasks.LoanScanner = (*loans.Repository)(nil)
var _ tasks.StockScanner = (*catalogdb.Repository)(nil)
var _ tasks.ViolationRecorder = (*audit.Service)(nil)
var _ tasks.ReportWriter = (*audit.Auditor)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)
var _ tasks.ThumbnailReferences = (*catalogdb.Repository)(nil)
