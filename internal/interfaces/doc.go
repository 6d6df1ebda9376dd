// Package interfaces documents the core abstractions used throughout the application.
//
// Consumers declare the narrow interface they need next to the code that
// calls it, and checks.go asserts at compile time that the concrete types
// wired in entrypoint.go satisfy them.
//
// # Interface Categories
//
// ## Lending
//
//   - UnitOfWork: one transaction per borrow or return (internal/lending/coordinator.go)
//   - EventRecorder: completed loans and integrity findings (internal/lending/coordinator.go)
//
// ## HTTP Stores
//
//   - Lender, HistoryReader: borrow, return and loan history (internal/http/stores.go)
//   - TitleReader, TitleManager: catalog reads and admin edits (internal/http/stores.go)
//   - AuditLister: audit log listing (internal/http/stores.go)
//   - TaskRunner: maintenance tasks on demand (internal/http/stores.go)
//   - Pinger: database health (internal/http/health.go)
//
// ## Storage
//
//   - Store: thumbnail blobs (internal/storage/client.go)
//
// ## Maintenance
//
//   - Enqueuer: cron-triggered task runs (internal/scheduler/maintenance.go)
//   - LoanScanner, StockScanner, ViolationRecorder, ReportWriter: the
//     integrity scan (internal/tasks/integrity_check.go)
//   - AuditEventCleaner, ThumbnailReferences: retention cleanup
//     (internal/tasks/cleanup_audit.go, internal/tasks/cleanup_thumbnails.go)
//
// # Adding a New Blob Store
//
// To keep thumbnails somewhere other than the local filesystem:
//
//  1. Implement Store in internal/storage/
//
//     type S3Store struct {
//         bucket string
//     }
//
//     func (s *S3Store) Put(ctx context.Context, name, contentType string, content io.Reader) (string, error)
//     func (s *S3Store) Delete(ctx context.Context, url string) error
//     func (s *S3Store) List(ctx context.Context) ([]BlobInfo, error)
//
//  2. Add a compile-time check to checks.go
//
//  3. Construct it in entrypoint.go instead of NewLocalStore
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full list.
package interfaces
