// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, unit of work
//	├── catalog/         # Catalog Store: titles and available counters
//	├── loans/           # Loan Ledger: borrow/return records
//	├── audit/           # Audit events
//	└── users/           # User management
//
// # Units of Work
//
// Borrow and return touch both the catalog and the ledger. They run inside
// Database.Transact, and the repositories are rebound to the transaction
// handle so every write lands in the same SQLite transaction:
//
//	err := db.Transact(ctx, func(tx *gorm.DB) error {
//		titles := catalog.NewRepository(tx)
//		ledger := loans.NewRepository(tx)
//		...
//	})
//
// The connection is opened with _txlock=immediate, so a transaction holds the
// database write lock from BEGIN until COMMIT or ROLLBACK. Concurrent units
// of work wait up to the busy timeout and then fail with SQLITE_BUSY, which
// the lending package treats as a transient failure.
//
// # Invariants Enforced by the Schema
//
//   - titles.available has a CHECK (available >= 0) constraint.
//   - idx_loans_open_unique is a partial unique index on loans(user_id, title_id)
//     WHERE returned_at IS NULL.
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Implement the required interface
//  5. Add compile-time interface check: var _ SomeInterface = (*Repository)(nil)
package database
