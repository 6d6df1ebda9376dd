package config

// Default paths for local state
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./library.db"

	// DefaultStorageDir is where uploaded thumbnails are written by default
	DefaultStorageDir = "./media"

	// DefaultAuditReportDir holds JSON reports written by the integrity check
	DefaultAuditReportDir = "./audit"
)
