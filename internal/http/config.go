package http

import (
	"github.com/mrlokans/library/internal/auth"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Lending and catalog
	Lender  Lender
	History HistoryReader
	Titles  TitleReader
	Catalog TitleManager

	// Administration
	Audit AuditLister
	Tasks TaskRunner // nil when the task queue is disabled

	// Health checks
	Database   Pinger
	StorageDir string
	Version    string

	// Uploaded media is served from StorageDir under MediaPrefix
	MediaPrefix    string
	MaxUploadBytes int64

	// Authentication
	AuthMiddleware *auth.Middleware
	SessionManager *auth.SessionManager
	Users          *auth.UserController
	AuthService    *auth.Service
	CSRFSecret     []byte
	SecureCookies  bool

	// Cross-origin access for a separately hosted frontend; empty disables it
	CORSOrigin string
}
