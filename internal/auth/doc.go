// Package auth provides authentication and authorization for the library API.
//
// Every account has one of two roles: members borrow and return titles,
// admins additionally manage the catalog and read the audit log. A request
// is authenticated by a Bearer API token (issued on login, stored as a
// SHA-256 hash) or by a server-side session cookie backed by scs and the
// SQLite database. Cookie-authenticated writes are protected by
// gorilla/csrf; login attempts are rate limited per client and identifier,
// and accounts lock after repeated failures.
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<hex-32-bytes>  # Auto-generated if empty
//	AUTH_SESSION_LIFETIME=24h           # Session duration
//	AUTH_TOKEN_EXPIRY=240h              # API token expiry
//	AUTH_BCRYPT_COST=12                 # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true            # HTTPS-only cookies
//	AUTH_MIN_PASSWORD_LENGTH=6          # Characters per new password
//
// # Usage
//
//	authService := auth.NewService(users.NewRepository(db), cfg.Auth)
//	authMiddleware := auth.NewMiddleware(authService, sessionManager, cfg.Storage.PublicURL)
//	router.Use(sessionManager.LoadSession(), authMiddleware.Handler())
//
// Handlers pass the caller on explicitly:
//
//	loan, err := coordinator.Borrow(ctx, auth.GetPrincipal(c), titleID)
package auth
