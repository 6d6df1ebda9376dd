package http

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/entities"
)

// APIPrefix is the path every JSON endpoint lives under.
const APIPrefix = "/api/v1"

// defaultMultipartMemory bounds the in-memory part of a multipart upload;
// larger parts spill to temp files.
const defaultMultipartMemory = 8 << 20

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.MaxMultipartMemory = defaultMultipartMemory
	if cfg.MaxUploadBytes > 0 && cfg.MaxUploadBytes < defaultMultipartMemory {
		router.MaxMultipartMemory = cfg.MaxUploadBytes
	}

	if cfg.CORSOrigin != "" {
		router.Use(CORSMiddleware(cfg.CORSOrigin))
	}

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware(31536000))
	}

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.AuthService, auth.SessionCookieName))
	}

	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.LoadSession())
	}

	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	}

	requireAdmin := func(c *gin.Context) { c.Next() }
	if cfg.AuthMiddleware != nil {
		requireAdmin = cfg.AuthMiddleware.RequireRole(entities.UserRoleAdmin)
	}

	// Uploaded thumbnails
	if cfg.StorageDir != "" && cfg.MediaPrefix != "" {
		router.Static(strings.TrimRight(cfg.MediaPrefix, "/"), cfg.StorageDir)
	}

	// Health endpoints
	health := NewHealthController(cfg.Database, cfg.StorageDir, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	api := router.Group(APIPrefix)

	// User endpoints
	if cfg.Users != nil {
		cfg.Users.RegisterRoutes(api.Group("/user"))
	}

	// Catalog endpoints; listing and detail are public
	books := NewBooksController(cfg.Titles, cfg.Catalog)
	book := api.Group("/book")
	book.GET("", books.ListBooks)
	book.GET("/dashboard", requireAdmin, books.Dashboard)
	book.GET("/:id", books.GetBook)
	book.POST("/add", requireAdmin, books.AddBook)
	book.PATCH("/:id", requireAdmin, books.UpdateBook)
	book.DELETE("/:id", requireAdmin, books.DeleteBook)

	// Paths used by existing web clients
	book.GET("/getAll", books.ListBooks)
	book.GET("/getStats", requireAdmin, books.Dashboard)
	book.PATCH("/update/:id", requireAdmin, books.UpdateBook)
	book.DELETE("/delete/:id", requireAdmin, books.DeleteBook)

	// Lending endpoints
	loans := NewLoansController(cfg.Lender, cfg.History)
	transaction := api.Group("/transaction")
	transaction.POST("/borrow", loans.Borrow)
	transaction.PATCH("/return", loans.Return)
	transaction.GET("/history", loans.History)

	// Admin endpoints
	admin := api.Group("/admin", requireAdmin)
	if cfg.Audit != nil {
		audit := NewAuditController(cfg.Audit)
		admin.GET("/audit", audit.GetAuditEvents)
	}
	if cfg.Tasks != nil {
		tasksController := NewTasksController(cfg.Tasks)
		admin.GET("/tasks/types", tasksController.ListTaskTypes)
		admin.GET("/tasks/:id", tasksController.GetTaskStatus)
		admin.POST("/tasks/:type/run", tasksController.RunTask)
	}

	return router
}
