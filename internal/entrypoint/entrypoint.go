package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/catalog"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
	auditdb "github.com/mrlokans/library/internal/database/audit"
	catalogdb "github.com/mrlokans/library/internal/database/catalog"
	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/database/users"
	http_controllers "github.com/mrlokans/library/internal/http"
	"github.com/mrlokans/library/internal/lending"
	"github.com/mrlokans/library/internal/queries"
	"github.com/mrlokans/library/internal/scheduler"
	"github.com/mrlokans/library/internal/search"
	"github.com/mrlokans/library/internal/storage"
	"github.com/mrlokans/library/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop accepting requests before the background workers go away
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

// busyTimeout keeps SQLite from waiting on a held write lock longer than a
// whole lending unit of work may take.
func busyTimeout(cfg *config.Config) time.Duration {
	timeout := cfg.Database.BusyTimeout
	if cfg.Lending.LockTimeout > 0 && (timeout <= 0 || cfg.Lending.LockTimeout < timeout) {
		timeout = cfg.Lending.LockTimeout
	}
	return timeout
}

// csrfSecret decodes the configured session secret, generating one when unset.
func csrfSecret(configured string) ([]byte, error) {
	if configured != "" {
		secret, err := hex.DecodeString(configured)
		if err != nil {
			// Not hex, use as raw bytes
			secret = []byte(configured)
		}
		return secret, nil
	}

	generated, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, err
	}
	log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	return hex.DecodeString(generated)
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Library v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path, database.WithBusyTimeout(busyTimeout(cfg)))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	events := audit.NewService(auditdb.NewRepository(db.DB))
	auditor := audit.NewAuditor(cfg.Audit.ReportDir)

	blobs, err := storage.NewLocalStore(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize thumbnail storage: %v", err)
	}
	log.Printf("Thumbnail storage at %s, served under %s", blobs.Dir(), blobs.PublicURL())

	coordinator := lending.NewCoordinator(db, cfg.Lending, events)
	titleQueries := queries.NewService(db.DB, search.NewProvider(db.DB))
	catalogService := catalog.NewService(db, blobs, events)

	// Authentication
	authService := auth.NewService(users.NewRepository(db.DB), cfg.Auth)

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	secret, err := csrfSecret(cfg.Auth.SessionSecret)
	if err != nil {
		log.Fatalf("Failed to generate CSRF secret: %v", err)
	}

	authMiddleware := auth.NewMiddleware(authService, sessionManager, blobs.PublicURL())
	userController := auth.NewUserController(authService, sessionManager, cfg.Auth, events)

	if hasUsers, _ := authService.HasUsers(); !hasUsers {
		log.Printf("No users found. Run '%s create-user -role admin' to create an administrator.", os.Args[0])
	}

	// Maintenance task queue
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var maintenance *scheduler.MaintenanceScheduler
	var taskRunner http_controllers.TaskRunner

	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, cfg.Tasks)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		titleRepo := catalogdb.NewRepository(db.DB)
		taskClient.RegisterMaintenance(tasks.Maintenance{
			Integrity: tasks.IntegrityCheck{
				Loans:    loans.NewRepository(db.DB),
				Titles:   titleRepo,
				Recorder: events,
				Reports:  auditor,
			},
			Audit:              events,
			AuditRetentionDays: cfg.Audit.RetentionDays,
			Thumbnails:         blobs,
			References:         titleRepo,
		})

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		taskClient.Start(taskCtx)
		taskRunner = taskClient

		if cfg.Maintenance.Enabled {
			maintenance = scheduler.NewMaintenanceScheduler(taskClient, scheduler.JobsFromConfig(cfg.Maintenance))
			if err := maintenance.Start(taskCtx); err != nil {
				log.Fatalf("Failed to start maintenance scheduler: %v", err)
			}
		}
	} else {
		log.Printf("Task queue disabled, maintenance tasks will not run")
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Lender:         coordinator,
		History:        titleQueries,
		Titles:         titleQueries,
		Catalog:        catalogService,
		Audit:          events,
		Tasks:          taskRunner,
		Database:       db,
		StorageDir:     blobs.Dir(),
		Version:        version,
		MediaPrefix:    blobs.PublicURL(),
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		AuthMiddleware: authMiddleware,
		SessionManager: sessionManager,
		Users:          userController,
		AuthService:    authService,
		CSRFSecret:     secret,
		SecureCookies:  cfg.Auth.SecureCookies,
		CORSOrigin:     cfg.HTTP.CORSOrigin,
	})

	onShutdown := func(ctx context.Context) {
		if maintenance != nil {
			maintenance.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
		events.Wait()
	}

	Serve(router, cfg, onShutdown)
}
