package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Auth
		Lending
		Storage
		Tasks
		Maintenance
		Audit
	}

	HTTP struct {
		Port       int32
		Host       string
		CORSOrigin string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path        string
		BusyTimeout time.Duration // How long SQLite waits on a held write lock
	}
	Auth struct {
		SessionSecret   string
		SessionLifetime time.Duration
		TokenExpiry     time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		MinPasswordLength int // Characters required in a new password (default: 6)

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	Lending struct {
		LockTimeout    time.Duration // Upper bound for one borrow/return unit of work
		MaxAttempts    int           // Attempts on lock contention before giving up
		RetryBaseDelay time.Duration // First backoff delay, doubled per attempt
	}
	Storage struct {
		Dir            string
		PublicURL      string // URL prefix the stored files are served under
		MaxUploadBytes int64
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Maintenance struct {
		Enabled                  bool
		IntegritySchedule        string // Cron format: "*/30 * * * *" = every 30 minutes
		AuditCleanupSchedule     string // Cron format: "0 3 * * *" = daily at 03:00
		ThumbnailCleanupSchedule string
	}
	Audit struct {
		RetentionDays int    // Days to keep audit events (default: 90)
		ReportDir     string // Integrity reports are written here as JSON
	}
)

func NewConfig() *Config {
	// Values from a local .env never override the real environment
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("cors_origin", "")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_busy_timeout", "5s")

	// Auth defaults
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")  // 24 hours
	v.SetDefault("auth_token_expiry", "240h")     // 10 days
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_min_password_length", 6)   // Characters per new password
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration

	// Lending defaults
	v.SetDefault("lending_lock_timeout", "3s")
	v.SetDefault("lending_max_attempts", 5)
	v.SetDefault("lending_retry_base_delay", "10ms")

	// Storage defaults
	v.SetDefault("storage_dir", DefaultStorageDir)
	v.SetDefault("storage_public_url", "/media")
	v.SetDefault("storage_max_upload_bytes", 5<<20)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	// Maintenance schedules
	v.SetDefault("maintenance_enabled", true)
	v.SetDefault("maintenance_integrity_schedule", "*/30 * * * *")
	v.SetDefault("maintenance_audit_cleanup_schedule", "0 3 * * *")
	v.SetDefault("maintenance_thumbnail_cleanup_schedule", "30 3 * * 0")

	v.SetDefault("audit_retention_days", 90)
	v.SetDefault("audit_report_dir", DefaultAuditReportDir)

	return &Config{
		HTTP: HTTP{
			Port:       v.GetInt32("PORT"),
			Host:       v.GetString("HOST"),
			CORSOrigin: v.GetString("CORS_ORIGIN"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path:        v.GetString("DATABASE_PATH"),
			BusyTimeout: v.GetDuration("DATABASE_BUSY_TIMEOUT"),
		},
		Auth: Auth{
			SessionSecret:     v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:   v.GetDuration("AUTH_SESSION_LIFETIME"),
			TokenExpiry:       v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:        v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:     v.GetBool("AUTH_SECURE_COOKIES"),
			MinPasswordLength: v.GetInt("AUTH_MIN_PASSWORD_LENGTH"),
			MaxLoginAttempts:  v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:   v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:   v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Lending: Lending{
			LockTimeout:    v.GetDuration("LENDING_LOCK_TIMEOUT"),
			MaxAttempts:    v.GetInt("LENDING_MAX_ATTEMPTS"),
			RetryBaseDelay: v.GetDuration("LENDING_RETRY_BASE_DELAY"),
		},
		Storage: Storage{
			Dir:            v.GetString("STORAGE_DIR"),
			PublicURL:      v.GetString("STORAGE_PUBLIC_URL"),
			MaxUploadBytes: v.GetInt64("STORAGE_MAX_UPLOAD_BYTES"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Maintenance: Maintenance{
			Enabled:                  v.GetBool("MAINTENANCE_ENABLED"),
			IntegritySchedule:        v.GetString("MAINTENANCE_INTEGRITY_SCHEDULE"),
			AuditCleanupSchedule:     v.GetString("MAINTENANCE_AUDIT_CLEANUP_SCHEDULE"),
			ThumbnailCleanupSchedule: v.GetString("MAINTENANCE_THUMBNAIL_CLEANUP_SCHEDULE"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
			ReportDir:     v.GetString("AUDIT_REPORT_DIR"),
		},
	}
}
