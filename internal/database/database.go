package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/library/internal/entities"
)

// openLoanIndexSQL enforces at most one open loan per (user, title) in the store itself.
const openLoanIndexSQL = `CREATE UNIQUE INDEX IF NOT EXISTS idx_loans_open_unique
	ON loans(user_id, title_id) WHERE returned_at IS NULL`

type Database struct {
	DB *gorm.DB
}

type options struct {
	busyTimeout time.Duration
	logLevel    logger.LogLevel
}

// Option tunes how the database connection is opened.
type Option func(*options)

// WithBusyTimeout sets how long a connection waits for a held write lock
// before SQLite reports SQLITE_BUSY.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}

// WithLogLevel sets the gorm logger level.
func WithLogLevel(level logger.LogLevel) Option {
	return func(o *options) {
		o.logLevel = level
	}
}

// dsn builds the go-sqlite3 connection string. _txlock=immediate makes every
// transaction take the write lock at BEGIN, so two units of work can never
// both read a counter and then race to write it.
func dsn(dbPath string, o options) string {
	return fmt.Sprintf("%s?_txlock=immediate&_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=1",
		dbPath, o.busyTimeout.Milliseconds())
}

func NewDatabase(dbPath string, opts ...Option) (*Database, error) {
	o := options{
		busyTimeout: 5 * time.Second,
		logLevel:    logger.Warn,
	}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: DriverName, DSN: dsn(dbPath, o)}), &gorm.Config{
		Logger: logger.Default.LogMode(o.logLevel),
		// Loans outlive the titles they reference, see catalog.Service.Delete
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return &Database{DB: db}, nil
}

// Migrate creates or updates all tables and indexes.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&entities.User{},
		&entities.Title{},
		&entities.Loan{},
		&entities.AuditEvent{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := db.Exec(openLoanIndexSQL).Error; err != nil {
		return fmt.Errorf("failed to create open loan index: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the underlying connection is usable.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Transact runs fn as one unit of work. Every statement issued through tx
// commits together when fn returns nil; any error (or panic) rolls the whole
// unit back before Transact returns.
func (d *Database) Transact(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.DB.WithContext(ctx).Transaction(fn)
}
