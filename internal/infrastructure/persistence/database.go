package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/retailpos/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database owns the ledger's PostgreSQL connection pool.
type Database struct {
	DB    *gorm.DB
	sqlDB *sql.DB
}

type databaseOptions struct {
	gormLogger logger.Interface
	dialector  gorm.Dialector
	attempts   int
	retryDelay time.Duration
	log        *zap.Logger
}

// DatabaseOption configures NewDatabase
type DatabaseOption func(*databaseOptions)

// WithGormLogger replaces the default silent GORM logger
func WithGormLogger(l logger.Interface) DatabaseOption {
	return func(o *databaseOptions) { o.gormLogger = l }
}

// WithConnectRetry retries the initial ping, since the register usually
// boots together with the database host.
func WithConnectRetry(attempts int, delay time.Duration) DatabaseOption {
	return func(o *databaseOptions) {
		o.attempts = attempts
		o.retryDelay = delay
	}
}

// WithDatabaseLogger logs connection attempts.
func WithDatabaseLogger(log *zap.Logger) DatabaseOption {
	return func(o *databaseOptions) { o.log = log }
}

func withDialector(d gorm.Dialector) DatabaseOption {
	return func(o *databaseOptions) { o.dialector = d }
}

// NewDatabase opens the pool described by cfg and waits until it answers a ping.
func NewDatabase(ctx context.Context, cfg *config.DatabaseConfig, opts ...DatabaseOption) (*Database, error) {
	o := databaseOptions{
		gormLogger: logger.Default.LogMode(logger.Silent),
		attempts:   1,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.dialector == nil {
		o.dialector = postgres.Open(cfg.DSN())
	}

	db, err := gorm.Open(o.dialector, &gorm.Config{
		Logger:                 o.gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		DisableAutomaticPing:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	d := &Database{DB: db, sqlDB: sqlDB}
	if err := d.waitReady(ctx, o); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return d, nil
}

func (d *Database) waitReady(ctx context.Context, o databaseOptions) error {
	var err error
	for attempt := 1; attempt <= max(o.attempts, 1); attempt++ {
		if err = d.sqlDB.PingContext(ctx); err == nil {
			return nil
		}
		o.log.Warn("database not ready",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", o.attempts),
			zap.Error(err),
		)
		if attempt == o.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("ping database: %w", ctx.Err())
		case <-time.After(o.retryDelay):
		}
	}
	return fmt.Errorf("ping database: %w", err)
}

// Close closes the pool
func (d *Database) Close() error {
	return d.sqlDB.Close()
}

// PingContext checks that the database still answers; used by the health check.
func (d *Database) PingContext(ctx context.Context) error {
	return d.sqlDB.PingContext(ctx)
}

// PoolStats reports connection pool usage.
func (d *Database) PoolStats() sql.DBStats {
	return d.sqlDB.Stats()
}
