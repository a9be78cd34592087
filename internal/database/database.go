package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hnrobert/macallow/internal/config"
	"github.com/hnrobert/macallow/internal/logger"
)

type Option func(*options)

type options struct {
	logger     gormlogger.Interface
	migrations []func(*gorm.DB) error
}

// WithLogger replaces the default silent GORM logger.
func WithLogger(l gormlogger.Interface) Option {
	return func(o *options) { o.logger = l }
}

// WithMigration runs fn after the connection is opened.
func WithMigration(fn func(*gorm.DB) error) Option {
	return func(o *options) { o.migrations = append(o.migrations, fn) }
}

func Open(cfg config.Database, opts ...Option) (*gorm.DB, error) {
	o := options{logger: silentLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: o.logger})
	if err != nil {
		return nil, fmt.Errorf("database: open connection: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// One writer at a time; wait instead of failing with SQLITE_BUSY.
		if err := db.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
			return nil, fmt.Errorf("database: set busy timeout: %w", err)
		}
	}

	for _, m := range o.migrations {
		if err := m(db); err != nil {
			return nil, fmt.Errorf("database: auto migrate: %w", err)
		}
	}
	if len(o.migrations) > 0 {
		logger.Info("Database migration completed (%s).", cfg.Driver)
	}
	return db, nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialectorFor(cfg config.Database) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite":
		return sqlite.Open(cfg.DSN), nil
	case "postgres":
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", cfg.Driver)
	}
}

func silentLogger() gormlogger.Interface {
	return gormlogger.New(
		logger.Std(),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)
}
