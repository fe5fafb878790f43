// Package database opens the durable playlist tier.
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glefebvre/iptvcore/internal/config"
	"github.com/glefebvre/iptvcore/internal/logger"
	"github.com/glefebvre/iptvcore/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open connects to the configured driver and runs migrations. The none
// driver returns a nil handle, which leaves the durable tier unsupported.
func Open(cfg config.StorageConfig, logLevel string, log *logger.Logger) (*gorm.DB, error) {
	if log == nil {
		log = logger.DatabaseLogger()
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverNone:
		return nil, nil
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.SQLite.Path)
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.Postgres.DSN())
	default:
		return nil, fmt.Errorf("unsupported storage driver: %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormAdapter(log, logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if cfg.Driver == config.DriverSQLite {
		// sqlite serializes writers; one connection avoids SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := Migrate(db); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"driver": cfg.Driver,
	}).Info("Database connected")

	return db, nil
}

// Migrate creates or updates the playlist table
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.PlaylistRecord{})
}

// HealthCheck verifies database connectivity
func HealthCheck(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not configured")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// Close closes the database connection; a nil handle is a no-op
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}
