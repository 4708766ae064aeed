// Package db opens the configured database and keeps schema migration
// in one place.
package db

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yadava5/taskflow/internal/config"
	"github.com/yadava5/taskflow/internal/logger"
	"github.com/yadava5/taskflow/internal/types"
)

// Open connects to the database selected by cfg and migrates the
// schema.
func Open(cfg config.DatabaseConfig, log *logger.Logger) (*gorm.DB, error) {
	dbLog := log.With("component", "db")

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	dbLog.Info("connecting", "driver", cfg.Driver)
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if cfg.Driver != "postgres" {
		// gorm declares the constraints, sqlite only enforces them with
		// the pragma on
		if err := gdb.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}
	if err := migrate(gdb); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	dbLog.Info("schema ready")
	return gdb, nil
}

func migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.Calendar{},
		&types.EventSeries{},
		&types.Task{},
	)
}

// OpenForTest opens an isolated in-memory sqlite database. The named
// shared-cache DSN keeps every pooled connection on the same instance,
// and the random name keeps parallel tests apart.
func OpenForTest(log *logger.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	return Open(config.DatabaseConfig{Driver: "sqlite", DSN: dsn}, log)
}
