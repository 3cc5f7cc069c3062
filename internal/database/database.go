// Package database opens the gorm connection and owns schema migration.
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/domain"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// same id across every replica so only one runs migrations at a time
const migrateLockID int64 = 20250630

// Models lists every table the service owns.
func Models() []any {
	return []any{
		&domain.User{},
		&domain.Notification{},
		&domain.AuditLog{},
	}
}

func Connect(dsn string, logLevel logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("database connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// MigratePostgres runs AutoMigrate under a postgres advisory lock.
func MigratePostgres(ctx context.Context, db *gorm.DB) error {
	tx := db.WithContext(ctx)
	if err := tx.Exec("SELECT pg_advisory_lock(?)", migrateLockID).Error; err != nil {
		return fmt.Errorf("migration lock: %w", err)
	}
	defer func() {
		_ = tx.Exec("SELECT pg_advisory_unlock(?)", migrateLockID).Error
	}()
	return Migrate(tx)
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("migration: %w", err)
	}
	return nil
}

// GormLogLevel maps LOG_LEVEL onto gorm's logger; SQL is only traced at debug.
func GormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logger.Info
	case "warn", "warning":
		return logger.Warn
	case "error":
		return logger.Error
	default:
		return logger.Silent
	}
}
