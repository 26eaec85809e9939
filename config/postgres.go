package config

import (
	"errors"
	"time"

	"github.com/yoockh/bookbot/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var PostgresDB *gorm.DB

// InitPostgres opens the pool and makes sure the botusers table exists.
func InitPostgres(uri string) error {
	if uri == "" {
		return errors.New("POSTGRES_URI is not set")
	}
	db, err := gorm.Open(postgres.Open(uri), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	// Connection Pooling settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.AutoMigrate(&models.User{}); err != nil {
		return err
	}

	PostgresDB = db
	return nil
}

func ClosePostgres() {
	if PostgresDB == nil {
		return
	}
	if sqlDB, err := PostgresDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
