package database

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	DB   *gorm.DB
	once sync.Once
	err  error
)

// Connect opens the shared Postgres pool once per process.
func Connect(dsn string, debug bool) (*gorm.DB, error) {
	once.Do(func() {
		logLevel := gormlogger.Warn
		if debug {
			logLevel = gormlogger.Info
		}

		var db *gorm.DB
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger:         gormlogger.Default.LogMode(logLevel),
			TranslateError: true,
		})
		if err != nil {
			err = fmt.Errorf("failed to connect database: %w", err)
			return
		}

		sqlDB, dbErr := db.DB()
		if dbErr != nil {
			err = fmt.Errorf("failed to access connection pool: %w", dbErr)
			return
		}
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)

		DB = db
	})

	return DB, err
}

// Close releases the shared pool.
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
