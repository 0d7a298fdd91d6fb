package storage

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dembasy/jokko/internal/models"
)

// InitPostgres opens the PostgreSQL connection, tunes the pool and runs
// the schema migration for all domain models.
func InitPostgres(dsn string, maxIdleConns, maxOpenConns int) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetMaxOpenConns(maxOpenConns)

	err = db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Contact{},
		&models.Conversation{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate models: %w", err)
	}
	return db, nil
}

// BuildDSN assembles a PostgreSQL DSN.
func BuildDSN(host, port, user, password, dbname string) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", host, port, user, password, dbname)
}
