package utils

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"project/backend/config"
	"project/backend/models"
)

// InitDB открывает подключение к Postgres и мигрирует схему движка
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := MigrateModels(db); err != nil {
		return nil, err
	}
	return db, nil
}

// MigrateModels мигрирует все таблицы движка
func MigrateModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.ActivityEvent{},
		&models.ProgressRecord{},
		&models.DailyAnalytics{},
		&models.Course{},
		&models.Chapter{},
		&models.Lesson{},
		&models.Exercise{},
		&models.Quiz{},
	)
}
