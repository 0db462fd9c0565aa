package database

import (
	"fmt"

	"auto-trade-engine-go/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase creates a new database connection and performs auto-migration.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// AutoMigrate creates or updates the schema for all engine tables.
// Unlike a scratch deployment, existing rows are kept: profiles, executions
// and snapshots are the system of record.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.TradingProfile{},
		&models.TradeSuggestion{},
		&models.TradeExecution{},
		&models.DailyRiskSnapshot{},
		&models.TradingMilestone{},
		&models.ExchangeConnection{},
		&models.PredictionEvent{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}
