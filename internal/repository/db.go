// Package repository provides the Postgres and Redis backed
// implementations of the service store interfaces.
package repository

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tickgate/tickgate/internal/model"
)

// OpenDB connects to Postgres and migrates the schema.
func OpenDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.AutoMigrate(
		&model.StrategyRun{},
		&model.ExchangeConnection{},
		&model.RiskState{},
		&model.PlatformSetting{},
		&model.TickRun{},
		&model.Event{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return db, nil
}
