package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"warehouse-backend/internal/config"
	"warehouse-backend/internal/logging"
	"warehouse-backend/internal/models"
)

// Open connects to postgres with gorm logging routed through zap.
func Open(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: logging.Gorm(logger, cfg.DBSlowThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// Models lists every table in dependency order.
func Models() []any {
	return []any{
		&models.Warehouse{},
		&models.User{},
		&models.Part{},
		&models.Supplier{},
		&models.Customer{},
		&models.Rack{},
		&models.Supplies{},
		&models.StoredIn{},
		&models.Transaction{},
		&models.IncomingTransaction{},
		&models.OutgoingTransaction{},
		&models.TransferTransaction{},
		&models.AuditLog{},
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
