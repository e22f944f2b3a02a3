package di

import (
	"fmt"
	"log/slog"
	"os"

	"gorm.io/gorm"

	candlesadapters "crypto_backend/internal/feature/candles/adapters"
	symbolsentity "crypto_backend/internal/feature/symbols/domain/entity"
	syncentity "crypto_backend/internal/feature/sync/domain/entity"
)

// EnvKeyRunMigrations enables AutoMigrate at startup when set to "true".
const EnvKeyRunMigrations = "RUN_MIGRATIONS"

// Migrate creates or updates the symbols, ohlcv and pipeline_logs tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&symbolsentity.Symbol{},
		&candlesadapters.OHLCVModel{},
		&syncentity.RunLog{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	slog.Info("database migration completed")
	return nil
}

// MigrateIfEnabled runs Migrate when RUN_MIGRATIONS=true.
func MigrateIfEnabled(db *gorm.DB) error {
	if os.Getenv(EnvKeyRunMigrations) != "true" {
		return nil
	}
	return Migrate(db)
}
