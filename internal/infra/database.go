package infra

import (
	"fmt"
	"strings"
	"time"

	"oficina/internal/config"
	"oficina/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx. Every session gets
// a statement and lock timeout so no request waits on a lock forever.
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	dsn := withRuntimeParams(cfg.DatabaseURL, map[string]time.Duration{
		"statement_timeout": cfg.DBStatementTimeout,
		"lock_timeout":      cfg.DBLockTimeout,
	})
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	maxOpen := cfg.DBMaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := cfg.DBMaxIdleConns
	if maxIdle <= 0 || maxIdle > maxOpen {
		maxIdle = min(5, maxOpen)
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// withRuntimeParams appends session parameters (milliseconds) to a URL or
// keyword/value DSN. pgx forwards unknown keys as runtime parameters.
func withRuntimeParams(dsn string, params map[string]time.Duration) string {
	isURL := strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
	for key, d := range params {
		if d <= 0 || strings.Contains(dsn, key+"=") {
			continue
		}
		kv := fmt.Sprintf("%s=%d", key, d.Milliseconds())
		switch {
		case !isURL:
			dsn += " " + kv
		case strings.Contains(dsn, "?"):
			dsn += "&" + kv
		default:
			dsn += "?" + kv
		}
	}
	return dsn
}

// RunMigrations creates / updates all tables, then applies the DDL GORM
// cannot express. The statements are valid on PostgreSQL and SQLite.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.CatalogItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.PartRequest{},
		&model.CashRegister{},
		&model.CashMovement{},
		&model.Payment{},
		&model.Installment{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL statements (partial unique indexes).
// Each statement uses IF NOT EXISTS so re-running is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// at most one open register per establishment
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_cash_registers_open
		    ON cash_registers (establishment_id)
		    WHERE status = 'open'`,
		// at most one non-cancelled payment per order
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_payments_active_order
		    ON payments (order_id)
		    WHERE status <> 'cancelled'`,
		// one reversal per movement
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_cash_movements_reverses
		    ON cash_movements (reverses_id)
		    WHERE reverses_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_installments_payment_number
		    ON installments (payment_id, number)`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
