package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createOrdersTable,
		createAccessCodesTable,
		createAccessCodesShowIndex,
		createAccessCodesOrderIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createOrdersTable = `
CREATE TABLE IF NOT EXISTS orders (
    id SERIAL PRIMARY KEY,
    session_ref VARCHAR(255) UNIQUE NOT NULL,
    status VARCHAR(32) NOT NULL,
    payment_status VARCHAR(32) NOT NULL,
    email VARCHAR(255),
    amount_total BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createAccessCodesTable = `
CREATE TABLE IF NOT EXISTS access_codes (
    id SERIAL PRIMARY KEY,
    code VARCHAR(6) UNIQUE NOT NULL,
    is_valid BOOLEAN NOT NULL DEFAULT TRUE,
    redeemed_at TIMESTAMP,
    show_id VARCHAR(16) NOT NULL,
    category VARCHAR(16) NOT NULL,
    variant VARCHAR(16) NOT NULL,
    label VARCHAR(255) NOT NULL,
    uitpas_number VARCHAR(32),
    order_id INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createAccessCodesShowIndex = `
CREATE INDEX IF NOT EXISTS idx_access_codes_show ON access_codes(show_id);`

const createAccessCodesOrderIndex = `
CREATE INDEX IF NOT EXISTS idx_access_codes_order ON access_codes(order_id);`
