package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/booking/logger"
)

//go:embed schema.sql
var schemaSQL string

// Migrate creates the bookings schema if it is missing. Every statement is
// idempotent so it runs on each startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply bookings schema: %w", err)
	}
	logger.InfoLogger.Info("Bookings schema is up to date.")
	return nil
}
