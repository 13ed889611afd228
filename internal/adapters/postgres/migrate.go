package postgres

import (
	"context"
	"embed"
	"fmt"
	"sort"

	"catalog-service/internal/contextkeys"
	"catalog-service/internal/core/port"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies the embedded DDL in file name order. Every statement is
// idempotent, so it runs on each start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"component": "PostgresMigrate"})

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		ddl, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(ddl)); err != nil {
			logger.Error("Migration failed", err, port.Fields{"migration": name})
			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
		logger.Debug("Migration applied", port.Fields{"migration": name})
	}
	return nil
}
