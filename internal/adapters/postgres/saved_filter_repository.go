package postgres

import (
	"context"
	"errors"
	"fmt"

	"catalog-service/internal/contextkeys"
	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/port"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SavedFilterRepository struct {
	pool *pgxpool.Pool
}

var _ port.SavedFilterRepositoryPort = (*SavedFilterRepository)(nil)

func NewSavedFilterRepository(pool *pgxpool.Pool) (*SavedFilterRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &SavedFilterRepository{pool: pool}, nil
}

func (r *SavedFilterRepository) Save(ctx context.Context, filter domain.SavedFilter) error {
	repoLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":       "SavedFilterRepository",
		"method":          "Save",
		"saved_filter_id": filter.ID.String(),
	})

	query := `
		INSERT INTO saved_filters (id, category, name, filter_values, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, filter_values = EXCLUDED.filter_values`
	if _, err := r.pool.Exec(ctx, query, filter.ID, filter.Category, filter.Name, []byte(filter.Values), filter.CreatedAt); err != nil {
		repoLogger.Error("Failed to save filter", err, nil)
		return fmt.Errorf("failed to save filter: %w", err)
	}
	repoLogger.Debug("Saved filter stored.", nil)
	return nil
}

func (r *SavedFilterRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SavedFilter, error) {
	query := `SELECT id, category, name, filter_values, created_at FROM saved_filters WHERE id = $1`
	f, err := scanSavedFilter(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSavedFilterNotFound, id)
		}
		return nil, fmt.Errorf("failed to get saved filter: %w", err)
	}
	return f, nil
}

func (r *SavedFilterRepository) ListByCategory(ctx context.Context, category string) ([]domain.SavedFilter, error) {
	query := `
		SELECT id, category, name, filter_values, created_at
		FROM saved_filters
		WHERE category = $1
		ORDER BY created_at DESC, id`
	rows, err := r.pool.Query(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved filters: %w", err)
	}
	defer rows.Close()

	out := make([]domain.SavedFilter, 0)
	for rows.Next() {
		f, err := scanSavedFilter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saved filter: %w", err)
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func scanSavedFilter(row pgx.Row) (*domain.SavedFilter, error) {
	var f domain.SavedFilter
	var values []byte
	if err := row.Scan(&f.ID, &f.Category, &f.Name, &values, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.Values = values
	f.CreatedAt = f.CreatedAt.UTC()
	return &f, nil
}
