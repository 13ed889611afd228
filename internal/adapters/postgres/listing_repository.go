package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"catalog-service/internal/contextkeys"
	"catalog-service/internal/core/domain"
	"catalog-service/internal/core/port"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ListingRepository stores listings in the listings table; facet attributes
// live in one JSONB column.
type ListingRepository struct {
	pool *pgxpool.Pool
}

var _ port.ListingRepositoryPort = (*ListingRepository)(nil)

func NewListingRepository(pool *pgxpool.Pool) (*ListingRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgxpool.Pool cannot be nil")
	}
	return &ListingRepository{pool: pool}, nil
}

var listingColumns = []string{"id", "category", "title", "video_url", "thumb_url", "created_at", "attributes"}

const upsertListingQuery = `
	INSERT INTO listings (id, category, title, video_url, thumb_url, created_at, attributes)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET
		category = EXCLUDED.category,
		title = EXCLUDED.title,
		video_url = EXCLUDED.video_url,
		thumb_url = EXCLUDED.thumb_url,
		attributes = EXCLUDED.attributes`

func (r *ListingRepository) Save(ctx context.Context, listing domain.Listing) error {
	repoLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":  "ListingRepository",
		"method":     "Save",
		"listing_id": listing.ID.String(),
	})

	row, err := listingRow(listing)
	if err != nil {
		return err
	}
	repoLogger.Debug("Executing upsert.", nil)
	if _, err := r.pool.Exec(ctx, upsertListingQuery, row...); err != nil {
		repoLogger.Error("Failed to save listing", err, nil)
		return fmt.Errorf("failed to save listing: %w", constraintError(err))
	}
	return nil
}

// BatchSave copies the batch into a temporary table and merges it in one statement.
func (r *ListingRepository) BatchSave(ctx context.Context, listings []domain.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	repoLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":  "ListingRepository",
		"method":     "BatchSave",
		"batch_size": len(listings),
	})

	unique := lastByID(listings)
	rows := make([][]interface{}, 0, len(unique))
	for _, l := range unique {
		row, err := listingRow(l)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `CREATE TEMP TABLE temp_listings (LIKE listings INCLUDING DEFAULTS) ON COMMIT DROP`); err != nil {
		repoLogger.Error("Failed to create temp table", err, nil)
		return fmt.Errorf("failed to create temp table for listings: %w", err)
	}

	repoLogger.Debug("Copying listings to temp table.", nil)
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"temp_listings"}, listingColumns, pgx.CopyFromRows(rows)); err != nil {
		repoLogger.Error("Failed to COPY listings", err, nil)
		return fmt.Errorf("failed to copy to temp_listings: %w", constraintError(err))
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO listings (id, category, title, video_url, thumb_url, created_at, attributes)
		SELECT id, category, title, video_url, thumb_url, created_at, attributes
		FROM temp_listings
		ON CONFLICT (id) DO UPDATE SET
			category = EXCLUDED.category,
			title = EXCLUDED.title,
			video_url = EXCLUDED.video_url,
			thumb_url = EXCLUDED.thumb_url,
			attributes = EXCLUDED.attributes`)
	if err != nil {
		repoLogger.Error("Failed to merge listings", err, nil)
		return fmt.Errorf("failed to merge from temp_listings: %w", constraintError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit listings batch: %w", err)
	}
	repoLogger.Info("Listings batch stored.", nil)
	return nil
}

// lastByID drops repeated ids, keeping the last occurrence of each at its position.
func lastByID(listings []domain.Listing) []domain.Listing {
	last := make(map[uuid.UUID]int, len(listings))
	for i, l := range listings {
		last[l.ID] = i
	}
	if len(last) == len(listings) {
		return listings
	}
	out := make([]domain.Listing, 0, len(last))
	for i, l := range listings {
		if last[l.ID] == i {
			out = append(out, l)
		}
	}
	return out
}

func (r *ListingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	query := `SELECT id, category, title, video_url, thumb_url, created_at, attributes FROM listings WHERE id = $1`
	l, err := scanListing(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrListingNotFound, id)
		}
		return nil, fmt.Errorf("failed to get listing by id: %w", err)
	}
	return l, nil
}

func (r *ListingRepository) ListByCategory(ctx context.Context, category string) ([]domain.Listing, error) {
	repoLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "ListingRepository",
		"method":    "ListByCategory",
		"category":  category,
	})

	query := `
		SELECT id, category, title, video_url, thumb_url, created_at, attributes
		FROM listings
		WHERE category = $1
		ORDER BY created_at DESC, id`
	rows, err := r.pool.Query(ctx, query, category)
	if err != nil {
		repoLogger.Error("Failed to query listings", err, nil)
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	listings := make([]domain.Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate listings: %w", err)
	}
	repoLogger.Debug("Listings loaded.", port.Fields{"count": len(listings)})
	return listings, nil
}

func listingRow(l domain.Listing) ([]interface{}, error) {
	attrs, err := encodeAttributes(l.Attributes)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", l.ID, err)
	}
	return []interface{}{l.ID, l.Category, l.Title, l.VideoURL, l.ThumbURL, l.CreatedAt, attrs}, nil
}

func scanListing(row pgx.Row) (*domain.Listing, error) {
	var l domain.Listing
	var attrs []byte
	if err := row.Scan(&l.ID, &l.Category, &l.Title, &l.VideoURL, &l.ThumbURL, &l.CreatedAt, &attrs); err != nil {
		return nil, err
	}
	decoded, err := decodeAttributes(attrs)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", l.ID, err)
	}
	l.Attributes = decoded
	l.CreatedAt = l.CreatedAt.UTC()
	return &l, nil
}

// encodeAttributes keeps only strings and numbers, the only values facets compare.
func encodeAttributes(attrs map[string]any) ([]byte, error) {
	clean := make(map[string]any, len(attrs))
	for k, v := range attrs {
		switch v.(type) {
		case string, float64, float32, int, int32, int64, uint, uint32, uint64, json.Number:
			clean[k] = v
		case nil:
		default:
			return nil, fmt.Errorf("attribute %q has unsupported type %T", k, v)
		}
	}
	data, err := json.Marshal(clean)
	if err != nil {
		return nil, fmt.Errorf("failed to encode attributes: %w", err)
	}
	return data, nil
}

func decodeAttributes(data []byte) (map[string]any, error) {
	attrs := make(map[string]any)
	if len(data) == 0 {
		return attrs, nil
	}
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, fmt.Errorf("failed to decode attributes: %w", err)
	}
	return attrs, nil
}
