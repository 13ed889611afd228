package postgres

import (
	"errors"
	"fmt"

	"catalog-service/internal/core/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes of rows the listings table refuses.
const (
	pgNotNullViolation  = "23502"
	pgCheckViolation    = "23514"
	pgStringTooLong     = "22001"
	pgInvalidTextFormat = "22P02"
)

// constraintError marks rows rejected by the table constraints as invalid listings.
func constraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgNotNullViolation, pgCheckViolation, pgStringTooLong, pgInvalidTextFormat:
		return fmt.Errorf("%w: %w", domain.ErrInvalidListing, err)
	}
	return err
}
