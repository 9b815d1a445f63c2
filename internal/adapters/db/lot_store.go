// internal/adapters/db/lot_store.go
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ammerola/smartbook-be/internal/core/domain"
	"github.com/ammerola/smartbook-be/internal/core/ports"
)

// lotStore implements ports.LotStore over a pool or transaction.
type lotStore struct {
	q querier
}

var _ ports.LotStore = (*lotStore)(nil)

const lotColumns = `id, book_id, lot_code, units_available, units_sold, created_at, updated_at`

func scanLot(row pgx.Row) (*domain.Lot, error) {
	lot := &domain.Lot{}
	err := row.Scan(
		&lot.ID, &lot.BookID, &lot.LotCode,
		&lot.UnitsAvailable, &lot.UnitsSold,
		&lot.CreatedAt, &lot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return lot, nil
}

func (s *lotStore) FindByBookAndCode(ctx context.Context, bookID int64, lotCode string) (*domain.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE book_id = $1 AND lot_code = $2`

	lot, err := scanLot(s.q.QueryRow(ctx, query, bookID, lotCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find lot %s for book %d: %w", lotCode, bookID, err)
	}
	return lot, nil
}

func (s *lotStore) FindSufficientLot(ctx context.Context, bookID int64, units int) (*domain.Lot, error) {
	query := `
		SELECT ` + lotColumns + `
		FROM lots
		WHERE book_id = $1 AND units_available >= $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	lot, err := scanLot(s.q.QueryRow(ctx, query, bookID, units))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find sufficient lot for book %d: %w", bookID, err)
	}
	return lot, nil
}

func (s *lotStore) FindAvailableByBook(ctx context.Context, bookID int64) ([]domain.Lot, error) {
	query := `
		SELECT ` + lotColumns + `
		FROM lots
		WHERE book_id = $1 AND units_available > 0
		ORDER BY created_at DESC, id DESC`

	rows, err := s.q.Query(ctx, query, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lots for book %d: %w", bookID, err)
	}
	defer rows.Close()

	var lots []domain.Lot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lot: %w", err)
		}
		lots = append(lots, *lot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lots for book %d: %w", bookID, err)
	}
	return lots, nil
}

func (s *lotStore) FindByCode(ctx context.Context, lotCode string) ([]domain.Lot, error) {
	query := `
		SELECT l.id, l.book_id, l.lot_code, l.units_available, l.units_sold,
		       l.created_at, l.updated_at, b.name
		FROM lots l
		JOIN books b ON b.id = l.book_id
		WHERE l.lot_code = $1
		ORDER BY b.name, l.id`

	rows, err := s.q.Query(ctx, query, lotCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list lots with code %s: %w", lotCode, err)
	}
	defer rows.Close()

	var lots []domain.Lot
	for rows.Next() {
		var lot domain.Lot
		err := rows.Scan(
			&lot.ID, &lot.BookID, &lot.LotCode,
			&lot.UnitsAvailable, &lot.UnitsSold,
			&lot.CreatedAt, &lot.UpdatedAt,
			&lot.BookName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lot: %w", err)
		}
		lots = append(lots, lot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lots with code %s: %w", lotCode, err)
	}
	return lots, nil
}

func (s *lotStore) SumAvailableByBook(ctx context.Context, bookID int64) (int, error) {
	query := `SELECT COALESCE(SUM(units_available), 0) FROM lots WHERE book_id = $1`

	var total int
	if err := s.q.QueryRow(ctx, query, bookID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum availability for book %d: %w", bookID, err)
	}
	return total, nil
}

// Save inserts the (book, lot code) row, or tops up the existing row when
// the pair is already present. The data-repair path can hand it a code
// whose row exists fully drained; a plain insert would trip the unique
// constraint there. The lot's counters are scanned back from the stored
// row either way.
func (s *lotStore) Save(ctx context.Context, lot *domain.Lot) error {
	query := `
		INSERT INTO lots (book_id, lot_code, units_available, units_sold)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (book_id, lot_code) DO UPDATE
		SET units_available = lots.units_available + EXCLUDED.units_available,
		    updated_at = NOW()
		RETURNING id, units_available, units_sold, created_at`

	err := s.q.QueryRow(ctx, query,
		lot.BookID, lot.LotCode, lot.UnitsAvailable, lot.UnitsSold,
	).Scan(&lot.ID, &lot.UnitsAvailable, &lot.UnitsSold, &lot.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save lot %s for book %d: %w", lot.LotCode, lot.BookID, err)
	}
	return nil
}

func (s *lotStore) AddUnits(ctx context.Context, lotID int64, units int) error {
	query := `
		UPDATE lots
		SET units_available = units_available + $2, updated_at = NOW()
		WHERE id = $1`

	if _, err := s.q.Exec(ctx, query, lotID, units); err != nil {
		return fmt.Errorf("failed to add %d units to lot %d: %w", units, lotID, err)
	}
	return nil
}

// TakeUnits decrements availability only when the lot still holds enough
// units. Zero rows affected means a concurrent sale got there first; the
// caller aborts its transaction on false.
func (s *lotStore) TakeUnits(ctx context.Context, lotID int64, units int) (bool, error) {
	query := `
		UPDATE lots
		SET units_available = units_available - $2,
		    units_sold = units_sold + $2,
		    updated_at = NOW()
		WHERE id = $1 AND units_available >= $2`

	tag, err := s.q.Exec(ctx, query, lotID, units)
	if err != nil {
		return false, fmt.Errorf("failed to take %d units from lot %d: %w", units, lotID, err)
	}
	return tag.RowsAffected() > 0, nil
}
