// internal/adapters/db/intake_store.go
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/ammerola/smartbook-be/internal/core/domain"
	"github.com/ammerola/smartbook-be/internal/core/ports"
)

// intakeStore implements ports.IntakeStore over a pool or transaction.
type intakeStore struct {
	q querier
}

var _ ports.IntakeStore = (*intakeStore)(nil)

const intakeColumns = `i.id, i.book_id, i.lot_code, i.units, i.purchase_cost, i.sale_price, i.received_at, i.created_at, b.name`

func scanIntake(row pgx.Row) (*domain.Intake, error) {
	intake := &domain.Intake{}
	err := row.Scan(
		&intake.ID, &intake.BookID, &intake.LotCode, &intake.Units,
		&intake.PurchaseCost, &intake.SalePrice,
		&intake.ReceivedAt, &intake.CreatedAt, &intake.BookName,
	)
	if err != nil {
		return nil, err
	}
	return intake, nil
}

func (s *intakeStore) Save(ctx context.Context, intake *domain.Intake) error {
	query := `
		INSERT INTO intakes (book_id, lot_code, units, purchase_cost, sale_price, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := s.q.QueryRow(ctx, query,
		intake.BookID, intake.LotCode, intake.Units,
		intake.PurchaseCost, intake.SalePrice, intake.ReceivedAt,
	).Scan(&intake.ID, &intake.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save intake for book %d: %w", intake.BookID, err)
	}
	return nil
}

func (s *intakeStore) FindByID(ctx context.Context, id int64) (*domain.Intake, error) {
	query := `
		SELECT ` + intakeColumns + `
		FROM intakes i
		JOIN books b ON b.id = i.book_id
		WHERE i.id = $1`

	intake, err := scanIntake(s.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find intake %d: %w", id, err)
	}
	return intake, nil
}

func (s *intakeStore) LatestByBookAndLot(ctx context.Context, bookID int64, lotCode string) (*domain.Intake, error) {
	query := `
		SELECT ` + intakeColumns + `
		FROM intakes i
		JOIN books b ON b.id = i.book_id
		WHERE i.book_id = $1 AND i.lot_code = $2
		ORDER BY i.received_at DESC, i.id DESC
		LIMIT 1`

	intake, err := scanIntake(s.q.QueryRow(ctx, query, bookID, lotCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find latest intake for book %d lot %s: %w", bookID, lotCode, err)
	}
	return intake, nil
}

func (s *intakeStore) LatestByBook(ctx context.Context, bookID int64) (*domain.Intake, error) {
	query := `
		SELECT ` + intakeColumns + `
		FROM intakes i
		JOIN books b ON b.id = i.book_id
		WHERE i.book_id = $1
		ORDER BY i.received_at DESC, i.id DESC
		LIMIT 1`

	intake, err := scanIntake(s.q.QueryRow(ctx, query, bookID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find latest intake for book %d: %w", bookID, err)
	}
	return intake, nil
}

func (s *intakeStore) Search(ctx context.Context, params ports.IntakeSearchParams) ([]domain.Intake, error) {
	qb := squirrel.Select(
		"i.id", "i.book_id", "i.lot_code", "i.units",
		"i.purchase_cost", "i.sale_price", "i.received_at", "i.created_at",
		"b.name",
	).From("intakes i").
		Join("books b ON b.id = i.book_id").
		PlaceholderFormat(squirrel.Dollar)

	if !params.From.IsZero() {
		qb = qb.Where(squirrel.GtOrEq{"i.received_at": params.From})
	}
	if !params.To.IsZero() {
		qb = qb.Where(squirrel.LtOrEq{"i.received_at": params.To})
	}
	if params.LotCode != "" {
		qb = qb.Where(squirrel.Eq{"i.lot_code": params.LotCode})
	}
	if params.BookID != 0 {
		qb = qb.Where(squirrel.Eq{"i.book_id": params.BookID})
	}
	qb = qb.OrderBy("i.received_at DESC", "i.id DESC")

	sqlQuery, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build intake search query: %w", err)
	}

	rows, err := s.q.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search intakes: %w", err)
	}
	defer rows.Close()

	var intakes []domain.Intake
	for rows.Next() {
		intake, err := scanIntake(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan intake: %w", err)
		}
		intakes = append(intakes, *intake)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read intakes: %w", err)
	}
	return intakes, nil
}

// NextLotCode walks the year's period sequence. Period 2 closes the year:
// once it has been used the sequence moves to period 1 of the following
// year, regardless of whether period 1 was ever used.
func (s *intakeStore) NextLotCode(ctx context.Context, year int) (string, error) {
	query := `SELECT EXISTS(SELECT 1 FROM intakes WHERE lot_code = $1)`

	second := domain.PeriodLotCode(year, 2)
	var secondUsed bool
	if err := s.q.QueryRow(ctx, query, second).Scan(&secondUsed); err != nil {
		return "", fmt.Errorf("failed to check lot code %s: %w", second, err)
	}
	if secondUsed {
		return domain.PeriodLotCode(year+1, 1), nil
	}

	first := domain.PeriodLotCode(year, 1)
	var firstUsed bool
	if err := s.q.QueryRow(ctx, query, first).Scan(&firstUsed); err != nil {
		return "", fmt.Errorf("failed to check lot code %s: %w", first, err)
	}
	if !firstUsed {
		return first, nil
	}
	return second, nil
}
