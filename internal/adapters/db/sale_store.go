// internal/adapters/db/sale_store.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/ammerola/smartbook-be/internal/core/domain"
	"github.com/ammerola/smartbook-be/internal/core/ports"
)

// saleStore implements ports.SaleStore over a pool or transaction.
type saleStore struct {
	q querier
}

var _ ports.SaleStore = (*saleStore)(nil)

func (s *saleStore) SaveHeader(ctx context.Context, sale *domain.Sale) error {
	query := `
		INSERT INTO sales (receipt_number, sale_date, customer_id, user_id, notes, total)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := s.q.QueryRow(ctx, query,
		sale.ReceiptNumber, sale.Date, sale.CustomerID, sale.UserID,
		sale.Notes, sale.Total,
	).Scan(&sale.ID, &sale.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save sale header: %w", err)
	}
	return nil
}

func (s *saleStore) UpdateReceiptNumber(ctx context.Context, saleID int64, receiptNumber string) error {
	tag, err := s.q.Exec(ctx, `UPDATE sales SET receipt_number = $2 WHERE id = $1`, saleID, receiptNumber)
	if err != nil {
		return fmt.Errorf("failed to set receipt number of sale %d: %w", saleID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to set receipt number: sale %d not found", saleID)
	}
	return nil
}

func (s *saleStore) SaveLines(ctx context.Context, saleID int64, lines []domain.SaleLine) error {
	if len(lines) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO sale_lines (sale_id, book_id, lot_code, units, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, line := range lines {
		batch.Queue(query, saleID, line.BookID, line.LotCode, line.Units, line.UnitPrice, line.Subtotal)
	}

	results := s.q.SendBatch(ctx, batch)
	defer results.Close()

	for i := range lines {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to save sale line %d of sale %d: %w", i+1, saleID, err)
		}
	}
	return nil
}

func (s *saleStore) FindWithLines(ctx context.Context, id int64) (*domain.Sale, error) {
	headerQuery := `
		SELECT s.id, s.receipt_number, s.sale_date, s.customer_id, s.user_id,
		       s.notes, s.total, s.created_at,
		       c.name, c.document_id, u.name
		FROM sales s
		JOIN customers c ON c.id = s.customer_id
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1`

	sale := &domain.Sale{}
	var notes sql.NullString
	err := s.q.QueryRow(ctx, headerQuery, id).Scan(
		&sale.ID, &sale.ReceiptNumber, &sale.Date, &sale.CustomerID, &sale.UserID,
		&notes, &sale.Total, &sale.CreatedAt,
		&sale.CustomerName, &sale.CustomerDocumentID, &sale.UserName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find sale %d: %w", id, err)
	}
	sale.Notes = notes.String

	linesQuery := `
		SELECT l.id, l.sale_id, l.book_id, l.lot_code, l.units, l.unit_price, l.subtotal, b.name
		FROM sale_lines l
		JOIN books b ON b.id = l.book_id
		WHERE l.sale_id = $1
		ORDER BY l.id`

	rows, err := s.q.Query(ctx, linesQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load lines of sale %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		line := domain.SaleLine{}
		err := rows.Scan(
			&line.ID, &line.SaleID, &line.BookID, &line.LotCode,
			&line.Units, &line.UnitPrice, &line.Subtotal, &line.BookName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale line: %w", err)
		}
		sale.Lines = append(sale.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lines of sale %d: %w", id, err)
	}
	return sale, nil
}

func (s *saleStore) Search(ctx context.Context, params ports.SaleSearchParams) ([]domain.SaleSummary, error) {
	qb := squirrel.Select(
		"s.id", "s.receipt_number", "s.sale_date", "s.customer_id", "c.name", "s.total",
	).From("sales s").
		Join("customers c ON c.id = s.customer_id").
		PlaceholderFormat(squirrel.Dollar)

	if !params.From.IsZero() {
		qb = qb.Where(squirrel.GtOrEq{"s.sale_date": params.From})
	}
	if !params.To.IsZero() {
		qb = qb.Where(squirrel.LtOrEq{"s.sale_date": params.To})
	}
	if params.CustomerDocumentID != "" {
		qb = qb.Where("LOWER(c.document_id) = LOWER(?)", params.CustomerDocumentID)
	}
	if params.BookID != 0 {
		qb = qb.Where("EXISTS(SELECT 1 FROM sale_lines l WHERE l.sale_id = s.id AND l.book_id = ?)", params.BookID)
	}
	qb = qb.OrderBy("s.sale_date DESC", "s.id DESC")

	sqlQuery, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build sale search query: %w", err)
	}

	rows, err := s.q.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search sales: %w", err)
	}
	defer rows.Close()

	var summaries []domain.SaleSummary
	for rows.Next() {
		summary := domain.SaleSummary{}
		err := rows.Scan(
			&summary.ID, &summary.ReceiptNumber, &summary.Date,
			&summary.CustomerID, &summary.CustomerName, &summary.Total,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale summary: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sale summaries: %w", err)
	}
	return summaries, nil
}
