// internal/adapters/db/book_store.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ammerola/smartbook-be/internal/core/domain"
	"github.com/ammerola/smartbook-be/internal/core/ports"
)

// bookStore implements ports.BookStore over a pool or transaction.
type bookStore struct {
	q querier
}

var _ ports.BookStore = (*bookStore)(nil)

func (s *bookStore) FindByID(ctx context.Context, id int64) (*domain.Book, error) {
	query := `
		SELECT id, name, level, kind, publisher, edition, stock, created_at, updated_at
		FROM books
		WHERE id = $1`

	book := &domain.Book{}
	var level, publisher, edition sql.NullString
	err := s.q.QueryRow(ctx, query, id).Scan(
		&book.ID, &book.Name, &level, &book.Kind, &publisher, &edition,
		&book.Stock, &book.CreatedAt, &book.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find book %d: %w", id, err)
	}

	book.Level = level.String
	book.Publisher = publisher.String
	book.Edition = edition.String
	return book, nil
}

func (s *bookStore) UpdateStock(ctx context.Context, id int64, stock int) error {
	query := `UPDATE books SET stock = $2, updated_at = NOW() WHERE id = $1`

	if _, err := s.q.Exec(ctx, query, id, stock); err != nil {
		return fmt.Errorf("failed to update stock for book %d: %w", id, err)
	}
	return nil
}
