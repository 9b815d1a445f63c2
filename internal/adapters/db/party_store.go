// internal/adapters/db/party_store.go
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

// customerStore implements ports.CustomerStore over a pool or transaction.
type customerStore struct {
	q querier
}

var _ ports.CustomerStore = (*customerStore)(nil)

func (s *customerStore) FindByID(ctx context.Context, id int64) (*domain.Customer, error) {
	query := `
		SELECT id, document_id, name, email, phone, birth_date, created_at
		FROM customers
		WHERE id = $1`

	customer := &domain.Customer{}
	var phone sql.NullString
	var birthDate sql.NullTime
	err := s.q.QueryRow(ctx, query, id).Scan(
		&customer.ID, &customer.DocumentID, &customer.Name, &customer.Email,
		&phone, &birthDate, &customer.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find customer %d: %w", id, err)
	}

	customer.Phone = phone.String
	customer.BirthDate = birthDate.Time
	return customer, nil
}

func (s *customerStore) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.q.Query(ctx, `SELECT id FROM customers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list customer ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan customer id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read customer ids: %w", err)
	}
	return ids, nil
}

// userStore implements ports.UserStore over a pool or transaction.
type userStore struct {
	q querier
}

var _ ports.UserStore = (*userStore)(nil)

func (s *userStore) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `
		SELECT id, document_id, name, email, role, active, created_at
		FROM users
		WHERE id = $1`

	user := &domain.User{}
	err := s.q.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.DocumentID, &user.Name, &user.Email,
		&user.Role, &user.Active, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user %d: %w", id, err)
	}
	return user, nil
}
