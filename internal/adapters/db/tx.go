// internal/adapters/db/tx.go
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ammerola/smartbook-be/internal/core/ports"
)

// querier is the query surface shared by the pool and an open transaction,
// so one store implementation serves both scopes.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// TxRunner implements ports.TxRunner on top of Database: pool-backed
// stores for plain reads, pgx transactions for InTx.
type TxRunner struct {
	db *Database
}

var _ ports.TxRunner = (*TxRunner)(nil)

// NewTxRunner creates a transaction runner over the database.
func NewTxRunner(database *Database) *TxRunner {
	return &TxRunner{db: database}
}

// Stores returns stores bound to the connection pool.
func (r *TxRunner) Stores() ports.Stores {
	return storesOver(r.db.pool)
}

// InTx runs fn with stores bound to a single transaction. An error from fn
// rolls every write back.
func (r *TxRunner) InTx(ctx context.Context, fn func(ctx context.Context, st ports.Stores) error) error {
	return r.db.Transaction(ctx, func(tx pgx.Tx) error {
		return fn(ctx, storesOver(tx))
	})
}

func storesOver(q querier) ports.Stores {
	return ports.Stores{
		Books:     &bookStore{q: q},
		Lots:      &lotStore{q: q},
		Intakes:   &intakeStore{q: q},
		Sales:     &saleStore{q: q},
		Customers: &customerStore{q: q},
		Users:     &userStore{q: q},
	}
}
