// internal/core/ports/database.go
package ports

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Database is the low-level database port used by infrastructure code
// (health checks, seeding, table maintenance) that works below the
// per-aggregate stores. Domain code goes through TxRunner instead.
type Database interface {
	Pool() *pgxpool.Pool
	Ping(ctx context.Context) error
	// Health reports pool statistics and connectivity for readiness probes.
	Health(ctx context.Context) map[string]interface{}
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Close()
}
