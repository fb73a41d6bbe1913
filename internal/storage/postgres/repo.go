// Package postgres implements a Postgres-backed storage.Sink on pgx v5.
// Batches are loaded with the COPY protocol straight into the target table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN   string // connection string for pgxpool
	Table string // target table, optionally schema-qualified, e.g. "public.events"
}

// Repository is a Postgres-backed storage.Sink.
type Repository struct {
	pool  *pgxpool.Pool
	table pgx.Identifier
}

// NewRepository parses the DSN, tags the connections with the application
// name and returns a Repository plus a func closing the pool. Connections
// are established lazily by the first statement.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	table := splitFQN(strings.TrimSpace(cfg.Table))
	if len(table) == 0 {
		return nil, nil, errors.New("postgres: table must not be empty")
	}
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: dsn: %w", err)
	}
	if _, ok := pcfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		pcfg.ConnConfig.RuntimeParams["application_name"] = "fastjsonl"
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: pool: %w", err)
	}
	return &Repository{pool: pool, table: table}, pool.Close, nil
}

// CopyFrom loads one batch with COPY. Values go to pgx unchanged so its
// codecs choose the wire encoding per column type.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := r.pool.CopyFrom(ctx, r.table, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, copyError(err)
	}
	return n, nil
}

// copyError surfaces the server's detail and SQLSTATE when present.
func copyError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("postgres: copy: %s (%s): %w", pgErr.Detail, pgErr.SQLState(), err)
	}
	return fmt.Errorf("postgres: copy: %w", err)
}

// splitFQN turns "public.events" into {"public", "events"}, dropping empty
// segments.
func splitFQN(fqn string) pgx.Identifier {
	var id pgx.Identifier
	for p := range strings.SplitSeq(fqn, ".") {
		if p = strings.TrimSpace(p); p != "" {
			id = append(id, p)
		}
	}
	return id
}

// Exec runs a statement that returns no rows.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("postgres: exec: %w", err)
	}
	return nil
}
