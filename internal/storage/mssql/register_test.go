package mssql

import (
	"context"
	"errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/require"

	"fastjsonl/internal/storage"
)

type execRecorder struct{ stmts []string }

func (e *execRecorder) Exec(_ context.Context, sql string) error {
	e.stmts = append(e.stmts, sql)
	return nil
}

// TestRegistered swaps newRepository; it must not run in parallel.
func TestRegistered(t *testing.T) {
	orig := newRepository
	t.Cleanup(func() { newRepository = orig })

	var got Config
	closes := 0
	newRepository = func(_ context.Context, cfg Config) (*Repository, func(), error) {
		got = cfg
		return &Repository{}, func() { closes++ }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{Kind: "mssql", DSN: "sqlserver://sa:secret@db:1433?database=raw", Table: "dbo.events"})
	require.NoError(t, err)
	require.Equal(t, Config{DSN: "sqlserver://sa:secret@db:1433?database=raw", Table: "dbo.events"}, got)
	repo.Close()
	require.Equal(t, 1, closes)

	errOpen := errors.New("connection refused")
	newRepository = func(context.Context, Config) (*Repository, func(), error) { return nil, nil, errOpen }
	_, err = storage.New(context.Background(), storage.Config{Kind: "mssql", Table: "dbo.events"})
	require.ErrorIs(t, err, errOpen)
}

func TestRegisteredDDL(t *testing.T) {
	t.Parallel()

	schema := arrow.NewSchema([]arrow.Field{{Name: "id", Type: arrow.PrimitiveTypes.Int64}}, nil)
	rec := &execRecorder{}
	require.NoError(t, storage.EnsureTable(context.Background(), "mssql", rec, "dbo.events", schema))
	require.Len(t, rec.stmts, 1)
	require.Contains(t, rec.stmts[0], `IF OBJECT_ID(N'[dbo].[events]', N'U') IS NULL`)
}
