package mssql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRepository_RejectsBadConfig(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, _, err := NewRepository(ctx, Config{DSN: "sqlserver://sa:pw@db:1433", Table: "  "})
	require.EqualError(t, err, "mssql: table must not be empty")

	_, _, err = NewRepository(ctx, Config{DSN: "sqlserver://[::1", Table: "dbo.events"})
	require.ErrorContains(t, err, "mssql: dsn")
}

func TestCopyFrom_EmptyBatch(t *testing.T) {
	t.Parallel()

	// An empty batch never touches the pool.
	n, err := (&Repository{}).CopyFrom(context.Background(), []string{"id"}, nil)
	require.NoError(t, err)
	require.Zero(t, n)
}
