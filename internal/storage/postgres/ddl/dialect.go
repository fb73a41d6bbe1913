// Package ddl holds the Postgres dialect.
package ddl

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"fastjsonl/internal/column"
	gddl "fastjsonl/internal/ddl"
	"fastjsonl/internal/storage"
)

// MapType maps a column kind to a Postgres type. Postgres has no one-byte
// integer, so int8 widens to SMALLINT; float16 widens to REAL.
func MapType(k column.Kind) string {
	switch k {
	case column.Int8, column.Int16:
		return "SMALLINT"
	case column.Int32:
		return "INTEGER"
	case column.Int64:
		return "BIGINT"
	case column.Float16, column.Float32:
		return "REAL"
	case column.Float64:
		return "DOUBLE PRECISION"
	case column.Bool:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// Dialect renders Postgres DDL with double-quoted identifiers and
// CREATE TABLE IF NOT EXISTS.
var Dialect = gddl.Dialect{
	Name:  "postgres ddl",
	Quote: gddl.QuoteWith(`"`, `"`),
	Wrap: func(fqn, body string) string {
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", fqn, body)
	},
	MapType: MapType,
}

// BuildCreateTableSQL renders t for Postgres.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	return Dialect.BuildCreateTableSQL(t)
}

// EnsureTable creates table from schema if it does not exist. It is
// idempotent.
func EnsureTable(ctx context.Context, repo storage.Execer, table string, schema *arrow.Schema) error {
	sql, err := Dialect.CreateTableSQL(table, schema)
	if err != nil {
		return err
	}
	if err := repo.Exec(ctx, sql); err != nil {
		return fmt.Errorf("apply DDL: %w", err)
	}
	return nil
}
