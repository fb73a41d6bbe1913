// Package ddl holds the SQLite dialect: double-quoted identifiers,
// CREATE TABLE IF NOT EXISTS, and type affinities for each column kind.
package ddl

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"fastjsonl/internal/column"
	gddl "fastjsonl/internal/ddl"
	"fastjsonl/internal/storage"
)

// MapType maps a column kind to a SQLite type affinity. Booleans are stored
// as INTEGER 0/1.
func MapType(k column.Kind) string {
	switch {
	case k.IsInteger(), k == column.Bool:
		return "INTEGER"
	case k.IsFloat():
		return "REAL"
	default:
		return "TEXT"
	}
}

// Dialect renders SQLite DDL.
var Dialect = gddl.Dialect{
	Name:  "sqlite ddl",
	Quote: gddl.QuoteWith(`"`, `"`),
	Wrap: func(fqn, body string) string {
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", fqn, body)
	},
	MapType: MapType,
}

// BuildCreateTableSQL renders a CREATE TABLE IF NOT EXISTS statement for t.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	return Dialect.BuildCreateTableSQL(t)
}

// EnsureTable creates table from schema if it does not exist.
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
