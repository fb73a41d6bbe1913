// Package ddl holds the MySQL dialect: backtick-quoted identifiers and
// CREATE TABLE IF NOT EXISTS.
package ddl

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"fastjsonl/internal/column"
	gddl "fastjsonl/internal/ddl"
	"fastjsonl/internal/storage"
)

// MapType maps a column kind to a MySQL type.
func MapType(k column.Kind) string {
	switch k {
	case column.Int8:
		return "TINYINT"
	case column.Int16:
		return "SMALLINT"
	case column.Int32:
		return "INT"
	case column.Int64:
		return "BIGINT"
	case column.Float16, column.Float32:
		return "FLOAT"
	case column.Float64:
		return "DOUBLE"
	case column.Bool:
		return "BOOLEAN"
	case column.LargeText:
		return "LONGTEXT"
	default:
		return "TEXT"
	}
}

// Dialect renders MySQL DDL.
var Dialect = gddl.Dialect{
	Name:  "mysql ddl",
	Quote: gddl.QuoteWith("`", "`"),
	Wrap: func(fqn, body string) string {
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", fqn, body)
	},
	MapType: MapType,
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
