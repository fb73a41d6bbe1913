// Package ddl holds the SQL Server dialect: bracket-quoted identifiers and
// an IF OBJECT_ID(...) IS NULL guard, since T-SQL has no
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

// MapType maps a column kind to a SQL Server type. TINYINT is unsigned in
// SQL Server, so int8 widens to SMALLINT.
func MapType(k column.Kind) string {
	switch k {
	case column.Int8, column.Int16:
		return "SMALLINT"
	case column.Int32:
		return "INT"
	case column.Int64:
		return "BIGINT"
	case column.Float16, column.Float32:
		return "REAL"
	case column.Float64:
		return "FLOAT"
	case column.Bool:
		return "BIT"
	default:
		return "NVARCHAR(MAX)"
	}
}

// Dialect renders T-SQL DDL.
//
//	IF OBJECT_ID(N'[dbo].[events]', N'U') IS NULL
//	BEGIN
//	  CREATE TABLE [dbo].[events] (
//	    [id] BIGINT NOT NULL
//	  );
//	END;
var Dialect = gddl.Dialect{
	Name:   "mssql ddl",
	Quote:  gddl.QuoteWith("[", "]"),
	Indent: "    ",
	Wrap: func(fqn, body string) string {
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %s (\n    %s\n  );\nEND;", fqn, fqn, body)
	},
	MapType: MapType,
}

// BuildCreateTableSQL renders t for SQL Server.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	return Dialect.BuildCreateTableSQL(t)
}

// EnsureTable creates table from schema if it does not already exist.
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
