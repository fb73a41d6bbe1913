package ddl

import "fastjsonl/internal/column"

// ColumnDef describes one column of a table definition.
//
// Name is unquoted; quoting happens when a Dialect renders it.
type ColumnDef struct {
	Name     string
	SQLType  string
	Nullable bool
}

// TableDef holds the table name, possibly schema-qualified ("schema.table"),
// and its columns in order.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// Dialect captures what differs between SQL backends when creating a table.
// The zero Dialect renders a plain, unquoted CREATE TABLE.
type Dialect struct {
	// Name prefixes error messages, e.g. "sqlite ddl".
	Name string

	// Quote quotes one identifier segment. Nil leaves names as-is.
	Quote func(string) string

	// Wrap turns the quoted table name and the column clause into the final
	// statement. Nil renders "CREATE TABLE <fqn> (\n  <body>\n);".
	Wrap func(fqn, body string) string

	// Indent separates column clauses. Empty means two spaces.
	Indent string

	// MapType renders a column kind in the backend's SQL type system.
	MapType func(column.Kind) string
}
