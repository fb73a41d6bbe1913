package ddl

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"fastjsonl/internal/column"
)

// FromSchema derives a TableDef for fqn from an Arrow target schema. Each
// field keeps its name; only fields marked column.Required become NOT NULL,
// since the converter fills missing keys with nulls. mapType renders its kind. Fields
// whose type the converter does not support are rejected.
func FromSchema(fqn string, schema *arrow.Schema, mapType func(column.Kind) string) (TableDef, error) {
	if strings.TrimSpace(fqn) == "" {
		return TableDef{}, fmt.Errorf("ddl: missing table")
	}
	if mapType == nil {
		return TableDef{}, fmt.Errorf("ddl: no type mapping")
	}
	defs := make([]ColumnDef, 0, schema.NumFields())
	for _, f := range schema.Fields() {
		k, ok := column.KindOf(f.Type)
		if !ok {
			return TableDef{}, fmt.Errorf("ddl: column %q has unsupported type %s", f.Name, f.Type)
		}
		defs = append(defs, ColumnDef{
			Name:     f.Name,
			SQLType:  mapType(k),
			Nullable: !column.Required(f),
		})
	}
	return TableDef{FQN: fqn, Columns: defs}, nil
}

// CreateTableSQL derives the table definition from schema with the dialect's
// type mapping and renders it.
func (d Dialect) CreateTableSQL(table string, schema *arrow.Schema) (string, error) {
	td, err := FromSchema(table, schema, d.MapType)
	if err != nil {
		return "", err
	}
	return d.BuildCreateTableSQL(td)
}
