// Package tableschema reads and writes target table schemas as YAML.
//
//	columns:
//	  - {name: id, type: int64, nullable: false}
//	  - {name: name, type: utf8}
//
// JSON is accepted as well since it is a YAML subset. Columns are nullable
// unless stated otherwise; a "nullable: false" column becomes a
// column.RequiredField and rejects rows whose value is missing or null.
package tableschema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"gopkg.in/yaml.v3"

	"fastjsonl/internal/column"
	"fastjsonl/internal/rowerr"
)

// File is the on-disk representation.
type File struct {
	Columns []Column `yaml:"columns"`
}

// Column is one entry of File.Columns.
type Column struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable *bool  `yaml:"nullable,omitempty"`
}

// Parse decodes a schema document into an Arrow schema. Unknown fields,
// unknown type names, empty names and duplicate names are schema type errors.
func Parse(data []byte) (*arrow.Schema, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, &rowerr.Error{
			Kind:    rowerr.KindSchemaType,
			Row:     rowerr.NoRow,
			Message: "decode table schema: " + err.Error(),
			Err:     err,
		}
	}
	return f.Schema()
}

// Load reads and parses the schema file at path.
func Load(path string) (*arrow.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table schema: %w", err)
	}
	return Parse(data)
}

// Schema converts f into an Arrow schema.
func (f File) Schema() (*arrow.Schema, error) {
	if len(f.Columns) == 0 {
		return nil, rowerr.New(rowerr.KindSchemaType, rowerr.NoRow, "table schema has no columns")
	}

	seen := make(map[string]bool, len(f.Columns))
	fields := make([]arrow.Field, 0, len(f.Columns))
	for i, c := range f.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, rowerr.New(rowerr.KindSchemaType, rowerr.NoRow, "column %d has no name", i)
		}
		if seen[name] {
			return nil, &rowerr.Error{Kind: rowerr.KindSchemaType, Row: rowerr.NoRow, Column: name, Message: "duplicate column name"}
		}
		seen[name] = true

		kind, ok := column.ParseKind(c.Type)
		if !ok {
			return nil, &rowerr.Error{
				Kind:    rowerr.KindSchemaType,
				Row:     rowerr.NoRow,
				Column:  name,
				Actual:  c.Type,
				Message: fmt.Sprintf("unsupported column type %q", c.Type),
			}
		}

		if c.Nullable != nil && !*c.Nullable {
			fields = append(fields, column.RequiredField(name, kind.DataType()))
			continue
		}
		fields = append(fields, arrow.Field{Name: name, Type: kind.DataType(), Nullable: true})
	}
	return arrow.NewSchema(fields, nil), nil
}

// FromSchema is the inverse of File.Schema. Only column.Required fields are
// written as "nullable: false"; Arrow's Nullable flag alone does not reject
// rows.
func FromSchema(s *arrow.Schema) (File, error) {
	var f File
	for _, fld := range s.Fields() {
		kind, ok := column.KindOf(fld.Type)
		if !ok {
			return File{}, &rowerr.Error{
				Kind:    rowerr.KindSchemaType,
				Row:     rowerr.NoRow,
				Column:  fld.Name,
				Actual:  fld.Type.String(),
				Message: "unsupported column type " + fld.Type.String(),
			}
		}
		c := Column{Name: fld.Name, Type: kind.String()}
		if column.Required(fld) {
			c.Nullable = new(bool)
		}
		f.Columns = append(f.Columns, c)
	}
	return f, nil
}

// Encode writes s in the format Parse reads.
func Encode(w io.Writer, s *arrow.Schema) error {
	f, err := FromSchema(s)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode table schema: %w", err)
	}
	return enc.Close()
}
