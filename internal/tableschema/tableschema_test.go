package tableschema

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"

	"fastjsonl/internal/column"
	"fastjsonl/internal/rowerr"
)

func TestParse_YAML(t *testing.T) {
	doc := `
columns:
  - {name: id, type: int64, nullable: false}
  - name: name
    type: utf8
  - {name: score, type: double}
  - {name: body, type: large_text}
`
	s, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := arrow.NewSchema([]arrow.Field{
		column.RequiredField("id", arrow.PrimitiveTypes.Int64),
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "score", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "body", Type: arrow.BinaryTypes.LargeString, Nullable: true},
	}, nil)
	if !s.Equal(want) {
		t.Fatalf("schema = %s\nwant %s", s, want)
	}
}

func TestParse_JSONSubset(t *testing.T) {
	s, err := Parse([]byte(`{"columns":[{"name":"ok","type":"bool"}]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.NumFields() != 1 || s.Field(0).Type.ID() != arrow.BOOL {
		t.Fatalf("unexpected schema %s", s)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		column string
	}{
		{"empty", ``, ""},
		{"no_columns", `columns: []`, ""},
		{"unknown_type", `columns: [{name: a, type: uint8}]`, "a"},
		{"duplicate", `columns: [{name: a, type: int8}, {name: a, type: int16}]`, "a"},
		{"missing_name", `columns: [{type: int8}]`, ""},
		{"unknown_field", `columns: [{name: a, type: int8, width: 3}]`, ""},
		{"not_yaml", `columns: [`, ""},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			e, ok := rowerr.As(err)
			if !ok {
				t.Fatalf("Parse(%q) err = %v; want *rowerr.Error", tc.doc, err)
			}
			if e.Kind != rowerr.KindSchemaType {
				t.Fatalf("kind = %v; want schema type error", e.Kind)
			}
			if e.Column != tc.column {
				t.Fatalf("column = %q; want %q", e.Column, tc.column)
			}
		})
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	s := arrow.NewSchema([]arrow.Field{
		column.RequiredField("a", arrow.PrimitiveTypes.Int8),
		{Name: "b", Type: arrow.FixedWidthTypes.Float16, Nullable: true},
		{Name: "c", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)

	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("Parse(%s): %v", buf.String(), err)
	}
	if !got.Equal(s) {
		t.Fatalf("round trip = %s\nwant %s", got, s)
	}
}

func TestEncode_PlainFieldStaysNullable(t *testing.T) {
	s := arrow.NewSchema([]arrow.Field{{Name: "a", Type: arrow.PrimitiveTypes.Int8}}, nil)

	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if bytes.Contains(buf.Bytes(), []byte("nullable")) {
		t.Fatalf("plain field encoded as required:\n%s", buf.String())
	}
	got, err := Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if column.Required(got.Field(0)) || !got.Field(0).Nullable {
		t.Fatalf("field = %v; want nullable", got.Field(0))
	}
}

func TestEncode_Unsupported(t *testing.T) {
	s := arrow.NewSchema([]arrow.Field{{Name: "d", Type: arrow.FixedWidthTypes.Date32}}, nil)
	if err := Encode(&bytes.Buffer{}, s); !rowerr.Is(err, rowerr.KindSchemaType) {
		t.Fatalf("Encode err = %v; want schema type error", err)
	}
}

func TestLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "t.yaml")
	if err := os.WriteFile(p, []byte("columns:\n  - {name: x, type: int32}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Field(0).Name != "x" {
		t.Fatalf("field = %v", s.Field(0))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
