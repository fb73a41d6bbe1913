// Package ddl is a small model for SQL table definitions plus the pieces
// that turn an Arrow target schema into a CREATE TABLE statement.
//
// Backends (internal/storage/<kind>/ddl) describe their quoting, guard
// syntax and type mapping as a Dialect; everything else is shared:
//
//	td, err := ddl.FromSchema("events", schema, dialect.MapType)
//	sql, err := dialect.BuildCreateTableSQL(td)
package ddl

import (
	"fmt"
	"strings"
)

// BuildCreateTableSQL renders t in the dialect.
//
// t.FQN and every column name and SQLType must be non-empty after trimming.
// NOT NULL is added for non-nullable columns.
func (d Dialect) BuildCreateTableSQL(t TableDef) (string, error) {
	prefix := d.Name
	if prefix == "" {
		prefix = "ddl"
	}
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s: table FQN must not be empty", prefix)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s: at least one column is required", prefix)
	}

	cols := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s: column with empty name in table %s", prefix, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("%s: column %s missing SQLType", prefix, name)
		}

		var sb strings.Builder
		sb.WriteString(d.quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())
	}

	indent := d.Indent
	if indent == "" {
		indent = "  "
	}
	body := strings.Join(cols, ",\n"+indent)
	if d.Wrap != nil {
		return d.Wrap(d.QuoteFQN(fqn), body), nil
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s%s\n);", d.QuoteFQN(fqn), indent, body), nil
}

// QuoteFQN quotes each dot-separated segment of a table name. Empty segments
// are dropped.
func (d Dialect) QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.quote(p))
	}
	return strings.Join(out, ".")
}

func (d Dialect) quote(id string) string {
	if d.Quote == nil {
		return id
	}
	return d.Quote(id)
}

// QuoteWith returns a Quote function that wraps identifiers in open and end and
// doubles any embedded end character.
func QuoteWith(open, end string) func(string) string {
	return func(id string) string {
		return open + strings.ReplaceAll(id, end, end+end) + end
	}
}
