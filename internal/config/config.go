// Package config defines the JSON-serializable job model for fastjsonl.
//
// A job names one NDJSON input, the JSON Schema every line is validated
// against, the target table schema the lines are converted into, and where the
// finished table goes. Jobs are decoded with the standard library; the
// free-form Options bag gives typed access to parser settings.
//
// Example:
//
//	{
//	  "job": "events",
//	  "input":         { "path": "events.ndjson" },
//	  "json_schema":   { "path": "events.schema.json" },
//	  "target_schema": { "path": "events.table.yaml" },
//	  "parser":  { "options": { "allow_blank_lines": false } },
//	  "runtime": { "policy": "abort", "workers": 4 },
//	  "storage": { "kind": "sqlite", "db": { "dsn": "out.db", "table": "events", "auto_create_table": true } }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Job is the top-level object decoded from a job file.
type Job struct {
	// Job labels metrics and log lines for this run.
	Job string `json:"job"`

	Input        Input         `json:"input"`
	JSONSchema   Document      `json:"json_schema"`
	TargetSchema Document      `json:"target_schema"`
	Parser       Parser        `json:"parser"`
	Runtime      RuntimeConfig `json:"runtime"`
	Storage      Storage       `json:"storage"`
}

// Input locates the NDJSON buffer. Exactly one of Path or URL is set.
type Input struct {
	// Path is a local file; "-" means standard input.
	Path string `json:"path"`

	// URL is fetched over HTTP(S) with retries.
	URL string `json:"url"`

	// Headers are added to the HTTP request when URL is set.
	Headers map[string]string `json:"headers"`

	// Retries is the number of extra attempts for a URL after a transport
	// error or a 429/5xx response. 0 means 3.
	Retries int `json:"retries"`
}

// Document references a schema document either on disk or inline. Inline
// documents are raw JSON; for the target schema JSON is read as YAML.
type Document struct {
	Path   string          `json:"path"`
	Inline json.RawMessage `json:"inline"`
}

// IsZero reports whether neither a path nor an inline document is set.
func (d Document) IsZero() bool { return d.Path == "" && len(d.Inline) == 0 }

// Load returns the document bytes. Relative paths resolve against baseDir.
func (d Document) Load(baseDir string) ([]byte, error) {
	if len(d.Inline) > 0 {
		return d.Inline, nil
	}
	if d.Path == "" {
		return nil, fmt.Errorf("document has neither path nor inline content")
	}
	p := d.Path
	if !filepath.IsAbs(p) && baseDir != "" {
		p = filepath.Join(baseDir, p)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return b, nil
}

// Parser carries line decoding settings.
type Parser struct {
	// Options is interpreted by the JSON line parser:
	//   allow_blank_lines (bool), header_map (object)
	Options Options `json:"options"`
}

// RuntimeConfig controls error policy and parallelism.
type RuntimeConfig struct {
	// Policy is one of "abort" (default), "skip" or "collect".
	Policy string `json:"policy"`

	// Workers > 1 converts contiguous chunks of lines in parallel.
	Workers int `json:"workers"`

	// MaxErrors bounds the errors kept by the "collect" policy (0 = unbounded).
	MaxErrors int `json:"max_errors"`

	// SkipValidation converts without consulting the JSON Schema.
	SkipValidation bool `json:"skip_validation"`

	// Draft selects the JSON Schema draft used when the schema has no
	// $schema keyword: "4", "6", "7", "2019-09" or "2020-12" (default).
	Draft string `json:"draft"`

	// AssertFormat turns "format" into an assertion.
	AssertFormat bool `json:"assert_format"`

	// Lang is a BCP 47 tag selecting the language of validation messages.
	// Empty means English.
	Lang string `json:"lang"`

	// BatchSize is the number of rows per bulk insert into SQL sinks.
	BatchSize int `json:"batch_size"`
}

// Storage selects where the converted table is written.
type Storage struct {
	// Kind is one of "arrow", "sqlite", "postgres", "mssql", "mysql".
	Kind string `json:"kind"`

	// DB configures the SQL sinks.
	DB DBConfig `json:"db"`

	// Arrow configures the Arrow IPC file sink.
	Arrow ArrowConfig `json:"arrow"`
}

// DBConfig configures a SQL sink.
type DBConfig struct {
	// DSN is passed to the backend driver unchanged.
	DSN string `json:"dsn"`

	// Table is the destination table, optionally schema-qualified. When
	// empty it is derived from the input file name.
	Table string `json:"table"`

	// AutoCreateTable issues CREATE TABLE IF NOT EXISTS derived from the
	// target schema before loading.
	AutoCreateTable bool `json:"auto_create_table"`
}

// ArrowConfig configures the Arrow IPC file sink.
type ArrowConfig struct {
	Path string `json:"path"`

	// Compression is "none" (default), "zstd" or "lz4".
	Compression string `json:"compression"`
}

// Decode reads a Job from r. Unknown fields are rejected so that typos in job
// files surface instead of being silently ignored.
func Decode(r io.Reader) (Job, error) {
	var j Job
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&j); err != nil {
		return Job{}, fmt.Errorf("decode job: %w", err)
	}
	return j, nil
}

// Load opens and decodes the job file at path.
func Load(path string) (Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return Job{}, fmt.Errorf("open job: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Options is a small helper to fetch typed values from arbitrary JSON maps. It
// performs only minimal type coercion and returns the provided default when a
// key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. encoding/json decodes numbers as
// float64, so float64 is accepted and truncated.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// StringMap returns the string-valued entries of the object at key. Non-string
// values are ignored. A missing key yields an empty map.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		switch m := v.(type) {
		case map[string]any:
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		case map[string]string:
			for k, s := range m {
				res[k] = s
			}
		}
	}
	return res
}

// Any returns the raw value for key, or nil.
func (o Options) Any(key string) any {
	if v, ok := o[key]; ok {
		return v
	}
	return nil
}

// UnmarshalJSON makes a null "options" object decode to an empty, non-nil
// Options map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
