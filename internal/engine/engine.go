// Package engine runs the NDJSON validation and conversion passes.
//
// Both passes walk the buffer line by line: decode, optionally validate
// against a compiled JSON Schema, and, for conversion, stage every target
// column of the row before committing it. What happens to a bad row is
// decided by the Policy; errors that are not tied to a row (schema compile,
// unsupported column type, I/O, internal) always end the call.
package engine

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"fastjsonl/internal/metrics"
	pjson "fastjsonl/internal/parser/json"
	"fastjsonl/internal/rowerr"
	"fastjsonl/internal/validator"
)

// Policy decides what a row-level error (parse, validation, shape, type)
// does to the pass.
type Policy uint8

const (
	// AbortOnFirst stops at the first bad row and returns its error. No
	// table is produced.
	AbortOnFirst Policy = iota
	// SkipRow drops bad rows and keeps going. The table holds the accepted
	// rows; the Report lists the rejected ones.
	SkipRow
	// CollectAll keeps going to report every bad row, then fails. No table
	// is produced when any row was rejected.
	CollectAll
)

func (p Policy) String() string {
	switch p {
	case AbortOnFirst:
		return "abort"
	case SkipRow:
		return "skip"
	case CollectAll:
		return "collect"
	}
	return fmt.Sprintf("policy(%d)", uint8(p))
}

// ParsePolicy maps a config or flag value to a Policy. The empty string is
// AbortOnFirst.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort", "abort-on-first":
		return AbortOnFirst, nil
	case "skip", "skip-row":
		return SkipRow, nil
	case "collect", "collect-all":
		return CollectAll, nil
	}
	return 0, fmt.Errorf("unknown error policy %q (want abort, skip or collect)", s)
}

// Options tunes a pass. The zero value is the reference behavior: abort on
// the first bad row, validate every row, sequential, no observability.
type Options struct {
	Policy Policy

	// MaxErrors bounds the row errors kept in the Report. Under CollectAll
	// the pass stops once the bound is reached. 0 means unbounded.
	MaxErrors int

	// Workers > 1 splits conversion into that many contiguous chunks that
	// are converted concurrently and concatenated in order.
	Workers int

	// SkipValidation makes Convert ignore the JSON Schema. An empty schema
	// text has the same effect.
	SkipValidation bool

	Validator []validator.Option
	Parser    pjson.Options

	Allocator memory.Allocator
	Logger    *slog.Logger
	Metrics   metrics.Backend

	// Job labels metrics.
	Job string
}

func (o Options) withDefaults() Options {
	if o.Allocator == nil {
		o.Allocator = memory.DefaultAllocator
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	o.Metrics = metrics.OrNop(o.Metrics)
	if o.Job == "" {
		o.Job = "fastjsonl"
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.MaxErrors < 0 {
		o.MaxErrors = 0
	}
	return o
}

// Report summarizes a pass.
type Report struct {
	// Rows counts the lines read, blank lines included.
	Rows int
	// Accepted rows passed every check (and, for conversion, are in the table).
	Accepted int
	// Rejected rows failed with a row-level error.
	Rejected int
	// Blank counts whitespace-only lines skipped under AllowBlankLines.
	Blank int

	// Errors holds the row errors in row order, at most MaxErrors of them.
	Errors []error
	// Truncated is set when more rows were rejected than Errors holds, or
	// when CollectAll stopped at MaxErrors.
	Truncated bool
}

// add merges a later, contiguous part into r.
func (r *Report) add(o Report) {
	r.Rows += o.Rows
	r.Accepted += o.Accepted
	r.Rejected += o.Rejected
	r.Blank += o.Blank
	r.Errors = append(r.Errors, o.Errors...)
	r.Truncated = r.Truncated || o.Truncated
}

// clip enforces the MaxErrors bound after merging.
func (r *Report) clip(max int) {
	if max > 0 && len(r.Errors) > max {
		r.Errors = r.Errors[:max]
		r.Truncated = true
	}
}

// reject records a row error. It reports whether the pass must stop.
func (r *Report) reject(err error, opts Options) (stop bool) {
	r.Rejected++
	switch opts.Policy {
	case AbortOnFirst:
		r.Errors = append(r.Errors, err)
		return true
	case CollectAll:
		r.Errors = append(r.Errors, err)
		if opts.MaxErrors > 0 && len(r.Errors) >= opts.MaxErrors {
			r.Truncated = true
			return true
		}
		return false
	default:
		if opts.MaxErrors == 0 || len(r.Errors) < opts.MaxErrors {
			r.Errors = append(r.Errors, err)
		} else {
			r.Truncated = true
		}
		return false
	}
}

// Err returns the error a finished pass reports to its caller: the first row
// error under AbortOnFirst and CollectAll, nil under SkipRow.
func (r Report) Err(p Policy) error {
	if p == SkipRow || len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

func (r Report) logAttrs() []any {
	return []any{
		slog.Int("rows", r.Rows),
		slog.Int("accepted", r.Accepted),
		slog.Int("rejected", r.Rejected),
		slog.Int("blank", r.Blank),
	}
}

func recordRows(opts Options, r Report) {
	metrics.RecordRows(opts.Metrics, opts.Job, metrics.RowsProcessed, int64(r.Rows-r.Blank))
	metrics.RecordRows(opts.Metrics, opts.Job, metrics.RowsAccepted, int64(r.Accepted))
	metrics.RecordRows(opts.Metrics, opts.Job, metrics.RowsRejected, int64(r.Rejected))
}

// compile builds the validator, or returns nil when validation is off.
func compile(schemaText string, opts Options, enabled bool) (*validator.Validator, error) {
	if !enabled {
		return nil, nil
	}
	return validator.Compile(schemaText, opts.Validator...)
}

// ctxCheckEvery is how many rows a loop processes between context checks.
const ctxCheckEvery = 1024

func rowError(err error) bool {
	e, ok := rowerr.As(err)
	return ok && e.Kind.RowLevel()
}
