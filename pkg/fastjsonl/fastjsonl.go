// Package fastjsonl validates newline-delimited JSON against a JSON Schema
// and converts it into an Arrow record.
//
//	if err := fastjsonl.Validate(buf, schema); err != nil { ... }
//
//	rec, err := fastjsonl.Convert(buf, schema, target)
//	if err != nil { ... }
//	defer rec.Release()
//
// Failures are *Error values; use errors.As to read the kind, row and column.
package fastjsonl

import (
	"context"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"

	"fastjsonl/internal/engine"
	"fastjsonl/internal/linereader"
	"fastjsonl/internal/metrics"
	"fastjsonl/internal/rowerr"
	"fastjsonl/internal/validator"
)

// Error is the structured error returned by every operation.
type Error = rowerr.Error

// ErrorKind classifies an Error.
type ErrorKind = rowerr.Kind

// Error kinds.
const (
	InternalError   = rowerr.KindInternal
	CompileError    = rowerr.KindCompile
	SchemaTypeError = rowerr.KindSchemaType
	LineReadError   = rowerr.KindLineRead
	ParseError      = rowerr.KindParse
	ValidationError = rowerr.KindValidation
	ShapeError      = rowerr.KindShape
	TypeError       = rowerr.KindType
)

// Policy re-exports the engine's error policies.
type Policy = engine.Policy

const (
	AbortOnFirst = engine.AbortOnFirst
	SkipRow      = engine.SkipRow
	CollectAll   = engine.CollectAll
)

// Report summarizes a pass.
type Report = engine.Report

// Option configures a call.
type Option func(*config)

type config struct {
	ctx    context.Context
	opts   engine.Options
	report *Report
}

// WithContext makes the call stop with ctx.Err() once ctx is done.
func WithContext(ctx context.Context) Option {
	return func(c *config) { c.ctx = ctx }
}

// WithPolicy selects what a bad row does. The default is AbortOnFirst.
func WithPolicy(p Policy) Option {
	return func(c *config) { c.opts.Policy = p }
}

// WithMaxErrors bounds the row errors kept under SkipRow and CollectAll.
func WithMaxErrors(n int) Option {
	return func(c *config) { c.opts.MaxErrors = n }
}

// WithWorkers converts with n concurrent chunks.
func WithWorkers(n int) Option {
	return func(c *config) { c.opts.Workers = n }
}

// WithoutValidation makes Convert ignore the JSON Schema.
func WithoutValidation() Option {
	return func(c *config) { c.opts.SkipValidation = true }
}

// WithDraft selects the JSON Schema draft used when the document has no
// $schema. The default is 2020-12.
func WithDraft(d *jsonschema.Draft) Option {
	return func(c *config) { c.opts.Validator = append(c.opts.Validator, validator.WithDraft(d)) }
}

// WithAssertFormat turns the "format" keyword into an assertion.
func WithAssertFormat() Option {
	return func(c *config) { c.opts.Validator = append(c.opts.Validator, validator.WithAssertFormat()) }
}

// WithLanguage selects the language of validation messages. The default is
// English.
func WithLanguage(tag language.Tag) Option {
	return func(c *config) { c.opts.Validator = append(c.opts.Validator, validator.WithLanguage(tag)) }
}

// WithBlankLines skips whitespace-only lines instead of failing on them.
func WithBlankLines() Option {
	return func(c *config) { c.opts.Parser.AllowBlankLines = true }
}

// WithAllocator sets the Arrow allocator for the output record.
func WithAllocator(mem memory.Allocator) Option {
	return func(c *config) { c.opts.Allocator = mem }
}

// WithLogger receives debug logs about the pass.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.opts.Logger = l }
}

// WithMetrics receives row counts and step timings.
func WithMetrics(b metrics.Backend) Option {
	return func(c *config) { c.opts.Metrics = b }
}

// WithReport stores the pass summary in *r when the call returns.
func WithReport(r *Report) Option {
	return func(c *config) { c.report = r }
}

func build(opts []Option) config {
	c := config{ctx: context.Background()}
	for _, o := range opts {
		o(&c)
	}
	return c
}

func (c config) store(r Report) {
	if c.report != nil {
		*c.report = r
	}
}

// Validate checks every line of buf against schemaText and returns the first
// failure.
func Validate(buf []byte, schemaText string, opts ...Option) error {
	c := build(opts)
	rep, err := engine.Validate(c.ctx, buf, schemaText, c.opts)
	c.store(rep)
	return err
}

// ValidateNDJSON is an alias of Validate.
func ValidateNDJSON(buf []byte, schemaText string, opts ...Option) error {
	return Validate(buf, schemaText, opts...)
}

// Convert validates buf against schemaText and converts it into a record
// shaped by target. An empty schemaText skips validation. The caller must
// Release the record.
func Convert(buf []byte, schemaText string, target *arrow.Schema, opts ...Option) (arrow.Record, error) {
	c := build(opts)
	rec, rep, err := engine.Convert(c.ctx, buf, schemaText, target, c.opts)
	c.store(rep)
	return rec, err
}

// CountLines returns the number of '\n' bytes in buf.
func CountLines(buf []byte) int {
	return linereader.Count(buf)
}
