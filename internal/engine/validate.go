package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"fastjsonl/internal/linereader"
	"fastjsonl/internal/metrics"
	pjson "fastjsonl/internal/parser/json"
	"fastjsonl/internal/validator"
)

// Validate checks every line of buf against the JSON Schema in schemaText.
//
// The schema is compiled before any line is read. Lines may hold any JSON
// value; only the schema decides what is acceptable. Under the default policy
// the returned error is the first bad row; under CollectAll it is the first
// of the bad rows listed in the Report.
func Validate(ctx context.Context, buf []byte, schemaText string, opts Options) (Report, error) {
	return validateLines(ctx, linereader.New(buf), schemaText, opts)
}

// ValidateReader is Validate over a stream. An I/O failure ends the pass with
// a line-read error.
func ValidateReader(ctx context.Context, r io.Reader, schemaText string, opts Options) (Report, error) {
	return validateLines(ctx, linereader.FromReader(r), schemaText, opts)
}

func validateLines(ctx context.Context, lr *linereader.Reader, schemaText string, opts Options) (Report, error) {
	opts = opts.withDefaults()
	log := opts.Logger.With("job", opts.Job, "pass", "validate")

	start := time.Now()
	v, err := validator.Compile(schemaText, opts.Validator...)
	metrics.RecordStep(opts.Metrics, opts.Job, "compile", err, time.Since(start))
	if err != nil {
		return Report{}, err
	}

	start = time.Now()
	rep, err := validateLoop(ctx, lr, v, opts, log)
	if err == nil {
		err = rep.Err(opts.Policy)
	}
	metrics.RecordStep(opts.Metrics, opts.Job, "validate", err, time.Since(start))
	recordRows(opts, rep)
	log.Debug("validate finished", rep.logAttrs()...)
	return rep, err
}

// validateLoop returns only fatal errors; row errors go to the Report.
func validateLoop(ctx context.Context, lr *linereader.Reader, v *validator.Validator, opts Options, log *slog.Logger) (Report, error) {
	var rep Report
	dec := pjson.NewDecoder(opts.Parser)

	for lr.Next() {
		row := lr.Index()
		if row%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return rep, err
			}
		}
		rep.Rows++

		val, err := dec.Decode(row, lr.Bytes())
		if errors.Is(err, pjson.ErrBlankLine) {
			rep.Blank++
			continue
		}
		if err == nil {
			err = v.Check(row, val)
		}
		if err != nil {
			if !rowError(err) {
				return rep, err
			}
			log.Debug("row rejected", "row", row, "err", err)
			if rep.reject(err, opts) {
				return rep, nil
			}
			continue
		}
		rep.Accepted++
	}
	return rep, lr.Err()
}
