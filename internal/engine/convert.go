package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"golang.org/x/sync/errgroup"

	"fastjsonl/internal/column"
	"fastjsonl/internal/linereader"
	"fastjsonl/internal/metrics"
	pjson "fastjsonl/internal/parser/json"
	"fastjsonl/internal/validator"
)

// Convert turns the lines of buf into one record shaped by target.
//
// Each line must hold a JSON object. Unless validation is skipped, the row is
// first checked against schemaText. Every target column is then resolved by
// name: a missing key or null is a null entry, other values are coerced to
// the column kind, and a value that does not fit is a type error naming the
// column. A row is appended to all columns or to none.
//
// With Workers > 1 the buffer is cut into contiguous chunks that are
// converted concurrently; the result is the same as a sequential pass,
// including which error is returned under AbortOnFirst (the lowest row).
//
// The caller owns the returned record and must Release it.
func Convert(ctx context.Context, buf []byte, schemaText string, target *arrow.Schema, opts Options) (arrow.Record, Report, error) {
	opts = opts.withDefaults()
	log := opts.Logger.With("job", opts.Job, "pass", "convert")

	start := time.Now()
	rec, rep, err := convert(ctx, buf, schemaText, target, opts, log)
	metrics.RecordStep(opts.Metrics, opts.Job, "convert", err, time.Since(start))
	recordRows(opts, rep)
	log.Debug("convert finished", rep.logAttrs()...)
	return rec, rep, err
}

type converter struct {
	schema *arrow.Schema
	v      *validator.Validator
	dec    *pjson.Decoder
	opts   Options
	log    *slog.Logger

	// cutoff is the lowest row that ended a chunk under AbortOnFirst. Rows
	// past it cannot change the result, so other chunks stop there.
	cutoff atomic.Int64
}

type chunkResult struct {
	rec arrow.Record
	rep Report
}

func convert(ctx context.Context, buf []byte, schemaText string, target *arrow.Schema, opts Options, log *slog.Logger) (arrow.Record, Report, error) {
	validate := !opts.SkipValidation && strings.TrimSpace(schemaText) != ""

	start := time.Now()
	v, err := compile(schemaText, opts, validate)
	if validate {
		metrics.RecordStep(opts.Metrics, opts.Job, "compile", err, time.Since(start))
	}
	if err != nil {
		return nil, Report{}, err
	}

	workers := opts.Workers
	if opts.Policy == CollectAll && opts.MaxErrors > 0 {
		// Where a bounded collection stops depends on every earlier row.
		workers = 1
	}
	chunks := linereader.Chunks(buf, workers)

	// One accumulator set per chunk, built before any row is read so an
	// unsupported column fails fast.
	sets := make([][]column.Accumulator, max(len(chunks), 1))
	defer func() {
		for _, s := range sets {
			column.ReleaseAll(s)
		}
	}()
	for i := range sets {
		s, err := column.Dispatch(opts.Allocator, target)
		if err != nil {
			return nil, Report{}, err
		}
		sets[i] = s
	}
	if len(chunks) == 0 {
		rec, err := column.Assemble(target, sets[0])
		return rec, Report{}, err
	}

	cv := &converter{schema: target, v: v, dec: pjson.NewDecoder(opts.Parser), opts: opts, log: log}
	cv.cutoff.Store(math.MaxInt64)

	results := make([]chunkResult, len(chunks))
	defer func() {
		for _, r := range results {
			if r.rec != nil {
				r.rec.Release()
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range chunks {
		g.Go(func() error {
			rec, rep, err := cv.chunk(gctx, c, sets[i])
			results[i] = chunkResult{rec: rec, rep: rep}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		var rep Report
		for _, r := range results {
			rep.add(r.rep)
		}
		return nil, rep, err
	}
	log.Debug("chunks converted", "chunks", len(chunks))

	var rep Report
	parts := make([]arrow.Record, 0, len(results))
	for _, r := range results {
		rep.add(r.rep)
		if r.rec != nil {
			parts = append(parts, r.rec)
		}
		if opts.Policy == AbortOnFirst && r.rep.Rejected > 0 {
			break
		}
	}
	rep.clip(opts.MaxErrors)
	if err := rep.Err(opts.Policy); err != nil {
		return nil, rep, err
	}

	rec, err := column.Concat(opts.Allocator, target, parts)
	if err != nil {
		return nil, rep, err
	}
	return rec, rep, nil
}

// chunk converts the lines of c into a record. The record is nil when the
// chunk ended early or, under CollectAll, rejected a row; the caller does not
// need it then. Only fatal errors are returned.
func (cv *converter) chunk(ctx context.Context, c linereader.Chunk, accs []column.Accumulator) (arrow.Record, Report, error) {
	var rep Report
	n := linereader.Lines(c.Buf)
	for _, a := range accs {
		a.Reserve(n)
	}

	lr := linereader.New(c.Buf)
	for lr.Next() {
		row := c.First + lr.Index()
		if lr.Index()%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, rep, err
			}
		}
		if int64(row) > cv.cutoff.Load() {
			return nil, rep, nil
		}
		rep.Rows++

		err := cv.row(row, lr.Bytes(), accs)
		switch {
		case err == nil:
			rep.Accepted++
		case errors.Is(err, pjson.ErrBlankLine):
			rep.Blank++
		case !rowError(err):
			return nil, rep, err
		default:
			cv.log.Debug("row rejected", "row", row, "err", err)
			if rep.reject(err, cv.opts) {
				if cv.opts.Policy == AbortOnFirst {
					cv.lowerCutoff(int64(row))
				}
				return nil, rep, nil
			}
		}
	}

	if cv.opts.Policy == CollectAll && rep.Rejected > 0 {
		return nil, rep, nil
	}
	rec, err := column.Assemble(cv.schema, accs)
	return rec, rep, err
}

// row decodes, validates and appends one line. On any error no column is
// changed.
func (cv *converter) row(row int, line []byte, accs []column.Accumulator) error {
	val, err := cv.dec.Decode(row, line)
	if err != nil {
		return err
	}
	if cv.v != nil {
		if err := cv.v.Check(row, val); err != nil {
			return err
		}
	}
	obj, err := pjson.AsObject(row, val)
	if err != nil {
		return err
	}
	obj = cv.dec.Canonicalize(obj)

	for _, a := range accs {
		v, ok := obj[a.Name()]
		if err := a.Stage(row, v, ok); err != nil {
			for _, b := range accs {
				b.Discard()
			}
			return err
		}
	}
	for _, a := range accs {
		a.Commit()
	}
	return nil
}

func (cv *converter) lowerCutoff(row int64) {
	for {
		cur := cv.cutoff.Load()
		if row >= cur || cv.cutoff.CompareAndSwap(cur, row) {
			return
		}
	}
}
