package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"golang.org/x/sync/errgroup"

	"fastjsonl/internal/metrics"
)

// DefaultBatchSize is used by WriteRecord when batchSize is not positive.
const DefaultBatchSize = 5000

// ColumnNames returns the field names of schema in order.
func ColumnNames(schema *arrow.Schema) []string {
	out := make([]string, schema.NumFields())
	for i, f := range schema.Fields() {
		out[i] = f.Name
	}
	return out
}

// getter reads row i of one column as a driver-friendly value: int64,
// float64, bool, string, or nil for a null entry.
type getter func(i int) any

func getterFor(col arrow.Array) (getter, error) {
	switch a := col.(type) {
	case *array.Int8:
		return func(i int) any { return int64(a.Value(i)) }, nil
	case *array.Int16:
		return func(i int) any { return int64(a.Value(i)) }, nil
	case *array.Int32:
		return func(i int) any { return int64(a.Value(i)) }, nil
	case *array.Int64:
		return func(i int) any { return a.Value(i) }, nil
	case *array.Float16:
		return func(i int) any { return float64(a.Value(i).Float32()) }, nil
	case *array.Float32:
		return func(i int) any { return float64(a.Value(i)) }, nil
	case *array.Float64:
		return func(i int) any { return a.Value(i) }, nil
	case *array.Boolean:
		return func(i int) any { return a.Value(i) }, nil
	case *array.String:
		return func(i int) any { return a.Value(i) }, nil
	case *array.LargeString:
		return func(i int) any { return a.Value(i) }, nil
	default:
		return nil, fmt.Errorf("storage: unsupported column type %s", col.DataType())
	}
}

// RowsFromRecord returns the rows of rec as [][]any aligned to the schema's
// field order. Values are copied, so the result outlives rec.
func RowsFromRecord(rec arrow.Record) ([][]any, error) {
	gs, err := getters(rec)
	if err != nil {
		return nil, err
	}
	out := make([][]any, rec.NumRows())
	for i := range out {
		out[i] = rowAt(rec, gs, i)
	}
	return out, nil
}

func getters(rec arrow.Record) ([]getter, error) {
	gs := make([]getter, rec.NumCols())
	for j, col := range rec.Columns() {
		g, err := getterFor(col)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", rec.ColumnName(j), err)
		}
		gs[j] = g
	}
	return gs, nil
}

func rowAt(rec arrow.Record, gs []getter, i int) []any {
	row := make([]any, len(gs))
	for j, g := range gs {
		if rec.Column(j).IsNull(i) {
			continue
		}
		row[j] = g(i)
	}
	return row
}

// RecordWriter is implemented by sinks that store whole Arrow records rather
// than rows, such as the Arrow IPC file sink.
type RecordWriter interface {
	WriteRecord(ctx context.Context, rec arrow.Record) (int64, error)
}

// WriteRecord stores rec in repo and returns the number of rows the backend
// reported. A RecordWriter gets the record as is. Other repositories are fed
// through LoadBatches; rows are produced on a separate goroutine so the first
// batch is sent while later rows are still being read.
func WriteRecord(ctx context.Context, repo Repository, rec arrow.Record, batchSize int, lo LoadOptions) (int64, error) {
	start := time.Now()
	if rw, ok := repo.(RecordWriter); ok {
		n, err := rw.WriteRecord(ctx, rec)
		metrics.RecordRows(lo.Metrics, lo.Job, metrics.RowsInserted, n)
		metrics.RecordStep(lo.Metrics, lo.Job, "write", err, time.Since(start))
		return n, err
	}

	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	gs, err := getters(rec)
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	rows := make(chan []any, batchSize)
	g.Go(func() error {
		defer close(rows)
		for i := 0; i < int(rec.NumRows()); i++ {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case rows <- rowAt(rec, gs, i):
			}
		}
		return nil
	})

	var total int64
	g.Go(func() error {
		var err error
		total, err = LoadBatches(gctx, ColumnNames(rec.Schema()), rows, batchSize, repo.CopyFrom, lo)
		return err
	})

	err = g.Wait()
	metrics.RecordStep(lo.Metrics, lo.Job, "write", err, time.Since(start))
	return total, err
}
