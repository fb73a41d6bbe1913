package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"fastjsonl/internal/metrics"
)

// CopyFn abstracts a backend's bulk insert. Implementations insert rows
// (aligned to columns) and return the number of rows reported as inserted.
// It is called repeatedly and should stop promptly when ctx is done.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadOptions carries the ambient dependencies of LoadBatches. The zero value
// logs nowhere and records no metrics.
type LoadOptions struct {
	Logger  *slog.Logger
	Metrics metrics.Backend
	Job     string
}

// LoadBatches drains rows from in, groups them into batches of batchSize and
// calls copyFn per non-empty batch. It returns the total reported by copyFn
// and the first error. A progress line is logged after each flush.
func LoadBatches(
	ctx context.Context,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
	lo LoadOptions,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}
	log := lo.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := metrics.OrNop(lo.Metrics)

	var (
		total       int64
		batches     int64
		batch       = make([][]any, 0, batchSize)
		start       = time.Now()
		lastFlushTS = start
		lastTotal   int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n
		batch = batch[:0]
		metrics.RecordRows(m, lo.Job, metrics.RowsInserted, n)

		if err != nil {
			log.Error("copy failed", "after", n, "total", total, "err", err)
			return err
		}

		batches++
		metrics.RecordBatches(m, lo.Job, 1)
		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(total-lastTotal) / sinceLast.Seconds()
		}
		log.Info("batch flushed",
			"batch", batches,
			"rps", int64(rps),
			"inserted", n,
			"total_inserted", total,
			"elapsed", now.Sub(start).Truncate(time.Millisecond),
			"since_last", sinceLast.Truncate(time.Millisecond),
		)
		lastFlushTS = now
		lastTotal = total
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()

		case row, ok := <-in:
			if !ok {
				pending := len(batch)
				if err := flush(); err != nil {
					return total, err
				}
				log.Debug("loader input closed", "final_flush", pending, "total_inserted", total)
				return total, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}
