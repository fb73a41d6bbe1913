package storage

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// feed returns a closed channel holding n single-column rows.
func feed(n int) <-chan []any {
	ch := make(chan []any, n)
	for i := range n {
		ch <- []any{int64(i)}
	}
	close(ch)
	return ch
}

func TestLoadBatches(t *testing.T) {
	t.Parallel()

	errDisk := errors.New("disk full")
	tests := []struct {
		name      string
		rows      int
		batchSize int
		failOn    int // 1-based batch that fails, 0 for none
		wantSizes []int
		wantTotal int64
		wantErr   error
	}{
		{name: "empty", rows: 0, batchSize: 4, wantSizes: nil, wantTotal: 0},
		{name: "exact_multiple", rows: 8, batchSize: 4, wantSizes: []int{4, 4}, wantTotal: 8},
		{name: "remainder_flushed", rows: 7, batchSize: 3, wantSizes: []int{3, 3, 1}, wantTotal: 7},
		{name: "one_per_batch", rows: 3, batchSize: 1, wantSizes: []int{1, 1, 1}, wantTotal: 3},
		{name: "stops_at_failure", rows: 9, batchSize: 2, failOn: 2, wantSizes: []int{2, 2}, wantTotal: 4, wantErr: errDisk},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var sizes []int
			copyFn := func(_ context.Context, cols []string, rows [][]any) (int64, error) {
				require.Equal(t, []string{"seq"}, cols)
				sizes = append(sizes, len(rows))
				if len(sizes) == tc.failOn {
					return int64(len(rows)), errDisk
				}
				return int64(len(rows)), nil
			}

			total, err := LoadBatches(context.Background(), []string{"seq"}, feed(tc.rows), tc.batchSize, copyFn, LoadOptions{})
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tc.wantSizes, sizes)
			require.Equal(t, tc.wantTotal, total)
		})
	}
}

func TestLoadBatches_BadArguments(t *testing.T) {
	t.Parallel()

	noop := func(context.Context, []string, [][]any) (int64, error) { return 0, nil }
	_, err := LoadBatches(context.Background(), nil, feed(1), 0, noop, LoadOptions{})
	require.ErrorContains(t, err, "batchSize")

	_, err = LoadBatches(context.Background(), nil, feed(1), 10, nil, LoadOptions{})
	require.ErrorContains(t, err, "copyFn")
}

func TestLoadBatches_LogsAndCounts(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	mb := &rowCounter{}
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		return int64(len(rows)), nil
	}

	total, err := LoadBatches(context.Background(), []string{"seq"}, feed(5), 2, copyFn, LoadOptions{
		Logger:  slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		Metrics: mb,
		Job:     "events",
	})
	require.NoError(t, err)
	require.Equal(t, int64(5), total)
	require.Equal(t, 3.0, mb.batches)
	require.Equal(t, 5.0, mb.rows)
	require.Contains(t, logs.String(), "total_inserted=5")
	require.Contains(t, logs.String(), "final_flush=1")
}

func TestLoadBatches_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan []any) // never closed

	done := make(chan error, 1)
	go func() {
		_, err := LoadBatches(ctx, []string{"seq"}, in, 100, func(context.Context, []string, [][]any) (int64, error) {
			return 0, nil
		}, LoadOptions{})
		done <- err
	}()

	in <- []any{int64(1)}
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("loader kept running after cancel")
	}
}
