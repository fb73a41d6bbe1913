package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fastjsonl/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := NewBackend("events", "http://pushgateway.invalid:9091")
	require.NoError(t, err)
	return b
}

// family returns the gathered metric family called name, or nil.
func family(t *testing.T, b *Backend, name string) *dto.MetricFamily {
	t.Helper()
	mfs, err := b.reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestNewBackend_Arguments(t *testing.T) {
	t.Parallel()

	_, err := NewBackend("events", "")
	require.ErrorContains(t, err, "gateway URL")

	b, err := NewBackend("", "http://gw:9091")
	require.NoError(t, err)
	require.Equal(t, "fastjsonl", b.jobName)

	b, err = NewBackend("nightly-import", "http://gw:9091")
	require.NoError(t, err)
	require.Equal(t, "nightly-import", b.jobName)
	require.Equal(t, "http://gw:9091", b.gatewayURL)
}

func TestBackend_RecordsThroughHelpers(t *testing.T) {
	t.Parallel()
	b := newTestBackend(t)

	metrics.RecordRows(b, "events", metrics.RowsProcessed, 10)
	metrics.RecordRows(b, "events", metrics.RowsAccepted, 8)
	metrics.RecordRows(b, "events", metrics.RowsRejected, 2)
	metrics.RecordRows(b, "events", metrics.RowsRejected, 1)
	metrics.RecordBatches(b, "events", 3)

	require.Equal(t, 10.0, testutil.ToFloat64(b.rowCounter.WithLabelValues(metrics.RowsProcessed)))
	require.Equal(t, 8.0, testutil.ToFloat64(b.rowCounter.WithLabelValues(metrics.RowsAccepted)))
	require.Equal(t, 3.0, testutil.ToFloat64(b.rowCounter.WithLabelValues(metrics.RowsRejected)))
	require.Equal(t, 3.0, testutil.ToFloat64(b.batchCounter))
}

func TestBackend_StepSummary(t *testing.T) {
	t.Parallel()
	b := newTestBackend(t)

	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "validate", "status": "success"})
	b.ObserveHistogram(metrics.StepDurationSeconds, 0.25, metrics.Labels{"step": "validate", "status": "success"})
	b.ObserveHistogram(metrics.StepDurationSeconds, 0.75, metrics.Labels{"step": "validate", "status": "success"})
	b.ObserveHistogram("fastjsonl_unrelated_seconds", 9, metrics.Labels{"step": "validate", "status": "success"})

	require.Equal(t, 1.0, testutil.ToFloat64(b.stepCounter.WithLabelValues("validate", "success")))

	mf := family(t, b, metrics.StepDurationSeconds)
	require.NotNil(t, mf)
	require.Len(t, mf.GetMetric(), 1)
	s := mf.GetMetric()[0].GetSummary()
	require.Equal(t, uint64(2), s.GetSampleCount())
	require.InDelta(t, 1.0, s.GetSampleSum(), 1e-9)
}

func TestBackend_IgnoresUnknownAndMissing(t *testing.T) {
	t.Parallel()

	b := newTestBackend(t)
	b.IncCounter("fastjsonl_unknown_total", 4, metrics.Labels{"kind": "x"})
	require.Nil(t, family(t, b, "fastjsonl_unknown_total"))
	require.Equal(t, 0.0, testutil.ToFloat64(b.batchCounter))

	// A zero Backend has no collectors; every call is a no-op.
	var zero Backend
	require.NotPanics(t, func() {
		zero.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "s", "status": "success"})
		zero.IncCounter(metrics.RowsTotal, 1, metrics.Labels{"kind": metrics.RowsInserted})
		zero.IncCounter(metrics.BatchesTotal, 1, nil)
		zero.ObserveHistogram(metrics.StepDurationSeconds, 1, nil)
	})
}

func TestFlush_PushesToGateway(t *testing.T) {
	t.Parallel()

	type pushed struct {
		method, path, body string
	}
	got := make(chan pushed, 1)
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- pushed{r.Method, r.URL.Path, string(body)}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer gw.Close()

	b, err := NewBackend("events", gw.URL)
	require.NoError(t, err)
	metrics.RecordRows(b, "events", metrics.RowsInserted, 42)

	require.NoError(t, b.Flush())

	p := <-got
	require.Equal(t, http.MethodPut, p.method)
	require.Equal(t, "/metrics/job/events", p.path)
	require.True(t, strings.Contains(p.body, metrics.RowsTotal), "body lacks %s", metrics.RowsTotal)
}

func TestFlush_GatewayError(t *testing.T) {
	t.Parallel()

	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "storage full", http.StatusInternalServerError)
	}))
	defer gw.Close()

	b, err := NewBackend("events", gw.URL)
	require.NoError(t, err)
	require.Error(t, b.Flush())
}
