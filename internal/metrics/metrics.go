// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from the NDJSON engine and the CLI.
//
// A Backend is injected by the caller (engine options, CLI wiring); there is
// no package-level state. A nil Backend is valid everywhere and records
// nothing, so instrumentation never has to be guarded.
//
// Concrete metric systems live in subpackages (prompush, datadog) so the rest
// of the code depends only on this interface.
package metrics

import "time"

// Metric names emitted by the helpers below.
const (
	StepTotal           = "fastjsonl_step_total"
	StepDurationSeconds = "fastjsonl_step_duration_seconds"
	RowsTotal           = "fastjsonl_rows_total"
	BatchesTotal        = "fastjsonl_batches_total"
)

// Row kinds recorded through RecordRows.
const (
	RowsProcessed = "processed"
	RowsAccepted  = "accepted"
	RowsRejected  = "rejected"
	RowsInserted  = "inserted"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

// Nop returns a Backend that records nothing.
func Nop() Backend { return nopBackend{} }

// OrNop returns b, or the no-op backend when b is nil.
func OrNop(b Backend) Backend {
	if b == nil {
		return nopBackend{}
	}
	return b
}

// RecordStep measures latency and success/failure of one engine step
// (compile, validate, convert, write, ...).
func RecordStep(b Backend, job, step string, err error, d time.Duration) {
	b = OrNop(b)
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRows increments the row counter for job and kind (see the Rows*
// constants). Non-positive deltas are ignored.
func RecordRows(b Backend, job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	OrNop(b).IncCounter(RowsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordBatches increments the batch counter for job; sinks call it once per
// flushed batch.
func RecordBatches(b Backend, job string, delta int64) {
	if delta <= 0 {
		return
	}
	OrNop(b).IncCounter(BatchesTotal, float64(delta), Labels{
		"job": job,
	})
}
