package main

import (
	"flag"
	"log/slog"
	"os"
	"strings"

	"fastjsonl/internal/metrics"
	"fastjsonl/internal/metrics/datadog"
	"fastjsonl/internal/metrics/prompush"
)

type metricsFlags struct {
	backend        string
	pushGatewayURL string
	datadogAddr    string
}

func (m *metricsFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&m.backend, "metrics-backend", "", "metrics backend: pushgateway, datadog or none (default env FASTJSONL_METRICS_BACKEND, then METRICS_BACKEND, then none)")
	fs.StringVar(&m.pushGatewayURL, "pushgateway-url", "", "Pushgateway base URL (default env PUSHGATEWAY_URL, then http://localhost:9091)")
	fs.StringVar(&m.datadogAddr, "datadog-addr", "", "DogStatsD address (default env DD_DOGSTATSD_URL, then 127.0.0.1:8125)")
}

// newMetrics picks the backend: flag, then env, then none. A backend that
// fails to initialize is logged and replaced by the no-op backend; the
// returned func flushes and closes it.
func newMetrics(m metricsFlags, job string, log *slog.Logger) (metrics.Backend, func()) {
	name := firstNonEmpty(m.backend, os.Getenv("FASTJSONL_METRICS_BACKEND"), os.Getenv("METRICS_BACKEND"))
	nop := func() {}

	switch strings.ToLower(name) {
	case "pushgateway":
		url := firstNonEmpty(m.pushGatewayURL, os.Getenv("PUSHGATEWAY_URL"), "http://localhost:9091")
		b, err := prompush.NewBackend(job, url)
		if err != nil {
			log.Warn("metrics: pushgateway backend unavailable; using nop", "err", err)
			return metrics.Nop(), nop
		}
		log.Debug("metrics enabled", "backend", name, "url", url, "job", job)
		return b, func() {
			if err := b.Flush(); err != nil {
				log.Warn("metrics: flush failed", "err", err)
			}
		}

	case "datadog":
		addr := firstNonEmpty(m.datadogAddr, os.Getenv("DD_DOGSTATSD_URL"), "127.0.0.1:8125")
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       addr,
			Namespace:  "fastjsonl.",
			GlobalTags: []string{"job:" + job},
		})
		if err != nil {
			log.Warn("metrics: datadog backend unavailable; using nop", "err", err)
			return metrics.Nop(), nop
		}
		log.Debug("metrics enabled", "backend", name, "addr", addr, "job", job)
		return b, func() {
			if err := b.Flush(); err != nil {
				log.Warn("metrics: flush failed", "err", err)
			}
			_ = b.Close()
		}

	case "", "none":
		log.Debug("metrics disabled")
		return metrics.Nop(), nop

	default:
		log.Warn("metrics: unknown backend; metrics disabled", "backend", name)
		return metrics.Nop(), nop
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
