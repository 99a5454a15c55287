package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes the decode pipeline's Prometheus metrics and the HTTP
// server that serves them.
type Metrics struct {
	Server   *http.Server
	Registry *prometheus.Registry

	// RowsDecoded counts successfully decoded rows, labeled by stream.
	RowsDecoded *prometheus.CounterVec

	// DecodeErrors counts records that failed to decode, labeled by stream
	// and failure reason.
	DecodeErrors *prometheus.CounterVec

	// RecordsSkipped counts records stepped over after a decode failure
	// (wire-mode resynchronization), labeled by stream.
	RecordsSkipped *prometheus.CounterVec

	// SchemaFetches counts schema resolutions requested from the registry
	// client, labeled by stream.
	SchemaFetches *prometheus.CounterVec

	// DecodeDuration tracks per-record decode latency in seconds.
	DecodeDuration *prometheus.HistogramVec

	serviceName string
}

// NewMetrics builds the metric set and its HTTP server. Metrics carry a
// "service" label taken from the configuration.
func NewMetrics(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()

	wrappedRegistry := prometheus.WrapRegistererWith(prometheus.Labels{"service": cfg.ServiceName}, registry)

	if cfg.EnableDefaultCollectors {
		wrappedRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)
	}

	m := &Metrics{
		Registry:    registry,
		serviceName: cfg.ServiceName,

		RowsDecoded: createCounterVec(
			prefixed(cfg.Namespace, "rows_decoded_total"),
			"Number of rows successfully decoded into columns.",
			[]string{"stream"},
		),
		DecodeErrors: createCounterVec(
			prefixed(cfg.Namespace, "decode_errors_total"),
			"Number of records that failed to decode.",
			[]string{"stream", "reason"},
		),
		RecordsSkipped: createCounterVec(
			prefixed(cfg.Namespace, "records_skipped_total"),
			"Number of corrupt records skipped during resynchronization.",
			[]string{"stream"},
		),
		SchemaFetches: createCounterVec(
			prefixed(cfg.Namespace, "schema_fetches_total"),
			"Number of schema resolutions requested from the registry client.",
			[]string{"stream"},
		),
		DecodeDuration: createHistogramVec(
			prefixed(cfg.Namespace, "decode_duration_seconds"),
			"Per-record decode latency.",
			[]string{"stream"},
			prometheus.DefBuckets,
		),
	}

	wrappedRegistry.MustRegister(
		m.RowsDecoded,
		m.DecodeErrors,
		m.RecordsSkipped,
		m.SchemaFetches,
		m.DecodeDuration,
	)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	m.Server = &http.Server{
		Addr:    cfg.Address,
		Handler: handler,
	}

	return m
}

func prefixed(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "_" + name
}
