// Package metric provides Prometheus instrumentation for PlotVault.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plotvault/plotvault-go/internal/infra/buildinfo"
)

const namespace = "plotvault"

// Metrics is the PlotVault metric set over its own registry. A nil
// *Metrics is valid and turns every method into a no-op, so services
// can carry instrumentation optionally.
type Metrics struct {
	registry *prometheus.Registry

	tokensIssued   prometheus.Counter
	tokensVerified *prometheus.CounterVec
	tokensRevoked  prometheus.Counter
	tokensPurged   prometheus.Counter

	artifactsSaved   prometheus.Counter
	artifactsFetched prometheus.Counter
	artifactsDeleted prometheus.Counter
	bytesSaved       prometheus.Counter
	bytesFetched     prometheus.Counter

	opDuration *prometheus.HistogramVec

	sweepsTotal    prometheus.Counter
	sweepArtifacts prometheus.Counter
	sweepOrphans   prometheus.Counter
	sweepTokens    prometheus.Counter
	sweepDuration  prometheus.Histogram

	persistenceFailures *prometheus.CounterVec
}

// New creates the metric set and registers it, the Go runtime
// collectors and a build_info gauge on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "issued_total",
			Help:      "Total tokens issued.",
		}),
		tokensVerified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "verified_total",
			Help:      "Total token verifications by result.",
		}, []string{"result"}),
		tokensRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "revoked_total",
			Help:      "Total tokens revoked.",
		}),
		tokensPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "purged_total",
			Help:      "Total expired tokens purged from the table.",
		}),

		artifactsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "artifacts",
			Name:      "saved_total",
			Help:      "Total artifacts saved.",
		}),
		artifactsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "artifacts",
			Name:      "fetched_total",
			Help:      "Total artifacts fetched.",
		}),
		artifactsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "artifacts",
			Name:      "deleted_total",
			Help:      "Total artifacts deleted.",
		}),
		bytesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "artifacts",
			Name:      "saved_bytes_total",
			Help:      "Total payload bytes written to the blob store.",
		}),
		bytesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "artifacts",
			Name:      "fetched_bytes_total",
			Help:      "Total payload bytes read from the blob store.",
		}),

		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "op_duration_seconds",
			Help:      "Service operation latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),

		sweepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Total retention sweep passes.",
		}),
		sweepArtifacts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "artifacts_purged_total",
			Help:      "Total artifacts removed by retention sweeps.",
		}),
		sweepOrphans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "orphans_removed_total",
			Help:      "Total orphaned blobs removed by sweeps.",
		}),
		sweepTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "tokens_purged_total",
			Help:      "Total expired tokens removed by sweeps.",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Full sweep pass duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),

		persistenceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Total durable writes that failed, by store.",
		}, []string{"store"}),
	}

	bi := buildinfo.Get()
	buildInfo := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build metadata, value is always 1.",
		ConstLabels: prometheus.Labels{
			"version": bi.Version,
			"commit":  bi.Commit,
		},
	})
	buildInfo.Set(1)

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		buildInfo,
		m.tokensIssued,
		m.tokensVerified,
		m.tokensRevoked,
		m.tokensPurged,
		m.artifactsSaved,
		m.artifactsFetched,
		m.artifactsDeleted,
		m.bytesSaved,
		m.bytesFetched,
		m.opDuration,
		m.sweepsTotal,
		m.sweepArtifacts,
		m.sweepOrphans,
		m.sweepTokens,
		m.sweepDuration,
		m.persistenceFailures,
	)
	return m
}

// TokenIssued counts one issued token.
func (m *Metrics) TokenIssued() {
	if m == nil {
		return
	}
	m.tokensIssued.Inc()
}

// TokenVerified counts one verification with its result, "ok" or a
// rejection class.
func (m *Metrics) TokenVerified(result string) {
	if m == nil {
		return
	}
	m.tokensVerified.WithLabelValues(result).Inc()
}

// TokenRevoked counts one revocation.
func (m *Metrics) TokenRevoked() {
	if m == nil {
		return
	}
	m.tokensRevoked.Inc()
}

// TokensPurged counts n expired tokens removed from the table.
func (m *Metrics) TokensPurged(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.tokensPurged.Add(float64(n))
}

// ArtifactSaved counts one saved artifact of sizeBytes.
func (m *Metrics) ArtifactSaved(sizeBytes int) {
	if m == nil {
		return
	}
	m.artifactsSaved.Inc()
	m.bytesSaved.Add(float64(sizeBytes))
}

// ArtifactFetched counts one fetched artifact of sizeBytes.
func (m *Metrics) ArtifactFetched(sizeBytes int) {
	if m == nil {
		return
	}
	m.artifactsFetched.Inc()
	m.bytesFetched.Add(float64(sizeBytes))
}

// ArtifactDeleted counts one deleted artifact.
func (m *Metrics) ArtifactDeleted() {
	if m == nil {
		return
	}
	m.artifactsDeleted.Inc()
}

// ObserveOp records one service operation's latency.
func (m *Metrics) ObserveOp(op string, seconds float64) {
	if m == nil {
		return
	}
	m.opDuration.WithLabelValues(op).Observe(seconds)
}

// SweepCompleted records one finished sweep pass.
func (m *Metrics) SweepCompleted(artifacts, orphans, tokens int, seconds float64) {
	if m == nil {
		return
	}
	m.sweepsTotal.Inc()
	m.sweepArtifacts.Add(float64(artifacts))
	m.sweepOrphans.Add(float64(orphans))
	m.sweepTokens.Add(float64(tokens))
	m.sweepDuration.Observe(seconds)
}

// PersistenceFailure counts one failed durable write for store.
func (m *Metrics) PersistenceFailure(store string) {
	if m == nil {
		return
	}
	m.persistenceFailures.WithLabelValues(store).Inc()
}

// MustRegister adds further collectors, typically the table stats
// Collector, to the registry.
func (m *Metrics) MustRegister(cs ...prometheus.Collector) {
	if m == nil {
		return
	}
	m.registry.MustRegister(cs...)
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns the exposition endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
