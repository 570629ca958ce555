// Package metric provides Prometheus instrumentation for PlotVault.
//
// The package has two halves:
//
//   - prometheus.go: the Metrics set (counters and histograms the
//     services increment) over a dedicated registry, with the
//     exposition handler
//   - collector.go: a pull collector exporting live table sizes
//
// Metrics include:
//
//   - Token issue, verification (by result), revocation and purge
//     counters
//   - Artifact save, fetch and delete counters with payload bytes
//   - Operation latency histograms
//   - Sweep pass counters and durations
//   - Persistence failure counters by store
//
// A nil *Metrics disables everything, so callers never guard their
// instrumentation calls.
package metric
