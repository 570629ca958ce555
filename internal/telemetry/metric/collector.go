// Package metric provides Prometheus instrumentation for PlotVault.
package metric

import "github.com/prometheus/client_golang/prometheus"

// ArtifactStats is the metadata-store view the collector scrapes.
type ArtifactStats interface {
	Count() int
	CountByGroup() map[string]int
}

// TokenStats is the token-table view the collector scrapes.
type TokenStats interface {
	Count() int
}

// Collector exports live table sizes as gauges. It reads the stores'
// in-memory mirrors, so a scrape never touches disk.
type Collector struct {
	artifacts ArtifactStats
	tokens    TokenStats

	artifactsDesc      *prometheus.Desc
	groupArtifactsDesc *prometheus.Desc
	tokensDesc         *prometheus.Desc
}

// NewCollector creates a collector over the given stats sources.
// Either source may be nil; its metrics are then omitted.
func NewCollector(artifacts ArtifactStats, tokens TokenStats) *Collector {
	return &Collector{
		artifacts: artifacts,
		tokens:    tokens,
		artifactsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "artifacts"),
			"Artifact records in the metadata table.",
			nil, nil,
		),
		groupArtifactsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "group_artifacts"),
			"Artifact records per group.",
			[]string{"group"}, nil,
		),
		tokensDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "tokens"),
			"Entries in the token table.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.artifactsDesc
	ch <- c.groupArtifactsDesc
	ch <- c.tokensDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.artifacts != nil {
		ch <- prometheus.MustNewConstMetric(
			c.artifactsDesc, prometheus.GaugeValue, float64(c.artifacts.Count()))
		for group, n := range c.artifacts.CountByGroup() {
			ch <- prometheus.MustNewConstMetric(
				c.groupArtifactsDesc, prometheus.GaugeValue, float64(n), group)
		}
	}
	if c.tokens != nil {
		ch <- prometheus.MustNewConstMetric(
			c.tokensDesc, prometheus.GaugeValue, float64(c.tokens.Count()))
	}
}
