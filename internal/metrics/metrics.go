// Package metrics exports the corpus health summary as Prometheus gauges in
// the node_exporter textfile format, so a scheduled `onto health` run can feed
// dashboards without a long-running server.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/papapumpkin/onto/internal/report"
)

const namespace = "onto"

// Exporter holds one registry populated from a health summary.
type Exporter struct {
	registry *prometheus.Registry

	documents    *prometheus.GaugeVec
	total        prometheus.Gauge
	connectivity prometheus.Gauge
	orphans      prometheus.Gauge
	broken       prometheus.Gauge
	cycles       prometheus.Gauge
}

// NewExporter registers the health gauges on a fresh registry.
func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		documents: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "documents",
			Help:      "Documents in the corpus by type.",
		}, []string{"type"}),
		total: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents in the corpus.",
		}),
		connectivity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connectivity_percent",
			Help:      "Percentage of non-foundation documents reachable from foundation documents.",
		}),
		orphans: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "orphans",
			Help:      "Documents with no dependents.",
		}),
		broken: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "broken_links",
			Help:      "References to documents that do not exist.",
		}),
		cycles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dependency_cycles",
			Help:      "Dependency cycles among non-log documents.",
		}),
	}
	e.registry.MustRegister(e.documents, e.total, e.connectivity, e.orphans, e.broken, e.cycles)
	return e
}

// Observe sets every gauge from h.
func (e *Exporter) Observe(h report.Health) {
	e.documents.Reset()
	for _, tc := range h.Types {
		e.documents.WithLabelValues(string(tc.Type)).Set(float64(tc.Count))
	}
	e.total.Set(float64(h.Total))
	e.connectivity.Set(h.Connectivity)
	e.orphans.Set(float64(len(h.Orphans)))
	e.broken.Set(float64(len(h.Broken)))
	e.cycles.Set(float64(len(h.Cycles)))
}

// Gatherer exposes the registry, mainly for tests.
func (e *Exporter) Gatherer() prometheus.Gatherer {
	return e.registry
}

// WriteTextfile writes the gauges to path. The file is written under a
// temporary name and renamed into place.
func (e *Exporter) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, e.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
