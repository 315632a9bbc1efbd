package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	aegis "github.com/aegisauth/aegis"
	"github.com/aegisauth/aegis/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() aegis.MetricsSnapshot
	AuditDropped() uint64
}

// Exporter is a [prometheus.Collector] over the engine's counter table.
// Collection reads a fresh snapshot, so the exporter itself holds no state
// between scrapes.
type Exporter struct {
	source       metricsSource
	counterDescs map[aegis.MetricID]*prometheus.Desc
	droppedDesc  *prometheus.Desc
	registry     *prometheus.Registry
}

// NewExporter creates a Prometheus exporter that reads from the given [aegis.Engine].
func NewExporter(engine *aegis.Engine) *Exporter {
	return NewExporterFromSource(engine)
}

// NewExporterFromSource creates a Prometheus exporter from a custom source,
// for tests and wrappers.
func NewExporterFromSource(source metricsSource) *Exporter {
	e := &Exporter{
		source:       source,
		counterDescs: make(map[aegis.MetricID]*prometheus.Desc, len(internaldefs.CounterDefs)),
		droppedDesc: prometheus.NewDesc(
			internaldefs.AuditDroppedDef.Name,
			internaldefs.AuditDroppedDef.Help,
			nil, nil,
		),
		registry: prometheus.NewRegistry(),
	}
	for _, def := range internaldefs.CounterDefs {
		e.counterDescs[def.ID] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	e.registry.MustRegister(e)
	return e
}

// Describe implements [prometheus.Collector].
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	for _, desc := range e.counterDescs {
		ch <- desc
	}
	ch <- e.droppedDesc
}

// Collect implements [prometheus.Collector].
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	if e == nil || e.source == nil {
		return
	}

	snapshot := e.source.MetricsSnapshot()
	for _, def := range internaldefs.CounterDefs {
		ch <- prometheus.MustNewConstMetric(
			e.counterDescs[def.ID],
			prometheus.CounterValue,
			float64(snapshot.Counters[def.ID]),
		)
	}
	ch <- prometheus.MustNewConstMetric(
		e.droppedDesc,
		prometheus.CounterValue,
		float64(e.source.AuditDropped()),
	)
}

// Handler returns an http.Handler serving the private registry.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
