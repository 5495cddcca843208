package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() sessionauth.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter is a prometheus.Collector over an Engine's counters.
// Values are read from a snapshot on every scrape; nothing is cached.
type PrometheusExporter struct {
	source metricsSource

	counters     map[sessionauth.MetricID]*prometheus.Desc
	histograms   map[sessionauth.MetricID]*prometheus.Desc
	auditDropped *prometheus.Desc
	registry     *prometheus.Registry
}

func NewPrometheusExporter(engine *sessionauth.Engine) *PrometheusExporter {
	return NewPrometheusExporterFromSource(engine)
}

// NewPrometheusExporterFromSource builds an exporter and registers it in a
// private registry served by Handler.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	p := &PrometheusExporter{
		source:     source,
		counters:   make(map[sessionauth.MetricID]*prometheus.Desc, len(internaldefs.CounterDefs)),
		histograms: make(map[sessionauth.MetricID]*prometheus.Desc, len(internaldefs.HistogramDefs)),
		auditDropped: prometheus.NewDesc(
			"sessionauth_audit_dropped_total",
			"Audit events dropped because the buffer was full.",
			nil, nil,
		),
		registry: prometheus.NewRegistry(),
	}
	for _, def := range internaldefs.CounterDefs {
		p.counters[def.ID] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	for _, def := range internaldefs.HistogramDefs {
		p.histograms[def.ID] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	p.registry.MustRegister(p)
	return p
}

// Registry exposes the private registry so callers can add process or Go
// collectors next to the engine's series.
func (p *PrometheusExporter) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *PrometheusExporter) Describe(ch chan<- *prometheus.Desc) {
	for _, def := range internaldefs.CounterDefs {
		ch <- p.counters[def.ID]
	}
	for _, def := range internaldefs.HistogramDefs {
		ch <- p.histograms[def.ID]
	}
	ch <- p.auditDropped
}

func (p *PrometheusExporter) Collect(ch chan<- prometheus.Metric) {
	if p.source == nil {
		return
	}
	snapshot := p.source.MetricsSnapshot()

	for _, def := range internaldefs.CounterDefs {
		v, ok := snapshot.Counters[def.ID]
		if !ok {
			continue
		}
		ch <- prometheus.MustNewConstMetric(p.counters[def.ID], prometheus.CounterValue, float64(v))
	}

	for _, def := range internaldefs.HistogramDefs {
		raw, ok := snapshot.Histograms[def.ID]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for i, bound := range internaldefs.HistogramUpperBounds {
			buckets[bound] = cumulative[i]
		}
		// The engine keeps bucket counts only, so the sum is not known.
		ch <- prometheus.MustNewConstHistogram(p.histograms[def.ID], cumulative[len(cumulative)-1], 0, buckets)
	}

	ch <- prometheus.MustNewConstMetric(p.auditDropped, prometheus.CounterValue, float64(p.source.AuditDropped()))
}
