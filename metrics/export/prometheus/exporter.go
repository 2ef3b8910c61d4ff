package prometheus

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
}

type counterDesc struct {
	id   goSession.MetricID
	desc *prom.Desc
}

// PrometheusExporter is a [prom.Collector] over manager metrics. Values are read
// from one snapshot per scrape, so it can be registered on any registry.
type PrometheusExporter struct {
	source       metricsSource
	counters     []counterDesc
	histograms   []counterDesc
	auditDropped *prom.Desc
	registry     *prom.Registry
}

// NewPrometheusExporter creates an exporter reading from m.
func NewPrometheusExporter(m *goSession.Manager) *PrometheusExporter {
	if m == nil {
		return NewPrometheusExporterFromSource(nil)
	}
	return NewPrometheusExporterFromSource(m)
}

// NewPrometheusExporterFromSource creates an exporter over any snapshot source.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	p := &PrometheusExporter{
		source:       source,
		counters:     make([]counterDesc, 0, len(internaldefs.CounterDefs)),
		histograms:   make([]counterDesc, 0, len(internaldefs.HistogramDefs)),
		auditDropped: prom.NewDesc(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, nil, nil),
	}
	for _, def := range internaldefs.CounterDefs {
		p.counters = append(p.counters, counterDesc{id: def.ID, desc: prom.NewDesc(def.Name, def.Help, nil, nil)})
	}
	for _, def := range internaldefs.HistogramDefs {
		p.histograms = append(p.histograms, counterDesc{id: def.ID, desc: prom.NewDesc(def.Name, def.Help, nil, nil)})
	}

	p.registry = prom.NewRegistry()
	p.registry.MustRegister(p)
	return p
}

// Describe implements [prom.Collector].
func (p *PrometheusExporter) Describe(ch chan<- *prom.Desc) {
	for _, c := range p.counters {
		ch <- c.desc
	}
	for _, h := range p.histograms {
		ch <- h.desc
	}
	ch <- p.auditDropped
}

// Collect implements [prom.Collector]. Nothing is emitted while metrics are
// disabled and no audit event was dropped.
func (p *PrometheusExporter) Collect(ch chan<- prom.Metric) {
	if p == nil || p.source == nil {
		return
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return
	}

	for _, c := range p.counters {
		ch <- prom.MustNewConstMetric(c.desc, prom.CounterValue, float64(snapshot.Counters[c.id]))
	}

	for _, h := range p.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[h.id]))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for i, le := range internaldefs.HistogramUpperBounds {
			buckets[le] = cumulative[i]
		}
		// Sum is not tracked by the in-process histogram.
		ch <- prom.MustNewConstHistogram(h.desc, cumulative[len(cumulative)-1], 0, buckets)
	}

	ch <- prom.MustNewConstMetric(p.auditDropped, prom.CounterValue, float64(dropped))
}

// Registry returns the private registry the exporter is registered on.
func (p *PrometheusExporter) Registry() *prom.Registry {
	return p.registry
}

// Handler serves the exporter's registry in the Prometheus exposition format.
func (p *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
