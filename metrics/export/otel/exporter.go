package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
}

// Option customizes an [OTelExporter].
type Option func(*OTelExporter)

// WithAttributes attaches attrs to every observation, e.g. the session namespace
// when several managers share one meter.
func WithAttributes(attrs ...attribute.KeyValue) Option {
	return func(e *OTelExporter) {
		e.attrs = append(e.attrs, attrs...)
	}
}

type latencyInstruments struct {
	id      goSession.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// OTelExporter publishes manager metrics through observable OTel instruments.
// Every instrument is read from one snapshot per collection.
//
// Histograms are exported Prometheus style: a cumulative "_bucket" gauge with
// one data point per "le" bound and a "_count" gauge.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	attrs        []attribute.KeyValue

	counters     map[goSession.MetricID]metric.Int64ObservableCounter
	latencies    []latencyInstruments
	auditDropped metric.Int64ObservableCounter

	base     metric.MeasurementOption
	bucketLE []metric.MeasurementOption
}

// NewOTelExporter registers instruments on meter that read from m.
func NewOTelExporter(meter metric.Meter, m *goSession.Manager, opts ...Option) (*OTelExporter, error) {
	if m == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, m, opts...)
}

func NewOTelExporterFromSource(meter metric.Meter, source metricsSource, opts ...Option) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{
		source:   source,
		counters: make(map[goSession.MetricID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.base = metric.WithAttributes(e.attrs...)
	for _, le := range bucketBounds() {
		attrs := append(append([]attribute.KeyValue{}, e.attrs...), attribute.String("le", le))
		e.bucketLE = append(e.bucketLE, metric.WithAttributes(attrs...))
	}

	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		e.counters[def.ID] = ins
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket",
			metric.WithDescription(def.Help+" Cumulative count per upper bound."),
		)
		if err != nil {
			return nil, fmt.Errorf("create histogram buckets %s: %w", def.Name, err)
		}
		count, err := meter.Int64ObservableGauge(def.Name+"_count",
			metric.WithDescription(def.Help+" Total samples."),
		)
		if err != nil {
			return nil, fmt.Errorf("create histogram count %s: %w", def.Name, err)
		}
		e.latencies = append(e.latencies, latencyInstruments{id: def.ID, buckets: buckets, count: count})
		observables = append(observables, buckets, count)
	}

	auditDropped, err := meter.Int64ObservableCounter(
		internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	e.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	registration, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = registration
	return e, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()

	for id, ins := range e.counters {
		o.ObserveInt64(ins, int64(snapshot.Counters[id]), e.base)
	}
	for _, l := range e.latencies {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[l.id]))
		for i, le := range e.bucketLE {
			o.ObserveInt64(l.buckets, int64(cumulative[i]), le)
		}
		o.ObserveInt64(l.count, int64(cumulative[len(cumulative)-1]), e.base)
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()), e.base)
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}

// bucketBounds renders the finite upper bounds followed by "+Inf".
func bucketBounds() []string {
	out := make([]string, 0, len(internaldefs.HistogramUpperBounds)+1)
	for _, b := range internaldefs.HistogramUpperBounds {
		out = append(out, strconv.FormatFloat(b, 'g', -1, 64))
	}
	return append(out, "+Inf")
}
