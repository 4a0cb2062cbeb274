// Package metrics bundles the Prometheus instrumentation of the
// pipeline and the results server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the pipeline metrics and the gatherer backing the
// /metrics handler.
type Collector struct {
	gatherer prometheus.Gatherer

	SitesProcessed prometheus.Counter
	QCFailures     *prometheus.CounterVec
	RecordsStored  prometheus.Counter
	FiguresDrawn   prometheus.Counter
	StageDuration  *prometheus.HistogramVec
}

// NewCollector registers the pipeline metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	sites := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gnss_sites_processed_total",
		Help: "Number of site logs the baseline stage has analyzed.",
	})
	sites, err := registerCounter(reg, sites)
	if err != nil {
		return nil, err
	}

	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gnss_qc_failures_total",
		Help: "Quality-control rejections, labeled by gate reason.",
	}, []string{"reason"})
	failures, err = registerCounterVec(reg, failures)
	if err != nil {
		return nil, err
	}

	records := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "site_records_stored_total",
		Help: "Joined site records written by the export stage.",
	})
	records, err = registerCounter(reg, records)
	if err != nil {
		return nil, err
	}

	figures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "figures_rendered_total",
		Help: "Figure images written by the render stage.",
	})
	figures, err = registerCounter(reg, figures)
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_stage_duration_seconds",
		Help:    "Wall time per pipeline stage.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
	}, []string{"stage"})
	durations, err = registerHistogramVec(reg, durations)
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:       gatherer,
		SitesProcessed: sites,
		QCFailures:     failures,
		RecordsStored:  records,
		FiguresDrawn:   figures,
		StageDuration:  durations,
	}, nil
}

// Handler returns the HTTP handler serving the collected metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(prometheus.Counter), nil
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec), nil
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.HistogramVec), nil
		}
		return nil, err
	}
	return vec, nil
}
