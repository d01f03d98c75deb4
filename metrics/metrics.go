// Package metrics exports prediction counters and latencies to Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"carprice/features"
	"carprice/models"
	"carprice/regressor"
	"carprice/services"
	"carprice/tabular"
)

const namespace = "carprice"

// Failure kinds used as the "kind" label.
const (
	KindMalformed      = "malformed_record"
	KindMissingColumn  = "missing_column"
	KindEmptyTable     = "empty_table"
	KindMalformedTable = "malformed_table"
	KindNotFitted      = "not_fitted"
	KindInference      = "inference"
	KindOther          = "other"
)

// Collector owns a dedicated registry and implements services.Observer.
type Collector struct {
	registry *prometheus.Registry

	predictions *prometheus.CounterVec
	dropped     prometheus.Counter
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

var _ services.Observer = (*Collector)(nil)

// NewCollector creates and registers every metric, plus the Go runtime and
// process collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "predictions_total",
				Help:      "Number of rows priced, by request path",
			},
			[]string{"path"},
		),
		dropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_dropped_total",
				Help:      "Table rows excluded before prediction",
			},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "prediction_failures_total",
				Help:      "Failed prediction requests, by path and error kind",
			},
			[]string{"path", "kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "prediction_duration_seconds",
				Help:      "Time spent transforming and scoring one request",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"path"},
		),
	}

	c.registry.MustRegister(
		c.predictions, c.dropped, c.failures, c.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) ObservePrediction(path string, rows int, elapsed time.Duration) {
	c.predictions.WithLabelValues(path).Add(float64(rows))
	c.duration.WithLabelValues(path).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveDropped(rows int) {
	c.dropped.Add(float64(rows))
}

func (c *Collector) ObserveFailure(path string, err error) {
	c.failures.WithLabelValues(path, Kind(err)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Kind classifies a prediction error for the failure counter.
func Kind(err error) string {
	var (
		mre *models.MalformedRecordError
		mce *services.MissingColumnError
		inf *regressor.InferenceError
	)
	switch {
	case errors.As(err, &mre):
		return KindMalformed
	case errors.As(err, &mce):
		return KindMissingColumn
	case errors.Is(err, tabular.ErrEmptyTable):
		return KindEmptyTable
	case errors.Is(err, tabular.ErrMalformedTable):
		return KindMalformedTable
	case errors.Is(err, features.ErrNotFitted):
		return KindNotFitted
	case errors.As(err, &inf):
		return KindInference
	default:
		return KindOther
	}
}
