package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SweepMetrics tracks the overdue invoice sweep.
type SweepMetrics struct {
	runs       *prometheus.CounterVec
	marked     prometheus.Counter
	backlog    prometheus.Gauge
	runSeconds prometheus.Histogram
}

var (
	sweepMetricsOnce sync.Once
	sweepMetrics     *SweepMetrics
)

// Sweep returns the process-wide sweep metrics, registering them on
// first use.
func Sweep() *SweepMetrics {
	return SweepWithConfig(Config{})
}

// SweepWithConfig returns the sweep metrics with service labels.
func SweepWithConfig(cfg Config) *SweepMetrics {
	sweepMetricsOnce.Do(func() {
		sweepMetrics = newSweepMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return sweepMetrics
}

// ResetSweepMetricsForTest clears the singleton between tests.
func ResetSweepMetricsForTest() {
	sweepMetricsOnce = sync.Once{}
	sweepMetrics = nil
}

func newSweepMetrics(registerer prometheus.Registerer, cfg Config) *SweepMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "influencer-billing"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &SweepMetrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "billing_overdue_sweep_runs_total",
				Help:        "Overdue sweep runs by outcome.",
				ConstLabels: constLabels,
			},
			[]string{"outcome"},
		),
		marked: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "billing_overdue_invoices_marked_total",
				Help:        "Invoices transitioned to OVERDUE by the sweep.",
				ConstLabels: constLabels,
			},
		),
		backlog: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name:        "billing_overdue_backlog",
				Help:        "Pending invoices currently past their due date.",
				ConstLabels: constLabels,
			},
		),
		runSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:        "billing_overdue_sweep_duration_seconds",
				Help:        "Wall time of one overdue sweep batch.",
				ConstLabels: constLabels,
				Buckets:     prometheus.DefBuckets,
			},
		),
	}

	for _, collector := range []prometheus.Collector{m.runs, m.marked, m.backlog, m.runSeconds} {
		if err := registerer.Register(collector); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				_ = already
				continue
			}
		}
	}
	return m
}

// ObserveRun records one sweep batch.
func (m *SweepMetrics) ObserveRun(outcome string, marked int, duration time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	if marked > 0 {
		m.marked.Add(float64(marked))
	}
	m.runSeconds.Observe(duration.Seconds())
}

// SetBacklog records the current past-due pending count.
func (m *SweepMetrics) SetBacklog(count int64) {
	if m == nil {
		return
	}
	m.backlog.Set(float64(count))
}
