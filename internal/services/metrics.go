package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "dynasty"
	metricsSubsystem = "etl"
)

// Metrics records pipeline outcomes. A nil *Metrics is a no-op.
type Metrics struct {
	runs            *prometheus.CounterVec
	runDuration     prometheus.Histogram
	lastSuccessUnix prometheus.Gauge
	playersFiltered prometheus.Gauge
	valuesValid     prometheus.Gauge
	valuesTotal     prometheus.Gauge
	rowsPruned      prometheus.Counter
}

// NewMetrics registers the pipeline collectors on registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	auto := promauto.With(registry)
	return &Metrics{
		runs: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "runs_total",
			Help:      "Valuation runs by outcome",
		}, []string{"outcome"}),
		runDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of valuation runs",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1500},
		}),
		lastSuccessUnix: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		}),
		playersFiltered: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "players_filtered",
			Help:      "Players that passed filtering in the last successful run",
		}),
		valuesValid: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "values_valid",
			Help:      "Non-null dynasty values written in the last successful run",
		}),
		valuesTotal: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "values_total",
			Help:      "Value rows written in the last successful run",
		}),
		rowsPruned: auto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "rows_pruned_total",
			Help:      "Value rows deleted by retention cleanup",
		}),
	}
}

// ObserveRun records one finished run. summary may be nil on failure.
func (m *Metrics) ObserveRun(summary *RunSummary, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.runDuration.Observe(duration.Seconds())
	if err != nil {
		m.runs.WithLabelValues(runOutcome(err)).Inc()
		return
	}
	m.runs.WithLabelValues("success").Inc()
	m.lastSuccessUnix.SetToCurrentTime()
	if summary != nil {
		m.playersFiltered.Set(float64(summary.PlayersFiltered))
		m.valuesValid.Set(float64(summary.ValidValues))
		m.valuesTotal.Set(float64(summary.TotalValues))
		m.rowsPruned.Add(float64(summary.RowsPruned + summary.NullRowsPruned))
	}
}
