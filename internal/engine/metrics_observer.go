package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsObserver turns exec_end and exec_error events into Prometheus metrics
type MetricsObserver struct {
	queries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rows     *prometheus.CounterVec
}

// NewMetricsObserver creates the query metrics under namespace and
// registers them with reg
func NewMetricsObserver(namespace string, reg prometheus.Registerer) (*MetricsObserver, error) {
	m := &MetricsObserver{
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Total number of executed queries",
			},
			[]string{"kind", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Duration of query execution in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"kind"},
		),
		rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_total",
				Help:      "Rows returned by selects and affected by writes",
			},
			[]string{"kind"},
		),
	}

	for _, c := range []prometheus.Collector{m.queries, m.duration, m.rows} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// OnEvent implements the Observer interface
func (m *MetricsObserver) OnEvent(event Event) {
	switch data := event.Data.(type) {
	case ExecSummary:
		m.queries.WithLabelValues(data.Kind, "success").Inc()
		m.duration.WithLabelValues(data.Kind).Observe(data.Duration.Seconds())
		m.rows.WithLabelValues(data.Kind).Add(float64(data.RowsAffected + data.RowsReturned))
	case ExecFailure:
		kind := data.Kind
		if kind == "" {
			kind = "unparsed"
		}
		m.queries.WithLabelValues(kind, "error").Inc()
		m.duration.WithLabelValues(kind).Observe(data.Duration.Seconds())
	}
}
