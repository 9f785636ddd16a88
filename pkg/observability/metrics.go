package observability

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aretw0/probe/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "probe"

// Metrics holds the collectors fed by the lifecycle hooks.
type Metrics struct {
	Sessions   *prometheus.CounterVec
	Nodes      *prometheus.CounterVec
	Depth      prometheus.Histogram
	Cutoffs    *prometheus.CounterVec
	References prometheus.Counter
	Recovered  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of top-level analyses",
		}, []string{"in_scope"}),
		Nodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_total",
			Help:      "Total number of analysed nodes by type",
		}, []string{"type"}),
		Depth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_depth",
			Help:      "Nesting level at which nodes were analysed",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
		Cutoffs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cutoffs_total",
			Help:      "Total number of nodes left unexpanded by a limit",
		}, []string{"reason"}),
		References: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "references_total",
			Help:      "Total number of cycles turned into reference nodes",
		}),
		Recovered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recovered_total",
			Help:      "Total number of errors swallowed during analyses",
		}, []string{"kind"}),
	}
	for _, c := range []prometheus.Collector{m.Sessions, m.Nodes, m.Depth, m.Cutoffs, m.References, m.Recovered} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStart: func(e *domain.SessionEvent) {
			m.Sessions.WithLabelValues(strconv.FormatBool(e.InScope)).Inc()
		},
		OnNode: func(e *domain.NodeEvent) {
			m.Nodes.WithLabelValues(string(e.Node.Type)).Inc()
			m.Depth.Observe(float64(e.Level))
		},
		OnCutoff: func(e *domain.CutoffEvent) {
			m.Cutoffs.WithLabelValues(e.Reason).Inc()
		},
		OnReference: func(*domain.NodeEvent) {
			m.References.Inc()
		},
		OnRecovered: func(e *domain.RecoveredEvent) {
			m.Recovered.WithLabelValues(e.Kind).Inc()
		},
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// LogHooks logs sessions at debug level and limits or recovered errors at
// warn level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStart: func(e *domain.SessionEvent) {
			logger.Debug("analysis_start", "name", e.Name, "type", e.TypeName, "in_scope", e.InScope)
		},
		OnCutoff: func(e *domain.CutoffEvent) {
			logger.Warn("analysis_cutoff",
				"node", e.Node.Name,
				"level", e.Level,
				"reason", e.Reason,
				"emergency", e.Emergency,
			)
		},
		OnRecovered: func(e *domain.RecoveredEvent) {
			logger.Warn("analysis_recovered", "kind", e.Kind, "error", e.Err)
		},
	}
}
