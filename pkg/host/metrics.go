package host

import (
	"context"

	"github.com/aretw0/crosscall/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts host activity in Prometheus collectors.
type Metrics struct {
	Calls    *prometheus.CounterVec
	GasBurnt *prometheus.HistogramVec
	Plans    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crosscall_calls_total",
				Help: "Total number of executed calls",
			},
			[]string{"target", "method", "status"},
		),
		GasBurnt: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crosscall_gas_burnt",
				Help:    "Gas burnt per call",
				Buckets: prometheus.ExponentialBuckets(float64(domain.TGas/4), 2, 8),
			},
			[]string{"target", "method"},
		),
		Plans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crosscall_plans_total",
				Help: "Total number of plans handed to the host, by phase reached",
			},
			[]string{"owner", "phase"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "crosscall_call_duration_seconds",
				Help: "Duration of call invocations",
			},
			[]string{"target", "method"},
		),
	}

	for _, c := range []prometheus.Collector{m.Calls, m.GasBurnt, m.Plans, m.Duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCallResolved: func(ctx context.Context, e *domain.CallEvent) {
			target := string(e.Call.Target)
			m.Calls.WithLabelValues(target, e.Call.Method, string(e.Status)).Inc()
			m.GasBurnt.WithLabelValues(target, e.Call.Method).Observe(float64(e.GasBurnt))
			m.Duration.WithLabelValues(target, e.Call.Method).Observe(e.Duration.Seconds())
		},
		OnPlanScheduled: func(ctx context.Context, e *domain.PlanEvent) {
			m.Plans.WithLabelValues(string(e.Owner), string(e.Phase)).Inc()
		},
		OnContinuation: func(ctx context.Context, e *domain.PlanEvent) {
			m.Plans.WithLabelValues(string(e.Owner), string(e.Phase)).Inc()
		},
	}
}

// WithMetrics registers m's hooks on the host.
func WithMetrics(m *Metrics) Option {
	return WithHooks(m.Hooks())
}
