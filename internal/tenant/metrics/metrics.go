package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the tenant module.
type Metrics struct {
	TenantCreated         prometheus.Counter
	ResolveTenantDuration prometheus.Histogram
	ResolutionFailures    *prometheus.CounterVec
}

// New creates a Metrics instance with all tenant module metrics registered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TenantCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "skdm_tenants_created_total",
			Help: "Total number of tenants created",
		}),
		ResolveTenantDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "skdm_resolve_tenant_duration_seconds",
			Help:    "Duration of ResolveTenant operations (login critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ResolutionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "skdm_tenant_resolution_failures_total",
			Help: "Tenant resolution failures by reason",
		}, []string{"reason"}),
	}
}

// IncrementTenantCreated records a successful tenant creation.
func (m *Metrics) IncrementTenantCreated() {
	m.TenantCreated.Inc()
}

// ObserveResolveTenant records the duration of a ResolveTenant operation.
func (m *Metrics) ObserveResolveTenant(start time.Time) {
	m.ResolveTenantDuration.Observe(time.Since(start).Seconds())
}

// IncResolutionFailure records a failed resolution attempt.
func (m *Metrics) IncResolutionFailure(reason string) {
	m.ResolutionFailures.WithLabelValues(reason).Inc()
}
