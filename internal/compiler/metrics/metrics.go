// Package metrics holds the compiler's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Compilations    *prometheus.CounterVec
	CompileDuration prometheus.Histogram
	ArtifactBytes   prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Compilations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "skdm_compiler_runs_total",
			Help: "Compilation runs by outcome (done, failed, error).",
		}, []string{"outcome"}),
		CompileDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "skdm_compiler_duration_seconds",
			Help:    "Wall time of a compilation run.",
			Buckets: prometheus.DefBuckets,
		}),
		ArtifactBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "skdm_compiler_artifact_bytes",
			Help:    "Size of rendered declaration artifacts.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}),
	}
}
