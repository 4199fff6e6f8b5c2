// Package metrics holds the declaration module's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	DeclarationsCreated prometheus.Counter
	StatusTransitions   *prometheus.CounterVec
	SurrendersRecorded  prometheus.Counter
	SurrendersRejected  prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DeclarationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "skdm_declarations_created_total",
			Help: "Number of declarations created.",
		}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "skdm_declaration_status_transitions_total",
			Help: "Declaration status transitions by target status.",
		}, []string{"to"}),
		SurrendersRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "skdm_certificate_surrenders_total",
			Help: "Certificate surrenders recorded.",
		}),
		SurrendersRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "skdm_certificate_surrenders_rejected_total",
			Help: "Certificate surrenders rejected for exceeding remaining quantity.",
		}),
	}
}
