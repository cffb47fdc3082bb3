package tickets

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TicketOutcomes is the total number of ticket operations by outcome.
	TicketOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_outcomes_total",
			Help: "Total number of ticket operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// Compensations is the total number of compensating actions taken, and whether they succeeded.
	Compensations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_compensations_total",
			Help: "Total number of compensating actions",
		},
		[]string{"action", "result"},
	)

	// CollaboratorDuration is the duration of calls to external collaborators.
	CollaboratorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "tickets_collaborator_duration",
			Help: "Duration of calls to external collaborators",
		},
		[]string{"call"},
	)
)

func observeCompensation(action string, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	Compensations.WithLabelValues(action, result).Inc()
}
