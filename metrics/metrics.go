package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "restaurant",
			Name:      "transitions_total",
			Help:      "Lifecycle transitions attempted, by entity, transition and result.",
		},
		[]string{"entity", "transition", "result"},
	)

	tableAllocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "restaurant",
			Name:      "table_allocations_total",
			Help:      "Table allocator outcomes.",
		},
		[]string{"result"},
	)

	notificationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "restaurant",
			Name:      "notification_failures_total",
			Help:      "Notifications a sink failed to deliver.",
		},
		[]string{"sink"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(transitions, tableAllocations, notificationFailures)
	})
}

// IncTransition records a transition result: "ok", "invalid", "denied" or "error".
func IncTransition(entity, transition, result string) {
	transitions.WithLabelValues(entity, transition, result).Inc()
}

func IncTableAllocation(result string) {
	tableAllocations.WithLabelValues(result).Inc()
}

func IncNotificationFailure(sink string) {
	notificationFailures.WithLabelValues(sink).Inc()
}
