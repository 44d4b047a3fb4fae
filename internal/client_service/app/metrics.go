package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clients_app",
			Name:      "operations_total",
			Help:      "Total number of client directory operations.",
		},
		[]string{"operation", "outcome"}, // e.g., operation="update", outcome="not_found"
	)

	eventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clients_app",
			Name:      "events_published_total",
			Help:      "Total number of client change events handed to the broker.",
		},
		[]string{"subject", "status"},
	)
)

const (
	outcomeSuccess      = "success"
	outcomeNotFound     = "not_found"
	outcomeNotPerformed = "not_performed"
	outcomeError        = "error"
)
