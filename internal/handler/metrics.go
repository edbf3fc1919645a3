package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storigrad_registrations_total",
		Help: "Total number of successful user registrations.",
	})

	tokenVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storigrad_token_verifications_total",
			Help: "Total number of access token verification attempts by status.",
		},
		[]string{"status"},
	)

	turnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storigrad_turns_total",
			Help: "Total number of story turn advancements by outcome.",
		},
		[]string{"outcome"},
	)

	turnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storigrad_turn_duration_seconds",
		Help:    "Latency of story turn advancement including the provider call.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	templateCopiesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storigrad_template_copies_total",
		Help: "Total number of template copy-on-read operations.",
	})

	inferRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storigrad_infer_requests_total",
			Help: "Total number of intent routing requests by selected module.",
		},
		[]string{"module"},
	)
)
