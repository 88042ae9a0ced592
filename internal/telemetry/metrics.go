package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "examiner"

// Submission outcomes.
const (
	OutcomeGraded    = "graded"
	OutcomeRejected  = "rejected"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

var (
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_total",
		Help:      "Attempt submissions by outcome.",
	}, []string{"outcome"})

	GradingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "grading_duration_seconds",
		Help:      "Time spent grading and persisting a submission.",
		Buckets:   prometheus.DefBuckets,
	})

	ActiveAttempts = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "attempts_active",
		Help:      "Attempts currently held in memory.",
	})

	AttemptsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attempts_finished_total",
		Help:      "Attempts that reached a terminal state, by reason.",
	}, []string{"reason"})

	AttemptsDiscardedUngraded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attempts_discarded_ungraded_total",
		Help:      "Closed attempts discarded while their grading still failed.",
	})

	EventHandlerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_handler_failures_total",
		Help:      "Event handlers that returned an error or panicked.",
	}, []string{"event"})
)
