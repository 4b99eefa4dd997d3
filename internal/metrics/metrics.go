package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProcessedTasks counts tasks that reached SUCCESS.
	ProcessedTasks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "txproc_processed_tasks_total",
		Help: "The total number of successfully processed conversion tasks",
	})
	// FailedTasks counts tasks that reached FAILURE.
	FailedTasks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "txproc_failed_tasks_total",
		Help: "The total number of conversion tasks that ended in failure",
	})
	// DeadLetteredTasks counts envelopes parked on the DLQ topic.
	DeadLetteredTasks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "txproc_dead_lettered_tasks_total",
		Help: "The total number of tasks published to the dead-letter topic",
	})
	// ProcessingDuration observes end-to-end handler time per task.
	ProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "txproc_processing_duration_seconds",
		Help:    "Time spent processing conversion tasks",
		Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
	})
)
