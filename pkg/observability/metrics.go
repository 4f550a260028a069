// Package observability holds the process's Prometheus metric vectors.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PendingTasks tracks pending_tasks{priority} from spec.md §6.
	PendingTasks = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sneakpeek_pending_tasks",
		Help: "Current number of PENDING tasks per priority",
	}, []string{"priority"})

	// ActiveTasks tracks the active_tasks gauge.
	ActiveTasks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sneakpeek_active_tasks",
		Help: "Current number of STARTED tasks across the worker pool",
	})

	// TasksTotal tracks tasks_total{status}.
	TasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sneakpeek_tasks_total",
		Help: "Total tasks reaching each terminal (or pending) status",
	}, []string{"status"})

	// TaskDurationSeconds tracks task_duration_seconds.
	TaskDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sneakpeek_task_duration_seconds",
		Help:    "Duration from started_at to finished_at",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
	})

	// MiddlewareInvocationsTotal tracks middleware_invocations_total{name,stage}.
	MiddlewareInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sneakpeek_middleware_invocations_total",
		Help: "Middleware hook invocations",
	}, []string{"name", "stage"})

	// SchedulerLeaseOwned is the scheduler_lease_owned gauge (1 = active, 0 = standby).
	SchedulerLeaseOwned = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sneakpeek_scheduler_lease_owned",
		Help: "1 if this process currently holds the scheduler lease, else 0",
	})

	// SchedulerSkips tracks at-most-one-concurrent-execution skips and
	// backpressure rejections, keyed by reason.
	SchedulerSkips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sneakpeek_scheduler_skips_total",
		Help: "Scheduler trigger evaluations that did not enqueue a task",
	}, []string{"reason"})

	// ReaperDeadTasks counts tasks transitioned to DEAD by the reaper.
	ReaperDeadTasks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sneakpeek_reaper_dead_tasks_total",
		Help: "Tasks transitioned to DEAD by the stale-heartbeat reaper",
	})

	// HistoryGCDeleted counts tasks deleted by history retention GC.
	HistoryGCDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sneakpeek_history_gc_deleted_total",
		Help: "Terminal tasks deleted by the history retention garbage collector",
	})

	// RedisOpLatency tracks round-trip latency of storage-layer Redis calls.
	RedisOpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sneakpeek_redis_op_duration_seconds",
		Help:    "Latency of Redis-backed storage operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)
