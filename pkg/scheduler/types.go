package scheduler

import "time"

// Config bounds the scheduler's polling cadence and admission limits.
// Defaults mirror spec.md §4's suggested production values, except the
// per-scraper history retention, which defaults to 100 (see DESIGN.md).
type Config struct {
	// TriggerPollInterval is how often due schedules are checked.
	TriggerPollInterval time.Duration
	// PendingHighWaterMark caps total backlog depth before new enqueues
	// are rejected as backpressure, independent of the circuit breaker.
	PendingHighWaterMark int
	// MaxConcurrency is the worker pool size used for saturation in the
	// circuit breaker's admission check.
	MaxConcurrency int

	ReaperInterval      time.Duration
	ReaperDeadThreshold time.Duration

	HistoryGCInterval          time.Duration
	HistoryRetentionPerScraper int

	MetricsInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		TriggerPollInterval:        time.Second,
		PendingHighWaterMark:       10000,
		MaxConcurrency:             50,
		ReaperInterval:             10 * time.Second,
		ReaperDeadThreshold:        25 * time.Second,
		HistoryGCInterval:          time.Hour,
		HistoryRetentionPerScraper: 100,
		MetricsInterval:            5 * time.Second,
	}
}
