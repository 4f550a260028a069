package model

import (
	"encoding/json"
	"fmt"
)

// Schedule is the trigger kind bound to a scraper.
type Schedule string

const (
	ScheduleInactive    Schedule = "inactive"
	ScheduleEverySecond Schedule = "every_second"
	ScheduleEveryMinute Schedule = "every_minute"
	ScheduleEveryHour   Schedule = "every_hour"
	ScheduleEveryDay    Schedule = "every_day"
	ScheduleEveryWeek   Schedule = "every_week"
	ScheduleCrontab     Schedule = "crontab"
)

// Priority is the total order UTMOST < HIGH < NORMAL used by dequeue.
// Lower numeric value means higher urgency.
type Priority int

const (
	PriorityUtmost Priority = 0
	PriorityHigh   Priority = 1
	PriorityNormal Priority = 2
)

// Priorities is the default scan order strict-priority dequeue uses.
var Priorities = []Priority{PriorityUtmost, PriorityHigh, PriorityNormal}

func (p Priority) String() string {
	switch p {
	case PriorityUtmost:
		return "UTMOST"
	case PriorityHigh:
		return "HIGH"
	case PriorityNormal:
		return "NORMAL"
	default:
		return "UNKNOWN"
	}
}

func ParsePriority(s string) (Priority, error) {
	switch s {
	case "UTMOST":
		return PriorityUtmost, nil
	case "HIGH":
		return PriorityHigh, nil
	case "NORMAL":
		return PriorityNormal, nil
	default:
		return 0, NewError(KindValidationError, fmt.Sprintf("unknown priority %q", s), nil)
	}
}

// ScraperConfig is the opaque configuration record attached to a scraper.
// Params is passed to the handler untouched; MiddlewareOverrides is merged
// per-middleware-name with that middleware's default config at request time.
// TaskTimeoutSeconds bounds a single run's wall-clock time; zero means
// unlimited, per spec.md §5.
type ScraperConfig struct {
	Params              json.RawMessage            `json:"params,omitempty"`
	MiddlewareOverrides map[string]json.RawMessage `json:"middleware_overrides,omitempty"`
	TaskTimeoutSeconds  int                        `json:"task_timeout_seconds,omitempty"`
}

// Scraper is a persisted configuration binding a handler to a schedule.
type Scraper struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	HandlerName     string        `json:"handler_name"`
	Config          ScraperConfig `json:"config"`
	ScheduleKind    Schedule      `json:"schedule"`
	ScheduleCrontab string        `json:"schedule_crontab,omitempty"`
	SchedulePriority Priority     `json:"schedule_priority"`
}

// Validate checks the invariants spec.md §3 requires before a scraper is
// persisted. It does not check handler_name resolution — that happens at
// enqueue time against the live handler registry.
func (s *Scraper) Validate() error {
	if s.Name == "" {
		return NewError(KindValidationError, "name is required", nil)
	}
	if s.HandlerName == "" {
		return NewError(KindValidationError, "handler_name is required", nil)
	}
	switch s.ScheduleKind {
	case ScheduleInactive, ScheduleEverySecond, ScheduleEveryMinute,
		ScheduleEveryHour, ScheduleEveryDay, ScheduleEveryWeek:
		if s.ScheduleCrontab != "" {
			return NewError(KindValidationError, "schedule_crontab must be empty unless schedule is crontab", nil)
		}
	case ScheduleCrontab:
		if s.ScheduleCrontab == "" {
			return NewError(KindValidationError, "schedule_crontab is required when schedule is crontab", nil)
		}
	default:
		return NewError(KindValidationError, fmt.Sprintf("unknown schedule %q", s.ScheduleKind), nil)
	}
	switch s.SchedulePriority {
	case PriorityUtmost, PriorityHigh, PriorityNormal:
	default:
		return NewError(KindValidationError, "schedule_priority must be UTMOST, HIGH or NORMAL", nil)
	}
	return nil
}

// ScraperFilter narrows search_scrapers results.
type ScraperFilter struct {
	NamePrefix  string
	HandlerName string
	Schedule    Schedule
}
