package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sneakpeek-dev/sneakpeek-go/pkg/model"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

func fixedInterval(s model.Schedule) (time.Duration, bool) {
	switch s {
	case model.ScheduleEverySecond:
		return time.Second, true
	case model.ScheduleEveryMinute:
		return time.Minute, true
	case model.ScheduleEveryHour:
		return time.Hour, true
	case model.ScheduleEveryDay:
		return 24 * time.Hour, true
	case model.ScheduleEveryWeek:
		return 7 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// nextFireAfter computes the next time sc is due to fire strictly after
// 'after'. Missed fires (process downtime, a slow poll loop) coalesce
// into a single catch-up fire: this returns the first due time after
// 'after', not one per missed period.
func nextFireAfter(sc *model.Scraper, after time.Time) (time.Time, error) {
	if interval, ok := fixedInterval(sc.ScheduleKind); ok {
		return after.Add(interval), nil
	}
	schedule, err := cronParser.Parse(sc.ScheduleCrontab)
	if err != nil {
		return time.Time{}, model.NewError(model.KindValidationError, "invalid crontab expression", err)
	}
	return schedule.Next(after), nil
}
