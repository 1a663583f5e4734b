package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser accepts the standard 5-field format:
// minute hour day-of-month month day-of-week.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// CronSchedule adapts a cron expression to the Schedule interface.
// The expression is evaluated in the given location.
type CronSchedule struct {
	raw      string
	inner    cron.Schedule
	location *time.Location
}

// NewCronSchedule parses a 5-field cron expression.
// Examples:
//   - "0 8 * * 1"  - every Monday at 08:00
//   - "0 9 * * *"  - every day at 09:00
//   - "*/5 * * * *" - every 5 minutes
func NewCronSchedule(expr string, loc *time.Location) (*CronSchedule, error) {
	if loc == nil {
		loc = time.UTC
	}

	inner, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cron expression %q: %w", expr, err)
	}

	return &CronSchedule{
		raw:      expr,
		inner:    inner,
		location: loc,
	}, nil
}

// MustCronSchedule parses a cron expression or panics.
// Use only for compile-time constants.
func MustCronSchedule(expr string, loc *time.Location) *CronSchedule {
	cs, err := NewCronSchedule(expr, loc)
	if err != nil {
		panic(err)
	}
	return cs
}

// Next returns the next activation time after t.
func (cs *CronSchedule) Next(t time.Time) time.Time {
	return cs.inner.Next(t.In(cs.location))
}

// String returns the original cron expression.
func (cs *CronSchedule) String() string {
	return cs.raw
}

// Common cron expression presets.
const (
	EveryMinute    = "* * * * *"
	Every5Minutes  = "*/5 * * * *"
	EveryHour      = "0 * * * *"
	EveryDay9AM    = "0 9 * * *"
	EveryMonday8AM = "0 8 * * 1"
)
