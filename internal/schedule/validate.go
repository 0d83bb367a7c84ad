package schedule

import (
	"fmt"
	"time"
)

// ValidateCron checks a cron expression at chore create/update time.
//
// Beyond syntax, the two soonest consecutive occurrences (from now) must be
// at least an hour apart. This caps notification spam from overly frequent
// schedules like "* * * * *".
func ValidateCron(expr string) error {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	now := time.Now()
	first := sched.Next(now)
	if first.IsZero() {
		return fmt.Errorf("cron expression %q never fires", expr)
	}
	second := sched.Next(first)
	if second.IsZero() {
		return nil
	}
	if second.Sub(first) < time.Hour {
		return fmt.Errorf("schedule is too frequent: minimum interval is 1 hour")
	}
	return nil
}

// ValidateInterval checks interval-schedule fields at chore create/update time.
func ValidateInterval(days int, hour, minute *int) error {
	if days < MinIntervalDays {
		return fmt.Errorf("interval must be at least %d day(s)", MinIntervalDays)
	}
	if days > MaxIntervalDays {
		return fmt.Errorf("interval cannot exceed %d days (1 year)", MaxIntervalDays)
	}
	if hour != nil && (*hour < 0 || *hour > 23) {
		return fmt.Errorf("hour must be between 0 and 23")
	}
	if minute != nil && (*minute < 0 || *minute > 59) {
		return fmt.Errorf("minute must be between 0 and 59")
	}
	return nil
}
