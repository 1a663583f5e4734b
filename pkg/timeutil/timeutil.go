// Package timeutil provides timezone utilities for US Eastern time.
// Call slots are presented to users in Eastern time while everything is
// stored in UTC, so schedule rendering and day-boundary checks go through
// this package. No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// EasternTZ is the US Eastern timezone (observes DST).
var EasternTZ = loadEastern()

func loadEastern() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		// Container images without tzdata fall back to EST.
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}

// Now returns the current time in Eastern timezone.
func Now() time.Time {
	return time.Now().In(EasternTZ)
}

// ToEastern converts a time to Eastern timezone.
func ToEastern(t time.Time) time.Time {
	return t.In(EasternTZ)
}

// ToUTC converts a time to UTC.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// Date creates a time in Eastern timezone with the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, EasternTZ)
}

// DateTime creates a time in Eastern timezone with the given date and time.
func DateTime(year, month, day, hour, min, sec int) time.Time {
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, EasternTZ)
}

// StartOfDay returns the start of the day (00:00:00) in Eastern timezone.
func StartOfDay(t time.Time) time.Time {
	eastern := ToEastern(t)
	return time.Date(eastern.Year(), eastern.Month(), eastern.Day(), 0, 0, 0, 0, EasternTZ)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in Eastern timezone.
func EndOfDay(t time.Time) time.Time {
	eastern := ToEastern(t)
	return time.Date(eastern.Year(), eastern.Month(), eastern.Day(), 23, 59, 59, 999999999, EasternTZ)
}

// IsToday checks if the given time is today in Eastern timezone.
func IsToday(t time.Time) bool {
	return IsSameDay(t, Now())
}

// IsSameDay checks if two times are on the same day in Eastern timezone.
func IsSameDay(t1, t2 time.Time) bool {
	e1, e2 := ToEastern(t1), ToEastern(t2)
	return e1.Year() == e2.Year() && e1.YearDay() == e2.YearDay()
}

// DaysBetween calculates the number of days between two times.
func DaysBetween(t1, t2 time.Time) int {
	e1 := StartOfDay(t1)
	e2 := StartOfDay(t2)
	duration := e2.Sub(e1)
	days := int(duration.Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatTime is the standard time format (HH:MM).
	FormatTime = "15:04"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
	// FormatHumanDate is the date format used in notifications.
	FormatHumanDate = "Monday, January 2"
	// FormatHumanTime is the clock format used in notifications.
	FormatHumanTime = "3:04 PM"
)

// FormatEastern formats a time in Eastern timezone with the given layout.
func FormatEastern(t time.Time, layout string) string {
	return ToEastern(t).Format(layout)
}

// FormatScheduleDate renders a schedule date the way notifications show it,
// e.g. "Monday, January 8".
func FormatScheduleDate(t time.Time) string {
	return FormatEastern(t, FormatHumanDate)
}

// FormatScheduleTime renders a schedule time the way notifications show it,
// e.g. "3:00 PM ET".
func FormatScheduleTime(t time.Time) string {
	return FormatEastern(t, FormatHumanTime) + " ET"
}

// ParseEastern parses a time string in Eastern timezone.
func ParseEastern(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, EasternTZ)
}

// ParseDateEastern parses a date string (YYYY-MM-DD) in Eastern timezone.
func ParseDateEastern(value string) (time.Time, error) {
	return ParseEastern(FormatDate, value)
}

// Notification timing helpers.

// IsSafeNotificationTime checks if it's appropriate to send notifications (9:00-21:00 ET).
func IsSafeNotificationTime(t time.Time) bool {
	eastern := ToEastern(t)
	hour := eastern.Hour()
	return hour >= 9 && hour < 21
}

// NextSafeNotificationTime returns the next time when notifications are appropriate.
func NextSafeNotificationTime(t time.Time) time.Time {
	eastern := ToEastern(t)
	hour := eastern.Hour()

	if hour < 9 {
		return DateTime(eastern.Year(), int(eastern.Month()), eastern.Day(), 9, 0, 0)
	} else if hour >= 21 {
		tomorrow := eastern.AddDate(0, 0, 1)
		return DateTime(tomorrow.Year(), int(tomorrow.Month()), tomorrow.Day(), 9, 0, 0)
	}

	return eastern
}

// FormatRelative returns a human-readable relative time string.
func FormatRelative(t time.Time) string {
	now := Now()
	eastern := ToEastern(t)
	duration := now.Sub(eastern)

	if duration < 0 {
		return formatFutureDuration(-duration)
	}
	return formatPastDuration(duration)
}

func formatPastDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "yesterday"
		}
		return fmt.Sprintf("%dd ago", days)
	}
}

func formatFutureDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("in %dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("in %dh", int(d.Hours()))
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "tomorrow"
		}
		return fmt.Sprintf("in %dd", days)
	}
}
