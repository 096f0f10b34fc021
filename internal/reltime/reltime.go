// Package reltime renders coarse "time ago" labels.
package reltime

import (
	"fmt"
	"time"
)

// JustNow is the label for anything under a minute old, or in the future.
const JustNow = "just now"

const (
	day   = 24 * time.Hour
	month = 30 * day
	year  = 365 * day
)

// Format describes how long before now t happened.
//
// Thresholds: under a minute is "just now", then whole minutes, hours and
// days; from 30 days on whole 30-day months (at most 12), and from 365 days
// on whole years. Labels never shrink as the elapsed time grows.
func Format(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return JustNow
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute")
	case d < day:
		return plural(int(d/time.Hour), "hour")
	case d < month:
		return plural(int(d/day), "day")
	case d < year:
		return plural(min(int(d/month), 12), "month")
	default:
		return plural(int(d/year), "year")
	}
}

// FormatDistanceToNow is Format against the wall clock.
func FormatDistanceToNow(t time.Time) string {
	return Format(t, time.Now())
}

// Ago appends " ago" to the label, except for "just now".
func Ago(t, now time.Time) string {
	label := Format(t, now)
	if label == JustNow {
		return label
	}
	return label + " ago"
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
