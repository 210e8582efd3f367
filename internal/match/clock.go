package match

import (
	"fmt"
	"time"
)

// FormatClock formats a remaining clock as m:ss, or h:mm:ss from an hour up.
// Negative or zero time reads as flagged.
func FormatClock(remaining time.Duration) string {
	if remaining <= 0 {
		return "0:00"
	}

	// Round up so a clock never shows 0:00 while time remains.
	secs := int64((remaining + time.Second - 1) / time.Second)
	hours := secs / 3600
	minutes := (secs / 60) % 60
	seconds := secs % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

func millis(d time.Duration) int64 {
	return d.Milliseconds()
}

// nextDeadline is how long to wait before checking for a flag fall: just past
// the smaller of the two clocks, and never less than a millisecond.
func nextDeadline(white, black time.Duration) time.Duration {
	wait := white
	if black < wait {
		wait = black
	}
	wait += time.Millisecond
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait
}
