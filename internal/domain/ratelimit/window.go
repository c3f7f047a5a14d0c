package ratelimit

import "time"

// Window identifies a usage accounting period.
type Window string

const (
	WindowMinute Window = "minute"
	WindowDay    Window = "day"
	WindowMonth  Window = "month"
)

// ParseWindow returns the window for a name, or empty for unknown names.
func ParseWindow(name string) Window {
	switch Window(name) {
	case WindowMinute:
		return WindowMinute
	case WindowDay:
		return WindowDay
	case WindowMonth:
		return WindowMonth
	default:
		return ""
	}
}

// StartFor returns the UTC start of the window containing now. Minute and day
// windows truncate, month windows align to the first of the calendar month.
func (w Window) StartFor(now time.Time) time.Time {
	now = now.UTC()
	switch w {
	case WindowMinute:
		return now.Truncate(time.Minute)
	case WindowDay:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	case WindowMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return now
	}
}

// Expired reports whether a counter started at start has rolled over by now.
func (w Window) Expired(start, now time.Time) bool {
	return start.Before(w.StartFor(now))
}
