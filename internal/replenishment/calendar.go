package replenishment

import "time"

// DateLayout is the calendar format every rendered date uses
const DateLayout = "2006-01-02"

// Calendar renders dates relative to an injected "today"
type Calendar struct {
	now func() time.Time
}

// NewCalendar builds a calendar on now. A nil now uses time.Now.
func NewCalendar(now func() time.Time) Calendar {
	if now == nil {
		now = time.Now
	}
	return Calendar{now: now}
}

// Now returns the current instant of the calendar clock
func (c Calendar) Now() time.Time {
	return c.now()
}

// Today is the current date at midnight, in the clock location
func (c Calendar) Today() time.Time {
	return truncateDay(c.now())
}

// Plus renders today + days
func (c Calendar) Plus(days int) string {
	return c.Today().AddDate(0, 0, days).Format(DateLayout)
}

// DaysUntil counts calendar days from today to t
func (c Calendar) DaysUntil(t time.Time) int {
	today := c.Today()
	target := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, today.Location())
	return int(target.Sub(today).Hours() / 24)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
