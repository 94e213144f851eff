package model

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for target dates and cache partitions.
const DateLayout = "2006-01-02"

// Date is the UTC calendar date a run and all of its cached artifacts are
// scoped to.
type Date struct {
	t time.Time
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return Date{t: t.UTC()}, nil
}

// Today is the current UTC date.
func Today() Date {
	return Date{t: time.Now().UTC().Truncate(24 * time.Hour)}
}

func (d Date) String() string {
	return d.t.Format(DateLayout)
}

// Midnight is the instant the date's window ends on.
func (d Date) Midnight() time.Time {
	return d.t
}

// Window is the one-day span the date covers, ending at its midnight UTC.
func (d Date) Window() Window {
	return Window{Start: d.t.Add(-24 * time.Hour), End: d.t}
}

// Window is a span of time closed on both ends.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window. Both ends count.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
