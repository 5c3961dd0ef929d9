package domain

import (
	"errors"
	"fmt"
	"time"
)

// WireTimeLayout is the UTC layout the portal expects for range boundaries.
const WireTimeLayout = "2006-01-02T15:04:05.000Z"

// ErrEmptyRange is returned when a range does not satisfy start < end.
var ErrEmptyRange = errors.New("time range start must be before end")

// TimeRange is a half-open search window. Start is always before End.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange validates and returns a TimeRange.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if !start.Before(end) {
		return TimeRange{}, fmt.Errorf("%w (start=%s end=%s)", ErrEmptyRange, start, end)
	}
	return TimeRange{Start: start, End: end}, nil
}

// WireStart returns Start normalized to UTC in the portal wire format.
func (r TimeRange) WireStart() string {
	return r.Start.UTC().Format(WireTimeLayout)
}

// WireEnd returns End normalized to UTC in the portal wire format.
func (r TimeRange) WireEnd() string {
	return r.End.UTC().Format(WireTimeLayout)
}

func (r TimeRange) String() string {
	return r.WireStart() + "/" + r.WireEnd()
}

// CurrentMonthRange returns [first day of now's month 00:00, now) in loc.
func CurrentMonthRange(now time.Time, loc *time.Location) (TimeRange, error) {
	now = now.In(loc)
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	return NewTimeRange(start, now.Truncate(time.Second))
}

// PreviousMonthRange returns the whole calendar month before now's month in
// loc. End is one millisecond before the first of now's month.
func PreviousMonthRange(now time.Time, loc *time.Location) (TimeRange, error) {
	now = now.In(loc)
	firstOfThis := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	start := firstOfThis.AddDate(0, -1, 0)
	end := firstOfThis.Add(-time.Millisecond)
	return NewTimeRange(start, end)
}
