// Package timespec resolves user-supplied wall-clock input (date, time of
// day, IANA timezone name) into UTC instants. The store is queried in UTC
// only; localization happens here, before any query is issued.
package timespec

import (
	"fmt"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04:05"
)

// InstantRange is a half-open [Start, End) range of UTC instants.
type InstantRange struct {
	Start time.Time
	End   time.Time
}

// Length returns End - Start.
func (r InstantRange) Length() time.Duration {
	return r.End.Sub(r.Start)
}

// Resolve localizes "date clock" in the named IANA timezone and converts the
// result to UTC. Unknown timezones and unparseable date/time values are
// reported as distinct fatal errors.
func Resolve(date, clock, zone string) (time.Time, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownTimezone, zone)
	}

	t, err := time.ParseInLocation(dateLayout+" "+clockLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q %q", ErrInvalidTimeSpec, date, clock)
	}

	return t.UTC(), nil
}

// NewRange builds an InstantRange from two instants, enforcing start < end.
func NewRange(start, end time.Time) (InstantRange, error) {
	if !start.Before(end) {
		return InstantRange{}, fmt.Errorf("%w: start %s, end %s",
			ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return InstantRange{Start: start.UTC(), End: end.UTC()}, nil
}

// ResolveRange is the full front door: both endpoints localized in the same
// zone, then validated as a range.
func ResolveRange(startDate, startClock, endDate, endClock, zone string) (InstantRange, error) {
	start, err := Resolve(startDate, startClock, zone)
	if err != nil {
		return InstantRange{}, err
	}
	end, err := Resolve(endDate, endClock, zone)
	if err != nil {
		return InstantRange{}, err
	}
	return NewRange(start, end)
}
