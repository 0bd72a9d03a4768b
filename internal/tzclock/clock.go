// Package tzclock converts between UTC instants and the wall-clock fields
// observed in an IANA time zone.
//
// Spreadsheets store dates without a zone. The read side treats those naive
// fields as local time in a configured zone (Reinterpret); the write side
// turns an instant back into naive local fields (Localize).
package tzclock

import (
	"fmt"
	"sync"
	"time"

	"sheetflow/domain/core"
)

// maxIterations caps the fixed-point search in ToUTC
const maxIterations = 4

// WallClock is a calendar reading with no zone attached
type WallClock struct {
	Year        int
	Month       time.Month
	Day         int
	Hour        int
	Minute      int
	Second      int
	Millisecond int
}

// FromNaive reads the UTC fields of t as wall-clock fields
func FromNaive(t time.Time) WallClock {
	t = t.UTC()
	return WallClock{
		Year:        t.Year(),
		Month:       t.Month(),
		Day:         t.Day(),
		Hour:        t.Hour(),
		Minute:      t.Minute(),
		Second:      t.Second(),
		Millisecond: t.Nanosecond() / int(time.Millisecond),
	}
}

// Naive returns the fields as a UTC-located time
func (w WallClock) Naive() time.Time {
	return time.Date(w.Year, w.Month, w.Day, w.Hour, w.Minute, w.Second, w.Millisecond*int(time.Millisecond), time.UTC)
}

func (w WallClock) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d.%03d",
		w.Year, int(w.Month), w.Day, w.Hour, w.Minute, w.Second, w.Millisecond)
}

// Validate rejects fields that cannot form a timestamp
func (w WallClock) Validate() error {
	switch {
	case w.Year < 1 || w.Year > 9999:
		return core.NewInvalidDateError(fmt.Sprintf("year %d out of range", w.Year))
	case w.Month < time.January || w.Month > time.December:
		return core.NewInvalidDateError(fmt.Sprintf("month %d out of range", w.Month))
	case w.Hour < 0 || w.Hour > 23, w.Minute < 0 || w.Minute > 59, w.Second < 0 || w.Second > 59:
		return core.NewInvalidDateError("time of day out of range: " + w.String())
	case w.Millisecond < 0 || w.Millisecond > 999:
		return core.NewInvalidDateError(fmt.Sprintf("millisecond %d out of range", w.Millisecond))
	}
	// time.Date normalizes Feb 30 into March; a day that moves is not a real date
	if n := w.Naive(); w.Day < 1 || n.Day() != w.Day || n.Month() != w.Month {
		return core.NewInvalidDateError("day out of range: " + w.String())
	}
	return nil
}

// Clock resolves zones once and keeps them for the life of the process.
// Safe for concurrent use.
type Clock struct {
	mu    sync.RWMutex
	zones map[string]*time.Location
	load  func(string) (*time.Location, error)
}

// New creates a clock backed by the system zone database
func New() *Clock {
	return &Clock{
		zones: make(map[string]*time.Location),
		load:  time.LoadLocation,
	}
}

// Default is the process-wide clock shared by readers and writers
var Default = New()

// Location resolves an IANA zone identifier, memoized per identifier
func (c *Clock) Location(zone string) (*time.Location, error) {
	if zone == "" {
		return nil, core.NewInvalidTimeZoneError(zone, nil)
	}

	c.mu.RLock()
	loc, ok := c.zones[zone]
	c.mu.RUnlock()
	if ok {
		return loc, nil
	}

	loc, err := c.load(zone)
	if err != nil {
		return nil, core.NewInvalidTimeZoneError(zone, err)
	}

	c.mu.Lock()
	if existing, ok := c.zones[zone]; ok {
		loc = existing
	} else {
		c.zones[zone] = loc
	}
	c.mu.Unlock()
	return loc, nil
}

// offsetAt returns the zone's UTC offset in effect at instant t
func offsetAt(loc *time.Location, t time.Time) time.Duration {
	_, seconds := t.In(loc).Zone()
	return time.Duration(seconds) * time.Second
}

// ToWallClock returns the wall-clock reading of t in zone
func (c *Clock) ToWallClock(t time.Time, zone string) (WallClock, error) {
	loc, err := c.Location(zone)
	if err != nil {
		return WallClock{}, err
	}
	return FromNaive(t.UTC().Add(offsetAt(loc, t))), nil
}

// ToUTC finds the instant at which zone shows the wall-clock reading w.
//
// The fields are first read as UTC, then corrected by the zone offset found at
// the current guess until the guess stops moving, at most four times. Inside a
// spring-forward gap the search oscillates between the two offsets and
// returns whichever guess the fourth iteration holds. During a fall-back
// overlap it settles on whichever offset the first lookup lands on; there is
// no earliest or latest rule.
func (c *Clock) ToUTC(w WallClock, zone string) (time.Time, error) {
	loc, err := c.Location(zone)
	if err != nil {
		return time.Time{}, err
	}
	if err := w.Validate(); err != nil {
		return time.Time{}, err
	}

	naive := w.Naive()
	guess := naive
	for i := 0; i < maxIterations; i++ {
		candidate := naive.Add(-offsetAt(loc, guess))
		if candidate.Equal(guess) {
			return candidate, nil
		}
		guess = candidate
	}
	return guess, nil
}

// Reinterpret treats the UTC fields of a naive timestamp as local time in zone
func (c *Clock) Reinterpret(naive time.Time, zone string) (time.Time, error) {
	return c.ToUTC(FromNaive(naive), zone)
}

// Localize returns the naive timestamp whose UTC fields are the wall clock of t in zone
func (c *Clock) Localize(t time.Time, zone string) (time.Time, error) {
	w, err := c.ToWallClock(t, zone)
	if err != nil {
		return time.Time{}, err
	}
	return w.Naive(), nil
}
