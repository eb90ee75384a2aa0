// Package clock pins every date/time the planner handles to one canonical
// IANA timezone, independent of the host locale.
package clock

import (
	"fmt"
	"strings"
	"time"

	appLog "github.com/kutbudev/agenda-cli/internal/log"
)

// DefaultTimezone is the canonical zone when none is configured.
const DefaultTimezone = "America/Bogota"

// WireLayout is the zone-less timestamp layout exchanged with the backend.
// Values are interpreted in the canonical zone.
const WireLayout = "2006-01-02T15:04:05"

const dateLayout = "2006-01-02"

// Zone converts times into the canonical location.
type Zone struct {
	loc *time.Location
	now func() time.Time
}

// NewZone loads name, falling back to a fixed UTC-5 zone named after
// DefaultTimezone when tzdata is unavailable.
func NewZone(name string) *Zone {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; using fixed offset", err, "name", name)
		loc = time.FixedZone(DefaultTimezone, -5*60*60)
	}
	return &Zone{loc: loc, now: time.Now}
}

// NewZoneAt builds a zone with an explicit location and clock; used by tests.
func NewZoneAt(loc *time.Location, now func() time.Time) *Zone {
	if now == nil {
		now = time.Now
	}
	return &Zone{loc: loc, now: now}
}

// Location returns the canonical location.
func (z *Zone) Location() *time.Location { return z.loc }

// Name returns the location name.
func (z *Zone) Name() string { return z.loc.String() }

// Now returns the current time in the canonical zone.
func (z *Zone) Now() time.Time { return z.now().In(z.loc) }

// In converts t into the canonical zone.
func (z *Zone) In(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.In(z.loc)
}

// Format renders t in the wire layout in the canonical zone.
func (z *Zone) Format(t time.Time) string {
	return t.In(z.loc).Format(WireLayout)
}

// Parse reads a timestamp from the backend. RFC3339 values keep their offset
// and are converted; zone-less values are read in the canonical zone.
func (z *Zone) Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(z.loc), nil
	}
	for _, layout := range []string{WireLayout, "2006-01-02T15:04", "2006-01-02 15:04:05", dateLayout} {
		if t, err := time.ParseInLocation(layout, s, z.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// ParseDate reads a YYYY-MM-DD date as midnight in the canonical zone.
func (z *Zone) ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), z.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// At combines the calendar date of day with a time of day.
func (z *Zone) At(day time.Time, tod TimeOfDay) time.Time {
	d := day.In(z.loc)
	return time.Date(d.Year(), d.Month(), d.Day(), tod.Hour, tod.Minute, 0, 0, z.loc)
}

// StartOfDay returns midnight of t's date in the canonical zone.
func (z *Zone) StartOfDay(t time.Time) time.Time {
	return z.At(t, TimeOfDay{})
}

// FormatDate renders a long, human-readable date in the canonical zone.
func (z *Zone) FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(z.loc).Format("Monday, January 2, 2006")
}

// TimeOfDay is an hour/minute pair.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay reads HH:MM.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time %q (want HH:MM): %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// RoundToNearest rounds the wall-clock time of t to the nearest step and
// returns it as a time of day. A result of 24:00 wraps to 00:00 of the
// following day, which is reported by the second return value.
func RoundToNearest(t time.Time, step time.Duration) (TimeOfDay, bool) {
	if step <= 0 {
		return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, false
	}
	sinceMidnight := time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
	rounded := sinceMidnight.Round(step)
	nextDay := rounded >= 24*time.Hour
	if nextDay {
		rounded -= 24 * time.Hour
	}
	return TimeOfDay{
		Hour:   int(rounded / time.Hour),
		Minute: int((rounded % time.Hour) / time.Minute),
	}, nextDay
}
