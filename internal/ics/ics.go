// Package ics converts scheduled events to and from iCalendar.
package ics

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/kutbudev/agenda-cli/internal/clock"
	appLog "github.com/kutbudev/agenda-cli/internal/log"
	"github.com/kutbudev/agenda-cli/internal/models"
)

const productID = "-//kutbudev//agenda-cli//EN"

// Export writes events as one VCALENDAR. Tag names become CATEGORIES.
func Export(w io.Writer, events []models.ScheduledEvent, zone *clock.Zone) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if zone != nil {
		cal.SetXWRTimezone(zone.Name())
	}

	stamp := time.Now().UTC()
	for _, e := range events {
		ve := cal.AddEvent(e.ID.String() + "@agenda")
		ve.SetDtStampTime(stamp)
		ve.SetSummary(e.Title)
		if e.AllDay {
			ve.SetAllDayStartAt(e.Start)
			ve.SetAllDayEndAt(e.End)
		} else {
			ve.SetStartAt(e.Start)
			ve.SetEndAt(e.End)
		}
		if e.Color != "" {
			ve.SetColor(e.Color)
		}
		if len(e.Tags) > 0 {
			names := make([]string, 0, len(e.Tags))
			for _, t := range e.Tags {
				if t.Name != "" {
					names = append(names, t.Name)
				}
			}
			if len(names) > 0 {
				ve.SetProperty(ical.ComponentPropertyCategories, strings.Join(names, ","))
			}
		}
		if e.ActivityID != "" {
			ve.SetProperty(ical.ComponentProperty("X-AGENDA-ACTIVITY"), e.ActivityID.String())
		}
	}

	if err := cal.SerializeTo(w); err != nil {
		return fmt.Errorf("write calendar: %w", err)
	}
	return nil
}

// Slot is a VEVENT reduced to what scheduling needs.
type Slot struct {
	UID     string
	Summary string
	Start   time.Time
	End     time.Time
	AllDay  bool
}

// Parse reads the VEVENTs of an iCalendar payload. Events without a usable
// start are skipped; a missing end becomes start + defaultDuration.
func Parse(body []byte, zone *clock.Zone, defaultDuration time.Duration) ([]Slot, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	slots := make([]Slot, 0)
	for _, ve := range cal.Events() {
		s, err := parseVEvent(ve, zone, defaultDuration)
		if err != nil {
			appLog.Error("ics vevent skipped", err)
			continue
		}
		slots = append(slots, s)
	}
	appLog.Info("ics parse completed", "event_count", len(slots))
	return slots, nil
}

func parseVEvent(ve *ical.VEvent, zone *clock.Zone, defaultDuration time.Duration) (Slot, error) {
	var out Slot
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = strings.TrimSpace(p.Value)
	}

	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			out.AllDay = true
		}
		if !strings.Contains(p.Value, "T") {
			out.AllDay = true
		}
	}

	var err error
	if out.AllDay {
		out.Start, err = ve.GetAllDayStartAt()
	} else {
		out.Start, err = ve.GetStartAt()
	}
	if err != nil {
		return out, fmt.Errorf("event %s: start: %w", out.UID, err)
	}
	if out.AllDay {
		out.End, err = ve.GetAllDayEndAt()
	} else {
		out.End, err = ve.GetEndAt()
	}
	if err != nil || !out.End.After(out.Start) {
		out.End = out.Start.Add(defaultDuration)
	}

	if zone != nil {
		if out.AllDay {
			// All-day dates are floating; pin them to midnight in the zone.
			out.Start = zone.StartOfDay(time.Date(out.Start.Year(), out.Start.Month(), out.Start.Day(), 12, 0, 0, 0, zone.Location()))
			out.End = zone.StartOfDay(time.Date(out.End.Year(), out.End.Month(), out.End.Day(), 12, 0, 0, 0, zone.Location()))
			if !out.End.After(out.Start) {
				out.End = out.Start.AddDate(0, 0, 1)
			}
		} else {
			out.Start = zone.In(out.Start)
			out.End = zone.In(out.End)
		}
	}
	return out, nil
}
