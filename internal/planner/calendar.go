package planner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kutbudev/agenda-cli/internal/clock"
	apierrors "github.com/kutbudev/agenda-cli/internal/errors"
	"github.com/kutbudev/agenda-cli/internal/events"
	appLog "github.com/kutbudev/agenda-cli/internal/log"
	"github.com/kutbudev/agenda-cli/internal/models"
	"github.com/kutbudev/agenda-cli/internal/notify"
)

// Calendar owns the scheduled events. The backend is the source of truth:
// Refresh replaces the list wholesale, and every mutation is applied
// locally first, then persisted, and rolled back when persisting fails.
//
// All list updates are keyed by event id so gestures whose network calls
// interleave cannot clobber each other.
type Calendar struct {
	backend         Backend
	zone            *clock.Zone
	sink            notify.Sink
	router          notify.Router
	bus             *events.Bus
	life            *lifecycle
	activities      *ActivityManager
	defaultDuration time.Duration
	snap            time.Duration

	mu     sync.Mutex
	events []models.ScheduledEvent
	// pending holds synthetic ids whose create is in flight.
	pending map[models.ID]struct{}
	// tombstones holds pending ids deleted before their create finished.
	tombstones map[models.ID]struct{}
	// deleting holds stored ids whose delete is in flight; reload skips them.
	deleting  map[models.ID]struct{}
	selection Selection
}

// Zone returns the canonical zone used for every time the calendar handles.
func (c *Calendar) Zone() *clock.Zone { return c.zone }

// DefaultDuration is the length given to events dropped without an end.
func (c *Calendar) DefaultDuration() time.Duration { return c.defaultDuration }

func (c *Calendar) indexLocked(id models.ID) int {
	for i := range c.events {
		if c.events[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Calendar) normalize(e models.ScheduledEvent) models.ScheduledEvent {
	e.Start = c.zone.In(e.Start)
	e.End = c.zone.In(e.End)
	return e
}

func (c *Calendar) fail(prefix string, err error) {
	c.sink.Notify(prefix+": "+err.Error(), notify.KindError)
}

// Refresh replaces the event list with the backend's. Events whose create
// is still in flight are kept.
func (c *Calendar) Refresh(ctx context.Context) error {
	if err := c.reload(ctx); err != nil {
		if !errors.Is(err, ErrClosed) {
			c.fail("Could not load calendar", err)
		}
		return err
	}
	return nil
}

func (c *Calendar) reload(ctx context.Context) error {
	list, err := c.backend.ListCalendarEvents(ctx)
	if c.life.done() {
		return ErrClosed
	}
	if err != nil {
		return fmt.Errorf("load calendar events: %w", err)
	}

	c.mu.Lock()
	next := make([]models.ScheduledEvent, 0, len(list))
	for _, e := range list {
		if _, ok := c.deleting[e.ID]; ok {
			continue
		}
		next = append(next, c.normalize(e.Clone()))
	}
	for _, e := range c.events {
		if _, ok := c.pending[e.ID]; ok {
			next = append(next, e)
		}
	}
	c.events = next
	if c.selection.EventID != "" && c.indexLocked(c.selection.EventID) < 0 {
		c.selection = Selection{}
	}
	c.mu.Unlock()

	appLog.Debug("calendar refreshed", "count", len(list))
	c.bus.Publish(events.Event{Type: events.EventsRefreshed})
	return nil
}

// Events returns a copy of the list in its current order.
func (c *Calendar) Events() []models.ScheduledEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.ScheduledEvent, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Clone())
	}
	return out
}

// EventsBetween returns the events overlapping [from, to), ordered by start.
// A zero bound is open.
func (c *Calendar) EventsBetween(from, to time.Time) []models.ScheduledEvent {
	all := c.Events()
	out := all[:0]
	for _, e := range all {
		if !from.IsZero() && !e.End.After(from) {
			continue
		}
		if !to.IsZero() && !e.Start.Before(to) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// Get returns the event with id.
func (c *Calendar) Get(id models.ID) (models.ScheduledEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(id); i >= 0 {
		return c.events[i].Clone(), nil
	}
	return models.ScheduledEvent{}, &apierrors.NotFoundLocal{Kind: "calendar event", ID: id.String()}
}

// DropStart computes the start of an event dropped on day. Without an
// explicit time the current time rounded to the snap step is used.
func (c *Calendar) DropStart(day time.Time, at *clock.TimeOfDay) time.Time {
	if at != nil {
		return c.zone.At(day, *at)
	}
	tod, nextDay := clock.RoundToNearest(c.zone.Now(), c.snap)
	start := c.zone.At(day, tod)
	if nextDay {
		start = start.AddDate(0, 0, 1)
	}
	return start
}

// ScheduleFromDrag schedules activity on day for the default duration.
// When at is nil the time is now rounded to the nearest snap step.
func (c *Calendar) ScheduleFromDrag(ctx context.Context, activity models.Activity, day time.Time, at *clock.TimeOfDay) (*models.ScheduledEvent, error) {
	if day.IsZero() {
		err := apierrors.NewValidationError("invalid drop").Add("date", "date is required")
		c.sink.Notify(err.Error(), notify.KindError)
		return nil, err
	}
	start := c.DropStart(day, at)
	return c.ScheduleAt(ctx, activity, start, start.Add(c.defaultDuration), false)
}

// ScheduleByID looks the activity up in the activity list and schedules it.
// An unknown id is reported without a network call.
func (c *Calendar) ScheduleByID(ctx context.Context, activityID models.ID, day time.Time, at *clock.TimeOfDay) (*models.ScheduledEvent, error) {
	activity, err := c.activities.Get(activityID)
	if err != nil {
		c.sink.Notify(err.Error(), notify.KindError)
		return nil, err
	}
	return c.ScheduleFromDrag(ctx, activity, day, at)
}

// ScheduleAt schedules activity between start and end. The event is added
// under a synthetic id right away and swapped for the stored record once
// the backend confirms it; on failure the synthetic entry is removed.
func (c *Calendar) ScheduleAt(ctx context.Context, activity models.Activity, start, end time.Time, allDay bool) (*models.ScheduledEvent, error) {
	candidate := models.ScheduledEvent{
		ID:         models.NewLocalID(),
		ActivityID: activity.ID,
		Title:      strings.TrimSpace(activity.Title),
		Color:      activity.Color,
		Tags:       append(models.TagList(nil), activity.Tags...),
		Start:      c.zone.In(start),
		End:        c.zone.In(end),
		AllDay:     allDay,
	}
	if err := validateCandidate(candidate); err != nil {
		c.sink.Notify(err.Error(), notify.KindError)
		return nil, err
	}

	c.mu.Lock()
	c.events = append(c.events, candidate)
	c.pending[candidate.ID] = struct{}{}
	c.mu.Unlock()

	created, err := c.backend.CreateCalendarEvent(ctx, candidate)
	if c.life.done() {
		return nil, ErrClosed
	}

	c.mu.Lock()
	delete(c.pending, candidate.ID)
	_, deleted := c.tombstones[candidate.ID]
	delete(c.tombstones, candidate.ID)
	if err != nil {
		if i := c.indexLocked(candidate.ID); i >= 0 {
			c.events = append(c.events[:i], c.events[i+1:]...)
		}
		c.mu.Unlock()
		c.fail("Could not schedule event", err)
		return nil, fmt.Errorf("schedule %s: %w", activity.ID, err)
	}

	stored := c.normalize(created.Clone())
	if deleted {
		if j := c.indexLocked(stored.ID); j >= 0 {
			c.events = append(c.events[:j], c.events[j+1:]...)
		}
		c.mu.Unlock()
		// Deleted while the create was in flight: remove it server-side too.
		if derr := c.backend.DeleteCalendarEvent(ctx, stored.ID); derr != nil {
			appLog.Error("failed to delete event removed during create", derr, "event_id", stored.ID)
		}
		return &stored, nil
	}
	// A reload that ran after the backend stored the event may already
	// hold the stored record next to the synthetic one.
	i, j := c.indexLocked(candidate.ID), c.indexLocked(stored.ID)
	switch {
	case i >= 0 && j >= 0:
		c.events[j] = stored
		c.events = append(c.events[:i], c.events[i+1:]...)
	case i >= 0:
		c.events[i] = stored
	case j < 0:
		c.events = append(c.events, stored)
	}
	if c.selection.EventID == candidate.ID {
		c.selection.EventID = stored.ID
	}
	c.mu.Unlock()

	c.sink.Notify(fmt.Sprintf("%q scheduled for %s", stored.Title, c.zone.Format(stored.Start)), notify.KindSuccess)
	c.bus.Publish(events.Event{Type: events.EventScheduled, ID: stored.ID.String(), Calendar: &stored})
	return &stored, nil
}

func validateCandidate(e models.ScheduledEvent) error {
	ve := apierrors.NewValidationError("invalid calendar event")
	if e.ActivityID == "" {
		ve.Add("activity_id", "an activity is required")
	}
	if e.Title == "" {
		ve.Add("title", "activity has no title")
	}
	if err := e.Validate(); err != nil {
		var inner *apierrors.ValidationError
		if errors.As(err, &inner) {
			for f, msgs := range inner.Fields {
				for _, m := range msgs {
					ve.Add(f, m)
				}
			}
		}
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func rangeError(field string) error {
	return apierrors.NewValidationError("invalid calendar event").Add(field, "end must be after start")
}

func pendingError(id models.ID) error {
	return apierrors.NewValidationError("event is still being saved").Add("id", fmt.Sprintf("%s is not saved yet; try again", id))
}

// MoveEvent sets the start and end of one event. newEnd must be after
// newStart; otherwise nothing changes. When persisting fails the event is
// restored and the list reloaded from the backend.
func (c *Calendar) MoveEvent(ctx context.Context, id models.ID, newStart, newEnd time.Time) (*models.ScheduledEvent, error) {
	if !newEnd.After(newStart) {
		err := rangeError("end")
		c.sink.Notify(err.Error(), notify.KindError)
		return nil, err
	}
	return c.update(ctx, id, func(e *models.ScheduledEvent) {
		e.Start = c.zone.In(newStart)
		e.End = c.zone.In(newEnd)
	})
}

// ResizeEvent sets only the end of one event. newEnd must be after the
// event's current start.
func (c *Calendar) ResizeEvent(ctx context.Context, id models.ID, newEnd time.Time) (*models.ScheduledEvent, error) {
	cur, err := c.Get(id)
	if err != nil {
		c.sink.Notify(err.Error(), notify.KindError)
		return nil, err
	}
	if !newEnd.After(cur.Start) {
		err := rangeError("end")
		c.sink.Notify(err.Error(), notify.KindError)
		return nil, err
	}
	return c.update(ctx, id, func(e *models.ScheduledEvent) {
		e.End = c.zone.In(newEnd)
	})
}

// SetAllDay toggles the all-day flag of one event.
func (c *Calendar) SetAllDay(ctx context.Context, id models.ID, allDay bool) (*models.ScheduledEvent, error) {
	return c.update(ctx, id, func(e *models.ScheduledEvent) {
		e.AllDay = allDay
	})
}

func (c *Calendar) update(ctx context.Context, id models.ID, apply func(*models.ScheduledEvent)) (*models.ScheduledEvent, error) {
	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		err := &apierrors.NotFoundLocal{Kind: "calendar event", ID: id.String()}
		c.sink.Notify(err.Error(), notify.KindError)
		return nil, err
	}
	if _, ok := c.pending[id]; ok {
		c.mu.Unlock()
		err := pendingError(id)
		c.sink.Notify(err.Error(), notify.KindError)
		return nil, err
	}
	prev := c.events[i].Clone()
	next := prev.Clone()
	apply(&next)
	if err := next.Validate(); err != nil {
		c.mu.Unlock()
		c.sink.Notify(err.Error(), notify.KindError)
		return nil, err
	}
	c.events[i] = next
	c.mu.Unlock()

	stored, err := c.backend.UpdateCalendarEvent(ctx, next)
	if c.life.done() {
		return nil, ErrClosed
	}
	if err != nil {
		c.mu.Lock()
		if j := c.indexLocked(id); j >= 0 {
			c.events[j] = prev
		}
		c.mu.Unlock()
		if rerr := c.reload(ctx); rerr != nil {
			appLog.Error("reload after failed update", rerr, "event_id", id)
		}
		c.fail("Could not update event", err)
		return nil, fmt.Errorf("update event %s: %w", id, err)
	}

	saved := c.normalize(stored.Clone())
	c.mu.Lock()
	if j := c.indexLocked(id); j >= 0 {
		c.events[j] = saved
	}
	c.mu.Unlock()

	c.sink.Notify(fmt.Sprintf("%q moved to %s", saved.Title, c.zone.Format(saved.Start)), notify.KindSuccess)
	c.bus.Publish(events.Event{Type: events.EventUpdated, ID: saved.ID.String(), Calendar: &saved})
	return &saved, nil
}

// DeleteEvent removes one event. The list is the only state, so the event
// disappears everywhere at once. If the backend refuses, the event is put
// back at its previous position.
func (c *Calendar) DeleteEvent(ctx context.Context, id models.ID) error {
	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		err := &apierrors.NotFoundLocal{Kind: "calendar event", ID: id.String()}
		c.sink.Notify(err.Error(), notify.KindError)
		return err
	}
	prev := c.events[i]
	c.events = append(c.events[:i], c.events[i+1:]...)
	if c.selection.EventID == id {
		c.selection = Selection{}
	}
	if _, ok := c.pending[id]; ok {
		c.tombstones[id] = struct{}{}
		c.mu.Unlock()
		c.bus.Publish(events.Event{Type: events.EventDeleted, ID: id.String()})
		return nil
	}
	c.deleting[id] = struct{}{}
	c.mu.Unlock()

	err := c.backend.DeleteCalendarEvent(ctx, id)
	c.mu.Lock()
	delete(c.deleting, id)
	c.mu.Unlock()
	if c.life.done() {
		return ErrClosed
	}
	if err != nil && !apierrors.IsNotFound(err) {
		c.mu.Lock()
		if c.indexLocked(id) < 0 {
			at := i
			if at > len(c.events) {
				at = len(c.events)
			}
			c.events = append(c.events, models.ScheduledEvent{})
			copy(c.events[at+1:], c.events[at:])
			c.events[at] = prev
		}
		c.mu.Unlock()
		if rerr := c.reload(ctx); rerr != nil {
			appLog.Error("reload after failed delete", rerr, "event_id", id)
		}
		c.fail("Could not delete event", err)
		return fmt.Errorf("delete event %s: %w", id, err)
	}

	c.mu.Lock()
	if j := c.indexLocked(id); j >= 0 {
		c.events = append(c.events[:j], c.events[j+1:]...)
	}
	c.mu.Unlock()

	c.sink.Notify(fmt.Sprintf("%q deleted", prev.Title), notify.KindSuccess)
	c.bus.Publish(events.Event{Type: events.EventDeleted, ID: id.String()})
	return nil
}

// DuplicateEvent schedules a copy of one event in the same slot.
func (c *Calendar) DuplicateEvent(ctx context.Context, id models.ID) (*models.ScheduledEvent, error) {
	src, err := c.Get(id)
	if err != nil {
		c.sink.Notify(err.Error(), notify.KindError)
		return nil, err
	}
	template := models.Activity{
		ID:    src.ActivityID,
		Title: src.Title,
		Color: src.Color,
		Tags:  src.Tags,
	}
	return c.ScheduleAt(ctx, template, src.Start, src.End, src.AllDay)
}

// DeleteForActivity deletes every event scheduled from activityID and
// returns how many were removed.
func (c *Calendar) DeleteForActivity(ctx context.Context, activityID models.ID) (int, error) {
	c.mu.Lock()
	var ids []models.ID
	for _, e := range c.events {
		if e.ActivityID == activityID {
			ids = append(ids, e.ID)
		}
	}
	c.mu.Unlock()

	var errs []error
	removed := 0
	for _, id := range ids {
		if err := c.DeleteEvent(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// EventsForActivity asks the backend for the events of one activity. The
// local list is not touched.
func (c *Calendar) EventsForActivity(ctx context.Context, activityID models.ID) ([]models.ScheduledEvent, error) {
	list, err := c.backend.ListEventsByActivity(ctx, activityID)
	if c.life.done() {
		return nil, ErrClosed
	}
	if err != nil {
		c.fail("Could not load events", err)
		return nil, fmt.Errorf("events for activity %s: %w", activityID, err)
	}
	out := make([]models.ScheduledEvent, 0, len(list))
	for _, e := range list {
		out = append(out, c.normalize(e.Clone()))
	}
	return out, nil
}

// ActivityFor returns the live activity an event was scheduled from.
func (c *Calendar) ActivityFor(id models.ID) (models.Activity, error) {
	e, err := c.Get(id)
	if err != nil {
		return models.Activity{}, err
	}
	return c.activities.Get(e.ActivityID)
}

// EditActivity navigates to the edit screen of the event's activity.
func (c *Calendar) EditActivity(id models.ID) error {
	e, err := c.Get(id)
	if err != nil {
		c.sink.Notify(err.Error(), notify.KindError)
		return err
	}
	c.router.Navigate("/activities/" + e.ActivityID.String() + "/edit")
	return nil
}

// DisplayEvent is an event ready to render.
type DisplayEvent struct {
	models.ScheduledEvent
	// ActivityFound is false when the activity was deleted; the event's own
	// snapshot is shown then.
	ActivityFound bool
	DateLabel     string
}

// Display resolves an event for rendering. The live activity's title and
// colour win when the activity still exists; tags always come from the
// event snapshot.
func (c *Calendar) Display(id models.ID) (DisplayEvent, error) {
	e, err := c.Get(id)
	if err != nil {
		return DisplayEvent{}, err
	}
	d := DisplayEvent{ScheduledEvent: e, DateLabel: c.zone.FormatDate(e.Start)}
	if a, err := c.activities.Get(e.ActivityID); err == nil {
		d.ActivityFound = true
		if a.Title != "" {
			d.Title = a.Title
		}
		if a.Color != "" {
			d.Color = a.Color
		}
	}
	if d.Color == "" {
		d.Color = models.DefaultActivityColor
	}
	return d, nil
}

// FormatDate renders t as a long date in the canonical zone.
func (c *Calendar) FormatDate(t time.Time) string {
	return c.zone.FormatDate(t)
}

func (c *Calendar) stripTag(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.events {
		c.events[i].Tags = c.events[i].Tags.Without(id)
	}
}
