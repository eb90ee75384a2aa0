package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/kutbudev/agenda-cli/internal/models"
)

// eventRecord is the calendar event as the backend sends it. Times are
// zone-less strings in the canonical zone, or RFC3339.
type eventRecord struct {
	ID         models.ID      `json:"id"`
	ActivityID models.ID      `json:"activity_id"`
	Title      string         `json:"title"`
	Color      string         `json:"color"`
	Tags       models.TagList `json:"tags"`
	Start      string         `json:"start"`
	End        string         `json:"end"`
	AllDay     bool           `json:"all_day"`
}

// eventPayload is the write body for calendar events.
type eventPayload struct {
	ActivityID models.ID `json:"activity_id"`
	Title      string    `json:"title"`
	Color      string    `json:"color,omitempty"`
	Tags       []int     `json:"tags"`
	Start      string    `json:"start"`
	End        string    `json:"end"`
	AllDay     bool      `json:"all_day"`
}

func (c *Client) toPayload(e models.ScheduledEvent) eventPayload {
	return eventPayload{
		ActivityID: e.ActivityID,
		Title:      e.Title,
		Color:      e.Color,
		Tags:       e.Tags.IDs(),
		Start:      c.Zone.Format(e.Start),
		End:        c.Zone.Format(e.End),
		AllDay:     e.AllDay,
	}
}

func (c *Client) fromRecord(r eventRecord) (models.ScheduledEvent, error) {
	if r.ID == "" {
		return models.ScheduledEvent{}, fmt.Errorf("event id is required")
	}
	start, err := c.Zone.Parse(r.Start)
	if err != nil {
		return models.ScheduledEvent{}, fmt.Errorf("start: %w", err)
	}
	end, err := c.Zone.Parse(r.End)
	if err != nil {
		return models.ScheduledEvent{}, fmt.Errorf("end: %w", err)
	}
	e := models.ScheduledEvent{
		ID:         r.ID,
		ActivityID: r.ActivityID,
		Title:      r.Title,
		Color:      r.Color,
		Tags:       r.Tags,
		Start:      start,
		End:        end,
		AllDay:     r.AllDay,
	}
	if err := e.Validate(); err != nil {
		return models.ScheduledEvent{}, err
	}
	return e, nil
}

func (c *Client) decodeEvents(resource string, body []byte) ([]models.ScheduledEvent, error) {
	var records []eventRecord
	if err := decodeList(resource, body, &records); err != nil {
		return nil, err
	}
	events := make([]models.ScheduledEvent, 0, len(records))
	for i, r := range records {
		e, err := c.fromRecord(r)
		if err != nil {
			return nil, malformed(resource, fmt.Errorf("item %d: %w", i, err))
		}
		events = append(events, e)
	}
	return events, nil
}

func (c *Client) decodeEvent(body []byte) (*models.ScheduledEvent, error) {
	var r eventRecord
	if err := decode("calendar event", body, &r); err != nil {
		return nil, err
	}
	e, err := c.fromRecord(r)
	if err != nil {
		return nil, malformed("calendar event", err)
	}
	return &e, nil
}

// ListCalendarEvents returns every scheduled event.
func (c *Client) ListCalendarEvents(ctx context.Context) ([]models.ScheduledEvent, error) {
	body, err := c.send(ctx, call{method: "GET", endpoint: "/calendar-events"})
	if err != nil {
		return nil, err
	}
	return c.decodeEvents("calendar events", body)
}

// ListEventsByActivity returns the events scheduled from one activity.
func (c *Client) ListEventsByActivity(ctx context.Context, activityID models.ID) ([]models.ScheduledEvent, error) {
	endpoint := "/calendar-events/activity/" + url.PathEscape(activityID.String())
	body, err := c.send(ctx, call{method: "GET", endpoint: endpoint})
	if err != nil {
		return nil, err
	}
	return c.decodeEvents("calendar events", body)
}

// CreateCalendarEvent persists e and returns it with its server id. e.ID is
// ignored.
func (c *Client) CreateCalendarEvent(ctx context.Context, e models.ScheduledEvent) (*models.ScheduledEvent, error) {
	body, err := c.send(ctx, call{method: "POST", endpoint: "/calendar-events", body: c.toPayload(e)})
	if err != nil {
		return nil, err
	}
	return c.decodeEvent(body)
}

// UpdateCalendarEvent writes the times and snapshot of e.
func (c *Client) UpdateCalendarEvent(ctx context.Context, e models.ScheduledEvent) (*models.ScheduledEvent, error) {
	endpoint := "/calendar-events/" + url.PathEscape(e.ID.String())
	body, err := c.send(ctx, call{method: "PUT", endpoint: endpoint, body: c.toPayload(e)})
	if err != nil {
		return nil, err
	}
	return c.decodeEvent(body)
}

// DeleteCalendarEvent deletes one occurrence.
func (c *Client) DeleteCalendarEvent(ctx context.Context, id models.ID) error {
	_, err := c.send(ctx, call{method: "DELETE", endpoint: "/calendar-events/" + url.PathEscape(id.String())})
	return err
}
