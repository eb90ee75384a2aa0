package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kutbudev/agenda-cli/internal/clock"
	"github.com/kutbudev/agenda-cli/internal/models"
)

func registerTools(server *mcp.Server, t *Tools) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_tags",
		Description: "List the tag catalog.",
		Annotations: &mcp.ToolAnnotations{
			Title:         "List Tags",
			ReadOnlyHint:  true,
			OpenWorldHint: boolPtr(false),
		},
	}, t.listTags)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_tag",
		Description: "Create a tag. A palette colour is picked when color is omitted.",
		Annotations: &mcp.ToolAnnotations{
			Title:           "Create Tag",
			DestructiveHint: boolPtr(false),
			OpenWorldHint:   boolPtr(false),
		},
	}, t.createTag)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_activities",
		Description: "List activity templates. Optional tag_id filters by tag.",
		Annotations: &mcp.ToolAnnotations{
			Title:         "List Activities",
			ReadOnlyHint:  true,
			OpenWorldHint: boolPtr(false),
		},
	}, t.listActivities)

	mcp.AddTool(server, &mcp.Tool{
		Name: "create_activity",
		Description: `Create an activity template.

REQUIRED: title
OPTIONAL: description, color (#rrggbb, default #5e72e4), tag_ids, force

When an activity with a similar title exists, nothing is created and the
matches are returned. Pass force: true to create anyway.`,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Create Activity",
			DestructiveHint: boolPtr(false),
			OpenWorldHint:   boolPtr(false),
		},
	}, t.createActivity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_events",
		Description: "List scheduled events ordered by start. from and to are inclusive dates (YYYY-MM-DD).",
		Annotations: &mcp.ToolAnnotations{
			Title:         "List Events",
			ReadOnlyHint:  true,
			OpenWorldHint: boolPtr(false),
		},
	}, t.listEvents)

	mcp.AddTool(server, &mcp.Tool{
		Name: "schedule_activity",
		Description: `Schedule an activity on a day.

REQUIRED: activity (id or title), date (YYYY-MM-DD)
OPTIONAL: time (HH:MM, default now rounded to 30 minutes), duration_minutes, all_day`,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Schedule Activity",
			DestructiveHint: boolPtr(false),
			OpenWorldHint:   boolPtr(false),
		},
	}, t.scheduleActivity)

	mcp.AddTool(server, &mcp.Tool{
		Name: "move_event",
		Description: `Move or resize a scheduled event.

With start: the event moves, keeping its duration unless end is given.
With only end: the event is resized.`,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Move Event",
			DestructiveHint: boolPtr(false),
			IdempotentHint:  true,
			OpenWorldHint:   boolPtr(false),
		},
	}, t.moveEvent)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_event",
		Description: "Delete one scheduled event. The activity is kept.",
		Annotations: &mcp.ToolAnnotations{
			Title:           "Delete Event",
			DestructiveHint: boolPtr(true),
			OpenWorldHint:   boolPtr(false),
		},
	}, t.deleteEvent)
}

type ListTagsInput struct{}

type CreateTagInput struct {
	Name  string `json:"name" jsonschema:"tag name"`
	Color string `json:"color,omitempty" jsonschema:"hex colour such as #4da6ff"`
}

type ListActivitiesInput struct {
	TagID int `json:"tag_id,omitempty" jsonschema:"only activities carrying this tag"`
}

type CreateActivityInput struct {
	Title       string `json:"title" jsonschema:"activity title"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty" jsonschema:"hex colour such as #ff4d4d"`
	TagIDs      []int  `json:"tag_ids,omitempty"`
	Force       bool   `json:"force,omitempty" jsonschema:"create even when a similar activity exists"`
}

type ListEventsInput struct {
	From string `json:"from,omitempty" jsonschema:"first day, YYYY-MM-DD"`
	To   string `json:"to,omitempty" jsonschema:"last day, YYYY-MM-DD"`
}

type ScheduleActivityInput struct {
	Activity        string `json:"activity" jsonschema:"activity id or title"`
	Date            string `json:"date" jsonschema:"day, YYYY-MM-DD"`
	Time            string `json:"time,omitempty" jsonschema:"start time, HH:MM"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	AllDay          bool   `json:"all_day,omitempty"`
}

type MoveEventInput struct {
	EventID string `json:"event_id"`
	Start   string `json:"start,omitempty" jsonschema:"new start, YYYY-MM-DDTHH:MM:SS"`
	End     string `json:"end,omitempty" jsonschema:"new end, YYYY-MM-DDTHH:MM:SS"`
}

type DeleteEventInput struct {
	EventID string `json:"event_id"`
}

func tagMaps(list []models.Tag) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(list))
	for _, tag := range list {
		out = append(out, map[string]interface{}{"id": tag.ID, "name": tag.Name, "color": tag.Color})
	}
	return out
}

func activityMap(a models.Activity) map[string]interface{} {
	return map[string]interface{}{
		"id":          a.ID.String(),
		"title":       a.Title,
		"description": a.Description,
		"color":       a.Color,
		"tags":        tagMaps(a.Tags),
	}
}

func (t *Tools) eventMap(e models.ScheduledEvent) map[string]interface{} {
	zone := t.planner.Zone
	return map[string]interface{}{
		"id":          e.ID.String(),
		"activity_id": e.ActivityID.String(),
		"title":       e.Title,
		"color":       e.Color,
		"tags":        tagMaps(e.Tags),
		"start":       zone.Format(e.Start),
		"end":         zone.Format(e.End),
		"all_day":     e.AllDay,
		"date":        zone.FormatDate(e.Start),
	}
}

func (t *Tools) listTags(ctx context.Context, req *mcp.CallToolRequest, input ListTagsInput) (*mcp.CallToolResult, interface{}, error) {
	if err := t.ready(ctx); err != nil {
		return t.fail(err)
	}
	tags := t.planner.Tags.Catalog()
	return t.respond(map[string]interface{}{"items": tagMaps(tags), "count": len(tags)}), nil, nil
}

func (t *Tools) createTag(ctx context.Context, req *mcp.CallToolRequest, input CreateTagInput) (*mcp.CallToolResult, interface{}, error) {
	if err := t.ready(ctx); err != nil {
		return t.fail(err)
	}
	tag, err := t.planner.Tags.CreateTag(ctx, input.Name, input.Color)
	if err != nil {
		return t.fail(err)
	}
	return t.respond(map[string]interface{}{"tag": tagMaps([]models.Tag{*tag})[0]}), nil, nil
}

func (t *Tools) listActivities(ctx context.Context, req *mcp.CallToolRequest, input ListActivitiesInput) (*mcp.CallToolResult, interface{}, error) {
	if err := t.ready(ctx); err != nil {
		return t.fail(err)
	}
	items := []map[string]interface{}{}
	for _, a := range t.planner.Activities.List() {
		if input.TagID > 0 && !a.Tags.Has(input.TagID) {
			continue
		}
		items = append(items, activityMap(a))
	}
	return t.respond(map[string]interface{}{"items": items, "count": len(items)}), nil, nil
}

func (t *Tools) createActivity(ctx context.Context, req *mcp.CallToolRequest, input CreateActivityInput) (*mcp.CallToolResult, interface{}, error) {
	if err := t.ready(ctx); err != nil {
		return t.fail(err)
	}
	if !input.Force {
		if similar := CheckSimilarActivities(t.planner.Activities.List(), input.Title, SimilarityThreshold); len(similar) > 0 {
			return t.respond(map[string]interface{}{
				"created": false,
				"similar": similar,
				"message": "Similar activities exist. Schedule one of them or call again with force: true.",
			}), nil, nil
		}
	}

	color := strings.TrimSpace(input.Color)
	if color == "" {
		color = models.DefaultActivityColor
	}
	in := models.ActivityInput{Title: input.Title, Description: input.Description, Color: color}
	for _, id := range input.TagIDs {
		tag, err := t.planner.Tags.Find(id)
		if err != nil {
			return t.fail(err)
		}
		in.Tags = append(in.Tags, tag)
	}

	a, err := t.planner.Activities.Create(ctx, in)
	if err != nil {
		return t.fail(err)
	}
	return t.respond(map[string]interface{}{"created": true, "activity": activityMap(*a)}), nil, nil
}

// resolveActivity accepts an id or a title. Titles go through the fuzzy
// matcher and must match one activity clearly.
func (t *Tools) resolveActivity(ref string) (models.Activity, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return models.Activity{}, errors.New("'activity' is required. Use list_activities to see ids")
	}
	if a, err := t.planner.Activities.Get(models.ID(ref)); err == nil {
		return a, nil
	}

	matches := fuzzyMatchActivities(t.planner.Activities.List(), ref)
	if len(matches) == 0 {
		return models.Activity{}, fmt.Errorf("no activity matches %q", ref)
	}
	if len(matches) > 1 && matches[0].Confidence-matches[1].Confidence < 0.05 {
		names := make([]string, 0, len(matches))
		for _, m := range matches {
			names = append(names, fmt.Sprintf("%s (%s)", m.Activity.Title, m.Activity.ID))
		}
		return models.Activity{}, fmt.Errorf("%q is ambiguous: %s", ref, strings.Join(names, ", "))
	}
	return matches[0].Activity, nil
}

func (t *Tools) listEvents(ctx context.Context, req *mcp.CallToolRequest, input ListEventsInput) (*mcp.CallToolResult, interface{}, error) {
	if err := t.ready(ctx); err != nil {
		return t.fail(err)
	}
	zone := t.planner.Zone
	var from, to time.Time
	if s := strings.TrimSpace(input.From); s != "" {
		d, err := zone.ParseDate(s)
		if err != nil {
			return t.fail(fmt.Errorf("from: %w", err))
		}
		from = d
	}
	if s := strings.TrimSpace(input.To); s != "" {
		d, err := zone.ParseDate(s)
		if err != nil {
			return t.fail(fmt.Errorf("to: %w", err))
		}
		to = d.AddDate(0, 0, 1)
	}

	items := []map[string]interface{}{}
	for _, e := range t.planner.Calendar.EventsBetween(from, to) {
		items = append(items, t.eventMap(e))
	}
	return t.respond(map[string]interface{}{"items": items, "count": len(items)}), nil, nil
}

func (t *Tools) scheduleActivity(ctx context.Context, req *mcp.CallToolRequest, input ScheduleActivityInput) (*mcp.CallToolResult, interface{}, error) {
	if err := t.ready(ctx); err != nil {
		return t.fail(err)
	}
	a, err := t.resolveActivity(input.Activity)
	if err != nil {
		return t.fail(err)
	}
	cal := t.planner.Calendar
	day, err := t.planner.Zone.ParseDate(strings.TrimSpace(input.Date))
	if err != nil {
		return t.fail(fmt.Errorf("date: %w", err))
	}
	var at *clock.TimeOfDay
	if s := strings.TrimSpace(input.Time); s != "" {
		tod, err := clock.ParseTimeOfDay(s)
		if err != nil {
			return t.fail(fmt.Errorf("time: %w", err))
		}
		at = &tod
	}

	var e *models.ScheduledEvent
	if input.DurationMinutes > 0 || input.AllDay {
		d := cal.DefaultDuration()
		if input.DurationMinutes > 0 {
			d = time.Duration(input.DurationMinutes) * time.Minute
		}
		start := cal.DropStart(day, at)
		e, err = cal.ScheduleAt(ctx, a, start, start.Add(d), input.AllDay)
	} else {
		e, err = cal.ScheduleFromDrag(ctx, a, day, at)
	}
	if err != nil {
		return t.fail(err)
	}
	return t.respond(map[string]interface{}{"event": t.eventMap(*e)}), nil, nil
}

func (t *Tools) moveEvent(ctx context.Context, req *mcp.CallToolRequest, input MoveEventInput) (*mcp.CallToolResult, interface{}, error) {
	if err := t.ready(ctx); err != nil {
		return t.fail(err)
	}
	id := models.ID(strings.TrimSpace(input.EventID))
	cur, err := t.planner.Calendar.Get(id)
	if err != nil {
		return t.fail(err)
	}
	zone := t.planner.Zone
	startStr, endStr := strings.TrimSpace(input.Start), strings.TrimSpace(input.End)
	if startStr == "" && endStr == "" {
		return t.fail(errors.New("give start, end, or both"))
	}

	var end time.Time
	if endStr != "" {
		if end, err = zone.Parse(endStr); err != nil {
			return t.fail(fmt.Errorf("end: %w", err))
		}
	}

	var e *models.ScheduledEvent
	if startStr == "" {
		e, err = t.planner.Calendar.ResizeEvent(ctx, id, end)
	} else {
		start, perr := zone.Parse(startStr)
		if perr != nil {
			return t.fail(fmt.Errorf("start: %w", perr))
		}
		if end.IsZero() {
			end = start.Add(cur.Duration())
		}
		e, err = t.planner.Calendar.MoveEvent(ctx, id, start, end)
	}
	if err != nil {
		return t.fail(err)
	}
	return t.respond(map[string]interface{}{"event": t.eventMap(*e)}), nil, nil
}

func (t *Tools) deleteEvent(ctx context.Context, req *mcp.CallToolRequest, input DeleteEventInput) (*mcp.CallToolResult, interface{}, error) {
	if err := t.ready(ctx); err != nil {
		return t.fail(err)
	}
	id := models.ID(strings.TrimSpace(input.EventID))
	if err := t.planner.Calendar.DeleteEvent(ctx, id); err != nil {
		return t.fail(err)
	}
	return t.respond(map[string]interface{}{"deleted": id.String()}), nil, nil
}
