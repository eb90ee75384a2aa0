// Package localstore is the offline planner backend. Each entity list is one
// JSON blob in a diskv store and is re-written on every mutation.
package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/peterbourgon/diskv/v3"

	"github.com/kutbudev/agenda-cli/internal/clock"
	apierrors "github.com/kutbudev/agenda-cli/internal/errors"
	appLog "github.com/kutbudev/agenda-cli/internal/log"
	"github.com/kutbudev/agenda-cli/internal/models"
)

const (
	keyTags       = "tags"
	keyActivities = "activities"
	keyEvents     = "events"
	keyMeta       = "meta"
)

type meta struct {
	NextTagID      int `json:"next_tag_id"`
	NextActivityID int `json:"next_activity_id"`
	NextEventID    int `json:"next_event_id"`
}

// Store implements the planner backend on local disk.
type Store struct {
	mu   sync.Mutex
	d    *diskv.Diskv
	zone *clock.Zone
}

// Open creates (or reopens) a store rooted at dir.
func Open(dir string, zone *clock.Zone) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("localstore: data dir is empty")
	}
	if zone == nil {
		zone = clock.NewZone("")
	}
	d := diskv.New(diskv.Options{
		BasePath:     dir,
		Transform:    func(string) []string { return []string{} },
		CacheSizeMax: 1024 * 1024, // 1MB
	})
	return &Store{d: d, zone: zone}, nil
}

func notFound(kind, id string) error {
	return &apierrors.ServerError{Status: http.StatusNotFound, Message: fmt.Sprintf("%s %s not found", kind, id)}
}

func (s *Store) read(key string, v interface{}) error {
	if !s.d.Has(key) {
		return nil
	}
	data, err := s.d.Read(key)
	if err != nil {
		return fmt.Errorf("localstore: read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("localstore: decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) write(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.d.Write(key, data); err != nil {
		return fmt.Errorf("localstore: write %s: %w", key, err)
	}
	appLog.Debug("localstore write", "key", key, "bytes", len(data))
	return nil
}

func (s *Store) loadMeta() (meta, error) {
	var m meta
	err := s.read(keyMeta, &m)
	return m, err
}

func (s *Store) loadTags() ([]models.Tag, error) {
	tags := []models.Tag{}
	err := s.read(keyTags, &tags)
	return tags, err
}

func (s *Store) loadActivities() ([]models.Activity, error) {
	activities := []models.Activity{}
	err := s.read(keyActivities, &activities)
	return activities, err
}

func (s *Store) loadEvents() ([]models.ScheduledEvent, error) {
	events := []models.ScheduledEvent{}
	if err := s.read(keyEvents, &events); err != nil {
		return nil, err
	}
	for i := range events {
		events[i].Start = s.zone.In(events[i].Start)
		events[i].End = s.zone.In(events[i].End)
	}
	return events, nil
}

// ListTags returns the tag catalog.
func (s *Store) ListTags(ctx context.Context) ([]models.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadTags()
}

// CreateTag stores a new tag with the next numeric id.
func (s *Store) CreateTag(ctx context.Context, in models.TagInput) (*models.Tag, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := in.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tags, err := s.loadTags()
	if err != nil {
		return nil, err
	}
	m, err := s.loadMeta()
	if err != nil {
		return nil, err
	}
	m.NextTagID++
	tag := models.Tag{ID: m.NextTagID, Name: in.Name, Color: in.Color}
	if err := s.write(keyTags, append(tags, tag)); err != nil {
		return nil, err
	}
	if err := s.write(keyMeta, m); err != nil {
		return nil, err
	}
	return &tag, nil
}

// UpdateTag renames or recolours a tag.
func (s *Store) UpdateTag(ctx context.Context, id int, in models.TagInput) (*models.Tag, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := in.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tags, err := s.loadTags()
	if err != nil {
		return nil, err
	}
	for i := range tags {
		if tags[i].ID == id {
			tags[i].Name = in.Name
			if in.Color != "" {
				tags[i].Color = in.Color
			}
			updated := tags[i]
			if err := s.write(keyTags, tags); err != nil {
				return nil, err
			}
			return &updated, nil
		}
	}
	return nil, notFound("tag", strconv.Itoa(id))
}

// DeleteTag removes a tag and strips it from stored activities and events.
func (s *Store) DeleteTag(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tags, err := s.loadTags()
	if err != nil {
		return err
	}
	kept := tags[:0]
	found := false
	for _, t := range tags {
		if t.ID == id {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	if !found {
		return notFound("tag", strconv.Itoa(id))
	}

	activities, err := s.loadActivities()
	if err != nil {
		return err
	}
	for i := range activities {
		activities[i].Tags = activities[i].Tags.Without(id)
	}
	events, err := s.loadEvents()
	if err != nil {
		return err
	}
	for i := range events {
		events[i].Tags = events[i].Tags.Without(id)
	}

	if err := s.write(keyTags, kept); err != nil {
		return err
	}
	if err := s.write(keyActivities, activities); err != nil {
		return err
	}
	return s.write(keyEvents, events)
}

// resolveTags maps ids to catalog tags, rejecting unknown ids the way the
// remote API does.
func resolveTags(catalog []models.Tag, ids []int) (models.TagList, error) {
	byID := make(map[int]models.Tag, len(catalog))
	for _, t := range catalog {
		byID[t.ID] = t
	}
	out := make(models.TagList, 0, len(ids))
	ve := apierrors.NewValidationError("invalid activity")
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			ve.Add("tags", fmt.Sprintf("tag %d does not exist", id))
			continue
		}
		out = append(out, t)
	}
	if ve.HasErrors() {
		return nil, ve
	}
	return out, nil
}

// ListActivities returns every activity.
func (s *Store) ListActivities(ctx context.Context) ([]models.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadActivities()
}

// CreateActivity stores a new activity.
func (s *Store) CreateActivity(ctx context.Context, in models.ActivityInput) (*models.Activity, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p := in.Payload()

	s.mu.Lock()
	defer s.mu.Unlock()

	catalog, err := s.loadTags()
	if err != nil {
		return nil, err
	}
	tags, err := resolveTags(catalog, p.Tags)
	if err != nil {
		return nil, err
	}
	activities, err := s.loadActivities()
	if err != nil {
		return nil, err
	}
	m, err := s.loadMeta()
	if err != nil {
		return nil, err
	}
	m.NextActivityID++
	a := models.Activity{
		ID:          models.ID(strconv.Itoa(m.NextActivityID)),
		Title:       p.Title,
		Description: p.Description,
		Color:       p.Color,
		Tags:        tags,
	}
	if err := s.write(keyActivities, append(activities, a)); err != nil {
		return nil, err
	}
	if err := s.write(keyMeta, m); err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateActivity replaces an activity's fields.
func (s *Store) UpdateActivity(ctx context.Context, id models.ID, in models.ActivityInput) (*models.Activity, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p := in.Payload()

	s.mu.Lock()
	defer s.mu.Unlock()

	catalog, err := s.loadTags()
	if err != nil {
		return nil, err
	}
	tags, err := resolveTags(catalog, p.Tags)
	if err != nil {
		return nil, err
	}
	activities, err := s.loadActivities()
	if err != nil {
		return nil, err
	}
	for i := range activities {
		if activities[i].ID != id {
			continue
		}
		activities[i] = models.Activity{
			ID:          id,
			Title:       p.Title,
			Description: p.Description,
			Color:       p.Color,
			Tags:        tags,
		}
		updated := activities[i]
		if err := s.write(keyActivities, activities); err != nil {
			return nil, err
		}
		return &updated, nil
	}
	return nil, notFound("activity", id.String())
}

// DeleteActivity removes an activity. Its events are kept.
func (s *Store) DeleteActivity(ctx context.Context, id models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	activities, err := s.loadActivities()
	if err != nil {
		return err
	}
	for i := range activities {
		if activities[i].ID == id {
			return s.write(keyActivities, append(activities[:i], activities[i+1:]...))
		}
	}
	return notFound("activity", id.String())
}

// ListCalendarEvents returns every event.
func (s *Store) ListCalendarEvents(ctx context.Context) ([]models.ScheduledEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadEvents()
}

// ListEventsByActivity returns the events scheduled from activityID.
func (s *Store) ListEventsByActivity(ctx context.Context, activityID models.ID) ([]models.ScheduledEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.loadEvents()
	if err != nil {
		return nil, err
	}
	out := make([]models.ScheduledEvent, 0)
	for _, e := range events {
		if e.ActivityID == activityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func validateEvent(e models.ScheduledEvent) error {
	ve := apierrors.NewValidationError("invalid calendar event")
	if e.ActivityID == "" {
		ve.Add("activity_id", "activity_id is required")
	}
	if strings.TrimSpace(e.Title) == "" {
		ve.Add("title", "title is required")
	}
	if err := e.Validate(); err != nil {
		if inner, ok := err.(*apierrors.ValidationError); ok {
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

// CreateCalendarEvent stores e under a new id. e.ID is ignored.
func (s *Store) CreateCalendarEvent(ctx context.Context, e models.ScheduledEvent) (*models.ScheduledEvent, error) {
	if err := validateEvent(e); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.loadEvents()
	if err != nil {
		return nil, err
	}
	m, err := s.loadMeta()
	if err != nil {
		return nil, err
	}
	m.NextEventID++
	created := e.Clone()
	created.ID = models.ID(strconv.Itoa(m.NextEventID))
	created.Start = s.zone.In(created.Start)
	created.End = s.zone.In(created.End)
	if err := s.write(keyEvents, append(events, created)); err != nil {
		return nil, err
	}
	if err := s.write(keyMeta, m); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateCalendarEvent replaces the stored event with the same id.
func (s *Store) UpdateCalendarEvent(ctx context.Context, e models.ScheduledEvent) (*models.ScheduledEvent, error) {
	if err := validateEvent(e); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.loadEvents()
	if err != nil {
		return nil, err
	}
	for i := range events {
		if events[i].ID != e.ID {
			continue
		}
		updated := e.Clone()
		updated.Start = s.zone.In(updated.Start)
		updated.End = s.zone.In(updated.End)
		events[i] = updated
		if err := s.write(keyEvents, events); err != nil {
			return nil, err
		}
		return &updated, nil
	}
	return nil, notFound("calendar event", e.ID.String())
}

// DeleteCalendarEvent removes one event.
func (s *Store) DeleteCalendarEvent(ctx context.Context, id models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.loadEvents()
	if err != nil {
		return err
	}
	for i := range events {
		if events[i].ID == id {
			return s.write(keyEvents, append(events[:i], events[i+1:]...))
		}
	}
	return notFound("calendar event", id.String())
}

// Erase drops every blob. Used by `agenda setup reset-local`.
func (s *Store) Erase() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.EraseAll()
}
