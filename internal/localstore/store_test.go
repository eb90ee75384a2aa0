package localstore

import (
	"context"
	"testing"
	"time"

	"github.com/kutbudev/agenda-cli/internal/clock"
	apierrors "github.com/kutbudev/agenda-cli/internal/errors"
	"github.com/kutbudev/agenda-cli/internal/models"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir, clock.NewZoneAt(time.FixedZone("America/Bogota", -5*60*60), nil))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return s, dir
}

func TestTagLifecycleAndCascade(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	work, err := s.CreateTag(ctx, models.TagInput{Name: " work ", Color: "#ff4d4d"})
	if err != nil {
		t.Fatalf("CreateTag() error = %v", err)
	}
	home, _ := s.CreateTag(ctx, models.TagInput{Name: "home", Color: "#00aa00"})
	if work.ID != 1 || home.ID != 2 || work.Name != "work" {
		t.Fatalf("tags = %+v %+v", work, home)
	}

	a, err := s.CreateActivity(ctx, models.ActivityInput{Title: "Enviar informe", Color: "#ff4d4d", TagIDs: []int{1, 2}})
	if err != nil {
		t.Fatalf("CreateActivity() error = %v", err)
	}
	start := time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC)
	if _, err := s.CreateCalendarEvent(ctx, models.ScheduledEvent{
		ActivityID: a.ID, Title: a.Title, Tags: a.Tags, Start: start, End: start.Add(time.Hour),
	}); err != nil {
		t.Fatalf("CreateCalendarEvent() error = %v", err)
	}

	if err := s.DeleteTag(ctx, work.ID); err != nil {
		t.Fatalf("DeleteTag() error = %v", err)
	}
	activities, _ := s.ListActivities(ctx)
	if activities[0].Tags.Has(work.ID) {
		t.Errorf("activity still references deleted tag: %+v", activities[0].Tags)
	}
	events, _ := s.ListCalendarEvents(ctx)
	if events[0].Tags.Has(work.ID) {
		t.Errorf("event still references deleted tag: %+v", events[0].Tags)
	}

	if err := s.DeleteTag(ctx, 99); !apierrors.IsNotFound(err) {
		t.Errorf("DeleteTag(99) error = %v, want not found", err)
	}
}

func TestActivityRejectsUnknownTags(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.CreateActivity(context.Background(), models.ActivityInput{Title: "x", Color: "#fff", TagIDs: []int{7}})
	if !apierrors.IsValidation(err) {
		t.Fatalf("CreateActivity() error = %v, want validation", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	s, dir := newStore(t)
	if _, err := s.CreateActivity(ctx, models.ActivityInput{Title: "Leer", Color: "#66cc66"}); err != nil {
		t.Fatalf("CreateActivity() error = %v", err)
	}

	reopened, err := Open(dir, s.zone)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	got, err := reopened.ListActivities(ctx)
	if err != nil {
		t.Fatalf("ListActivities() error = %v", err)
	}
	if len(got) != 1 || got[0].Title != "Leer" {
		t.Errorf("ListActivities() = %+v", got)
	}
	next, _ := reopened.CreateActivity(ctx, models.ActivityInput{Title: "Correr", Color: "#000"})
	if next.ID != "2" {
		t.Errorf("id counter not persisted: got %q", next.ID)
	}
}

func TestEventValidationAndUpdate(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	start := time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC)

	if _, err := s.CreateCalendarEvent(ctx, models.ScheduledEvent{ActivityID: "3", Title: "x", Start: start, End: start}); !apierrors.IsValidation(err) {
		t.Fatalf("CreateCalendarEvent(end == start) error = %v, want validation", err)
	}

	e, err := s.CreateCalendarEvent(ctx, models.ScheduledEvent{ActivityID: "3", Title: "x", Start: start, End: start.Add(time.Hour)})
	if err != nil {
		t.Fatalf("CreateCalendarEvent() error = %v", err)
	}
	moved := e.Clone()
	moved.Start = start.Add(2 * time.Hour)
	moved.End = start.Add(3 * time.Hour)
	if _, err := s.UpdateCalendarEvent(ctx, moved); err != nil {
		t.Fatalf("UpdateCalendarEvent() error = %v", err)
	}

	byActivity, _ := s.ListEventsByActivity(ctx, "3")
	if len(byActivity) != 1 || !byActivity[0].Start.Equal(moved.Start) {
		t.Errorf("ListEventsByActivity() = %+v", byActivity)
	}
	if byActivity[0].Start.Location().String() != "America/Bogota" {
		t.Errorf("stored times not in canonical zone: %s", byActivity[0].Start.Location())
	}

	if err := s.DeleteCalendarEvent(ctx, e.ID); err != nil {
		t.Fatalf("DeleteCalendarEvent() error = %v", err)
	}
	if err := s.DeleteCalendarEvent(ctx, e.ID); !apierrors.IsNotFound(err) {
		t.Errorf("second delete error = %v, want not found", err)
	}
}
