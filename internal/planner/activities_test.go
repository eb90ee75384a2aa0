package planner

import (
	"context"
	"errors"
	"testing"

	apierrors "github.com/kutbudev/agenda-cli/internal/errors"
	"github.com/kutbudev/agenda-cli/internal/models"
	"github.com/kutbudev/agenda-cli/internal/notify"
)

func TestCreateActivityAppendsWithoutRefetch(t *testing.T) {
	fb := newFakeBackend()
	fb.activities = []models.Activity{informe}
	fb.tags = []models.Tag{{ID: 1, Name: "work"}}
	p, rec := newTestPlanner(t, fb, at(1, 8, 0))
	ctx := context.Background()
	_ = p.Activities.Load(ctx)
	_ = p.Tags.LoadCatalog(ctx)
	p.Tags.Select(models.Tag{ID: 1, Name: "work"})
	p.Tags.AddToSelection()

	a, err := p.Activities.Create(ctx, models.ActivityInput{
		Title: " Leer ", Color: "#66cc66", Tags: p.Tags.Selection(),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if a.Title != "Leer" || !a.Tags.Has(1) {
		t.Errorf("created = %+v", a)
	}
	list := p.Activities.List()
	if len(list) != 2 || list[1].ID != a.ID {
		t.Errorf("List() = %+v", list)
	}
	if fb.count("ListActivities") != 1 {
		t.Errorf("list refetched %d times", fb.count("ListActivities")-1)
	}
	if len(p.Tags.Selection()) != 0 {
		t.Error("tag selection not cleared after save")
	}
	if rec.Count(notify.KindSuccess) != 1 {
		t.Errorf("success notifications = %d", rec.Count(notify.KindSuccess))
	}
}

func TestCreateActivityValidation(t *testing.T) {
	tests := []struct {
		name  string
		in    models.ActivityInput
		field string
	}{
		{"blank title", models.ActivityInput{Title: "  ", Color: "#ffffff"}, "title"},
		{"missing colour", models.ActivityInput{Title: "Leer"}, "color"},
		{"bad colour", models.ActivityInput{Title: "Leer", Color: "blue"}, "color"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackend()
			p, _ := newTestPlanner(t, fb, at(1, 8, 0))
			_, err := p.Activities.Create(context.Background(), tt.in)
			var ve *apierrors.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Create() error = %v, want validation", err)
			}
			if len(ve.Field(tt.field)) == 0 {
				t.Errorf("no %s error in %v", tt.field, ve.Fields)
			}
			if fb.count("CreateActivity") != 0 {
				t.Error("invalid activity reached the backend")
			}
		})
	}
}

func TestUpdateActivityFailureKeepsList(t *testing.T) {
	fb := newFakeBackend()
	fb.activities = []models.Activity{informe}
	p, _ := newTestPlanner(t, fb, at(1, 8, 0))
	ctx := context.Background()
	_ = p.Activities.Load(ctx)

	fb.failWith("UpdateActivity", errOffline)
	if _, err := p.Activities.Update(ctx, "3", models.ActivityInput{Title: "Otro", Color: "#000000"}); err == nil {
		t.Fatal("Update() error = nil")
	}
	a, _ := p.Activities.Get("3")
	if a.Title != "Enviar informe" {
		t.Errorf("activity changed on failure: %+v", a)
	}

	fb.failWith("UpdateActivity", nil)
	if _, err := p.Activities.Update(ctx, "3", models.ActivityInput{Title: "Otro", Color: "#000000"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	a, _ = p.Activities.Get("3")
	if a.Title != "Otro" || len(p.Activities.List()) != 1 {
		t.Errorf("after update: %+v", p.Activities.List())
	}
}

func TestDeleteActivityIsPostConfirmation(t *testing.T) {
	fb := newFakeBackend()
	fb.activities = []models.Activity{informe}
	seedEvent(fb, "event-1", at(1, 10, 0), at(1, 11, 0))
	p, _ := newTestPlanner(t, fb, at(1, 8, 0))
	ctx := context.Background()
	_ = p.Initialize(ctx)

	entered, release := fb.hold("DeleteActivity")
	done := make(chan error, 1)
	go func() { done <- p.Activities.Delete(ctx, "3") }()
	<-entered
	if _, err := p.Activities.Get("3"); err != nil {
		t.Error("activity removed before the backend confirmed")
	}
	release()
	if err := <-done; err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := p.Activities.Get("3"); !apierrors.IsNotFound(err) {
		t.Errorf("Get() error = %v", err)
	}
	if _, err := p.Calendar.Get("event-1"); err != nil {
		t.Error("scheduled event removed with its activity")
	}
}
