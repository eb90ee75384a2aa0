package planner

import (
	"context"
	"slices"
	"testing"

	apierrors "github.com/kutbudev/agenda-cli/internal/errors"
	"github.com/kutbudev/agenda-cli/internal/models"
	"github.com/kutbudev/agenda-cli/internal/notify"
)

func TestCreateTagRejectsBlankName(t *testing.T) {
	fb := newFakeBackend()
	fb.tags = []models.Tag{{ID: 1, Name: "work", Color: "#4da6ff"}}
	p, rec := newTestPlanner(t, fb, at(1, 8, 0))
	ctx := context.Background()
	if err := p.Tags.LoadCatalog(ctx); err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}

	for _, name := range []string{"", "   ", "\t"} {
		if _, err := p.Tags.CreateTag(ctx, name, "#ffffff"); !apierrors.IsValidation(err) {
			t.Errorf("CreateTag(%q) error = %v, want validation", name, err)
		}
	}
	if fb.count("CreateTag") != 0 {
		t.Errorf("CreateTag reached the backend %d times", fb.count("CreateTag"))
	}
	if got := p.Tags.Catalog(); len(got) != 1 {
		t.Errorf("Catalog() = %v", got)
	}
	if rec.Count(notify.KindError) != 3 {
		t.Errorf("error notifications = %d, want 3", rec.Count(notify.KindError))
	}
}

func TestCreateTagPicksPaletteColour(t *testing.T) {
	fb := newFakeBackend()
	p, _ := newTestPlanner(t, fb, at(1, 8, 0))

	tag, err := p.Tags.CreateTag(context.Background(), "  urgent ", "")
	if err != nil {
		t.Fatalf("CreateTag() error = %v", err)
	}
	if tag.Name != "urgent" {
		t.Errorf("name = %q, want trimmed", tag.Name)
	}
	if !slices.Contains(TagPalette, tag.Color) {
		t.Errorf("colour %q not from the palette", tag.Color)
	}
	if _, err := p.Tags.Find(tag.ID); err != nil {
		t.Errorf("Find() error = %v", err)
	}
}

func TestLoadCatalogFailureKeepsCatalog(t *testing.T) {
	fb := newFakeBackend()
	fb.tags = []models.Tag{{ID: 1, Name: "work"}}
	p, rec := newTestPlanner(t, fb, at(1, 8, 0))
	ctx := context.Background()
	_ = p.Tags.LoadCatalog(ctx)

	fb.failWith("ListTags", errOffline)
	if err := p.Tags.LoadCatalog(ctx); err == nil {
		t.Fatal("LoadCatalog() error = nil")
	}
	if got := p.Tags.Catalog(); len(got) != 1 || got[0].Name != "work" {
		t.Errorf("Catalog() = %v", got)
	}
	if rec.Count(notify.KindError) != 1 {
		t.Errorf("error notifications = %d", rec.Count(notify.KindError))
	}
}

func tagFixture() *fakeBackend {
	fb := newFakeBackend()
	work := models.Tag{ID: 1, Name: "work", Color: "#4da6ff"}
	home := models.Tag{ID: 2, Name: "home", Color: "#66cc66"}
	fb.tags = []models.Tag{work, home}
	fb.activities = []models.Activity{
		{ID: "3", Title: "Enviar informe", Color: "#ff4d4d", Tags: models.TagList{work, home}},
	}
	seedEvent(fb, "event-1", at(1, 10, 0), at(1, 11, 0))
	return fb
}

func TestDeleteTagCascades(t *testing.T) {
	fb := tagFixture()
	p, _ := newTestPlanner(t, fb, at(1, 8, 0))
	ctx := context.Background()
	if err := p.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	p.Tags.Select(models.Tag{ID: 1, Name: "work"})
	p.Tags.AddToSelection()

	if err := p.Tags.DeleteTag(ctx, 1); err != nil {
		t.Fatalf("DeleteTag() error = %v", err)
	}
	if _, err := p.Tags.Find(1); !apierrors.IsNotFound(err) {
		t.Errorf("tag still in catalog: %v", err)
	}
	if len(p.Tags.Selection()) != 0 {
		t.Errorf("Selection() = %v", p.Tags.Selection())
	}
	a, _ := p.Activities.Get("3")
	if a.Tags.Has(1) || !a.Tags.Has(2) {
		t.Errorf("activity tags = %v", a.Tags)
	}
	e, _ := p.Calendar.Get("event-1")
	if e.Tags.Has(1) {
		t.Errorf("event tags = %v", e.Tags)
	}
}

func TestFailedDeleteTagDoesNotCascade(t *testing.T) {
	fb := tagFixture()
	p, _ := newTestPlanner(t, fb, at(1, 8, 0))
	ctx := context.Background()
	_ = p.Initialize(ctx)

	fb.failWith("DeleteTag", &apierrors.ServerError{Status: 500, Message: "boom"})
	if err := p.Tags.DeleteTag(ctx, 1); err == nil {
		t.Fatal("DeleteTag() error = nil")
	}
	if _, err := p.Tags.Find(1); err != nil {
		t.Errorf("tag removed from catalog: %v", err)
	}
	a, _ := p.Activities.Get("3")
	if !a.Tags.Has(1) {
		t.Errorf("activity lost tag: %v", a.Tags)
	}
	e, _ := p.Calendar.Get("event-1")
	if !e.Tags.Has(1) {
		t.Errorf("event lost tag: %v", e.Tags)
	}
}

func TestUpdateTagRefreshesActivities(t *testing.T) {
	fb := tagFixture()
	p, _ := newTestPlanner(t, fb, at(1, 8, 0))
	ctx := context.Background()
	_ = p.Initialize(ctx)

	if _, err := p.Tags.UpdateTag(ctx, 1, "office", ""); err != nil {
		t.Fatalf("UpdateTag() error = %v", err)
	}
	got, _ := p.Tags.Find(1)
	if got.Name != "office" || got.Color != "#4da6ff" {
		t.Errorf("catalog tag = %+v", got)
	}
	a, _ := p.Activities.Get("3")
	if a.Tags[0].Name != "office" {
		t.Errorf("activity tag = %+v", a.Tags[0])
	}
	e, _ := p.Calendar.Get("event-1")
	if e.Tags[0].Name != "work" {
		t.Errorf("event snapshot changed: %+v", e.Tags[0])
	}
}

func TestTagSelection(t *testing.T) {
	fb := tagFixture()
	p, _ := newTestPlanner(t, fb, at(1, 8, 0))
	_ = p.Tags.LoadCatalog(context.Background())

	work, _ := p.Tags.Find(1)
	home, _ := p.Tags.Find(2)
	p.Tags.Select(work)
	if !p.Tags.AddToSelection() {
		t.Fatal("AddToSelection() = false")
	}
	p.Tags.Select(work)
	if p.Tags.AddToSelection() {
		t.Error("duplicate was added")
	}
	p.Tags.Select(home)
	p.Tags.AddToSelection()
	if got := p.Tags.Selection(); len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 {
		t.Errorf("Selection() = %v", got)
	}
	if !p.Tags.RemoveFromSelection(0) {
		t.Error("RemoveFromSelection(0) = false")
	}
	if got := p.Tags.Selection(); len(got) != 1 || got[0].ID != 2 {
		t.Errorf("Selection() = %v", got)
	}

	resolved := p.Tags.Resolve(models.TagList{{ID: 2}, {ID: 77}})
	if len(resolved) != 1 || resolved[0].Name != "home" {
		t.Errorf("Resolve() = %v", resolved)
	}
}
