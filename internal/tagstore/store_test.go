package tagstore

import (
	"testing"

	"github.com/kutbudev/agenda-cli/internal/models"
)

func TestSelectionIsDeduplicated(t *testing.T) {
	s := New()
	work := models.Tag{ID: 1, Name: "work", Color: "#ff4d4d"}

	s.Pick(work)
	if !s.AddPickedToSelection() {
		t.Fatal("first AddPickedToSelection() = false")
	}
	s.Pick(work)
	if s.AddPickedToSelection() {
		t.Error("second AddPickedToSelection() of the same id = true")
	}
	if got := s.Selected(); len(got) != 1 {
		t.Errorf("Selected() = %+v, want one entry", got)
	}
	if _, ok := s.Picked(); ok {
		t.Error("pick not cleared after adding")
	}
}

func TestRemoveSelectedAt(t *testing.T) {
	s := New()
	s.SetSelection([]models.Tag{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 2}})

	if got := len(s.Selected()); got != 3 {
		t.Fatalf("SetSelection kept %d tags, want 3", got)
	}
	if !s.RemoveSelectedAt(1) {
		t.Fatal("RemoveSelectedAt(1) = false")
	}
	got := s.Selected()
	if got[0].ID != 1 || got[1].ID != 3 {
		t.Errorf("Selected() = %+v, want ids 1,3", got)
	}
	if s.RemoveSelectedAt(5) || s.RemoveSelectedAt(-1) {
		t.Error("out-of-range RemoveSelectedAt() = true")
	}
}

func TestRemoveClearsEverywhere(t *testing.T) {
	s := New()
	tag := models.Tag{ID: 4, Name: "gym"}
	s.SetAvailable([]models.Tag{tag, {ID: 5, Name: "home"}})
	s.SetSelection([]models.Tag{tag})
	s.Pick(tag)

	s.Remove(4)

	if _, ok := s.Find(4); ok {
		t.Error("tag still in catalog")
	}
	if len(s.Selected()) != 0 {
		t.Error("tag still selected")
	}
	if _, ok := s.Picked(); ok {
		t.Error("tag still picked")
	}
	if len(s.Available()) != 1 {
		t.Errorf("Available() = %+v", s.Available())
	}
}

func TestReplaceUpdatesSelection(t *testing.T) {
	s := New()
	s.SetAvailable([]models.Tag{{ID: 1, Name: "old"}})
	s.SetSelection([]models.Tag{{ID: 1, Name: "old"}})

	if !s.Replace(models.Tag{ID: 1, Name: "new"}) {
		t.Fatal("Replace() = false")
	}
	if s.Selected()[0].Name != "new" {
		t.Errorf("selection not updated: %+v", s.Selected())
	}
	if s.Replace(models.Tag{ID: 9}) {
		t.Error("Replace(unknown) = true")
	}
}
