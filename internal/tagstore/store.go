// Package tagstore holds the tag state shared by the planner managers: the
// available catalog, the tag currently picked, and the working selection for
// the activity being edited. One Store is created per planner and passed to
// every component that needs it.
package tagstore

import (
	"sync"

	"github.com/kutbudev/agenda-cli/internal/models"
)

// Store is safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	available []models.Tag
	picked    *models.Tag
	selected  []models.Tag
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Available returns a copy of the catalog.
func (s *Store) Available() []models.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Tag(nil), s.available...)
}

// SetAvailable replaces the catalog wholesale.
func (s *Store) SetAvailable(tags []models.Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = append([]models.Tag(nil), tags...)
}

// Append adds t to the catalog, replacing any entry with the same id.
func (s *Store) Append(t models.Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.available {
		if s.available[i].ID == t.ID {
			s.available[i] = t
			return
		}
	}
	s.available = append(s.available, t)
}

// Replace swaps the catalog entry with t's id. It reports whether one existed.
// The selection and picked tag are updated too.
func (s *Store) Replace(t models.Tag) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for i := range s.available {
		if s.available[i].ID == t.ID {
			s.available[i] = t
			found = true
		}
	}
	for i := range s.selected {
		if s.selected[i].ID == t.ID {
			s.selected[i] = t
		}
	}
	if s.picked != nil && s.picked.ID == t.ID {
		p := t
		s.picked = &p
	}
	return found
}

// Remove drops the tag from the catalog, the selection and the pick.
func (s *Store) Remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = models.TagList(s.available).Without(id)
	s.selected = models.TagList(s.selected).Without(id)
	if s.picked != nil && s.picked.ID == id {
		s.picked = nil
	}
}

// Find looks a tag up by id in the catalog.
func (s *Store) Find(id int) (models.Tag, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.available {
		if t.ID == id {
			return t, true
		}
	}
	return models.Tag{}, false
}

// Pick marks t as the tag about to be added to the selection.
func (s *Store) Pick(t models.Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := t
	s.picked = &p
}

// Picked returns the picked tag, if any.
func (s *Store) Picked() (models.Tag, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.picked == nil {
		return models.Tag{}, false
	}
	return *s.picked, true
}

// AddPickedToSelection moves the picked tag into the selection. A tag that
// is already selected is not added twice. It reports whether the selection
// changed.
func (s *Store) AddPickedToSelection() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.picked == nil {
		return false
	}
	t := *s.picked
	s.picked = nil
	if models.TagList(s.selected).Has(t.ID) {
		return false
	}
	s.selected = append(s.selected, t)
	return true
}

// RemoveSelectedAt removes the selection entry at index. Out-of-range
// indexes are ignored.
func (s *Store) RemoveSelectedAt(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.selected) {
		return false
	}
	s.selected = append(s.selected[:index], s.selected[index+1:]...)
	return true
}

// SetSelection replaces the selection, dropping duplicate ids.
func (s *Store) SetSelection(tags []models.Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]models.Tag, 0, len(tags))
	for _, t := range tags {
		if !models.TagList(next).Has(t.ID) {
			next = append(next, t)
		}
	}
	s.selected = next
}

// Selected returns a copy of the selection.
func (s *Store) Selected() []models.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Tag(nil), s.selected...)
}

// ClearSelection empties the selection and the pick.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
	s.picked = nil
}
