package planner

import (
	apierrors "github.com/kutbudev/agenda-cli/internal/errors"
	"github.com/kutbudev/agenda-cli/internal/models"
)

// Rect is a screen region in the caller's coordinates.
type Rect struct {
	X, Y, Width, Height int
}

// Contains reports whether (x, y) falls inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Selection is the transient action state: at most one selected event, the
// position its context menu was opened at, and whether the menu or the
// edit modal is showing. It is never persisted.
type Selection struct {
	EventID   models.ID
	X, Y      int
	MenuOpen  bool
	ModalOpen bool
}

// SelectEvent makes id the only selected event and opens its menu at the
// click position.
func (c *Calendar) SelectEvent(id models.ID, x, y int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexLocked(id) < 0 {
		return &apierrors.NotFoundLocal{Kind: "calendar event", ID: id.String()}
	}
	c.selection = Selection{EventID: id, X: x, Y: y, MenuOpen: true}
	return nil
}

// Selection returns the current selection. ok is false when nothing is
// selected.
func (c *Calendar) Selection() (sel Selection, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection, c.selection.EventID != ""
}

// CloseMenu hides the context menu and keeps the selection.
func (c *Calendar) CloseMenu() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection.MenuOpen = false
}

// OpenModal shows the edit modal for the selected event.
func (c *Calendar) OpenModal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selection.EventID == "" {
		return false
	}
	c.selection.MenuOpen = false
	c.selection.ModalOpen = true
	return true
}

// CloseModal hides the modal and clears the selection.
func (c *Calendar) CloseModal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection = Selection{}
}

// ClickOutside closes the menu when (x, y) is outside menu. It reports
// whether the menu was closed.
func (c *Calendar) ClickOutside(x, y int, menu Rect) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.selection.MenuOpen || menu.Contains(x, y) {
		return false
	}
	c.selection.MenuOpen = false
	return true
}

// ClearSelection drops the selection and closes menu and modal.
func (c *Calendar) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection = Selection{}
}
