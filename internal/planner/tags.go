package planner

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	apierrors "github.com/kutbudev/agenda-cli/internal/errors"
	"github.com/kutbudev/agenda-cli/internal/events"
	appLog "github.com/kutbudev/agenda-cli/internal/log"
	"github.com/kutbudev/agenda-cli/internal/models"
	"github.com/kutbudev/agenda-cli/internal/notify"
	"github.com/kutbudev/agenda-cli/internal/tagstore"
)

// TagPalette is the set new tags pick a colour from when none is given.
var TagPalette = []string{
	"#4da6ff",
	"#ff4d4d",
	"#66cc66",
	"#ff9933",
	"#cc99ff",
	"#ff6699",
	"#5e72e4",
	"#11cdef",
	"#fb6340",
	"#2dce89",
}

// RandomColor returns a colour from TagPalette.
func RandomColor() string {
	return TagPalette[rand.IntN(len(TagPalette))]
}

// TagManager owns the tag catalog and the tag selection.
type TagManager struct {
	backend    Backend
	store      *tagstore.Store
	sink       notify.Sink
	bus        *events.Bus
	life       *lifecycle
	activities *ActivityManager
	calendar   *Calendar
}

// LoadCatalog replaces the catalog. On failure the catalog is unchanged.
func (m *TagManager) LoadCatalog(ctx context.Context) error {
	tags, err := m.backend.ListTags(ctx)
	if m.life.done() {
		return ErrClosed
	}
	if err != nil {
		m.sink.Notify("Could not load tags: "+err.Error(), notify.KindError)
		return fmt.Errorf("load tags: %w", err)
	}
	m.store.SetAvailable(tags)
	appLog.Debug("tag catalog loaded", "count", len(tags))
	return nil
}

// Catalog returns the loaded tags.
func (m *TagManager) Catalog() []models.Tag {
	return m.store.Available()
}

// Find returns the catalog tag with id.
func (m *TagManager) Find(id int) (models.Tag, error) {
	t, ok := m.store.Find(id)
	if !ok {
		return models.Tag{}, &apierrors.NotFoundLocal{Kind: "tag", ID: strconv.Itoa(id)}
	}
	return t, nil
}

// Resolve maps a tag list to current catalog entries, dropping tags the
// catalog no longer has.
func (m *TagManager) Resolve(list models.TagList) models.TagList {
	out := make(models.TagList, 0, len(list))
	for _, t := range list {
		if cur, ok := m.store.Find(t.ID); ok {
			out = append(out, cur)
		}
	}
	return out
}

// CreateTag creates a tag. A blank name is rejected without a network
// call; a blank colour gets a palette colour.
func (m *TagManager) CreateTag(ctx context.Context, name, color string) (*models.Tag, error) {
	in := models.TagInput{Name: strings.TrimSpace(name), Color: strings.TrimSpace(color)}
	if in.Color == "" {
		in.Color = RandomColor()
	}
	if err := in.Validate(); err != nil {
		m.sink.Notify(err.Error(), notify.KindError)
		return nil, err
	}

	tag, err := m.backend.CreateTag(ctx, in)
	if m.life.done() {
		return nil, ErrClosed
	}
	if err != nil {
		m.sink.Notify("Could not create tag: "+err.Error(), notify.KindError)
		return nil, fmt.Errorf("create tag: %w", err)
	}

	m.store.Append(*tag)
	m.sink.Notify(fmt.Sprintf("Tag %q created", tag.Name), notify.KindSuccess)
	m.bus.Publish(events.Event{Type: events.TagCreated, ID: strconv.Itoa(tag.ID), Tag: tag})
	return tag, nil
}

// UpdateTag renames or recolours a tag. Activities pick up the change;
// scheduled event snapshots keep the old values.
func (m *TagManager) UpdateTag(ctx context.Context, id int, name, color string) (*models.Tag, error) {
	in := models.TagInput{Name: strings.TrimSpace(name), Color: strings.TrimSpace(color)}
	if in.Color == "" {
		if cur, ok := m.store.Find(id); ok {
			in.Color = cur.Color
		}
	}
	if err := in.Validate(); err != nil {
		m.sink.Notify(err.Error(), notify.KindError)
		return nil, err
	}

	tag, err := m.backend.UpdateTag(ctx, id, in)
	if m.life.done() {
		return nil, ErrClosed
	}
	if err != nil {
		m.sink.Notify("Could not update tag: "+err.Error(), notify.KindError)
		return nil, fmt.Errorf("update tag %d: %w", id, err)
	}

	if !m.store.Replace(*tag) {
		m.store.Append(*tag)
	}
	m.activities.replaceTag(*tag)
	m.sink.Notify(fmt.Sprintf("Tag %q updated", tag.Name), notify.KindSuccess)
	m.bus.Publish(events.Event{Type: events.TagUpdated, ID: strconv.Itoa(tag.ID), Tag: tag})
	return tag, nil
}

// DeleteTag deletes a tag and strips it from every activity and scheduled
// event held in memory. Nothing is stripped when the delete fails.
func (m *TagManager) DeleteTag(ctx context.Context, id int) error {
	err := m.backend.DeleteTag(ctx, id)
	if m.life.done() {
		return ErrClosed
	}
	if err != nil {
		m.sink.Notify("Could not delete tag: "+err.Error(), notify.KindError)
		return fmt.Errorf("delete tag %d: %w", id, err)
	}

	m.store.Remove(id)
	m.activities.stripTag(id)
	m.calendar.stripTag(id)
	m.sink.Notify("Tag deleted", notify.KindSuccess)
	m.bus.Publish(events.Event{Type: events.TagDeleted, ID: strconv.Itoa(id)})
	return nil
}

// Select picks tag as the next one to add to the selection.
func (m *TagManager) Select(tag models.Tag) {
	m.store.Pick(tag)
}

// AddToSelection moves the picked tag into the selection, ignoring
// duplicates. It reports whether the selection changed.
func (m *TagManager) AddToSelection() bool {
	return m.store.AddPickedToSelection()
}

// RemoveFromSelection removes the selection entry at index.
func (m *TagManager) RemoveFromSelection(index int) bool {
	return m.store.RemoveSelectedAt(index)
}

// Selection returns the current selection.
func (m *TagManager) Selection() []models.Tag {
	return m.store.Selected()
}

// ClearSelection empties the selection.
func (m *TagManager) ClearSelection() {
	m.store.ClearSelection()
}
