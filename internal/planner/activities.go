package planner

import (
	"context"
	"fmt"
	"sync"

	apierrors "github.com/kutbudev/agenda-cli/internal/errors"
	"github.com/kutbudev/agenda-cli/internal/events"
	appLog "github.com/kutbudev/agenda-cli/internal/log"
	"github.com/kutbudev/agenda-cli/internal/models"
	"github.com/kutbudev/agenda-cli/internal/notify"
	"github.com/kutbudev/agenda-cli/internal/tagstore"
)

// ActivityManager owns the activity list. Writes are applied after the
// backend confirms them, and always by id.
type ActivityManager struct {
	backend Backend
	tags    *tagstore.Store
	sink    notify.Sink
	bus     *events.Bus
	life    *lifecycle

	mu   sync.Mutex
	list []models.Activity
}

// Load replaces the list with the backend's.
func (m *ActivityManager) Load(ctx context.Context) error {
	list, err := m.backend.ListActivities(ctx)
	if m.life.done() {
		return ErrClosed
	}
	if err != nil {
		m.sink.Notify("Could not load activities: "+err.Error(), notify.KindError)
		return fmt.Errorf("load activities: %w", err)
	}

	m.mu.Lock()
	m.list = make([]models.Activity, 0, len(list))
	for _, a := range list {
		m.list = append(m.list, a.Clone())
	}
	m.mu.Unlock()
	appLog.Debug("activities loaded", "count", len(list))
	return nil
}

// List returns a copy of the activities in list order.
func (m *ActivityManager) List() []models.Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Activity, 0, len(m.list))
	for _, a := range m.list {
		out = append(out, a.Clone())
	}
	return out
}

// Get returns the activity with id.
func (m *ActivityManager) Get(id models.ID) (models.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexLocked(id); i >= 0 {
		return m.list[i].Clone(), nil
	}
	return models.Activity{}, &apierrors.NotFoundLocal{Kind: "activity", ID: id.String()}
}

func (m *ActivityManager) indexLocked(id models.ID) int {
	for i := range m.list {
		if m.list[i].ID == id {
			return i
		}
	}
	return -1
}

// Create persists a new activity and appends the stored record. Title and
// colour are validated before any network call. The tag selection is
// cleared once the activity is saved.
func (m *ActivityManager) Create(ctx context.Context, in models.ActivityInput) (*models.Activity, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		m.sink.Notify(err.Error(), notify.KindError)
		return nil, err
	}

	a, err := m.backend.CreateActivity(ctx, in)
	if m.life.done() {
		return nil, ErrClosed
	}
	if err != nil {
		m.sink.Notify("Could not create activity: "+err.Error(), notify.KindError)
		return nil, fmt.Errorf("create activity: %w", err)
	}

	m.mu.Lock()
	if i := m.indexLocked(a.ID); i >= 0 {
		m.list[i] = a.Clone()
	} else {
		m.list = append(m.list, a.Clone())
	}
	m.mu.Unlock()
	m.tags.ClearSelection()

	m.sink.Notify(fmt.Sprintf("Activity %q created", a.Title), notify.KindSuccess)
	m.bus.Publish(events.Event{Type: events.ActivityCreated, ID: a.ID.String(), Activity: a})
	return a, nil
}

// Update replaces the activity with id. The list is unchanged on failure.
func (m *ActivityManager) Update(ctx context.Context, id models.ID, in models.ActivityInput) (*models.Activity, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		m.sink.Notify(err.Error(), notify.KindError)
		return nil, err
	}

	a, err := m.backend.UpdateActivity(ctx, id, in)
	if m.life.done() {
		return nil, ErrClosed
	}
	if err != nil {
		m.sink.Notify("Could not update activity: "+err.Error(), notify.KindError)
		return nil, fmt.Errorf("update activity %s: %w", id, err)
	}

	m.mu.Lock()
	if i := m.indexLocked(id); i >= 0 {
		m.list[i] = a.Clone()
	} else {
		m.list = append(m.list, a.Clone())
	}
	m.mu.Unlock()
	m.tags.ClearSelection()

	m.sink.Notify(fmt.Sprintf("Activity %q updated", a.Title), notify.KindSuccess)
	m.bus.Publish(events.Event{Type: events.ActivityUpdated, ID: a.ID.String(), Activity: a})
	return a, nil
}

// Delete removes the activity once the backend confirms. Scheduled events
// are kept; see Calendar.DeleteForActivity.
func (m *ActivityManager) Delete(ctx context.Context, id models.ID) error {
	err := m.backend.DeleteActivity(ctx, id)
	if m.life.done() {
		return ErrClosed
	}
	if err != nil {
		m.sink.Notify("Could not delete activity: "+err.Error(), notify.KindError)
		return fmt.Errorf("delete activity %s: %w", id, err)
	}

	m.mu.Lock()
	if i := m.indexLocked(id); i >= 0 {
		m.list = append(m.list[:i], m.list[i+1:]...)
	}
	m.mu.Unlock()

	m.sink.Notify("Activity deleted", notify.KindSuccess)
	m.bus.Publish(events.Event{Type: events.ActivityDeleted, ID: id.String()})
	return nil
}

func (m *ActivityManager) stripTag(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.list {
		m.list[i].Tags = m.list[i].Tags.Without(id)
	}
}

func (m *ActivityManager) replaceTag(t models.Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.list {
		for j := range m.list[i].Tags {
			if m.list[i].Tags[j].ID == t.ID {
				m.list[i].Tags[j] = t
			}
		}
	}
}
