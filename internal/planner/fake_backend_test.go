package planner

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/kutbudev/agenda-cli/internal/clock"
	apierrors "github.com/kutbudev/agenda-cli/internal/errors"
	"github.com/kutbudev/agenda-cli/internal/models"
	"github.com/kutbudev/agenda-cli/internal/notify"
)

// fakeBackend is an in-memory Backend with per-operation error injection,
// call counters and optional gates that block an operation until released.
type fakeBackend struct {
	mu         sync.Mutex
	tags       []models.Tag
	activities []models.Activity
	events     []models.ScheduledEvent
	nextID     int

	calls   map[string]int
	errs    map[string]error
	gates   map[string]chan struct{}
	entered map[string]chan struct{}
	// replies block a write after it is stored, before it returns.
	replies map[string]chan struct{}
	stored  map[string]chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		nextID:  100,
		calls:   map[string]int{},
		errs:    map[string]error{},
		gates:   map[string]chan struct{}{},
		entered: map[string]chan struct{}{},
		replies: map[string]chan struct{}{},
		stored:  map[string]chan struct{}{},
	}
}

var errOffline = &apierrors.NetworkError{Op: "test", Err: context.DeadlineExceeded}

func (f *fakeBackend) failWith(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = err
}

// hold makes op block until the returned release func is called. The
// entered channel receives once per call that reaches the gate.
func (f *fakeBackend) hold(op string) (entered <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	in := make(chan struct{}, 8)
	f.gates[op] = gate
	f.entered[op] = in
	var once sync.Once
	return in, func() { once.Do(func() { close(gate) }) }
}

// holdReply lets op apply its change, then blocks its response until
// release is called. stored receives once the change is applied.
func (f *fakeBackend) holdReply(op string) (stored <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	in := make(chan struct{}, 8)
	f.replies[op] = gate
	f.stored[op] = in
	var once sync.Once
	return in, func() { once.Do(func() { close(gate) }) }
}

func (f *fakeBackend) reply(op string) {
	f.mu.Lock()
	gate, in := f.replies[op], f.stored[op]
	f.mu.Unlock()
	if in != nil {
		in <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
}

func (f *fakeBackend) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeBackend) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	gate, in := f.gates[op], f.entered[op]
	f.mu.Unlock()

	if in != nil {
		in <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[op]
}

func (f *fakeBackend) id() int {
	f.nextID++
	return f.nextID
}

func notFound() error { return &apierrors.ServerError{Status: http.StatusNotFound} }

func (f *fakeBackend) ListTags(ctx context.Context) ([]models.Tag, error) {
	if err := f.enter(ctx, "ListTags"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Tag(nil), f.tags...), nil
}

func (f *fakeBackend) CreateTag(ctx context.Context, in models.TagInput) (*models.Tag, error) {
	if err := f.enter(ctx, "CreateTag"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := models.Tag{ID: f.id(), Name: in.Name, Color: in.Color}
	f.tags = append(f.tags, t)
	return &t, nil
}

func (f *fakeBackend) UpdateTag(ctx context.Context, id int, in models.TagInput) (*models.Tag, error) {
	if err := f.enter(ctx, "UpdateTag"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tags {
		if f.tags[i].ID == id {
			f.tags[i] = models.Tag{ID: id, Name: in.Name, Color: in.Color}
			t := f.tags[i]
			return &t, nil
		}
	}
	return nil, notFound()
}

func (f *fakeBackend) DeleteTag(ctx context.Context, id int) error {
	if err := f.enter(ctx, "DeleteTag"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tags = models.TagList(f.tags).Without(id)
	return nil
}

func (f *fakeBackend) ListActivities(ctx context.Context) ([]models.Activity, error) {
	if err := f.enter(ctx, "ListActivities"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Activity, 0, len(f.activities))
	for _, a := range f.activities {
		out = append(out, a.Clone())
	}
	return out, nil
}

func (f *fakeBackend) CreateActivity(ctx context.Context, in models.ActivityInput) (*models.Activity, error) {
	if err := f.enter(ctx, "CreateActivity"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := in.Payload()
	a := models.Activity{ID: models.ID(strconv.Itoa(f.id())), Title: p.Title, Description: p.Description, Color: p.Color}
	for _, id := range p.Tags {
		a.Tags = append(a.Tags, models.Tag{ID: id})
	}
	f.activities = append(f.activities, a)
	return &a, nil
}

func (f *fakeBackend) UpdateActivity(ctx context.Context, id models.ID, in models.ActivityInput) (*models.Activity, error) {
	if err := f.enter(ctx, "UpdateActivity"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := in.Payload()
	for i := range f.activities {
		if f.activities[i].ID == id {
			f.activities[i].Title = p.Title
			f.activities[i].Color = p.Color
			f.activities[i].Description = p.Description
			a := f.activities[i].Clone()
			return &a, nil
		}
	}
	return nil, notFound()
}

func (f *fakeBackend) DeleteActivity(ctx context.Context, id models.ID) error {
	if err := f.enter(ctx, "DeleteActivity"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.activities {
		if f.activities[i].ID == id {
			f.activities = append(f.activities[:i], f.activities[i+1:]...)
			return nil
		}
	}
	return notFound()
}

func (f *fakeBackend) ListCalendarEvents(ctx context.Context) ([]models.ScheduledEvent, error) {
	if err := f.enter(ctx, "ListCalendarEvents"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ScheduledEvent, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Clone())
	}
	return out, nil
}

func (f *fakeBackend) ListEventsByActivity(ctx context.Context, activityID models.ID) ([]models.ScheduledEvent, error) {
	if err := f.enter(ctx, "ListEventsByActivity"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ScheduledEvent
	for _, e := range f.events {
		if e.ActivityID == activityID {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}

func (f *fakeBackend) CreateCalendarEvent(ctx context.Context, e models.ScheduledEvent) (*models.ScheduledEvent, error) {
	if err := f.enter(ctx, "CreateCalendarEvent"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	created := e.Clone()
	created.ID = models.ID("event-" + strconv.Itoa(f.id()))
	f.events = append(f.events, created)
	f.mu.Unlock()
	f.reply("CreateCalendarEvent")
	return &created, nil
}

func (f *fakeBackend) UpdateCalendarEvent(ctx context.Context, e models.ScheduledEvent) (*models.ScheduledEvent, error) {
	if err := f.enter(ctx, "UpdateCalendarEvent"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.events {
		if f.events[i].ID == e.ID {
			f.events[i] = e.Clone()
			return &e, nil
		}
	}
	return nil, notFound()
}

func (f *fakeBackend) DeleteCalendarEvent(ctx context.Context, id models.ID) error {
	if err := f.enter(ctx, "DeleteCalendarEvent"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.events {
		if f.events[i].ID == id {
			f.events = append(f.events[:i], f.events[i+1:]...)
			return nil
		}
	}
	return notFound()
}

func (f *fakeBackend) hasEvent(id models.ID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.ID == id {
			return true
		}
	}
	return false
}

var bogota = time.FixedZone("America/Bogota", -5*60*60)

// newTestPlanner builds a planner over fb whose clock reads now.
func newTestPlanner(t *testing.T, fb *fakeBackend, now time.Time) (*Planner, *notify.Recorder) {
	t.Helper()
	rec := &notify.Recorder{}
	p := New(Options{
		Backend: fb,
		Zone:    clock.NewZoneAt(bogota, func() time.Time { return now }),
		Sink:    rec,
		Router:  rec,
	})
	t.Cleanup(p.Close)
	return p, rec
}

func at(day, hh, mm int) time.Time {
	return time.Date(2024, 6, day, hh, mm, 0, 0, bogota)
}
