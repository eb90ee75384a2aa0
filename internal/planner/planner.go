// Package planner is the client-side planning engine: tag and activity
// catalogs plus the calendar of scheduled events, kept in sync with a
// pluggable backend.
package planner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kutbudev/agenda-cli/internal/clock"
	"github.com/kutbudev/agenda-cli/internal/events"
	appLog "github.com/kutbudev/agenda-cli/internal/log"
	"github.com/kutbudev/agenda-cli/internal/models"
	"github.com/kutbudev/agenda-cli/internal/notify"
	"github.com/kutbudev/agenda-cli/internal/tagstore"
)

// ErrClosed is returned when a result arrives after Close; the result is
// discarded.
var ErrClosed = errors.New("planner closed")

// Backend persists tags, activities and calendar events. *api.Client and
// *localstore.Store both implement it.
type Backend interface {
	ListTags(ctx context.Context) ([]models.Tag, error)
	CreateTag(ctx context.Context, in models.TagInput) (*models.Tag, error)
	UpdateTag(ctx context.Context, id int, in models.TagInput) (*models.Tag, error)
	DeleteTag(ctx context.Context, id int) error

	ListActivities(ctx context.Context) ([]models.Activity, error)
	CreateActivity(ctx context.Context, in models.ActivityInput) (*models.Activity, error)
	UpdateActivity(ctx context.Context, id models.ID, in models.ActivityInput) (*models.Activity, error)
	DeleteActivity(ctx context.Context, id models.ID) error

	ListCalendarEvents(ctx context.Context) ([]models.ScheduledEvent, error)
	ListEventsByActivity(ctx context.Context, activityID models.ID) ([]models.ScheduledEvent, error)
	CreateCalendarEvent(ctx context.Context, e models.ScheduledEvent) (*models.ScheduledEvent, error)
	UpdateCalendarEvent(ctx context.Context, e models.ScheduledEvent) (*models.ScheduledEvent, error)
	DeleteCalendarEvent(ctx context.Context, id models.ID) error
}

// Options configures New. Only Backend is required.
type Options struct {
	Backend Backend
	Zone    *clock.Zone
	Sink    notify.Sink
	Router  notify.Router
	Bus     *events.Bus
	Tags    *tagstore.Store

	// DefaultDuration is the length of events scheduled without an explicit
	// end. Defaults to one hour.
	DefaultDuration time.Duration
	// Snap is the step "now" is rounded to when a drop has no time.
	// Defaults to 30 minutes.
	Snap time.Duration
}

// lifecycle is shared by every manager of one planner. Once closed, results
// of in-flight calls are dropped instead of applied.
type lifecycle struct {
	closed atomic.Bool
}

func (l *lifecycle) done() bool { return l.closed.Load() }

// Planner wires the managers around one backend and one tag store.
type Planner struct {
	Tags       *TagManager
	Activities *ActivityManager
	Calendar   *Calendar
	TagStore   *tagstore.Store
	Bus        *events.Bus
	Zone       *clock.Zone

	life  *lifecycle
	group singleflight.Group

	mu          sync.Mutex
	initialized bool
}

// New builds a planner. Transient calendar state starts empty.
func New(opts Options) *Planner {
	if opts.Backend == nil {
		panic("planner: Backend is required")
	}
	if opts.Zone == nil {
		opts.Zone = clock.NewZone("")
	}
	if opts.Sink == nil {
		opts.Sink = notify.Discard
	}
	if opts.Router == nil {
		opts.Router = notify.Discard
	}
	if opts.Bus == nil {
		opts.Bus = events.NewBus()
	}
	if opts.Tags == nil {
		opts.Tags = tagstore.New()
	}
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = time.Hour
	}
	if opts.Snap <= 0 {
		opts.Snap = 30 * time.Minute
	}

	life := &lifecycle{}
	p := &Planner{
		TagStore: opts.Tags,
		Bus:      opts.Bus,
		Zone:     opts.Zone,
		life:     life,
	}
	p.Activities = &ActivityManager{
		backend: opts.Backend,
		tags:    opts.Tags,
		sink:    opts.Sink,
		bus:     opts.Bus,
		life:    life,
	}
	p.Calendar = &Calendar{
		backend:         opts.Backend,
		zone:            opts.Zone,
		sink:            opts.Sink,
		router:          opts.Router,
		bus:             opts.Bus,
		life:            life,
		activities:      p.Activities,
		defaultDuration: opts.DefaultDuration,
		snap:            opts.Snap,
		pending:         make(map[models.ID]struct{}),
		tombstones:      make(map[models.ID]struct{}),
		deleting:        make(map[models.ID]struct{}),
	}
	p.Tags = &TagManager{
		backend:    opts.Backend,
		store:      opts.Tags,
		sink:       opts.Sink,
		bus:        opts.Bus,
		life:       life,
		activities: p.Activities,
		calendar:   p.Calendar,
	}
	return p
}

// Initialize loads tags, activities and events once. Concurrent callers
// share the in-flight load; calls after a successful load are no-ops.
func (p *Planner) Initialize(ctx context.Context) error {
	if p.isInitialized() {
		return nil
	}
	_, err, shared := p.group.Do("initialize", func() (interface{}, error) {
		if p.isInitialized() {
			return nil, nil
		}
		// No shared cancellation: each loader reports its own failure once.
		var g errgroup.Group
		g.Go(func() error { return p.Tags.LoadCatalog(ctx) })
		g.Go(func() error { return p.Activities.Load(ctx) })
		g.Go(func() error { return p.Calendar.Refresh(ctx) })
		if err := g.Wait(); err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.initialized = true
		p.mu.Unlock()
		return nil, nil
	})
	appLog.Debug("planner initialize", "shared", shared, "ok", err == nil)
	return err
}

func (p *Planner) isInitialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}

// Close stops the planner from applying late results and closes the bus.
func (p *Planner) Close() {
	if p.life.closed.Swap(true) {
		return
	}
	p.Bus.Close()
}

// Closed reports whether Close was called.
func (p *Planner) Closed() bool { return p.life.done() }
