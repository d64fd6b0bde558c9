package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrStopped is returned by Dispatch once the controller loop has exited
var ErrStopped = errors.New("dashboard controller stopped")

// DefaultStaleAfter is how long without a telemetry frame counts as stale
const DefaultStaleAfter = 30 * time.Second

type request struct {
	event Event
	done  chan struct{}
}

// Controller owns the console State. A single goroutine applies events in
// order and re-renders after each one; readers get the last published
// snapshot.
type Controller struct {
	events     chan request
	stopped    chan struct{}
	prefs      PrefsStore
	history    *History
	logger     *zap.Logger
	now        func() time.Time
	staleAfter time.Duration

	live *State // touched only by Run

	mu    sync.RWMutex
	state *State
	view  View

	subMu   sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

// ControllerOption customises a Controller
type ControllerOption func(*Controller)

// WithClock replaces time.Now
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) { c.now = now }
}

// WithStaleAfter sets the staleness threshold
func WithStaleAfter(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.staleAfter = d
		}
	}
}

// WithHistory records a fleet sample after every telemetry frame
func WithHistory(h *History) ControllerOption {
	return func(c *Controller) { c.history = h }
}

// NewController creates a controller with preferences loaded from prefs
func NewController(prefs PrefsStore, logger *zap.Logger, opts ...ControllerOption) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefs == nil {
		prefs = &MemoryPrefs{}
	}
	c := &Controller{
		events:     make(chan request),
		stopped:    make(chan struct{}),
		prefs:      prefs,
		logger:     logger,
		now:        time.Now,
		staleAfter: DefaultStaleAfter,
		subs:       make(map[int]chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.live = NewState()
	p, err := prefs.Load()
	if err != nil {
		logger.Warn("Failed to load preferences, using defaults", zap.Error(err))
	}
	p.applyTo(c.live)

	c.state = c.live.Clone()
	c.view = Render(c.live, c.now())
	return c
}

// Run applies events until ctx is cancelled
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.stopped)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-c.events:
			c.apply(req.event)
			close(req.done)
		}
	}
}

func (c *Controller) apply(ev Event) {
	now := c.now()
	eff := ev.apply(c.live, now)

	if eff.prefs {
		if err := c.prefs.Save(prefsOf(c.live)); err != nil {
			c.logger.Error("Failed to save preferences", zap.Error(err))
		}
	}
	if eff.store && c.history != nil {
		fleet := FleetStats(c.live)
		c.history.Record(Sample{Time: now, Hashrate: fleet.Total(), Watts: fleet.Watts, Rigs: fleet.Rigs})
	}

	snapshot := c.live.Clone()
	c.mu.Lock()
	c.state = snapshot
	if !c.live.Resetting {
		c.view = Render(snapshot, now)
	} else {
		c.view.Resetting = true
	}
	c.mu.Unlock()

	c.logger.Debug("Applied event", zap.Stringer("event", ev))
	c.notify()
}

// Dispatch hands ev to the controller and waits until it is applied and
// rendered
func (c *Controller) Dispatch(ctx context.Context, ev Event) error {
	req := request{event: ev, done: make(chan struct{})}
	select {
	case c.events <- req:
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns a copy of the last published state
func (c *Controller) State() *State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Clone()
}

// View returns the last rendered view
func (c *Controller) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

// Stats returns the stats bar numbers for the current selection
func (c *Controller) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Aggregate(c.state)
}

// History returns the fleet history, or nil when none is kept
func (c *Controller) History() *History {
	return c.history
}

// Stale reports whether no telemetry frame arrived within the threshold
func (c *Controller) Stale(now time.Time) bool {
	c.mu.RLock()
	last := c.state.LastUpdate
	c.mu.RUnlock()
	return last.IsZero() || now.Sub(last) >= c.staleAfter
}

// Subscribe returns a channel signalled after every applied event. The
// channel is buffered so slow readers only miss intermediate signals.
func (c *Controller) Subscribe() (<-chan struct{}, func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan struct{}, 1)
	c.subs[id] = ch

	return ch, func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Controller) notify() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
