// Package moodlist builds live, validated lists of mood events for one user
// and one view, and keeps the per-user most-recent projection consistent when
// the owner edits their own journal.
//
// An Engine is opened through a Factory for a (session, Query) pair. It
// resolves its source in one of three ways: a live query over the owner's own
// events, a live query over the projection restricted to the current
// following set (rebuilt whenever that set changes), or a one-shot geocell
// fan-out around a point. Every delivery replaces the whole list after
// re-validating every record; a single malformed record fails the delivery.
// Outcomes are reported on the Events channel.
package moodlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/collections"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/follow"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/mood"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/session"
)

const (
	DefaultNearbyRadius = 5000.0
	DefaultRecentWindow = 7 * 24 * time.Hour

	eventBuffer = 16
)

// EventKind tags an Event.
type EventKind int

const (
	// EventInitialized is sent once, on the first successful delivery.
	EventInitialized EventKind = iota + 1
	// EventUpdated is sent after the list changes.
	EventUpdated
	// EventError carries a failed delivery; the list is left as it was.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventInitialized:
		return "initialized"
	case EventUpdated:
		return "updated"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind EventKind
	Err  error
}

// Config holds what every engine shares.
type Config struct {
	Store  docstore.DB
	Graph  *follow.Graph
	Logger *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// NearbyRadius is the map-close search radius in meters.
	NearbyRadius float64
	// RecentWindow bounds the *-recent views.
	RecentWindow time.Duration
}

// Factory opens engines.
type Factory struct {
	cfg Config
}

func NewFactory(cfg Config) *Factory {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NearbyRadius <= 0 {
		cfg.NearbyRadius = DefaultNearbyRadius
	}
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = DefaultRecentWindow
	}
	if cfg.Graph == nil && cfg.Store != nil {
		cfg.Graph = follow.NewGraph(cfg.Store, cfg.Logger)
	}
	return &Factory{cfg: cfg}
}

// Open validates q and starts resolving it for sess. The engine runs until
// Close is called or ctx ends. Bad input is reported synchronously as a
// ConfigurationError; everything after that arrives on Events.
func (f *Factory) Open(ctx context.Context, sess session.Session, q Query) (*Engine, error) {
	if !sess.Valid() {
		return nil, configErr("open", ErrNoSession)
	}
	if q == nil {
		return nil, configErr("open", fmt.Errorf("%w: nil query", ErrInvalidQuery))
	}
	if err := q.validate(); err != nil {
		return nil, configErr("open", err)
	}

	engineCtx, cancel := context.WithCancel(ctx)
	e := &Engine{
		cfg:    f.cfg,
		sess:   sess,
		query:  q,
		logger: f.cfg.Logger.With("username", sess.Username, "query_type", q.Type().String()),
		ctx:    engineCtx,
		cancel: cancel,
		events: make(chan Event, eventBuffer),
		ready:  make(chan struct{}),
	}
	metrics.TrackEngine(true)

	var err error
	switch {
	case q.Type().Personal():
		err = e.resolvePersonal()
	case q.Type().FollowDependent():
		err = e.resolveFollowing()
	case q.Type() == QueryMapClose:
		go e.resolveNearby(q.(MapClose))
	default:
		err = configErr("open", fmt.Errorf("%w: %s", ErrInvalidQuery, q.Type()))
	}
	if err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

// Engine is one live list. It is safe for concurrent use.
type Engine struct {
	cfg    Config
	sess   session.Session
	query  Query
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	emitMu sync.Mutex
	events chan Event
	closed bool

	readyOnce sync.Once
	ready     chan struct{}
	readyErr  error

	mu          sync.Mutex
	list        []*mood.MoodEvent
	initialized bool
	suppress    bool

	subMu      sync.Mutex
	followSub  *docstore.Subscription
	sourceSub  *docstore.Subscription
	generation atomic.Uint64

	closeOnce sync.Once
}

func (e *Engine) Query() Query { return e.query }

func (e *Engine) Session() session.Session { return e.sess }

// Events delivers list outcomes. It is closed by Close. A reader that falls
// behind misses EventUpdated notices; MoodEvents is always current.
func (e *Engine) Events() <-chan Event { return e.events }

// MoodEvents returns a copy of the current list.
func (e *Engine) MoodEvents() []*mood.MoodEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*mood.MoodEvent, len(e.list))
	for i, ev := range e.list {
		out[i] = ev.Clone()
	}
	return out
}

// SetSuppressUpdates turns EventUpdated off for deliveries, so a caller can
// ignore the echo of its own writes. EventInitialized and EventError are
// always sent.
func (e *Engine) SetSuppressUpdates(suppress bool) {
	e.mu.Lock()
	e.suppress = suppress
	e.mu.Unlock()
}

// Await blocks until the first delivery has succeeded or failed.
func (e *Engine) Await(ctx context.Context) error {
	select {
	case <-e.ready:
		return e.readyErr
	case <-ctx.Done():
		return ctx.Err()
	case <-e.ctx.Done():
		select {
		case <-e.ready:
			return e.readyErr
		default:
			return ErrClosed
		}
	}
}

// Close stops every subscription and closes Events. It is safe to call more
// than once.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.cancel()

		e.subMu.Lock()
		e.followSub.Close()
		e.sourceSub.Close()
		e.subMu.Unlock()

		e.emitMu.Lock()
		e.closed = true
		close(e.events)
		e.emitMu.Unlock()

		metrics.TrackEngine(false)
	})
}

func (e *Engine) resolvePersonal() error {
	q := e.personalQuery()
	sub, err := e.cfg.Store.Subscribe(e.ctx, q, func(snaps []docstore.Snapshot, err error) {
		e.deliverSnapshots(0, snaps, err)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", e.query.Type(), err)
	}
	e.subMu.Lock()
	e.sourceSub = sub
	e.subMu.Unlock()
	return nil
}

// resolveFollowing watches the following set and rebuilds the projection
// query on every change. Deliveries from a superseded query are dropped.
func (e *Engine) resolveFollowing() error {
	sub, err := e.cfg.Graph.SubscribeFollowings(e.ctx, e.sess.Username, func(names []string, err error) {
		if err != nil {
			e.fail(fmt.Errorf("%w: following set: %w", ErrStore, err), "store")
			return
		}
		e.rebuildFollowing(names)
	})
	if err != nil {
		return fmt.Errorf("subscribe following set: %w", err)
	}
	e.subMu.Lock()
	e.followSub = sub
	e.subMu.Unlock()
	return nil
}

func (e *Engine) rebuildFollowing(names []string) {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	gen := e.generation.Add(1)
	e.sourceSub.Close()
	e.sourceSub = nil

	if len(names) == 0 {
		e.logger.Debug("following set is empty")
		e.commit(gen, nil)
		return
	}

	sub, err := e.cfg.Store.Subscribe(e.ctx, e.followingQuery(names), func(snaps []docstore.Snapshot, err error) {
		e.deliverSnapshots(gen, snaps, err)
	})
	if err != nil {
		if e.ctx.Err() == nil {
			e.fail(fmt.Errorf("%w: %w", ErrStore, err), "store")
		}
		return
	}
	e.sourceSub = sub
}

func (e *Engine) personalQuery() docstore.Query {
	q := docstore.Collection(collections.MoodEvents(e.sess.Username)).Order(mood.FieldTimestamp, true)
	switch v := e.query.(type) {
	case PersonalRecent:
		q = q.Where(mood.FieldTimestamp, docstore.OpGte, e.cutoff())
	case PersonalByState:
		q = q.Where(mood.FieldEmotionalState, docstore.OpEq, v.State.Code())
	case PersonalByReason:
		q = q.Where(mood.FieldTrigger, docstore.OpContains, v.Reason)
	case MapPersonal:
		q = q.Where(mood.FieldLocation, docstore.OpExists, nil)
	}
	return q
}

func (e *Engine) followingQuery(names []string) docstore.Query {
	q := docstore.Collection(collections.RecentMoods()).
		Where(mood.FieldUsername, docstore.OpIn, names).
		Order(mood.FieldTimestamp, true)
	switch v := e.query.(type) {
	case Following:
		q = q.Order(mood.FieldUsername, true)
	case FollowingRecent:
		q = q.Where(mood.FieldTimestamp, docstore.OpGte, e.cutoff())
	case FollowingByState:
		q = q.Where(mood.FieldEmotionalState, docstore.OpEq, v.State.Code())
	case FollowingByReason:
		q = q.Where(mood.FieldTrigger, docstore.OpContains, v.Reason)
	case MapFollowing:
		q = q.Where(mood.FieldLocation, docstore.OpExists, nil)
	}
	return q
}

func (e *Engine) cutoff() time.Time {
	return e.cfg.Now().Add(-e.cfg.RecentWindow).UTC()
}

// deliverSnapshots validates a full result and commits it.
func (e *Engine) deliverSnapshots(gen uint64, snaps []docstore.Snapshot, err error) {
	if gen != e.generation.Load() {
		return
	}
	if err != nil {
		e.fail(fmt.Errorf("%w: %w", ErrStore, err), "store")
		return
	}

	events, err := e.decode(snaps)
	if err != nil {
		e.fail(err, "integrity")
		return
	}
	e.commit(gen, events)
}

func (e *Engine) decode(snaps []docstore.Snapshot) ([]*mood.MoodEvent, error) {
	events := make([]*mood.MoodEvent, 0, len(snaps))
	for _, s := range snaps {
		var (
			ev  *mood.MoodEvent
			err error
		)
		if e.query.Type().Personal() {
			ev, err = mood.FromPersonalData(s.Data, e.sess.Username)
		} else {
			ev, err = mood.FromRecentData(s.Data)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Path, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// commit replaces the list and reports it.
func (e *Engine) commit(gen uint64, events []*mood.MoodEvent) {
	e.mu.Lock()
	if gen != e.generation.Load() {
		e.mu.Unlock()
		return
	}
	sortEvents(events, e.query.Type())
	e.list = events
	first := !e.initialized
	e.initialized = true
	notify := !e.suppress
	e.mu.Unlock()

	metrics.RecordDelivery(e.query.Type().String())
	if first {
		e.markReady(nil)
		e.emit(Event{Kind: EventInitialized})
	}
	if notify {
		e.emit(Event{Kind: EventUpdated})
	}
}

func (e *Engine) fail(err error, reason string) {
	if e.ctx.Err() != nil {
		return
	}
	metrics.RecordDeliveryFailure(e.query.Type().String(), reason)
	if errors.Is(err, mood.ErrIntegrity) {
		e.logger.Error("rejected malformed mood record", "error", err)
	} else {
		e.logger.Warn("mood list delivery failed", "error", err)
	}
	e.markReady(err)
	e.emit(Event{Kind: EventError, Err: err})
}

func (e *Engine) markReady(err error) {
	e.readyOnce.Do(func() {
		e.readyErr = err
		close(e.ready)
	})
}

// emit never blocks. The list itself is the state, so EventUpdated is
// dropped when the buffer is full. EventInitialized and EventError evict the
// oldest buffered event to make room.
func (e *Engine) emit(ev Event) {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()
	if e.closed {
		return
	}
	for {
		select {
		case e.events <- ev:
			return
		default:
		}
		if ev.Kind == EventUpdated {
			metrics.RecordDroppedEvent(e.query.Type().String())
			return
		}
		select {
		case <-e.events:
			metrics.RecordDroppedEvent(e.query.Type().String())
		default:
		}
	}
}

// sortEvents orders the following view by username and every other view by
// time, newest first.
func sortEvents(events []*mood.MoodEvent, t QueryType) {
	if t == QueryFollowing {
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].Username > events[j].Username
		})
		return
	}
	sortByTime(events)
}

func sortByTime(events []*mood.MoodEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
}
