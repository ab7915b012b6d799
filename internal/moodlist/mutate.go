package moodlist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/collections"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/mood"
)

// Add stores a new event for the owner and returns it with its assigned id.
// The projection is moved to the new event when it is strictly newer than
// the one the projection holds.
func (e *Engine) Add(ctx context.Context, ev *mood.MoodEvent) (added *mood.MoodEvent, err error) {
	defer func() { metrics.RecordMutation("add", err) }()

	if err := e.writable("add"); err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, fmt.Errorf("%w: nil event", mood.ErrInvalidEvent)
	}
	if ev.Username != "" && ev.Username != e.sess.Username {
		return nil, configErr("add", ErrUsernameMismatch)
	}

	n := ev.Clone()
	n.ID = uuid.NewString()
	n.Username = e.sess.Username
	if !n.EmotionalState.Valid() {
		return nil, fmt.Errorf("%w: emotional state %d", mood.ErrInvalidEvent, int(n.EmotionalState))
	}
	data := n.PersonalData()
	if err := mood.ValidatePersonal(data); err != nil {
		return nil, fmt.Errorf("%w: %w", mood.ErrInvalidEvent, err)
	}

	if err := e.cfg.Store.Set(ctx, collections.MoodEvent(n.Username, n.ID), data); err != nil {
		return nil, fmt.Errorf("store mood event: %w", err)
	}
	if err := e.promote(ctx, n); err != nil {
		return nil, err
	}

	e.mu.Lock()
	if indexOf(e.list, n.ID) < 0 {
		e.list = append(e.list, n.Clone())
	}
	sortByTime(e.list)
	e.mu.Unlock()

	e.logger.Info("mood event added", "mood_id", n.ID)
	return n.Clone(), nil
}

// Delete removes an event. When the projection points at it, the projection
// moves to the next most recent event, or is removed if none remain.
func (e *Engine) Delete(ctx context.Context, ev *mood.MoodEvent) (err error) {
	defer func() { metrics.RecordMutation("delete", err) }()

	if err := e.writable("delete"); err != nil {
		return err
	}
	if ev == nil || ev.ID == "" {
		return configErr("delete", ErrMissingID)
	}
	username := e.sess.Username

	recent, err := e.cfg.Store.Get(ctx, collections.RecentMood(username))
	if err != nil {
		return fmt.Errorf("read recent projection: %w", err)
	}
	if recent.Exists() && mood.RecentMoodID(recent.Data) == ev.ID {
		e.mu.Lock()
		survivors := make([]*mood.MoodEvent, 0, len(e.list))
		for _, other := range e.list {
			if other.ID != ev.ID {
				survivors = append(survivors, other.Clone())
			}
		}
		e.mu.Unlock()
		sortByTime(survivors)

		if len(survivors) == 0 {
			err = e.cfg.Store.Delete(ctx, collections.RecentMood(username))
		} else {
			err = e.writeProjection(ctx, survivors[0])
		}
		if err != nil {
			return fmt.Errorf("replace recent projection: %w", err)
		}
	}

	if err := e.cfg.Store.Delete(ctx, collections.MoodEvent(username, ev.ID)); err != nil {
		return fmt.Errorf("delete mood event: %w", err)
	}

	e.mu.Lock()
	if i := indexOf(e.list, ev.ID); i >= 0 {
		e.list = append(e.list[:i], e.list[i+1:]...)
	}
	sortByTime(e.list)
	e.mu.Unlock()

	e.logger.Info("mood event deleted", "mood_id", ev.ID)
	return nil
}

// Edit applies changes to an event in this list. The personal record is
// always rewritten. The projection is recomputed when the event was the most
// recent one, and moved to it when the edit makes it the newest. Exactly one
// EventUpdated is sent on success, even with updates suppressed.
func (e *Engine) Edit(ctx context.Context, ev *mood.MoodEvent, changes mood.Changes) (edited *mood.MoodEvent, err error) {
	defer func() { metrics.RecordMutation("edit", err) }()

	if err := e.writable("edit"); err != nil {
		return nil, err
	}
	if ev == nil || ev.ID == "" {
		return nil, configErr("edit", ErrMissingID)
	}

	e.mu.Lock()
	i := indexOf(e.list, ev.ID)
	if i < 0 {
		e.mu.Unlock()
		return nil, configErr("edit", ErrNotInList)
	}
	updated := e.list[i].Clone()
	e.mu.Unlock()

	if err := changes.Apply(updated); err != nil {
		return nil, err
	}
	username := e.sess.Username

	var personal, recent docstore.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		personal, err = e.cfg.Store.Get(gctx, collections.MoodEvent(username, updated.ID))
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = e.cfg.Store.Get(gctx, collections.RecentMood(username))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch mood event and projection: %w", err)
	}
	if !personal.Exists() {
		e.logger.Warn("edited mood event was missing from the store", "mood_id", updated.ID)
	}

	if err := e.cfg.Store.Set(ctx, collections.MoodEvent(username, updated.ID), updated.PersonalData()); err != nil {
		return nil, fmt.Errorf("store mood event: %w", err)
	}

	e.mu.Lock()
	if j := indexOf(e.list, updated.ID); j >= 0 {
		e.list[j] = updated.Clone()
	}
	sortByTime(e.list)
	newest := e.newestLocked()
	e.mu.Unlock()

	wasNewest := recent.Exists() && mood.RecentMoodID(recent.Data) == updated.ID
	switch {
	case wasNewest && newest != nil:
		err = e.writeProjection(ctx, newest)
	case !wasNewest && newerThan(updated.Timestamp, recent):
		err = e.writeProjection(ctx, updated)
	}
	if err != nil {
		return nil, fmt.Errorf("update recent projection: %w", err)
	}

	e.logger.Info("mood event edited", "mood_id", updated.ID)
	e.emit(Event{Kind: EventUpdated})
	return updated.Clone(), nil
}

func (e *Engine) writable(op string) error {
	if e.query.Type() != QueryPersonalModifiable {
		return configErr(op, ErrReadOnly)
	}
	if e.ctx.Err() != nil {
		return ErrClosed
	}
	return nil
}

// promote points the projection at ev when it has none or holds an older
// event, then checks what was written.
func (e *Engine) promote(ctx context.Context, ev *mood.MoodEvent) error {
	recent, err := e.cfg.Store.Get(ctx, collections.RecentMood(ev.Username))
	if err != nil {
		return fmt.Errorf("read recent projection: %w", err)
	}
	if !newerThan(ev.Timestamp, recent) {
		return nil
	}
	if err := e.writeProjection(ctx, ev); err != nil {
		return fmt.Errorf("update recent projection: %w", err)
	}

	check, err := e.cfg.Store.Get(ctx, collections.RecentMood(ev.Username))
	if err != nil {
		return fmt.Errorf("verify recent projection: %w", err)
	}
	if !check.Exists() {
		return fmt.Errorf("%w: projection missing after write", ErrConsistencyViolation)
	}
	if err := mood.ValidateRecent(check.Data); err != nil {
		return fmt.Errorf("%w: %w", ErrConsistencyViolation, err)
	}
	return nil
}

func (e *Engine) writeProjection(ctx context.Context, ev *mood.MoodEvent) error {
	data := ev.RecentData(e.sess.Username)
	if err := mood.ValidateRecent(data); err != nil {
		return fmt.Errorf("%w: %w", ErrConsistencyViolation, err)
	}
	return e.cfg.Store.Set(ctx, collections.RecentMood(e.sess.Username), data)
}

// newestLocked returns the list's most recent event. e.mu must be held and
// the list sorted.
func (e *Engine) newestLocked() *mood.MoodEvent {
	if len(e.list) == 0 {
		return nil
	}
	return e.list[0].Clone()
}

// newerThan reports whether ts is strictly after the projection's timestamp.
// A missing or unreadable projection is older than anything.
func newerThan(ts time.Time, recent docstore.Snapshot) bool {
	if !recent.Exists() {
		return true
	}
	current, ok := recent.Data[mood.FieldTimestamp].(time.Time)
	if !ok {
		return true
	}
	return ts.After(current)
}

func indexOf(list []*mood.MoodEvent, id string) int {
	for i, ev := range list {
		if ev.ID == id {
			return i
		}
	}
	return -1
}
