package moodlist

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/collections"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/geocell"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/mood"
)

// resolveNearby runs one range query per covering cell in parallel, merges
// the results, and keeps the events whose true distance is within the radius.
func (e *Engine) resolveNearby(q MapClose) {
	radius := e.cfg.NearbyRadius
	bounds := geocell.QueryBounds(q.Center, radius)
	results := make([][]docstore.Snapshot, len(bounds))

	g, ctx := errgroup.WithContext(e.ctx)
	for i, r := range bounds {
		i, r := i, r
		g.Go(func() error {
			dq := docstore.Collection(collections.RecentMoods()).
				Where(mood.FieldLocation, docstore.OpGte, r.Start).
				Where(mood.FieldLocation, docstore.OpLt, r.End)
			snaps, err := e.cfg.Store.Query(ctx, dq)
			if err != nil {
				return fmt.Errorf("range %s..%s: %w", r.Start, r.End, err)
			}
			results[i] = snaps
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.fail(fmt.Errorf("%w: %w", ErrStore, err), "store")
		return
	}

	seen := make(map[string]struct{})
	var candidates []docstore.Snapshot
	for _, snaps := range results {
		for _, s := range snaps {
			if _, dup := seen[s.Path]; dup {
				continue
			}
			seen[s.Path] = struct{}{}
			candidates = append(candidates, s)
		}
	}

	events, err := e.decode(candidates)
	if err != nil {
		e.fail(err, "integrity")
		return
	}

	nearby := make([]*mood.MoodEvent, 0, len(events))
	for _, ev := range events {
		if ev.HasLocation() && geocell.DistanceMeters(q.Center, ev.Location) <= radius {
			nearby = append(nearby, ev)
		}
	}
	metrics.RecordGeoSearch(len(events), len(nearby))
	e.logger.Debug("nearby search finished", "ranges", len(bounds), "candidates", len(events), "accepted", len(nearby))

	e.commit(0, nearby)
}
