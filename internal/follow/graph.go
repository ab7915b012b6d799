// Package follow manages the directed follow graph: accepted edges stored as a
// following/followers pair and pending requests stored under the target.
package follow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/collections"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/docstore"
)

var (
	ErrSelfFollow       = errors.New("cannot follow yourself")
	ErrAlreadyFollowing = errors.New("already following this user")
	ErrUnknownUser      = errors.New("user does not exist")
	ErrInvalidUsername  = errors.New("username is required")
)

const (
	fieldUsername  = "username"
	fieldTimestamp = "timestamp"
)

type Graph struct {
	db     docstore.DB
	logger *slog.Logger
	now    func() time.Time
}

func NewGraph(db docstore.DB, logger *slog.Logger) *Graph {
	if logger == nil {
		logger = slog.Default()
	}
	return &Graph{db: db, logger: logger, now: time.Now}
}

// Followers returns who follows username, sorted.
func (g *Graph) Followers(ctx context.Context, username string) ([]string, error) {
	return g.scan(ctx, collections.Followers(username))
}

// Followings returns who username follows, sorted.
func (g *Graph) Followings(ctx context.Context, username string) ([]string, error) {
	return g.scan(ctx, collections.Following(username))
}

// FollowRequests returns who asked to follow username, sorted.
func (g *Graph) FollowRequests(ctx context.Context, username string) ([]string, error) {
	return g.scan(ctx, collections.FollowRequests(username))
}

// IsFollowing reports whether follower has an accepted edge to followee.
func (g *Graph) IsFollowing(ctx context.Context, follower, followee string) (bool, error) {
	snap, err := g.db.Get(ctx, collections.FollowingEdge(follower, followee))
	if err != nil {
		return false, fmt.Errorf("check follow edge: %w", err)
	}
	return snap.Exists(), nil
}

// HasRequested reports whether requester has a pending request to target.
func (g *Graph) HasRequested(ctx context.Context, requester, target string) (bool, error) {
	snap, err := g.db.Get(ctx, collections.FollowRequest(target, requester))
	if err != nil {
		return false, fmt.Errorf("check follow request: %w", err)
	}
	return snap.Exists(), nil
}

// CreateFollowRequest records a pending request from requester to target.
// Repeating a pending request refreshes its timestamp.
func (g *Graph) CreateFollowRequest(ctx context.Context, requester, target string) error {
	if requester == "" || target == "" {
		return ErrInvalidUsername
	}
	if requester == target {
		return ErrSelfFollow
	}

	return g.db.RunTransaction(ctx, func(tx docstore.Tx) error {
		user, err := tx.Get(collections.User(target))
		if err != nil {
			return err
		}
		if !user.Exists() {
			return fmt.Errorf("%w: %s", ErrUnknownUser, target)
		}
		edge, err := tx.Get(collections.FollowingEdge(requester, target))
		if err != nil {
			return err
		}
		if edge.Exists() {
			return ErrAlreadyFollowing
		}
		return tx.Set(collections.FollowRequest(target, requester), g.record(requester))
	})
}

// HandleFollowRequest resolves a pending request in one transaction. The
// request is always removed; on accept the follow edge pair is created.
// Repeating the call is harmless.
func (g *Graph) HandleFollowRequest(ctx context.Context, target, requester string, accept bool) error {
	if requester == "" || target == "" {
		return ErrInvalidUsername
	}

	err := g.db.RunTransaction(ctx, func(tx docstore.Tx) error {
		if err := tx.Delete(collections.FollowRequest(target, requester)); err != nil {
			return err
		}
		if !accept {
			return nil
		}
		if err := tx.Set(collections.FollowerEdge(target, requester), g.record(requester)); err != nil {
			return err
		}
		return tx.Set(collections.FollowingEdge(requester, target), g.record(target))
	})
	if err != nil {
		return fmt.Errorf("handle follow request %s -> %s: %w", requester, target, err)
	}

	g.logger.Info("follow request handled", "username", target, "requester", requester, "accepted", accept)
	return nil
}

// Unfollow removes both halves of the follower -> followee edge.
func (g *Graph) Unfollow(ctx context.Context, follower, followee string) error {
	err := g.db.RunTransaction(ctx, func(tx docstore.Tx) error {
		if err := tx.Delete(collections.FollowingEdge(follower, followee)); err != nil {
			return err
		}
		return tx.Delete(collections.FollowerEdge(followee, follower))
	})
	if err != nil {
		return fmt.Errorf("unfollow %s -> %s: %w", follower, followee, err)
	}
	return nil
}

// RemoveFollower drops follower from username's followers.
func (g *Graph) RemoveFollower(ctx context.Context, username, follower string) error {
	return g.Unfollow(ctx, follower, username)
}

// SubscribeFollowings calls fn with the sorted following set of username now
// and after every change to it. Malformed entries are skipped and deleted.
func (g *Graph) SubscribeFollowings(ctx context.Context, username string, fn func([]string, error)) (*docstore.Subscription, error) {
	coll := collections.Following(username)
	return g.db.Subscribe(ctx, docstore.Collection(coll), func(snaps []docstore.Snapshot, err error) {
		if err != nil {
			fn(nil, err)
			return
		}
		names, bad := usernames(snaps)
		if len(bad) > 0 {
			// Deleting publishes a change, so it must not run on the delivery goroutine.
			go g.purge(ctx, bad)
		}
		fn(names, nil)
	})
}

// Purge removes every edge and request that involves username.
func (g *Graph) Purge(ctx context.Context, username string) error {
	following, err := g.Followings(ctx, username)
	if err != nil {
		return err
	}
	followers, err := g.Followers(ctx, username)
	if err != nil {
		return err
	}
	incoming, err := g.db.Query(ctx, docstore.Collection(collections.FollowRequests(username)))
	if err != nil {
		return fmt.Errorf("list follow requests: %w", err)
	}
	everyone, err := g.db.Query(ctx, docstore.Collection(collections.Users()))
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	return g.db.RunTransaction(ctx, func(tx docstore.Tx) error {
		for _, other := range following {
			if err := tx.Delete(collections.FollowingEdge(username, other)); err != nil {
				return err
			}
			if err := tx.Delete(collections.FollowerEdge(other, username)); err != nil {
				return err
			}
		}
		for _, other := range followers {
			if err := tx.Delete(collections.FollowerEdge(username, other)); err != nil {
				return err
			}
			if err := tx.Delete(collections.FollowingEdge(other, username)); err != nil {
				return err
			}
		}
		for _, req := range incoming {
			if err := tx.Delete(req.Path); err != nil {
				return err
			}
		}
		for _, u := range everyone {
			if u.ID == username {
				continue
			}
			if err := tx.Delete(collections.FollowRequest(u.ID, username)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (g *Graph) record(username string) docstore.Data {
	return docstore.Data{
		fieldUsername:  username,
		fieldTimestamp: g.now().UTC(),
	}
}

// scan lists the usernames stored in coll and deletes entries without one.
func (g *Graph) scan(ctx context.Context, coll string) ([]string, error) {
	snaps, err := g.db.Query(ctx, docstore.Collection(coll))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", coll, err)
	}
	names, bad := usernames(snaps)
	g.purge(ctx, bad)
	return names, nil
}

func (g *Graph) purge(ctx context.Context, bad []docstore.Snapshot) {
	for _, s := range bad {
		g.logger.Warn("purging malformed follow entry", "path", s.Path)
		if err := g.db.Delete(ctx, s.Path); err != nil {
			g.logger.Error("purge malformed follow entry", "path", s.Path, "error", err)
		}
	}
}

func usernames(snaps []docstore.Snapshot) (names []string, bad []docstore.Snapshot) {
	names = make([]string, 0, len(snaps))
	for _, s := range snaps {
		name, ok := s.Data[fieldUsername].(string)
		if !ok || name == "" {
			bad = append(bad, s)
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, bad
}
