// Package users keeps the user documents: registration, display names,
// search, and the cascade that removes an account with everything under it.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/collections"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/follow"
)

var (
	ErrUsernameTaken   = errors.New("username already taken")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidUsername = errors.New("invalid username")
)

const (
	fieldUsername  = "username"
	fieldName      = "name"
	fieldCreatedAt = "created_at"
)

// User is the stored profile. Username never changes after registration.
type User struct {
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type Directory struct {
	db     docstore.DB
	graph  *follow.Graph
	logger *slog.Logger
	now    func() time.Time
}

func NewDirectory(db docstore.DB, graph *follow.Graph, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{db: db, graph: graph, logger: logger, now: time.Now}
}

// ValidUsername accepts 3-30 characters of letters, digits, '_', '-' and '.'.
func ValidUsername(username string) bool {
	if len(username) < 3 || len(username) > 30 {
		return false
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == '-' || r == '.':
		default:
			return false
		}
	}
	return true
}

// Register creates the user document, failing if the username is taken.
func (d *Directory) Register(ctx context.Context, username, name string) (*User, error) {
	if !ValidUsername(username) {
		return nil, ErrInvalidUsername
	}
	u := &User{Username: username, Name: strings.TrimSpace(name), CreatedAt: d.now().UTC()}
	if u.Name == "" {
		u.Name = username
	}

	err := d.db.RunTransaction(ctx, func(tx docstore.Tx) error {
		snap, err := tx.Get(collections.User(username))
		if err != nil {
			return err
		}
		if snap.Exists() {
			return ErrUsernameTaken
		}
		return tx.Set(collections.User(username), u.data())
	})
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", username, err)
	}

	d.logger.Info("user registered", "username", username)
	return u, nil
}

func (d *Directory) Get(ctx context.Context, username string) (*User, error) {
	snap, err := d.db.Get(ctx, collections.User(username))
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}
	if !snap.Exists() {
		return nil, ErrUserNotFound
	}
	return fromSnapshot(snap), nil
}

func (d *Directory) Exists(ctx context.Context, username string) (bool, error) {
	snap, err := d.db.Get(ctx, collections.User(username))
	if err != nil {
		return false, fmt.Errorf("get user %s: %w", username, err)
	}
	return snap.Exists(), nil
}

// UpdateName changes the display name.
func (d *Directory) UpdateName(ctx context.Context, username, name string) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidUsername)
	}

	var updated *User
	err := d.db.RunTransaction(ctx, func(tx docstore.Tx) error {
		snap, err := tx.Get(collections.User(username))
		if err != nil {
			return err
		}
		if !snap.Exists() {
			return ErrUserNotFound
		}
		updated = fromSnapshot(snap)
		updated.Name = name
		return tx.Set(collections.User(username), updated.data())
	})
	if err != nil {
		return nil, fmt.Errorf("update name %s: %w", username, err)
	}
	return updated, nil
}

// WatchName sends the display name of username on every change to the user
// document until ctx ends. The channel is closed when the watch stops.
func (d *Directory) WatchName(ctx context.Context, username string) (<-chan string, error) {
	names := make(chan string, 1)
	var last *string

	sub, err := d.db.Subscribe(ctx, docstore.Collection(collections.Users()).Where(fieldUsername, docstore.OpEq, username),
		func(snaps []docstore.Snapshot, err error) {
			if err != nil {
				d.logger.Warn("name sync failed", "username", username, "error", err)
				return
			}
			if len(snaps) == 0 {
				return
			}
			name := fromSnapshot(snaps[0]).Name
			if last != nil && *last == name {
				return
			}
			last = &name
			select {
			case names <- name:
			case <-ctx.Done():
			}
		})
	if err != nil {
		return nil, fmt.Errorf("watch name %s: %w", username, err)
	}

	go func() {
		<-sub.Done()
		close(names)
	}()
	return names, nil
}

// Delete removes the user and everything stored under it: follow edges and
// requests in both directions, mood events, and the recent projection.
func (d *Directory) Delete(ctx context.Context, username string) error {
	if err := d.graph.Purge(ctx, username); err != nil {
		return fmt.Errorf("purge follow graph of %s: %w", username, err)
	}

	events, err := d.db.Query(ctx, docstore.Collection(collections.MoodEvents(username)))
	if err != nil {
		return fmt.Errorf("list mood events of %s: %w", username, err)
	}

	err = d.db.RunTransaction(ctx, func(tx docstore.Tx) error {
		for _, e := range events {
			if err := tx.Delete(e.Path); err != nil {
				return err
			}
		}
		if err := tx.Delete(collections.RecentMood(username)); err != nil {
			return err
		}
		return tx.Delete(collections.User(username))
	})
	if err != nil {
		return fmt.Errorf("delete user %s: %w", username, err)
	}

	d.logger.Info("user deleted", "username", username, "mood_events", len(events))
	return nil
}

// Search returns users whose username contains query, ignoring case, sorted
// by username. exclude is left out of the result.
func (d *Directory) Search(ctx context.Context, query, exclude string) ([]User, error) {
	q := docstore.Collection(collections.Users())
	if query = strings.TrimSpace(query); query != "" {
		q = q.Where(fieldUsername, docstore.OpContains, query)
	}
	snaps, err := d.db.Query(ctx, q.Order(fieldUsername, false))
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	out := make([]User, 0, len(snaps))
	for _, s := range snaps {
		u := fromSnapshot(s)
		if u.Username == exclude {
			continue
		}
		out = append(out, *u)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (u *User) data() docstore.Data {
	return docstore.Data{
		fieldUsername:  u.Username,
		fieldName:      u.Name,
		fieldCreatedAt: u.CreatedAt,
	}
}

func fromSnapshot(s docstore.Snapshot) *User {
	u := &User{Username: s.ID}
	if name, ok := s.Data[fieldUsername].(string); ok && name != "" {
		u.Username = name
	}
	u.Name, _ = s.Data[fieldName].(string)
	u.CreatedAt, _ = s.Data[fieldCreatedAt].(time.Time)
	return u
}
