package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// changeTopic carries the collection path of every committed write.
const changeTopic = "docstore.changes"

// Store wraps a Backend with a change feed so queries can be watched live.
// Every push to a subscription is a full snapshot of the query result.
type Store struct {
	backend Backend
	feed    *gochannel.GoChannel
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

// New creates a Store over backend.
func New(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	feed := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, watermill.NewSlogLogger(logger.With("component", "docstore.feed")))

	return &Store{
		backend: backend,
		feed:    feed,
		logger:  logger,
	}
}

// Get reads one document. A missing document is not an error.
func (s *Store) Get(ctx context.Context, path string) (Snapshot, error) {
	if err := ValidateDocumentPath(path); err != nil {
		return Snapshot{}, fmt.Errorf("get %q: %w", path, err)
	}
	return s.backend.Get(ctx, path)
}

// Set creates or replaces a document.
func (s *Store) Set(ctx context.Context, path string, data Data) error {
	collection, _, err := Split(path)
	if err != nil {
		return fmt.Errorf("set %q: %w", path, err)
	}
	if data == nil {
		data = Data{}
	}
	if err := s.backend.Set(ctx, path, data); err != nil {
		return fmt.Errorf("set %q: %w", path, err)
	}
	s.publish(collection)
	return nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (s *Store) Delete(ctx context.Context, path string) error {
	collection, _, err := Split(path)
	if err != nil {
		return fmt.Errorf("delete %q: %w", path, err)
	}
	if err := s.backend.Delete(ctx, path); err != nil {
		return fmt.Errorf("delete %q: %w", path, err)
	}
	s.publish(collection)
	return nil
}

// Query runs q once.
func (s *Store) Query(ctx context.Context, q Query) ([]Snapshot, error) {
	if err := ValidateCollectionPath(q.Collection); err != nil {
		return nil, fmt.Errorf("query %q: %w", q.Collection, err)
	}
	snaps, err := s.backend.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", q.Collection, err)
	}
	return q.Apply(snaps), nil
}

// RunTransaction runs fn atomically. Subscribers are notified once it commits.
func (s *Store) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	var touched map[string]struct{}
	err := s.backend.Update(ctx, func(tx Tx) error {
		rec := &recordingTx{Tx: tx, touched: map[string]struct{}{}}
		if err := fn(rec); err != nil {
			return err
		}
		touched = rec.touched
		return nil
	})
	if err != nil {
		return err
	}
	for collection := range touched {
		s.publish(collection)
	}
	return nil
}

// Ping checks the backend.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// Close stops every subscription and closes the backend.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.feed.Close(); err != nil {
		s.logger.Error("close change feed", "error", err)
	}
	return s.backend.Close()
}

func (s *Store) publish(collection string) {
	msg := message.NewMessage(watermill.NewUUID(), message.Payload(collection))
	if err := s.feed.Publish(changeTopic, msg); err != nil {
		s.logger.Warn("publish change", "collection", collection, "error", err)
	}
}

// Subscription is a live query. Close it when the owner is done.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Close stops deliveries. It does not wait for an in-flight delivery.
func (sub *Subscription) Close() {
	if sub != nil {
		sub.cancel()
	}
}

// Done is closed once the subscription goroutine has exited.
func (sub *Subscription) Done() <-chan struct{} { return sub.done }

// Subscribe runs q now and again after every write to q.Collection, passing
// each full result to fn. Calls to fn are serialized. Query errors are passed
// to fn and the subscription stays open.
func (s *Store) Subscribe(ctx context.Context, q Query, fn func([]Snapshot, error)) (*Subscription, error) {
	if err := ValidateCollectionPath(q.Collection); err != nil {
		return nil, fmt.Errorf("subscribe %q: %w", q.Collection, err)
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	subCtx, cancel := context.WithCancel(ctx)
	// Subscribe to the feed before the first read so no write falls between them.
	changes, err := s.feed.Subscribe(subCtx, changeTopic)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %q: %w", q.Collection, err)
	}

	sub := &Subscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)

		s.deliver(subCtx, q, fn)
		for msg := range changes {
			msg.Ack()
			relevant := string(msg.Payload) == q.Collection
			// Coalesce a burst of writes into one re-read.
			for drained := false; !drained; {
				select {
				case next, ok := <-changes:
					if !ok {
						drained = true
						break
					}
					next.Ack()
					relevant = relevant || string(next.Payload) == q.Collection
				default:
					drained = true
				}
			}
			if relevant {
				s.deliver(subCtx, q, fn)
			}
		}
	}()
	return sub, nil
}

func (s *Store) deliver(ctx context.Context, q Query, fn func([]Snapshot, error)) {
	if ctx.Err() != nil {
		return
	}
	snaps, err := s.Query(ctx, q)
	if ctx.Err() != nil {
		return
	}
	fn(snaps, err)
}

type recordingTx struct {
	Tx
	touched map[string]struct{}
}

func (t *recordingTx) Set(path string, data Data) error {
	collection, _, err := Split(path)
	if err != nil {
		return fmt.Errorf("set %q: %w", path, err)
	}
	if data == nil {
		data = Data{}
	}
	if err := t.Tx.Set(path, data); err != nil {
		return err
	}
	t.touched[collection] = struct{}{}
	return nil
}

func (t *recordingTx) Delete(path string) error {
	collection, _, err := Split(path)
	if err != nil {
		return fmt.Errorf("delete %q: %w", path, err)
	}
	if err := t.Tx.Delete(path); err != nil {
		return err
	}
	t.touched[collection] = struct{}{}
	return nil
}

func (t *recordingTx) Get(path string) (Snapshot, error) {
	if err := ValidateDocumentPath(path); err != nil {
		return Snapshot{}, fmt.Errorf("get %q: %w", path, err)
	}
	return t.Tx.Get(path)
}

var _ DB = (*Store)(nil)
