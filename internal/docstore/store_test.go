package docstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/docstore/badgerstore"
)

func newStore(t *testing.T) *docstore.Store {
	t.Helper()
	backend, err := badgerstore.Open("")
	require.NoError(t, err)
	s := docstore.New(backend, nil)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type delivery struct {
	snaps []docstore.Snapshot
	err   error
}

func collect(t *testing.T, s *docstore.Store, q docstore.Query) (<-chan delivery, *docstore.Subscription) {
	t.Helper()
	ch := make(chan delivery, 32)
	sub, err := s.Subscribe(context.Background(), q, func(snaps []docstore.Snapshot, err error) {
		ch <- delivery{snaps, err}
	})
	require.NoError(t, err)
	t.Cleanup(sub.Close)
	return ch, sub
}

func next(t *testing.T, ch <-chan delivery) delivery {
	t.Helper()
	select {
	case d := <-ch:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery")
		return delivery{}
	}
}

func TestStoreRejectsBadPaths(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Set(ctx, "users", docstore.Data{}), docstore.ErrInvalidPath)
	_, err := s.Get(ctx, "users/ana/following")
	assert.ErrorIs(t, err, docstore.ErrInvalidPath)
	_, err = s.Query(ctx, docstore.Collection("users/ana"))
	assert.ErrorIs(t, err, docstore.ErrInvalidPath)
}

func TestQueryFiltersAndOrders(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Set(ctx, "ev/"+id, docstore.Data{"n": int64(i), "ts": base.Add(time.Duration(i) * time.Hour)}))
	}

	got, err := s.Query(ctx, docstore.Collection("ev").Where("n", docstore.OpGte, 1).Order("ts", true))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestSubscribeDeliversInitialAndChanges(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "users/ana/following/bo", docstore.Data{"username": "bo"}))

	ch, _ := collect(t, s, docstore.Collection("users/ana/following"))

	first := next(t, ch)
	require.NoError(t, first.err)
	require.Len(t, first.snaps, 1)

	require.NoError(t, s.Set(ctx, "users/ana/following/cy", docstore.Data{"username": "cy"}))
	second := next(t, ch)
	require.NoError(t, second.err)
	assert.Len(t, second.snaps, 2)

	require.NoError(t, s.Delete(ctx, "users/ana/following/bo"))
	third := next(t, ch)
	require.Len(t, third.snaps, 1)
	assert.Equal(t, "cy", third.snaps[0].ID)
}

func TestSubscribeIgnoresOtherCollections(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	ch, _ := collect(t, s, docstore.Collection("users/ana/following"))
	next(t, ch)

	require.NoError(t, s.Set(ctx, "users/bo/following/ana", docstore.Data{}))
	select {
	case d := <-ch:
		t.Fatalf("unexpected delivery: %+v", d)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestTransactionPublishesAfterCommit(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	ch, _ := collect(t, s, docstore.Collection("users/ana/followers"))
	next(t, ch)

	err := s.RunTransaction(ctx, func(tx docstore.Tx) error {
		if err := tx.Set("users/ana/followers/bo", docstore.Data{"username": "bo"}); err != nil {
			return err
		}
		return tx.Set("users/bo/following/ana", docstore.Data{"username": "ana"})
	})
	require.NoError(t, err)

	d := next(t, ch)
	require.Len(t, d.snaps, 1)
	assert.Equal(t, "bo", d.snaps[0].ID)
}

func TestFailedTransactionPublishesNothing(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	ch, _ := collect(t, s, docstore.Collection("users"))
	next(t, ch)

	boom := errors.New("boom")
	err := s.RunTransaction(ctx, func(tx docstore.Tx) error {
		_ = tx.Set("users/ana", docstore.Data{})
		return boom
	})
	require.ErrorIs(t, err, boom)

	select {
	case d := <-ch:
		t.Fatalf("unexpected delivery: %+v", d)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestSubscriptionCloseStopsDeliveries(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	ch, sub := collect(t, s, docstore.Collection("users"))
	next(t, ch)
	sub.Close()

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription goroutine did not exit")
	}

	require.NoError(t, s.Set(ctx, "users/ana", docstore.Data{}))
	select {
	case d := <-ch:
		t.Fatalf("unexpected delivery after close: %+v", d)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestSubscribeAfterClose(t *testing.T) {
	backend, err := badgerstore.Open("")
	require.NoError(t, err)
	s := docstore.New(backend, nil)
	require.NoError(t, s.Close())

	_, err = s.Subscribe(context.Background(), docstore.Collection("users"), func([]docstore.Snapshot, error) {})
	assert.ErrorIs(t, err, docstore.ErrClosed)
}
