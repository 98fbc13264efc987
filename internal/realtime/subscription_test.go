package realtime_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nward/askbox/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend serves canned documents and counts how often it is asked.
type fakeBackend struct {
	mu    sync.Mutex
	docs  map[string]realtime.Document
	lists map[string][]realtime.Document
	err   error
	calls atomic.Int64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		docs:  make(map[string]realtime.Document),
		lists: make(map[string][]realtime.Document),
	}
}

func (b *fakeBackend) setDoc(path string, doc realtime.Document) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docs[path] = doc
}

func (b *fakeBackend) setList(path string, docs []realtime.Document) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lists[path] = docs
}

func (b *fakeBackend) setErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

func (b *fakeBackend) GetDocument(ctx context.Context, path string) (realtime.Document, error) {
	b.calls.Add(1)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	return b.docs[path], nil
}

func (b *fakeBackend) GetCollection(ctx context.Context, path string, query realtime.Query) ([]realtime.Document, error) {
	b.calls.Add(1)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	return b.lists[path], nil
}

func recvSnapshot(t *testing.T, sub *realtime.Subscription) realtime.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.Snapshots():
		require.True(t, ok, "snapshot channel closed unexpectedly")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return realtime.Snapshot{}
	}
}

func TestSubscribeDocument_EmptyPathShortCircuits(t *testing.T) {
	backend := newFakeBackend()
	manager := realtime.NewManager(backend, realtime.NewBroker())

	sub := manager.SubscribeDocument(context.Background(), "")

	snap := recvSnapshot(t, sub)
	assert.Nil(t, snap.Data)
	assert.False(t, snap.Loading)
	assert.NoError(t, snap.Err)

	// channel is closed, no listener was ever attached
	_, ok := <-sub.Snapshots()
	assert.False(t, ok)
	assert.Equal(t, int64(0), backend.calls.Load())

	sub.Stop() // must be a safe no-op
}

func TestSubscribeDocument_EmitsOnPublish(t *testing.T) {
	backend := newFakeBackend()
	broker := realtime.NewBroker()
	manager := realtime.NewManager(backend, broker)

	backend.setDoc("users/u1", realtime.Document{"id": "u1", "username": "sarah"})

	sub := manager.SubscribeDocument(context.Background(), "users/u1")
	defer sub.Stop()

	snap := recvSnapshot(t, sub)
	require.NotNil(t, snap.Data)
	assert.Equal(t, "sarah", snap.Data.(realtime.Document)["username"])

	backend.setDoc("users/u1", realtime.Document{"id": "u1", "username": "sarah", "bio": "hi"})
	broker.Publish("users/u1")

	snap = recvSnapshot(t, sub)
	assert.Equal(t, "hi", snap.Data.(realtime.Document)["bio"])
}

func TestSubscribeDocument_MissingDocumentIsNotAnError(t *testing.T) {
	backend := newFakeBackend()
	manager := realtime.NewManager(backend, realtime.NewBroker())

	sub := manager.SubscribeDocument(context.Background(), "users/absent")
	defer sub.Stop()

	snap := recvSnapshot(t, sub)
	assert.Nil(t, snap.Data)
	assert.False(t, snap.Loading)
	assert.NoError(t, snap.Err)
}

func TestSubscription_StopSilencesListener(t *testing.T) {
	backend := newFakeBackend()
	broker := realtime.NewBroker()
	manager := realtime.NewManager(backend, broker)

	backend.setDoc("users/u1", realtime.Document{"id": "u1", "username": "sarah"})

	sub := manager.SubscribeDocument(context.Background(), "users/u1")
	first := recvSnapshot(t, sub)
	require.NotNil(t, first.Data)

	backend.setDoc("users/u1", realtime.Document{"id": "u1", "username": "updated"})
	broker.Publish("users/u1")
	_ = recvSnapshot(t, sub)

	sub.Stop()

	// a remote update after release must never reach the subscriber
	backend.setDoc("users/u1", realtime.Document{"id": "u1", "username": "after-stop"})
	broker.Publish("users/u1")

	for snap := range sub.Snapshots() {
		if doc, ok := snap.Data.(realtime.Document); ok {
			assert.NotEqual(t, "after-stop", doc["username"])
		}
	}

	sub.Stop() // idempotent
}

func TestSubscribeDocument_ErrorKeepsLastData(t *testing.T) {
	backend := newFakeBackend()
	broker := realtime.NewBroker()
	manager := realtime.NewManager(backend, broker)

	backend.setDoc("questions/q1", realtime.Document{"id": "q1", "questionText": "why?"})

	sub := manager.SubscribeDocument(context.Background(), "questions/q1")
	defer sub.Stop()

	snap := recvSnapshot(t, sub)
	require.NoError(t, snap.Err)
	require.NotNil(t, snap.Data)

	backend.setErr(errors.New("permission denied"))
	broker.Publish("questions/q1")

	snap = recvSnapshot(t, sub)
	assert.Error(t, snap.Err)
	assert.False(t, snap.Loading)
	require.NotNil(t, snap.Data, "transient errors must not clear the last known data")
	assert.Equal(t, "why?", snap.Data.(realtime.Document)["questionText"])
}

func TestSubscribeCollection_EmitsFullResultSet(t *testing.T) {
	backend := newFakeBackend()
	broker := realtime.NewBroker()
	manager := realtime.NewManager(backend, broker)

	backend.setList("questions", []realtime.Document{
		{"id": "q1"}, {"id": "q2"},
	})

	sub := manager.SubscribeCollection(context.Background(), "questions", realtime.Query{})
	defer sub.Stop()

	snap := recvSnapshot(t, sub)
	docs := snap.Data.([]realtime.Document)
	assert.Len(t, docs, 2)

	backend.setList("questions", []realtime.Document{
		{"id": "q1"}, {"id": "q2"}, {"id": "q3"},
	})
	broker.Publish("questions")

	snap = recvSnapshot(t, sub)
	assert.Len(t, snap.Data.([]realtime.Document), 3)
}

func TestSubscribeCollection_EmptyPathShortCircuits(t *testing.T) {
	backend := newFakeBackend()
	manager := realtime.NewManager(backend, realtime.NewBroker())

	sub := manager.SubscribeCollection(context.Background(), "", realtime.Query{})

	snap := recvSnapshot(t, sub)
	assert.Nil(t, snap.Data)
	assert.False(t, snap.Loading)
	assert.Equal(t, int64(0), backend.calls.Load())
}

func TestQuery_KeyStructuralEquality(t *testing.T) {
	a := realtime.Query{
		Equals:  &realtime.EqualityFilter{Field: "toUserId", Value: "u1"},
		OrderBy: &realtime.SortOrder{Field: "createdAt", Descending: true},
	}
	b := realtime.Query{
		Equals:  &realtime.EqualityFilter{Field: "toUserId", Value: "u1"},
		OrderBy: &realtime.SortOrder{Field: "createdAt", Descending: true},
	}
	c := realtime.Query{
		Equals:  &realtime.EqualityFilter{Field: "toUserId", Value: "u1"},
		OrderBy: &realtime.SortOrder{Field: "createdAt", Descending: false},
	}

	// freshly allocated but structurally equal queries must compare equal
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}
