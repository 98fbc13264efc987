package realtime

import (
	"context"
	"sync"
	"time"
)

const defaultFetchTimeout = 5 * time.Second

// Snapshot is one complete emission of a subscription's state. Data is a
// Document for document subscriptions and a []Document for collection
// subscriptions; nil means "no such document" (or "nothing yet" while
// Loading is true). On a transient fetch error, Err is set and Data keeps
// its last known value.
type Snapshot struct {
	Data    any
	Loading bool
	Err     error
}

// Manager opens live subscriptions against a Backend, re-deriving state
// whenever the Broker signals a change on the subscribed topic.
type Manager struct {
	backend      Backend
	broker       *Broker
	fetchTimeout time.Duration
}

func NewManager(backend Backend, broker *Broker) *Manager {
	return &Manager{
		backend:      backend,
		broker:       broker,
		fetchTimeout: defaultFetchTimeout,
	}
}

// Subscription is one live listener. At most one snapshot producer runs per
// Subscription; Stop tears it down synchronously.
type Subscription struct {
	snapshots chan Snapshot
	stop      chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
}

// Snapshots delivers state emissions in order. The channel is closed once
// the subscription stops.
func (s *Subscription) Snapshots() <-chan Snapshot {
	return s.snapshots
}

// Stop releases the subscription. When it returns, no further snapshot will
// ever be delivered. Stopping twice is a no-op.
func (s *Subscription) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
}

// SubscribeDocument opens a live subscription on a single document path.
// An empty path means "no target yet": one {nil, false, nil} snapshot is
// emitted immediately, and the backend is never touched. ctx carries the
// subscriber's identity (WithViewer) into every backend fetch; it is not a
// cancellation handle, Stop is.
func (m *Manager) SubscribeDocument(ctx context.Context, path string) *Subscription {
	if path == "" {
		return noopSubscription()
	}

	fetch := func(ctx context.Context) (any, error) {
		doc, err := m.backend.GetDocument(ctx, path)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, nil
		}
		return doc, nil
	}
	return m.run(ctx, path, fetch)
}

// SubscribeCollection opens a live subscription over a collection query.
// Every emission is the full current result set in query order, never a diff.
func (m *Manager) SubscribeCollection(ctx context.Context, path string, query Query) *Subscription {
	if path == "" {
		return noopSubscription()
	}

	fetch := func(ctx context.Context) (any, error) {
		docs, err := m.backend.GetCollection(ctx, path, query)
		if err != nil {
			return nil, err
		}
		return docs, nil
	}
	return m.run(ctx, path, fetch)
}

func (m *Manager) run(base context.Context, topic string, fetch func(context.Context) (any, error)) *Subscription {
	sub := &Subscription{
		snapshots: make(chan Snapshot, 16),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	notify := m.broker.subscribe(topic)

	go func() {
		defer close(sub.done)
		defer close(sub.snapshots)
		defer m.broker.unsubscribe(topic, notify)

		var last any
		emit := func() bool {
			ctx, cancel := context.WithTimeout(base, m.fetchTimeout)
			data, err := fetch(ctx)
			cancel()

			snap := Snapshot{Data: data, Loading: false}
			if err != nil {
				// keep the last good data on transient failure
				snap.Data = last
				snap.Err = err
			} else {
				last = data
			}

			select {
			case sub.snapshots <- snap:
				return true
			case <-sub.stop:
				return false
			}
		}

		if !emit() {
			return
		}

		for {
			select {
			case <-sub.stop:
				return
			case <-notify:
				if !emit() {
					return
				}
			}
		}
	}()

	return sub
}

func noopSubscription() *Subscription {
	sub := &Subscription{
		snapshots: make(chan Snapshot, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	sub.snapshots <- Snapshot{Data: nil, Loading: false}
	close(sub.snapshots)
	close(sub.done)
	return sub
}
