package realtime

import "sync"

// Broker fans out change notifications by topic. Writers publish the topic
// of everything they touched; each live subscription listens on exactly one
// topic and re-derives its state from the backend when notified.
//
// Notifications are level-triggered: a listener that is already pending a
// wakeup does not queue a second one, so rapid bursts coalesce. They are
// never reordered, because a listener re-reads the current state rather than
// consuming a payload.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan struct{}]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan struct{}]struct{}),
	}
}

// Publish wakes every listener attached to each of the given topics.
func (b *Broker) Publish(topics ...string) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, topic := range topics {
		for ch := range b.subs[topic] {
			select {
			case ch <- struct{}{}:
			default:
				// listener already has a pending wakeup
			}
		}
	}
}

func (b *Broker) subscribe(topic string) chan struct{} {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan struct{}]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	return ch
}

func (b *Broker) unsubscribe(topic string, ch chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if listeners, ok := b.subs[topic]; ok {
		delete(listeners, ch)
		if len(listeners) == 0 {
			delete(b.subs, topic)
		}
	}
}
