package metrics

import (
	"sync"

	"github.com/google/uuid"
)

// Subscription is one live consumer of published snapshots.
type Subscription struct {
	id        uuid.UUID
	ch        chan Snapshot
	publisher *Publisher
	closeOnce sync.Once
}

// ID returns the subscription identifier.
func (s *Subscription) ID() uuid.UUID {
	return s.id
}

// C returns the channel snapshots are delivered on. It is closed when the
// subscription is closed.
func (s *Subscription) C() <-chan Snapshot {
	return s.ch
}

// Close detaches the subscription. Calling it more than once is a no-op.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.publisher.remove(s)
	})
}

// offer queues a snapshot without blocking. When the buffer is full the
// oldest queued snapshot is dropped so the consumer sees the latest state.
// Callers hold the publisher lock, so ch is never closed here.
func (s *Subscription) offer(snapshot Snapshot) bool {
	select {
	case s.ch <- snapshot:
		return true
	default:
	}

	select {
	case <-s.ch:
	default:
	}

	select {
	case s.ch <- snapshot:
		return true
	default:
		return false
	}
}

// Publisher fans snapshots out to live subscribers.
//
// The publisher alone owns the subscriber set: producers hand it a payload
// and never learn who receives it. Closed subscriptions are removed under
// the write lock before their channel is closed, so a publish can never
// reach a closed channel.
type Publisher struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]*Subscription
	buffer int
	closed bool
}

// NewPublisher creates a publisher whose subscriptions queue up to buffer
// snapshots each.
func NewPublisher(buffer int) *Publisher {
	if buffer <= 0 {
		buffer = 1
	}
	return &Publisher{
		subs:   make(map[uuid.UUID]*Subscription),
		buffer: buffer,
	}
}

// Subscribe registers a new subscription. Subscribing to a closed
// publisher returns an already closed subscription.
func (p *Publisher) Subscribe() *Subscription {
	return p.subscribe(nil)
}

// SubscribeWith registers a new subscription with initial already queued.
// Nothing is queued when the publisher is closed.
func (p *Publisher) SubscribeWith(initial Snapshot) *Subscription {
	return p.subscribe(&initial)
}

func (p *Publisher) subscribe(initial *Snapshot) *Subscription {
	sub := &Subscription{
		id:        uuid.New(),
		ch:        make(chan Snapshot, p.buffer),
		publisher: p,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		close(sub.ch)
		sub.closeOnce.Do(func() {})
		return sub
	}
	if initial != nil {
		sub.offer(*initial)
	}
	p.subs[sub.id] = sub
	return sub
}

// Publish delivers the snapshot to every subscriber and returns how many
// accepted it.
func (p *Publisher) Publish(snapshot Snapshot) int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	delivered := 0
	for _, sub := range p.subs {
		if sub.offer(snapshot) {
			delivered++
		}
	}
	return delivered
}

// Len returns the number of live subscriptions.
func (p *Publisher) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}

// Close closes every subscription and rejects new ones.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	for id, sub := range p.subs {
		delete(p.subs, id)
		sub.closeOnce.Do(func() {})
		close(sub.ch)
	}
}

func (p *Publisher) remove(sub *Subscription) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.subs[sub.id]; !ok {
		// Already closed by Publisher.Close.
		return
	}
	delete(p.subs, sub.id)
	close(sub.ch)
}
