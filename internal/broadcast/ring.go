// Package broadcast implements the C15 live-event ring buffer: a bounded
// history of recent events that new subscribers replay in full before
// receiving live events, with independent per-subscriber delivery
// cursors. Grounded on the teacher's internal/telemetry.BoundedQueue
// (atomic counters, mutex-guarded slice, tier-based shedding) but
// redesigned from a single shared consumer into an N-subscriber fan-out:
// overflow here evicts the oldest buffered event rather than shedding by
// tier, and a subscriber that falls too far behind is disconnected
// instead of blocking producers.
package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/agentsight/agentsight/internal/config"
	"github.com/agentsight/agentsight/internal/event"
	"github.com/agentsight/agentsight/internal/logging"
)

// Ring is a bounded, append-only history of recent events plus a set of
// live subscribers. Producers call Publish; subscribers are created with
// Subscribe and drained via Subscriber.Events().
type Ring struct {
	mu       sync.Mutex
	capacity int
	buf      []event.Event
	start    int64 // global sequence number of buf[0]; buf[i] has sequence start+i

	subs   map[*Subscriber]struct{}
	logger *logging.Logger

	published atomic.Int64
}

// NewRing builds a Ring with the given capacity (defaults to
// config.BroadcastRingCapacity when <= 0).
func NewRing(capacity int, logger *logging.Logger) *Ring {
	if capacity <= 0 {
		capacity = config.BroadcastRingCapacity
	}
	if logger == nil {
		logger = logging.Noop()
	}
	return &Ring{
		capacity: capacity,
		buf:      make([]event.Event, 0, capacity),
		subs:     make(map[*Subscriber]struct{}),
		logger:   logger,
	}
}

// Publish appends ev to the ring, evicting the oldest event if the ring
// is at capacity, and fans it out to every live subscriber. A subscriber
// whose undelivered queue depth exceeds
// config.BroadcastSubscriberMaxQueue is disconnected rather than
// allowed to block this call.
func (r *Ring) Publish(ev event.Event) {
	r.mu.Lock()
	if len(r.buf) >= r.capacity {
		r.buf = r.buf[1:]
		r.start++
	}
	r.buf = append(r.buf, ev)
	r.published.Add(1)

	var stale []*Subscriber
	for sub := range r.subs {
		if !sub.deliver(ev) {
			stale = append(stale, sub)
		}
	}
	for _, sub := range stale {
		delete(r.subs, sub)
	}
	r.mu.Unlock()

	for _, sub := range stale {
		r.logger.LogBroadcastDisconnect(sub.id, config.BroadcastSubscriberMaxQueue)
		sub.closeOnce()
	}
}

// Subscribe registers a new Subscriber, which immediately receives a
// replay of every event currently buffered in the ring followed by live
// events as Publish is called.
func (r *Ring) Subscribe(id string) *Subscriber {
	r.mu.Lock()
	sub := newSubscriber(id, len(r.buf))
	// The replay is queued under the lock, before the subscriber is visible
	// to Publish, so no live event can land ahead of or crowd out the
	// replay. The queue was sized to hold the full replay, so this can't fail.
	for _, ev := range r.buf {
		sub.deliver(ev)
	}
	r.subs[sub] = struct{}{}
	r.mu.Unlock()
	return sub
}

// Unsubscribe removes sub from the live subscriber set. Safe to call
// more than once.
func (r *Ring) Unsubscribe(sub *Subscriber) {
	r.mu.Lock()
	delete(r.subs, sub)
	r.mu.Unlock()
	sub.closeOnce()
}

// Len returns the number of events currently buffered.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}

// SubscriberCount returns the number of live subscribers.
func (r *Ring) SubscriberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Published returns the lifetime count of events accepted by Publish.
func (r *Ring) Published() int64 {
	return r.published.Load()
}

// Subscriber is one live consumer of a Ring's event fan-out.
type Subscriber struct {
	id    string
	queue chan event.Event
	once  sync.Once
}

// newSubscriber sizes the queue to cover both the live-delivery backlog
// cap and whatever replay backlog the caller already knows about, so a
// Subscribe-time replay can never silently truncate.
func newSubscriber(id string, replayLen int) *Subscriber {
	capacity := config.BroadcastSubscriberMaxQueue
	if replayLen > capacity {
		capacity = replayLen
	}
	return &Subscriber{
		id:    id,
		queue: make(chan event.Event, capacity),
	}
}

// Events returns the channel a consumer should range over. It is closed
// when the subscriber is disconnected (overflow or explicit Unsubscribe).
func (s *Subscriber) Events() <-chan event.Event { return s.queue }

// deliver attempts a non-blocking send; returns false if the
// subscriber's queue is full, signaling the caller to disconnect it.
func (s *Subscriber) deliver(ev event.Event) bool {
	select {
	case s.queue <- ev:
		return true
	default:
		return false
	}
}

func (s *Subscriber) closeOnce() {
	s.once.Do(func() {
		close(s.queue)
	})
}
