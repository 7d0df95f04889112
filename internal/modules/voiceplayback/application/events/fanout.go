// Package events implements the in-process publish/subscribe
// machinery the voice-playback core uses: one Fanout per connection
// broadcasting domain.ConnectionEvent to every subscriber (the poll
// runner and the alternate-cast waiter in application/usecases), built
// from buffered channels, non-blocking send, and an explicit Close.
package events

import (
	"sync"

	"github.com/resonantbot/resonant/internal/modules/voiceplayback/domain"
)

// Fanout broadcasts domain.ConnectionEvent values to any number of
// subscribers. A full subscriber channel is not blocked on; the
// subscriber instead observes a dropped-delivery count it can poll,
// standing in for the native "lagged" signal a Tokio broadcast
// channel would give.
type Fanout struct {
	mu          sync.RWMutex
	subscribers map[int]*subscription
	nextID      int
	closed      bool
}

type subscription struct {
	ch      chan domain.ConnectionEvent
	dropped int
}

// NewFanout returns an empty Fanout.
func NewFanout() *Fanout {
	return &Fanout{subscribers: make(map[int]*subscription)}
}

// Subscription is the handle a caller holds to read broadcast events
// and check whether any were dropped since the last read.
type Subscription struct {
	id     int
	fanout *Fanout
	ch     <-chan domain.ConnectionEvent
}

// Events returns the channel to range over.
func (s *Subscription) Events() <-chan domain.ConnectionEvent { return s.ch }

// Dropped reports (and resets) how many events this subscriber missed
// because its buffer was full.
func (s *Subscription) Dropped() int {
	s.fanout.mu.Lock()
	defer s.fanout.mu.Unlock()
	sub, ok := s.fanout.subscribers[s.id]
	if !ok {
		return 0
	}
	n := sub.dropped
	sub.dropped = 0
	return n
}

// Unsubscribe removes this subscription from the fanout.
func (s *Subscription) Unsubscribe() {
	s.fanout.mu.Lock()
	defer s.fanout.mu.Unlock()
	if sub, ok := s.fanout.subscribers[s.id]; ok {
		close(sub.ch)
		delete(s.fanout.subscribers, s.id)
	}
}

// Subscribe registers a new subscriber with the fanout's standard
// capacity (domain.BroadcastCapacity).
func (f *Fanout) Subscribe() *Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	sub := &subscription{ch: make(chan domain.ConnectionEvent, domain.BroadcastCapacity)}
	f.subscribers[id] = sub

	return &Subscription{id: id, fanout: f, ch: sub.ch}
}

// Publish delivers event to every current subscriber, dropping it for
// any subscriber whose buffer is full rather than blocking.
func (f *Fanout) Publish(event domain.ConnectionEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return
	}
	for _, sub := range f.subscribers {
		select {
		case sub.ch <- event:
		default:
			sub.dropped++
		}
	}
}

// Close shuts down the fanout, closing every subscriber channel.
func (f *Fanout) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for id, sub := range f.subscribers {
		close(sub.ch)
		delete(f.subscribers, id)
	}
}
