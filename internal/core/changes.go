package core

import (
	"sync"

	"motoriz/pkg/domain"
)

// ChangeFeed fans committed changes out to subscribers. Publishing never
// blocks: a subscriber whose buffer is full misses the change and its drop
// counter is incremented.
type ChangeFeed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscription
}

type subscription struct {
	ch      chan domain.Change
	dropped uint64
}

// NewChangeFeed returns an empty feed.
func NewChangeFeed() *ChangeFeed {
	return &ChangeFeed{subs: make(map[int]*subscription)}
}

// Subscribe registers a listener with the given buffer size. The returned
// cancel func closes the channel and is safe to call more than once.
func (f *ChangeFeed) Subscribe(buffer int) (<-chan domain.Change, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	sub := &subscription{ch: make(chan domain.Change, buffer)}
	f.subs[id] = sub
	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(sub.ch)
		})
	}
}

// Publish delivers c to every subscriber with room in its buffer.
func (f *ChangeFeed) Publish(c domain.Change) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		select {
		case sub.ch <- c:
		default:
			sub.dropped++
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (f *ChangeFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Dropped returns the total number of changes missed by active subscribers.
func (f *ChangeFeed) Dropped() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n uint64
	for _, sub := range f.subs {
		n += sub.dropped
	}
	return n
}
