// Package feed is the in-process live-update channel for job rows. The job
// store publishes a Change after every committed insert/update/delete;
// watchers subscribe filtered by owning user. Delivery is best-effort:
// publishing never blocks, and a subscriber that falls behind loses events
// rather than stalling writers. Consumers treat any event as "something
// changed" and refetch, so a dropped event only delays convergence until the
// next change.
package feed

import (
	"sync"

	"github.com/google/uuid"
)

// Op identifies the kind of row change.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change describes a single committed mutation of a job row.
type Change struct {
	UserID uint
	Op     Op
	JobID  uuid.UUID
}

// Feed fans job changes out to per-user subscribers.
type Feed struct {
	mu     sync.RWMutex
	nextID int
	subs   map[uint]map[int]chan Change
	closed bool
}

// New creates an empty feed.
func New() *Feed {
	return &Feed{subs: make(map[uint]map[int]chan Change)}
}

// Publish delivers the change to every subscriber of its user. Non-blocking;
// a full subscriber buffer drops the event.
func (f *Feed) Publish(c Change) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return
	}
	for _, ch := range f.subs[c.UserID] {
		select {
		case ch <- c:
		default:
		}
	}
}

// Subscribe registers for changes to the given user's rows. The returned
// cancel function tears the subscription down and closes the channel; it is
// safe to call more than once.
func (f *Feed) Subscribe(userID uint) (<-chan Change, func()) {
	ch := make(chan Change, 16)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	f.nextID++
	id := f.nextID
	if f.subs[userID] == nil {
		f.subs[userID] = make(map[int]chan Change)
	}
	f.subs[userID][id] = ch
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		removed := false
		if chans, ok := f.subs[userID]; ok {
			if _, live := chans[id]; live {
				delete(chans, id)
				removed = true
				if len(chans) == 0 {
					delete(f.subs, userID)
				}
			}
		}
		f.mu.Unlock()
		// Entries swept by Close have already had their channel closed.
		if removed {
			close(ch)
		}
	}
	return ch, cancel
}

// Close tears down all subscriptions. Further publishes are no-ops.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for _, chans := range f.subs {
		for _, ch := range chans {
			close(ch)
		}
	}
	f.subs = make(map[uint]map[int]chan Change)
}
