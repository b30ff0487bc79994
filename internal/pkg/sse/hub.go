package sse

import (
	"sync"
	"sync/atomic"
)

// Event is one server-sent event addressed to a user
type Event struct {
	UserID string
	Event  string
	Data   interface{}
}

// Hub fans events out to the open streams of each user. Slow streams drop
// events instead of blocking publishers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	bufferSize  int
	dropped     atomic.Int64
}

// NewHub creates a hub whose subscriber channels buffer 10 events
func NewHub() *Hub {
	return NewHubWithBuffer(10)
}

func NewHubWithBuffer(size int) *Hub {
	if size < 1 {
		size = 1
	}
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
		bufferSize:  size,
	}
}

// Subscribe registers a stream for userID. The returned cleanup closes the
// channel and must be called exactly once.
func (h *Hub) Subscribe(userID string) (chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.bufferSize)

	if h.subscribers[userID] == nil {
		h.subscribers[userID] = make(map[chan Event]struct{})
	}
	h.subscribers[userID][ch] = struct{}{}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers[userID], ch)
			close(ch)
			if len(h.subscribers[userID]) == 0 {
				delete(h.subscribers, userID)
			}
		})
	}

	return ch, cleanup
}

// Publish sends event to every stream of userID and returns how many
// streams accepted it.
func (h *Hub) Publish(userID string, event Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for ch := range h.subscribers[userID] {
		select {
		case ch <- event:
			delivered++
		default:
			h.dropped.Add(1)
		}
	}
	return delivered
}

// PublishToMany sends an event to multiple users
func (h *Hub) PublishToMany(userIDs []string, event Event) int {
	delivered := 0
	for _, userID := range userIDs {
		eventCopy := event
		eventCopy.UserID = userID
		delivered += h.Publish(userID, eventCopy)
	}
	return delivered
}

// SubscriberCount returns the number of active streams for a user
func (h *Hub) SubscriberCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}

// Dropped is the number of events discarded because a stream was full
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
