// Package hub is the in-process publish/subscribe fan-out for status change
// events. It keeps no backlog: a subscriber only sees events published while
// it is subscribed.
package hub

import (
	"sync"
	"time"

	"faculty-availability-backend/internal/store"
)

// Event is the payload broadcast to viewers after a status change has been
// persisted.
type Event struct {
	FacultyID         int64     `json:"faculty_id"`
	StatusCode        int       `json:"status_code"`
	StatusMessage     string    `json:"status_message"`
	CustomMessage     string    `json:"custom_message"`
	EstimatedDuration int       `json:"estimated_duration"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// EventFromProjection builds the broadcast payload for a projection.
func EventFromProjection(p store.Projection) Event {
	return Event{
		FacultyID:         p.ID,
		StatusCode:        p.StatusCode,
		StatusMessage:     p.StatusMessage,
		CustomMessage:     p.CustomMessage,
		EstimatedDuration: p.EstimatedDuration,
		UpdatedAt:         p.LastUpdated.UTC(),
	}
}

// Publisher emits status change events.
type Publisher interface {
	Publish(ev Event)
}

// Predicate selects the events a subscription receives. A nil predicate
// receives everything.
type Predicate func(Event) bool

// ForFaculty returns a predicate matching one faculty member.
func ForFaculty(id int64) Predicate {
	return func(ev Event) bool { return ev.FacultyID == id }
}

// Observer receives fan-out bookkeeping callbacks. All methods may be called
// with the hub lock held and must not block.
type Observer interface {
	Delivered()
	Dropped()
	Subscribers(n int)
}

// Subscription is a handle returned by Subscribe.
type Subscription struct {
	ch     chan Event
	match  Predicate
	rooms  map[int64]struct{}
	closed bool
}

// C returns the channel events are delivered on. It is closed by Unsubscribe.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Hub fans events out to subscriptions.
type Hub struct {
	mu       sync.Mutex
	subs     map[*Subscription]struct{}
	rooms    map[int64]map[*Subscription]struct{}
	buffer   int
	observer Observer
}

// Option configures a Hub.
type Option func(*Hub)

// WithObserver attaches fan-out bookkeeping, e.g. metrics.
func WithObserver(o Observer) Option {
	return func(h *Hub) { h.observer = o }
}

// New creates a hub whose subscriptions buffer up to buffer events.
func New(buffer int, opts ...Option) *Hub {
	if buffer <= 0 {
		buffer = 1
	}
	h := &Hub{
		subs:   make(map[*Subscription]struct{}),
		rooms:  make(map[int64]map[*Subscription]struct{}),
		buffer: buffer,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers a new subscription.
func (h *Hub) Subscribe(match Predicate) *Subscription {
	s := &Subscription{
		ch:    make(chan Event, h.buffer),
		match: match,
		rooms: make(map[int64]struct{}),
	}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	h.observeSubscribers(n)
	return s
}

// Unsubscribe removes a subscription and closes its channel. It is safe to
// call more than once.
func (h *Hub) Unsubscribe(s *Subscription) {
	h.mu.Lock()
	if s.closed {
		h.mu.Unlock()
		return
	}
	s.closed = true
	delete(h.subs, s)
	for id := range s.rooms {
		h.leaveLocked(s, id)
	}
	close(s.ch)
	n := len(h.subs)
	h.mu.Unlock()
	h.observeSubscribers(n)
}

// Join records that a subscription follows one faculty member's room.
// Delivery is global, so membership does not change what the subscription
// receives.
func (h *Hub) Join(s *Subscription, facultyID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.closed {
		return
	}
	members, ok := h.rooms[facultyID]
	if !ok {
		members = make(map[*Subscription]struct{})
		h.rooms[facultyID] = members
	}
	members[s] = struct{}{}
	s.rooms[facultyID] = struct{}{}
}

// Leave removes a subscription from a faculty room.
func (h *Hub) Leave(s *Subscription, facultyID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(s, facultyID)
}

func (h *Hub) leaveLocked(s *Subscription, facultyID int64) {
	delete(s.rooms, facultyID)
	if members := h.rooms[facultyID]; members != nil {
		delete(members, s)
		if len(members) == 0 {
			delete(h.rooms, facultyID)
		}
	}
}

// Rooms returns the faculty rooms a subscription has joined.
func (h *Hub) Rooms(s *Subscription) []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]int64, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	return ids
}

// RoomSize returns the number of subscriptions in a faculty room.
func (h *Hub) RoomSize(facultyID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[facultyID])
}

// Count returns the number of active subscriptions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish delivers ev to every matching subscription without blocking. A
// subscription whose buffer is full misses the event. The lock is held for
// the whole fan-out so every subscriber observes the same emission order.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		if s.match != nil && !s.match(ev) {
			continue
		}
		select {
		case s.ch <- ev:
			if h.observer != nil {
				h.observer.Delivered()
			}
		default:
			if h.observer != nil {
				h.observer.Dropped()
			}
		}
	}
}

func (h *Hub) observeSubscribers(n int) {
	if h.observer != nil {
		h.observer.Subscribers(n)
	}
}
