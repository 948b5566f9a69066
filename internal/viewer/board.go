// Package viewer keeps a client-side copy of the faculty board in sync with
// the server: a full fetch seeds it and realtime events patch it.
package viewer

import (
	"sort"
	"sync"

	"faculty-availability-backend/internal/hub"
	"faculty-availability-backend/internal/store"
)

// Board is a cache of faculty projections keyed by id. It is used the same
// way by the list view and by a single-faculty detail view.
type Board struct {
	mu      sync.RWMutex
	entries map[int64]store.Projection
	order   []int64
	err     error
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{entries: make(map[int64]store.Projection)}
}

// Load replaces the cached state with a fresh fetch and clears any error.
func (b *Board) Load(list []store.Projection) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make(map[int64]store.Projection, len(list))
	b.order = b.order[:0]
	for _, p := range list {
		if _, dup := b.entries[p.ID]; !dup {
			b.order = append(b.order, p.ID)
		}
		b.entries[p.ID] = p
	}
	b.err = nil
}

// Apply patches the status fields of the matching entry. Events for ids the
// board does not hold are ignored; the board never grows from events. An
// event older than the cached status is stale and also ignored. It reports
// whether an entry was patched.
func (b *Board) Apply(ev hub.Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.entries[ev.FacultyID]
	if !ok || ev.UpdatedAt.Before(p.LastUpdated) {
		return false
	}
	p.StatusCode = ev.StatusCode
	p.StatusMessage = ev.StatusMessage
	p.CustomMessage = ev.CustomMessage
	p.EstimatedDuration = ev.EstimatedDuration
	p.LastUpdated = ev.UpdatedAt
	b.entries[ev.FacultyID] = p
	return true
}

// Get returns one cached entry.
func (b *Board) Get(id int64) (store.Projection, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.entries[id]
	return p, ok
}

// List returns the cached entries in the order they were loaded.
func (b *Board) List() []store.Projection {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]store.Projection, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.entries[id])
	}
	return out
}

// Filter returns the cached entries of one department, sorted by name. An
// empty department returns everything.
func (b *Board) Filter(department string) []store.Projection {
	all := b.List()
	if department == "" {
		return all
	}
	out := all[:0]
	for _, p := range all {
		if p.Department == department {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SetError records a failed fetch. Cached entries are kept.
func (b *Board) SetError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

// Err returns the last fetch error, if the board is stale.
func (b *Board) Err() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.err
}
