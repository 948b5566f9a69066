package hub

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"faculty-availability-backend/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func event(facultyID int64, code int) Event {
	return Event{FacultyID: facultyID, StatusCode: code, UpdatedAt: time.Now().UTC()}
}

func receive(t *testing.T, s *Subscription) Event {
	t.Helper()
	select {
	case ev := <-s.C():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertEmpty(t *testing.T, s *Subscription) {
	t.Helper()
	select {
	case ev := <-s.C():
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestHub_GlobalBroadcast(t *testing.T) {
	h := New(8)
	list := h.Subscribe(nil)
	detail := h.Subscribe(nil)
	defer h.Unsubscribe(list)
	defer h.Unsubscribe(detail)

	// A detail viewer joins a room but still receives every event.
	h.Join(detail, 7)
	h.Publish(event(3, 1))

	assert.Equal(t, int64(3), receive(t, list).FacultyID)
	assert.Equal(t, int64(3), receive(t, detail).FacultyID)
}

func TestHub_PredicateFilters(t *testing.T) {
	h := New(8)
	only7 := h.Subscribe(ForFaculty(7))
	defer h.Unsubscribe(only7)

	h.Publish(event(3, 1))
	h.Publish(event(7, 4))

	assert.Equal(t, int64(7), receive(t, only7).FacultyID)
	assertEmpty(t, only7)
}

func TestHub_NoReplay(t *testing.T) {
	h := New(8)
	h.Publish(event(1, 2))

	late := h.Subscribe(nil)
	defer h.Unsubscribe(late)
	assertEmpty(t, late)
}

func TestHub_PerFacultyOrder(t *testing.T) {
	h := New(64)
	s := h.Subscribe(nil)
	defer h.Unsubscribe(s)

	for code := 0; code <= 6; code++ {
		h.Publish(event(5, code))
	}
	for code := 0; code <= 6; code++ {
		assert.Equal(t, code, receive(t, s).StatusCode)
	}
}

type countingObserver struct {
	delivered, dropped atomic.Int64
	subscribers        atomic.Int64
}

func (o *countingObserver) Delivered()        { o.delivered.Add(1) }
func (o *countingObserver) Dropped()          { o.dropped.Add(1) }
func (o *countingObserver) Subscribers(n int) { o.subscribers.Store(int64(n)) }

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	obs := &countingObserver{}
	h := New(1, WithObserver(obs))
	slow := h.Subscribe(nil)
	fast := h.Subscribe(nil)
	defer h.Unsubscribe(slow)
	defer h.Unsubscribe(fast)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Publish(event(1, 1))
		// fast drains between publishes; slow never does.
		<-fast.C()
		h.Publish(event(1, 2))
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	assert.Equal(t, 1, receive(t, slow).StatusCode, "slow subscriber keeps the first event")
	assertEmpty(t, slow)
	assert.Equal(t, 2, receive(t, fast).StatusCode)
	assert.Equal(t, int64(1), obs.dropped.Load())
	assert.Equal(t, int64(3), obs.delivered.Load())
	assert.Equal(t, int64(2), obs.subscribers.Load())
}

func TestHub_UnsubscribeClosesAndCleansRooms(t *testing.T) {
	h := New(4)
	s := h.Subscribe(nil)
	h.Join(s, 9)
	h.Join(s, 10)
	assert.ElementsMatch(t, []int64{9, 10}, h.Rooms(s))
	assert.Equal(t, 1, h.RoomSize(9))

	h.Unsubscribe(s)
	h.Unsubscribe(s)

	_, ok := <-s.C()
	assert.False(t, ok)
	assert.Equal(t, 0, h.RoomSize(9))
	assert.Equal(t, 0, h.Count())

	// Publishing after unsubscribe must not panic on the closed channel.
	h.Publish(event(9, 1))
	h.Join(s, 11)
	assert.Equal(t, 0, h.RoomSize(11))
}

func TestHub_ConcurrentPublishers(t *testing.T) {
	h := New(1024)
	s := h.Subscribe(nil)
	defer h.Unsubscribe(s)

	var wg sync.WaitGroup
	for id := int64(1); id <= 4; id++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			for code := 0; code < 50; code++ {
				h.Publish(event(id, code%7))
			}
		}(id)
	}
	wg.Wait()

	last := map[int64]int{}
	seen := map[int64]int{}
	for i := 0; i < 200; i++ {
		ev := receive(t, s)
		if n, ok := seen[ev.FacultyID]; ok {
			// Per-faculty events arrive in emission order.
			assert.Equal(t, (last[ev.FacultyID]+1)%7, ev.StatusCode)
			seen[ev.FacultyID] = n + 1
		} else {
			seen[ev.FacultyID] = 1
		}
		last[ev.FacultyID] = ev.StatusCode
	}
	require.Len(t, seen, 4)
}

func TestEventFromProjection(t *testing.T) {
	ts := time.Date(2024, 10, 1, 9, 30, 0, 0, time.UTC)
	ev := EventFromProjection(store.Projection{
		ID: 5, StatusCode: 3, StatusMessage: "Currently in a meeting",
		CustomMessage: "In a meeting", EstimatedDuration: 20, LastUpdated: ts,
	})
	assert.Equal(t, Event{
		FacultyID: 5, StatusCode: 3, StatusMessage: "Currently in a meeting",
		CustomMessage: "In a meeting", EstimatedDuration: 20, UpdatedAt: ts,
	}, ev)
}
