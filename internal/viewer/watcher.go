package viewer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"faculty-availability-backend/internal/hub"
	"faculty-availability-backend/internal/store"
)

// Watcher keeps a Board current against a running server. Every
// (re)connection starts with a full fetch since the channel has no replay.
type Watcher struct {
	baseURL   string
	board     *Board
	client    *http.Client
	dialer    *websocket.Dialer
	facultyID int64
	retry     time.Duration
	onChange  func(*Board)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithFaculty switches the watcher to detail mode for one faculty member.
func WithFaculty(id int64) Option {
	return func(w *Watcher) { w.facultyID = id }
}

// WithRetry sets the delay before reconnecting.
func WithRetry(d time.Duration) Option {
	return func(w *Watcher) { w.retry = d }
}

// WithHTTPClient overrides the client used for fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(w *Watcher) { w.client = c }
}

// OnChange registers a callback run after every load or applied event.
func OnChange(fn func(*Board)) Option {
	return func(w *Watcher) { w.onChange = fn }
}

// NewWatcher creates a watcher for the server at baseURL.
func NewWatcher(baseURL string, board *Board, opts ...Option) *Watcher {
	w := &Watcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		board:   board,
		client:  &http.Client{Timeout: 10 * time.Second},
		dialer:  websocket.DefaultDialer,
		retry:   5 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run keeps the board synchronized until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		if err := w.session(ctx); err != nil && ctx.Err() == nil {
			log.Printf("Watcher disconnected: %v; retrying in %s", err, w.retry)
		}
		timer.Reset(w.retry)
	}
}

// session subscribes first and then fetches, so no change made after the
// fetch can be missed.
func (w *Watcher) session(ctx context.Context) error {
	conn, _, err := w.dialer.DialContext(ctx, w.wsURL(), nil)
	if err != nil {
		w.board.SetError(err)
		w.notify()
		return fmt.Errorf("dial: %w", err)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()
	defer func() {
		close(stop)
		wg.Wait()
		conn.Close()
	}()

	if err := w.Refresh(ctx); err != nil {
		return err
	}

	if w.facultyID > 0 {
		if err := conn.WriteJSON(hub.Frame{Type: hub.FrameJoinFaculty, FacultyID: w.facultyID}); err != nil {
			return fmt.Errorf("join faculty room: %w", err)
		}
	}

	for {
		var frame hub.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if frame.Type != hub.FrameStatusUpdate || frame.Data == nil {
			continue
		}
		if w.board.Apply(*frame.Data) {
			w.notify()
		}
	}
}

// Refresh fetches the full state and loads it into the board. On failure the
// board keeps its cached entries and records the error.
func (w *Watcher) Refresh(ctx context.Context) error {
	list, err := w.fetch(ctx)
	if err != nil {
		w.board.SetError(err)
		w.notify()
		return err
	}
	w.board.Load(list)
	w.notify()
	return nil
}

func (w *Watcher) fetch(ctx context.Context) ([]store.Projection, error) {
	path := "/api/faculty"
	if w.facultyID > 0 {
		path = fmt.Sprintf("/api/faculty/%d", w.facultyID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if w.facultyID > 0 {
		var p store.Projection
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal faculty: %w", err)
		}
		return []store.Projection{p}, nil
	}
	var list []store.Projection
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to unmarshal faculty list: %w", err)
	}
	return list, nil
}

func (w *Watcher) wsURL() string {
	u, err := url.Parse(w.baseURL)
	if err != nil {
		return w.baseURL + "/ws"
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String()
}

func (w *Watcher) notify() {
	if w.onChange != nil {
		w.onChange(w.board)
	}
}
