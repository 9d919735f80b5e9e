package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// BroadcastHook fans out dashboard events to in-process subscribers. Slow
// subscribers miss events rather than block publishers.
type BroadcastHook struct {
	mu     sync.RWMutex
	subs   map[int]subscriber
	next   int
	closed bool
}

// NewBroadcastHook creates a broadcast hook.
func NewBroadcastHook() *BroadcastHook {
	return &BroadcastHook{
		subs: make(map[int]subscriber),
	}
}

// DashboardUpdated satisfies the RefreshHook interface and broadcasts events.
func (h *BroadcastHook) DashboardUpdated(ctx context.Context, event DashboardEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if sub.userID != "" && sub.userID != event.UserID {
			continue
		}
		ch := sub.ch
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

type subscriber struct {
	userID string
	ch     chan DashboardEvent
}

// Subscribe returns a channel of every dashboard event and a cancel func.
func (h *BroadcastHook) Subscribe() (<-chan DashboardEvent, func()) {
	return h.SubscribeUser("")
}

// SubscribeUser returns a channel of events for one viewer. An empty userID
// receives all events.
func (h *BroadcastHook) SubscribeUser(userID string) (<-chan DashboardEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan DashboardEvent, 8)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = subscriber{userID: userID, ch: ch}
	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub.ch)
		}
	}
	return ch, cancel
}

// Subscribers reports the number of open subscriptions.
func (h *BroadcastHook) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every open subscription and rejects new ones, which lets
// long-lived streams return during shutdown.
func (h *BroadcastHook) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// requestViewer returns the authenticated viewer stored on the request
// context by ContextWithActivity.
func requestViewer(r *http.Request) string {
	return activityContextFrom(r.Context()).UserID
}

// ServeWebSocket upgrades the request and streams the viewer's dashboard
// events as JSON. Mount it behind middleware that stores the viewer with
// ContextWithActivity; anonymous requests get 401.
func (h *BroadcastHook) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := requestViewer(r)
	if userID == "" {
		http.Error(w, "viewer is required", http.StatusUnauthorized)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, cancel := h.SubscribeUser(userID)
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}

// ServeSSE streams the viewer's refresh events as Server-Sent Events, with
// the same viewer requirement as ServeWebSocket.
func (h *BroadcastHook) ServeSSE(w http.ResponseWriter, r *http.Request) {
	userID := requestViewer(r)
	if userID == "" {
		http.Error(w, "viewer is required", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	events, cancel := h.SubscribeUser(userID)
	defer cancel()

	flush := func() error { return nil }
	if flusher, ok := w.(http.Flusher); ok {
		flush = func() error {
			flusher.Flush()
			return nil
		}
	}
	_ = PumpSSE(w, flush, events, DefaultSSEHeartbeat, r.Context().Done())
}

// DefaultSSEHeartbeat is the idle interval between SSE keep-alive comments.
const DefaultSSEHeartbeat = 15 * time.Second

// PumpSSE writes events as SSE frames and a ": ping" comment after every idle
// heartbeat, flushing after each write. It returns nil when events is closed
// or done fires, and the write error once the client is gone.
func PumpSSE(w io.Writer, flush func() error, events <-chan DashboardEvent, heartbeat time.Duration, done <-chan struct{}) error {
	if heartbeat <= 0 {
		heartbeat = DefaultSSEHeartbeat
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := WriteSSEEvent(w, event); err != nil {
				return err
			}
		case <-ticker.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return err
			}
		}
		if err := flush(); err != nil {
			return err
		}
	}
}

// WriteSSEEvent writes one event frame named after the event reason.
func WriteSSEEvent(w io.Writer, event DashboardEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Reason, data)
	return err
}
