package admin

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mnohosten/laura-db/pkg/hashindex"
	"github.com/mnohosten/laura-db/pkg/metrics"
	"github.com/mnohosten/laura-db/pkg/storage"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is a single buffer-pool or hash-table occurrence pushed to every
// connected websocket client.
type Event struct {
	Type    string      `json:"type"` // "victim", "flush", "resize", "heartbeat"
	Time    time.Time   `json:"time"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventHub fans out buffer pool / hash table events to connected websocket
// clients and into a MetricsCollector. It implements storage.EvictionListener
// and hashindex.ResizeListener, so installing it is a matter of calling
// SetEvictionListener/SetResizeListener on the pool and table it watches.
type EventHub struct {
	metrics *metrics.MetricsCollector

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan Event
}

// NewEventHub creates a hub that records into mc and is ready to accept
// websocket connections.
func NewEventHub(mc *metrics.MetricsCollector) *EventHub {
	return &EventHub{
		metrics: mc,
		clients: make(map[*client]struct{}),
	}
}

// OnVictim implements storage.EvictionListener.
func (h *EventHub) OnVictim(old storage.PageID, wasDirty bool) {
	h.metrics.RecordEviction(wasDirty)
	h.broadcast(Event{
		Type: "victim",
		Time: time.Now(),
		Payload: map[string]interface{}{
			"pageId":   old.String(),
			"wasDirty": wasDirty,
		},
	})
}

// OnFlush implements storage.EvictionListener.
func (h *EventHub) OnFlush(pageID storage.PageID) {
	h.metrics.RecordFlush()
	h.broadcast(Event{
		Type: "flush",
		Time: time.Now(),
		Payload: map[string]interface{}{
			"pageId": pageID.String(),
		},
	})
}

// OnResize implements hashindex.ResizeListener.
func (h *EventHub) OnResize(oldHeader, newHeader storage.PageID, numBuckets int) {
	h.metrics.RecordResize()
	h.broadcast(Event{
		Type: "resize",
		Time: time.Now(),
		Payload: map[string]interface{}{
			"oldHeaderPageId": oldHeader.String(),
			"newHeaderPageId": newHeader.String(),
			"numBuckets":      numBuckets,
		},
	})
}

var _ storage.EvictionListener = (*EventHub)(nil)
var _ hashindex.ResizeListener = (*EventHub)(nil)

// broadcast fans an event out to every connected client without blocking:
// a client whose send buffer is full is dropped rather than stalling the
// caller, which may be holding the buffer pool's own latch.
func (h *EventHub) broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *EventHub) addClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *EventHub) removeClient(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// ServeWS upgrades the request to a websocket and streams events to it
// until the connection closes.
func (h *EventHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("admin: failed to upgrade websocket connection: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan Event, 32)}
	h.addClient(c)
	defer func() {
		h.removeClient(c)
		conn.Close()
	}()

	go h.readPump(c)
	h.writePump(c)
}

// readPump drains (and discards) any client messages, just to notice when
// the connection closes.
func (h *EventHub) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.removeClient(c)
			return
		}
	}
}

func (h *EventHub) writePump(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.TextMessage, mustJSON(Event{Type: "heartbeat", Time: time.Now()})); err != nil {
				return
			}
		}
	}
}

func mustJSON(ev Event) []byte {
	data, err := json.Marshal(ev)
	if err != nil {
		return []byte(`{"type":"heartbeat"}`)
	}
	return data
}
