package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"parking-occupancy/internal/logging"
	"parking-occupancy/internal/parking"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Event struct {
	Type    string         `json:"type"`
	Message string         `json:"message,omitempty"`
	Slots   []parking.Slot `json:"slots,omitempty"`
	At      time.Time      `json:"at"`
}

// Hub pushes notifications and snapshot updates to websocket clients.
type Hub struct {
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte
	done       chan struct{}

	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			logging.Debug(ctx).Int("clients", count).Msg("websocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			count := len(h.clients)
			h.mu.Unlock()
			logging.Debug(ctx).Int("clients", count).Msg("websocket client disconnected")

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					logging.Warn(ctx).Err(err).Msg("websocket write failed")
					client.Close()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Notify(ctx context.Context, message string) {
	h.publish(ctx, Event{Type: "notification", Message: message, At: time.Now().UTC()})
}

// PublishSnapshot is a parking.SnapshotCache subscriber.
func (h *Hub) PublishSnapshot(slots []parking.Slot) {
	h.publish(context.Background(), Event{Type: "slots", Slots: slots, At: time.Now().UTC()})
}

func (h *Hub) publish(ctx context.Context, event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		logging.Error(ctx).Err(err).Msg("marshal websocket event")
		return
	}

	select {
	case h.broadcast <- message:
	default:
		logging.Warn(ctx).Str("type", event.Type).Msg("broadcast channel is full, dropping message")
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn(r.Context()).Err(err).Msg("websocket upgrade failed")
		return
	}

	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	go func() {
		defer func() {
			select {
			case h.unregister <- conn:
			case <-h.done:
			}
		}()

		// The server's read timeout survives the hijack.
		conn.SetReadDeadline(time.Time{})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logging.Warn(context.Background()).Err(err).Msg("websocket read failed")
				}
				return
			}
		}
	}()
}
