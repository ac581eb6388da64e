package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yujeong-lee-1996/temp-kpop/internal/app"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// EventsHandler broadcasts comparison completion events via WebSocket.
type EventsHandler struct {
	clients map[*websocket.Conn]*sync.Mutex
	mu      sync.RWMutex
}

// NewEventsHandler creates an EventsHandler subscribed to the app's events.
func NewEventsHandler(a *app.App) *EventsHandler {
	h := &EventsHandler{
		clients: make(map[*websocket.Conn]*sync.Mutex),
	}
	a.Subscribe(h.Broadcast)
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *EventsHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends ev to every connected client. Slow or broken clients are
// skipped; their read loop removes them.
func (h *EventsHandler) Broadcast(ev app.Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		log.Printf("Error encoding event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn, wmu := range h.clients {
		wmu.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("websocket write error: %v", err)
		}
		wmu.Unlock()
	}
}
