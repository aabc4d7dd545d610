// Package monitoring exposes live operational data: a websocket hub that
// streams invoice lifecycle events and a stats endpoint combining process,
// host and database health.
package monitoring

import (
	"log"
	"net/http"
	"sync"

	"invoicely-backend/internal/services"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans invoice events out to connected websocket clients.
type Hub struct {
	clients    map[*websocket.Conn]bool
	clientsMux sync.Mutex
	broadcast  chan services.InvoiceEvent
}

func NewHub() *Hub {
	h := &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan services.InvoiceEvent, 64),
	}
	go h.run()
	return h
}

// PublishInvoiceEvent implements services.EventPublisher. Events are dropped
// when the buffer is full rather than blocking the request path.
func (h *Hub) PublishInvoiceEvent(evt services.InvoiceEvent) {
	select {
	case h.broadcast <- evt:
	default:
		log.Printf("[Monitoring] event buffer full, dropping %s", evt.Type)
	}
}

// HandleWebSocket upgrades the connection and keeps it subscribed until the
// peer goes away.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	h.clientsMux.Lock()
	h.clients[conn] = true
	h.clientsMux.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.clientsMux.Lock()
			delete(h.clients, conn)
			h.clientsMux.Unlock()
			break
		}
	}
}

func (h *Hub) run() {
	for evt := range h.broadcast {
		h.clientsMux.Lock()
		for client := range h.clients {
			if err := client.WriteJSON(evt); err != nil {
				client.Close()
				delete(h.clients, client)
			}
		}
		h.clientsMux.Unlock()
	}
}
