package batch

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Notifier pushes store-change events to connected websocket clients so
// the frontend can refresh its test-case list without polling.
type Notifier struct {
	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  map[*websocket.Conn]bool
}

func NewNotifier() *Notifier {
	return &Notifier{
		upgrader: websocket.Upgrader{
			// Same-host SPA plus local development frontends.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

// HandleWS upgrades the request and registers the client. Clients are
// dropped on the first failed write.
func (n *Notifier) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := n.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading websocket connection: %v", err)
		return
	}

	n.mu.Lock()
	n.clients[conn] = true
	n.mu.Unlock()
}

// Broadcast sends an event to every connected client.
func (n *Notifier) Broadcast(event StoreEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for client := range n.clients {
		if err := client.WriteJSON(event); err != nil {
			log.Printf("Error sending store event to client: %v", err)
			client.Close()
			delete(n.clients, client)
		}
	}
}

// Close disconnects all clients.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for client := range n.clients {
		client.Close()
		delete(n.clients, client)
	}
}
