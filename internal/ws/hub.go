package ws

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	userClients   = make(map[uint]map[*websocket.Conn]bool)
	userClientsMu sync.RWMutex
)

const writeWait = 10 * time.Second

// Register adds a connection to the set of open sockets for a user.
func Register(userID uint, conn *websocket.Conn) {
	userClientsMu.Lock()
	if userClients[userID] == nil {
		userClients[userID] = make(map[*websocket.Conn]bool)
	}
	userClients[userID][conn] = true
	userClientsMu.Unlock()
}

// Unregister removes a connection and closes it.
func Unregister(userID uint, conn *websocket.Conn) {
	userClientsMu.Lock()

	if clients, exists := userClients[userID]; exists {
		delete(clients, conn)

		if len(clients) == 0 {
			delete(userClients, userID)
		}
	}

	userClientsMu.Unlock()
	conn.Close()
}

// Notify sends a JSON payload to every open socket of the given user.
// Failed connections are dropped from the registry.
func Notify(userID uint, payload interface{}) {
	userClientsMu.RLock()
	clients, exists := userClients[userID]
	if !exists || len(clients) == 0 {
		userClientsMu.RUnlock()
		return
	}

	// Copy the set so the lock is not held while writing
	clientsCopy := make([]*websocket.Conn, 0, len(clients))
	for conn := range clients {
		clientsCopy = append(clientsCopy, conn)
	}
	userClientsMu.RUnlock()

	for _, conn := range clientsCopy {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			log.Printf("Failed to set write deadline for user %d: %v", userID, err)
			continue
		}

		if err := conn.WriteJSON(payload); err != nil {
			log.Printf("Failed to push event to user %d: %v", userID, err)
			Unregister(userID, conn)
		}
	}
}
