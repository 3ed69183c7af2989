package server

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/websocket/v2"

	"hubpilot/internal/logging"
)

// Message is the envelope exchanged with dashboard clients over the socket.
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// ClientManager tracks connected dashboard sockets and fans broadcast
// messages out to all of them.
type ClientManager struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

func NewClientManager() *ClientManager {
	return &ClientManager{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Start runs the manager loop until the context is done.
func (m *ClientManager) Start(ctx context.Context) {
	log := logging.FromContext(ctx)
	for {
		select {
		case conn := <-m.register:
			m.mu.Lock()
			m.clients[conn] = true
			m.mu.Unlock()
			log.Info("dashboard client connected", "remote", conn.RemoteAddr().String())

		case conn := <-m.unregister:
			m.mu.Lock()
			if m.clients[conn] {
				delete(m.clients, conn)
				_ = conn.Close()
			}
			m.mu.Unlock()
			log.Info("dashboard client disconnected")

		case data := <-m.broadcast:
			m.mu.RLock()
			for conn := range m.clients {
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					log.Warn("broadcast write failed", "err", err)
				}
			}
			m.mu.RUnlock()

		case <-ctx.Done():
			m.mu.Lock()
			for conn := range m.clients {
				_ = conn.Close()
			}
			m.clients = make(map[*websocket.Conn]bool)
			m.mu.Unlock()
			return
		}
	}
}

// Broadcast queues a message for all connected clients, dropping it when the
// queue is full so slow dashboards cannot stall telemetry.
func (m *ClientManager) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case m.broadcast <- data:
	default:
	}
}

// ClientCount returns the number of connected clients.
func (m *ClientManager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}
