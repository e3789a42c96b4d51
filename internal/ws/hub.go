// Package ws streams readings and alerts to connected dashboards.
package ws

import (
	"encoding/json"
	"log"

	"silo-backend/internal/models"
)

// Hub tracks connected clients and broadcasts messages to them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
}

// NewHub creates a hub; call Run in a goroutine
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run owns the client set; all membership changes go through channels
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			log.Printf("WSHub: Client registered (%d connected)", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				log.Printf("WSHub: Client unregistered (%d connected)", len(h.clients))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// Slow client: drop it rather than block the hub.
					delete(h.clients, client)
					close(client.Send)
				}
			}
		}
	}
}

// RegisterClient adds a client to the hub
func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

// UnregisterClient removes a client from the hub
func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// BroadcastReading pushes a normalized reading to all clients
func (h *Hub) BroadcastReading(reading *models.Reading) {
	h.send("reading", reading)
}

// BroadcastAlert pushes an alert to all clients
func (h *Hub) BroadcastAlert(alert *models.Alert) {
	h.send("alert", alert)
}

func (h *Hub) send(messageType string, payload interface{}) {
	message, err := json.Marshal(map[string]interface{}{
		"type":    messageType,
		"payload": payload,
	})
	if err != nil {
		log.Printf("WSHub: Error marshalling %s message: %v", messageType, err)
		return
	}

	select {
	case h.broadcast <- message:
	default:
		log.Printf("WSHub: Broadcast buffer full, dropping %s message", messageType)
	}
}
