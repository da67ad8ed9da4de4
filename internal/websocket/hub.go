// Package websocket fans store-change events out to connected clients, so
// open post pages see counter changes and new comments without polling.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"bayou-board/internal/engine/actors"
	"bayou-board/internal/models"

	"github.com/google/uuid"
)

// Event types pushed to clients.
const (
	EventVoteUpdated    = "vote_updated"
	EventCommentCreated = "comment_created"
)

// Event is the envelope for every pushed message.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub maintains the set of active clients and broadcasts events to them.
type Hub struct {
	// Registered clients. Maps user ID to a set of active client connections.
	Clients map[uuid.UUID]map[*Client]bool

	// Outbound events to every connected client.
	Broadcast chan []byte

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		Broadcast:  make(chan []byte, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Clients:    make(map[uuid.UUID]map[*Client]bool),
	}
}

// Run starts the hub's processing loop.
func (h *Hub) Run() {
	slog.Info("websocket hub started")
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.Clients[client.UserID]; !ok {
				h.Clients[client.UserID] = make(map[*Client]bool)
			}
			h.Clients[client.UserID][client] = true
			slog.Debug("websocket client registered",
				"user", client.UserID, "connections", len(h.Clients[client.UserID]))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if userClients, ok := h.Clients[client.UserID]; ok {
				if _, clientOk := userClients[client]; clientOk {
					delete(userClients, client)
					if len(userClients) == 0 {
						delete(h.Clients, client.UserID)
					}
					slog.Debug("websocket client unregistered", "user", client.UserID)
				}
			}
			h.mu.Unlock()

		case message := <-h.Broadcast:
			h.mu.RLock()
			for _, userClients := range h.Clients {
				for client := range userClients {
					select {
					case client.Send <- message:
					default:
						// Slow consumer; drop rather than stall the hub.
						slog.Warn("websocket send buffer full, dropping event", "user", client.UserID)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) publish(eventType string, payload interface{}) {
	data, err := json.Marshal(&Event{Type: eventType, Payload: payload})
	if err != nil {
		slog.Error("failed to marshal websocket event", "type", eventType, "error", err)
		return
	}
	select {
	case h.Broadcast <- data:
	default:
		slog.Warn("websocket broadcast queue full, dropping event", "type", eventType)
	}
}

// VoteUpdated implements actors.Notifier.
func (h *Hub) VoteUpdated(result *actors.VoteResult) {
	// The voter's own stance is per-user state; strip it before fan-out.
	h.publish(EventVoteUpdated, &actors.VoteResult{
		TargetID:   result.TargetID,
		TargetKind: result.TargetKind,
		Upvotes:    result.Upvotes,
		Downvotes:  result.Downvotes,
		Karma:      result.Karma,
	})
}

// CommentCreated implements actors.Notifier.
func (h *Hub) CommentCreated(comment *models.Comment) {
	h.publish(EventCommentCreated, comment)
}
