// Package live maintains per-form broadcast rooms over websocket
// connections. Joining a room needs no authentication: form ids are
// unlisted 128-bit strings, so knowing one is treated as capability
// enough to watch it. Mutations are authorized elsewhere.
package live

import (
	"encoding/json"
	"log"
	"sync"
)

// Event types pushed to room members.
const (
	EventRecordCreated = "RecNEW"
	EventRecordUpdated = "RecUP"
	EventFormModified  = "modify"
	EventJoin          = "Join"
)

// TrackerEvent is the payload of a FormTracker push.
type TrackerEvent struct {
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// envelope is the wire frame for server-to-client pushes.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub tracks which connections watch which forms and fans events out to
// them. All methods are safe for concurrent use; membership is
// process-local, in-memory state scoped to connection lifetime.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]struct{})}
}

// Broadcast delivers an event to every connection in the form's room,
// best effort. Sends never block: a client whose buffer is full is
// dropped from the hub rather than stalling the caller.
func (h *Hub) Broadcast(formID, eventType string, data any) {
	payload, err := json.Marshal(envelope{
		Event: "FormTracker",
		Data:  TrackerEvent{Type: eventType, Data: data},
	})
	if err != nil {
		log.Printf("live: marshal event: %v", err)
		return
	}
	h.broadcastRaw(formID, payload)
}

func (h *Hub) broadcastMessage(formID, eventType, message string) {
	payload, err := json.Marshal(envelope{
		Event: "FormTracker",
		Data:  TrackerEvent{Type: eventType, Message: message},
	})
	if err != nil {
		return
	}
	h.broadcastRaw(formID, payload)
}

func (h *Hub) broadcastRaw(formID string, payload []byte) {
	h.mu.RLock()
	room := h.rooms[formID]
	var stalled []*Client
	for client := range room {
		select {
		case client.send <- payload:
		default:
			stalled = append(stalled, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stalled {
		h.remove(client)
		client.close()
	}
}

// join adds a connection to the form's room.
func (h *Hub) join(client *Client, formID string) {
	h.mu.Lock()
	room, ok := h.rooms[formID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[formID] = room
	}
	room[client] = struct{}{}
	client.joined[formID] = struct{}{}
	h.mu.Unlock()
}

// remove drops a connection from every room it joined. Other members
// are not notified.
func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	for formID := range client.joined {
		if room, ok := h.rooms[formID]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, formID)
			}
		}
	}
	client.joined = make(map[string]struct{})
	h.mu.Unlock()
}

// RoomSize reports the current member count of a room.
func (h *Hub) RoomSize(formID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[formID])
}
