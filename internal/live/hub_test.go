package live

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

const testRoom = "0123456789abcdef0123456789abcdef"

func testClient() *Client {
	return &Client{
		id:     "test",
		send:   make(chan []byte, sendBuffer),
		joined: make(map[string]struct{}),
	}
}

func TestHubBroadcastReachesRoomMembers(t *testing.T) {
	hub := NewHub()
	member := testClient()
	outsider := testClient()
	hub.join(member, testRoom)
	hub.join(outsider, "ffffffffffffffffffffffffffffffff")

	hub.Broadcast(testRoom, EventRecordCreated, map[string]int{"id": 1})

	select {
	case payload := <-member.send:
		var frame struct {
			Event string `json:"event"`
			Data  struct {
				Type string          `json:"type"`
				Data json.RawMessage `json:"data"`
			} `json:"data"`
		}
		if err := json.Unmarshal(payload, &frame); err != nil {
			t.Fatalf("malformed frame: %v", err)
		}
		if frame.Event != "FormTracker" {
			t.Fatalf("expected FormTracker frame, got %q", frame.Event)
		}
		if frame.Data.Type != EventRecordCreated {
			t.Fatalf("expected %q, got %q", EventRecordCreated, frame.Data.Type)
		}
	default:
		t.Fatal("member received nothing")
	}

	select {
	case <-outsider.send:
		t.Fatal("event leaked into another room")
	default:
	}
}

func TestHubRemoveDropsMembership(t *testing.T) {
	hub := NewHub()
	client := testClient()
	hub.join(client, testRoom)
	if hub.RoomSize(testRoom) != 1 {
		t.Fatalf("expected room size 1, got %d", hub.RoomSize(testRoom))
	}

	hub.remove(client)
	if hub.RoomSize(testRoom) != 0 {
		t.Fatalf("expected empty room, got %d", hub.RoomSize(testRoom))
	}

	hub.Broadcast(testRoom, EventRecordUpdated, nil)
	select {
	case <-client.send:
		t.Fatal("removed client received an event")
	default:
	}
}

func TestServeWSTrackAndBroadcast(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(ServeWS(hub))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var greeting envelope
	if err := conn.ReadJSON(&greeting); err != nil {
		t.Fatalf("failed to read greeting: %v", err)
	}
	if greeting.Event != "message" || greeting.Data != "Hello" {
		t.Fatalf("unexpected greeting: %+v", greeting)
	}

	if err := conn.WriteJSON(map[string]string{"event": "track", "form_id": testRoom}); err != nil {
		t.Fatalf("failed to send track: %v", err)
	}

	// The join confirmation doubles as proof the room membership landed.
	var join struct {
		Event string `json:"event"`
		Data  struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"data"`
	}
	if err := conn.ReadJSON(&join); err != nil {
		t.Fatalf("failed to read join event: %v", err)
	}
	if join.Data.Type != EventJoin {
		t.Fatalf("expected %q, got %q", EventJoin, join.Data.Type)
	}
	if hub.RoomSize(testRoom) != 1 {
		t.Fatalf("expected room size 1, got %d", hub.RoomSize(testRoom))
	}

	hub.Broadcast(testRoom, EventFormModified, map[string]string{"id": testRoom})
	var push struct {
		Event string `json:"event"`
		Data  struct {
			Type string `json:"type"`
		} `json:"data"`
	}
	if err := conn.ReadJSON(&push); err != nil {
		t.Fatalf("failed to read push: %v", err)
	}
	if push.Event != "FormTracker" || push.Data.Type != EventFormModified {
		t.Fatalf("unexpected push: %+v", push)
	}
}
