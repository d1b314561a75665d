package mq

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// defaultTopic carries all form events; rooms are multiplexed inside
// the payload by form id.
const defaultTopic = "form-events"

const publishTimeout = 5 * time.Second

const originAttr = "origin"

// formEvent is the relayed wire format.
type formEvent struct {
	FormID string          `json:"form_id"`
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data"`
}

// Broadcaster is the local fan-out the relay feeds (the live hub).
type Broadcaster interface {
	Broadcast(formID, eventType string, data any)
}

// Relay fans events out locally and republishes them through the broker
// so other instances can do the same. Publish failures are logged and
// dropped; the relay never blocks or fails the triggering request.
type Relay struct {
	broker Broker
	local  Broadcaster
	id     string
}

func NewRelay(broker Broker, local Broadcaster) *Relay {
	return &Relay{
		broker: broker,
		local:  local,
		id:     newMessageID(),
	}
}

// Broadcast delivers the event to local room members and, in the
// background, to the broker.
func (r *Relay) Broadcast(formID, eventType string, data any) {
	r.local.Broadcast(formID, eventType, data)

	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("mq: marshal event data: %v", err)
		return
	}
	body, err := json.Marshal(formEvent{FormID: formID, Type: eventType, Data: payload})
	if err != nil {
		log.Printf("mq: marshal event: %v", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if _, err := r.broker.Publish(ctx, defaultTopic, body, map[string]string{originAttr: r.id}); err != nil {
			log.Printf("mq: publish form event: %v", err)
		}
	}()
}

// Run consumes relayed events until ctx ends, replaying events from
// other instances into the local hub. Events this instance published
// are skipped; their local fan-out already happened.
func (r *Relay) Run(ctx context.Context) error {
	return r.broker.Subscribe(ctx, defaultTopic, func(ctx context.Context, data []byte, attrs map[string]string) error {
		if attrs[originAttr] == r.id {
			return nil
		}
		var event formEvent
		if err := json.Unmarshal(data, &event); err != nil {
			log.Printf("mq: drop malformed form event: %v", err)
			return nil
		}
		r.local.Broadcast(event.FormID, event.Type, event.Data)
		return nil
	})
}
