// Package mq relays form events between server instances. Room
// membership lives in each instance's hub, so a record submitted to one
// instance is republished through a broker and replayed into the hubs
// of the others. Delivery is best effort, matching the push channel.
package mq

import "context"

// Handler processes a relayed message. Return an error to signal a
// retry/nack where the broker supports it.
type Handler func(ctx context.Context, data []byte, attrs map[string]string) error

// Broker defines the broker-agnostic operations the relay needs.
type Broker interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}
