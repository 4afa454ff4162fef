package notify

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/vmihailenco/msgpack/v5"
)

// SubjectPrefix is prepended to the event type to form the NATS subject.
const SubjectPrefix = "auction.events."

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes msgpack-encoded events, fire and forget.
type NATSSink struct {
	pub publisher
}

// NewNATSSink creates a sink on an established connection.
func NewNATSSink(conn *nats.Conn) *NATSSink {
	return &NATSSink{pub: conn}
}

// Subject returns the subject an event type is published on.
func Subject(t EventType) string {
	return SubjectPrefix + string(t)
}

func (s *NATSSink) Name() string { return "nats" }

func (s *NATSSink) Send(_ context.Context, e Event) error {
	data, err := msgpack.Marshal(&e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := s.pub.Publish(Subject(e.Type), data); err != nil {
		return fmt.Errorf("publish %s: %w", Subject(e.Type), err)
	}
	return nil
}

// DecodeEvent decodes a payload published by NATSSink.
func DecodeEvent(data []byte) (Event, error) {
	var e Event
	err := msgpack.Unmarshal(data, &e)
	return e, err
}
