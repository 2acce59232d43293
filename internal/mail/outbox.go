package mail

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/ids"
)

const payloadField = "payload"

// Outbox queues messages on a Redis stream for cmd/worker to deliver, so a
// provider outage is retried instead of lost.
type Outbox struct {
	client *redis.Client
	stream string
}

func NewOutbox(client *redis.Client, stream string) *Outbox {
	return &Outbox{client: client, stream: stream}
}

func (o *Outbox) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode mail: %w", err)
	}
	return o.client.XAdd(ctx, &redis.XAddArgs{
		Stream: o.stream,
		Values: map[string]any{
			"id":         ids.New(),
			payloadField: string(payload),
		},
	}).Err()
}

// Decode extracts the message from an outbox stream entry.
func Decode(values map[string]any) (Message, error) {
	raw, ok := values[payloadField].(string)
	if !ok {
		return Message{}, fmt.Errorf("outbox entry has no %s field", payloadField)
	}
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return Message{}, fmt.Errorf("decode mail: %w", err)
	}
	if msg.To == "" {
		return Message{}, fmt.Errorf("outbox entry has no recipient")
	}
	return msg, nil
}

// Deliverer hands outbox entries to the real provider.
type Deliverer struct {
	sender Sender
}

func NewDeliverer(sender Sender) *Deliverer {
	return &Deliverer{sender: sender}
}

func (d *Deliverer) Handle(ctx context.Context, entry redis.XMessage) error {
	msg, err := Decode(entry.Values)
	if err != nil {
		return err
	}
	return d.sender.Send(ctx, msg)
}
