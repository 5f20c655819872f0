package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Topic is the watermill topic all assistant events travel on.
const Topic = "guido.events"

// Bus is an in-process fan-out of events backed by a watermill Go channel pub/sub.
// Every subscriber receives every event, in publish order. Publish returns once
// each subscriber has buffered the event, so it only blocks on a subscriber
// whose buffer is full.
type Bus struct {
	pubSub *gochannel.GoChannel
	buffer int
	logger *slog.Logger
}

// NewBus creates a bus. buffer is the per-subscriber channel size.
func NewBus(buffer int, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer:            int64(buffer),
				BlockPublishUntilSubscriberAck: true,
			},
			watermill.NewStdLogger(false, false),
		),
		buffer: buffer,
		logger: logger.With("component", "events.bus"),
	}
}

// Publish encodes e and sends it to all subscribers.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", e.Kind, err)
	}
	msg := message.NewMessage(e.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("kind", string(e.Kind))
	if err := b.pubSub.Publish(Topic, msg); err != nil {
		return fmt.Errorf("events: publish %s: %w", e.Kind, err)
	}
	return nil
}

// Subscribe returns a channel of decoded events. The channel closes when ctx
// is cancelled or the bus is closed; events buffered before that are still
// delivered.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Event, error) {
	messages, err := b.pubSub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, fmt.Errorf("events: subscribe: %w", err)
	}

	out := make(chan Event, b.buffer)
	go func() {
		defer close(out)
		for msg := range messages {
			var e Event
			if err := json.Unmarshal(msg.Payload, &e); err != nil {
				b.logger.Warn("dropping undecodable event", "uuid", msg.UUID, "error", err)
				msg.Ack()
				continue
			}
			select {
			case out <- e:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

// Close shuts down the bus and closes every subscription.
func (b *Bus) Close() error {
	return b.pubSub.Close()
}

var _ Publisher = (*Bus)(nil)
