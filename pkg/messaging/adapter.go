package messaging

import (
	"context"
	"fmt"
)

// ChannelPublisher publishes typed messages to a single broker channel.
type ChannelPublisher struct {
	broker  Broker
	channel string
}

func NewChannelPublisher(broker Broker, channel string) *ChannelPublisher {
	return &ChannelPublisher{broker: broker, channel: channel}
}

func (p *ChannelPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	if err := p.broker.Publish(ctx, p.channel, Message{Type: eventType, Payload: payload}); err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}
	return nil
}

func (p *ChannelPublisher) Close() error {
	return p.broker.Close()
}
