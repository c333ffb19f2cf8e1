// internal/infrastructure/messaging/redis.go
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/shoe-pos/internal/domain/events"
)

// RedisPublisher broadcasts inventory events on a Redis pub/sub channel so
// every API instance can push them to its WebSocket clients
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher creates a publisher for channel
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

// Publish implements events.Publisher
func (p *RedisPublisher) Publish(ctx context.Context, evts ...events.Event) error {
	if len(evts) == 0 {
		return nil
	}
	_, err := p.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, evt := range evts {
			payload, err := json.Marshal(evt)
			if err != nil {
				return fmt.Errorf("failed to encode %s event: %w", evt.Type, err)
			}
			pipe.Publish(ctx, p.channel, payload)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish to redis channel %s: %w", p.channel, err)
	}
	return nil
}

// RedisSubscriber reads inventory events from a Redis pub/sub channel
type RedisSubscriber struct {
	client  *redis.Client
	channel string
	log     *logrus.Logger
}

// NewRedisSubscriber creates a subscriber for channel
func NewRedisSubscriber(client *redis.Client, channel string, log *logrus.Logger) *RedisSubscriber {
	return &RedisSubscriber{client: client, channel: channel, log: log}
}

// Run delivers every event on the channel to handle until ctx is done.
// Undecodable messages are logged and skipped.
func (s *RedisSubscriber) Run(ctx context.Context, handle func(events.Event)) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before reading.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}
	s.log.WithField("channel", s.channel).Info("Subscribed to inventory events")

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var evt events.Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				s.log.WithError(err).WithField("channel", msg.Channel).Warn("Dropping malformed inventory event")
				continue
			}
			handle(evt)
		}
	}
}
