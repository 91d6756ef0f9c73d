package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// relayMessage is the envelope exchanged between instances over Redis
type relayMessage struct {
	Recipient string          `json:"recipient"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
}

// RedisRelay fans pushes out through a Redis channel so every server instance
// delivers to the connections it holds locally.
type RedisRelay struct {
	client  *redis.Client
	channel string
	hub     *Hub
	log     *logrus.Entry
}

// NewRedisRelay creates a new RedisRelay
func NewRedisRelay(client *redis.Client, channel string, hub *Hub, log *logrus.Entry) *RedisRelay {
	return &RedisRelay{client: client, channel: channel, hub: hub, log: log}
}

// Push publishes a notification for recipient to every instance
func (r *RedisRelay) Push(ctx context.Context, recipient string, payload any) error {
	msg, err := encodeRelayMessage(recipient, EventNotification, payload)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, msg).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", r.channel, err)
	}
	return nil
}

// Run subscribes to the relay channel and delivers messages to the local hub
// until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", r.channel, err)
	}
	r.log.WithField("channel", r.channel).Info("Redis relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if _, err := r.deliver([]byte(msg.Payload)); err != nil {
				r.log.WithError(err).Warn("Discarding malformed relay message")
			}
		}
	}
}

func (r *RedisRelay) deliver(payload []byte) (int, error) {
	var msg relayMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return 0, err
	}
	if msg.Recipient == "" || msg.Event == "" {
		return 0, fmt.Errorf("relay message missing recipient or event")
	}
	return r.hub.Publish(msg.Recipient, Event{Name: msg.Event, Data: msg.Data}), nil
}

func encodeRelayMessage(recipient, event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode relay payload: %w", err)
	}
	return json.Marshal(relayMessage{Recipient: recipient, Event: event, Data: data})
}
