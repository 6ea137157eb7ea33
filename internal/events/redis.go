package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is the Redis pub/sub channel used for change events.
const DefaultChannel = "izposoja:events"

// RedisBridge publishes local events to Redis and replays events from other
// instances into the local hub. Each instance tags what it sends with its
// own origin ID and ignores its own messages on the way back.
type RedisBridge struct {
	client  *redis.Client
	channel string
	origin  string
	hub     *Hub
	logger  *zap.Logger
}

// NewRedisClient connects to Redis at the given URL and verifies the
// connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewRedisBridge creates a bridge between hub and the Redis channel.
func NewRedisBridge(client *redis.Client, channel string, hub *Hub, logger *zap.Logger) *RedisBridge {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBridge{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		hub:     hub,
		logger:  logger,
	}
}

// Origin returns the instance ID stamped on outgoing events.
func (b *RedisBridge) Origin() string { return b.origin }

// Publish delivers e locally and forwards it to the other instances.
// A Redis failure is logged; the change itself is already committed.
func (b *RedisBridge) Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	e.Origin = b.origin
	b.hub.Publish(ctx, e)

	payload, err := json.Marshal(e)
	if err != nil {
		b.logger.Error("encoding event", zap.Error(err))
		return
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.logger.Warn("forwarding event to redis", zap.String("type", e.Type), zap.Error(err))
	}
}

// Run relays events from other instances until ctx is cancelled.
func (b *RedisBridge) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", b.channel, err)
	}
	b.logger.Info("relaying events", zap.String("channel", b.channel), zap.String("origin", b.origin))

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("redis subscription closed")
			}
			b.relay(ctx, msg.Payload)
		}
	}
}

func (b *RedisBridge) relay(ctx context.Context, payload string) {
	var e Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		b.logger.Warn("decoding relayed event", zap.Error(err))
		return
	}
	if e.Origin == b.origin {
		return
	}
	b.hub.Publish(ctx, e)
}
