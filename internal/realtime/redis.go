package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhle/taskflow/internal/model"
)

// DefaultRedisChannel is the pub/sub channel used to fan change events
// out across processes.
const DefaultRedisChannel = "taskflow:changes"

// envelope wraps an event with the id of the process that produced it so
// a bridge never re-delivers its own publications.
type envelope struct {
	Origin string            `json:"origin"`
	Event  model.ChangeEvent `json:"event"`
}

// RedisBridge publishes change events both to a local Hub and to Redis,
// and replays events received from other processes into the Hub.
type RedisBridge struct {
	client  *redis.Client
	hub     *Hub
	channel string
	origin  string
	logger  *zap.Logger
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return client, nil
}

// NewRedisBridge creates a bridge between hub and the Redis channel.
func NewRedisBridge(client *redis.Client, hub *Hub, logger *zap.Logger) *RedisBridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBridge{
		client:  client,
		hub:     hub,
		channel: DefaultRedisChannel,
		origin:  uuid.New().String(),
		logger:  logger,
	}
}

// Publish delivers e locally, then forwards it to Redis. Forwarding
// failures are logged; local delivery always happens.
func (b *RedisBridge) Publish(e model.ChangeEvent) {
	b.hub.Publish(e)

	payload, err := json.Marshal(envelope{Origin: b.origin, Event: e})
	if err != nil {
		b.logger.Error("encoding change event", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.logger.Warn("forwarding change event to redis",
			zap.String("channel", b.channel), zap.Error(err))
	}
}

// Run subscribes to the Redis channel and replays remote events into the
// hub until ctx is cancelled.
func (b *RedisBridge) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", b.channel, err)
	}

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			b.handle([]byte(msg.Payload))
		}
	}
}

// handle decodes a payload and republishes foreign events locally.
func (b *RedisBridge) handle(payload []byte) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		b.logger.Warn("dropping malformed change event", zap.Error(err))
		return
	}
	if env.Origin == b.origin {
		return
	}
	b.hub.Publish(env.Event)
}
