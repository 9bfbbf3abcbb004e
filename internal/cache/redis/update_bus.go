package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/suibid/internal/domain"
)

// EntityChannelPrefix is the pub/sub channel prefix for per-entity deltas.
// The indexer publishes to "ch:entity:{id}"; the gateway pattern-subscribes
// to EntityChannelPattern and routes by room.
const (
	EntityChannelPrefix  = "ch:entity:"
	EntityChannelPattern = "ch:entity:*"
)

// EntityChannel returns the pub/sub channel for one entity's deltas.
func EntityChannel(entityID string) string {
	return EntityChannelPrefix + entityID
}

// EntityFromChannel extracts the entity id from a delta channel name.
func EntityFromChannel(channel string) string {
	return strings.TrimPrefix(channel, EntityChannelPrefix)
}

// UpdateBus implements domain.UpdateBus on Redis Pub/Sub. Delivery is best
// effort: ordered within one channel because the indexer is the only
// producer and applies events per entity sequentially, unordered across
// channels, and a subscriber that is absent simply misses messages.
type UpdateBus struct {
	rdb *redis.Client
}

// NewUpdateBus creates an UpdateBus backed by the given Client.
func NewUpdateBus(c *Client) *UpdateBus {
	return &UpdateBus{rdb: c.Underlying()}
}

// Publish sends a raw byte payload to a Redis Pub/Sub channel.
func (b *UpdateBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// SubscribedMessage carries a payload with the channel it arrived on, so a
// pattern subscriber can demultiplex per-entity streams.
type SubscribedMessage struct {
	Channel string
	Payload []byte
}

// Subscribe creates a Redis Pub/Sub subscription and returns a read-only
// channel of raw payloads. The subscription closes when the context is
// cancelled; the returned channel is closed at that point as well.
func (b *UpdateBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	msgs, err := b.subscribe(ctx, channel)
	if err != nil {
		return nil, err
	}

	out := make(chan []byte, 128)
	go func() {
		defer close(out)
		for m := range msgs {
			select {
			case out <- m.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// SubscribePattern subscribes with a glob pattern and keeps the source
// channel attached to each message.
func (b *UpdateBus) SubscribePattern(ctx context.Context, pattern string) (<-chan SubscribedMessage, error) {
	return b.subscribe(ctx, pattern)
}

func (b *UpdateBus) subscribe(ctx context.Context, channel string) (<-chan SubscribedMessage, error) {
	var pubsub *redis.PubSub
	if hasPattern(channel) {
		pubsub = b.rdb.PSubscribe(ctx, channel)
	} else {
		pubsub = b.rdb.Subscribe(ctx, channel)
	}

	// Verify the subscription is established before handing it out.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan SubscribedMessage, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- SubscribedMessage{Channel: msg.Channel, Payload: []byte(msg.Payload)}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// hasPattern returns true when the Redis channel includes glob-style
// wildcards, in which case PSubscribe must be used instead of Subscribe.
func hasPattern(channel string) bool {
	return strings.ContainsAny(channel, "*?[")
}

// Compile-time interface check.
var _ domain.UpdateBus = (*UpdateBus)(nil)
