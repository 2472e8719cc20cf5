package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is the Redis channel pipeline events travel on.
const DefaultChannel = "EVENT_PIPELINE"

// RedisBridge joins the buses of several processes. Events published
// locally are copied to a Redis channel tagged with this process's origin
// id; events arriving from other processes are re-published on the local
// bus. An event never comes back to the process that sent it.
//
// This is how `ingest` children spawned by the scheduler reach the
// enrichment worker running inside `serve`.
type RedisBridge struct {
	rdb     *redis.Client
	bus     *Bus
	channel string
	origin  string
	log     *zap.Logger

	publish func(ctx context.Context, payload []byte) error
}

// NewRedisBridge builds a bridge. Call Start to wire it up.
func NewRedisBridge(rdb *redis.Client, bus *Bus, channel string, log *zap.Logger) *RedisBridge {
	if channel == "" {
		channel = DefaultChannel
	}
	b := &RedisBridge{
		rdb:     rdb,
		bus:     bus,
		channel: channel,
		origin:  uuid.NewString(),
		log:     log.With(zap.String("component", "redis-bridge")),
	}
	b.publish = func(ctx context.Context, payload []byte) error {
		return rdb.Publish(ctx, channel, payload).Err()
	}
	return b
}

// Origin is the id stamped on events this process forwards.
func (b *RedisBridge) Origin() string { return b.origin }

// EnableForwarding copies local events to Redis. Processes that only
// produce events (the ingest command) need nothing more.
func (b *RedisBridge) EnableForwarding() {
	b.bus.SubscribeAll(b.forward)
}

// Start enables forwarding and relays remote events onto the local bus until
// ctx is cancelled.
func (b *RedisBridge) Start(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.EnableForwarding()

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				b.receive(ctx, msg.Payload)
			}
		}
	}()

	b.log.Info("relaying pipeline events", zap.String("channel", b.channel), zap.String("origin", b.origin))
	return nil
}

func (b *RedisBridge) forward(ctx context.Context, e Event) {
	if e.Origin != "" {
		return // relayed from elsewhere
	}
	e.Origin = b.origin
	payload, err := json.Marshal(e)
	if err != nil {
		b.log.Error("marshal event", zap.String("event", e.Name), zap.Error(err))
		return
	}
	if err := b.publish(ctx, payload); err != nil {
		b.log.Warn("publish event to redis failed", zap.String("event", e.Name), zap.Error(err))
	}
}

func (b *RedisBridge) receive(ctx context.Context, payload string) {
	var e Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		b.log.Warn("dropping malformed event", zap.Error(err))
		return
	}
	if e.Origin == "" || e.Origin == b.origin {
		return
	}
	b.bus.Publish(ctx, e)
}
