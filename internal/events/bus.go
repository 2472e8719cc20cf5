// Package events is the in-process publish/subscribe bus. A Bus is created
// once at process start and passed to every component that publishes or
// subscribes; nothing needs tearing down.
package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Event names.
const (
	JobsIngested   = "jobs:ingested"
	ProfileUpdated = "profile:updated"
)

// Event is a pipeline notification. Origin is empty for events published in
// this process and carries the remote process id for events relayed by a
// RedisBridge.
type Event struct {
	Name   string   `json:"name"`
	UserID string   `json:"userId"`
	JobIDs []string `json:"jobIds,omitempty"`
	Origin string   `json:"origin,omitempty"`
}

// Handler reacts to an event. Handlers run on the publisher's goroutine and
// must hand long work off rather than block.
type Handler func(ctx context.Context, e Event)

// Publisher is the publish side of a Bus.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Bus dispatches synchronously, at most once per subscriber, with no
// delivery guarantee beyond this process.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	wildcard []Handler
	log      *zap.Logger
}

// NewBus returns an empty bus.
func NewBus(log *zap.Logger) *Bus {
	return &Bus{handlers: make(map[string][]Handler), log: log}
}

// Subscribe registers h for events named name.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// SubscribeAll registers h for every event.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wildcard = append(b.wildcard, h)
}

// Publish is fire-and-forget: a panicking handler is logged and does not
// stop the remaining handlers or reach the publisher.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.handlers[e.Name])+len(b.wildcard))
	hs = append(hs, b.handlers[e.Name]...)
	hs = append(hs, b.wildcard...)
	b.mu.RUnlock()

	for _, h := range hs {
		b.dispatch(ctx, h, e)
	}
}

func (b *Bus) dispatch(ctx context.Context, h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked",
				zap.String("event", e.Name),
				zap.String("userId", e.UserID),
				zap.Any("panic", r),
			)
		}
	}()
	h(ctx, e)
}
