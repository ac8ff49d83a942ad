// Package notifications pushes content store snapshots to websocket clients,
// locally through a Hub and across replicas through Redis pub/sub.
package notifications

import (
	"context"
	"runtime/debug"

	"letsblog/internal/cache"
	"letsblog/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Notifier provides helpers to publish snapshot events into Redis.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether the notifier has a Redis client to publish to.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishSnapshot publishes an encoded snapshot event on origin's channel.
func (n *Notifier) PublishSnapshot(ctx context.Context, origin, payload string) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, cache.SnapshotChannel(origin), payload).Err()
}

// StartSnapshotSubscriber subscribes to origin's snapshot channel and calls
// onMessage for each payload until ctx is cancelled.
func (n *Notifier) StartSnapshotSubscriber(ctx context.Context, origin string, onMessage func(payload string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, cache.SnapshotChannel(origin))
	// Wait for the subscription to be confirmed so no publish is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.Logger.Error("panic in snapshot subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
