package notifications

import (
	"context"
	"encoding/json"

	"letsblog/internal/models"
	"letsblog/internal/observability"

	"github.com/google/uuid"
)

// EventSnapshot is the type of events carrying a store snapshot.
const EventSnapshot = "snapshot"

// Event is the JSON envelope sent to websocket clients.
type Event struct {
	Type    string           `json:"type"`
	Origin  string           `json:"origin"`
	Payload *models.Snapshot `json:"payload"`
}

// SnapshotPublisher receives store snapshots and fans them out. With Redis
// it publishes to its origin's channel and lets the hub wired to that origin
// deliver; without Redis it broadcasts to the local hub directly.
type SnapshotPublisher struct {
	hub      *Hub
	notifier *Notifier
	origin   string
}

// NewSnapshotPublisher creates a publisher for hub and notifier. Either may be nil.
func NewSnapshotPublisher(hub *Hub, notifier *Notifier) *SnapshotPublisher {
	return &SnapshotPublisher{hub: hub, notifier: notifier, origin: uuid.NewString()}
}

// Origin identifies this process in published events.
func (p *SnapshotPublisher) Origin() string { return p.origin }

// Encode wraps snap in an event envelope.
func (p *SnapshotPublisher) Encode(snap *models.Snapshot) ([]byte, error) {
	return json.Marshal(Event{Type: EventSnapshot, Origin: p.origin, Payload: snap})
}

// Publish delivers snap. Failures are logged; the store has already
// committed the change.
func (p *SnapshotPublisher) Publish(ctx context.Context, snap *models.Snapshot) {
	data, err := p.Encode(snap)
	if err != nil {
		observability.Logger.ErrorContext(ctx, "failed to encode snapshot", "error", err)
		return
	}

	if p.notifier.Enabled() {
		err := p.notifier.PublishSnapshot(ctx, p.origin, string(data))
		if err == nil {
			observability.SnapshotsPublished.WithLabelValues("redis").Inc()
			return
		}
		observability.Logger.WarnContext(ctx, "failed to publish snapshot to redis, falling back to local hub",
			"error", err, "sequence", snap.Sequence)
	}

	if p.hub != nil {
		p.hub.BroadcastAll(string(data))
		observability.SnapshotsPublished.WithLabelValues("hub").Inc()
	}
}
