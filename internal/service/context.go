package service

import (
	"context"

	"letsblog/internal/models"
)

type actorKey struct{}

type snapshotSlotKey struct{}

type snapshotSlot struct {
	snap *models.Snapshot
}

// WithActor marks ctx as acting for username. Operations that need a session
// then fail with Unauthenticated unless username still holds the session when
// they run, so a login by someone else between authentication and the call
// cannot redirect it.
func WithActor(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, actorKey{}, username)
}

func actorFrom(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(actorKey{}).(string)
	return username, ok && username != ""
}

// CaptureSnapshot returns a context under which a successful mutating call
// records the snapshot it publishes, and a getter for it. The getter returns
// nil until such a call completes.
func CaptureSnapshot(ctx context.Context) (context.Context, func() *models.Snapshot) {
	slot := &snapshotSlot{}
	return context.WithValue(ctx, snapshotSlotKey{}, slot), func() *models.Snapshot { return slot.snap }
}

func recordSnapshot(ctx context.Context, snap *models.Snapshot) {
	if slot, ok := ctx.Value(snapshotSlotKey{}).(*snapshotSlot); ok {
		slot.snap = snap
	}
}
