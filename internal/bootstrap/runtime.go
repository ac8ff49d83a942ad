// Package bootstrap assembles the runtime: Redis, tracing, feature flags, the
// snapshot fan-out and the content store, plus optional demo seeding.
package bootstrap

import (
	"context"
	"fmt"

	"letsblog/internal/cache"
	"letsblog/internal/config"
	"letsblog/internal/featureflags"
	"letsblog/internal/notifications"
	"letsblog/internal/observability"
	"letsblog/internal/seed"
	"letsblog/internal/server"
	"letsblog/internal/service"

	"github.com/redis/go-redis/v9"
)

// Version is reported to the tracer.
var Version = "dev"

// Options control runtime initialization behavior.
type Options struct {
	// SeedPosts overrides SEED_DEMO_POSTS when positive.
	SeedPosts int
	// SeedValue fixes the fake data generator; zero means random.
	SeedValue int64
	// SkipRedis runs without Redis regardless of REDIS_URL.
	SkipRedis bool
}

// Runtime holds the long-lived dependencies of the process.
type Runtime struct {
	Config    *config.Config
	Redis     *redis.Client
	Flags     *featureflags.Manager
	Hub       *notifications.Hub
	Notifier  *notifications.Notifier
	Publisher *notifications.SnapshotPublisher
	Store     *service.ContentStore

	shutdownTracing func(context.Context) error
}

// InitRuntime connects to Redis (continuing without it when unreachable),
// starts tracing, builds the store with its snapshot publisher and seeds demo
// content when configured.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	shutdownTracing, err := observability.InitTracing(cfg.TracingConfig("letsblog", Version))
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	rt := &Runtime{
		Config:          cfg,
		Flags:           featureflags.NewManager(cfg.FeatureFlags),
		shutdownTracing: shutdownTracing,
	}

	if !opts.SkipRedis && cfg.RedisURL != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			observability.Logger.WarnContext(ctx, "Redis unavailable, snapshots stay local to this process", "error", err)
		}
		rt.Redis = rdb
	}

	rt.Hub = notifications.NewHub()
	rt.Notifier = notifications.NewNotifier(rt.Redis)
	rt.Publisher = notifications.NewSnapshotPublisher(rt.Hub, rt.Notifier)
	rt.Store = service.NewInMemoryContentStore(
		service.WithObserver(rt.Publisher),
		service.WithFeatureFlags(rt.Flags),
	)

	posts := cfg.SeedDemoPosts
	if opts.SeedPosts > 0 {
		posts = opts.SeedPosts
	}
	if posts > 0 {
		if _, err := seed.Demo(ctx, rt.Store, seed.Options{Posts: posts, Seed: opts.SeedValue}); err != nil {
			rt.Close(ctx)
			return nil, fmt.Errorf("seed demo content: %w", err)
		}
	}

	return rt, nil
}

// NewServer builds the HTTP server over the runtime.
func (rt *Runtime) NewServer() (*server.Server, error) {
	return server.NewServer(rt.Config, server.Deps{
		Store:        rt.Store,
		Redis:        rt.Redis,
		FeatureFlags: rt.Flags,
		Hub:          rt.Hub,
		Notifier:     rt.Notifier,
		Publisher:    rt.Publisher,
	})
}

// Close releases the store, Redis and the tracer.
func (rt *Runtime) Close(ctx context.Context) {
	if rt.Store != nil {
		rt.Store.Close()
	}
	cache.Close(rt.Redis)
	if rt.shutdownTracing != nil {
		if err := rt.shutdownTracing(ctx); err != nil {
			observability.Logger.Error("tracer shutdown failed", "error", err)
		}
	}
}
