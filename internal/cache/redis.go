// Package cache builds the Redis client shared by the snapshot notifier and
// the rate limiter.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"letsblog/internal/observability"

	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"
)

// Keys and channels used in Redis.
const (
	SnapshotChannelPrefix = "letsblog:snapshots:"
	RateLimitPrefix       = "rl:%s:%s"
	TokenBlacklistKey     = "blacklist:%s"
)

// SnapshotChannel returns the pub/sub channel carrying the snapshots of the
// store identified by origin. Each process owns its store, so each origin
// gets its own channel.
func SnapshotChannel(origin string) string {
	return SnapshotChannelPrefix + origin
}

// RateLimitKey returns the counter key for resource and caller id.
func RateLimitKey(resource, id string) string {
	return fmt.Sprintf(RateLimitPrefix, resource, id)
}

// BlacklistKey returns the key marking a revoked token id.
func BlacklistKey(jti string) string {
	return fmt.Sprintf(TokenBlacklistKey, jti)
}

type metricsHook struct{}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// ParseOptions accepts either a plain host:port or a redis:// / rediss:// URL.
func ParseOptions(raw string) (*redis.Options, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty redis address")
	}

	var opts *redis.Options
	if strings.Contains(raw, "://") {
		parsed, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL %q: %w", raw, err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: raw}
	}
	// Servers without the CLIENT MAINT_NOTIFICATIONS subcommand reject the handshake.
	opts.MaintNotificationsConfig = &maintnotifications.Config{Mode: maintnotifications.ModeDisabled}
	return opts, nil
}

// Connect builds a client for raw and pings it. On any failure it returns a
// nil client and the error; callers continue without Redis.
func Connect(ctx context.Context, raw string) (*redis.Client, error) {
	opts, err := ParseOptions(raw)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	client.AddHook(metricsHook{})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	observability.Logger.InfoContext(ctx, "Redis connected successfully", "addr", opts.Addr)
	return client, nil
}

// Close closes client if it is non-nil.
func Close(client *redis.Client) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		observability.Logger.Error("Error closing Redis", "error", err)
	}
}
