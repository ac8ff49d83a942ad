package bootstrap

import (
	"context"
	"testing"
	"time"

	"letsblog/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:               "8375",
		Env:                "test",
		LogLevel:           "error",
		JWTSecret:          "test-secret-that-is-long-enough-for-hs256",
		TracingExporter:    "stdout",
		TracingSampleRatio: 1,
	}
}

func TestInitRuntimeWithoutRedis(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.RedisURL = "127.0.0.1:1"
	cfg.SeedDemoPosts = 4

	rt, err := InitRuntime(ctx, cfg, Options{SeedValue: 3})
	require.NoError(t, err)
	defer rt.Close(ctx)

	assert.Nil(t, rt.Redis)
	assert.False(t, rt.Notifier.Enabled())

	posts, err := rt.Store.Posts(ctx)
	require.NoError(t, err)
	assert.Len(t, posts, 4)
	assert.Nil(t, rt.Store.Session(ctx))

	srv, err := rt.NewServer()
	require.NoError(t, err)
	assert.NotNil(t, srv.App())
}

func TestInitRuntimeWithRedisPublishesSnapshots(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	cfg := testConfig()
	cfg.RedisURL = mr.Addr()
	cfg.FeatureFlags = "one_vote_per_user=on"

	rt, err := InitRuntime(ctx, cfg, Options{})
	require.NoError(t, err)
	defer rt.Close(ctx)

	require.NotNil(t, rt.Redis)
	assert.True(t, rt.Flags.Enabled("one_vote_per_user", "anyone"))

	payloads := make(chan string, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	require.NoError(t, rt.Notifier.StartSnapshotSubscriber(subCtx, rt.Publisher.Origin(), func(p string) {
		payloads <- p
	}))

	_, err = rt.Store.Signup(ctx, "alice", "pw")
	require.NoError(t, err)

	select {
	case payload := <-payloads:
		assert.Contains(t, payload, `"username":"alice"`)
	case <-time.After(time.Second):
		t.Fatal("snapshot not published")
	}
}

func TestInitRuntimeSeedOverride(t *testing.T) {
	ctx := context.Background()
	rt, err := InitRuntime(ctx, testConfig(), Options{SeedPosts: 2, SeedValue: 9, SkipRedis: true})
	require.NoError(t, err)
	defer rt.Close(ctx)

	posts, err := rt.Store.Posts(ctx)
	require.NoError(t, err)
	assert.Len(t, posts, 2)
}
