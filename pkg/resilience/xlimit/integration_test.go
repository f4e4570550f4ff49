//go:build integration

package xlimit

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// uniquePrefix 生成唯一测试前缀，避免测试间的状态干扰
func uniquePrefix(base string) string {
	return fmt.Sprintf("%s:%d:%d:", base, time.Now().UnixNano(), rand.Int63())
}

// =============================================================================
// 测试环境设置
// =============================================================================

func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	if addr := os.Getenv("XLIMITSTORE_REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			t.Skipf("无法连接到 Redis %s: %v", addr, err)
		}
		return client, func() { _ = client.Close() }
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "redis:7.2-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("redis container not available: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("redis host failed: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("redis port failed: %v", err)
	}

	addr := fmt.Sprintf("%s:%s", host, port.Port())
	client := redis.NewClient(&redis.Options{Addr: addr})
	return client, func() {
		_ = client.Close()
		_ = container.Terminate(ctx)
	}
}

// =============================================================================
// 真实 Redis 上的计数语义
// =============================================================================

func TestIntegration_FixedWindow(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, WarmupScripts(ctx, client))

	f, err := NewFixedWindow(Direct(client), WithKeyPrefix(uniquePrefix("it-fixed")))
	require.NoError(t, err)

	key := Key{Namespace: "it", Identifier: "fixed", Window: time.Minute}
	for i := int64(1); i <= 5; i++ {
		n, err := f.Incr(ctx, key, 1)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	at, err := f.GetExpiry(ctx, key)
	require.NoError(t, err)
	assert.True(t, at.After(time.Now()))

	removed, err := f.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.True(t, f.Check(ctx))
}

func TestIntegration_MovingWindowAtomicAcquire(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()
	ctx := context.Background()

	m, err := NewMovingWindow(Direct(client), WithKeyPrefix(uniquePrefix("it-moving")))
	require.NoError(t, err)
	defer func() { _, _ = m.Reset(ctx) }()

	key := Key{Namespace: "it", Identifier: "moving", Window: time.Minute}
	const callers, limit = 50, 20

	var mu sync.Mutex
	acquired := 0
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			ok, err := m.AcquireEntry(ctx, key, limit, 1)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				acquired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, limit, acquired)

	start, count, err := m.WindowStats(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(limit), count)
	assert.False(t, start.After(time.Now()))
}
