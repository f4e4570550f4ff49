//nolint:errcheck // 测试文件中的 Close() 允许忽略错误
package xlimit

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xlimitstore/pkg/observability/xlog"
)

// baseTime 与秒对齐，便于推算固定窗口的桶
var baseTime = time.UnixMilli(1_700_000_000_000)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return mr, client
}

// deadClient 指向无人监听的地址
func deadClient(t *testing.T) redis.UniversalClient {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(at time.Time) *fakeClock {
	return &fakeClock{now: at}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set 设置为 baseTime + offset
func (c *fakeClock) Set(offset time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = baseTime.Add(offset)
}

// splitHandles 主从分离的句柄
type splitHandles struct {
	primary redis.UniversalClient
	replica redis.UniversalClient
	timeout time.Duration
}

func (h splitHandles) Primary() redis.UniversalClient { return h.primary }
func (h splitHandles) Replica() redis.UniversalClient { return h.replica }

// timedHandles 额外提供 Timeout()
type timedHandles struct {
	splitHandles
}

func (h timedHandles) Timeout() time.Duration { return h.timeout }

func testOptions(clock *fakeClock, extra ...Option) []Option {
	return append([]Option{WithClock(clock.Now), WithLogger(xlog.Discard())}, extra...)
}
