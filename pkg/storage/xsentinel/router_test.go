package xsentinel

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/omeyang/xlimitstore/pkg/observability/xlog"
	"github.com/omeyang/xlimitstore/pkg/resilience/xlimit"
)

// fakeConnector 返回预先创建的句柄，替代 sentinel 发现。
type fakeConnector struct {
	primary redis.UniversalClient
	replica redis.UniversalClient
	err     error
	calls   int
}

func (f *fakeConnector) Connect(context.Context, *Topology) (redis.UniversalClient, redis.UniversalClient, error) {
	f.calls++
	return f.primary, f.replica, f.err
}

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newDeadClient(t *testing.T) redis.UniversalClient {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        closedAddr(t),
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// newSilentClient 连接到只接受连接、从不应答的监听器，PING 阻塞到读超时。
func newSilentClient(t *testing.T) redis.UniversalClient {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})

	client := redis.NewClient(&redis.Options{
		Addr:        ln.Addr().String(),
		ReadTimeout: 300 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func testTopology(t *testing.T) *Topology {
	t.Helper()
	topo, err := Parse("redis+sentinel://h1:26379/svc?connection_timeout=100ms")
	require.NoError(t, err)
	return topo
}

func TestNewRouter_Ready(t *testing.T) {
	_, primary := newMiniredisClient(t)
	_, replica := newMiniredisClient(t)
	conn := &fakeConnector{primary: primary, replica: replica}

	r, err := NewRouter(context.Background(), testTopology(t),
		WithConnector(conn), WithLogger(xlog.Discard()))
	require.NoError(t, err)

	assert.Equal(t, StateReady, r.State())
	assert.Same(t, primary, r.Primary())
	assert.Same(t, replica, r.Replica())
	assert.Equal(t, 100*time.Millisecond, r.Timeout())
	assert.Equal(t, "svc", r.Topology().ServiceName)
	assert.Equal(t, 1, conn.calls)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, StateFailed, r.Refresh(context.Background()))
}

func TestNewRouter_DegradedServesReads(t *testing.T) {
	mr, replica := newMiniredisClient(t)
	require.NoError(t, mr.Set("k", "7"))

	r, err := NewRouter(context.Background(), testTopology(t),
		WithConnector(&fakeConnector{primary: newDeadClient(t), replica: replica}),
		WithLogger(xlog.Discard()))
	require.NoError(t, err)

	assert.Equal(t, StateDegraded, r.State())

	v, err := r.Replica().Get(context.Background(), "k").Result()
	require.NoError(t, err)
	assert.Equal(t, "7", v)

	// 写操作透传驱动错误，不排队
	assert.Error(t, r.Primary().Set(context.Background(), "k", "8", 0).Err())
}

func TestNewRouter_PrimaryOnlyIsReady(t *testing.T) {
	_, primary := newMiniredisClient(t)

	r, err := NewRouter(context.Background(), testTopology(t),
		WithConnector(&fakeConnector{primary: primary, replica: newDeadClient(t)}),
		WithLogger(xlog.Discard()))
	require.NoError(t, err)
	assert.Equal(t, StateReady, r.State())
}

func TestNewRouter_AllUnreachable(t *testing.T) {
	_, err := NewRouter(context.Background(), testTopology(t),
		WithConnector(&fakeConnector{primary: newDeadClient(t), replica: newDeadClient(t)}),
		WithLogger(xlog.Discard()))
	assert.ErrorIs(t, err, ErrNoReachableNode)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestNewRouter_ConnectorError(t *testing.T) {
	boom := errors.New("dial failed")
	_, err := NewRouter(context.Background(), testTopology(t),
		WithConnector(&fakeConnector{err: boom}), WithLogger(xlog.Discard()))
	assert.ErrorIs(t, err, ErrNoReachableNode)
	assert.ErrorIs(t, err, boom)

	_, err = NewRouter(context.Background(), testTopology(t),
		WithConnector(&fakeConnector{err: ErrInvalidOption}), WithLogger(xlog.Discard()))
	assert.ErrorIs(t, err, ErrInvalidOption)
	assert.NotErrorIs(t, err, ErrNoReachableNode)
}

func TestNewRouter_DriverCheck(t *testing.T) {
	conn := &fakeConnector{}
	_, err := NewRouter(context.Background(), testTopology(t),
		WithConnector(conn),
		WithDriverCheck(func() error { return errors.New("missing") }),
		WithLogger(xlog.Discard()))
	assert.ErrorIs(t, err, ErrDriverUnavailable)
	assert.Zero(t, conn.calls)

	assert.NoError(t, redisDriverCheck())
}

func TestNewRouter_ContextEndsBeforeFirstPing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := NewRouter(ctx, testTopology(t),
		WithConnector(&fakeConnector{primary: newSilentClient(t), replica: newSilentClient(t)}),
		WithLogger(xlog.Discard()))
	assert.Nil(t, r)
	assert.ErrorIs(t, err, ErrNoReachableNode)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRouter_NilTopology(t *testing.T) {
	_, err := NewRouter(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilTopology)
}

func TestOpen_InvalidURI(t *testing.T) {
	_, err := Open(context.Background(), "redis://localhost:6379")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestOpen_ServiceNameOption(t *testing.T) {
	_, primary := newMiniredisClient(t)
	_, replica := newMiniredisClient(t)
	conn := &fakeConnector{primary: primary, replica: replica}

	_, err := Open(context.Background(), "redis+sentinel://h1:26379",
		WithConnector(conn), WithLogger(xlog.Discard()))
	assert.ErrorIs(t, err, ErrServiceNameMissing)

	r, err := Open(context.Background(), "redis+sentinel://h1:26379",
		WithParseOptions(WithServiceName("svc")),
		WithConnector(conn), WithLogger(xlog.Discard()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	assert.Equal(t, "svc", r.Topology().ServiceName)
	assert.Equal(t, StateReady, r.State())
}

func TestRouter_ServesCounter(t *testing.T) {
	primaryMR, primary := newMiniredisClient(t)
	_, replica := newMiniredisClient(t)

	r, err := NewRouter(context.Background(), testTopology(t),
		WithConnector(&fakeConnector{primary: primary, replica: replica}),
		WithLogger(xlog.Discard()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	var _ xlimit.Handles = r
	f, err := xlimit.NewFixedWindow(r, xlimit.WithLogger(xlog.Discard()))
	require.NoError(t, err)

	ctx := context.Background()
	key := xlimit.Key{Namespace: "api", Identifier: "t1", Window: time.Minute}
	n, err := f.Incr(ctx, key, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// 写入走主节点
	keys := primaryMR.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], "ratelimit:api:t1:60000:")

	// 读取和健康检查走从节点，从节点没有复制数据
	n, err = f.Get(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, f.Check(ctx))
}

func TestRouter_RefreshTransitions(t *testing.T) {
	primaryMR, primary := newMiniredisClient(t)
	replicaMR, replica := newMiniredisClient(t)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	r, err := NewRouter(context.Background(), testTopology(t),
		WithConnector(&fakeConnector{primary: primary, replica: replica}),
		WithLogger(xlog.Discard()),
		WithMeterProvider(mp))
	require.NoError(t, err)
	ctx := context.Background()

	primaryMR.Close()
	assert.Equal(t, StateDegraded, r.Refresh(ctx))

	replicaMR.Close()
	assert.Equal(t, StateFailed, r.Refresh(ctx))
	assert.Equal(t, StateFailed, r.State())

	require.NoError(t, replicaMR.Restart())
	assert.Equal(t, StateDegraded, r.Refresh(ctx))

	// UNINITIALIZED→DISCOVERING→READY→DEGRADED→FAILED→DEGRADED
	assert.Equal(t, int64(5), collectSum(t, reader, metricNameStateTransitions))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "UNINITIALIZED", StateUninitialized.String())
	assert.Equal(t, "DISCOVERING", StateDiscovering.String())
	assert.Equal(t, "READY", StateReady.String())
	assert.Equal(t, "DEGRADED", StateDegraded.String())
	assert.Equal(t, "FAILED", StateFailed.String())
	assert.Equal(t, "UNKNOWN", State(42).String())
}

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestRouter_ConcurrentRefresh(t *testing.T) {
	_, primary := newMiniredisClient(t)
	_, replica := newMiniredisClient(t)

	r, err := NewRouter(context.Background(), testTopology(t),
		WithConnector(&fakeConnector{primary: primary, replica: replica}),
		WithLogger(xlog.Discard()))
	require.NoError(t, err)

	var wg sync.WaitGroup
	states := make(chan State, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			states <- r.Refresh(context.Background())
		}()
	}
	wg.Wait()
	close(states)
	for s := range states {
		assert.Equal(t, StateReady, s)
	}

	// 已取消的 ctx 返回当前状态
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, StateReady, r.Refresh(ctx))
}
