package xsentinel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/omeyang/xlimitstore/internal/storageopt"
	"github.com/omeyang/xlimitstore/pkg/observability/xlog"
)

// Router 持有主、从连接句柄并跟踪可达状态。
//
// Router 是并发安全的。句柄在构造后不再替换，主从切换由 failover 客户端处理。
type Router struct {
	topo    *Topology
	opts    *options
	metrics *routerMetrics

	primary redis.UniversalClient
	replica redis.UniversalClient

	state  atomic.Int32
	closed atomic.Bool
	probes singleflight.Group
}

// Open 解析 uri 并创建 Router。解析参数通过 WithParseOptions 传入。
func Open(ctx context.Context, uri string, opts ...Option) (*Router, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	topo, err := Parse(uri, o.parseOptions...)
	if err != nil {
		return nil, err
	}
	return NewRouter(ctx, topo, opts...)
}

// NewRouter 根据拓扑创建 Router。
//
// 错误：
//   - ErrNilTopology: topo 为 nil
//   - ErrDriverUnavailable: 驱动特性检测失败
//   - ErrNoReachableNode: 发现失败，或主从句柄都不可达，
//     或 ctx 在首次探测完成前结束（同时包装 ctx.Err()）
func NewRouter(ctx context.Context, topo *Topology, opts ...Option) (*Router, error) {
	if topo == nil {
		return nil, ErrNilTopology
	}
	if ctx == nil {
		ctx = context.Background()
	}

	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.connector == nil {
		o.connector = SentinelConnector{Logger: o.logger}
	}

	if err := o.driverCheck(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDriverUnavailable, err)
	}

	metrics, err := newRouterMetrics(o.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("xsentinel: create metrics: %w", err)
	}

	r := &Router{topo: topo, opts: o, metrics: metrics}
	r.transition(ctx, StateDiscovering)

	primary, replica, err := o.connector.Connect(ctx, topo)
	if err != nil {
		r.transition(ctx, StateFailed)
		if !errors.Is(err, ErrConfiguration) {
			err = fmt.Errorf("%w: %w", ErrNoReachableNode, err)
		}
		return nil, err
	}
	r.primary, r.replica = primary, replica

	switch state := r.Refresh(ctx); state {
	case StateReady, StateDegraded:
		return r, nil
	case StateFailed:
		r.closed.Store(true)
		return nil, errors.Join(
			fmt.Errorf("%w: service %q: primary and replica unreachable", ErrNoReachableNode, topo.ServiceName),
			r.closeClients(),
		)
	default:
		// ctx 在首次探测完成前结束，可达性未确认
		r.closed.Store(true)
		return nil, errors.Join(
			fmt.Errorf("%w: service %q: first ping interrupted in state %s: %w",
				ErrNoReachableNode, topo.ServiceName, state, ctx.Err()),
			r.closeClients(),
		)
	}
}

// Primary 返回写句柄。
func (r *Router) Primary() redis.UniversalClient {
	return r.primary
}

// Replica 返回读句柄。
func (r *Router) Replica() redis.UniversalClient {
	return r.replica
}

// Topology 返回构造时使用的拓扑。
func (r *Router) Topology() *Topology {
	return r.topo
}

// Timeout 返回连接超时，健康检查以此为上限。
func (r *Router) Timeout() time.Duration {
	return r.topo.Options.ConnectTimeout
}

// State 返回最近一次 Refresh 的结果。
func (r *Router) State() State {
	return State(r.state.Load())
}

// Refresh 探测主从句柄并更新状态。Router 关闭后返回 StateFailed。
//
// 并发调用合并为一次探测。ctx 先结束时返回当前状态，探测在后台继续完成。
func (r *Router) Refresh(ctx context.Context) State {
	if ctx == nil {
		ctx = context.Background()
	}
	if r.closed.Load() {
		return StateFailed
	}

	// 探测使用独立的 ctx，首个调用者取消不影响其他等待者，超时由 ping 自身控制
	probeCtx := context.WithoutCancel(ctx)
	ch := r.probes.DoChan("refresh", func() (any, error) {
		primaryUp := r.ping(probeCtx, RolePrimary, r.primary)
		replicaUp := r.ping(probeCtx, RoleReplica, r.replica)
		state := stateFor(primaryUp, replicaUp)
		r.transition(probeCtx, state)
		return state, nil
	})

	select {
	case <-ctx.Done():
		return r.State()
	case res := <-ch:
		if state, ok := res.Val.(State); ok {
			return state
		}
		return r.State()
	}
}

func (r *Router) ping(ctx context.Context, role Role, client redis.UniversalClient) bool {
	if client == nil {
		return false
	}
	pingCtx, cancel := storageopt.HealthContext(ctx, r.Timeout())
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		r.opts.logger.Debug(ctx, "xsentinel: ping failed",
			xlog.Role(string(role)), xlog.Service(r.topo.ServiceName), xlog.Err(err))
		return false
	}
	return true
}

// transition 写入新状态，状态变化时记录日志与指标。
func (r *Router) transition(ctx context.Context, to State) {
	from := State(r.state.Swap(int32(to)))
	if from == to {
		return
	}
	attrs := []slog.Attr{
		xlog.Service(r.topo.ServiceName),
		slog.String("from", from.String()),
		xlog.State(to.String()),
	}
	if to == StateDegraded || to == StateFailed {
		r.opts.logger.Warn(ctx, "xsentinel: router state changed", attrs...)
	} else {
		r.opts.logger.Info(ctx, "xsentinel: router state changed", attrs...)
	}
	r.metrics.recordTransition(ctx, r.topo.ServiceName, from, to)
}

// Close 关闭两个句柄，重复调用返回 nil。
func (r *Router) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	return r.closeClients()
}

func (r *Router) closeClients() error {
	var errs []error
	if r.primary != nil {
		errs = append(errs, r.primary.Close())
	}
	if r.replica != nil && r.replica != r.primary {
		errs = append(errs, r.replica.Close())
	}
	return errors.Join(errs...)
}
