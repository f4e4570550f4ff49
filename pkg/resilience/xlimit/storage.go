package xlimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xlimitstore/internal/storageopt"
	"github.com/omeyang/xlimitstore/pkg/observability/xlog"
	"github.com/omeyang/xlimitstore/pkg/observability/xmetrics"
)

// Counter 限流计数存储
//
// 两种算法实现同一契约。Incr 只记录并返回计数，是否超限由调用方判断。
// 除 Check 外，所有操作都原样返回驱动错误，不重试；
// 被取消或超时的 Incr 应视为未获取。
type Counter interface {
	// Incr 在主节点原子地记录 amount 次事件，返回记录后的计数
	Incr(ctx context.Context, key Key, amount int64) (int64, error)

	// Get 在从节点读取当前计数，不修改状态
	Get(ctx context.Context, key Key) (int64, error)

	// GetExpiry 返回当前记录清空的时间，记录不存在时返回当前时间
	GetExpiry(ctx context.Context, key Key) (time.Time, error)

	// Clear 在主节点删除键的全部状态
	Clear(ctx context.Context, key Key) error

	// Reset 删除前缀下的所有键，返回删除的键数
	Reset(ctx context.Context) (int64, error)

	// Check 探测从节点（无从节点时探测主节点），任何失败都返回 false
	Check(ctx context.Context) bool
}

// 算法名，用于指标、日志和追踪
const (
	algorithmFixed  = "fixed"
	algorithmMoving = "moving"
)

// 操作名
const (
	opIncr          = "incr"
	opGet           = "get"
	opGetExpiry     = "get_expiry"
	opClear         = "clear"
	opReset         = "reset"
	opAcquireEntry  = "acquire_entry"
	opWindowStats   = "window_stats"
	componentXLimit = "xlimit"
)

// storage 两种算法共享的部分：句柄获取、观测、过期时间、Reset、Check
type storage struct {
	handles   Handles
	opts      *options
	metrics   *Metrics
	health    storageopt.HealthCounter
	algorithm string
}

func newStorage(h Handles, algorithm string, opts []Option) (*storage, error) {
	if h == nil {
		return nil, ErrNilHandles
	}

	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	if o.keyPrefix == "" {
		return nil, ErrEmptyKeyPrefix
	}

	metrics, err := NewMetrics(o.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("xlimit: create metrics: %w", err)
	}

	return &storage{
		handles:   h,
		opts:      o,
		metrics:   metrics,
		algorithm: algorithm,
	}, nil
}

func (s *storage) now() time.Time {
	return s.opts.clock()
}

func (s *storage) primary() (redis.UniversalClient, error) {
	if c := s.handles.Primary(); c != nil {
		return c, nil
	}
	return nil, fmt.Errorf("%w: primary", ErrNilHandles)
}

func (s *storage) replica() (redis.UniversalClient, error) {
	if c := s.handles.Replica(); c != nil {
		return c, nil
	}
	if c := s.handles.Primary(); c != nil {
		return c, nil
	}
	return nil, fmt.Errorf("%w: replica", ErrNilHandles)
}

// observe 为一次操作创建追踪跨度并记录指标和日志
func (s *storage) observe(ctx context.Context, op string, key *Key, fn func(ctx context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	attrs := []xmetrics.Attr{xmetrics.String("algorithm", s.algorithm)}
	if key != nil {
		attrs = append(attrs, xmetrics.String("key", key.String()))
	}
	ctx, span := xmetrics.Start(ctx, s.opts.observer, xmetrics.SpanOptions{
		Component: componentXLimit,
		Operation: op,
		Kind:      xmetrics.KindClient,
		Attrs:     attrs,
	})

	start := time.Now()
	err := fn(ctx)
	duration := storageopt.MeasureOperation(start)

	span.End(xmetrics.Result{Err: err})
	s.metrics.RecordOperation(ctx, s.algorithm, op, err, duration)

	if err != nil && IsConnectivityError(err) {
		logAttrs := []slog.Attr{
			xlog.Operation(op),
			xlog.Component(s.algorithm),
			xlog.Duration(duration),
			xlog.Err(err),
		}
		if key != nil {
			logAttrs = append(logAttrs, xlog.Key(key.String()))
		}
		s.opts.logger.Warn(ctx, "xlimit: storage operation failed", logAttrs...)
	}
	return err
}

// expiry 根据 PTTL 计算过期时间，键不存在或无过期时间时返回 now
func (s *storage) expiry(ctx context.Context, storageKey string, now time.Time) (time.Time, error) {
	client, err := s.replica()
	if err != nil {
		return time.Time{}, err
	}
	ttl, err := client.PTTL(ctx, storageKey).Result()
	if err != nil {
		return time.Time{}, err
	}
	if ttl <= 0 {
		return now, nil
	}
	return now.Add(ttl), nil
}

// Reset 删除前缀下的所有键，返回删除的键数
//
// 设计决策: 使用 SCAN + DEL 而不是 KEYS，避免大键空间下阻塞主节点。
// SCAN 可能重复返回同一个键，DEL 的返回值只统计实际删除的键，计数不会重复。
func (s *storage) Reset(ctx context.Context) (int64, error) {
	var removed int64
	err := s.observe(ctx, opReset, nil, func(ctx context.Context) error {
		client, err := s.primary()
		if err != nil {
			return err
		}

		pattern := escapeGlob(s.opts.keyPrefix) + "*"
		var cursor uint64
		for {
			keys, next, err := client.Scan(ctx, cursor, pattern, s.opts.scanCount).Result()
			if err != nil {
				return err
			}
			if len(keys) > 0 {
				n, err := client.Del(ctx, keys...).Result()
				if err != nil {
					return err
				}
				removed += n
			}
			cursor = next
			if cursor == 0 {
				return nil
			}
		}
	})
	return removed, err
}

// Check 探测从节点，超时以 Handles 的 Timeout() 或 WithHealthTimeout 为准
func (s *storage) Check(ctx context.Context) (healthy bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	defer func() {
		if r := recover(); r != nil {
			s.opts.logger.Error(ctx, "xlimit: health check panic recovered")
			healthy = false
		}
		s.metrics.RecordHealthCheck(ctx, s.algorithm, healthy)
	}()

	s.health.IncPing()
	client, err := s.replica()
	if err != nil {
		s.health.IncPingError()
		return false
	}

	hctx, cancel := storageopt.HealthContext(ctx, s.healthTimeout())
	defer cancel()
	if err := client.Ping(hctx).Err(); err != nil {
		s.health.IncPingError()
		s.opts.logger.Debug(ctx, "xlimit: health check failed",
			xlog.Component(s.algorithm), xlog.Err(err))
		return false
	}

	s.health.MarkSuccess(time.Now())
	return true
}

func (s *storage) healthTimeout() time.Duration {
	if tp, ok := s.handles.(timeoutProvider); ok {
		if d := tp.Timeout(); d > 0 {
			return d
		}
	}
	return s.opts.healthTimeout
}

// HealthStats 返回健康检查统计
func (s *storage) HealthStats() storageopt.HealthStats {
	return s.health.Snapshot()
}

// validateIncr 校验 Incr/AcquireEntry 的公共参数
func validateIncr(key Key, amount int64) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if amount < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	return nil
}

// isNil 判断是否为键不存在
func isNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
