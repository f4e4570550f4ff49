package xlimit

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/omeyang/xlimitstore/pkg/observability/xlog"
	"github.com/omeyang/xlimitstore/pkg/util/xpool"
)

// =============================================================================
// Future
// =============================================================================

// Future 异步操作的结果
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// resolve 只能调用一次
func (f *Future[T]) resolve(val T, err error) {
	f.val, f.err = val, err
	close(f.done)
}

// Done 返回结果就绪时关闭的 channel
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait 等待结果，ctx 先结束时返回 ctx 错误
//
// ctx 结束不会取消已提交的操作，操作本身受提交时的 ctx 控制。
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// =============================================================================
// Async
// =============================================================================

// Async 在 worker pool 上执行 Counter 操作
//
// 与直接调用 Counter 的计数结果完全一致，区别只在于调用方不阻塞，
// 适合在事件循环或需要同时发起多个计数请求的场景使用。
// 队列满时 Future 立即以 ErrAsyncRejected 完成，关闭后以 ErrClosed 完成。
type Async struct {
	counter Counter
	pool    *xpool.Pool[func()]
}

// AsyncOption Async 配置选项
type AsyncOption func(*asyncOptions)

type asyncOptions struct {
	workers   int
	queueSize int
	logger    xlog.Logger
}

// WithAsyncWorkers 设置 worker 数量，默认为 GOMAXPROCS
func WithAsyncWorkers(n int) AsyncOption {
	return func(o *asyncOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithAsyncQueueSize 设置队列容量，默认为 1024
func WithAsyncQueueSize(n int) AsyncOption {
	return func(o *asyncOptions) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithAsyncLogger 设置 worker pool 的日志记录器
func WithAsyncLogger(logger xlog.Logger) AsyncOption {
	return func(o *asyncOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewAsync 创建异步绑定，使用完毕后需调用 Close
func NewAsync(counter Counter, opts ...AsyncOption) (*Async, error) {
	if counter == nil {
		return nil, ErrNilCounter
	}

	o := asyncOptions{
		workers:   runtime.GOMAXPROCS(0),
		queueSize: 1024,
		logger:    xlog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	pool, err := xpool.New(o.workers, o.queueSize, func(task func()) { task() },
		xpool.WithName("xlimit-async"), xpool.WithLogger(o.logger))
	if err != nil {
		return nil, fmt.Errorf("xlimit: create async pool: %w", err)
	}
	return &Async{counter: counter, pool: pool}, nil
}

// submit 提交操作，提交失败时 Future 立即完成
func submit[T any](a *Async, op func() (T, error)) *Future[T] {
	f := newFuture[T]()
	err := a.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.resolve(zero, fmt.Errorf("xlimit: async operation panic: %v", r))
			}
		}()
		val, err := op()
		f.resolve(val, err)
	})
	switch {
	case err == nil:
	case errors.Is(err, xpool.ErrQueueFull):
		var zero T
		f.resolve(zero, ErrAsyncRejected)
	default:
		var zero T
		f.resolve(zero, ErrClosed)
	}
	return f
}

// Counter 返回被包装的计数器
func (a *Async) Counter() Counter {
	return a.counter
}

// Incr 异步执行 Counter.Incr
func (a *Async) Incr(ctx context.Context, key Key, amount int64) *Future[int64] {
	return submit(a, func() (int64, error) { return a.counter.Incr(ctx, key, amount) })
}

// Get 异步执行 Counter.Get
func (a *Async) Get(ctx context.Context, key Key) *Future[int64] {
	return submit(a, func() (int64, error) { return a.counter.Get(ctx, key) })
}

// GetExpiry 异步执行 Counter.GetExpiry
func (a *Async) GetExpiry(ctx context.Context, key Key) *Future[time.Time] {
	return submit(a, func() (time.Time, error) { return a.counter.GetExpiry(ctx, key) })
}

// Clear 异步执行 Counter.Clear
func (a *Async) Clear(ctx context.Context, key Key) *Future[struct{}] {
	return submit(a, func() (struct{}, error) { return struct{}{}, a.counter.Clear(ctx, key) })
}

// Reset 异步执行 Counter.Reset
func (a *Async) Reset(ctx context.Context) *Future[int64] {
	return submit(a, func() (int64, error) { return a.counter.Reset(ctx) })
}

// Check 异步执行 Counter.Check，只有提交失败时 Future 带错误
func (a *Async) Check(ctx context.Context) *Future[bool] {
	return submit(a, func() (bool, error) { return a.counter.Check(ctx), nil })
}

// Close 停止接收新操作，并等待已提交的操作完成
func (a *Async) Close() error {
	return a.pool.Close()
}

// Shutdown 同 Close，ctx 到期时提前返回，剩余操作在后台继续执行
func (a *Async) Shutdown(ctx context.Context) error {
	return a.pool.Shutdown(ctx)
}
