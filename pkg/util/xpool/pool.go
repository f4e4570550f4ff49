package xpool

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/omeyang/xlimitstore/pkg/observability/xlog"
)

// 参数上限。
const (
	MaxWorkers   = 1 << 16
	MaxQueueSize = 1 << 24
)

var _ io.Closer = (*Pool[int])(nil)

// Pool 泛型 worker pool。
type Pool[T any] struct {
	handler func(T)
	queue   chan T
	opts    options

	// mu 保护 stopped 与向 queue 发送之间的竞态：
	// Submit 持读锁发送，关闭方持写锁关闭 queue。
	mu      sync.RWMutex
	stopped bool

	closeOnce sync.Once
	done      chan struct{}
	workers   int
}

// New 创建并启动 worker pool。
func New[T any](workers, queueSize int, handler func(T), opts ...Option) (*Pool[T], error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if workers < 1 || workers > MaxWorkers {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkers, workers)
	}
	if queueSize < 1 || queueSize > MaxQueueSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQueueSize, queueSize)
	}

	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	p := &Pool[T]{
		handler: handler,
		queue:   make(chan T, queueSize),
		opts:    o,
		done:    make(chan struct{}),
		workers: workers,
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			p.work()
		}()
	}
	go func() {
		wg.Wait()
		close(p.done)
	}()

	return p, nil
}

// work 只从 queue 读取直到 channel 关闭，关闭时仍会处理完剩余任务。
func (p *Pool[T]) work() {
	for task := range p.queue {
		p.run(task)
	}
}

func (p *Pool[T]) run(task T) {
	defer func() {
		if r := recover(); r != nil {
			p.opts.logger.Error(context.Background(), "xpool: worker panic recovered",
				slog.String("pool", p.opts.name),
				slog.Any("panic", r),
				slog.String("task_type", fmt.Sprintf("%T", task)),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	p.handler(task)
}

// Submit 非阻塞提交任务。
func (p *Pool[T]) Submit(task T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close 停止接收任务，并等待队列中所有任务处理完成。
func (p *Pool[T]) Close() error {
	return p.Shutdown(context.Background())
}

// Shutdown 停止接收任务并等待 worker 退出，ctx 到期时返回 ctx 错误。
func (p *Pool[T]) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}

	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.queue)
		p.mu.Unlock()
	})

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		p.opts.logger.Warn(ctx, "xpool: shutdown interrupted, workers still draining",
			slog.String("pool", p.opts.name),
			xlog.Count(int64(len(p.queue))),
		)
		return ctx.Err()
	}
}

// Done 返回所有 worker 退出后关闭的 channel。
func (p *Pool[T]) Done() <-chan struct{} {
	return p.done
}

// Workers 返回 worker 数量。
func (p *Pool[T]) Workers() int {
	return p.workers
}

// QueueSize 返回队列容量。
func (p *Pool[T]) QueueSize() int {
	return cap(p.queue)
}
