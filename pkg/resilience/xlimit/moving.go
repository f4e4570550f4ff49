package xlimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// MovingWindow 滑动窗口计数
//
// 每个键一个有序集合，成员是唯一标记，分数是事件时间（毫秒）。
// 窗口始终紧跟当前时间，任意 window 长度的区间内计数不超过记录的事件数，
// 代价是每个事件占用一个成员。
type MovingWindow struct {
	*storage
}

var _ Counter = (*MovingWindow)(nil)

// NewMovingWindow 创建滑动窗口计数器
func NewMovingWindow(h Handles, opts ...Option) (*MovingWindow, error) {
	s, err := newStorage(h, algorithmMoving, opts)
	if err != nil {
		return nil, err
	}
	return &MovingWindow{storage: s}, nil
}

// Incr 清理过期条目后追加 amount 个条目，返回追加后的条目数
//
// 不做上限判断；需要"未超限才追加"语义时使用 AcquireEntry。
func (m *MovingWindow) Incr(ctx context.Context, key Key, amount int64) (int64, error) {
	if err := validateIncr(key, amount); err != nil {
		return 0, err
	}

	var count int64
	err := m.observe(ctx, opIncr, &key, func(ctx context.Context) error {
		client, err := m.primary()
		if err != nil {
			return err
		}
		res, err := getScripts().movingIncr.Run(ctx, client,
			[]string{key.storageKey(m.opts.keyPrefix)},
			m.scriptArgs(key, amount)...,
		).Result()
		if err != nil {
			return err
		}
		count, err = toInt64(res)
		return err
	})
	return count, err
}

// AcquireEntry 原子地清理、计数，未超过 limit 时追加 amount 个条目
//
// 返回是否追加成功。amount 大于 limit 时总是返回 false。
func (m *MovingWindow) AcquireEntry(ctx context.Context, key Key, limit, amount int64) (bool, error) {
	if err := validateIncr(key, amount); err != nil {
		return false, err
	}
	if limit < 1 {
		return false, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}

	var acquired bool
	err := m.observe(ctx, opAcquireEntry, &key, func(ctx context.Context) error {
		client, err := m.primary()
		if err != nil {
			return err
		}
		res, err := getScripts().movingAcquire.Run(ctx, client,
			[]string{key.storageKey(m.opts.keyPrefix)},
			append(m.scriptArgs(key, amount), limit)...,
		).Result()
		if err != nil {
			return err
		}
		ok, _, err := toPair(res)
		acquired = ok == 1
		return err
	})
	return acquired, err
}

// scriptArgs 返回写脚本的公共参数：当前时间、窗口、过期分界、成员前缀、数量
func (m *MovingWindow) scriptArgs(key Key, amount int64) []any {
	now := m.now().UnixMilli()
	window := key.windowMillis()
	return []any{now, window, now - window, uuid.NewString(), amount}
}

// windowMin 返回窗口下界（不含），分数不大于该值的条目已过期
func (m *MovingWindow) windowMin(key Key) string {
	return "(" + strconv.FormatInt(m.now().UnixMilli()-key.windowMillis(), 10)
}

// Get 统计窗口内的条目数，不修改状态
//
// 过期条目不计入，但不在读路径上删除，由下一次写入或 TTL 清理。
func (m *MovingWindow) Get(ctx context.Context, key Key) (int64, error) {
	if err := key.Validate(); err != nil {
		return 0, err
	}

	var count int64
	err := m.observe(ctx, opGet, &key, func(ctx context.Context) error {
		client, err := m.replica()
		if err != nil {
			return err
		}
		count, err = client.ZCount(ctx, key.storageKey(m.opts.keyPrefix), m.windowMin(key), "+inf").Result()
		return err
	})
	return count, err
}

// WindowStats 返回窗口内最早条目的时间和条目数
//
// 窗口为空时 start 为当前时间。
func (m *MovingWindow) WindowStats(ctx context.Context, key Key) (start time.Time, count int64, err error) {
	if err := key.Validate(); err != nil {
		return time.Time{}, 0, err
	}

	err = m.observe(ctx, opWindowStats, &key, func(ctx context.Context) error {
		client, err := m.replica()
		if err != nil {
			return err
		}
		storageKey := key.storageKey(m.opts.keyPrefix)
		minScore := m.windowMin(key)

		var oldest *redis.ZSliceCmd
		var total *redis.IntCmd
		if _, err := client.Pipelined(ctx, func(p redis.Pipeliner) error {
			oldest = p.ZRangeByScoreWithScores(ctx, storageKey, &redis.ZRangeBy{
				Min: minScore, Max: "+inf", Offset: 0, Count: 1,
			})
			total = p.ZCount(ctx, storageKey, minScore, "+inf")
			return nil
		}); err != nil {
			return err
		}

		count = total.Val()
		start = m.now()
		if zs := oldest.Val(); len(zs) > 0 {
			start = time.UnixMilli(int64(zs[0].Score))
		}
		return nil
	})
	return start, count, err
}

// GetExpiry 返回集合的过期时间，即最新条目的时间加一个窗口
func (m *MovingWindow) GetExpiry(ctx context.Context, key Key) (time.Time, error) {
	if err := key.Validate(); err != nil {
		return time.Time{}, err
	}

	var at time.Time
	err := m.observe(ctx, opGetExpiry, &key, func(ctx context.Context) error {
		var err error
		at, err = m.expiry(ctx, key.storageKey(m.opts.keyPrefix), m.now())
		return err
	})
	return at, err
}

// Clear 删除集合
func (m *MovingWindow) Clear(ctx context.Context, key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}

	return m.observe(ctx, opClear, &key, func(ctx context.Context) error {
		client, err := m.primary()
		if err != nil {
			return err
		}
		return client.Del(ctx, key.storageKey(m.opts.keyPrefix)).Err()
	})
}
