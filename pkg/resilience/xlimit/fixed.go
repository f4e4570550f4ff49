package xlimit

import (
	"context"
	"strconv"
	"time"
)

// FixedWindow 固定窗口计数
//
// 每个窗口一个字符串计数器，键为 "<base>:<floor(now/window)>"，
// 桶首次创建时设置过期时间为一个窗口。跨越桶边界时计数从零开始，
// 边界两侧各 limit 次的突发是固定窗口的固有行为。
type FixedWindow struct {
	*storage
}

var _ Counter = (*FixedWindow)(nil)

// NewFixedWindow 创建固定窗口计数器
func NewFixedWindow(h Handles, opts ...Option) (*FixedWindow, error) {
	s, err := newStorage(h, algorithmFixed, opts)
	if err != nil {
		return nil, err
	}
	return &FixedWindow{storage: s}, nil
}

// bucketKey 返回 at 时刻所在桶的存储键
func (f *FixedWindow) bucketKey(key Key, at time.Time) string {
	bucket := at.UnixMilli() / key.windowMillis()
	return key.storageKey(f.opts.keyPrefix) + ":" + strconv.FormatInt(bucket, 10)
}

// Incr 增加当前桶的计数
func (f *FixedWindow) Incr(ctx context.Context, key Key, amount int64) (int64, error) {
	if err := validateIncr(key, amount); err != nil {
		return 0, err
	}

	var count int64
	err := f.observe(ctx, opIncr, &key, func(ctx context.Context) error {
		client, err := f.primary()
		if err != nil {
			return err
		}
		res, err := getScripts().fixedIncr.Run(ctx, client,
			[]string{f.bucketKey(key, f.now())},
			amount, key.windowMillis(),
		).Result()
		if err != nil {
			return err
		}
		count, err = toInt64(res)
		return err
	})
	return count, err
}

// Get 读取当前桶的计数，桶不存在时返回 0
func (f *FixedWindow) Get(ctx context.Context, key Key) (int64, error) {
	if err := key.Validate(); err != nil {
		return 0, err
	}

	var count int64
	err := f.observe(ctx, opGet, &key, func(ctx context.Context) error {
		client, err := f.replica()
		if err != nil {
			return err
		}
		n, err := client.Get(ctx, f.bucketKey(key, f.now())).Int64()
		if isNil(err) {
			return nil
		}
		count = n
		return err
	})
	return count, err
}

// GetExpiry 返回当前桶停止计数的时间
//
// 桶的 TTL 从首次写入算起，窗口后段创建的桶 TTL 会越过桶边界，
// 而计数在边界处已切换到下一个桶，所以结果不晚于桶结束时间。
func (f *FixedWindow) GetExpiry(ctx context.Context, key Key) (time.Time, error) {
	if err := key.Validate(); err != nil {
		return time.Time{}, err
	}

	var at time.Time
	err := f.observe(ctx, opGetExpiry, &key, func(ctx context.Context) error {
		now := f.now()
		expiresAt, err := f.expiry(ctx, f.bucketKey(key, now), now)
		if err != nil {
			return err
		}
		at = expiresAt
		if end := f.bucketEnd(key, now); at.After(end) {
			at = end
		}
		return nil
	})
	return at, err
}

// bucketEnd 返回 at 时刻所在桶的结束时间
func (f *FixedWindow) bucketEnd(key Key, at time.Time) time.Time {
	w := key.windowMillis()
	return time.UnixMilli((at.UnixMilli()/w + 1) * w)
}

// Clear 删除当前桶和上一个桶
//
// 更早的桶在一个窗口后已由 TTL 清除。上一个桶的 TTL 可能尚未到期，一并删除。
func (f *FixedWindow) Clear(ctx context.Context, key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}

	return f.observe(ctx, opClear, &key, func(ctx context.Context) error {
		client, err := f.primary()
		if err != nil {
			return err
		}
		now := f.now()
		return client.Del(ctx,
			f.bucketKey(key, now),
			f.bucketKey(key, now.Add(-key.Window)),
		).Err()
	})
}
