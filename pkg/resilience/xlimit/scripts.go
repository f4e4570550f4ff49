package xlimit

import (
	"context"
	_ "embed"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// =============================================================================
// Lua 脚本嵌入
// =============================================================================

var (
	//go:embed lua/fixed_incr.lua
	fixedIncrLuaSource string

	//go:embed lua/moving_incr.lua
	movingIncrLuaSource string

	//go:embed lua/moving_acquire.lua
	movingAcquireLuaSource string
)

// =============================================================================
// 脚本管理器 - 单例模式确保脚本只创建一次
// =============================================================================

// scripts 持有所有 Redis 脚本实例
type scripts struct {
	fixedIncr     *redis.Script
	movingIncr    *redis.Script
	movingAcquire *redis.Script
}

var (
	globalScripts     *scripts
	globalScriptsOnce sync.Once
)

// getScripts 获取脚本实例（线程安全的单例）
func getScripts() *scripts {
	globalScriptsOnce.Do(func() {
		globalScripts = &scripts{
			fixedIncr:     redis.NewScript(fixedIncrLuaSource),
			movingIncr:    redis.NewScript(movingIncrLuaSource),
			movingAcquire: redis.NewScript(movingAcquireLuaSource),
		}
	})
	return globalScripts
}

// WarmupScripts 预热脚本，将脚本加载到 Redis 缓存中
//
// 建议在应用启动时对主节点调用。未预热时首次执行走 EVAL，之后走 EVALSHA。
func WarmupScripts(ctx context.Context, client redis.UniversalClient) error {
	if client == nil {
		return ErrNilHandles
	}

	s := getScripts()
	if err := s.fixedIncr.Load(ctx, client).Err(); err != nil {
		return fmt.Errorf("load fixed incr script: %w", err)
	}
	if err := s.movingIncr.Load(ctx, client).Err(); err != nil {
		return fmt.Errorf("load moving incr script: %w", err)
	}
	if err := s.movingAcquire.Load(ctx, client).Err(); err != nil {
		return fmt.Errorf("load moving acquire script: %w", err)
	}
	return nil
}

// toInt64 转换脚本返回的整数
func toInt64(v any) (int64, error) {
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("%w: %T", ErrUnexpectedReply, v)
	}
	return n, nil
}

// toPair 转换脚本返回的 {int, int} 数组
func toPair(v any) (int64, int64, error) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 2 {
		return 0, 0, fmt.Errorf("%w: %v", ErrUnexpectedReply, v)
	}
	a, err := toInt64(arr[0])
	if err != nil {
		return 0, 0, err
	}
	b, err := toInt64(arr[1])
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}
