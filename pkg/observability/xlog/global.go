package xlog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// globalLogger 全局 Logger 实例（并发安全）
//
// 定位：库内部未注入 Logger 时的兜底。服务端推荐依赖注入。
var globalLogger atomic.Pointer[LoggerWithLevel]

// Default 返回全局默认 Logger（stderr，Info 级别，text 格式）
func Default() LoggerWithLevel {
	if l := globalLogger.Load(); l != nil {
		return *l
	}
	var l LoggerWithLevel = &xlogger{
		handler:  slog.NewTextHandler(os.Stderr, nil),
		levelVar: new(slog.LevelVar),
	}
	// 并发首次调用时只保留一个实例
	if globalLogger.CompareAndSwap(nil, &l) {
		return l
	}
	return *globalLogger.Load()
}

// SetDefault 替换全局默认 Logger，nil 被忽略
func SetDefault(l LoggerWithLevel) {
	if l == nil {
		return
	}
	globalLogger.Store(&l)
}

// ResetDefault 重置全局 Logger（仅用于测试）
func ResetDefault() {
	globalLogger.Store(nil)
}

// Discard 返回丢弃所有输出的 Logger，用于测试或显式静默
func Discard() Logger {
	return &xlogger{
		handler:  slog.NewTextHandler(io.Discard, nil),
		levelVar: new(slog.LevelVar),
	}
}

// Info 使用全局 Logger 记录 Info 级别日志
func Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().Info(ctx, msg, attrs...)
}

// Warn 使用全局 Logger 记录 Warn 级别日志
func Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().Warn(ctx, msg, attrs...)
}
