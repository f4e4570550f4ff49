package xlog

import (
	"log/slog"
	"time"
)

// 常用属性 Key 常量
const (
	KeyError     = "error"
	KeyDuration  = "duration"
	KeyCount     = "count"
	KeyComponent = "component"
	KeyOperation = "operation"
	KeyKey       = "key"
	KeyRole      = "role"
	KeyService   = "service"
	KeyAddr      = "addr"
	KeyState     = "state"
)

// Err 创建错误属性，err 为 nil 时返回空属性（会被 slog 忽略）
//
//	if err != nil {
//	    logger.Warn(ctx, "incr failed", xlog.Err(err))
//	}
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建耗时属性
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// Component 创建组件名属性
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Operation 创建操作名属性
func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// Count 创建计数属性
func Count(n int64) slog.Attr {
	return slog.Int64(KeyCount, n)
}

// Key 创建存储键属性
func Key(k string) slog.Attr {
	return slog.String(KeyKey, k)
}

// Role 创建连接角色属性（primary/replica）
func Role(r string) slog.Attr {
	return slog.String(KeyRole, r)
}

// Service 创建服务名属性
func Service(name string) slog.Attr {
	return slog.String(KeyService, name)
}

// Addr 创建节点地址属性
func Addr(addr string) slog.Attr {
	return slog.String(KeyAddr, addr)
}

// State 创建状态属性
func State(s string) slog.Attr {
	return slog.String(KeyState, s)
}
