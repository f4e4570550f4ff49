package storageopt

import (
	"sync/atomic"
	"time"
)

// HealthCounter 健康检查计数器。
// 提供原子计数器用于追踪健康检查状态，零值可用。
type HealthCounter struct {
	pingCount   atomic.Int64
	pingErrors  atomic.Int64
	lastSuccess atomic.Int64 // UnixNano，0 表示从未成功
}

// IncPing 增加 ping 计数。
func (h *HealthCounter) IncPing() {
	h.pingCount.Add(1)
}

// IncPingError 增加 ping 错误计数。
func (h *HealthCounter) IncPingError() {
	h.pingErrors.Add(1)
}

// MarkSuccess 记录最近一次成功探活的时间。
func (h *HealthCounter) MarkSuccess(at time.Time) {
	h.lastSuccess.Store(at.UnixNano())
}

// PingCount 返回 ping 计数。
func (h *HealthCounter) PingCount() int64 {
	return h.pingCount.Load()
}

// PingErrors 返回 ping 错误计数。
func (h *HealthCounter) PingErrors() int64 {
	return h.pingErrors.Load()
}

// Snapshot 返回计数器的一致性快照（各字段分别原子读取）。
func (h *HealthCounter) Snapshot() HealthStats {
	stats := HealthStats{
		PingCount:  h.pingCount.Load(),
		PingErrors: h.pingErrors.Load(),
	}
	if ns := h.lastSuccess.Load(); ns != 0 {
		stats.LastSuccess = time.Unix(0, ns)
	}
	return stats
}

// HealthStats 健康检查统计快照。
type HealthStats struct {
	// PingCount 探活总次数。
	PingCount int64
	// PingErrors 探活失败次数。
	PingErrors int64
	// LastSuccess 最近一次成功探活时间，零值表示从未成功。
	LastSuccess time.Time
}

// MeasureOperation 测量操作耗时。
//
// 使用方式：
//
//	start := time.Now()
//	// ... 操作 ...
//	duration := storageopt.MeasureOperation(start)
func MeasureOperation(start time.Time) time.Duration {
	return time.Since(start)
}
