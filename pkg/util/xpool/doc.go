// Package xpool 提供通用的泛型 worker pool。
//
// New 创建后自动启动 worker。Submit 非阻塞，队列满时返回 ErrQueueFull，
// 关闭后返回 ErrPoolStopped。Close 等待队列中所有任务处理完成，
// Shutdown(ctx) 在 ctx 到期时提前返回，残留 worker 继续处理剩余任务，
// 可通过 Done() 等待其最终退出。
//
// 单个任务 panic 会被恢复并记录日志，不影响其他任务。panic 日志仅记录
// task 类型，避免把请求数据写进日志。
//
// 注意：Close/Shutdown 不可在 handler 内调用，否则会死锁。
package xpool
