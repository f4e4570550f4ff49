package xlimit

import (
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/redis/go-redis/v9"
)

// =============================================================================
// 预定义错误
// =============================================================================

// 预定义错误，使用 errors.Is 进行比较
var (
	// ErrInvalidKey 表示限流键无效（标识为空或窗口小于 1ms）
	ErrInvalidKey = errors.New("xlimit: invalid key")

	// ErrInvalidAmount 表示增量小于 1
	ErrInvalidAmount = errors.New("xlimit: invalid amount")

	// ErrInvalidLimit 表示上限小于 1
	ErrInvalidLimit = errors.New("xlimit: invalid limit")

	// ErrEmptyKeyPrefix 表示键前缀为空，Reset 会清空整个数据库
	ErrEmptyKeyPrefix = errors.New("xlimit: empty key prefix")

	// ErrNilHandles 表示未提供连接句柄或句柄为 nil
	ErrNilHandles = errors.New("xlimit: nil handles")

	// ErrNilCounter 表示 NewAsync 的 counter 为 nil
	ErrNilCounter = errors.New("xlimit: nil counter")

	// ErrAsyncRejected 表示异步队列已满
	ErrAsyncRejected = errors.New("xlimit: async queue full")

	// ErrClosed 表示 Async 已关闭
	ErrClosed = errors.New("xlimit: closed")

	// ErrUnexpectedReply 表示脚本返回了无法解析的结果
	ErrUnexpectedReply = errors.New("xlimit: unexpected script reply")
)

// =============================================================================
// 错误检查函数
// =============================================================================

// connectivityErrors 包含所有视为连接故障的错误
var connectivityErrors = []error{
	redis.ErrClosed,
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.EPIPE,
	syscall.ETIMEDOUT,
	io.EOF,
	io.ErrUnexpectedEOF,
}

// IsConnectivityError 检查是否是网络或 Redis 不可用导致的错误
//
// 使用错误链检查，而不是字符串匹配。redis.Nil、脚本错误和参数错误返回 false。
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}

	for _, target := range connectivityErrors {
		if errors.Is(err, target) {
			return true
		}
	}

	return isNetworkError(err)
}

// isNetworkError 检查是否是网络相关错误
func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
