package xlimit

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Key 限流键
type Key struct {
	// Namespace 命名空间，通常是限流策略或业务名，可为空
	Namespace string

	// Identifier 被限流对象的标识，如租户 ID、调用方、IP，必填
	Identifier string

	// Window 窗口大小，不小于 1ms
	Window time.Duration
}

// Validate 校验键
func (k Key) Validate() error {
	if k.Identifier == "" {
		return fmt.Errorf("%w: empty identifier", ErrInvalidKey)
	}
	if k.Window < time.Millisecond {
		return fmt.Errorf("%w: window %s is shorter than 1ms", ErrInvalidKey, k.Window)
	}
	return nil
}

// String 返回 "<namespace>:<identifier>:<window-ms>"，命名空间为空时省略
//
// 命名空间和标识中的 ':' 与 '\' 以 '\' 转义，不同的键不会渲染为同一个字符串。
func (k Key) String() string {
	var b strings.Builder
	if k.Namespace != "" {
		writeKeyPart(&b, k.Namespace)
		b.WriteByte(':')
	}
	writeKeyPart(&b, k.Identifier)
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(k.Window.Milliseconds(), 10))
	return b.String()
}

func writeKeyPart(b *strings.Builder, part string) {
	for i := 0; i < len(part); i++ {
		switch c := part[i]; c {
		case ':', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
}

// storageKey 返回带前缀的存储键
func (k Key) storageKey(prefix string) string {
	return prefix + k.String()
}

// windowMillis 窗口毫秒数
func (k Key) windowMillis() int64 {
	return k.Window.Milliseconds()
}

// escapeGlob 转义 SCAN MATCH 的通配字符
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
