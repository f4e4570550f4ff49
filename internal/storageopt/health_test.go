package storageopt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHealthContext_DefaultTimeout(t *testing.T) {
	hctx, cancel := HealthContext(context.Background(), DefaultHealthTimeout)
	defer cancel()

	deadline, ok := hctx.Deadline()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(DefaultHealthTimeout), deadline, 50*time.Millisecond)
}

func TestHealthContext_NonPositiveTimeout(t *testing.T) {
	ctx := context.Background()
	for _, timeout := range []time.Duration{0, -time.Second} {
		hctx, cancel := HealthContext(ctx, timeout)
		cancel()

		// 无超时，应返回原始 context
		_, ok := hctx.Deadline()
		assert.False(t, ok)
		assert.Equal(t, ctx, hctx)
	}
}

func TestHealthContext_NilContext(t *testing.T) {
	// nil ctx 应归一化为 context.Background()，不 panic
	hctx, cancel := HealthContext(nil, time.Second) //nolint:staticcheck // 测试 nil ctx 归一化
	defer cancel()

	_, ok := hctx.Deadline()
	assert.True(t, ok)

	hctx, cancel = HealthContext(nil, 0) //nolint:staticcheck // 测试 nil ctx 归一化
	defer cancel()
	assert.NotNil(t, hctx)
}

func TestHealthContext_ParentCancel(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	hctx, cancel := HealthContext(parent, time.Minute)
	defer cancel()

	cancelParent()
	<-hctx.Done()
	assert.ErrorIs(t, hctx.Err(), context.Canceled)
}
