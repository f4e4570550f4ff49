package xlimit

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// Handles 连接句柄能力
//
// 写操作使用 Primary，读操作和健康检查使用 Replica。
// 实现方负责故障切换，Counter 每次调用都重新获取句柄，不缓存。
// xsentinel.Router 实现了该接口。
type Handles interface {
	Primary() redis.UniversalClient
	Replica() redis.UniversalClient
}

// timeoutProvider 由能提供连接超时的 Handles 实现，健康检查以此为上限
type timeoutProvider interface {
	Timeout() time.Duration
}

// direct 单节点句柄，主从是同一个客户端
type direct struct {
	client redis.UniversalClient
}

// Direct 把单个客户端包装为 Handles，读写都走同一个节点
func Direct(client redis.UniversalClient) Handles {
	return direct{client: client}
}

func (d direct) Primary() redis.UniversalClient { return d.client }
func (d direct) Replica() redis.UniversalClient { return d.client }
