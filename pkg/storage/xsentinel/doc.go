// Package xsentinel 解析 Redis Sentinel 拓扑并把读写路由到主从节点。
//
// # 拓扑
//
// Parse 把连接串解析为 Topology，不做任何网络 I/O：
//
//	[async+]redis+sentinel://[user[:pass]@]host:port[,host:port...][/service][?opt=val...]
//
// URI 中的凭据属于 sentinel 发现层（SentinelUsername/SentinelPassword），
// 数据节点凭据通过 username/password 查询参数或 WithOptions 提供。
// 未识别的查询参数原样放入 Options.Extras，由 Router 映射到 go-redis 配置。
//
// # 路由
//
// Router 持有两个连接句柄：Primary 负责写，Replica 负责读和健康检查。
// 句柄都是 go-redis failover 客户端，主从切换后自动重新解析地址，
// 调用方每次使用时从 Router 获取，不要缓存。
//
//	r, err := xsentinel.Open(ctx, "redis+sentinel://s1:26379,s2:26379/mymaster")
//	if err != nil {
//		return err
//	}
//	defer r.Close()
//	counter, err := xlimit.NewFixedWindow(r)
//
// # 状态
//
// UNINITIALIZED → DISCOVERING → READY / DEGRADED / FAILED。
// Refresh 探测两个句柄：主节点可用即 READY，仅从节点可用为 DEGRADED（读不受影响，
// 写返回驱动错误），都不可用为 FAILED。构造阶段落入 FAILED 时返回 ErrNoReachableNode。
//
// 设计决策: 操作失败不在本层重试，错误原样返回给调用方，由限流策略决定放行或拒绝。
package xsentinel
