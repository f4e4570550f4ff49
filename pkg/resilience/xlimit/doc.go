// Package xlimit 提供限流计数存储：固定窗口与滑动窗口两种算法。
//
// # 设计理念
//
// xlimit 只负责计数，不判断是否放行。Incr 先记录再返回计数，
// 调用方（限流策略）拿计数与上限比较后决定放行或拒绝。
// 所有写操作都是单个 Lua 脚本，由 Redis 保证原子性，进程内不加锁。
//
// # 核心概念
//
//   - Counter：计数存储接口，Incr/Get/GetExpiry/Clear/Reset/Check
//   - Key：限流键，命名空间 + 标识 + 窗口
//   - Handles：主从句柄能力，写走 Primary，读和健康检查走 Replica
//   - FixedWindow：固定窗口，每个窗口一个计数桶，桶边界是硬边界
//   - MovingWindow：滑动窗口，每个事件一个有序集合成员
//   - Async：在 worker pool 上执行 Counter 操作，返回 Future
//
// # 快速开始
//
//	router, err := xsentinel.Open(ctx, "redis+sentinel://s1:26379,s2:26379/mymaster")
//	if err != nil {
//	    return err
//	}
//	defer router.Close()
//
//	counter, err := xlimit.NewFixedWindow(router,
//	    xlimit.WithLogger(logger),
//	    xlimit.WithMeterProvider(meterProvider),
//	)
//	key := xlimit.Key{Namespace: "api", Identifier: "tenant-1", Window: time.Second}
//	n, err := counter.Incr(ctx, key, 1)
//	if err != nil || n > 10 {
//	    // 拒绝：错误或取消都按未获取处理
//	}
//
// 单节点 Redis 使用 Direct 包装：
//
//	counter, err := xlimit.NewMovingWindow(xlimit.Direct(client))
//
// # 错误处理
//
// 除 Check 外的所有操作都原样返回驱动错误，不重试。
// IsConnectivityError 判断错误是否来自网络或 Redis 不可用。
// Check 把任何失败都转为 false。
package xlimit
