// Package storage 提供数据存储相关的子包。
//
// 子包列表：
//   - xsentinel: Redis Sentinel 拓扑解析与主从路由
//
// 设计原则：
//   - 构造阶段发现配置错误，操作阶段原样返回驱动错误
//   - 内置可观测性（日志、指标）
package storage
