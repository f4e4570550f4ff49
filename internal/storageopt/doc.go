// Package storageopt 提供 storage 子包共享的健康检查工具。
//
// 本包是 internal 包，仅供 pkg/storage 与 pkg/resilience 下访问 Redis 的子包
// （xsentinel、xlimit）使用。外部用户不应直接导入此包。
//
// 主要功能：
//   - 健康检查超时 context 构造
//   - 健康检查计数器（HealthCounter）及其快照（HealthStats）
package storageopt
