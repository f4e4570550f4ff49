// Package xlog 提供基于 log/slog 的结构化日志。
//
// 设计理念：
//   - 强制 context 传递，方法签名只接受 slog.Attr，保证类型安全
//   - 动态级别控制，运行时可调整
//   - 提供存储组件常用的标准属性（组件、操作、角色、服务名等）
//
// 快速开始：
//
//	logger, err := xlog.New().
//		SetFormat("json").
//		SetLevelString("debug").
//		Build()
//	if err != nil {
//		return err
//	}
//	logger.Info(ctx, "router ready", xlog.Service("mymaster"), xlog.Count(3))
//
// 库代码通过 WithLogger 选项接收 Logger；未注入时使用 Default()。
package xlog
