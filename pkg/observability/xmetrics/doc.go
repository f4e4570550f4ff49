// Package xmetrics 提供统一的观测接口（追踪 + 指标）。
//
// 存储组件只依赖 Observer/Span 抽象，默认使用 NoopObserver；
// 需要接入 OpenTelemetry 时通过 NewOTelObserver 创建实现并注入。
//
//	observer, err := xmetrics.NewOTelObserver(
//		xmetrics.WithTracerProvider(tp),
//		xmetrics.WithMeterProvider(mp),
//	)
package xmetrics
