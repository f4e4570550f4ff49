package xlimit

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// 指标名称常量
const (
	// metricNameOperationsTotal 存储操作总数计数器
	metricNameOperationsTotal = "xlimit.storage.operations.total"
	// metricNameErrorsTotal 存储操作失败计数器
	metricNameErrorsTotal = "xlimit.storage.errors.total"
	// metricNameOperationDuration 存储操作耗时直方图
	metricNameOperationDuration = "xlimit.storage.operation.duration"
	// metricNameHealthChecks 健康检查计数器
	metricNameHealthChecks = "xlimit.storage.health.checks"
)

// Metrics 存储指标收集器
type Metrics struct {
	operationsTotal   metric.Int64Counter
	errorsTotal       metric.Int64Counter
	operationDuration metric.Float64Histogram
	healthChecks      metric.Int64Counter
}

// NewMetrics 创建指标收集器
// 如果 meterProvider 为 nil，返回 nil（不收集指标）
func NewMetrics(meterProvider metric.MeterProvider) (*Metrics, error) {
	if meterProvider == nil {
		return nil, nil
	}

	meter := meterProvider.Meter("xlimit",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	operationsTotal, err := meter.Int64Counter(
		metricNameOperationsTotal,
		metric.WithDescription("计数存储操作总数"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	errorsTotal, err := meter.Int64Counter(
		metricNameErrorsTotal,
		metric.WithDescription("计数存储操作失败数"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram(
		metricNameOperationDuration,
		metric.WithDescription("计数存储操作耗时"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0,
		),
	)
	if err != nil {
		return nil, err
	}

	healthChecks, err := meter.Int64Counter(
		metricNameHealthChecks,
		metric.WithDescription("健康检查次数"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		operationsTotal:   operationsTotal,
		errorsTotal:       errorsTotal,
		operationDuration: operationDuration,
		healthChecks:      healthChecks,
	}, nil
}

// RecordOperation 记录一次存储操作
// algorithm: "fixed" 或 "moving"
// op: 操作名，如 "incr"、"get"
func (m *Metrics) RecordOperation(ctx context.Context, algorithm, op string, err error, duration time.Duration) {
	if m == nil {
		return
	}

	// 使用 context.WithoutCancel 确保即使 ctx 被取消，指标仍能记录
	metricsCtx := context.WithoutCancel(ctx)

	attrs := metric.WithAttributes(
		attribute.String("algorithm", algorithm),
		attribute.String("operation", op),
	)

	m.operationsTotal.Add(metricsCtx, 1, attrs)
	if err != nil {
		m.errorsTotal.Add(metricsCtx, 1, attrs)
	}
	m.operationDuration.Record(metricsCtx, duration.Seconds(), attrs)
}

// RecordHealthCheck 记录健康检查结果
func (m *Metrics) RecordHealthCheck(ctx context.Context, algorithm string, healthy bool) {
	if m == nil {
		return
	}

	m.healthChecks.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(
		attribute.String("algorithm", algorithm),
		attribute.Bool("healthy", healthy),
	))
}
