package xsentinel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const metricNameStateTransitions = "xsentinel.router.state"

// routerMetrics 路由器指标，nil 时不记录。
type routerMetrics struct {
	transitions metric.Int64Counter
}

func newRouterMetrics(mp metric.MeterProvider) (*routerMetrics, error) {
	if mp == nil {
		return nil, nil
	}
	meter := mp.Meter("xsentinel", metric.WithInstrumentationVersion("1.0.0"))
	transitions, err := meter.Int64Counter(
		metricNameStateTransitions,
		metric.WithDescription("路由器状态迁移次数"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}
	return &routerMetrics{transitions: transitions}, nil
}

func (m *routerMetrics) recordTransition(ctx context.Context, service string, from, to State) {
	if m == nil {
		return
	}
	m.transitions.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	))
}
