package xsentinel

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xlimitstore/pkg/observability/xlog"
)

// Option Router 配置选项。
type Option func(*options)

type options struct {
	logger        xlog.Logger
	connector     Connector
	driverCheck   func() error
	meterProvider metric.MeterProvider
	parseOptions  []ParseOption
}

func defaultOptions() *options {
	return &options{
		logger:      xlog.Default(),
		driverCheck: redisDriverCheck,
	}
}

// WithLogger 设置日志记录器，nil 被忽略。
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithConnector 替换默认的 SentinelConnector，主要用于测试。
func WithConnector(c Connector) Option {
	return func(o *options) {
		if c != nil {
			o.connector = c
		}
	}
}

// WithDriverCheck 设置驱动特性检测，返回错误时构造失败并返回 ErrDriverUnavailable。
func WithDriverCheck(check func() error) Option {
	return func(o *options) {
		if check != nil {
			o.driverCheck = check
		}
	}
}

// WithMeterProvider 设置 OpenTelemetry MeterProvider，用于记录状态迁移。
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithParseOptions 设置 Open 解析 URI 时使用的 ParseOption，
// 如 URI 不带路径时通过 WithServiceName 指定服务名。NewRouter 忽略该选项。
func WithParseOptions(opts ...ParseOption) Option {
	return func(o *options) {
		o.parseOptions = append(o.parseOptions, opts...)
	}
}

// redisDriverCheck 确认 go-redis 已链接且带版本信息。
func redisDriverCheck() error {
	if redis.Version() == "" {
		return errors.New("go-redis version unknown")
	}
	return nil
}
