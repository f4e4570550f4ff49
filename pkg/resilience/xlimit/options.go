package xlimit

import (
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xlimitstore/internal/storageopt"
	"github.com/omeyang/xlimitstore/pkg/observability/xlog"
	"github.com/omeyang/xlimitstore/pkg/observability/xmetrics"
)

// DefaultKeyPrefix 默认存储键前缀
const DefaultKeyPrefix = "ratelimit:"

// defaultScanCount Reset 每批 SCAN 的建议数量
const defaultScanCount = 500

// Option 配置选项函数
type Option func(*options)

// options 内部配置结构
type options struct {
	keyPrefix     string
	clock         func() time.Time
	logger        xlog.Logger
	observer      xmetrics.Observer
	meterProvider metric.MeterProvider
	healthTimeout time.Duration
	scanCount     int64
}

// defaultOptions 返回默认配置
func defaultOptions() *options {
	return &options{
		keyPrefix:     DefaultKeyPrefix,
		clock:         time.Now,
		logger:        xlog.Default(),
		observer:      xmetrics.NoopObserver{},
		healthTimeout: storageopt.DefaultHealthTimeout,
		scanCount:     defaultScanCount,
	}
}

// WithKeyPrefix 设置存储键前缀，默认为 "ratelimit:"
//
// Reset 只删除该前缀下的键，不同用途的计数器应使用不同前缀。
// 空前缀会使构造返回 ErrEmptyKeyPrefix。
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		o.keyPrefix = prefix
	}
}

// WithClock 设置时钟，nil 被忽略。测试中用于控制窗口边界
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver 设置观测器，用于链路追踪
func WithObserver(observer xmetrics.Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithMeterProvider 设置 OpenTelemetry MeterProvider
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithHealthTimeout 设置 Check 的超时
//
// Handles 提供 Timeout()（如 xsentinel.Router）时以其为准。
func WithHealthTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.healthTimeout = d
		}
	}
}

// WithScanCount 设置 Reset 每批 SCAN 的建议数量
func WithScanCount(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.scanCount = n
		}
	}
}
