package xsentinel

import (
	"errors"
	"fmt"
)

// ErrConfiguration 是所有配置类错误的根，可用 errors.Is 统一判断。
var ErrConfiguration = errors.New("xsentinel: configuration error")

// 配置错误，均包装 ErrConfiguration。
var (
	// ErrServiceNameMissing URI 路径与 WithServiceName 都未提供服务名。
	ErrServiceNameMissing = fmt.Errorf("%w: service name missing", ErrConfiguration)

	// ErrInvalidNode 节点不是合法的 host:port。
	ErrInvalidNode = fmt.Errorf("%w: invalid node", ErrConfiguration)

	// ErrInvalidOption 查询参数或 Extras 的值类型不正确。
	ErrInvalidOption = fmt.Errorf("%w: invalid option", ErrConfiguration)

	// ErrUnsupportedScheme URI scheme 不是 redis+sentinel。
	ErrUnsupportedScheme = fmt.Errorf("%w: unsupported scheme", ErrConfiguration)

	// ErrDriverUnavailable 驱动特性检测失败。
	ErrDriverUnavailable = fmt.Errorf("%w: redis driver unavailable", ErrConfiguration)

	// ErrNoReachableNode 没有可达的 sentinel 或数据节点。
	ErrNoReachableNode = fmt.Errorf("%w: no reachable node", ErrConfiguration)
)

// ErrNilTopology 表示传入的拓扑为 nil。
var ErrNilTopology = fmt.Errorf("%w: nil topology", ErrConfiguration)
