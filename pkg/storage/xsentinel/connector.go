package xsentinel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xlimitstore/pkg/observability/xlog"
)

// Connector 根据拓扑创建主、从连接句柄。
type Connector interface {
	Connect(ctx context.Context, topo *Topology) (primary, replica redis.UniversalClient, err error)
}

// SentinelConnector 通过 sentinel 发现主节点并创建 failover 客户端。
type SentinelConnector struct {
	Logger xlog.Logger
}

var _ Connector = SentinelConnector{}

// Connect 依次询问 sentinel 节点，任一返回主节点地址即认为发现成功。
// 所有节点都不可达时返回 ErrNoReachableNode。
func (c SentinelConnector) Connect(ctx context.Context, topo *Topology) (redis.UniversalClient, redis.UniversalClient, error) {
	if topo == nil {
		return nil, nil, ErrNilTopology
	}
	logger := c.Logger
	if logger == nil {
		logger = xlog.Default()
	}

	master, err := discoverMaster(ctx, topo, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info(ctx, "xsentinel: master discovered",
		xlog.Service(topo.ServiceName), xlog.Addr(master))

	primaryOpts, err := FailoverOptions(topo, false, logger)
	if err != nil {
		return nil, nil, err
	}
	replicaOpts, err := FailoverOptions(topo, true, logger)
	if err != nil {
		return nil, nil, err
	}
	return redis.NewFailoverClient(primaryOpts), redis.NewFailoverClient(replicaOpts), nil
}

func discoverMaster(ctx context.Context, topo *Topology, logger xlog.Logger) (string, error) {
	var errs []error
	for _, addr := range topo.Addrs() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		sc := redis.NewSentinelClient(&redis.Options{
			Addr:         addr,
			Username:     topo.Options.SentinelUsername,
			Password:     topo.Options.SentinelPassword,
			DialTimeout:  topo.Options.ConnectTimeout,
			ReadTimeout:  topo.Options.ConnectTimeout,
			WriteTimeout: topo.Options.ConnectTimeout,
			MaxRetries:   -1,
		})
		res, err := sc.GetMasterAddrByName(ctx, topo.ServiceName).Result()
		_ = sc.Close()
		if err == nil && len(res) == 2 {
			return net.JoinHostPort(res[0], res[1]), nil
		}
		if err == nil {
			err = fmt.Errorf("unexpected reply %v", res)
		}
		logger.Warn(ctx, "xsentinel: sentinel unreachable", xlog.Addr(addr), xlog.Err(err))
		errs = append(errs, fmt.Errorf("%s: %w", addr, err))
	}
	return "", fmt.Errorf("%w: service %q: %w", ErrNoReachableNode, topo.ServiceName, errors.Join(errs...))
}

// FailoverOptions 把拓扑转换为 go-redis FailoverOptions。
// replicaOnly 为 true 时客户端只连接从节点。未知的 Extras 记录日志后忽略。
func FailoverOptions(topo *Topology, replicaOnly bool, logger xlog.Logger) (*redis.FailoverOptions, error) {
	if topo == nil {
		return nil, ErrNilTopology
	}
	o := topo.Options
	fo := &redis.FailoverOptions{
		MasterName:       topo.ServiceName,
		SentinelAddrs:    topo.Addrs(),
		SentinelUsername: o.SentinelUsername,
		SentinelPassword: o.SentinelPassword,
		Username:         o.Username,
		Password:         o.Password,
		DB:               o.DB,
		ReplicaOnly:      replicaOnly,
		DialTimeout:      o.ConnectTimeout,
		ReadTimeout:      o.ConnectTimeout,
		WriteTimeout:     o.ConnectTimeout,
		PoolSize:         o.MaxConnections,
	}
	if err := applyExtras(fo, o.Extras, logger); err != nil {
		return nil, err
	}
	return fo, nil
}

// extraSetters 按名称映射 Extras 到 FailoverOptions 字段，只做类型校验。
var extraSetters = map[string]func(fo *redis.FailoverOptions, v string) error{
	"read_timeout":  durationSetter(func(fo *redis.FailoverOptions, d time.Duration) { fo.ReadTimeout = d }),
	"write_timeout": durationSetter(func(fo *redis.FailoverOptions, d time.Duration) { fo.WriteTimeout = d }),
	"pool_timeout":  durationSetter(func(fo *redis.FailoverOptions, d time.Duration) { fo.PoolTimeout = d }),
	"conn_max_idle_time": durationSetter(func(fo *redis.FailoverOptions, d time.Duration) {
		fo.ConnMaxIdleTime = d
	}),
	"min_idle_conns":   intSetter(func(fo *redis.FailoverOptions, n int) { fo.MinIdleConns = n }),
	"max_idle_conns":   intSetter(func(fo *redis.FailoverOptions, n int) { fo.MaxIdleConns = n }),
	"max_active_conns": intSetter(func(fo *redis.FailoverOptions, n int) { fo.MaxActiveConns = n }),
	"max_retries":      intSetter(func(fo *redis.FailoverOptions, n int) { fo.MaxRetries = n }),
	"protocol":         intSetter(func(fo *redis.FailoverOptions, n int) { fo.Protocol = n }),
	"client_name": func(fo *redis.FailoverOptions, v string) error {
		fo.ClientName = v
		return nil
	},
	"route_randomly": boolSetter(func(fo *redis.FailoverOptions, b bool) { fo.RouteRandomly = b }),
	"use_disconnected_replicas": boolSetter(func(fo *redis.FailoverOptions, b bool) {
		fo.UseDisconnectedReplicas = b
	}),
}

func applyExtras(fo *redis.FailoverOptions, extras map[string]string, logger xlog.Logger) error {
	for key, val := range extras {
		set, ok := extraSetters[key]
		if !ok {
			if logger != nil {
				logger.Warn(context.Background(), "xsentinel: ignoring unknown option", xlog.Key(key))
			}
			continue
		}
		if err := set(fo, val); err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalidOption, key, val, err)
		}
	}
	return nil
}

func durationSetter(apply func(*redis.FailoverOptions, time.Duration)) func(*redis.FailoverOptions, string) error {
	return func(fo *redis.FailoverOptions, v string) error {
		d, err := ParseSeconds(v)
		if err != nil {
			return err
		}
		apply(fo, d)
		return nil
	}
}

func intSetter(apply func(*redis.FailoverOptions, int)) func(*redis.FailoverOptions, string) error {
	return func(fo *redis.FailoverOptions, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		apply(fo, n)
		return nil
	}
}

func boolSetter(apply func(*redis.FailoverOptions, bool)) func(*redis.FailoverOptions, string) error {
	return func(fo *redis.FailoverOptions, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		apply(fo, b)
		return nil
	}
}
