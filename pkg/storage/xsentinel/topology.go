package xsentinel

import (
	"fmt"
	"maps"
	"math"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// 支持的 URI scheme。
const (
	SchemeSentinel      = "redis+sentinel"
	SchemeAsyncSentinel = "async+redis+sentinel"
)

// DefaultConnectTimeout 未配置 connection_timeout 时的连接与读写超时。
const DefaultConnectTimeout = 200 * time.Millisecond

// 已识别的查询参数。
const (
	optConnectionTimeout = "connection_timeout"
	optMaxConnections    = "max_connections"
	optDB                = "db"
	optUsername          = "username"
	optPassword          = "password"
)

// Node 一个 sentinel 节点地址。
type Node struct {
	Host string
	Port int
}

// Addr 返回 host:port，IPv6 地址带方括号。
func (n Node) Addr() string {
	return net.JoinHostPort(n.Host, strconv.Itoa(n.Port))
}

// Options 连接参数。
type Options struct {
	// ConnectTimeout 连接超时，同时作为读写超时与健康检查超时。
	ConnectTimeout time.Duration

	// MaxConnections 每个句柄的连接池大小，0 表示使用驱动默认值。
	MaxConnections int

	// DB 数据库编号。
	DB int

	// Username/Password 数据节点凭据。
	Username string
	Password string

	// SentinelUsername/SentinelPassword 发现层凭据，来自 URI userinfo。
	SentinelUsername string
	SentinelPassword string

	// Extras 未识别的参数，键名对应 go-redis FailoverOptions 字段（snake_case）。
	Extras map[string]string
}

// Topology 解析后的 sentinel 拓扑。
type Topology struct {
	Nodes       []Node
	ServiceName string
	// Async 表示 URI 带 async+ 前缀，调用方应使用 xlimit.NewAsync 绑定。
	Async   bool
	Scheme  string
	Options Options
}

// Addrs 按 URI 中的顺序返回节点地址。
func (t *Topology) Addrs() []string {
	addrs := make([]string, len(t.Nodes))
	for i, n := range t.Nodes {
		addrs[i] = n.Addr()
	}
	return addrs
}

// String 返回隐藏了密码的 URI 形式，用于日志。
func (t *Topology) String() string {
	var b strings.Builder
	b.WriteString(t.Scheme)
	b.WriteString("://")
	if t.Options.SentinelUsername != "" || t.Options.SentinelPassword != "" {
		b.WriteString(t.Options.SentinelUsername)
		if t.Options.SentinelPassword != "" {
			b.WriteString(":***")
		}
		b.WriteByte('@')
	}
	b.WriteString(strings.Join(t.Addrs(), ","))
	b.WriteByte('/')
	b.WriteString(t.ServiceName)
	return b.String()
}

// ParseOption Parse 的可选参数。
type ParseOption func(*parseOptions)

type parseOptions struct {
	serviceName string
	base        Options
}

// WithServiceName 设置 URI 路径为空时使用的服务名。
func WithServiceName(name string) ParseOption {
	return func(o *parseOptions) {
		o.serviceName = name
	}
}

// WithOptions 设置基础连接参数，URI 中出现的值优先。
func WithOptions(opts Options) ParseOption {
	return func(o *parseOptions) {
		o.base = opts
	}
}

// Parse 解析 sentinel 连接串。纯函数，不做网络 I/O。
func Parse(uri string, opts ...ParseOption) (*Topology, error) {
	po := parseOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&po)
		}
	}

	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, uri)
	}
	scheme = strings.ToLower(scheme)
	topo := &Topology{Scheme: scheme}
	switch scheme {
	case SchemeSentinel:
	case SchemeAsyncSentinel:
		topo.Async = true
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}

	// 设计决策: 不使用 url.Parse 解析 authority。多节点列表 "h1:p1,[::1]:p2"
	// 不是合法的 RFC 3986 host，url.Parse 会拒绝带方括号的第二个节点。
	rest, rawQuery, _ := strings.Cut(rest, "?")
	authority, path, _ := strings.Cut(rest, "/")
	userinfo, hosts := "", authority
	if i := strings.LastIndex(authority, "@"); i >= 0 {
		userinfo, hosts = authority[:i], authority[i+1:]
	}

	nodes, err := parseNodes(hosts)
	if err != nil {
		return nil, err
	}
	topo.Nodes = nodes

	topo.ServiceName, err = serviceName(path, po.serviceName)
	if err != nil {
		return nil, err
	}

	topo.Options = po.base
	topo.Options.Extras = maps.Clone(po.base.Extras)
	if err := applyUserinfo(&topo.Options, userinfo); err != nil {
		return nil, err
	}
	if err := applyQuery(&topo.Options, rawQuery); err != nil {
		return nil, err
	}
	if topo.Options.ConnectTimeout <= 0 {
		topo.Options.ConnectTimeout = DefaultConnectTimeout
	}
	return topo, nil
}

func parseNodes(hosts string) ([]Node, error) {
	if hosts == "" {
		return nil, fmt.Errorf("%w: no nodes", ErrInvalidNode)
	}
	parts := strings.Split(hosts, ",")
	nodes := make([]Node, 0, len(parts))
	for _, part := range parts {
		node, err := parseNode(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func parseNode(s string) (Node, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Node{}, fmt.Errorf("%w: %q: %w", ErrInvalidNode, s, err)
	}
	if host == "" {
		return Node{}, fmt.Errorf("%w: %q: empty host", ErrInvalidNode, s)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return Node{}, fmt.Errorf("%w: %q: port must be in 1..65535", ErrInvalidNode, s)
	}
	return Node{Host: host, Port: port}, nil
}

// serviceName 路径优先，其次是显式参数。
func serviceName(path, explicit string) (string, error) {
	name, err := url.PathUnescape(strings.Trim(path, "/"))
	if err != nil {
		return "", fmt.Errorf("%w: service name: %w", ErrInvalidOption, err)
	}
	if name == "" {
		name = explicit
	}
	if name == "" {
		return "", ErrServiceNameMissing
	}
	return name, nil
}

// applyUserinfo URI 凭据只在非空时覆盖发现层凭据。
func applyUserinfo(o *Options, userinfo string) error {
	if userinfo == "" {
		return nil
	}
	rawUser, rawPass, _ := strings.Cut(userinfo, ":")
	user, err := url.PathUnescape(rawUser)
	if err != nil {
		return fmt.Errorf("%w: username: %w", ErrInvalidOption, err)
	}
	pass, err := url.PathUnescape(rawPass)
	if err != nil {
		return fmt.Errorf("%w: password: %w", ErrInvalidOption, err)
	}
	if user != "" {
		o.SentinelUsername = user
	}
	if pass != "" {
		o.SentinelPassword = pass
	}
	return nil
}

func applyQuery(o *Options, rawQuery string) error {
	if rawQuery == "" {
		return nil
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return fmt.Errorf("%w: query: %w", ErrInvalidOption, err)
	}
	for key, vals := range values {
		// 重复参数以最后一个为准
		val := vals[len(vals)-1]
		switch key {
		case optConnectionTimeout:
			d, err := ParseSeconds(val)
			if err != nil {
				return fmt.Errorf("%w: %s=%q: %w", ErrInvalidOption, key, val, err)
			}
			o.ConnectTimeout = d
		case optMaxConnections:
			n, err := parseNonNegative(val)
			if err != nil {
				return fmt.Errorf("%w: %s=%q: %w", ErrInvalidOption, key, val, err)
			}
			o.MaxConnections = n
		case optDB:
			n, err := parseNonNegative(val)
			if err != nil {
				return fmt.Errorf("%w: %s=%q: %w", ErrInvalidOption, key, val, err)
			}
			o.DB = n
		case optUsername:
			o.Username = val
		case optPassword:
			o.Password = val
		default:
			if o.Extras == nil {
				o.Extras = make(map[string]string)
			}
			o.Extras[key] = val
		}
	}
	return nil
}

// ParseSeconds 解析时长，接受 Go duration（"250ms"）或浮点秒数（"0.25"）。
func ParseSeconds(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		secs, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
			return 0, err
		}
		d = time.Duration(secs * float64(time.Second))
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", d)
	}
	return d, nil
}

func parseNonNegative(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("must be non-negative, got %d", n)
	}
	return n, nil
}
