package xsentinel

import (
	"fmt"
	"time"

	"github.com/omeyang/xlimitstore/pkg/config/xconf"
)

// Config sentinel 存储配置，支持 YAML/JSON。
//
//	ratelimit:
//	  storage:
//	    uri: redis+sentinel://:secret@s1:26379,s2:26379/mymaster
//	    connect_timeout: 250ms
//	    extras:
//	      read_timeout: 1s
type Config struct {
	// URI sentinel 连接串，必填。
	URI string `koanf:"uri" json:"uri" yaml:"uri"`

	// ServiceName URI 路径为空时使用的服务名。
	ServiceName string `koanf:"service_name" json:"service_name" yaml:"service_name"`

	// ConnectTimeout 连接超时，URI 中的 connection_timeout 优先。
	ConnectTimeout time.Duration `koanf:"connect_timeout" json:"connect_timeout" yaml:"connect_timeout"`

	MaxConnections int    `koanf:"max_connections" json:"max_connections" yaml:"max_connections"`
	DB             int    `koanf:"db" json:"db" yaml:"db"`
	Username       string `koanf:"username" json:"username" yaml:"username"`
	Password       string `koanf:"password" json:"password" yaml:"password"`

	SentinelUsername string `koanf:"sentinel_username" json:"sentinel_username" yaml:"sentinel_username"`
	SentinelPassword string `koanf:"sentinel_password" json:"sentinel_password" yaml:"sentinel_password"`

	// Extras 透传给 go-redis 的参数，URI 查询参数同名时优先。
	Extras map[string]string `koanf:"extras" json:"extras" yaml:"extras"`
}

// Topology 把配置解析为拓扑。
func (c *Config) Topology() (*Topology, error) {
	if c == nil || c.URI == "" {
		return nil, fmt.Errorf("%w: uri is required", ErrConfiguration)
	}
	return Parse(c.URI,
		WithServiceName(c.ServiceName),
		WithOptions(Options{
			ConnectTimeout:   c.ConnectTimeout,
			MaxConnections:   c.MaxConnections,
			DB:               c.DB,
			Username:         c.Username,
			Password:         c.Password,
			SentinelUsername: c.SentinelUsername,
			SentinelPassword: c.SentinelPassword,
			Extras:           c.Extras,
		}),
	)
}

// LoadConfig 从字节数据读取 path 处的配置，path 为空时读取整个文档。
func LoadConfig(data []byte, format xconf.Format, path string) (*Config, error) {
	cfg, err := xconf.NewFromBytes(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return unmarshalConfig(cfg, path)
}

// LoadConfigFile 从文件读取配置，格式由扩展名决定。
func LoadConfigFile(file, path string) (*Config, error) {
	cfg, err := xconf.New(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return unmarshalConfig(cfg, path)
}

func unmarshalConfig(cfg *xconf.Config, path string) (*Config, error) {
	var c Config
	if err := cfg.Unmarshal(path, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return &c, nil
}
