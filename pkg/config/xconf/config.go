package xconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Format 定义配置格式。
type Format string

// 支持的配置格式。
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// 默认键分隔符与结构体标签。
const (
	defaultDelim = "."
	defaultTag   = "koanf"
)

// Config 只读配置实例。
// 只提供增值功能，其余操作请直接使用 Client() 返回的 koanf 实例。
type Config struct {
	k      *koanf.Koanf
	path   string
	format Format
}

// New 从文件路径创建配置实例，根据扩展名（.yaml/.yml/.json）检测格式。
func New(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	cfg, err := NewFromBytes(data, format)
	if err != nil {
		return nil, err
	}
	cfg.path = path
	return cfg, nil
}

// NewFromBytes 从字节数据创建配置实例，需显式指定格式。
// 空数据创建空配置，Unmarshal 得到目标结构体的零值。
func NewFromBytes(data []byte, format Format) (*Config, error) {
	parser, err := parserFor(format)
	if err != nil {
		return nil, err
	}

	k := koanf.New(defaultDelim)
	if len(data) > 0 {
		if err := k.Load(rawbytes.Provider(data), parser); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
		}
	}

	return &Config{k: k, format: format}, nil
}

// Client 返回底层的 koanf 实例。
func (c *Config) Client() *koanf.Koanf {
	return c.k
}

// Unmarshal 将指定路径的配置反序列化到目标结构体，path 为空时反序列化整个配置。
func (c *Config) Unmarshal(path string, target any) error {
	if err := c.k.UnmarshalWithConf(path, target, koanf.UnmarshalConf{Tag: defaultTag}); err != nil {
		return fmt.Errorf("%w: %w", ErrUnmarshalFailed, err)
	}
	return nil
}

// Path 返回配置文件路径，从字节数据创建时为空。
func (c *Config) Path() string {
	return c.path
}

// Format 返回配置格式。
func (c *Config) Format() Format {
	return c.format
}

func detectFormat(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %q", ErrUnsupportedFormat, ext)
	}
}

func parserFor(format Format) (koanf.Parser, error) {
	switch format {
	case FormatYAML:
		return yaml.Parser(), nil
	case FormatJSON:
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
