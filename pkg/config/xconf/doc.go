// Package xconf 提供基于 koanf 的配置加载。
//
// 支持 YAML 与 JSON，可从文件或字节数据（如 K8s ConfigMap）加载，
// 通过 Unmarshal 反序列化到带 koanf 标签的结构体。time.Duration 字段
// 接受 "200ms"、"1s" 形式的字符串。
//
//	cfg, err := xconf.NewFromBytes(data, xconf.FormatYAML)
//	if err != nil {
//		return err
//	}
//	var sc xsentinel.Config
//	if err := cfg.Unmarshal("ratelimit.storage", &sc); err != nil {
//		return err
//	}
package xconf
