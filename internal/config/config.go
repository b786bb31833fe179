// Package config 读写 bytekit.toml 并将字段规则编译为注册表
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"

	"github.com/tangzhangming/bytekit/internal/attribute"
	"github.com/tangzhangming/bytekit/internal/description"
	"github.com/tangzhangming/bytekit/internal/jvmgen"
	"github.com/tangzhangming/bytekit/internal/matcher"
	"github.com/tangzhangming/bytekit/internal/scaffold"
	"github.com/tangzhangming/bytekit/internal/transform"
)

// 常量定义
const (
	ConfigFileName = "bytekit.toml" // 配置文件名
)

// ErrInvalidConfig 配置内容不合法
var ErrInvalidConfig = errors.New("invalid config")

// Config 生成配置
type Config struct {
	Target     Target      `toml:"target"`
	Log        Log         `toml:"log"`
	FieldRules []FieldRule `toml:"field_rules"`
}

// Target 目标 class 文件设置
type Target struct {
	// ClassVersion class 文件主版本号 (52 = Java 8)
	ClassVersion int `toml:"class_version"`

	// TypeValidation 写出前是否校验类型
	TypeValidation bool `toml:"type_validation"`

	// CacheSuffix 缓存字段名后缀
	CacheSuffix string `toml:"cache_suffix"`
}

// Log 日志设置
type Log struct {
	Level       string `toml:"level"`       // debug / info / warn / error
	Development bool   `toml:"development"` // 开发模式输出
	Encoding    string `toml:"encoding"`    // console / json
}

// FieldRule 一条字段规则
//
// Name 与 Prefix 同时为空时匹配所有字段。文件中越靠后的规则优先级越高。
type FieldRule struct {
	Name       string   `toml:"name,omitempty"`
	Prefix     string   `toml:"prefix,omitempty"`
	Default    any      `toml:"default,omitempty"`
	Modifiers  []string `toml:"modifiers,omitempty"`
	Deprecated bool     `toml:"deprecated,omitempty"`
	Synthetic  bool     `toml:"synthetic,omitempty"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		Target: Target{
			ClassVersion:   jvmgen.ClassMajorVersion,
			TypeValidation: true,
			CacheSuffix:    scaffold.DefaultCacheSuffix,
		},
		Log: Log{
			Level:    "info",
			Encoding: "console",
		},
	}
}

// LoadConfig 从文件加载配置，未出现的键取默认值
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse 解析 TOML 配置
func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate 检查配置，返回全部问题
func (c *Config) Validate() error {
	var err error
	if c.Target.ClassVersion < jvmgen.V1_5 || c.Target.ClassVersion > jvmgen.V21 {
		multierr.AppendInto(&err, fmt.Errorf("%w: class_version %d out of range [%d, %d]",
			ErrInvalidConfig, c.Target.ClassVersion, jvmgen.V1_5, jvmgen.V21))
	}
	switch strings.ToLower(c.Log.Encoding) {
	case "", "console", "json":
	default:
		multierr.AppendInto(&err, fmt.Errorf("%w: log encoding %q", ErrInvalidConfig, c.Log.Encoding))
	}
	for i, r := range c.FieldRules {
		if _, e := description.ParseModifiers(r.Modifiers); e != nil {
			multierr.AppendInto(&err, fmt.Errorf("%w: field_rules[%d]: %w", ErrInvalidConfig, i, e))
		}
		if _, e := normalizeDefault(r.Default); e != nil {
			multierr.AppendInto(&err, fmt.Errorf("%w: field_rules[%d]: %w", ErrInvalidConfig, i, e))
		}
	}
	return err
}

// TypeValidation 返回校验开关
func (c *Config) TypeValidation() scaffold.TypeValidation {
	return scaffold.TypeValidation(c.Target.TypeValidation)
}

// FieldRegistry 按文件顺序前插每条规则，最后一条规则优先级最高
func (c *Config) FieldRegistry() (scaffold.FieldRegistry, error) {
	registry := scaffold.NewFieldRegistry()
	for i, r := range c.FieldRules {
		mods, err := description.ParseModifiers(r.Modifiers)
		if err != nil {
			return scaffold.FieldRegistry{}, fmt.Errorf("field_rules[%d]: %w", i, err)
		}
		defaultValue, err := normalizeDefault(r.Default)
		if err != nil {
			return scaffold.FieldRegistry{}, fmt.Errorf("field_rules[%d]: %w", i, err)
		}
		var transformer transform.FieldTransformer
		if mods != 0 {
			transformer = transform.WithModifiers(mods)
		}
		registry = registry.Prepend(r.matcher(), r.appender(), defaultValue, transformer)
	}
	return registry, nil
}

func (r FieldRule) matcher() matcher.ElementMatcher[description.Field] {
	var ms []matcher.ElementMatcher[description.Field]
	if r.Name != "" {
		ms = append(ms, matcher.NameIs[description.Field](r.Name))
	}
	if r.Prefix != "" {
		ms = append(ms, matcher.NameHasPrefix[description.Field](r.Prefix))
	}
	if len(ms) == 0 {
		return matcher.Any[description.Field]()
	}
	return matcher.And(ms...)
}

// appender 同类属性共享同一个值工厂，编译时只物化一次
func (r FieldRule) appender() attribute.FieldAppenderFactory {
	switch {
	case r.Deprecated && r.Synthetic:
		return deprecatedSynthetic
	case r.Deprecated:
		return attribute.Deprecated{}
	case r.Synthetic:
		return attribute.Synthetic{}
	default:
		return attribute.NoOp{}
	}
}

var deprecatedSynthetic = attribute.Compound(attribute.Deprecated{}, attribute.Synthetic{})

// normalizeDefault TOML 整数解码为 int64，浮点为 float64
func normalizeDefault(v any) (any, error) {
	switch v.(type) {
	case nil, bool, int64, float64, string:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported default value %v (%T)", v, v)
	}
}

// Save 保存配置到文件
func (c *Config) Save(path string) error {
	content, err := generateConfigWithComments(c)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// generateConfigWithComments 生成带注释的配置文件内容
func generateConfigWithComments(c *Config) ([]byte, error) {
	var sb bytes.Buffer

	sb.WriteString("[target]\n")
	sb.WriteString("# class 文件主版本号（52 = Java 8, 55 = Java 11）\n")
	sb.WriteString(fmt.Sprintf("class_version = %d\n\n", c.Target.ClassVersion))
	sb.WriteString("# 写出前校验类型\n")
	sb.WriteString(fmt.Sprintf("type_validation = %t\n\n", c.Target.TypeValidation))
	sb.WriteString("# 缓存字段名后缀\n")
	sb.WriteString(fmt.Sprintf("cache_suffix = %q\n\n", c.Target.CacheSuffix))

	sb.WriteString("[log]\n")
	sb.WriteString(fmt.Sprintf("level = %q\n", c.Log.Level))
	sb.WriteString(fmt.Sprintf("development = %t\n", c.Log.Development))
	sb.WriteString(fmt.Sprintf("encoding = %q\n", c.Log.Encoding))

	if len(c.FieldRules) > 0 {
		sb.WriteString("\n# 字段规则：越靠后优先级越高\n")
		rules, err := toml.Marshal(struct {
			FieldRules []FieldRule `toml:"field_rules"`
		}{c.FieldRules})
		if err != nil {
			return nil, fmt.Errorf("failed to encode field rules: %w", err)
		}
		sb.Write(rules)
	}
	return sb.Bytes(), nil
}

// GenerateDefault 生成默认配置，附带一条示例规则
func GenerateDefault() *Config {
	c := Default()
	c.FieldRules = []FieldRule{
		{Prefix: "legacy", Deprecated: true},
	}
	return c
}

// FindConfigFile 从指定路径向上查找配置文件
// 返回配置文件的完整路径，如果找不到则返回空字符串
func FindConfigFile(startPath string) string {
	info, err := os.Stat(startPath)
	if err != nil {
		return ""
	}

	var dir string
	if info.IsDir() {
		dir = startPath
	} else {
		dir = filepath.Dir(startPath)
	}

	dir, err = filepath.Abs(dir)
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// 已到达根目录
			return ""
		}
		dir = parent
	}
}
