// Package plan 读取 TOML 类型计划并构造待生成的类型
//
// 计划描述一个类型的名称、父类、字段与方法；方法体是按顺序组合的栈操作列表。
package plan

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"

	"github.com/tangzhangming/bytekit/internal/description"
	"github.com/tangzhangming/bytekit/internal/scaffold"
)

// ErrInvalidPlan 计划内容不合法
var ErrInvalidPlan = errors.New("invalid plan")

// Plan 一个类型的生成计划
type Plan struct {
	// Types 计划引用的外部类型的形状，用于得到接口、抽象等修饰符
	Types   []TypeShape  `toml:"types"`
	Type    TypeSpec     `toml:"type"`
	Fields  []FieldSpec  `toml:"fields"`
	Methods []MethodSpec `toml:"methods"`
}

// TypeShape 外部类型的名称与修饰符
type TypeShape struct {
	Name      string   `toml:"name"`
	Modifiers []string `toml:"modifiers"`
}

// TypeSpec 被生成的类型
type TypeSpec struct {
	Name       string   `toml:"name"`
	Super      string   `toml:"super"`
	Interfaces []string `toml:"interfaces"`
	Modifiers  []string `toml:"modifiers"`
}

// FieldSpec 字段声明
type FieldSpec struct {
	Name      string   `toml:"name"`
	Type      string   `toml:"type"`
	Modifiers []string `toml:"modifiers"`
}

// MethodSpec 方法声明；Descriptor 为空时由 Returns 与 Params 构造签名
type MethodSpec struct {
	Name       string   `toml:"name"`
	Descriptor string   `toml:"descriptor"`
	Returns    string   `toml:"returns"`
	Params     []string `toml:"params"`
	Modifiers  []string `toml:"modifiers"`
	Body       []Op     `toml:"body"`
}

// Op 方法体中的一个操作，各字段按 Op 的种类取用
type Op struct {
	Op         string `toml:"op"`
	Type       string `toml:"type"`
	Value      any    `toml:"value"`
	Owner      string `toml:"owner"`
	Name       string `toml:"name"`
	Descriptor string `toml:"descriptor"`
	Index      int    `toml:"index"`
	Static     bool   `toml:"static"`
	Special    bool   `toml:"special"`
	Cached     bool   `toml:"cached"`
}

// Load 从文件加载计划
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse 解析 TOML 计划
func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	if strings.TrimSpace(p.Type.Name) == "" {
		return nil, fmt.Errorf("%w: missing [type] name", ErrInvalidPlan)
	}
	return &p, nil
}

// Build 构造待生成的类型，汇总所有字段与方法的错误
func (p *Plan) Build() (*scaffold.InstrumentedType, error) {
	r, err := newResolver(p)
	if err != nil {
		return nil, err
	}

	t := &scaffold.InstrumentedType{Type: r.self}
	super := p.Type.Super
	if super == "" {
		super = description.Object.Name()
	}
	if t.SuperClass, err = r.resolve(super); err != nil {
		return nil, err
	}
	for _, name := range p.Type.Interfaces {
		iface, e := r.resolve(name)
		if e != nil {
			multierr.AppendInto(&err, e)
			continue
		}
		t.Interfaces = append(t.Interfaces, iface)
	}

	for _, fs := range p.Fields {
		f, e := r.field(fs)
		if e != nil {
			multierr.AppendInto(&err, e)
			continue
		}
		t.Fields = append(t.Fields, f)
	}
	r.fields = t.Fields

	for _, ms := range p.Methods {
		m, e := r.method(ms)
		if e != nil {
			multierr.AppendInto(&err, e)
			continue
		}
		t.Methods = append(t.Methods, m)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}
