// Package scaffold 组装被生成的类型：字段规则注册表、类型校验、
// 写出上下文与 class 文件写出器。
package scaffold

import (
	"reflect"

	"github.com/tangzhangming/bytekit/internal/attribute"
	"github.com/tangzhangming/bytekit/internal/description"
	"github.com/tangzhangming/bytekit/internal/matcher"
	"github.com/tangzhangming/bytekit/internal/transform"
)

// FieldPool 为字段解析出写出记录
type FieldPool interface {
	Target(f description.Field) FieldRecord
}

// ============================================================================
// 未编译的注册表
// ============================================================================

// fieldEntry 一条字段规则
type fieldEntry struct {
	matcher      matcher.LatentMatcher[description.Field]
	factory      attribute.FieldAppenderFactory
	defaultValue any
	transformer  transform.FieldTransformer
}

// FieldRegistry 有序的字段规则列表，越靠前优先级越高
//
// 注册表是不可变值：Prepend 返回新的注册表，可在多个 goroutine 间共享。
type FieldRegistry struct {
	entries []fieldEntry
}

// NewFieldRegistry 创建空注册表
func NewFieldRegistry() FieldRegistry {
	return FieldRegistry{}
}

// Len 返回规则数
func (r FieldRegistry) Len() int {
	return len(r.entries)
}

// Prepend 返回在最前面加入新规则的注册表，新规则优先于已有的全部规则
func (r FieldRegistry) Prepend(
	m matcher.LatentMatcher[description.Field],
	factory attribute.FieldAppenderFactory,
	defaultValue any,
	transformer transform.FieldTransformer,
) FieldRegistry {
	switch v := m.(type) {
	case nil:
		m = matcher.Any[description.Field]()
	case matcher.ElementMatcher[description.Field]:
		if v == nil {
			m = matcher.Any[description.Field]()
		}
	case matcher.LatentFunc[description.Field]:
		if v == nil {
			m = matcher.Any[description.Field]()
		}
	}
	if factory == nil {
		factory = attribute.NoOp{}
	}
	entries := make([]fieldEntry, 0, len(r.entries)+1)
	entries = append(entries, fieldEntry{
		matcher:      m,
		factory:      factory,
		defaultValue: defaultValue,
		transformer:  transformer,
	})
	entries = append(entries, r.entries...)
	return FieldRegistry{entries: entries}
}

// Compile 针对具体类型编译注册表
//
// 每条规则的匹配器被解析为具体谓词；同一次编译中引用同一工厂的规则
// 共享同一个 FieldAppender，工厂的 Make 只被调用一次。
// 不可比较的工厂值 (func、slice，或持有它们的 struct) 无法去重，
// 每条规则各自调用一次 Make。
func (r FieldRegistry) Compile(instrumentedType description.Type) *CompiledFieldRegistry {
	appenders := make(map[attribute.FieldAppenderFactory]attribute.FieldAppender)
	entries := make([]compiledFieldEntry, 0, len(r.entries))
	for _, e := range r.entries {
		appender, ok := lookupAppender(appenders, e.factory)
		if !ok {
			appender = e.factory.Make(instrumentedType)
			if isComparable(e.factory) {
				appenders[e.factory] = appender
			}
		}
		resolved := e.matcher.Resolve(instrumentedType)
		if resolved == nil {
			resolved = matcher.Any[description.Field]()
		}
		entries = append(entries, compiledFieldEntry{
			matcher:      resolved,
			appender:     appender,
			defaultValue: e.defaultValue,
			transformer:  e.transformer,
		})
	}
	return &CompiledFieldRegistry{instrumentedType: instrumentedType, entries: entries}
}

func lookupAppender(appenders map[attribute.FieldAppenderFactory]attribute.FieldAppender, f attribute.FieldAppenderFactory) (attribute.FieldAppender, bool) {
	if !isComparable(f) {
		return nil, false
	}
	a, ok := appenders[f]
	return a, ok
}

// isComparable 按动态值判断，接口字段中藏有 func 的 struct 也不可作为 map 键
func isComparable(f attribute.FieldAppenderFactory) bool {
	return reflect.ValueOf(f).Comparable()
}

// ============================================================================
// 编译后的注册表
// ============================================================================

type compiledFieldEntry struct {
	matcher      matcher.ElementMatcher[description.Field]
	appender     attribute.FieldAppender
	defaultValue any
	transformer  transform.FieldTransformer
}

// bind 为匹配的字段生成显式记录
func (e compiledFieldEntry) bind(instrumentedType description.Type, f description.Field) FieldRecord {
	return &ExplicitFieldRecord{
		appender:     e.appender,
		defaultValue: e.defaultValue,
		field:        e.transformer.Transform(instrumentedType, f),
	}
}

// CompiledFieldRegistry 针对单个类型编译后的注册表，只读，可并发查询
type CompiledFieldRegistry struct {
	instrumentedType description.Type
	entries          []compiledFieldEntry
}

// InstrumentedType 返回编译目标类型
func (c *CompiledFieldRegistry) InstrumentedType() description.Type {
	return c.instrumentedType
}

// Target 按顺序查找第一条匹配的规则；没有匹配时返回隐式记录
func (c *CompiledFieldRegistry) Target(f description.Field) FieldRecord {
	for _, e := range c.entries {
		if e.matcher.Matches(f) {
			return e.bind(c.instrumentedType, f)
		}
	}
	return &ImplicitFieldRecord{field: f}
}

var _ FieldPool = (*CompiledFieldRegistry)(nil)

type noOpFieldPool struct{}

// NoOpFieldPool 没有任何规则的类型使用的编译结果，总是返回隐式记录
var NoOpFieldPool FieldPool = noOpFieldPool{}

func (noOpFieldPool) Target(f description.Field) FieldRecord {
	return &ImplicitFieldRecord{field: f}
}
