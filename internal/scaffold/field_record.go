package scaffold

import (
	"fmt"

	"github.com/tangzhangming/bytekit/internal/attribute"
	"github.com/tangzhangming/bytekit/internal/description"
	"github.com/tangzhangming/bytekit/internal/jvmgen"
)

// FieldRecord 字段的解析结果：显式 (命中规则) 或隐式 (原样写出)
type FieldRecord interface {
	// IsImplicit 是否没有规则命中
	IsImplicit() bool
	// Field 返回将要写出的字段描述，显式记录为转换后的描述
	Field() description.Field
	// Appender 返回额外属性的写入器
	Appender() attribute.FieldAppender
	// DefaultValue 解析默认值：记录自身的默认值优先于 fallback
	DefaultValue(fallback any) any
	// Apply 将字段写入 class 构建器
	Apply(b *jvmgen.ClassBuilder) error
}

// ExplicitFieldRecord 命中规则的字段记录
type ExplicitFieldRecord struct {
	appender     attribute.FieldAppender
	defaultValue any
	field        description.Field
}

func (r *ExplicitFieldRecord) IsImplicit() bool                  { return false }
func (r *ExplicitFieldRecord) Field() description.Field          { return r.field }
func (r *ExplicitFieldRecord) Appender() attribute.FieldAppender { return r.appender }

func (r *ExplicitFieldRecord) DefaultValue(fallback any) any {
	if r.defaultValue == nil {
		return fallback
	}
	return r.defaultValue
}

// Apply 写出字段；静态字段的默认值编码为 ConstantValue 属性
func (r *ExplicitFieldRecord) Apply(b *jvmgen.ClassBuilder) error {
	fb := b.AddField(uint16(r.field.Modifiers()), r.field.Name(), r.field.Descriptor())
	defaultValue := r.DefaultValue(nil)
	if defaultValue != nil && r.field.IsStatic() {
		if err := fb.SetConstantValue(defaultValue); err != nil {
			return err
		}
	}
	if err := r.appender.Apply(fb, r.field, defaultValue); err != nil {
		return fmt.Errorf("field %s: %w", r.field.Name(), err)
	}
	return nil
}

// ImplicitFieldRecord 未命中任何规则的字段记录
type ImplicitFieldRecord struct {
	field description.Field
}

func (r *ImplicitFieldRecord) IsImplicit() bool                  { return true }
func (r *ImplicitFieldRecord) Field() description.Field          { return r.field }
func (r *ImplicitFieldRecord) Appender() attribute.FieldAppender { return attribute.NoOp{} }
func (r *ImplicitFieldRecord) DefaultValue(fallback any) any     { return fallback }

// Apply 原样写出字段，不附带属性
func (r *ImplicitFieldRecord) Apply(b *jvmgen.ClassBuilder) error {
	b.AddField(uint16(r.field.Modifiers()), r.field.Name(), r.field.Descriptor())
	return nil
}
