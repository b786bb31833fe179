package constant

import (
	"fmt"

	"github.com/tangzhangming/bytekit/internal/description"
	"github.com/tangzhangming/bytekit/internal/emit"
	"github.com/tangzhangming/bytekit/internal/emit/member"
)

const getDeclaredField = "getDeclaredField"

// FieldConstant 压入字段的反射对象 java.lang.reflect.Field
// 展开为 Declaring.class.getDeclaredField("name")
type FieldConstant struct {
	field description.Field
}

// NewFieldConstant 创建字段反射常量
func NewFieldConstant(f description.Field) FieldConstant {
	return FieldConstant{field: f}
}

// Cached 返回从类型初始化器填充的静态字段读取该常量的片段
func (c FieldConstant) Cached() emit.StackManipulation {
	return cached{value: c}
}

func (c FieldConstant) IsValid() bool { return true }

// Apply 需要目标运行时提供 Class.getDeclaredField，找不到时返回错误
func (c FieldConstant) Apply(sink emit.Sink, ctx emit.Context) (emit.Size, error) {
	lookup, err := ctx.LocateMethod(description.Class, getDeclaredField, description.String)
	if err != nil {
		return emit.Size{}, fmt.Errorf("cannot locate Class::getDeclaredField: %w", err)
	}
	return emit.Compound(
		ClassOf(c.field.DeclaringType()),
		Text(c.field.Name()),
		member.Invoke(lookup),
	).Apply(sink, ctx)
}

func (c FieldConstant) String() string {
	return fmt.Sprintf("FieldConstant{%s}", c.field)
}

// cached 通过上下文的一次写入缓存读取常量
type cached struct {
	value emit.StackManipulation
}

func (c cached) IsValid() bool { return c.value.IsValid() }

func (c cached) Apply(sink emit.Sink, ctx emit.Context) (emit.Size, error) {
	field, err := ctx.Cache(c.value, description.ReflectField)
	if err != nil {
		return emit.Size{}, err
	}
	return member.ReadField(field).Apply(sink, ctx)
}

func (c cached) String() string {
	return fmt.Sprintf("Cached{%v}", c.value)
}
