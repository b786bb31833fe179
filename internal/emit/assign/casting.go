// Package assign 提供类型转换相关的栈操作
package assign

import (
	"errors"
	"fmt"

	"github.com/tangzhangming/bytekit/internal/description"
	"github.com/tangzhangming/bytekit/internal/emit"
	"github.com/tangzhangming/bytekit/internal/jvmgen"
)

// ErrPrimitiveCast checkcast 的目标不能是基本类型
var ErrPrimitiveCast = errors.New("cannot cast to primitive type")

// TypeCasting 将栈顶引用收窄为指定类型 (checkcast)
type TypeCasting struct {
	typ description.Type
}

// NewTypeCasting 创建到引用类型的转换
func NewTypeCasting(t description.Type) (TypeCasting, error) {
	if t.IsPrimitive() {
		return TypeCasting{}, fmt.Errorf("%w: %s", ErrPrimitiveCast, t)
	}
	return TypeCasting{typ: t}, nil
}

// Type 返回目标类型
func (c TypeCasting) Type() description.Type { return c.typ }

func (c TypeCasting) IsValid() bool { return true }

func (c TypeCasting) Apply(sink emit.Sink, _ emit.Context) (emit.Size, error) {
	sink.TypeInsn(jvmgen.OpCheckcast, c.typ.InternalName())
	return emit.StackSizeZero.ToIncreasingSize(), nil
}

func (c TypeCasting) String() string {
	return fmt.Sprintf("TypeCasting{%s}", c.typ)
}

// InstanceCheck 检查栈顶引用是否为指定类型 (instanceof)，结果为 int
type InstanceCheck struct {
	typ description.Type
}

// NewInstanceCheck 创建 instanceof 检查
func NewInstanceCheck(t description.Type) (InstanceCheck, error) {
	if t.IsPrimitive() {
		return InstanceCheck{}, fmt.Errorf("%w: %s", ErrPrimitiveCast, t)
	}
	return InstanceCheck{typ: t}, nil
}

func (c InstanceCheck) IsValid() bool { return true }

func (c InstanceCheck) Apply(sink emit.Sink, _ emit.Context) (emit.Size, error) {
	sink.TypeInsn(jvmgen.OpInstanceof, c.typ.InternalName())
	return emit.StackSizeZero.ToIncreasingSize(), nil
}
