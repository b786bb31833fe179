package emit

import (
	"fmt"

	"github.com/tangzhangming/bytekit/internal/description"
	"github.com/tangzhangming/bytekit/internal/jvmgen"
)

// TypeCreation 分配未初始化的实例 (new)，随后需调用构造方法
type TypeCreation struct {
	typ description.Type
}

// NewTypeCreation 为可实例化的类型创建 new 指令；
// 基本类型、数组、抽象类与接口在构造时即被拒绝
func NewTypeCreation(t description.Type) (TypeCreation, error) {
	if t.IsArray() || t.IsPrimitive() || t.IsAbstract() || t.IsInterface() {
		return TypeCreation{}, fmt.Errorf("%w: %s", ErrNotInstantiable, t)
	}
	return TypeCreation{typ: t}, nil
}

// Type 返回被实例化的类型
func (c TypeCreation) Type() description.Type { return c.typ }

func (c TypeCreation) IsValid() bool { return true }

func (c TypeCreation) Apply(sink Sink, _ Context) (Size, error) {
	sink.TypeInsn(jvmgen.OpNew, c.typ.InternalName())
	return StackSizeSingle.ToIncreasingSize(), nil
}

func (c TypeCreation) String() string {
	return fmt.Sprintf("TypeCreation{%s}", c.typ)
}
