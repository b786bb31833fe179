// Package member 提供方法调用、字段访问与局部变量访问的栈操作
package member

import (
	"fmt"

	"github.com/tangzhangming/bytekit/internal/description"
	"github.com/tangzhangming/bytekit/internal/emit"
	"github.com/tangzhangming/bytekit/internal/jvmgen"
)

// MethodInvocation 方法调用
type MethodInvocation struct {
	method description.Method
	opcode byte
}

// Invoke 按方法的性质选择调用指令：
// 静态方法 invokestatic，构造方法与私有方法 invokespecial，
// 接口方法 invokeinterface，其余 invokevirtual
func Invoke(m description.Method) MethodInvocation {
	switch {
	case m.IsStatic():
		return MethodInvocation{method: m, opcode: jvmgen.OpInvokestatic}
	case m.IsConstructor(), m.IsPrivate():
		return MethodInvocation{method: m, opcode: jvmgen.OpInvokespecial}
	case m.DeclaringType().IsInterface():
		return MethodInvocation{method: m, opcode: jvmgen.OpInvokeinterface}
	default:
		return MethodInvocation{method: m, opcode: jvmgen.OpInvokevirtual}
	}
}

// Special 以 invokespecial 调用 (父类方法)
func Special(m description.Method) MethodInvocation {
	return MethodInvocation{method: m, opcode: jvmgen.OpInvokespecial}
}

// Method 返回被调用的方法
func (i MethodInvocation) Method() description.Method { return i.method }

// IsValid 静态方法只能用 invokestatic，类型初始化器不能被调用
func (i MethodInvocation) IsValid() bool {
	if i.method.IsTypeInitializer() {
		return false
	}
	return i.method.IsStatic() == (i.opcode == jvmgen.OpInvokestatic)
}

func (i MethodInvocation) Apply(sink emit.Sink, _ emit.Context) (emit.Size, error) {
	if !i.IsValid() {
		return emit.Size{}, fmt.Errorf("%w: %s %s", emit.ErrIllegal, jvmgen.OpcodeName(i.opcode), i.method)
	}
	owner := i.method.DeclaringType()
	sink.MethodInsn(i.opcode, owner.InternalName(), i.method.Name(), i.method.Descriptor(), owner.IsInterface())
	delta := i.method.ReturnType().StackSlots() - i.method.LocalSlots()
	return emit.NewSize(delta, max(0, delta)), nil
}

func (i MethodInvocation) String() string {
	return fmt.Sprintf("MethodInvocation{%s %s}", jvmgen.OpcodeName(i.opcode), i.method)
}

// HandleInvocation 通过 MethodHandle.invokeExact 的多态签名调用
// 栈上需依次为句柄与参数
type HandleInvocation struct {
	signature description.MethodType
}

const (
	methodHandleName = "java/lang/invoke/MethodHandle"
	invokeExact      = "invokeExact"
)

// NewHandleInvocation 以给定签名调用句柄
func NewHandleInvocation(signature description.MethodType) HandleInvocation {
	return HandleInvocation{signature: signature}
}

func (h HandleInvocation) IsValid() bool { return true }

// Apply 净变化为返回值槽位减参数槽位
func (h HandleInvocation) Apply(sink emit.Sink, _ emit.Context) (emit.Size, error) {
	sink.MethodInsn(jvmgen.OpInvokevirtual, methodHandleName, invokeExact, h.signature.Descriptor(), false)
	delta := h.signature.ReturnType().StackSlots() - h.signature.ParameterSlots()
	return emit.NewSize(delta, max(0, delta)), nil
}

func (h HandleInvocation) String() string {
	return fmt.Sprintf("HandleInvocation{%s}", h.signature)
}

// MethodReturn 按返回类型选择返回指令
type MethodReturn struct {
	typ description.Type
}

// Return 返回 t 类型值的片段，void 使用 return
func Return(t description.Type) MethodReturn {
	return MethodReturn{typ: t}
}

func (r MethodReturn) IsValid() bool { return true }

func (r MethodReturn) Apply(sink emit.Sink, _ emit.Context) (emit.Size, error) {
	var op byte
	switch r.typ.Descriptor() {
	case "V":
		op = jvmgen.OpReturn
	case "J":
		op = jvmgen.OpLreturn
	case "F":
		op = jvmgen.OpFreturn
	case "D":
		op = jvmgen.OpDreturn
	case "I", "Z", "B", "C", "S":
		op = jvmgen.OpIreturn
	default:
		op = jvmgen.OpAreturn
	}
	sink.Insn(op)
	return emit.StackSizeOf(r.typ).ToDecreasingSize(), nil
}
