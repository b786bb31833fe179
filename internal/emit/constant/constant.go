// Package constant 提供将常量压入操作数栈的栈操作
package constant

import (
	"errors"
	"fmt"
	"math"

	"github.com/tangzhangming/bytekit/internal/description"
	"github.com/tangzhangming/bytekit/internal/emit"
	"github.com/tangzhangming/bytekit/internal/jvmgen"
)

// ErrUnsupportedValue 无法表示为常量的默认值
var ErrUnsupportedValue = errors.New("unsupported constant value")

// Text 字符串常量 (ldc)
type Text string

func (t Text) IsValid() bool { return true }

func (t Text) Apply(sink emit.Sink, _ emit.Context) (emit.Size, error) {
	sink.LdcInsn(string(t))
	return emit.StackSizeSingle.ToIncreasingSize(), nil
}

type nullConstant struct{}

// Null 压入 null 引用
var Null emit.StackManipulation = nullConstant{}

func (nullConstant) IsValid() bool { return true }

func (nullConstant) Apply(sink emit.Sink, _ emit.Context) (emit.Size, error) {
	sink.Insn(jvmgen.OpAconstNull)
	return emit.StackSizeSingle.ToIncreasingSize(), nil
}

// Integer int 常量，按数值选择 iconst / bipush / sipush / ldc
type Integer int32

func (i Integer) IsValid() bool { return true }

func (i Integer) Apply(sink emit.Sink, _ emit.Context) (emit.Size, error) {
	switch v := int32(i); {
	case v >= -1 && v <= 5:
		sink.Insn(byte(jvmgen.OpIconst0 + v))
	case v >= math.MinInt8 && v <= math.MaxInt8:
		sink.IntInsn(jvmgen.OpBipush, int(v))
	case v >= math.MinInt16 && v <= math.MaxInt16:
		sink.IntInsn(jvmgen.OpSipush, int(v))
	default:
		sink.LdcInsn(v)
	}
	return emit.StackSizeSingle.ToIncreasingSize(), nil
}

// Long long 常量，占两个槽位
type Long int64

func (l Long) IsValid() bool { return true }

func (l Long) Apply(sink emit.Sink, _ emit.Context) (emit.Size, error) {
	switch l {
	case 0:
		sink.Insn(jvmgen.OpLconst0)
	case 1:
		sink.Insn(jvmgen.OpLconst1)
	default:
		sink.LdcInsn(int64(l))
	}
	return emit.StackSizeDouble.ToIncreasingSize(), nil
}

// Class 类字面量；基本类型读取对应包装类的 TYPE 字段
type Class struct {
	typ description.Type
}

// ClassOf 创建类字面量常量
func ClassOf(t description.Type) Class {
	return Class{typ: t}
}

var wrapperNames = map[string]string{
	"V": "java/lang/Void",
	"Z": "java/lang/Boolean",
	"B": "java/lang/Byte",
	"C": "java/lang/Character",
	"S": "java/lang/Short",
	"I": "java/lang/Integer",
	"J": "java/lang/Long",
	"F": "java/lang/Float",
	"D": "java/lang/Double",
}

func (c Class) IsValid() bool { return true }

func (c Class) Apply(sink emit.Sink, _ emit.Context) (emit.Size, error) {
	if c.typ.IsPrimitive() {
		sink.FieldInsn(jvmgen.OpGetstatic, wrapperNames[c.typ.Descriptor()], "TYPE", description.Class.Descriptor())
	} else {
		sink.LdcInsn(jvmgen.ClassRef(c.typ.InternalName()))
	}
	return emit.StackSizeSingle.ToIncreasingSize(), nil
}

func (c Class) String() string {
	return fmt.Sprintf("ClassConstant{%s}", c.typ)
}

// Default 将 Go 值转换为对应的常量片段
func Default(value any) (emit.StackManipulation, error) {
	switch v := value.(type) {
	case nil:
		return Null, nil
	case bool:
		if v {
			return Integer(1), nil
		}
		return Integer(0), nil
	case int:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return Long(v), nil
		}
		return Integer(v), nil
	case int8:
		return Integer(v), nil
	case int16:
		return Integer(v), nil
	case int32:
		return Integer(v), nil
	case int64:
		return Long(v), nil
	case string:
		return Text(v), nil
	case description.Type:
		return ClassOf(v), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
	}
}
