package jvmgen

import (
	"fmt"
	"math"

	"go.uber.org/multierr"
)

const opWide = 0xC4

// ClassRef 作为 ldc 操作数的类字面量，值为内部名称或数组描述符
type ClassRef string

// CodeWriter 单个方法体的字节码写入器
// 指令方法不返回错误，编码错误累积后由 Err 统一返回
type CodeWriter struct {
	pool      *ConstantPool
	code      *ByteWriter
	maxLocals int
	err       error
}

// NewCodeWriter 创建共享常量池的字节码写入器
func NewCodeWriter(pool *ConstantPool) *CodeWriter {
	return &CodeWriter{pool: pool, code: NewByteWriter()}
}

// Insn 写入无操作数指令
func (c *CodeWriter) Insn(opcode byte) {
	c.code.WriteU8(opcode)
}

// IntInsn 写入带整型操作数的指令 (bipush / sipush / newarray)
func (c *CodeWriter) IntInsn(opcode byte, operand int) {
	switch opcode {
	case OpBipush:
		if operand < math.MinInt8 || operand > math.MaxInt8 {
			c.fail(fmt.Errorf("%w: bipush %d", ErrOperandRange, operand))
			return
		}
		c.code.WriteU8(opcode)
		c.code.WriteI8(int8(operand))
	case OpSipush:
		if operand < math.MinInt16 || operand > math.MaxInt16 {
			c.fail(fmt.Errorf("%w: sipush %d", ErrOperandRange, operand))
			return
		}
		c.code.WriteU8(opcode)
		c.code.WriteI16(int16(operand))
	case OpNewarray:
		if operand < 4 || operand > 11 {
			c.fail(fmt.Errorf("%w: newarray type %d", ErrOperandRange, operand))
			return
		}
		c.code.WriteU8(opcode)
		c.code.WriteU8(uint8(operand))
	default:
		c.fail(fmt.Errorf("%w: %s is not an int instruction", ErrOperandRange, OpcodeName(opcode)))
	}
}

// VarInsn 写入局部变量加载/存储指令，索引超过 255 时使用 wide 前缀
func (c *CodeWriter) VarInsn(opcode byte, index int) {
	width := 1
	if opcode == OpLload || opcode == OpDload || opcode == OpLstore || opcode == OpDstore {
		width = 2
	}
	if index >= 0 && index+width > c.maxLocals {
		c.maxLocals = index + width
	}
	switch {
	case index < 0 || index > math.MaxUint16:
		c.fail(fmt.Errorf("%w: local %d", ErrOperandRange, index))
	case index <= math.MaxUint8:
		c.code.WriteU8(opcode)
		c.code.WriteU8(uint8(index))
	default:
		c.code.WriteU8(opWide)
		c.code.WriteU8(opcode)
		c.code.WriteU16(uint16(index))
	}
}

// TypeInsn 写入类型指令 (new / checkcast / instanceof / anewarray)
func (c *CodeWriter) TypeInsn(opcode byte, internalName string) {
	c.code.WriteU8(opcode)
	c.code.WriteU16(c.pool.AddClass(internalName))
}

// FieldInsn 写入字段访问指令
func (c *CodeWriter) FieldInsn(opcode byte, owner, name, descriptor string) {
	c.code.WriteU8(opcode)
	c.code.WriteU16(c.pool.AddFieldref(owner, name, descriptor))
}

// MethodInsn 写入方法调用指令
func (c *CodeWriter) MethodInsn(opcode byte, owner, name, descriptor string, isInterface bool) {
	var idx uint16
	if isInterface {
		idx = c.pool.AddInterfaceMethodref(owner, name, descriptor)
	} else {
		idx = c.pool.AddMethodref(owner, name, descriptor)
	}
	c.code.WriteU8(opcode)
	c.code.WriteU16(idx)
	if opcode == OpInvokeinterface {
		slots, err := ArgumentSlots(descriptor)
		if err != nil {
			c.fail(err)
			return
		}
		c.code.WriteU8(uint8(slots + 1))
		c.code.WriteU8(0)
	}
}

// LdcInsn 写入常量加载指令
func (c *CodeWriter) LdcInsn(value any) {
	var idx uint16
	wide := false
	switch v := value.(type) {
	case string:
		idx = c.pool.AddString(v)
	case int32:
		idx = c.pool.AddInteger(v)
	case float32:
		idx = c.pool.AddFloat(v)
	case int64:
		idx, wide = c.pool.AddLong(v), true
	case float64:
		idx, wide = c.pool.AddDouble(v), true
	case ClassRef:
		idx = c.pool.AddClass(string(v))
	default:
		c.fail(fmt.Errorf("%w: %T", ErrUnsupportedConstant, value))
		return
	}
	switch {
	case wide:
		c.code.WriteU8(OpLdc2W)
		c.code.WriteU16(idx)
	case idx <= math.MaxUint8:
		c.code.WriteU8(OpLdc)
		c.code.WriteU8(uint8(idx))
	default:
		c.code.WriteU8(OpLdcW)
		c.code.WriteU16(idx)
	}
}

// Bytes 返回已写入的字节码
func (c *CodeWriter) Bytes() []byte {
	return c.code.Bytes()
}

// MaxLocals 已访问的局部变量槽位上界
func (c *CodeWriter) MaxLocals() int {
	return c.maxLocals
}

// Len 返回字节码长度
func (c *CodeWriter) Len() int {
	return c.code.Len()
}

// Err 返回写入过程中累积的错误
func (c *CodeWriter) Err() error {
	return c.err
}

func (c *CodeWriter) fail(err error) {
	multierr.AppendInto(&c.err, err)
}
