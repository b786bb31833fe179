package emit

import (
	"fmt"
	"strings"

	"github.com/tangzhangming/bytekit/internal/description"
	"github.com/tangzhangming/bytekit/internal/jvmgen"
)

// Sink 接收底层指令的目标，*jvmgen.CodeWriter 与 *Recorder 均实现此接口
type Sink interface {
	Insn(opcode byte)
	IntInsn(opcode byte, operand int)
	VarInsn(opcode byte, index int)
	TypeInsn(opcode byte, internalName string)
	FieldInsn(opcode byte, owner, name, descriptor string)
	MethodInsn(opcode byte, owner, name, descriptor string, isInterface bool)
	// LdcInsn 的操作数为 string、int32、int64、float32、float64 或 jvmgen.ClassRef
	LdcInsn(value any)
}

// Context 单个被生成类型的写出上下文
type Context interface {
	// InstrumentedType 返回正在生成的类型
	InstrumentedType() description.Type
	// Cache 为片段分配一个只写一次的静态字段，首次读取前由类型初始化器填充
	Cache(m StackManipulation, fieldType description.Type) (description.Field, error)
	// LocateMethod 在目标运行时中查找方法
	LocateMethod(owner description.Type, name string, params ...description.Type) (description.Method, error)
}

var _ Sink = (*jvmgen.CodeWriter)(nil)

// Instruction 被记录的一条指令
type Instruction struct {
	Opcode      byte
	Operand     any // int 操作数或 ldc 常量
	Owner       string
	Name        string
	Descriptor  string
	IsInterface bool
	kind        insnKind
}

type insnKind uint8

const (
	kindInsn insnKind = iota
	kindInt
	kindVar
	kindType
	kindField
	kindMethod
	kindLdc
)

func (i Instruction) String() string {
	op := jvmgen.OpcodeName(i.Opcode)
	switch i.kind {
	case kindInt, kindVar:
		return fmt.Sprintf("%s %d", op, i.Operand)
	case kindType:
		return fmt.Sprintf("%s %s", op, i.Owner)
	case kindField, kindMethod:
		return fmt.Sprintf("%s %s.%s:%s", op, i.Owner, i.Name, i.Descriptor)
	case kindLdc:
		if s, ok := i.Operand.(string); ok {
			return fmt.Sprintf("ldc %q", s)
		}
		return fmt.Sprintf("ldc %v", i.Operand)
	default:
		return op
	}
}

// Recorder 将指令记录为值的 Sink，可回放到其他 Sink
type Recorder struct {
	Instructions []Instruction
}

func (r *Recorder) add(i Instruction) { r.Instructions = append(r.Instructions, i) }

func (r *Recorder) Insn(opcode byte) {
	r.add(Instruction{Opcode: opcode, kind: kindInsn})
}

func (r *Recorder) IntInsn(opcode byte, operand int) {
	r.add(Instruction{Opcode: opcode, Operand: operand, kind: kindInt})
}

func (r *Recorder) VarInsn(opcode byte, index int) {
	r.add(Instruction{Opcode: opcode, Operand: index, kind: kindVar})
}

func (r *Recorder) TypeInsn(opcode byte, internalName string) {
	r.add(Instruction{Opcode: opcode, Owner: internalName, kind: kindType})
}

func (r *Recorder) FieldInsn(opcode byte, owner, name, descriptor string) {
	r.add(Instruction{Opcode: opcode, Owner: owner, Name: name, Descriptor: descriptor, kind: kindField})
}

func (r *Recorder) MethodInsn(opcode byte, owner, name, descriptor string, isInterface bool) {
	r.add(Instruction{Opcode: opcode, Owner: owner, Name: name, Descriptor: descriptor, IsInterface: isInterface, kind: kindMethod})
}

func (r *Recorder) LdcInsn(value any) {
	r.add(Instruction{Opcode: jvmgen.OpLdc, Operand: value, kind: kindLdc})
}

// Opcodes 返回记录的操作码序列
func (r *Recorder) Opcodes() []byte {
	ops := make([]byte, len(r.Instructions))
	for i, insn := range r.Instructions {
		ops[i] = insn.Opcode
	}
	return ops
}

// Replay 按记录顺序将指令写入另一个 Sink
func (r *Recorder) Replay(sink Sink) {
	for _, i := range r.Instructions {
		switch i.kind {
		case kindInt:
			sink.IntInsn(i.Opcode, i.Operand.(int))
		case kindVar:
			sink.VarInsn(i.Opcode, i.Operand.(int))
		case kindType:
			sink.TypeInsn(i.Opcode, i.Owner)
		case kindField:
			sink.FieldInsn(i.Opcode, i.Owner, i.Name, i.Descriptor)
		case kindMethod:
			sink.MethodInsn(i.Opcode, i.Owner, i.Name, i.Descriptor, i.IsInterface)
		case kindLdc:
			sink.LdcInsn(i.Operand)
		default:
			sink.Insn(i.Opcode)
		}
	}
}

// String 返回反汇编文本，每行一条指令
func (r *Recorder) String() string {
	var sb strings.Builder
	for _, i := range r.Instructions {
		sb.WriteString(i.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
