package emit

import (
	"github.com/tangzhangming/bytekit/internal/description"
	"github.com/tangzhangming/bytekit/internal/jvmgen"
)

// Duplication 复制栈顶值
type Duplication struct {
	size   StackSize
	opcode byte
}

var (
	DuplicateZero   = Duplication{size: StackSizeZero, opcode: jvmgen.OpNop}
	DuplicateSingle = Duplication{size: StackSizeSingle, opcode: jvmgen.OpDup}
	DuplicateDouble = Duplication{size: StackSizeDouble, opcode: jvmgen.OpDup2}
)

// DuplicateOf 返回复制给定类型栈顶值的片段
func DuplicateOf(t description.Type) Duplication {
	switch StackSizeOf(t) {
	case StackSizeZero:
		return DuplicateZero
	case StackSizeDouble:
		return DuplicateDouble
	default:
		return DuplicateSingle
	}
}

// FlipOver 复制栈顶值并将副本插到宽度为 under 的值之下 (dup_x1 / dup2_x2 等)
func (d Duplication) FlipOver(under StackSize) StackManipulation {
	var op byte
	switch {
	case d.size == StackSizeSingle && under == StackSizeSingle:
		op = jvmgen.OpDupX1
	case d.size == StackSizeSingle && under == StackSizeDouble:
		op = jvmgen.OpDupX2
	case d.size == StackSizeDouble && under == StackSizeSingle:
		op = jvmgen.OpDup2X1
	case d.size == StackSizeDouble && under == StackSizeDouble:
		op = jvmgen.OpDup2X2
	default:
		return Illegal
	}
	return Duplication{size: d.size, opcode: op}
}

func (d Duplication) IsValid() bool { return true }

func (d Duplication) Apply(sink Sink, _ Context) (Size, error) {
	if d.size != StackSizeZero {
		sink.Insn(d.opcode)
	}
	return d.size.ToIncreasingSize(), nil
}

// Removal 弹出栈顶值
type Removal struct {
	size StackSize
}

var (
	RemoveZero   = Removal{size: StackSizeZero}
	RemoveSingle = Removal{size: StackSizeSingle}
	RemoveDouble = Removal{size: StackSizeDouble}
)

// RemovalOf 返回弹出给定类型值的片段
func RemovalOf(t description.Type) Removal {
	return Removal{size: StackSizeOf(t)}
}

func (r Removal) IsValid() bool { return true }

func (r Removal) Apply(sink Sink, _ Context) (Size, error) {
	switch r.size {
	case StackSizeSingle:
		sink.Insn(jvmgen.OpPop)
	case StackSizeDouble:
		sink.Insn(jvmgen.OpPop2)
	}
	return r.size.ToDecreasingSize(), nil
}
