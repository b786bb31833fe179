// Package emit 实现栈操作模型
//
// StackManipulation 是一段声明了操作数栈净效果的字节码片段。片段是不可变的值，
// 通过 Compound 组合，组合后的 Size 按高水位规则累加，供 max_stack 计算使用，
// 无需真正模拟执行栈。
package emit

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegal 试图写出非法的栈操作
	ErrIllegal = errors.New("illegal stack manipulation")
	// ErrNotInstantiable 类型不能被 new 实例化
	ErrNotInstantiable = errors.New("type is not instantiable")
)

// StackManipulation 对操作数栈有确定效果的字节码片段
type StackManipulation interface {
	// IsValid 报告该片段是否可以被写出
	IsValid() bool
	// Apply 将指令写入 sink，返回实际产生的栈效果；仅在 IsValid 为 true 时调用
	Apply(sink Sink, ctx Context) (Size, error)
}

// Size 栈效果：净变化量与执行期间的最大增长量
// 约束：maximal >= max(0, delta)
type Size struct {
	delta   int
	maximal int
}

// NewSize 创建栈效果，违反约束时 panic
func NewSize(delta, maximal int) Size {
	if maximal < 0 || maximal < delta {
		panic(fmt.Sprintf("emit: invalid size (delta=%d, maximal=%d)", delta, maximal))
	}
	return Size{delta: delta, maximal: maximal}
}

// Delta 返回净变化量
func (s Size) Delta() int { return s.delta }

// Maximal 返回最大增长量
func (s Size) Maximal() int { return s.maximal }

// Aggregate 顺序组合两个栈效果
// 后者的高水位建立在前者净变化之上
func (s Size) Aggregate(other Size) Size {
	return Size{
		delta:   s.delta + other.delta,
		maximal: max(s.maximal, s.delta+other.maximal),
	}
}

func (s Size) String() string {
	return fmt.Sprintf("Size{delta=%d, maximal=%d}", s.delta, s.maximal)
}

// ============================================================================
// 基础片段
// ============================================================================

type trivial struct{}

// Trivial 不产生任何指令的合法片段
var Trivial StackManipulation = trivial{}

func (trivial) IsValid() bool                     { return true }
func (trivial) Apply(Sink, Context) (Size, error) { return Size{}, nil }
func (trivial) String() string                    { return "Trivial" }

type illegal struct{}

// Illegal 表示无法构造的片段，与任何片段组合后结果都不合法
var Illegal StackManipulation = illegal{}

func (illegal) IsValid() bool { return false }
func (illegal) Apply(Sink, Context) (Size, error) {
	return Size{}, ErrIllegal
}
func (illegal) String() string { return "Illegal" }

// ============================================================================
// 组合
// ============================================================================

// compound 按顺序组合的片段
type compound []StackManipulation

// Compound 组合多个片段，嵌套的组合会被展平
func Compound(ms ...StackManipulation) StackManipulation {
	flat := make(compound, 0, len(ms))
	for _, m := range ms {
		if c, ok := m.(compound); ok {
			flat = append(flat, c...)
			continue
		}
		flat = append(flat, m)
	}
	return flat
}

// IsValid 全部片段合法时组合才合法
func (c compound) IsValid() bool {
	for _, m := range c {
		if !m.IsValid() {
			return false
		}
	}
	return true
}

// Apply 依次写出每个片段，累加栈效果
func (c compound) Apply(sink Sink, ctx Context) (Size, error) {
	var size Size
	for _, m := range c {
		s, err := m.Apply(sink, ctx)
		if err != nil {
			return Size{}, err
		}
		size = size.Aggregate(s)
	}
	return size, nil
}

// Len 返回组合中的片段数
func (c compound) Len() int { return len(c) }

func (c compound) String() string {
	return fmt.Sprintf("Compound%v", []StackManipulation(c))
}
