package emit

import "github.com/tangzhangming/bytekit/internal/description"

// StackSize 单个值占用的栈槽位数
type StackSize int

const (
	StackSizeZero   StackSize = 0 // void
	StackSizeSingle StackSize = 1 // 除 long/double 外的值
	StackSizeDouble StackSize = 2 // long/double
)

// StackSizeOf 返回类型对应的槽位数
func StackSizeOf(t description.Type) StackSize {
	return StackSize(t.StackSlots())
}

// ToIncreasingSize 压入该宽度的值产生的栈效果
func (s StackSize) ToIncreasingSize() Size {
	return Size{delta: int(s), maximal: int(s)}
}

// ToDecreasingSize 弹出该宽度的值产生的栈效果
func (s StackSize) ToDecreasingSize() Size {
	return Size{delta: -int(s)}
}

// Maximum 返回两者中较大的宽度
func (s StackSize) Maximum(other StackSize) StackSize {
	return max(s, other)
}
