package jvmgen

import "errors"

var (
	// ErrConstantPoolOverflow 常量池超过 65535 个槽位
	ErrConstantPoolOverflow = errors.New("constant pool overflow")
	// ErrOperandRange 指令操作数超出编码范围
	ErrOperandRange = errors.New("operand out of range")
	// ErrConstantValueType 常量值与字段描述符不兼容
	ErrConstantValueType = errors.New("constant value incompatible with field descriptor")
	// ErrUnsupportedConstant ldc 不支持的常量类型
	ErrUnsupportedConstant = errors.New("unsupported ldc constant")
	// ErrMethodNotFound 目标运行时中找不到方法
	ErrMethodNotFound = errors.New("method not found in target runtime")
	// ErrMethodUnavailable 方法在目标 class 版本中不可用
	ErrMethodUnavailable = errors.New("method unavailable for target class version")
	// ErrBadDescriptor 描述符格式错误
	ErrBadDescriptor = errors.New("malformed descriptor")
)
