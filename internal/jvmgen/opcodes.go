package jvmgen

import "fmt"

// JVM 操作码常量
// 只定义栈操作组合需要用到的操作码
const (
	OpNop = 0x00 // 空操作

	// 常量操作
	OpAconstNull = 0x01 // 将 null 压入栈
	OpIconstM1   = 0x02 // 将 -1 压入栈
	OpIconst0    = 0x03 // 将 0 压入栈
	OpIconst1    = 0x04 // 将 1 压入栈
	OpIconst2    = 0x05 // 将 2 压入栈
	OpIconst3    = 0x06 // 将 3 压入栈
	OpIconst4    = 0x07 // 将 4 压入栈
	OpIconst5    = 0x08 // 将 5 压入栈
	OpLconst0    = 0x09 // 将 0L 压入栈
	OpLconst1    = 0x0A // 将 1L 压入栈
	OpBipush     = 0x10 // 将单字节常量压入栈
	OpSipush     = 0x11 // 将短整型常量压入栈
	OpLdc        = 0x12 // 将常量池中的项压入栈
	OpLdcW       = 0x13 // 宽索引 ldc
	OpLdc2W      = 0x14 // 将 long/double 常量压入栈

	// 加载操作
	OpIload = 0x15
	OpLload = 0x16
	OpFload = 0x17
	OpDload = 0x18
	OpAload = 0x19

	// 存储操作
	OpIstore = 0x36
	OpLstore = 0x37
	OpFstore = 0x38
	OpDstore = 0x39
	OpAstore = 0x3A

	// 栈操作
	OpPop    = 0x57 // 弹出栈顶元素
	OpPop2   = 0x58 // 弹出栈顶两个槽位
	OpDup    = 0x59 // 复制栈顶元素
	OpDupX1  = 0x5A
	OpDupX2  = 0x5B
	OpDup2   = 0x5C
	OpDup2X1 = 0x5D
	OpDup2X2 = 0x5E
	OpSwap   = 0x5F // 交换栈顶两个元素

	// 控制流
	OpIreturn = 0xAC // int 返回
	OpLreturn = 0xAD // long 返回
	OpFreturn = 0xAE // float 返回
	OpDreturn = 0xAF // double 返回
	OpAreturn = 0xB0 // 引用返回
	OpReturn  = 0xB1 // void 返回

	// 字段操作
	OpGetstatic = 0xB2 // 获取静态字段
	OpPutstatic = 0xB3 // 设置静态字段
	OpGetfield  = 0xB4 // 获取实例字段
	OpPutfield  = 0xB5 // 设置实例字段

	// 方法调用
	OpInvokevirtual   = 0xB6 // 调用实例方法
	OpInvokespecial   = 0xB7 // 调用构造方法/父类方法/私有方法
	OpInvokestatic    = 0xB8 // 调用静态方法
	OpInvokeinterface = 0xB9 // 调用接口方法

	// 对象操作
	OpNew         = 0xBB // 创建对象
	OpNewarray    = 0xBC // 创建基本类型数组
	OpAnewarray   = 0xBD // 创建引用类型数组
	OpArraylength = 0xBE // 获取数组长度
	OpAthrow      = 0xBF // 抛出异常

	// 类型转换
	OpCheckcast  = 0xC0 // 类型检查转换
	OpInstanceof = 0xC1 // 类型检查
)

var opcodeNames = map[byte]string{
	OpNop:             "nop",
	OpAconstNull:      "aconst_null",
	OpIconstM1:        "iconst_m1",
	OpIconst0:         "iconst_0",
	OpIconst1:         "iconst_1",
	OpIconst2:         "iconst_2",
	OpIconst3:         "iconst_3",
	OpIconst4:         "iconst_4",
	OpIconst5:         "iconst_5",
	OpLconst0:         "lconst_0",
	OpLconst1:         "lconst_1",
	OpBipush:          "bipush",
	OpSipush:          "sipush",
	OpLdc:             "ldc",
	OpLdcW:            "ldc_w",
	OpLdc2W:           "ldc2_w",
	OpIload:           "iload",
	OpLload:           "lload",
	OpFload:           "fload",
	OpDload:           "dload",
	OpAload:           "aload",
	OpIstore:          "istore",
	OpLstore:          "lstore",
	OpFstore:          "fstore",
	OpDstore:          "dstore",
	OpAstore:          "astore",
	OpPop:             "pop",
	OpPop2:            "pop2",
	OpDup:             "dup",
	OpDupX1:           "dup_x1",
	OpDupX2:           "dup_x2",
	OpDup2:            "dup2",
	OpDup2X1:          "dup2_x1",
	OpDup2X2:          "dup2_x2",
	OpSwap:            "swap",
	OpIreturn:         "ireturn",
	OpLreturn:         "lreturn",
	OpFreturn:         "freturn",
	OpDreturn:         "dreturn",
	OpAreturn:         "areturn",
	OpReturn:          "return",
	OpGetstatic:       "getstatic",
	OpPutstatic:       "putstatic",
	OpGetfield:        "getfield",
	OpPutfield:        "putfield",
	OpInvokevirtual:   "invokevirtual",
	OpInvokespecial:   "invokespecial",
	OpInvokestatic:    "invokestatic",
	OpInvokeinterface: "invokeinterface",
	OpNew:             "new",
	OpNewarray:        "newarray",
	OpAnewarray:       "anewarray",
	OpArraylength:     "arraylength",
	OpAthrow:          "athrow",
	OpCheckcast:       "checkcast",
	OpInstanceof:      "instanceof",
}

// OpcodeName 返回操作码的助记符
func OpcodeName(op byte) string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("op_0x%02x", op)
}
