// Package jvmgen 实现 JVM class 文件的底层编码
//
// 包含常量池、字段/方法/属性结构、Code 写入器以及目标运行时的已知方法表。
// 上层的栈操作通过 CodeWriter 将指令写入这里。
package jvmgen

import (
	"fmt"
	"io"
	"math"

	"go.uber.org/multierr"
)

// Class 文件常量
const (
	ClassFileMagic     = 0xCAFEBABE
	ClassMajorVersion  = V1_8 // 默认 Java 8
	ClassMinorVersion  = 0
	maxConstantPoolLen = math.MaxUint16
)

// class 文件主版本号
const (
	V1_5 = 49
	V1_6 = 50
	V1_7 = 51
	V1_8 = 52
	V9   = 53
	V11  = 55
	V17  = 61
	V21  = 65
)

// 常量池标签
const (
	ConstantUtf8               = 1
	ConstantInteger            = 3
	ConstantFloat              = 4
	ConstantLong               = 5
	ConstantDouble             = 6
	ConstantClass              = 7
	ConstantString             = 8
	ConstantFieldref           = 9
	ConstantMethodref          = 10
	ConstantInterfaceMethodref = 11
	ConstantNameAndType        = 12
	ConstantMethodHandle       = 15
	ConstantMethodType         = 16
	ConstantInvokeDynamic      = 18
)

// 访问标志
const (
	AccPublic       = 0x0001
	AccPrivate      = 0x0002
	AccProtected    = 0x0004
	AccStatic       = 0x0008
	AccFinal        = 0x0010
	AccSuper        = 0x0020
	AccSynchronized = 0x0020
	AccVolatile     = 0x0040
	AccBridge       = 0x0040
	AccTransient    = 0x0080
	AccVarargs      = 0x0080
	AccNative       = 0x0100
	AccInterface    = 0x0200
	AccAbstract     = 0x0400
	AccStrict       = 0x0800
	AccSynthetic    = 0x1000
	AccAnnotation   = 0x2000
	AccEnum         = 0x4000
)

// ClassFile JVM class 文件结构
type ClassFile struct {
	Magic        uint32
	MinorVersion uint16
	MajorVersion uint16
	ConstantPool *ConstantPool
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []FieldInfo
	Methods      []MethodInfo
	Attributes   []AttributeInfo
}

// ConstantPoolEntry 常量池条目
type ConstantPoolEntry interface {
	Tag() uint8
	Encode(w *ByteWriter)
}

// ConstantUtf8Info UTF8 字符串常量
type ConstantUtf8Info struct {
	Value string
}

func (c *ConstantUtf8Info) Tag() uint8 { return ConstantUtf8 }
func (c *ConstantUtf8Info) Encode(w *ByteWriter) {
	w.WriteU8(c.Tag())
	data := encodeModifiedUTF8(c.Value)
	w.WriteU16(uint16(len(data)))
	w.WriteBytes(data)
}

// ConstantIntegerInfo int 常量
type ConstantIntegerInfo struct {
	Value int32
}

func (c *ConstantIntegerInfo) Tag() uint8 { return ConstantInteger }
func (c *ConstantIntegerInfo) Encode(w *ByteWriter) {
	w.WriteU8(c.Tag())
	w.WriteU32(uint32(c.Value))
}

// ConstantFloatInfo float 常量
type ConstantFloatInfo struct {
	Value float32
}

func (c *ConstantFloatInfo) Tag() uint8 { return ConstantFloat }
func (c *ConstantFloatInfo) Encode(w *ByteWriter) {
	w.WriteU8(c.Tag())
	w.WriteU32(math.Float32bits(c.Value))
}

// ConstantLongInfo long 常量，占用两个常量池槽位
type ConstantLongInfo struct {
	Value int64
}

func (c *ConstantLongInfo) Tag() uint8 { return ConstantLong }
func (c *ConstantLongInfo) Encode(w *ByteWriter) {
	w.WriteU8(c.Tag())
	w.WriteU64(uint64(c.Value))
}

// ConstantDoubleInfo double 常量，占用两个常量池槽位
type ConstantDoubleInfo struct {
	Value float64
}

func (c *ConstantDoubleInfo) Tag() uint8 { return ConstantDouble }
func (c *ConstantDoubleInfo) Encode(w *ByteWriter) {
	w.WriteU8(c.Tag())
	w.WriteU64(math.Float64bits(c.Value))
}

// ConstantClassInfo 类引用常量
type ConstantClassInfo struct {
	NameIndex uint16
}

func (c *ConstantClassInfo) Tag() uint8 { return ConstantClass }
func (c *ConstantClassInfo) Encode(w *ByteWriter) {
	w.WriteU8(c.Tag())
	w.WriteU16(c.NameIndex)
}

// ConstantStringInfo 字符串常量
type ConstantStringInfo struct {
	StringIndex uint16
}

func (c *ConstantStringInfo) Tag() uint8 { return ConstantString }
func (c *ConstantStringInfo) Encode(w *ByteWriter) {
	w.WriteU8(c.Tag())
	w.WriteU16(c.StringIndex)
}

// ConstantMemberrefInfo 字段/方法/接口方法引用常量
type ConstantMemberrefInfo struct {
	Kind             uint8
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantMemberrefInfo) Tag() uint8 { return c.Kind }
func (c *ConstantMemberrefInfo) Encode(w *ByteWriter) {
	w.WriteU8(c.Tag())
	w.WriteU16(c.ClassIndex)
	w.WriteU16(c.NameAndTypeIndex)
}

// ConstantNameAndTypeInfo 名称和类型描述符常量
type ConstantNameAndTypeInfo struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

func (c *ConstantNameAndTypeInfo) Tag() uint8 { return ConstantNameAndType }
func (c *ConstantNameAndTypeInfo) Encode(w *ByteWriter) {
	w.WriteU8(c.Tag())
	w.WriteU16(c.NameIndex)
	w.WriteU16(c.DescriptorIndex)
}

// FieldInfo 字段信息
type FieldInfo struct {
	AccessFlags     uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []AttributeInfo
}

// MethodInfo 方法信息
type MethodInfo struct {
	AccessFlags     uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []AttributeInfo
}

// AttributeInfo 属性信息
type AttributeInfo struct {
	NameIndex uint16
	Info      []byte
}

// NewClassFile 创建新的 class 文件
func NewClassFile(majorVersion uint16, pool *ConstantPool) *ClassFile {
	return &ClassFile{
		Magic:        ClassFileMagic,
		MinorVersion: ClassMinorVersion,
		MajorVersion: majorVersion,
		ConstantPool: pool,
		AccessFlags:  AccPublic | AccSuper,
	}
}

// Encode 将 class 文件编码进写入器
func (cf *ClassFile) Encode(w *ByteWriter) {
	w.WriteU32(cf.Magic)
	w.WriteU16(cf.MinorVersion)
	w.WriteU16(cf.MajorVersion)

	// 常量池：计数为槽位数 + 1
	w.WriteU16(uint16(cf.ConstantPool.Len() + 1))
	for _, cp := range cf.ConstantPool.Entries() {
		if cp != nil {
			cp.Encode(w)
		}
	}

	w.WriteU16(cf.AccessFlags)
	w.WriteU16(cf.ThisClass)
	w.WriteU16(cf.SuperClass)

	w.WriteU16(uint16(len(cf.Interfaces)))
	for _, iface := range cf.Interfaces {
		w.WriteU16(iface)
	}

	w.WriteU16(uint16(len(cf.Fields)))
	for i := range cf.Fields {
		f := &cf.Fields[i]
		encodeMember(w, f.AccessFlags, f.NameIndex, f.DescriptorIndex, f.Attributes)
	}

	w.WriteU16(uint16(len(cf.Methods)))
	for i := range cf.Methods {
		m := &cf.Methods[i]
		encodeMember(w, m.AccessFlags, m.NameIndex, m.DescriptorIndex, m.Attributes)
	}

	encodeAttributes(w, cf.Attributes)
}

// Write 将 class 文件写入 io.Writer
func (cf *ClassFile) Write(w io.Writer) error {
	data, err := cf.ToBytes()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ToBytes 将 class 文件转换为字节数组
func (cf *ClassFile) ToBytes() ([]byte, error) {
	if cf.ConstantPool.Len() >= maxConstantPoolLen {
		return nil, ErrConstantPoolOverflow
	}
	var err error
	for i, e := range cf.ConstantPool.Entries() {
		u, ok := e.(*ConstantUtf8Info)
		if !ok {
			continue
		}
		if n := modifiedUTF8Len(u.Value); n > math.MaxUint16 {
			multierr.AppendInto(&err, fmt.Errorf("%w: constant #%d is %d bytes of modified UTF-8", ErrOperandRange, i+1, n))
		}
	}
	if err != nil {
		return nil, err
	}
	w := NewByteWriter()
	cf.Encode(w)
	return w.Bytes(), nil
}

func encodeMember(w *ByteWriter, access, name, descriptor uint16, attrs []AttributeInfo) {
	w.WriteU16(access)
	w.WriteU16(name)
	w.WriteU16(descriptor)
	encodeAttributes(w, attrs)
}

func encodeAttributes(w *ByteWriter, attrs []AttributeInfo) {
	w.WriteU16(uint16(len(attrs)))
	for _, a := range attrs {
		w.WriteU16(a.NameIndex)
		w.WriteU32(uint32(len(a.Info)))
		w.WriteBytes(a.Info)
	}
}

// modifiedUTF8Len 返回 modified UTF-8 编码后的字节数
func modifiedUTF8Len(s string) int {
	n := 0
	for _, r := range s {
		switch {
		case r != 0 && r < 0x80:
			n++
		case r < 0x800:
			n += 2
		case r < 0x10000:
			n += 3
		default:
			n += 6
		}
	}
	return n
}

// encodeModifiedUTF8 按 JVM 的 modified UTF-8 规则编码
// U+0000 编码为两个字节，增补字符编码为代理对
func encodeModifiedUTF8(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r != 0 && r < 0x80:
			out = append(out, byte(r))
		case r < 0x800:
			out = append(out, byte(0xC0|(r>>6)), byte(0x80|(r&0x3F)))
		case r < 0x10000:
			out = appendUTF8Char(out, uint16(r))
		default:
			r -= 0x10000
			out = appendUTF8Char(out, uint16(0xD800+(r>>10)))
			out = appendUTF8Char(out, uint16(0xDC00+(r&0x3FF)))
		}
	}
	return out
}

func appendUTF8Char(out []byte, c uint16) []byte {
	return append(out, byte(0xE0|(c>>12)), byte(0x80|((c>>6)&0x3F)), byte(0x80|(c&0x3F)))
}
