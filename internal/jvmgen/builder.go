package jvmgen

import (
	"fmt"
	"math"

	"go.uber.org/multierr"
)

// 属性名
const (
	AttrCode          = "Code"
	AttrConstantValue = "ConstantValue"
	AttrDeprecated    = "Deprecated"
	AttrSynthetic     = "Synthetic"
	AttrSourceFile    = "SourceFile"
)

// ClassBuilder 增量构建 class 文件
type ClassBuilder struct {
	cf   *ClassFile
	pool *ConstantPool
	err  error
}

// NewClassBuilder 创建 class 构建器
// name/super/interfaces 均为内部名称，super 为空表示 java/lang/Object 本身
func NewClassBuilder(version, access uint16, name, super string, interfaces ...string) *ClassBuilder {
	pool := NewConstantPool()
	cf := NewClassFile(version, pool)
	cf.AccessFlags = access
	cf.ThisClass = pool.AddClass(name)
	if super != "" {
		cf.SuperClass = pool.AddClass(super)
	}
	for _, iface := range interfaces {
		cf.Interfaces = append(cf.Interfaces, pool.AddClass(iface))
	}
	return &ClassBuilder{cf: cf, pool: pool}
}

// Pool 返回常量池
func (b *ClassBuilder) Pool() *ConstantPool {
	return b.pool
}

// ClassFile 返回正在构建的 class 文件结构
func (b *ClassBuilder) ClassFile() *ClassFile {
	return b.cf
}

// NewCode 创建共享本类常量池的字节码写入器
func (b *ClassBuilder) NewCode() *CodeWriter {
	return NewCodeWriter(b.pool)
}

// AddAttribute 添加类级属性
func (b *ClassBuilder) AddAttribute(name string, info []byte) {
	b.cf.Attributes = append(b.cf.Attributes, AttributeInfo{NameIndex: b.pool.AddUtf8(name), Info: info})
}

// AddField 添加字段，返回用于追加属性的构建器
func (b *ClassBuilder) AddField(access uint16, name, descriptor string) *FieldBuilder {
	b.cf.Fields = append(b.cf.Fields, FieldInfo{
		AccessFlags:     access,
		NameIndex:       b.pool.AddUtf8(name),
		DescriptorIndex: b.pool.AddUtf8(descriptor),
	})
	return &FieldBuilder{owner: b, index: len(b.cf.Fields) - 1, name: name, descriptor: descriptor}
}

// AddMethod 添加方法；code 为 nil 时不生成 Code 属性 (abstract/native)
func (b *ClassBuilder) AddMethod(access uint16, name, descriptor string, code *CodeWriter, maxStack, maxLocals int) {
	m := MethodInfo{
		AccessFlags:     access,
		NameIndex:       b.pool.AddUtf8(name),
		DescriptorIndex: b.pool.AddUtf8(descriptor),
	}
	if code != nil {
		if err := code.Err(); err != nil {
			b.fail(fmt.Errorf("method %s%s: %w", name, descriptor, err))
		}
		if maxStack < 0 || maxStack > math.MaxUint16 || maxLocals < 0 || maxLocals > math.MaxUint16 {
			b.fail(fmt.Errorf("method %s%s: %w: max_stack=%d max_locals=%d", name, descriptor, ErrOperandRange, maxStack, maxLocals))
		}
		if code.Len() > math.MaxUint16 {
			b.fail(fmt.Errorf("method %s%s: %w: code length %d", name, descriptor, ErrOperandRange, code.Len()))
		}
		m.Attributes = append(m.Attributes, b.codeAttribute(code, maxStack, maxLocals))
	}
	b.cf.Methods = append(b.cf.Methods, m)
}

// codeAttribute 构建 Code 属性
func (b *ClassBuilder) codeAttribute(code *CodeWriter, maxStack, maxLocals int) AttributeInfo {
	codeBytes := code.Bytes()

	attrData := NewByteWriter()
	attrData.WriteU16(uint16(maxStack))  // max_stack
	attrData.WriteU16(uint16(maxLocals)) // max_locals
	attrData.WriteU32(uint32(len(codeBytes)))
	attrData.WriteBytes(codeBytes)
	attrData.WriteU16(0) // exception_table_length
	attrData.WriteU16(0) // attributes_count

	return AttributeInfo{
		NameIndex: b.pool.AddUtf8(AttrCode),
		Info:      attrData.Bytes(),
	}
}

// Bytes 编码 class 文件，返回构建过程中累积的全部错误
func (b *ClassBuilder) Bytes() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.cf.ToBytes()
}

func (b *ClassBuilder) fail(err error) {
	multierr.AppendInto(&b.err, err)
}

// FieldBuilder 字段属性构建器
type FieldBuilder struct {
	owner      *ClassBuilder
	index      int
	name       string
	descriptor string
}

// AddAttribute 为字段追加属性
func (f *FieldBuilder) AddAttribute(name string, info []byte) {
	field := &f.owner.cf.Fields[f.index]
	field.Attributes = append(field.Attributes, AttributeInfo{
		NameIndex: f.owner.pool.AddUtf8(name),
		Info:      info,
	})
}

// SetConstantValue 写入 ConstantValue 属性
func (f *FieldBuilder) SetConstantValue(value any) error {
	idx, err := f.owner.constantValueIndex(f.descriptor, value)
	if err != nil {
		return fmt.Errorf("field %s: %w", f.name, err)
	}
	w := NewByteWriter()
	w.WriteU16(idx)
	f.AddAttribute(AttrConstantValue, w.Bytes())
	return nil
}

func (b *ClassBuilder) constantValueIndex(descriptor string, value any) (uint16, error) {
	switch descriptor {
	case "I", "S", "C", "B", "Z":
		n, ok := toInt64(value)
		if !ok || !fitsIntKind(descriptor, n) {
			break
		}
		return b.pool.AddInteger(int32(n)), nil
	case "J":
		if n, ok := toInt64(value); ok {
			return b.pool.AddLong(n), nil
		}
	case "F":
		if v, ok := toFloat64(value); ok {
			return b.pool.AddFloat(float32(v)), nil
		}
	case "D":
		if v, ok := toFloat64(value); ok {
			return b.pool.AddDouble(v), nil
		}
	case "Ljava/lang/String;":
		if s, ok := value.(string); ok {
			return b.pool.AddString(s), nil
		}
	}
	return 0, fmt.Errorf("%w: %v (%T) for %s", ErrConstantValueType, value, value, descriptor)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	default:
		return 0, false
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		i, ok := toInt64(v)
		return float64(i), ok
	}
}

func fitsIntKind(descriptor string, n int64) bool {
	switch descriptor {
	case "Z":
		return n == 0 || n == 1
	case "B":
		return n >= math.MinInt8 && n <= math.MaxInt8
	case "S":
		return n >= math.MinInt16 && n <= math.MaxInt16
	case "C":
		return n >= 0 && n <= math.MaxUint16
	default:
		return n >= math.MinInt32 && n <= math.MaxInt32
	}
}
