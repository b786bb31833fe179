package description

import (
	"fmt"
	"strings"

	"github.com/tangzhangming/bytekit/internal/jvmgen"
)

// Field 字段描述
type Field struct {
	declaringType Type
	name          string
	typ           Type
	modifiers     int
}

// NewField 创建字段描述
func NewField(declaringType Type, name string, typ Type, modifiers int) Field {
	return Field{declaringType: declaringType, name: name, typ: typ, modifiers: modifiers}
}

func (f Field) DeclaringType() Type { return f.declaringType }
func (f Field) Name() string        { return f.name }
func (f Field) Type() Type          { return f.typ }
func (f Field) Modifiers() int      { return f.modifiers }
func (f Field) Descriptor() string  { return f.typ.Descriptor() }
func (f Field) IsStatic() bool      { return f.modifiers&jvmgen.AccStatic != 0 }
func (f Field) IsFinal() bool       { return f.modifiers&jvmgen.AccFinal != 0 }

// WithModifiers 返回修饰符被替换后的副本
func (f Field) WithModifiers(modifiers int) Field {
	f.modifiers = modifiers
	return f
}

// WithDeclaringType 返回声明类型被替换后的副本
func (f Field) WithDeclaringType(t Type) Field {
	f.declaringType = t
	return f
}

func (f Field) String() string {
	return fmt.Sprintf("%s %s.%s", f.typ, f.declaringType, f.name)
}

// MethodType 方法签名：返回值与参数
type MethodType struct {
	descriptor string
	returnType Type
	paramSlots int
}

// NewMethodType 由返回类型与参数类型构造签名
func NewMethodType(returnType Type, params ...Type) MethodType {
	var sb strings.Builder
	sb.WriteByte('(')
	slots := 0
	for _, p := range params {
		sb.WriteString(p.Descriptor())
		slots += p.StackSlots()
	}
	sb.WriteByte(')')
	sb.WriteString(returnType.Descriptor())
	return MethodType{descriptor: sb.String(), returnType: returnType, paramSlots: slots}
}

// ParseMethodType 由方法描述符构造签名
func ParseMethodType(desc string) (MethodType, error) {
	params, ret, err := jvmgen.SplitMethodDescriptor(desc)
	if err != nil {
		return MethodType{}, err
	}
	returnType, err := ParseDescriptor(ret)
	if err != nil {
		return MethodType{}, err
	}
	slots := 0
	for _, p := range params {
		slots += jvmgen.SlotsOf(p)
	}
	return MethodType{descriptor: desc, returnType: returnType, paramSlots: slots}, nil
}

func (m MethodType) Descriptor() string { return m.descriptor }
func (m MethodType) ReturnType() Type   { return m.returnType }

// ParameterSlots 返回参数占用的栈槽位数
func (m MethodType) ParameterSlots() int { return m.paramSlots }

// ParameterTypes 解析参数类型列表
func (m MethodType) ParameterTypes() []Type {
	params, _, _ := jvmgen.SplitMethodDescriptor(m.descriptor)
	types := make([]Type, 0, len(params))
	for _, p := range params {
		t, err := ParseDescriptor(p)
		if err != nil {
			continue
		}
		types = append(types, t)
	}
	return types
}

// ParameterDescriptor 返回参数部分的描述符，如 "(ILjava/lang/String;)"
func (m MethodType) ParameterDescriptor() string {
	return m.descriptor[:strings.IndexByte(m.descriptor, ')')+1]
}

func (m MethodType) String() string { return m.descriptor }

// 特殊方法名
const (
	ConstructorName     = "<init>"
	TypeInitializerName = "<clinit>"
)

// Method 方法描述
type Method struct {
	declaringType Type
	name          string
	signature     MethodType
	modifiers     int
}

// NewMethod 创建方法描述
func NewMethod(declaringType Type, name string, signature MethodType, modifiers int) Method {
	return Method{declaringType: declaringType, name: name, signature: signature, modifiers: modifiers}
}

func (m Method) DeclaringType() Type   { return m.declaringType }
func (m Method) Name() string          { return m.name }
func (m Method) Signature() MethodType { return m.signature }
func (m Method) Descriptor() string    { return m.signature.Descriptor() }
func (m Method) ReturnType() Type      { return m.signature.ReturnType() }
func (m Method) Modifiers() int        { return m.modifiers }
func (m Method) IsStatic() bool        { return m.modifiers&jvmgen.AccStatic != 0 }
func (m Method) IsPrivate() bool       { return m.modifiers&jvmgen.AccPrivate != 0 }
func (m Method) IsAbstract() bool      { return m.modifiers&jvmgen.AccAbstract != 0 }
func (m Method) IsNative() bool        { return m.modifiers&jvmgen.AccNative != 0 }
func (m Method) IsConstructor() bool   { return m.name == ConstructorName }

// IsTypeInitializer 是否为 <clinit>
func (m Method) IsTypeInitializer() bool { return m.name == TypeInitializerName }

// LocalSlots 返回参数 (含 this) 占用的局部变量槽位数
func (m Method) LocalSlots() int {
	if m.IsStatic() {
		return m.signature.ParameterSlots()
	}
	return m.signature.ParameterSlots() + 1
}

func (m Method) String() string {
	return fmt.Sprintf("%s.%s%s", m.declaringType, m.name, m.signature)
}
