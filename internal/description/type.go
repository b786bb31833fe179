// Package description 描述被生成或被引用的类型与成员
//
// 所有描述都是可比较的值类型，可以直接作为 map 的键。
package description

import (
	"fmt"
	"strings"

	"github.com/tangzhangming/bytekit/internal/jvmgen"
)

// Sort 类型分类
type Sort uint8

const (
	SortVoid      Sort = iota // void
	SortPrimitive             // 基本类型
	SortReference             // 类或接口
	SortArray                 // 数组
)

// Type 类型描述
type Type struct {
	name       string // 二进制名，如 java.lang.String
	descriptor string // 字段描述符，如 Ljava/lang/String;
	sort       Sort
	modifiers  int
}

// 基本类型
var (
	Void    = Type{name: "void", descriptor: "V", sort: SortVoid, modifiers: primitiveModifiers}
	Boolean = Type{name: "boolean", descriptor: "Z", sort: SortPrimitive, modifiers: primitiveModifiers}
	Byte    = Type{name: "byte", descriptor: "B", sort: SortPrimitive, modifiers: primitiveModifiers}
	Char    = Type{name: "char", descriptor: "C", sort: SortPrimitive, modifiers: primitiveModifiers}
	Short   = Type{name: "short", descriptor: "S", sort: SortPrimitive, modifiers: primitiveModifiers}
	Int     = Type{name: "int", descriptor: "I", sort: SortPrimitive, modifiers: primitiveModifiers}
	Long    = Type{name: "long", descriptor: "J", sort: SortPrimitive, modifiers: primitiveModifiers}
	Float   = Type{name: "float", descriptor: "F", sort: SortPrimitive, modifiers: primitiveModifiers}
	Double  = Type{name: "double", descriptor: "D", sort: SortPrimitive, modifiers: primitiveModifiers}
)

const primitiveModifiers = jvmgen.AccPublic | jvmgen.AccFinal | jvmgen.AccAbstract

// 常用 JDK 类型
var (
	Object          = ForName("java.lang.Object", jvmgen.AccPublic)
	String          = ForName("java.lang.String", jvmgen.AccPublic|jvmgen.AccFinal)
	Class           = ForName("java.lang.Class", jvmgen.AccPublic|jvmgen.AccFinal)
	Number          = ForName("java.lang.Number", jvmgen.AccPublic|jvmgen.AccAbstract)
	Integer         = ForName("java.lang.Integer", jvmgen.AccPublic|jvmgen.AccFinal)
	StringBuilder   = ForName("java.lang.StringBuilder", jvmgen.AccPublic|jvmgen.AccFinal)
	Runnable        = ForName("java.lang.Runnable", jvmgen.AccPublic|jvmgen.AccInterface|jvmgen.AccAbstract)
	ReflectField    = ForName("java.lang.reflect.Field", jvmgen.AccPublic|jvmgen.AccFinal)
	ReflectMethod   = ForName("java.lang.reflect.Method", jvmgen.AccPublic|jvmgen.AccFinal)
	MethodHandle    = ForName("java.lang.invoke.MethodHandle", jvmgen.AccPublic|jvmgen.AccAbstract)
	List            = ForName("java.util.List", jvmgen.AccPublic|jvmgen.AccInterface|jvmgen.AccAbstract)
	AbstractList    = ForName("java.util.AbstractList", jvmgen.AccPublic|jvmgen.AccAbstract)
	ArrayList       = ForName("java.util.ArrayList", jvmgen.AccPublic)
	wellKnownByName = map[string]Type{}
)

var primitives = []Type{Void, Boolean, Byte, Char, Short, Int, Long, Float, Double}

func init() {
	for _, t := range primitives {
		wellKnownByName[t.name] = t
	}
	for _, t := range []Type{Object, String, Class, Number, Integer, StringBuilder, Runnable,
		ReflectField, ReflectMethod, MethodHandle, List, AbstractList, ArrayList} {
		wellKnownByName[t.name] = t
	}
}

// ForName 创建类或接口的描述，name 为二进制名 (a.b.C 或 a.b.C$D)
func ForName(name string, modifiers int) Type {
	return Type{
		name:       name,
		descriptor: "L" + strings.ReplaceAll(name, ".", "/") + ";",
		sort:       SortReference,
		modifiers:  modifiers,
	}
}

// ArrayOf 创建以 component 为元素类型的数组类型
func ArrayOf(component Type) Type {
	desc := "[" + component.descriptor
	return Type{
		name:       strings.ReplaceAll(desc, "/", "."),
		descriptor: desc,
		sort:       SortArray,
		modifiers:  jvmgen.AccPublic | jvmgen.AccFinal | jvmgen.AccAbstract,
	}
}

// Lookup 按名称查找基本类型或常用 JDK 类型，支持 "T[]" 形式的数组
func Lookup(name string) (Type, bool) {
	if strings.HasSuffix(name, "[]") {
		component, ok := Lookup(strings.TrimSuffix(name, "[]"))
		if !ok {
			return Type{}, false
		}
		return ArrayOf(component), true
	}
	t, ok := wellKnownByName[name]
	return t, ok
}

// ParseDescriptor 由字段描述符构造类型描述；引用类型的修饰符取常用类型表或 public
func ParseDescriptor(desc string) (Type, error) {
	if desc == "V" {
		return Void, nil
	}
	if !jvmgen.ValidFieldDescriptor(desc) {
		return Type{}, fmt.Errorf("%w: %q", jvmgen.ErrBadDescriptor, desc)
	}
	switch desc[0] {
	case '[':
		component, err := ParseDescriptor(desc[1:])
		if err != nil {
			return Type{}, err
		}
		return ArrayOf(component), nil
	case 'L':
		name := strings.ReplaceAll(desc[1:len(desc)-1], "/", ".")
		if t, ok := wellKnownByName[name]; ok {
			return t, nil
		}
		return ForName(name, jvmgen.AccPublic), nil
	default:
		for _, t := range primitives {
			if t.descriptor == desc {
				return t, nil
			}
		}
	}
	return Type{}, fmt.Errorf("%w: %q", jvmgen.ErrBadDescriptor, desc)
}

// Name 返回二进制名
func (t Type) Name() string { return t.name }

// Descriptor 返回字段描述符
func (t Type) Descriptor() string { return t.descriptor }

// InternalName 返回内部名称；数组的内部名称即其描述符
func (t Type) InternalName() string {
	switch t.sort {
	case SortReference:
		return t.descriptor[1 : len(t.descriptor)-1]
	case SortArray:
		return t.descriptor
	default:
		return t.name
	}
}

// Sort 返回类型分类
func (t Type) Sort() Sort { return t.sort }

// Modifiers 返回访问标志
func (t Type) Modifiers() int { return t.modifiers }

// WithModifiers 返回修饰符被替换后的副本
func (t Type) WithModifiers(modifiers int) Type {
	t.modifiers = modifiers
	return t
}

func (t Type) IsPrimitive() bool { return t.sort == SortPrimitive || t.sort == SortVoid }
func (t Type) IsVoid() bool      { return t.sort == SortVoid }
func (t Type) IsArray() bool     { return t.sort == SortArray }
func (t Type) IsInterface() bool { return t.modifiers&jvmgen.AccInterface != 0 }
func (t Type) IsAbstract() bool  { return t.modifiers&jvmgen.AccAbstract != 0 }
func (t Type) IsZero() bool      { return t.descriptor == "" }

// ComponentType 返回数组的元素类型
func (t Type) ComponentType() (Type, bool) {
	if t.sort != SortArray {
		return Type{}, false
	}
	c, err := ParseDescriptor(t.descriptor[1:])
	return c, err == nil
}

// StackSlots 返回该类型的值在操作数栈上占用的槽位数
func (t Type) StackSlots() int {
	return jvmgen.SlotsOf(t.descriptor)
}

func (t Type) String() string {
	return t.name
}
