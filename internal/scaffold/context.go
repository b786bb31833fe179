package scaffold

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/tangzhangming/bytekit/internal/description"
	"github.com/tangzhangming/bytekit/internal/emit"
	"github.com/tangzhangming/bytekit/internal/emit/member"
	"github.com/tangzhangming/bytekit/internal/jvmgen"
)

var (
	// ErrContextFrozen 类型初始化器生成后不能再登记缓存值
	ErrContextFrozen = errors.New("implementation context is frozen")
	// ErrNotCacheable 片段不可比较，不能作为缓存键
	ErrNotCacheable = errors.New("stack manipulation is not cacheable")
)

// DefaultCacheSuffix 缓存字段名的默认后缀
const DefaultCacheSuffix = "bytekit"

// cachedFieldModifiers 缓存字段的修饰符
const cachedFieldModifiers = jvmgen.AccPrivate | jvmgen.AccStatic | jvmgen.AccFinal | jvmgen.AccSynthetic

type cacheEntry struct {
	value emit.StackManipulation
	field description.Field
}

// Context 单个类型的写出上下文
//
// 缓存值按首次登记的顺序在类型初始化器中赋值一次，之后只读。
// 上下文属于一次类型写出，不在 goroutine 间共享。
type Context struct {
	instrumentedType description.Type
	library          *jvmgen.Library
	suffix           string
	cached           map[emit.StackManipulation]description.Field
	order            []cacheEntry
	frozen           bool
}

var _ emit.Context = (*Context)(nil)

// NewContext 创建写出上下文
func NewContext(instrumentedType description.Type, library *jvmgen.Library, suffix string) *Context {
	if suffix == "" {
		suffix = DefaultCacheSuffix
	}
	return &Context{
		instrumentedType: instrumentedType,
		library:          library,
		suffix:           suffix,
		cached:           make(map[emit.StackManipulation]description.Field),
	}
}

// InstrumentedType 返回正在生成的类型
func (c *Context) InstrumentedType() description.Type {
	return c.instrumentedType
}

// Cache 返回保存 m 结果的静态字段，相同的片段共享同一字段
func (c *Context) Cache(m emit.StackManipulation, fieldType description.Type) (description.Field, error) {
	if !reflect.ValueOf(m).Comparable() {
		return description.Field{}, fmt.Errorf("%w: %T", ErrNotCacheable, m)
	}
	if f, ok := c.cached[m]; ok {
		return f, nil
	}
	if c.frozen {
		return description.Field{}, fmt.Errorf("%w: cannot cache %v", ErrContextFrozen, m)
	}
	name := fmt.Sprintf("cachedValue$%s$%d", c.suffix, len(c.order))
	f := description.NewField(c.instrumentedType, name, fieldType, cachedFieldModifiers)
	c.cached[m] = f
	c.order = append(c.order, cacheEntry{value: m, field: f})
	return f, nil
}

// LocateMethod 在目标运行时方法表中查找方法
func (c *Context) LocateMethod(owner description.Type, name string, params ...description.Type) (description.Method, error) {
	want := description.NewMethodType(description.Void, params...)
	mapping, err := c.library.Lookup(owner.InternalName(), name, want.ParameterDescriptor())
	if err != nil {
		return description.Method{}, err
	}
	signature, err := description.ParseMethodType(mapping.Descriptor)
	if err != nil {
		return description.Method{}, err
	}
	mods := jvmgen.AccPublic
	if mapping.IsStatic {
		mods |= jvmgen.AccStatic
	}
	if mapping.IsInterface {
		owner = owner.WithModifiers(owner.Modifiers() | jvmgen.AccInterface | jvmgen.AccAbstract)
	}
	return description.NewMethod(owner, name, signature, mods), nil
}

// CachedFields 返回已登记的缓存字段
func (c *Context) CachedFields() []description.Field {
	fields := make([]description.Field, len(c.order))
	for i, e := range c.order {
		fields[i] = e.field
	}
	return fields
}

// TypeInitializer 冻结上下文，返回为每个缓存字段赋值的片段 (不含 return)
func (c *Context) TypeInitializer() emit.StackManipulation {
	c.frozen = true
	parts := make([]emit.StackManipulation, 0, 2*len(c.order))
	for _, e := range c.order {
		parts = append(parts, e.value, member.WriteField(e.field))
	}
	return emit.Compound(parts...)
}
