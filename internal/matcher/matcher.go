// Package matcher 成员匹配谓词
//
// ElementMatcher 是普通的布尔函数；LatentMatcher 需要先针对具体类型解析，
// 解析后得到 ElementMatcher。ElementMatcher 本身也是 LatentMatcher。
package matcher

import (
	"strings"

	"github.com/tangzhangming/bytekit/internal/description"
)

// ElementMatcher 对成员描述求值的谓词
type ElementMatcher[T any] func(T) bool

// Matches 对 target 求值
func (m ElementMatcher[T]) Matches(target T) bool {
	return m(target)
}

// Resolve 已解析的谓词与类型无关
func (m ElementMatcher[T]) Resolve(description.Type) ElementMatcher[T] {
	return m
}

// LatentMatcher 需要针对具体类型解析的谓词
type LatentMatcher[T any] interface {
	Resolve(t description.Type) ElementMatcher[T]
}

// LatentFunc 将解析函数适配为 LatentMatcher
type LatentFunc[T any] func(description.Type) ElementMatcher[T]

func (f LatentFunc[T]) Resolve(t description.Type) ElementMatcher[T] {
	return f(t)
}

// Named 成员接口：具有名称与修饰符
type Named interface {
	Name() string
	Modifiers() int
}

// Any 匹配所有成员
func Any[T any]() ElementMatcher[T] {
	return func(T) bool { return true }
}

// None 不匹配任何成员
func None[T any]() ElementMatcher[T] {
	return func(T) bool { return false }
}

// NameIs 名称完全相等
func NameIs[T Named](name string) ElementMatcher[T] {
	return func(t T) bool { return t.Name() == name }
}

// NameHasPrefix 名称以 prefix 开头
func NameHasPrefix[T Named](prefix string) ElementMatcher[T] {
	return func(t T) bool { return strings.HasPrefix(t.Name(), prefix) }
}

// HasModifiers 具有 mods 中的全部修饰符
func HasModifiers[T Named](mods int) ElementMatcher[T] {
	return func(t T) bool { return t.Modifiers()&mods == mods }
}

// Not 取反
func Not[T any](m ElementMatcher[T]) ElementMatcher[T] {
	return func(t T) bool { return !m(t) }
}

// And 全部满足
func And[T any](ms ...ElementMatcher[T]) ElementMatcher[T] {
	return func(t T) bool {
		for _, m := range ms {
			if !m(t) {
				return false
			}
		}
		return true
	}
}

// Or 任一满足
func Or[T any](ms ...ElementMatcher[T]) ElementMatcher[T] {
	return func(t T) bool {
		for _, m := range ms {
			if m(t) {
				return true
			}
		}
		return false
	}
}

// FieldOfType 字段类型等于 t
func FieldOfType(t description.Type) ElementMatcher[description.Field] {
	return func(f description.Field) bool { return f.Type() == t }
}

// DeclaredByInstrumentedType 字段由被解析的类型声明
func DeclaredByInstrumentedType() LatentMatcher[description.Field] {
	return LatentFunc[description.Field](func(instrumented description.Type) ElementMatcher[description.Field] {
		return func(f description.Field) bool {
			return f.DeclaringType().Name() == instrumented.Name()
		}
	})
}
