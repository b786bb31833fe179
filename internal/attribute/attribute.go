// Package attribute 为字段追加额外的 class 文件属性
package attribute

import (
	"github.com/tangzhangming/bytekit/internal/description"
	"github.com/tangzhangming/bytekit/internal/jvmgen"
)

// FieldTarget 接收字段属性的目标，*jvmgen.FieldBuilder 实现此接口
type FieldTarget interface {
	AddAttribute(name string, info []byte)
}

var _ FieldTarget = (*jvmgen.FieldBuilder)(nil)

// FieldAppender 为单个字段写入额外属性
type FieldAppender interface {
	Apply(target FieldTarget, field description.Field, defaultValue any) error
}

// FieldAppenderFactory 针对被生成的类型创建 FieldAppender
//
// 编译字段注册表时，同一个工厂在一次编译中只调用一次 Make，
// 因此工厂必须是可比较的值 (空结构体、可比较结构体或指针)。
type FieldAppenderFactory interface {
	Make(instrumentedType description.Type) FieldAppender
}

// NoOp 不写入任何属性
type NoOp struct{}

func (NoOp) Make(description.Type) FieldAppender             { return NoOp{} }
func (NoOp) Apply(FieldTarget, description.Field, any) error { return nil }

// Deprecated 写入 Deprecated 属性
type Deprecated struct{}

func (Deprecated) Make(description.Type) FieldAppender { return Deprecated{} }

func (Deprecated) Apply(target FieldTarget, _ description.Field, _ any) error {
	target.AddAttribute(jvmgen.AttrDeprecated, nil)
	return nil
}

// Synthetic 写入 Synthetic 属性
type Synthetic struct{}

func (Synthetic) Make(description.Type) FieldAppender { return Synthetic{} }

func (Synthetic) Apply(target FieldTarget, _ description.Field, _ any) error {
	target.AddAttribute(jvmgen.AttrSynthetic, nil)
	return nil
}

// Explicit 写入给定名称与内容的属性
type Explicit struct {
	Name string
	Info string
}

func (e Explicit) Make(description.Type) FieldAppender { return e }

func (e Explicit) Apply(target FieldTarget, _ description.Field, _ any) error {
	target.AddAttribute(e.Name, []byte(e.Info))
	return nil
}

// compound 按顺序组合多个工厂，以指针身份参与去重
type compound struct {
	factories []FieldAppenderFactory
}

// Compound 组合多个工厂
func Compound(factories ...FieldAppenderFactory) FieldAppenderFactory {
	return &compound{factories: factories}
}

func (c *compound) Make(t description.Type) FieldAppender {
	appenders := make(compoundAppender, len(c.factories))
	for i, f := range c.factories {
		appenders[i] = f.Make(t)
	}
	return appenders
}

type compoundAppender []FieldAppender

func (c compoundAppender) Apply(target FieldTarget, field description.Field, defaultValue any) error {
	for _, a := range c {
		if err := a.Apply(target, field, defaultValue); err != nil {
			return err
		}
	}
	return nil
}
