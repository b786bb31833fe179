// Package transform 在字段写出前改写其描述
package transform

import "github.com/tangzhangming/bytekit/internal/description"

// FieldTransformer 根据被生成的类型改写字段描述，必须是纯函数
type FieldTransformer func(instrumentedType description.Type, f description.Field) description.Field

// Transform 应用转换；nil 转换器原样返回
func (t FieldTransformer) Transform(instrumentedType description.Type, f description.Field) description.Field {
	if t == nil {
		return f
	}
	return t(instrumentedType, f)
}

// NoOp 原样返回字段
func NoOp(_ description.Type, f description.Field) description.Field {
	return f
}

// WithModifiers 追加修饰符
func WithModifiers(mods int) FieldTransformer {
	return func(_ description.Type, f description.Field) description.Field {
		return f.WithModifiers(f.Modifiers() | mods)
	}
}

// WithoutModifiers 去除修饰符
func WithoutModifiers(mods int) FieldTransformer {
	return func(_ description.Type, f description.Field) description.Field {
		return f.WithModifiers(f.Modifiers() &^ mods)
	}
}

// Chain 依次应用多个转换
func Chain(transformers ...FieldTransformer) FieldTransformer {
	return func(t description.Type, f description.Field) description.Field {
		for _, tr := range transformers {
			f = tr.Transform(t, f)
		}
		return f
	}
}
