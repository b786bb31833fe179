package scaffold

import (
	"fmt"

	"github.com/tangzhangming/bytekit/internal/description"
)

// FieldBinding 字段解析结果的可序列化视图
type FieldBinding struct {
	Name       string   `json:"name"`
	Descriptor string   `json:"descriptor"`
	Modifiers  []string `json:"modifiers"`
	Implicit   bool     `json:"implicit"`
	Default    any      `json:"default,omitempty"`
	Appender   string   `json:"appender,omitempty"`
}

// Describe 列出 t 的每个字段在 pool 中的解析结果
func Describe(t *InstrumentedType, pool FieldPool) []FieldBinding {
	bindings := make([]FieldBinding, 0, len(t.Fields))
	for _, f := range t.Fields {
		record := pool.Target(f)
		field := record.Field()
		binding := FieldBinding{
			Name:       field.Name(),
			Descriptor: field.Descriptor(),
			Modifiers:  description.FieldModifierNames(field.Modifiers()),
			Implicit:   record.IsImplicit(),
			Default:    record.DefaultValue(nil),
		}
		if !record.IsImplicit() {
			binding.Appender = fmt.Sprintf("%T", record.Appender())
		}
		bindings = append(bindings, binding)
	}
	return bindings
}
