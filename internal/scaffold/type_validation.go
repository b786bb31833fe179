package scaffold

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/tangzhangming/bytekit/internal/description"
	"github.com/tangzhangming/bytekit/internal/jvmgen"
)

// ErrInvalidType 被生成的类型不满足 class 文件约束
var ErrInvalidType = errors.New("invalid type")

// TypeValidation 是否在写出前校验被生成的类型
type TypeValidation bool

const (
	ValidationEnabled  TypeValidation = true
	ValidationDisabled TypeValidation = false
)

// IsEnabled 是否启用校验
func (v TypeValidation) IsEnabled() bool {
	return bool(v)
}

func (v TypeValidation) String() string {
	if v {
		return "TypeValidation.ENABLED"
	}
	return "TypeValidation.DISABLED"
}

// Validate 校验类型、字段与方法，返回全部违规项
func (v TypeValidation) Validate(t *InstrumentedType) error {
	if !v.IsEnabled() {
		return nil
	}
	var err error
	invalid := func(format string, args ...any) {
		multierr.AppendInto(&err, fmt.Errorf("%w: %s: %s", ErrInvalidType, t.Type.Name(), fmt.Sprintf(format, args...)))
	}

	if !isValidBinaryName(t.Type.Name()) {
		invalid("illegal type name")
	}
	if t.Type.IsPrimitive() || t.Type.IsArray() {
		invalid("cannot define a primitive or array type")
	}
	isInterface := t.Type.IsInterface()
	if isInterface && !t.Type.IsAbstract() {
		invalid("interface must be abstract")
	}
	if t.SuperClass.IsZero() && t.Type.Name() != description.Object.Name() {
		invalid("missing super class")
	}
	if t.SuperClass.IsInterface() {
		invalid("super class %s is an interface", t.SuperClass)
	}
	for _, iface := range t.Interfaces {
		if !iface.IsInterface() {
			invalid("%s is not an interface", iface)
		}
	}

	fieldNames := make(map[string]bool, len(t.Fields))
	for _, f := range t.Fields {
		switch {
		case !isValidMemberName(f.Name()):
			invalid("illegal field name %q", f.Name())
		case fieldNames[f.Name()]:
			invalid("duplicate field %q", f.Name())
		}
		fieldNames[f.Name()] = true
		if f.Type().IsVoid() {
			invalid("field %q cannot be void", f.Name())
		}
		if isInterface && f.Modifiers()&interfaceFieldModifiers != interfaceFieldModifiers {
			invalid("interface field %q must be public static final", f.Name())
		}
	}

	signatures := make(map[string]bool, len(t.Methods))
	for _, m := range t.Methods {
		method := m.Method
		key := method.Name() + method.Descriptor()
		if signatures[key] {
			invalid("duplicate method %s", key)
		}
		signatures[key] = true
		if !method.IsConstructor() && !method.IsTypeInitializer() && !isValidMemberName(method.Name()) {
			invalid("illegal method name %q", method.Name())
		}
		switch {
		case method.IsAbstract() && m.Body != nil:
			invalid("abstract method %s has a body", key)
		case method.IsAbstract() && !t.Type.IsAbstract():
			invalid("abstract method %s in non-abstract type", key)
		case !method.IsAbstract() && !method.IsNative() && m.Body == nil:
			invalid("method %s has no body", key)
		}
		if isInterface && method.IsConstructor() {
			invalid("interface cannot declare a constructor")
		}
		if method.IsTypeInitializer() && (!method.IsStatic() || method.Descriptor() != "()V") {
			invalid("type initializer must be static ()V")
		}
	}
	return err
}

const interfaceFieldModifiers = jvmgen.AccPublic | jvmgen.AccStatic | jvmgen.AccFinal

func isValidBinaryName(name string) bool {
	if name == "" {
		return false
	}
	for _, part := range strings.Split(name, ".") {
		if !isValidMemberName(part) {
			return false
		}
	}
	return true
}

// isValidMemberName 不能为空，且不能包含 . ; [ / < >
func isValidMemberName(name string) bool {
	return name != "" && !strings.ContainsAny(name, ".;[/<>")
}
