package plan

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/multierr"

	"github.com/tangzhangming/bytekit/internal/description"
	"github.com/tangzhangming/bytekit/internal/emit"
	"github.com/tangzhangming/bytekit/internal/emit/assign"
	"github.com/tangzhangming/bytekit/internal/emit/constant"
	"github.com/tangzhangming/bytekit/internal/emit/member"
	"github.com/tangzhangming/bytekit/internal/jvmgen"
	"github.com/tangzhangming/bytekit/internal/scaffold"
)

// resolver 按 计划声明 -> 常用类型表 -> 被生成类型本身 -> public 类 的顺序解析类型名
type resolver struct {
	self   description.Type
	shapes map[string]description.Type
	fields []description.Field
}

func newResolver(p *Plan) (*resolver, error) {
	mods, err := description.ParseModifiers(p.Type.Modifiers)
	if err != nil {
		return nil, fmt.Errorf("%w: type %s: %w", ErrInvalidPlan, p.Type.Name, err)
	}
	if mods == 0 {
		mods = jvmgen.AccPublic
	}
	r := &resolver{
		self:   description.ForName(p.Type.Name, mods),
		shapes: make(map[string]description.Type, len(p.Types)),
	}
	for _, shape := range p.Types {
		m, e := description.ParseModifiers(shape.Modifiers)
		if e != nil {
			multierr.AppendInto(&err, fmt.Errorf("%w: types %s: %w", ErrInvalidPlan, shape.Name, e))
			continue
		}
		r.shapes[shape.Name] = description.ForName(shape.Name, m)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *resolver) resolve(name string) (description.Type, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return description.Type{}, fmt.Errorf("%w: empty type name", ErrInvalidPlan)
	}
	if strings.HasSuffix(name, "[]") {
		component, err := r.resolve(strings.TrimSuffix(name, "[]"))
		if err != nil {
			return description.Type{}, err
		}
		if component.IsVoid() {
			return description.Type{}, fmt.Errorf("%w: void array", ErrInvalidPlan)
		}
		return description.ArrayOf(component), nil
	}
	if t, ok := r.shapes[name]; ok {
		return t, nil
	}
	if t, ok := description.Lookup(name); ok {
		return t, nil
	}
	if name == r.self.Name() {
		return r.self, nil
	}
	return description.ForName(name, jvmgen.AccPublic), nil
}

func (r *resolver) field(fs FieldSpec) (description.Field, error) {
	typ, err := r.resolve(fs.Type)
	if err != nil {
		return description.Field{}, fmt.Errorf("field %s: %w", fs.Name, err)
	}
	mods, err := description.ParseModifiers(fs.Modifiers)
	if err != nil {
		return description.Field{}, fmt.Errorf("field %s: %w", fs.Name, err)
	}
	return description.NewField(r.self, fs.Name, typ, mods), nil
}

func (r *resolver) signature(ms MethodSpec) (description.MethodType, error) {
	if ms.Descriptor != "" {
		return description.ParseMethodType(ms.Descriptor)
	}
	ret := description.Void
	if ms.Returns != "" {
		t, err := r.resolve(ms.Returns)
		if err != nil {
			return description.MethodType{}, err
		}
		ret = t
	}
	params := make([]description.Type, 0, len(ms.Params))
	for _, name := range ms.Params {
		t, err := r.resolve(name)
		if err != nil {
			return description.MethodType{}, err
		}
		params = append(params, t)
	}
	return description.NewMethodType(ret, params...), nil
}

func (r *resolver) method(ms MethodSpec) (scaffold.MethodDefinition, error) {
	sig, err := r.signature(ms)
	if err != nil {
		return scaffold.MethodDefinition{}, fmt.Errorf("method %s: %w", ms.Name, err)
	}
	mods, err := description.ParseModifiers(ms.Modifiers)
	if err != nil {
		return scaffold.MethodDefinition{}, fmt.Errorf("method %s: %w", ms.Name, err)
	}
	m := description.NewMethod(r.self, ms.Name, sig, mods)
	if len(ms.Body) == 0 {
		return scaffold.MethodDefinition{Method: m}, nil
	}

	parts := make([]emit.StackManipulation, 0, len(ms.Body))
	for i, op := range ms.Body {
		sm, e := r.op(m, op)
		if e != nil {
			multierr.AppendInto(&err, fmt.Errorf("method %s: body[%d] %s: %w", ms.Name, i, op.Op, e))
			continue
		}
		parts = append(parts, sm)
	}
	if err != nil {
		return scaffold.MethodDefinition{}, err
	}
	return scaffold.MethodDefinition{Method: m, Body: emit.Compound(parts...)}, nil
}

// op 将一个计划操作转换为栈操作
func (r *resolver) op(m description.Method, op Op) (emit.StackManipulation, error) {
	switch op.Op {
	case "new":
		t, err := r.resolve(op.Type)
		if err != nil {
			return nil, err
		}
		return emit.NewTypeCreation(t)
	case "dup":
		t, err := r.resolveOr(op.Type, description.Object)
		if err != nil {
			return nil, err
		}
		return emit.DuplicateOf(t), nil
	case "pop":
		t, err := r.resolveOr(op.Type, description.Object)
		if err != nil {
			return nil, err
		}
		return emit.RemovalOf(t), nil
	case "text":
		s, ok := op.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: text value %v", ErrInvalidPlan, op.Value)
		}
		return constant.Text(s), nil
	case "int":
		n, ok := op.Value.(int64)
		if !ok || n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("%w: int value %v", ErrInvalidPlan, op.Value)
		}
		return constant.Integer(int32(n)), nil
	case "long":
		n, ok := op.Value.(int64)
		if !ok {
			return nil, fmt.Errorf("%w: long value %v", ErrInvalidPlan, op.Value)
		}
		return constant.Long(n), nil
	case "null":
		return constant.Null, nil
	case "class":
		t, err := r.resolve(op.Type)
		if err != nil {
			return nil, err
		}
		return constant.ClassOf(t), nil
	case "cast":
		t, err := r.resolve(op.Type)
		if err != nil {
			return nil, err
		}
		return assign.NewTypeCasting(t)
	case "instanceof":
		t, err := r.resolve(op.Type)
		if err != nil {
			return nil, err
		}
		return assign.NewInstanceCheck(t)
	case "field_constant":
		f, err := r.lookupField(op)
		if err != nil {
			return nil, err
		}
		fc := constant.NewFieldConstant(f)
		if op.Cached {
			return fc.Cached(), nil
		}
		return fc, nil
	case "get_field", "put_field":
		f, err := r.lookupField(op)
		if err != nil {
			return nil, err
		}
		if op.Op == "get_field" {
			return member.ReadField(f), nil
		}
		return member.WriteField(f), nil
	case "invoke":
		return r.invocation(op)
	case "handle_invoke":
		sig, err := description.ParseMethodType(op.Descriptor)
		if err != nil {
			return nil, err
		}
		return member.NewHandleInvocation(sig), nil
	case "load", "store":
		t, err := r.resolve(op.Type)
		if err != nil {
			return nil, err
		}
		if op.Op == "load" {
			return member.LoadVariable(t, op.Index), nil
		}
		return member.StoreVariable(t, op.Index), nil
	case "load_this":
		if m.IsStatic() {
			return nil, fmt.Errorf("%w: no receiver in static method", ErrInvalidPlan)
		}
		return member.LoadThis(), nil
	case "return":
		t, err := r.resolveOr(op.Type, m.ReturnType())
		if err != nil {
			return nil, err
		}
		return member.Return(t), nil
	default:
		return nil, fmt.Errorf("%w: unknown op %q", ErrInvalidPlan, op.Op)
	}
}

func (r *resolver) resolveOr(name string, fallback description.Type) (description.Type, error) {
	if name == "" {
		return fallback, nil
	}
	return r.resolve(name)
}

// lookupField 当前类型声明的字段直接取用，其余字段按 op 中的类型与 static 构造
func (r *resolver) lookupField(op Op) (description.Field, error) {
	if op.Name == "" {
		return description.Field{}, fmt.Errorf("%w: missing field name", ErrInvalidPlan)
	}
	owner, err := r.resolveOr(op.Owner, r.self)
	if err != nil {
		return description.Field{}, err
	}
	if owner.Name() == r.self.Name() {
		for _, f := range r.fields {
			if f.Name() == op.Name {
				return f, nil
			}
		}
	}
	typ, err := r.resolveOr(op.Type, description.Object)
	if err != nil {
		return description.Field{}, err
	}
	var mods int
	if op.Static {
		mods = jvmgen.AccStatic
	}
	return description.NewField(owner, op.Name, typ, mods), nil
}

func (r *resolver) invocation(op Op) (emit.StackManipulation, error) {
	owner, err := r.resolveOr(op.Owner, r.self)
	if err != nil {
		return nil, err
	}
	if op.Name == "" {
		return nil, fmt.Errorf("%w: missing method name", ErrInvalidPlan)
	}
	sig, err := description.ParseMethodType(op.Descriptor)
	if err != nil {
		return nil, err
	}
	mods := jvmgen.AccPublic
	if op.Static {
		mods |= jvmgen.AccStatic
	}
	m := description.NewMethod(owner, op.Name, sig, mods)
	if op.Special {
		return member.Special(m), nil
	}
	return member.Invoke(m), nil
}
