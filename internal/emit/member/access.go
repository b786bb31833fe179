package member

import (
	"fmt"

	"github.com/tangzhangming/bytekit/internal/description"
	"github.com/tangzhangming/bytekit/internal/emit"
	"github.com/tangzhangming/bytekit/internal/jvmgen"
)

// FieldAccess 读取或写入字段
type FieldAccess struct {
	field description.Field
	write bool
}

// ReadField 读取字段；实例字段需要栈顶为所属对象
func ReadField(f description.Field) FieldAccess {
	return FieldAccess{field: f}
}

// WriteField 写入字段；栈顶为新值，实例字段其下为所属对象
func WriteField(f description.Field) FieldAccess {
	return FieldAccess{field: f, write: true}
}

// Field 返回被访问的字段
func (a FieldAccess) Field() description.Field { return a.field }

func (a FieldAccess) IsValid() bool { return true }

func (a FieldAccess) Apply(sink emit.Sink, _ emit.Context) (emit.Size, error) {
	var op byte
	slots := a.field.Type().StackSlots()
	receiver := 1
	if a.field.IsStatic() {
		receiver = 0
	}
	var delta int
	switch {
	case a.write && a.field.IsStatic():
		op = jvmgen.OpPutstatic
		delta = -slots
	case a.write:
		op = jvmgen.OpPutfield
		delta = -(slots + receiver)
	case a.field.IsStatic():
		op = jvmgen.OpGetstatic
		delta = slots
	default:
		op = jvmgen.OpGetfield
		delta = slots - receiver
	}
	sink.FieldInsn(op, a.field.DeclaringType().InternalName(), a.field.Name(), a.field.Descriptor())
	return emit.NewSize(delta, max(0, delta)), nil
}

func (a FieldAccess) String() string {
	if a.write {
		return fmt.Sprintf("FieldAccess{write %s}", a.field)
	}
	return fmt.Sprintf("FieldAccess{read %s}", a.field)
}

// VariableAccess 加载或存储局部变量
type VariableAccess struct {
	typ   description.Type
	index int
	store bool
}

// LoadVariable 加载 index 处 t 类型的局部变量
func LoadVariable(t description.Type, index int) VariableAccess {
	return VariableAccess{typ: t, index: index}
}

// StoreVariable 将栈顶 t 类型的值存入 index 处的局部变量
func StoreVariable(t description.Type, index int) VariableAccess {
	return VariableAccess{typ: t, index: index, store: true}
}

// LoadThis 加载 this 引用
func LoadThis() VariableAccess {
	return VariableAccess{typ: description.Object, index: 0}
}

// IsValid void 不能作为局部变量类型
func (v VariableAccess) IsValid() bool {
	return !v.typ.IsVoid() && v.index >= 0
}

func (v VariableAccess) Apply(sink emit.Sink, _ emit.Context) (emit.Size, error) {
	if !v.IsValid() {
		return emit.Size{}, fmt.Errorf("%w: local %d of type %s", emit.ErrIllegal, v.index, v.typ)
	}
	var load, store byte
	switch v.typ.Descriptor() {
	case "J":
		load, store = jvmgen.OpLload, jvmgen.OpLstore
	case "F":
		load, store = jvmgen.OpFload, jvmgen.OpFstore
	case "D":
		load, store = jvmgen.OpDload, jvmgen.OpDstore
	case "I", "Z", "B", "C", "S":
		load, store = jvmgen.OpIload, jvmgen.OpIstore
	default:
		load, store = jvmgen.OpAload, jvmgen.OpAstore
	}
	size := emit.StackSizeOf(v.typ)
	if v.store {
		sink.VarInsn(store, v.index)
		return size.ToDecreasingSize(), nil
	}
	sink.VarInsn(load, v.index)
	return size.ToIncreasingSize(), nil
}
