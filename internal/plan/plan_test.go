package plan

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"go.uber.org/multierr"

	"github.com/tangzhangming/bytekit/internal/description"
	"github.com/tangzhangming/bytekit/internal/emit"
	"github.com/tangzhangming/bytekit/internal/scaffold"
)

const greeter = `
[[types]]
name = "com.example.Greeting"
modifiers = ["public", "interface", "abstract"]

[type]
name = "com.example.Greeter"
interfaces = ["com.example.Greeting", "java.lang.Runnable"]

[[fields]]
name = "count"
type = "int"
modifiers = ["private", "static"]

[[fields]]
name = "names"
type = "java.lang.String[]"
modifiers = ["private"]

[[methods]]
name = "<init>"
descriptor = "()V"
modifiers = ["public"]
body = [
  { op = "load_this" },
  { op = "invoke", owner = "java.lang.Object", name = "<init>", descriptor = "()V", special = true },
  { op = "return" },
]

[[methods]]
name = "run"
modifiers = ["public"]
body = [
  { op = "get_field", name = "count" },
  { op = "int", value = 1 },
  { op = "pop", type = "int" },
  { op = "put_field", name = "count" },
  { op = "return" },
]

[[methods]]
name = "countField"
returns = "java.lang.reflect.Field"
modifiers = ["public", "static"]
body = [
  { op = "field_constant", name = "count", cached = true },
  { op = "return" },
]

[[methods]]
name = "make"
returns = "java.util.List"
modifiers = ["public", "static"]
body = [
  { op = "new", type = "java.util.ArrayList" },
  { op = "dup" },
  { op = "invoke", owner = "java.util.ArrayList", name = "<init>", descriptor = "()V" },
  { op = "return" },
]
`

func build(t *testing.T, src string) *scaffold.InstrumentedType {
	t.Helper()
	p, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	typ, err := p.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return typ
}

func TestBuild(t *testing.T) {
	typ := build(t, greeter)

	if typ.Type.Name() != "com.example.Greeter" {
		t.Errorf("type = %s", typ.Type)
	}
	if typ.SuperClass != description.Object {
		t.Errorf("super = %s, want java.lang.Object", typ.SuperClass)
	}
	if len(typ.Interfaces) != 2 || !typ.Interfaces[0].IsInterface() || typ.Interfaces[1] != description.Runnable {
		t.Errorf("interfaces = %v", typ.Interfaces)
	}
	if len(typ.Fields) != 2 || typ.Fields[1].Descriptor() != "[Ljava/lang/String;" {
		t.Errorf("fields = %v", typ.Fields)
	}
	if len(typ.Methods) != 4 {
		t.Fatalf("methods = %d, want 4", len(typ.Methods))
	}
	if got := typ.Methods[2].Method.Descriptor(); got != "()Ljava/lang/reflect/Field;" {
		t.Errorf("countField descriptor = %q", got)
	}
}

func TestBuildInstructionStream(t *testing.T) {
	typ := build(t, greeter)
	ctx := scaffold.NewContext(typ.Type, nil, "")

	tests := []struct {
		method string
		want   string
	}{
		{"<init>", "aload 0\ninvokespecial java/lang/Object.<init>:()V\nreturn\n"},
		{"run", "getstatic com/example/Greeter.count:I\niconst_1\npop\nputstatic com/example/Greeter.count:I\nreturn\n"},
		{"make", "new java/util/ArrayList\ndup\ninvokespecial java/util/ArrayList.<init>:()V\nareturn\n"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			var body emit.StackManipulation
			for _, m := range typ.Methods {
				if m.Method.Name() == tt.method {
					body = m.Body
				}
			}
			rec := &emit.Recorder{}
			if _, err := body.Apply(rec, ctx); err != nil {
				t.Fatalf("Apply() error: %v", err)
			}
			if got := rec.String(); got != tt.want {
				t.Errorf("instructions:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestBuildWritesClassFile(t *testing.T) {
	typ := build(t, greeter)
	w := scaffold.NewTypeWriter()
	data, err := w.Write(typ, scaffold.NoOpFieldPool)
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0xCA, 0xFE, 0xBA, 0xBE}) {
		t.Error("missing class file magic")
	}
	if w.Stats().CachedValues.Load() != 1 {
		t.Errorf("cached values = %d, want 1", w.Stats().CachedValues.Load())
	}

	out, err := w.Disassemble(typ)
	if err != nil {
		t.Fatalf("Disassemble() error: %v", err)
	}
	if !strings.Contains(out, "cached Ljava/lang/reflect/Field; cachedValue$bytekit$0") {
		t.Errorf("disassembly missing cached field:\n%s", out)
	}
}

func TestBuildReportsEveryError(t *testing.T) {
	src := `
[type]
name = "com.example.Broken"

[[fields]]
name = "x"
type = "int"
modifiers = ["sealed"]

[[methods]]
name = "m"
modifiers = ["public"]
body = [
  { op = "new", type = "java.util.List" },
  { op = "teleport" },
  { op = "int", value = "one" },
]
`
	p, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	_, err = p.Build()
	if err == nil {
		t.Fatal("Build() expected error")
	}
	if got := len(multierr.Errors(err)); got != 4 {
		t.Errorf("Build() reported %d errors, want 4: %v", got, err)
	}
	if !errors.Is(err, emit.ErrNotInstantiable) || !errors.Is(err, ErrInvalidPlan) || !errors.Is(err, description.ErrUnknownModifier) {
		t.Errorf("Build() error = %v", err)
	}
}

func TestParseRequiresTypeName(t *testing.T) {
	if _, err := Parse([]byte("[[fields]]\nname = \"x\"\n")); !errors.Is(err, ErrInvalidPlan) {
		t.Errorf("Parse() error = %v, want ErrInvalidPlan", err)
	}
}
