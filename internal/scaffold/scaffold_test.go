package scaffold

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/tangzhangming/bytekit/internal/attribute"
	"github.com/tangzhangming/bytekit/internal/description"
	"github.com/tangzhangming/bytekit/internal/emit"
	"github.com/tangzhangming/bytekit/internal/emit/constant"
	"github.com/tangzhangming/bytekit/internal/emit/member"
	"github.com/tangzhangming/bytekit/internal/jvmgen"
	"github.com/tangzhangming/bytekit/internal/matcher"
	"github.com/tangzhangming/bytekit/internal/transform"
)

var foo = description.ForName("com.example.Foo", jvmgen.AccPublic)

func named(name string) matcher.ElementMatcher[description.Field] {
	return matcher.NameIs[description.Field](name)
}

// countingFactory 统计 Make 调用次数，以指针身份参与去重
type countingFactory struct {
	calls int
}

func (c *countingFactory) Make(description.Type) attribute.FieldAppender {
	c.calls++
	return attribute.NoOp{}
}

// ============================================================================
// 注册表
// ============================================================================

func TestPrependDoesNotMutateReceiver(t *testing.T) {
	base := NewFieldRegistry().Prepend(named("a"), nil, 1, nil)
	extended := base.Prepend(named("b"), nil, 2, nil)

	if base.Len() != 1 {
		t.Errorf("base.Len() = %d, want 1", base.Len())
	}
	if extended.Len() != 2 {
		t.Errorf("extended.Len() = %d, want 2", extended.Len())
	}

	b := description.NewField(foo, "b", description.Int, 0)
	if rec := base.Compile(foo).Target(b); !rec.IsImplicit() {
		t.Error("base registry should not know the rule prepended later")
	}
	if rec := extended.Compile(foo).Target(b); rec.IsImplicit() {
		t.Error("extended registry should match b")
	}
}

func TestPrependedRuleTakesPrecedence(t *testing.T) {
	registry := NewFieldRegistry().
		Prepend(matcher.Any[description.Field](), nil, "old", nil).
		Prepend(named("x"), nil, "new", nil)
	compiled := registry.Compile(foo)

	tests := []struct {
		field string
		want  any
	}{
		{"x", "new"},
		{"y", "old"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			rec := compiled.Target(description.NewField(foo, tt.field, description.String, 0))
			if got := rec.DefaultValue(nil); got != tt.want {
				t.Errorf("DefaultValue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEmptyRegistryIsImplicit(t *testing.T) {
	f := description.NewField(foo, "x", description.Int, jvmgen.AccPrivate)
	pools := map[string]FieldPool{
		"compiled": NewFieldRegistry().Compile(foo),
		"noop":     NoOpFieldPool,
	}
	for name, pool := range pools {
		t.Run(name, func(t *testing.T) {
			rec := pool.Target(f)
			if !rec.IsImplicit() {
				t.Fatal("expected implicit record")
			}
			if rec.Field() != f {
				t.Errorf("Field() = %v, want %v", rec.Field(), f)
			}
			if got := rec.DefaultValue("fallback"); got != "fallback" {
				t.Errorf("DefaultValue() = %v, want fallback", got)
			}
		})
	}
}

func TestExplicitRecordForNamedField(t *testing.T) {
	compiled := NewFieldRegistry().Prepend(named("x"), attribute.Deprecated{}, 0, nil).Compile(foo)

	x := compiled.Target(description.NewField(foo, "x", description.Int, jvmgen.AccStatic))
	if x.IsImplicit() {
		t.Fatal("x should resolve to an explicit record")
	}
	if got := x.DefaultValue(nil); got != 0 {
		t.Errorf("DefaultValue() = %v, want 0", got)
	}
	if _, ok := x.Appender().(attribute.Deprecated); !ok {
		t.Errorf("Appender() = %T, want attribute.Deprecated", x.Appender())
	}

	y := compiled.Target(description.NewField(foo, "y", description.Int, jvmgen.AccStatic))
	if !y.IsImplicit() {
		t.Error("y should resolve to an implicit record")
	}
}

func TestTransformerAppliedToExplicitRecord(t *testing.T) {
	compiled := NewFieldRegistry().
		Prepend(named("x"), nil, nil, transform.WithModifiers(jvmgen.AccFinal)).
		Compile(foo)

	rec := compiled.Target(description.NewField(foo, "x", description.Int, jvmgen.AccPrivate))
	if !rec.Field().IsFinal() {
		t.Error("transformed field should be final")
	}
}

func TestCompileMaterializesSharedFactoryOnce(t *testing.T) {
	shared := &countingFactory{}
	other := &countingFactory{}
	registry := NewFieldRegistry().
		Prepend(named("a"), shared, nil, nil).
		Prepend(named("b"), other, nil, nil).
		Prepend(named("c"), shared, nil, nil)

	compiled := registry.Compile(foo)
	if shared.calls != 1 {
		t.Errorf("shared factory Make called %d times, want 1", shared.calls)
	}
	if other.calls != 1 {
		t.Errorf("other factory Make called %d times, want 1", other.calls)
	}

	// 每次编译各自去重
	registry.Compile(foo)
	if shared.calls != 2 {
		t.Errorf("shared factory Make called %d times after second compile, want 2", shared.calls)
	}

	a := compiled.Target(description.NewField(foo, "a", description.Int, 0))
	c := compiled.Target(description.NewField(foo, "c", description.Int, 0))
	if a.Appender() != c.Appender() {
		t.Error("entries sharing a factory should share one appender")
	}
}

func TestCompileIsIdempotent(t *testing.T) {
	registry := NewFieldRegistry().
		Prepend(named("a"), attribute.Synthetic{}, 1, nil).
		Prepend(matcher.NameHasPrefix[description.Field]("b"), attribute.Deprecated{}, 2, nil)
	first := registry.Compile(foo)
	second := registry.Compile(foo)

	for _, name := range []string{"a", "b1", "z"} {
		f := description.NewField(foo, name, description.Int, 0)
		r1, r2 := first.Target(f), second.Target(f)
		if r1.IsImplicit() != r2.IsImplicit() || r1.DefaultValue(nil) != r2.DefaultValue(nil) || r1.Field() != r2.Field() {
			t.Errorf("field %s resolved differently across compiles", name)
		}
	}
}

func TestNonComparableFactoryMaterializedPerEntry(t *testing.T) {
	calls := 0
	factory := funcFactory(func(description.Type) attribute.FieldAppender {
		calls++
		return attribute.NoOp{}
	})
	NewFieldRegistry().
		Prepend(named("a"), factory, nil, nil).
		Prepend(named("b"), factory, nil, nil).
		Compile(foo)
	if calls != 2 {
		t.Errorf("Make called %d times, want 2", calls)
	}
}

type funcFactory func(description.Type) attribute.FieldAppender

func (f funcFactory) Make(t description.Type) attribute.FieldAppender { return f(t) }

// wrapFactory 静态类型可比较，但接口字段里可能是不可比较的值
type wrapFactory struct {
	inner attribute.FieldAppenderFactory
}

func (w wrapFactory) Make(t description.Type) attribute.FieldAppender { return w.inner.Make(t) }

func TestFactoryHoldingFuncMaterializedPerEntry(t *testing.T) {
	calls := 0
	factory := wrapFactory{inner: funcFactory(func(description.Type) attribute.FieldAppender {
		calls++
		return attribute.NoOp{}
	})}
	compiled := NewFieldRegistry().
		Prepend(named("a"), factory, nil, nil).
		Prepend(named("b"), factory, nil, nil).
		Compile(foo)
	if calls != 2 {
		t.Errorf("Make called %d times, want 2", calls)
	}
	if rec := compiled.Target(description.NewField(foo, "a", description.Int, 0)); rec.IsImplicit() {
		t.Error("a should resolve to an explicit record")
	}

	// 内部值可比较时照常去重
	shared := &countingFactory{}
	NewFieldRegistry().
		Prepend(named("a"), wrapFactory{inner: shared}, nil, nil).
		Prepend(named("b"), wrapFactory{inner: shared}, nil, nil).
		Compile(foo)
	if shared.calls != 1 {
		t.Errorf("wrapped shared factory Make called %d times, want 1", shared.calls)
	}
}

func TestNilMatcherMatchesEveryField(t *testing.T) {
	var element matcher.ElementMatcher[description.Field]
	var latent matcher.LatentFunc[description.Field]
	tests := []struct {
		name string
		m    matcher.LatentMatcher[description.Field]
	}{
		{"untyped nil", nil},
		{"nil element matcher", element},
		{"nil latent func", latent},
		{"latent func resolving to nil", matcher.LatentFunc[description.Field](func(description.Type) matcher.ElementMatcher[description.Field] { return nil })},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled := NewFieldRegistry().Prepend(tt.m, nil, "v", nil).Compile(foo)
			rec := compiled.Target(description.NewField(foo, "anything", description.Int, 0))
			if rec.IsImplicit() || rec.DefaultValue(nil) != "v" {
				t.Errorf("Target() = implicit %v default %v, want explicit v", rec.IsImplicit(), rec.DefaultValue(nil))
			}
		})
	}
}

func TestRegistrySharedAcrossGoroutines(t *testing.T) {
	registry := NewFieldRegistry().
		Prepend(matcher.NameHasPrefix[description.Field]("legacy"), attribute.Deprecated{}, nil, nil).
		Prepend(named("x"), attribute.Synthetic{}, 1, transform.WithModifiers(jvmgen.AccFinal))
	shared := registry.Compile(foo)

	fields := []struct {
		name     string
		explicit bool
	}{
		{"x", true},
		{"legacyCount", true},
		{"other", false},
	}

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			own := registry.Compile(foo)
			for n := 0; n < 100; n++ {
				for _, pool := range []FieldPool{own, shared} {
					for _, f := range fields {
						rec := pool.Target(description.NewField(foo, f.name, description.Int, 0))
						if rec.IsImplicit() == f.explicit {
							return errors.New("field " + f.name + " resolved to the wrong record kind")
						}
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}

// ============================================================================
// 上下文
// ============================================================================

func TestContextCachesValueOnce(t *testing.T) {
	ctx := NewContext(foo, jvmgen.NewLibrary(jvmgen.V1_8), "")
	target := description.NewField(foo, "value", description.Int, jvmgen.AccPrivate)
	cachedConstant := constant.NewFieldConstant(target).Cached()

	rec := &emit.Recorder{}
	for i := 0; i < 3; i++ {
		size, err := cachedConstant.Apply(rec, ctx)
		if err != nil {
			t.Fatalf("Apply() error: %v", err)
		}
		if size.Delta() != 1 || size.Maximal() != 1 {
			t.Errorf("Apply() size = %v, want (1, 1)", size)
		}
	}

	fields := ctx.CachedFields()
	if len(fields) != 1 {
		t.Fatalf("CachedFields() = %d, want 1", len(fields))
	}
	if !strings.HasPrefix(fields[0].Name(), "cachedValue$bytekit$") {
		t.Errorf("cached field name = %q", fields[0].Name())
	}
	if fields[0].Modifiers()&jvmgen.AccSynthetic == 0 || !fields[0].IsStatic() || !fields[0].IsFinal() {
		t.Errorf("cached field modifiers = %#x", fields[0].Modifiers())
	}

	initRec := &emit.Recorder{}
	if _, err := ctx.TypeInitializer().Apply(initRec, ctx); err != nil {
		t.Fatalf("TypeInitializer() error: %v", err)
	}
	lookups := 0
	for _, insn := range initRec.Instructions {
		if insn.Name == "getDeclaredField" {
			lookups++
		}
	}
	if lookups != 1 {
		t.Errorf("type initializer performs %d lookups, want 1", lookups)
	}

	other := constant.NewFieldConstant(description.NewField(foo, "other", description.Int, 0)).Cached()
	if _, err := other.Apply(rec, ctx); !errors.Is(err, ErrContextFrozen) {
		t.Errorf("Apply() after freeze error = %v, want ErrContextFrozen", err)
	}
}

// heldManipulation 可比较的 struct，内部值是否可比较取决于运行时
type heldManipulation struct {
	emit.StackManipulation
}

func TestContextRejectsUnhashableValue(t *testing.T) {
	ctx := NewContext(foo, nil, "")
	held := heldManipulation{emit.Compound(constant.Integer(1), constant.Integer(2))}
	if _, err := ctx.Cache(held, description.Object); !errors.Is(err, ErrNotCacheable) {
		t.Errorf("Cache() error = %v, want ErrNotCacheable", err)
	}
	if _, err := ctx.Cache(heldManipulation{constant.Integer(1)}, description.Object); err != nil {
		t.Errorf("Cache() of comparable value error = %v", err)
	}
}

func TestLocateMethodRespectsClassVersion(t *testing.T) {
	params := []description.Type{description.ArrayOf(description.Object)}

	old := NewContext(foo, jvmgen.NewLibrary(jvmgen.V1_6), "")
	if _, err := old.LocateMethod(description.MethodHandle, "invokeExact", params...); !errors.Is(err, jvmgen.ErrMethodUnavailable) {
		t.Errorf("LocateMethod() on 1.6 error = %v, want ErrMethodUnavailable", err)
	}

	current := NewContext(foo, jvmgen.NewLibrary(jvmgen.V1_8), "")
	m, err := current.LocateMethod(description.MethodHandle, "invokeExact", params...)
	if err != nil {
		t.Fatalf("LocateMethod() on 1.8 error: %v", err)
	}
	if m.IsStatic() {
		t.Error("invokeExact should not be static")
	}

	if _, err := current.LocateMethod(description.Class, "noSuchMethod"); !errors.Is(err, jvmgen.ErrMethodNotFound) {
		t.Errorf("LocateMethod() error = %v, want ErrMethodNotFound", err)
	}
}

func TestFieldConstantFailsOnOldTarget(t *testing.T) {
	ctx := NewContext(foo, jvmgen.NewLibrary(jvmgen.V1_5-1), "")
	f := description.NewField(foo, "x", description.Int, 0)
	_, err := constant.NewFieldConstant(f).Apply(&emit.Recorder{}, ctx)
	if !errors.Is(err, jvmgen.ErrMethodUnavailable) {
		t.Errorf("Apply() error = %v, want ErrMethodUnavailable", err)
	}
}

// ============================================================================
// 写出
// ============================================================================

func objectConstructor() description.Method {
	return description.NewMethod(description.Object, description.ConstructorName, description.NewMethodType(description.Void), jvmgen.AccPublic)
}

func newFooType() *InstrumentedType {
	t := &InstrumentedType{Type: foo, SuperClass: description.Object}
	t.DeclareMethod(description.ConstructorName, description.NewMethodType(description.Void), jvmgen.AccPublic,
		emit.Compound(member.LoadThis(), member.Special(objectConstructor()), member.Return(description.Void)))
	return t
}

func TestWriteProducesClassFile(t *testing.T) {
	typ := newFooType()
	typ.DeclareField("x", description.Int, jvmgen.AccPublic|jvmgen.AccStatic|jvmgen.AccFinal)
	typ.DeclareField("y", description.String, jvmgen.AccPrivate)

	registry := NewFieldRegistry().Prepend(named("x"), attribute.Deprecated{}, 42, nil)
	w := NewTypeWriter()
	data, err := w.Make(typ, registry)
	if err != nil {
		t.Fatalf("Make() error: %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0xCA, 0xFE, 0xBA, 0xBE}) {
		t.Errorf("class file header = % x", data[:4])
	}
	if !bytes.Contains(data, []byte(jvmgen.AttrConstantValue)) {
		t.Error("expected ConstantValue attribute for x")
	}
	if !bytes.Contains(data, []byte(jvmgen.AttrDeprecated)) {
		t.Error("expected Deprecated attribute for x")
	}

	stats := w.Stats()
	if stats.Types.Load() != 1 || stats.Fields.Load() != 2 || stats.ExplicitHits.Load() != 1 || stats.Methods.Load() != 1 {
		t.Errorf("unexpected stats: %s", stats)
	}
}

func TestWriteInitializesCachedConstantsOnce(t *testing.T) {
	typ := newFooType()
	x := typ.DeclareField("x", description.Int, jvmgen.AccPrivate)
	signature := description.NewMethodType(description.ReflectField)
	body := emit.Compound(constant.NewFieldConstant(x).Cached(), member.Return(description.ReflectField))
	typ.DeclareMethod("first", signature, jvmgen.AccPublic|jvmgen.AccStatic, body)
	typ.DeclareMethod("second", signature, jvmgen.AccPublic|jvmgen.AccStatic, body)

	w := NewTypeWriter()
	data, err := w.Write(typ, NoOpFieldPool)
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if got := w.Stats().CachedValues.Load(); got != 1 {
		t.Errorf("cached values = %d, want 1", got)
	}
	if !bytes.Contains(data, []byte(description.TypeInitializerName)) {
		t.Error("expected a type initializer")
	}
	if got := bytes.Count(data, []byte("cachedValue$bytekit$")); got != 1 {
		t.Errorf("cached field name appears %d times in pool, want 1", got)
	}
}

func TestWriteKeepsUserTypeInitializer(t *testing.T) {
	typ := newFooType()
	counter := typ.DeclareField("counter", description.Int, jvmgen.AccPrivate|jvmgen.AccStatic)
	typ.DeclareMethod(description.TypeInitializerName, description.NewMethodType(description.Void), jvmgen.AccStatic,
		emit.Compound(constant.Integer(7), member.WriteField(counter), member.Return(description.Void)))

	out, err := NewTypeWriter().Disassemble(typ)
	if err != nil {
		t.Fatalf("Disassemble() error: %v", err)
	}
	if !strings.Contains(out, "putstatic com/example/Foo.counter:I") {
		t.Errorf("disassembly missing putstatic:\n%s", out)
	}

	if _, err := NewTypeWriter().Write(typ, NoOpFieldPool); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
}

func TestWriteRejectsOversizedText(t *testing.T) {
	typ := newFooType()
	typ.DeclareMethod("big", description.NewMethodType(description.String), jvmgen.AccPublic|jvmgen.AccStatic,
		emit.Compound(constant.Text(strings.Repeat("a", 70000)), member.Return(description.String)))

	w := NewTypeWriter()
	data, err := w.Make(typ, NewFieldRegistry())
	if !errors.Is(err, jvmgen.ErrOperandRange) {
		t.Fatalf("Make() error = %v, want ErrOperandRange", err)
	}
	if data != nil {
		t.Error("Make() returned a class file")
	}
	if w.Stats().Failures.Load() != 1 {
		t.Errorf("failures = %d, want 1", w.Stats().Failures.Load())
	}
}

func TestWriteRejectsInvalidBody(t *testing.T) {
	typ := newFooType()
	typ.DeclareMethod("broken", description.NewMethodType(description.Void), jvmgen.AccPublic, emit.Compound(emit.Trivial, emit.Illegal))

	w := NewTypeWriter()
	if _, err := w.Write(typ, NoOpFieldPool); !errors.Is(err, ErrInvalidBody) {
		t.Errorf("Write() error = %v, want ErrInvalidBody", err)
	}
	if w.Stats().Failures.Load() != 1 {
		t.Errorf("failures = %d, want 1", w.Stats().Failures.Load())
	}
}

// ============================================================================
// 校验
// ============================================================================

func TestValidationReportsEveryViolation(t *testing.T) {
	bad := description.ForName("com.example.Bad", jvmgen.AccPublic|jvmgen.AccInterface)
	typ := &InstrumentedType{Type: bad, SuperClass: description.Object}
	typ.DeclareField("x", description.Int, jvmgen.AccPrivate)
	typ.DeclareField("x", description.Int, jvmgen.AccPublic|jvmgen.AccStatic|jvmgen.AccFinal)
	typ.DeclareMethod("run", description.NewMethodType(description.Void), jvmgen.AccPublic, nil)

	err := ValidationEnabled.Validate(typ)
	if !errors.Is(err, ErrInvalidType) {
		t.Fatalf("Validate() error = %v, want ErrInvalidType", err)
	}
	// 接口未声明 abstract、x 非 public static final、x 重复、run 无方法体
	if got := len(multierr.Errors(err)); got != 4 {
		t.Errorf("Validate() reported %d violations, want 4: %v", got, err)
	}

	if err := ValidationDisabled.Validate(typ); err != nil {
		t.Errorf("disabled validation returned %v", err)
	}
}

func TestValidationAcceptsWellFormedType(t *testing.T) {
	typ := newFooType()
	typ.DeclareField("x", description.Int, jvmgen.AccPrivate)
	if err := ValidationEnabled.Validate(typ); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestDescribe(t *testing.T) {
	typ := newFooType()
	typ.DeclareField("x", description.Int, jvmgen.AccPrivate)
	typ.DeclareField("y", description.Int, jvmgen.AccPrivate)
	pool := NewFieldRegistry().Prepend(named("x"), attribute.Deprecated{}, 0, nil).Compile(foo)

	bindings := Describe(typ, pool)
	if len(bindings) != 2 {
		t.Fatalf("Describe() = %d bindings, want 2", len(bindings))
	}
	if bindings[0].Implicit || bindings[0].Default != 0 || bindings[0].Appender == "" {
		t.Errorf("unexpected binding for x: %+v", bindings[0])
	}
	if !bindings[1].Implicit || bindings[1].Default != nil {
		t.Errorf("unexpected binding for y: %+v", bindings[1])
	}
}
