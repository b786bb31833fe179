package jvmgen

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"go.uber.org/multierr"
)

// ============================================================================
// 常量池
// ============================================================================

func TestConstantPoolInterning(t *testing.T) {
	p := NewConstantPool()

	a := p.AddUtf8("hello")
	b := p.AddUtf8("hello")
	if a != b {
		t.Errorf("AddUtf8 returned %d and %d for the same value", a, b)
	}
	if a != 1 {
		t.Errorf("first index = %d, want 1", a)
	}

	cls := p.AddClass("java/lang/Object")
	if p.AddClass("java/lang/Object") != cls {
		t.Error("AddClass should intern")
	}
	if s, ok := p.Utf8At(a); !ok || s != "hello" {
		t.Errorf("Utf8At(%d) = %q, %v", a, s, ok)
	}

	// long 占两个槽位
	before := p.Len()
	l := p.AddLong(1 << 40)
	if p.Len() != before+2 {
		t.Errorf("Len() after AddLong = %d, want %d", p.Len(), before+2)
	}
	if _, ok := p.Get(l + 1); ok {
		t.Error("second slot of a long should be unusable")
	}
	next := p.AddInteger(7)
	if next != l+2 {
		t.Errorf("entry after long = %d, want %d", next, l+2)
	}
}

func TestMemberRefsAreDistinct(t *testing.T) {
	p := NewConstantPool()
	f := p.AddFieldref("a/B", "x", "I")
	m := p.AddMethodref("a/B", "x", "I")
	i := p.AddInterfaceMethodref("a/B", "x", "I")
	if f == m || m == i || f == i {
		t.Errorf("member refs share an index: %d %d %d", f, m, i)
	}
	if p.AddMethodref("a/B", "x", "I") != m {
		t.Error("AddMethodref should intern")
	}
}

// ============================================================================
// 字节码
// ============================================================================

func TestCodeWriter(t *testing.T) {
	tests := []struct {
		name  string
		write func(c *CodeWriter)
		want  []byte
	}{
		{"insn", func(c *CodeWriter) { c.Insn(OpReturn) }, []byte{OpReturn}},
		{"bipush", func(c *CodeWriter) { c.IntInsn(OpBipush, -2) }, []byte{OpBipush, 0xFE}},
		{"sipush", func(c *CodeWriter) { c.IntInsn(OpSipush, 300) }, []byte{OpSipush, 0x01, 0x2C}},
		{"aload", func(c *CodeWriter) { c.VarInsn(OpAload, 3) }, []byte{OpAload, 3}},
		{"wide iload", func(c *CodeWriter) { c.VarInsn(OpIload, 300) }, []byte{0xC4, OpIload, 0x01, 0x2C}},
		{"ldc string", func(c *CodeWriter) { c.LdcInsn("s") }, []byte{OpLdc, 2}},
		{"ldc2_w long", func(c *CodeWriter) { c.LdcInsn(int64(5)) }, []byte{OpLdc2W, 0, 1}},
		{"new", func(c *CodeWriter) { c.TypeInsn(OpNew, "a/B") }, []byte{OpNew, 0, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCodeWriter(NewConstantPool())
			tt.write(c)
			if err := c.Err(); err != nil {
				t.Fatalf("Err() = %v", err)
			}
			if !bytes.Equal(c.Bytes(), tt.want) {
				t.Errorf("Bytes() = % x, want % x", c.Bytes(), tt.want)
			}
		})
	}
}

func TestCodeWriterInvokeInterface(t *testing.T) {
	c := NewCodeWriter(NewConstantPool())
	c.MethodInsn(OpInvokeinterface, "java/util/List", "add", "(Ljava/lang/Object;)Z", true)
	code := c.Bytes()
	if len(code) != 5 {
		t.Fatalf("invokeinterface length = %d, want 5", len(code))
	}
	// count = 参数槽位 + 1
	if code[3] != 2 || code[4] != 0 {
		t.Errorf("invokeinterface count/zero = %d/%d, want 2/0", code[3], code[4])
	}
}

func TestCodeWriterMaxLocals(t *testing.T) {
	tests := []struct {
		name   string
		opcode byte
		index  int
		want   int
	}{
		{"aload 0", OpAload, 0, 1},
		{"istore 3", OpIstore, 3, 4},
		{"lstore 3", OpLstore, 3, 5},
		{"dload 300", OpDload, 300, 302},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCodeWriter(NewConstantPool())
			c.VarInsn(tt.opcode, tt.index)
			if got := c.MaxLocals(); got != tt.want {
				t.Errorf("MaxLocals() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCodeWriterCollectsErrors(t *testing.T) {
	c := NewCodeWriter(NewConstantPool())
	c.IntInsn(OpBipush, 1000)
	c.LdcInsn(struct{}{})
	c.VarInsn(OpAload, -1)

	err := c.Err()
	if len(multierr.Errors(err)) != 3 {
		t.Fatalf("Err() = %v, want 3 errors", err)
	}
	if !errors.Is(err, ErrOperandRange) || !errors.Is(err, ErrUnsupportedConstant) {
		t.Errorf("Err() = %v", err)
	}
}

// ============================================================================
// 描述符
// ============================================================================

func TestSplitMethodDescriptor(t *testing.T) {
	tests := []struct {
		desc    string
		params  []string
		ret     string
		slots   int
		wantErr bool
	}{
		{"()V", nil, "V", 0, false},
		{"(IJ)D", []string{"I", "J"}, "D", 3, false},
		{"(Ljava/lang/String;[[I)[Ljava/lang/Object;", []string{"Ljava/lang/String;", "[[I"}, "[Ljava/lang/Object;", 2, false},
		{"(I", nil, "", 0, true},
		{"(Q)V", nil, "", 0, true},
		{"()Ljava/lang/String", nil, "", 0, true},
		{"V", nil, "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			params, ret, err := SplitMethodDescriptor(tt.desc)
			if tt.wantErr {
				if !errors.Is(err, ErrBadDescriptor) {
					t.Errorf("error = %v, want ErrBadDescriptor", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("error: %v", err)
			}
			if len(params) != len(tt.params) {
				t.Fatalf("params = %v, want %v", params, tt.params)
			}
			for i := range params {
				if params[i] != tt.params[i] {
					t.Errorf("params[%d] = %q, want %q", i, params[i], tt.params[i])
				}
			}
			if ret != tt.ret {
				t.Errorf("ret = %q, want %q", ret, tt.ret)
			}
			if slots, _ := ArgumentSlots(tt.desc); slots != tt.slots {
				t.Errorf("ArgumentSlots() = %d, want %d", slots, tt.slots)
			}
		})
	}
}

// ============================================================================
// class 文件
// ============================================================================

func TestClassBuilderBytes(t *testing.T) {
	b := NewClassBuilder(V1_8, AccPublic|AccSuper, "com/example/Foo", "java/lang/Object")
	fb := b.AddField(AccPublic|AccStatic|AccFinal, "MAX", "I")
	if err := fb.SetConstantValue(10); err != nil {
		t.Fatalf("SetConstantValue() error: %v", err)
	}

	code := b.NewCode()
	code.VarInsn(OpAload, 0)
	code.MethodInsn(OpInvokespecial, "java/lang/Object", "<init>", "()V", false)
	code.Insn(OpReturn)
	b.AddMethod(AccPublic, "<init>", "()V", code, 1, 1)

	data, err := b.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error: %v", err)
	}
	header := []byte{0xCA, 0xFE, 0xBA, 0xBE, 0, 0, 0, V1_8}
	if !bytes.HasPrefix(data, header) {
		t.Errorf("header = % x, want % x", data[:8], header)
	}
	for _, s := range []string{"com/example/Foo", "MAX", AttrConstantValue, AttrCode, "<init>"} {
		if !bytes.Contains(data, []byte(s)) {
			t.Errorf("class file missing %q", s)
		}
	}
}

func TestSetConstantValueChecksType(t *testing.T) {
	tests := []struct {
		desc    string
		value   any
		wantErr bool
	}{
		{"I", 42, false},
		{"Z", true, false},
		{"B", 200, true},
		{"C", -1, true},
		{"J", int64(1) << 40, false},
		{"D", 1.5, false},
		{"F", 3, false},
		{"Ljava/lang/String;", "text", false},
		{"Ljava/lang/String;", 1, true},
		{"Ljava/lang/Object;", "text", true},
	}

	for _, tt := range tests {
		b := NewClassBuilder(V1_8, AccPublic, "A", "java/lang/Object")
		err := b.AddField(AccStatic, "f", tt.desc).SetConstantValue(tt.value)
		if tt.wantErr != (err != nil) {
			t.Errorf("SetConstantValue(%s, %v) error = %v, wantErr %v", tt.desc, tt.value, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrConstantValueType) {
			t.Errorf("error = %v, want ErrConstantValueType", err)
		}
	}
}

func TestAddMethodReportsCodeErrors(t *testing.T) {
	b := NewClassBuilder(V1_8, AccPublic, "A", "java/lang/Object")
	code := b.NewCode()
	code.IntInsn(OpBipush, 999)
	b.AddMethod(AccStatic, "m", "()V", code, 1, 0)
	if _, err := b.Bytes(); !errors.Is(err, ErrOperandRange) {
		t.Errorf("Bytes() error = %v, want ErrOperandRange", err)
	}
}

func TestAddMethodRejectsLongCode(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		wantErr bool
	}{
		{"at limit", 65535, false},
		{"over limit", 65536, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewClassBuilder(V1_8, AccPublic, "A", "java/lang/Object")
			code := b.NewCode()
			for i := 0; i < tt.length-1; i++ {
				code.Insn(OpNop)
			}
			code.Insn(OpReturn)
			b.AddMethod(AccStatic, "m", "()V", code, 0, 0)
			_, err := b.Bytes()
			if tt.wantErr != (err != nil) {
				t.Fatalf("Bytes() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrOperandRange) {
				t.Errorf("Bytes() error = %v, want ErrOperandRange", err)
			}
		})
	}
}

func TestOversizedUtf8Constant(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"ascii at limit", strings.Repeat("a", 65535), false},
		{"ascii over limit", strings.Repeat("a", 70000), true},
		{"nul doubles", strings.Repeat("\x00", 32768), true},
		{"three-byte chars", strings.Repeat("€", 21846), true},
		{"three-byte chars at limit", strings.Repeat("€", 21845), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewClassBuilder(V1_8, AccPublic, "A", "java/lang/Object")
			code := b.NewCode()
			code.LdcInsn(tt.value)
			code.Insn(OpPop)
			code.Insn(OpReturn)
			b.AddMethod(AccStatic, "m", "()V", code, 1, 0)
			data, err := b.Bytes()
			if tt.wantErr != (err != nil) {
				t.Fatalf("Bytes() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrOperandRange) {
					t.Errorf("Bytes() error = %v, want ErrOperandRange", err)
				}
				if data != nil {
					t.Error("Bytes() returned a partial class file")
				}
			}
		})
	}
}

// ============================================================================
// 运行时方法表
// ============================================================================

func TestLibraryLookup(t *testing.T) {
	tests := []struct {
		name    string
		version uint16
		owner   string
		method  string
		params  string
		wantErr error
	}{
		{"available", V1_8, "java/lang/Class", "getDeclaredField", "(Ljava/lang/String;)", nil},
		{"too new", V1_8, "java/nio/file/Files", "readString", "(Ljava/nio/file/Path;)", ErrMethodUnavailable},
		{"recent target", V11, "java/nio/file/Files", "readString", "(Ljava/nio/file/Path;)", nil},
		{"wrong params", V1_8, "java/lang/Class", "getDeclaredField", "(I)", ErrMethodNotFound},
		{"unknown", V1_8, "java/lang/Class", "nope", "()", ErrMethodNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewLibrary(tt.version).Lookup(tt.owner, tt.method, tt.params)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Lookup() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup() error: %v", err)
			}
			if m.JavaMethod != tt.method {
				t.Errorf("Lookup() = %+v", m)
			}
		})
	}
}

func TestLibraryExtraMethods(t *testing.T) {
	extra := &MethodMapping{JavaClass: "com/example/Util", JavaMethod: "helper", Descriptor: "()V", IsStatic: true, Since: V1_5}
	m, err := NewLibrary(V1_8, extra).Lookup("com/example/Util", "helper", "()")
	if err != nil || m != extra {
		t.Errorf("Lookup() = %v, %v", m, err)
	}
}
