package scaffold

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/tangzhangming/bytekit/internal/description"
	"github.com/tangzhangming/bytekit/internal/emit"
	"github.com/tangzhangming/bytekit/internal/emit/member"
	"github.com/tangzhangming/bytekit/internal/jvmgen"
)

// ErrInvalidBody 方法体包含无效的片段
var ErrInvalidBody = errors.New("invalid method body")

// MethodDefinition 方法及其方法体；abstract 与 native 方法的 Body 为 nil
type MethodDefinition struct {
	Method description.Method
	Body   emit.StackManipulation
}

// InstrumentedType 被生成的类型
type InstrumentedType struct {
	Type       description.Type
	SuperClass description.Type
	Interfaces []description.Type
	Fields     []description.Field
	Methods    []MethodDefinition
}

// DeclareField 声明字段，声明类型固定为当前类型
func (t *InstrumentedType) DeclareField(name string, typ description.Type, modifiers int) description.Field {
	f := description.NewField(t.Type, name, typ, modifiers)
	t.Fields = append(t.Fields, f)
	return f
}

// DeclareMethod 声明方法
func (t *InstrumentedType) DeclareMethod(name string, signature description.MethodType, modifiers int, body emit.StackManipulation) description.Method {
	m := description.NewMethod(t.Type, name, signature, modifiers)
	t.Methods = append(t.Methods, MethodDefinition{Method: m, Body: body})
	return m
}

// Stats 生成统计，可在多个 goroutine 间共享
type Stats struct {
	Types        atomic.Int64
	Fields       atomic.Int64
	ExplicitHits atomic.Int64
	Methods      atomic.Int64
	CachedValues atomic.Int64
	Failures     atomic.Int64
	Bytes        atomic.Int64
}

// String 返回统计摘要
func (s *Stats) String() string {
	return fmt.Sprintf("types=%d fields=%d explicit=%d methods=%d cached=%d failures=%d bytes=%d",
		s.Types.Load(), s.Fields.Load(), s.ExplicitHits.Load(), s.Methods.Load(),
		s.CachedValues.Load(), s.Failures.Load(), s.Bytes.Load())
}

// TypeWriter 将被生成的类型写为 class 文件
type TypeWriter struct {
	version     uint16
	validation  TypeValidation
	library     *jvmgen.Library
	cacheSuffix string
	logger      *zap.Logger
	stats       *Stats
}

// Option 配置 TypeWriter
type Option func(*TypeWriter)

// WithVersion 设置 class 文件主版本号，同时决定可用的运行时方法
func WithVersion(version uint16) Option {
	return func(w *TypeWriter) { w.version = version }
}

// WithValidation 设置是否校验
func WithValidation(v TypeValidation) Option {
	return func(w *TypeWriter) { w.validation = v }
}

// WithLibrary 替换运行时方法表
func WithLibrary(l *jvmgen.Library) Option {
	return func(w *TypeWriter) { w.library = l }
}

// WithCacheSuffix 设置缓存字段名后缀
func WithCacheSuffix(suffix string) Option {
	return func(w *TypeWriter) { w.cacheSuffix = suffix }
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(w *TypeWriter) { w.logger = logger }
}

// WithStats 共享统计
func WithStats(stats *Stats) Option {
	return func(w *TypeWriter) { w.stats = stats }
}

// NewTypeWriter 创建写出器
func NewTypeWriter(opts ...Option) *TypeWriter {
	w := &TypeWriter{
		version:     jvmgen.ClassMajorVersion,
		validation:  ValidationEnabled,
		cacheSuffix: DefaultCacheSuffix,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.library == nil {
		w.library = jvmgen.NewLibrary(w.version)
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	if w.stats == nil {
		w.stats = &Stats{}
	}
	return w
}

// Stats 返回统计
func (w *TypeWriter) Stats() *Stats {
	return w.stats
}

// Make 针对 t 编译注册表并写出
func (w *TypeWriter) Make(t *InstrumentedType, registry FieldRegistry) ([]byte, error) {
	var pool FieldPool = NoOpFieldPool
	if registry.Len() > 0 {
		pool = registry.Compile(t.Type)
	}
	return w.Write(t, pool)
}

// Write 使用已编译的字段池写出 t
func (w *TypeWriter) Write(t *InstrumentedType, pool FieldPool) ([]byte, error) {
	data, err := w.write(t, pool)
	if err != nil {
		w.stats.Failures.Inc()
		w.logger.Warn("type generation failed", zap.String("type", t.Type.Name()), zap.Error(err))
		return nil, err
	}
	w.stats.Types.Inc()
	w.stats.Bytes.Add(int64(len(data)))
	w.logger.Debug("type generated", zap.String("type", t.Type.Name()), zap.Int("bytes", len(data)))
	return data, nil
}

func (w *TypeWriter) write(t *InstrumentedType, pool FieldPool) ([]byte, error) {
	if err := w.validation.Validate(t); err != nil {
		return nil, err
	}

	interfaces := make([]string, len(t.Interfaces))
	for i, iface := range t.Interfaces {
		interfaces[i] = iface.InternalName()
	}
	var super string
	if !t.SuperClass.IsZero() {
		super = t.SuperClass.InternalName()
	}
	access := uint16(t.Type.Modifiers())
	if !t.Type.IsInterface() {
		access |= jvmgen.AccSuper
	}
	b := jvmgen.NewClassBuilder(w.version, access, t.Type.InternalName(), super, interfaces...)

	for _, f := range t.Fields {
		record := pool.Target(f)
		if !record.IsImplicit() {
			w.stats.ExplicitHits.Inc()
		}
		if err := record.Apply(b); err != nil {
			return nil, fmt.Errorf("%s: %w", t.Type.Name(), err)
		}
		w.stats.Fields.Inc()
		w.logger.Debug("field written",
			zap.String("type", t.Type.Name()),
			zap.String("field", record.Field().Name()),
			zap.Bool("implicit", record.IsImplicit()))
	}

	ctx := NewContext(t.Type, w.library, w.cacheSuffix)
	var initializer *MethodDefinition
	for i := range t.Methods {
		m := t.Methods[i]
		if m.Method.IsTypeInitializer() {
			initializer = &t.Methods[i]
			continue
		}
		if err := w.writeMethod(b, ctx, m); err != nil {
			return nil, fmt.Errorf("%s: %w", t.Type.Name(), err)
		}
	}
	if err := w.writeTypeInitializer(b, ctx, initializer); err != nil {
		return nil, fmt.Errorf("%s: %w", t.Type.Name(), err)
	}
	return b.Bytes()
}

func (w *TypeWriter) writeMethod(b *jvmgen.ClassBuilder, ctx *Context, m MethodDefinition) error {
	method := m.Method
	if m.Body == nil {
		b.AddMethod(uint16(method.Modifiers()), method.Name(), method.Descriptor(), nil, 0, 0)
		w.stats.Methods.Inc()
		return nil
	}
	if !m.Body.IsValid() {
		return fmt.Errorf("%w: %s%s", ErrInvalidBody, method.Name(), method.Descriptor())
	}
	code := b.NewCode()
	size, err := m.Body.Apply(code, ctx)
	if err != nil {
		return fmt.Errorf("method %s%s: %w", method.Name(), method.Descriptor(), err)
	}
	b.AddMethod(uint16(method.Modifiers()), method.Name(), method.Descriptor(), code, size.Maximal(), max(method.LocalSlots(), code.MaxLocals()))
	w.stats.Methods.Inc()
	return nil
}

// writeTypeInitializer 先给缓存字段赋值，再执行用户的类型初始化器
//
// 用户方法体先写入 Recorder，使其中登记的缓存值也能在冻结前被收集。
func (w *TypeWriter) writeTypeInitializer(b *jvmgen.ClassBuilder, ctx *Context, user *MethodDefinition) error {
	var recorded *emit.Recorder
	bodySize := emit.Size{}
	if user != nil {
		if user.Body == nil || !user.Body.IsValid() {
			return fmt.Errorf("%w: %s", ErrInvalidBody, description.TypeInitializerName)
		}
		recorded = &emit.Recorder{}
		size, err := user.Body.Apply(recorded, ctx)
		if err != nil {
			return fmt.Errorf("method %s: %w", description.TypeInitializerName, err)
		}
		bodySize = size
	}

	cachedFields := ctx.CachedFields()
	if user == nil && len(cachedFields) == 0 {
		return nil
	}
	for _, f := range cachedFields {
		b.AddField(uint16(f.Modifiers()), f.Name(), f.Descriptor())
	}
	w.stats.CachedValues.Add(int64(len(cachedFields)))

	code := b.NewCode()
	size, err := ctx.TypeInitializer().Apply(code, ctx)
	if err != nil {
		return fmt.Errorf("method %s: %w", description.TypeInitializerName, err)
	}
	if recorded != nil {
		recorded.Replay(code)
		size = size.Aggregate(bodySize)
	} else {
		tail, err := member.Return(description.Void).Apply(code, ctx)
		if err != nil {
			return err
		}
		size = size.Aggregate(tail)
	}
	b.AddMethod(jvmgen.AccStatic, description.TypeInitializerName, "()V", code, size.Maximal(), code.MaxLocals())
	w.stats.Methods.Inc()
	return nil
}

// Disassemble 以文本形式列出每个方法体的指令，不写出 class 文件
func (w *TypeWriter) Disassemble(t *InstrumentedType) (string, error) {
	ctx := NewContext(t.Type, w.library, w.cacheSuffix)
	var sb strings.Builder
	for _, m := range t.Methods {
		fmt.Fprintf(&sb, "%s%s", m.Method.Name(), m.Method.Descriptor())
		if m.Body == nil {
			sb.WriteString(" <no code>\n")
			continue
		}
		rec := &emit.Recorder{}
		size, err := m.Body.Apply(rec, ctx)
		if err != nil {
			return "", fmt.Errorf("%s.%s: %w", t.Type.Name(), m.Method.Name(), err)
		}
		fmt.Fprintf(&sb, " %s\n%s", size, rec)
	}
	for _, f := range ctx.CachedFields() {
		fmt.Fprintf(&sb, "cached %s %s\n", f.Descriptor(), f.Name())
	}
	return sb.String(), nil
}
