package jvmgen

import (
	"fmt"
	"strings"
)

// MethodMapping 目标运行时中的一个已知方法
type MethodMapping struct {
	// JavaClass 声明类（内部名称格式，如 java/lang/Class）
	JavaClass string
	// JavaMethod 方法名
	JavaMethod string
	// Descriptor 方法描述符
	Descriptor string
	// IsStatic 是否是静态方法
	IsStatic bool
	// IsInterface 声明类是否为接口
	IsInterface bool
	// Since 最低可用的 class 文件主版本
	Since uint16
}

// KnownMethods 生成代码时会以反射方式引用的 JDK 方法
var KnownMethods = []*MethodMapping{
	// ============================================================
	// 反射 - java.lang.Class
	// ============================================================
	{JavaClass: "java/lang/Class", JavaMethod: "getDeclaredField", Descriptor: "(Ljava/lang/String;)Ljava/lang/reflect/Field;", Since: V1_5},
	{JavaClass: "java/lang/Class", JavaMethod: "getDeclaredMethod", Descriptor: "(Ljava/lang/String;[Ljava/lang/Class;)Ljava/lang/reflect/Method;", Since: V1_5},
	{JavaClass: "java/lang/Class", JavaMethod: "getName", Descriptor: "()Ljava/lang/String;", Since: V1_5},
	{JavaClass: "java/lang/Class", JavaMethod: "forName", Descriptor: "(Ljava/lang/String;)Ljava/lang/Class;", IsStatic: true, Since: V1_5},

	// ============================================================
	// 方法句柄 - java.lang.invoke
	// ============================================================
	{JavaClass: "java/lang/invoke/MethodHandles", JavaMethod: "lookup", Descriptor: "()Ljava/lang/invoke/MethodHandles$Lookup;", IsStatic: true, Since: V1_7},
	{JavaClass: "java/lang/invoke/MethodHandle", JavaMethod: "invokeExact", Descriptor: "([Ljava/lang/Object;)Ljava/lang/Object;", Since: V1_7},
	{JavaClass: "java/lang/invoke/MethodHandle", JavaMethod: "invoke", Descriptor: "([Ljava/lang/Object;)Ljava/lang/Object;", Since: V1_7},

	// ============================================================
	// 对象与字符串
	// ============================================================
	{JavaClass: "java/lang/Object", JavaMethod: "<init>", Descriptor: "()V", Since: V1_5},
	{JavaClass: "java/lang/Object", JavaMethod: "toString", Descriptor: "()Ljava/lang/String;", Since: V1_5},
	{JavaClass: "java/lang/String", JavaMethod: "getBytes", Descriptor: "(Ljava/lang/String;)[B", Since: V1_5},
	{JavaClass: "java/lang/String", JavaMethod: "valueOf", Descriptor: "(Ljava/lang/Object;)Ljava/lang/String;", IsStatic: true, Since: V1_5},
	{JavaClass: "java/lang/StringBuilder", JavaMethod: "<init>", Descriptor: "()V", Since: V1_5},
	{JavaClass: "java/lang/StringBuilder", JavaMethod: "append", Descriptor: "(Ljava/lang/String;)Ljava/lang/StringBuilder;", Since: V1_5},
	{JavaClass: "java/lang/StringBuilder", JavaMethod: "toString", Descriptor: "()Ljava/lang/String;", Since: V1_5},
	{JavaClass: "java/lang/Integer", JavaMethod: "valueOf", Descriptor: "(I)Ljava/lang/Integer;", IsStatic: true, Since: V1_5},
	{JavaClass: "java/lang/Long", JavaMethod: "valueOf", Descriptor: "(J)Ljava/lang/Long;", IsStatic: true, Since: V1_5},

	// ============================================================
	// 时间与文件 - java.lang.System / java.nio.file.Files
	// ============================================================
	{JavaClass: "java/lang/System", JavaMethod: "currentTimeMillis", Descriptor: "()J", IsStatic: true, Since: V1_5},
	{JavaClass: "java/lang/System", JavaMethod: "nanoTime", Descriptor: "()J", IsStatic: true, Since: V1_5},
	{JavaClass: "java/nio/file/Files", JavaMethod: "readString", Descriptor: "(Ljava/nio/file/Path;)Ljava/lang/String;", IsStatic: true, Since: V11},
	{JavaClass: "java/nio/file/Path", JavaMethod: "of", Descriptor: "(Ljava/lang/String;[Ljava/lang/String;)Ljava/nio/file/Path;", IsStatic: true, IsInterface: true, Since: V11},
}

// Library 目标运行时的方法表，按 class 文件版本过滤
type Library struct {
	version uint16
	methods map[string][]*MethodMapping // owner.name -> 候选重载
}

// NewLibrary 以 KnownMethods 和额外方法创建方法表
func NewLibrary(version uint16, extra ...*MethodMapping) *Library {
	l := &Library{version: version, methods: make(map[string][]*MethodMapping)}
	for _, m := range KnownMethods {
		l.add(m)
	}
	for _, m := range extra {
		l.add(m)
	}
	return l
}

func (l *Library) add(m *MethodMapping) {
	key := m.JavaClass + "." + m.JavaMethod
	l.methods[key] = append(l.methods[key], m)
}

// Version 返回目标 class 文件版本
func (l *Library) Version() uint16 {
	return l.version
}

// Lookup 查找方法；params 为参数部分的描述符，如 "(Ljava/lang/String;)"
func (l *Library) Lookup(owner, name, params string) (*MethodMapping, error) {
	for _, m := range l.methods[owner+"."+name] {
		if !strings.HasPrefix(m.Descriptor, params) {
			continue
		}
		if m.Since > l.version {
			return nil, fmt.Errorf("%w: %s.%s%s requires class version %d, target is %d",
				ErrMethodUnavailable, owner, name, params, m.Since, l.version)
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: %s.%s%s", ErrMethodNotFound, owner, name, params)
}
