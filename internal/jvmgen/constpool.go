package jvmgen

import (
	"fmt"
	"math"
)

// ConstantPool 常量池
// 相同常量只登记一次，索引从 1 开始
type ConstantPool struct {
	entries []ConstantPoolEntry
	index   map[string]uint16 // 常量池索引缓存
}

// NewConstantPool 创建空常量池
func NewConstantPool() *ConstantPool {
	return &ConstantPool{index: make(map[string]uint16)}
}

// Len 返回已占用的槽位数
func (p *ConstantPool) Len() int {
	return len(p.entries)
}

// Entries 返回所有槽位，long/double 的第二个槽位为 nil
func (p *ConstantPool) Entries() []ConstantPoolEntry {
	return p.entries
}

// Get 按索引取常量
func (p *ConstantPool) Get(idx uint16) (ConstantPoolEntry, bool) {
	if idx == 0 || int(idx) > len(p.entries) {
		return nil, false
	}
	e := p.entries[idx-1]
	return e, e != nil
}

// Utf8At 返回索引处的 UTF8 常量值
func (p *ConstantPool) Utf8At(idx uint16) (string, bool) {
	e, ok := p.Get(idx)
	if !ok {
		return "", false
	}
	u, ok := e.(*ConstantUtf8Info)
	if !ok {
		return "", false
	}
	return u.Value, true
}

func (p *ConstantPool) intern(key string, newEntry func() ConstantPoolEntry, wide bool) uint16 {
	if idx, ok := p.index[key]; ok {
		return idx
	}
	p.entries = append(p.entries, newEntry())
	idx := uint16(len(p.entries))
	if wide {
		p.entries = append(p.entries, nil)
	}
	p.index[key] = idx
	return idx
}

// AddUtf8 登记 UTF8 常量
func (p *ConstantPool) AddUtf8(value string) uint16 {
	return p.intern("utf8:"+value, func() ConstantPoolEntry {
		return &ConstantUtf8Info{Value: value}
	}, false)
}

// AddInteger 登记 int 常量
func (p *ConstantPool) AddInteger(value int32) uint16 {
	return p.intern(fmt.Sprintf("int:%d", value), func() ConstantPoolEntry {
		return &ConstantIntegerInfo{Value: value}
	}, false)
}

// AddFloat 登记 float 常量
func (p *ConstantPool) AddFloat(value float32) uint16 {
	return p.intern(fmt.Sprintf("float:%08x", math.Float32bits(value)), func() ConstantPoolEntry {
		return &ConstantFloatInfo{Value: value}
	}, false)
}

// AddLong 登记 long 常量
func (p *ConstantPool) AddLong(value int64) uint16 {
	return p.intern(fmt.Sprintf("long:%d", value), func() ConstantPoolEntry {
		return &ConstantLongInfo{Value: value}
	}, true)
}

// AddDouble 登记 double 常量
func (p *ConstantPool) AddDouble(value float64) uint16 {
	return p.intern(fmt.Sprintf("double:%016x", math.Float64bits(value)), func() ConstantPoolEntry {
		return &ConstantDoubleInfo{Value: value}
	}, true)
}

// AddClass 登记类引用，name 为内部名称 (如 java/lang/Object) 或数组描述符
func (p *ConstantPool) AddClass(name string) uint16 {
	key := "class:" + name
	if idx, ok := p.index[key]; ok {
		return idx
	}
	nameIdx := p.AddUtf8(name)
	return p.intern(key, func() ConstantPoolEntry {
		return &ConstantClassInfo{NameIndex: nameIdx}
	}, false)
}

// AddString 登记字符串常量
func (p *ConstantPool) AddString(value string) uint16 {
	key := "string:" + value
	if idx, ok := p.index[key]; ok {
		return idx
	}
	utf8Idx := p.AddUtf8(value)
	return p.intern(key, func() ConstantPoolEntry {
		return &ConstantStringInfo{StringIndex: utf8Idx}
	}, false)
}

// AddNameAndType 登记名称与描述符
func (p *ConstantPool) AddNameAndType(name, descriptor string) uint16 {
	key := "nameandtype:" + name + ":" + descriptor
	if idx, ok := p.index[key]; ok {
		return idx
	}
	nameIdx := p.AddUtf8(name)
	descIdx := p.AddUtf8(descriptor)
	return p.intern(key, func() ConstantPoolEntry {
		return &ConstantNameAndTypeInfo{NameIndex: nameIdx, DescriptorIndex: descIdx}
	}, false)
}

// AddFieldref 登记字段引用
func (p *ConstantPool) AddFieldref(owner, name, descriptor string) uint16 {
	return p.addMemberref(ConstantFieldref, "fieldref:", owner, name, descriptor)
}

// AddMethodref 登记方法引用
func (p *ConstantPool) AddMethodref(owner, name, descriptor string) uint16 {
	return p.addMemberref(ConstantMethodref, "methodref:", owner, name, descriptor)
}

// AddInterfaceMethodref 登记接口方法引用
func (p *ConstantPool) AddInterfaceMethodref(owner, name, descriptor string) uint16 {
	return p.addMemberref(ConstantInterfaceMethodref, "imethodref:", owner, name, descriptor)
}

func (p *ConstantPool) addMemberref(kind uint8, prefix, owner, name, descriptor string) uint16 {
	key := prefix + owner + "." + name + ":" + descriptor
	if idx, ok := p.index[key]; ok {
		return idx
	}
	classIdx := p.AddClass(owner)
	natIdx := p.AddNameAndType(name, descriptor)
	return p.intern(key, func() ConstantPoolEntry {
		return &ConstantMemberrefInfo{Kind: kind, ClassIndex: classIdx, NameAndTypeIndex: natIdx}
	}, false)
}
