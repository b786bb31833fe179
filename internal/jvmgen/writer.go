package jvmgen

import (
	"encoding/binary"
)

// ByteWriter 大端序字节写入器
// class 文件与 Code 属性都通过它构建
type ByteWriter struct {
	buf []byte
}

// NewByteWriter 创建新的字节码写入器
func NewByteWriter() *ByteWriter {
	return &ByteWriter{}
}

// WriteByte 写入单个字节
func (w *ByteWriter) WriteByte(b byte) error {
	w.buf = append(w.buf, b)
	return nil
}

// WriteU8 写入无符号字节
func (w *ByteWriter) WriteU8(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteI8 写入有符号字节 (bipush 操作数)
func (w *ByteWriter) WriteI8(v int8) {
	w.buf = append(w.buf, byte(v))
}

// WriteU16 写入无符号短整型
func (w *ByteWriter) WriteU16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

// WriteI16 写入有符号短整型 (sipush 操作数)
func (w *ByteWriter) WriteI16(v int16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(v))
}

// WriteU32 写入无符号整型
func (w *ByteWriter) WriteU32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

// WriteU64 写入无符号长整型
func (w *ByteWriter) WriteU64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

// WriteBytes 写入字节数组
func (w *ByteWriter) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// PutU16 覆盖 offset 处已写入的两个字节
func (w *ByteWriter) PutU16(offset int, v uint16) {
	binary.BigEndian.PutUint16(w.buf[offset:], v)
}

// Bytes 返回字节数组
func (w *ByteWriter) Bytes() []byte {
	return w.buf
}

// Len 返回当前长度
func (w *ByteWriter) Len() int {
	return len(w.buf)
}

// Reset 重置写入器
func (w *ByteWriter) Reset() {
	w.buf = w.buf[:0]
}
