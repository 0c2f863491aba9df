package vm

import "fmt"

// Buffer is a scoped byte buffer natives use to build strings piecewise.
// Its contents end up exactly one of two ways: PushString turns them into
// an interned, GC-tracked String on the operand stack, or Release discards
// them, so every exit path of a native (including exceptional returns)
// leaves no dangling intermediate.
type Buffer struct {
	vm   *VM
	data []byte
}

// AcquireBuffer returns an empty buffer with at least capacity bytes
// reserved.
func (vm *VM) AcquireBuffer(capacity int) *Buffer {
	return &Buffer{vm: vm, data: make([]byte, 0, capacity)}
}

// Append adds raw bytes to the buffer.
func (b *Buffer) Append(p []byte) { b.data = append(b.data, p...) }

// AppendString adds the bytes of s.
func (b *Buffer) AppendString(s string) { b.data = append(b.data, s...) }

// AppendByte adds a single byte.
func (b *Buffer) AppendByte(c byte) { b.data = append(b.data, c) }

// Appendf formats into the buffer.
func (b *Buffer) Appendf(format string, args ...any) {
	b.data = fmt.Appendf(b.data, format, args...)
}

// Trunc cuts the buffer down to length n (a no-op if already shorter).
func (b *Buffer) Trunc(n int) {
	if n < len(b.data) {
		b.data = b.data[:n]
	}
}

// Len returns the number of bytes accumulated so far.
func (b *Buffer) Len() int { return len(b.data) }

// PushString interns the accumulated bytes and pushes the resulting String
// onto the operand stack, releasing the buffer. The value is rooted by the
// stack from the moment this returns.
func (b *Buffer) PushString() {
	b.vm.push(b.vm.internedString(string(b.data)))
	b.data = nil
}

// Release discards the contents without producing a value; safe to call
// more than once, and after PushString.
func (b *Buffer) Release() { b.data = nil }
