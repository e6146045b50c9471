package classfiletest

import (
	"bytes"
	"encoding/binary"

	"github.com/Sumatoshi-tech/jarfang/pkg/classfile"
)

// Asm appends bytecode. Branch offsets are raw and relative to the
// instruction, as in the class file.
type Asm struct {
	buf bytes.Buffer
}

// NewAsm returns an empty assembler.
func NewAsm() *Asm {
	return &Asm{}
}

// Op appends a raw opcode with no operands (also usable for shortcut forms
// such as ISTORE_0 = 0x3b).
func (a *Asm) Op(op classfile.Opcode) *Asm {
	a.buf.WriteByte(byte(op))

	return a
}

// Raw appends arbitrary bytes.
func (a *Asm) Raw(b ...byte) *Asm {
	a.buf.Write(b)

	return a
}

// Var appends an indexed load/store/ret.
func (a *Asm) Var(op classfile.Opcode, slot uint8) *Asm {
	a.buf.WriteByte(byte(op))
	a.buf.WriteByte(slot)

	return a
}

// WideVar appends a wide load/store.
func (a *Asm) WideVar(op classfile.Opcode, slot uint16) *Asm {
	a.buf.WriteByte(byte(classfile.WIDE))
	a.buf.WriteByte(byte(op))
	a.u2(slot)

	return a
}

// Iinc appends iinc.
func (a *Asm) Iinc(slot uint8, inc int8) *Asm {
	a.buf.WriteByte(byte(classfile.IINC))
	a.buf.WriteByte(slot)
	a.buf.WriteByte(byte(inc))

	return a
}

// WideIinc appends wide iinc.
func (a *Asm) WideIinc(slot uint16, inc int16) *Asm {
	a.buf.WriteByte(byte(classfile.WIDE))
	a.buf.WriteByte(byte(classfile.IINC))
	a.u2(slot)
	a.u2(uint16(inc)) //nolint:gosec // two's complement

	return a
}

// Ref appends an instruction with a two-byte constant pool operand
// (field, method, type, ldc_w).
func (a *Asm) Ref(op classfile.Opcode, idx uint16) *Asm {
	a.buf.WriteByte(byte(op))
	a.u2(idx)

	return a
}

// InvokeInterface appends invokeinterface with its count byte.
func (a *Asm) InvokeInterface(idx uint16, count uint8) *Asm {
	a.Ref(classfile.INVOKEINTERFACE, idx)
	a.buf.WriteByte(count)
	a.buf.WriteByte(0)

	return a
}

// InvokeDynamic appends invokedynamic.
func (a *Asm) InvokeDynamic(idx uint16) *Asm {
	a.Ref(classfile.INVOKEDYNAMIC, idx)
	a.u2(0)

	return a
}

// Jump appends a two-byte branch.
func (a *Asm) Jump(op classfile.Opcode, offset int16) *Asm {
	a.buf.WriteByte(byte(op))
	a.u2(uint16(offset)) //nolint:gosec // two's complement

	return a
}

// JumpW appends goto_w or jsr_w.
func (a *Asm) JumpW(op classfile.Opcode, offset int32) *Asm {
	a.buf.WriteByte(byte(op))
	a.u4(uint32(offset)) //nolint:gosec // two's complement

	return a
}

// TableSwitch appends a tableswitch over [low, high], all targets pointing
// at the instruction itself.
func (a *Asm) TableSwitch(low, high int32) *Asm {
	a.buf.WriteByte(byte(classfile.TABLESWITCH))
	a.pad()
	a.u4(0)
	a.u4(uint32(low))  //nolint:gosec // two's complement
	a.u4(uint32(high)) //nolint:gosec // two's complement

	for i := low; i <= high; i++ {
		a.u4(0)
	}

	return a
}

// LookupSwitch appends a lookupswitch with the given keys.
func (a *Asm) LookupSwitch(keys ...int32) *Asm {
	a.buf.WriteByte(byte(classfile.LOOKUPSWITCH))
	a.pad()
	a.u4(0)
	a.u4(uint32(len(keys))) //nolint:gosec // test fixtures are small

	for _, k := range keys {
		a.u4(uint32(k)) //nolint:gosec // two's complement
		a.u4(0)
	}

	return a
}

// Bytes returns the assembled code.
func (a *Asm) Bytes() []byte {
	return bytes.Clone(a.buf.Bytes())
}

func (a *Asm) pad() {
	for a.buf.Len()%4 != 0 {
		a.buf.WriteByte(0)
	}
}

func (a *Asm) u2(v uint16) {
	_ = binary.Write(&a.buf, binary.BigEndian, v)
}

func (a *Asm) u4(v uint32) {
	_ = binary.Write(&a.buf, binary.BigEndian, v)
}
