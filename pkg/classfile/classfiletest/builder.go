// Package classfiletest assembles class files and JAR archives in memory for
// tests, so fixtures never have to be compiled or checked in.
package classfiletest

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Sumatoshi-tech/jarfang/pkg/classfile"
)

// DefaultMajorVersion is Java 21.
const DefaultMajorVersion = 65

type member struct {
	access     uint16
	name, desc string
	code       []byte
	hasCode    bool
}

// Builder writes a single class file.
type Builder struct {
	major      uint16
	access     uint16
	name       string
	super      string
	noSuper    bool
	interfaces []string
	fields     []member
	methods    []member

	pool      bytes.Buffer
	poolCount uint16
	poolIndex map[string]uint16
}

// NewClass starts a public class extending java/lang/Object.
func NewClass(name string) *Builder {
	return &Builder{
		major:     DefaultMajorVersion,
		access:    classfile.AccPublic,
		name:      name,
		super:     "java/lang/Object",
		poolCount: 1,
		poolIndex: make(map[string]uint16),
	}
}

// NewInterface starts a public interface.
func NewInterface(name string) *Builder {
	b := NewClass(name)
	b.access = classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract

	return b
}

// Super sets the superclass. An empty name writes super_class = 0.
func (b *Builder) Super(name string) *Builder {
	b.super = name
	b.noSuper = name == ""

	return b
}

// Implements appends interfaces.
func (b *Builder) Implements(names ...string) *Builder {
	b.interfaces = append(b.interfaces, names...)

	return b
}

// Version overrides the major version.
func (b *Builder) Version(major uint16) *Builder {
	b.major = major

	return b
}

// Field adds a field.
func (b *Builder) Field(name, desc string) *Builder {
	b.fields = append(b.fields, member{access: classfile.AccPublic, name: name, desc: desc})

	return b
}

// Method adds a method with a Code attribute.
func (b *Builder) Method(name, desc string, code []byte) *Builder {
	b.methods = append(b.methods, member{access: classfile.AccPublic, name: name, desc: desc, code: code, hasCode: true})

	return b
}

// AbstractMethod adds a method without a body.
func (b *Builder) AbstractMethod(name, desc string) *Builder {
	b.methods = append(b.methods, member{access: classfile.AccPublic | classfile.AccAbstract, name: name, desc: desc})

	return b
}

// Utf8 interns a CONSTANT_Utf8 entry and returns its index.
func (b *Builder) Utf8(s string) uint16 {
	return b.intern("u:"+s, func(w *bytes.Buffer) {
		w.WriteByte(classfile.TagUtf8)
		writeU2(w, uint16(len(s))) //nolint:gosec // test fixtures are small
		w.WriteString(s)
	})
}

// Class interns a CONSTANT_Class entry.
func (b *Builder) Class(name string) uint16 {
	nameIdx := b.Utf8(name)

	return b.intern("c:"+name, func(w *bytes.Buffer) {
		w.WriteByte(classfile.TagClass)
		writeU2(w, nameIdx)
	})
}

// NameAndType interns a CONSTANT_NameAndType entry.
func (b *Builder) NameAndType(name, desc string) uint16 {
	nameIdx, descIdx := b.Utf8(name), b.Utf8(desc)

	return b.intern("n:"+name+desc, func(w *bytes.Buffer) {
		w.WriteByte(classfile.TagNameAndType)
		writeU2(w, nameIdx)
		writeU2(w, descIdx)
	})
}

// MethodRef interns a CONSTANT_Methodref entry.
func (b *Builder) MethodRef(owner, name, desc string) uint16 {
	return b.ref(classfile.TagMethodref, owner, name, desc)
}

// InterfaceMethodRef interns a CONSTANT_InterfaceMethodref entry.
func (b *Builder) InterfaceMethodRef(owner, name, desc string) uint16 {
	return b.ref(classfile.TagInterfaceMethodref, owner, name, desc)
}

// FieldRef interns a CONSTANT_Fieldref entry.
func (b *Builder) FieldRef(owner, name, desc string) uint16 {
	return b.ref(classfile.TagFieldref, owner, name, desc)
}

// InvokeDynamic interns a CONSTANT_InvokeDynamic entry with bootstrap index 0.
func (b *Builder) InvokeDynamic(name, desc string) uint16 {
	nat := b.NameAndType(name, desc)

	return b.intern("d:"+name+desc, func(w *bytes.Buffer) {
		w.WriteByte(classfile.TagInvokeDynamic)
		writeU2(w, 0)
		writeU2(w, nat)
	})
}

// Long interns a CONSTANT_Long entry, which takes two pool slots.
func (b *Builder) Long(v int64) uint16 {
	key := fmt.Sprintf("j:%d", v)
	if idx, ok := b.poolIndex[key]; ok {
		return idx
	}

	idx := b.intern(key, func(w *bytes.Buffer) {
		w.WriteByte(classfile.TagLong)
		_ = binary.Write(w, binary.BigEndian, v)
	})
	b.poolCount++

	return idx
}

func (b *Builder) ref(tag uint8, owner, name, desc string) uint16 {
	classIdx := b.Class(owner)
	nat := b.NameAndType(name, desc)

	return b.intern(fmt.Sprintf("r%d:%s.%s%s", tag, owner, name, desc), func(w *bytes.Buffer) {
		w.WriteByte(tag)
		writeU2(w, classIdx)
		writeU2(w, nat)
	})
}

func (b *Builder) intern(key string, write func(*bytes.Buffer)) uint16 {
	if idx, ok := b.poolIndex[key]; ok {
		return idx
	}

	idx := b.poolCount
	write(&b.pool)
	b.poolIndex[key] = idx
	b.poolCount++

	return idx
}

// Bytes serializes the class file.
func (b *Builder) Bytes() []byte {
	thisIdx := b.Class(b.name)

	var superIdx uint16
	if !b.noSuper {
		superIdx = b.Class(b.super)
	}

	ifaceIdx := make([]uint16, 0, len(b.interfaces))
	for _, iface := range b.interfaces {
		ifaceIdx = append(ifaceIdx, b.Class(iface))
	}

	body := &bytes.Buffer{}
	writeU2(body, b.access)
	writeU2(body, thisIdx)
	writeU2(body, superIdx)
	writeU2(body, uint16(len(ifaceIdx))) //nolint:gosec // test fixtures are small

	for _, idx := range ifaceIdx {
		writeU2(body, idx)
	}

	b.writeMembers(body, b.fields)
	b.writeMembers(body, b.methods)
	writeU2(body, 0) // class attributes

	out := &bytes.Buffer{}
	_ = binary.Write(out, binary.BigEndian, uint32(classfile.Magic))
	writeU2(out, 0)
	writeU2(out, b.major)
	writeU2(out, b.poolCount)
	out.Write(b.pool.Bytes())
	out.Write(body.Bytes())

	return out.Bytes()
}

func (b *Builder) writeMembers(w *bytes.Buffer, members []member) {
	writeU2(w, uint16(len(members))) //nolint:gosec // test fixtures are small

	for _, m := range members {
		writeU2(w, m.access)
		writeU2(w, b.Utf8(m.name))
		writeU2(w, b.Utf8(m.desc))

		if !m.hasCode {
			writeU2(w, 0)

			continue
		}

		writeU2(w, 1)
		writeU2(w, b.Utf8("Code"))

		// max_stack, max_locals, code_length, code, exception_table_length, attributes_count
		attrLen := 2 + 2 + 4 + len(m.code) + 2 + 2
		_ = binary.Write(w, binary.BigEndian, uint32(attrLen)) //nolint:gosec // test fixtures are small
		writeU2(w, 8)
		writeU2(w, 8)
		_ = binary.Write(w, binary.BigEndian, uint32(len(m.code))) //nolint:gosec // test fixtures are small
		w.Write(m.code)
		writeU2(w, 0)
		writeU2(w, 0)
	}
}

func writeU2(w *bytes.Buffer, v uint16) {
	_ = binary.Write(w, binary.BigEndian, v)
}
