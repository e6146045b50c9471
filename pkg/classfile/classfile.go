// Package classfile reads compiled JVM class files: the constant pool, the
// class header, fields, methods and the bytecode of each method body.
package classfile

import (
	"errors"
	"fmt"
)

// Magic is the first four bytes of every class file.
const Magic = 0xCAFEBABE

// Access flags used by the analyzers.
const (
	AccPublic    = 0x0001
	AccStatic    = 0x0008
	AccInterface = 0x0200
	AccAbstract  = 0x0400
	AccModule    = 0x8000
)

// Special method names.
const (
	ConstructorName       = "<init>"
	StaticInitializerName = "<clinit>"
)

const attrCode = "Code"

// Sentinel parse errors.
var (
	// ErrBadMagic indicates the input does not start with 0xCAFEBABE.
	ErrBadMagic = errors.New("not a class file")
	// ErrTruncated indicates the input ended inside a structure.
	ErrTruncated = errors.New("truncated class file")
	// ErrBadConstantPool indicates an invalid tag or a dangling/mistyped reference.
	ErrBadConstantPool = errors.New("malformed constant pool")
	// ErrBadOpcode indicates an undefined or reserved opcode in a method body.
	ErrBadOpcode = errors.New("invalid opcode")
)

// ClassFile is the parsed form of a single .class file.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	AccessFlags  uint16

	// ThisClass and SuperClass are internal names (java/lang/Object).
	// SuperClass is empty for java/lang/Object and module-info.
	ThisClass  string
	SuperClass string
	Interfaces []string

	Fields  []Member
	Methods []Member

	pool constantPool
}

// Member is a field or a method.
type Member struct {
	AccessFlags uint16
	Name        string
	Descriptor  string

	// Code holds the bytecode of a method body. Nil for fields, abstract
	// and native methods.
	Code []byte
}

// IsInterface reports whether the class is an interface (or annotation type).
func (cf *ClassFile) IsInterface() bool {
	return cf.AccessFlags&AccInterface != 0
}

// Parse decodes a class file.
func Parse(data []byte) (*ClassFile, error) {
	r := &reader{buf: data}

	if r.u4() != Magic {
		if r.err != nil {
			return nil, r.err
		}

		return nil, ErrBadMagic
	}

	cf := &ClassFile{
		MinorVersion: r.u2(),
		MajorVersion: r.u2(),
	}

	pool, err := readConstantPool(r)
	if err != nil {
		return nil, err
	}

	cf.pool = pool
	cf.AccessFlags = r.u2()

	err = cf.readHeader(r)
	if err != nil {
		return nil, err
	}

	cf.Fields, err = cf.readMembers(r, false)
	if err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}

	cf.Methods, err = cf.readMembers(r, true)
	if err != nil {
		return nil, fmt.Errorf("methods: %w", err)
	}

	skipAttributes(r)

	if r.err != nil {
		return nil, r.err
	}

	return cf, nil
}

func (cf *ClassFile) readHeader(r *reader) error {
	thisIdx := r.u2()
	superIdx := r.u2()

	if r.err != nil {
		return r.err
	}

	name, err := cf.pool.className(thisIdx)
	if err != nil {
		return fmt.Errorf("this_class: %w", err)
	}

	cf.ThisClass = name

	if superIdx != 0 {
		cf.SuperClass, err = cf.pool.className(superIdx)
		if err != nil {
			return fmt.Errorf("super_class: %w", err)
		}
	}

	count := int(r.u2())
	if r.err != nil {
		return r.err
	}

	cf.Interfaces = make([]string, 0, count)

	for range count {
		iface, ifaceErr := cf.pool.className(r.u2())
		if r.err != nil {
			return r.err
		}

		if ifaceErr != nil {
			return fmt.Errorf("interfaces: %w", ifaceErr)
		}

		cf.Interfaces = append(cf.Interfaces, iface)
	}

	return nil
}

func (cf *ClassFile) readMembers(r *reader, methods bool) ([]Member, error) {
	count := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}

	members := make([]Member, 0, count)

	for range count {
		m := Member{AccessFlags: r.u2()}
		nameIdx := r.u2()
		descIdx := r.u2()

		if r.err != nil {
			return nil, r.err
		}

		var err error

		m.Name, err = cf.pool.utf8(nameIdx)
		if err != nil {
			return nil, err
		}

		m.Descriptor, err = cf.pool.utf8(descIdx)
		if err != nil {
			return nil, err
		}

		attrCount := int(r.u2())

		for range attrCount {
			attrName, nameErr := cf.pool.utf8(r.u2())
			length := r.u4()
			body := r.bytes(int(length))

			if r.err != nil {
				return nil, r.err
			}

			if nameErr != nil {
				return nil, nameErr
			}

			if methods && attrName == attrCode {
				m.Code, err = codeBytes(body)
				if err != nil {
					return nil, fmt.Errorf("%s%s: %w", m.Name, m.Descriptor, err)
				}
			}
		}

		members = append(members, m)
	}

	return members, nil
}

// codeBytes extracts the bytecode array from a Code attribute body:
// max_stack u2, max_locals u2, code_length u4, code[code_length], ...
func codeBytes(attr []byte) ([]byte, error) {
	r := &reader{buf: attr}
	r.u2()
	r.u2()
	length := r.u4()
	code := r.bytes(int(length))

	if r.err != nil {
		return nil, r.err
	}

	return code, nil
}

func skipAttributes(r *reader) {
	count := int(r.u2())

	for range count {
		r.u2()
		r.bytes(int(r.u4()))
	}
}
