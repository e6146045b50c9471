package classfile

import (
	"fmt"
	"unicode/utf16"
)

// Constant pool tags (JVMS 4.4).
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
	TagModule             = 19
	TagPackage            = 20
)

type cpEntry struct {
	tag  uint8
	a, b uint16
	text string
}

// constantPool is indexed from 1; slot 0 and the slot after a long or
// double are left with tag 0.
type constantPool []cpEntry

func readConstantPool(r *reader) (constantPool, error) {
	count := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}

	pool := make(constantPool, count)

	for i := 1; i < count; i++ {
		entry := cpEntry{tag: r.u1()}

		switch entry.tag {
		case TagUtf8:
			entry.text = decodeModifiedUTF8(r.bytes(int(r.u2())))
		case TagInteger, TagFloat:
			r.skip(4)
		case TagLong, TagDouble:
			r.skip(8)
			pool[i] = entry
			i++

			continue
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			entry.a = r.u2()
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			entry.a = r.u2()
			entry.b = r.u2()
		case TagMethodHandle:
			entry.a = uint16(r.u1())
			entry.b = r.u2()
		default:
			if r.err != nil {
				return nil, r.err
			}

			return nil, fmt.Errorf("%w: tag %d at index %d", ErrBadConstantPool, entry.tag, i)
		}

		if r.err != nil {
			return nil, r.err
		}

		pool[i] = entry
	}

	if r.err != nil {
		return nil, r.err
	}

	return pool, nil
}

func (p constantPool) entry(idx uint16, tag uint8) (cpEntry, error) {
	if idx == 0 || int(idx) >= len(p) {
		return cpEntry{}, fmt.Errorf("%w: index %d out of range", ErrBadConstantPool, idx)
	}

	e := p[idx]
	if e.tag != tag {
		return cpEntry{}, fmt.Errorf("%w: index %d has tag %d, want %d", ErrBadConstantPool, idx, e.tag, tag)
	}

	return e, nil
}

func (p constantPool) utf8(idx uint16) (string, error) {
	e, err := p.entry(idx, TagUtf8)
	if err != nil {
		return "", err
	}

	return e.text, nil
}

func (p constantPool) className(idx uint16) (string, error) {
	e, err := p.entry(idx, TagClass)
	if err != nil {
		return "", err
	}

	return p.utf8(e.a)
}

func (p constantPool) nameAndType(idx uint16) (name, descriptor string, err error) {
	e, err := p.entry(idx, TagNameAndType)
	if err != nil {
		return "", "", err
	}

	name, err = p.utf8(e.a)
	if err != nil {
		return "", "", err
	}

	descriptor, err = p.utf8(e.b)
	if err != nil {
		return "", "", err
	}

	return name, descriptor, nil
}

// memberRef resolves a Fieldref, Methodref or InterfaceMethodref.
func (p constantPool) memberRef(idx uint16) (owner, name, descriptor string, err error) {
	if idx == 0 || int(idx) >= len(p) {
		return "", "", "", fmt.Errorf("%w: index %d out of range", ErrBadConstantPool, idx)
	}

	e := p[idx]

	switch e.tag {
	case TagFieldref, TagMethodref, TagInterfaceMethodref:
	default:
		return "", "", "", fmt.Errorf("%w: index %d has tag %d, want member reference", ErrBadConstantPool, idx, e.tag)
	}

	owner, err = p.className(e.a)
	if err != nil {
		return "", "", "", err
	}

	name, descriptor, err = p.nameAndType(e.b)

	return owner, name, descriptor, err
}

func (p constantPool) invokeDynamic(idx uint16) (name, descriptor string, err error) {
	e, err := p.entry(idx, TagInvokeDynamic)
	if err != nil {
		return "", "", err
	}

	return p.nameAndType(e.b)
}

const replacementChar = 0xfffd

// decodeModifiedUTF8 decodes the JVM's modified UTF-8: NUL is encoded on two
// bytes and supplementary characters as two three-byte surrogates.
func decodeModifiedUTF8(b []byte) string {
	ascii := true

	for _, c := range b {
		if c >= 0x80 {
			ascii = false

			break
		}
	}

	if ascii {
		return string(b)
	}

	units := make([]uint16, 0, len(b))

	for i := 0; i < len(b); {
		c := b[i]

		switch {
		case c < 0x80:
			units = append(units, uint16(c))
			i++
		case c&0xe0 == 0xc0 && i+1 < len(b):
			units = append(units, uint16(c&0x1f)<<6|uint16(b[i+1]&0x3f))
			i += 2
		case c&0xf0 == 0xe0 && i+2 < len(b):
			units = append(units, uint16(c&0x0f)<<12|uint16(b[i+1]&0x3f)<<6|uint16(b[i+2]&0x3f))
			i += 3
		default:
			units = append(units, replacementChar)
			i++
		}
	}

	return string(utf16.Decode(units))
}
