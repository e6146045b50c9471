package classfile

import "encoding/binary"

// reader is a big-endian cursor with a sticky error. Once a read runs past
// the end of the buffer every further read returns zero values.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}

	if n < 0 || r.off+n > len(r.buf) {
		r.err = ErrTruncated

		return false
	}

	return true
}

func (r *reader) u1() uint8 {
	if !r.need(1) {
		return 0
	}

	v := r.buf[r.off]
	r.off++

	return v
}

func (r *reader) u2() uint16 {
	if !r.need(2) {
		return 0
	}

	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2

	return v
}

func (r *reader) u4() uint32 {
	if !r.need(4) {
		return 0
	}

	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4

	return v
}

func (r *reader) s4() int32 {
	return int32(r.u4()) //nolint:gosec // two's complement reinterpretation
}

func (r *reader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}

	v := r.buf[r.off : r.off+n]
	r.off += n

	return v
}

func (r *reader) skip(n int) {
	if r.need(n) {
		r.off += n
	}
}
