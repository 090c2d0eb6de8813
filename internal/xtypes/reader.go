package xtypes

import "math"

// Reader deserializes the same variants Writer produces.
type Reader struct {
	buf          []byte
	pos          int
	littleEndian bool
	v2           bool
}

// NewReader creates a Reader over buf for the given encapsulation kind.
func NewReader(buf []byte, kind EncapsulationKind) *Reader {
	return &Reader{buf: buf, littleEndian: kind.LittleEndian(), v2: kind.V2()}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

func (r *Reader) primitiveAlign(n int) int {
	if r.v2 && n > 4 {
		return 4
	}
	return n
}

func (r *Reader) pad(alignment int) error {
	if alignment <= 1 {
		return nil
	}
	rem := r.pos % alignment
	if rem == 0 {
		return nil
	}
	skip := alignment - rem
	if r.pos+skip > len(r.buf) {
		return ErrBufferUnderflow
	}
	r.pos += skip
	return nil
}

func (r *Reader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, ErrBufferUnderflow
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *Reader) getU16(b []byte) uint16 {
	if r.littleEndian {
		return uint16(b[0]) | uint16(b[1])<<8
	}
	return uint16(b[0])<<8 | uint16(b[1])
}

func (r *Reader) getU32(b []byte) uint32 {
	if r.littleEndian {
		return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func (r *Reader) getU64(b []byte) uint64 {
	var v uint64
	if r.littleEndian {
		for i := 0; i < 8; i++ {
			v |= uint64(b[i]) << (8 * i)
		}
	} else {
		for i := 0; i < 8; i++ {
			v |= uint64(b[7-i]) << (8 * i)
		}
	}
	return v
}

// ReadBool reads a single byte as a bool (nonzero == true).
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.take(1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

// ReadU8 reads an unsigned byte.
func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadI8 reads a signed byte.
func (r *Reader) ReadI8() (int8, error) {
	v, err := r.ReadU8()
	return int8(v), err
}

// ReadChar reads a single ASCII byte.
func (r *Reader) ReadChar() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	if b[0] > 0x7f {
		return 0, ErrInvalidData
	}
	return b[0], nil
}

// ReadU16 reads an unsigned 16-bit value.
func (r *Reader) ReadU16() (uint16, error) {
	if err := r.pad(r.primitiveAlign(2)); err != nil {
		return 0, err
	}
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return r.getU16(b), nil
}

// ReadI16 reads a signed 16-bit value.
func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

// ReadU32 reads an unsigned 32-bit value.
func (r *Reader) ReadU32() (uint32, error) {
	if err := r.pad(r.primitiveAlign(4)); err != nil {
		return 0, err
	}
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return r.getU32(b), nil
}

// ReadI32 reads a signed 32-bit value.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadU64 reads an unsigned 64-bit value.
func (r *Reader) ReadU64() (uint64, error) {
	if err := r.pad(r.primitiveAlign(8)); err != nil {
		return 0, err
	}
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return r.getU64(b), nil
}

// ReadI64 reads a signed 64-bit value.
func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

// ReadF32 reads an IEEE-754 single-precision float.
func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	return math.Float32frombits(v), err
}

// ReadF64 reads an IEEE-754 double-precision float.
func (r *Reader) ReadF64() (float64, error) {
	v, err := r.ReadU64()
	return math.Float64frombits(v), err
}

// ReadString reads a u32 length (including NUL) followed by the bytes and
// terminating NUL, returning the string without the NUL.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadU32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", ErrInvalidData
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	s := b[:n-1]
	for _, c := range s {
		if c > 0x7f {
			return "", ErrInvalidData
		}
	}
	return string(s), nil
}

// ReadBytes reads a u32-length-prefixed byte sequence.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	b, err := r.take(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// ReadByteArray reads n unaligned bytes with no length prefix.
func (r *Reader) ReadByteArray(n int) ([]byte, error) {
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// ReadSequenceLen reads the u32 element count prefixing a sequence.
func (r *Reader) ReadSequenceLen() (int, error) {
	n, err := r.ReadU32()
	return int(n), err
}

// -- Structure framing --

// ReadOptionalField reads one optional field per the structure kind and
// invokes readValue to decode the value when present.
func (r *Reader) ReadOptionalField(readValue func() error) (present bool, err error) {
	if r.v2 {
		p, err := r.ReadBool()
		if err != nil {
			return false, err
		}
		if !p {
			return false, nil
		}
		return true, readValue()
	}
	if err := r.pad(4); err != nil {
		return false, err
	}
	hdr, err := r.take(4)
	if err != nil {
		return false, err
	}
	length := r.getU16(hdr[2:4])
	if length == 0 {
		return false, nil
	}
	return true, readValue()
}

// BeginAppendable reads the v2 DHEADER (no-op for v1) and returns the byte
// offset at which the struct body ends, for bounds-checking/skip-unknown.
func (r *Reader) BeginAppendable() (bodyEnd int, err error) {
	if !r.v2 {
		return len(r.buf), nil
	}
	if err := r.pad(4); err != nil {
		return 0, err
	}
	n, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	return r.pos + int(n), nil
}

// ReadParameterHeader reads one mutable-struct field header: ParameterId,
// length. The sentinel is returned like any other header (ParameterId==1);
// callers check for ParameterSentinel explicitly.
func (r *Reader) ReadParameterHeader() (pid uint16, length uint16, err error) {
	if err := r.pad(4); err != nil {
		return 0, 0, err
	}
	b, err := r.take(4)
	if err != nil {
		return 0, 0, err
	}
	return r.getU16(b[0:2]), r.getU16(b[2:4]), nil
}

// SkipParameterBody advances past a parameter's body and its 4-byte padding.
func (r *Reader) SkipParameterBody(length uint16) error {
	if _, err := r.take(int(length)); err != nil {
		return err
	}
	return r.pad(4)
}
