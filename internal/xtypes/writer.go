package xtypes

import "math"

// Writer serializes primitives, strings, sequences/arrays, and structure
// framing (final/appendable/mutable) for one of the four XCDR variants
// {v1,v2}×{BE,LE}. The core consumes a DynamicType descriptor plus
// serialize/deserialize functions (spec.md §1 Out-of-scope: user-level
// type-registration codegen is not this package's job); user types call
// these primitives themselves, the way generated code would.
type Writer struct {
	buf          []byte
	littleEndian bool
	v2           bool
}

// NewWriter creates a Writer for the given encapsulation kind.
func NewWriter(kind EncapsulationKind) *Writer {
	return &Writer{littleEndian: kind.LittleEndian(), v2: kind.V2()}
}

// Bytes returns the serialized byte stream accumulated so far.
func (w *Writer) Bytes() []byte { return w.buf }

// primitiveAlign returns the alignment for a primitive of size n, measured
// from the start of the encapsulation: v1 aligns to n, v2 aligns to
// min(n,4), per spec.md §4.1.
func (w *Writer) primitiveAlign(n int) int {
	if w.v2 && n > 4 {
		return 4
	}
	return n
}

func (w *Writer) pad(alignment int) {
	if alignment <= 1 {
		return
	}
	rem := len(w.buf) % alignment
	if rem == 0 {
		return
	}
	for i := 0; i < alignment-rem; i++ {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) writeRaw(b []byte) { w.buf = append(w.buf, b...) }

func (w *Writer) putU16(v uint16) []byte {
	b := make([]byte, 2)
	if w.littleEndian {
		b[0], b[1] = byte(v), byte(v>>8)
	} else {
		b[0], b[1] = byte(v>>8), byte(v)
	}
	return b
}

func (w *Writer) putU32(v uint32) []byte {
	b := make([]byte, 4)
	if w.littleEndian {
		b[0], b[1], b[2], b[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
	} else {
		b[0], b[1], b[2], b[3] = byte(v>>24), byte(v>>16), byte(v>>8), byte(v)
	}
	return b
}

func (w *Writer) putU64(v uint64) []byte {
	b := make([]byte, 8)
	if w.littleEndian {
		for i := 0; i < 8; i++ {
			b[i] = byte(v >> (8 * i))
		}
	} else {
		for i := 0; i < 8; i++ {
			b[7-i] = byte(v >> (8 * i))
		}
	}
	return b
}

// WriteBool writes a single byte, 0 or 1.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.writeRaw([]byte{1})
	} else {
		w.writeRaw([]byte{0})
	}
}

// WriteU8 writes an unsigned byte.
func (w *Writer) WriteU8(v uint8) { w.writeRaw([]byte{v}) }

// WriteI8 writes a signed byte.
func (w *Writer) WriteI8(v int8) { w.writeRaw([]byte{byte(v)}) }

// WriteChar writes a single ASCII character. Returns ErrInvalidData for
// non-ASCII input.
func (w *Writer) WriteChar(v byte) error {
	if v > 0x7f {
		return ErrInvalidData
	}
	w.writeRaw([]byte{v})
	return nil
}

// WriteU16 writes an unsigned 16-bit value, aligned to 2.
func (w *Writer) WriteU16(v uint16) {
	w.pad(w.primitiveAlign(2))
	w.writeRaw(w.putU16(v))
}

// WriteI16 writes a signed 16-bit value.
func (w *Writer) WriteI16(v int16) { w.WriteU16(uint16(v)) }

// WriteU32 writes an unsigned 32-bit value, aligned to 4.
func (w *Writer) WriteU32(v uint32) {
	w.pad(w.primitiveAlign(4))
	w.writeRaw(w.putU32(v))
}

// WriteI32 writes a signed 32-bit value.
func (w *Writer) WriteI32(v int32) { w.WriteU32(uint32(v)) }

// WriteU64 writes an unsigned 64-bit value, aligned to 8 (v1) or 4 (v2).
func (w *Writer) WriteU64(v uint64) {
	w.pad(w.primitiveAlign(8))
	w.writeRaw(w.putU64(v))
}

// WriteI64 writes a signed 64-bit value.
func (w *Writer) WriteI64(v int64) { w.WriteU64(uint64(v)) }

// WriteF32 writes an IEEE-754 single-precision float.
func (w *Writer) WriteF32(v float32) { w.WriteU32(math.Float32bits(v)) }

// WriteF64 writes an IEEE-754 double-precision float.
func (w *Writer) WriteF64(v float64) { w.WriteU64(math.Float64bits(v)) }

// WriteString writes a u32 length (including NUL) followed by the bytes and
// a terminating NUL. Returns ErrInvalidData for non-ASCII input or a length
// that would overflow u32.
func (w *Writer) WriteString(s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return ErrInvalidData
		}
	}
	n := uint64(len(s)) + 1
	if n > math.MaxUint32 {
		return ErrInvalidData
	}
	w.WriteU32(uint32(n))
	w.writeRaw([]byte(s))
	w.writeRaw([]byte{0})
	return nil
}

// WriteBytes writes a byte sequence: u32 length + raw bytes (no alignment
// padding beyond the length field's own alignment, since byte elements are
// unaligned).
func (w *Writer) WriteBytes(b []byte) error {
	if uint64(len(b)) > math.MaxUint32 {
		return ErrInvalidData
	}
	w.WriteU32(uint32(len(b)))
	w.writeRaw(b)
	return nil
}

// WriteByteArray writes a fixed-size byte array with no length prefix
// (elements only, per spec.md §4.1 fixed arrays).
func (w *Writer) WriteByteArray(b []byte) { w.writeRaw(b) }

// WriteSequenceLen writes the u32 element count prefixing a sequence; the
// caller then writes each element with the appropriate WriteXxx call.
func (w *Writer) WriteSequenceLen(n int) error {
	if uint64(n) > math.MaxUint32 {
		return ErrInvalidData
	}
	w.WriteU32(uint32(n))
	return nil
}

// -- Structure framing --

// WriteOptionalField writes an optional field's presence/value per the
// structure kind: v1 uses a 4-byte (flags=0,pid=0|length) header followed by
// the value, or a zero length when absent; v2 uses a single presence byte
// followed by the value when present. present and writeValue together
// describe one optional field; writeValue is only invoked when present.
func (w *Writer) WriteOptionalField(present bool, writeValue func()) {
	if w.v2 {
		w.WriteBool(present)
		if present {
			writeValue()
		}
		return
	}
	// v1: length-prefixed sub-encoding.
	if !present {
		w.pad(4)
		w.writeRaw([]byte{0, 0, 0, 0})
		return
	}
	w.pad(4)
	w.writeRaw(w.putU16(0))
	w.writeRaw(w.putU16(0)) // length patched below
	bodyStart := len(w.buf)
	writeValue()
	length := len(w.buf) - bodyStart
	copy(w.buf[bodyStart-2:bodyStart], w.putU16(uint16(length)))
}

// AppendableHeader reserves space for the v2 DHEADER (u32 length of the
// struct body) and returns a token to pass to FinishAppendable. v1 does
// nothing (appendable framing is identical to final in v1).
type AppendableHeader struct {
	offset int
	active bool
}

// BeginAppendable starts an appendable-struct encoding.
func (w *Writer) BeginAppendable() AppendableHeader {
	if !w.v2 {
		return AppendableHeader{}
	}
	w.pad(4)
	off := len(w.buf)
	w.writeRaw([]byte{0, 0, 0, 0})
	return AppendableHeader{offset: off, active: true}
}

// FinishAppendable patches the DHEADER with the body length written since
// BeginAppendable.
func (w *Writer) FinishAppendable(h AppendableHeader) {
	if !h.active {
		return
	}
	length := uint32(len(w.buf) - h.offset - 4)
	copy(w.buf[h.offset:h.offset+4], w.putU32(length))
}

// ParameterSentinel is the terminating (ParameterId=1, length=0) marker for
// mutable-struct / parameter-list framing.
const ParameterSentinel uint16 = 1

// WriteParameter writes one mutable-struct field: a (u16 ParameterId, u16
// length) header, the body, padded to 4-byte alignment.
func (w *Writer) WriteParameter(pid uint16, body []byte) {
	w.pad(4)
	w.writeRaw(w.putU16(pid))
	w.writeRaw(w.putU16(uint16(len(body))))
	w.writeRaw(body)
	w.pad(4)
}

// WriteSentinel terminates a mutable struct / parameter list.
func (w *Writer) WriteSentinel() {
	w.pad(4)
	w.writeRaw(w.putU16(ParameterSentinel))
	w.writeRaw(w.putU16(0))
}
