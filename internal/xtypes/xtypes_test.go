package xtypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKinds = []EncapsulationKind{CDR_BE, CDR_LE, CDR2_BE, CDR2_LE}

func TestPrimitiveRoundTrip(t *testing.T) {
	for _, k := range allKinds {
		k := k
		t.Run(kindName(k), func(t *testing.T) {
			w := NewWriter(k)
			w.WriteBool(true)
			w.WriteU8(0x42)
			w.WriteI16(-7)
			w.WriteU32(0xdeadbeef)
			w.WriteI64(-123456789)
			w.WriteF32(3.25)
			w.WriteF64(2.71828)
			require.NoError(t, w.WriteString("hello"))

			r := NewReader(w.Bytes(), k)
			b, err := r.ReadBool()
			require.NoError(t, err)
			assert.True(t, b)

			u8, err := r.ReadU8()
			require.NoError(t, err)
			assert.Equal(t, uint8(0x42), u8)

			i16, err := r.ReadI16()
			require.NoError(t, err)
			assert.Equal(t, int16(-7), i16)

			u32, err := r.ReadU32()
			require.NoError(t, err)
			assert.Equal(t, uint32(0xdeadbeef), u32)

			i64, err := r.ReadI64()
			require.NoError(t, err)
			assert.Equal(t, int64(-123456789), i64)

			f32, err := r.ReadF32()
			require.NoError(t, err)
			assert.Equal(t, float32(3.25), f32)

			f64, err := r.ReadF64()
			require.NoError(t, err)
			assert.Equal(t, 2.71828, f64)

			s, err := r.ReadString()
			require.NoError(t, err)
			assert.Equal(t, "hello", s)
		})
	}
}

func TestStringRejectsNonASCII(t *testing.T) {
	w := NewWriter(CDR_LE)
	err := w.WriteString("héllo")
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestByteSequenceRoundTrip(t *testing.T) {
	for _, k := range allKinds {
		w := NewWriter(k)
		payload := make([]byte, 37)
		for i := range payload {
			payload[i] = byte(i)
		}
		require.NoError(t, w.WriteBytes(payload))
		r := NewReader(w.Bytes(), k)
		got, err := r.ReadBytes()
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	}
}

func TestSequenceOfU32RoundTrip(t *testing.T) {
	values := []uint32{1, 2, 3, 4000000000}
	for _, k := range allKinds {
		w := NewWriter(k)
		require.NoError(t, w.WriteSequenceLen(len(values)))
		for _, v := range values {
			w.WriteU32(v)
		}
		r := NewReader(w.Bytes(), k)
		n, err := r.ReadSequenceLen()
		require.NoError(t, err)
		require.Equal(t, len(values), n)
		got := make([]uint32, n)
		for i := 0; i < n; i++ {
			got[i], err = r.ReadU32()
			require.NoError(t, err)
		}
		assert.Equal(t, values, got)
	}
}

// TestOptionalFieldRoundTrip exercises both the present and absent cases,
// across v1 and v2 framing.
func TestOptionalFieldRoundTrip(t *testing.T) {
	for _, k := range allKinds {
		w := NewWriter(k)
		w.WriteOptionalField(true, func() { w.WriteU32(99) })
		w.WriteOptionalField(false, func() {})
		w.WriteU16(7) // sentinel trailing field to prove alignment recovers

		r := NewReader(w.Bytes(), k)
		present, err := r.ReadOptionalField(func() error {
			_, err := r.ReadU32()
			return err
		})
		require.NoError(t, err)
		assert.True(t, present)

		present, err = r.ReadOptionalField(func() error { return nil })
		require.NoError(t, err)
		assert.False(t, present)

		trailing, err := r.ReadU16()
		require.NoError(t, err)
		assert.Equal(t, uint16(7), trailing)
	}
}

func TestAppendableHeaderV2Only(t *testing.T) {
	w := NewWriter(CDR2_LE)
	h := w.BeginAppendable()
	w.WriteU32(1)
	w.WriteU32(2)
	w.FinishAppendable(h)

	r := NewReader(w.Bytes(), CDR2_LE)
	end, err := r.BeginAppendable()
	require.NoError(t, err)
	assert.Equal(t, len(w.Bytes()), end)

	a, err := r.ReadU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), a)
}

func TestParameterListRoundTripIgnoresUnknown(t *testing.T) {
	for _, k := range []EncapsulationKind{PL_CDR_BE, PL_CDR_LE} {
		w := NewWriter(k)
		var pl ParameterList
		pl.Add(0x0005, []byte("topicname"))
		pl.Add(0xBEEF, []byte{1, 2, 3, 4}) // unknown id
		pl.Add(0x0007, []byte{9, 9, 9, 9})
		pl.Encode(w)

		r := NewReader(w.Bytes(), k)
		decoded, err := DecodeParameterList(r)
		require.NoError(t, err)
		require.Len(t, decoded.Entries, 3)

		name, ok := decoded.Get(0x0005)
		require.True(t, ok)
		assert.Equal(t, "topicname", string(name))

		unknown, ok := decoded.Get(0xBEEF)
		require.True(t, ok)
		assert.Equal(t, []byte{1, 2, 3, 4}, unknown)
	}
}

func TestEncapsulationHeaderRoundTrip(t *testing.T) {
	h := EncapsulationHeader{Kind: PL_CDR2_LE, Options: 0}
	b := h.Bytes()
	got, err := ParseEncapsulationHeader(b[:])
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func kindName(k EncapsulationKind) string {
	switch k {
	case CDR_BE:
		return "v1_be"
	case CDR_LE:
		return "v1_le"
	case CDR2_BE:
		return "v2_be"
	case CDR2_LE:
		return "v2_le"
	default:
		return "unknown"
	}
}
