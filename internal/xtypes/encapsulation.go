package xtypes

// EncapsulationKind is the 2-byte scheme id preceding every serialized
// payload (spec.md §6).
type EncapsulationKind uint16

const (
	CDR_BE     EncapsulationKind = 0x0000
	CDR_LE     EncapsulationKind = 0x0001
	PL_CDR_BE  EncapsulationKind = 0x0002
	PL_CDR_LE  EncapsulationKind = 0x0003
	CDR2_BE    EncapsulationKind = 0x0006
	CDR2_LE    EncapsulationKind = 0x0007
	PL_CDR2_BE EncapsulationKind = 0x0008
	PL_CDR2_LE EncapsulationKind = 0x0009
)

// LittleEndian reports whether kind is one of the little-endian variants.
func (k EncapsulationKind) LittleEndian() bool {
	switch k {
	case CDR_LE, PL_CDR_LE, CDR2_LE, PL_CDR2_LE:
		return true
	default:
		return false
	}
}

// V2 reports whether kind uses XCDR2 framing rules.
func (k EncapsulationKind) V2() bool {
	switch k {
	case CDR2_BE, CDR2_LE, PL_CDR2_BE, PL_CDR2_LE:
		return true
	default:
		return false
	}
}

// PL reports whether kind uses parameter-list (mutable) framing.
func (k EncapsulationKind) PL() bool {
	switch k {
	case PL_CDR_BE, PL_CDR_LE, PL_CDR2_BE, PL_CDR2_LE:
		return true
	default:
		return false
	}
}

// EncapsulationHeader is the 4-byte header preceding every serialized
// payload: 2-byte scheme id + 2 options bytes.
type EncapsulationHeader struct {
	Kind    EncapsulationKind
	Options uint16
}

// Bytes encodes the header, always big-endian regardless of the payload's
// own endianness (the scheme id itself is fixed-endian per the RTPS spec).
func (h EncapsulationHeader) Bytes() [4]byte {
	return [4]byte{byte(h.Kind >> 8), byte(h.Kind), byte(h.Options >> 8), byte(h.Options)}
}

// ParseEncapsulationHeader reads a 4-byte encapsulation header.
func ParseEncapsulationHeader(b []byte) (EncapsulationHeader, error) {
	if len(b) < 4 {
		return EncapsulationHeader{}, ErrInvalidData
	}
	return EncapsulationHeader{
		Kind:    EncapsulationKind(uint16(b[0])<<8 | uint16(b[1])),
		Options: uint16(b[2])<<8 | uint16(b[3]),
	}, nil
}
