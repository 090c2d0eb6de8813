// Package messages implements RTPS message framing (spec.md §4.2): the fixed
// message header, each submessage kind's encode/decode, and the
// SequenceNumberSet/FragmentNumberSet bitmap codec.
package messages

import (
	"errors"

	"github.com/rtpsgo/rtpsgo/internal/rtps"
	"github.com/rtpsgo/rtpsgo/internal/xtypes"
)

// ErrMalformed marks a message or submessage that failed to parse or
// violates a framing invariant. Per spec.md §7, malformed wire input is
// dropped with a debug log, never propagated as a user error.
var ErrMalformed = errors.New("messages: malformed")

var rtpsMagic = [4]byte{'R', 'T', 'P', 'S'}

// Header is the fixed 20-byte RTPS message header.
type Header struct {
	Version     rtps.ProtocolVersion
	VendorId    rtps.VendorId
	GuidPrefix  rtps.GuidPrefix
}

// Encode writes the 20-byte header, always big-endian.
func (h Header) Encode() []byte {
	b := make([]byte, 20)
	copy(b[0:4], rtpsMagic[:])
	b[4], b[5] = h.Version.Major, h.Version.Minor
	b[6], b[7] = h.VendorId[0], h.VendorId[1]
	copy(b[8:20], h.GuidPrefix[:])
	return b
}

// DecodeHeader parses the 20-byte RTPS message header.
func DecodeHeader(b []byte) (Header, int, error) {
	if len(b) < 20 {
		return Header{}, 0, ErrMalformed
	}
	if b[0] != 'R' || b[1] != 'T' || b[2] != 'P' || b[3] != 'S' {
		return Header{}, 0, ErrMalformed
	}
	var h Header
	h.Version = rtps.ProtocolVersion{Major: b[4], Minor: b[5]}
	h.VendorId = rtps.VendorId{b[6], b[7]}
	copy(h.GuidPrefix[:], b[8:20])
	return h, 20, nil
}

// SubmessageKind identifies a submessage's wire kind byte.
type SubmessageKind byte

const (
	KindPad             SubmessageKind = 0x01
	KindAckNack         SubmessageKind = 0x06
	KindHeartbeat       SubmessageKind = 0x07
	KindGap             SubmessageKind = 0x08
	KindInfoTimestamp   SubmessageKind = 0x09
	KindInfoSource      SubmessageKind = 0x0c
	KindInfoReply       SubmessageKind = 0x0d
	KindInfoDestination SubmessageKind = 0x0e
	KindData            SubmessageKind = 0x15
	KindDataFrag        SubmessageKind = 0x16
	KindNackFrag        SubmessageKind = 0x12
	KindHeartbeatFrag   SubmessageKind = 0x13
)

// SubmessageFlags is the flags byte; bit 0 is always the endianness flag.
type SubmessageFlags byte

const flagEndianness = 0x01

// LittleEndian reports whether the endianness bit is set.
func (f SubmessageFlags) LittleEndian() bool { return f&flagEndianness != 0 }

func (f SubmessageFlags) has(bit byte) bool { return byte(f)&bit != 0 }

func encKind(littleEndian bool) xtypes.EncapsulationKind {
	if littleEndian {
		return xtypes.CDR_LE
	}
	return xtypes.CDR_BE
}

// SubmessageHeader is the 4-byte per-submessage header.
type SubmessageHeader struct {
	Kind               SubmessageKind
	Flags              SubmessageFlags
	OctetsToNextHeader uint16
}

// RawSubmessage is one parsed-but-undecoded submessage: header plus body
// bytes (not including the 4-byte header itself).
type RawSubmessage struct {
	Header SubmessageHeader
	Body   []byte
}

// SplitSubmessages walks an RTPS message body (everything after the 20-byte
// Header) into its constituent submessages. octets_to_next_header == 0 on
// the final submessage means "to end of datagram" (spec.md §4.2); on a Pad or
// InfoTimestamp it means an empty body.
func SplitSubmessages(body []byte) ([]RawSubmessage, error) {
	var out []RawSubmessage
	pos := 0
	for pos < len(body) {
		if len(body)-pos < 4 {
			return out, ErrMalformed
		}
		kind := SubmessageKind(body[pos])
		flags := SubmessageFlags(body[pos+1])
		var octets uint16
		if flags.LittleEndian() {
			octets = uint16(body[pos+2]) | uint16(body[pos+3])<<8
		} else {
			octets = uint16(body[pos+2])<<8 | uint16(body[pos+3])
		}
		pos += 4
		var n int
		if octets == 0 && kind != KindPad && kind != KindInfoTimestamp {
			n = len(body) - pos
		} else {
			n = int(octets)
		}
		if pos+n > len(body) {
			return out, ErrMalformed
		}
		out = append(out, RawSubmessage{
			Header: SubmessageHeader{Kind: kind, Flags: flags, OctetsToNextHeader: octets},
			Body:   body[pos : pos+n],
		})
		pos += n
	}
	return out, nil
}

// EncodeSubmessageHeader writes a submessage header for a body of
// bodyLen bytes, with bodyLen as octets_to_next_header.
func EncodeSubmessageHeader(kind SubmessageKind, flags SubmessageFlags, bodyLen int) []byte {
	b := make([]byte, 4)
	b[0] = byte(kind)
	b[1] = byte(flags)
	if flags.LittleEndian() {
		b[2] = byte(bodyLen)
		b[3] = byte(bodyLen >> 8)
	} else {
		b[2] = byte(bodyLen >> 8)
		b[3] = byte(bodyLen)
	}
	return b
}
