// Package rtps holds the wire-identifier types shared by every other
// component: GuidPrefix, EntityId, Guid, SequenceNumber, FragmentNumber,
// Locator, ProtocolVersion and VendorId (spec.md §3).
package rtps

import (
	"crypto/md5" //nolint:gosec // DDS-XTypes mandates MD5 for instance-handle derivation, not security.
	"fmt"

	"github.com/google/uuid"
)

// GuidPrefix uniquely identifies a participant. 12 bytes, per spec.md §3.
type GuidPrefix [12]byte

func (g GuidPrefix) String() string { return fmt.Sprintf("%x", [12]byte(g)) }

// EntityKind is the low byte of an EntityId, distinguishing built-in vs
// user-defined, reader vs writer, with-key vs no-key, group vs endpoint.
type EntityKind byte

// Built-in entity kinds (RTPS 2.4 table 9.1).
const (
	EntityKindUnknown                 EntityKind = 0x00
	EntityKindBuiltinParticipant       EntityKind = 0xc1
	EntityKindUserWriterWithKey        EntityKind = 0x02
	EntityKindUserWriterNoKey          EntityKind = 0x03
	EntityKindUserReaderWithKey        EntityKind = 0x07
	EntityKindUserReaderNoKey          EntityKind = 0x04
	EntityKindBuiltinWriterWithKey     EntityKind = 0xc2
	EntityKindBuiltinWriterNoKey       EntityKind = 0xc3
	EntityKindBuiltinReaderWithKey     EntityKind = 0xc7
	EntityKindBuiltinReaderNoKey       EntityKind = 0xc4
)

// IsWriter reports whether k names a writer-role entity (built-in or user,
// with-key or no-key).
func (k EntityKind) IsWriter() bool {
	switch k {
	case EntityKindUserWriterWithKey, EntityKindUserWriterNoKey,
		EntityKindBuiltinWriterWithKey, EntityKindBuiltinWriterNoKey:
		return true
	default:
		return false
	}
}

// EntityId is a 4-byte identifier: 3-byte key + 1-byte kind.
type EntityId struct {
	Key  [3]byte
	Kind EntityKind
}

func (e EntityId) Bytes() [4]byte {
	return [4]byte{e.Key[0], e.Key[1], e.Key[2], byte(e.Kind)}
}

func (e EntityId) String() string {
	return fmt.Sprintf("%x.%02x", e.Key, byte(e.Kind))
}

// EntityIdFromBytes parses a wire-order 4-byte entity id.
func EntityIdFromBytes(b [4]byte) EntityId {
	return EntityId{Key: [3]byte{b[0], b[1], b[2]}, Kind: EntityKind(b[3])}
}

// Fixed built-in endpoint entity ids, spec.md §6.
var (
	EntityIdSPDPBuiltinParticipantWriter = EntityId{Key: [3]byte{0x00, 0x01, 0x00}, Kind: EntityKindBuiltinWriterWithKey}
	EntityIdSPDPBuiltinParticipantReader = EntityId{Key: [3]byte{0x00, 0x01, 0x00}, Kind: EntityKindBuiltinReaderWithKey}
	EntityIdSEDPBuiltinPublicationsWriter  = EntityId{Key: [3]byte{0x00, 0x00, 0x03}, Kind: EntityKindBuiltinWriterWithKey}
	EntityIdSEDPBuiltinPublicationsReader  = EntityId{Key: [3]byte{0x00, 0x00, 0x03}, Kind: EntityKindBuiltinReaderWithKey}
	EntityIdSEDPBuiltinSubscriptionsWriter = EntityId{Key: [3]byte{0x00, 0x00, 0x04}, Kind: EntityKindBuiltinWriterWithKey}
	EntityIdSEDPBuiltinSubscriptionsReader = EntityId{Key: [3]byte{0x00, 0x00, 0x04}, Kind: EntityKindBuiltinReaderWithKey}
	EntityIdSEDPBuiltinTopicsWriter        = EntityId{Key: [3]byte{0x00, 0x00, 0x02}, Kind: EntityKindBuiltinWriterWithKey}
	EntityIdSEDPBuiltinTopicsReader        = EntityId{Key: [3]byte{0x00, 0x00, 0x02}, Kind: EntityKindBuiltinReaderWithKey}
	EntityIdParticipant                    = EntityId{Key: [3]byte{0x00, 0x00, 0x00}, Kind: EntityKindBuiltinParticipant}
)

// Guid globally identifies an RTPS entity.
type Guid struct {
	Prefix GuidPrefix
	Entity EntityId
}

func (g Guid) String() string { return g.Prefix.String() + ":" + g.Entity.String() }

// InstanceHandle is a 16-byte value, derivable from a Guid or from a sample's
// key fields. Represented as uuid.UUID: a real ecosystem type rather than a
// bare [16]byte, so formatting/parsing/comparison follows a well-known
// library.
type InstanceHandle uuid.UUID

func (h InstanceHandle) String() string { return uuid.UUID(h).String() }

// Bytes returns the handle's 16 raw bytes, for carrying it inline on the
// wire (PID_KEY_HASH).
func (h InstanceHandle) Bytes() [16]byte { return [16]byte(uuid.UUID(h)) }

// InstanceHandleFromBytes reconstructs a handle from its 16 raw bytes, the
// inverse of Bytes.
func InstanceHandleFromBytes(b [16]byte) InstanceHandle { return InstanceHandle(uuid.UUID(b)) }

// InstanceHandleNil is the zero/unset handle.
var InstanceHandleNil InstanceHandle

// InstanceHandleFromGuid derives a handle directly from a Guid (used for
// built-in-topic instances, whose key *is* the entity's Guid).
func InstanceHandleFromGuid(g Guid) InstanceHandle {
	var b [16]byte
	copy(b[:12], g.Prefix[:])
	eb := g.Entity.Bytes()
	copy(b[12:], eb[:])
	return InstanceHandle(uuid.UUID(b))
}

// InstanceHandleFromKey derives a handle from a sample's serialized key
// fields via MD5, per the DDS-XTypes compute_instance_handle algorithm.
func InstanceHandleFromKey(serializedKey []byte) InstanceHandle {
	sum := md5.Sum(serializedKey) //nolint:gosec
	return InstanceHandle(uuid.UUID(sum))
}

// SequenceNumber is a signed 64-bit, monotone-per-writer sequence number.
type SequenceNumber int64

// SequenceNumberUnknown is the RTPS sentinel for "no sequence number".
const SequenceNumberUnknown SequenceNumber = -1

// FragmentNumber is an unsigned 32-bit fragment index, 1-based.
type FragmentNumber uint32

// LocatorKind distinguishes transport families.
type LocatorKind int32

const (
	LocatorKindInvalid LocatorKind = -1
	LocatorKindUDPv4    LocatorKind = 1
	LocatorKindUDPv6    LocatorKind = 2
)

// Locator is a transport address triple.
type Locator struct {
	Kind    LocatorKind
	Port    uint32
	Address [16]byte
}

func (l Locator) String() string {
	if l.Kind == LocatorKindUDPv4 {
		return fmt.Sprintf("%d.%d.%d.%d:%d", l.Address[12], l.Address[13], l.Address[14], l.Address[15], l.Port)
	}
	return fmt.Sprintf("%x:%d", l.Address, l.Port)
}

// LocatorFromUDPv4 builds a UDPv4 Locator from a 4-byte IPv4 address and port.
func LocatorFromUDPv4(ip [4]byte, port uint32) Locator {
	var l Locator
	l.Kind = LocatorKindUDPv4
	l.Port = port
	copy(l.Address[12:], ip[:])
	return l
}

// ProtocolVersion is the RTPS protocol version, 2.4 by default.
type ProtocolVersion struct{ Major, Minor byte }

// ProtocolVersion24 is the version this module implements.
var ProtocolVersion24 = ProtocolVersion{Major: 2, Minor: 4}

// VendorId identifies the implementation vendor on the wire.
type VendorId [2]byte

// VendorIdRTPSGo is this implementation's (unregistered, example) vendor id.
var VendorIdRTPSGo = VendorId{0x01, 0xff}
