package discovery

import (
	"time"

	"github.com/rtpsgo/rtpsgo/internal/qos"
	"github.com/rtpsgo/rtpsgo/internal/rtps"
	"github.com/rtpsgo/rtpsgo/internal/xtypes"
)

// PID assignments for the SPDP/SEDP payloads this module puts on the wire,
// spec.md §4.5. Locator and lease-duration PIDs match the RTPS 2.4 table
// (9.14); PidQosCompat is a vendor-range PID (0x8000+) carrying only the
// subset of qos.Qos that MatchReaderAgainstWriter/MatchWriterAgainstReader
// and PartitionsMatch actually compare, not a full per-policy PL expansion.
const (
	PidDomainId         uint16 = 0x000f
	PidDomainTag        uint16 = 0x4014
	PidLeaseDuration    uint16 = 0x0002
	PidMetaUnicastLoc   uint16 = 0x0032
	PidMetaMulticastLoc uint16 = 0x0033
	PidDefaultUnicastLoc uint16 = 0x0031
	PidDefaultMulticastLoc uint16 = 0x0048
	PidTopicName        uint16 = 0x0005
	PidTypeName         uint16 = 0x0007
	PidEndpointGuid     uint16 = 0x005a
	PidQosCompat        uint16 = 0x8001
)

func writeLocator(pl *xtypes.ParameterList, pid uint16, l rtps.Locator) {
	w := xtypes.NewWriter(xtypes.CDR_BE)
	w.WriteI32(int32(l.Kind))
	w.WriteU32(l.Port)
	w.WriteByteArray(l.Address[:])
	pl.Add(pid, w.Bytes())
}

func readLocators(pl xtypes.ParameterList, pid uint16) []rtps.Locator {
	var out []rtps.Locator
	for _, body := range pl.GetAll(pid) {
		r := xtypes.NewReader(body, xtypes.CDR_BE)
		kind, err := r.ReadI32()
		if err != nil {
			continue
		}
		port, err := r.ReadU32()
		if err != nil {
			continue
		}
		addr, err := r.ReadByteArray(16)
		if err != nil {
			continue
		}
		var l rtps.Locator
		l.Kind = rtps.LocatorKind(kind)
		l.Port = port
		copy(l.Address[:], addr)
		out = append(out, l)
	}
	return out
}

// encodeQosCompat packs the requested/offered-compatibility-relevant subset
// of q, spec.md §4.6.
func encodeQosCompat(q qos.Qos) []byte {
	w := xtypes.NewWriter(xtypes.CDR_BE)
	w.WriteI32(int32(q.Durability.Kind))
	w.WriteI64(int64(q.Deadline.Period))
	w.WriteI64(int64(q.LatencyBudget.Duration))
	w.WriteI32(int32(q.Liveliness.Kind))
	w.WriteI64(int64(q.Liveliness.LeaseDuration))
	w.WriteI32(int32(q.Reliability.Kind))
	w.WriteI64(int64(q.Reliability.MaxBlockingTime))
	w.WriteI32(int32(q.DestinationOrder.Kind))
	w.WriteI32(int32(q.Ownership.Kind))
	_ = w.WriteSequenceLen(len(q.Partition.Names))
	for _, n := range q.Partition.Names {
		_ = w.WriteString(n)
	}
	return w.Bytes()
}

func decodeQosCompat(body []byte) qos.Qos {
	q := qos.Default()
	r := xtypes.NewReader(body, xtypes.CDR_BE)
	if v, err := r.ReadI32(); err == nil {
		q.Durability.Kind = qos.DurabilityKind(v)
	}
	if v, err := r.ReadI64(); err == nil {
		q.Deadline.Period = time.Duration(v)
	}
	if v, err := r.ReadI64(); err == nil {
		q.LatencyBudget.Duration = time.Duration(v)
	}
	if v, err := r.ReadI32(); err == nil {
		q.Liveliness.Kind = qos.LivelinessKind(v)
	}
	if v, err := r.ReadI64(); err == nil {
		q.Liveliness.LeaseDuration = time.Duration(v)
	}
	if v, err := r.ReadI32(); err == nil {
		q.Reliability.Kind = qos.ReliabilityKind(v)
	}
	if v, err := r.ReadI64(); err == nil {
		q.Reliability.MaxBlockingTime = time.Duration(v)
	}
	if v, err := r.ReadI32(); err == nil {
		q.DestinationOrder.Kind = qos.DestinationOrderKind(v)
	}
	if v, err := r.ReadI32(); err == nil {
		q.Ownership.Kind = qos.OwnershipKind(v)
	}
	if n, err := r.ReadSequenceLen(); err == nil {
		names := make([]string, 0, n)
		for i := 0; i < n; i++ {
			s, err := r.ReadString()
			if err != nil {
				break
			}
			names = append(names, s)
		}
		q.Partition.Names = names
	}
	return q
}

// EncodeParticipantData renders data's SpdpDiscoveredParticipantData payload
// as a PL CDR parameter list, spec.md §4.5.1.
func EncodeParticipantData(data ParticipantData) []byte {
	var pl xtypes.ParameterList
	w := xtypes.NewWriter(xtypes.CDR_BE)
	w.WriteI32(data.DomainId)
	pl.Add(PidDomainId, w.Bytes())

	w = xtypes.NewWriter(xtypes.CDR_BE)
	_ = w.WriteString(data.DomainTag)
	pl.Add(PidDomainTag, w.Bytes())

	w = xtypes.NewWriter(xtypes.CDR_BE)
	w.WriteI64(int64(data.LeaseDuration))
	pl.Add(PidLeaseDuration, w.Bytes())

	for _, l := range data.MetatrafficUnicastLocators {
		writeLocator(&pl, PidMetaUnicastLoc, l)
	}
	for _, l := range data.MetatrafficMulticastLocators {
		writeLocator(&pl, PidMetaMulticastLoc, l)
	}
	for _, l := range data.DefaultUnicastLocators {
		writeLocator(&pl, PidDefaultUnicastLoc, l)
	}
	for _, l := range data.DefaultMulticastLocators {
		writeLocator(&pl, PidDefaultMulticastLoc, l)
	}

	out := xtypes.NewWriter(xtypes.CDR_BE)
	pl.Encode(out)
	return out.Bytes()
}

// DecodeParticipantData parses a payload produced by EncodeParticipantData.
// remotePrefix is supplied by the caller from the enclosing RTPS Header,
// since SPDP data itself carries no guid prefix parameter in this module's
// encoding (spec.md §4.5.1).
func DecodeParticipantData(payload []byte, remotePrefix rtps.GuidPrefix, domainTagDefault string) (ParticipantData, error) {
	r := xtypes.NewReader(payload, xtypes.CDR_BE)
	pl, err := xtypes.DecodeParameterList(r)
	if err != nil {
		return ParticipantData{}, err
	}
	data := ParticipantData{GuidPrefix: remotePrefix, DomainTag: domainTagDefault}
	if b, ok := pl.Get(PidDomainId); ok {
		rr := xtypes.NewReader(b, xtypes.CDR_BE)
		if v, err := rr.ReadI32(); err == nil {
			data.DomainId = v
		}
	}
	if b, ok := pl.Get(PidDomainTag); ok {
		rr := xtypes.NewReader(b, xtypes.CDR_BE)
		if s, err := rr.ReadString(); err == nil {
			data.DomainTag = s
		}
	}
	if b, ok := pl.Get(PidLeaseDuration); ok {
		rr := xtypes.NewReader(b, xtypes.CDR_BE)
		if v, err := rr.ReadI64(); err == nil {
			data.LeaseDuration = time.Duration(v)
		}
	}
	data.MetatrafficUnicastLocators = readLocators(pl, PidMetaUnicastLoc)
	data.MetatrafficMulticastLocators = readLocators(pl, PidMetaMulticastLoc)
	data.DefaultUnicastLocators = readLocators(pl, PidDefaultUnicastLoc)
	data.DefaultMulticastLocators = readLocators(pl, PidDefaultMulticastLoc)
	return data, nil
}

// EncodeEndpointData renders a DiscoveredWriterData/DiscoveredReaderData
// payload, spec.md §4.5.2. PID_ENDPOINT_GUID carries only the endpoint's
// 4-byte EntityId; the GuidPrefix is not encoded and must be read from the
// enclosing message Header.
func EncodeEndpointData(data EndpointData) []byte {
	var pl xtypes.ParameterList
	w := xtypes.NewWriter(xtypes.CDR_BE)
	w.WriteByteArray(data.Guid.Entity.Bytes()[:])
	pl.Add(PidEndpointGuid, w.Bytes())

	w = xtypes.NewWriter(xtypes.CDR_BE)
	_ = w.WriteString(data.TopicName)
	pl.Add(PidTopicName, w.Bytes())

	w = xtypes.NewWriter(xtypes.CDR_BE)
	_ = w.WriteString(data.TypeName)
	pl.Add(PidTypeName, w.Bytes())

	pl.Add(PidQosCompat, encodeQosCompat(data.Qos))

	for _, l := range data.UnicastLocators {
		writeLocator(&pl, PidDefaultUnicastLoc, l)
	}
	for _, l := range data.MulticastLocators {
		writeLocator(&pl, PidDefaultMulticastLoc, l)
	}

	out := xtypes.NewWriter(xtypes.CDR_BE)
	pl.Encode(out)
	return out.Bytes()
}

// DecodeEndpointData parses a payload produced by EncodeEndpointData.
// remotePrefix combines with the encoded EntityId to recover the endpoint's
// full Guid.
func DecodeEndpointData(payload []byte, remotePrefix rtps.GuidPrefix) (EndpointData, error) {
	r := xtypes.NewReader(payload, xtypes.CDR_BE)
	pl, err := xtypes.DecodeParameterList(r)
	if err != nil {
		return EndpointData{}, err
	}
	var data EndpointData
	if b, ok := pl.Get(PidEndpointGuid); ok && len(b) >= 4 {
		var eb [4]byte
		copy(eb[:], b)
		data.Guid = rtps.Guid{Prefix: remotePrefix, Entity: rtps.EntityIdFromBytes(eb)}
	}
	if b, ok := pl.Get(PidTopicName); ok {
		rr := xtypes.NewReader(b, xtypes.CDR_BE)
		if s, err := rr.ReadString(); err == nil {
			data.TopicName = s
		}
	}
	if b, ok := pl.Get(PidTypeName); ok {
		rr := xtypes.NewReader(b, xtypes.CDR_BE)
		if s, err := rr.ReadString(); err == nil {
			data.TypeName = s
		}
	}
	if b, ok := pl.Get(PidQosCompat); ok {
		data.Qos = decodeQosCompat(b)
	} else {
		data.Qos = qos.Default()
	}
	data.UnicastLocators = readLocators(pl, PidDefaultUnicastLoc)
	data.MulticastLocators = readLocators(pl, PidDefaultMulticastLoc)
	return data, nil
}
