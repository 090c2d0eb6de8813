package messages

import (
	"github.com/rtpsgo/rtpsgo/internal/rtps"
	"github.com/rtpsgo/rtpsgo/internal/xtypes"
)

// Flag bits beyond endianness (bit 0), per submessage kind.
const (
	flagInlineQos          = 0x02
	flagData               = 0x04
	flagKey                = 0x08
	flagNonStandardPayload = 0x10

	flagFinal      = 0x02
	flagLiveliness = 0x04
)

func entityIdBytes(e rtps.EntityId) [4]byte { return e.Bytes() }

func writeEntityId(w *xtypes.Writer, e rtps.EntityId) {
	b := entityIdBytes(e)
	w.WriteByteArray(b[:])
}

func readEntityId(r *xtypes.Reader) (rtps.EntityId, error) {
	b, err := r.ReadByteArray(4)
	if err != nil {
		return rtps.EntityId{}, err
	}
	return rtps.EntityIdFromBytes([4]byte{b[0], b[1], b[2], b[3]}), nil
}

func writeSequenceNumber(w *xtypes.Writer, sn rtps.SequenceNumber) {
	w.WriteI32(int32(int64(sn) >> 32))
	w.WriteU32(uint32(int64(sn)))
}

func readSequenceNumber(r *xtypes.Reader) (rtps.SequenceNumber, error) {
	hi, err := r.ReadI32()
	if err != nil {
		return 0, err
	}
	lo, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	return rtps.SequenceNumber(int64(hi)<<32 | int64(lo)), nil
}

// --- Data ---

// Data carries one cache change, spec.md §4.2.
type Data struct {
	ReaderId     rtps.EntityId
	WriterId     rtps.EntityId
	WriterSN     rtps.SequenceNumber
	InlineQos    xtypes.ParameterList
	HasInlineQos bool
	HasPayload   bool
	KeyPayload   bool
	Payload      []byte // encapsulated (header + serialized sample), when HasPayload
}

// Encode serializes a Data submessage body (without the 4-byte submessage
// header) using the given endianness.
func (d Data) Encode(littleEndian bool) []byte {
	w := xtypes.NewWriter(encKind(littleEndian))
	w.WriteU16(0) // extraFlags
	w.WriteU16(4 + 4) // octetsToInlineQos: readerId+writerId follow immediately
	writeEntityId(w, d.ReaderId)
	writeEntityId(w, d.WriterId)
	writeSequenceNumber(w, d.WriterSN)
	if d.HasInlineQos {
		d.InlineQos.Encode(w)
	}
	if d.HasPayload {
		w.WriteByteArray(d.Payload)
	}
	return w.Bytes()
}

// Flags returns the submessage flags byte for this Data's content.
func (d Data) Flags(littleEndian bool) SubmessageFlags {
	var f byte
	if littleEndian {
		f |= flagEndianness
	}
	if d.HasInlineQos {
		f |= flagInlineQos
	}
	if d.HasPayload {
		f |= flagData
	}
	if d.KeyPayload {
		f |= flagKey
	}
	return SubmessageFlags(f)
}

// DecodeData parses a Data submessage body.
func DecodeData(body []byte, flags SubmessageFlags) (Data, error) {
	le := flags.LittleEndian()
	r := xtypes.NewReader(body, encKind(le))
	if _, err := r.ReadU16(); err != nil { // extraFlags
		return Data{}, ErrMalformed
	}
	octetsToInlineQos, err := r.ReadU16()
	if err != nil {
		return Data{}, ErrMalformed
	}
	readerId, err := readEntityId(r)
	if err != nil {
		return Data{}, ErrMalformed
	}
	writerId, err := readEntityId(r)
	if err != nil {
		return Data{}, ErrMalformed
	}
	sn, err := readSequenceNumber(r)
	if err != nil {
		return Data{}, ErrMalformed
	}
	_ = octetsToInlineQos
	d := Data{ReaderId: readerId, WriterId: writerId, WriterSN: sn}
	d.HasInlineQos = flags.has(flagInlineQos)
	if d.HasInlineQos {
		pl, err := xtypes.DecodeParameterList(r)
		if err != nil {
			return Data{}, ErrMalformed
		}
		d.InlineQos = pl
	}
	d.HasPayload = flags.has(flagData) || flags.has(flagKey)
	d.KeyPayload = flags.has(flagKey)
	if d.HasPayload {
		payload, err := r.ReadByteArray(r.Remaining())
		if err != nil {
			return Data{}, ErrMalformed
		}
		d.Payload = payload
	}
	return d, nil
}

// --- DataFrag ---

// DataFrag carries one fragment (or a run of fragments) of a large change.
type DataFrag struct {
	ReaderId             rtps.EntityId
	WriterId             rtps.EntityId
	WriterSN             rtps.SequenceNumber
	FragmentStartingNum  rtps.FragmentNumber
	FragmentsInSubmessage uint16
	FragmentSize         uint16
	DataSize             uint32
	HasInlineQos         bool
	InlineQos            xtypes.ParameterList
	KeyPayload           bool
	Payload              []byte
}

func (d DataFrag) Flags(littleEndian bool) SubmessageFlags {
	var f byte
	if littleEndian {
		f |= flagEndianness
	}
	if d.HasInlineQos {
		f |= flagInlineQos
	}
	if d.KeyPayload {
		f |= flagKey
	}
	return SubmessageFlags(f)
}

func (d DataFrag) Encode(littleEndian bool) []byte {
	w := xtypes.NewWriter(encKind(littleEndian))
	w.WriteU16(0)
	w.WriteU16(4 + 4)
	writeEntityId(w, d.ReaderId)
	writeEntityId(w, d.WriterId)
	writeSequenceNumber(w, d.WriterSN)
	w.WriteU32(uint32(d.FragmentStartingNum))
	w.WriteU16(d.FragmentsInSubmessage)
	w.WriteU16(d.FragmentSize)
	w.WriteU32(d.DataSize)
	if d.HasInlineQos {
		d.InlineQos.Encode(w)
	}
	w.WriteByteArray(d.Payload)
	return w.Bytes()
}

// DecodeDataFrag parses a DataFrag submessage body and validates the
// malformed-boundary condition of spec.md §8 (fragment_starting_num +
// fragments_in_submessage - 1 > ceil(data_size/fragment_size)).
func DecodeDataFrag(body []byte, flags SubmessageFlags) (DataFrag, error) {
	le := flags.LittleEndian()
	r := xtypes.NewReader(body, encKind(le))
	if _, err := r.ReadU16(); err != nil {
		return DataFrag{}, ErrMalformed
	}
	if _, err := r.ReadU16(); err != nil {
		return DataFrag{}, ErrMalformed
	}
	readerId, err := readEntityId(r)
	if err != nil {
		return DataFrag{}, ErrMalformed
	}
	writerId, err := readEntityId(r)
	if err != nil {
		return DataFrag{}, ErrMalformed
	}
	sn, err := readSequenceNumber(r)
	if err != nil {
		return DataFrag{}, ErrMalformed
	}
	startNum, err := r.ReadU32()
	if err != nil {
		return DataFrag{}, ErrMalformed
	}
	fragsInSub, err := r.ReadU16()
	if err != nil {
		return DataFrag{}, ErrMalformed
	}
	fragSize, err := r.ReadU16()
	if err != nil {
		return DataFrag{}, ErrMalformed
	}
	dataSize, err := r.ReadU32()
	if err != nil {
		return DataFrag{}, ErrMalformed
	}
	d := DataFrag{
		ReaderId: readerId, WriterId: writerId, WriterSN: sn,
		FragmentStartingNum: rtps.FragmentNumber(startNum), FragmentsInSubmessage: fragsInSub,
		FragmentSize: fragSize, DataSize: dataSize,
	}
	if fragSize == 0 {
		return DataFrag{}, ErrMalformed
	}
	totalFrags := (d.DataSize + uint32(fragSize) - 1) / uint32(fragSize)
	if uint32(d.FragmentStartingNum)+uint32(d.FragmentsInSubmessage)-1 > totalFrags {
		return DataFrag{}, ErrMalformed
	}
	d.HasInlineQos = flags.has(flagInlineQos)
	if d.HasInlineQos {
		pl, err := xtypes.DecodeParameterList(r)
		if err != nil {
			return DataFrag{}, ErrMalformed
		}
		d.InlineQos = pl
	}
	d.KeyPayload = flags.has(flagKey)
	payload, err := r.ReadByteArray(r.Remaining())
	if err != nil {
		return DataFrag{}, ErrMalformed
	}
	d.Payload = payload
	return d, nil
}

// --- Heartbeat ---

type Heartbeat struct {
	ReaderId rtps.EntityId
	WriterId rtps.EntityId
	FirstSN  rtps.SequenceNumber
	LastSN   rtps.SequenceNumber
	Count    int32
	Final    bool
	Liveliness bool
}

func (h Heartbeat) Flags(littleEndian bool) SubmessageFlags {
	var f byte
	if littleEndian {
		f |= flagEndianness
	}
	if h.Final {
		f |= flagFinal
	}
	if h.Liveliness {
		f |= flagLiveliness
	}
	return SubmessageFlags(f)
}

func (h Heartbeat) Encode(littleEndian bool) []byte {
	w := xtypes.NewWriter(encKind(littleEndian))
	writeEntityId(w, h.ReaderId)
	writeEntityId(w, h.WriterId)
	writeSequenceNumber(w, h.FirstSN)
	writeSequenceNumber(w, h.LastSN)
	w.WriteI32(h.Count)
	return w.Bytes()
}

// DecodeHeartbeat parses a Heartbeat submessage body. Per spec.md §8, a
// Heartbeat with first_sn > last_sn is malformed and dropped.
func DecodeHeartbeat(body []byte, flags SubmessageFlags) (Heartbeat, error) {
	r := xtypes.NewReader(body, encKind(flags.LittleEndian()))
	readerId, err := readEntityId(r)
	if err != nil {
		return Heartbeat{}, ErrMalformed
	}
	writerId, err := readEntityId(r)
	if err != nil {
		return Heartbeat{}, ErrMalformed
	}
	firstSN, err := readSequenceNumber(r)
	if err != nil {
		return Heartbeat{}, ErrMalformed
	}
	lastSN, err := readSequenceNumber(r)
	if err != nil {
		return Heartbeat{}, ErrMalformed
	}
	count, err := r.ReadI32()
	if err != nil {
		return Heartbeat{}, ErrMalformed
	}
	if firstSN > lastSN {
		return Heartbeat{}, ErrMalformed
	}
	return Heartbeat{
		ReaderId: readerId, WriterId: writerId, FirstSN: firstSN, LastSN: lastSN, Count: count,
		Final: flags.has(flagFinal), Liveliness: flags.has(flagLiveliness),
	}, nil
}

// --- HeartbeatFrag ---

type HeartbeatFrag struct {
	ReaderId        rtps.EntityId
	WriterId        rtps.EntityId
	WriterSN        rtps.SequenceNumber
	LastFragmentNum rtps.FragmentNumber
	Count           int32
}

func (h HeartbeatFrag) Flags(littleEndian bool) SubmessageFlags {
	if littleEndian {
		return SubmessageFlags(flagEndianness)
	}
	return 0
}

func (h HeartbeatFrag) Encode(littleEndian bool) []byte {
	w := xtypes.NewWriter(encKind(littleEndian))
	writeEntityId(w, h.ReaderId)
	writeEntityId(w, h.WriterId)
	writeSequenceNumber(w, h.WriterSN)
	w.WriteU32(uint32(h.LastFragmentNum))
	w.WriteI32(h.Count)
	return w.Bytes()
}

func DecodeHeartbeatFrag(body []byte, flags SubmessageFlags) (HeartbeatFrag, error) {
	r := xtypes.NewReader(body, encKind(flags.LittleEndian()))
	readerId, err := readEntityId(r)
	if err != nil {
		return HeartbeatFrag{}, ErrMalformed
	}
	writerId, err := readEntityId(r)
	if err != nil {
		return HeartbeatFrag{}, ErrMalformed
	}
	sn, err := readSequenceNumber(r)
	if err != nil {
		return HeartbeatFrag{}, ErrMalformed
	}
	lastFrag, err := r.ReadU32()
	if err != nil {
		return HeartbeatFrag{}, ErrMalformed
	}
	count, err := r.ReadI32()
	if err != nil {
		return HeartbeatFrag{}, ErrMalformed
	}
	return HeartbeatFrag{ReaderId: readerId, WriterId: writerId, WriterSN: sn, LastFragmentNum: rtps.FragmentNumber(lastFrag), Count: count}, nil
}

// --- AckNack ---

type AckNack struct {
	ReaderId      rtps.EntityId
	WriterId      rtps.EntityId
	ReaderSNState SequenceNumberSet
	Count         int32
	Final         bool
}

func (a AckNack) Flags(littleEndian bool) SubmessageFlags {
	var f byte
	if littleEndian {
		f |= flagEndianness
	}
	if a.Final {
		f |= flagFinal
	}
	return SubmessageFlags(f)
}

func (a AckNack) Encode(littleEndian bool) []byte {
	w := xtypes.NewWriter(encKind(littleEndian))
	writeEntityId(w, a.ReaderId)
	writeEntityId(w, a.WriterId)
	a.ReaderSNState.Encode(w)
	w.WriteI32(a.Count)
	return w.Bytes()
}

func DecodeAckNack(body []byte, flags SubmessageFlags) (AckNack, error) {
	r := xtypes.NewReader(body, encKind(flags.LittleEndian()))
	readerId, err := readEntityId(r)
	if err != nil {
		return AckNack{}, ErrMalformed
	}
	writerId, err := readEntityId(r)
	if err != nil {
		return AckNack{}, ErrMalformed
	}
	set, err := DecodeSequenceNumberSet(r)
	if err != nil {
		return AckNack{}, ErrMalformed
	}
	count, err := r.ReadI32()
	if err != nil {
		return AckNack{}, ErrMalformed
	}
	return AckNack{ReaderId: readerId, WriterId: writerId, ReaderSNState: set, Count: count, Final: flags.has(flagFinal)}, nil
}

// --- NackFrag ---

type NackFrag struct {
	ReaderId            rtps.EntityId
	WriterId            rtps.EntityId
	WriterSN            rtps.SequenceNumber
	FragmentNumberState FragmentNumberSet
	Count               int32
}

func (n NackFrag) Flags(littleEndian bool) SubmessageFlags {
	if littleEndian {
		return SubmessageFlags(flagEndianness)
	}
	return 0
}

func (n NackFrag) Encode(littleEndian bool) []byte {
	w := xtypes.NewWriter(encKind(littleEndian))
	writeEntityId(w, n.ReaderId)
	writeEntityId(w, n.WriterId)
	writeSequenceNumber(w, n.WriterSN)
	n.FragmentNumberState.Encode(w)
	w.WriteI32(n.Count)
	return w.Bytes()
}

func DecodeNackFrag(body []byte, flags SubmessageFlags) (NackFrag, error) {
	r := xtypes.NewReader(body, encKind(flags.LittleEndian()))
	readerId, err := readEntityId(r)
	if err != nil {
		return NackFrag{}, ErrMalformed
	}
	writerId, err := readEntityId(r)
	if err != nil {
		return NackFrag{}, ErrMalformed
	}
	sn, err := readSequenceNumber(r)
	if err != nil {
		return NackFrag{}, ErrMalformed
	}
	set, err := DecodeFragmentNumberSet(r)
	if err != nil {
		return NackFrag{}, ErrMalformed
	}
	count, err := r.ReadI32()
	if err != nil {
		return NackFrag{}, ErrMalformed
	}
	return NackFrag{ReaderId: readerId, WriterId: writerId, WriterSN: sn, FragmentNumberState: set, Count: count}, nil
}

// --- Gap ---

type Gap struct {
	ReaderId rtps.EntityId
	WriterId rtps.EntityId
	GapStart rtps.SequenceNumber
	GapList  SequenceNumberSet
}

func (g Gap) Flags(littleEndian bool) SubmessageFlags {
	if littleEndian {
		return SubmessageFlags(flagEndianness)
	}
	return 0
}

func (g Gap) Encode(littleEndian bool) []byte {
	w := xtypes.NewWriter(encKind(littleEndian))
	writeEntityId(w, g.ReaderId)
	writeEntityId(w, g.WriterId)
	writeSequenceNumber(w, g.GapStart)
	g.GapList.Encode(w)
	return w.Bytes()
}

func DecodeGap(body []byte, flags SubmessageFlags) (Gap, error) {
	r := xtypes.NewReader(body, encKind(flags.LittleEndian()))
	readerId, err := readEntityId(r)
	if err != nil {
		return Gap{}, ErrMalformed
	}
	writerId, err := readEntityId(r)
	if err != nil {
		return Gap{}, ErrMalformed
	}
	start, err := readSequenceNumber(r)
	if err != nil {
		return Gap{}, ErrMalformed
	}
	list, err := DecodeSequenceNumberSet(r)
	if err != nil {
		return Gap{}, ErrMalformed
	}
	return Gap{ReaderId: readerId, WriterId: writerId, GapStart: start, GapList: list}, nil
}

// --- InfoTimestamp / InfoDestination / InfoSource / InfoReply / Pad ---

type InfoTimestamp struct {
	Invalidate bool // when true, no timestamp follows (flag bit 1)
	Seconds    int32
	Fraction   uint32
}

func (t InfoTimestamp) Flags(littleEndian bool) SubmessageFlags {
	var f byte
	if littleEndian {
		f |= flagEndianness
	}
	if t.Invalidate {
		f |= 0x02
	}
	return SubmessageFlags(f)
}

func (t InfoTimestamp) Encode(littleEndian bool) []byte {
	if t.Invalidate {
		return nil
	}
	w := xtypes.NewWriter(encKind(littleEndian))
	w.WriteI32(t.Seconds)
	w.WriteU32(t.Fraction)
	return w.Bytes()
}

func DecodeInfoTimestamp(body []byte, flags SubmessageFlags) (InfoTimestamp, error) {
	if flags.has(0x02) {
		return InfoTimestamp{Invalidate: true}, nil
	}
	r := xtypes.NewReader(body, encKind(flags.LittleEndian()))
	sec, err := r.ReadI32()
	if err != nil {
		return InfoTimestamp{}, ErrMalformed
	}
	frac, err := r.ReadU32()
	if err != nil {
		return InfoTimestamp{}, ErrMalformed
	}
	return InfoTimestamp{Seconds: sec, Fraction: frac}, nil
}

type InfoDestination struct {
	GuidPrefix rtps.GuidPrefix
}

func (d InfoDestination) Flags(littleEndian bool) SubmessageFlags {
	if littleEndian {
		return SubmessageFlags(flagEndianness)
	}
	return 0
}

func (d InfoDestination) Encode(littleEndian bool) []byte {
	w := xtypes.NewWriter(encKind(littleEndian))
	w.WriteByteArray(d.GuidPrefix[:])
	return w.Bytes()
}

func DecodeInfoDestination(body []byte, flags SubmessageFlags) (InfoDestination, error) {
	r := xtypes.NewReader(body, encKind(flags.LittleEndian()))
	b, err := r.ReadByteArray(12)
	if err != nil {
		return InfoDestination{}, ErrMalformed
	}
	var gp rtps.GuidPrefix
	copy(gp[:], b)
	return InfoDestination{GuidPrefix: gp}, nil
}

type InfoSource struct {
	Version    rtps.ProtocolVersion
	VendorId   rtps.VendorId
	GuidPrefix rtps.GuidPrefix
}

func (s InfoSource) Flags(littleEndian bool) SubmessageFlags {
	if littleEndian {
		return SubmessageFlags(flagEndianness)
	}
	return 0
}

func (s InfoSource) Encode(littleEndian bool) []byte {
	w := xtypes.NewWriter(encKind(littleEndian))
	w.WriteU32(0) // unused
	w.WriteU8(s.Version.Major)
	w.WriteU8(s.Version.Minor)
	w.WriteByteArray(s.VendorId[:])
	w.WriteByteArray(s.GuidPrefix[:])
	return w.Bytes()
}

func DecodeInfoSource(body []byte, flags SubmessageFlags) (InfoSource, error) {
	r := xtypes.NewReader(body, encKind(flags.LittleEndian()))
	if _, err := r.ReadU32(); err != nil {
		return InfoSource{}, ErrMalformed
	}
	maj, err := r.ReadU8()
	if err != nil {
		return InfoSource{}, ErrMalformed
	}
	min, err := r.ReadU8()
	if err != nil {
		return InfoSource{}, ErrMalformed
	}
	vb, err := r.ReadByteArray(2)
	if err != nil {
		return InfoSource{}, ErrMalformed
	}
	gb, err := r.ReadByteArray(12)
	if err != nil {
		return InfoSource{}, ErrMalformed
	}
	var gp rtps.GuidPrefix
	copy(gp[:], gb)
	return InfoSource{Version: rtps.ProtocolVersion{Major: maj, Minor: min}, VendorId: rtps.VendorId{vb[0], vb[1]}, GuidPrefix: gp}, nil
}

type InfoReply struct {
	UnicastLocators   []rtps.Locator
	MulticastLocators []rtps.Locator
	HasMulticast      bool
}

func (r InfoReply) Flags(littleEndian bool) SubmessageFlags {
	var f byte
	if littleEndian {
		f |= flagEndianness
	}
	if r.HasMulticast {
		f |= 0x02
	}
	return SubmessageFlags(f)
}

func writeLocator(w *xtypes.Writer, l rtps.Locator) {
	w.WriteI32(int32(l.Kind))
	w.WriteU32(l.Port)
	w.WriteByteArray(l.Address[:])
}

func readLocator(r *xtypes.Reader) (rtps.Locator, error) {
	kind, err := r.ReadI32()
	if err != nil {
		return rtps.Locator{}, err
	}
	port, err := r.ReadU32()
	if err != nil {
		return rtps.Locator{}, err
	}
	addr, err := r.ReadByteArray(16)
	if err != nil {
		return rtps.Locator{}, err
	}
	l := rtps.Locator{Kind: rtps.LocatorKind(kind), Port: port}
	copy(l.Address[:], addr)
	return l, nil
}

func (ir InfoReply) Encode(littleEndian bool) []byte {
	w := xtypes.NewWriter(encKind(littleEndian))
	if err := w.WriteSequenceLen(len(ir.UnicastLocators)); err != nil {
		return nil
	}
	for _, l := range ir.UnicastLocators {
		writeLocator(w, l)
	}
	if ir.HasMulticast {
		if err := w.WriteSequenceLen(len(ir.MulticastLocators)); err != nil {
			return nil
		}
		for _, l := range ir.MulticastLocators {
			writeLocator(w, l)
		}
	}
	return w.Bytes()
}

func DecodeInfoReply(body []byte, flags SubmessageFlags) (InfoReply, error) {
	r := xtypes.NewReader(body, encKind(flags.LittleEndian()))
	n, err := r.ReadSequenceLen()
	if err != nil {
		return InfoReply{}, ErrMalformed
	}
	ir := InfoReply{}
	for i := 0; i < n; i++ {
		l, err := readLocator(r)
		if err != nil {
			return InfoReply{}, ErrMalformed
		}
		ir.UnicastLocators = append(ir.UnicastLocators, l)
	}
	ir.HasMulticast = flags.has(0x02)
	if ir.HasMulticast {
		m, err := r.ReadSequenceLen()
		if err != nil {
			return InfoReply{}, ErrMalformed
		}
		for i := 0; i < m; i++ {
			l, err := readLocator(r)
			if err != nil {
				return InfoReply{}, ErrMalformed
			}
			ir.MulticastLocators = append(ir.MulticastLocators, l)
		}
	}
	return ir, nil
}

// Pad carries no data; it is alignment filler (spec.md §4.2).
type Pad struct{}

func (Pad) Flags(littleEndian bool) SubmessageFlags {
	if littleEndian {
		return SubmessageFlags(flagEndianness)
	}
	return 0
}

func (Pad) Encode(bool) []byte { return nil }
