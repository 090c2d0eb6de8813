package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtpsgo/rtpsgo/internal/rtps"
	"github.com/rtpsgo/rtpsgo/internal/xtypes"
)

func testGuid() (rtps.EntityId, rtps.EntityId) {
	return rtps.EntityIdParticipant, rtps.EntityIdSEDPBuiltinPublicationsWriter
}

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		Version:    rtps.ProtocolVersion24,
		VendorId:   rtps.VendorIdRTPSGo,
		GuidPrefix: rtps.GuidPrefix{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
	}
	b := h.Encode()
	require.Len(t, b, 20)
	got, n, err := DecodeHeader(b)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
	assert.Equal(t, h, got)
}

func TestDecodeHeaderRejectsBadMagic(t *testing.T) {
	b := make([]byte, 20)
	copy(b, "XXXX")
	_, _, err := DecodeHeader(b)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestSplitSubmessagesToEndOfDatagram(t *testing.T) {
	body := []byte{
		byte(KindPad), 0x00, 0x00, 0x00, // zero-length Pad
		byte(KindHeartbeat), 0x01, 0x00, 0x00, // octets=0 -> to end of datagram
		0xAA, 0xBB, 0xCC, 0xDD,
	}
	subs, err := SplitSubmessages(body)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, KindPad, subs[0].Header.Kind)
	assert.Equal(t, KindHeartbeat, subs[1].Header.Kind)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD}, subs[1].Body)
}

func TestDataRoundTrip(t *testing.T) {
	readerId, writerId := testGuid()
	for _, le := range []bool{true, false} {
		d := Data{
			ReaderId: readerId, WriterId: writerId, WriterSN: 42,
			HasPayload: true, Payload: []byte{0x00, 0x01, 0, 0, 9, 9, 9, 9},
		}
		body := d.Encode(le)
		got, err := DecodeData(body, d.Flags(le))
		require.NoError(t, err)
		assert.Equal(t, d.ReaderId, got.ReaderId)
		assert.Equal(t, d.WriterId, got.WriterId)
		assert.Equal(t, d.WriterSN, got.WriterSN)
		assert.Equal(t, d.Payload, got.Payload)
	}
}

func TestHeartbeatRoundTrip(t *testing.T) {
	readerId, writerId := testGuid()
	h := Heartbeat{ReaderId: readerId, WriterId: writerId, FirstSN: 1, LastSN: 10, Count: 3, Final: true}
	body := h.Encode(true)
	got, err := DecodeHeartbeat(body, h.Flags(true))
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

// TestHeartbeatFirstGreaterThanLastIsMalformed exercises spec.md §8: a
// Heartbeat with first_sn > last_sn is malformed and dropped.
func TestHeartbeatFirstGreaterThanLastIsMalformed(t *testing.T) {
	readerId, writerId := testGuid()
	h := Heartbeat{ReaderId: readerId, WriterId: writerId, FirstSN: 10, LastSN: 1, Count: 1}
	body := h.Encode(true)
	_, err := DecodeHeartbeat(body, h.Flags(true))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDataFragRoundTrip(t *testing.T) {
	readerId, writerId := testGuid()
	d := DataFrag{
		ReaderId: readerId, WriterId: writerId, WriterSN: 5,
		FragmentStartingNum: 1, FragmentsInSubmessage: 2, FragmentSize: 100, DataSize: 150,
		Payload: make([]byte, 200),
	}
	body := d.Encode(true)
	got, err := DecodeDataFrag(body, d.Flags(true))
	require.NoError(t, err)
	assert.Equal(t, d.FragmentStartingNum, got.FragmentStartingNum)
	assert.Equal(t, d.DataSize, got.DataSize)
}

// TestDataFragOverrunIsMalformed exercises spec.md §8: DataFrag with
// fragment_starting_num + fragments_in_submessage - 1 > ceil(data_size/fragment_size)
// is malformed and dropped.
func TestDataFragOverrunIsMalformed(t *testing.T) {
	readerId, writerId := testGuid()
	// data_size=150, fragment_size=100 -> ceil = 2 total fragments.
	// starting at fragment 2 with 2 fragments in submessage reaches fragment 3: overrun.
	d := DataFrag{
		ReaderId: readerId, WriterId: writerId, WriterSN: 5,
		FragmentStartingNum: 2, FragmentsInSubmessage: 2, FragmentSize: 100, DataSize: 150,
		Payload: make([]byte, 200),
	}
	body := d.Encode(true)
	_, err := DecodeDataFrag(body, d.Flags(true))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestAckNackRoundTrip(t *testing.T) {
	readerId, writerId := testGuid()
	a := AckNack{
		ReaderId: readerId, WriterId: writerId, Count: 1, Final: true,
		ReaderSNState: SequenceNumberSet{Base: 5, Set: []rtps.SequenceNumber{5, 7}},
	}
	body := a.Encode(false)
	got, err := DecodeAckNack(body, a.Flags(false))
	require.NoError(t, err)
	assert.Equal(t, a.ReaderSNState.Base, got.ReaderSNState.Base)
	assert.Equal(t, a.ReaderSNState.Set, got.ReaderSNState.Set)
	assert.True(t, got.Final)
}

func TestGapRoundTrip(t *testing.T) {
	readerId, writerId := testGuid()
	g := Gap{
		ReaderId: readerId, WriterId: writerId, GapStart: 3,
		GapList: SequenceNumberSet{Base: 3, Set: []rtps.SequenceNumber{3, 4}},
	}
	body := g.Encode(true)
	got, err := DecodeGap(body, g.Flags(true))
	require.NoError(t, err)
	assert.Equal(t, g.GapStart, got.GapStart)
	assert.Equal(t, g.GapList.Set, got.GapList.Set)
}

func TestInfoTimestampRoundTrip(t *testing.T) {
	ts := InfoTimestamp{Seconds: 100, Fraction: 5000}
	body := ts.Encode(true)
	got, err := DecodeInfoTimestamp(body, ts.Flags(true))
	require.NoError(t, err)
	assert.Equal(t, ts, got)

	inv := InfoTimestamp{Invalidate: true}
	got2, err := DecodeInfoTimestamp(inv.Encode(true), inv.Flags(true))
	require.NoError(t, err)
	assert.True(t, got2.Invalidate)
}

func TestInfoDestinationRoundTrip(t *testing.T) {
	d := InfoDestination{GuidPrefix: rtps.GuidPrefix{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}}
	body := d.Encode(true)
	got, err := DecodeInfoDestination(body, d.Flags(true))
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestInfoSourceRoundTrip(t *testing.T) {
	s := InfoSource{
		Version: rtps.ProtocolVersion24, VendorId: rtps.VendorIdRTPSGo,
		GuidPrefix: rtps.GuidPrefix{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
	}
	body := s.Encode(false)
	got, err := DecodeInfoSource(body, s.Flags(false))
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestInfoReplyRoundTrip(t *testing.T) {
	ir := InfoReply{
		UnicastLocators: []rtps.Locator{rtps.LocatorFromUDPv4([4]byte{127, 0, 0, 1}, 7411)},
		HasMulticast:    true,
		MulticastLocators: []rtps.Locator{rtps.LocatorFromUDPv4([4]byte{239, 255, 0, 1}, 7400)},
	}
	body := ir.Encode(true)
	got, err := DecodeInfoReply(body, ir.Flags(true))
	require.NoError(t, err)
	require.Len(t, got.UnicastLocators, 1)
	assert.Equal(t, ir.UnicastLocators[0].Port, got.UnicastLocators[0].Port)
	require.Len(t, got.MulticastLocators, 1)
}

func TestSequenceNumberSetEmptyEncodesAsEightBytes(t *testing.T) {
	set := SequenceNumberSet{Base: 1}
	w := xtypes.NewWriter(xtypes.CDR_LE)
	set.Encode(w)
	assert.Len(t, w.Bytes(), 8)

	r := xtypes.NewReader(w.Bytes(), xtypes.CDR_LE)
	got, err := DecodeSequenceNumberSet(r)
	require.NoError(t, err)
	assert.Equal(t, rtps.SequenceNumber(1), got.Base)
	assert.Empty(t, got.Set)
}
