package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtpsgo/rtpsgo/internal/messages"
	"github.com/rtpsgo/rtpsgo/internal/rtps"
)

type recordingRoute struct {
	delivered []messages.RawSubmessage
}

func (r *recordingRoute) Deliver(prefix rtps.GuidPrefix, sub messages.RawSubmessage) {
	r.delivered = append(r.delivered, sub)
}

func TestReceiverRoutesByEntityId(t *testing.T) {
	readerId := rtps.EntityIdSEDPBuiltinPublicationsReader
	writerId := rtps.EntityIdSEDPBuiltinPublicationsWriter

	hb := messages.Heartbeat{ReaderId: readerId, WriterId: writerId, FirstSN: 1, LastSN: 1, Count: 1}
	body := hb.Encode(true)
	flags := hb.Flags(true)

	header := messages.Header{Version: rtps.ProtocolVersion24, VendorId: rtps.VendorIdRTPSGo, GuidPrefix: rtps.GuidPrefix{1}}
	datagram := append([]byte{}, header.Encode()...)
	datagram = append(datagram, messages.EncodeSubmessageHeader(messages.KindHeartbeat, flags, len(body))...)
	datagram = append(datagram, body...)

	recv := NewReceiver()
	route := &recordingRoute{}
	recv.RegisterRoute(readerId, route)
	recv.Process(datagram)

	require.Len(t, route.delivered, 1)
	assert.Equal(t, messages.KindHeartbeat, route.delivered[0].Header.Kind)
}

func TestReceiverDropsMalformedDatagram(t *testing.T) {
	recv := NewReceiver()
	recv.Process([]byte{0, 1, 2, 3}) // too short for a header, no panic expected
}
