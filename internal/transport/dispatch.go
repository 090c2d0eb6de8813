package transport

import (
	"github.com/rtpsgo/rtpsgo/internal/messages"
	"github.com/rtpsgo/rtpsgo/internal/rtps"
	"github.com/rtpsgo/rtpsgo/internal/telemetry"
)

// EndpointRoute dispatches one parsed submessage to the entity identified by
// (prefix, kind-specific entity id). Implemented by the actor runtime
// (internal/actor) for each registered endpoint.
type EndpointRoute interface {
	Deliver(prefix rtps.GuidPrefix, sub messages.RawSubmessage)
}

// Receiver splits an inbound datagram into its Header and submessages and
// routes each to the registered endpoint, per spec.md §2's inbound data
// flow: "datagram → receiver splits submessages → routes by (GuidPrefix,
// EntityId) to the target endpoint actor".
type Receiver struct {
	log    *telemetry.Logger
	routes map[rtps.EntityId]EndpointRoute
}

// NewReceiver creates an empty receiver; routes are registered as entities
// enable.
func NewReceiver() *Receiver {
	return &Receiver{log: telemetry.NewLogger("transport"), routes: make(map[rtps.EntityId]EndpointRoute)}
}

// RegisterRoute directs every submessage whose entity id is entityId to
// route.
func (r *Receiver) RegisterRoute(entityId rtps.EntityId, route EndpointRoute) {
	r.routes[entityId] = route
}

// UnregisterRoute removes a previously registered route.
func (r *Receiver) UnregisterRoute(entityId rtps.EntityId) {
	delete(r.routes, entityId)
}

// entityIdOf extracts the submessage's addressed entity id, where
// applicable; submessages without one (InfoTimestamp, InfoSource, Pad) are
// not routed to a specific endpoint.
func entityIdOf(kind messages.SubmessageKind, body []byte, flags messages.SubmessageFlags) (rtps.EntityId, bool) {
	switch kind {
	case messages.KindData, messages.KindDataFrag:
		// readerId occupies the first 4 bytes after the 4-byte
		// extraFlags/octetsToInlineQos prefix, for both Data and DataFrag.
		if len(body) >= 8 {
			b := [4]byte{body[4], body[5], body[6], body[7]}
			return rtps.EntityIdFromBytes(b), true
		}
	case messages.KindHeartbeat, messages.KindGap, messages.KindHeartbeatFrag:
		// readerId is the first 4 bytes and is the addressee: these
		// submessages travel writer-to-reader.
		if len(body) >= 4 {
			b := [4]byte{body[0], body[1], body[2], body[3]}
			return rtps.EntityIdFromBytes(b), true
		}
	case messages.KindAckNack, messages.KindNackFrag:
		// readerId(4) then writerId(4): these submessages travel
		// reader-to-writer, so the addressee is writerId, the second field.
		if len(body) >= 8 {
			b := [4]byte{body[4], body[5], body[6], body[7]}
			return rtps.EntityIdFromBytes(b), true
		}
	}
	return rtps.EntityId{}, false
}

// Process parses one datagram's RTPS Header and submessages, and routes
// each to its registered endpoint. Malformed input is dropped with a debug
// log, never propagated as an error (spec.md §7).
func (r *Receiver) Process(datagram []byte) {
	header, n, err := messages.DecodeHeader(datagram)
	if err != nil {
		r.log.Printf("dropping malformed message header: %v", err)
		return
	}
	subs, err := messages.SplitSubmessages(datagram[n:])
	if err != nil {
		r.log.Printf("dropping malformed message body: %v", err)
	}
	for _, sub := range subs {
		entityId, ok := entityIdOf(sub.Header.Kind, sub.Body, sub.Header.Flags)
		if !ok {
			continue
		}
		route, ok := r.routes[entityId]
		if !ok {
			continue
		}
		route.Deliver(header.GuidPrefix, sub)
	}
}

// Sender batches outbound submessages destined to the same locator into one
// RTPS message per spec.md §2's outbound data flow, serializing writes
// through a single socket to preserve packet boundaries (spec.md §5).
type Sender struct {
	socket     *Socket
	header     messages.Header
	littleEndian bool
}

// NewSender creates a Sender that prefixes every message with header and
// writes through socket.
func NewSender(socket *Socket, header messages.Header, littleEndian bool) *Sender {
	return &Sender{socket: socket, header: header, littleEndian: littleEndian}
}

// SubmessageEncoder is satisfied by every *messages.Xxx submessage type.
type SubmessageEncoder interface {
	Encode(littleEndian bool) []byte
	Flags(littleEndian bool) messages.SubmessageFlags
}

// Send batches subs into one RTPS message and writes it to dst.
func (s *Sender) Send(dst rtps.Locator, kind func(int) messages.SubmessageKind, subs []SubmessageEncoder) error {
	buf := append([]byte{}, s.header.Encode()...)
	for i, sub := range subs {
		body := sub.Encode(s.littleEndian)
		flags := sub.Flags(s.littleEndian)
		buf = append(buf, messages.EncodeSubmessageHeader(kind(i), flags, len(body))...)
		buf = append(buf, body...)
	}
	return s.socket.Send(dst, buf)
}
