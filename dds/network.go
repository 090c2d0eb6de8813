package dds

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rtpsgo/rtpsgo/internal/behavior"
	"github.com/rtpsgo/rtpsgo/internal/config"
	"github.com/rtpsgo/rtpsgo/internal/discovery"
	"github.com/rtpsgo/rtpsgo/internal/messages"
	"github.com/rtpsgo/rtpsgo/internal/rtps"
	"github.com/rtpsgo/rtpsgo/internal/telemetry"
	"github.com/rtpsgo/rtpsgo/internal/transport"
)

// participantNet is the real UDP wire path for one DomainParticipant: SPDP,
// SEDP, and the user data path all travel as RTPS datagrams through
// internal/transport, encoded with internal/messages and
// internal/discovery's PL-CDR codec. It runs alongside the in-process
// shortcut in participant.go (announceSelf, dataExchangeSweep); that
// shortcut stays harmless with the network path enabled since
// StatefulReader.ReceiveData dedups by sequence number, so a participant
// that happens to share a process with its peer does not double-deliver.
type participantNet struct {
	p   *DomainParticipant
	log *telemetry.Logger

	spdpSocket *transport.Socket
	metaSocket *transport.Socket
	userSocket *transport.Socket

	spdpSender *transport.Sender
	metaSender *transport.Sender
	userSender *transport.Sender

	receiver *transport.Receiver

	spdpLocator        rtps.Locator
	metaUnicastLocator rtps.Locator
	userUnicastLocator rtps.Locator

	mu     sync.Mutex
	closed bool
}

// enableNetwork opens the SPDP multicast, metatraffic unicast, and user-data
// unicast sockets for p and starts their receive loops and announce tasks.
// Port numbers follow the well-known RTPS mapping (spec.md §6,
// internal/config.PortParams) so an independent rtpsgo-probe process on the
// same domain finds this participant without any out-of-band coordination.
func (p *DomainParticipant) enableNetwork() error {
	ports := config.DefaultPortParams
	domainID := int(p.DomainId)
	participantID := p.config.ParticipantID

	group := p.config.MetatrafficMulticast
	if group == "" {
		group = "239.255.0.1"
	}

	spdpSocket, err := transport.OpenMulticast(net.ParseIP(group), ports.SPDPMulticastPort(domainID))
	if err != nil {
		return fmt.Errorf("dds: open SPDP multicast: %w", err)
	}
	metaSocket, err := transport.OpenUnicast(ports.SPDPUnicastPort(domainID, participantID))
	if err != nil {
		spdpSocket.Close()
		return fmt.Errorf("dds: open metatraffic unicast: %w", err)
	}
	userSocket, err := transport.OpenUnicast(ports.UserUnicastPort(domainID, participantID))
	if err != nil {
		spdpSocket.Close()
		metaSocket.Close()
		return fmt.Errorf("dds: open user unicast: %w", err)
	}

	header := messages.Header{Version: rtps.ProtocolVersion24, VendorId: rtps.VendorIdRTPSGo, GuidPrefix: p.guidPrefix}
	n := &participantNet{
		p:          p,
		log:        telemetry.NewLogger("dds.network"),
		spdpSocket: spdpSocket,
		metaSocket: metaSocket,
		userSocket: userSocket,
		spdpSender: transport.NewSender(spdpSocket, header, false),
		metaSender: transport.NewSender(metaSocket, header, false),
		userSender: transport.NewSender(userSocket, header, false),
		receiver:   transport.NewReceiver(),
	}
	localIP := localIPv4()
	n.spdpLocator = rtps.LocatorFromUDPv4(ipv4Bytes(net.ParseIP(group)), uint32(ports.SPDPMulticastPort(domainID)))
	n.metaUnicastLocator = rtps.LocatorFromUDPv4(localIP, uint32(ports.SPDPUnicastPort(domainID, participantID)))
	n.userUnicastLocator = rtps.LocatorFromUDPv4(localIP, uint32(ports.UserUnicastPort(domainID, participantID)))

	n.receiver.RegisterRoute(rtps.EntityIdSPDPBuiltinParticipantReader, &spdpRoute{net: n})
	n.receiver.RegisterRoute(rtps.EntityIdSEDPBuiltinPublicationsReader, &sedpWriterRoute{net: n})
	n.receiver.RegisterRoute(rtps.EntityIdSEDPBuiltinSubscriptionsReader, &sedpReaderRoute{net: n})

	p.mu.Lock()
	for guid, w := range p.writers {
		n.receiver.RegisterRoute(guid.Entity, &userWriterRoute{net: n, w: w})
	}
	for guid, r := range p.readers {
		n.receiver.RegisterRoute(guid.Entity, &userReaderRoute{net: n, r: r})
	}
	p.mu.Unlock()

	p.net = n
	go n.receiveLoop(spdpSocket)
	go n.receiveLoop(metaSocket)
	go n.receiveLoop(userSocket)

	ctx := context.Background()
	announce := p.config.AnnouncePeriod
	if announce <= 0 {
		announce = discovery.DefaultAnnouncePeriod()
	}
	sweep := p.config.SweepPeriod
	if sweep <= 0 {
		sweep = 50 * time.Millisecond
	}
	p.mailbox.PeriodicTask(ctx, "spdp-network-announce", announce, p.announceSelfOverNetwork)
	p.mailbox.PeriodicTask(ctx, "sedp-network-announce", announce, p.announceEndpointsOverNetwork)
	p.mailbox.PeriodicTask(ctx, "network-data-exchange", sweep, p.networkDataExchangeSweep)
	p.announceSelfOverNetwork()
	return nil
}

// closeNetwork releases p's sockets, if the network path was enabled.
func (p *DomainParticipant) closeNetwork() {
	n := p.net
	if n == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	n.spdpSocket.Close()
	n.metaSocket.Close()
	n.userSocket.Close()
}

func (n *participantNet) receiveLoop(sock *transport.Socket) {
	for {
		dg, err := sock.Receive()
		if err != nil {
			return
		}
		n.receiver.Process(dg.Payload)
	}
}

// --- inbound routes ---

// spdpRoute delivers SPDP announcements from remote participants into the
// discovery.ParticipantTable, then fans out our own endpoints to a
// newly-discovered peer (spec.md §4.5.1).
type spdpRoute struct{ net *participantNet }

func (route *spdpRoute) Deliver(prefix rtps.GuidPrefix, sub messages.RawSubmessage) {
	if sub.Header.Kind != messages.KindData {
		return
	}
	d, err := messages.DecodeData(sub.Body, sub.Header.Flags)
	if err != nil || !d.HasPayload {
		return
	}
	p := route.net.p
	data, err := discovery.DecodeParticipantData(d.Payload, prefix, p.config.DomainTag)
	if err != nil {
		return
	}
	dp, isNew := p.participants.OnSPDP(data, p.DomainId, p.config.DomainTag, time.Now())
	if dp == nil {
		return
	}
	p.publishDiscoveredParticipant(dp.Data)
	if isNew {
		p.announceEndpointsTo(dp.Data)
	}
}

// sedpWriterRoute delivers remote DataWriter announcements (spec.md §4.5.2).
type sedpWriterRoute struct{ net *participantNet }

func (route *sedpWriterRoute) Deliver(prefix rtps.GuidPrefix, sub messages.RawSubmessage) {
	if sub.Header.Kind != messages.KindData {
		return
	}
	d, err := messages.DecodeData(sub.Body, sub.Header.Flags)
	if err != nil || !d.HasPayload {
		return
	}
	remote, err := discovery.DecodeEndpointData(d.Payload, prefix)
	if err != nil {
		return
	}
	route.net.p.onWriterDiscoveredData(remote)
}

// sedpReaderRoute delivers remote DataReader announcements (spec.md §4.5.2).
type sedpReaderRoute struct{ net *participantNet }

func (route *sedpReaderRoute) Deliver(prefix rtps.GuidPrefix, sub messages.RawSubmessage) {
	if sub.Header.Kind != messages.KindData {
		return
	}
	d, err := messages.DecodeData(sub.Body, sub.Header.Flags)
	if err != nil || !d.HasPayload {
		return
	}
	remote, err := discovery.DecodeEndpointData(d.Payload, prefix)
	if err != nil {
		return
	}
	route.net.p.onReaderDiscoveredData(remote)
}

// userReaderRoute feeds one local DataReader's StatefulReader from the wire:
// Data/DataFrag/Heartbeat/Gap from its matched writers.
type userReaderRoute struct {
	net *participantNet
	r   *DataReader
}

func (route *userReaderRoute) Deliver(prefix rtps.GuidPrefix, sub messages.RawSubmessage) {
	switch sub.Header.Kind {
	case messages.KindData:
		d, err := messages.DecodeData(sub.Body, sub.Header.Flags)
		if err != nil {
			return
		}
		writerGuid := rtps.Guid{Prefix: prefix, Entity: d.WriterId}
		route.r.reader.ReceiveData(d, writerGuid, time.Now())
		route.r.onDataAvailable()
		route.net.sendAckNackFor(route.r, writerGuid)
	case messages.KindDataFrag:
		d, err := messages.DecodeDataFrag(sub.Body, sub.Header.Flags)
		if err != nil {
			return
		}
		writerGuid := rtps.Guid{Prefix: prefix, Entity: d.WriterId}
		route.r.reader.ReceiveDataFrag(d, writerGuid, time.Now())
		route.r.onDataAvailable()
		route.net.sendAckNackFor(route.r, writerGuid)
	case messages.KindHeartbeat:
		h, err := messages.DecodeHeartbeat(sub.Body, sub.Header.Flags)
		if err != nil {
			return
		}
		writerGuid := rtps.Guid{Prefix: prefix, Entity: h.WriterId}
		result := route.r.reader.ReceiveHeartbeat(h, writerGuid)
		if result.MustSend {
			route.net.sendAckNackFor(route.r, writerGuid)
		}
	case messages.KindGap:
		g, err := messages.DecodeGap(sub.Body, sub.Header.Flags)
		if err != nil {
			return
		}
		writerGuid := rtps.Guid{Prefix: prefix, Entity: g.WriterId}
		route.r.reader.ReceiveGap(g, writerGuid)
	}
}

// userWriterRoute feeds one local DataWriter's StatefulWriter from the wire:
// AckNack from its matched readers.
type userWriterRoute struct {
	net *participantNet
	w   *DataWriter
}

func (route *userWriterRoute) Deliver(prefix rtps.GuidPrefix, sub messages.RawSubmessage) {
	if sub.Header.Kind != messages.KindAckNack {
		return
	}
	an, err := messages.DecodeAckNack(sub.Body, sub.Header.Flags)
	if err != nil {
		return
	}
	readerGuid := rtps.Guid{Prefix: prefix, Entity: an.ReaderId}
	route.w.writer.ReceiveAckNack(readerGuid, an.ReaderSNState)
}

// --- outbound sends ---

func (n *participantNet) sendAckNackFor(r *DataReader, writerGuid rtps.Guid) {
	an, ok := r.reader.PendingAckNackFor(writerGuid)
	if !ok {
		return
	}
	loc, ok := r.reader.WriterLocator(writerGuid)
	if !ok {
		return
	}
	if err := n.metaSender.Send(loc, func(int) messages.SubmessageKind { return messages.KindAckNack }, []transport.SubmessageEncoder{an}); err != nil {
		n.log.Printf("send AckNack to %v: %v", loc, err)
	}
}

func (n *participantNet) sendEndpointData(dst rtps.Locator, readerId, writerId rtps.EntityId, data discovery.EndpointData) {
	payload := discovery.EncodeEndpointData(data)
	d := &messages.Data{ReaderId: readerId, WriterId: writerId, HasPayload: true, Payload: payload}
	if err := n.metaSender.Send(dst, func(int) messages.SubmessageKind { return messages.KindData }, []transport.SubmessageEncoder{d}); err != nil {
		n.log.Printf("send SEDP endpoint data to %v: %v", dst, err)
	}
}

func (n *participantNet) sendOutbound(dst rtps.Locator, msg behavior.OutboundMessage) {
	var subs []transport.SubmessageEncoder
	var kinds []messages.SubmessageKind
	for _, d := range msg.Data {
		subs = append(subs, d)
		kinds = append(kinds, messages.KindData)
	}
	for _, f := range msg.DataFrag {
		subs = append(subs, f)
		kinds = append(kinds, messages.KindDataFrag)
	}
	if msg.Heartbeat != nil {
		subs = append(subs, msg.Heartbeat)
		kinds = append(kinds, messages.KindHeartbeat)
	}
	if len(subs) == 0 {
		return
	}
	if err := n.userSender.Send(dst, func(i int) messages.SubmessageKind { return kinds[i] }, subs); err != nil {
		n.log.Printf("send data to %v: %v", dst, err)
	}
}

// --- periodic tasks ---

// announceSelfOverNetwork sends this participant's SPDP data to the
// well-known multicast group (spec.md §4.5.1).
func (p *DomainParticipant) announceSelfOverNetwork() {
	net := p.net
	if net == nil {
		return
	}
	data := discovery.ParticipantData{
		DomainId: p.DomainId, DomainTag: p.config.DomainTag, GuidPrefix: p.guidPrefix,
		LeaseDuration:              p.leaseDuration(),
		MetatrafficUnicastLocators: []rtps.Locator{net.metaUnicastLocator},
		DefaultUnicastLocators:     []rtps.Locator{net.userUnicastLocator},
	}
	payload := discovery.EncodeParticipantData(data)
	d := &messages.Data{ReaderId: rtps.EntityIdSPDPBuiltinParticipantReader, WriterId: rtps.EntityIdSPDPBuiltinParticipantWriter, HasPayload: true, Payload: payload}
	if err := net.spdpSender.Send(net.spdpLocator, func(int) messages.SubmessageKind { return messages.KindData }, []transport.SubmessageEncoder{d}); err != nil {
		net.log.Printf("send SPDP announce: %v", err)
	}
}

// announceEndpointsTo sends every locally enabled writer's and reader's SEDP
// data directly to remote's metatraffic locator (spec.md §4.5.2).
func (p *DomainParticipant) announceEndpointsTo(remote discovery.ParticipantData) {
	net := p.net
	if net == nil {
		return
	}
	dst, ok := bestParticipantLocator(remote.MetatrafficUnicastLocators, remote.MetatrafficMulticastLocators)
	if !ok {
		return
	}
	p.mu.Lock()
	writers := make([]*DataWriter, 0, len(p.writers))
	for _, w := range p.writers {
		writers = append(writers, w)
	}
	readers := make([]*DataReader, 0, len(p.readers))
	for _, r := range p.readers {
		readers = append(readers, r)
	}
	p.mu.Unlock()
	for _, w := range writers {
		if !w.Enabled() {
			continue
		}
		net.sendEndpointData(dst, rtps.EntityIdSEDPBuiltinPublicationsReader, rtps.EntityIdSEDPBuiltinPublicationsWriter, discovery.EndpointData{
			Guid: w.Guid, TopicName: w.topic.Name, TypeName: w.topic.TypeName, Qos: w.Qos,
			UnicastLocators: []rtps.Locator{net.userUnicastLocator},
		})
	}
	for _, r := range readers {
		if !r.Enabled() {
			continue
		}
		net.sendEndpointData(dst, rtps.EntityIdSEDPBuiltinSubscriptionsReader, rtps.EntityIdSEDPBuiltinSubscriptionsWriter, discovery.EndpointData{
			Guid: r.Guid, TopicName: r.topic.Name, TypeName: r.topic.TypeName, Qos: r.Qos,
			UnicastLocators: []rtps.Locator{net.userUnicastLocator},
		})
	}
}

// announceEndpointsOverNetwork re-sends SEDP data to every currently known
// peer, covering writers/readers enabled after the initial SPDP exchange.
func (p *DomainParticipant) announceEndpointsOverNetwork() {
	if p.net == nil {
		return
	}
	for _, dp := range p.participants.All() {
		p.announceEndpointsTo(dp.Data)
	}
}

// networkDataExchangeSweep drives the reliability engine's periodic send
// side over the wire: Data/DataFrag/Heartbeat to matched readers, AckNack to
// matched writers (spec.md §4.4.2, §4.4.4).
func (p *DomainParticipant) networkDataExchangeSweep() {
	net := p.net
	if net == nil {
		return
	}
	p.mu.Lock()
	writers := make([]*DataWriter, 0, len(p.writers))
	for _, w := range p.writers {
		writers = append(writers, w)
	}
	readers := make([]*DataReader, 0, len(p.readers))
	for _, r := range p.readers {
		readers = append(readers, r)
	}
	p.mu.Unlock()

	for _, w := range writers {
		if !w.Enabled() {
			continue
		}
		for _, readerGuid := range w.MatchedSubscriptions() {
			loc, ok := w.writer.ReaderLocator(readerGuid)
			if !ok {
				continue
			}
			msg, ok := w.writer.PendingSendsTo(readerGuid)
			if !ok {
				continue
			}
			net.sendOutbound(loc, msg)
		}
	}
	for _, r := range readers {
		if !r.Enabled() {
			continue
		}
		for _, writerGuid := range r.MatchedPublications() {
			net.sendAckNackFor(r, writerGuid)
		}
	}
}

// --- helpers ---

func bestParticipantLocator(unicast, multicast []rtps.Locator) (rtps.Locator, bool) {
	if len(unicast) > 0 {
		return unicast[0], true
	}
	if len(multicast) > 0 {
		return multicast[0], true
	}
	return rtps.Locator{}, false
}

// localIPv4 picks the first non-loopback IPv4 address on the host, falling
// back to loopback for single-host testing.
func localIPv4() [4]byte {
	addrs, err := net.InterfaceAddrs()
	if err == nil {
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok || ipNet.IP.IsLoopback() {
				continue
			}
			if ip4 := ipNet.IP.To4(); ip4 != nil {
				return [4]byte{ip4[0], ip4[1], ip4[2], ip4[3]}
			}
		}
	}
	return [4]byte{127, 0, 0, 1}
}

func ipv4Bytes(ip net.IP) [4]byte {
	ip4 := ip.To4()
	if ip4 == nil {
		return [4]byte{}
	}
	return [4]byte{ip4[0], ip4[1], ip4[2], ip4[3]}
}
