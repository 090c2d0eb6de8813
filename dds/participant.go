package dds

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rtpsgo/rtpsgo/internal/actor"
	"github.com/rtpsgo/rtpsgo/internal/config"
	"github.com/rtpsgo/rtpsgo/internal/discovery"
	rtpserrors "github.com/rtpsgo/rtpsgo/internal/errors"
	"github.com/rtpsgo/rtpsgo/internal/history"
	"github.com/rtpsgo/rtpsgo/internal/proxy"
	"github.com/rtpsgo/rtpsgo/internal/qos"
	"github.com/rtpsgo/rtpsgo/internal/rtps"
	"github.com/rtpsgo/rtpsgo/internal/telemetry"
)

// DomainParticipant is the entry point to a DDS domain, spec.md §6.
//
// Discovery note: when config.DomainConfig.Network is set, SPDP and SEDP
// travel as real RTPS datagrams over internal/transport UDP sockets,
// encoded with internal/discovery's PL-CDR wire.go codec — this is the
// path that lets two separate rtpsgo-probe processes on the same host find
// each other. DomainParticipantFactory additionally keeps an in-process
// shortcut (announceSelf, dataExchangeSweep below) that exchanges
// ParticipantData/EndpointData directly between peer structs in the same
// process; it runs unconditionally so same-process tests stay
// deterministic and socket-free, and is harmless alongside the network
// path since delivery dedups by sequence number.
type DomainParticipant struct {
	entity

	factory    *DomainParticipantFactory
	DomainId   int32
	config     config.DomainConfig
	listener   ParticipantListener
	autoenable bool

	guidPrefix rtps.GuidPrefix
	Guid       rtps.Guid

	mu          sync.Mutex
	nextEntity  uint32
	topics      map[string]*Topic
	publishers  map[*Publisher]bool
	subscribers map[*Subscriber]bool
	writers     map[rtps.Guid]*DataWriter
	readers     map[rtps.Guid]*DataReader

	ignoredParticipants  map[rtps.GuidPrefix]bool
	ignoredTopics        map[string]bool
	ignoredPublications  map[rtps.Guid]bool
	ignoredSubscriptions map[rtps.Guid]bool

	participants *discovery.ParticipantTable
	endpoints    *discovery.EndpointTable

	builtinSubscriber         *Subscriber
	builtinParticipantReader  *DataReader
	builtinPublicationReader  *DataReader
	builtinSubscriptionReader *DataReader
	builtinTopicReader        *DataReader

	mailbox *actor.Mailbox
	tracer  *telemetry.Tracer

	net *participantNet
}

func newDomainParticipant(f *DomainParticipantFactory, domainID int32, cfg config.DomainConfig, l ParticipantListener) *DomainParticipant {
	var prefix rtps.GuidPrefix
	id := uuid.New()
	copy(prefix[:], id[:12])

	guid := rtps.Guid{Prefix: prefix, Entity: rtps.EntityIdParticipant}
	p := &DomainParticipant{
		entity:               newEntity(),
		factory:               f,
		DomainId:               domainID,
		config:                 cfg,
		listener:               l,
		guidPrefix:             prefix,
		Guid:                   guid,
		topics:                 make(map[string]*Topic),
		publishers:             make(map[*Publisher]bool),
		subscribers:            make(map[*Subscriber]bool),
		writers:                make(map[rtps.Guid]*DataWriter),
		readers:                make(map[rtps.Guid]*DataReader),
		ignoredParticipants:    make(map[rtps.GuidPrefix]bool),
		ignoredTopics:          make(map[string]bool),
		ignoredPublications:    make(map[rtps.Guid]bool),
		ignoredSubscriptions:   make(map[rtps.Guid]bool),
		participants:           discovery.NewParticipantTable(prefix),
		endpoints:              discovery.NewEndpointTable(),
		mailbox:                actor.NewMailbox("participant"),
		tracer:                 telemetry.NewTracer(nil, "rtpsgo/dds"),
	}
	return p
}

func (p *DomainParticipant) fragmentSize() int {
	if p.config.FragmentSize > 0 {
		return int(p.config.FragmentSize)
	}
	return 64000
}

// Enable begins SPDP announcement and the communication-status sweep,
// spec.md §3, §5.
func (p *DomainParticipant) Enable() error {
	if err := p.markEnabled(); err != nil {
		return err
	}
	announce := p.config.AnnouncePeriod
	if announce <= 0 {
		announce = discovery.DefaultAnnouncePeriod()
	}
	sweep := p.config.SweepPeriod
	if sweep <= 0 {
		sweep = 50 * time.Millisecond
	}
	ctx := context.Background()
	p.mailbox.PeriodicTask(ctx, "spdp-announce", announce, p.announceSelf)
	p.mailbox.PeriodicTask(ctx, "lease-sweep", announce, p.sweepExpiredParticipants)
	p.mailbox.PeriodicTask(ctx, "communication-status-sweep", sweep, p.communicationStatusSweep)
	p.mailbox.PeriodicTask(ctx, "data-exchange-sweep", sweep, p.dataExchangeSweep)
	p.announceSelf()
	if p.config.Network {
		if err := p.enableNetwork(); err != nil {
			return err
		}
	}
	return nil
}

func (p *DomainParticipant) leaseDuration() time.Duration {
	if p.config.LeaseDuration > 0 {
		return p.config.LeaseDuration
	}
	return discovery.DefaultLeaseDuration
}

// announceSelf is the SPDP periodic task: publish this participant's data to
// every in-process domain peer and ingest theirs (spec.md §4.5.1).
func (p *DomainParticipant) announceSelf() {
	p.factory.discoveryMu.Lock()
	defer p.factory.discoveryMu.Unlock()

	self := discovery.ParticipantData{
		DomainId:      p.DomainId,
		DomainTag:     p.config.DomainTag,
		GuidPrefix:    p.guidPrefix,
		LeaseDuration: p.leaseDuration(),
	}
	now := time.Now()
	for _, peer := range p.factory.peersInDomain(p.DomainId, p) {
		if dp, isNew := peer.participants.OnSPDP(self, peer.DomainId, peer.config.DomainTag, now); dp != nil {
			peer.publishDiscoveredParticipant(dp.Data)
			if isNew {
				peer.onParticipantDiscovered(p)
			}
		}
		peerData := discovery.ParticipantData{
			DomainId: peer.DomainId, DomainTag: peer.config.DomainTag,
			GuidPrefix: peer.guidPrefix, LeaseDuration: peer.leaseDuration(),
		}
		if dp, isNew := p.participants.OnSPDP(peerData, p.DomainId, p.config.DomainTag, now); dp != nil {
			p.publishDiscoveredParticipant(dp.Data)
			if isNew {
				p.onParticipantDiscovered(peer)
			}
		}
	}
}

// onParticipantDiscovered exchanges already-registered endpoint data with a
// newly discovered peer, the SEDP half of discovery (spec.md §4.5.2).
func (p *DomainParticipant) onParticipantDiscovered(peer *DomainParticipant) {
	if p.ignoredParticipants[peer.guidPrefix] {
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
		peer.onWriterDiscovered(w.Guid, w.topic.Name, w.topic.TypeName, w.Qos)
	}
	for _, r := range readers {
		peer.onReaderDiscovered(r.Guid, r.topic.Name, r.topic.TypeName, r.Qos)
	}
}

func (p *DomainParticipant) sweepExpiredParticipants() {
	pruned := p.participants.SweepExpired(time.Now())
	for _, prefix := range pruned {
		for _, guid := range p.endpoints.RemoveAllFrom(prefix) {
			p.onEndpointLost(guid)
		}
	}
}

func (p *DomainParticipant) communicationStatusSweep() {
	now := time.Now()
	p.mu.Lock()
	readers := make([]*DataReader, 0, len(p.readers))
	for _, r := range p.readers {
		readers = append(readers, r)
	}
	p.mu.Unlock()
	for _, r := range readers {
		if r.Enabled() {
			r.checkDeadline(now)
		}
	}
}

// dataExchangeSweep is the in-process data-path periodic task: for each
// local writer, deliver its pending Data/DataFrag/Heartbeat directly to
// every matched remote reader's behavior state machine and route back
// whatever AckNack that provokes, standing in for the UDP round trip a real
// deployment drives through internal/transport (spec.md §4.4.2).
func (p *DomainParticipant) dataExchangeSweep() {
	p.factory.discoveryMu.Lock()
	defer p.factory.discoveryMu.Unlock()

	p.mu.Lock()
	writers := make([]*DataWriter, 0, len(p.writers))
	for _, w := range p.writers {
		writers = append(writers, w)
	}
	p.mu.Unlock()

	now := time.Now()
	for _, w := range writers {
		if !w.Enabled() {
			continue
		}
		readerGuids := w.MatchedSubscriptions()
		fns := make([]func(context.Context) error, 0, len(readerGuids))
		for _, readerGuid := range readerGuids {
			readerGuid := readerGuid
			fns = append(fns, func(context.Context) error {
				p.deliverPendingSendTo(w, readerGuid, now)
				return nil
			})
		}
		// Each matched reader gets its own StatefulReader (its own mutex), so
		// rendering and delivering their pending sends is independent
		// per-proxy work: fan it out instead of serializing one writer's
		// matched readers behind each other.
		_ = actor.RunConcurrent(context.Background(), fns...)
	}
}

// deliverPendingSendTo renders w's pending Data/DataFrag/Heartbeat for the
// single matched reader readerGuid and applies it directly to that reader's
// behavior state machine, routing back whatever AckNack it provokes.
func (p *DomainParticipant) deliverPendingSendTo(w *DataWriter, readerGuid rtps.Guid, now time.Time) {
	peer := p.peerByPrefix(readerGuid.Prefix)
	if peer == nil {
		return
	}
	peer.mu.Lock()
	reader := peer.readers[readerGuid]
	peer.mu.Unlock()
	if reader == nil || !reader.Enabled() {
		return
	}

	msg, ok := w.writer.PendingSendsTo(readerGuid)
	if !ok {
		return
	}
	delivered := false
	for _, d := range msg.Data {
		reader.reader.ReceiveData(*d, w.Guid, now)
		delivered = true
	}
	for _, f := range msg.DataFrag {
		reader.reader.ReceiveDataFrag(*f, w.Guid, now)
		delivered = true
	}
	if delivered {
		reader.onDataAvailable()
	}
	if msg.Heartbeat == nil {
		return
	}
	result := reader.reader.ReceiveHeartbeat(*msg.Heartbeat, w.Guid)
	if !result.MustSend {
		return
	}
	if an, ok := reader.reader.PendingAckNackFor(w.Guid); ok {
		w.writer.ReceiveAckNack(readerGuid, an.ReaderSNState)
	}
}

// announceWriter publishes a newly enabled writer via the SEDP shortcut to
// every discovered peer, spec.md §4.5.2. It also matches w against remote
// readers this participant already learned about before w existed: a peer's
// announceReader only walks the peer's OWN readers/writers at the time it
// runs, so a writer created after a matching remote reader was discovered
// would otherwise never see it.
func (p *DomainParticipant) announceWriter(w *DataWriter) {
	p.factory.discoveryMu.Lock()
	defer p.factory.discoveryMu.Unlock()

	for _, dp := range p.participants.All() {
		peer := p.peerByPrefix(dp.Data.GuidPrefix)
		if peer == nil {
			continue
		}
		peer.onWriterDiscovered(w.Guid, w.topic.Name, w.topic.TypeName, w.Qos)
	}

	for _, remote := range p.endpoints.All() {
		if remote.Guid.Entity.Kind.IsWriter() || p.ignoredSubscriptions[remote.Guid] || p.ignoredTopics[remote.TopicName] {
			continue
		}
		result := discovery.MatchWriterAgainstReader(w.topic.Name, w.topic.TypeName, w.Qos.Partition.Names, w.Qos, remote)
		switch result.Kind {
		case discovery.MatchCompatible:
			rp := proxy.NewReaderProxy(remote.Guid, remote.UnicastLocators, remote.MulticastLocators, false)
			w.onMatched(remote.Guid, rp, nil)
		case discovery.MatchIncompatibleQos:
			w.onMatched(remote.Guid, nil, result.Incompatible)
		}
	}
}

// announceReader is the reader-side equivalent of announceWriter: besides
// notifying peers of the new reader, it matches r against remote writers
// already recorded in this participant's own endpoint table.
func (p *DomainParticipant) announceReader(r *DataReader) {
	p.factory.discoveryMu.Lock()
	defer p.factory.discoveryMu.Unlock()

	for _, dp := range p.participants.All() {
		peer := p.peerByPrefix(dp.Data.GuidPrefix)
		if peer == nil {
			continue
		}
		peer.onReaderDiscovered(r.Guid, r.topic.Name, r.topic.TypeName, r.Qos)
	}

	for _, remote := range p.endpoints.All() {
		if !remote.Guid.Entity.Kind.IsWriter() || p.ignoredPublications[remote.Guid] || p.ignoredTopics[remote.TopicName] {
			continue
		}
		result := discovery.MatchReaderAgainstWriter(r.topic.Name, r.topic.TypeName, r.Qos.Partition.Names, r.Qos, remote)
		switch result.Kind {
		case discovery.MatchCompatible:
			wp := proxy.NewWriterProxy(remote.Guid, remote.UnicastLocators, remote.MulticastLocators)
			r.onMatched(remote.Guid, wp, nil)
		case discovery.MatchIncompatibleQos:
			r.onMatched(remote.Guid, nil, result.Incompatible)
		}
	}
}

func (p *DomainParticipant) peerByPrefix(prefix rtps.GuidPrefix) *DomainParticipant {
	for _, peer := range p.factory.peersInDomain(p.DomainId, p) {
		if peer.guidPrefix == prefix {
			return peer
		}
	}
	return nil
}

// onWriterDiscovered matches a remote writer against every local reader of
// the same topic, per MatchReaderAgainstWriter (spec.md §4.5.2). Used by the
// in-process shortcut, which has no real locators to offer.
func (p *DomainParticipant) onWriterDiscovered(writerGuid rtps.Guid, topicName, typeName string, offered qos.Qos) {
	p.onWriterDiscoveredData(discovery.EndpointData{Guid: writerGuid, TopicName: topicName, TypeName: typeName, Qos: offered})
}

// onWriterDiscoveredData is the network-path equivalent of onWriterDiscovered,
// taking a fully decoded EndpointData (with real UnicastLocators/
// MulticastLocators from the wire) so the resulting WriterProxy can actually
// be addressed.
func (p *DomainParticipant) onWriterDiscoveredData(remote discovery.EndpointData) {
	writerGuid := remote.Guid
	if p.ignoredPublications[writerGuid] || p.ignoredTopics[remote.TopicName] {
		return
	}
	p.endpoints.Upsert(remote)
	p.publishDiscoveredWriter(remote)

	p.mu.Lock()
	readers := make([]*DataReader, 0, len(p.readers))
	for _, r := range p.readers {
		readers = append(readers, r)
	}
	p.mu.Unlock()

	for _, r := range readers {
		if !r.Enabled() {
			continue
		}
		result := discovery.MatchReaderAgainstWriter(r.topic.Name, r.topic.TypeName, r.Qos.Partition.Names, r.Qos, remote)
		switch result.Kind {
		case discovery.MatchCompatible:
			wp := proxy.NewWriterProxy(writerGuid, remote.UnicastLocators, remote.MulticastLocators)
			r.onMatched(writerGuid, wp, nil)
		case discovery.MatchIncompatibleQos:
			r.onMatched(writerGuid, nil, result.Incompatible)
		}
	}
}

// onReaderDiscovered is the writer-side equivalent of onWriterDiscovered.
// Used by the in-process shortcut, which has no real locators to offer.
func (p *DomainParticipant) onReaderDiscovered(readerGuid rtps.Guid, topicName, typeName string, requested qos.Qos) {
	p.onReaderDiscoveredData(discovery.EndpointData{Guid: readerGuid, TopicName: topicName, TypeName: typeName, Qos: requested})
}

// onReaderDiscoveredData is the network-path equivalent of onReaderDiscovered,
// taking a fully decoded EndpointData with real locators.
func (p *DomainParticipant) onReaderDiscoveredData(remote discovery.EndpointData) {
	readerGuid := remote.Guid
	if p.ignoredSubscriptions[readerGuid] || p.ignoredTopics[remote.TopicName] {
		return
	}
	p.endpoints.Upsert(remote)
	p.publishDiscoveredReader(remote)

	p.mu.Lock()
	writers := make([]*DataWriter, 0, len(p.writers))
	for _, w := range p.writers {
		writers = append(writers, w)
	}
	p.mu.Unlock()

	for _, w := range writers {
		if !w.Enabled() {
			continue
		}
		result := discovery.MatchWriterAgainstReader(w.topic.Name, w.topic.TypeName, w.Qos.Partition.Names, w.Qos, remote)
		switch result.Kind {
		case discovery.MatchCompatible:
			rp := proxy.NewReaderProxy(readerGuid, remote.UnicastLocators, remote.MulticastLocators, false)
			w.onMatched(readerGuid, rp, nil)
		case discovery.MatchIncompatibleQos:
			w.onMatched(readerGuid, nil, result.Incompatible)
		}
	}
}

func (p *DomainParticipant) onEndpointLost(guid rtps.Guid) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, w := range p.writers {
		w.onUnmatched(guid)
	}
	for _, r := range p.readers {
		r.onUnmatched(guid)
	}
}

func (p *DomainParticipant) nextEntityGuid(kind rtps.EntityKind) rtps.Guid {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextEntity++
	n := p.nextEntity
	return rtps.Guid{
		Prefix: p.guidPrefix,
		Entity: rtps.EntityId{Key: [3]byte{byte(n >> 16), byte(n >> 8), byte(n)}, Kind: kind},
	}
}

func (p *DomainParticipant) registerWriter(w *DataWriter) {
	p.mu.Lock()
	p.writers[w.Guid] = w
	p.mu.Unlock()
	if p.net != nil {
		p.net.receiver.RegisterRoute(w.Guid.Entity, &userWriterRoute{net: p.net, w: w})
	}
}

func (p *DomainParticipant) unregisterWriter(w *DataWriter) {
	p.mu.Lock()
	delete(p.writers, w.Guid)
	p.mu.Unlock()
	if p.net != nil {
		p.net.receiver.UnregisterRoute(w.Guid.Entity)
	}
}

func (p *DomainParticipant) registerReader(r *DataReader) {
	p.mu.Lock()
	p.readers[r.Guid] = r
	p.mu.Unlock()
	if p.net != nil {
		p.net.receiver.RegisterRoute(r.Guid.Entity, &userReaderRoute{net: p.net, r: r})
	}
}

func (p *DomainParticipant) unregisterReader(r *DataReader) {
	p.mu.Lock()
	delete(p.readers, r.Guid)
	p.mu.Unlock()
	if p.net != nil {
		p.net.receiver.UnregisterRoute(r.Guid.Entity)
	}
}

func (p *DomainParticipant) hasLiveChildren() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.publishers) > 0 || len(p.subscribers) > 0 || len(p.topics) > 0
}

// CreatePublisher creates a Publisher, spec.md §6.
func (p *DomainParticipant) CreatePublisher(q qos.Qos) *Publisher {
	pub := newPublisher(p, q, p.listener.DataWriterListener)
	p.mu.Lock()
	p.publishers[pub] = true
	autoenable := p.autoenable
	p.mu.Unlock()
	if autoenable {
		pub.Enable()
	}
	return pub
}

// CreateSubscriber creates a Subscriber, spec.md §6.
func (p *DomainParticipant) CreateSubscriber(q qos.Qos) *Subscriber {
	sub := newSubscriber(p, q, p.listener.DataReaderListener)
	p.mu.Lock()
	p.subscribers[sub] = true
	autoenable := p.autoenable
	p.mu.Unlock()
	if autoenable {
		sub.Enable()
	}
	return sub
}

// CreateTopic creates (or returns the existing) Topic for name, spec.md §6.
func (p *DomainParticipant) CreateTopic(name, typeName string, q qos.Qos) (*Topic, error) {
	p.mu.Lock()
	if existing, ok := p.topics[name]; ok {
		p.mu.Unlock()
		if existing.TypeName != typeName {
			return nil, rtpserrors.ErrInconsistentPolicy
		}
		return existing, nil
	}
	t := &Topic{entity: newEntity(), participant: p, Name: name, TypeName: typeName, Qos: q}
	p.topics[name] = t
	autoenable := p.autoenable
	p.mu.Unlock()
	if autoenable {
		t.Enable()
	}
	p.publishDiscoveredTopic(t)
	return t, nil
}

// FindTopic looks up a topic by name, waiting up to timeout for it to be
// created (e.g. by discovery), spec.md §6.
func (p *DomainParticipant) FindTopic(ctx context.Context, name string, timeout time.Duration) (*Topic, error) {
	deadline := time.Now().Add(timeout)
	for {
		p.mu.Lock()
		t, ok := p.topics[name]
		p.mu.Unlock()
		if ok {
			return t, nil
		}
		if time.Now().After(deadline) {
			return nil, rtpserrors.ErrTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// LookupTopicDescription returns an already-created Topic by name without
// waiting, spec.md §6. A TopicDescription here is always a concrete Topic:
// this module has no ContentFilteredTopic/MultiTopic.
func (p *DomainParticipant) LookupTopicDescription(name string) *Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.topics[name]
}

// GetBuiltinSubscriber returns the Subscriber exposing DCPSParticipant,
// DCPSPublication, DCPSSubscription and DCPSTopic as ordinary DataReaders,
// spec.md §6. Built lazily on first call. These readers are fed directly
// from the participant's discovery tables (publishDiscoveredParticipant/
// Writer/Reader/Topic) rather than matched against remote writers through
// SEDP: built-in topic content already arrives as a side effect of the
// SPDP/SEDP exchange itself, so mirroring it a second time as a "regular"
// matched subscription would be circular.
func (p *DomainParticipant) GetBuiltinSubscriber() *Subscriber {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.builtinSubscriber != nil {
		return p.builtinSubscriber
	}
	sub := newSubscriber(p, qos.Default(), DataReaderListener{})
	sub.markEnabled()
	p.builtinParticipantReader = p.newBuiltinReaderLocked(sub, BuiltinTopicParticipant)
	p.builtinPublicationReader = p.newBuiltinReaderLocked(sub, BuiltinTopicPublication)
	p.builtinSubscriptionReader = p.newBuiltinReaderLocked(sub, BuiltinTopicSubscription)
	p.builtinTopicReader = p.newBuiltinReaderLocked(sub, BuiltinTopicTopic)
	p.builtinSubscriber = sub
	return sub
}

// newBuiltinReaderLocked creates one built-in-topic DataReader. Callers must
// hold p.mu (it allocates an entity id directly rather than through
// nextEntityGuid, which takes the same lock).
func (p *DomainParticipant) newBuiltinReaderLocked(sub *Subscriber, name string) *DataReader {
	topic := &Topic{entity: newEntity(), participant: p, Name: name, TypeName: name, Qos: qos.Default()}
	topic.markEnabled()
	p.nextEntity++
	n := p.nextEntity
	guid := rtps.Guid{
		Prefix: p.guidPrefix,
		Entity: rtps.EntityId{Key: [3]byte{byte(n >> 16), byte(n >> 8), byte(n)}, Kind: rtps.EntityKindBuiltinReaderWithKey},
	}
	r := newDataReader(sub, topic, guid, qos.Default())
	r.markEnabled()
	sub.readers[guid] = r
	return r
}

// publishDiscoveredParticipant feeds a freshly (re-)discovered participant
// to the DCPSParticipant built-in reader, if GetBuiltinSubscriber has been
// called.
func (p *DomainParticipant) publishDiscoveredParticipant(data discovery.ParticipantData) {
	p.mu.Lock()
	r := p.builtinParticipantReader
	p.mu.Unlock()
	if r == nil {
		return
	}
	instance := rtps.InstanceHandleFromGuid(rtps.Guid{Prefix: data.GuidPrefix, Entity: rtps.EntityIdParticipant})
	r.reader.InjectBuiltinSample(history.Alive, instance, encodeBuiltinParticipant(data), time.Now())
	r.onDataAvailable()
}

// publishDiscoveredWriter feeds the DCPSPublication built-in reader.
func (p *DomainParticipant) publishDiscoveredWriter(remote discovery.EndpointData) {
	p.mu.Lock()
	r := p.builtinPublicationReader
	p.mu.Unlock()
	if r == nil {
		return
	}
	instance := rtps.InstanceHandleFromGuid(remote.Guid)
	r.reader.InjectBuiltinSample(history.Alive, instance, encodeBuiltinEndpoint(remote), time.Now())
	r.onDataAvailable()
}

// publishDiscoveredReader feeds the DCPSSubscription built-in reader.
func (p *DomainParticipant) publishDiscoveredReader(remote discovery.EndpointData) {
	p.mu.Lock()
	r := p.builtinSubscriptionReader
	p.mu.Unlock()
	if r == nil {
		return
	}
	instance := rtps.InstanceHandleFromGuid(remote.Guid)
	r.reader.InjectBuiltinSample(history.Alive, instance, encodeBuiltinEndpoint(remote), time.Now())
	r.onDataAvailable()
}

// publishDiscoveredTopic feeds the DCPSTopic built-in reader with a locally
// created topic. This module has no standalone SEDP topic announcer (only
// publication/subscription data crosses the wire), so DCPSTopic reflects
// topics known to this participant rather than ones learned from remote
// TopicsAnnouncer traffic.
func (p *DomainParticipant) publishDiscoveredTopic(t *Topic) {
	p.mu.Lock()
	r := p.builtinTopicReader
	p.mu.Unlock()
	if r == nil {
		return
	}
	instance := rtps.InstanceHandleFromKey([]byte(t.Name))
	r.reader.InjectBuiltinSample(history.Alive, instance, encodeBuiltinTopic(t.Name, t.TypeName, t.Qos), time.Now())
	r.onDataAvailable()
}

// IgnoreParticipant causes this participant to disregard further discovery
// traffic from prefix, spec.md §6.
func (p *DomainParticipant) IgnoreParticipant(prefix rtps.GuidPrefix) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ignoredParticipants[prefix] = true
}

// IgnoreTopic causes this participant to disregard matches for name.
func (p *DomainParticipant) IgnoreTopic(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ignoredTopics[name] = true
}

// IgnorePublication causes this participant to disregard a specific remote
// writer.
func (p *DomainParticipant) IgnorePublication(guid rtps.Guid) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ignoredPublications[guid] = true
}

// IgnoreSubscription causes this participant to disregard a specific remote
// reader.
func (p *DomainParticipant) IgnoreSubscription(guid rtps.Guid) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ignoredSubscriptions[guid] = true
}

// AssertLiveliness manually asserts liveliness for every MANUAL_BY_PARTICIPANT
// writer owned by this participant, spec.md §6. A manual assertion simply
// refreshes the lease the next SPDP announce carries, so this re-announces
// immediately rather than waiting for the next periodic tick.
func (p *DomainParticipant) AssertLiveliness() {
	p.announceSelf()
}

// GetCurrentTime returns the participant's notion of the current time; this
// module has no simulated clock, so it is simply wall time.
func (p *DomainParticipant) GetCurrentTime() time.Time { return time.Now() }

// GetDiscoveredParticipants lists every currently discovered remote
// participant's GuidPrefix, spec.md §6.
func (p *DomainParticipant) GetDiscoveredParticipants() []rtps.GuidPrefix {
	out := make([]rtps.GuidPrefix, 0)
	for _, dp := range p.participants.All() {
		out = append(out, dp.Data.GuidPrefix)
	}
	return out
}

// GetDiscoveredParticipantData returns the SPDP data last received from
// prefix, spec.md §6.
func (p *DomainParticipant) GetDiscoveredParticipantData(prefix rtps.GuidPrefix) (discovery.ParticipantData, error) {
	dp, ok := p.participants.Get(prefix)
	if !ok {
		return discovery.ParticipantData{}, rtpserrors.ErrBadParameter
	}
	return dp.Data, nil
}
