package behavior

import (
	"sync"
	"time"

	"github.com/rtpsgo/rtpsgo/internal/history"
	"github.com/rtpsgo/rtpsgo/internal/messages"
	"github.com/rtpsgo/rtpsgo/internal/proxy"
	"github.com/rtpsgo/rtpsgo/internal/qos"
	"github.com/rtpsgo/rtpsgo/internal/rtps"
)

// StatefulReader holds a WriterProxy per matched writer and implements the
// reliable/best-effort reception state machine of spec.md §4.4.4. Its own
// mutex protects the cache and proxy table from the owning DataReader's
// application-thread Read/Take calls racing the in-process delivery sweep
// (a remote participant's own mailbox goroutine, spec.md §4.4.2).
type StatefulReader struct {
	mu          sync.Mutex
	Guid        rtps.Guid
	Reliability qos.ReliabilityKind
	cache       *history.ReaderCache
	proxies     map[rtps.Guid]*proxy.WriterProxy
	ackNackCnt  int32
	SampleLost  int
}

// NewStatefulReader creates a reliable or best-effort stateful reader.
func NewStatefulReader(guid rtps.Guid, reliability qos.ReliabilityKind, h qos.HistoryQos, limits qos.ResourceLimitsQos, destOrder qos.DestinationOrderKind, minSep time.Duration) *StatefulReader {
	return &StatefulReader{
		Guid:        guid,
		Reliability: reliability,
		cache:       history.NewReaderCache(h, limits, destOrder, minSep),
		proxies:     make(map[rtps.Guid]*proxy.WriterProxy),
	}
}

// MatchWriter adds a WriterProxy for a newly matched writer.
func (r *StatefulReader) MatchWriter(p *proxy.WriterProxy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proxies[p.WriterGuid] = p
}

// UnmatchWriter removes a writer proxy.
func (r *StatefulReader) UnmatchWriter(writerGuid rtps.Guid) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.proxies, writerGuid)
}

// MatchedWriterCount reports how many writers are currently matched.
func (r *StatefulReader) MatchedWriterCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.proxies)
}

// LastReceptionTimes reports, per alive instance, the reception time of its
// most recent change. Used by deadline-miss detection (spec.md §4.7).
func (r *StatefulReader) LastReceptionTimes() map[rtps.InstanceHandle]time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.LastReceptionTimes()
}

// HasMatching reports whether any cached change currently matches filter.
func (r *StatefulReader) HasMatching(filter history.Filter) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.HasMatching(filter)
}

// InjectBuiltinSample stores a change directly in the cache, bypassing the
// reliability engine's proxy/sequence-number bookkeeping. Used by built-in
// topic readers (DCPSParticipant, DCPSPublication, DCPSSubscription,
// DCPSTopic) fed straight from discovery state rather than delivered by a
// matched writer, spec.md §6 get_builtin_subscriber.
func (r *StatefulReader) InjectBuiltinSample(kind history.ChangeKind, instance rtps.InstanceHandle, data []byte, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.AddChange(kind, instance, instance, data, now, now)
}

// deliver computes the sample's instance handle from the PID_KEY_HASH
// carried in d's inline QoS (spec.md §3), falling back to the writer's own
// Guid-derived handle only when the writer sent none (e.g. a no-key topic).
// Using the writer's Guid unconditionally would collapse every instance
// written by one DataWriter onto a single reader-side instance.
func (r *StatefulReader) deliver(d messages.Data, writer rtps.Guid, now time.Time) {
	kind := history.Alive
	if d.KeyPayload {
		kind = history.NotAliveDisposed
	}
	instance := rtps.InstanceHandleFromGuid(writer)
	if d.HasInlineQos {
		if h, ok := messages.KeyHash(d.InlineQos); ok {
			instance = h
		}
	}
	r.cache.AddChange(kind, instance, rtps.InstanceHandleFromGuid(writer), d.Payload, now, now)
}

// ReceiveData processes an incoming Data submessage from a matched writer,
// applying best-effort gap detection or reliable in-order acceptance per
// spec.md §4.4.4.
func (r *StatefulReader) ReceiveData(d messages.Data, writerGuid rtps.Guid, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.proxies[writerGuid]
	if !ok {
		return
	}
	seq := d.WriterSN
	if p.IsAvailable(seq) {
		return
	}

	if r.Reliability == qos.BestEffort {
		expected := p.AvailableChangesMax() + 1
		if seq >= expected {
			if seq > expected {
				r.SampleLost += int(seq - expected)
			}
			p.MarkReceived(seq)
			r.deliver(d, writerGuid, now)
		}
		return
	}

	expected := p.AvailableChangesMax() + 1
	if seq == expected {
		p.MarkReceived(seq)
		r.deliver(d, writerGuid, now)
	}
}

// ReceiveDataFrag processes an incoming DataFrag, reassembling and
// dispatching to ReceiveData once complete (spec.md §4.4.4).
func (r *StatefulReader) ReceiveDataFrag(d messages.DataFrag, writerGuid rtps.Guid, now time.Time) {
	r.mu.Lock()
	p, ok := r.proxies[writerGuid]
	if !ok {
		r.mu.Unlock()
		return
	}
	payload, inlineQos, hasInlineQos, complete := p.AddFragment(d.WriterSN, d.FragmentStartingNum, d.Payload, d.DataSize, d.FragmentSize, d.InlineQos, d.HasInlineQos)
	r.mu.Unlock()
	if !complete {
		return
	}
	full := messages.Data{
		ReaderId: d.ReaderId, WriterId: d.WriterId, WriterSN: d.WriterSN,
		InlineQos: inlineQos, HasInlineQos: hasInlineQos,
		HasPayload: true, KeyPayload: d.KeyPayload, Payload: payload,
	}
	r.ReceiveData(full, writerGuid, now)
}

// MustSendAckNacksResult bundles the outcome of processing a Heartbeat.
type MustSendAckNacksResult struct {
	MustSend bool
	Lost     []rtps.SequenceNumber
}

// ReceiveHeartbeat applies an incoming Heartbeat, per spec.md §4.4.4.
func (r *StatefulReader) ReceiveHeartbeat(h messages.Heartbeat, writerGuid rtps.Guid) MustSendAckNacksResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.proxies[writerGuid]
	if !ok {
		return MustSendAckNacksResult{}
	}
	if !p.ReceivedHeartbeat(h.Count) {
		return MustSendAckNacksResult{}
	}
	p.MissingChangesUpdate(h.LastSN)
	lost := p.LostChangesUpdate(h.FirstSN)
	r.SampleLost += len(lost)

	missing := p.MissingChanges()
	mustSend := !h.Final || (!h.Liveliness && len(missing) > 0)
	return MustSendAckNacksResult{MustSend: mustSend, Lost: lost}
}

// ReceiveGap applies an incoming Gap, marking the named range and set
// irrelevant (spec.md §4.4.4).
func (r *StatefulReader) ReceiveGap(g messages.Gap, writerGuid rtps.Guid) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.proxies[writerGuid]
	if !ok {
		return
	}
	for seq := g.GapStart; seq < g.GapList.Base; seq++ {
		p.MarkIrrelevant(seq)
	}
	for _, seq := range g.GapList.Set {
		p.MarkIrrelevant(seq)
	}
}

// WriterLocator returns the best destination locator for the matched writer
// writerGuid, for routing an AckNack back over the network. ok is false if
// writerGuid is not matched or has no locator.
func (r *StatefulReader) WriterLocator(writerGuid rtps.Guid) (rtps.Locator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.proxies[writerGuid]
	if !ok {
		return rtps.Locator{}, false
	}
	return p.BestLocator()
}

// PendingAckNacks renders an AckNack for every matched writer, whether or
// not it has outstanding missing changes, for the periodic reliable-reader task
// (spec.md §4.4.4).
func (r *StatefulReader) PendingAckNacks() []*messages.AckNack {
	r.mu.Lock()
	guids := make([]rtps.Guid, 0, len(r.proxies))
	for guid := range r.proxies {
		guids = append(guids, guid)
	}
	r.mu.Unlock()

	var out []*messages.AckNack
	for _, guid := range guids {
		an, ok := r.PendingAckNackFor(guid)
		if !ok {
			continue
		}
		out = append(out, an)
	}
	return out
}

// PendingAckNackFor renders the AckNack owed to the single matched proxy
// writerGuid, or ok=false if it is not matched. Used by the in-process
// delivery sweep to route an AckNack back to one writer at a time.
func (r *StatefulReader) PendingAckNackFor(writerGuid rtps.Guid) (*messages.AckNack, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.proxies[writerGuid]
	if !ok {
		return nil, false
	}
	r.ackNackCnt++
	return &messages.AckNack{
		ReaderId: r.Guid.Entity, WriterId: writerGuid.Entity,
		ReaderSNState: messages.SequenceNumberSet{Base: p.AvailableChangesMax() + 1, Set: p.MissingChanges()},
		Count:         r.ackNackCnt,
	}, true
}

// Read delegates to the underlying cache.
func (r *StatefulReader) Read(maxSamples int, filter history.Filter, specificInstance *rtps.InstanceHandle) ([]*history.Change, []history.SampleInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Read(maxSamples, filter, specificInstance)
}

// Take delegates to the underlying cache.
func (r *StatefulReader) Take(maxSamples int, filter history.Filter, specificInstance *rtps.InstanceHandle) ([]*history.Change, []history.SampleInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Take(maxSamples, filter, specificInstance)
}
