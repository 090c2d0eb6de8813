package behavior

import (
	"sync"
	"time"

	"github.com/rtpsgo/rtpsgo/internal/history"
	"github.com/rtpsgo/rtpsgo/internal/messages"
	"github.com/rtpsgo/rtpsgo/internal/proxy"
	"github.com/rtpsgo/rtpsgo/internal/qos"
	"github.com/rtpsgo/rtpsgo/internal/rtps"
	"github.com/rtpsgo/rtpsgo/internal/xtypes"
)

// StatefulWriter holds a ReaderProxy per matched reader and drives reliable
// or best-effort delivery, spec.md §4.4.2. Its own mutex protects the cache
// and proxy table from the owning DataWriter's application-thread Write
// calls racing the in-process delivery sweep (spec.md §4.4.2).
type StatefulWriter struct {
	mu           sync.Mutex
	Guid         rtps.Guid
	Reliability  qos.ReliabilityKind
	FragmentSize int
	cache        *history.WriterCache
	proxies      map[rtps.Guid]*proxy.ReaderProxy
	heartbeatCnt int32
}

// NewStatefulWriter creates a reliable or best-effort stateful writer.
func NewStatefulWriter(guid rtps.Guid, reliability qos.ReliabilityKind, h qos.HistoryQos, limits qos.ResourceLimitsQos, fragmentSize int) *StatefulWriter {
	return &StatefulWriter{
		Guid:         guid,
		Reliability:  reliability,
		FragmentSize: fragmentSize,
		cache:        history.NewWriterCache(h, limits),
		proxies:      make(map[rtps.Guid]*proxy.ReaderProxy),
	}
}

// MatchReader adds a ReaderProxy for a newly matched reader.
func (w *StatefulWriter) MatchReader(p *proxy.ReaderProxy) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.proxies[p.ReaderGuid] = p
}

// UnmatchReader removes a reader proxy (spec.md §4.5.2, on lease expiry or
// explicit unmatch).
func (w *StatefulWriter) UnmatchReader(readerGuid rtps.Guid) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.proxies, readerGuid)
}

// MatchedReaderCount reports how many readers are currently matched.
func (w *StatefulWriter) MatchedReaderCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.proxies)
}

// NewChange inserts a change into the cache and marks it unsent for every
// matched proxy (spec.md §4.4.2).
func (w *StatefulWriter) NewChange(kind history.ChangeKind, instance rtps.InstanceHandle, data []byte, now time.Time) (*history.Change, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch, err := w.cache.AddChange(kind, instance, data, now)
	if err != nil {
		return nil, err
	}
	for _, p := range w.proxies {
		p.MarkUnsent(ch.SequenceNumber)
	}
	return ch, nil
}

// findChange looks up a cache change by sequence number. Callers must hold w.mu.
func (w *StatefulWriter) findChange(seq rtps.SequenceNumber) *history.Change {
	for _, ch := range w.cache.Changes() {
		if ch.SequenceNumber == seq {
			return ch
		}
	}
	return nil
}

// PendingSends renders, for each matched proxy, the Data/DataFrag
// submessages for every unsent change plus a trailing Heartbeat when the
// proxy is reliable (spec.md §4.4.2 periodic send).
func (w *StatefulWriter) PendingSends() []OutboundMessage {
	w.mu.Lock()
	guids := make([]rtps.Guid, 0, len(w.proxies))
	for guid := range w.proxies {
		guids = append(guids, guid)
	}
	w.mu.Unlock()

	var out []OutboundMessage
	for _, guid := range guids {
		msg, ok := w.PendingSendsTo(guid)
		if !ok || (len(msg.Data) == 0 && len(msg.DataFrag) == 0 && msg.Heartbeat == nil) {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// PendingSendsTo renders the Data/DataFrag submessages for every unsent
// change owed to the single matched proxy readerGuid, plus a trailing
// Heartbeat when the proxy is reliable. ok is false if readerGuid is not
// matched. Used by the in-process delivery sweep (spec.md §4.4.2) to drive
// one destination at a time instead of fanning out over a socket.
func (w *StatefulWriter) PendingSendsTo(readerGuid rtps.Guid) (OutboundMessage, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.proxies[readerGuid]
	if !ok {
		return OutboundMessage{}, false
	}
	first, _ := w.cache.SeqNumMin()
	last, _ := w.cache.SeqNumMax()
	var datas []*messages.Data
	var frags []*messages.DataFrag
	for {
		seq, ok := p.NextUnsent()
		if !ok {
			break
		}
		ch := w.findChange(seq)
		if ch == nil {
			continue
		}
		if w.FragmentSize > 0 && len(ch.Data) > w.FragmentSize {
			frags = append(frags, fragmentChange(ch, p.ReaderGuid.Entity, w.Guid.Entity, w.FragmentSize)...)
		} else {
			datas = append(datas, changeToData(ch, p.ReaderGuid.Entity, w.Guid.Entity))
		}
	}
	msg := OutboundMessage{Data: datas, DataFrag: frags}
	if w.Reliability == qos.Reliable {
		w.heartbeatCnt++
		msg.Heartbeat = &messages.Heartbeat{
			ReaderId: p.ReaderGuid.Entity, WriterId: w.Guid.Entity,
			FirstSN: first, LastSN: last, Count: w.heartbeatCnt,
		}
	}
	return msg, true
}

// fragmentChange splits ch into DataFrag submessages. The instance handle
// travels inline via PID_KEY_HASH on the first fragment only, mirroring how
// real RTPS carries inline QoS once per change rather than once per
// fragment; AddFragment carries it through reassembly (spec.md §3, §4.4.4).
func fragmentChange(ch *history.Change, readerId, writerId rtps.EntityId, fragmentSize int) []*messages.DataFrag {
	data := ch.Data
	dataSize := uint32(len(data))
	var out []*messages.DataFrag
	start := rtps.FragmentNumber(1)
	for off := 0; off < len(data); off += fragmentSize {
		end := off + fragmentSize
		if end > len(data) {
			end = len(data)
		}
		frag := &messages.DataFrag{
			ReaderId: readerId, WriterId: writerId, WriterSN: ch.SequenceNumber,
			FragmentStartingNum: start, FragmentsInSubmessage: 1,
			FragmentSize: uint16(fragmentSize), DataSize: dataSize,
			KeyPayload: ch.Kind != history.Alive,
			Payload:    data[off:end],
		}
		if start == 1 {
			frag.InlineQos = messages.WithKeyHash(xtypes.ParameterList{}, ch.InstanceHandle)
			frag.HasInlineQos = true
		}
		out = append(out, frag)
		start++
	}
	return out
}

// ReaderLocator returns the best destination locator for the matched reader
// readerGuid, for the network data-exchange path to address an outbound
// datagram. ok is false if readerGuid is not matched or has no locator.
func (w *StatefulWriter) ReaderLocator(readerGuid rtps.Guid) (rtps.Locator, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.proxies[readerGuid]
	if !ok {
		return rtps.Locator{}, false
	}
	return p.BestLocator()
}

// ReceiveAckNack applies an incoming AckNack to the sending reader's proxy,
// per spec.md §4.4.2.
func (w *StatefulWriter) ReceiveAckNack(readerGuid rtps.Guid, set messages.SequenceNumberSet) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.proxies[readerGuid]
	if !ok {
		return
	}
	p.AcknowledgeUpTo(set.Base)
	p.RequestRetransmit(set.Set)
}

// RetransmitDelay reports how long to wait before the next retransmit pass
// to readerGuid, backing off while that reader stays behind (spec.md §4.4.2).
// Returns false if readerGuid is not matched.
func (w *StatefulWriter) RetransmitDelay(readerGuid rtps.Guid) (time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.proxies[readerGuid]
	if !ok {
		return 0, false
	}
	return p.NextRetransmitDelay(), true
}

// WaitForAcknowledgments reports whether every matched reader has acked
// every change currently in the cache, for the blocking
// wait_for_acknowledgments operation (spec.md §5).
func (w *StatefulWriter) WaitForAcknowledgments() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	last, ok := w.cache.SeqNumMax()
	if !ok {
		return true
	}
	for _, p := range w.proxies {
		if p.HighestAcked() < last {
			return false
		}
	}
	return true
}
