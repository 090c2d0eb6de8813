// Package proxy holds the per-peer bookkeeping a Writer keeps about each
// matched Reader (ReaderProxy) and a Reader keeps about each matched Writer
// (WriterProxy), spec.md §3 and §4.4.
package proxy

import (
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rtpsgo/rtpsgo/internal/rtps"
)

// ReaderProxy is held by a stateful Writer for each matched reader: its
// locators, whether it expects inline QoS, and the unsent/requested/acked
// sequence-number bookkeeping that drives retransmission.
type ReaderProxy struct {
	ReaderGuid        rtps.Guid
	UnicastLocators   []rtps.Locator
	MulticastLocators []rtps.Locator
	ExpectsInlineQos  bool

	highestAcked rtps.SequenceNumber
	unsent       map[rtps.SequenceNumber]bool
	requested    map[rtps.SequenceNumber]bool
	acked        map[rtps.SequenceNumber]bool

	retransmitBackoff backoff.BackOff
}

// BestLocator picks the proxy's preferred destination locator: the first
// unicast locator, falling back to the first multicast one. Used by the
// network data-exchange path to address an outbound datagram.
func (p *ReaderProxy) BestLocator() (rtps.Locator, bool) {
	if len(p.UnicastLocators) > 0 {
		return p.UnicastLocators[0], true
	}
	if len(p.MulticastLocators) > 0 {
		return p.MulticastLocators[0], true
	}
	return rtps.Locator{}, false
}

// NewReaderProxy creates an empty proxy for the given reader.
func NewReaderProxy(readerGuid rtps.Guid, unicast, multicast []rtps.Locator, expectsInlineQos bool) *ReaderProxy {
	return &ReaderProxy{
		ReaderGuid:        readerGuid,
		UnicastLocators:   unicast,
		MulticastLocators: multicast,
		ExpectsInlineQos:  expectsInlineQos,
		unsent:            make(map[rtps.SequenceNumber]bool),
		requested:         make(map[rtps.SequenceNumber]bool),
		acked:             make(map[rtps.SequenceNumber]bool),
		retransmitBackoff: newRetransmitBackoff(),
	}
}

func newRetransmitBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = 0
	bo.RandomizationFactor = 0
	return bo
}

// NextRetransmitDelay reports how long to wait before the next retransmit
// attempt to a reader that is still behind, growing the interval each call
// so a slow or congested reader is not hammered (spec.md §4.4.2 "congested
// reader" pacing).
func (p *ReaderProxy) NextRetransmitDelay() time.Duration {
	return p.retransmitBackoff.NextBackOff()
}

// ResetRetransmitBackoff restarts the pacing interval, called once the
// reader has caught up to the cache's latest change.
func (p *ReaderProxy) ResetRetransmitBackoff() {
	p.retransmitBackoff.Reset()
}

// MarkUnsent records a newly written sequence number as not yet sent to this
// reader (spec.md §4.4.2: "for each proxy, marks the sequence unsent").
func (p *ReaderProxy) MarkUnsent(seq rtps.SequenceNumber) {
	p.unsent[seq] = true
}

// NextUnsent pops the lowest unsent sequence number, if any.
func (p *ReaderProxy) NextUnsent() (rtps.SequenceNumber, bool) {
	if len(p.unsent) == 0 {
		return 0, false
	}
	seqs := p.sortedKeys(p.unsent)
	seq := seqs[0]
	delete(p.unsent, seq)
	return seq, true
}

// UnsentCount reports how many changes remain unsent, for congestion-window
// pacing (spec.md §4.4.2).
func (p *ReaderProxy) UnsentCount() int { return len(p.unsent) }

// RequestedChanges returns the sequence numbers currently requested for
// retransmission, ascending.
func (p *ReaderProxy) RequestedChanges() []rtps.SequenceNumber {
	return p.sortedKeys(p.requested)
}

// AcknowledgeUpTo processes an incoming AckNack's base B: everything below B
// is acknowledged and removed from requested/unsent (spec.md §4.4.2).
func (p *ReaderProxy) AcknowledgeUpTo(base rtps.SequenceNumber) {
	if base-1 > p.highestAcked {
		p.highestAcked = base - 1
	}
	for seq := range p.unsent {
		if seq < base {
			delete(p.unsent, seq)
			p.acked[seq] = true
		}
	}
	for seq := range p.requested {
		if seq < base {
			delete(p.requested, seq)
			p.acked[seq] = true
		}
	}
	if len(p.unsent) == 0 && len(p.requested) == 0 {
		p.ResetRetransmitBackoff()
	}
}

// RequestRetransmit moves the bits set in an AckNack bitmap from acked back
// to unsent/requested (spec.md §4.4.2: "bits set in S are requested
// retransmissions").
func (p *ReaderProxy) RequestRetransmit(seqs []rtps.SequenceNumber) {
	for _, seq := range seqs {
		delete(p.acked, seq)
		p.requested[seq] = true
	}
}

// HighestAcked returns the highest sequence number known acknowledged.
func (p *ReaderProxy) HighestAcked() rtps.SequenceNumber { return p.highestAcked }

func (p *ReaderProxy) sortedKeys(m map[rtps.SequenceNumber]bool) []rtps.SequenceNumber {
	out := make([]rtps.SequenceNumber, 0, len(m))
	for seq := range m {
		out = append(out, seq)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
