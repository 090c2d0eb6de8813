package proxy

import (
	"github.com/rtpsgo/rtpsgo/internal/rtps"
	"github.com/rtpsgo/rtpsgo/internal/xtypes"
)

// WriterProxy is held by a stateful Reader for each matched writer:
// available_changes_max (spec.md §8 property 2), the missing-changes set,
// fragment reassembly state, and the last-seen heartbeat count.
type WriterProxy struct {
	WriterGuid             rtps.Guid
	UnicastLocators        []rtps.Locator
	MulticastLocators      []rtps.Locator
	availableChangesMax    rtps.SequenceNumber
	received               map[rtps.SequenceNumber]bool
	irrelevant             map[rtps.SequenceNumber]bool
	missing                map[rtps.SequenceNumber]bool
	lastReceivedHeartbeat  int32
	fragments              map[rtps.SequenceNumber]*fragmentAssembly
}

type fragmentAssembly struct {
	dataSize     uint32
	fragmentSize uint16
	parts        map[rtps.FragmentNumber][]byte
	inlineQos    xtypes.ParameterList
	hasInlineQos bool
}

// BestLocator picks the proxy's preferred destination locator: the first
// unicast locator, falling back to the first multicast one.
func (p *WriterProxy) BestLocator() (rtps.Locator, bool) {
	if len(p.UnicastLocators) > 0 {
		return p.UnicastLocators[0], true
	}
	if len(p.MulticastLocators) > 0 {
		return p.MulticastLocators[0], true
	}
	return rtps.Locator{}, false
}

// NewWriterProxy creates an empty proxy for the given writer.
func NewWriterProxy(writerGuid rtps.Guid, unicast, multicast []rtps.Locator) *WriterProxy {
	return &WriterProxy{
		WriterGuid:        writerGuid,
		UnicastLocators:   unicast,
		MulticastLocators: multicast,
		received:          make(map[rtps.SequenceNumber]bool),
		irrelevant:        make(map[rtps.SequenceNumber]bool),
		missing:           make(map[rtps.SequenceNumber]bool),
		fragments:         make(map[rtps.SequenceNumber]*fragmentAssembly),
	}
}

// AvailableChangesMax returns the largest N such that every seq in [1..N]
// is received or irrelevant (spec.md §8 property 2).
func (p *WriterProxy) AvailableChangesMax() rtps.SequenceNumber { return p.availableChangesMax }

// MarkReceived records seq as received and advances availableChangesMax
// through any now-contiguous run.
func (p *WriterProxy) MarkReceived(seq rtps.SequenceNumber) {
	p.received[seq] = true
	delete(p.missing, seq)
	p.advance()
}

// MarkIrrelevant records seq as irrelevant (from a Gap) and advances
// availableChangesMax.
func (p *WriterProxy) MarkIrrelevant(seq rtps.SequenceNumber) {
	p.irrelevant[seq] = true
	delete(p.missing, seq)
	p.advance()
}

func (p *WriterProxy) advance() {
	for p.received[p.availableChangesMax+1] || p.irrelevant[p.availableChangesMax+1] {
		p.availableChangesMax++
	}
}

// IsAvailable reports whether seq has already been received or marked
// irrelevant.
func (p *WriterProxy) IsAvailable(seq rtps.SequenceNumber) bool {
	return p.received[seq] || p.irrelevant[seq]
}

// MissingChangesUpdate marks every seq in (availableChangesMax, lastSN] not
// yet received as missing (spec.md §4.4.4).
func (p *WriterProxy) MissingChangesUpdate(lastSN rtps.SequenceNumber) {
	for seq := p.availableChangesMax + 1; seq <= lastSN; seq++ {
		if !p.IsAvailable(seq) {
			p.missing[seq] = true
		}
	}
}

// LostChangesUpdate marks every seq below firstSN not yet received as lost
// (irrelevant, since the writer has discarded it), per spec.md §4.4.4.
// Returns the newly-lost sequence numbers for SampleLost accounting.
func (p *WriterProxy) LostChangesUpdate(firstSN rtps.SequenceNumber) []rtps.SequenceNumber {
	var lost []rtps.SequenceNumber
	for seq := range p.missing {
		if seq < firstSN {
			lost = append(lost, seq)
		}
	}
	for _, seq := range lost {
		delete(p.missing, seq)
		p.irrelevant[seq] = true
	}
	p.advance()
	return lost
}

// MissingChanges returns the currently missing sequence numbers.
func (p *WriterProxy) MissingChanges() []rtps.SequenceNumber {
	out := make([]rtps.SequenceNumber, 0, len(p.missing))
	for seq := range p.missing {
		out = append(out, seq)
	}
	return out
}

// ReceivedHeartbeat reports whether count is newer than the last-seen
// heartbeat count, updating the stored count if so (spec.md §4.4.4: "ignore
// if count <= last_received_heartbeat_count").
func (p *WriterProxy) ReceivedHeartbeat(count int32) bool {
	if count <= p.lastReceivedHeartbeat {
		return false
	}
	p.lastReceivedHeartbeat = count
	return true
}

// BeginFragments starts (or continues) reassembly for writerSN.
func (p *WriterProxy) BeginFragments(writerSN rtps.SequenceNumber, dataSize uint32, fragmentSize uint16) *fragmentAssembly {
	a, ok := p.fragments[writerSN]
	if !ok {
		a = &fragmentAssembly{dataSize: dataSize, fragmentSize: fragmentSize, parts: make(map[rtps.FragmentNumber][]byte)}
		p.fragments[writerSN] = a
	}
	return a
}

// AddFragment stores one fragment's payload and reports the reassembled
// payload once every fragment in [1..ceil(data_size/fragment_size)] is
// present (spec.md §4.4.4). The inline QoS carried on the first fragment
// (PID_KEY_HASH, spec.md §3) is retained and returned alongside the
// reassembled payload so the caller can recover the change's instance
// handle.
func (p *WriterProxy) AddFragment(writerSN rtps.SequenceNumber, startingNum rtps.FragmentNumber, payload []byte, dataSize uint32, fragmentSize uint16, inlineQos xtypes.ParameterList, hasInlineQos bool) ([]byte, xtypes.ParameterList, bool, bool) {
	a := p.BeginFragments(writerSN, dataSize, fragmentSize)
	a.parts[startingNum] = payload
	if startingNum == 1 && hasInlineQos {
		a.inlineQos = inlineQos
		a.hasInlineQos = true
	}
	total := (uint32(dataSize) + uint32(fragmentSize) - 1) / uint32(fragmentSize)
	if uint32(len(a.parts)) < total {
		return nil, xtypes.ParameterList{}, false, false
	}
	out := make([]byte, 0, dataSize)
	for i := rtps.FragmentNumber(1); i <= rtps.FragmentNumber(total); i++ {
		part, ok := a.parts[i]
		if !ok {
			return nil, xtypes.ParameterList{}, false, false
		}
		out = append(out, part...)
	}
	qos, hasQos := a.inlineQos, a.hasInlineQos
	delete(p.fragments, writerSN)
	if uint32(len(out)) > dataSize {
		out = out[:dataSize]
	}
	return out, qos, hasQos, true
}
