// Package behavior implements the stateless/stateful Writer and Reader
// state machines of spec.md §4.4 — the reliability engine built on top of
// internal/history and internal/proxy.
package behavior

import (
	"time"

	"github.com/rtpsgo/rtpsgo/internal/history"
	"github.com/rtpsgo/rtpsgo/internal/messages"
	"github.com/rtpsgo/rtpsgo/internal/qos"
	"github.com/rtpsgo/rtpsgo/internal/rtps"
	"github.com/rtpsgo/rtpsgo/internal/xtypes"
)

// OutboundMessage pairs a destination locator with the submessages to send
// it, for the sender collaborator (internal/transport) to batch and emit.
type OutboundMessage struct {
	Locator     rtps.Locator
	Data        []*messages.Data
	DataFrag    []*messages.DataFrag
	Heartbeat   *messages.Heartbeat
}

// StatelessWriter holds a list of raw reader locators (no per-reader state),
// used for SPDP per spec.md §4.4.1.
type StatelessWriter struct {
	Guid     rtps.Guid
	cache    *history.WriterCache
	locators []rtps.Locator
}

// NewStatelessWriter creates a stateless writer over a fresh KeepLast(1)
// cache (SPDP only ever needs the latest announcement).
func NewStatelessWriter(guid rtps.Guid) *StatelessWriter {
	return &StatelessWriter{
		Guid:  guid,
		cache: history.NewWriterCache(qos.HistoryQos{Kind: qos.KeepLast, Depth: 1}, qos.DefaultResourceLimitsQos()),
	}
}

// AddReaderLocator registers a destination for every future announcement.
func (w *StatelessWriter) AddReaderLocator(l rtps.Locator) {
	w.locators = append(w.locators, l)
}

// NewChange enqueues a new cache change (spec.md §4.4.1: "on each new
// change, enqueues a Data submessage destined to every locator").
func (w *StatelessWriter) NewChange(kind history.ChangeKind, instance rtps.InstanceHandle, data []byte, now time.Time) (*history.Change, error) {
	return w.cache.AddChange(kind, instance, data, now)
}

// Announce renders the writer's current (latest) change as a Data
// submessage destined to every registered locator. SPDP re-sends its single
// retained change every period rather than tracking per-locator state.
func (w *StatelessWriter) Announce(readerId rtps.EntityId) []OutboundMessage {
	changes := w.cache.Changes()
	if len(changes) == 0 {
		return nil
	}
	latest := changes[len(changes)-1]
	d := changeToData(latest, readerId, w.Guid.Entity)
	out := make([]OutboundMessage, 0, len(w.locators))
	for _, loc := range w.locators {
		out = append(out, OutboundMessage{Locator: loc, Data: []*messages.Data{d}})
	}
	return out
}

// changeToData renders ch as a Data submessage, carrying its instance
// handle inline via PID_KEY_HASH so the receiving reader can recover the
// correct per-instance identity instead of collapsing every change from
// this writer onto one instance (spec.md §3, §4.3).
func changeToData(ch *history.Change, readerId, writerId rtps.EntityId) *messages.Data {
	hasPayload := ch.Kind == history.Alive
	return &messages.Data{
		ReaderId:     readerId,
		WriterId:     writerId,
		WriterSN:     ch.SequenceNumber,
		InlineQos:    messages.WithKeyHash(xtypes.ParameterList{}, ch.InstanceHandle),
		HasInlineQos: true,
		HasPayload:   hasPayload,
		KeyPayload:   !hasPayload,
		Payload:      ch.Data,
	}
}
