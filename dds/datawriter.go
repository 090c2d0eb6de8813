package dds

import (
	"context"
	"time"

	"github.com/rtpsgo/rtpsgo/internal/behavior"
	rtpserrors "github.com/rtpsgo/rtpsgo/internal/errors"
	"github.com/rtpsgo/rtpsgo/internal/history"
	"github.com/rtpsgo/rtpsgo/internal/proxy"
	"github.com/rtpsgo/rtpsgo/internal/qos"
	"github.com/rtpsgo/rtpsgo/internal/rtps"
	"github.com/rtpsgo/rtpsgo/internal/status"
)

// DataWriter publishes samples of one Topic's type, spec.md §6 "On
// DataWriter: write, write_w_timestamp, dispose, unregister_instance,
// wait_for_acknowledgments, register_instance."
type DataWriter struct {
	entity

	publisher *Publisher
	topic     *Topic
	Guid      rtps.Guid
	Qos       qos.Qos
	listener  DataWriterListener

	writer         *behavior.StatefulWriter
	matchedReaders map[rtps.Guid]bool

	offeredDeadlineMissed  status.OfferedDeadlineMissedStatus
	offeredIncompatibleQos status.OfferedIncompatibleQosStatus
	publicationMatched     status.PublicationMatchedStatus
}

func newDataWriter(pub *Publisher, topic *Topic, guid rtps.Guid, q qos.Qos) *DataWriter {
	fragmentSize := pub.participant.fragmentSize()
	return &DataWriter{
		entity:    newEntity(),
		publisher: pub,
		topic:     topic,
		Guid:      guid,
		Qos:       q,
		listener:       pub.defaultWriterListener(),
		writer:         behavior.NewStatefulWriter(guid, q.Reliability.Kind, q.History, q.ResourceLimits, fragmentSize),
		matchedReaders: make(map[rtps.Guid]bool),
	}
}

// Topic returns the writer's topic.
func (w *DataWriter) Topic() *Topic { return w.topic }

// GetQos returns the writer's current QoS.
func (w *DataWriter) GetQos() qos.Qos { return w.Qos }

// SetQos applies next, rejecting immutable-policy changes once enabled
// (spec.md §4.6).
func (w *DataWriter) SetQos(next qos.Qos) error {
	return setQosChecked(&w.entity, &w.Qos, next)
}

// SetListener replaces the writer's status-change callbacks.
func (w *DataWriter) SetListener(l DataWriterListener) { w.listener = l }

// Enable publishes the writer via SEDP and begins its periodic tasks
// (heartbeat announce / retransmission), spec.md §3, §5.
func (w *DataWriter) Enable() error {
	if err := w.markEnabled(); err != nil {
		return err
	}
	w.publisher.participant.announceWriter(w)
	return nil
}

// RegisterInstance allocates (or returns the existing) InstanceHandle for a
// sample's serialized key fields, without publishing a change.
func (w *DataWriter) RegisterInstance(key []byte) rtps.InstanceHandle {
	return rtps.InstanceHandleFromKey(key)
}

// Write publishes an Alive change for the given sample, using handle if
// given or deriving one from key. Equivalent to write_w_timestamp with the
// current time.
func (w *DataWriter) Write(key, sample []byte, handle rtps.InstanceHandle) error {
	return w.WriteWithTimestamp(key, sample, handle, time.Now())
}

// WriteWithTimestamp is Write with an explicit source timestamp.
func (w *DataWriter) WriteWithTimestamp(key, sample []byte, handle rtps.InstanceHandle, sourceTime time.Time) error {
	_, span := w.publisher.participant.tracer.StartSpan(context.Background(), "dds.DataWriter.Write")
	defer span()

	if !w.Enabled() {
		return rtpserrors.ErrNotEnabled
	}
	if handle == rtps.InstanceHandleNil {
		handle = rtps.InstanceHandleFromKey(key)
	}
	_, err := w.writer.NewChange(history.Alive, handle, sample, sourceTime)
	return err
}

// Dispose marks an instance NotAliveDisposed, spec.md §4.3.
func (w *DataWriter) Dispose(handle rtps.InstanceHandle) error {
	if !w.Enabled() {
		return rtpserrors.ErrNotEnabled
	}
	_, err := w.writer.NewChange(history.NotAliveDisposed, handle, nil, time.Now())
	return err
}

// UnregisterInstance marks an instance NotAliveUnregistered.
func (w *DataWriter) UnregisterInstance(handle rtps.InstanceHandle) error {
	if !w.Enabled() {
		return rtpserrors.ErrNotEnabled
	}
	_, err := w.writer.NewChange(history.NotAliveUnregistered, handle, nil, time.Now())
	return err
}

// WaitForAcknowledgments blocks until every matched reliable reader has
// acked every change currently in the cache, or maxWait elapses, spec.md §5.
func (w *DataWriter) WaitForAcknowledgments(maxWait time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), maxWait)
	defer cancel()
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		if w.writer.WaitForAcknowledgments() {
			return nil
		}
		select {
		case <-ctx.Done():
			return rtpserrors.ErrTimeout
		case <-ticker.C:
		}
	}
}

// MatchedSubscriptions lists the currently matched reader proxies' guids.
func (w *DataWriter) MatchedSubscriptions() []rtps.Guid {
	out := make([]rtps.Guid, 0, len(w.matchedReaders))
	for g := range w.matchedReaders {
		out = append(out, g)
	}
	return out
}

// GetOfferedDeadlineMissedStatus returns and resets total_count_change,
// spec.md §4.7.
func (w *DataWriter) GetOfferedDeadlineMissedStatus() status.OfferedDeadlineMissedStatus {
	s := w.offeredDeadlineMissed
	w.offeredDeadlineMissed.TotalCountChange = 0
	w.condition.Clear(status.OfferedDeadlineMissed)
	return s
}

// GetOfferedIncompatibleQosStatus returns and resets total_count_change.
func (w *DataWriter) GetOfferedIncompatibleQosStatus() status.OfferedIncompatibleQosStatus {
	s := w.offeredIncompatibleQos
	w.offeredIncompatibleQos.TotalCountChange = 0
	w.condition.Clear(status.OfferedIncompatibleQos)
	return s
}

// GetPublicationMatchedStatus returns and resets total_count_change.
func (w *DataWriter) GetPublicationMatchedStatus() status.PublicationMatchedStatus {
	s := w.publicationMatched
	w.publicationMatched.TotalCountChange = 0
	w.publicationMatched.CurrentCountChange = 0
	w.condition.Clear(status.PublicationMatched)
	return s
}

// onMatched is invoked by SEDP match processing (internal/discovery) when a
// remote reader is matched or determined incompatible.
func (w *DataWriter) onMatched(readerGuid rtps.Guid, p *proxy.ReaderProxy, incompatible []qos.PolicyID) {
	if len(incompatible) > 0 {
		w.offeredIncompatibleQos.TotalCount++
		w.offeredIncompatibleQos.TotalCountChange++
		w.offeredIncompatibleQos.LastPolicyId = incompatible[0]
		w.condition.Trigger(status.OfferedIncompatibleQos)
		if w.listener.OnOfferedIncompatibleQos != nil {
			w.listener.OnOfferedIncompatibleQos(w, w.offeredIncompatibleQos)
		}
		return
	}
	w.writer.MatchReader(p)
	w.matchedReaders[readerGuid] = true
	w.publicationMatched.TotalCount++
	w.publicationMatched.TotalCountChange++
	w.publicationMatched.CurrentCount++
	w.publicationMatched.CurrentCountChange++
	w.publicationMatched.LastSubscriptionHandle = rtps.InstanceHandleFromGuid(readerGuid)
	w.condition.Trigger(status.PublicationMatched)
	if w.listener.OnPublicationMatched != nil {
		w.listener.OnPublicationMatched(w, w.publicationMatched)
	}
}

func (w *DataWriter) onUnmatched(readerGuid rtps.Guid) {
	w.writer.UnmatchReader(readerGuid)
	delete(w.matchedReaders, readerGuid)
	w.publicationMatched.CurrentCount--
	w.publicationMatched.CurrentCountChange++
	w.condition.Trigger(status.PublicationMatched)
}
