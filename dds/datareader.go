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

// Sample pairs a decoded value with its SampleInfo, the return shape of
// read/take (spec.md §4.3).
type Sample struct {
	Data []byte
	Info history.SampleInfo
}

// DataReader subscribes to one Topic's type, spec.md §6
// "On DataReader: read, take".
type DataReader struct {
	entity

	subscriber *Subscriber
	topic      *Topic
	Guid       rtps.Guid
	Qos        qos.Qos
	listener   DataReaderListener

	reader         *behavior.StatefulReader
	matchedWriters map[rtps.Guid]bool

	requestedDeadlineMissed  status.RequestedDeadlineMissedStatus
	requestedIncompatibleQos status.RequestedIncompatibleQosStatus
	subscriptionMatched      status.SubscriptionMatchedStatus
	sampleLost               status.SampleLostStatus
	sampleRejected            status.SampleRejectedStatus
}

func newDataReader(sub *Subscriber, topic *Topic, guid rtps.Guid, q qos.Qos) *DataReader {
	return &DataReader{
		entity:         newEntity(),
		subscriber:     sub,
		topic:          topic,
		Guid:           guid,
		Qos:            q,
		listener:       sub.defaultReaderListener(),
		reader:         behavior.NewStatefulReader(guid, q.Reliability.Kind, q.History, q.ResourceLimits, q.DestinationOrder.Kind, q.TimeBasedFilter.MinimumSeparation),
		matchedWriters: make(map[rtps.Guid]bool),
	}
}

// Topic returns the reader's topic.
func (r *DataReader) Topic() *Topic { return r.topic }

// GetQos returns the reader's current QoS.
func (r *DataReader) GetQos() qos.Qos { return r.Qos }

// SetQos applies next, rejecting immutable-policy changes once enabled.
func (r *DataReader) SetQos(next qos.Qos) error {
	return setQosChecked(&r.entity, &r.Qos, next)
}

// SetListener replaces the reader's status-change callbacks.
func (r *DataReader) SetListener(l DataReaderListener) { r.listener = l }

// Enable publishes the reader via SEDP and begins its periodic tasks
// (deadline checking), spec.md §3, §5.
func (r *DataReader) Enable() error {
	if err := r.markEnabled(); err != nil {
		return err
	}
	r.subscriber.participant.announceReader(r)
	return nil
}

// Read returns up to maxSamples matching filter without removing them from
// the cache, spec.md §4.3.
func (r *DataReader) Read(maxSamples int, filter history.Filter, specific *rtps.InstanceHandle) ([]Sample, error) {
	return r.readOrTake(maxSamples, filter, specific, false)
}

// Take is Read plus removal from the cache.
func (r *DataReader) Take(maxSamples int, filter history.Filter, specific *rtps.InstanceHandle) ([]Sample, error) {
	return r.readOrTake(maxSamples, filter, specific, true)
}

func (r *DataReader) readOrTake(maxSamples int, filter history.Filter, specific *rtps.InstanceHandle, take bool) ([]Sample, error) {
	op := "dds.DataReader.Read"
	if take {
		op = "dds.DataReader.Take"
	}
	_, span := r.subscriber.participant.tracer.StartSpan(context.Background(), op)
	defer span()

	if !r.Enabled() {
		return nil, rtpserrors.ErrNotEnabled
	}
	var changes []*history.Change
	var infos []history.SampleInfo
	var err error
	if take {
		changes, infos, err = r.reader.Take(maxSamples, filter, specific)
	} else {
		changes, infos, err = r.reader.Read(maxSamples, filter, specific)
	}
	if err != nil {
		return nil, err
	}
	r.condition.Clear(status.DataAvailable)
	out := make([]Sample, len(changes))
	for i, ch := range changes {
		out[i] = Sample{Data: ch.Data, Info: infos[i]}
	}
	return out, nil
}

// GetRequestedDeadlineMissedStatus returns and resets total_count_change.
func (r *DataReader) GetRequestedDeadlineMissedStatus() status.RequestedDeadlineMissedStatus {
	s := r.requestedDeadlineMissed
	r.requestedDeadlineMissed.TotalCountChange = 0
	r.condition.Clear(status.RequestedDeadlineMissed)
	return s
}

// GetRequestedIncompatibleQosStatus returns and resets total_count_change.
func (r *DataReader) GetRequestedIncompatibleQosStatus() status.RequestedIncompatibleQosStatus {
	s := r.requestedIncompatibleQos
	r.requestedIncompatibleQos.TotalCountChange = 0
	r.condition.Clear(status.RequestedIncompatibleQos)
	return s
}

// GetSubscriptionMatchedStatus returns and resets total_count_change.
func (r *DataReader) GetSubscriptionMatchedStatus() status.SubscriptionMatchedStatus {
	s := r.subscriptionMatched
	r.subscriptionMatched.TotalCountChange = 0
	r.subscriptionMatched.CurrentCountChange = 0
	r.condition.Clear(status.SubscriptionMatched)
	return s
}

// GetSampleLostStatus returns and resets total_count_change.
func (r *DataReader) GetSampleLostStatus() status.SampleLostStatus {
	s := r.sampleLost
	r.sampleLost.TotalCountChange = 0
	r.condition.Clear(status.SampleLost)
	return s
}

// GetSampleRejectedStatus returns and resets total_count_change.
func (r *DataReader) GetSampleRejectedStatus() status.SampleRejectedStatus {
	s := r.sampleRejected
	r.sampleRejected.TotalCountChange = 0
	r.condition.Clear(status.SampleRejected)
	return s
}

// MatchedPublications lists the currently matched writer proxies' guids.
func (r *DataReader) MatchedPublications() []rtps.Guid {
	out := make([]rtps.Guid, 0, len(r.matchedWriters))
	for g := range r.matchedWriters {
		out = append(out, g)
	}
	return out
}

func (r *DataReader) onMatched(writerGuid rtps.Guid, p *proxy.WriterProxy, incompatible []qos.PolicyID) {
	if len(incompatible) > 0 {
		r.requestedIncompatibleQos.TotalCount++
		r.requestedIncompatibleQos.TotalCountChange++
		r.requestedIncompatibleQos.LastPolicyId = incompatible[0]
		r.condition.Trigger(status.RequestedIncompatibleQos)
		if r.listener.OnRequestedIncompatibleQos != nil {
			r.listener.OnRequestedIncompatibleQos(r, r.requestedIncompatibleQos)
		}
		return
	}
	r.reader.MatchWriter(p)
	r.matchedWriters[writerGuid] = true
	r.subscriptionMatched.TotalCount++
	r.subscriptionMatched.TotalCountChange++
	r.subscriptionMatched.CurrentCount++
	r.subscriptionMatched.CurrentCountChange++
	r.subscriptionMatched.LastPublicationHandle = rtps.InstanceHandleFromGuid(writerGuid)
	r.condition.Trigger(status.SubscriptionMatched)
	if r.listener.OnSubscriptionMatched != nil {
		r.listener.OnSubscriptionMatched(r, r.subscriptionMatched)
	}
}

// onDataAvailable triggers DataAvailable and fires the reader's listener
// trampoline, called by the participant's data-exchange sweep whenever it
// delivers at least one new change to this reader (spec.md §4.7).
func (r *DataReader) onDataAvailable() {
	r.condition.Trigger(status.DataAvailable)
	if r.listener.OnDataAvailable != nil {
		r.listener.OnDataAvailable(r)
	}
}

func (r *DataReader) onUnmatched(writerGuid rtps.Guid) {
	r.reader.UnmatchWriter(writerGuid)
	delete(r.matchedWriters, writerGuid)
	r.subscriptionMatched.CurrentCount--
	r.subscriptionMatched.CurrentCountChange++
	r.condition.Trigger(status.SubscriptionMatched)
}

// checkDeadline is invoked by the communication-status sweep (internal/actor
// PeriodicTask) every sweep period: it compares each alive instance's last
// reception time against the reader's deadline period, spec.md §8 scenario 5.
func (r *DataReader) checkDeadline(now time.Time) {
	if r.Qos.Deadline.Period >= qos.InfiniteDuration {
		return
	}
	for handle, last := range r.reader.LastReceptionTimes() {
		if now.Sub(last) <= r.Qos.Deadline.Period {
			continue
		}
		r.requestedDeadlineMissed.TotalCount++
		r.requestedDeadlineMissed.TotalCountChange++
		r.requestedDeadlineMissed.LastInstanceHandle = handle
		r.condition.Trigger(status.RequestedDeadlineMissed)
		if r.listener.OnRequestedDeadlineMissed != nil {
			r.listener.OnRequestedDeadlineMissed(r, r.requestedDeadlineMissed)
		}
	}
}
