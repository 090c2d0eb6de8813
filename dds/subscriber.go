package dds

import (
	"github.com/rtpsgo/rtpsgo/internal/history"
	"github.com/rtpsgo/rtpsgo/internal/qos"
	"github.com/rtpsgo/rtpsgo/internal/rtps"
)

// Subscriber groups DataReaders, spec.md §6 "On Subscriber: create_datareader,
// get_datareaders".
type Subscriber struct {
	entity

	participant *DomainParticipant
	Qos         qos.Qos
	listener    DataReaderListener
	readers     map[rtps.Guid]*DataReader
}

func newSubscriber(p *DomainParticipant, q qos.Qos, l DataReaderListener) *Subscriber {
	return &Subscriber{entity: newEntity(), participant: p, Qos: q, listener: l, readers: make(map[rtps.Guid]*DataReader)}
}

func (sub *Subscriber) defaultReaderListener() DataReaderListener { return sub.listener }

// GetQos returns the subscriber's current QoS.
func (sub *Subscriber) GetQos() qos.Qos { return sub.Qos }

// SetQos applies next.
func (sub *Subscriber) SetQos(next qos.Qos) error {
	return setQosChecked(&sub.entity, &sub.Qos, next)
}

// Enable enables the subscriber itself; it has no independent wire presence.
func (sub *Subscriber) Enable() error { return sub.markEnabled() }

// CreateDataReader creates a DataReader for topic, spec.md §3, §6.
func (sub *Subscriber) CreateDataReader(topic *Topic, q qos.Qos) (*DataReader, error) {
	guid := sub.participant.nextEntityGuid(rtps.EntityKindUserReaderWithKey)
	r := newDataReader(sub, topic, guid, q)
	sub.readers[guid] = r
	sub.participant.registerReader(r)
	if sub.participant.autoenable {
		if err := r.Enable(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DeleteDataReader removes r from this subscriber and the participant.
func (sub *Subscriber) DeleteDataReader(r *DataReader) {
	delete(sub.readers, r.Guid)
	sub.participant.unregisterReader(r)
	r.markDeleted()
}

// GetDataReaders returns every reader owned by this subscriber that
// currently holds a cached sample matching filter's non-empty lists,
// spec.md §6. An empty Filter matches any reader with any cached sample.
func (sub *Subscriber) GetDataReaders(filter history.Filter) []*DataReader {
	var out []*DataReader
	for _, r := range sub.readers {
		if r.reader.HasMatching(filter) {
			out = append(out, r)
		}
	}
	return out
}
