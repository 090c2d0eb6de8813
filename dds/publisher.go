package dds

import (
	"github.com/rtpsgo/rtpsgo/internal/qos"
	"github.com/rtpsgo/rtpsgo/internal/rtps"
)

// Publisher groups DataWriters and holds the Presentation/Partition QoS they
// share, spec.md §6 "On Publisher: create_datawriter".
type Publisher struct {
	entity

	participant *DomainParticipant
	Qos         qos.Qos
	listener    DataWriterListener
	writers     map[rtps.Guid]*DataWriter
}

func newPublisher(p *DomainParticipant, q qos.Qos, l DataWriterListener) *Publisher {
	return &Publisher{entity: newEntity(), participant: p, Qos: q, listener: l, writers: make(map[rtps.Guid]*DataWriter)}
}

func (pub *Publisher) defaultWriterListener() DataWriterListener { return pub.listener }

// GetQos returns the publisher's current QoS.
func (pub *Publisher) GetQos() qos.Qos { return pub.Qos }

// SetQos applies next (Presentation/Partition/GroupData are the only
// publisher-level policies that matter here).
func (pub *Publisher) SetQos(next qos.Qos) error {
	return setQosChecked(&pub.entity, &pub.Qos, next)
}

// Enable enables the publisher itself; it has no independent wire presence.
func (pub *Publisher) Enable() error { return pub.markEnabled() }

// CreateDataWriter creates a DataWriter for topic with the given QoS,
// disabled until Enable is called (or auto-enabled per the factory's
// autoenable_created_entities), spec.md §3, §6.
func (pub *Publisher) CreateDataWriter(topic *Topic, q qos.Qos) (*DataWriter, error) {
	guid := pub.participant.nextEntityGuid(rtps.EntityKindUserWriterWithKey)
	w := newDataWriter(pub, topic, guid, q)
	pub.writers[guid] = w
	pub.participant.registerWriter(w)
	if pub.participant.autoenable {
		if err := w.Enable(); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// DeleteDataWriter removes w from this publisher and the participant.
func (pub *Publisher) DeleteDataWriter(w *DataWriter) {
	delete(pub.writers, w.Guid)
	pub.participant.unregisterWriter(w)
	w.markDeleted()
}
