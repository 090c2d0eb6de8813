package dds

import "github.com/rtpsgo/rtpsgo/internal/qos"

// Topic names a stream of data of one type, spec.md §6
// `create_topic(name, type_name, qos, ...)`.
type Topic struct {
	entity
	participant *DomainParticipant
	Name        string
	TypeName    string
	Qos         qos.Qos
}

// GetQos returns the topic's current QoS.
func (t *Topic) GetQos() qos.Qos { return t.Qos }

// SetQos validates immutable-policy constraints (spec.md §4.6) before
// applying next.
func (t *Topic) SetQos(next qos.Qos) error {
	return setQosChecked(&t.entity, &t.Qos, next)
}

// Enable enables the topic. Topics have no wire presence of their own (SEDP
// publishes writer/reader data, not topic data, unless TopicsAnnouncer is
// in use) so enabling one only flips its lifecycle flag.
func (t *Topic) Enable() error {
	return t.markEnabled()
}
