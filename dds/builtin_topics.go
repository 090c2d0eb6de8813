package dds

import (
	"encoding/json"
	"fmt"

	"github.com/rtpsgo/rtpsgo/internal/discovery"
	"github.com/rtpsgo/rtpsgo/internal/qos"
)

// Built-in topic names exposed through GetBuiltinSubscriber, spec.md §6.
const (
	BuiltinTopicParticipant  = "DCPSParticipant"
	BuiltinTopicPublication  = "DCPSPublication"
	BuiltinTopicSubscription = "DCPSSubscription"
	BuiltinTopicTopic        = "DCPSTopic"
)

// The builtin*Sample types and their JSON encoding below are a read-only
// introspection view handed back through Sample.Data for
// GetBuiltinSubscriber callers, not a wire format: the PID-framed encoding
// of ParticipantData/EndpointData that actually crosses the network lives
// in internal/discovery (wire.go), carried in internal/messages Data
// submessages. encoding/json is used here
// because this is purely an in-process struct-to-bytes convenience, not a
// concern any pack dependency's serializer targets.

type builtinParticipantSample struct {
	DomainId   int32
	DomainTag  string
	GuidPrefix string
	VendorId   string
}

type builtinEndpointSample struct {
	Guid      string
	TopicName string
	TypeName  string
	Qos       qos.Qos
}

type builtinTopicSample struct {
	Name     string
	TypeName string
	Qos      qos.Qos
}

func encodeBuiltinParticipant(data discovery.ParticipantData) []byte {
	b, _ := json.Marshal(builtinParticipantSample{
		DomainId:   data.DomainId,
		DomainTag:  data.DomainTag,
		GuidPrefix: data.GuidPrefix.String(),
		VendorId:   fmt.Sprintf("%x", data.VendorId),
	})
	return b
}

func encodeBuiltinEndpoint(remote discovery.EndpointData) []byte {
	b, _ := json.Marshal(builtinEndpointSample{
		Guid:      remote.Guid.String(),
		TopicName: remote.TopicName,
		TypeName:  remote.TypeName,
		Qos:       remote.Qos,
	})
	return b
}

func encodeBuiltinTopic(name, typeName string, q qos.Qos) []byte {
	b, _ := json.Marshal(builtinTopicSample{Name: name, TypeName: typeName, Qos: q})
	return b
}
