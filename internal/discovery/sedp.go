package discovery

import (
	"github.com/rtpsgo/rtpsgo/internal/qos"
	"github.com/rtpsgo/rtpsgo/internal/rtps"
)

// EndpointData is the DDS built-in-topic data plus proxy fields carried by
// DiscoveredWriterData / DiscoveredReaderData, spec.md §4.5.2.
type EndpointData struct {
	Guid              rtps.Guid
	TopicName         string
	TypeName          string
	Qos               qos.Qos
	UnicastLocators   []rtps.Locator
	MulticastLocators []rtps.Locator
}

// MatchKind distinguishes a writer-side or reader-side match event for
// status-listener dispatch.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchCompatible
	MatchIncompatibleQos
)

// MatchResult reports the outcome of matching a local endpoint against a
// discovered remote one.
type MatchResult struct {
	Kind        MatchKind
	Incompatible []qos.PolicyID
}

// MatchReaderAgainstWriter evaluates whether a local DataReader (requested)
// matches a discovered DataWriter (offered): same topic+type name, then QoS
// compatibility and partition matching, per spec.md §4.5.2.
func MatchReaderAgainstWriter(localTopic, localType string, localPartitions []string, requested qos.Qos, remote EndpointData) MatchResult {
	if localTopic != remote.TopicName || localType != remote.TypeName {
		return MatchResult{Kind: MatchNone}
	}
	if !qos.PartitionsMatch(localPartitions, remote.Qos.Partition.Names) {
		return MatchResult{Kind: MatchNone}
	}
	bad := qos.Incompatible(requested, remote.Qos)
	if len(bad) > 0 {
		return MatchResult{Kind: MatchIncompatibleQos, Incompatible: bad}
	}
	return MatchResult{Kind: MatchCompatible}
}

// MatchWriterAgainstReader is the symmetric check from the writer's side:
// the writer is "offered", the discovered reader is "requested".
func MatchWriterAgainstReader(localTopic, localType string, localPartitions []string, offered qos.Qos, remote EndpointData) MatchResult {
	if localTopic != remote.TopicName || localType != remote.TypeName {
		return MatchResult{Kind: MatchNone}
	}
	if !qos.PartitionsMatch(localPartitions, remote.Qos.Partition.Names) {
		return MatchResult{Kind: MatchNone}
	}
	bad := qos.Incompatible(remote.Qos, offered)
	if len(bad) > 0 {
		return MatchResult{Kind: MatchIncompatibleQos, Incompatible: bad}
	}
	return MatchResult{Kind: MatchCompatible}
}

// EndpointTable tracks discovered remote writers/readers/topics for one of
// the three SEDP builtin endpoint kinds, keyed by Guid, plus NotAliveDisposed
// removal on explicit delete announcements (spec.md §4.5.2).
type EndpointTable struct {
	byGuid map[rtps.Guid]EndpointData
}

// NewEndpointTable creates an empty table.
func NewEndpointTable() *EndpointTable {
	return &EndpointTable{byGuid: make(map[rtps.Guid]EndpointData)}
}

// Upsert records or updates a discovered endpoint.
func (t *EndpointTable) Upsert(data EndpointData) { t.byGuid[data.Guid] = data }

// Remove deletes a discovered endpoint (on its NotAliveDisposed change).
func (t *EndpointTable) Remove(guid rtps.Guid) { delete(t.byGuid, guid) }

// RemoveAllFrom deletes every discovered endpoint belonging to prefix (on
// participant lease expiry, spec.md §8 scenario 6).
func (t *EndpointTable) RemoveAllFrom(prefix rtps.GuidPrefix) []rtps.Guid {
	var removed []rtps.Guid
	for guid := range t.byGuid {
		if guid.Prefix == prefix {
			removed = append(removed, guid)
			delete(t.byGuid, guid)
		}
	}
	return removed
}

// All returns every discovered endpoint.
func (t *EndpointTable) All() []EndpointData {
	out := make([]EndpointData, 0, len(t.byGuid))
	for _, d := range t.byGuid {
		out = append(out, d)
	}
	return out
}
