package discovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtpsgo/rtpsgo/internal/qos"
	"github.com/rtpsgo/rtpsgo/internal/rtps"
)

func TestParticipantTableDiscoversAndIgnoresSelf(t *testing.T) {
	local := rtps.GuidPrefix{1}
	tbl := NewParticipantTable(local)

	self := ParticipantData{DomainId: 0, GuidPrefix: local, LeaseDuration: time.Second}
	_, isNew := tbl.OnSPDP(self, 0, "", time.Now())
	assert.False(t, isNew)
	assert.Empty(t, tbl.All())

	remote := ParticipantData{DomainId: 0, GuidPrefix: rtps.GuidPrefix{2}, LeaseDuration: time.Second}
	dp, isNew := tbl.OnSPDP(remote, 0, "", time.Now())
	require.NotNil(t, dp)
	assert.True(t, isNew)
	assert.Len(t, tbl.All(), 1)
}

func TestParticipantTableIgnoresDomainMismatch(t *testing.T) {
	tbl := NewParticipantTable(rtps.GuidPrefix{1})
	remote := ParticipantData{DomainId: 5, GuidPrefix: rtps.GuidPrefix{2}, LeaseDuration: time.Second}
	_, isNew := tbl.OnSPDP(remote, 0, "", time.Now())
	assert.False(t, isNew)
	assert.Empty(t, tbl.All())
}

// TestParticipantTableLeaseExpiryPrunes exercises spec.md §8 scenario 6.
func TestParticipantTableLeaseExpiryPrunes(t *testing.T) {
	tbl := NewParticipantTable(rtps.GuidPrefix{1})
	now := time.Now()
	remote := ParticipantData{DomainId: 0, GuidPrefix: rtps.GuidPrefix{2}, LeaseDuration: 10 * time.Millisecond}
	tbl.OnSPDP(remote, 0, "", now)

	pruned := tbl.SweepExpired(now.Add(5 * time.Millisecond))
	assert.Empty(t, pruned)

	pruned = tbl.SweepExpired(now.Add(20 * time.Millisecond))
	require.Len(t, pruned, 1)
	assert.Equal(t, rtps.GuidPrefix{2}, pruned[0])
	assert.Empty(t, tbl.All())
}

// TestMatchReaderAgainstWriterIncompatibleQos exercises spec.md §8 scenario
// 3: durability mismatch reports DurabilityQosPolicyID.
func TestMatchReaderAgainstWriterIncompatibleQos(t *testing.T) {
	requested := qos.Default()
	requested.Durability.Kind = qos.TransientLocal

	offered := qos.Default()
	offered.Durability.Kind = qos.Volatile

	remote := EndpointData{TopicName: "T", TypeName: "X", Qos: offered}
	result := MatchReaderAgainstWriter("T", "X", nil, requested, remote)
	require.Equal(t, MatchIncompatibleQos, result.Kind)
	assert.Contains(t, result.Incompatible, qos.DurabilityQosPolicyID)
}

func TestMatchReaderAgainstWriterTopicMismatchIsNoMatch(t *testing.T) {
	remote := EndpointData{TopicName: "Other", TypeName: "X"}
	result := MatchReaderAgainstWriter("T", "X", nil, qos.Default(), remote)
	assert.Equal(t, MatchNone, result.Kind)
}

func TestEndpointTableRemoveAllFromPrefix(t *testing.T) {
	tbl := NewEndpointTable()
	g1 := rtps.Guid{Prefix: rtps.GuidPrefix{9}, Entity: rtps.EntityId{Key: [3]byte{0, 0, 1}}}
	g2 := rtps.Guid{Prefix: rtps.GuidPrefix{9}, Entity: rtps.EntityId{Key: [3]byte{0, 0, 2}}}
	tbl.Upsert(EndpointData{Guid: g1, TopicName: "A"})
	tbl.Upsert(EndpointData{Guid: g2, TopicName: "B"})

	removed := tbl.RemoveAllFrom(rtps.GuidPrefix{9})
	assert.Len(t, removed, 2)
	assert.Empty(t, tbl.All())
}
