package qos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncompatibleDurability(t *testing.T) {
	writer := Default()
	writer.Durability = DurabilityQos{Kind: Volatile}
	reader := Default()
	reader.Durability = DurabilityQos{Kind: TransientLocal}

	bad := Incompatible(reader, writer)
	require.Len(t, bad, 1)
	assert.Equal(t, DurabilityQosPolicyID, bad[0])
}

func TestIncompatibleReliability(t *testing.T) {
	writer := Default()
	writer.Reliability = ReliabilityQos{Kind: BestEffort}
	reader := Default()
	reader.Reliability = ReliabilityQos{Kind: Reliable}

	bad := Incompatible(reader, writer)
	assert.Contains(t, bad, ReliabilityQosPolicyID)
}

func TestCompatibleDefaults(t *testing.T) {
	bad := Incompatible(Default(), Default())
	assert.Empty(t, bad)
}

func TestDeadlineCompatibility(t *testing.T) {
	writer := Default()
	writer.Deadline = DeadlineQos{Period: 50 * time.Millisecond}
	reader := Default()
	reader.Deadline = DeadlineQos{Period: 100 * time.Millisecond}
	assert.Empty(t, Incompatible(reader, writer))

	reader.Deadline.Period = 10 * time.Millisecond
	assert.Contains(t, Incompatible(reader, writer), DeadlineQosPolicyID)
}

func TestChangedImmutable(t *testing.T) {
	old := Default()
	next := old
	next.Reliability.Kind = Reliable
	bad := ChangedImmutable(old, next)
	assert.Contains(t, bad, ReliabilityQosPolicyID)

	next2 := old
	next2.Deadline.Period = time.Second
	assert.Empty(t, ChangedImmutable(old, next2))
}

func TestPartitionsMatch(t *testing.T) {
	assert.True(t, PartitionsMatch(nil, nil))
	assert.False(t, PartitionsMatch([]string{"a"}, nil))
	assert.True(t, PartitionsMatch([]string{"a"}, []string{"a"}))
	assert.True(t, PartitionsMatch([]string{"a*"}, []string{"abc"}))
	assert.False(t, PartitionsMatch([]string{"a"}, []string{"b"}))
}
