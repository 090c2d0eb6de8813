package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtpsgo/rtpsgo/internal/errors"
	"github.com/rtpsgo/rtpsgo/internal/qos"
	"github.com/rtpsgo/rtpsgo/internal/rtps"
)

func instanceHandle(n byte) rtps.InstanceHandle {
	var g rtps.Guid
	g.Prefix[0] = n
	return rtps.InstanceHandleFromGuid(g)
}

func TestWriterCacheSequenceNumbersStrictlyIncreasing(t *testing.T) {
	c := NewWriterCache(qos.HistoryQos{Kind: qos.KeepAll}, qos.DefaultResourceLimitsQos())
	inst := instanceHandle(1)
	var last rtps.SequenceNumber
	for i := 0; i < 5; i++ {
		ch, err := c.AddChange(Alive, inst, []byte{byte(i)}, time.Now())
		require.NoError(t, err)
		assert.Greater(t, ch.SequenceNumber, last)
		last = ch.SequenceNumber
	}
	min, ok := c.SeqNumMin()
	require.True(t, ok)
	assert.Equal(t, rtps.SequenceNumber(1), min)
}

func TestWriterCacheKeepLastEviction(t *testing.T) {
	h := qos.HistoryQos{Kind: qos.KeepLast, Depth: 2}
	c := NewWriterCache(h, qos.DefaultResourceLimitsQos())
	inst := instanceHandle(1)
	c.AddChange(Alive, inst, []byte("a"), time.Now())
	c.AddChange(Alive, inst, []byte("b"), time.Now())
	c.AddChange(Alive, inst, []byte("c"), time.Now())

	kept := c.InstanceChanges(inst)
	require.Len(t, kept, 2)
	assert.Equal(t, rtps.SequenceNumber(2), kept[0].SequenceNumber)
	assert.Equal(t, rtps.SequenceNumber(3), kept[1].SequenceNumber)
}

func TestWriterCacheKeepAllOutOfResources(t *testing.T) {
	h := qos.HistoryQos{Kind: qos.KeepAll}
	limits := qos.ResourceLimitsQos{MaxSamples: 1, MaxInstances: qos.Unlimited, MaxSamplesPerInstance: qos.Unlimited}
	c := NewWriterCache(h, limits)
	inst := instanceHandle(1)
	_, err := c.AddChange(Alive, inst, []byte("a"), time.Now())
	require.NoError(t, err)
	_, err = c.AddChange(Alive, inst, []byte("b"), time.Now())
	assert.ErrorIs(t, err, errors.ErrOutOfResources)
}

func TestReaderCacheResourceLimitsRejection(t *testing.T) {
	h := qos.HistoryQos{Kind: qos.KeepAll}
	limits := qos.ResourceLimitsQos{MaxSamples: 1, MaxInstances: qos.Unlimited, MaxSamplesPerInstance: qos.Unlimited}
	c := NewReaderCache(h, limits, qos.ByReceptionTimestamp, 0)
	inst := instanceHandle(1)
	now := time.Now()
	_, reason, err := c.AddChange(Alive, inst, rtps.InstanceHandleNil, []byte("a"), now, now)
	require.NoError(t, err)
	assert.Equal(t, NotRejected, reason)

	_, reason, err = c.AddChange(Alive, instanceHandle(2), rtps.InstanceHandleNil, []byte("b"), now.Add(time.Millisecond), now.Add(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, RejectedBySamplesLimit, reason)
}

func TestReaderCacheTimeBasedFilter(t *testing.T) {
	c := NewReaderCache(qos.DefaultHistoryQos(), qos.DefaultResourceLimitsQos(), qos.ByReceptionTimestamp, 100*time.Millisecond)
	inst := instanceHandle(1)
	t0 := time.Now()
	first, _, err := c.AddChange(Alive, inst, rtps.InstanceHandleNil, []byte("a"), t0, t0)
	require.NoError(t, err)
	assert.Equal(t, Alive, first.Kind)

	filtered, _, err := c.AddChange(Alive, inst, rtps.InstanceHandleNil, []byte("b"), t0.Add(10*time.Millisecond), t0.Add(10*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, AliveFiltered, filtered.Kind)
}

func TestReaderCacheDestinationOrderBySourceTimestamp(t *testing.T) {
	c := NewReaderCache(qos.HistoryQos{Kind: qos.KeepAll}, qos.DefaultResourceLimitsQos(), qos.BySourceTimestamp, 0)
	inst := instanceHandle(1)
	t1 := time.Now()
	t0 := t1.Add(-time.Second)
	c.AddChange(Alive, inst, rtps.InstanceHandleNil, []byte("later"), t1, t1)
	c.AddChange(Alive, inst, rtps.InstanceHandleNil, []byte("earlier"), t0, t0)

	changes, _, err := c.Read(10, Filter{}, nil)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, []byte("earlier"), changes[0].Data)
	assert.Equal(t, []byte("later"), changes[1].Data)
}

func TestReaderCacheReadThenTake(t *testing.T) {
	c := NewReaderCache(qos.DefaultHistoryQos(), qos.DefaultResourceLimitsQos(), qos.ByReceptionTimestamp, 0)
	inst := instanceHandle(1)
	now := time.Now()
	c.AddChange(Alive, inst, rtps.InstanceHandleNil, []byte("a"), now, now)

	changes, infos, err := c.Read(10, Filter{}, nil)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, NotRead, infos[0].SampleState)
	assert.True(t, infos[0].ValidData)

	// Read again: sample is now marked Read, default filter (empty) still matches.
	changes2, infos2, err := c.Read(10, Filter{}, nil)
	require.NoError(t, err)
	require.Len(t, changes2, 1)
	assert.Equal(t, Read, infos2[0].SampleState)

	taken, _, err := c.Take(10, Filter{}, nil)
	require.NoError(t, err)
	require.Len(t, taken, 1)

	_, _, err = c.Take(10, Filter{}, nil)
	assert.ErrorIs(t, err, errors.ErrNoData)
}

func TestReaderCacheSpecificInstanceBadParameter(t *testing.T) {
	c := NewReaderCache(qos.DefaultHistoryQos(), qos.DefaultResourceLimitsQos(), qos.ByReceptionTimestamp, 0)
	unknown := instanceHandle(99)
	_, _, err := c.Read(10, Filter{}, &unknown)
	assert.ErrorIs(t, err, errors.ErrBadParameter)
}

func TestReaderCacheDisposeTracksGenerationCounts(t *testing.T) {
	c := NewReaderCache(qos.DefaultHistoryQos(), qos.DefaultResourceLimitsQos(), qos.ByReceptionTimestamp, 0)
	inst := instanceHandle(1)
	now := time.Now()
	c.AddChange(Alive, inst, rtps.InstanceHandleNil, []byte("a"), now, now)
	disposed, _, err := c.AddChange(NotAliveDisposed, inst, rtps.InstanceHandleNil, nil, now.Add(time.Second), now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, disposed.DisposedGenerationCount)
}
