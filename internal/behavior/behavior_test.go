package behavior

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtpsgo/rtpsgo/internal/history"
	"github.com/rtpsgo/rtpsgo/internal/messages"
	"github.com/rtpsgo/rtpsgo/internal/proxy"
	"github.com/rtpsgo/rtpsgo/internal/qos"
	"github.com/rtpsgo/rtpsgo/internal/rtps"
)

func guid(b byte, kind rtps.EntityKind) rtps.Guid {
	var g rtps.Guid
	g.Prefix[0] = b
	g.Entity = rtps.EntityId{Key: [3]byte{0, 0, b}, Kind: kind}
	return g
}

func dataFor(writerGuid, readerGuid rtps.Guid, sn rtps.SequenceNumber, payload []byte) messages.Data {
	return messages.Data{
		ReaderId: readerGuid.Entity, WriterId: writerGuid.Entity, WriterSN: sn,
		HasPayload: true, Payload: payload,
	}
}

func msgHeartbeat(writerGuid, readerGuid rtps.Guid, first, last rtps.SequenceNumber, count int32, final, liveliness bool) messages.Heartbeat {
	return messages.Heartbeat{
		ReaderId: readerGuid.Entity, WriterId: writerGuid.Entity,
		FirstSN: first, LastSN: last, Count: count, Final: final, Liveliness: liveliness,
	}
}

// TestReliableWriterReaderDelivery exercises spec.md §8 scenario 2 in
// miniature: writer and reader directly wired (no transport), verifying
// in-order reliable delivery and AckNack-driven acknowledgment.
func TestReliableWriterReaderDelivery(t *testing.T) {
	writerGuid := guid(1, rtps.EntityKindUserWriterWithKey)
	readerGuid := guid(2, rtps.EntityKindUserReaderWithKey)

	w := NewStatefulWriter(writerGuid, qos.Reliable, qos.HistoryQos{Kind: qos.KeepAll}, qos.DefaultResourceLimitsQos(), 0)
	w.MatchReader(proxy.NewReaderProxy(readerGuid, nil, nil, false))

	r := NewStatefulReader(readerGuid, qos.Reliable, qos.HistoryQos{Kind: qos.KeepAll}, qos.DefaultResourceLimitsQos(), qos.ByReceptionTimestamp, 0)
	r.MatchWriter(proxy.NewWriterProxy(writerGuid, nil, nil))

	inst := rtps.InstanceHandleFromGuid(writerGuid)
	now := time.Now()
	_, err := w.NewChange(history.Alive, inst, []byte("a"), now)
	require.NoError(t, err)
	_, err = w.NewChange(history.Alive, inst, []byte("b"), now)
	require.NoError(t, err)

	sends := w.PendingSends()
	require.Len(t, sends, 1)
	for _, d := range sends[0].Data {
		r.ReceiveData(*d, writerGuid, now)
	}

	changes, infos, err := r.Take(10, history.Filter{}, nil)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, []byte("a"), changes[0].Data)
	assert.Equal(t, []byte("b"), changes[1].Data)
	assert.True(t, infos[0].ValidData)

	acks := r.PendingAckNacks()
	require.Len(t, acks, 1)
	w.ReceiveAckNack(readerGuid, acks[0].ReaderSNState)
	assert.True(t, w.WaitForAcknowledgments())
}

// TestBestEffortGapReportsSampleLost exercises the best-effort fallback of
// spec.md §4.4.4: a gap between expected and received sequence numbers
// increments SampleLost without blocking delivery.
func TestBestEffortGapReportsSampleLost(t *testing.T) {
	writerGuid := guid(1, rtps.EntityKindUserWriterWithKey)
	readerGuid := guid(2, rtps.EntityKindUserReaderWithKey)

	r := NewStatefulReader(readerGuid, qos.BestEffort, qos.HistoryQos{Kind: qos.KeepAll}, qos.DefaultResourceLimitsQos(), qos.ByReceptionTimestamp, 0)
	r.MatchWriter(proxy.NewWriterProxy(writerGuid, nil, nil))

	now := time.Now()
	d1 := dataFor(writerGuid, readerGuid, 1, []byte("a"))
	d3 := dataFor(writerGuid, readerGuid, 3, []byte("c"))
	r.ReceiveData(d1, writerGuid, now)
	r.ReceiveData(d3, writerGuid, now)

	assert.Equal(t, 1, r.SampleLost)
	changes, _, err := r.Take(10, history.Filter{}, nil)
	require.NoError(t, err)
	assert.Len(t, changes, 2)
}

// TestHeartbeatDrivenMissingChanges exercises spec.md §4.4.4: a Heartbeat
// beyond what's been received marks the gap missing and requires an
// AckNack.
func TestHeartbeatDrivenMissingChanges(t *testing.T) {
	writerGuid := guid(1, rtps.EntityKindUserWriterWithKey)
	readerGuid := guid(2, rtps.EntityKindUserReaderWithKey)

	r := NewStatefulReader(readerGuid, qos.Reliable, qos.HistoryQos{Kind: qos.KeepAll}, qos.DefaultResourceLimitsQos(), qos.ByReceptionTimestamp, 0)
	r.MatchWriter(proxy.NewWriterProxy(writerGuid, nil, nil))

	hb := msgHeartbeat(writerGuid, readerGuid, 1, 3, 1, false, false)
	result := r.ReceiveHeartbeat(hb, writerGuid)
	assert.True(t, result.MustSend)

	acks := r.PendingAckNacks()
	require.Len(t, acks, 1)
	assert.ElementsMatch(t, []rtps.SequenceNumber{1, 2, 3}, acks[0].ReaderSNState.Set)
}

// TestReliableWriterReaderDeliversDistinctInstances covers spec.md §3,
// §4.3: two changes on different instances from the same writer must land
// on two distinct reader-side instance handles, not collapse onto one.
func TestReliableWriterReaderDeliversDistinctInstances(t *testing.T) {
	writerGuid := guid(1, rtps.EntityKindUserWriterWithKey)
	readerGuid := guid(2, rtps.EntityKindUserReaderWithKey)

	w := NewStatefulWriter(writerGuid, qos.Reliable, qos.HistoryQos{Kind: qos.KeepAll}, qos.DefaultResourceLimitsQos(), 0)
	w.MatchReader(proxy.NewReaderProxy(readerGuid, nil, nil, false))

	r := NewStatefulReader(readerGuid, qos.Reliable, qos.HistoryQos{Kind: qos.KeepAll}, qos.DefaultResourceLimitsQos(), qos.ByReceptionTimestamp, 0)
	r.MatchWriter(proxy.NewWriterProxy(writerGuid, nil, nil))

	instA := rtps.InstanceHandleFromKey([]byte("i1"))
	instB := rtps.InstanceHandleFromKey([]byte("i2"))
	now := time.Now()
	_, err := w.NewChange(history.Alive, instA, []byte("one"), now)
	require.NoError(t, err)
	_, err = w.NewChange(history.Alive, instB, []byte("two"), now)
	require.NoError(t, err)

	sends := w.PendingSends()
	require.Len(t, sends, 1)
	for _, d := range sends[0].Data {
		r.ReceiveData(*d, writerGuid, now)
	}

	_, infos, err := r.Take(10, history.Filter{}, nil)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.NotEqual(t, infos[0].InstanceHandle, infos[1].InstanceHandle)
	assert.Equal(t, instA, infos[0].InstanceHandle)
	assert.Equal(t, instB, infos[1].InstanceHandle)
}

func TestStatelessWriterAnnouncesToAllLocators(t *testing.T) {
	w := NewStatelessWriter(guid(1, rtps.EntityKindBuiltinWriterWithKey))
	w.AddReaderLocator(rtps.LocatorFromUDPv4([4]byte{239, 255, 0, 1}, 7400))
	w.AddReaderLocator(rtps.LocatorFromUDPv4([4]byte{239, 255, 0, 1}, 7401))

	inst := rtps.InstanceHandleFromGuid(guid(1, rtps.EntityKindBuiltinWriterWithKey))
	_, err := w.NewChange(history.Alive, inst, []byte("spdp"), time.Now())
	require.NoError(t, err)

	out := w.Announce(rtps.EntityId{})
	require.Len(t, out, 2)
}
