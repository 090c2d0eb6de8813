package dds

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtpsgo/rtpsgo/internal/config"
	"github.com/rtpsgo/rtpsgo/internal/errors"
	"github.com/rtpsgo/rtpsgo/internal/history"
	"github.com/rtpsgo/rtpsgo/internal/qos"
	"github.com/rtpsgo/rtpsgo/internal/rtps"
)

func freshFactory() *DomainParticipantFactory {
	return &DomainParticipantFactory{participantsByDomain: make(map[int32][]*DomainParticipant)}
}

func mustEnable(t *testing.T, err error) {
	t.Helper()
	require.NoError(t, err)
}

// TestSameProcessBestEffortMatchAndDeliver covers spec.md §8 scenario 1: two
// participants on domain 0, a best-effort writer and reader on the same
// topic, match and deliver without reliability bookkeeping.
func TestSameProcessBestEffortMatchAndDeliver(t *testing.T) {
	f := freshFactory()
	cfg := config.DefaultDomainConfig()
	cfg.SweepPeriod = 5 * time.Millisecond

	a, err := f.CreateParticipant(0, cfg, ParticipantListener{})
	require.NoError(t, err)
	mustEnable(t, a.Enable())

	b, err := f.CreateParticipant(0, cfg, ParticipantListener{})
	require.NoError(t, err)
	mustEnable(t, b.Enable())

	topicQos := qos.Default()
	topicA, err := a.CreateTopic("weather", "Weather", topicQos)
	require.NoError(t, err)
	topicB, err := b.CreateTopic("weather", "Weather", topicQos)
	require.NoError(t, err)

	pub := a.CreatePublisher(qos.Default())
	mustEnable(t, pub.Enable())
	w, err := pub.CreateDataWriter(topicA, topicQos)
	require.NoError(t, err)
	mustEnable(t, w.Enable())

	sub := b.CreateSubscriber(qos.Default())
	mustEnable(t, sub.Enable())
	r, err := sub.CreateDataReader(topicB, topicQos)
	require.NoError(t, err)
	mustEnable(t, r.Enable())

	require.Len(t, w.MatchedSubscriptions(), 1)
	require.Len(t, r.MatchedPublications(), 1)

	require.NoError(t, w.Write([]byte("k1"), []byte("sunny"), rtps.InstanceHandleNil))

	var samples []Sample
	require.Eventually(t, func() bool {
		var takeErr error
		samples, takeErr = r.Take(10, history.Filter{}, nil)
		if errors.Is(takeErr, errors.ErrNoData) {
			return false
		}
		require.NoError(t, takeErr)
		return len(samples) > 0
	}, time.Second, 5*time.Millisecond)
	require.Len(t, samples, 1)
	assert.Equal(t, []byte("sunny"), samples[0].Data)
}

// TestIncompatibleDurabilityIsNotMatched covers spec.md §8 scenario 3.
func TestIncompatibleDurabilityIsNotMatched(t *testing.T) {
	f := freshFactory()
	cfg := config.DefaultDomainConfig()

	a, err := f.CreateParticipant(0, cfg, ParticipantListener{})
	require.NoError(t, err)
	mustEnable(t, a.Enable())
	b, err := f.CreateParticipant(0, cfg, ParticipantListener{})
	require.NoError(t, err)
	mustEnable(t, b.Enable())

	writerQos := qos.Default()
	writerQos.Durability.Kind = qos.Volatile
	readerQos := qos.Default()
	readerQos.Durability.Kind = qos.TransientLocal

	topicA, err := a.CreateTopic("alerts", "Alert", writerQos)
	require.NoError(t, err)
	topicB, err := b.CreateTopic("alerts", "Alert", readerQos)
	require.NoError(t, err)

	pub := a.CreatePublisher(qos.Default())
	mustEnable(t, pub.Enable())
	w, err := pub.CreateDataWriter(topicA, writerQos)
	require.NoError(t, err)
	mustEnable(t, w.Enable())

	sub := b.CreateSubscriber(qos.Default())
	mustEnable(t, sub.Enable())
	r, err := sub.CreateDataReader(topicB, readerQos)
	require.NoError(t, err)
	mustEnable(t, r.Enable())

	assert.Empty(t, w.MatchedSubscriptions())
	assert.Empty(t, r.MatchedPublications())

	status := r.GetRequestedIncompatibleQosStatus()
	assert.Equal(t, int32(1), status.TotalCount)
	assert.Equal(t, qos.DurabilityQosPolicyID, status.LastPolicyId)

	wstatus := w.GetOfferedIncompatibleQosStatus()
	assert.Equal(t, int32(1), wstatus.TotalCount)
}

// TestRequestedDeadlineMissedFires covers spec.md §8 scenario 5.
func TestRequestedDeadlineMissedFires(t *testing.T) {
	f := freshFactory()
	cfg := config.DefaultDomainConfig()
	cfg.SweepPeriod = 5 * time.Millisecond

	a, err := f.CreateParticipant(0, cfg, ParticipantListener{})
	require.NoError(t, err)
	mustEnable(t, a.Enable())
	b, err := f.CreateParticipant(0, cfg, ParticipantListener{})
	require.NoError(t, err)
	mustEnable(t, b.Enable())

	q := qos.Default()
	q.Deadline.Period = 20 * time.Millisecond

	topicA, err := a.CreateTopic("heartbeat", "Heartbeat", q)
	require.NoError(t, err)
	topicB, err := b.CreateTopic("heartbeat", "Heartbeat", q)
	require.NoError(t, err)

	pub := a.CreatePublisher(qos.Default())
	mustEnable(t, pub.Enable())
	w, err := pub.CreateDataWriter(topicA, q)
	require.NoError(t, err)
	mustEnable(t, w.Enable())

	sub := b.CreateSubscriber(qos.Default())
	mustEnable(t, sub.Enable())
	r, err := sub.CreateDataReader(topicB, q)
	require.NoError(t, err)
	mustEnable(t, r.Enable())

	require.NoError(t, w.Write([]byte("inst-1"), []byte("tick"), rtps.InstanceHandleNil))

	require.Eventually(t, func() bool {
		return r.requestedDeadlineMissed.TotalCount > 0
	}, time.Second, 5*time.Millisecond)
}

// TestSetQosRejectsImmutableChangeAfterEnable covers spec.md §4.6.
func TestSetQosRejectsImmutableChangeAfterEnable(t *testing.T) {
	f := freshFactory()
	a, err := f.CreateParticipant(0, config.DefaultDomainConfig(), ParticipantListener{})
	require.NoError(t, err)
	mustEnable(t, a.Enable())

	topic, err := a.CreateTopic("t", "T", qos.Default())
	require.NoError(t, err)
	pub := a.CreatePublisher(qos.Default())
	mustEnable(t, pub.Enable())
	w, err := pub.CreateDataWriter(topic, qos.Default())
	require.NoError(t, err)
	mustEnable(t, w.Enable())

	next := w.GetQos()
	next.Reliability.Kind = qos.Reliable
	err = w.SetQos(next)
	assert.ErrorIs(t, err, errors.ErrImmutablePolicy)
}

// TestWriteBeforeEnableFails covers spec.md §3's disabled-entity contract.
func TestWriteBeforeEnableFails(t *testing.T) {
	f := freshFactory()
	a, err := f.CreateParticipant(0, config.DefaultDomainConfig(), ParticipantListener{})
	require.NoError(t, err)
	mustEnable(t, a.Enable())

	topic, err := a.CreateTopic("t", "T", qos.Default())
	require.NoError(t, err)
	pub := a.CreatePublisher(qos.Default())
	mustEnable(t, pub.Enable())
	w, err := pub.CreateDataWriter(topic, qos.Default())
	require.NoError(t, err)

	err = w.Write([]byte("k"), []byte("v"), rtps.InstanceHandleNil)
	assert.ErrorIs(t, err, errors.ErrNotEnabled)
}

// TestDeleteParticipantFailsWithLiveChildren covers spec.md §3's deletion
// precondition.
func TestDeleteParticipantFailsWithLiveChildren(t *testing.T) {
	f := freshFactory()
	a, err := f.CreateParticipant(0, config.DefaultDomainConfig(), ParticipantListener{})
	require.NoError(t, err)
	mustEnable(t, a.Enable())
	_, err = a.CreateTopic("t", "T", qos.Default())
	require.NoError(t, err)

	err = f.DeleteParticipant(a)
	assert.ErrorIs(t, err, errors.ErrPreconditionNotMet)
}
