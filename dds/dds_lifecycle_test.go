package dds

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rtpsgo/rtpsgo/internal/config"
	"github.com/rtpsgo/rtpsgo/internal/errors"
	"github.com/rtpsgo/rtpsgo/internal/history"
	"github.com/rtpsgo/rtpsgo/internal/qos"
	"github.com/rtpsgo/rtpsgo/internal/rtps"
)

// TestReliableWriterDeliversAllSamplesAndAcknowledges covers spec.md §8
// scenario 2: a reliable writer/reader pair exchanges Heartbeat/AckNack via
// the in-process delivery sweep until every change is acknowledged.
func TestReliableWriterDeliversAllSamplesAndAcknowledges(t *testing.T) {
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
	q.Reliability.Kind = qos.Reliable

	topicA, err := a.CreateTopic("ticks", "Tick", q)
	require.NoError(t, err)
	topicB, err := b.CreateTopic("ticks", "Tick", q)
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

	require.NoError(t, w.Write([]byte("i1"), []byte("one"), rtps.InstanceHandleNil))
	require.NoError(t, w.Write([]byte("i2"), []byte("two"), rtps.InstanceHandleNil))
	require.NoError(t, w.Write([]byte("i3"), []byte("three"), rtps.InstanceHandleNil))

	var samples []Sample
	require.Eventually(t, func() bool {
		got, takeErr := r.Take(10, history.Filter{}, nil)
		if errors.Is(takeErr, errors.ErrNoData) {
			return false
		}
		require.NoError(t, takeErr)
		samples = append(samples, got...)
		return len(samples) == 3
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, w.WaitForAcknowledgments(time.Second))
}

// TestPublisherAndSubscriberQosLifecycle covers the child lifecycle under an
// enabled Publisher and Subscriber: deletion removes a writer/reader from
// its owning group, and a deleted writer's Write fails.
func TestPublisherAndSubscriberQosLifecycle(t *testing.T) {
	f := freshFactory()
	a, err := f.CreateParticipant(0, config.DefaultDomainConfig(), ParticipantListener{})
	require.NoError(t, err)
	mustEnable(t, a.Enable())

	topic, err := a.CreateTopic("lifecycle", "Lifecycle", qos.Default())
	require.NoError(t, err)

	pub := a.CreatePublisher(qos.Default())
	mustEnable(t, pub.Enable())

	w, err := pub.CreateDataWriter(topic, qos.Default())
	require.NoError(t, err)
	mustEnable(t, w.Enable())
	require.Len(t, pub.writers, 1)

	pub.DeleteDataWriter(w)
	require.Empty(t, pub.writers)
	require.Error(t, w.Write([]byte("k"), []byte("v"), rtps.InstanceHandleNil))

	sub := a.CreateSubscriber(qos.Default())
	mustEnable(t, sub.Enable())

	r, err := sub.CreateDataReader(topic, qos.Default())
	require.NoError(t, err)
	require.Len(t, sub.readers, 1)

	sub.DeleteDataReader(r)
	require.Empty(t, sub.readers)
}

// TestTopicSetQosRejectsImmutableChangeAfterEnable covers spec.md §4.6 for
// the Topic entity specifically, mirroring the DataWriter/DataReader case.
func TestTopicSetQosRejectsImmutableChangeAfterEnable(t *testing.T) {
	f := freshFactory()
	a, err := f.CreateParticipant(0, config.DefaultDomainConfig(), ParticipantListener{})
	require.NoError(t, err)
	mustEnable(t, a.Enable())

	topic, err := a.CreateTopic("t2", "T2", qos.Default())
	require.NoError(t, err)
	mustEnable(t, topic.Enable())

	next := topic.GetQos()
	next.Reliability.Kind = qos.Reliable
	err = topic.SetQos(next)
	require.Error(t, err)
}
