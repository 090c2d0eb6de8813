package dds

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rtpsgo/rtpsgo/internal/config"
	rtpserrors "github.com/rtpsgo/rtpsgo/internal/errors"
	"github.com/rtpsgo/rtpsgo/internal/qos"
	"github.com/rtpsgo/rtpsgo/internal/rtps"
	"github.com/rtpsgo/rtpsgo/internal/status"
)

// TestWaitSetWakesOnPublicationMatched covers spec.md §4.7: a WaitSet
// attached to a writer's PublicationMatched condition blocks until a reader
// matches, then wakes.
func TestWaitSetWakesOnPublicationMatched(t *testing.T) {
	f := freshFactory()
	cfg := config.DefaultDomainConfig()
	cfg.SweepPeriod = 5 * time.Millisecond

	a, err := f.CreateParticipant(0, cfg, ParticipantListener{})
	require.NoError(t, err)
	mustEnable(t, a.Enable())
	b, err := f.CreateParticipant(0, cfg, ParticipantListener{})
	require.NoError(t, err)
	mustEnable(t, b.Enable())

	topicA, err := a.CreateTopic("ws", "WS", qos.Default())
	require.NoError(t, err)
	pub := a.CreatePublisher(qos.Default())
	mustEnable(t, pub.Enable())
	w, err := pub.CreateDataWriter(topicA, qos.Default())
	require.NoError(t, err)
	mustEnable(t, w.Enable())

	ws := status.NewWaitSet()
	ws.Attach(w.StatusCondition().Condition(status.PublicationMatched))

	done := make(chan error, 1)
	go func() {
		_, waitErr := ws.Wait(context.Background(), 2*time.Second)
		done <- waitErr
	}()

	topicB, err := b.CreateTopic("ws", "WS", qos.Default())
	require.NoError(t, err)
	sub := b.CreateSubscriber(qos.Default())
	mustEnable(t, sub.Enable())
	r, err := sub.CreateDataReader(topicB, qos.Default())
	require.NoError(t, err)
	mustEnable(t, r.Enable())

	select {
	case waitErr := <-done:
		require.NoError(t, waitErr)
	case <-time.After(3 * time.Second):
		t.Fatal("WaitSet never woke on PublicationMatched")
	}
}

// TestDataAvailableListenerFires covers the OnDataAvailable trampoline firing
// once the in-process delivery sweep lands a sample, spec.md §4.7.
func TestDataAvailableListenerFires(t *testing.T) {
	f := freshFactory()
	cfg := config.DefaultDomainConfig()
	cfg.SweepPeriod = 5 * time.Millisecond

	a, err := f.CreateParticipant(0, cfg, ParticipantListener{})
	require.NoError(t, err)
	mustEnable(t, a.Enable())
	b, err := f.CreateParticipant(0, cfg, ParticipantListener{})
	require.NoError(t, err)
	mustEnable(t, b.Enable())

	topicA, err := a.CreateTopic("notify", "Notify", qos.Default())
	require.NoError(t, err)
	topicB, err := b.CreateTopic("notify", "Notify", qos.Default())
	require.NoError(t, err)

	pub := a.CreatePublisher(qos.Default())
	mustEnable(t, pub.Enable())
	w, err := pub.CreateDataWriter(topicA, qos.Default())
	require.NoError(t, err)
	mustEnable(t, w.Enable())

	sub := b.CreateSubscriber(qos.Default())
	mustEnable(t, sub.Enable())
	r, err := sub.CreateDataReader(topicB, qos.Default())
	require.NoError(t, err)

	var fired atomic.Bool
	r.SetListener(DataReaderListener{OnDataAvailable: func(*DataReader) { fired.Store(true) }})
	mustEnable(t, r.Enable())

	require.NoError(t, w.Write([]byte("k"), []byte("v"), rtps.InstanceHandleNil))

	require.Eventually(t, func() bool {
		return fired.Load()
	}, time.Second, 5*time.Millisecond)
}

// TestFindTopicWaitsForCreation covers spec.md §6: find_topic blocks until a
// matching topic appears or the timeout elapses.
func TestFindTopicWaitsForCreation(t *testing.T) {
	f := freshFactory()
	a, err := f.CreateParticipant(0, config.DefaultDomainConfig(), ParticipantListener{})
	require.NoError(t, err)
	mustEnable(t, a.Enable())

	_, err = a.FindTopic(context.Background(), "late", 20*time.Millisecond)
	require.ErrorIs(t, err, rtpserrors.ErrTimeout)

	done := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		_, createErr := a.CreateTopic("late", "Late", qos.Default())
		require.NoError(t, createErr)
		close(done)
	}()

	found, err := a.FindTopic(context.Background(), "late", time.Second)
	require.NoError(t, err)
	require.Equal(t, "late", found.Name)
	<-done
}

// TestLookupTopicDescriptionDoesNotWait covers spec.md §6: lookup_topicdescription
// returns nil immediately rather than blocking when no topic exists yet.
func TestLookupTopicDescriptionDoesNotWait(t *testing.T) {
	f := freshFactory()
	a, err := f.CreateParticipant(0, config.DefaultDomainConfig(), ParticipantListener{})
	require.NoError(t, err)
	mustEnable(t, a.Enable())

	require.Nil(t, a.LookupTopicDescription("nonexistent"))

	_, err = a.CreateTopic("present", "Present", qos.Default())
	require.NoError(t, err)
	found := a.LookupTopicDescription("present")
	require.NotNil(t, found)
	require.Equal(t, "present", found.Name)
}

// TestCreateTopicReturnsExistingOrRejectsMismatch covers spec.md §6:
// create_topic is idempotent by name for a matching type, and rejects a
// second call with a different type_name.
func TestCreateTopicReturnsExistingOrRejectsMismatch(t *testing.T) {
	f := freshFactory()
	a, err := f.CreateParticipant(0, config.DefaultDomainConfig(), ParticipantListener{})
	require.NoError(t, err)
	mustEnable(t, a.Enable())

	first, err := a.CreateTopic("shared", "Shape", qos.Default())
	require.NoError(t, err)

	second, err := a.CreateTopic("shared", "Shape", qos.Default())
	require.NoError(t, err)
	require.Same(t, first, second)

	_, err = a.CreateTopic("shared", "OtherType", qos.Default())
	require.Error(t, err)
}

// TestIgnoredPublicationIsNeverMatched covers spec.md §6: ignore_publication
// prevents a specific remote writer from ever matching, even though the
// topic and QoS are otherwise compatible.
func TestIgnoredPublicationIsNeverMatched(t *testing.T) {
	f := freshFactory()
	cfg := config.DefaultDomainConfig()
	cfg.SweepPeriod = 5 * time.Millisecond

	a, err := f.CreateParticipant(0, cfg, ParticipantListener{})
	require.NoError(t, err)
	mustEnable(t, a.Enable())
	b, err := f.CreateParticipant(0, cfg, ParticipantListener{})
	require.NoError(t, err)
	mustEnable(t, b.Enable())

	topicA, err := a.CreateTopic("ignored", "Ignored", qos.Default())
	require.NoError(t, err)
	topicB, err := b.CreateTopic("ignored", "Ignored", qos.Default())
	require.NoError(t, err)

	pub := a.CreatePublisher(qos.Default())
	mustEnable(t, pub.Enable())
	w, err := pub.CreateDataWriter(topicA, qos.Default())
	require.NoError(t, err)
	mustEnable(t, w.Enable())

	b.IgnorePublication(w.Guid)

	sub := b.CreateSubscriber(qos.Default())
	mustEnable(t, sub.Enable())
	r, err := sub.CreateDataReader(topicB, qos.Default())
	require.NoError(t, err)
	mustEnable(t, r.Enable())

	time.Sleep(50 * time.Millisecond)
	require.Empty(t, r.MatchedPublications())
}
