package status

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusConditionTriggerAndClear(t *testing.T) {
	sc := NewStatusCondition()
	assert.False(t, sc.TriggerValue())

	sc.Trigger(SampleLost)
	assert.True(t, sc.TriggerValue())

	sc.Clear(SampleLost)
	assert.False(t, sc.TriggerValue())
}

func TestStatusConditionSetEnabledStatusesRestrictsTrigger(t *testing.T) {
	sc := NewStatusCondition()
	sc.SetEnabledStatuses(DataAvailable)

	sc.Trigger(SampleLost)
	assert.False(t, sc.TriggerValue(), "SampleLost disabled, should not contribute")

	sc.Trigger(DataAvailable)
	assert.True(t, sc.TriggerValue())
}

func TestWaitSetFiresOnAlreadyTrueConditionAtAttach(t *testing.T) {
	sc := NewStatusCondition()
	sc.Trigger(DataAvailable)

	ws := NewWaitSet()
	ws.Attach(sc.Condition(DataAvailable))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	triggered, err := ws.Wait(ctx, time.Second)
	require.NoError(t, err)
	assert.Len(t, triggered, 1)
}

func TestWaitSetWakesOnTrigger(t *testing.T) {
	sc := NewStatusCondition()
	ws := NewWaitSet()
	ws.Attach(sc.Condition(SubscriptionMatched))

	go func() {
		time.Sleep(10 * time.Millisecond)
		sc.Trigger(SubscriptionMatched)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	triggered, err := ws.Wait(ctx, time.Second)
	require.NoError(t, err)
	require.Len(t, triggered, 1)
}

func TestWaitSetTimesOut(t *testing.T) {
	sc := NewStatusCondition()
	ws := NewWaitSet()
	ws.Attach(sc.Condition(SampleRejected))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := ws.Wait(ctx, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestWaitSetDetach(t *testing.T) {
	sc := NewStatusCondition()
	ws := NewWaitSet()
	c := sc.Condition(DataAvailable)
	ws.Attach(c)
	ws.Detach(c)

	sc.Trigger(DataAvailable)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := ws.Wait(ctx, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}
