package actor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailboxAskRunsOnMailboxGoroutine(t *testing.T) {
	m := NewMailbox("test")
	defer m.Stop()

	var n int
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := m.Ask(ctx, func() { n = 42 })
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestMailboxTellIsAsync(t *testing.T) {
	m := NewMailbox("test")
	defer m.Stop()

	done := make(chan struct{})
	m.Tell(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Tell never ran")
	}
}

func TestMailboxAskAfterStopReturnsError(t *testing.T) {
	m := NewMailbox("test")
	m.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := m.Ask(ctx, func() {})
	assert.Error(t, err)
}

func TestMailboxPeriodicTaskRunsRepeatedly(t *testing.T) {
	m := NewMailbox("test")
	defer m.Stop()

	var count int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.PeriodicTask(ctx, "tick", 5*time.Millisecond, func() {
		atomic.AddInt32(&count, 1)
	})

	time.Sleep(50 * time.Millisecond)
	cancel()
	assert.GreaterOrEqual(t, atomic.LoadInt32(&count), int32(3))
}

func TestRunConcurrentPropagatesFirstError(t *testing.T) {
	boom := assert.AnError
	err := RunConcurrent(context.Background(),
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error { return boom },
	)
	assert.ErrorIs(t, err, boom)
}
