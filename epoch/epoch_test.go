package epoch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEpoch_Ticks(t *testing.T) {
	var calls atomic.Int32
	e := NewEpoch(func() { calls.Add(1) }, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.StartEpochRoutine(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("routine did not stop on cancel")
	}
}

func TestEpoch_Trigger(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	e := NewEpoch(func() {
		calls.Add(1)
		<-release
	}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.StartEpochRoutine(ctx)

	require.True(t, e.Trigger())
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	// f is busy: one trigger queues, the next is merged into it
	require.True(t, e.Trigger())
	require.False(t, e.Trigger())

	release <- struct{}{}
	release <- struct{}{}
	require.Equal(t, int32(2), calls.Load())
}
