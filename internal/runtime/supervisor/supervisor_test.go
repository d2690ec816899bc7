package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestGoRecoversPanicAndRecordsError(t *testing.T) {
	defer goleak.VerifyNone(t)

	sup := New(context.Background())
	sup.Go("boom", func(ctx context.Context) error { panic("kaboom") })

	err := sup.Wait(waitCtx(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom panicked: kaboom")
	// without FailFast siblings keep running
	assert.NoError(t, sup.Context().Err())
	sup.Cancel()
}

func TestFailFastCancelsSiblings(t *testing.T) {
	defer goleak.VerifyNone(t)

	sup := New(context.Background(), FailFast())
	sup.Go("fails", func(ctx context.Context) error { return errors.New("bad") })
	sup.Go("waits", func(ctx context.Context) error { <-ctx.Done(); return ctx.Err() })

	err := sup.Wait(waitCtx(t))
	require.Error(t, err)
	assert.Equal(t, "fails: bad", err.Error())
}

func TestFireFailureIsNeverFatal(t *testing.T) {
	defer goleak.VerifyNone(t)

	sup := New(context.Background(), FailFast())
	require.True(t, sup.Fire("post", 0, func(context.Context) error { return errors.New("send failed") }))
	require.True(t, sup.Fire("panics", 0, func(context.Context) error { panic("nope") }))

	require.NoError(t, sup.Wait(waitCtx(t)))
	assert.NoError(t, sup.Context().Err())
	assert.NoError(t, sup.Err())
	sup.Cancel()
}

func TestFireAppliesTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	sup := New(context.Background())
	got := make(chan error, 1)
	sup.Fire("slow", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		got <- ctx.Err()
		return ctx.Err()
	})
	require.NoError(t, sup.Wait(waitCtx(t)))
	assert.ErrorIs(t, <-got, context.DeadlineExceeded)
	assert.NoError(t, sup.Context().Err())
}

func TestNothingStartsAfterStop(t *testing.T) {
	sup := New(context.Background())
	require.NoError(t, sup.Stop(context.Background()))

	var ran atomic.Bool
	assert.False(t, sup.Fire("late", 0, func(context.Context) error { ran.Store(true); return nil }))
	sup.Go("late", func(context.Context) error { ran.Store(true); return nil })
	time.Sleep(20 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestLoopRestartsUntilCanceled(t *testing.T) {
	defer goleak.VerifyNone(t)

	sup := New(context.Background())
	var runs atomic.Int32
	sup.Loop("poll", time.Millisecond, 2*time.Millisecond, func(ctx context.Context) error {
		switch runs.Add(1) {
		case 1:
			return errors.New("transient")
		case 2:
			panic("flaky")
		case 3:
			return nil
		}
		<-ctx.Done()
		return ctx.Err()
	})

	require.Eventually(t, func() bool { return runs.Load() >= 4 }, time.Second, 5*time.Millisecond)
	require.NoError(t, sup.Stop(waitCtx(t)))
	assert.NoError(t, sup.Err())
}
