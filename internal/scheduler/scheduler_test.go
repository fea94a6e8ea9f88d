package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bartek5186/catalog2dw/internal/pipeline"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls atomic.Int32
	err   error
}

func (f *fakeRunner) Run(ctx context.Context, ev *pipeline.Event, names ...string) error {
	f.calls.Add(1)
	ev.RunID = "run"
	if len(names) != len(pipeline.Full) {
		return errors.New("expected the full pipeline")
	}
	return f.err
}

func TestScheduler_RunsImmediatelyThenOnTicks(t *testing.T) {
	fr := &fakeRunner{}
	s := New(zerolog.Nop(), fr, 10*time.Millisecond)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	require.Eventually(t, func() bool { return fr.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	assert.False(t, s.IsRunning())
	st := s.Status()
	assert.GreaterOrEqual(t, st.Ticks, uint64(3))
	assert.Empty(t, st.LastErr)
	assert.False(t, st.LastRun.IsZero())

	after := fr.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, fr.calls.Load(), "no runs after Stop")
}

func TestScheduler_StartTwiceIsNoop(t *testing.T) {
	fr := &fakeRunner{}
	s := New(zerolog.Nop(), fr, time.Hour)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return fr.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	s.Stop()
	s.Stop()

	assert.EqualValues(t, 1, fr.calls.Load())
}

func TestScheduler_RecordsLastError(t *testing.T) {
	fr := &fakeRunner{err: errors.New("warehouse down")}
	s := New(zerolog.Nop(), fr, time.Hour)

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return s.Status().LastErr != "" }, time.Second, 5*time.Millisecond)
	s.Stop()

	assert.Equal(t, "warehouse down", s.Status().LastErr)
}

func TestScheduler_RejectsZeroInterval(t *testing.T) {
	s := New(zerolog.Nop(), &fakeRunner{}, 0)
	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestScheduler_UpdateIntervalRestarts(t *testing.T) {
	fr := &fakeRunner{}
	s := New(zerolog.Nop(), fr, time.Hour)
	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return fr.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.UpdateInterval(context.Background(), 10*time.Millisecond))
	require.Eventually(t, func() bool { return fr.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	assert.Equal(t, 10*time.Millisecond, s.Status().Interval)
}
