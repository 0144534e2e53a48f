package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

var t0 = time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

func newFake(ctx context.Context, interval time.Duration) (*IntervalScheduler, *fakeClock) {
	clock := &fakeClock{now: t0}
	s := NewIntervalScheduler(ctx, interval)
	s.nowFn = clock.Now
	s.after = clock.After
	return s, clock
}

func TestIntervalSchedulerRunsOnFixedSlots(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s, _ := newFake(ctx, 3*time.Second)
	s.RunImmediately = true

	var runs []time.Time
	s.Start(func(now time.Time) {
		runs = append(runs, now)
		if len(runs) == 3 {
			cancel()
		}
	})
	assert.Equal(t, []time.Time{t0, t0.Add(3 * time.Second), t0.Add(6 * time.Second)}, runs)
}

func TestIntervalSchedulerWaitsFirstSlot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s, _ := newFake(ctx, time.Second)

	var runs []time.Time
	s.Start(func(now time.Time) {
		runs = append(runs, now)
		cancel()
	})
	assert.Equal(t, []time.Time{t0.Add(time.Second)}, runs)
}

func TestIntervalSchedulerSkipsMissedSlots(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s, clock := newFake(ctx, 2*time.Second)
	s.RunImmediately = true

	var runs []time.Time
	s.Start(func(now time.Time) {
		runs = append(runs, now)
		if len(runs) == 1 {
			clock.now = clock.now.Add(5 * time.Second)
		}
		if len(runs) == 3 {
			cancel()
		}
	})
	assert.Equal(t, []time.Time{
		t0,
		t0.Add(5 * time.Second),
		t0.Add(7 * time.Second),
	}, runs)
}

func TestIntervalSchedulerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewIntervalScheduler(ctx, time.Hour)
	done := make(chan struct{})
	go func() {
		s.Start(func(time.Time) { t.Error("task must not run") })
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestIntervalSchedulerRejectsBadInput(t *testing.T) {
	s := NewIntervalScheduler(context.Background(), 0)
	s.Start(func(time.Time) { t.Error("task must not run") })
	s.Interval = time.Second
	s.Start(nil)
	var nilSched *IntervalScheduler
	nilSched.Start(func(time.Time) {})
}
