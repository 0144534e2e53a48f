package scheduler

import (
	"context"
	"time"

	"papertrade/internal/logger"
)

// IntervalScheduler runs a task every Interval on the calling goroutine, so
// runs never overlap. A run that overruns its slot is followed immediately by
// the next one and the missed slots are dropped.
type IntervalScheduler struct {
	Name           string
	Interval       time.Duration
	RunImmediately bool

	ctx   context.Context
	nowFn func() time.Time
	after func(time.Duration) <-chan time.Time
}

func NewIntervalScheduler(ctx context.Context, interval time.Duration) *IntervalScheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	return &IntervalScheduler{
		Name:     "tick",
		Interval: interval,
		ctx:      ctx,
		nowFn:    time.Now,
		after:    time.After,
	}
}

// Start blocks until the context is done. task receives the slot time.
func (s *IntervalScheduler) Start(task func(now time.Time)) {
	if s == nil {
		return
	}
	if task == nil {
		logger.Warnf("IntervalScheduler[%s]: task is nil, exit", s.Name)
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("IntervalScheduler[%s]: invalid interval=%s, exit", s.Name, s.Interval)
		return
	}
	if s.ctx == nil {
		s.ctx = context.Background()
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}
	if s.after == nil {
		s.after = time.After
	}

	startAt := s.nowFn()
	logger.Infof("IntervalScheduler[%s]: started interval=%s run_immediately=%v at=%s",
		s.Name, s.Interval, s.RunImmediately, startAt.Format(time.RFC3339))

	next := startAt.Add(s.Interval)
	if s.RunImmediately {
		next = startAt
	}
	for {
		if wait := next.Sub(s.nowFn()); wait > 0 {
			select {
			case <-s.ctx.Done():
				logger.Infof("IntervalScheduler[%s]: ctx done, exit", s.Name)
				return
			case <-s.after(wait):
			}
		}
		if s.ctx.Err() != nil {
			logger.Infof("IntervalScheduler[%s]: ctx done, exit", s.Name)
			return
		}

		task(s.nowFn())

		next = next.Add(s.Interval)
		if now := s.nowFn(); !next.After(now) {
			missed := int(now.Sub(next)/s.Interval) + 1
			logger.Warnf("IntervalScheduler[%s]: run overran by %s, skipping %d slot(s)",
				s.Name, now.Sub(next).Truncate(time.Millisecond), missed)
			next = now
		}
	}
}
