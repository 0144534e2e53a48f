package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"papertrade/internal/config"
	"papertrade/internal/logger"
	"papertrade/internal/scheduler"
	"papertrade/internal/simulation"
	livehttp "papertrade/internal/transport/http/live"

	"golang.org/x/sync/errgroup"
)

// App owns the simulation service, its HTTP front and the resources both use.
type App struct {
	cfg     *config.Config
	svc     *simulation.Service
	http    *livehttp.Server
	closers []io.Closer
	Summary *StartupSummary
}

// NewApp builds the application without starting it.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run serves HTTP and drives ticks until ctx is canceled. When configPath is
// set, edits to it hot-reload the log level.
func (a *App) Run(ctx context.Context, configPath string) error {
	if a == nil || a.cfg == nil || a.svc == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.Close()
	if a.Summary != nil {
		a.Summary.Print()
	}
	if strings.TrimSpace(configPath) != "" {
		if err := config.Watch(configPath, a.applyConfig, func(err error) {
			logger.Warnf("config reload rejected: %v", err)
		}); err != nil {
			logger.Warnf("config watch disabled: %v", err)
		}
	}

	group, ctx := errgroup.WithContext(ctx)
	if a.http != nil {
		group.Go(func() error {
			if err := a.http.Start(ctx); err != nil {
				return fmt.Errorf("http server error: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		sched := scheduler.NewIntervalScheduler(ctx, a.cfg.Simulation.TickInterval)
		sched.Start(func(now time.Time) {
			if _, err := a.svc.Tick(ctx, now); err != nil {
				logger.Errorf("tick failed: %v", err)
			}
		})
		return nil
	})
	return group.Wait()
}

func (a *App) applyConfig(next *config.Config) {
	if next.App.LogLevel != a.cfg.App.LogLevel {
		logger.Infof("log level %s -> %s", a.cfg.App.LogLevel, next.App.LogLevel)
		logger.SetLevel(next.App.LogLevel)
		a.cfg.App.LogLevel = next.App.LogLevel
	}
}

// TickReport aggregates a batch of ticks run by RunTicks.
type TickReport struct {
	Ticks  int
	Users  int
	Trades int
	Failed int
	Errors int
	Took   time.Duration
}

// RunTicks runs count ticks back to back, spacing their timestamps by the
// configured interval, and stops early when ctx is canceled.
func (a *App) RunTicks(ctx context.Context, count int) (TickReport, error) {
	var rep TickReport
	if a == nil || a.svc == nil {
		return rep, fmt.Errorf("app not initialized")
	}
	start := time.Now()
	base := start
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			rep.Took = time.Since(start)
			return rep, err
		}
		tr, err := a.svc.Tick(ctx, base.Add(time.Duration(i)*a.cfg.Simulation.TickInterval))
		rep.Ticks++
		if err != nil {
			rep.Errors++
			logger.Errorf("tick %d failed: %v", i+1, err)
			continue
		}
		rep.Users = tr.Users
		rep.Trades += tr.Trades
		rep.Failed += tr.Failed
	}
	rep.Took = time.Since(start)
	return rep, nil
}

// Service exposes the simulation service (for tests and the CLI).
func (a *App) Service() *simulation.Service {
	if a == nil {
		return nil
	}
	return a.svc
}

// Close releases the stores; it is safe to call more than once.
func (a *App) Close() {
	if a == nil {
		return
	}
	closeAll(a.closers)
	a.closers = nil
}
